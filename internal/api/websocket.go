package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/talgya/arena/internal/engine"
	"github.com/talgya/arena/internal/world"
)

var (
	errUnauthorized = errors.New("unauthorized")
	errRateLimited  = errors.New("rate limit exceeded")
)

// action is a UI command received over the websocket. Mutating actions need
// the admin key as token.
type action struct {
	Action    string  `json:"action"` // select, paint, player_move, pause, speed, advance
	Token     string  `json:"token"`
	X         int     `json:"x"`
	Y         int     `json:"y"`
	Kind      string  `json:"kind"`
	Value     string  `json:"value"`
	Terrain   string  `json:"terrain"`
	Direction string  `json:"direction"`
	Speed     float64 `json:"speed"`
}

// handleWebsocket streams snapshots to the client and applies the actions it
// sends back. Reads run on this goroutine until the client disconnects.
func (s *Server) handleWebsocket(c *gin.Context) {
	if s.Hub == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "streaming disabled"})
		return
	}
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		slog.Warn("websocket upgrade failed", "error", err)
		return
	}
	s.Hub.Register(conn)
	defer s.Hub.Unregister(conn)

	if err := s.Hub.send(conn, message{Type: "snapshot", Data: s.Eng.Snapshot()}); err != nil {
		return
	}

	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		if msgType != websocket.TextMessage {
			continue
		}
		var act action
		if err := json.Unmarshal(data, &act); err != nil {
			s.Hub.send(conn, message{Type: "error", Data: "invalid json"})
			continue
		}
		if err := s.apply(act, c.ClientIP()); err != nil {
			s.Hub.send(conn, message{Type: "error", Data: err.Error()})
			continue
		}
		s.Hub.Publish(s.Eng.Snapshot())
	}
}

// apply executes one websocket action.
func (s *Server) apply(act action, client string) error {
	if s.AdminKey == "" || act.Token != s.AdminKey {
		return errUnauthorized
	}
	at := cell{X: act.X, Y: act.Y}

	switch act.Action {
	case "select":
		return s.Eng.Do(func(sim *engine.Simulation) error {
			p, err := at.pos(sim)
			if err != nil {
				return err
			}
			return sim.Select(p)
		})
	case "paint":
		if !s.PaintLimit.Allow(client) {
			return errRateLimited
		}
		brush, err := paintRequest{Kind: act.Kind, Value: act.Value, Terrain: act.Terrain}.brush()
		if err != nil {
			return err
		}
		return s.Eng.Do(func(sim *engine.Simulation) error {
			p, err := at.pos(sim)
			if err != nil {
				return err
			}
			return sim.PaintTile(p, brush)
		})
	case "player_move":
		d, ok := world.ParseDir(act.Direction)
		if !ok {
			return fmt.Errorf("%w: direction %q", engine.ErrInvalidArgument, act.Direction)
		}
		return s.Eng.Do(func(sim *engine.Simulation) error {
			return sim.MovePlayer(d)
		})
	case "pause":
		s.Eng.SetPaused(!s.Eng.Paused())
		return nil
	case "speed":
		return s.Eng.SetSpeed(act.Speed)
	case "advance":
		s.Eng.Step()
		return nil
	}
	return fmt.Errorf("%w: action %q", engine.ErrInvalidArgument, act.Action)
}
