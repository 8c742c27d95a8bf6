// Package api provides the HTTP and websocket surface of the arena.
// GET endpoints are public (read-only observation).
// POST endpoints require a bearer token (admin control plane).
package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/talgya/arena/internal/engine"
	"github.com/talgya/arena/internal/items"
	"github.com/talgya/arena/internal/persistence"
	"github.com/talgya/arena/internal/world"
)

const maxAdvance = 1000

// Server serves the arena over HTTP.
type Server struct {
	Eng      *engine.Engine
	Hub      *Broadcaster
	DB       *persistence.DB // optional
	RunID    string
	Port     int
	AdminKey string // Bearer token for POST endpoints. Empty = POST disabled.

	// PaintLimit bounds paint requests per client; nil uses 600 per minute.
	PaintLimit *RateLimiter

	srv *http.Server
}

// Router builds the gin engine with every route registered.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger())

	if s.PaintLimit == nil {
		s.PaintLimit = NewRateLimiter(600, time.Minute)
	}

	v1 := r.Group("/api/v1")
	v1.GET("/status", s.handleStatus)
	v1.GET("/snapshot", s.handleSnapshot)
	v1.GET("/stats", s.handleStats)
	v1.GET("/stats/history", s.handleStatsHistory)
	v1.GET("/events", s.handleEvents)
	v1.GET("/maps", s.handleMaps)

	admin := v1.Group("/", s.adminOnly())
	admin.POST("/resize", s.handleResize)
	admin.POST("/reset", s.handleReset)
	admin.POST("/population", s.handlePopulation)
	admin.POST("/map", s.handleMap)
	admin.POST("/logic", s.handleLogic)
	admin.POST("/paint", RateLimit(s.PaintLimit), s.handlePaint)
	admin.POST("/kill", s.handleKill)
	admin.POST("/spawn", s.handleSpawn)
	admin.POST("/player", s.handlePlayer)
	admin.POST("/player/move", s.handlePlayerMove)
	admin.POST("/select", s.handleSelect)
	admin.POST("/advance", s.handleAdvance)
	admin.POST("/speed", s.handleSpeed)
	admin.POST("/pause", s.handlePause)

	r.GET("/ws", s.handleWebsocket)
	return r
}

// Start begins serving the HTTP API in a goroutine.
func (s *Server) Start() {
	addr := fmt.Sprintf(":%d", s.Port)
	s.srv = &http.Server{Addr: addr, Handler: s.Router()}
	slog.Info("HTTP API starting", "addr", addr, "admin_auth", s.AdminKey != "")

	go func() {
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("HTTP server error", "error", err)
		}
	}()
}

// Shutdown stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.srv == nil {
		return nil
	}
	return s.srv.Shutdown(ctx)
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		slog.Debug("http request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"duration", time.Since(start),
		)
	}
}

// checkBearerToken returns true if the request has a valid admin bearer token.
func (s *Server) checkBearerToken(c *gin.Context) bool {
	auth := c.GetHeader("Authorization")
	return strings.HasPrefix(auth, "Bearer ") && strings.TrimPrefix(auth, "Bearer ") == s.AdminKey
}

// adminOnly requires bearer token auth.
func (s *Server) adminOnly() gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.AdminKey == "" {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "admin endpoints disabled (no ARENA_ADMIN_KEY set)"})
			return
		}
		if !s.checkBearerToken(c) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		c.Next()
	}
}

// fail maps engine errors onto HTTP statuses.
func fail(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, engine.ErrInvalidPlacement),
		errors.Is(err, engine.ErrInvalidArgument),
		errors.Is(err, engine.ErrUnknownMap):
		status = http.StatusBadRequest
	case errors.Is(err, engine.ErrNoPlayer):
		status = http.StatusConflict
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

// command runs fn against the simulation, then publishes and returns the
// resulting snapshot.
func (s *Server) command(c *gin.Context, fn func(*engine.Simulation) error) {
	if err := s.Eng.Do(fn); err != nil {
		fail(c, err)
		return
	}
	snap := s.Eng.Snapshot()
	if s.Hub != nil {
		s.Hub.Publish(snap)
	}
	c.JSON(http.StatusOK, snap)
}

// bind decodes the JSON body into req, answering 400 on failure.
func bind(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json: " + err.Error()})
		return false
	}
	return true
}

// cell is a grid coordinate in request bodies.
type cell struct {
	X int `json:"x"`
	Y int `json:"y"`
}

func (p cell) pos(sim *engine.Simulation) (world.Pos, error) {
	pos, ok := sim.Grid.Index(p.X, p.Y)
	if !ok {
		return world.NoPos, fmt.Errorf("%w: (%d,%d) is off the grid", engine.ErrInvalidPlacement, p.X, p.Y)
	}
	return pos, nil
}

func (s *Server) handleStatus(c *gin.Context) {
	snap := s.Eng.Snapshot()
	status := gin.H{
		"name":       "arena",
		"tick":       snap.Tick,
		"speed":      s.Eng.Speed(),
		"paused":     s.Eng.Paused(),
		"exhausted":  snap.Exhausted,
		"population": snap.Stats.NumCombatants,
		"items":      len(snap.Items),
		"births":     snap.Stats.Births,
		"deaths":     snap.Stats.Deaths,
		"map":        snap.Map,
		"logic":      snap.Logic,
		"width":      snap.Width,
		"height":     snap.Height,
		"seed":       snap.Seed,
		"run_id":     s.RunID,
	}
	if s.Hub != nil {
		status["clients"] = s.Hub.Clients()
	}
	c.JSON(http.StatusOK, status)
}

func (s *Server) handleSnapshot(c *gin.Context) {
	c.JSON(http.StatusOK, s.Eng.Snapshot())
}

func (s *Server) handleStats(c *gin.Context) {
	c.JSON(http.StatusOK, s.Eng.Snapshot().Stats)
}

func (s *Server) handleStatsHistory(c *gin.Context) {
	if s.DB == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "persistence disabled"})
		return
	}
	limit := queryInt(c, "limit", 200, 5000)
	rows, err := s.DB.StatsHistory(s.RunID, limit)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, rows)
}

func (s *Server) handleEvents(c *gin.Context) {
	limit := queryInt(c, "limit", 50, 1000)
	var events []engine.Event
	s.Eng.Do(func(sim *engine.Simulation) error {
		start := max(len(sim.Events)-limit, 0)
		events = append(events, sim.Events[start:]...)
		return nil
	})
	c.JSON(http.StatusOK, events)
}

func (s *Server) handleMaps(c *gin.Context) {
	c.JSON(http.StatusOK, engine.MapNames())
}

func queryInt(c *gin.Context, key string, def, limit int) int {
	n, err := strconv.Atoi(c.Query(key))
	if err != nil || n <= 0 {
		return def
	}
	return min(n, limit)
}

func (s *Server) handleResize(c *gin.Context) {
	var req struct {
		Width  int `json:"width"`
		Height int `json:"height"`
	}
	if !bind(c, &req) {
		return
	}
	s.command(c, func(sim *engine.Simulation) error {
		return sim.Resize(req.Width, req.Height)
	})
}

func (s *Server) handleReset(c *gin.Context) {
	s.command(c, func(sim *engine.Simulation) error {
		sim.Reset()
		return nil
	})
}

func (s *Server) handlePopulation(c *gin.Context) {
	var req struct {
		Count int `json:"count"`
	}
	if !bind(c, &req) {
		return
	}
	s.command(c, func(sim *engine.Simulation) error {
		return sim.SetInitialPopulation(req.Count)
	})
}

func (s *Server) handleMap(c *gin.Context) {
	var req struct {
		Name string `json:"name"`
	}
	if !bind(c, &req) {
		return
	}
	s.command(c, func(sim *engine.Simulation) error {
		return sim.SetMap(req.Name)
	})
}

func (s *Server) handleLogic(c *gin.Context) {
	var req struct {
		Logic string `json:"logic"`
	}
	if !bind(c, &req) {
		return
	}
	logic, err := engine.ParseMovementLogic(req.Logic)
	if err != nil {
		fail(c, err)
		return
	}
	s.command(c, func(sim *engine.Simulation) error {
		sim.SetMovementLogic(logic)
		return nil
	})
}

// paintRequest names the brush by strings: kind is terrain, item, species
// or kill; value is the tile, item or species name.
type paintRequest struct {
	cell
	Kind    string `json:"kind"`
	Value   string `json:"value"`
	Terrain string `json:"terrain,omitempty"` // spider paint colour
}

func (r paintRequest) brush() (engine.Paint, error) {
	kind, ok := engine.ParsePaintKind(r.Kind)
	if !ok {
		return engine.Paint{}, fmt.Errorf("%w: paint kind %q", engine.ErrInvalidArgument, r.Kind)
	}
	brush := engine.Paint{Kind: kind}
	switch kind {
	case engine.PaintTerrain:
		if brush.Tile, ok = world.ParseTileType(r.Value); !ok {
			return brush, fmt.Errorf("%w: tile %q", engine.ErrInvalidArgument, r.Value)
		}
	case engine.PaintItem:
		if brush.Item, ok = items.ParseKind(r.Value); !ok {
			return brush, fmt.Errorf("%w: item %q", engine.ErrInvalidArgument, r.Value)
		}
		if r.Terrain != "" {
			if brush.Tile, ok = world.ParseTileType(r.Terrain); !ok {
				return brush, fmt.Errorf("%w: tile %q", engine.ErrInvalidArgument, r.Terrain)
			}
		} else {
			brush.Tile = world.TileGrass
		}
	case engine.PaintSpecies:
		if brush.Species, ok = world.ParseSpecies(r.Value); !ok {
			return brush, fmt.Errorf("%w: species %q", engine.ErrInvalidArgument, r.Value)
		}
	}
	return brush, nil
}

func (s *Server) handlePaint(c *gin.Context) {
	var req paintRequest
	if !bind(c, &req) {
		return
	}
	brush, err := req.brush()
	if err != nil {
		fail(c, err)
		return
	}
	s.command(c, func(sim *engine.Simulation) error {
		p, err := req.pos(sim)
		if err != nil {
			return err
		}
		return sim.PaintTile(p, brush)
	})
}

func (s *Server) handleKill(c *gin.Context) {
	var req cell
	if !bind(c, &req) {
		return
	}
	s.command(c, func(sim *engine.Simulation) error {
		p, err := req.pos(sim)
		if err != nil {
			return err
		}
		return sim.KillSelected(p)
	})
}

func (s *Server) handleSpawn(c *gin.Context) {
	var req cell
	if !bind(c, &req) {
		return
	}
	s.command(c, func(sim *engine.Simulation) error {
		p, err := req.pos(sim)
		if err != nil {
			return err
		}
		_, err = sim.SpawnAt(p)
		return err
	})
}

func (s *Server) handlePlayer(c *gin.Context) {
	var req struct {
		cell
		Species string `json:"species"`
	}
	if !bind(c, &req) {
		return
	}
	species, ok := world.ParseSpecies(req.Species)
	if !ok {
		fail(c, fmt.Errorf("%w: species %q", engine.ErrInvalidArgument, req.Species))
		return
	}
	s.command(c, func(sim *engine.Simulation) error {
		p, err := req.pos(sim)
		if err != nil {
			return err
		}
		_, err = sim.SpawnPlayer(p, species)
		return err
	})
}

func (s *Server) handlePlayerMove(c *gin.Context) {
	var req struct {
		Direction string `json:"direction"`
	}
	if !bind(c, &req) {
		return
	}
	d, ok := world.ParseDir(req.Direction)
	if !ok {
		fail(c, fmt.Errorf("%w: direction %q", engine.ErrInvalidArgument, req.Direction))
		return
	}
	s.command(c, func(sim *engine.Simulation) error {
		return sim.MovePlayer(d)
	})
}

func (s *Server) handleSelect(c *gin.Context) {
	var req struct {
		cell
		Clear bool `json:"clear"`
	}
	if !bind(c, &req) {
		return
	}
	s.command(c, func(sim *engine.Simulation) error {
		if req.Clear {
			return sim.Select(world.NoPos)
		}
		p, err := req.pos(sim)
		if err != nil {
			return err
		}
		return sim.Select(p)
	})
}

func (s *Server) handleAdvance(c *gin.Context) {
	var req struct {
		Ticks int `json:"ticks"`
	}
	if c.Request.ContentLength > 0 && !bind(c, &req) {
		return
	}
	if req.Ticks <= 0 {
		req.Ticks = 1
	}
	if req.Ticks > maxAdvance {
		fail(c, fmt.Errorf("%w: at most %d ticks per request", engine.ErrInvalidArgument, maxAdvance))
		return
	}
	var snap engine.Snapshot
	for i := 0; i < req.Ticks; i++ {
		snap = s.Eng.Step()
	}
	c.JSON(http.StatusOK, snap)
}

func (s *Server) handleSpeed(c *gin.Context) {
	var req struct {
		Speed float64 `json:"speed"`
	}
	if !bind(c, &req) {
		return
	}
	if err := s.Eng.SetSpeed(req.Speed); err != nil {
		fail(c, err)
		return
	}
	slog.Info("speed changed", "speed", req.Speed)
	c.JSON(http.StatusOK, gin.H{"speed": s.Eng.Speed()})
}

func (s *Server) handlePause(c *gin.Context) {
	var req struct {
		Paused *bool `json:"paused"`
	}
	if c.Request.ContentLength > 0 && !bind(c, &req) {
		return
	}
	paused := !s.Eng.Paused()
	if req.Paused != nil {
		paused = *req.Paused
	}
	s.Eng.SetPaused(paused)
	c.JSON(http.StatusOK, gin.H{"paused": paused})
}
