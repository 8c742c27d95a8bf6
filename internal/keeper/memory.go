package keeper

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
)

const maxRecords = 20

// CycleRecord captures what happened in a single keeper cycle.
type CycleRecord struct {
	Tick            uint64  `json:"tick"`
	RunID           string  `json:"run_id,omitempty"`
	Action          Action  `json:"action"`
	Level           string  `json:"level"`
	Population      int     `json:"population"`
	Density         float64 `json:"density"`
	DeathBirthRatio float64 `json:"death_birth_ratio"`
	Applied         int     `json:"applied"`
	Rationale       string  `json:"rationale,omitempty"`
}

// Memory is a ring of recent cycle records, optionally kept in a JSON file.
type Memory struct {
	Records []CycleRecord `json:"records"`

	path string
}

// LoadMemory reads the memory file at path. A missing or corrupt file
// yields empty memory; an empty path keeps memory in process only.
func LoadMemory(path string) *Memory {
	mem := &Memory{path: path}
	if path == "" {
		return mem
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			slog.Warn("keeper memory unreadable, starting fresh", "path", path, "error", err)
		}
		return mem
	}
	if err := json.Unmarshal(data, mem); err != nil {
		slog.Warn("keeper memory corrupted, starting fresh", "path", path, "error", err)
		mem.Records = nil
	}
	return mem
}

// Add appends a record, dropping the oldest beyond the ring size.
func (m *Memory) Add(rec CycleRecord) {
	m.Records = append(m.Records, rec)
	if len(m.Records) > maxRecords {
		m.Records = m.Records[len(m.Records)-maxRecords:]
	}
}

// QuietCycles counts the trailing cycles without an intervention. With no
// intervention on record it returns the ring size.
func (m *Memory) QuietCycles() int {
	for i := len(m.Records) - 1; i >= 0; i-- {
		if m.Records[i].Action != ActionNone {
			return len(m.Records) - 1 - i
		}
	}
	return maxRecords
}

// Save writes the memory file. It is a no-op without a path.
func (m *Memory) Save() error {
	if m.path == "" {
		return nil
	}
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal keeper memory: %w", err)
	}
	if err := os.WriteFile(m.path, data, 0o644); err != nil {
		return fmt.Errorf("write keeper memory: %w", err)
	}
	return nil
}
