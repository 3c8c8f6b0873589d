package pending

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"
)

// Entry is one filing awaiting retry on a future run.
type Entry struct {
	CompanyCode string    `json:"company_code"`
	PeriodEnd   string    `json:"period_end"`
	DocID       string    `json:"doc_id,omitempty"`
	Reason      string    `json:"reason"`
	FirstSeen   time.Time `json:"first_seen"`
	LastSeen    time.Time `json:"last_seen"`
	Attempts    int       `json:"attempts"`
}

// State is the persisted retry bookkeeping, keyed by company_code|period_end.
type State struct {
	Entries   map[string]Entry `json:"entries"`
	UpdatedAt time.Time        `json:"updated_at"`
}

// LoadState reads tracker state from a JSON file. Returns an empty state if
// the file doesn't exist.
func LoadState(filePath string) (*State, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return &State{Entries: make(map[string]Entry)}, nil
		}
		return nil, err
	}
	var state State
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, err
	}
	if state.Entries == nil {
		state.Entries = make(map[string]Entry)
	}
	return &state, nil
}

// SaveState writes tracker state to a JSON file, creating the parent
// directory if needed.
func SaveState(filePath string, state *State) error {
	if dir := filepath.Dir(filePath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	state.UpdatedAt = time.Now()
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filePath, data, 0644)
}
