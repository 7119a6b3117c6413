package model

import "time"

// RunRecord is a tracked run as stored in the run database
type RunRecord struct {
	ID            string    `json:"id"`
	ReferenceDate string    `json:"reference_date"`
	Status        string    `json:"status"`
	Selected      int       `json:"selected"`
	Groups        int       `json:"groups"`
	OutputPath    string    `json:"output_path,omitempty"`
	Error         string    `json:"error,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// RunLog is one stage log line attached to a run
type RunLog struct {
	ID        int64          `json:"id"`
	RunID     string         `json:"run_id"`
	Stage     string         `json:"stage"`
	Level     string         `json:"level"`
	Message   string         `json:"message"`
	Details   map[string]any `json:"details,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}
