package protocol

import (
	"encoding/json"
	"fmt"

	"voxelmaze.ai/internal/tuning"
)

// GENERATE (client -> server)
type GenerateMsg struct {
	Type            string          `json:"type"`
	ProtocolVersion string          `json:"protocol_version"`
	RequestID       string          `json:"request_id"`
	Config          json.RawMessage `json:"config,omitempty"`
}

// MazeConfig overlays the request's config on the server defaults and
// validates the result.
func (m GenerateMsg) MazeConfig(defaults tuning.Config) (tuning.Config, error) {
	cfg := defaults
	if len(m.Config) > 0 && string(m.Config) != "null" {
		if err := json.Unmarshal(m.Config, &cfg); err != nil {
			return cfg, fmt.Errorf("%w: %v", tuning.ErrInvalidConfig, err)
		}
	}
	return cfg, cfg.Validate()
}

// COMMANDS (server -> client): one batch of output lines, seq from 0.
type CommandsMsg struct {
	Type            string   `json:"type"`
	ProtocolVersion string   `json:"protocol_version"`
	RequestID       string   `json:"request_id"`
	Seq             int      `json:"seq"`
	Lines           []string `json:"lines"`
}

// DONE (server -> client): sent after the last COMMANDS batch.
type DoneMsg struct {
	Type            string    `json:"type"`
	ProtocolVersion string    `json:"protocol_version"`
	RequestID       string    `json:"request_id"`
	RunID           string    `json:"run_id"`
	Seed            int64     `json:"seed"`
	Batches         int       `json:"batches"`
	Stats           DoneStats `json:"stats"`
	Digest          string    `json:"digest"`
}

type DoneStats struct {
	Commands    int `json:"commands"`
	Ladders     int `json:"ladders"`
	WallMounts  int `json:"wall_mounts"`
	Fallbacks   int `json:"fallbacks"`
	Holes       int `json:"holes"`
	Unreachable int `json:"unreachable"`
}

type ErrorMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	RequestID       string `json:"request_id,omitempty"`
	Code            string `json:"code"`
	Message         string `json:"message"`
}

func NewError(requestID, code, message string) ErrorMsg {
	return ErrorMsg{
		Type:            TypeError,
		ProtocolVersion: Version,
		RequestID:       requestID,
		Code:            code,
		Message:         message,
	}
}
