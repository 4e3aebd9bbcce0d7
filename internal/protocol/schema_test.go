package protocol

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"voxelmaze.ai/internal/tuning"
)

func TestValidate_Generate(t *testing.T) {
	ok := []string{
		`{"type":"GENERATE","protocol_version":"1.0","request_id":"r1"}`,
		`{"type":"GENERATE","protocol_version":"1.0","request_id":"r1","config":{"width":3,"height":1,"levels":2,"mode":"3d","seed":-5,"block":"minecraft:stone_bricks"}}`,
	}
	for _, s := range ok {
		if err := Validate(SchemaGenerate, []byte(s)); err != nil {
			t.Fatalf("validate %s: %v", s, err)
		}
	}
	bad := []string{
		`{"type":"HELLO","protocol_version":"1.0","request_id":"r1"}`,
		`{"type":"GENERATE","protocol_version":"1.0"}`,
		`{"type":"GENERATE","protocol_version":"1.0","request_id":"r1","config":{"width":0}}`,
		`{"type":"GENERATE","protocol_version":"1.0","request_id":"r1","config":{"width":2.5}}`,
		`{"type":"GENERATE","protocol_version":"1.0","request_id":"r1","config":{"colour":"red"}}`,
		`{"type":"GENERATE","protocol_version":"1.0","request_id":"r1","config":{"block":"stone 1"}}`,
		`{"type":"GENERATE","protocol_version":"1.0","request_id":"r1","extra":true}`,
		`{"type":"GENERATE","protocol_version":"1.0","request_id":"r1","config":{"holes_per_level":9223372036854775807}}`,
		`{"type":"GENERATE","protocol_version":"1.0","request_id":"r1","config":{"walk_size":17}}`,
	}
	for _, s := range bad {
		if err := Validate(SchemaGenerate, []byte(s)); err == nil {
			t.Fatalf("expected %s to be rejected", s)
		}
	}
	if err := Validate(SchemaGenerate, []byte(`{`)); err == nil {
		t.Fatalf("expected syntax error")
	}
	if err := Validate("nope.schema.json", []byte(`{}`)); err == nil {
		t.Fatalf("expected unknown schema error")
	}
}

func TestValidate_ServerMessages(t *testing.T) {
	msgs := []any{
		CommandsMsg{Type: TypeCommands, ProtocolVersion: Version, RequestID: "r1", Seq: 0, Lines: []string{"fill ~0 ~0 ~0 ~1 ~1 ~1 stone"}},
		DoneMsg{Type: TypeDone, ProtocolVersion: Version, RequestID: "r1", RunID: "run", Seed: 3, Batches: 1,
			Stats: DoneStats{Commands: 1}, Digest: strings.Repeat("ab", 32)},
		NewError("r1", ErrInvalidConfig, "width 0 not in 1..256"),
	}
	for _, m := range msgs {
		b, _ := json.Marshal(m)
		if err := Validate(SchemaServer, b); err != nil {
			t.Fatalf("validate %s: %v", b, err)
		}
	}
	if err := Validate(SchemaServer, []byte(`{"type":"ERROR","protocol_version":"1.0","code":"bad","message":""}`)); err == nil {
		t.Fatalf("expected bad code rejected")
	}
}

func TestGenerateMsg_MazeConfig(t *testing.T) {
	m := GenerateMsg{Config: json.RawMessage(`{"width":4,"mode":"2d"}`)}
	cfg, err := m.MazeConfig(tuning.Defaults())
	if err != nil {
		t.Fatalf("MazeConfig: %v", err)
	}
	if cfg.Width != 4 || cfg.Height != tuning.Defaults().Height || cfg.Mode != "2d" {
		t.Fatalf("cfg=%+v", cfg)
	}

	m.Config = json.RawMessage(`{"width":0}`)
	if _, err := m.MazeConfig(tuning.Defaults()); !errors.Is(err, tuning.ErrInvalidConfig) {
		t.Fatalf("err=%v want ErrInvalidConfig", err)
	}
	m.Config = json.RawMessage(`{"width":"wide"}`)
	if _, err := m.MazeConfig(tuning.Defaults()); !errors.Is(err, tuning.ErrInvalidConfig) {
		t.Fatalf("err=%v want ErrInvalidConfig", err)
	}
	// Each field is in range but the built volume is not.
	m.Config = json.RawMessage(`{"width":256,"height":256,"levels":64,"wall_size":16,"walk_size":16,"wall_height":16}`)
	if _, err := m.MazeConfig(tuning.Defaults()); !errors.Is(err, tuning.ErrInvalidConfig) {
		t.Fatalf("err=%v want ErrInvalidConfig", err)
	}
	if _, err := (GenerateMsg{}).MazeConfig(tuning.Defaults()); err != nil {
		t.Fatalf("empty config: %v", err)
	}
}
