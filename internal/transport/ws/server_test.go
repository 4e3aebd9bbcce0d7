package ws

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"voxelmaze.ai/internal/emit"
	"voxelmaze.ai/internal/pipeline"
	"voxelmaze.ai/internal/protocol"
	"voxelmaze.ai/internal/tuning"
)

func newTestServer(t *testing.T) (*Server, *httptest.Server) {
	t.Helper()
	defaults := tuning.Defaults()
	defaults.Width, defaults.Height, defaults.Levels = 4, 4, 2
	s := NewServer(&pipeline.Runner{}, defaults, nil, 2)
	s.SetBatchSize(10)

	mux := http.NewServeMux()
	mux.HandleFunc("/v1/ws", s.Handler())
	mux.HandleFunc("/v1/generate", s.GenerateHandler())
	mux.HandleFunc("/v1/runs", RunsHandler(nil))
	hs := httptest.NewServer(mux)
	t.Cleanup(hs.Close)
	return s, hs
}

func dial(t *testing.T, hs *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(hs.URL, "http") + "/v1/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readMsg(t *testing.T, conn *websocket.Conn) (protocol.BaseMessage, []byte) {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(10 * time.Second))
	_, b, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if err := protocol.Validate(protocol.SchemaServer, b); err != nil {
		t.Fatalf("server message %s: %v", b, err)
	}
	base, err := protocol.DecodeBase(b)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	return base, b
}

func TestWS_GenerateStreamsBatchesThenDone(t *testing.T) {
	_, hs := newTestServer(t)
	conn := dial(t, hs)

	req := `{"type":"GENERATE","protocol_version":"1.0","request_id":"r1","config":{"seed":99,"add_roof":true}}`
	if err := conn.WriteMessage(websocket.TextMessage, []byte(req)); err != nil {
		t.Fatalf("write: %v", err)
	}

	var lines []string
	for seq := 0; ; seq++ {
		base, b := readMsg(t, conn)
		if base.Type == protocol.TypeDone {
			var done protocol.DoneMsg
			if err := json.Unmarshal(b, &done); err != nil {
				t.Fatalf("done: %v", err)
			}
			if done.RequestID != "r1" || done.Seed != 99 || done.Batches != seq {
				t.Fatalf("done=%+v after %d batches", done, seq)
			}
			if done.Stats.Commands != len(lines) {
				t.Fatalf("stats.commands=%d lines=%d", done.Stats.Commands, len(lines))
			}
			cmds, err := emit.Parse(strings.Join(lines, "\n"))
			if err != nil {
				t.Fatalf("parse streamed lines: %v", err)
			}
			if emit.Digest(cmds) != done.Digest {
				t.Fatalf("digest mismatch")
			}
			return
		}
		if base.Type != protocol.TypeCommands {
			t.Fatalf("unexpected %s", b)
		}
		var batch protocol.CommandsMsg
		if err := json.Unmarshal(b, &batch); err != nil {
			t.Fatalf("commands: %v", err)
		}
		if batch.Seq != seq || len(batch.Lines) == 0 || len(batch.Lines) > 10 {
			t.Fatalf("batch seq=%d lines=%d want seq %d", batch.Seq, len(batch.Lines), seq)
		}
		lines = append(lines, batch.Lines...)
	}
}

func TestWS_Errors(t *testing.T) {
	_, hs := newTestServer(t)
	conn := dial(t, hs)

	cases := []struct {
		msg  string
		code string
	}{
		{`{nope`, protocol.ErrProtoBadRequest},
		{`{"type":"HELLO","protocol_version":"1.0","request_id":"a"}`, protocol.ErrProtoBadRequest},
		{`{"type":"GENERATE","protocol_version":"0.1","request_id":"b"}`, protocol.ErrProtoVersion},
		{`{"type":"GENERATE","protocol_version":"1.0","request_id":"c","config":{"colour":"red"}}`, protocol.ErrBadRequest},
		{`{"type":"GENERATE","protocol_version":"1.0","request_id":"d","config":{"width":100000}}`, protocol.ErrBadRequest},
		{`{"type":"GENERATE","protocol_version":"1.0","request_id":"v","config":{"width":256,"height":256,"levels":64,"walk_size":16}}`, protocol.ErrInvalidConfig},
	}
	for _, tc := range cases {
		if err := conn.WriteMessage(websocket.TextMessage, []byte(tc.msg)); err != nil {
			t.Fatalf("write: %v", err)
		}
		base, b := readMsg(t, conn)
		if base.Type != protocol.TypeError {
			t.Fatalf("%s: got %s", tc.msg, b)
		}
		var e protocol.ErrorMsg
		_ = json.Unmarshal(b, &e)
		if e.Code != tc.code {
			t.Fatalf("%s: code=%s want %s", tc.msg, e.Code, tc.code)
		}
	}
}

func TestWS_BusyWhenNoSlots(t *testing.T) {
	s, hs := newTestServer(t)
	for i := 0; i < cap(s.slots); i++ {
		s.slots <- struct{}{}
	}
	conn := dial(t, hs)
	if err := conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"GENERATE","protocol_version":"1.0","request_id":"x"}`)); err != nil {
		t.Fatalf("write: %v", err)
	}
	_, b := readMsg(t, conn)
	var e protocol.ErrorMsg
	_ = json.Unmarshal(b, &e)
	if e.Code != protocol.ErrBusy || e.RequestID != "x" {
		t.Fatalf("got %s", b)
	}
}

func TestHTTP_Generate(t *testing.T) {
	_, hs := newTestServer(t)

	resp, err := http.Post(hs.URL+"/v1/generate", "application/json", strings.NewReader(`{"width":3,"height":1,"levels":1,"seed":5}`))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status=%d body=%s", resp.StatusCode, body)
	}
	if resp.Header.Get("X-Seed") != "5" || resp.Header.Get("X-Run-Id") == "" {
		t.Fatalf("headers=%v", resp.Header)
	}
	cmds, err := emit.Parse(string(body))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if emit.Digest(cmds) != resp.Header.Get("X-Digest") {
		t.Fatalf("digest header does not match body")
	}

	// Same seed, same output.
	resp2, err := http.Post(hs.URL+"/v1/generate", "application/json", strings.NewReader(`{"width":3,"height":1,"levels":1,"seed":5}`))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	resp2.Body.Close()
	if resp2.Header.Get("X-Digest") != resp.Header.Get("X-Digest") {
		t.Fatalf("same seed produced different output")
	}
}

func TestHTTP_GenerateErrors(t *testing.T) {
	_, hs := newTestServer(t)

	resp, err := http.Get(hs.URL + "/v1/generate")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Fatalf("GET status=%d", resp.StatusCode)
	}

	for body, want := range map[string]string{
		`{"width":"wide"}`:                        protocol.ErrBadRequest,
		`{"walk_size":17}`:                        protocol.ErrBadRequest,
		`{"holes_per_level":9223372036854775807}`: protocol.ErrBadRequest,
		`not json`:                                protocol.ErrBadRequest,

		`{"width":256,"height":256,"levels":64,"walk_size":16,"wall_size":16}`: protocol.ErrInvalidConfig,
	} {
		resp, err := http.Post(hs.URL+"/v1/generate", "application/json", strings.NewReader(body))
		if err != nil {
			t.Fatalf("post: %v", err)
		}
		var e protocol.ErrorMsg
		_ = json.NewDecoder(resp.Body).Decode(&e)
		resp.Body.Close()
		if resp.StatusCode != http.StatusBadRequest || e.Code != want {
			t.Fatalf("%s: status=%d code=%s want %s", body, resp.StatusCode, e.Code, want)
		}
	}
}

func TestHTTP_RunsWithoutIndex(t *testing.T) {
	_, hs := newTestServer(t)
	resp, err := http.Get(hs.URL + "/v1/runs")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("status=%d", resp.StatusCode)
	}
}

func TestIsLoopbackRemote(t *testing.T) {
	for addr, want := range map[string]bool{
		"127.0.0.1:1234": true,
		"[::1]:80":       true,
		"10.0.0.2:80":    false,
		"garbage":        false,
	} {
		if got := isLoopbackRemote(addr); got != want {
			t.Fatalf("%s: got %v", addr, got)
		}
	}
}
