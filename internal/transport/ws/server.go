package ws

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"voxelmaze.ai/internal/emit"
	"voxelmaze.ai/internal/pipeline"
	"voxelmaze.ai/internal/protocol"
	"voxelmaze.ai/internal/tuning"
)

const DefaultBatchSize = 512

type Server struct {
	runner   *pipeline.Runner
	defaults tuning.Config
	log      *log.Logger

	upgrader  websocket.Upgrader
	batchSize int
	slots     chan struct{}
}

// NewServer serves generation requests. maxConcurrent bounds the runs in
// flight across all connections; extra requests get E_BUSY.
func NewServer(runner *pipeline.Runner, defaults tuning.Config, logger *log.Logger, maxConcurrent int) *Server {
	if maxConcurrent <= 0 {
		maxConcurrent = 4
	}
	return &Server{
		runner:   runner,
		defaults: defaults,
		log:      logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  16 * 1024,
			WriteBufferSize: 64 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true }, // dev default
		},
		batchSize: DefaultBatchSize,
		slots:     make(chan struct{}, maxConcurrent),
	}
}

// SetBatchSize changes the number of lines per COMMANDS message.
func (s *Server) SetBatchSize(n int) {
	if n > 0 {
		s.batchSize = n
	}
}

func (s *Server) Handler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		conn, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		out := make(chan []byte, 16)

		// Writer goroutine.
		done := make(chan struct{})
		go func() {
			defer close(done)
			for {
				select {
				case <-ctx.Done():
					return
				case b := <-out:
					_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
					if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
						cancel()
						return
					}
				}
			}
		}()

		// Reader loop. Requests on one connection run one after another.
		for ctx.Err() == nil {
			_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
			_, msg, err := conn.ReadMessage()
			if err != nil {
				break
			}
			s.serve(ctx, msg, out)
		}

		// Let queued replies drain before the close.
		for len(out) > 0 && ctx.Err() == nil {
			time.Sleep(5 * time.Millisecond)
		}
		cancel()
		<-done
	}
}

func (s *Server) serve(ctx context.Context, msg []byte, out chan<- []byte) {
	base, err := protocol.DecodeBase(msg)
	if err != nil {
		send(ctx, out, protocol.NewError("", protocol.ErrProtoBadRequest, "malformed json"))
		return
	}
	if base.Type != protocol.TypeGenerate {
		send(ctx, out, protocol.NewError(base.RequestID, protocol.ErrProtoBadRequest, "unexpected message type "+base.Type))
		return
	}
	if base.ProtocolVersion != protocol.Version {
		send(ctx, out, protocol.NewError(base.RequestID, protocol.ErrProtoVersion, "protocol_version must be "+protocol.Version))
		return
	}
	if err := protocol.Validate(protocol.SchemaGenerate, msg); err != nil {
		send(ctx, out, protocol.NewError(base.RequestID, protocol.ErrBadRequest, err.Error()))
		return
	}
	var req protocol.GenerateMsg
	if err := json.Unmarshal(msg, &req); err != nil {
		send(ctx, out, protocol.NewError(base.RequestID, protocol.ErrBadRequest, err.Error()))
		return
	}

	res, code, err := s.generate(ctx, req.Config, "ws")
	if err != nil {
		send(ctx, out, protocol.NewError(req.RequestID, code, err.Error()))
		return
	}

	batches := 0
	all := emit.Lines(res.Commands)
	for start := 0; start < len(all); start += s.batchSize {
		end := min(start+s.batchSize, len(all))
		if !send(ctx, out, protocol.CommandsMsg{
			Type:            protocol.TypeCommands,
			ProtocolVersion: protocol.Version,
			RequestID:       req.RequestID,
			Seq:             batches,
			Lines:           all[start:end],
		}) {
			return
		}
		batches++
	}
	send(ctx, out, protocol.DoneMsg{
		Type:            protocol.TypeDone,
		ProtocolVersion: protocol.Version,
		RequestID:       req.RequestID,
		RunID:           res.RunID,
		Seed:            res.Seed,
		Batches:         batches,
		Stats: protocol.DoneStats{
			Commands:    res.Stats.Commands,
			Ladders:     res.Stats.Ladders,
			WallMounts:  res.Stats.WallMounts,
			Fallbacks:   res.Stats.Fallbacks,
			Holes:       res.Stats.Holes,
			Unreachable: res.Stats.Unreachable,
		},
		Digest: res.Digest,
	})
}

// generate overlays raw on the defaults, takes a run slot and runs the
// pipeline. On failure it returns the wire code for the error.
func (s *Server) generate(ctx context.Context, raw json.RawMessage, source string) (*pipeline.Result, string, error) {
	cfg, err := protocol.GenerateMsg{Config: raw}.MazeConfig(s.defaults)
	if err != nil {
		return nil, protocol.CodeFor(err), err
	}
	select {
	case s.slots <- struct{}{}:
		defer func() { <-s.slots }()
	default:
		s.logf("%s: rejecting request, %d runs in flight", source, cap(s.slots))
		return nil, protocol.ErrBusy, errors.New("too many generations in flight")
	}
	res, err := s.runner.Generate(ctx, cfg, source)
	if err != nil {
		return nil, protocol.CodeFor(err), err
	}
	return res, "", nil
}

func send(ctx context.Context, out chan<- []byte, v any) bool {
	b, err := json.Marshal(v)
	if err != nil {
		return false
	}
	select {
	case out <- b:
		return true
	case <-ctx.Done():
		return false
	}
}

func (s *Server) logf(format string, args ...any) {
	if s.log != nil {
		s.log.Printf(format, args...)
	}
}
