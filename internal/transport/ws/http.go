package ws

import (
	"encoding/json"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"

	"voxelmaze.ai/internal/persistence/indexdb"
	"voxelmaze.ai/internal/protocol"
)

const maxConfigBody = 64 * 1024

// GenerateHandler serves POST /v1/generate. The body is an optional JSON
// config object; the response is the plain text command stream.
func (s *Server) GenerateHandler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			rw.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		body, err := io.ReadAll(io.LimitReader(r.Body, maxConfigBody+1))
		if err != nil {
			writeError(rw, http.StatusBadRequest, protocol.NewError("", protocol.ErrBadRequest, err.Error()))
			return
		}
		if len(body) > maxConfigBody {
			writeError(rw, http.StatusRequestEntityTooLarge, protocol.NewError("", protocol.ErrBadRequest, "config too large"))
			return
		}
		raw := json.RawMessage(strings.TrimSpace(string(body)))
		if len(raw) > 0 {
			// Reuse the GENERATE schema for the bare config object.
			wrapped, _ := json.Marshal(protocol.GenerateMsg{
				Type:            protocol.TypeGenerate,
				ProtocolVersion: protocol.Version,
				RequestID:       "http",
				Config:          raw,
			})
			if err := protocol.Validate(protocol.SchemaGenerate, wrapped); err != nil {
				writeError(rw, http.StatusBadRequest, protocol.NewError("", protocol.ErrBadRequest, err.Error()))
				return
			}
		}

		res, code, err := s.generate(r.Context(), raw, "http")
		if err != nil {
			writeError(rw, statusFor(code), protocol.NewError("", code, err.Error()))
			return
		}
		rw.Header().Set("Content-Type", "text/plain; charset=utf-8")
		rw.Header().Set("X-Run-Id", res.RunID)
		rw.Header().Set("X-Seed", strconv.FormatInt(res.Seed, 10))
		rw.Header().Set("X-Digest", res.Digest)
		_, _ = io.WriteString(rw, res.Text()+"\n")
	}
}

// RunsHandler serves GET /v1/runs from the run index. Loopback only.
func RunsHandler(idx *indexdb.SQLiteIndex) http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			rw.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		if !isLoopbackRemote(r.RemoteAddr) {
			http.Error(rw, "forbidden", http.StatusForbidden)
			return
		}
		if idx == nil {
			http.Error(rw, "index disabled", http.StatusServiceUnavailable)
			return
		}
		limit := 50
		if v := r.URL.Query().Get("limit"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n <= 0 || n > 1000 {
				http.Error(rw, "bad limit", http.StatusBadRequest)
				return
			}
			limit = n
		}
		rows, err := idx.RecentRuns(r.Context(), limit)
		if err != nil {
			http.Error(rw, err.Error(), http.StatusInternalServerError)
			return
		}
		if rows == nil {
			rows = []indexdb.RunRow{}
		}
		rw.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(rw).Encode(map[string]any{"runs": rows})
	}
}

func statusFor(code string) int {
	switch code {
	case protocol.ErrInvalidConfig, protocol.ErrBadRequest:
		return http.StatusBadRequest
	case protocol.ErrBusy:
		return http.StatusTooManyRequests
	case protocol.ErrCancelled:
		return http.StatusRequestTimeout
	default:
		return http.StatusInternalServerError
	}
}

func writeError(rw http.ResponseWriter, status int, e protocol.ErrorMsg) {
	rw.Header().Set("Content-Type", "application/json")
	rw.WriteHeader(status)
	_ = json.NewEncoder(rw).Encode(e)
}

func isLoopbackRemote(remoteAddr string) bool {
	host := remoteAddr
	if h, _, err := net.SplitHostPort(remoteAddr); err == nil {
		host = h
	}
	host = strings.TrimPrefix(host, "[")
	host = strings.TrimSuffix(host, "]")
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
