package api

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/p-n-ai/pai-reader/internal/agent"
	"github.com/p-n-ai/pai-reader/internal/quiz"
)

const streamWriteTimeout = 10 * time.Second

// handleStream pushes a SessionView on connect and after every applied
// transition. A slow reader only ever receives the latest snapshot.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	entry, ok := s.lookup(w, r)
	if !ok {
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: s.originPatterns(),
	})
	if err != nil {
		slog.Error("failed to accept websocket", "error", err, "session_id", entry.ID)
		return
	}
	defer func() { _ = conn.CloseNow() }()

	slog.Info("session stream connected", "session_id", entry.ID)

	// The stream is server to client only; CloseRead handles control frames
	// and cancels ctx when the client goes away.
	ctx := conn.CloseRead(r.Context())

	updates := make(chan quiz.Snapshot, 1)
	unsubscribe := entry.Session.Subscribe(func(c quiz.Change) {
		offerLatest(updates, c.Snapshot)
	})
	defer unsubscribe()

	initial := entry.Session.Snapshot()
	if err := writeView(ctx, conn, entry, initial); err != nil {
		return
	}
	sent := initial.Version

	for {
		select {
		case <-ctx.Done():
			slog.Info("session stream closed", "session_id", entry.ID)
			_ = conn.Close(websocket.StatusNormalClosure, "")
			return
		case snap := <-updates:
			if snap.Version <= sent {
				continue
			}
			if err := writeView(ctx, conn, entry, snap); err != nil {
				slog.Debug("session stream write failed", "error", err, "session_id", entry.ID)
				return
			}
			sent = snap.Version
		}
	}
}

func writeView(ctx context.Context, conn *websocket.Conn, entry *agent.Entry, snap quiz.Snapshot) error {
	ctx, cancel := context.WithTimeout(ctx, streamWriteTimeout)
	defer cancel()
	return wsjson.Write(ctx, conn, viewOf(entry, snap))
}

// offerLatest replaces any undelivered snapshot with snap.
func offerLatest(ch chan quiz.Snapshot, snap quiz.Snapshot) {
	for {
		select {
		case ch <- snap:
			return
		default:
		}
		select {
		case old := <-ch:
			if old.Version > snap.Version {
				snap = old
			}
		default:
		}
	}
}

// originPatterns converts CORS origins to the host patterns the websocket
// handshake checks.
func (s *Server) originPatterns() []string {
	patterns := make([]string, 0, len(s.origins))
	for _, o := range s.origins {
		if u, err := url.Parse(o); err == nil && u.Host != "" {
			patterns = append(patterns, u.Host)
			continue
		}
		patterns = append(patterns, o)
	}
	return patterns
}
