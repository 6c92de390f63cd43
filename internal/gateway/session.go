package gateway

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/citeassist/engine/internal/domain"
	"github.com/citeassist/engine/internal/retrieval"
	"github.com/citeassist/engine/internal/textctx"
)

const minSuggestTextLength = 10

// writeTimeout bounds a single outbound frame write so one stalled client
// can't block the session's goroutine indefinitely.
const writeTimeout = 10 * time.Second

// engine is the subset of *retrieval.Engine a session calls.
type engine interface {
	GetSuggestions(ctx context.Context, text string, tc *domain.TextContext, userID string) ([]domain.Suggestion, error)
	GetSuggestionsEnhanced(ctx context.Context, text string, tc *domain.TextContext, userID string, opts retrieval.Options) ([]domain.Suggestion, error)
}

// sessionOptions are the per-connection settings carried by the enhanced
// endpoint's query parameters, per spec.md §4.9/§6.
type sessionOptions struct {
	UseEnhanced  bool
	UseReranking bool
	Strategy     retrieval.Strategy
}

func defaultSessionOptions() sessionOptions {
	return sessionOptions{UseEnhanced: true, UseReranking: true, Strategy: retrieval.StrategyHybrid}
}

// session is one connected user's state: its websocket, its merged
// preferences, and a cancellable root context for in-flight retrievals.
type session struct {
	userID string
	conn   *websocket.Conn
	opts   sessionOptions
	engine engine
	logger logger

	writeMu sync.Mutex

	mu          sync.Mutex
	preferences map[string]interface{}

	ctx    context.Context
	cancel context.CancelFunc
}

type logger interface {
	Error(msg string, kv ...interface{})
}

func newSession(userID string, conn *websocket.Conn, opts sessionOptions, eng engine, log logger) *session {
	ctx, cancel := context.WithCancel(context.Background())
	return &session{
		userID:      userID,
		conn:        conn,
		opts:        opts,
		engine:      eng,
		logger:      log,
		preferences: make(map[string]interface{}),
		ctx:         ctx,
		cancel:      cancel,
	}
}

// run reads messages until the connection closes or the session is
// cancelled, dispatching each to its handler. Blocking; call in its own
// goroutine.
func (s *session) run(limiter *RateLimiter) {
	defer s.cancel()
	for {
		_, raw, err := s.conn.ReadMessage()
		if err != nil {
			return
		}

		var msg inbound
		if err := json.Unmarshal(raw, &msg); err != nil {
			s.sendError("malformed message")
			continue
		}

		switch msg.Type {
		case inboundPing:
			s.send(pongMessage{Type: "pong"})

		case inboundUpdatePreferences:
			s.mu.Lock()
			for k, v := range msg.Preferences {
				s.preferences[k] = v
			}
			prefsCopy := make(map[string]interface{}, len(s.preferences))
			for k, v := range s.preferences {
				prefsCopy[k] = v
			}
			s.mu.Unlock()
			s.send(preferencesUpdatedMessage{Type: "preferences_updated", Preferences: prefsCopy})

		case inboundSuggest:
			if !limiter.Allow(s.userID) {
				s.sendError("Rate limit exceeded, please slow down")
				continue
			}
			s.handleSuggest(msg)

		default:
			// Unknown message types are silently ignored per spec.md §4.9's
			// closed message taxonomy — only the three inbound types are
			// defined.
		}
	}
}

func (s *session) handleSuggest(msg inbound) {
	text := strings.TrimSpace(msg.Text)
	if len(text) < minSuggestTextLength {
		return
	}

	snap := textctx.Snapshot{}
	if msg.Context != nil {
		snap.CursorOffset = msg.Context.CursorOffset
		snap.Section = msg.Context.Section
	}
	tc := textctx.Analyze(msg.Text, snap)

	var (
		results []domain.Suggestion
		err     error
	)
	if s.opts.UseEnhanced {
		opts := retrieval.DefaultOptions()
		opts.UseReranking = s.opts.UseReranking
		opts.Strategy = s.opts.Strategy
		results, err = s.engine.GetSuggestionsEnhanced(s.ctx, text, &tc, s.userID, opts)
	} else {
		results, err = s.engine.GetSuggestions(s.ctx, text, &tc, s.userID)
	}
	if err != nil {
		if s.ctx.Err() != nil {
			// Session was cancelled (disconnect) while the retrieval was
			// in flight; nothing to report back to a closed connection.
			return
		}
		s.logger.Error("retrieval failed", "user_id", s.userID, "error", err)
		s.sendError("suggestion retrieval failed, please retry")
		return
	}

	s.send(suggestionsMessage{
		Type:           "suggestions",
		SearchStrategy: string(s.opts.Strategy),
		UsedReranking:  s.opts.UseReranking,
		Results:        results,
	})
}

func (s *session) sendError(message string) {
	s.send(errorMessage{Type: "error", Message: message})
}

func (s *session) send(v interface{}) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	_ = s.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	raw, err := json.Marshal(v)
	if err != nil {
		s.logger.Error("failed to marshal outbound message", "error", err)
		return
	}
	_ = s.conn.WriteMessage(websocket.TextMessage, raw)
}

// close cancels any in-flight retrieval and closes the underlying
// connection, per spec.md §4.9 Cleanup's "abort in-flight retrievals for
// this session where cancellable".
func (s *session) close() {
	s.cancel()
	_ = s.conn.Close()
}
