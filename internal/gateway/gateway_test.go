package gateway

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"github.com/citeassist/engine/internal/domain"
	"github.com/citeassist/engine/internal/retrieval"
)

type fakeEngine struct {
	suggestions []domain.Suggestion
}

func (f *fakeEngine) GetSuggestions(ctx context.Context, text string, tc *domain.TextContext, userID string) ([]domain.Suggestion, error) {
	return f.suggestions, nil
}

func (f *fakeEngine) GetSuggestionsEnhanced(ctx context.Context, text string, tc *domain.TextContext, userID string, opts retrieval.Options) ([]domain.Suggestion, error) {
	return f.suggestions, nil
}

type nopLogger struct{}

func (nopLogger) Error(string, ...interface{}) {}

func newTestServer(t *testing.T, eng engine) (*httptest.Server, *Gateway) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	gw := New(eng, nopLogger{}, 60, nil)
	gw.RegisterRoutes(r)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv, gw
}

func wsURL(srv *httptest.Server, path string) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http") + path
}

func TestGateway_BaselineSuggestFlow(t *testing.T) {
	eng := &fakeEngine{suggestions: []domain.Suggestion{{PaperID: "p1", Confidence: 0.9}}}
	srv, gw := newTestServer(t, eng)

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(srv, "/ws/citations?user_id=u1"), nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return gw.ActiveSessions() == 1 }, time.Second, 10*time.Millisecond)

	require.NoError(t, conn.WriteJSON(map[string]string{"type": "suggest", "text": "a sufficiently long sentence about attention"}))

	var resp suggestionsMessage
	require.NoError(t, conn.ReadJSON(&resp))
	require.Equal(t, "suggestions", resp.Type)
	require.Len(t, resp.Results, 1)
	require.Equal(t, "p1", resp.Results[0].PaperID)
}

func TestGateway_PingPong(t *testing.T) {
	eng := &fakeEngine{}
	srv, _ := newTestServer(t, eng)

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(srv, "/ws/citations?user_id=u1"), nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.WriteJSON(map[string]string{"type": "ping"}))
	var resp pongMessage
	require.NoError(t, conn.ReadJSON(&resp))
	require.Equal(t, "pong", resp.Type)
}

func TestGateway_UpdatePreferences(t *testing.T) {
	eng := &fakeEngine{}
	srv, _ := newTestServer(t, eng)

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(srv, "/ws/citations?user_id=u1"), nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.WriteJSON(map[string]interface{}{
		"type":        "update_preferences",
		"preferences": map[string]interface{}{"citation_style": "apa"},
	}))

	var resp preferencesUpdatedMessage
	require.NoError(t, conn.ReadJSON(&resp))
	require.Equal(t, "preferences_updated", resp.Type)
	require.Equal(t, "apa", resp.Preferences["citation_style"])
}

func TestGateway_ShortTextIsSilentlyDropped(t *testing.T) {
	eng := &fakeEngine{suggestions: []domain.Suggestion{{PaperID: "p1"}}}
	srv, _ := newTestServer(t, eng)

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(srv, "/ws/citations?user_id=u1"), nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.WriteJSON(map[string]string{"type": "suggest", "text": "short"}))
	// Follow with a ping; if "suggest" had produced a response it would
	// arrive first, before the pong.
	require.NoError(t, conn.WriteJSON(map[string]string{"type": "ping"}))

	var resp pongMessage
	require.NoError(t, conn.ReadJSON(&resp))
	require.Equal(t, "pong", resp.Type)
}

func TestGateway_MissingUserIDClosesWithPolicyViolation(t *testing.T) {
	eng := &fakeEngine{}
	srv, _ := newTestServer(t, eng)

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(srv, "/ws/citations"), nil)
	require.NoError(t, err)
	defer conn.Close()

	_, _, err = conn.ReadMessage()
	closeErr, ok := err.(*websocket.CloseError)
	require.True(t, ok, "expected a close error, got %v", err)
	require.Equal(t, websocket.ClosePolicyViolation, closeErr.Code)
}

func TestGateway_RateLimitExceeded(t *testing.T) {
	eng := &fakeEngine{suggestions: []domain.Suggestion{{PaperID: "p1"}}}
	gin.SetMode(gin.TestMode)
	r := gin.New()
	gw := New(eng, nopLogger{}, 1, nil)
	gw.RegisterRoutes(r)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(srv, "/ws/citations?user_id=u1"), nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.WriteJSON(map[string]string{"type": "suggest", "text": "first request about attention"}))
	var first suggestionsMessage
	require.NoError(t, conn.ReadJSON(&first))

	require.NoError(t, conn.WriteJSON(map[string]string{"type": "suggest", "text": "second request about attention"}))
	var errMsg errorMessage
	require.NoError(t, conn.ReadJSON(&errMsg))
	require.Equal(t, "error", errMsg.Type)
}

func TestGateway_EnhancedStrategySelection(t *testing.T) {
	var captured retrieval.Options
	eng := &capturingEngine{onEnhanced: func(opts retrieval.Options) { captured = opts }}
	srv, _ := newTestServer(t, eng)

	url := wsURL(srv, "/ws/citations/v2?user_id=u1&search_strategy=vector&use_reranking=false")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.WriteJSON(map[string]string{"type": "suggest", "text": "attention mechanisms in transformers"}))
	var resp suggestionsMessage
	require.NoError(t, conn.ReadJSON(&resp))

	require.Equal(t, retrieval.StrategyVector, captured.Strategy)
	require.False(t, captured.UseReranking)
}

type capturingEngine struct {
	onEnhanced func(retrieval.Options)
}

func (c *capturingEngine) GetSuggestions(ctx context.Context, text string, tc *domain.TextContext, userID string) ([]domain.Suggestion, error) {
	return nil, nil
}

func (c *capturingEngine) GetSuggestionsEnhanced(ctx context.Context, text string, tc *domain.TextContext, userID string, opts retrieval.Options) ([]domain.Suggestion, error) {
	c.onEnhanced(opts)
	return []domain.Suggestion{}, nil
}
