package gateway

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/citeassist/engine/internal/retrieval"
)

// defaultRateLimit is spec.md §6's websocket_rate_limit default (req/min).
const defaultRateLimit = 60

// Gateway is the C9 Session Gateway: mounts the baseline and enhanced
// suggestion-stream endpoints on a gin router.
type Gateway struct {
	Engine  engine
	Logger  logger
	hub     *hub
	limiter *RateLimiter

	upgrader websocket.Upgrader
}

// New builds a Gateway whose limiter allows rateLimit requests per user per
// sliding 60s window, using the default of 60 when rateLimit <= 0.
// corsOrigins configures the upgrader's CheckOrigin (empty means allow any
// origin, matching a local-dev default).
func New(eng engine, log logger, rateLimit int, corsOrigins []string) *Gateway {
	if rateLimit <= 0 {
		rateLimit = defaultRateLimit
	}
	allowed := make(map[string]struct{}, len(corsOrigins))
	for _, o := range corsOrigins {
		allowed[o] = struct{}{}
	}

	return &Gateway{
		Engine:  eng,
		Logger:  log,
		hub:     newHub(),
		limiter: NewRateLimiter(60*time.Second, rateLimit),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				if len(allowed) == 0 {
					return true
				}
				_, ok := allowed[r.Header.Get("Origin")]
				return ok
			},
		},
	}
}

// RegisterRoutes mounts the baseline and enhanced endpoints on r.
func (g *Gateway) RegisterRoutes(r *gin.Engine) {
	r.GET("/ws/citations", g.handleBaseline)
	r.GET("/ws/citations/v2", g.handleEnhanced)
}

func (g *Gateway) handleBaseline(c *gin.Context) {
	userID := c.Query("user_id")
	opts := sessionOptions{UseEnhanced: false, UseReranking: false, Strategy: retrieval.StrategyHybrid}
	g.serve(c, userID, opts)
}

func (g *Gateway) handleEnhanced(c *gin.Context) {
	userID := c.Query("user_id")

	opts := defaultSessionOptions()
	if v := c.Query("use_enhanced"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			opts.UseEnhanced = b
		}
	}
	if v := c.Query("use_reranking"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			opts.UseReranking = b
		}
	}
	if v := c.Query("search_strategy"); v != "" {
		switch retrieval.Strategy(v) {
		case retrieval.StrategyVector, retrieval.StrategyBM25, retrieval.StrategyHybrid:
			opts.Strategy = retrieval.Strategy(v)
		}
	}

	g.serve(c, userID, opts)
}

// serve upgrades the connection and runs the session loop until the client
// disconnects, then performs spec.md §4.9's cleanup. A missing user_id
// closes the connection immediately with a policy-violation close code.
func (g *Gateway) serve(c *gin.Context, userID string, opts sessionOptions) {
	conn, err := g.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		g.Logger.Error("websocket upgrade failed", "user_id", userID, "error", err)
		return
	}

	if userID == "" {
		closeMsg := websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "user_id is required")
		_ = conn.WriteControl(websocket.CloseMessage, closeMsg, time.Now().Add(writeTimeout))
		_ = conn.Close()
		return
	}

	s := newSession(userID, conn, opts, g.Engine, g.Logger)
	g.hub.add(s)
	defer func() {
		g.hub.remove(s)
		g.limiter.Forget(userID)
		s.close()
	}()

	s.run(g.limiter)
}

// ActiveSessions reports the number of currently connected users, exposed
// for health/metrics surfaces.
func (g *Gateway) ActiveSessions() int {
	return g.hub.count()
}
