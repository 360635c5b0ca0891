package httpserver

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/gridprotocol/computing-evaluator/evaluator/model"
	"github.com/gridprotocol/computing-evaluator/lib/logc"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var logger = logc.Logger("http")

// Backend is what the status api reads and edits.
type Backend interface {
	AddPeer(p model.Peer) (model.Peer, error)
	RemovePeer(addr string) error
	Peer(addr string) (model.Peer, error)
	Peers(ctx context.Context) ([]model.Peer, error)
	LatestRound() (*model.Round, error)
}

type handlerCore struct {
	be     Backend
	secret []byte
	now    func() time.Time
}

// NewServer builds the status api. Peer management routes are only
// registered when adminSecret is set.
func NewServer(addr string, be Backend, adminSecret string) *http.Server {
	logger.Info("Start server")
	gin.SetMode(gin.ReleaseMode)
	route := registerAllRoute(be, adminSecret)
	server := &http.Server{
		Addr:              addr,
		Handler:           route,
		ReadHeaderTimeout: 10 * time.Second,
	}
	logger.Info("Set route ok")
	return server
}

func registerAllRoute(be Backend, adminSecret string) *gin.Engine {
	route := gin.New()
	route.Use(gin.Recovery(), accessLog())
	route.Use(cors.New(cors.Config{
		AllowAllOrigins: true,
		AllowMethods:    []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowHeaders:    []string{"Origin", "Content-Type", "If-None-Match", "X-Admin-Signature", "X-Admin-Timestamp"},
		ExposeHeaders:   []string{"Content-Length", "ETag"},
		MaxAge:          12 * time.Hour,
	}))

	hc := &handlerCore{
		be:     be,
		secret: []byte(adminSecret),
		now:    time.Now,
	}

	route.GET("/healthz", hc.handlerHealth)
	route.GET("/metrics", gin.WrapH(promhttp.Handler()))
	route.GET("/rewards", hc.handlerRewards)
	route.GET("/peers", hc.handlerListPeers)
	route.GET("/peers/:address", hc.handlerGetPeer)

	if adminSecret != "" {
		admin := route.Group("/", hc.adminOnly())
		admin.POST("/peers", hc.handlerAddPeer)
		admin.DELETE("/peers/:address", hc.handlerRemovePeer)
	}
	return route
}

func accessLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Debugw("request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"took", time.Since(start).String(),
		)
	}
}
