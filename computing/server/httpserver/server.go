// Package httpserver answers evaluator probes with a signed inventory
// record.
package httpserver

import (
	"context"
	"crypto/ed25519"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/gridprotocol/computing-evaluator/common/protocol"
	"github.com/gridprotocol/computing-evaluator/lib/logc"
)

var logger = logc.Logger("http")

// Collector produces the inventory reported to evaluators.
type Collector interface {
	Collect(ctx context.Context) (*protocol.Report, error)
}

type handlerCore struct {
	col Collector
	sk  ed25519.PrivateKey
	now func() time.Time
}

func NewServer(addr string, col Collector, sk ed25519.PrivateKey) *http.Server {
	logger.Info("Start server")
	gin.SetMode(gin.ReleaseMode)
	route := registerAllRoute(col, sk)
	server := &http.Server{
		Addr:              addr,
		Handler:           route,
		ReadHeaderTimeout: 10 * time.Second,
	}
	logger.Info("Set route ok")
	return server
}

func registerAllRoute(col Collector, sk ed25519.PrivateKey) *gin.Engine {
	route := gin.New()
	route.Use(gin.Recovery())
	route.Use(cors.Default())

	hc := &handlerCore{col: col, sk: sk, now: time.Now}
	route.POST(protocol.DefaultPath, hc.handlerProbe)
	route.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"msg": "ok"})
	})
	return route
}
