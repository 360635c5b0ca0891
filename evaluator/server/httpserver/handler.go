package httpserver

import (
	"bytes"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gridprotocol/computing-evaluator/evaluator/model"
	"github.com/gridprotocol/computing-evaluator/evaluator/registry"
	"github.com/gridprotocol/computing-evaluator/lib/auth"
	"golang.org/x/xerrors"
)

const maxAdminBody = 1 << 20

func (hc *handlerCore) handlerHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"msg": "ok"})
}

// handlerRewards serves the latest round; the round digest doubles as
// the ETag.
func (hc *handlerCore) handlerRewards(c *gin.Context) {
	round, err := hc.be.LatestRound()
	if xerrors.Is(err, registry.ErrNoRound) {
		c.JSON(http.StatusNotFound, gin.H{"err": err.Error()})
		return
	}
	if err != nil {
		logger.Error("latest round: ", err)
		c.JSON(http.StatusInternalServerError, gin.H{"err": "failed to load round"})
		return
	}

	etag := `"` + round.Digest + `"`
	if c.GetHeader("If-None-Match") == etag {
		c.Status(http.StatusNotModified)
		return
	}
	c.Header("ETag", etag)
	c.JSON(http.StatusOK, round)
}

func (hc *handlerCore) handlerListPeers(c *gin.Context) {
	peers, err := hc.be.Peers(c.Request.Context())
	if err != nil {
		logger.Error("list peers: ", err)
		c.JSON(http.StatusInternalServerError, gin.H{"err": "failed to list peers"})
		return
	}
	if peers == nil {
		peers = []model.Peer{}
	}
	c.JSON(http.StatusOK, peers)
}

func (hc *handlerCore) handlerGetPeer(c *gin.Context) {
	p, err := hc.be.Peer(c.Param("address"))
	if err != nil {
		c.JSON(statusOf(err), gin.H{"err": err.Error()})
		return
	}
	c.JSON(http.StatusOK, p)
}

func (hc *handlerCore) handlerAddPeer(c *gin.Context) {
	var p model.Peer
	if err := c.ShouldBindJSON(&p); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"err": "invalid peer: " + err.Error()})
		return
	}
	added, err := hc.be.AddPeer(p)
	if err != nil {
		c.JSON(statusOf(err), gin.H{"err": err.Error()})
		return
	}
	logger.Info("peer added: ", added.Address)
	c.JSON(http.StatusOK, added)
}

func (hc *handlerCore) handlerRemovePeer(c *gin.Context) {
	addr := c.Param("address")
	if err := hc.be.RemovePeer(addr); err != nil {
		c.JSON(statusOf(err), gin.H{"err": err.Error()})
		return
	}
	logger.Info("peer removed: ", addr)
	c.JSON(http.StatusOK, gin.H{"msg": "[ACK] removed"})
}

// adminOnly checks the HMAC headers signed with the admin secret. The
// body is buffered so the handler can still bind it.
func (hc *handlerCore) adminOnly() gin.HandlerFunc {
	return func(c *gin.Context) {
		var body []byte
		if c.Request.Body != nil {
			b, err := io.ReadAll(io.LimitReader(c.Request.Body, maxAdminBody))
			if err != nil {
				c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"err": err.Error()})
				return
			}
			body = b
			c.Request.Body = io.NopCloser(bytes.NewReader(body))
		}

		err := auth.VerifyRequest(hc.secret,
			c.Request.Method,
			c.Request.URL.Path,
			c.GetHeader(auth.HeaderTimestamp),
			c.GetHeader(auth.HeaderSignature),
			body,
			hc.now().Unix(),
			auth.DefaultWindow,
		)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"err": err.Error()})
			return
		}
		c.Next()
	}
}

func statusOf(err error) int {
	switch {
	case xerrors.Is(err, registry.ErrInvalidAddress), xerrors.Is(err, registry.ErrInvalidEndpoint):
		return http.StatusBadRequest
	case xerrors.Is(err, registry.ErrPeerNotFound):
		return http.StatusNotFound
	}
	logger.Error(err)
	return http.StatusInternalServerError
}
