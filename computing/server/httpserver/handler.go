package httpserver

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gridprotocol/computing-evaluator/common/protocol"
	"github.com/gridprotocol/computing-evaluator/lib/attest"
)

// handlerProbe echoes the nonce with the current inventory and a fresh
// timestamp, all covered by the signature.
func (hc *handlerCore) handlerProbe(c *gin.Context) {
	var req protocol.ProbeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": false, "msg": "invalid probe"})
		return
	}
	if req.Method != protocol.MethodConfig {
		c.JSON(http.StatusBadRequest, gin.H{"status": false, "msg": "unsupported method " + req.Method})
		return
	}
	if req.Params.Nonce == "" {
		c.JSON(http.StatusBadRequest, gin.H{"status": false, "msg": "empty nonce"})
		return
	}

	rep, err := hc.col.Collect(c.Request.Context())
	if err != nil {
		logger.Error("collect: ", err)
		c.JSON(http.StatusInternalServerError, gin.H{"status": false, "msg": "failed to collect inventory"})
		return
	}

	rec, err := protocol.NewRecord(req.Params.Nonce, hc.now().UnixMilli(), rep)
	if err != nil {
		logger.Error("build record: ", err)
		c.JSON(http.StatusInternalServerError, gin.H{"status": false, "msg": "failed to build response"})
		return
	}
	if err := attest.SignRecord(rec, hc.sk); err != nil {
		logger.Error("sign: ", err)
		c.JSON(http.StatusInternalServerError, gin.H{"status": false, "msg": "failed to sign response"})
		return
	}

	logger.Debugf("probe from %s answered", c.ClientIP())
	c.JSON(http.StatusOK, &protocol.RawResponse{Status: true, Data: rec})
}
