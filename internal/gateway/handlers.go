package gateway

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"matchengine/internal/engine"
)

// Handlers holds the HTTP handler dependencies: the core engine they
// front, nothing else.
type Handlers struct {
	eng *engine.MatchingEngine
}

// NewHandlers builds a Handlers fronting eng.
func NewHandlers(eng *engine.MatchingEngine) *Handlers {
	return &Handlers{eng: eng}
}

// HandleHealth is a liveness probe independent of any symbol's lock.
func (h *Handlers) HandleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// HandleSubmit parses, converts, and forwards an order submission to
// the core. Parsing and shape validation happen here exactly once; the
// engine's own validate() is a defensive second check on business
// invariants only.
func (h *Handlers) HandleSubmit(c *gin.Context) {
	var req orderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	o, err := req.toOrder()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result := h.eng.Submit(o)
	log.Debug().
		Str("symbol", req.Symbol).
		Str("status", result.Status.String()).
		Int("trades", len(result.Trades)).
		Msg("order submitted")

	c.JSON(http.StatusOK, toSubmissionResponse(result))
}

// HandleCancel forwards a cancellation by order id.
func (h *Handlers) HandleCancel(c *gin.Context) {
	symbol := c.Param("symbol")
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid order id"})
		return
	}

	result := h.eng.Cancel(symbol, id)
	c.JSON(http.StatusOK, toCancelResponse(result))
}

// HandleSnapshot returns the top depth levels for a symbol.
func (h *Handlers) HandleSnapshot(c *gin.Context) {
	symbol := c.Param("symbol")
	depth := 10
	if raw := c.Query("depth"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid depth"})
			return
		}
		depth = n
	}

	snap := h.eng.Snapshot(symbol, depth)
	c.JSON(http.StatusOK, toDepthResponse(snap))
}

// HandleBBO returns the best bid/offer for a symbol.
func (h *Handlers) HandleBBO(c *gin.Context) {
	symbol := c.Param("symbol")
	bbo := h.eng.BBO(symbol)
	c.JSON(http.StatusOK, toBboResponse(bbo))
}
