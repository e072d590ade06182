package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// HealthResponse is the liveness body.
type HealthResponse struct {
	Status string `json:"status" example:"ok"`
}

// Health godoc
// @ID          health
// @Summary     Liveness and store check
// @Description Returns ok when the process is up and the message store answers a ping.
// @Tags        System
// @Produce     json
// @Success     200  {object}  handlers.HealthResponse
// @Failure     503  {object}  handlers.ErrorResponse  "Store unavailable"
// @Router      /health [get]
func (h *Handlers) Health(c *gin.Context) {
	if h.ping != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := h.ping(ctx); err != nil {
			fail(c, http.StatusServiceUnavailable, ErrCodeUnavailable, "message store unavailable")
			return
		}
	}
	ok(c, http.StatusOK, HealthResponse{Status: "ok"})
}
