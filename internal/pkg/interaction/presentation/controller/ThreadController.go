package controller

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"go-parley/internal/infrastructure/auth"
	"go-parley/internal/pkg/interaction/gateway/port"
)

// ThreadController handles the invitation Q&A endpoints.
type ThreadController struct {
	gw port.Gateway
}

func NewThreadController(gw port.Gateway) *ThreadController {
	return &ThreadController{gw: gw}
}

type askRequest struct {
	Question string `json:"question" binding:"required"`
}

func (h *ThreadController) HandleAsk() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req askRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		rec, err := h.gw.Ask(c.Request.Context(), auth.ActorID(c), c.Param("id"), req.Question)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, rec)
	}
}

type answerRequest struct {
	AskedAt time.Time `json:"asked_at" binding:"required"`
	Answer  string    `json:"answer" binding:"required"`
}

func (h *ThreadController) HandleAnswer() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req answerRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		rec, err := h.gw.Answer(c.Request.Context(), auth.ActorID(c), c.Param("id"), req.AskedAt, req.Answer)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, rec)
	}
}
