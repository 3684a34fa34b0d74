package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"go-parley/internal/infrastructure/auth"
	interaction "go-parley/internal/pkg/interaction/domain"
	"go-parley/internal/pkg/interaction/gateway/port"
)

// RespondController handles accept/reject decisions.
type RespondController struct {
	gw port.Gateway
}

func NewRespondController(gw port.Gateway) *RespondController {
	return &RespondController{gw: gw}
}

type respondRequest struct {
	Decision string  `json:"decision" binding:"required"`
	Note     *string `json:"note"`
}

func (h *RespondController) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req respondRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		decision := interaction.Status(req.Decision)
		if decision != interaction.StatusAccepted && decision != interaction.StatusRejected {
			c.JSON(http.StatusBadRequest, gin.H{"error": "decision must be accepted or rejected"})
			return
		}

		rec, err := h.gw.Respond(c.Request.Context(), auth.ActorID(c), c.Param("id"), decision, req.Note)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, rec)
	}
}
