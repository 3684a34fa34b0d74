package controller

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"go-parley/internal/infrastructure/auth"
	interaction "go-parley/internal/pkg/interaction/domain"
	"go-parley/internal/pkg/interaction/gateway/port"
)

// CreateController handles the create/send endpoint.
type CreateController struct {
	gw port.Gateway
}

func NewCreateController(gw port.Gateway) *CreateController {
	return &CreateController{gw: gw}
}

type createRequest struct {
	Kind           string     `json:"kind" binding:"required"`
	CounterpartyID string     `json:"counterparty_id" binding:"required"`
	TargetID       *string    `json:"target_id"`
	Message        *string    `json:"message"`
	ExpiresAt      *time.Time `json:"expires_at"`
}

func (h *CreateController) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req createRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		created, err := h.gw.Create(c.Request.Context(), interaction.Interaction{
			Kind:           interaction.Kind(req.Kind),
			InitiatorID:    auth.ActorID(c),
			CounterpartyID: req.CounterpartyID,
			TargetID:       req.TargetID,
			Message:        req.Message,
			ExpiresAt:      req.ExpiresAt,
		})
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusCreated, created)
	}
}
