package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"go-parley/internal/infrastructure/auth"
	interaction "go-parley/internal/pkg/interaction/domain"
	"go-parley/internal/pkg/interaction/gateway/port"
)

// VisibilityController handles batch hide/unhide for one side of the records.
type VisibilityController struct {
	gw port.Gateway
}

func NewVisibilityController(gw port.Gateway) *VisibilityController {
	return &VisibilityController{gw: gw}
}

type visibilityRequest struct {
	Kind   string   `json:"kind" binding:"required"`
	IDs    []string `json:"ids" binding:"required"`
	Role   string   `json:"role" binding:"required"`
	Hidden bool     `json:"hidden"`
}

func (h *VisibilityController) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req visibilityRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		kind := interaction.Kind(req.Kind)
		if !kind.Valid() {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unknown kind"})
			return
		}
		role := interaction.Role(req.Role)
		if role != interaction.RoleInitiator && role != interaction.RoleCounterparty {
			c.JSON(http.StatusBadRequest, gin.H{"error": "role must be initiator or counterparty"})
			return
		}

		err := h.gw.SetHidden(c.Request.Context(), auth.ActorID(c), kind, req.IDs, role, req.Hidden)
		if err != nil {
			writeError(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}
