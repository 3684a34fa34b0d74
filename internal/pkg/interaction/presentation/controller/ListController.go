package controller

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"go-parley/internal/infrastructure/auth"
	interaction "go-parley/internal/pkg/interaction/domain"
	"go-parley/internal/pkg/interaction/gateway/port"
)

// ListController serves one {kind, perspective} listing for the actor.
type ListController struct {
	gw port.Gateway
}

func NewListController(gw port.Gateway) *ListController {
	return &ListController{gw: gw}
}

func (h *ListController) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		kind := interaction.Kind(c.Query("kind"))
		if !kind.Valid() {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unknown kind"})
			return
		}
		perspective := interaction.Perspective(c.Query("perspective"))
		if !perspective.Valid() {
			c.JSON(http.StatusBadRequest, gin.H{"error": "perspective must be sent or received"})
			return
		}
		includeHidden, _ := strconv.ParseBool(c.DefaultQuery("include_hidden", "false"))

		records, err := h.gw.ListByPerspective(c.Request.Context(), auth.ActorID(c), kind, perspective, includeHidden)
		if err != nil {
			writeError(c, err)
			return
		}
		if records == nil {
			records = []interaction.Interaction{}
		}
		c.JSON(http.StatusOK, records)
	}
}
