package controller

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	interaction "go-parley/internal/pkg/interaction/domain"
	"go-parley/internal/pkg/interaction/gateway/port"
)

// writeError maps the gateway and domain error families onto HTTP statuses.
// Stale-state conflicts come back as 409 so clients can distinguish "refetch
// and retry" from plain bad requests.
func writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, interaction.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, port.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, port.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, interaction.ErrStaleState):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
