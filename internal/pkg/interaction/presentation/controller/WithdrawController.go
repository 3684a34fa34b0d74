package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"go-parley/internal/infrastructure/auth"
	"go-parley/internal/pkg/interaction/gateway/port"
)

// WithdrawController lets the initiator retire a record.
type WithdrawController struct {
	gw port.Gateway
}

func NewWithdrawController(gw port.Gateway) *WithdrawController {
	return &WithdrawController{gw: gw}
}

func (h *WithdrawController) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		rec, err := h.gw.Withdraw(c.Request.Context(), auth.ActorID(c), c.Param("id"))
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, rec)
	}
}

// ViewedController marks a pending record viewed on first read.
type ViewedController struct {
	gw port.Gateway
}

func NewViewedController(gw port.Gateway) *ViewedController {
	return &ViewedController{gw: gw}
}

func (h *ViewedController) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		rec, err := h.gw.MarkViewed(c.Request.Context(), auth.ActorID(c), c.Param("id"))
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, rec)
	}
}
