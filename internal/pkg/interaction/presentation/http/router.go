package http

import (
	"go-parley/internal/infrastructure/auth"
	"go-parley/internal/infrastructure/realtime"
	"go-parley/internal/pkg/interaction/gateway/port"
	"go-parley/internal/pkg/interaction/presentation/controller"

	"github.com/gin-gonic/gin"
)

// RegisterRoutes registers interaction HTTP endpoints under the given router
// group. It constructs per-endpoint controllers and binds them directly to
// routes. Every endpoint requires a valid bearer token.
func RegisterRoutes(g *gin.RouterGroup, gw port.Gateway, hub *realtime.Hub, authn *auth.Authenticator) {
	listCtl := controller.NewListController(gw)
	createCtl := controller.NewCreateController(gw)
	respondCtl := controller.NewRespondController(gw)
	withdrawCtl := controller.NewWithdrawController(gw)
	viewedCtl := controller.NewViewedController(gw)
	visibilityCtl := controller.NewVisibilityController(gw)
	threadCtl := controller.NewThreadController(gw)
	feedCtl := controller.NewFeedController(hub)

	r := g.Group("/interactions", authn.Middleware())

	// GET /api/v1/interactions?kind=&perspective=&include_hidden=
	r.GET("", listCtl.Handle())

	// POST /api/v1/interactions -> create a new record
	r.POST("", createCtl.Handle())

	// POST /api/v1/interactions/:id/respond -> accept or reject
	r.POST("/:id/respond", respondCtl.Handle())

	// POST /api/v1/interactions/:id/withdraw -> initiator retracts
	r.POST("/:id/withdraw", withdrawCtl.Handle())

	// POST /api/v1/interactions/:id/viewed -> counterparty marks seen
	r.POST("/:id/viewed", viewedCtl.Handle())

	// PUT /api/v1/interactions/visibility -> batch hide or unhide
	r.PUT("/visibility", visibilityCtl.Handle())

	// POST /api/v1/interactions/:id/questions -> append a question
	r.POST("/:id/questions", threadCtl.HandleAsk())

	// POST /api/v1/interactions/:id/answers -> answer a question
	r.POST("/:id/answers", threadCtl.HandleAnswer())

	// GET /api/v1/interactions/feed -> websocket change feed
	r.GET("/feed", feedCtl.Handle())
}
