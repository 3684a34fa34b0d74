package v1

import (
	"go-parley/internal/infrastructure/auth"
	"go-parley/internal/infrastructure/realtime"
	"go-parley/internal/pkg/interaction/gateway/port"
	httpHandler "go-parley/internal/pkg/interaction/presentation/http"

	"github.com/gin-gonic/gin"
)

// RegisterRoutes mounts all version 1 API routes under /api/v1
func RegisterRoutes(r *gin.Engine, gw port.Gateway, hub *realtime.Hub, authn *auth.Authenticator) {
	v1 := r.Group("/api/v1")
	// Pass the gateway and feed hub down to the HTTP layer
	httpHandler.RegisterRoutes(v1, gw, hub, authn)
}
