package matching

import (
	"github.com/gin-gonic/gin"

	"github.com/oggyb/muzz-match/internal/app"
)

// Registrar ties the matching service into the HTTP router
type Registrar struct {
	appCtx *app.AppContext
}

// NewRegistrar creates a new Registrar for the matching service
func NewRegistrar(appCtx *app.AppContext) *Registrar {
	return &Registrar{appCtx: appCtx}
}

// RegisterRoutes attaches the matching endpoints to the router group
func (r *Registrar) RegisterRoutes(g gin.IRouter) {
	h := NewHandler(NewMatchingService(r.appCtx))
	g.POST("/like", h.Like)
	g.GET("/likes/count", h.CountLikes)
	g.GET("/matches", h.ListMatches)
}
