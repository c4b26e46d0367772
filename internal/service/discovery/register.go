package discovery

import (
	"github.com/gin-gonic/gin"

	"github.com/oggyb/muzz-match/internal/app"
)

// Registrar ties the discovery service into the HTTP router
type Registrar struct {
	appCtx *app.AppContext
}

func NewRegistrar(appCtx *app.AppContext) *Registrar {
	return &Registrar{appCtx: appCtx}
}

func (r *Registrar) RegisterRoutes(g gin.IRouter) {
	h := NewHandler(NewDiscoveryService(r.appCtx))
	g.GET("/discovery", h.Discover)
	g.PUT("/location", h.UpdateLocation)
}
