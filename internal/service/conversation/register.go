package conversation

import (
	"github.com/gin-gonic/gin"

	"github.com/oggyb/muzz-match/internal/app"
)

// Registrar ties the conversation service into the HTTP router
type Registrar struct {
	appCtx *app.AppContext
}

func NewRegistrar(appCtx *app.AppContext) *Registrar {
	return &Registrar{appCtx: appCtx}
}

func (r *Registrar) RegisterRoutes(g gin.IRouter) {
	h := NewHandler(NewConversationService(r.appCtx))
	g.GET("/messages/:partnerId", h.ListMessages)
	g.POST("/messages/send", h.Send)
	g.PUT("/messages/read/:partnerId", h.MarkRead)
}
