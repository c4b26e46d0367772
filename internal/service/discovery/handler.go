package discovery

import (
	"net/http"

	"github.com/gin-gonic/gin"

	svcErr "github.com/oggyb/muzz-match/internal/errors"
	"github.com/oggyb/muzz-match/internal/server"
)

type locationRequest struct {
	Lat *float64 `json:"lat"`
	Lon *float64 `json:"lon"`
}

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// GET /discovery
func (h *Handler) Discover(c *gin.Context) {
	candidates, err := h.svc.FindCandidates(c.Request.Context(), server.CallerID(c))
	if err != nil {
		server.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"candidates": candidates})
}

// PUT /location {lat, lon}
func (h *Handler) UpdateLocation(c *gin.Context) {
	var req locationRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Lat == nil || req.Lon == nil {
		server.Fail(c, svcErr.InvalidArgument("lat and lon are required"))
		return
	}
	if err := h.svc.UpdateLocation(c.Request.Context(), server.CallerID(c), *req.Lat, *req.Lon); err != nil {
		server.Fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
