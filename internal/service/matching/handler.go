package matching

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"

	svcErr "github.com/oggyb/muzz-match/internal/errors"
	"github.com/oggyb/muzz-match/internal/realtime"
	"github.com/oggyb/muzz-match/internal/server"
)

type likeRequest struct {
	// number or numeric string
	TargetUserID json.RawMessage `json:"targetUserId"`
}

type likeResponse struct {
	IsMatch    bool    `json:"isMatch"`
	IsNewMatch bool    `json:"isNewMatch"`
	MatchID    *uint64 `json:"matchId,omitempty"`
}

// Handler exposes the matching service over HTTP.
type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// POST /like {targetUserId}
func (h *Handler) Like(c *gin.Context) {
	var req likeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		server.Fail(c, svcErr.InvalidArgument("invalid request body"))
		return
	}
	targetID, err := realtime.ParseUserID(req.TargetUserID)
	if err != nil {
		server.Fail(c, svcErr.InvalidArgument("targetUserId must be a positive integer"))
		return
	}

	res, err := h.svc.Like(c.Request.Context(), server.CallerID(c), targetID)
	if err != nil {
		server.Fail(c, err)
		return
	}

	resp := likeResponse{IsMatch: res.Matched, IsNewMatch: res.IsNewMatch}
	if res.Matched {
		resp.MatchID = &res.MatchID
	}
	c.JSON(http.StatusOK, resp)
}

// GET /likes/count
func (h *Handler) CountLikes(c *gin.Context) {
	n, err := h.svc.CountLikesReceived(c.Request.Context(), server.CallerID(c))
	if err != nil {
		server.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": n})
}

// GET /matches
func (h *Handler) ListMatches(c *gin.Context) {
	matches, err := h.svc.ListMatches(c.Request.Context(), server.CallerID(c))
	if err != nil {
		server.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"matches": matches})
}
