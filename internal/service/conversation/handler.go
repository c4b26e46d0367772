package conversation

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"

	svcErr "github.com/oggyb/muzz-match/internal/errors"
	"github.com/oggyb/muzz-match/internal/realtime"
	"github.com/oggyb/muzz-match/internal/server"
)

type sendRequest struct {
	ReceiverID json.RawMessage `json:"receiverId"`
	Content    string          `json:"content"`
}

// Handler exposes the conversation service over HTTP. The sender and
// reader are always the authenticated caller.
type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// GET /messages/:partnerId
func (h *Handler) ListMessages(c *gin.Context) {
	partnerID, err := server.PathID(c, "partnerId")
	if err != nil {
		server.Fail(c, err)
		return
	}
	msgs, err := h.svc.ListMessages(c.Request.Context(), server.CallerID(c), partnerID)
	if err != nil {
		server.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": msgs})
}

// POST /messages/send {receiverId, content}
func (h *Handler) Send(c *gin.Context) {
	var req sendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		server.Fail(c, svcErr.InvalidArgument("invalid request body"))
		return
	}
	receiverID, err := realtime.ParseUserID(req.ReceiverID)
	if err != nil {
		server.Fail(c, svcErr.InvalidArgument("receiverId must be a positive integer"))
		return
	}

	msg, err := h.svc.Send(c.Request.Context(), server.CallerID(c), receiverID, req.Content)
	if err != nil {
		server.Fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, msg)
}

// PUT /messages/read/:partnerId
func (h *Handler) MarkRead(c *gin.Context) {
	partnerID, err := server.PathID(c, "partnerId")
	if err != nil {
		server.Fail(c, err)
		return
	}
	n, err := h.svc.MarkRead(c.Request.Context(), server.CallerID(c), partnerID)
	if err != nil {
		server.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"updated": n})
}
