package conversation

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/oggyb/muzz-match/internal/app"
	"github.com/oggyb/muzz-match/internal/db"
	svcErr "github.com/oggyb/muzz-match/internal/errors"
	"github.com/oggyb/muzz-match/internal/realtime"
	"github.com/oggyb/muzz-match/internal/repository"
)

// MaxBodyRunes caps the length of a message body.
const MaxBodyRunes = 4000

// Deliverer pushes stored messages and other events to connected users.
type Deliverer interface {
	Deliver(ctx context.Context, msg db.Message)
	Notify(ctx context.Context, userID uint64, ev realtime.Event)
}

// Service stores messages between matched users and hands each stored
// message to the realtime gateway.
type Service struct {
	appCtx   *app.AppContext
	matches  *repository.MatchRepository
	messages *repository.MessageRepository
	gateway  Deliverer
}

// NewConversationService creates the service with dependencies from AppContext.
func NewConversationService(appCtx *app.AppContext) *Service {
	s := &Service{
		appCtx:   appCtx,
		matches:  repository.NewMatchRepository(appCtx.DB),
		messages: repository.NewMessageRepository(appCtx.DB),
	}
	if appCtx.Gateway != nil {
		s.gateway = appCtx.Gateway
	}
	return s
}

func validatePair(userID, partnerID uint64) error {
	if userID == 0 || partnerID == 0 {
		return svcErr.InvalidArgument("user ids must be positive")
	}
	if userID == partnerID {
		return svcErr.InvalidArgument("cannot message yourself")
	}
	return nil
}

// Send stores a message from senderID to receiverID.
//
// Behavior:
//   - The body is trimmed; empty or longer than MaxBodyRunes is InvalidArgument.
//   - Without a match between the two users it is PermissionDenied and
//     nothing is written.
//   - The stored message is delivered to both users before Send returns.
//     Delivery problems never fail the send.
func (s *Service) Send(ctx context.Context, senderID, receiverID uint64, body string) (db.Message, error) {
	if err := validatePair(senderID, receiverID); err != nil {
		return db.Message{}, err
	}
	body = strings.TrimSpace(body)
	if body == "" {
		return db.Message{}, svcErr.InvalidArgument("message content is required")
	}
	if utf8.RuneCountInString(body) > MaxBodyRunes {
		return db.Message{}, svcErr.InvalidArgument("message content is too long")
	}

	match, found, err := s.matches.FindByPair(ctx, senderID, receiverID)
	if err != nil {
		return db.Message{}, err
	}
	if !found {
		s.appCtx.Logger.Debug("send rejected, no match", "sender", senderID, "receiver", receiverID)
		return db.Message{}, svcErr.PermissionDenied("you can only message your matches")
	}

	msg := db.Message{
		MatchID:    match.ID,
		SenderID:   senderID,
		ReceiverID: receiverID,
		Body:       body,
	}
	if err := s.messages.Create(ctx, &msg); err != nil {
		return db.Message{}, err
	}

	if s.gateway != nil {
		s.gateway.Deliver(ctx, msg)
	}
	return msg, nil
}

// ListMessages returns the conversation between userID and partnerID in
// chronological order. Both users see the same sequence; no match means
// no messages.
func (s *Service) ListMessages(ctx context.Context, userID, partnerID uint64) ([]db.Message, error) {
	if err := validatePair(userID, partnerID); err != nil {
		return nil, err
	}
	match, found, err := s.matches.FindByPair(ctx, userID, partnerID)
	if err != nil {
		return nil, err
	}
	if !found {
		return []db.Message{}, nil
	}
	return s.messages.ListByMatch(ctx, match.ID)
}

// MarkRead marks everything partnerID sent to userID as read and returns
// how many messages changed. Repeating it changes nothing. The partner is
// told when something was read.
func (s *Service) MarkRead(ctx context.Context, userID, partnerID uint64) (int64, error) {
	if err := validatePair(userID, partnerID); err != nil {
		return 0, err
	}
	n, err := s.messages.MarkRead(ctx, userID, partnerID)
	if err != nil {
		return 0, err
	}

	if n > 0 && s.gateway != nil {
		ev, err := realtime.NewEvent(realtime.EventRead, realtime.ReadPayload{ReaderID: userID, Count: n})
		if err != nil {
			s.appCtx.Logger.Error("encode read event", "err", err)
		} else {
			s.gateway.Notify(ctx, partnerID, ev)
		}
	}
	return n, nil
}

// UnreadCount is the number of unread messages partnerID sent to userID.
func (s *Service) UnreadCount(ctx context.Context, userID, partnerID uint64) (int64, error) {
	if err := validatePair(userID, partnerID); err != nil {
		return 0, err
	}
	return s.messages.CountUnread(ctx, userID, partnerID)
}
