package matching

import (
	"context"
	"errors"
	"sort"
	"time"

	"gorm.io/gorm"

	"github.com/oggyb/muzz-match/internal/app"
	"github.com/oggyb/muzz-match/internal/db"
	svcErr "github.com/oggyb/muzz-match/internal/errors"
	"github.com/oggyb/muzz-match/internal/repository"
)

// Partner is the public summary of the other side of a match.
type Partner struct {
	ID       uint64    `json:"id"`
	Username string    `json:"username"`
	Age      int       `json:"age"`
	Photo    *db.Photo `json:"photo,omitempty"`
}

// MatchSummary is one row of the caller's match list.
type MatchSummary struct {
	MatchID     uint64      `json:"matchId"`
	MatchedAt   time.Time   `json:"matchedAt"`
	Partner     Partner     `json:"partner"`
	LastMessage *db.Message `json:"lastMessage,omitempty"`
	UnreadCount int64       `json:"unreadCount"`
}

func (m MatchSummary) lastActivity() time.Time {
	if m.LastMessage != nil && m.LastMessage.CreatedAt.After(m.MatchedAt) {
		return m.LastMessage.CreatedAt
	}
	return m.MatchedAt
}

// Service is the matching API used by the HTTP handlers: likes, the
// received-like counter and the match list.
type Service struct {
	appCtx   *app.AppContext
	ledger   *Ledger
	resolver *Resolver
	likes    *repository.LikeRepository
	matches  *repository.MatchRepository
	users    *repository.UserRepository
	messages *repository.MessageRepository
}

// NewMatchingService creates the service with dependencies from AppContext.
func NewMatchingService(appCtx *app.AppContext) *Service {
	ledger := NewLedger(appCtx)
	return &Service{
		appCtx:   appCtx,
		ledger:   ledger,
		resolver: NewResolver(appCtx, ledger),
		likes:    repository.NewLikeRepository(appCtx.DB),
		matches:  repository.NewMatchRepository(appCtx.DB),
		users:    repository.NewUserRepository(appCtx.DB),
		messages: repository.NewMessageRepository(appCtx.DB),
	}
}

func (s *Service) Ledger() *Ledger     { return s.ledger }
func (s *Service) Resolver() *Resolver { return s.resolver }

// Like records that fromID likes toID and resolves a possible match.
// Unknown targets are NotFound.
func (s *Service) Like(ctx context.Context, fromID, toID uint64) (Resolution, error) {
	s.appCtx.Logger.Debug("Like called", "from", fromID, "to", toID)

	if fromID != toID && toID != 0 {
		if _, err := s.users.FindByID(ctx, toID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return Resolution{}, svcErr.NotFound("user not found")
			}
			return Resolution{}, err
		}
	}
	return s.resolver.TryResolve(ctx, fromID, toID)
}

// CountLikesReceived returns how many users liked userID.
// Cache-first strategy:
//  1. Reads likes:count:<id> from Redis.
//  2. On a miss falls back to the DB.
//  3. Fills the DB count with a 1h TTL unless a value appeared meanwhile.
func (s *Service) CountLikesReceived(ctx context.Context, userID uint64) (int64, error) {
	c := s.appCtx.RedisCache
	if c != nil {
		n, ok, err := c.GetLikeCount(ctx, userID)
		if err != nil {
			s.appCtx.Logger.Warn("like counter read failed", "user_id", userID, "err", err)
		}
		if ok {
			return n, nil
		}
	}

	count, err := s.likes.CountReceived(ctx, userID)
	if err != nil {
		return 0, err
	}

	if c != nil {
		if _, err := c.FillLikeCount(ctx, userID, count); err != nil {
			s.appCtx.Logger.Warn("like counter write failed", "user_id", userID, "err", err)
		}
	}
	return count, nil
}

// ListMatches returns every match of userID with the partner's summary,
// the latest message and the caller's unread count, most recent activity
// first.
func (s *Service) ListMatches(ctx context.Context, userID uint64) ([]MatchSummary, error) {
	matches, err := s.matches.ListForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	out := make([]MatchSummary, 0, len(matches))
	if len(matches) == 0 {
		return out, nil
	}

	matchIDs := make([]uint64, 0, len(matches))
	partnerIDs := make([]uint64, 0, len(matches))
	for _, m := range matches {
		partner, _ := m.Partner(userID)
		matchIDs = append(matchIDs, m.ID)
		partnerIDs = append(partnerIDs, partner)
	}

	partners, err := s.users.FindByIDs(ctx, partnerIDs)
	if err != nil {
		return nil, err
	}
	latest, err := s.messages.LatestByMatch(ctx, matchIDs)
	if err != nil {
		return nil, err
	}
	unread, err := s.messages.UnreadByMatch(ctx, userID, matchIDs)
	if err != nil {
		return nil, err
	}

	for i, m := range matches {
		summary := MatchSummary{
			MatchID:     m.ID,
			MatchedAt:   m.CreatedAt,
			Partner:     Partner{ID: partnerIDs[i]},
			UnreadCount: unread[m.ID],
		}
		if u, ok := partners[partnerIDs[i]]; ok {
			summary.Partner.Username = u.Username
			summary.Partner.Age = u.Age
			if len(u.Photos) > 0 {
				photo := u.Photos[0]
				summary.Partner.Photo = &photo
			}
		}
		if msg, ok := latest[m.ID]; ok {
			summary.LastMessage = &msg
		}
		out = append(out, summary)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].lastActivity().After(out[j].lastActivity())
	})
	return out, nil
}
