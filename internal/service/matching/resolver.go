package matching

import (
	"context"
	"log/slog"

	"github.com/oggyb/muzz-match/internal/app"
	"github.com/oggyb/muzz-match/internal/db"
	"github.com/oggyb/muzz-match/internal/realtime"
	"github.com/oggyb/muzz-match/internal/repository"
)

// Notifier pushes an event to every connection of a user.
type Notifier interface {
	Notify(ctx context.Context, userID uint64, ev realtime.Event)
}

// Resolution reports what a like did to the pair.
// IsNewMatch is true for exactly one resolution per pair, ever.
type Resolution struct {
	Matched    bool
	IsNewMatch bool
	MatchID    uint64
}

// Resolver turns reciprocal likes into matches. It holds no locks: the
// unique index on the canonical pair decides which concurrent caller
// creates the match.
type Resolver struct {
	ledger   *Ledger
	likes    *repository.LikeRepository
	matches  *repository.MatchRepository
	notifier Notifier
	log      *slog.Logger
}

func NewResolver(appCtx *app.AppContext, ledger *Ledger) *Resolver {
	r := &Resolver{
		ledger:  ledger,
		likes:   repository.NewLikeRepository(appCtx.DB),
		matches: repository.NewMatchRepository(appCtx.DB),
		log:     appCtx.Logger,
	}
	if appCtx.Gateway != nil {
		r.notifier = appCtx.Gateway
	}
	return r
}

// TryResolve records fromID's like of toID and creates the match when
// toID already likes fromID back.
//
// Example:
//
//	res, _ := r.TryResolve(ctx, 1, 2) // {Matched: false}
//	res, _ = r.TryResolve(ctx, 2, 1)  // {Matched: true, IsNewMatch: true}
//	res, _ = r.TryResolve(ctx, 1, 2)  // {Matched: true, IsNewMatch: false}
func (r *Resolver) TryResolve(ctx context.Context, fromID, toID uint64) (Resolution, error) {
	if _, err := r.ledger.RecordLike(ctx, fromID, toID); err != nil {
		return Resolution{}, err
	}

	reciprocal, err := r.likes.Exists(ctx, toID, fromID)
	if err != nil {
		return Resolution{}, err
	}
	if !reciprocal {
		return Resolution{}, nil
	}

	match, outcome, err := r.matches.Create(ctx, fromID, toID)
	if err != nil {
		return Resolution{}, err
	}

	res := Resolution{
		Matched:    true,
		IsNewMatch: outcome == repository.Inserted,
		MatchID:    match.ID,
	}
	if res.IsNewMatch {
		r.log.Info("new match", "match_id", match.ID, "user_low", match.UserLow, "user_high", match.UserHigh)
		r.announce(ctx, match)
	}
	return res, nil
}

func (r *Resolver) announce(ctx context.Context, match db.Match) {
	if r.notifier == nil {
		return
	}
	for _, userID := range []uint64{match.UserLow, match.UserHigh} {
		partner, _ := match.Partner(userID)
		ev, err := realtime.NewEvent(realtime.EventMatch, realtime.MatchPayload{MatchID: match.ID, PartnerID: partner})
		if err != nil {
			r.log.Error("encode match event", "match_id", match.ID, "err", err)
			return
		}
		r.notifier.Notify(ctx, userID, ev)
	}
}
