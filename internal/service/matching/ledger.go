package matching

import (
	"context"
	"log/slog"

	"github.com/oggyb/muzz-match/internal/app"
	"github.com/oggyb/muzz-match/internal/cache"
	"github.com/oggyb/muzz-match/internal/db"
	svcErr "github.com/oggyb/muzz-match/internal/errors"
	"github.com/oggyb/muzz-match/internal/repository"
)

// LikeOutcome is the stored like edge and whether this call created it.
type LikeOutcome struct {
	Like    db.Like
	Outcome repository.InsertOutcome
}

// Ledger records directed likes. It never decides reciprocity.
type Ledger struct {
	likes *repository.LikeRepository
	cache *cache.RedisCache
	log   *slog.Logger
}

func NewLedger(appCtx *app.AppContext) *Ledger {
	return &Ledger{
		likes: repository.NewLikeRepository(appCtx.DB),
		cache: appCtx.RedisCache,
		log:   appCtx.Logger,
	}
}

// RecordLike stores the edge fromID -> toID if absent.
//
// Behavior:
//   - Self-likes and zero ids are InvalidArgument.
//   - A repeated like is not an error: the existing edge comes back with
//     repository.AlreadyExists.
//   - A new edge bumps the recipient's cached received-like counter.
func (l *Ledger) RecordLike(ctx context.Context, fromID, toID uint64) (LikeOutcome, error) {
	if fromID == 0 || toID == 0 {
		return LikeOutcome{}, svcErr.InvalidArgument("user ids must be positive")
	}
	if fromID == toID {
		return LikeOutcome{}, svcErr.InvalidArgument("cannot like yourself")
	}

	like, outcome, err := l.likes.Insert(ctx, fromID, toID)
	if err != nil {
		return LikeOutcome{}, err
	}

	if outcome == repository.Inserted && l.cache != nil {
		if err := l.cache.IncrLikeCount(ctx, toID); err != nil {
			l.log.Warn("like counter not updated", "user_id", toID, "err", err)
		}
	}

	l.log.Debug("like recorded", "from", fromID, "to", toID, "outcome", outcome.String())
	return LikeOutcome{Like: like, Outcome: outcome}, nil
}
