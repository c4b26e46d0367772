package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/oggyb/muzz-match/internal/db"
)

// MatchRepository stores undirected matches under their canonical pair.
type MatchRepository struct {
	db *gorm.DB
}

func NewMatchRepository(database *gorm.DB) *MatchRepository {
	return &MatchRepository{db: database}
}

// Create inserts the match for {a, b} unless one exists.
//
// Behavior:
//   - The pair is canonicalized, so Create(a, b) and Create(b, a) hit the
//     same unique key.
//   - When two resolvers race, the unique index admits exactly one row; the
//     loser sees AlreadyExists and gets the winner's row back.
func (r *MatchRepository) Create(ctx context.Context, a, b uint64) (db.Match, InsertOutcome, error) {
	low, high := db.CanonicalPair(a, b)
	match := db.Match{UserLow: low, UserHigh: high}

	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_low"}, {Name: "user_high"}},
			DoNothing: true,
		}).
		Create(&match)

	outcome, err := outcomeOf(res)
	if err != nil {
		return db.Match{}, 0, fmt.Errorf("insert match: %w", err)
	}
	if outcome == Inserted {
		return match, Inserted, nil
	}

	existing, found, err := r.FindByPair(ctx, a, b)
	if err != nil {
		return db.Match{}, 0, err
	}
	if !found {
		return db.Match{}, 0, fmt.Errorf("match %d-%d rejected as duplicate but not found", low, high)
	}
	return existing, AlreadyExists, nil
}

// FindByPair looks a match up regardless of argument order.
func (r *MatchRepository) FindByPair(ctx context.Context, a, b uint64) (db.Match, bool, error) {
	low, high := db.CanonicalPair(a, b)

	var match db.Match
	err := r.db.WithContext(ctx).
		Where("user_low = ? AND user_high = ?", low, high).
		Take(&match).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return db.Match{}, false, nil
	}
	if err != nil {
		return db.Match{}, false, fmt.Errorf("find match: %w", err)
	}
	return match, true, nil
}

// ListForUser returns every match userID takes part in, newest first.
func (r *MatchRepository) ListForUser(ctx context.Context, userID uint64) ([]db.Match, error) {
	var matches []db.Match
	err := r.db.WithContext(ctx).
		Where("user_low = ? OR user_high = ?", userID, userID).
		Order("created_at DESC, id DESC").
		Find(&matches).Error
	if err != nil {
		return nil, fmt.Errorf("list matches: %w", err)
	}
	return matches, nil
}
