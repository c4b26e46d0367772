package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/oggyb/muzz-match/internal/db"
)

// LikeRepository provides data access for directed like edges.
type LikeRepository struct {
	db *gorm.DB
}

// NewLikeRepository creates a new repository bound to the given DB connection.
func NewLikeRepository(database *gorm.DB) *LikeRepository {
	return &LikeRepository{db: database}
}

// Insert records from -> to if it is not recorded yet.
//
// Behavior:
//   - First call for the pair writes the row and reports Inserted.
//   - Any later (or concurrent) call reports AlreadyExists and returns the
//     stored edge, with its first CreatedAt.
//   - The composite primary key is the only guard; no lock is taken.
//
// Example:
//
//	like, outcome, err := repo.Insert(ctx, 1, 2) // user 1 liked user 2
func (r *LikeRepository) Insert(ctx context.Context, fromID, toID uint64) (db.Like, InsertOutcome, error) {
	like := db.Like{FromUserID: fromID, ToUserID: toID}

	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "from_user_id"}, {Name: "to_user_id"}},
			DoNothing: true,
		}).
		Create(&like)

	outcome, err := outcomeOf(res)
	if err != nil {
		return db.Like{}, 0, fmt.Errorf("insert like: %w", err)
	}
	if outcome == Inserted {
		return like, Inserted, nil
	}

	var existing db.Like
	if err := r.db.WithContext(ctx).
		Where("from_user_id = ? AND to_user_id = ?", fromID, toID).
		Take(&existing).Error; err != nil {
		return db.Like{}, 0, fmt.Errorf("load existing like: %w", err)
	}
	return existing, AlreadyExists, nil
}

// Exists checks whether fromID has liked toID.
//
// Used by the match resolver for the reverse-edge lookup.
func (r *LikeRepository) Exists(ctx context.Context, fromID, toID uint64) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&db.Like{}).
		Where("from_user_id = ? AND to_user_id = ?", fromID, toID).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("check like: %w", err)
	}
	return count > 0, nil
}

// CountReceived returns how many users liked toID.
//
// Used in conjunction with Redis cache (DB is fallback).
func (r *LikeRepository) CountReceived(ctx context.Context, toID uint64) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&db.Like{}).
		Where("to_user_id = ?", toID).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("count likes: %w", err)
	}
	return count, nil
}
