package repository

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/oggyb/muzz-match/internal/db"
	"github.com/oggyb/muzz-match/internal/geo"
)

// UserRepository reads users (and their photos) for discovery and match
// listings. It never edits profile fields.
type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(database *gorm.DB) *UserRepository {
	return &UserRepository{db: database}
}

func photosByPosition(tx *gorm.DB) *gorm.DB {
	return tx.Order("position ASC, id ASC")
}

// FindByID loads one user without photos. gorm.ErrRecordNotFound is
// returned (wrapped) for unknown ids.
func (r *UserRepository) FindByID(ctx context.Context, id uint64) (db.User, error) {
	var u db.User
	if err := r.db.WithContext(ctx).Take(&u, id).Error; err != nil {
		return db.User{}, fmt.Errorf("find user %d: %w", id, err)
	}
	return u, nil
}

// FindByIDs loads users with their photos ordered by position.
func (r *UserRepository) FindByIDs(ctx context.Context, ids []uint64) (map[uint64]db.User, error) {
	out := make(map[uint64]db.User, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	var users []db.User
	err := r.db.WithContext(ctx).
		Preload("Photos", photosByPosition).
		Where("id IN ?", ids).
		Find(&users).Error
	if err != nil {
		return nil, fmt.Errorf("find users: %w", err)
	}
	for _, u := range users {
		out[u.ID] = u
	}
	return out, nil
}

// FindCandidates pre-filters discovery candidates for seeker in SQL:
//   - has a location inside box,
//   - age within the seeker's window,
//   - not the seeker,
//   - not already liked by the seeker.
//
// The box over-approximates the search circle; the exact distance cut is
// left to the caller.
func (r *UserRepository) FindCandidates(ctx context.Context, seeker db.User, box geo.Box) ([]db.User, error) {
	q := r.db.WithContext(ctx).
		Model(&db.User{}).
		Preload("Photos", photosByPosition).
		Where("users.id <> ?", seeker.ID).
		Where("users.lat IS NOT NULL AND users.lon IS NOT NULL").
		Where("users.age BETWEEN ? AND ?", seeker.MinAge, seeker.MaxAge).
		Where("users.lat BETWEEN ? AND ?", box.MinLat, box.MaxLat).
		Where(`
			NOT EXISTS (
				SELECT 1 FROM likes l
				WHERE l.from_user_id = ?
				  AND l.to_user_id = users.id
			)`, seeker.ID)

	if box.WrapsLon() {
		q = q.Where("(users.lon >= ? OR users.lon <= ?)", box.MinLon, box.MaxLon)
	} else {
		q = q.Where("users.lon BETWEEN ? AND ?", box.MinLon, box.MaxLon)
	}

	var users []db.User
	if err := q.Find(&users).Error; err != nil {
		return nil, fmt.Errorf("find candidates: %w", err)
	}
	return users, nil
}

// UpdateLocation stores a reported position. Existence is checked up front
// because an unchanged row may report zero affected rows.
func (r *UserRepository) UpdateLocation(ctx context.Context, id uint64, p geo.Point, at time.Time) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var user db.User
		if err := tx.Select("id").Take(&user, id).Error; err != nil {
			return fmt.Errorf("update location for user %d: %w", id, err)
		}
		err := tx.Model(&db.User{}).
			Where("id = ?", id).
			Updates(map[string]any{"lat": p.Lat, "lon": p.Lon, "location_updated_at": at}).Error
		if err != nil {
			return fmt.Errorf("update location: %w", err)
		}
		return nil
	})
}
