package db

import (
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/oggyb/muzz-match/internal/geo"
)

// SeedOptions controls the demo dataset.
type SeedOptions struct {
	Users    int
	Center   geo.Point
	SpreadKm float64
	Password string
}

// DefaultSeedOptions centers the demo users on Tbilisi.
func DefaultSeedOptions() SeedOptions {
	return SeedOptions{
		Users:    20,
		Center:   geo.Point{Lat: 41.7151, Lon: 44.8271},
		SpreadKm: 25,
		Password: "password",
	}
}

// SeedTestData resets the database and populates it with demo users,
// photos, likes and the matches those likes imply.
//
// Behavior:
//  1. Clears messages, matches, likes, photos and users.
//  2. Creates opts.Users users scattered within opts.SpreadKm of opts.Center.
//     Every 5th user has no location yet.
//  3. Gives each user 1-3 photos.
//  4. Generates likes, making every 3rd one mutual. Every pair that ends
//     up liked both ways gets a match row.
func SeedTestData(db *gorm.DB, opts SeedOptions, log *slog.Logger) ([]User, error) {
	r := rand.New(rand.NewSource(time.Now().UnixNano()))

	for _, table := range []string{"messages", "matches", "likes", "photos", "users"} {
		if err := db.Exec("DELETE FROM " + table).Error; err != nil {
			return nil, fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}

	switch db.Dialector.Name() {
	case "mysql":
		db.Exec("ALTER TABLE users AUTO_INCREMENT = 1")
		db.Exec("ALTER TABLE matches AUTO_INCREMENT = 1")
		db.Exec("ALTER TABLE messages AUTO_INCREMENT = 1")
	case "sqlite":
		db.Exec("DELETE FROM sqlite_sequence WHERE name IN ('users', 'matches', 'messages', 'photos')")
	}
	log.Info("cleared existing data")

	hash, err := bcrypt.GenerateFromPassword([]byte(opts.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	now := time.Now().UTC()
	users := make([]User, 0, opts.Users)
	for i := 1; i <= opts.Users; i++ {
		u := User{
			Username:       fmt.Sprintf("user%d", i),
			Email:          fmt.Sprintf("user%d@example.com", i),
			PasswordHash:   string(hash),
			Age:            20 + r.Intn(20),
			SearchRadiusKm: float64(10 + r.Intn(40)),
			MinAge:         18 + r.Intn(5),
			MaxAge:         30 + r.Intn(15),
		}
		if i%5 != 0 {
			p := geo.Destination(opts.Center, r.Float64()*opts.SpreadKm, r.Float64()*360)
			u.Lat, u.Lon = &p.Lat, &p.Lon
			u.LocationUpdatedAt = &now
		}
		if err := db.Create(&u).Error; err != nil {
			return nil, fmt.Errorf("failed to seed user: %w", err)
		}

		photos := 1 + r.Intn(3)
		for pos := 0; pos < photos; pos++ {
			photo := Photo{
				UserID:   u.ID,
				URL:      fmt.Sprintf("https://picsum.photos/seed/%d-%d/600/800", u.ID, pos),
				Position: pos,
			}
			if err := db.Create(&photo).Error; err != nil {
				return nil, fmt.Errorf("failed to seed photo: %w", err)
			}
		}
		users = append(users, u)
	}
	log.Info("seeded users", "count", len(users))

	counter := 0
	for _, actor := range users {
		for j := 0; j < 6; j++ {
			target := users[r.Intn(len(users))]
			if target.ID == actor.ID {
				continue
			}
			if err := seedLike(db, actor.ID, target.ID); err != nil {
				return nil, err
			}
			if counter%3 == 0 {
				if err := seedLike(db, target.ID, actor.ID); err != nil {
					return nil, err
				}
			}
			counter++
		}
	}
	log.Info("seeded likes", "count", counter)

	return users, nil
}

// seedLike inserts from->to and creates the match as soon as the reverse
// like exists, so random reciprocal likes are matched too.
func seedLike(db *gorm.DB, from, to uint64) error {
	if err := db.Clauses(clause.OnConflict{DoNothing: true}).
		Create(&Like{FromUserID: from, ToUserID: to}).Error; err != nil {
		return fmt.Errorf("failed to seed like: %w", err)
	}

	var reverse int64
	if err := db.Model(&Like{}).
		Where("from_user_id = ? AND to_user_id = ?", to, from).
		Count(&reverse).Error; err != nil {
		return fmt.Errorf("failed to check reverse like: %w", err)
	}
	if reverse == 0 {
		return nil
	}

	low, high := CanonicalPair(from, to)
	if err := db.Clauses(clause.OnConflict{DoNothing: true}).
		Create(&Match{UserLow: low, UserHigh: high}).Error; err != nil {
		return fmt.Errorf("failed to seed match: %w", err)
	}
	return nil
}
