package discovery

import (
	"context"
	"errors"
	"sort"
	"time"

	"gorm.io/gorm"

	"github.com/oggyb/muzz-match/internal/app"
	"github.com/oggyb/muzz-match/internal/db"
	svcErr "github.com/oggyb/muzz-match/internal/errors"
	"github.com/oggyb/muzz-match/internal/geo"
	"github.com/oggyb/muzz-match/internal/repository"
)

// PageSize caps the number of candidates returned per request.
const PageSize = 30

// Candidate is a user the seeker may like.
type Candidate struct {
	ID         uint64     `json:"id"`
	Username   string     `json:"username"`
	Age        int        `json:"age"`
	DistanceKm float64    `json:"distanceKm"`
	Photos     []db.Photo `json:"photos"`
}

// Service answers "who is near me and in my age range".
type Service struct {
	appCtx *app.AppContext
	users  *repository.UserRepository
	now    func() time.Time
}

func NewDiscoveryService(appCtx *app.AppContext) *Service {
	return &Service{
		appCtx: appCtx,
		users:  repository.NewUserRepository(appCtx.DB),
		now:    time.Now,
	}
}

func (s *Service) seeker(ctx context.Context, id uint64) (db.User, error) {
	u, err := s.users.FindByID(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return db.User{}, svcErr.NotFound("user not found")
	}
	return u, err
}

// FindCandidates lists users within the seeker's search radius and age
// window that the seeker has not liked yet, nearest first (ties by id),
// at most PageSize of them.
//
// Behavior:
//   - A seeker without a location gets an empty list.
//   - The database narrows rows to a bounding box; the haversine distance
//     makes the exact cut.
func (s *Service) FindCandidates(ctx context.Context, seekerID uint64) ([]Candidate, error) {
	seeker, err := s.seeker(ctx, seekerID)
	if err != nil {
		return nil, err
	}
	out := []Candidate{}
	if !seeker.HasLocation() {
		s.appCtx.Logger.Debug("seeker has no location", "user_id", seekerID)
		return out, nil
	}

	center := geo.Point{Lat: *seeker.Lat, Lon: *seeker.Lon}
	box := geo.BoundingBox(center, seeker.SearchRadiusKm)
	rows, err := s.users.FindCandidates(ctx, seeker, box)
	if err != nil {
		return nil, err
	}

	for _, u := range rows {
		d := geo.DistanceKm(center, geo.Point{Lat: *u.Lat, Lon: *u.Lon})
		if d > seeker.SearchRadiusKm {
			continue
		}
		photos := u.Photos
		if photos == nil {
			photos = []db.Photo{}
		}
		out = append(out, Candidate{
			ID:         u.ID,
			Username:   u.Username,
			Age:        u.Age,
			DistanceKm: d,
			Photos:     photos,
		})
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].DistanceKm != out[j].DistanceKm {
			return out[i].DistanceKm < out[j].DistanceKm
		}
		return out[i].ID < out[j].ID
	})
	if len(out) > PageSize {
		out = out[:PageSize]
	}

	s.appCtx.Logger.Debug("candidates found", "user_id", seekerID, "prefiltered", len(rows), "returned", len(out))
	return out, nil
}

// UpdateLocation stores the user's reported position.
func (s *Service) UpdateLocation(ctx context.Context, userID uint64, lat, lon float64) error {
	p := geo.Point{Lat: lat, Lon: lon}
	if !p.Valid() {
		return svcErr.InvalidArgument("lat must be within [-90, 90] and lon within [-180, 180]")
	}
	err := s.users.UpdateLocation(ctx, userID, p, s.now().UTC())
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return svcErr.NotFound("user not found")
	}
	return err
}
