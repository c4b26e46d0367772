package discovery_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/oggyb/muzz-match/internal/app/apptest"
	"github.com/oggyb/muzz-match/internal/db"
	"github.com/oggyb/muzz-match/internal/geo"
	"github.com/oggyb/muzz-match/internal/identity"
	"github.com/oggyb/muzz-match/internal/server"
	"github.com/oggyb/muzz-match/internal/service/discovery"
)

func init() {
	gin.SetMode(gin.TestMode)
}

var tbilisi = geo.Point{Lat: 41.7, Lon: 44.8}

type person struct {
	id  uint64
	age int
	at  *geo.Point
}

func at(km, bearing float64) *geo.Point {
	p := geo.Destination(tbilisi, km, bearing)
	return &p
}

func insert(t *testing.T, env *apptest.Env, people ...person) {
	t.Helper()
	for _, p := range people {
		u := db.User{
			ID:             p.id,
			Username:       fmt.Sprintf("user%d", p.id),
			Email:          fmt.Sprintf("user%d@test.com", p.id),
			PasswordHash:   "x",
			Age:            p.age,
			SearchRadiusKm: 10,
			MinAge:         20,
			MaxAge:         30,
		}
		if p.at != nil {
			lat, lon := p.at.Lat, p.at.Lon
			u.Lat, u.Lon = &lat, &lon
		}
		require.NoError(t, env.AppCtx.DB.Create(&u).Error)
	}
}

func ids(cs []discovery.Candidate) []uint64 {
	out := make([]uint64, 0, len(cs))
	for _, c := range cs {
		out = append(out, c.ID)
	}
	return out
}

// TestFindCandidatesExample: seeker at (41.7, 44.8), radius 10 km, ages
// 20-30. Only the near, unliked, in-range users come back, nearest first.
func TestFindCandidatesExample(t *testing.T) {
	ctx := context.Background()
	env := apptest.New(t)
	insert(t, env,
		person{id: 1, age: 27, at: &tbilisi}, // seeker
		person{id: 2, age: 25, at: at(8, 0)},
		person{id: 3, age: 25, at: at(15, 90)}, // too far
		person{id: 4, age: 25, at: at(2, 180)}, // liked already
		person{id: 5, age: 35, at: at(1, 270)}, // too old
		person{id: 8, age: 29, at: at(3, 45)},
		person{id: 7, age: 24},                // no location
		person{id: 6, age: 22, at: at(3, 45)}, // ties with 8
	)
	require.NoError(t, env.AppCtx.DB.Create(&db.Like{FromUserID: 1, ToUserID: 4}).Error)
	// a like in the other direction does not hide anyone
	require.NoError(t, env.AppCtx.DB.Create(&db.Like{FromUserID: 2, ToUserID: 1}).Error)
	require.NoError(t, env.AppCtx.DB.Create(&db.Photo{UserID: 2, URL: "b", Position: 2}).Error)
	require.NoError(t, env.AppCtx.DB.Create(&db.Photo{UserID: 2, URL: "a", Position: 1}).Error)

	svc := discovery.NewDiscoveryService(env.AppCtx)
	got, err := svc.FindCandidates(ctx, 1)
	require.NoError(t, err)

	assert.Equal(t, []uint64{6, 8, 2}, ids(got))
	assert.InDelta(t, 3, got[0].DistanceKm, 0.01)
	assert.InDelta(t, 8, got[2].DistanceKm, 0.01)
	require.Len(t, got[2].Photos, 2)
	assert.Equal(t, "a", got[2].Photos[0].URL)
	assert.NotNil(t, got[0].Photos)
}

func TestFindCandidatesWithoutLocation(t *testing.T) {
	env := apptest.New(t)
	insert(t, env, person{id: 1, age: 25}, person{id: 2, age: 25, at: &tbilisi})

	got, err := discovery.NewDiscoveryService(env.AppCtx).FindCandidates(context.Background(), 1)
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestFindCandidatesUnknownSeeker(t *testing.T) {
	env := apptest.New(t)

	_, err := discovery.NewDiscoveryService(env.AppCtx).FindCandidates(context.Background(), 99)
	assert.Equal(t, codes.NotFound, status.Code(err))
}

func TestFindCandidatesIsCapped(t *testing.T) {
	env := apptest.New(t)
	insert(t, env, person{id: 1, age: 25, at: &tbilisi})
	for i := 0; i < discovery.PageSize+5; i++ {
		insert(t, env, person{id: uint64(100 + i), age: 25, at: at(0.1*float64(i+1), float64(i*10))})
	}

	got, err := discovery.NewDiscoveryService(env.AppCtx).FindCandidates(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, got, discovery.PageSize)
	for i := 1; i < len(got); i++ {
		assert.LessOrEqual(t, got[i-1].DistanceKm, got[i].DistanceKm)
	}
	assert.Equal(t, uint64(100), got[0].ID)
}

func TestUpdateLocation(t *testing.T) {
	ctx := context.Background()
	env := apptest.New(t)
	insert(t, env, person{id: 1, age: 25}, person{id: 2, age: 25, at: at(1, 0)})
	svc := discovery.NewDiscoveryService(env.AppCtx)

	for _, bad := range [][2]float64{{91, 0}, {-91, 0}, {0, 181}, {0, -180.5}} {
		err := svc.UpdateLocation(ctx, 1, bad[0], bad[1])
		assert.Equal(t, codes.InvalidArgument, status.Code(err), bad)
	}
	assert.Equal(t, codes.NotFound, status.Code(svc.UpdateLocation(ctx, 99, 1, 1)))

	require.NoError(t, svc.UpdateLocation(ctx, 1, tbilisi.Lat, tbilisi.Lon))

	var u db.User
	require.NoError(t, env.AppCtx.DB.Take(&u, 1).Error)
	require.True(t, u.HasLocation())
	assert.Equal(t, tbilisi.Lat, *u.Lat)
	assert.NotNil(t, u.LocationUpdatedAt)

	// the seeker now finds the nearby user
	got, err := svc.FindCandidates(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, []uint64{2}, ids(got))
}

func TestDiscoveryEndpoints(t *testing.T) {
	env := apptest.New(t)
	insert(t, env, person{id: 1, age: 25}, person{id: 2, age: 25, at: at(1, 0)})
	v := identity.NewVerifier("secret", "muzz")
	router := server.NewRouter(env.AppCtx.Logger, v, discovery.NewRegistrar(env.AppCtx))
	token, err := v.Issue(1, "user1", time.Minute)
	require.NoError(t, err)

	do := func(method, path, body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+token)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w
	}

	w := do(http.MethodGet, "/discovery", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"candidates": []}`, w.Body.String())

	assert.Equal(t, http.StatusBadRequest, do(http.MethodPut, "/location", `{"lat": 41.7}`).Code)
	assert.Equal(t, http.StatusBadRequest, do(http.MethodPut, "/location", `{"lat": 100, "lon": 0}`).Code)
	assert.Equal(t, http.StatusNoContent, do(http.MethodPut, "/location", `{"lat": 41.7, "lon": 44.8}`).Code)

	w = do(http.MethodGet, "/discovery", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"id":2`)
}
