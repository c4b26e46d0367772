package matching_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/oggyb/muzz-match/internal/app/apptest"
	"github.com/oggyb/muzz-match/internal/db"
	"github.com/oggyb/muzz-match/internal/realtime"
	"github.com/oggyb/muzz-match/internal/repository"
	"github.com/oggyb/muzz-match/internal/service/matching"
)

func countRows(t *testing.T, env *apptest.Env, model any) int64 {
	t.Helper()
	var n int64
	require.NoError(t, env.AppCtx.DB.Model(model).Count(&n).Error)
	return n
}

// TestRecordLikeTwiceStoresOneEdge checks that repeating a like is harmless.
func TestRecordLikeTwiceStoresOneEdge(t *testing.T) {
	ctx := context.Background()
	env := apptest.New(t)
	ledger := matching.NewLedger(env.AppCtx)

	first, err := ledger.RecordLike(ctx, 1, 2)
	require.NoError(t, err)
	assert.Equal(t, repository.Inserted, first.Outcome)

	second, err := ledger.RecordLike(ctx, 1, 2)
	require.NoError(t, err)
	assert.Equal(t, repository.AlreadyExists, second.Outcome)
	assert.Equal(t, first.Like.FromUserID, second.Like.FromUserID)
	assert.Equal(t, first.Like.ToUserID, second.Like.ToUserID)

	assert.Equal(t, int64(1), countRows(t, env, &db.Like{}))
}

func TestRecordLikeValidation(t *testing.T) {
	ctx := context.Background()
	ledger := matching.NewLedger(apptest.New(t).AppCtx)

	_, err := ledger.RecordLike(ctx, 3, 3)
	assert.Equal(t, codes.InvalidArgument, status.Code(err))

	_, err = ledger.RecordLike(ctx, 0, 3)
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
}

// TestResolveSequence walks the pair through like, like back, and repeats
// in both orders. Only the first reciprocal like creates the match.
func TestResolveSequence(t *testing.T) {
	ctx := context.Background()
	env := apptest.New(t)
	svc := matching.NewMatchingService(env.AppCtx)
	r := svc.Resolver()

	alice := env.Connect(1)
	bob := env.Connect(2)

	res, err := r.TryResolve(ctx, 1, 2)
	require.NoError(t, err)
	assert.False(t, res.Matched)
	assert.False(t, res.IsNewMatch)

	res, err = r.TryResolve(ctx, 2, 1)
	require.NoError(t, err)
	assert.True(t, res.Matched)
	assert.True(t, res.IsNewMatch)
	matchID := res.MatchID
	require.NotZero(t, matchID)

	for _, pair := range [][2]uint64{{1, 2}, {2, 1}} {
		res, err = r.TryResolve(ctx, pair[0], pair[1])
		require.NoError(t, err)
		assert.True(t, res.Matched)
		assert.False(t, res.IsNewMatch)
		assert.Equal(t, matchID, res.MatchID)
	}

	assert.Equal(t, int64(1), countRows(t, env, &db.Match{}))

	var m db.Match
	require.NoError(t, env.AppCtx.DB.First(&m).Error)
	assert.Equal(t, uint64(1), m.UserLow)
	assert.Equal(t, uint64(2), m.UserHigh)

	// both users hear about the match once
	for userID, conn := range map[uint64]*apptest.Conn{1: alice, 2: bob} {
		events := conn.Events(realtime.EventMatch)
		require.Len(t, events, 1)
		var payload realtime.MatchPayload
		apptest.Decode(t, events[0], &payload)
		assert.Equal(t, matchID, payload.MatchID)
		assert.Equal(t, 3-userID, payload.PartnerID)
	}
}

// TestConcurrentResolvesCreateOneMatch races resolvers for a pair whose
// likes already exist in both directions.
func TestConcurrentResolvesCreateOneMatch(t *testing.T) {
	ctx := context.Background()
	env := apptest.New(t)
	svc := matching.NewMatchingService(env.AppCtx)

	_, err := svc.Ledger().RecordLike(ctx, 7, 9)
	require.NoError(t, err)
	_, err = svc.Ledger().RecordLike(ctx, 9, 7)
	require.NoError(t, err)

	const workers = 8
	results := make([]matching.Resolution, workers)
	errs := make([]error, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			from, to := uint64(7), uint64(9)
			if i%2 == 1 {
				from, to = to, from
			}
			results[i], errs[i] = svc.Resolver().TryResolve(ctx, from, to)
		}(i)
	}
	wg.Wait()

	newMatches := 0
	for i := range results {
		require.NoError(t, errs[i])
		assert.True(t, results[i].Matched)
		assert.Equal(t, results[0].MatchID, results[i].MatchID)
		if results[i].IsNewMatch {
			newMatches++
		}
	}
	assert.Equal(t, 1, newMatches)
	assert.Equal(t, int64(1), countRows(t, env, &db.Match{}))
}

func TestLikeUnknownTarget(t *testing.T) {
	env := apptest.New(t)
	env.Users(t, 1)
	svc := matching.NewMatchingService(env.AppCtx)

	_, err := svc.Like(context.Background(), 1, 404)
	assert.Equal(t, codes.NotFound, status.Code(err))
	assert.Equal(t, int64(0), countRows(t, env, &db.Like{}))
}

// TestCountLikesReceived checks the cache-first counter: a miss reads the
// DB and fills Redis, new likes bump the cached value.
func TestCountLikesReceived(t *testing.T) {
	ctx := context.Background()
	env := apptest.New(t)
	env.Users(t, 1, 2, 3, 4)
	svc := matching.NewMatchingService(env.AppCtx)

	_, err := svc.Like(ctx, 2, 1)
	require.NoError(t, err)
	_, err = svc.Like(ctx, 3, 1)
	require.NoError(t, err)

	// nothing cached yet: increments on a missing key are skipped
	assert.False(t, env.Redis.Exists("likes:count:1"))

	n, err := svc.CountLikesReceived(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	got, err := env.Redis.Get("likes:count:1")
	require.NoError(t, err)
	assert.Equal(t, "2", got)
	assert.Greater(t, env.Redis.TTL("likes:count:1"), time.Duration(0))

	_, err = svc.Like(ctx, 4, 1)
	require.NoError(t, err)
	// a repeated like does not count twice
	_, err = svc.Like(ctx, 4, 1)
	require.NoError(t, err)

	n, err = svc.CountLikesReceived(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	// cached reads leave the expiry alone
	ttl := env.Redis.TTL("likes:count:1")
	env.Redis.FastForward(time.Minute)
	_, err = svc.CountLikesReceived(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, ttl-time.Minute, env.Redis.TTL("likes:count:1"))
}

func TestListMatches(t *testing.T) {
	ctx := context.Background()
	env := apptest.New(t)
	env.Users(t, 1, 2, 3, 4)
	gdb := env.AppCtx.DB
	require.NoError(t, gdb.Create(&db.Photo{UserID: 2, URL: "https://img/2-b", Position: 2}).Error)
	require.NoError(t, gdb.Create(&db.Photo{UserID: 2, URL: "https://img/2-a", Position: 1}).Error)

	svc := matching.NewMatchingService(env.AppCtx)
	for _, other := range []uint64{2, 3} {
		_, err := svc.Like(ctx, 1, other)
		require.NoError(t, err)
		_, err = svc.Like(ctx, other, 1)
		require.NoError(t, err)
	}
	// liked but not matched
	_, err := svc.Like(ctx, 1, 4)
	require.NoError(t, err)

	var m12 db.Match
	require.NoError(t, gdb.Where("user_low = ? AND user_high = ?", 1, 2).Take(&m12).Error)

	// make the older match the most recently active one
	later := time.Now().UTC().Add(time.Hour)
	require.NoError(t, gdb.Create(&db.Message{MatchID: m12.ID, SenderID: 2, ReceiverID: 1, Body: "hey", CreatedAt: later}).Error)
	require.NoError(t, gdb.Create(&db.Message{MatchID: m12.ID, SenderID: 2, ReceiverID: 1, Body: "you there?", CreatedAt: later.Add(time.Second)}).Error)

	list, err := svc.ListMatches(ctx, 1)
	require.NoError(t, err)
	require.Len(t, list, 2)

	first := list[0]
	assert.Equal(t, m12.ID, first.MatchID)
	assert.Equal(t, uint64(2), first.Partner.ID)
	assert.Equal(t, "user2", first.Partner.Username)
	require.NotNil(t, first.Partner.Photo)
	assert.Equal(t, "https://img/2-a", first.Partner.Photo.URL)
	require.NotNil(t, first.LastMessage)
	assert.Equal(t, "you there?", first.LastMessage.Body)
	assert.Equal(t, int64(2), first.UnreadCount)

	second := list[1]
	assert.Equal(t, uint64(3), second.Partner.ID)
	assert.Nil(t, second.Partner.Photo)
	assert.Nil(t, second.LastMessage)
	assert.Zero(t, second.UnreadCount)

	// partner's view has no unread messages
	list, err = svc.ListMatches(ctx, 2)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Zero(t, list[0].UnreadCount)
}
