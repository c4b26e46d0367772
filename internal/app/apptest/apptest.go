// Package apptest wires an AppContext against in-memory SQLite, miniredis
// and a local realtime gateway for service and handler tests.
package apptest

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/oggyb/muzz-match/internal/app"
	"github.com/oggyb/muzz-match/internal/cache"
	"github.com/oggyb/muzz-match/internal/config"
	"github.com/oggyb/muzz-match/internal/db"
	"github.com/oggyb/muzz-match/internal/logger"
	"github.com/oggyb/muzz-match/internal/realtime"
)

// Env is one isolated test environment.
type Env struct {
	AppCtx   *app.AppContext
	Registry *realtime.MemoryRegistry
	Redis    *miniredis.Miniredis
}

// New spins up an in-memory SQLite DB (migrated), a miniredis and a gateway
// with an empty presence registry. Each test gets its own DB and Redis.
func New(t *testing.T) *Env {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)
	dbase, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		NowFunc:                func() time.Time { return time.Now().UTC().Truncate(time.Millisecond) },
		SkipDefaultTransaction: true,
		TranslateError:         true,
	})
	require.NoError(t, err)

	sqlDB, err := dbase.DB()
	require.NoError(t, err)
	// one connection serializes sqlite writers in concurrency tests
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, db.Migrate(dbase))

	mr := miniredis.RunT(t)
	cfg := &config.Config{}
	cfg.Redis.Addr = mr.Addr()
	redisCache := cache.NewRedisCache(cfg)
	t.Cleanup(func() { _ = redisCache.Close() })

	log := logger.Discard()
	registry := realtime.NewMemoryRegistry()
	gw := realtime.NewGateway(registry, log)

	return &Env{
		AppCtx:   app.New(dbase, redisCache, gw, log),
		Registry: registry,
		Redis:    mr,
	}
}

// Users inserts users with the given ids (username "userN", age 25,
// looking for ages 18-99 within 50 km).
func (e *Env) Users(t *testing.T, ids ...uint64) {
	t.Helper()
	for _, id := range ids {
		u := db.User{
			ID:           id,
			Username:     fmt.Sprintf("user%d", id),
			Email:        fmt.Sprintf("user%d@test.com", id),
			PasswordHash: "x",
			Age:          25,

			SearchRadiusKm: 50,
			MinAge:         18,
			MaxAge:         99,
		}
		require.NoError(t, e.AppCtx.DB.Create(&u).Error)
	}
}

// Connect joins a recording connection for userID.
func (e *Env) Connect(userID uint64) *Conn {
	c := &Conn{id: fmt.Sprintf("test:%d:%d", userID, time.Now().UnixNano())}
	e.Registry.Join(userID, c)
	return c
}

// Conn records every event pushed to it.
type Conn struct {
	id string

	mu     sync.Mutex
	events []realtime.Event
}

func (c *Conn) ID() string { return c.id }

func (c *Conn) Push(ev realtime.Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, ev)
	return nil
}

// Events returns the pushed events of type typ (all when typ is empty).
func (c *Conn) Events(typ string) []realtime.Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []realtime.Event
	for _, ev := range c.events {
		if typ == "" || ev.Type == typ {
			out = append(out, ev)
		}
	}
	return out
}

// Decode unmarshals the payload of ev into v.
func Decode(t *testing.T, ev realtime.Event, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(ev.Data, v))
}
