package config_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oggyb/muzz-match/internal/config"
)

func TestDefaultsInDevelopment(t *testing.T) {
	t.Setenv("APP_ENV", "development")

	cfg, err := config.New()
	require.NoError(t, err)

	assert.True(t, cfg.IsDevelopment())
	assert.Equal(t, "mysql", cfg.DB.Driver)
	assert.Equal(t, "root:root@tcp(localhost:3306)/muzz?parseTime=true&charset=utf8mb4&loc=UTC", cfg.DB.DSN)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.False(t, cfg.Redis.Broadcast)
	assert.Equal(t, "50051", cfg.GRPC.Port)
	assert.Equal(t, "3000", cfg.HTTP.Port)
	assert.Equal(t, []string{"*"}, cfg.HTTP.CORSOrigins)
	assert.NotEmpty(t, cfg.Auth.JWTSecret)
}

func TestSecretRequiredOutsideDevelopment(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("JWT_SECRET", "")

	_, err := config.New()
	assert.Error(t, err)

	t.Setenv("JWT_SECRET", "s3cret")
	cfg, err := config.New()
	require.NoError(t, err)
	assert.Equal(t, "s3cret", cfg.Auth.JWTSecret)
}

func TestDSNPerDriver(t *testing.T) {
	t.Setenv("APP_ENV", "development")
	t.Setenv("DB_HOST", "db")
	t.Setenv("DB_USER", "muzz")
	t.Setenv("DB_PASSWORD", "pw")
	t.Setenv("DB_NAME", "match")

	t.Setenv("DB_DRIVER", "Postgres")
	cfg, err := config.New()
	require.NoError(t, err)
	assert.Equal(t, "postgres", cfg.DB.Driver)
	assert.Equal(t, "host=db port=5432 user=muzz password=pw dbname=match sslmode=disable TimeZone=UTC", cfg.DB.DSN)

	t.Setenv("DB_DRIVER", "sqlite")
	cfg, err = config.New()
	require.NoError(t, err)
	assert.Equal(t, "match.db", cfg.DB.DSN)

	// an explicit DSN wins
	t.Setenv("DB_DSN", "file::memory:")
	cfg, err = config.New()
	require.NoError(t, err)
	assert.Equal(t, "file::memory:", cfg.DB.DSN)

	t.Setenv("DB_DSN", "")
	t.Setenv("DB_DRIVER", "oracle")
	_, err = config.New()
	assert.Error(t, err)
}

func TestListsAndFlags(t *testing.T) {
	t.Setenv("APP_ENV", "development")
	t.Setenv("CORS_ORIGINS", "https://a.example,https://b.example")
	t.Setenv("REDIS_BROADCAST", "true")

	cfg, err := config.New()
	require.NoError(t, err)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.HTTP.CORSOrigins)
	assert.True(t, cfg.Redis.Broadcast)
}
