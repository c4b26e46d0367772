package main

import (
	"fmt"
	"os"
	"time"

	flag "github.com/spf13/pflag"

	"github.com/oggyb/muzz-match/internal/config"
	"github.com/oggyb/muzz-match/internal/db"
	"github.com/oggyb/muzz-match/internal/identity"
	"github.com/oggyb/muzz-match/internal/logger"
)

func main() {
	opts := db.DefaultSeedOptions()
	flag.IntVar(&opts.Users, "users", opts.Users, "number of demo users")
	flag.Float64Var(&opts.Center.Lat, "lat", opts.Center.Lat, "latitude users are scattered around")
	flag.Float64Var(&opts.Center.Lon, "lon", opts.Center.Lon, "longitude users are scattered around")
	flag.Float64Var(&opts.SpreadKm, "spread-km", opts.SpreadKm, "maximum distance from the center")
	tokens := flag.Bool("tokens", false, "print a bearer token for every seeded user")
	tokenTTL := flag.Duration("token-ttl", 24*time.Hour, "lifetime of printed tokens")
	flag.Parse()

	// Load configuration
	cfg, err := config.New()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger.InitFromConfig(cfg)
	log := logger.With("cmd", "seed")

	if opts.Users < 2 || !opts.Center.Valid() || opts.SpreadKm <= 0 {
		log.Error("invalid seed options", "users", opts.Users, "center", opts.Center, "spread_km", opts.SpreadKm)
		os.Exit(2)
	}

	database, err := db.NewDB(cfg, log)
	if err != nil {
		log.Error("failed to init db", "err", err)
		os.Exit(1)
	}

	users, err := db.SeedTestData(database, opts, log)
	if err != nil {
		log.Error("failed to seed", "err", err)
		os.Exit(1)
	}
	log.Info("seeding completed", "users", len(users))

	if !*tokens {
		return
	}
	verifier := identity.NewVerifier(cfg.Auth.JWTSecret, cfg.Auth.Issuer)
	for _, u := range users {
		token, err := verifier.Issue(u.ID, u.Username, *tokenTTL)
		if err != nil {
			log.Error("failed to issue token", "user_id", u.ID, "err", err)
			os.Exit(1)
		}
		fmt.Printf("%d\t%s\t%s\n", u.ID, u.Username, token)
	}
}
