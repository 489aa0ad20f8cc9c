package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/joho/godotenv"

	"github.com/nikhilbhadauriyagspt/cartrix.shop-sub000/internal/obs"
)

func main() {
	_ = godotenv.Load()

	var (
		dir       = flag.String("dir", "db/migrations", "migrations directory")
		down      = flag.Bool("down", false, "roll back one migration instead of migrating up")
		steps     = flag.Int("steps", 0, "number of migrations to apply (0 = all)")
		databaseF = flag.String("database", "", "database URL (defaults to DATABASE_URL)")
	)
	flag.Parse()

	logger := obs.NewLogger("json", "info").With().Str("component", "migrate").Logger()

	databaseURL := strings.TrimSpace(*databaseF)
	if databaseURL == "" {
		databaseURL = strings.TrimSpace(os.Getenv("DATABASE_URL"))
	}
	if databaseURL == "" {
		logger.Fatal().Msg("DATABASE_URL is required")
	}

	m, err := migrate.New("file://"+*dir, pgxURL(databaseURL))
	if err != nil {
		logger.Fatal().Err(err).Msg("open migrator")
	}
	defer func() {
		srcErr, dbErr := m.Close()
		if srcErr != nil {
			logger.Error().Err(srcErr).Msg("close migration source")
		}
		if dbErr != nil {
			logger.Error().Err(dbErr).Msg("close migration database")
		}
	}()

	switch {
	case *down:
		err = m.Steps(-1)
	case *steps > 0:
		err = m.Steps(*steps)
	default:
		err = m.Up()
	}
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		logger.Fatal().Err(err).Msg("run migrations")
	}

	version, dirty, verErr := m.Version()
	if verErr != nil && !errors.Is(verErr, migrate.ErrNilVersion) {
		logger.Fatal().Err(verErr).Msg("read migration version")
	}
	logger.Info().Uint("version", version).Bool("dirty", dirty).Msg("migrations complete")
}

// pgxURL rewrites a postgres:// URL to the pgx5 driver scheme migrate expects.
func pgxURL(databaseURL string) string {
	for _, prefix := range []string{"postgres://", "postgresql://"} {
		if strings.HasPrefix(databaseURL, prefix) {
			return "pgx5://" + strings.TrimPrefix(databaseURL, prefix)
		}
	}
	return fmt.Sprintf("pgx5://%s", databaseURL)
}
