package settings

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotConfigured is returned when no enabled settings row matches a lookup.
var ErrNotConfigured = errors.New("settings: no enabled payment gateway configured")

// Store reads gateway settings from Postgres. Lookups hit the database on
// every call on purpose: the admin console can flip a gateway off between two
// requests, and a cached row would let a disabled gateway keep serving.
type Store struct {
	Pool *pgxpool.Pool
}

const settingsColumns = `gateway, key_id, key_secret, test_mode, enabled, updated_at`

// Enabled returns the single enabled settings row. At most one row is enabled
// at a time; zero enabled rows fail closed with ErrNotConfigured.
func (s *Store) Enabled(ctx context.Context) (GatewaySettings, error) {
	if s == nil || s.Pool == nil {
		return GatewaySettings{}, errors.New("settings: store not configured")
	}
	row := s.Pool.QueryRow(ctx,
		`SELECT `+settingsColumns+` FROM payment_gateway_settings WHERE enabled LIMIT 1`)
	return scanSettings(row)
}

// EnabledByGateway returns the enabled settings row for the named gateway.
// A row that exists but is disabled, or an enabled row for a different
// gateway, both yield ErrNotConfigured.
func (s *Store) EnabledByGateway(ctx context.Context, name GatewayName) (GatewaySettings, error) {
	if s == nil || s.Pool == nil {
		return GatewaySettings{}, errors.New("settings: store not configured")
	}
	row := s.Pool.QueryRow(ctx,
		`SELECT `+settingsColumns+` FROM payment_gateway_settings WHERE gateway = $1 AND enabled`, string(name))
	return scanSettings(row)
}

func scanSettings(row pgx.Row) (GatewaySettings, error) {
	var (
		out     GatewaySettings
		rawName string
	)
	err := row.Scan(&rawName, &out.KeyID, &out.KeySecret, &out.TestMode, &out.Enabled, &out.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return GatewaySettings{}, ErrNotConfigured
		}
		return GatewaySettings{}, fmt.Errorf("settings: query: %w", err)
	}
	name, err := ParseGatewayName(rawName)
	if err != nil {
		return GatewaySettings{}, err
	}
	out.Gateway = name
	return out, nil
}
