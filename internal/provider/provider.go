package provider

import (
	"context"
	"fmt"
	"log/slog"

	"ligaproxy/internal/config"
	"ligaproxy/internal/infrastructure"
)

// SportsProvider is the capability set every upstream adapter must expose.
// Methods return loosely-typed intermediate records ready for normalization;
// they substitute defaults for missing or malformed upstream fields rather
// than failing.
type SportsProvider interface {
	ListLeagues(ctx context.Context) (map[string]interface{}, error)
	GetLeagueMatches(ctx context.Context, leagueShortcut, leagueSeason string) (map[string]interface{}, error)
	GetTeam(ctx context.Context, teamID int) (map[string]interface{}, error)
	GetMatch(ctx context.Context, matchID int) (map[string]interface{}, error)
}

// New creates the provider configured by cfg.Name.
func New(cfg config.ProviderConfig, logger *slog.Logger, metrics *infrastructure.Metrics) (SportsProvider, error) {
	switch cfg.Name {
	case "openliga":
		return NewOpenLigaProvider(cfg, logger, metrics), nil
	default:
		return nil, fmt.Errorf("unknown provider: %s", cfg.Name)
	}
}
