package provider

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"

	"ligaproxy/internal/config"
	"ligaproxy/internal/infrastructure"
)

// ErrMatchNotFound is returned when the upstream has no match for the
// requested id.
var ErrMatchNotFound = errors.New("match not found")

// OpenLigaProvider adapts the OpenLigaDB API (api.openligadb.de) to the
// SportsProvider capability set. All calls go through the rate-limited,
// retrying client; raw upstream JSON is reshaped into intermediate records
// with defaults substituted for missing or malformed fields.
type OpenLigaProvider struct {
	client  *Client
	baseURL string
	logger  *slog.Logger
}

// NewOpenLigaProvider creates an OpenLigaDB adapter from configuration.
func NewOpenLigaProvider(cfg config.ProviderConfig, logger *slog.Logger, metrics *infrastructure.Metrics) *OpenLigaProvider {
	if logger == nil {
		logger = slog.Default()
	}
	return &OpenLigaProvider{
		client:  NewClient(cfg, logger, metrics),
		baseURL: cfg.BaseURL,
		logger:  logger.With(slog.String("provider", "openliga")),
	}
}

// ListLeagues returns the available leagues. Array elements that are not
// objects are skipped.
func (p *OpenLigaProvider) ListLeagues(ctx context.Context) (map[string]interface{}, error) {
	data, err := p.client.GetJSON(ctx, p.baseURL+"/getavailableleagues")
	if err != nil {
		return nil, err
	}

	leagues := []map[string]interface{}{}
	if list, ok := data.([]interface{}); ok {
		for _, item := range list {
			league, ok := item.(map[string]interface{})
			if !ok {
				continue
			}
			leagues = append(leagues, map[string]interface{}{
				"id":             intField(league, "leagueId"),
				"name":           stringField(league, "leagueName"),
				"shortcut":       stringField(league, "leagueShortcut"),
				"country":        stringField(league, "country"),
				"current_season": stringField(league, "leagueSeason"),
			})
		}
	}

	return map[string]interface{}{"leagues": leagues}, nil
}

// GetLeagueMatches returns all matches of a league season.
func (p *OpenLigaProvider) GetLeagueMatches(ctx context.Context, leagueShortcut, leagueSeason string) (map[string]interface{}, error) {
	endpoint := fmt.Sprintf("%s/getmatchdata/%s/%s",
		p.baseURL, url.PathEscape(leagueShortcut), url.PathEscape(leagueSeason))
	data, err := p.client.GetJSON(ctx, endpoint)
	if err != nil {
		return nil, err
	}

	matches := []map[string]interface{}{}
	if list, ok := data.([]interface{}); ok {
		for _, item := range list {
			match, ok := item.(map[string]interface{})
			if !ok {
				continue
			}
			matches = append(matches, mapMatch(match, leagueShortcut))
		}
	}

	return map[string]interface{}{"matches": matches}, nil
}

// GetTeam returns team details by id. The upstream endpoint is listed in
// third-party API catalogs but missing from the official OpenLigaDB docs
// and reliably responds 404; on any non-object body the method returns a
// team record with all defaults instead of an error, so callers cannot
// distinguish "not found" from "found but empty" at this layer.
func (p *OpenLigaProvider) GetTeam(ctx context.Context, teamID int) (map[string]interface{}, error) {
	data, err := p.client.GetJSON(ctx, fmt.Sprintf("%s/getteam/%d", p.baseURL, teamID))
	if err != nil {
		return nil, err
	}

	team := map[string]interface{}{
		"team_id":    0,
		"name":       "",
		"short_name": "",
		"icon_url":   nil,
	}
	if obj, ok := data.(map[string]interface{}); ok {
		team = mapTeam(obj)
	}

	return map[string]interface{}{"team": team}, nil
}

// GetMatch returns match details by id. The upstream may answer with a
// single object or an array; an array resolves to its first element. An
// empty or non-object payload means the match does not exist.
func (p *OpenLigaProvider) GetMatch(ctx context.Context, matchID int) (map[string]interface{}, error) {
	data, err := p.client.GetJSON(ctx, fmt.Sprintf("%s/getmatchdata/%d", p.baseURL, matchID))
	if err != nil {
		return nil, err
	}

	var match map[string]interface{}
	switch v := data.(type) {
	case []interface{}:
		if len(v) > 0 {
			match, _ = v[0].(map[string]interface{})
		}
	case map[string]interface{}:
		if len(v) > 0 {
			match = v
		}
	}
	if match == nil {
		return nil, ErrMatchNotFound
	}

	return map[string]interface{}{
		"match": mapMatch(match, stringField(match, "leagueName")),
	}, nil
}

// mapMatch reshapes one upstream match object into the intermediate record.
// leagueName is supplied by the caller: the league listing endpoint only
// knows the requested shortcut, while the single-match endpoint carries the
// league name inline.
func mapMatch(match map[string]interface{}, leagueName string) map[string]interface{} {
	teamHome, _ := match["team1"].(map[string]interface{})
	teamAway, _ := match["team2"].(map[string]interface{})

	return map[string]interface{}{
		"match_id":        intField(match, "matchID"),
		"league_name":     leagueName,
		"match_date_time": stringField(match, "matchDateTime"),
		"team_home":       mapTeam(teamHome),
		"team_away":       mapTeam(teamAway),
		"final_score":     mapScore(match),
		"is_finished":     boolField(match, "matchIsFinished"),
	}
}

// mapTeam reshapes one upstream team object, tolerating nil.
func mapTeam(team map[string]interface{}) map[string]interface{} {
	var iconURL interface{}
	if s, ok := team["teamIconUrl"].(string); ok {
		iconURL = s
	}
	return map[string]interface{}{
		"team_id":    intField(team, "teamId"),
		"name":       stringField(team, "teamName"),
		"short_name": stringField(team, "shortName"),
		"icon_url":   iconURL,
	}
}

// mapScore derives the final score from the matchResults array. The last
// entry is treated as authoritative/final; the upstream contract does not
// actually guarantee that ordering, so this stays a documented assumption.
// Without results the score defaults to 0-0 "scheduled"; with results the
// status follows the matchIsFinished flag.
func mapScore(match map[string]interface{}) map[string]interface{} {
	score := map[string]interface{}{
		"home":         0,
		"away":         0,
		"match_status": "scheduled",
	}

	results, ok := match["matchResults"].([]interface{})
	if !ok || len(results) == 0 {
		return score
	}
	final, ok := results[len(results)-1].(map[string]interface{})
	if !ok {
		return score
	}

	status := "in_progress"
	if boolField(match, "matchIsFinished") {
		status = "finished"
	}
	return map[string]interface{}{
		"home":         intField(final, "pointsTeam1"),
		"away":         intField(final, "pointsTeam2"),
		"match_status": status,
	}
}

// intField returns m[key] as an int, or 0 when absent or not numeric.
func intField(m map[string]interface{}, key string) int {
	if v, ok := m[key].(float64); ok {
		return int(v)
	}
	return 0
}

// stringField returns m[key] as a string, or "" when absent. Numeric values
// are rendered as integer strings since the upstream is inconsistent about
// quoting fields like the season.
func stringField(m map[string]interface{}, key string) string {
	switch v := m[key].(type) {
	case string:
		return v
	case float64:
		return fmt.Sprintf("%d", int64(v))
	default:
		return ""
	}
}

// boolField returns m[key] as a bool, or false when absent or not boolean.
func boolField(m map[string]interface{}, key string) bool {
	if v, ok := m[key].(bool); ok {
		return v
	}
	return false
}
