// Package normalize validates the intermediate records produced by provider
// adapters and converts them into the canonical output records. A failure
// here means the adapter and the output schema have drifted apart; it is a
// contract bug, distinct from any upstream failure, and is never retried.
package normalize

import (
	"fmt"
	"math"
	"time"

	"ligaproxy/pkg/contracts/domain"
)

// ListLeagues validates and shapes the ListLeagues intermediate record.
func ListLeagues(raw map[string]interface{}) (*domain.ListLeaguesResponse, error) {
	items, err := requireList(raw, "leagues", "")
	if err != nil {
		return nil, err
	}

	resp := &domain.ListLeaguesResponse{Leagues: make([]domain.LeagueSummary, 0, len(items))}
	for i, item := range items {
		league, err := normalizeLeague(item, fmt.Sprintf("leagues[%d]", i))
		if err != nil {
			return nil, err
		}
		resp.Leagues = append(resp.Leagues, league)
	}
	return resp, nil
}

// LeagueMatches validates and shapes the GetLeagueMatches intermediate record.
func LeagueMatches(raw map[string]interface{}) (*domain.GetLeagueMatchesResponse, error) {
	items, err := requireList(raw, "matches", "")
	if err != nil {
		return nil, err
	}

	resp := &domain.GetLeagueMatchesResponse{Matches: make([]domain.MatchDetail, 0, len(items))}
	for i, item := range items {
		match, err := normalizeMatch(item, fmt.Sprintf("matches[%d]", i))
		if err != nil {
			return nil, err
		}
		resp.Matches = append(resp.Matches, match)
	}
	return resp, nil
}

// Team validates and shapes the GetTeam intermediate record.
func Team(raw map[string]interface{}) (*domain.GetTeamResponse, error) {
	team, err := normalizeTeam(raw["team"], "team")
	if err != nil {
		return nil, err
	}
	return &domain.GetTeamResponse{Team: team}, nil
}

// Match validates and shapes the GetMatch intermediate record.
func Match(raw map[string]interface{}) (*domain.GetMatchResponse, error) {
	match, err := normalizeMatch(raw["match"], "match")
	if err != nil {
		return nil, err
	}
	return &domain.GetMatchResponse{Match: match}, nil
}

// normalizeLeague builds a LeagueSummary, renaming the intermediate
// current_season field to the canonical season.
func normalizeLeague(v interface{}, path string) (domain.LeagueSummary, error) {
	m, ok := v.(map[string]interface{})
	if !ok {
		return domain.LeagueSummary{}, fmt.Errorf("%s: expected an object, got %T", path, v)
	}

	var league domain.LeagueSummary
	var err error
	if league.ID, err = requireInt(m, "id", path); err != nil {
		return domain.LeagueSummary{}, err
	}
	if league.Name, err = requireString(m, "name", path); err != nil {
		return domain.LeagueSummary{}, err
	}
	if league.Shortcut, err = requireString(m, "shortcut", path); err != nil {
		return domain.LeagueSummary{}, err
	}
	if league.Country, err = requireString(m, "country", path); err != nil {
		return domain.LeagueSummary{}, err
	}
	if league.Season, err = requireString(m, "current_season", path); err != nil {
		return domain.LeagueSummary{}, err
	}
	return league, nil
}

// normalizeTeam builds a TeamDetail, renaming team_id to id. icon_url is
// the only optional field and defaults to nil.
func normalizeTeam(v interface{}, path string) (domain.TeamDetail, error) {
	m, ok := v.(map[string]interface{})
	if !ok {
		return domain.TeamDetail{}, fmt.Errorf("%s: expected an object, got %T", path, v)
	}

	var team domain.TeamDetail
	var err error
	if team.ID, err = requireInt(m, "team_id", path); err != nil {
		return domain.TeamDetail{}, err
	}
	if team.Name, err = requireString(m, "name", path); err != nil {
		return domain.TeamDetail{}, err
	}
	if team.ShortName, err = requireString(m, "short_name", path); err != nil {
		return domain.TeamDetail{}, err
	}
	if team.IconURL, err = optionalString(m, "icon_url", path); err != nil {
		return domain.TeamDetail{}, err
	}
	return team, nil
}

// normalizeScore builds a MatchScore, renaming match_status to status.
func normalizeScore(v interface{}, path string) (domain.MatchScore, error) {
	m, ok := v.(map[string]interface{})
	if !ok {
		return domain.MatchScore{}, fmt.Errorf("%s: expected an object, got %T", path, v)
	}

	var score domain.MatchScore
	var err error
	if score.Home, err = requireInt(m, "home", path); err != nil {
		return domain.MatchScore{}, err
	}
	if score.Away, err = requireInt(m, "away", path); err != nil {
		return domain.MatchScore{}, err
	}
	status, err := requireString(m, "match_status", path)
	if err != nil {
		return domain.MatchScore{}, err
	}
	score.Status = domain.MatchStatus(status)
	return score, nil
}

// normalizeMatch builds a MatchDetail, renaming match_id, match_date_time
// and final_score to their canonical names.
func normalizeMatch(v interface{}, path string) (domain.MatchDetail, error) {
	m, ok := v.(map[string]interface{})
	if !ok {
		return domain.MatchDetail{}, fmt.Errorf("%s: expected an object, got %T", path, v)
	}

	var match domain.MatchDetail
	var err error
	if match.ID, err = requireInt(m, "match_id", path); err != nil {
		return domain.MatchDetail{}, err
	}
	if match.LeagueName, err = requireString(m, "league_name", path); err != nil {
		return domain.MatchDetail{}, err
	}
	rawDateTime, err := requireString(m, "match_date_time", path)
	if err != nil {
		return domain.MatchDetail{}, err
	}
	match.DateTime = canonicalDateTime(rawDateTime)

	if match.TeamHome, err = normalizeTeam(m["team_home"], fieldPath(path, "team_home")); err != nil {
		return domain.MatchDetail{}, err
	}
	if match.TeamAway, err = normalizeTeam(m["team_away"], fieldPath(path, "team_away")); err != nil {
		return domain.MatchDetail{}, err
	}
	if match.Score, err = normalizeScore(m["final_score"], fieldPath(path, "final_score")); err != nil {
		return domain.MatchDetail{}, err
	}
	if match.IsFinished, err = requireBool(m, "is_finished", path); err != nil {
		return domain.MatchDetail{}, err
	}
	return match, nil
}

// dateTimeLayouts are the upstream timestamp shapes we recognize. OpenLigaDB
// emits zone-less local timestamps.
var dateTimeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
}

// canonicalDateTime parses raw against the known layouts and re-renders it
// canonically; an unparseable value passes through untouched.
func canonicalDateTime(raw string) string {
	for _, layout := range dateTimeLayouts {
		if ts, err := time.Parse(layout, raw); err == nil {
			return ts.Format(layout)
		}
	}
	return raw
}

// fieldPath joins a parent path and a field name.
func fieldPath(path, key string) string {
	if path == "" {
		return key
	}
	return path + "." + key
}

// requireInt returns m[key] as an int. Whole-number floats are accepted
// since intermediate records may round-trip through JSON.
func requireInt(m map[string]interface{}, key, path string) (int, error) {
	v, ok := m[key]
	if !ok {
		return 0, fmt.Errorf("%s: missing required field", fieldPath(path, key))
	}
	switch n := v.(type) {
	case int:
		return n, nil
	case int64:
		return int(n), nil
	case float64:
		if n != math.Trunc(n) {
			return 0, fmt.Errorf("%s: expected an integer, got %v", fieldPath(path, key), n)
		}
		return int(n), nil
	default:
		return 0, fmt.Errorf("%s: expected an integer, got %T", fieldPath(path, key), v)
	}
}

// requireString returns m[key] as a string.
func requireString(m map[string]interface{}, key, path string) (string, error) {
	v, ok := m[key]
	if !ok {
		return "", fmt.Errorf("%s: missing required field", fieldPath(path, key))
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("%s: expected a string, got %T", fieldPath(path, key), v)
	}
	return s, nil
}

// requireBool returns m[key] as a bool.
func requireBool(m map[string]interface{}, key, path string) (bool, error) {
	v, ok := m[key]
	if !ok {
		return false, fmt.Errorf("%s: missing required field", fieldPath(path, key))
	}
	b, ok := v.(bool)
	if !ok {
		return false, fmt.Errorf("%s: expected a boolean, got %T", fieldPath(path, key), v)
	}
	return b, nil
}

// optionalString returns m[key] as a *string, nil when absent or null.
func optionalString(m map[string]interface{}, key, path string) (*string, error) {
	v, ok := m[key]
	if !ok || v == nil {
		return nil, nil
	}
	s, ok := v.(string)
	if !ok {
		return nil, fmt.Errorf("%s: expected a string or null, got %T", fieldPath(path, key), v)
	}
	return &s, nil
}

// requireList returns m[key] as a slice.
func requireList(m map[string]interface{}, key, path string) ([]interface{}, error) {
	v, ok := m[key]
	if !ok {
		return nil, fmt.Errorf("%s: missing required field", fieldPath(path, key))
	}
	switch list := v.(type) {
	case []interface{}:
		return list, nil
	case []map[string]interface{}:
		// Adapters build typed slices; box the elements.
		boxed := make([]interface{}, len(list))
		for i, item := range list {
			boxed[i] = item
		}
		return boxed, nil
	default:
		return nil, fmt.Errorf("%s: expected an array, got %T", fieldPath(path, key), v)
	}
}
