package operations

// Operation names.
const (
	OpListLeagues      = "ListLeagues"
	OpGetLeagueMatches = "GetLeagueMatches"
	OpGetTeam          = "GetTeam"
	OpGetMatch         = "GetMatch"
)

// ListLeaguesPayload carries no fields; unknown keys are ignored.
type ListLeaguesPayload struct{}

// GetLeagueMatchesPayload selects a league season by shortcut and season.
type GetLeagueMatchesPayload struct {
	LeagueShortcut string `json:"league_shortcut" validate:"required"`
	LeagueSeason   string `json:"league_season" validate:"required"`
}

// GetTeamPayload selects a team by id. The id is a pointer so that an
// explicit zero still satisfies the presence check.
type GetTeamPayload struct {
	TeamID *int `json:"team_id" validate:"required"`
}

// GetMatchPayload selects a match by id.
type GetMatchPayload struct {
	MatchID *int `json:"match_id" validate:"required"`
}

// Schema fragments for the introspection endpoint.

func objectSchema(required []string, properties map[string]interface{}) map[string]interface{} {
	schema := map[string]interface{}{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}

func stringProp() map[string]interface{}  { return map[string]interface{}{"type": "string"} }
func integerProp() map[string]interface{} { return map[string]interface{}{"type": "integer"} }
func booleanProp() map[string]interface{} { return map[string]interface{}{"type": "boolean"} }

func arrayProp(items map[string]interface{}) map[string]interface{} {
	return map[string]interface{}{"type": "array", "items": items}
}

func nullableStringProp() map[string]interface{} {
	return map[string]interface{}{"type": []string{"string", "null"}}
}

// leagueSummarySchema describes the canonical league record.
func leagueSummarySchema() map[string]interface{} {
	return objectSchema(
		[]string{"id", "name", "shortcut", "country", "season"},
		map[string]interface{}{
			"id":       integerProp(),
			"name":     stringProp(),
			"shortcut": stringProp(),
			"country":  stringProp(),
			"season":   stringProp(),
		},
	)
}

// teamDetailSchema describes the canonical team record.
func teamDetailSchema() map[string]interface{} {
	return objectSchema(
		[]string{"id", "name", "short_name"},
		map[string]interface{}{
			"id":         integerProp(),
			"name":       stringProp(),
			"short_name": stringProp(),
			"icon_url":   nullableStringProp(),
		},
	)
}

// matchScoreSchema describes the canonical score record.
func matchScoreSchema() map[string]interface{} {
	return objectSchema(
		[]string{"home", "away", "status"},
		map[string]interface{}{
			"home": integerProp(),
			"away": integerProp(),
			"status": map[string]interface{}{
				"type": "string",
				"enum": []string{"scheduled", "in_progress", "finished"},
			},
		},
	)
}

// matchDetailSchema describes the canonical match record.
func matchDetailSchema() map[string]interface{} {
	return objectSchema(
		[]string{"id", "league_name", "date_time", "team_home", "team_away", "score", "is_finished"},
		map[string]interface{}{
			"id":          integerProp(),
			"league_name": stringProp(),
			"date_time":   stringProp(),
			"team_home":   teamDetailSchema(),
			"team_away":   teamDetailSchema(),
			"score":       matchScoreSchema(),
			"is_finished": booleanProp(),
		},
	)
}
