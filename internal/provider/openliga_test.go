package provider

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newOpenLigaServer serves canned JSON bodies keyed by request path.
func newOpenLigaServer(t *testing.T, responses map[string]string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, ok := responses[r.URL.Path]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(body))
	}))
}

func newTestProvider(t *testing.T, server *httptest.Server) *OpenLigaProvider {
	t.Helper()
	return NewOpenLigaProvider(testProviderConfig(server.URL), nil, nil)
}

func TestListLeaguesMapsUpstreamFields(t *testing.T) {
	server := newOpenLigaServer(t, map[string]string{
		"/getavailableleagues": `[
			{"leagueId": 4608, "leagueName": "1. Fußball-Bundesliga 2024/2025", "leagueShortcut": "bl1", "leagueSeason": "2024", "country": "Germany"},
			{"leagueId": 4609, "leagueName": "2. Bundesliga", "leagueShortcut": "bl2", "leagueSeason": 2024, "country": "Germany"},
			"not-an-object"
		]`,
	})
	defer server.Close()

	result, err := newTestProvider(t, server).ListLeagues(context.Background())
	require.NoError(t, err)

	leagues, ok := result["leagues"].([]map[string]interface{})
	require.True(t, ok)
	require.Len(t, leagues, 2, "non-object elements are skipped")

	assert.Equal(t, map[string]interface{}{
		"id":             4608,
		"name":           "1. Fußball-Bundesliga 2024/2025",
		"shortcut":       "bl1",
		"country":        "Germany",
		"current_season": "2024",
	}, leagues[0])

	// Numeric seasons are coerced to strings.
	assert.Equal(t, "2024", leagues[1]["current_season"])
}

func TestGetLeagueMatchesMapsMatches(t *testing.T) {
	server := newOpenLigaServer(t, map[string]string{
		"/getmatchdata/bl1/2024": `[{
			"matchID": 71208,
			"matchDateTime": "2024-08-23T20:30:00",
			"matchIsFinished": true,
			"team1": {"teamId": 40, "teamName": "FC Bayern München", "shortName": "FC Bayern", "teamIconUrl": "https://example.org/bayern.png"},
			"team2": {"teamId": 9, "teamName": "VfB Stuttgart", "shortName": "Stuttgart"},
			"matchResults": [
				{"pointsTeam1": 1, "pointsTeam2": 0},
				{"pointsTeam1": 3, "pointsTeam2": 2}
			]
		}]`,
	})
	defer server.Close()

	result, err := newTestProvider(t, server).GetLeagueMatches(context.Background(), "bl1", "2024")
	require.NoError(t, err)

	matches, ok := result["matches"].([]map[string]interface{})
	require.True(t, ok)
	require.Len(t, matches, 1)

	match := matches[0]
	assert.Equal(t, 71208, match["match_id"])
	assert.Equal(t, "bl1", match["league_name"], "listing endpoint only knows the shortcut")
	assert.Equal(t, "2024-08-23T20:30:00", match["match_date_time"])
	assert.Equal(t, true, match["is_finished"])

	home := match["team_home"].(map[string]interface{})
	assert.Equal(t, 40, home["team_id"])
	assert.Equal(t, "https://example.org/bayern.png", home["icon_url"])

	away := match["team_away"].(map[string]interface{})
	assert.Nil(t, away["icon_url"], "missing icon stays nil")

	// The last matchResults entry is taken as the final score.
	assert.Equal(t, map[string]interface{}{
		"home":         3,
		"away":         2,
		"match_status": "finished",
	}, match["final_score"])
}

func TestGetLeagueMatchesScoreDefaults(t *testing.T) {
	tests := []struct {
		name string
		body string
		want map[string]interface{}
	}{
		{
			name: "no results means scheduled",
			body: `[{"matchID": 1, "matchIsFinished": false, "matchResults": []}]`,
			want: map[string]interface{}{"home": 0, "away": 0, "match_status": "scheduled"},
		},
		{
			name: "missing results array means scheduled",
			body: `[{"matchID": 2, "matchIsFinished": false}]`,
			want: map[string]interface{}{"home": 0, "away": 0, "match_status": "scheduled"},
		},
		{
			name: "results on unfinished match mean in progress",
			body: `[{"matchID": 3, "matchIsFinished": false, "matchResults": [{"pointsTeam1": 1, "pointsTeam2": 1}]}]`,
			want: map[string]interface{}{"home": 1, "away": 1, "match_status": "in_progress"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := newOpenLigaServer(t, map[string]string{"/getmatchdata/bl1/2024": tt.body})
			defer server.Close()

			result, err := newTestProvider(t, server).GetLeagueMatches(context.Background(), "bl1", "2024")
			require.NoError(t, err)

			matches := result["matches"].([]map[string]interface{})
			require.Len(t, matches, 1)
			assert.Equal(t, tt.want, matches[0]["final_score"])
		})
	}
}

func TestGetTeamMapsTeam(t *testing.T) {
	server := newOpenLigaServer(t, map[string]string{
		"/getteam/40": `{"teamId": 40, "teamName": "FC Bayern München", "shortName": "FC Bayern", "teamIconUrl": "https://example.org/bayern.png"}`,
	})
	defer server.Close()

	result, err := newTestProvider(t, server).GetTeam(context.Background(), 40)
	require.NoError(t, err)

	assert.Equal(t, map[string]interface{}{
		"team_id":    40,
		"name":       "FC Bayern München",
		"short_name": "FC Bayern",
		"icon_url":   "https://example.org/bayern.png",
	}, result["team"])
}

func TestGetTeamFallsBackToDefaultsOnNonObjectBody(t *testing.T) {
	for name, body := range map[string]string{
		"null body":  `null`,
		"array body": `[]`,
	} {
		t.Run(name, func(t *testing.T) {
			server := newOpenLigaServer(t, map[string]string{"/getteam/99": body})
			defer server.Close()

			result, err := newTestProvider(t, server).GetTeam(context.Background(), 99)
			require.NoError(t, err)

			assert.Equal(t, map[string]interface{}{
				"team_id":    0,
				"name":       "",
				"short_name": "",
				"icon_url":   nil,
			}, result["team"])
		})
	}
}

func TestGetMatchResolvesArrayToFirstElement(t *testing.T) {
	server := newOpenLigaServer(t, map[string]string{
		"/getmatchdata/71208": `[{
			"matchID": 71208,
			"leagueName": "1. Fußball-Bundesliga 2024/2025",
			"matchDateTime": "2024-08-23T20:30:00",
			"matchIsFinished": true,
			"team1": {"teamId": 40, "teamName": "FC Bayern München", "shortName": "FC Bayern"},
			"team2": {"teamId": 9, "teamName": "VfB Stuttgart", "shortName": "Stuttgart"},
			"matchResults": [{"pointsTeam1": 3, "pointsTeam2": 2}]
		}]`,
	})
	defer server.Close()

	result, err := newTestProvider(t, server).GetMatch(context.Background(), 71208)
	require.NoError(t, err)

	match := result["match"].(map[string]interface{})
	assert.Equal(t, 71208, match["match_id"])
	assert.Equal(t, "1. Fußball-Bundesliga 2024/2025", match["league_name"],
		"single-match endpoint carries the league name inline")
}

func TestGetMatchNotFound(t *testing.T) {
	for name, body := range map[string]string{
		"empty array":  `[]`,
		"empty object": `{}`,
		"null body":    `null`,
	} {
		t.Run(name, func(t *testing.T) {
			server := newOpenLigaServer(t, map[string]string{"/getmatchdata/404404": body})
			defer server.Close()

			_, err := newTestProvider(t, server).GetMatch(context.Background(), 404404)
			assert.ErrorIs(t, err, ErrMatchNotFound)
		})
	}
}

func TestNewRejectsUnknownProvider(t *testing.T) {
	cfg := testProviderConfig("http://localhost")
	cfg.Name = "espn"

	_, err := New(cfg, nil, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "espn")
}

func TestNewBuildsOpenLigaProvider(t *testing.T) {
	p, err := New(testProviderConfig("http://localhost"), nil, nil)
	require.NoError(t, err)
	assert.IsType(t, &OpenLigaProvider{}, p)
}
