// Package domain contains the canonical output records of the proxy. These
// are the public response contract: every operation result is normalized
// into these shapes before leaving the service.
package domain

// MatchStatus represents the lifecycle state of a match score.
type MatchStatus string

const (
	MatchStatusScheduled  MatchStatus = "scheduled"
	MatchStatusInProgress MatchStatus = "in_progress"
	MatchStatusFinished   MatchStatus = "finished"
)

// LeagueSummary is the canonical representation of a league.
type LeagueSummary struct {
	ID       int    `json:"id"`
	Name     string `json:"name"`
	Shortcut string `json:"shortcut"`
	Country  string `json:"country"`
	Season   string `json:"season"`
}

// TeamDetail is the canonical representation of a team. IconURL is nil
// when the upstream has no icon for the team.
type TeamDetail struct {
	ID        int     `json:"id"`
	Name      string  `json:"name"`
	ShortName string  `json:"short_name"`
	IconURL   *string `json:"icon_url"`
}

// MatchScore carries the final score and status of a match.
type MatchScore struct {
	Home   int         `json:"home"`
	Away   int         `json:"away"`
	Status MatchStatus `json:"status"`
}

// MatchDetail is the canonical representation of a match. DateTime holds
// an RFC 3339 timestamp when the upstream value parses, otherwise the raw
// upstream string.
type MatchDetail struct {
	ID         int        `json:"id"`
	LeagueName string     `json:"league_name"`
	DateTime   string     `json:"date_time"`
	TeamHome   TeamDetail `json:"team_home"`
	TeamAway   TeamDetail `json:"team_away"`
	Score      MatchScore `json:"score"`
	IsFinished bool       `json:"is_finished"`
}

// ListLeaguesResponse is the normalized output of the ListLeagues operation.
type ListLeaguesResponse struct {
	Leagues []LeagueSummary `json:"leagues"`
}

// GetLeagueMatchesResponse is the normalized output of the GetLeagueMatches operation.
type GetLeagueMatchesResponse struct {
	Matches []MatchDetail `json:"matches"`
}

// GetTeamResponse is the normalized output of the GetTeam operation.
type GetTeamResponse struct {
	Team TeamDetail `json:"team"`
}

// GetMatchResponse is the normalized output of the GetMatch operation.
type GetMatchResponse struct {
	Match MatchDetail `json:"match"`
}
