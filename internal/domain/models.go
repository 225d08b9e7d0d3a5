package domain

import "time"

// ChallengeSummary is the list-view shape of a challenge.
type ChallengeSummary struct {
	ID         int      `json:"id"`
	Type       string   `json:"type"`
	Name       string   `json:"name"`
	Value      int      `json:"value"`
	Solves     int      `json:"solves"`
	SolvedByMe bool     `json:"solved_by_me"`
	Category   string   `json:"category"`
	Tags       []string `json:"tags"`
	State      string   `json:"state"`
	// Requirements lists prerequisite challenge IDs. Nil means unlocked.
	Requirements []int `json:"requirements"`
}

// Challenge is the detail-view shape, including attached files.
type Challenge struct {
	ChallengeSummary
	Description string   `json:"description,omitempty"`
	Files       []string `json:"files"`
	MaxAttempts int      `json:"max_attempts,omitempty"`
}

// Solver identifies one account that solved a challenge.
type Solver struct {
	AccountID int        `json:"account_id"`
	Name      string     `json:"name"`
	Date      *time.Time `json:"date"`
}

// SubmissionResult is the outcome of a flag submission.
// In archive mode Status is always "archived" and no state changes.
type SubmissionResult struct {
	Status  string `json:"status"`
	Correct bool   `json:"correct"`
	Message string `json:"message"`
}

// ScoreboardRow is one ranked account on the scoreboard.
type ScoreboardRow struct {
	Pos       int    `json:"pos"`
	AccountID int    `json:"account_id"`
	Name      string `json:"name"`
	Score     int    `json:"score"`
}

// UserSummary is the list-view shape of a user.
type UserSummary struct {
	ID     int    `json:"id"`
	Name   string `json:"name"`
	Score  int    `json:"score"`
	TeamID *int   `json:"team_id"`
}

// User is the profile-view shape of a user.
type User struct {
	UserSummary
	Website     string `json:"website,omitempty"`
	Affiliation string `json:"affiliation,omitempty"`
	Country     string `json:"country,omitempty"`
}

// TeamSummary is the list-view shape of a team.
type TeamSummary struct {
	ID    int    `json:"id"`
	Name  string `json:"name"`
	Score int    `json:"score"`
}

// TeamMember is a resolved member entry on a team profile.
type TeamMember struct {
	ID    int    `json:"id"`
	Name  string `json:"name"`
	Score int    `json:"score"`
}

// Team is the profile-view shape of a team with resolved members.
type Team struct {
	TeamSummary
	CaptainID   *int         `json:"captain_id"`
	Members     []TeamMember `json:"members"`
	Website     string       `json:"website,omitempty"`
	Affiliation string       `json:"affiliation,omitempty"`
	Country     string       `json:"country,omitempty"`
}

// SolveRecord joins a solve with the challenge it refers to.
type SolveRecord struct {
	ChallengeID int             `json:"challenge_id"`
	Challenge   SolvedChallenge `json:"challenge"`
	Date        *time.Time      `json:"date"`
}

// SolvedChallenge is the challenge metadata embedded in a solve record.
type SolvedChallenge struct {
	ID       int    `json:"id"`
	Name     string `json:"name"`
	Value    int    `json:"value"`
	Category string `json:"category"`
}

// Award is a bonus score adjustment granted outside of solves.
type Award struct {
	ID    int    `json:"id"`
	Name  string `json:"name"`
	Value int    `json:"value"`
}

// SessionUser is the authenticated identity reported by the platform.
type SessionUser struct {
	ID     int    `json:"id"`
	Name   string `json:"name"`
	Email  string `json:"email,omitempty"`
	TeamID *int   `json:"team_id"`
	Admin  bool   `json:"admin"`
}

// ProfileUpdate carries the mutable profile fields of the current user.
type ProfileUpdate struct {
	Name        string `json:"name,omitempty"`
	Email       string `json:"email,omitempty"`
	Website     string `json:"website,omitempty"`
	Affiliation string `json:"affiliation,omitempty"`
	Country     string `json:"country,omitempty"`
	Password    string `json:"password,omitempty"`
}

// Notification is a broadcast message from the platform.
type Notification struct {
	ID      int    `json:"id"`
	Title   string `json:"title"`
	Content string `json:"content"`
	Date    string `json:"date,omitempty"`
}

// Token is an API access token owned by the current user.
type Token struct {
	ID         int    `json:"id"`
	Value      string `json:"value,omitempty"`
	Expiration string `json:"expiration,omitempty"`
}

// ContainerInfo describes a per-competitor challenge instance managed
// by the platform's whale plugin.
type ContainerInfo struct {
	ChallengeID int    `json:"challenge_id"`
	Status      string `json:"status"`
	Entry       string `json:"entry,omitempty"`
	RemainTime  int    `json:"remaining_time,omitempty"`
}

// EventInfo is the competition-wide configuration surfaced to the UI.
type EventInfo struct {
	Name string `json:"ctf_name"`
	// Mode is "teams" or "users"; it decides which accounts the
	// scoreboard ranks and how solve counts are deduplicated.
	Mode string `json:"user_mode"`
}

const (
	ModeTeams = "teams"
	ModeUsers = "users"
)

// EventWindow is the injected host-page configuration: competition
// timing, score-hiding ("dark hour") and viewer privileges. It is an
// opaque external input; nothing here is derived by this service.
type EventWindow struct {
	Start         *time.Time `json:"start"`
	End           *time.Time `json:"end"`
	Paused        bool       `json:"paused"`
	ScoresHidden  bool       `json:"scores_hidden"`
	ViewerIsAdmin bool       `json:"viewer_is_admin"`
}
