package app

import (
	"context"

	"cybermaze-gateway/internal/domain"
)

// Client is the uniform operation set the UI is written against.
// Both data sources implement it in full: the archive service answers
// from an in-memory snapshot, the live client translates each call
// into a platform request. List operations never return a nil slice.
type Client interface {
	ListChallenges(ctx context.Context) ([]domain.ChallengeSummary, error)
	GetChallenge(ctx context.Context, id int) (domain.Challenge, error)
	GetChallengeSolves(ctx context.Context, id int) ([]domain.Solver, error)
	SubmitFlag(ctx context.Context, challengeID int, submission string) (domain.SubmissionResult, error)

	GetScoreboard(ctx context.Context) ([]domain.ScoreboardRow, error)

	ListUsers(ctx context.Context) ([]domain.UserSummary, error)
	GetUser(ctx context.Context, id int) (domain.User, error)
	GetUserSolves(ctx context.Context, id int) ([]domain.SolveRecord, error)
	GetUserAwards(ctx context.Context, id int) ([]domain.Award, error)

	ListTeams(ctx context.Context) ([]domain.TeamSummary, error)
	GetTeam(ctx context.Context, id int) (domain.Team, error)

	GetConfig(ctx context.Context) (domain.EventInfo, error)
	GetNotifications(ctx context.Context, sinceID int) ([]domain.Notification, error)

	// CheckAuth reports the current identity, or nil when there is none.
	// It never fails hard: an unauthenticated session is not an error.
	CheckAuth(ctx context.Context) (*domain.SessionUser, error)
	CurrentUser(ctx context.Context) (domain.SessionUser, error)

	Login(ctx context.Context, name, password string) (domain.SessionUser, error)
	Register(ctx context.Context, name, email, password, registrationCode string) (domain.SessionUser, error)
	Logout(ctx context.Context) error

	CreateTeam(ctx context.Context, name, password string) error
	JoinTeam(ctx context.Context, name, password string) error
	LeaveTeam(ctx context.Context) error
	UpdateProfile(ctx context.Context, update domain.ProfileUpdate) error
}

// PlatformOps are operations with no archive-safe equivalent: API
// tokens and whale container lifecycle are meaningless against a
// frozen snapshot, so they always talk to the live platform. In
// archive deployments callers treat their failure as expected.
type PlatformOps interface {
	ListTokens(ctx context.Context) ([]domain.Token, error)
	CreateToken(ctx context.Context, expiration string) (domain.Token, error)
	DeleteToken(ctx context.Context, id int) error

	GetContainer(ctx context.Context, challengeID int) (domain.ContainerInfo, error)
	CreateContainer(ctx context.Context, challengeID int) (domain.ContainerInfo, error)
	RenewContainer(ctx context.Context, challengeID int) (domain.ContainerInfo, error)
	DestroyContainer(ctx context.Context) error
}
