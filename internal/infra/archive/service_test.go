package archive

import (
	"context"
	"errors"
	"strings"
	"testing"

	"cybermaze-gateway/internal/domain"
)

func newTestService() *Service {
	return NewService(newSnapshot(sampleExport()), 0)
}

func TestListChallengesForcesVisibility(t *testing.T) {
	ctx := context.Background()
	service := newTestService()

	challenges, err := service.ListChallenges(ctx)
	if err != nil {
		t.Fatalf("list challenges: %v", err)
	}
	if len(challenges) != 2 {
		t.Fatalf("expected 2 challenges, got %d", len(challenges))
	}
	for _, c := range challenges {
		if c.State != "visible" {
			t.Fatalf("expected challenge %d forced visible, got %q", c.ID, c.State)
		}
		if c.Requirements != nil {
			t.Fatalf("expected requirements cleared on challenge %d, got %v", c.ID, c.Requirements)
		}
		if c.SolvedByMe {
			t.Fatalf("archive has no identity, solved_by_me must be false")
		}
		if c.Tags == nil {
			t.Fatalf("tags must default to empty, not nil")
		}
	}
}

func TestGetChallengeIncludesFiles(t *testing.T) {
	ctx := context.Background()
	service := newTestService()

	challenge, err := service.GetChallenge(ctx, 5)
	if err != nil {
		t.Fatalf("get challenge: %v", err)
	}
	if len(challenge.Files) != 1 || challenge.Files[0] != "/files/uploads/a.zip" {
		t.Fatalf("expected attached file, got %v", challenge.Files)
	}
}

func TestGetChallengeNotFound(t *testing.T) {
	ctx := context.Background()
	service := newTestService()

	_, err := service.GetChallenge(ctx, 999)
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not-found error, got %v", err)
	}
}

func TestGetChallengeSolvesDistinctTeams(t *testing.T) {
	ctx := context.Background()
	service := newTestService()

	solvers, err := service.GetChallengeSolves(ctx, 5)
	if err != nil {
		t.Fatalf("get challenge solves: %v", err)
	}
	if len(solvers) != 2 {
		t.Fatalf("expected 2 distinct solving teams, got %d", len(solvers))
	}
	if solvers[0].Name != "Alpha" || solvers[1].Name != "Bravo" {
		t.Fatalf("expected solve order preserved, got %+v", solvers)
	}
}

func TestSubmitFlagNeverMutates(t *testing.T) {
	ctx := context.Background()
	service := newTestService()

	before, _ := service.GetScoreboard(ctx)

	result, err := service.SubmitFlag(ctx, 5, "wrongflag")
	if err != nil {
		t.Fatalf("submit flag: %v", err)
	}
	if result.Status != "archived" {
		t.Fatalf("expected archived status, got %q", result.Status)
	}
	if result.Correct {
		t.Fatalf("wrong flag must not be correct")
	}
	if !strings.Contains(result.Message, "disabled") {
		t.Fatalf("expected message to mention disabled submission, got %q", result.Message)
	}

	// Submitting again, correct or not, leaves observable state identical.
	if _, err := service.SubmitFlag(ctx, 5, "flag{warmup}"); err != nil {
		t.Fatalf("submit flag: %v", err)
	}
	after, _ := service.GetScoreboard(ctx)
	if len(before) != len(after) {
		t.Fatalf("scoreboard changed after submissions")
	}
	for i := range before {
		if before[i] != after[i] {
			t.Fatalf("scoreboard row %d changed: %+v vs %+v", i, before[i], after[i])
		}
	}
}

func TestSubmitFlagEvaluatesArchivedFlag(t *testing.T) {
	ctx := context.Background()
	service := newTestService()

	result, err := service.SubmitFlag(ctx, 5, "flag{warmup}")
	if err != nil {
		t.Fatalf("submit flag: %v", err)
	}
	if !result.Correct {
		t.Fatalf("expected exact match to be correct")
	}
	if !strings.Contains(result.Message, "disabled") {
		t.Fatalf("correct submissions still report disabled status, got %q", result.Message)
	}
}

func TestSubmitFlagCaseInsensitiveMode(t *testing.T) {
	ctx := context.Background()
	service := newTestService()

	result, err := service.SubmitFlag(ctx, 6, "flag{pwnbox}")
	if err != nil {
		t.Fatalf("submit flag: %v", err)
	}
	if !result.Correct {
		t.Fatalf("expected case-insensitive match to be correct")
	}

	exact, err := service.SubmitFlag(ctx, 5, "FLAG{WARMUP}")
	if err != nil {
		t.Fatalf("submit flag: %v", err)
	}
	if exact.Correct {
		t.Fatalf("exact-mode flag must not match case-insensitively")
	}
}

func TestScoreboardRanksAndFiltersHidden(t *testing.T) {
	ctx := context.Background()
	service := newTestService()

	rows, err := service.GetScoreboard(ctx)
	if err != nil {
		t.Fatalf("scoreboard: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected hidden team excluded, got %d rows", len(rows))
	}
	if rows[0].Name != "Bravo" || rows[0].Score != 300 || rows[0].Pos != 1 {
		t.Fatalf("unexpected leader: %+v", rows[0])
	}
	if rows[1].Name != "Alpha" || rows[1].Pos != 2 {
		t.Fatalf("unexpected runner-up: %+v", rows[1])
	}
}

func TestScoreboardTieKeepsInputOrder(t *testing.T) {
	export := Export{
		Challenges: []ExportChallenge{{ID: 1, Name: "only", Value: 300}},
		Teams: []ExportTeam{
			{ID: 1, Name: "First"},
			{ID: 2, Name: "Second"},
		},
		Users: []ExportUser{
			{ID: 10, Name: "a", TeamID: intPtr(1)},
			{ID: 20, Name: "b", TeamID: intPtr(2)},
		},
		Solves: []ExportSolve{
			{ChallengeID: 1, UserID: 10, TeamID: intPtr(1)},
			{ChallengeID: 1, UserID: 20, TeamID: intPtr(2)},
		},
	}
	service := NewService(newSnapshot(export), 0)

	rows, err := service.GetScoreboard(context.Background())
	if err != nil {
		t.Fatalf("scoreboard: %v", err)
	}
	if rows[0].Name != "First" || rows[1].Name != "Second" {
		t.Fatalf("tied teams must keep export order, got %+v", rows)
	}
}

func TestScoreboardUsesUsersInUserMode(t *testing.T) {
	export := sampleExport()
	export.Config = []ExportConfig{{Key: "user_mode", Value: domain.ModeUsers}}
	service := NewService(newSnapshot(export), 0)

	rows, err := service.GetScoreboard(context.Background())
	if err != nil {
		t.Fatalf("scoreboard: %v", err)
	}
	// Hidden user excluded; carol (300) leads alice and bob (100 each).
	if len(rows) != 3 {
		t.Fatalf("expected 3 visible users, got %d", len(rows))
	}
	if rows[0].Name != "carol" {
		t.Fatalf("expected carol leading, got %+v", rows[0])
	}
}

func TestGetTeamResolvesMembers(t *testing.T) {
	ctx := context.Background()
	service := newTestService()

	team, err := service.GetTeam(ctx, 1)
	if err != nil {
		t.Fatalf("get team: %v", err)
	}
	if len(team.Members) != 2 {
		t.Fatalf("expected 2 members, got %d", len(team.Members))
	}
	if team.Members[0].Name != "alice" || team.Members[0].Score != 100 {
		t.Fatalf("expected resolved member summary, got %+v", team.Members[0])
	}
	if team.CaptainID == nil || *team.CaptainID != 11 {
		t.Fatalf("expected captain 11, got %v", team.CaptainID)
	}
}

func TestGetTeamDropsUnresolvableMembers(t *testing.T) {
	export := sampleExport()
	// Roster carries a bare id with no matching user row.
	export.Teams[0].Members = []int{11, 999}
	service := NewService(newSnapshot(export), 0)

	team, err := service.GetTeam(context.Background(), 1)
	if err != nil {
		t.Fatalf("get team: %v", err)
	}
	for _, m := range team.Members {
		if m.ID == 999 {
			t.Fatalf("unresolvable member must be dropped, got %+v", team.Members)
		}
	}
	if len(team.Members) != 2 {
		t.Fatalf("expected remaining members returned, got %+v", team.Members)
	}
}

func TestGetUserSolvesJoinsChallenges(t *testing.T) {
	ctx := context.Background()
	service := newTestService()

	solves, err := service.GetUserSolves(ctx, 13)
	if err != nil {
		t.Fatalf("get user solves: %v", err)
	}
	if len(solves) != 2 {
		t.Fatalf("expected 2 distinct solves, got %d", len(solves))
	}
	if solves[0].Challenge.Name != "warmup" || solves[0].Challenge.Value != 100 {
		t.Fatalf("expected joined challenge metadata, got %+v", solves[0])
	}
	if solves[0].Date != nil {
		t.Fatalf("archive exports carry no timestamps")
	}
}

func TestHiddenEntitiesExcluded(t *testing.T) {
	ctx := context.Background()
	service := newTestService()

	users, _ := service.ListUsers(ctx)
	for _, u := range users {
		if u.Name == "ghost" {
			t.Fatalf("hidden user leaked into listing")
		}
	}
	teams, _ := service.ListTeams(ctx)
	for _, team := range teams {
		if team.Name == "Ghosts" {
			t.Fatalf("hidden team leaked into listing")
		}
	}
	if _, err := service.GetUser(ctx, 14); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected hidden user to read as not found, got %v", err)
	}
}

func TestMutatingOperationsDisabled(t *testing.T) {
	ctx := context.Background()
	service := newTestService()

	if _, err := service.Login(ctx, "a", "b"); !errors.Is(err, domain.ErrDisabled) {
		t.Fatalf("expected disabled login, got %v", err)
	}
	if _, err := service.Register(ctx, "a", "a@b.c", "pw", ""); !errors.Is(err, domain.ErrDisabled) {
		t.Fatalf("expected disabled register, got %v", err)
	}
	if err := service.CreateTeam(ctx, "x", "y"); !errors.Is(err, domain.ErrDisabled) {
		t.Fatalf("expected disabled create team, got %v", err)
	}
	if err := service.JoinTeam(ctx, "x", "y"); !errors.Is(err, domain.ErrDisabled) {
		t.Fatalf("expected disabled join team, got %v", err)
	}
	if err := service.LeaveTeam(ctx); !errors.Is(err, domain.ErrDisabled) {
		t.Fatalf("expected disabled leave team, got %v", err)
	}
	if err := service.UpdateProfile(ctx, domain.ProfileUpdate{Name: "x"}); !errors.Is(err, domain.ErrDisabled) {
		t.Fatalf("expected disabled profile update, got %v", err)
	}
	if err := service.Logout(ctx); err != nil {
		t.Fatalf("logout is a harmless no-op, got %v", err)
	}
}

func TestNoArchivedIdentity(t *testing.T) {
	ctx := context.Background()
	service := newTestService()

	user, err := service.CheckAuth(ctx)
	if err != nil || user != nil {
		t.Fatalf("expected no identity, got user=%v err=%v", user, err)
	}
	if _, err := service.CurrentUser(ctx); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("expected unauthorized current user, got %v", err)
	}
	awards, err := service.GetUserAwards(ctx, 11)
	if err != nil || len(awards) != 0 {
		t.Fatalf("expected empty awards, got %v err=%v", awards, err)
	}
	notifications, err := service.GetNotifications(ctx, 0)
	if err != nil || len(notifications) != 0 {
		t.Fatalf("expected empty notifications, got %v err=%v", notifications, err)
	}
}

func intPtr(v int) *int { return &v }
