package archive

import (
	"testing"

	"cybermaze-gateway/internal/domain"
)

func TestSnapshotDerivesScoresOnce(t *testing.T) {
	snapshot := newSnapshot(sampleExport())

	team, ok := snapshot.teamByID[1]
	if !ok {
		t.Fatalf("expected team 1 in index")
	}
	// Three solve rows for challenge 5 (two users, one duplicate) must
	// contribute its value exactly once.
	if team.Score != 100 {
		t.Fatalf("expected team score 100, got %d", team.Score)
	}
	if team.SolveCount != 1 {
		t.Fatalf("expected 1 distinct team solve, got %d", team.SolveCount)
	}

	rival, ok := snapshot.teamByID[2]
	if !ok {
		t.Fatalf("expected team 2 in index")
	}
	if rival.Score != 300 {
		t.Fatalf("expected team score 300, got %d", rival.Score)
	}
}

func TestSnapshotDerivesUserScores(t *testing.T) {
	snapshot := newSnapshot(sampleExport())

	user, ok := snapshot.userByID[11]
	if !ok {
		t.Fatalf("expected user 11 in index")
	}
	if user.Score != 100 || user.SolveCount != 1 {
		t.Fatalf("expected user 11 score 100 with 1 solve, got score=%d solves=%d", user.Score, user.SolveCount)
	}

	solver, ok := snapshot.userByID[13]
	if !ok {
		t.Fatalf("expected user 13 in index")
	}
	if solver.Score != 300 || solver.SolveCount != 2 {
		t.Fatalf("expected user 13 score 300 with 2 solves, got score=%d solves=%d", solver.Score, solver.SolveCount)
	}
}

func TestSnapshotChallengeSolveCountsDistinctTeams(t *testing.T) {
	snapshot := newSnapshot(sampleExport())

	c, ok := snapshot.challengeByID[5]
	if !ok {
		t.Fatalf("expected challenge 5 in index")
	}
	// Four solve rows for challenge 5 across two teams.
	if c.Solves != 2 {
		t.Fatalf("expected 2 distinct solving teams, got %d", c.Solves)
	}
}

func TestSnapshotSolveCountsByUserInUserMode(t *testing.T) {
	export := sampleExport()
	export.Config = []ExportConfig{
		{Key: "ctf_name", Value: "Test CTF"},
		{Key: "user_mode", Value: domain.ModeUsers},
	}
	snapshot := newSnapshot(export)

	c := snapshot.challengeByID[5]
	// Users 11, 12 and 13 each solved challenge 5.
	if c.Solves != 3 {
		t.Fatalf("expected 3 distinct solving users, got %d", c.Solves)
	}
}

func TestSnapshotAttachesFiles(t *testing.T) {
	snapshot := newSnapshot(sampleExport())

	c := snapshot.challengeByID[5]
	if len(c.Files) != 1 || c.Files[0] != "/files/uploads/a.zip" {
		t.Fatalf("expected one attached file, got %v", c.Files)
	}
	if other := snapshot.challengeByID[6]; len(other.Files) != 0 {
		t.Fatalf("expected no files on challenge 6, got %v", other.Files)
	}
}

func TestEventInfoFromConfigRows(t *testing.T) {
	snapshot := newSnapshot(sampleExport())

	info := snapshot.EventInfo()
	if info.Name != "Test CTF" || info.Mode != domain.ModeTeams {
		t.Fatalf("unexpected event info: %+v", info)
	}
}

// sampleExport covers the scoring edge cases: duplicate solve rows,
// multiple users on one team solving the same challenge, and a hidden
// team and user.
func sampleExport() Export {
	team1, team2, team3 := 1, 2, 3
	captain := 11
	return Export{
		Challenges: []ExportChallenge{
			{ID: 5, Type: "standard", Name: "warmup", Value: 100, Category: "misc", State: "hidden", Requirements: []int{4}},
			{ID: 6, Type: "dynamic", Name: "pwnbox", Value: 200, Category: "pwn", State: "visible"},
		},
		Users: []ExportUser{
			{ID: 11, Name: "alice", TeamID: &team1},
			{ID: 12, Name: "bob", TeamID: &team1},
			{ID: 13, Name: "carol", TeamID: &team2},
			{ID: 14, Name: "ghost", TeamID: &team3, Hidden: true},
		},
		Teams: []ExportTeam{
			{ID: 1, Name: "Alpha", CaptainID: &captain},
			{ID: 2, Name: "Bravo"},
			{ID: 3, Name: "Ghosts", Hidden: true},
		},
		Solves: []ExportSolve{
			{ChallengeID: 5, UserID: 11, TeamID: &team1},
			{ChallengeID: 5, UserID: 11, TeamID: &team1}, // duplicate row
			{ChallengeID: 5, UserID: 12, TeamID: &team1},
			{ChallengeID: 5, UserID: 13, TeamID: &team2},
			{ChallengeID: 6, UserID: 13, TeamID: &team2},
		},
		Flags: []ExportFlag{
			{ChallengeID: 5, Content: "flag{warmup}"},
			{ChallengeID: 6, Content: "FLAG{PwnBox}", Data: "case_insensitive"},
		},
		Files: []ExportFile{
			{ChallengeID: 5, Location: "uploads/a.zip"},
		},
		Config: []ExportConfig{
			{Key: "ctf_name", Value: "Test CTF"},
			{Key: "user_mode", Value: "teams"},
		},
	}
}
