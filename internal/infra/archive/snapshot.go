package archive

import (
	"context"
	"fmt"

	"cybermaze-gateway/internal/domain"
)

// Snapshot is the query-ready view of one exported competition. It is
// built once from the raw tables and never mutated afterwards: all
// derived fields (scores, solve counts, attachments) are computed here
// and the lookup maps stay consistent with the source slices for the
// lifetime of the process.
type Snapshot struct {
	info domain.EventInfo

	challenges []challengeRecord
	users      []userRecord
	teams      []teamRecord
	solves     []ExportSolve

	challengeByID map[int]*challengeRecord
	userByID      map[int]*userRecord
	teamByID      map[int]*teamRecord

	flagsByChallenge map[int][]ExportFlag
}

type challengeRecord struct {
	ExportChallenge
	Solves int
	Files  []string
}

type userRecord struct {
	ExportUser
	Score      int
	SolveCount int
	// solvedChallenges preserves solve order with duplicates removed.
	solvedChallenges []int
}

type teamRecord struct {
	ExportTeam
	Score      int
	SolveCount int
}

// BuildSnapshot loads the export through the given loader and derives
// all computed fields.
func BuildSnapshot(ctx context.Context, loader SnapshotLoader) (*Snapshot, error) {
	export, err := loader.LoadExport(ctx)
	if err != nil {
		return nil, fmt.Errorf("load archive export: %w", err)
	}
	return newSnapshot(export), nil
}

func newSnapshot(export Export) *Snapshot {
	s := &Snapshot{
		info:             export.EventInfo(),
		solves:           export.Solves,
		challengeByID:    make(map[int]*challengeRecord, len(export.Challenges)),
		userByID:         make(map[int]*userRecord, len(export.Users)),
		teamByID:         make(map[int]*teamRecord, len(export.Teams)),
		flagsByChallenge: make(map[int][]ExportFlag, len(export.Flags)),
	}

	s.challenges = make([]challengeRecord, len(export.Challenges))
	for i, c := range export.Challenges {
		s.challenges[i] = challengeRecord{ExportChallenge: c, Files: []string{}}
		s.challengeByID[c.ID] = &s.challenges[i]
	}
	s.users = make([]userRecord, len(export.Users))
	for i, u := range export.Users {
		s.users[i] = userRecord{ExportUser: u}
		s.userByID[u.ID] = &s.users[i]
	}
	s.teams = make([]teamRecord, len(export.Teams))
	for i, t := range export.Teams {
		s.teams[i] = teamRecord{ExportTeam: t}
		s.teamByID[t.ID] = &s.teams[i]
	}

	for _, f := range export.Flags {
		s.flagsByChallenge[f.ChallengeID] = append(s.flagsByChallenge[f.ChallengeID], f)
	}
	for _, f := range export.Files {
		if c, ok := s.challengeByID[f.ChallengeID]; ok {
			c.Files = append(c.Files, "/files/"+f.Location)
		}
	}

	s.deriveScores()
	s.deriveSolveCounts()
	return s
}

// deriveScores computes team and user scores as the sum of distinct
// solved challenges' values. Duplicate solve rows for the same
// challenge contribute exactly once.
func (s *Snapshot) deriveScores() {
	teamSeen := make(map[int]map[int]struct{})
	userSeen := make(map[int]map[int]struct{})

	for _, solve := range s.solves {
		if solve.TeamID != nil {
			if team, ok := s.teamByID[*solve.TeamID]; ok {
				if markSolved(teamSeen, team.ID, solve.ChallengeID) {
					team.SolveCount++
					if c, ok := s.challengeByID[solve.ChallengeID]; ok {
						team.Score += c.Value
					}
				}
			}
		}
		if user, ok := s.userByID[solve.UserID]; ok {
			if markSolved(userSeen, user.ID, solve.ChallengeID) {
				user.SolveCount++
				user.solvedChallenges = append(user.solvedChallenges, solve.ChallengeID)
				if c, ok := s.challengeByID[solve.ChallengeID]; ok {
					user.Score += c.Value
				}
			}
		}
	}
}

// deriveSolveCounts computes per-challenge solve counts as the number
// of distinct solving accounts: teams in team mode, users otherwise.
func (s *Snapshot) deriveSolveCounts() {
	seen := make(map[int]map[int]struct{})
	for _, solve := range s.solves {
		account := solve.UserID
		if s.info.Mode == domain.ModeTeams {
			if solve.TeamID == nil {
				continue
			}
			account = *solve.TeamID
		}
		if markSolved(seen, solve.ChallengeID, account) {
			if c, ok := s.challengeByID[solve.ChallengeID]; ok {
				c.Solves++
			}
		}
	}
}

// markSolved records (owner, item) in the two-level set and reports
// whether it was newly added.
func markSolved(seen map[int]map[int]struct{}, owner, item int) bool {
	items, ok := seen[owner]
	if !ok {
		items = make(map[int]struct{})
		seen[owner] = items
	}
	if _, dup := items[item]; dup {
		return false
	}
	items[item] = struct{}{}
	return true
}

func (s *Snapshot) EventInfo() domain.EventInfo {
	return s.info
}
