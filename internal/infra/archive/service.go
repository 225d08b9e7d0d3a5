package archive

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"cybermaze-gateway/internal/domain"
	"golang.org/x/sync/errgroup"
)

// Service answers the uniform client contract from an immutable
// snapshot of a finished competition. Every challenge is explorable
// (visibility forced, unlock requirements cleared), every mutating
// operation reports the archived status, and no call touches the
// network. A small configurable delay keeps loading-state UI code
// exercised the same way as in live mode.
type Service struct {
	snapshot *Snapshot
	delay    time.Duration
}

func NewService(snapshot *Snapshot, delay time.Duration) *Service {
	return &Service{snapshot: snapshot, delay: delay}
}

// pause simulates network latency without blocking past cancellation.
func (s *Service) pause(ctx context.Context) error {
	if s.delay <= 0 {
		return nil
	}
	timer := time.NewTimer(s.delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (s *Service) ListChallenges(ctx context.Context) ([]domain.ChallengeSummary, error) {
	if err := s.pause(ctx); err != nil {
		return nil, err
	}
	out := make([]domain.ChallengeSummary, 0, len(s.snapshot.challenges))
	for i := range s.snapshot.challenges {
		out = append(out, s.challengeSummary(&s.snapshot.challenges[i]))
	}
	return out, nil
}

// challengeSummary shapes a record for the UI: in the archive every
// challenge is visible and unlocked, and there is no archived identity
// so "solved by me" is always false.
func (s *Service) challengeSummary(c *challengeRecord) domain.ChallengeSummary {
	return domain.ChallengeSummary{
		ID:           c.ID,
		Type:         c.Type,
		Name:         c.Name,
		Value:        c.Value,
		Solves:       c.Solves,
		SolvedByMe:   false,
		Category:     c.Category,
		Tags:         []string{},
		State:        "visible",
		Requirements: nil,
	}
}

func (s *Service) GetChallenge(ctx context.Context, id int) (domain.Challenge, error) {
	if err := s.pause(ctx); err != nil {
		return domain.Challenge{}, err
	}
	c, ok := s.snapshot.challengeByID[id]
	if !ok {
		return domain.Challenge{}, fmt.Errorf("challenge %d: %w", id, domain.ErrNotFound)
	}
	return domain.Challenge{
		ChallengeSummary: s.challengeSummary(c),
		Description:      c.Description,
		Files:            c.Files,
		MaxAttempts:      c.MaxAttempts,
	}, nil
}

func (s *Service) GetChallengeSolves(ctx context.Context, id int) ([]domain.Solver, error) {
	if err := s.pause(ctx); err != nil {
		return nil, err
	}
	if _, ok := s.snapshot.challengeByID[id]; !ok {
		return nil, fmt.Errorf("challenge %d: %w", id, domain.ErrNotFound)
	}

	solvers := []domain.Solver{}
	seen := make(map[int]struct{})
	for _, solve := range s.snapshot.solves {
		if solve.ChallengeID != id {
			continue
		}
		account, name, ok := s.solverIdentity(solve)
		if !ok {
			continue
		}
		if _, dup := seen[account]; dup {
			continue
		}
		seen[account] = struct{}{}
		solvers = append(solvers, domain.Solver{AccountID: account, Name: name})
	}
	return solvers, nil
}

func (s *Service) solverIdentity(solve ExportSolve) (int, string, bool) {
	if s.snapshot.info.Mode == domain.ModeTeams {
		if solve.TeamID == nil {
			return 0, "", false
		}
		team, ok := s.snapshot.teamByID[*solve.TeamID]
		if !ok || team.Hidden {
			return 0, "", false
		}
		return team.ID, team.Name, true
	}
	user, ok := s.snapshot.userByID[solve.UserID]
	if !ok || user.Hidden {
		return 0, "", false
	}
	return user.ID, user.Name, true
}

// SubmitFlag never mutates state. It evaluates the submission against
// the archived flag records purely so the UI can tell the visitor
// whether their answer would have counted.
func (s *Service) SubmitFlag(ctx context.Context, challengeID int, submission string) (domain.SubmissionResult, error) {
	if err := s.pause(ctx); err != nil {
		return domain.SubmissionResult{}, err
	}
	c, ok := s.snapshot.challengeByID[challengeID]
	if !ok {
		return domain.SubmissionResult{}, fmt.Errorf("challenge %d: %w", challengeID, domain.ErrNotFound)
	}

	correct := false
	for _, flag := range s.snapshot.flagsByChallenge[challengeID] {
		if flagMatches(flag, submission) {
			correct = true
			break
		}
	}

	result := domain.SubmissionResult{Status: "archived", Correct: correct}
	if correct {
		result.Message = fmt.Sprintf(
			"Correct! %d %s solved this challenge during the event. Submission is disabled in the archive.",
			c.Solves, accountNoun(s.snapshot.info.Mode, c.Solves))
	} else {
		result.Message = "This is an archived event. Flag submission is disabled, and this flag appears to be incorrect."
	}
	return result, nil
}

func flagMatches(flag ExportFlag, submission string) bool {
	if flag.Data == "case_insensitive" {
		return strings.EqualFold(flag.Content, submission)
	}
	return flag.Content == submission
}

func accountNoun(mode string, n int) string {
	noun := "team"
	if mode == domain.ModeUsers {
		noun = "user"
	}
	if n != 1 {
		noun += "s"
	}
	return noun
}

// GetScoreboard ranks visible accounts by derived score, descending.
// Ties keep the export's original relative order and the rank field is
// the 1-based position in the sorted, filtered list.
func (s *Service) GetScoreboard(ctx context.Context) ([]domain.ScoreboardRow, error) {
	if err := s.pause(ctx); err != nil {
		return nil, err
	}

	rows := []domain.ScoreboardRow{}
	if s.snapshot.info.Mode == domain.ModeTeams {
		for i := range s.snapshot.teams {
			team := &s.snapshot.teams[i]
			if team.Hidden {
				continue
			}
			rows = append(rows, domain.ScoreboardRow{AccountID: team.ID, Name: team.Name, Score: team.Score})
		}
	} else {
		for i := range s.snapshot.users {
			user := &s.snapshot.users[i]
			if user.Hidden {
				continue
			}
			rows = append(rows, domain.ScoreboardRow{AccountID: user.ID, Name: user.Name, Score: user.Score})
		}
	}

	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].Score > rows[j].Score
	})
	for i := range rows {
		rows[i].Pos = i + 1
	}
	return rows, nil
}

func (s *Service) ListUsers(ctx context.Context) ([]domain.UserSummary, error) {
	if err := s.pause(ctx); err != nil {
		return nil, err
	}
	out := []domain.UserSummary{}
	for i := range s.snapshot.users {
		user := &s.snapshot.users[i]
		if user.Hidden {
			continue
		}
		out = append(out, domain.UserSummary{
			ID:     user.ID,
			Name:   user.Name,
			Score:  user.Score,
			TeamID: user.TeamID,
		})
	}
	return out, nil
}

func (s *Service) GetUser(ctx context.Context, id int) (domain.User, error) {
	if err := s.pause(ctx); err != nil {
		return domain.User{}, err
	}
	user, ok := s.snapshot.userByID[id]
	if !ok || user.Hidden {
		return domain.User{}, fmt.Errorf("user %d: %w", id, domain.ErrNotFound)
	}
	return domain.User{
		UserSummary: domain.UserSummary{
			ID:     user.ID,
			Name:   user.Name,
			Score:  user.Score,
			TeamID: user.TeamID,
		},
		Website:     user.Website,
		Affiliation: user.Affiliation,
		Country:     user.Country,
	}, nil
}

// GetUserSolves returns the user's distinct-challenge solve history
// joined with challenge metadata. Solves whose challenge cannot be
// resolved are dropped; exports carry no timestamps, so Date is nil.
func (s *Service) GetUserSolves(ctx context.Context, id int) ([]domain.SolveRecord, error) {
	if err := s.pause(ctx); err != nil {
		return nil, err
	}
	records := []domain.SolveRecord{}
	user, ok := s.snapshot.userByID[id]
	if !ok {
		return records, nil
	}
	for _, challengeID := range user.solvedChallenges {
		c, ok := s.snapshot.challengeByID[challengeID]
		if !ok {
			continue
		}
		records = append(records, domain.SolveRecord{
			ChallengeID: challengeID,
			Challenge: domain.SolvedChallenge{
				ID:       c.ID,
				Name:     c.Name,
				Value:    c.Value,
				Category: c.Category,
			},
		})
	}
	return records, nil
}

// GetUserAwards is always empty: awards are not part of the export.
func (s *Service) GetUserAwards(ctx context.Context, _ int) ([]domain.Award, error) {
	if err := s.pause(ctx); err != nil {
		return nil, err
	}
	return []domain.Award{}, nil
}

func (s *Service) ListTeams(ctx context.Context) ([]domain.TeamSummary, error) {
	if err := s.pause(ctx); err != nil {
		return nil, err
	}
	out := []domain.TeamSummary{}
	for i := range s.snapshot.teams {
		team := &s.snapshot.teams[i]
		if team.Hidden {
			continue
		}
		out = append(out, domain.TeamSummary{ID: team.ID, Name: team.Name, Score: team.Score})
	}
	return out, nil
}

func (s *Service) GetTeam(ctx context.Context, id int) (domain.Team, error) {
	if err := s.pause(ctx); err != nil {
		return domain.Team{}, err
	}
	team, ok := s.snapshot.teamByID[id]
	if !ok || team.Hidden {
		return domain.Team{}, fmt.Errorf("team %d: %w", id, domain.ErrNotFound)
	}
	return domain.Team{
		TeamSummary: domain.TeamSummary{ID: team.ID, Name: team.Name, Score: team.Score},
		CaptainID:   team.CaptainID,
		Members:     s.resolveMembers(ctx, team),
		Website:     team.Website,
		Affiliation: team.Affiliation,
		Country:     team.Country,
	}, nil
}

// resolveMembers expands the team roster into full member summaries.
// Lookups run concurrently, one per member, and an unresolvable id is
// dropped rather than failing the whole call.
func (s *Service) resolveMembers(ctx context.Context, team *teamRecord) []domain.TeamMember {
	ids := s.memberIDs(team)
	results := make([]*domain.TeamMember, len(ids))

	var group errgroup.Group
	for i, id := range ids {
		i, id := i, id
		group.Go(func() error {
			user, ok := s.snapshot.userByID[id]
			if !ok {
				return nil
			}
			results[i] = &domain.TeamMember{ID: user.ID, Name: user.Name, Score: user.Score}
			return nil
		})
	}
	_ = group.Wait()

	members := []domain.TeamMember{}
	for _, m := range results {
		if m != nil {
			members = append(members, *m)
		}
	}
	return members
}

// memberIDs merges the export's explicit roster (bare ids) with users
// whose team_id points back at the team, preserving first appearance.
func (s *Service) memberIDs(team *teamRecord) []int {
	ids := []int{}
	seen := make(map[int]struct{})
	add := func(id int) {
		if _, dup := seen[id]; dup {
			return
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	for _, id := range team.Members {
		add(id)
	}
	for i := range s.snapshot.users {
		user := &s.snapshot.users[i]
		if user.TeamID != nil && *user.TeamID == team.ID {
			add(user.ID)
		}
	}
	return ids
}

func (s *Service) GetConfig(ctx context.Context) (domain.EventInfo, error) {
	if err := s.pause(ctx); err != nil {
		return domain.EventInfo{}, err
	}
	return s.snapshot.info, nil
}

// GetNotifications is always empty: the archived event broadcasts nothing.
func (s *Service) GetNotifications(ctx context.Context, _ int) ([]domain.Notification, error) {
	if err := s.pause(ctx); err != nil {
		return nil, err
	}
	return []domain.Notification{}, nil
}

// CheckAuth reports no active identity; the archive has no sessions.
func (s *Service) CheckAuth(_ context.Context) (*domain.SessionUser, error) {
	return nil, nil
}

func (s *Service) CurrentUser(_ context.Context) (domain.SessionUser, error) {
	return domain.SessionUser{}, fmt.Errorf("archive has no active session: %w", domain.ErrUnauthorized)
}

func (s *Service) Login(_ context.Context, _, _ string) (domain.SessionUser, error) {
	return domain.SessionUser{}, disabled("login")
}

func (s *Service) Register(_ context.Context, _, _, _, _ string) (domain.SessionUser, error) {
	return domain.SessionUser{}, disabled("registration")
}

// Logout is a harmless no-op: there is no session to end.
func (s *Service) Logout(_ context.Context) error {
	return nil
}

func (s *Service) CreateTeam(_ context.Context, _, _ string) error {
	return disabled("team creation")
}

func (s *Service) JoinTeam(_ context.Context, _, _ string) error {
	return disabled("joining teams")
}

func (s *Service) LeaveTeam(_ context.Context) error {
	return disabled("leaving teams")
}

func (s *Service) UpdateProfile(_ context.Context, _ domain.ProfileUpdate) error {
	return disabled("profile updates")
}

func disabled(operation string) error {
	return fmt.Errorf("this is an archived event, %s is disabled: %w", operation, domain.ErrDisabled)
}
