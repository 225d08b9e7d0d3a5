package ctfd

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"strconv"
	"strings"
	"sync"
	"time"

	"cybermaze-gateway/internal/domain"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Client talks to a live CTFd-style platform. JSON endpoints live
// under /api/v1; a handful of legacy endpoints (login, register, team
// create/join/leave, logout) are form-encoded pages handled in
// forms.go. Session state is cookie-based, so the client keeps a
// cookie jar, plus one cached anti-forgery nonce.
type Client struct {
	siteURL string
	apiURL  string
	http    *http.Client
	log     *zap.Logger

	mu    sync.Mutex
	nonce string
}

func NewClient(siteURL string, log *zap.Logger) (*Client, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("cookie jar: %w", err)
	}
	siteURL = strings.TrimRight(siteURL, "/")
	return &Client{
		siteURL: siteURL,
		apiURL:  siteURL + "/api/v1",
		http: &http.Client{
			Jar:     jar,
			Timeout: 15 * time.Second,
		},
		log: log,
	}, nil
}

// envelope is the platform's standard JSON response wrapper.
type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
	Errors  json.RawMessage `json:"errors"`
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	return c.call(ctx, http.MethodGet, path, nil, out)
}

// call issues one JSON API request and decodes the data payload into
// out. Non-JSON bodies (HTML error or login pages) and error statuses
// surface as ErrRequestFailed with the platform's embedded message
// when one is present; 401/403 map to the soft ErrUnauthorized.
func (c *Client) call(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.apiURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if nonce := c.cachedNonce(); nonce != "" {
		req.Header.Set("CSRF-Token", nonce)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrRequestFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return fmt.Errorf("%s %s: %w", method, path, domain.ErrUnauthorized)
	}
	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%s %s: %w", method, path, domain.ErrNotFound)
	}

	contentType := resp.Header.Get("Content-Type")
	if !strings.Contains(contentType, "application/json") {
		c.log.Warn("non-JSON platform response",
			zap.String("path", path),
			zap.Int("status", resp.StatusCode))
		return fmt.Errorf("%w: platform returned non-JSON response (%d)", domain.ErrRequestFailed, resp.StatusCode)
	}

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return fmt.Errorf("%w: decode response: %v", domain.ErrRequestFailed, err)
	}

	if resp.StatusCode >= 400 || !env.Success {
		message := env.Message
		if message == "" {
			message = firstErrorMessage(env.Errors)
		}
		if message == "" {
			message = "request failed"
		}
		return fmt.Errorf("%w: %s", domain.ErrRequestFailed, message)
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("%w: decode data: %v", domain.ErrRequestFailed, err)
	}
	return nil
}

// firstErrorMessage digs a usable message out of the platform's
// free-form errors field (either a list or a field->messages map).
func firstErrorMessage(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var list []string
	if err := json.Unmarshal(raw, &list); err == nil && len(list) > 0 {
		return list[0]
	}
	var fields map[string][]string
	if err := json.Unmarshal(raw, &fields); err == nil {
		for _, messages := range fields {
			if len(messages) > 0 {
				return messages[0]
			}
		}
	}
	return ""
}

func (c *Client) cachedNonce() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.nonce
}

func (c *Client) setNonce(nonce string) {
	c.mu.Lock()
	c.nonce = nonce
	c.mu.Unlock()
}

func (c *Client) ListChallenges(ctx context.Context) ([]domain.ChallengeSummary, error) {
	var challenges []domain.ChallengeSummary
	if err := c.get(ctx, "/challenges", &challenges); err != nil {
		return nil, err
	}
	if challenges == nil {
		challenges = []domain.ChallengeSummary{}
	}
	for i := range challenges {
		if challenges[i].Tags == nil {
			challenges[i].Tags = []string{}
		}
	}
	return challenges, nil
}

func (c *Client) GetChallenge(ctx context.Context, id int) (domain.Challenge, error) {
	var challenge domain.Challenge
	if err := c.get(ctx, "/challenges/"+strconv.Itoa(id), &challenge); err != nil {
		return domain.Challenge{}, err
	}
	if challenge.Files == nil {
		challenge.Files = []string{}
	}
	if challenge.Tags == nil {
		challenge.Tags = []string{}
	}
	return challenge, nil
}

func (c *Client) GetChallengeSolves(ctx context.Context, id int) ([]domain.Solver, error) {
	var solvers []domain.Solver
	if err := c.get(ctx, "/challenges/"+strconv.Itoa(id)+"/solves", &solvers); err != nil {
		return nil, err
	}
	if solvers == nil {
		solvers = []domain.Solver{}
	}
	return solvers, nil
}

func (c *Client) SubmitFlag(ctx context.Context, challengeID int, submission string) (domain.SubmissionResult, error) {
	body := map[string]any{
		"challenge_id": challengeID,
		"submission":   submission,
	}
	if nonce := c.cachedNonce(); nonce != "" {
		body["nonce"] = nonce
	}
	var attempt struct {
		Status  string `json:"status"`
		Message string `json:"message"`
	}
	if err := c.call(ctx, http.MethodPost, "/challenges/attempt", body, &attempt); err != nil {
		return domain.SubmissionResult{}, err
	}
	return domain.SubmissionResult{
		Status:  attempt.Status,
		Correct: attempt.Status == "correct",
		Message: attempt.Message,
	}, nil
}

func (c *Client) GetScoreboard(ctx context.Context) ([]domain.ScoreboardRow, error) {
	var rows []domain.ScoreboardRow
	if err := c.get(ctx, "/scoreboard", &rows); err != nil {
		return nil, err
	}
	if rows == nil {
		rows = []domain.ScoreboardRow{}
	}
	return rows, nil
}

func (c *Client) ListUsers(ctx context.Context) ([]domain.UserSummary, error) {
	var users []domain.UserSummary
	if err := c.get(ctx, "/users", &users); err != nil {
		return nil, err
	}
	if users == nil {
		users = []domain.UserSummary{}
	}
	return users, nil
}

func (c *Client) GetUser(ctx context.Context, id int) (domain.User, error) {
	var user domain.User
	if err := c.get(ctx, "/users/"+strconv.Itoa(id), &user); err != nil {
		return domain.User{}, err
	}
	return user, nil
}

func (c *Client) GetUserSolves(ctx context.Context, id int) ([]domain.SolveRecord, error) {
	var solves []domain.SolveRecord
	if err := c.get(ctx, "/users/"+strconv.Itoa(id)+"/solves", &solves); err != nil {
		return nil, err
	}
	if solves == nil {
		solves = []domain.SolveRecord{}
	}
	return solves, nil
}

func (c *Client) GetUserAwards(ctx context.Context, id int) ([]domain.Award, error) {
	var awards []domain.Award
	if err := c.get(ctx, "/users/"+strconv.Itoa(id)+"/awards", &awards); err != nil {
		return nil, err
	}
	if awards == nil {
		awards = []domain.Award{}
	}
	return awards, nil
}

func (c *Client) ListTeams(ctx context.Context) ([]domain.TeamSummary, error) {
	var teams []domain.TeamSummary
	if err := c.get(ctx, "/teams", &teams); err != nil {
		return nil, err
	}
	if teams == nil {
		teams = []domain.TeamSummary{}
	}
	return teams, nil
}

// liveTeam is the platform's team payload; members arrive as bare ids.
type liveTeam struct {
	domain.TeamSummary
	CaptainID   *int   `json:"captain_id"`
	Members     []int  `json:"members"`
	Website     string `json:"website"`
	Affiliation string `json:"affiliation"`
	Country     string `json:"country"`
}

// GetTeam fetches the team and resolves its roster into full member
// summaries with one user lookup per id, issued in parallel. A failed
// lookup drops that member instead of failing the call.
func (c *Client) GetTeam(ctx context.Context, id int) (domain.Team, error) {
	var team liveTeam
	if err := c.get(ctx, "/teams/"+strconv.Itoa(id), &team); err != nil {
		return domain.Team{}, err
	}

	resolved := make([]*domain.TeamMember, len(team.Members))
	var group errgroup.Group
	for i, memberID := range team.Members {
		i, memberID := i, memberID
		group.Go(func() error {
			user, err := c.GetUser(ctx, memberID)
			if err != nil {
				c.log.Debug("member lookup failed",
					zap.Int("team", id),
					zap.Int("user", memberID),
					zap.Error(err))
				return nil
			}
			resolved[i] = &domain.TeamMember{ID: user.ID, Name: user.Name, Score: user.Score}
			return nil
		})
	}
	_ = group.Wait()

	members := []domain.TeamMember{}
	for _, m := range resolved {
		if m != nil {
			members = append(members, *m)
		}
	}
	return domain.Team{
		TeamSummary: team.TeamSummary,
		CaptainID:   team.CaptainID,
		Members:     members,
		Website:     team.Website,
		Affiliation: team.Affiliation,
		Country:     team.Country,
	}, nil
}

// GetConfig reads the platform config rows. The endpoint needs an
// authenticated session on most deployments, so an unauthorized
// answer degrades to defaults instead of erroring.
func (c *Client) GetConfig(ctx context.Context) (domain.EventInfo, error) {
	var rows []struct {
		Key   string `json:"key"`
		Value string `json:"value"`
	}
	err := c.get(ctx, "/configs", &rows)
	info := domain.EventInfo{Name: "Cybermaze", Mode: domain.ModeTeams}
	if err != nil {
		if isSoft(err) {
			return info, nil
		}
		return domain.EventInfo{}, err
	}
	for _, row := range rows {
		switch row.Key {
		case "ctf_name":
			if row.Value != "" {
				info.Name = row.Value
			}
		case "user_mode":
			if row.Value != "" {
				info.Mode = row.Value
			}
		}
	}
	return info, nil
}

// liveUser is the /users/me payload; the platform reports the role as
// an explicit type field, which is the whole admin check.
type liveUser struct {
	ID     int    `json:"id"`
	Name   string `json:"name"`
	Email  string `json:"email"`
	TeamID *int   `json:"team_id"`
	Type   string `json:"type"`
}

func (c *Client) CurrentUser(ctx context.Context) (domain.SessionUser, error) {
	var user liveUser
	if err := c.get(ctx, "/users/me", &user); err != nil {
		return domain.SessionUser{}, err
	}
	return domain.SessionUser{
		ID:     user.ID,
		Name:   user.Name,
		Email:  user.Email,
		TeamID: user.TeamID,
		Admin:  user.Type == "admin",
	}, nil
}

// CheckAuth never fails hard: any inability to fetch the current user
// reads as "no active identity".
func (c *Client) CheckAuth(ctx context.Context) (*domain.SessionUser, error) {
	user, err := c.CurrentUser(ctx)
	if err != nil {
		return nil, nil
	}
	return &user, nil
}

func (c *Client) UpdateProfile(ctx context.Context, update domain.ProfileUpdate) error {
	return c.call(ctx, http.MethodPatch, "/users/me", update, nil)
}

func (c *Client) ListTokens(ctx context.Context) ([]domain.Token, error) {
	var tokens []domain.Token
	if err := c.get(ctx, "/tokens", &tokens); err != nil {
		return nil, err
	}
	if tokens == nil {
		tokens = []domain.Token{}
	}
	return tokens, nil
}

func (c *Client) CreateToken(ctx context.Context, expiration string) (domain.Token, error) {
	body := map[string]any{}
	if expiration != "" {
		body["expiration"] = expiration
	}
	var token domain.Token
	if err := c.call(ctx, http.MethodPost, "/tokens", body, &token); err != nil {
		return domain.Token{}, err
	}
	return token, nil
}

func (c *Client) DeleteToken(ctx context.Context, id int) error {
	return c.call(ctx, http.MethodDelete, "/tokens/"+strconv.Itoa(id), nil, nil)
}

const whalePath = "/plugins/ctfd-whale/container"

func (c *Client) GetContainer(ctx context.Context, challengeID int) (domain.ContainerInfo, error) {
	return c.containerCall(ctx, http.MethodGet, challengeID)
}

func (c *Client) CreateContainer(ctx context.Context, challengeID int) (domain.ContainerInfo, error) {
	return c.containerCall(ctx, http.MethodPost, challengeID)
}

func (c *Client) RenewContainer(ctx context.Context, challengeID int) (domain.ContainerInfo, error) {
	return c.containerCall(ctx, http.MethodPatch, challengeID)
}

func (c *Client) DestroyContainer(ctx context.Context) error {
	return c.call(ctx, http.MethodDelete, whalePath, nil, nil)
}

func (c *Client) containerCall(ctx context.Context, method string, challengeID int) (domain.ContainerInfo, error) {
	var info domain.ContainerInfo
	path := fmt.Sprintf("%s?challenge_id=%d", whalePath, challengeID)
	if err := c.call(ctx, method, path, nil, &info); err != nil {
		return domain.ContainerInfo{}, err
	}
	info.ChallengeID = challengeID
	return info, nil
}

func isSoft(err error) bool {
	return errors.Is(err, domain.ErrUnauthorized)
}
