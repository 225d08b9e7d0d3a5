package ctfd

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"

	"cybermaze-gateway/internal/domain"
	"go.uber.org/zap"
)

// A few platform endpoints predate its JSON API: login, register and
// the team pages accept url-encoded forms and answer with HTML. On
// failure the error text has to be scraped out of the page.

var (
	noncePattern     = regexp.MustCompile(`csrfNonce:\s*"([^"]+)"`)
	alertPattern     = regexp.MustCompile(`(?i)class="alert[^"]*alert-danger[^"]*"[^>]*>([^<]+)`)
	fallbackErrorPat = regexp.MustCompile(`(?i)error[^>]*>([^<]+)`)
)

// fetchNonce scrapes a fresh anti-forgery nonce from the platform
// index page and caches it for subsequent API calls.
func (c *Client) fetchNonce(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.siteURL+"/", nil)
	if err != nil {
		return "", fmt.Errorf("build nonce request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return c.cachedNonce(), nil // fall back to whatever we had
	}
	defer resp.Body.Close()

	page, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return c.cachedNonce(), nil
	}
	if match := noncePattern.FindSubmatch(page); match != nil {
		nonce := string(match[1])
		c.setNonce(nonce)
		return nonce, nil
	}
	return c.cachedNonce(), nil
}

// postForm submits a legacy form endpoint. A 2xx or redirect counts
// as success; otherwise the HTML body is scraped for an embedded
// error message, with fallback to the provided generic one.
func (c *Client) postForm(ctx context.Context, path string, form url.Values, genericError string) error {
	nonce, _ := c.fetchNonce(ctx)
	if nonce != "" {
		form.Set("nonce", nonce)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.siteURL+path, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("build form request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrRequestFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 400 {
		return nil
	}

	page, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if message := scrapeError(page); message != "" {
		return fmt.Errorf("%w: %s", domain.ErrRequestFailed, message)
	}
	c.log.Warn("form endpoint failed without scrapeable message",
		zap.String("path", path),
		zap.Int("status", resp.StatusCode))
	return fmt.Errorf("%w: %s", domain.ErrRequestFailed, genericError)
}

func scrapeError(page []byte) string {
	if match := alertPattern.FindSubmatch(page); match != nil {
		return strings.TrimSpace(string(match[1]))
	}
	if match := fallbackErrorPat.FindSubmatch(page); match != nil {
		return strings.TrimSpace(string(match[1]))
	}
	return ""
}

// Login submits the login form and verifies the session by fetching
// the current user; the platform never reports form success directly.
func (c *Client) Login(ctx context.Context, name, password string) (domain.SessionUser, error) {
	form := url.Values{}
	form.Set("name", name)
	form.Set("password", password)
	if err := c.postForm(ctx, "/login", form, "login failed"); err != nil {
		return domain.SessionUser{}, err
	}

	user, err := c.CurrentUser(ctx)
	if err != nil {
		return domain.SessionUser{}, fmt.Errorf("%w: your username or password is incorrect", domain.ErrRequestFailed)
	}
	return user, nil
}

func (c *Client) Register(ctx context.Context, name, email, password, registrationCode string) (domain.SessionUser, error) {
	form := url.Values{}
	form.Set("name", name)
	form.Set("email", email)
	form.Set("password", password)
	if registrationCode != "" {
		form.Set("registration_code", registrationCode)
	}
	if err := c.postForm(ctx, "/register", form, "registration failed"); err != nil {
		return domain.SessionUser{}, err
	}

	user, err := c.CurrentUser(ctx)
	if err != nil {
		return domain.SessionUser{}, fmt.Errorf("%w: registration failed, please check your information", domain.ErrRequestFailed)
	}
	return user, nil
}

// Logout is a plain GET on the platform.
func (c *Client) Logout(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.siteURL+"/logout", nil)
	if err != nil {
		return fmt.Errorf("build logout request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrRequestFailed, err)
	}
	resp.Body.Close()
	return nil
}

func (c *Client) CreateTeam(ctx context.Context, name, password string) error {
	form := url.Values{}
	form.Set("name", name)
	form.Set("password", password)
	return c.postForm(ctx, "/teams/new", form, "failed to create team, please try again")
}

func (c *Client) JoinTeam(ctx context.Context, name, password string) error {
	form := url.Values{}
	form.Set("name", name)
	form.Set("password", password)
	return c.postForm(ctx, "/teams/join", form, "failed to join team, please check the team name and password")
}

func (c *Client) LeaveTeam(ctx context.Context) error {
	return c.postForm(ctx, "/teams/leave", url.Values{}, "failed to leave team, the team may have already participated in the event")
}
