package ctfd

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"

	"cybermaze-gateway/internal/domain"
)

const indexPage = `<html><script>
	var init = { csrfNonce: "nonce-from-page", userMode: "teams" };
</script></html>`

func TestFetchNonceScrapesIndexPage(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(indexPage))
	}))

	nonce, err := client.fetchNonce(context.Background())
	if err != nil {
		t.Fatalf("fetch nonce: %v", err)
	}
	if nonce != "nonce-from-page" {
		t.Fatalf("unexpected nonce %q", nonce)
	}
	if client.cachedNonce() != "nonce-from-page" {
		t.Fatalf("nonce must be cached for later API calls")
	}
}

func TestFetchNonceKeepsCachedOnFailure(t *testing.T) {
	client, server := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html>no nonce here</html>"))
	}))
	client.setNonce("stale")

	nonce, err := client.fetchNonce(context.Background())
	if err != nil || nonce != "stale" {
		t.Fatalf("expected cached nonce kept, got %q err=%v", nonce, err)
	}

	server.Close()
	nonce, err = client.fetchNonce(context.Background())
	if err != nil || nonce != "stale" {
		t.Fatalf("expected cached nonce after shutdown, got %q err=%v", nonce, err)
	}
}

func TestScrapeError(t *testing.T) {
	page := []byte(`<div class="alert alert-danger" role="alert">
		Your username or password is incorrect</div>`)
	if got := scrapeError(page); got != "Your username or password is incorrect" {
		t.Fatalf("unexpected scraped message %q", got)
	}
	if got := scrapeError([]byte("<html>nothing useful</html>")); got != "" {
		t.Fatalf("expected empty message, got %q", got)
	}
}

func TestLoginVerifiesSession(t *testing.T) {
	var sawLoginForm bool
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/":
			w.Write([]byte(indexPage))
		case "/login":
			r.ParseForm()
			if r.PostForm.Get("name") != "alice" || r.PostForm.Get("nonce") != "nonce-from-page" {
				t.Fatalf("unexpected login form: %v", r.PostForm)
			}
			sawLoginForm = true
			w.WriteHeader(http.StatusFound)
		case "/api/v1/users/me":
			writeJSON(w, http.StatusOK, `{"success":true,"data":{"id":4,"name":"alice","type":"user"}}`)
		default:
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
	}))

	user, err := client.Login(context.Background(), "alice", "hunter2")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if !sawLoginForm || user.Name != "alice" || user.Admin {
		t.Fatalf("unexpected session user %+v", user)
	}
}

func TestLoginRejectedWhenSessionMissing(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v1/users/me":
			writeJSON(w, http.StatusUnauthorized, `{"success":false}`)
		default:
			// Form post "succeeds" but no session was established.
			w.WriteHeader(http.StatusOK)
		}
	}))

	_, err := client.Login(context.Background(), "alice", "wrong")
	if !errors.Is(err, domain.ErrRequestFailed) {
		t.Fatalf("expected request-failed error, got %v", err)
	}
	if !strings.Contains(err.Error(), "incorrect") {
		t.Fatalf("expected credential hint in message, got %v", err)
	}
}

func TestJoinTeamSurfacesScrapedError(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/" {
			w.Write([]byte(indexPage))
			return
		}
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(`<div class="alert alert-danger">That team is full</div>`))
	}))

	err := client.JoinTeam(context.Background(), "Clue", "pw")
	if !errors.Is(err, domain.ErrRequestFailed) {
		t.Fatalf("expected request-failed error, got %v", err)
	}
	if !strings.Contains(err.Error(), "That team is full") {
		t.Fatalf("expected scraped message, got %v", err)
	}
}

func TestLogoutIsPlainGet(t *testing.T) {
	var method, path string
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		method, path = r.Method, r.URL.Path
		w.WriteHeader(http.StatusFound)
	}))

	if err := client.Logout(context.Background()); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if method != http.MethodGet || path != "/logout" {
		t.Fatalf("expected GET /logout, got %s %s", method, path)
	}
}
