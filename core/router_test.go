package core

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

func newTestRouter(t *testing.T) (*gin.Engine, *fakeAccountRepo, *memSessionStore) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	repo := newFakeAccountRepo()
	store := newMemSessionStore()
	svc := newTestAuthService(repo, store)

	catalog, err := LoadCatalog()
	if err != nil {
		t.Fatalf("load catalog: %v", err)
	}

	cfg := Config{SessionSecret: "test-secret", SessionTTL: 24 * time.Hour, CookieSameSite: "Strict"}
	return NewRouter(cfg, svc, catalog), repo, store
}

func postForm(router *gin.Engine, path string, form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func get(router *gin.Engine, path string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	for _, ck := range cookies {
		req.AddCookie(ck)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func sessionCookie(t *testing.T, w *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, ck := range w.Result().Cookies() {
		if ck.Name == sessionCookieName {
			return ck
		}
	}
	t.Fatalf("no %s cookie in response", sessionCookieName)
	return nil
}

func TestSignupFlowRedirectsToMembers(t *testing.T) {
	router, _, _ := newTestRouter(t)

	w := postForm(router, "/submitUser", url.Values{
		"name":     {"Alice"},
		"email":    {"a@x.com"},
		"password": {"secret1"},
	})
	if w.Code != http.StatusFound {
		t.Fatalf("status = %d, want 302", w.Code)
	}
	if loc := w.Header().Get("Location"); loc != "/members" {
		t.Fatalf("redirect = %q, want /members", loc)
	}

	ck := sessionCookie(t, w)
	if ck.Value == "" {
		t.Fatalf("session cookie must carry a token")
	}
	if !ck.HttpOnly {
		t.Fatalf("session cookie must be HttpOnly")
	}

	// The cookie grants access to the protected area with the user's name.
	w = get(router, "/members", ck)
	if w.Code != http.StatusOK {
		t.Fatalf("members status = %d, want 200", w.Code)
	}
	if !strings.Contains(w.Body.String(), "Hello, Alice!") {
		t.Fatalf("members page must greet by name, got: %s", w.Body.String())
	}
}

func TestSignupInvalidInputRendersInlineError(t *testing.T) {
	router, _, store := newTestRouter(t)

	w := postForm(router, "/submitUser", url.Values{
		"name":  {"Alice"},
		"email": {"a@x.com"},
		// password missing
	})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 with inline error", w.Code)
	}
	if !strings.Contains(w.Body.String(), "Try again") {
		t.Fatalf("body must offer retry, got: %s", w.Body.String())
	}
	if store.count() != 0 {
		t.Fatalf("no session may be created for invalid signup")
	}
}

func TestLoginFlowSetsSessionCookie(t *testing.T) {
	router, _, _ := newTestRouter(t)

	postForm(router, "/submitUser", url.Values{
		"name":     {"Alice"},
		"email":    {"a@x.com"},
		"password": {"secret1"},
	})

	w := postForm(router, "/loggingin", url.Values{
		"email":    {"a@x.com"},
		"password": {"secret1"},
	})
	if w.Code != http.StatusFound || w.Header().Get("Location") != "/members" {
		t.Fatalf("status=%d location=%q, want 302 /members", w.Code, w.Header().Get("Location"))
	}
	sessionCookie(t, w)
}

func TestLoginWrongPasswordShowsError(t *testing.T) {
	router, _, store := newTestRouter(t)

	postForm(router, "/submitUser", url.Values{
		"name":     {"Alice"},
		"email":    {"a@x.com"},
		"password": {"secret1"},
	})
	before := store.count()

	w := postForm(router, "/loggingin", url.Values{
		"email":    {"a@x.com"},
		"password": {"wrong"},
	})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 with inline error", w.Code)
	}
	if !strings.Contains(w.Body.String(), "Wrong password") {
		t.Fatalf("body = %s, want wrong-password message", w.Body.String())
	}
	if store.count() != before {
		t.Fatalf("failed login must not create a session")
	}
}

func TestLoginUnknownUserShowsError(t *testing.T) {
	router, _, _ := newTestRouter(t)

	w := postForm(router, "/loggingin", url.Values{
		"email":    {"nobody@x.com"},
		"password": {"secret1"},
	})
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "User not found") {
		t.Fatalf("status=%d body=%s, want user-not-found message", w.Code, w.Body.String())
	}
}

func TestMembersWithoutSessionRedirectsHome(t *testing.T) {
	router, _, _ := newTestRouter(t)

	w := get(router, "/members")
	if w.Code != http.StatusFound || w.Header().Get("Location") != "/" {
		t.Fatalf("status=%d location=%q, want 302 /", w.Code, w.Header().Get("Location"))
	}
}

func TestHomePageFollowsAuthState(t *testing.T) {
	router, _, _ := newTestRouter(t)

	w := get(router, "/")
	if !strings.Contains(w.Body.String(), "/signup") || !strings.Contains(w.Body.String(), "/login") {
		t.Fatalf("anonymous home must link signup and login, got: %s", w.Body.String())
	}

	signup := postForm(router, "/submitUser", url.Values{
		"name":     {"Alice"},
		"email":    {"a@x.com"},
		"password": {"secret1"},
	})
	w = get(router, "/", sessionCookie(t, signup))
	if !strings.Contains(w.Body.String(), "Hello, Alice!") {
		t.Fatalf("authenticated home must greet by name, got: %s", w.Body.String())
	}
}

func TestLogoutDestroysSessionEverywhere(t *testing.T) {
	router, _, _ := newTestRouter(t)

	signup := postForm(router, "/submitUser", url.Values{
		"name":     {"Alice"},
		"email":    {"a@x.com"},
		"password": {"secret1"},
	})
	ck := sessionCookie(t, signup)

	w := get(router, "/logout", ck)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "logged out") {
		t.Fatalf("status=%d body=%s, want logout confirmation", w.Code, w.Body.String())
	}
	cleared := sessionCookie(t, w)
	if cleared.Value != "" || cleared.MaxAge >= 0 {
		t.Fatalf("logout must clear the cookie, got %+v", cleared)
	}

	// The old token is dead server-side, not just on this client.
	w = get(router, "/members", ck)
	if w.Code != http.StatusFound || w.Header().Get("Location") != "/" {
		t.Fatalf("destroyed session must not reach /members")
	}

	// Logging out again with the dead cookie is a no-op.
	w = get(router, "/logout", ck)
	if w.Code != http.StatusOK {
		t.Fatalf("repeated logout status = %d, want 200", w.Code)
	}
}

func TestInjectionAttemptShortCircuitsBeforeStore(t *testing.T) {
	router, repo, _ := newTestRouter(t)

	w := get(router, "/nosql-injection?user[$ne]=name")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 banner", w.Code)
	}
	if !strings.Contains(w.Body.String(), "injection attack was detected") {
		t.Fatalf("body = %s, want detection banner", w.Body.String())
	}
	if repo.lookupCalls != 0 {
		t.Fatalf("store executed %d queries, want 0", repo.lookupCalls)
	}
}

func TestInjectionDemoAcceptsScalarUser(t *testing.T) {
	router, repo, _ := newTestRouter(t)

	w := get(router, "/nosql-injection?user=Alice")
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "Hello Alice") {
		t.Fatalf("status=%d body=%s, want greeting", w.Code, w.Body.String())
	}
	if repo.lookupCalls != 1 {
		t.Fatalf("store executed %d queries, want 1", repo.lookupCalls)
	}
}

func TestCatalogItemPage(t *testing.T) {
	router, _, _ := newTestRouter(t)

	w := get(router, "/cat/2")
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "/cat2.jpg") {
		t.Fatalf("status=%d body=%s, want catalog item 2", w.Code, w.Body.String())
	}

	w = get(router, "/cat/99")
	if w.Code != http.StatusNotFound {
		t.Fatalf("unknown item status = %d, want 404", w.Code)
	}
}

func TestUnmatchedRouteReturns404(t *testing.T) {
	router, _, _ := newTestRouter(t)

	w := get(router, "/does-not-exist")
	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", w.Code)
	}
	if !strings.Contains(w.Body.String(), "Page not found - 404") {
		t.Fatalf("body = %s, want plain 404 body", w.Body.String())
	}
}
