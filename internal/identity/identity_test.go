package identity

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestMiddlewareIssuesAndKeepsCookie(t *testing.T) {
	t.Parallel()

	var seen string
	h := Middleware(true)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = UserIDFromContext(r.Context())
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if !isValidAnonID(seen) {
		t.Fatalf("expected generated anon id, got %q", seen)
	}
	cookies := rec.Result().Cookies()
	if len(cookies) != 1 || cookies[0].Value != seen || !cookies[0].HttpOnly {
		t.Fatalf("unexpected cookies %+v", cookies)
	}

	first := seen
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: AnonCookieName, Value: first})
	h.ServeHTTP(httptest.NewRecorder(), req)
	if seen != first {
		t.Errorf("existing identity not reused: %q != %q", seen, first)
	}
}

func TestMiddlewareReplacesForgedCookie(t *testing.T) {
	t.Parallel()

	var seen string
	h := Middleware(false)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = UserIDFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: AnonCookieName, Value: "admin"})
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if seen == "admin" || !isValidAnonID(seen) {
		t.Fatalf("forged cookie accepted: %q", seen)
	}
	if c := rec.Result().Cookies(); len(c) != 1 || !c[0].Secure {
		t.Errorf("production cookies must be secure: %+v", c)
	}
}

func TestIsValidAnonID(t *testing.T) {
	t.Parallel()

	minted, err := newAnonID()
	if err != nil {
		t.Fatalf("newAnonID: %v", err)
	}
	tests := []struct {
		id   string
		want bool
	}{
		{minted, true},
		{"anon_0123456789ab4def8123456789abcdef", true},
		{"anon_0123456789AB4DEF8123456789ABCDEF", false},
		{"anon_0123456789abcdef0123456789abcdef", false},
		{"0123456789ab4def8123456789abcdef", false},
		{"anon_", false},
	}
	for _, tt := range tests {
		if got := isValidAnonID(tt.id); got != tt.want {
			t.Errorf("isValidAnonID(%q) = %v, want %v", tt.id, got, tt.want)
		}
	}
}
