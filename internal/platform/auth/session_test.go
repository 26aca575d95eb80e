package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"github.com/spf13/afero"
)

var testSigningKey = []byte("test-secret-key-for-unit-tests-only")

func newTestSession(t *testing.T) *Session {
	t.Helper()
	s, err := NewSession(testSigningKey, time.Hour)
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}
	return s
}

func runMiddleware(s *Session, header, path string) (*httptest.ResponseRecorder, echo.Context, error) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetPath(path)

	handler := func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	}
	err := s.Middleware(Skipper)(handler)(c)
	return rec, c, err
}

func TestSession_IssueAndVerify(t *testing.T) {
	s := newTestSession(t)
	token, err := s.Issue()
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	claims, err := s.Verify(token)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if claims.ID == "" {
		t.Error("expected a token id")
	}
	if claims.Issuer != Issuer {
		t.Errorf("issuer = %q", claims.Issuer)
	}
}

func TestSession_TokensAreUnique(t *testing.T) {
	s := newTestSession(t)
	a, _ := s.Issue()
	b, _ := s.Issue()
	if a == b {
		t.Error("expected distinct tokens")
	}
}

func TestSession_RejectsOtherKey(t *testing.T) {
	s := newTestSession(t)
	other, _ := NewSession([]byte("another-secret-key-another-secret"), time.Hour)
	token, _ := other.Issue()
	if _, err := s.Verify(token); err == nil {
		t.Error("expected verification to fail for a foreign key")
	}
}

func TestSession_RejectsExpired(t *testing.T) {
	s := newTestSession(t)
	s.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	token, _ := s.Issue()
	s.now = time.Now
	if _, err := s.Verify(token); err == nil {
		t.Error("expected expired token to be rejected")
	}
}

func TestSession_RejectsNoneAlgorithm(t *testing.T) {
	s := newTestSession(t)
	claims := Claims{RegisteredClaims: jwt.RegisteredClaims{
		Issuer:    Issuer,
		Audience:  jwt.ClaimStrings{Audience},
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}}
	token, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s.Verify(token); err == nil {
		t.Error("expected unsigned token to be rejected")
	}
}

func TestNewSession_RandomKey(t *testing.T) {
	a, err := NewSession(nil, 0)
	if err != nil {
		t.Fatal(err)
	}
	b, _ := NewSession(nil, 0)
	token, _ := a.Issue()
	if _, err := b.Verify(token); err == nil {
		t.Error("random keys should differ between sessions")
	}
	if a.ttl != DefaultTTL {
		t.Errorf("ttl = %s", a.ttl)
	}
}

func TestMiddleware_MissingHeader(t *testing.T) {
	_, _, err := runMiddleware(newTestSession(t), "", "/bridge/api/health")
	httpErr, ok := err.(*echo.HTTPError)
	if !ok {
		t.Fatalf("expected echo.HTTPError, got %T", err)
	}
	if httpErr.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", httpErr.Code)
	}
}

func TestMiddleware_InvalidFormat(t *testing.T) {
	tests := []struct {
		name   string
		header string
	}{
		{"no bearer prefix", "Token abc123"},
		{"missing token", "Bearer"},
		{"empty value", "Bearer "},
		{"garbage token", "Bearer not.a.jwt"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := runMiddleware(newTestSession(t), tt.header, "/bridge/api/health")
			httpErr, ok := err.(*echo.HTTPError)
			if !ok || httpErr.Code != http.StatusUnauthorized {
				t.Errorf("expected 401, got %v", err)
			}
		})
	}
}

func TestMiddleware_ValidToken(t *testing.T) {
	s := newTestSession(t)
	token, _ := s.Issue()
	rec, c, err := runMiddleware(s, "Bearer "+token, "/bridge/api/health")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
	if id, _ := c.Get(SessionIDKey).(string); id == "" {
		t.Error("expected session id on context")
	}
}

func TestMiddleware_PublicPath(t *testing.T) {
	rec, _, err := runMiddleware(newTestSession(t), "", "/healthz")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}

func TestTokenFile_RoundTrip(t *testing.T) {
	fs := afero.NewMemMapFs()
	path := TokenFilePath("/cfg/news2-shell/settings.json")
	if path != "/cfg/news2-shell/bridge.token" {
		t.Fatalf("path = %s", path)
	}
	if err := WriteTokenFile(fs, path, "abc.def.ghi"); err != nil {
		t.Fatal(err)
	}
	got, err := ReadTokenFile(fs, path)
	if err != nil {
		t.Fatal(err)
	}
	if got != "abc.def.ghi" {
		t.Errorf("token = %q", got)
	}
	if err := RemoveTokenFile(fs, path); err != nil {
		t.Fatal(err)
	}
	if _, err := ReadTokenFile(fs, path); err == nil {
		t.Error("expected error after removal")
	}
	if err := RemoveTokenFile(fs, path); err != nil {
		t.Errorf("second remove should be a no-op, got %v", err)
	}
}
