package session

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

const secret = "0123456789abcdef0123456789abcdef"

func newTestIssuer(now time.Time) *Issuer {
	return NewIssuer(Config{Secret: secret, Issuer: "service-tweet", TTL: time.Hour}).
		WithClock(func() time.Time { return now })
}

func TestIssueAndParse(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	iss := newTestIssuer(now)

	token, exp, err := iss.Issue("a@x.com")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if !exp.Equal(now.Add(time.Hour)) {
		t.Fatalf("exp = %v, want now+1h", exp)
	}
	claims, err := iss.Parse(token)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if claims.Email != "a@x.com" || claims.Issuer != "service-tweet" {
		t.Fatalf("unexpected claims: %+v", claims)
	}
}

func TestParseRejects(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	iss := newTestIssuer(now)
	token, _, err := iss.Issue("a@x.com")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	other := NewIssuer(Config{Secret: strings.Repeat("z", 32), Issuer: "service-tweet"}).
		WithClock(func() time.Time { return now })
	foreign, _, _ := other.Issue("a@x.com")

	none, _ := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{
		Email: "a@x.com",
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "service-tweet",
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
		},
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)

	parts := strings.Split(token, ".")
	parts[1] = base64.RawURLEncoding.EncodeToString([]byte(`{"email":"evil@x.com","iss":"service-tweet","exp":9999999999}`))
	tampered := strings.Join(parts, ".")

	tests := []struct {
		name  string
		iss   *Issuer
		token string
	}{
		{"expired", iss.WithClock(func() time.Time { return now.Add(61 * time.Minute) }), token},
		{"wrong secret", iss, foreign},
		{"alg none", iss, none},
		{"tampered payload", iss, tampered},
		{"garbage", iss, "not-a-token"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := tt.iss.Parse(tt.token); !errors.Is(err, ErrInvalidToken) {
				t.Fatalf("err = %v, want ErrInvalidToken", err)
			}
		})
	}
}

func TestIssueRequiresEmail(t *testing.T) {
	if _, _, err := newTestIssuer(time.Now()).Issue(""); !errors.Is(err, ErrEmptySubject) {
		t.Fatalf("err = %v", err)
	}
}

func TestMiddleware(t *testing.T) {
	iss := NewIssuer(Config{Secret: secret, Issuer: "service-tweet"})
	token, _, err := iss.Issue("a@x.com")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	h := Middleware(iss, zap.NewNop().Sugar())(http.HandlerFunc(Userinfo))

	tests := []struct {
		name   string
		header string
		status int
	}{
		{"no header", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic abc", http.StatusUnauthorized},
		{"bad token", "Bearer nope", http.StatusUnauthorized},
		{"valid", "Bearer " + token, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/v1.0/session", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			if rec.Code != tt.status {
				t.Fatalf("status = %d, want %d", rec.Code, tt.status)
			}
			if tt.status != http.StatusOK {
				return
			}
			var body map[string]any
			if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if body["email"] != "a@x.com" {
				t.Fatalf("email = %v", body["email"])
			}
		})
	}
}
