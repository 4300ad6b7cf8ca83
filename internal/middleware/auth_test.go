package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const testSecret = "test-secret"

func signToken(t *testing.T, secret, subject, role string, expires time.Time) string {
	t.Helper()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			ExpiresAt: jwt.NewNumericDate(expires),
		},
		Role: role,
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return token
}

func authProbe() (http.Handler, *string, *bool) {
	var userID string
	var admin bool
	h := Auth(testSecret)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID = GetUserID(r.Context())
		admin = IsAdmin(r.Context())
		w.WriteHeader(http.StatusOK)
	}))
	return h, &userID, &admin
}

func TestAuthValidToken(t *testing.T) {
	h, userID, admin := authProbe()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, testSecret, "u1", "user", time.Now().Add(time.Hour)))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if *userID != "u1" {
		t.Errorf("user id = %q", *userID)
	}
	if *admin {
		t.Error("non-admin token marked admin")
	}
}

func TestAuthAdminRole(t *testing.T) {
	h, _, admin := authProbe()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, testSecret, "boss", RoleAdmin, time.Now().Add(time.Hour)))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK || !*admin {
		t.Errorf("status = %d, admin = %v", rec.Code, *admin)
	}
}

func TestAuthRejections(t *testing.T) {
	h, _, _ := authProbe()

	cases := []struct {
		name   string
		header string
	}{
		{"missing header", ""},
		{"not bearer", "Basic abc"},
		{"garbage token", "Bearer not.a.jwt"},
		{"wrong secret", "Bearer " + signToken(t, "other-secret", "u1", "user", time.Now().Add(time.Hour))},
		{"expired", "Bearer " + signToken(t, testSecret, "u1", "user", time.Now().Add(-time.Hour))},
		{"empty subject", "Bearer " + signToken(t, testSecret, "", "user", time.Now().Add(time.Hour))},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			if rec.Code != http.StatusUnauthorized {
				t.Errorf("status = %d, want 401", rec.Code)
			}
		})
	}
}

func TestValidateMessageContent(t *testing.T) {
	if err := ValidateMessageContent("Hallo"); err != nil {
		t.Errorf("valid content rejected: %v", err)
	}
	if err := ValidateMessageContent(""); err == nil {
		t.Error("empty content accepted")
	}
	long := make([]byte, maxContentBytes+1)
	for i := range long {
		long[i] = 'a'
	}
	if err := ValidateMessageContent(string(long)); err == nil {
		t.Error("oversized content accepted")
	}
	if err := ValidateMessageContent(string([]byte{0xff, 0xfe})); err == nil {
		t.Error("invalid UTF-8 accepted")
	}
}

func TestParseID(t *testing.T) {
	if id, err := ParseID("42"); err != nil || id != 42 {
		t.Errorf("ParseID(42) = %d, %v", id, err)
	}
	for _, raw := range []string{"", "abc", "-1", "0", "9999999999999999999999"} {
		if _, err := ParseID(raw); err == nil {
			t.Errorf("ParseID(%q) accepted", raw)
		}
	}
}
