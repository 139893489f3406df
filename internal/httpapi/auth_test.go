package httpapi

import (
	"strings"
	"testing"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"

	"passbook/backend/internal/domain"
)

func TestAddUserStoresPasswordHash(t *testing.T) {
	manager := NewAuthManager("test-secret", time.Hour, "123456")
	if err := manager.AddUser("KasirBaru", "pass1234", "cashier"); err != nil {
		t.Fatalf("add user failed: %v", err)
	}

	stored := string(manager.accounts["kasirbaru"].hash)
	if stored == "pass1234" || !strings.HasPrefix(stored, "$2") {
		t.Fatalf("expected bcrypt password hash, got %s", stored)
	}

	resp, err := manager.Login(domain.LoginRequest{Username: "kasirbaru", Password: "pass1234"})
	if err != nil {
		t.Fatalf("login with hashed password failed: %v", err)
	}
	if resp.Role != "cashier" || resp.AccessToken == "" {
		t.Fatalf("unexpected login response %+v", resp)
	}

	actor, err := manager.ParseToken(resp.AccessToken)
	if err != nil {
		t.Fatalf("parse token: %v", err)
	}
	if actor.Username != "kasirbaru" || actor.Role != "cashier" {
		t.Fatalf("unexpected actor %+v", actor)
	}
}

func TestAddUserRejectsWeakInput(t *testing.T) {
	manager := NewAuthManager("test-secret", time.Hour, "123456")
	cases := []struct{ username, password, role string }{
		{"abc", "pass1234", "cashier"},
		{"kasir satu", "pass1234", "cashier"},
		{"kasirsatu", "12345", "cashier"},
		{"kasirsatu", "pass1234", "owner"},
	}
	for _, tc := range cases {
		if err := manager.AddUser(tc.username, tc.password, tc.role); err == nil {
			t.Fatalf("expected %+v to be rejected", tc)
		}
	}
}

func TestLoginRejectsWrongPassword(t *testing.T) {
	manager := NewAuthManager("test-secret", time.Hour, "123456")
	_ = manager.AddUser("admin", "admin123", "admin")

	if _, err := manager.Login(domain.LoginRequest{Username: "admin", Password: "admin124"}); err == nil {
		t.Fatalf("expected wrong password to fail")
	}
	if _, err := manager.Login(domain.LoginRequest{Username: "ghost", Password: "admin123"}); err == nil {
		t.Fatalf("expected unknown user to fail")
	}
}

func TestParseTokenRejectsForeignAndExpiredTokens(t *testing.T) {
	manager := NewAuthManager("test-secret", time.Hour, "123456")
	other := NewAuthManager("other-secret", time.Hour, "123456")

	foreign, _ := other.Issue("admin", "admin")
	if _, err := manager.ParseToken(foreign); err == nil {
		t.Fatalf("expected token signed with another secret to fail")
	}

	expired, _ := manager.sign("admin", "admin", time.Now().Add(-time.Minute))
	if _, err := manager.ParseToken(expired); err == nil {
		t.Fatalf("expected expired token to fail")
	}

	none := jwtlib.NewWithClaims(jwtlib.SigningMethodNone, jwtlib.RegisteredClaims{Subject: "admin"})
	unsigned, _ := none.SignedString(jwtlib.UnsafeAllowNoneSignatureType)
	if _, err := manager.ParseToken(unsigned); err == nil {
		t.Fatalf("expected unsigned token to fail")
	}
}

func TestManagerPINIsHashedAndStillValidates(t *testing.T) {
	manager := NewAuthManager("test-secret", time.Hour, "654321")

	if string(manager.pinHash) == "654321" || !strings.HasPrefix(string(manager.pinHash), "$2") {
		t.Fatalf("expected manager pin to be stored as hash, got plain-text")
	}
	if !manager.ValidateManagerPIN("654321") {
		t.Fatalf("expected manager pin validation to succeed")
	}
	if manager.ValidateManagerPIN("111111") {
		t.Fatalf("expected wrong manager pin to fail")
	}
}

func TestManagerPINUnsetLocksDeletes(t *testing.T) {
	manager := NewAuthManager("test-secret", time.Hour, "  ")
	if manager.ValidateManagerPIN("") || manager.ValidateManagerPIN("disabled") {
		t.Fatalf("expected every pin to fail when none is configured")
	}
}

func TestParseTokenToleratesClockSkewAndRejectsUnknownRole(t *testing.T) {
	manager := NewAuthManager("test-secret", time.Hour, "739154")
	issuedAt := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	manager.now = func() time.Time { return issuedAt }

	token, err := manager.sign("kasir1", "cashier", issuedAt.Add(time.Minute))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	manager.now = func() time.Time { return issuedAt.Add(time.Minute + 10*time.Second) }
	if _, err := manager.ParseToken(token); err != nil {
		t.Fatalf("expected token within leeway to pass, got %v", err)
	}
	manager.now = func() time.Time { return issuedAt.Add(5 * time.Minute) }
	if _, err := manager.ParseToken(token); err == nil {
		t.Fatalf("expected token past leeway to fail")
	}

	manager.now = func() time.Time { return issuedAt }
	owner, _ := manager.sign("pemilik", "owner", issuedAt.Add(time.Hour))
	if _, err := manager.ParseToken(owner); err == nil {
		t.Fatalf("expected unknown role to be rejected")
	}
	if _, err := manager.Issue("pemilik", "owner"); err == nil {
		t.Fatalf("expected Issue to reject unknown role")
	}

	noExpiry := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, sessionClaims{
		RegisteredClaims: jwtlib.RegisteredClaims{Subject: "kasir1"},
		Role:             "cashier",
	})
	raw, _ := noExpiry.SignedString([]byte("test-secret"))
	if _, err := manager.ParseToken(raw); err == nil {
		t.Fatalf("expected token without expiry to fail")
	}
}
