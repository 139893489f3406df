package httpapi

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"passbook/backend/internal/domain"
)

const (
	tokenIssuer = "passbook"
	// Tokens are minted by the POS API host, whose clock may drift from ours.
	tokenLeeway = 30 * time.Second
)

var (
	errInvalidCredentials = errors.New("invalid credentials")
	errInvalidToken       = errors.New("invalid or expired token")
)

var knownRoles = map[string]bool{"admin": true, "manager": true, "cashier": true}

// AuthManager verifies the session tokens shared with the POS API. It can
// also issue them for the local accounts registered with AddUser, which the
// mock upstream and tests rely on.
type AuthManager struct {
	secret   []byte
	tokenTTL time.Duration
	pinHash  []byte
	now      func() time.Time

	mu       sync.RWMutex
	accounts map[string]account
}

type account struct {
	hash []byte
	role string
}

type sessionClaims struct {
	jwtlib.RegisteredClaims
	Role string `json:"role"`
}

// NewAuthManager hashes managerPIN once. An empty PIN leaves deletes of
// manual entries permanently locked.
func NewAuthManager(secret string, tokenTTL time.Duration, managerPIN string) *AuthManager {
	if secret == "" {
		secret = "dev-change-me"
	}
	if tokenTTL <= 0 {
		tokenTTL = 8 * time.Hour
	}
	a := &AuthManager{
		secret:   []byte(secret),
		tokenTTL: tokenTTL,
		now:      time.Now,
		accounts: make(map[string]account),
	}
	if pin := strings.TrimSpace(managerPIN); pin != "" {
		a.pinHash, _ = bcrypt.GenerateFromPassword([]byte(pin), bcrypt.DefaultCost)
	}
	return a
}

// AddUser registers a local account. The password is stored as a bcrypt hash.
func (a *AuthManager) AddUser(username, password, role string) error {
	username = strings.ToLower(strings.TrimSpace(username))
	if len(username) < 4 || strings.ContainsAny(username, " \t\r\n") {
		return fmt.Errorf("username must be at least 4 characters without spaces")
	}
	if len(strings.TrimSpace(password)) < 6 {
		return fmt.Errorf("password must be at least 6 characters")
	}
	if !knownRoles[role] {
		return fmt.Errorf("unknown role %q", role)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	a.accounts[username] = account{hash: hash, role: role}
	return nil
}

func (a *AuthManager) Login(req domain.LoginRequest) (domain.LoginResponse, error) {
	username := strings.ToLower(strings.TrimSpace(req.Username))
	a.mu.RLock()
	acct, ok := a.accounts[username]
	a.mu.RUnlock()
	if !ok || !matchesHash(acct.hash, req.Password) {
		return domain.LoginResponse{}, errInvalidCredentials
	}

	expiresAt := a.now().UTC().Add(a.tokenTTL)
	token, err := a.sign(username, acct.role, expiresAt)
	if err != nil {
		return domain.LoginResponse{}, err
	}
	return domain.LoginResponse{
		AccessToken: token,
		Role:        acct.role,
		ExpiresAt:   expiresAt.Format(time.RFC3339),
	}, nil
}

// Issue signs a session for username without a password check.
func (a *AuthManager) Issue(username, role string) (string, error) {
	if !knownRoles[role] {
		return "", fmt.Errorf("unknown role %q", role)
	}
	return a.sign(username, role, a.now().UTC().Add(a.tokenTTL))
}

// ParseToken accepts HS256 tokens signed with the shared secret that carry a
// subject, an expiry and one of the known roles.
func (a *AuthManager) ParseToken(raw string) (domain.Actor, error) {
	claims := &sessionClaims{}
	_, err := jwtlib.ParseWithClaims(raw, claims,
		func(*jwtlib.Token) (any, error) { return a.secret, nil },
		jwtlib.WithValidMethods([]string{jwtlib.SigningMethodHS256.Alg()}),
		jwtlib.WithExpirationRequired(),
		jwtlib.WithLeeway(tokenLeeway),
		jwtlib.WithTimeFunc(a.now),
	)
	if err != nil {
		return domain.Actor{}, errInvalidToken
	}
	if claims.Subject == "" || !knownRoles[claims.Role] {
		return domain.Actor{}, errInvalidToken
	}
	return domain.Actor{Username: claims.Subject, Role: claims.Role}, nil
}

func (a *AuthManager) sign(username, role string, expiresAt time.Time) (string, error) {
	claims := sessionClaims{
		RegisteredClaims: jwtlib.RegisteredClaims{
			Issuer:    tokenIssuer,
			Subject:   username,
			IssuedAt:  jwtlib.NewNumericDate(a.now().UTC()),
			ExpiresAt: jwtlib.NewNumericDate(expiresAt),
		},
		Role: role,
	}
	return jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims).SignedString(a.secret)
}

// ValidateManagerPIN guards destructive actions on manual bank entries.
func (a *AuthManager) ValidateManagerPIN(pin string) bool {
	return matchesHash(a.pinHash, pin)
}

func matchesHash(hash []byte, input string) bool {
	input = strings.TrimSpace(input)
	if len(hash) == 0 || input == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword(hash, []byte(input)) == nil
}
