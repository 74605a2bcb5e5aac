package web

import (
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/7HR4IZ3/checkaroundme-sub001/internal/domain"
	"github.com/7HR4IZ3/checkaroundme-sub001/internal/domain/model"
	"github.com/7HR4IZ3/checkaroundme-sub001/internal/domain/ports/repository"
)

// ===== Session/JWT primitives =====

// AuthManager reads the application session token to resolve the current
// user. Session issuance is owned elsewhere; this subsystem only consumes it.
type AuthManager struct {
	secret     []byte
	cookieName string
	users      repository.UserRepository
}

func NewAuthManager(secret, cookieName string, users repository.UserRepository) *AuthManager {
	if cookieName == "" {
		cookieName = "session"
	}
	return &AuthManager{secret: []byte(secret), cookieName: cookieName, users: users}
}

type sessionClaims struct {
	Email string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// CurrentUser resolves the authenticated caller from a bearer token or the
// session cookie, then loads the user from the directory.
func (a *AuthManager) CurrentUser(r *http.Request) (*model.User, error) {
	tok := a.tokenFromRequest(r)
	if tok == "" {
		return nil, domain.ErrUnauthenticated
	}
	claims := &sessionClaims{}
	parsed, err := jwt.ParseWithClaims(tok, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, domain.ErrUnauthenticated
		}
		return a.secret, nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil || !parsed.Valid || claims.Subject == "" {
		return nil, domain.ErrUnauthenticated
	}
	user, err := a.users.FindByID(r.Context(), claims.Subject)
	if err != nil {
		return nil, domain.ErrUnauthenticated
	}
	return user, nil
}

// Mint issues a session token. Used by tests and dev tooling; production
// sessions come from the identity service.
func (a *AuthManager) Mint(userID, email string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := sessionClaims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
}

func (a *AuthManager) tokenFromRequest(r *http.Request) string {
	if hdr := r.Header.Get("Authorization"); hdr != "" {
		if strings.HasPrefix(strings.ToLower(hdr), "bearer ") {
			return strings.TrimSpace(hdr[7:])
		}
	}
	if c, err := r.Cookie(a.cookieName); err == nil {
		return c.Value
	}
	return ""
}
