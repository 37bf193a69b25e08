package server

import (
	"crypto/rand"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/reeveops/reeve/internal/resolve"
)

const (
	// usersNamespace holds one key per username, each a bcrypt hash.
	usersNamespace = "users"
	// serverNamespace holds serve-mode settings such as jwt_secret.
	serverNamespace = "server"

	defaultTokenLifetime = 12 * time.Hour
)

// ErrInvalidCredentials is returned for unknown users and wrong passwords
// alike, so a login probe cannot tell the two apart.
var ErrInvalidCredentials = errors.New("invalid credentials")

// Authenticator issues and validates the bearer tokens serve mode uses.
// Users come from the secure store's "users" namespace.
type Authenticator struct {
	secret   []byte
	users    map[string]any
	lifetime time.Duration
}

// NewAuthenticator reads users and the signing secret from the secure
// store. When server.jwt_secret is unset a random secret is generated,
// which invalidates tokens across restarts.
func NewAuthenticator(store *resolve.SecureStore, lifetime time.Duration) (*Authenticator, error) {
	if store == nil {
		store = resolve.EmptyStore()
	}
	if lifetime <= 0 {
		lifetime = defaultTokenLifetime
	}

	a := &Authenticator{
		users:    store.Namespace(usersNamespace),
		lifetime: lifetime,
	}
	if a.users == nil {
		a.users = map[string]any{}
	}

	if secret, ok := store.Get(serverNamespace, "jwt_secret"); ok {
		text, isString := secret.(string)
		if !isString || text == "" {
			return nil, fmt.Errorf("server.jwt_secret must be a non-empty string")
		}
		a.secret = []byte(text)
		return a, nil
	}

	a.secret = make([]byte, 32)
	if _, err := rand.Read(a.secret); err != nil {
		return nil, fmt.Errorf("generate signing secret: %w", err)
	}
	return a, nil
}

// Login verifies the password against the stored bcrypt hash and returns
// a signed token.
func (a *Authenticator) Login(username, password string) (string, error) {
	hash, ok := a.users[username].(string)
	if !ok {
		return "", ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		return "", ErrInvalidCredentials
	}

	now := time.Now().UTC()
	claims := jwt.RegisteredClaims{
		Subject:   username,
		Issuer:    "reeve",
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(a.lifetime)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
}

// Validate parses and verifies a token, returning its claims.
func (a *Authenticator) Validate(token string) (*jwt.RegisteredClaims, error) {
	parsed, err := jwt.ParseWithClaims(token, &jwt.RegisteredClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return a.secret, nil
	})
	if err != nil {
		return nil, err
	}

	claims, ok := parsed.Claims.(*jwt.RegisteredClaims)
	if !ok || !parsed.Valid {
		return nil, jwt.ErrTokenSignatureInvalid
	}
	return claims, nil
}

// Lifetime returns how long issued tokens stay valid.
func (a *Authenticator) Lifetime() time.Duration {
	return a.lifetime
}

// HashPassword produces a bcrypt hash suitable for the users namespace.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func (s *Server) requireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, err := s.opts.Auth.Validate(bearerToken(c))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		c.Set("user", claims.Subject)
		c.Next()
	}
}

// bearerToken pulls the token from the Authorization header, falling back
// to the token query parameter for websocket clients that cannot set
// headers.
func bearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if header != "" {
		parts := strings.SplitN(header, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return strings.TrimSpace(parts[1])
		}
	}
	return c.Query("token")
}
