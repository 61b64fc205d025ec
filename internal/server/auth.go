package server

import (
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

const (
	tokenIssuer = "talondash"
	ctxUsername = "username"
)

var ErrInvalidCredentials = errors.New("invalid credentials")

// Credentials configure the single admin account and token signing.
type Credentials struct {
	JWTSecret string
	AdminUser string
	// AdminPassword is compared in constant time when AdminPasswordHash is
	// empty. AdminPasswordHash is a bcrypt hash.
	AdminPassword     string
	AdminPasswordHash string
	TokenTTL          time.Duration
}

// Authenticator checks admin credentials and issues HS256 JWTs for the
// container control endpoints.
type Authenticator struct {
	creds  Credentials
	secret []byte
	now    func() time.Time
}

func NewAuthenticator(creds Credentials) *Authenticator {
	if creds.TokenTTL <= 0 {
		creds.TokenTTL = 24 * time.Hour
	}
	return &Authenticator{creds: creds, secret: []byte(creds.JWTSecret), now: time.Now}
}

// Claims is the payload embedded in every JWT issued by /api/login.
type Claims struct {
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// HashPassword returns a bcrypt hash suitable for auth.admin_password_hash.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// Verify returns ErrInvalidCredentials unless user and password match the
// admin account.
func (a *Authenticator) Verify(user, password string) error {
	userOK := subtle.ConstantTimeCompare([]byte(user), []byte(a.creds.AdminUser)) == 1
	var passOK bool
	if a.creds.AdminPasswordHash != "" {
		passOK = bcrypt.CompareHashAndPassword([]byte(a.creds.AdminPasswordHash), []byte(password)) == nil
	} else {
		passOK = subtle.ConstantTimeCompare([]byte(password), []byte(a.creds.AdminPassword)) == 1
	}
	if !userOK || !passOK {
		return ErrInvalidCredentials
	}
	return nil
}

// IssueToken signs a JWT for username valid for the configured TTL.
func (a *Authenticator) IssueToken(username string) (string, error) {
	now := a.now()
	claims := Claims{
		Username: username,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    tokenIssuer,
			Subject:   username,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(a.creds.TokenTTL)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
}

// TTL is how long issued tokens stay valid.
func (a *Authenticator) TTL() time.Duration {
	return a.creds.TokenTTL
}

func (a *Authenticator) parseToken(raw string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		return a.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithTimeFunc(a.now),
	)
	if err != nil {
		return nil, err
	}
	return claims, nil
}

// Middleware rejects requests without a valid "Authorization: Bearer <jwt>"
// header and stores the username in the gin context.
func (a *Authenticator) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := c.GetHeader("Authorization")
		if raw == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "missing Authorization header",
			})
			return
		}

		scheme, token, ok := strings.Cut(raw, " ")
		if !ok || !strings.EqualFold(scheme, "Bearer") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "invalid Authorization format, expected: Bearer <token>",
			})
			return
		}

		claims, err := a.parseToken(strings.TrimSpace(token))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "invalid or expired token",
			})
			return
		}

		c.Set(ctxUsername, claims.Username)
		c.Next()
	}
}
