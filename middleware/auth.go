package middleware

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"
	"golang.org/x/crypto/bcrypt"

	"paper-tracker/config"
)

// ErrInvalidCredentials wird bei falschem Benutzer oder Passwort zurückgegeben.
var ErrInvalidCredentials = errors.New("invalid username or password")

// Claims sind die Felder im ausgestellten Token.
type Claims struct {
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// Authenticator stellt Tokens aus und prüft sie. Die Paper-Logik kennt nur das Ja/Nein von Authorize.
type Authenticator struct {
	cfg *config.Config
	now func() time.Time
}

func NewAuthenticator(cfg *config.Config) *Authenticator {
	return &Authenticator{cfg: cfg, now: time.Now}
}

// Login prüft Benutzername und Passwort gegen den bcrypt-Hash aus der Konfiguration.
func (a *Authenticator) Login(username, password string) (string, time.Time, error) {
	if a.cfg.JWTSecret == "" || a.cfg.AuthPasswordHash == "" || username != a.cfg.AuthUsername {
		return "", time.Time{}, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(a.cfg.AuthPasswordHash), []byte(password)); err != nil {
		return "", time.Time{}, ErrInvalidCredentials
	}
	return a.IssueToken(username)
}

// IssueToken signiert ein HS256-Token für username.
func (a *Authenticator) IssueToken(username string) (string, time.Time, error) {
	now := a.now()
	expiresAt := now.Add(a.cfg.TokenTTL)
	claims := Claims{
		Username: username,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   username,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(a.cfg.JWTSecret))
	if err != nil {
		return "", time.Time{}, err
	}
	return token, expiresAt, nil
}

// Verify prüft Signatur, Verfahren und Ablauf eines Tokens.
func (a *Authenticator) Verify(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return []byte(a.cfg.JWTSecret), nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, jwt.ErrSignatureInvalid
	}
	return claims, nil
}

// Authorize meldet, ob die Anfrage über X-API-KEY oder ein Bearer-Token berechtigt ist.
func (a *Authenticator) Authorize(r *http.Request) (string, bool) {
	if a.cfg.AuthDisabled {
		return "", true
	}
	if a.cfg.APISecretKey != "" && r.Header.Get("X-API-KEY") == a.cfg.APISecretKey {
		return "api-key", true
	}
	if a.cfg.JWTSecret == "" {
		return "", false
	}
	tokenString, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	if !ok || tokenString == "" {
		return "", false
	}
	claims, err := a.Verify(tokenString)
	if err != nil {
		return "", false
	}
	return claims.Username, true
}

// RequireAuth weist nicht berechtigte Anfragen mit 401 ab.
func RequireAuth(a *Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := a.Authorize(c.Request)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		if user != "" {
			c.Set("username", user)
		}
		c.Next()
	}
}
