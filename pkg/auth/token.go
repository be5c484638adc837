// Package auth issues and validates the dashboard access token.
package auth

import (
	"fmt"
	"time"

	"github.com/FxndiBoyyzZ/mapaprofeticodoamor/pkg/config"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var jwtSigningMethod = jwt.SigningMethodHS256

const dashboardScope = "dashboard"

// DashboardClaims is the typed JWT handed to an authenticated dashboard user.
type DashboardClaims struct {
	Scope string `json:"scope"`
	jwt.RegisteredClaims
}

// MintDashboardToken issues a signed JWT granting dashboard access.
func MintDashboardToken(cfg config.DashboardConfig, now time.Time) (string, error) {
	if cfg.JWTSecret == "" {
		return "", fmt.Errorf("dashboard jwt secret is required")
	}
	if cfg.TokenTTL <= 0 {
		return "", fmt.Errorf("dashboard token ttl must be positive")
	}

	claims := DashboardClaims{
		Scope: dashboardScope,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    cfg.SessionIssuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(cfg.TokenTTL)),
			ID:        uuid.NewString(),
		},
	}

	token := jwt.NewWithClaims(jwtSigningMethod, claims)
	signed, err := token.SignedString([]byte(cfg.JWTSecret))
	if err != nil {
		return "", fmt.Errorf("signing jwt: %w", err)
	}
	return signed, nil
}

// ParseDashboardToken validates the JWT string and returns typed claims.
func ParseDashboardToken(cfg config.DashboardConfig, tokenString string) (*DashboardClaims, error) {
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("dashboard jwt secret is required")
	}

	claims := &DashboardClaims{}
	_, err := jwt.ParseWithClaims(
		tokenString,
		claims,
		func(token *jwt.Token) (interface{}, error) {
			if token.Method != jwtSigningMethod {
				return nil, fmt.Errorf("unexpected signing method %s", token.Header["alg"])
			}
			return []byte(cfg.JWTSecret), nil
		},
		jwt.WithValidMethods([]string{jwtSigningMethod.Alg()}),
		jwt.WithIssuer(cfg.SessionIssuer),
	)
	if err != nil {
		return nil, err
	}
	if claims.Scope != dashboardScope {
		return nil, fmt.Errorf("token scope %q not permitted", claims.Scope)
	}

	return claims, nil
}
