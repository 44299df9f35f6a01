package auth

import (
	"github.com/golang-jwt/jwt/v5"
)

// Claims represents update token claims
type Claims struct {
	Scope string `json:"scope"`
	jwt.RegisteredClaims
}

// ScopeUpdate is the only scope the endpoint issues and checks.
const ScopeUpdate = "sparql:update"

// AuthMode represents how update requests are authenticated
type AuthMode string

const (
	AuthModeNone  AuthMode = "none"  // Updates are open once enabled
	AuthModeKey   AuthMode = "key"   // x-api-key checked against a bcrypt hash
	AuthModeToken AuthMode = "token" // Bearer JWT signed with the token secret
	AuthModeAny   AuthMode = "any"   // Either credential is accepted
)

// ModeFor derives the mode from the configured credentials.
func ModeFor(apiKeyHash, tokenSecret string) AuthMode {
	switch {
	case apiKeyHash != "" && tokenSecret != "":
		return AuthModeAny
	case apiKeyHash != "":
		return AuthModeKey
	case tokenSecret != "":
		return AuthModeToken
	default:
		return AuthModeNone
	}
}
