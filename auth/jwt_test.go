package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func TestGenerateToken(t *testing.T) {
	secret := "test-secret-key-for-jwt-signing"

	tests := []struct {
		name            string
		secret          string
		expirationHours int
		wantErr         bool
	}{
		{
			name:            "Valid token generation",
			secret:          secret,
			expirationHours: 1,
			wantErr:         false,
		},
		{
			name:            "Empty secret",
			secret:          "",
			expirationHours: 1,
			wantErr:         true,
		},
		{
			name:            "Long expiration",
			secret:          secret,
			expirationHours: 24 * 365,
			wantErr:         false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			token, err := GenerateToken("loader", tt.secret, tt.expirationHours)
			if (err != nil) != tt.wantErr {
				t.Errorf("GenerateToken() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if !tt.wantErr && token == "" {
				t.Error("GenerateToken() returned empty token")
			}
		})
	}
}

func TestValidateToken(t *testing.T) {
	secret := "test-secret-key-for-jwt-signing"

	validToken, err := GenerateToken("loader", secret, 1)
	if err != nil {
		t.Fatalf("Failed to generate test token: %v", err)
	}
	expiredToken, err := GenerateToken("loader", secret, -1) // Negative hours = already expired
	if err != nil {
		t.Fatalf("Failed to generate expired token: %v", err)
	}
	wrongScope, err := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		Scope: "sparql:query",
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    tokenIssuer,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}).SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("Failed to sign token: %v", err)
	}

	tests := []struct {
		name    string
		token   string
		secret  string
		wantErr bool
	}{
		{name: "Valid token", token: validToken, secret: secret, wantErr: false},
		{name: "Invalid token string", token: "invalid.token.string", secret: secret, wantErr: true},
		{name: "Wrong secret", token: validToken, secret: "wrong-secret", wantErr: true},
		{name: "Empty secret", token: validToken, secret: "", wantErr: true},
		{name: "Empty token", token: "", secret: secret, wantErr: true},
		{name: "Expired token", token: expiredToken, secret: secret, wantErr: true},
		{name: "Wrong scope", token: wrongScope, secret: secret, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			claims, err := ValidateToken(tt.token, tt.secret)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateToken() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if !tt.wantErr && claims.Subject != "loader" {
				t.Errorf("ValidateToken() Subject = %v, want loader", claims.Subject)
			}
		})
	}
}

func TestTokenRoundTrip(t *testing.T) {
	secret := "test-secret-key-for-round-trip"

	token, err := GenerateToken("etl@example.org", secret, 2)
	if err != nil {
		t.Fatalf("GenerateToken() failed: %v", err)
	}

	claims, err := ValidateToken(token, secret)
	if err != nil {
		t.Fatalf("ValidateToken() failed: %v", err)
	}

	if claims.Subject != "etl@example.org" {
		t.Errorf("Subject mismatch: got %v", claims.Subject)
	}
	if claims.ExpiresAt == nil || claims.ExpiresAt.Time.Before(time.Now()) {
		t.Error("Token expiration is in the past or nil")
	}
	if claims.Issuer != "rdfendpoint" {
		t.Errorf("Issuer mismatch: got %v, want rdfendpoint", claims.Issuer)
	}
	if claims.Scope != ScopeUpdate {
		t.Errorf("Scope mismatch: got %v", claims.Scope)
	}
}
