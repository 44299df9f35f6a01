package auth

import (
	"strings"
	"testing"
)

func TestHashAPIKey(t *testing.T) {
	tests := []struct {
		name    string
		key     string
		wantErr bool
	}{
		{
			name:    "Valid key",
			key:     "a-long-enough-update-key",
			wantErr: false,
		},
		{
			name:    "Short key",
			key:     "abc",
			wantErr: false, // Hashing succeeds, validation is separate
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hash, err := HashAPIKey(tt.key)
			if (err != nil) != tt.wantErr {
				t.Errorf("HashAPIKey() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if !tt.wantErr && (hash == "" || hash == tt.key) {
				t.Errorf("HashAPIKey() returned %q", hash)
			}
		})
	}
}

func TestCheckAPIKey(t *testing.T) {
	key := "a-long-enough-update-key"
	hash, err := HashAPIKey(key)
	if err != nil {
		t.Fatalf("Failed to hash key: %v", err)
	}

	tests := []struct {
		name string
		key  string
		hash string
		want bool
	}{
		{"Correct key", key, hash, true},
		{"Wrong key", "another-update-key-value", hash, false},
		{"Empty key", "", hash, false},
		{"Empty hash", key, "", false},
		{"Invalid hash", key, "invalid-hash", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CheckAPIKey(tt.key, tt.hash); got != tt.want {
				t.Errorf("CheckAPIKey() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestValidateAPIKey(t *testing.T) {
	if err := ValidateAPIKey("short"); err == nil || !strings.Contains(err.Error(), "too short") {
		t.Errorf("ValidateAPIKey() error = %v, want too short", err)
	}
	if err := ValidateAPIKey(strings.Repeat("k", MinAPIKeyLength)); err != nil {
		t.Errorf("ValidateAPIKey() error = %v", err)
	}
}

func TestValidateSubject(t *testing.T) {
	tests := []struct {
		name        string
		subject     string
		wantErr     bool
		errContains string
	}{
		{name: "Valid subject", subject: "loader", wantErr: false},
		{name: "Valid with mail form", subject: "etl@example.org", wantErr: false},
		{name: "Too short", subject: "ab", wantErr: true, errContains: "at least 3"},
		{name: "Too long", subject: strings.Repeat("a", 51), wantErr: true, errContains: "at most 50"},
		{name: "Invalid characters - space", subject: "etl job", wantErr: true, errContains: "letters, numbers"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateSubject(tt.subject)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateSubject() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if tt.wantErr && !strings.Contains(err.Error(), tt.errContains) {
				t.Errorf("ValidateSubject() error = %v, want error containing %q", err, tt.errContains)
			}
		})
	}
}

func TestModeFor(t *testing.T) {
	tests := []struct {
		hash, secret string
		want         AuthMode
	}{
		{"", "", AuthModeNone},
		{"h", "", AuthModeKey},
		{"", "s", AuthModeToken},
		{"h", "s", AuthModeAny},
	}
	for _, tt := range tests {
		if got := ModeFor(tt.hash, tt.secret); got != tt.want {
			t.Errorf("ModeFor(%q, %q) = %v, want %v", tt.hash, tt.secret, got, tt.want)
		}
	}
}
