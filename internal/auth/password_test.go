package auth

import (
	"errors"
	"strings"
	"testing"
)

func TestPasswordHashingLifecycle(t *testing.T) {
	password := "S3curePass!"
	hash, err := HashPassword(password)
	if err != nil {
		t.Fatalf("unexpected error hashing password: %v", err)
	}
	if hash == "" {
		t.Fatal("expected hash to be populated")
	}

	if err := VerifyPassword(hash, password); err != nil {
		t.Fatalf("expected password to verify, got error: %v", err)
	}

	if err := VerifyPassword(hash, "wrong"); !errors.Is(err, ErrPasswordHashMismatch) {
		t.Fatalf("expected mismatch error for wrong password, got %v", err)
	}
}

func TestValidatePassword(t *testing.T) {
	tests := []struct {
		name     string
		password string
		wantErr  error
	}{
		{name: "valid", password: "Abc12345!"},
		{name: "too short", password: "Ab1!", wantErr: ErrPasswordTooShort},
		{name: "too long", password: "Aa1!" + strings.Repeat("x", 97), wantErr: ErrPasswordTooLong},
		{name: "no uppercase", password: "abc12345", wantErr: ErrPasswordNoUppercase},
		{name: "no lowercase", password: "ABC12345!", wantErr: ErrPasswordNoLowercase},
		{name: "no digit", password: "Abcdefgh!", wantErr: ErrPasswordNoDigit},
		{name: "no special", password: "Abc123456", wantErr: ErrPasswordNoSpecial},
		{name: "backslash counts", password: `Abc12345\`},
		{name: "exactly max", password: "Aa1!" + strings.Repeat("x", 96)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePassword(tt.password)
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("expected password to pass, got %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestValidatePasswordNamesTheRule(t *testing.T) {
	err := ValidatePassword("abc12345")
	if err == nil {
		t.Fatal("expected policy violation")
	}
	if !strings.Contains(err.Error(), "uppercase") {
		t.Fatalf("expected message to name the uppercase rule, got %q", err.Error())
	}
}

func TestNormalizeUsername(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "alice", want: "alice"},
		{in: "  Bob_99 ", want: "Bob_99"},
		{in: "ab", wantErr: true},
		{in: strings.Repeat("a", 51), wantErr: true},
		{in: "with space", wantErr: true},
		{in: "dash-name", wantErr: true},
		{in: "émile", wantErr: true},
	}
	for _, tt := range tests {
		got, err := NormalizeUsername(tt.in)
		if tt.wantErr {
			if !errors.Is(err, ErrInvalidUsername) {
				t.Errorf("NormalizeUsername(%q): expected ErrInvalidUsername, got %v", tt.in, err)
			}
			continue
		}
		if err != nil || got != tt.want {
			t.Errorf("NormalizeUsername(%q) = %q, %v; want %q", tt.in, got, err, tt.want)
		}
	}

	if got := NormalizeEmail("  Alice@Example.COM "); got != "alice@example.com" {
		t.Errorf("NormalizeEmail returned %q", got)
	}
}
