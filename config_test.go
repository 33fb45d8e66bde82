package authcore

import (
	"strings"
	"testing"
	"time"
)

func TestValidateDefaults(t *testing.T) {
	cfg := testConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config with secret should validate: %v", err)
	}
}

func TestValidateRejections(t *testing.T) {
	cases := []struct {
		name    string
		mutate  func(*Config)
		wantMsg string
	}{
		{
			name:    "short hs256 secret",
			mutate:  func(c *Config) { c.JWT.Secret = []byte("short") },
			wantMsg: "32 bytes",
		},
		{
			name:    "refresh not exceeding access",
			mutate:  func(c *Config) { c.JWT.RefreshTTL = c.JWT.AccessTTL },
			wantMsg: "refresh TTL",
		},
		{
			name:    "unsupported signing method",
			mutate:  func(c *Config) { c.JWT.SigningMethod = "rs256" },
			wantMsg: "signing method",
		},
		{
			name:    "zero otp ttl",
			mutate:  func(c *Config) { c.OTP.TTL = 0 },
			wantMsg: "ttl",
		},
		{
			name:    "non-positive attempt limit",
			mutate:  func(c *Config) { c.OTP.AttemptLimit = 0 },
			wantMsg: "limits",
		},
		{
			name:    "weak minimum password length",
			mutate:  func(c *Config) { c.Password.MinLength = 4 },
			wantMsg: "length",
		},
		{
			name:    "code ttl exceeding window",
			mutate:  func(c *Config) { c.JoinCode.CodeTTL = 48 * time.Hour },
			wantMsg: "window",
		},
		{
			name:    "zero generation cap",
			mutate:  func(c *Config) { c.JoinCode.GenerationCap = 0 },
			wantMsg: "cap",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := testConfig()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tc.wantMsg) {
				t.Fatalf("expected %q in error, got %v", tc.wantMsg, err)
			}
		})
	}
}

func TestCloneConfigIsolatesKeyMaterial(t *testing.T) {
	cfg := testConfig()
	clone := cloneConfig(cfg)
	clone.JWT.Secret[0] ^= 0xff
	if cfg.JWT.Secret[0] == clone.JWT.Secret[0] {
		t.Fatal("clone shares secret backing array")
	}
}

func TestFromEnv(t *testing.T) {
	t.Setenv("OTP_REQUEST_LIMIT", "4")
	t.Setenv("OTP_ATTEMPT_LIMIT", "2")
	t.Setenv("OTP_TTL_SECONDS", "300")
	t.Setenv("ACCESS_TOKEN_EXPIRES_IN", "30")
	t.Setenv("REFRESH_TOKEN_EXPIRES_IN", "14")
	t.Setenv("RESET_TOKEN_EXPIRES_IN", "5")
	t.Setenv("AUTH_SIGNING_SECRET", "0123456789abcdef0123456789abcdef")
	t.Setenv("JOIN_CODE_GENERATION_CAP", "10")

	cfg := FromEnv()
	if cfg.OTP.RequestLimit != 4 || cfg.OTP.AttemptLimit != 2 {
		t.Fatalf("unexpected otp limits: %+v", cfg.OTP)
	}
	if cfg.OTP.TTL != 5*time.Minute {
		t.Fatalf("unexpected otp ttl: %v", cfg.OTP.TTL)
	}
	if cfg.JWT.AccessTTL != 30*time.Minute {
		t.Fatalf("unexpected access ttl: %v", cfg.JWT.AccessTTL)
	}
	if cfg.JWT.RefreshTTL != 14*24*time.Hour {
		t.Fatalf("unexpected refresh ttl: %v", cfg.JWT.RefreshTTL)
	}
	if cfg.JWT.ResetTTL != 5*time.Minute || cfg.PasswordReset.SessionTTL != 5*time.Minute {
		t.Fatalf("unexpected reset ttls: %v / %v", cfg.JWT.ResetTTL, cfg.PasswordReset.SessionTTL)
	}
	if cfg.JoinCode.GenerationCap != 10 {
		t.Fatalf("unexpected cap: %d", cfg.JoinCode.GenerationCap)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("env config should validate: %v", err)
	}
}

func TestFromEnvIgnoresMalformedValues(t *testing.T) {
	t.Setenv("OTP_REQUEST_LIMIT", "not-a-number")

	cfg := FromEnv()
	if cfg.OTP.RequestLimit != 7 {
		t.Fatalf("malformed value should keep default, got %d", cfg.OTP.RequestLimit)
	}
}
