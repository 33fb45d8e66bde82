package authcore

import (
	"errors"
	"time"
)

// Config defines a public type used by authcore APIs.
//
// Config instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Config struct {
	JWT           JWTConfig
	OTP           OTPConfig
	Password      PasswordConfig
	SignUp        SignUpConfig
	PasswordReset PasswordResetConfig
	EmailChange   EmailChangeConfig
	JoinCode      JoinCodeConfig
	Audit         AuditConfig
	Metrics       MetricsConfig
}

/*
====================================
JWT CONFIG
====================================
*/

// JWTConfig defines a public type used by authcore APIs.
//
// JWTConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type JWTConfig struct {
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	ResetTTL      time.Duration
	SigningMethod string // "hs256" (default), "ed25519" optional
	Secret        []byte // hs256 signing secret
	PrivateKey    []byte // ed25519
	PublicKey     []byte // ed25519
	Issuer        string
	Leeway        time.Duration
}

/*
====================================
OTP CONFIG
====================================
*/

// OTPConfig bounds one-time-passcode issuance and verification. The two
// limits are independent: RequestLimit caps how many times a code may be
// (re)issued within one TTL window, AttemptLimit caps failed verifications
// of the issued code.
type OTPConfig struct {
	RequestLimit int
	AttemptLimit int
	TTL          time.Duration
}

// PasswordConfig defines a public type used by authcore APIs.
//
// PasswordConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type PasswordConfig struct {
	Memory      uint32 // in KB
	Time        uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
	MinLength   int
}

// SignUpConfig defines a public type used by authcore APIs.
//
// SignUpConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type SignUpConfig struct {
	Enabled     bool
	AutoLogin   bool
	DefaultRole string
}

// PasswordResetConfig defines a public type used by authcore APIs.
//
// PasswordResetConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type PasswordResetConfig struct {
	Enabled bool
	// SessionTTL bounds the privileged reset session opened after a
	// successful OTP verification.
	SessionTTL time.Duration
}

// EmailChangeConfig defines a public type used by authcore APIs.
//
// EmailChangeConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type EmailChangeConfig struct {
	Enabled bool
}

// JoinCodeConfig defines a public type used by authcore APIs.
//
// JoinCodeConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type JoinCodeConfig struct {
	Enabled bool
	// CodeTTL is the lifetime of an individual code.
	CodeTTL time.Duration
	// WindowTTL is the lifetime of the per-organization generation window.
	WindowTTL time.Duration
	// GenerationCap caps codes issued per organization per window.
	GenerationCap int
	MemberRole    string
	AdminRole     string
}

// AuditConfig defines a public type used by authcore APIs.
//
// AuditConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// MetricsConfig defines a public type used by authcore APIs.
//
// MetricsConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type MetricsConfig struct {
	Enabled bool
}

// DefaultConfig returns the baseline configuration: 6-digit OTPs with a
// 10-minute window (7 requests, 5 attempts), 15-minute access tokens,
// 7-day refresh tokens, 10-minute reset sessions and a 20-codes-per-day
// join-code cap.
func DefaultConfig() Config {
	return defaultConfig()
}

func defaultConfig() Config {
	return Config{
		JWT: JWTConfig{
			AccessTTL:     15 * time.Minute,
			RefreshTTL:    7 * 24 * time.Hour,
			ResetTTL:      10 * time.Minute,
			SigningMethod: "hs256",
			Issuer:        "authcore",
			Leeway:        30 * time.Second,
		},
		OTP: OTPConfig{
			RequestLimit: 7,
			AttemptLimit: 5,
			TTL:          600 * time.Second,
		},
		Password: PasswordConfig{
			Memory:      64 * 1024,
			Time:        3,
			Parallelism: 2,
			SaltLength:  16,
			KeyLength:   32,
			MinLength:   8,
		},
		SignUp: SignUpConfig{
			Enabled:     true,
			AutoLogin:   false,
			DefaultRole: "user",
		},
		PasswordReset: PasswordResetConfig{
			Enabled:    true,
			SessionTTL: 10 * time.Minute,
		},
		EmailChange: EmailChangeConfig{
			Enabled: true,
		},
		JoinCode: JoinCodeConfig{
			Enabled:       true,
			CodeTTL:       time.Hour,
			WindowTTL:     24 * time.Hour,
			GenerationCap: 20,
			MemberRole:    "organization_member",
			AdminRole:     "organization_admin",
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 256,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
	}
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.JWT.Secret = cloneBytes(cfg.JWT.Secret)
	out.JWT.PrivateKey = cloneBytes(cfg.JWT.PrivateKey)
	out.JWT.PublicKey = cloneBytes(cfg.JWT.PublicKey)
	return out
}

func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

// Validate checks internal consistency of the configuration.
//
// Validate may return an error when input validation, dependency calls, or security checks fail.
func (c *Config) Validate() error {
	if c.JWT.AccessTTL <= 0 || c.JWT.RefreshTTL <= 0 {
		return errors.New("jwt: access and refresh TTLs must be positive")
	}
	if c.JWT.RefreshTTL <= c.JWT.AccessTTL {
		return errors.New("jwt: refresh TTL must exceed access TTL")
	}
	if c.PasswordReset.Enabled && c.JWT.ResetTTL <= 0 {
		return errors.New("jwt: reset TTL must be positive")
	}
	switch c.JWT.SigningMethod {
	case "hs256":
		if len(c.JWT.Secret) < 32 {
			return errors.New("jwt: hs256 requires a secret of at least 32 bytes")
		}
	case "ed25519":
		if len(c.JWT.PrivateKey) == 0 && len(c.JWT.PublicKey) == 0 {
			return errors.New("jwt: ed25519 requires key material")
		}
	default:
		return errors.New("jwt: unsupported signing method")
	}
	if c.OTP.RequestLimit <= 0 || c.OTP.AttemptLimit <= 0 {
		return errors.New("otp: request and attempt limits must be positive")
	}
	if c.OTP.TTL <= 0 {
		return errors.New("otp: ttl must be positive")
	}
	if c.Password.MinLength < 8 {
		return errors.New("password: minimum length below 8")
	}
	if c.Password.SaltLength < 8 || c.Password.KeyLength < 16 {
		return errors.New("password: weak argon2 parameters")
	}
	if c.PasswordReset.Enabled && c.PasswordReset.SessionTTL <= 0 {
		return errors.New("password reset: session ttl must be positive")
	}
	if c.JoinCode.Enabled {
		if c.JoinCode.CodeTTL <= 0 || c.JoinCode.WindowTTL <= 0 {
			return errors.New("join code: ttls must be positive")
		}
		if c.JoinCode.CodeTTL > c.JoinCode.WindowTTL {
			return errors.New("join code: code ttl exceeds generation window")
		}
		if c.JoinCode.GenerationCap <= 0 {
			return errors.New("join code: generation cap must be positive")
		}
		if c.JoinCode.MemberRole == "" || c.JoinCode.AdminRole == "" {
			return errors.New("join code: member and admin roles required")
		}
	}
	return nil
}
