package authcore

import (
	"os"
	"strconv"
	"time"
)

// FromEnv builds a [Config] from the recognized environment surface,
// starting from [DefaultConfig]:
//
//	OTP_REQUEST_LIMIT          codes issued per window (default 7)
//	OTP_ATTEMPT_LIMIT          failed verifications per code (default 5)
//	OTP_TTL_SECONDS            OTP window in seconds (default 600)
//	ACCESS_TOKEN_EXPIRES_IN    access token lifetime in minutes
//	REFRESH_TOKEN_EXPIRES_IN   refresh token lifetime in days
//	RESET_TOKEN_EXPIRES_IN     reset session lifetime in minutes
//	AUTH_SIGNING_SECRET        hs256 signing secret
//	JOIN_CODE_GENERATION_CAP   codes per organization per window (default 20)
//
// Unset variables keep their defaults.
func FromEnv() Config {
	cfg := defaultConfig()

	cfg.OTP.RequestLimit = getEnvInt("OTP_REQUEST_LIMIT", cfg.OTP.RequestLimit)
	cfg.OTP.AttemptLimit = getEnvInt("OTP_ATTEMPT_LIMIT", cfg.OTP.AttemptLimit)
	if secs := getEnvInt("OTP_TTL_SECONDS", 0); secs > 0 {
		cfg.OTP.TTL = time.Duration(secs) * time.Second
	}
	if mins := getEnvInt("ACCESS_TOKEN_EXPIRES_IN", 0); mins > 0 {
		cfg.JWT.AccessTTL = time.Duration(mins) * time.Minute
	}
	if days := getEnvInt("REFRESH_TOKEN_EXPIRES_IN", 0); days > 0 {
		cfg.JWT.RefreshTTL = time.Duration(days) * 24 * time.Hour
	}
	if mins := getEnvInt("RESET_TOKEN_EXPIRES_IN", 0); mins > 0 {
		cfg.JWT.ResetTTL = time.Duration(mins) * time.Minute
		cfg.PasswordReset.SessionTTL = cfg.JWT.ResetTTL
	}
	if secret := os.Getenv("AUTH_SIGNING_SECRET"); secret != "" {
		cfg.JWT.Secret = []byte(secret)
	}
	cfg.JoinCode.GenerationCap = getEnvInt("JOIN_CODE_GENERATION_CAP", cfg.JoinCode.GenerationCap)

	return cfg
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}
