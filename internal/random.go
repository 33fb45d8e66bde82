package internal

import (
	"crypto/rand"
	"encoding/hex"
	"math/big"
	"strings"
)

// OTP codes are six digits drawn from a fixed range that never produces a
// leading zero, so codes survive integer round-trips in clients.
const (
	otpMin = 112111
	otpMax = 998999
)

const joinCodeBytes = 4

// NewOTPCode generates a 6-digit one-time passcode.
func NewOTPCode() (string, error) {
	span := big.NewInt(otpMax - otpMin + 1)
	n, err := rand.Int(rand.Reader, span)
	if err != nil {
		return "", err
	}
	return big.NewInt(0).Add(n, big.NewInt(otpMin)).String(), nil
}

// NewJoinCode generates an 8-character uppercase hex join code.
func NewJoinCode() (string, error) {
	raw := make([]byte, joinCodeBytes)
	if _, err := rand.Read(raw); err != nil {
		return "", err
	}
	return strings.ToUpper(hex.EncodeToString(raw)), nil
}
