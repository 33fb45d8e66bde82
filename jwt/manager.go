package jwt

import (
	"crypto/ed25519"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// SigningMethod defines a public type used by authcore APIs.
//
// SigningMethod instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type SigningMethod string

const (
	// MethodHS256 is an exported constant or variable used by the control plane.
	MethodHS256 SigningMethod = "hs256"
	// MethodEd25519 is an exported constant or variable used by the control plane.
	MethodEd25519 SigningMethod = "ed25519"
)

// ResetPurpose tags privileged reset tokens so they can never be replayed
// against a different flow that shares the subject identifier.
const ResetPurpose = "reset-password-token"

var (
	// ErrTokenExpired is an exported constant or variable used by the control plane.
	ErrTokenExpired = errors.New("token expired")
	// ErrTokenInvalid is an exported constant or variable used by the control plane.
	ErrTokenInvalid = errors.New("invalid token")
)

// Config defines a public type used by authcore APIs.
//
// Config instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Config struct {
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	ResetTTL      time.Duration
	SigningMethod SigningMethod
	Secret        []byte // hs256
	PrivateKey    []byte // ed25519, raw seed or PEM PKCS#8
	PublicKey     []byte // ed25519, raw or PEM PKIX
	Issuer        string
	Leeway        time.Duration
}

// Manager signs and verifies the three bearer artifacts: short-lived
// access tokens carrying subject id and role set, long-lived refresh
// tokens carrying only the subject id, and single-purpose reset tokens
// whose validity additionally depends on a live server-side session
// record checked by the caller.
type Manager struct {
	config Config
}

// AccessClaims defines a public type used by authcore APIs.
type AccessClaims struct {
	Roles []string `json:"roles,omitempty"`
	jwt.RegisteredClaims
}

// RefreshClaims defines a public type used by authcore APIs.
type RefreshClaims struct {
	jwt.RegisteredClaims
}

// ResetClaims defines a public type used by authcore APIs.
type ResetClaims struct {
	Purpose   string `json:"purpose"`
	SessionID string `json:"sid"`
	jwt.RegisteredClaims
}

// NewManager validates the configuration and returns a token manager.
//
// NewManager may return an error when input validation, dependency calls, or security checks fail.
func NewManager(cfg Config) (*Manager, error) {
	if cfg.AccessTTL <= 0 || cfg.RefreshTTL <= 0 {
		return nil, errors.New("invalid TTL configuration")
	}
	if cfg.Leeway < 0 || cfg.Leeway > 2*time.Minute {
		return nil, errors.New("invalid leeway configuration")
	}
	if cfg.ResetTTL <= 0 {
		cfg.ResetTTL = 10 * time.Minute
	}

	switch cfg.SigningMethod {
	case MethodHS256:
		if len(cfg.Secret) == 0 {
			return nil, errors.New("hs256 requires a signing secret")
		}
	case MethodEd25519:
		if len(cfg.PrivateKey) > 0 {
			if _, err := parseEdPrivateKey(cfg.PrivateKey); err != nil {
				return nil, err
			}
		}
		if len(cfg.PublicKey) > 0 {
			if _, err := parseEdPublicKey(cfg.PublicKey); err != nil {
				return nil, err
			}
		}
		if len(cfg.PrivateKey) == 0 && len(cfg.PublicKey) == 0 {
			return nil, errors.New("ed25519 requires key material")
		}
	default:
		return nil, errors.New("unsupported signing method")
	}

	return &Manager{config: cfg}, nil
}

// CreateAccess mints a short-lived access token for the subject and its
// current role set.
func (m *Manager) CreateAccess(subject string, roles []string) (string, error) {
	now := time.Now()
	claims := AccessClaims{
		Roles: roles,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Issuer:    m.config.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.config.AccessTTL)),
		},
	}
	return m.sign(claims)
}

// CreateRefresh mints a long-lived refresh token for the subject.
func (m *Manager) CreateRefresh(subject string) (string, error) {
	now := time.Now()
	claims := RefreshClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Issuer:    m.config.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.config.RefreshTTL)),
		},
	}
	return m.sign(claims)
}

// CreateReset mints a privileged reset token bound to the server-side
// session identified by sessionID.
func (m *Manager) CreateReset(subject, sessionID string) (string, error) {
	now := time.Now()
	claims := ResetClaims{
		Purpose:   ResetPurpose,
		SessionID: sessionID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Issuer:    m.config.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.config.ResetTTL)),
		},
	}
	return m.sign(claims)
}

// ParseAccess verifies signature and expiry of an access token.
//
// ParseAccess may return an error when input validation, dependency calls, or security checks fail.
func (m *Manager) ParseAccess(token string) (*AccessClaims, error) {
	claims := &AccessClaims{}
	if err := m.parse(token, claims); err != nil {
		return nil, err
	}
	return claims, nil
}

// ParseRefresh verifies signature and expiry of a refresh token.
func (m *Manager) ParseRefresh(token string) (*RefreshClaims, error) {
	claims := &RefreshClaims{}
	if err := m.parse(token, claims); err != nil {
		return nil, err
	}
	return claims, nil
}

// ParseReset verifies signature, expiry and purpose tag of a reset token.
// Callers must additionally check the companion session record before
// honoring the claims.
func (m *Manager) ParseReset(token string) (*ResetClaims, error) {
	claims := &ResetClaims{}
	if err := m.parse(token, claims); err != nil {
		return nil, err
	}
	if claims.Purpose != ResetPurpose || claims.SessionID == "" {
		return nil, ErrTokenInvalid
	}
	return claims, nil
}

func (m *Manager) sign(claims jwt.Claims) (string, error) {
	token := jwt.NewWithClaims(m.method(), claims)

	key, err := m.signKey()
	if err != nil {
		return "", err
	}

	signed, err := token.SignedString(key)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

func (m *Manager) parse(tokenStr string, claims jwt.Claims) error {
	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{m.method().Alg()}),
		jwt.WithExpirationRequired(),
	}
	if m.config.Leeway > 0 {
		options = append(options, jwt.WithLeeway(m.config.Leeway))
	}
	if m.config.Issuer != "" {
		options = append(options, jwt.WithIssuer(m.config.Issuer))
	}

	token, err := jwt.ParseWithClaims(tokenStr, claims, func(*jwt.Token) (interface{}, error) {
		return m.verifyKey()
	}, options...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return ErrTokenExpired
		}
		return ErrTokenInvalid
	}
	if !token.Valid {
		return ErrTokenInvalid
	}
	return nil
}

func (m *Manager) method() jwt.SigningMethod {
	if m.config.SigningMethod == MethodEd25519 {
		return jwt.SigningMethodEdDSA
	}
	return jwt.SigningMethodHS256
}

func (m *Manager) signKey() (interface{}, error) {
	if m.config.SigningMethod == MethodEd25519 {
		return parseEdPrivateKey(m.config.PrivateKey)
	}
	return m.config.Secret, nil
}

func (m *Manager) verifyKey() (interface{}, error) {
	if m.config.SigningMethod == MethodEd25519 {
		if len(m.config.PublicKey) > 0 {
			return parseEdPublicKey(m.config.PublicKey)
		}
		priv, err := parseEdPrivateKey(m.config.PrivateKey)
		if err != nil {
			return nil, err
		}
		return priv.Public(), nil
	}
	return m.config.Secret, nil
}

func parseEdPrivateKey(key []byte) (ed25519.PrivateKey, error) {
	if len(key) == ed25519.SeedSize {
		return ed25519.NewKeyFromSeed(key), nil
	}
	if len(key) == ed25519.PrivateKeySize {
		return ed25519.PrivateKey(key), nil
	}
	if block, _ := pem.Decode(key); block != nil {
		parsed, err := x509.ParsePKCS8PrivateKey(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("parse ed25519 private key: %w", err)
		}
		if priv, ok := parsed.(ed25519.PrivateKey); ok {
			return priv, nil
		}
	}
	return nil, errors.New("invalid ed25519 private key")
}

func parseEdPublicKey(key []byte) (ed25519.PublicKey, error) {
	if len(key) == ed25519.PublicKeySize {
		return ed25519.PublicKey(key), nil
	}
	if block, _ := pem.Decode(key); block != nil {
		parsed, err := x509.ParsePKIXPublicKey(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("parse ed25519 public key: %w", err)
		}
		if pub, ok := parsed.(ed25519.PublicKey); ok {
			return pub, nil
		}
	}
	return nil, errors.New("invalid ed25519 public key")
}
