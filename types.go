package authcore

import (
	"context"
	"time"
)

// UserRecord is the subject record exchanged with the identity store
// collaborator. Only the fields the control plane consults are modeled;
// the relational schema behind them is the collaborator's concern.
type UserRecord struct {
	UserID         string
	Email          string
	Name           string
	PasswordHash   string
	Roles          []string
	OrganizationID string
}

// HasRole reports whether the record carries the given role.
func (u UserRecord) HasRole(role string) bool {
	for _, r := range u.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// CreateUserInput is the input for [UserProvider.CreateUser].
type CreateUserInput struct {
	Email        string
	Name         string
	PasswordHash string
	Roles        []string
}

// UserChanges carries a partial update for [UserProvider.UpdateUser].
// Nil pointers leave the field untouched; a nil Roles slice leaves roles
// untouched.
type UserChanges struct {
	Email          *string
	Name           *string
	PasswordHash   *string
	OrganizationID *string
	Roles          []string
}

// UserProvider is the interface callers implement to connect authcore to
// their persistent identity store. Lookups for unknown subjects must
// return [ErrUserNotFound]; CreateUser must enforce uniqueness on the
// email identity key.
type UserProvider interface {
	GetUserByEmail(ctx context.Context, email string) (UserRecord, error)
	GetUserByID(ctx context.Context, userID string) (UserRecord, error)
	CreateUser(ctx context.Context, input CreateUserInput) (UserRecord, error)
	UpdateUser(ctx context.Context, userID string, changes UserChanges) (UserRecord, error)
}

// Mailer delivers generated passcodes out of band. Delivery is an
// external collaborator: a nil mailer is valid and leaves delivery to the
// caller (the challenge carries the authoritative code).
type Mailer interface {
	Send(ctx context.Context, to, subject, body string) error
}

// TokenPair bundles the two bearer artifacts of a session.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// OTPChallenge is returned by the OTP request operations. Code is the
// authoritative passcode for the subject: when a live record already
// existed, the embedded code is returned again (at most one active code
// per subject and purpose) and Reissued is set.
type OTPChallenge struct {
	Email     string
	Code      string
	ExpiresIn time.Duration
	Reissued  bool
}

// SignUpResult is returned by [Engine.ConfirmSignUp]. Tokens is non-nil
// only when auto-login is enabled.
type SignUpResult struct {
	User   UserRecord
	Tokens *TokenPair
}

// AuthResult is returned by [Engine.Authenticate]. RefreshedAccessToken is
// non-empty when the access token was expired or absent and a new one was
// minted from the refresh token; the caller is responsible for persisting
// it on the client.
type AuthResult struct {
	UserID               string
	Roles                []string
	RefreshedAccessToken string
}
