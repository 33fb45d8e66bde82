package authcore

import (
	"context"
	"errors"
	"time"

	"github.com/feedbackos/authcore/record"
)

// otpRecord is the ephemeral session behind one OTP flow. One record per
// subject and purpose; the embedded code stays authoritative for the whole
// window regardless of how many times issuance is re-requested.
//
// PasswordHash carries the argon2id digest of a pending sign-up password.
// The plaintext never reaches the store.
type otpRecord struct {
	Code         string `json:"otp"`
	Email        string `json:"email"`
	Name         string `json:"name,omitempty"`
	PasswordHash string `json:"passwordHash,omitempty"`
	UserID       string `json:"userId,omitempty"`
	RequestCount int    `json:"requestCount"`
	AttemptCount int    `json:"attemptCount"`
}

type otpStore struct {
	records *record.Store
}

func newOTPStore(records *record.Store) *otpStore {
	return &otpStore{records: records}
}

func (s *otpStore) key(purpose record.Purpose, identifier string) string {
	return record.Key(purpose, identifier)
}

// Create writes a fresh record under CreateOnly. [record.ErrRecordExists]
// means a concurrent request won the race; callers adopt the winner via Get.
func (s *otpStore) Create(ctx context.Context, purpose record.Purpose, identifier string, rec *otpRecord, ttl time.Duration) error {
	return s.records.Put(ctx, s.key(purpose, identifier), rec, ttl, record.PutCreateOnly)
}

// Update rewrites an existing record, refreshing its TTL to the full
// window. UpdateOnly guards against resurrecting a record that expired
// between read and write.
func (s *otpStore) Update(ctx context.Context, purpose record.Purpose, identifier string, rec *otpRecord, ttl time.Duration) error {
	return s.records.Put(ctx, s.key(purpose, identifier), rec, ttl, record.PutUpdateOnly)
}

// Get returns the live record, or nil when none exists.
func (s *otpStore) Get(ctx context.Context, purpose record.Purpose, identifier string) (*otpRecord, error) {
	rec := &otpRecord{}
	err := s.records.GetJSON(ctx, s.key(purpose, identifier), rec)
	if err != nil {
		if errors.Is(err, record.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return rec, nil
}

// Delete removes the record; consuming a verified code is idempotent, so
// the removed count is not surfaced.
func (s *otpStore) Delete(ctx context.Context, purpose record.Purpose, identifier string) error {
	_, err := s.records.Delete(ctx, s.key(purpose, identifier))
	return err
}

// TTL reports the remaining window of the record.
func (s *otpStore) TTL(ctx context.Context, purpose record.Purpose, identifier string) (time.Duration, error) {
	return s.records.TTL(ctx, s.key(purpose, identifier))
}
