package authcore

import (
	"context"
	"errors"
	"fmt"

	"github.com/feedbackos/authcore/internal"
	"github.com/feedbackos/authcore/record"
)

// joinCodeRecord maps an individual code back to its organization. Keyed
// by the code itself under the org-join-code purpose, so redemption needs
// no knowledge of the issuing organization.
type joinCodeRecord struct {
	OrganizationID string `json:"organizationId"`
	Code           string `json:"code"`
}

const joinCodeCreateRetries = 3

// GenerateJoinCode issues a short-lived invite code for an organization.
//
// Each code lives for JoinCode.CodeTTL. Issued codes are also tracked in a
// per-organization set whose TTL (JoinCode.WindowTTL) is applied only when
// the set is created, never refreshed by later additions: the generation
// window is a fixed budget, and its cardinality is a coarse count of codes
// issued this window. Redeemed or invalidated codes still occupy their
// slot until the window lapses.
//
// GenerateJoinCode may return an error when input validation, dependency calls, or security checks fail.
// Notable failures: [ErrJoinCodePaused], [ErrJoinCodeLimit] (as
// [RateLimitError] with the window's remaining TTL).
func (e *Engine) GenerateJoinCode(ctx context.Context, orgID string) (string, error) {
	if err := e.ready(); err != nil {
		return "", err
	}
	if !e.config.JoinCode.Enabled {
		return "", ErrJoinCodesDisabled
	}
	if orgID == "" {
		return "", ErrJoinCodeInvalid
	}

	paused, err := e.joinCodesPaused(ctx, orgID)
	if err != nil {
		return "", err
	}
	if paused {
		e.emitAudit(ctx, auditFailure(auditEventJoinCodeGenerate, orgID, ErrJoinCodePaused))
		return "", ErrJoinCodePaused
	}

	setKey := record.Key(record.PurposeAllJoinCodes, orgID)
	issued, err := e.records.SetCardinality(ctx, setKey)
	if err != nil {
		return "", err
	}
	if issued >= int64(e.config.JoinCode.GenerationCap) {
		retryAfter, ttlErr := e.records.TTL(ctx, setKey)
		if ttlErr != nil {
			return "", ttlErr
		}
		e.metricInc(MetricJoinCodeRateLimited)
		e.emitAudit(ctx, auditFailure(auditEventJoinCodeGenerate, orgID, ErrJoinCodeLimit))
		return "", rateLimited(ErrJoinCodeLimit, retryAfter)
	}

	// 8 hex chars leave collisions possible in principle; CreateOnly makes
	// them visible, and a couple of retries make them irrelevant.
	var code string
	for attempt := 0; ; attempt++ {
		candidate, err := internal.NewJoinCode()
		if err != nil {
			return "", fmt.Errorf("generate join code: %w", err)
		}
		rec := &joinCodeRecord{OrganizationID: orgID, Code: candidate}
		err = e.records.Put(ctx, record.Key(record.PurposeOrgJoinCode, candidate), rec, e.config.JoinCode.CodeTTL, record.PutCreateOnly)
		if err == nil {
			code = candidate
			break
		}
		if !errors.Is(err, record.ErrRecordExists) {
			return "", err
		}
		if attempt+1 >= joinCodeCreateRetries {
			return "", fmt.Errorf("%w: join code space exhausted", ErrStoreUnavailable)
		}
	}

	if err := e.records.AddToSet(ctx, setKey, code, e.config.JoinCode.WindowTTL, false); err != nil {
		return "", err
	}

	e.metricInc(MetricJoinCodeGenerated)
	e.emitAudit(ctx, AuditEvent{
		EventType:      auditEventJoinCodeGenerate,
		Subject:        code,
		OrganizationID: orgID,
		Success:        true,
	})
	return code, nil
}

// RedeemJoinCode joins userID to the code's organization with the member
// role. The per-code record is consumed on success; the set entry is left
// for the window counter. Membership guards fire before any state
// changes: an admin cannot redeem a code for their own organization, an
// existing member cannot rejoin, and membership elsewhere blocks the
// join.
//
// RedeemJoinCode may return an error when input validation, dependency calls, or security checks fail.
// Notable failures: [ErrJoinCodeInvalid], [ErrAlreadyAdmin],
// [ErrAlreadyMember], [ErrMemberElsewhere].
func (e *Engine) RedeemJoinCode(ctx context.Context, code, userID string) (UserRecord, error) {
	if err := e.ready(); err != nil {
		return UserRecord{}, err
	}
	if !e.config.JoinCode.Enabled {
		return UserRecord{}, ErrJoinCodesDisabled
	}

	rec := &joinCodeRecord{}
	key := record.Key(record.PurposeOrgJoinCode, code)
	if err := e.records.GetJSON(ctx, key, rec); err != nil {
		if errors.Is(err, record.ErrRecordNotFound) {
			e.emitAudit(ctx, auditFailure(auditEventJoinCodeRedeem, code, ErrJoinCodeInvalid))
			return UserRecord{}, ErrJoinCodeInvalid
		}
		return UserRecord{}, err
	}

	user, err := e.lookupUserByID(ctx, userID)
	if err != nil {
		return UserRecord{}, err
	}

	if err := validateJoin(user, rec.OrganizationID, e.config.JoinCode.AdminRole); err != nil {
		e.emitAudit(ctx, auditFailure(auditEventJoinCodeRedeem, code, err))
		return UserRecord{}, err
	}

	roles := user.Roles
	if !user.HasRole(e.config.JoinCode.MemberRole) {
		roles = append(append([]string{}, user.Roles...), e.config.JoinCode.MemberRole)
	}
	updated, err := e.userProvider.UpdateUser(ctx, userID, UserChanges{
		OrganizationID: &rec.OrganizationID,
		Roles:          roles,
	})
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return UserRecord{}, ErrUserNotFound
		}
		return UserRecord{}, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	// Consume the code; the window set intentionally keeps its member.
	if _, err := e.records.Delete(ctx, key); err != nil {
		return UserRecord{}, err
	}

	e.metricInc(MetricJoinCodeRedeemed)
	e.emitAudit(ctx, AuditEvent{
		EventType:      auditEventJoinCodeRedeem,
		Subject:        code,
		UserID:         userID,
		OrganizationID: rec.OrganizationID,
		Success:        true,
	})
	return updated, nil
}

// validateJoin enforces the membership guards, most specific first.
func validateJoin(user UserRecord, orgID, adminRole string) error {
	if user.HasRole(adminRole) && user.OrganizationID == orgID {
		return ErrAlreadyAdmin
	}
	if user.OrganizationID == orgID {
		return ErrAlreadyMember
	}
	if user.OrganizationID != "" {
		return ErrMemberElsewhere
	}
	return nil
}

// InvalidateJoinCode revokes a live code before its natural expiry.
//
// InvalidateJoinCode may return an error when input validation, dependency calls, or security checks fail.
// Returns [ErrJoinCodeNotFound] when no record was deleted.
func (e *Engine) InvalidateJoinCode(ctx context.Context, code string) error {
	if err := e.ready(); err != nil {
		return err
	}
	if !e.config.JoinCode.Enabled {
		return ErrJoinCodesDisabled
	}

	deleted, err := e.records.Delete(ctx, record.Key(record.PurposeOrgJoinCode, code))
	if err != nil {
		return err
	}
	if deleted == 0 {
		return ErrJoinCodeNotFound
	}

	e.metricInc(MetricJoinCodeInvalidated)
	e.emitAudit(ctx, auditSuccess(auditEventJoinCodeInvalidate, code))
	return nil
}

// ListActiveJoinCodes returns the codes tracked in the organization's
// generation window. Entries can outlive their per-code records (redeemed
// or expired codes stay listed until the window lapses), so presence in
// the list does not imply redeemability.
//
// ListActiveJoinCodes may return an error when input validation, dependency calls, or security checks fail.
func (e *Engine) ListActiveJoinCodes(ctx context.Context, orgID string) ([]string, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	if !e.config.JoinCode.Enabled {
		return nil, ErrJoinCodesDisabled
	}
	return e.records.SetMembers(ctx, record.Key(record.PurposeAllJoinCodes, orgID))
}

// PauseJoinCodeGeneration blocks new code generation for an organization
// until resumed or until the pause record expires with the window.
//
// PauseJoinCodeGeneration may return an error when input validation, dependency calls, or security checks fail.
func (e *Engine) PauseJoinCodeGeneration(ctx context.Context, orgID string) error {
	if err := e.ready(); err != nil {
		return err
	}
	if !e.config.JoinCode.Enabled {
		return ErrJoinCodesDisabled
	}
	key := record.Key(record.PurposePauseCodeGeneration, orgID)
	return e.records.Put(ctx, key, "1", e.config.JoinCode.WindowTTL, record.PutAlways)
}

// ResumeJoinCodeGeneration lifts a pause. Resuming an organization that
// was never paused is a no-op.
//
// ResumeJoinCodeGeneration may return an error when input validation, dependency calls, or security checks fail.
func (e *Engine) ResumeJoinCodeGeneration(ctx context.Context, orgID string) error {
	if err := e.ready(); err != nil {
		return err
	}
	if !e.config.JoinCode.Enabled {
		return ErrJoinCodesDisabled
	}
	_, err := e.records.Delete(ctx, record.Key(record.PurposePauseCodeGeneration, orgID))
	return err
}

func (e *Engine) joinCodesPaused(ctx context.Context, orgID string) (bool, error) {
	_, err := e.records.Get(ctx, record.Key(record.PurposePauseCodeGeneration, orgID))
	if err != nil {
		if errors.Is(err, record.ErrRecordNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
