package record

// Purpose scopes an ephemeral key so that the same identifier can carry
// independent state across flows (an email used for sign-up and for
// password reset must not collide).
//
// Purpose instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Purpose string

const (
	// PurposeSignUpOTP is an exported constant or variable used by the control plane.
	PurposeSignUpOTP Purpose = "sign-up-otp"
	// PurposeResetPasswordOTP is an exported constant or variable used by the control plane.
	PurposeResetPasswordOTP Purpose = "reset-password-otp"
	// PurposeResetPasswordToken is an exported constant or variable used by the control plane.
	PurposeResetPasswordToken Purpose = "reset-password-token"
	// PurposeEmailChangeOTP is an exported constant or variable used by the control plane.
	PurposeEmailChangeOTP Purpose = "email-change-otp"
	// PurposeOrgJoinCode is an exported constant or variable used by the control plane.
	PurposeOrgJoinCode Purpose = "org-join-code"
	// PurposeAllJoinCodes is an exported constant or variable used by the control plane.
	PurposeAllJoinCodes Purpose = "all-join-codes"
	// PurposeCached is an exported constant or variable used by the control plane.
	PurposeCached Purpose = "cached"
	// PurposeInviteCodeCount is an exported constant or variable used by the control plane.
	PurposeInviteCodeCount Purpose = "invite-code-count"
	// PurposePauseCodeGeneration is an exported constant or variable used by the control plane.
	PurposePauseCodeGeneration Purpose = "pause-code-generation"
)

var knownPurposes = map[Purpose]struct{}{
	PurposeSignUpOTP:           {},
	PurposeResetPasswordOTP:    {},
	PurposeResetPasswordToken:  {},
	PurposeEmailChangeOTP:      {},
	PurposeOrgJoinCode:         {},
	PurposeAllJoinCodes:        {},
	PurposeCached:              {},
	PurposeInviteCodeCount:     {},
	PurposePauseCodeGeneration: {},
}

// Known reports whether the purpose belongs to the closed enumeration.
// Unknown purposes are still usable as opaque key prefixes; the store does
// not reject them so that new flows can be introduced without a lockstep
// upgrade of every consumer.
func (p Purpose) Known() bool {
	_, ok := knownPurposes[p]
	return ok
}

// Key builds the store key for a purpose/identifier pair. The layout is
// "<purpose>:<identifier>" and is part of the external contract: other
// processes sharing the store address records with the same scheme.
func Key(purpose Purpose, identifier string) string {
	return string(purpose) + ":" + identifier
}
