package internaldefs

import (
	authcore "github.com/feedbackos/authcore"
)

// CounterDef defines a public type used by authcore APIs.
//
// CounterDef instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type CounterDef struct {
	ID   authcore.MetricID
	Name string
	Help string
}

// CounterDefs is an exported constant or variable used by the control plane.
var CounterDefs = []CounterDef{
	{ID: authcore.MetricSignUpOTPRequested, Name: "authcore_signup_otp_requested_total", Help: "Fresh sign-up OTP challenges opened."},
	{ID: authcore.MetricSignUpOTPReissued, Name: "authcore_signup_otp_reissued_total", Help: "Sign-up OTP requests served from a live challenge."},
	{ID: authcore.MetricSignUpCompleted, Name: "authcore_signup_completed_total", Help: "Completed sign-ups."},
	{ID: authcore.MetricResetOTPRequested, Name: "authcore_reset_otp_requested_total", Help: "Password reset OTP requests."},
	{ID: authcore.MetricResetSessionOpened, Name: "authcore_reset_session_opened_total", Help: "Privileged reset sessions opened after OTP verification."},
	{ID: authcore.MetricResetCompleted, Name: "authcore_reset_completed_total", Help: "Completed password resets."},
	{ID: authcore.MetricEmailChangeRequested, Name: "authcore_email_change_requested_total", Help: "Email change OTP requests."},
	{ID: authcore.MetricEmailChangeCompleted, Name: "authcore_email_change_completed_total", Help: "Completed email changes."},
	{ID: authcore.MetricOTPRejected, Name: "authcore_otp_rejected_total", Help: "OTP verifications rejected for a wrong code."},
	{ID: authcore.MetricOTPRateLimited, Name: "authcore_otp_rate_limited_total", Help: "OTP requests denied by the request limit."},
	{ID: authcore.MetricOTPExhausted, Name: "authcore_otp_exhausted_total", Help: "OTP operations denied by the attempt-exhaustion lock."},
	{ID: authcore.MetricLoginSuccess, Name: "authcore_login_success_total", Help: "Successful logins."},
	{ID: authcore.MetricLoginFailure, Name: "authcore_login_failure_total", Help: "Failed logins."},
	{ID: authcore.MetricAccessRefreshed, Name: "authcore_access_refreshed_total", Help: "Access tokens minted from a refresh token."},
	{ID: authcore.MetricRefreshRejected, Name: "authcore_refresh_rejected_total", Help: "Refresh tokens rejected."},
	{ID: authcore.MetricJoinCodeGenerated, Name: "authcore_join_code_generated_total", Help: "Join codes generated."},
	{ID: authcore.MetricJoinCodeRedeemed, Name: "authcore_join_code_redeemed_total", Help: "Join codes redeemed."},
	{ID: authcore.MetricJoinCodeInvalidated, Name: "authcore_join_code_invalidated_total", Help: "Join codes invalidated before expiry."},
	{ID: authcore.MetricJoinCodeRateLimited, Name: "authcore_join_code_rate_limited_total", Help: "Join-code generations denied by the window cap."},
}
