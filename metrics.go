package authcore

import (
	internalmetrics "github.com/feedbackos/authcore/internal/metrics"
)

// MetricID identifies a specific counter in the in-process metrics bank.
type MetricID = internalmetrics.MetricID

const (
	// MetricSignUpOTPRequested is an exported constant or variable used by the control plane.
	MetricSignUpOTPRequested = internalmetrics.MetricSignUpOTPRequested
	// MetricSignUpOTPReissued is an exported constant or variable used by the control plane.
	MetricSignUpOTPReissued = internalmetrics.MetricSignUpOTPReissued
	// MetricSignUpCompleted is an exported constant or variable used by the control plane.
	MetricSignUpCompleted = internalmetrics.MetricSignUpCompleted
	// MetricResetOTPRequested is an exported constant or variable used by the control plane.
	MetricResetOTPRequested = internalmetrics.MetricResetOTPRequested
	// MetricResetSessionOpened is an exported constant or variable used by the control plane.
	MetricResetSessionOpened = internalmetrics.MetricResetSessionOpened
	// MetricResetCompleted is an exported constant or variable used by the control plane.
	MetricResetCompleted = internalmetrics.MetricResetCompleted
	// MetricEmailChangeRequested is an exported constant or variable used by the control plane.
	MetricEmailChangeRequested = internalmetrics.MetricEmailChangeRequested
	// MetricEmailChangeCompleted is an exported constant or variable used by the control plane.
	MetricEmailChangeCompleted = internalmetrics.MetricEmailChangeCompleted
	// MetricOTPRejected is an exported constant or variable used by the control plane.
	MetricOTPRejected = internalmetrics.MetricOTPRejected
	// MetricOTPRateLimited is an exported constant or variable used by the control plane.
	MetricOTPRateLimited = internalmetrics.MetricOTPRateLimited
	// MetricOTPExhausted is an exported constant or variable used by the control plane.
	MetricOTPExhausted = internalmetrics.MetricOTPExhausted
	// MetricLoginSuccess is an exported constant or variable used by the control plane.
	MetricLoginSuccess = internalmetrics.MetricLoginSuccess
	// MetricLoginFailure is an exported constant or variable used by the control plane.
	MetricLoginFailure = internalmetrics.MetricLoginFailure
	// MetricAccessRefreshed is an exported constant or variable used by the control plane.
	MetricAccessRefreshed = internalmetrics.MetricAccessRefreshed
	// MetricRefreshRejected is an exported constant or variable used by the control plane.
	MetricRefreshRejected = internalmetrics.MetricRefreshRejected
	// MetricJoinCodeGenerated is an exported constant or variable used by the control plane.
	MetricJoinCodeGenerated = internalmetrics.MetricJoinCodeGenerated
	// MetricJoinCodeRedeemed is an exported constant or variable used by the control plane.
	MetricJoinCodeRedeemed = internalmetrics.MetricJoinCodeRedeemed
	// MetricJoinCodeInvalidated is an exported constant or variable used by the control plane.
	MetricJoinCodeInvalidated = internalmetrics.MetricJoinCodeInvalidated
	// MetricJoinCodeRateLimited is an exported constant or variable used by the control plane.
	MetricJoinCodeRateLimited = internalmetrics.MetricJoinCodeRateLimited
)

// Metrics holds the engine's atomic counters.
type Metrics = internalmetrics.Metrics

// MetricsSnapshot is a point-in-time copy of all counters.
type MetricsSnapshot = internalmetrics.Snapshot

// NewMetrics creates a [Metrics] bank. When cfg.Enabled is false all
// operations are no-ops.
func NewMetrics(cfg MetricsConfig) *Metrics {
	return internalmetrics.New(internalmetrics.Config{Enabled: cfg.Enabled})
}
