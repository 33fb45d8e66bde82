// Package authcore is an embeddable control plane for ephemeral
// authentication state: OTP challenges, throttle counters, privileged
// reset sessions, and organization join codes, all backed by a TTL
// key-value store (Redis).
//
// The package is designed for concurrent server workloads: Engine methods
// are safe to call from multiple goroutines after initialization through
// [Builder.Build].
//
// # Architecture boundaries
//
// authcore is the public surface. It exposes [Engine], [Builder],
// [Config], and value types (TokenPair, OTPChallenge, AuthResult, etc.).
// Persistent identity lives behind the caller's [UserProvider]; authcore
// owns only the ephemeral state and never writes durable records itself.
//
// # What this package must NOT do
//
//   - Persist a verifiable plaintext secret, even transiently. Pending
//     sign-up passwords are hashed before they reach the store.
//   - Expose the Redis client or key encoding in flow-level APIs; the
//     purpose-keyed record store is the only escape hatch.
//   - Retry infrastructure failures inline. Store errors are fatal to the
//     in-flight request; retries belong to the transport layer.
package authcore
