// Package jwt signs and verifies the control plane's bearer artifacts:
// access, refresh and privileged password-reset tokens. HS256 with a
// shared secret is the default; Ed25519 is available for deployments that
// verify tokens outside the issuing process.
package jwt
