// Package middleware exposes HTTP middleware adapters built on top of
// authcore.Engine authentication.
//
// # Guards
//
//   - [Guard] reads the access/refresh artifacts from the Authorization
//     header or the AT/RT cookies, authenticates through the engine, and
//     silently rotates an expired access token into a fresh AT cookie.
//   - [RequireRole] gates a route on the roles carried by the
//     authenticated result.
//
// # Architecture boundaries
//
// This package translates HTTP semantics into Engine calls. It does NOT
// implement authentication logic itself; all decisions are delegated to
// Engine.Authenticate and Engine.Authorize.
//
// # What this package must NOT do
//
//   - Parse or create JWTs directly (delegates to Engine).
//   - Access the store (Engine handles I/O).
//   - Make authorization decisions beyond pass/reject from the Engine.
package middleware
