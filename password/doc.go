// Package password provides the argon2id digest capability consumed by
// the sign-up, login and reset flows: hash(secret) -> digest and
// verify(secret, digest) -> bool.
package password
