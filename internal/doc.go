// Package internal holds helpers shared by the engine flows that are not
// part of the public API surface.
package internal
