// Package audit implements asynchronous audit event dispatching for the
// control plane flows.
package audit
