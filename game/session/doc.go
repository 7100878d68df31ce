// Package session provides the in-memory game store and token
// generation. The store is an explicit value constructed at startup and
// passed to the service layer, never ambient global state, so tests can
// isolate themselves with a fresh instance.
package session
