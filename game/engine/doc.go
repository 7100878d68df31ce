// Package engine implements the Callbreak rules: per-round scoring,
// dealer rotation, the round progression state machine, the high-bid
// side game, and end-of-game settlement. Everything in this package is
// pure in-memory state manipulation; transport and storage concerns
// live in the api, service, and session packages.
package engine
