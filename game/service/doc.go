// Package service defines the game operations exposed to transports:
// game creation, the round progression state machine (bids, high-bid
// side game, actuals), settlement, series continuation, and roster
// management. The implementation owns validation and admin-key checks
// and serializes every read-validate-mutate sequence behind one lock,
// so a mutation never observes another mutation's partial state.
package service
