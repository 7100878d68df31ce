// Package api exposes the game operations over REST.
//
// Routes live under /api. Mutations carry the admin key in the JSON
// body; reads are public. Handlers decode the request, call the game
// service, map the error taxonomy to HTTP statuses (validation and
// state errors 400, authorization and locked 403, not found 404, the
// high-bid branch 409), and trigger a WebSocket snapshot broadcast
// after every successful mutation. The high-bid 409 also broadcasts,
// since the side-game flag is state viewers need to see.
package api
