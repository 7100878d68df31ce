// Package websocket streams live game state to viewers.
//
// A central Hub tracks subscribers per game id. Clients connect with
// ?game=GAMEID, receive the current snapshot immediately, and then a
// fresh snapshot after every successful mutation. Viewers never send
// commands over the socket; mutations go through the REST API and the
// read pump only services keepalives.
//
// When a game has been superseded by the next game in its series, a
// connecting client receives a single redirect message naming the
// successor and the server closes the connection.
//
// Usage:
//
//	hub := websocket.NewHub(svc)
//	go hub.Run()
//	mux.HandleFunc("/ws", hub.HandleWebSocket)
package websocket
