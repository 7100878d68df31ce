package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/callbreaklive/server/game/engine"
	"github.com/callbreaklive/server/game/service"
	"github.com/callbreaklive/server/transport/websocket"
)

// Server represents the REST API server
type Server struct {
	service service.GameService
	hub     *websocket.Hub
	router  *mux.Router
}

// NewServer creates a new API server
func NewServer(gameService service.GameService, hub *websocket.Hub) *Server {
	s := &Server{
		service: gameService,
		hub:     hub,
		router:  mux.NewRouter(),
	}

	s.setupRoutes()
	return s
}

// setupRoutes configures all API routes
func (s *Server) setupRoutes() {
	api := s.router.PathPrefix("/api").Subrouter()

	// Game lifecycle
	api.HandleFunc("/create-game", s.handleCreateGame).Methods("POST")
	api.HandleFunc("/game/{gameId}/resolve-game", s.handleResolveGame).Methods("POST")
	api.HandleFunc("/game/{gameId}/next-game", s.handleNextGame).Methods("POST")

	// Round progression
	api.HandleFunc("/game/{gameId}/set-bids", s.handleSetBids).Methods("POST")
	api.HandleFunc("/game/{gameId}/set-actuals", s.handleSetActuals).Methods("POST")
	api.HandleFunc("/game/{gameId}/resolve-highbid", s.handleResolveHighBid).Methods("POST")
	api.HandleFunc("/game/{gameId}/cancel-highbid", s.handleCancelHighBid).Methods("POST")

	// Roster and settings
	api.HandleFunc("/game/{gameId}/reorder-players", s.handleReorderPlayers).Methods("POST")
	api.HandleFunc("/game/{gameId}/substitute", s.handleSubstitute).Methods("POST")
	api.HandleFunc("/game/{gameId}/set-bidders", s.handleSetBidders).Methods("POST")
	api.HandleFunc("/game/{gameId}/settings", s.handleUpdateSettings).Methods("POST")

	// Read side
	api.HandleFunc("/game/{gameId}", s.handleGetGame).Methods("GET")
	api.HandleFunc("/game/{gameId}/summary", s.handleGetSummary).Methods("GET")
	api.HandleFunc("/game/{gameId}/highbid", s.handleGetHighBid).Methods("GET")
	api.HandleFunc("/game/{gameId}/history", s.handleGetHistory).Methods("GET")
	api.HandleFunc("/series/by-game/{gameId}", s.handleSeriesByGame).Methods("GET")
	api.HandleFunc("/series/{seriesId}/games", s.handleSeriesByID).Methods("GET")

	api.HandleFunc("/health", s.handleHealth).Methods("GET")

	// WebSocket
	if s.hub != nil {
		s.router.HandleFunc("/ws", s.hub.HandleWebSocket)
	}
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Response helpers

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// respondServiceError maps the engine error taxonomy to HTTP statuses.
// The high-bid branch gets its structured 409 payload.
func respondServiceError(w http.ResponseWriter, err error) {
	var highBid *engine.HighBidError
	if errors.As(err, &highBid) {
		respondJSON(w, http.StatusConflict, map[string]interface{}{
			"error":            "High bid triggered",
			"highBidTriggered": true,
			"bidderIds":        highBid.BidderIDs,
			"round":            highBid.Round,
			"message":          "At least one bid is >= 8. Resolve the side game, or edit bids to be < 8.",
		})
		return
	}

	var e *engine.Error
	if errors.As(err, &e) {
		status := http.StatusBadRequest
		switch e.Kind {
		case engine.KindAuthorization, engine.KindLocked:
			status = http.StatusForbidden
		case engine.KindNotFound:
			status = http.StatusNotFound
		}
		payload := map[string]interface{}{"error": e.Message}
		if e.Code != "" {
			payload["code"] = e.Code
		}
		respondJSON(w, status, payload)
		return
	}

	respondError(w, http.StatusInternalServerError, err.Error())
}

func (s *Server) broadcast(r *http.Request, gameID string) {
	if s.hub != nil {
		s.hub.BroadcastGame(r.Context(), gameID)
	}
}

// Game lifecycle handlers

func (s *Server) handleCreateGame(w http.ResponseWriter, r *http.Request) {
	var req service.CreateGameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	result, err := s.service.CreateGame(r.Context(), req)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	log.Printf("[CREATE] game=%s series=%s index=%d", result.GameID, result.SeriesID, result.GameIndex)
	respondJSON(w, http.StatusOK, result)
}

func (s *Server) handleResolveGame(w http.ResponseWriter, r *http.Request) {
	gameID := mux.Vars(r)["gameId"]

	var req struct {
		AdminKey string `json:"adminKey"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	result, err := s.service.ResolveGame(r.Context(), gameID, req.AdminKey)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	s.broadcast(r, gameID)
	log.Printf("[RESOLVE] game=%s settlement applied", gameID)
	respondJSON(w, http.StatusOK, result)
}

func (s *Server) handleNextGame(w http.ResponseWriter, r *http.Request) {
	gameID := mux.Vars(r)["gameId"]

	var req struct {
		AdminKey string `json:"adminKey"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	result, err := s.service.StartNextGame(r.Context(), gameID, req.AdminKey)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	// Tell viewers of the old game where to go.
	if s.hub != nil {
		s.hub.BroadcastRedirect(gameID, result.GameID)
	}
	log.Printf("[NEXT] game=%s -> game=%s index=%d", gameID, result.GameID, result.GameIndex)
	respondJSON(w, http.StatusOK, result)
}

// Round progression handlers

func (s *Server) handleSetBids(w http.ResponseWriter, r *http.Request) {
	gameID := mux.Vars(r)["gameId"]

	var req struct {
		AdminKey string         `json:"adminKey"`
		Round    int            `json:"round"`
		Bids     map[string]int `json:"bids"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	result, err := s.service.SetBids(r.Context(), gameID, req.AdminKey, req.Round, req.Bids)
	if err != nil {
		// The high-bid flag is state viewers must see even though the
		// call reports 409.
		var highBid *engine.HighBidError
		if errors.As(err, &highBid) {
			s.broadcast(r, gameID)
			log.Printf("[BIDS] game=%s round=%d status=HIGH_BID bidders=%d", gameID, req.Round, len(highBid.BidderIDs))
		}
		respondServiceError(w, err)
		return
	}

	s.broadcast(r, gameID)
	status := "BIDS_SET"
	if result.AutoAwarded {
		status = "AUTO_AWARDED"
	}
	log.Printf("[BIDS] game=%s round=%d status=%s", gameID, req.Round, status)
	respondJSON(w, http.StatusOK, result)
}

func (s *Server) handleSetActuals(w http.ResponseWriter, r *http.Request) {
	gameID := mux.Vars(r)["gameId"]

	var req struct {
		AdminKey string         `json:"adminKey"`
		Round    int            `json:"round"`
		Actuals  map[string]int `json:"actuals"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	result, err := s.service.SetActuals(r.Context(), gameID, req.AdminKey, req.Round, req.Actuals)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	s.broadcast(r, gameID)
	log.Printf("[ACTUALS] game=%s round=%d status=PLAYED", gameID, req.Round)
	respondJSON(w, http.StatusOK, result)
}

func (s *Server) handleResolveHighBid(w http.ResponseWriter, r *http.Request) {
	gameID := mux.Vars(r)["gameId"]

	var req struct {
		AdminKey string `json:"adminKey"`
		service.ResolveHighBidRequest
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	result, err := s.service.ResolveHighBid(r.Context(), gameID, req.AdminKey, req.ResolveHighBidRequest)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	s.broadcast(r, gameID)
	log.Printf("[HIGHBID] game=%s round=%d resolved bidder=%s", gameID, req.Round, req.BidderID)
	respondJSON(w, http.StatusOK, result)
}

func (s *Server) handleCancelHighBid(w http.ResponseWriter, r *http.Request) {
	gameID := mux.Vars(r)["gameId"]

	var req struct {
		AdminKey string `json:"adminKey"`
		Round    int    `json:"round"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	result, err := s.service.CancelHighBid(r.Context(), gameID, req.AdminKey, req.Round)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	s.broadcast(r, gameID)
	log.Printf("[HIGHBID] game=%s round=%d canceled", gameID, req.Round)
	respondJSON(w, http.StatusOK, result)
}

// Roster and settings handlers

func (s *Server) handleReorderPlayers(w http.ResponseWriter, r *http.Request) {
	gameID := mux.Vars(r)["gameId"]

	var req struct {
		AdminKey      string   `json:"adminKey"`
		NewOrder      []string `json:"newOrder"`
		StartDealerID string   `json:"startDealerId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	result, err := s.service.ReorderPlayers(r.Context(), gameID, req.AdminKey, req.NewOrder, req.StartDealerID)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	s.broadcast(r, gameID)
	respondJSON(w, http.StatusOK, result)
}

func (s *Server) handleSubstitute(w http.ResponseWriter, r *http.Request) {
	gameID := mux.Vars(r)["gameId"]

	var req struct {
		AdminKey string `json:"adminKey"`
		service.SubstituteRequest
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	result, err := s.service.SubstitutePlayer(r.Context(), gameID, req.AdminKey, req.SubstituteRequest)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	s.broadcast(r, gameID)
	log.Printf("[ROSTER] game=%s substituted out=%s", gameID, req.OutgoingPlayerID)
	respondJSON(w, http.StatusOK, result)
}

func (s *Server) handleSetBidders(w http.ResponseWriter, r *http.Request) {
	gameID := mux.Vars(r)["gameId"]

	var req struct {
		AdminKey    string   `json:"adminKey"`
		Round       int      `json:"round"`
		BidderOrder []string `json:"bidderOrder"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	result, err := s.service.SetBidderOrder(r.Context(), gameID, req.AdminKey, req.Round, req.BidderOrder)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	s.broadcast(r, gameID)
	respondJSON(w, http.StatusOK, map[string]interface{}{"round": req.Round, "roundInfo": result})
}

func (s *Server) handleUpdateSettings(w http.ResponseWriter, r *http.Request) {
	gameID := mux.Vars(r)["gameId"]

	var req struct {
		AdminKey string `json:"adminKey"`
		service.SettingsUpdate
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	result, err := s.service.UpdateSettings(r.Context(), gameID, req.AdminKey, req.SettingsUpdate)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	s.broadcast(r, gameID)
	respondJSON(w, http.StatusOK, map[string]interface{}{"settings": result})
}

// Read-side handlers

func (s *Server) handleGetGame(w http.ResponseWriter, r *http.Request) {
	game, err := s.service.Game(r.Context(), mux.Vars(r)["gameId"])
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, game)
}

func (s *Server) handleGetSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := s.service.Summary(r.Context(), mux.Vars(r)["gameId"])
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, summary)
}

func (s *Server) handleGetHighBid(w http.ResponseWriter, r *http.Request) {
	highBid, err := s.service.HighBidState(r.Context(), mux.Vars(r)["gameId"])
	if err != nil {
		respondServiceError(w, err)
		return
	}
	if highBid == nil {
		respondJSON(w, http.StatusOK, map[string]interface{}{"active": false})
		return
	}
	respondJSON(w, http.StatusOK, highBid)
}

func (s *Server) handleGetHistory(w http.ResponseWriter, r *http.Request) {
	history, err := s.service.History(r.Context(), mux.Vars(r)["gameId"])
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, history)
}

func (s *Server) handleSeriesByGame(w http.ResponseWriter, r *http.Request) {
	series, err := s.service.SeriesByGame(r.Context(), mux.Vars(r)["gameId"])
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, series)
}

func (s *Server) handleSeriesByID(w http.ResponseWriter, r *http.Request) {
	series, err := s.service.SeriesByID(r.Context(), mux.Vars(r)["seriesId"])
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, series)
}

// Health check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
	})
}
