package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/BTreeMap/YonkeBot/internal/flow"
	"github.com/BTreeMap/YonkeBot/internal/messaging"
	"github.com/BTreeMap/YonkeBot/internal/models"
	"github.com/BTreeMap/YonkeBot/internal/search"
	"github.com/BTreeMap/YonkeBot/internal/store"
)

// MaxMessageBodyBytes caps the JSON body accepted by POST /messages.
const MaxMessageBodyBytes = 64 << 10

// Server holds the bot's wired components and serves its HTTP endpoints.
type Server struct {
	st          store.Store
	sessions    *flow.SessionManager
	router      *flow.Router
	msgService  messaging.Service
	respHandler *messaging.ResponseHandler
}

// NewServer wires the session manager, message router and response handler
// over st and the given transport.
func NewServer(st store.Store, msgService messaging.Service, opts ...messaging.ResponseHandlerOption) *Server {
	sessions := flow.NewSessionManager()
	router := flow.NewRouter(st, sessions)
	return &Server{
		st:          st,
		sessions:    sessions,
		router:      router,
		msgService:  msgService,
		respHandler: messaging.NewResponseHandler(msgService, router, opts...),
	}
}

// Handler returns the chi router with all routes and middleware mounted.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Heartbeat("/health"))

	if tw, ok := s.msgService.(*messaging.TwilioService); ok {
		r.Post("/whatsapp", tw.TwilioWebhookHandler)
	}
	r.Post("/messages", s.messagesHandler)
	r.Get("/listings/search", s.searchHandler)
	return r
}

type inboundMessage struct {
	From string `json:"from"`
	Body string `json:"body"`
}

type messageReply struct {
	Reply string `json:"reply"`
}

// messagesHandler runs one message through the router and returns the reply
// without sending it anywhere.
func (s *Server) messagesHandler(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()
	reqID := middleware.GetReqID(r.Context())

	var in inboundMessage
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, MaxMessageBodyBytes)).Decode(&in); err != nil {
		slog.Warn("Server messagesHandler: failed to decode JSON", "error", err, "requestID", reqID)
		writeError(w, http.StatusBadRequest, "Invalid JSON format")
		return
	}
	if _, err := s.msgService.ValidateAndCanonicalizeRecipient(in.From); err != nil {
		slog.Warn("Server messagesHandler: invalid sender", "error", err, "from", in.From, "requestID", reqID)
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(in.Body) == "" {
		writeError(w, http.StatusBadRequest, "Missing required field: body")
		return
	}

	reply := s.router.Handle(r.Context(), in.From, in.Body)
	slog.Debug("Server messagesHandler: handled", "from", in.From, "requestID", reqID)
	writeJSONResponse(w, http.StatusOK, models.Success(messageReply{Reply: reply}))
}

func (s *Server) searchHandler(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	results, err := s.router.Search(r.Context(), query)
	if errors.Is(err, search.ErrEmptyQuery) {
		writeError(w, http.StatusBadRequest, "Missing required query parameter: q")
		return
	}
	if err != nil {
		slog.Error("Server searchHandler: search failed", "error", err, "query", query)
		writeError(w, http.StatusInternalServerError, "Search failed")
		return
	}
	if results == nil {
		results = []models.SearchResult{}
	}
	slog.Debug("Server searchHandler: results", "query", query, "count", len(results))
	writeJSONResponse(w, http.StatusOK, models.Success(results))
}
