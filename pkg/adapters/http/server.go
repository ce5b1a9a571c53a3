package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/aretw0/storyline/internal/logging"
	"github.com/aretw0/storyline/internal/presentation/graph"
	"github.com/aretw0/storyline/pkg/domain"
	"github.com/aretw0/storyline/pkg/ports"
	"github.com/aretw0/storyline/pkg/session"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Server exposes a session.Manager over HTTP.
type Server struct {
	Manager *session.Manager
	Streams *StreamManager

	assets   ports.AssetResolver
	logger   *slog.Logger
	gatherer prometheus.Gatherer
	now      func() time.Time
	version  string
}

// Option configures the Server.
type Option func(*Server)

// WithAssets enriches frames with resolved asset paths.
func WithAssets(r ports.AssetResolver) Option {
	return func(s *Server) { s.assets = r }
}

// WithLogger sets the request logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMetrics mounts GET /metrics for the given gatherer.
func WithMetrics(g prometheus.Gatherer) Option {
	return func(s *Server) { s.gatherer = g }
}

// WithClock overrides the clock used for save timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Server) {
		if now != nil {
			s.now = now
		}
	}
}

// WithVersion sets the version reported by GET /info.
func WithVersion(v string) Option {
	return func(s *Server) { s.version = v }
}

// NewServer creates a Server around the manager.
func NewServer(m *session.Manager, opts ...Option) *Server {
	s := &Server{
		Manager: m,
		Streams: NewStreamManager(),
		logger:  logging.NewNop(),
		now:     time.Now,
		version: "dev",
	}
	for _, opt := range opts {
		opt(s)
	}
	s.Streams.logger = s.logger
	return s
}

// NewHandler creates the http.Handler for the server.
func NewHandler(m *session.Manager, opts ...Option) http.Handler {
	return NewServer(m, opts...).Handler()
}

// Handler builds the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/health", s.GetHealth)
	r.Get("/info", s.GetInfo)
	r.Get("/graph", s.GetGraph)
	r.Get("/graph/mermaid", s.GetMermaid)
	r.Get("/events", s.SubscribeReloads)
	if s.gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}

	r.Post("/sessions", s.StartAnonymous)
	r.Route("/sessions/{player}", func(r chi.Router) {
		r.Post("/", s.Start)
		r.Get("/", s.View)
		r.Delete("/", s.End)
		r.Post("/next", s.Next)
		r.Post("/choices/{index}", s.Choose)
		r.Post("/rewind", s.Rewind)
		r.Post("/jump/{node}", s.Jump)
		r.Get("/jumps", s.Jumps)
		r.Get("/history", s.History)
		r.Get("/events", s.SubscribeEvents)
		r.Get("/slots", s.ListSlots)
		r.Put("/slots/{slot}", s.SaveSlot)
		r.Post("/slots/{slot}/load", s.LoadSlot)
		r.Delete("/slots/{slot}", s.DeleteSlot)
	})

	return enableCORS(r)
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// FrameResponse is a frame plus the asset paths resolved for it.
type FrameResponse struct {
	domain.Frame
	Player         string            `json:"player"`
	BackgroundPath string            `json:"background_path,omitempty"`
	CharacterPaths map[string]string `json:"character_paths,omitempty"`
}

// ErrorResponse is the body of every non-2xx reply.
type ErrorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("Response encode failed", "error", err)
	}
}

// statusFor maps engine and store errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, session.ErrInvalidPlayer):
		return http.StatusBadRequest
	case errors.Is(err, session.ErrNoSession),
		errors.Is(err, session.ErrSlotOutOfRange),
		errors.Is(err, domain.ErrSaveNotFound),
		errors.Is(err, domain.ErrNodeNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrInvalidOperation):
		return http.StatusConflict
	case errors.Is(err, domain.ErrDanglingReference), errors.Is(err, domain.ErrDeadEnd):
		return http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrEmptyGraph):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	resp := ErrorResponse{Error: err.Error()}
	var d domain.Diagnostic
	if errors.As(err, &d) {
		resp.Kind = string(d.Kind)
	}
	if status >= http.StatusInternalServerError {
		s.logger.Error("Request failed", "path", r.URL.Path, "error", err)
	} else {
		s.logger.Warn("Request rejected", "path", r.URL.Path, "status", status, "error", err)
	}
	s.writeJSON(w, status, resp)
}

func (s *Server) badRequest(w http.ResponseWriter, msg string) {
	s.writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: msg})
}

func (s *Server) frameResponse(player string, f domain.Frame) FrameResponse {
	resp := FrameResponse{Frame: f, Player: player}
	if s.assets == nil {
		return resp
	}
	if f.BackgroundID != "" {
		if p, err := s.assets.Resolve(f.BackgroundID); err == nil {
			resp.BackgroundPath = p
		}
	}
	for _, c := range f.Characters {
		p, err := s.assets.Resolve(c.CharacterID)
		if err != nil {
			continue
		}
		if resp.CharacterPaths == nil {
			resp.CharacterPaths = make(map[string]string)
		}
		resp.CharacterPaths[c.CharacterID] = p
	}
	return resp
}

// publish pushes the player's frame to its SSE subscribers.
func (s *Server) publish(player string, f domain.Frame) {
	data, err := json.Marshal(s.frameResponse(player, f))
	if err != nil {
		s.logger.Error("Frame encode failed", "player", player, "error", err)
		return
	}
	s.Streams.Broadcast(player, string(data))
}

// NotifyReload tells /events subscribers that the story graph changed.
func (s *Server) NotifyReload() {
	s.Streams.Broadcast(reloadStream, "reload")
}

// GetHealth handles GET /health.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GetInfo handles GET /info.
func (s *Server) GetInfo(w http.ResponseWriter, r *http.Request) {
	g := s.Manager.Graph()
	root := ""
	if n := g.Root(); n != nil {
		root = n.ID
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"app":     "storyline-http",
		"version": s.version,
		"nodes":   g.Len(),
		"root":    root,
		"slots":   s.Manager.SlotCount(),
	})
}

// GetGraph handles GET /graph.
func (s *Server) GetGraph(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.Manager.Graph().Nodes())
}

// GetMermaid handles GET /graph/mermaid. With ?player= the player's progress
// is drawn as an overlay.
func (s *Server) GetMermaid(w http.ResponseWriter, r *http.Request) {
	var overlay *graph.GraphOverlay
	if player := r.URL.Query().Get("player"); player != "" {
		visited, current, err := s.Manager.Progress(r.Context(), player)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		overlay = &graph.GraphOverlay{VisitedNodes: visited, CurrentNode: current}
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	fmt.Fprint(w, graph.GenerateMermaid(s.Manager.Graph(), overlay))
}

// StartAnonymous handles POST /sessions, allocating a fresh player id.
func (s *Server) StartAnonymous(w http.ResponseWriter, r *http.Request) {
	s.start(w, r, uuid.NewString(), http.StatusCreated)
}

// Start handles POST /sessions/{player}.
func (s *Server) Start(w http.ResponseWriter, r *http.Request) {
	s.start(w, r, chi.URLParam(r, "player"), http.StatusOK)
}

func (s *Server) start(w http.ResponseWriter, r *http.Request, player string, status int) {
	f, err := s.Manager.Start(r.Context(), player)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.publish(player, f)
	s.writeJSON(w, status, s.frameResponse(player, f))
}

// View handles GET /sessions/{player}.
func (s *Server) View(w http.ResponseWriter, r *http.Request) {
	player := chi.URLParam(r, "player")
	f, err := s.Manager.View(r.Context(), player)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, s.frameResponse(player, f))
}

// End handles DELETE /sessions/{player}.
func (s *Server) End(w http.ResponseWriter, r *http.Request) {
	if err := s.Manager.End(r.Context(), chi.URLParam(r, "player")); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// reply writes the frame of a transition. A dangling target still moves the
// session, so subscribers see it even though the request fails.
func (s *Server) reply(w http.ResponseWriter, r *http.Request, player string, f domain.Frame, err error) {
	if err != nil {
		if errors.Is(err, domain.ErrDanglingReference) {
			s.publish(player, f)
		}
		s.writeError(w, r, err)
		return
	}
	s.publish(player, f)
	s.writeJSON(w, http.StatusOK, s.frameResponse(player, f))
}

// Next handles POST /sessions/{player}/next.
func (s *Server) Next(w http.ResponseWriter, r *http.Request) {
	player := chi.URLParam(r, "player")
	f, err := s.Manager.Next(r.Context(), player)
	s.reply(w, r, player, f, err)
}

// Choose handles POST /sessions/{player}/choices/{index}.
func (s *Server) Choose(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		s.badRequest(w, "choice index must be an integer")
		return
	}
	player := chi.URLParam(r, "player")
	f, err := s.Manager.Choose(r.Context(), player, index)
	s.reply(w, r, player, f, err)
}

// Rewind handles POST /sessions/{player}/rewind.
func (s *Server) Rewind(w http.ResponseWriter, r *http.Request) {
	player := chi.URLParam(r, "player")
	f, err := s.Manager.Rewind(r.Context(), player)
	s.reply(w, r, player, f, err)
}

// Jump handles POST /sessions/{player}/jump/{node}.
func (s *Server) Jump(w http.ResponseWriter, r *http.Request) {
	player := chi.URLParam(r, "player")
	f, err := s.Manager.Jump(r.Context(), player, chi.URLParam(r, "node"))
	s.reply(w, r, player, f, err)
}

// Jumps handles GET /sessions/{player}/jumps.
func (s *Server) Jumps(w http.ResponseWriter, r *http.Request) {
	jumps, err := s.Manager.Jumps(r.Context(), chi.URLParam(r, "player"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if jumps == nil {
		jumps = []string{}
	}
	s.writeJSON(w, http.StatusOK, jumps)
}

// History handles GET /sessions/{player}/history.
func (s *Server) History(w http.ResponseWriter, r *http.Request) {
	history, err := s.Manager.History(r.Context(), chi.URLParam(r, "player"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if history == nil {
		history = []domain.HistoryEntry{}
	}
	s.writeJSON(w, http.StatusOK, history)
}

func (s *Server) slotParam(w http.ResponseWriter, r *http.Request) (int, bool) {
	slot, err := strconv.Atoi(chi.URLParam(r, "slot"))
	if err != nil {
		s.badRequest(w, "slot must be an integer")
		return 0, false
	}
	return slot, true
}

// ListSlots handles GET /sessions/{player}/slots.
func (s *Server) ListSlots(w http.ResponseWriter, r *http.Request) {
	slots, err := s.Manager.Slots(r.Context(), chi.URLParam(r, "player"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, slots)
}

// SaveSlot handles PUT /sessions/{player}/slots/{slot}.
func (s *Server) SaveSlot(w http.ResponseWriter, r *http.Request) {
	slot, ok := s.slotParam(w, r)
	if !ok {
		return
	}
	rec, err := s.Manager.SaveSlot(r.Context(), chi.URLParam(r, "player"), slot, s.now())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, rec)
}

// LoadSlot handles POST /sessions/{player}/slots/{slot}/load.
func (s *Server) LoadSlot(w http.ResponseWriter, r *http.Request) {
	slot, ok := s.slotParam(w, r)
	if !ok {
		return
	}
	player := chi.URLParam(r, "player")
	f, err := s.Manager.LoadSlot(r.Context(), player, slot)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.publish(player, f)
	s.writeJSON(w, http.StatusOK, s.frameResponse(player, f))
}

// DeleteSlot handles DELETE /sessions/{player}/slots/{slot}.
func (s *Server) DeleteSlot(w http.ResponseWriter, r *http.Request) {
	slot, ok := s.slotParam(w, r)
	if !ok {
		return
	}
	if err := s.Manager.DeleteSlot(r.Context(), chi.URLParam(r, "player"), slot); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
