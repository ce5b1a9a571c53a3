package http

import (
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"github.com/aretw0/storyline/internal/logging"
	"github.com/aretw0/storyline/pkg/session"
	"github.com/go-chi/chi/v5"
)

// reloadStream is the StreamManager key of the global reload feed. Player ids
// never match it.
const reloadStream = "*reload*"

// StreamManager handles active SSE connections.
type StreamManager struct {
	mu          sync.RWMutex
	subscribers map[string]map[chan string]struct{} // Stream key -> set of channels
	logger      *slog.Logger
}

func NewStreamManager() *StreamManager {
	return &StreamManager{
		subscribers: make(map[string]map[chan string]struct{}),
		logger:      logging.NewNop(),
	}
}

// Subscribe registers a buffered channel for key. The returned func
// unregisters and closes it.
func (sm *StreamManager) Subscribe(key string) (<-chan string, func()) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	ch := make(chan string, 10)
	if _, ok := sm.subscribers[key]; !ok {
		sm.subscribers[key] = make(map[chan string]struct{})
	}
	sm.subscribers[key][ch] = struct{}{}

	return ch, func() {
		sm.mu.Lock()
		defer sm.mu.Unlock()
		if subs, ok := sm.subscribers[key]; ok {
			if _, ok := subs[ch]; !ok {
				return
			}
			delete(subs, ch)
			close(ch)
			if len(subs) == 0 {
				delete(sm.subscribers, key)
			}
		}
	}
}

// Subscribers returns the number of channels registered for key.
func (sm *StreamManager) Subscribers(key string) int {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return len(sm.subscribers[key])
}

// Broadcast sends msg to every subscriber of key without blocking.
func (sm *StreamManager) Broadcast(key string, msg string) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	for ch := range sm.subscribers[key] {
		select {
		case ch <- msg:
		default:
			// Drop message if channel is full (slow client)
			sm.logger.Warn("SSE: Client buffer full, dropping message", "stream", key)
		}
	}
}

// serveStream writes messages of key as SSE until the client goes away.
func (s *Server) serveStream(w http.ResponseWriter, r *http.Request, key, event string) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		s.logger.Error("SSE: Streaming not supported")
		return
	}

	ch, cancel := s.Streams.Subscribe(key)
	defer cancel()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	fmt.Fprintf(w, "event: ping\ndata: connected\n\n")
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			s.logger.Debug("SSE client disconnected", "stream", key)
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, msg)
			flusher.Flush()
		}
	}
}

// SubscribeEvents handles GET /sessions/{player}/events. A frame is pushed
// after every transition of the player.
func (s *Server) SubscribeEvents(w http.ResponseWriter, r *http.Request) {
	player := chi.URLParam(r, "player")
	if err := session.ValidatePlayer(player); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.logger.Info("SSE: Subscribing to session frames", "player", player)
	s.serveStream(w, r, player, "frame")
}

// SubscribeReloads handles GET /events, the story reload feed.
func (s *Server) SubscribeReloads(w http.ResponseWriter, r *http.Request) {
	s.logger.Info("SSE: Subscribing to story reloads")
	s.serveStream(w, r, reloadStream, "reload")
}
