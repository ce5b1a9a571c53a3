package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"sort"
	"sync"
	"time"

	"github.com/aretw0/storyline/internal/logging"
	"github.com/aretw0/storyline/internal/runtime"
	"github.com/aretw0/storyline/pkg/domain"
	"github.com/aretw0/storyline/pkg/persistence"
	"github.com/aretw0/storyline/pkg/ports"
)

var (
	// ErrNoSession is returned when a player has no live session.
	ErrNoSession = errors.New("no active session")
	// ErrInvalidPlayer is returned for player ids that cannot be used as keys.
	ErrInvalidPlayer = errors.New("invalid player id")
)

var playerPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

// DefaultLockTTL bounds how long a distributed lock is held.
const DefaultLockTTL = 30 * time.Second

// lockEntry holds the mutex and the reference count.
type lockEntry struct {
	mu   sync.Mutex
	refs int
}

// Manager orchestrates session access, ensuring safe concurrent operations.
// It uses Reference Counting to garbage collect unused locks.
type Manager struct {
	store ports.SaveStore

	mu    sync.Mutex            // Global lock for the map
	locks map[string]*lockEntry // Map of active locks

	stateMu  sync.RWMutex
	graph    *domain.Graph
	sessions map[string]*runtime.Session

	locker  ports.DistributedLocker // Optional distributed locker
	lockTTL time.Duration
	logger  *slog.Logger
	hooks   domain.LifecycleHooks
	labels  domain.Labels
	slots   int
}

// Option configures the Manager.
type Option func(*Manager)

// WithLocker enables distributed locking.
func WithLocker(locker ports.DistributedLocker) Option {
	return func(m *Manager) {
		m.locker = locker
	}
}

// WithLockTTL sets the lease of the distributed lock.
func WithLockTTL(ttl time.Duration) Option {
	return func(m *Manager) {
		if ttl > 0 {
			m.lockTTL = ttl
		}
	}
}

// WithLogger configures a logger for the Manager and its sessions.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithHooks registers lifecycle hooks on every session.
func WithHooks(hooks domain.LifecycleHooks) Option {
	return func(m *Manager) {
		m.hooks = hooks
	}
}

// WithLabels sets the choice labels used in transcripts and previews.
func WithLabels(labels domain.Labels) Option {
	return func(m *Manager) {
		m.labels = labels.OrDefault()
	}
}

// WithSlots sets the number of save slots per player.
func WithSlots(n int) Option {
	return func(m *Manager) {
		if n > 0 {
			m.slots = n
		}
	}
}

// NewManager creates a new Session Manager over graph with the given persistence store.
func NewManager(graph *domain.Graph, store ports.SaveStore, opts ...Option) *Manager {
	m := &Manager{
		store:    store,
		graph:    graph,
		locks:    make(map[string]*lockEntry),
		sessions: make(map[string]*runtime.Session),
		lockTTL:  DefaultLockTTL,
		logger:   logging.NewNop(), // Default to no-op
		labels:   domain.DefaultLabels(),
		slots:    DefaultSlots,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// ValidatePlayer checks a player id. The empty id is the single local player.
func ValidatePlayer(player string) error {
	if player == "" || playerPattern.MatchString(player) {
		return nil
	}
	return fmt.Errorf("%w: %q", ErrInvalidPlayer, player)
}

// acquire gets or creates a lock entry and increments its reference count.
// The caller MUST Lock the entry.mu, and then call release(player) after unlocking.
func (m *Manager) acquire(player string) *lockEntry {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[player]
	if !exists {
		entry = &lockEntry{}
		m.locks[player] = entry
	}
	entry.refs++
	return entry
}

// release decrements the reference count and deletes the entry if it reaches zero.
func (m *Manager) release(player string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[player]
	if !exists {
		return
	}

	entry.refs--
	if entry.refs <= 0 {
		delete(m.locks, player)
	}
}

// WithLock executes fn while holding the lock for the player.
func (m *Manager) WithLock(ctx context.Context, player string, fn func(context.Context) error) error {
	if err := ValidatePlayer(player); err != nil {
		return err
	}

	entry := m.acquire(player)
	entry.mu.Lock()
	defer func() {
		entry.mu.Unlock()
		m.release(player)
	}()

	if m.locker != nil {
		unlock, err := m.locker.Lock(ctx, "player:"+player, m.lockTTL)
		if err != nil {
			return fmt.Errorf("failed to acquire distributed lock: %w", err)
		}
		defer func() {
			if err := unlock(ctx); err != nil {
				m.logger.Warn("Failed to release distributed lock (will expire via TTL)",
					"player", player,
					"err", err,
				)
			}
		}()
	}

	return fn(ctx)
}

// Graph returns the graph new sessions are created on.
func (m *Manager) Graph() *domain.Graph {
	m.stateMu.RLock()
	defer m.stateMu.RUnlock()
	return m.graph
}

// Labels returns the configured choice labels.
func (m *Manager) Labels() domain.Labels {
	return m.labels
}

// Store returns the underlying save store.
func (m *Manager) Store() ports.SaveStore {
	return m.store
}

func (m *Manager) sessionOptions(player string) []runtime.Option {
	return []runtime.Option{
		runtime.WithLogger(m.logger.With("player", player)),
		runtime.WithLifecycleHooks(m.hooks),
		runtime.WithLabels(m.labels),
	}
}

func (m *Manager) put(player string, s *runtime.Session) {
	m.stateMu.Lock()
	defer m.stateMu.Unlock()
	m.sessions[player] = s
}

// Start creates a new session at the graph root, superseding any previous
// session of the player.
func (m *Manager) Start(ctx context.Context, player string) (domain.Frame, error) {
	var frame domain.Frame
	err := m.WithLock(ctx, player, func(ctx context.Context) error {
		s, err := runtime.NewSession(m.Graph(), m.sessionOptions(player)...)
		if err != nil {
			return err
		}
		m.put(player, s)
		m.logger.Info("Session started", "player", player, "node_id", s.CurrentNode().ID)
		frame = s.Frame()
		return nil
	})
	return frame, err
}

// Get returns the live session of a player. The session must not be used
// concurrently with Do; prefer Do for anything that mutates it.
func (m *Manager) Get(player string) (*runtime.Session, bool) {
	m.stateMu.RLock()
	defer m.stateMu.RUnlock()
	s, ok := m.sessions[player]
	return s, ok
}

// Do runs fn on the player's session while holding the player's lock.
func (m *Manager) Do(ctx context.Context, player string, fn func(*runtime.Session) error) error {
	return m.WithLock(ctx, player, func(ctx context.Context) error {
		s, ok := m.Get(player)
		if !ok {
			return fmt.Errorf("%w: %q", ErrNoSession, player)
		}
		return fn(s)
	})
}

// View returns the current frame of the player's session.
func (m *Manager) View(ctx context.Context, player string) (domain.Frame, error) {
	var frame domain.Frame
	err := m.Do(ctx, player, func(s *runtime.Session) error {
		frame = s.Frame()
		return nil
	})
	return frame, err
}

// End discards the player's session. Saves are kept.
func (m *Manager) End(ctx context.Context, player string) error {
	return m.WithLock(ctx, player, func(ctx context.Context) error {
		m.stateMu.Lock()
		defer m.stateMu.Unlock()
		if _, ok := m.sessions[player]; !ok {
			return fmt.Errorf("%w: %q", ErrNoSession, player)
		}
		delete(m.sessions, player)
		return nil
	})
}

// Players returns the ids of players with a live session.
func (m *Manager) Players() []string {
	m.stateMu.RLock()
	defer m.stateMu.RUnlock()
	out := make([]string, 0, len(m.sessions))
	for p := range m.sessions {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// Reload swaps the graph. Each live session is carried over to the new graph
// at the same node, line and transcript; sessions whose node no longer exists
// are dropped. Rewind marks do not survive a reload.
func (m *Manager) Reload(ctx context.Context, graph *domain.Graph) (kept, dropped []string) {
	m.stateMu.Lock()
	m.graph = graph
	players := make([]string, 0, len(m.sessions))
	for p := range m.sessions {
		players = append(players, p)
	}
	m.stateMu.Unlock()
	sort.Strings(players)

	for _, player := range players {
		_ = m.WithLock(ctx, player, func(ctx context.Context) error {
			s, ok := m.Get(player)
			if !ok || s.Graph() == graph {
				return nil
			}
			rec := persistence.Snapshot(s, time.Now(), m.labels)
			ns, err := persistence.Restore(&rec, graph, m.sessionOptions(player)...)
			if err != nil {
				m.stateMu.Lock()
				delete(m.sessions, player)
				m.stateMu.Unlock()
				m.logger.Warn("Session dropped on reload", "player", player, "node_id", rec.NodeID, "err", err)
				dropped = append(dropped, player)
				return nil
			}
			m.put(player, ns)
			kept = append(kept, player)
			return nil
		})
	}
	m.logger.Info("Story reloaded", "nodes", graph.Len(), "sessions_kept", len(kept), "sessions_dropped", len(dropped))
	return kept, dropped
}

// transition runs op and returns the resulting frame. The frame is also
// returned alongside an engine error, since a dangling reference still moves
// the session.
func (m *Manager) transition(ctx context.Context, player string, op func(*runtime.Session) error) (domain.Frame, error) {
	var frame domain.Frame
	var opErr error
	err := m.Do(ctx, player, func(s *runtime.Session) error {
		opErr = op(s)
		frame = s.Frame()
		return nil
	})
	if err != nil {
		return domain.Frame{}, err
	}
	return frame, opErr
}

// Next shows the next dialog line of the player's session.
func (m *Manager) Next(ctx context.Context, player string) (domain.Frame, error) {
	return m.transition(ctx, player, (*runtime.Session).NextLine)
}

// Choose selects the choice at index.
func (m *Manager) Choose(ctx context.Context, player string, index int) (domain.Frame, error) {
	return m.transition(ctx, player, func(s *runtime.Session) error {
		return s.SelectChoice(index)
	})
}

// Rewind returns to the player's most recent choice.
func (m *Manager) Rewind(ctx context.Context, player string) (domain.Frame, error) {
	return m.transition(ctx, player, (*runtime.Session).RewindToLastChoice)
}

// Jump moves the player's session to any node for debugging. The rewind
// stacks are left untouched.
func (m *Manager) Jump(ctx context.Context, player, nodeID string) (domain.Frame, error) {
	return m.transition(ctx, player, func(s *runtime.Session) error {
		return s.JumpTo(nodeID)
	})
}

// Jumps returns the player's recent jump targets, most recent first.
func (m *Manager) Jumps(ctx context.Context, player string) ([]string, error) {
	var jumps []string
	err := m.Do(ctx, player, func(s *runtime.Session) error {
		jumps = s.JumpHistory()
		return nil
	})
	return jumps, err
}

// History returns a copy of the player's transcript.
func (m *Manager) History(ctx context.Context, player string) ([]domain.HistoryEntry, error) {
	var history []domain.HistoryEntry
	err := m.Do(ctx, player, func(s *runtime.Session) error {
		history = s.History()
		return nil
	})
	return history, err
}

// Progress returns the ids of the nodes the player went through and the
// current node id.
func (m *Manager) Progress(ctx context.Context, player string) (visited []string, current string, err error) {
	err = m.Do(ctx, player, func(s *runtime.Session) error {
		visited = s.Visited()
		if n := s.CurrentNode(); n != nil {
			current = n.ID
		}
		return nil
	})
	return visited, current, err
}
