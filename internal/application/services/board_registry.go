package services

import (
	"context"
	"strings"
	"sync"

	"github.com/zatekoja/orderdesk/backend/internal/infrastructure/observability"
	apperrors "github.com/zatekoja/orderdesk/backend/pkg/errors"
)

// DefaultSession keys the board used by callers that send no session id
const DefaultSession = "default"

// BoardFactory builds an unloaded board for a new session
type BoardFactory func() (*OrderBoard, error)

type sessionBoard struct {
	board    *OrderBoard
	lastUsed uint64
}

// BoardRegistry keeps one order board per screen session. Each board holds
// its own page, expansion and adjustments. When the registry is full the
// least recently used board is closed to make room.
type BoardRegistry struct {
	factory     BoardFactory
	maxSessions int

	mu     sync.Mutex
	boards map[string]*sessionBoard
	clock  uint64
	closed bool
}

// NewBoardRegistry creates a registry holding at most maxSessions boards
func NewBoardRegistry(factory BoardFactory, maxSessions int) *BoardRegistry {
	if maxSessions < 1 {
		maxSessions = 1
	}
	return &BoardRegistry{
		factory:     factory,
		maxSessions: maxSessions,
		boards:      make(map[string]*sessionBoard),
	}
}

// Board returns the session's board, creating and loading it on first use.
// A failed first load leaves the new board empty.
func (r *BoardRegistry) Board(ctx context.Context, sessionID string) (*OrderBoard, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		sessionID = DefaultSession
	}

	board, created, err := r.lookup(sessionID)
	if err != nil {
		return nil, err
	}
	if created {
		if err := board.Reload(ctx); err != nil {
			observability.LoggerFromContext(ctx).Warn().Err(err).Str("session", sessionID).Msg("initial order load failed")
		}
	}
	return board, nil
}

func (r *BoardRegistry) lookup(sessionID string) (*OrderBoard, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil, false, apperrors.NewConflictError("order desk is shutting down")
	}

	r.clock++
	if entry, ok := r.boards[sessionID]; ok {
		entry.lastUsed = r.clock
		return entry.board, false, nil
	}

	board, err := r.factory()
	if err != nil {
		return nil, false, apperrors.NewInternalError("failed to create order board", err)
	}
	if len(r.boards) >= r.maxSessions {
		r.evictOldest()
	}
	r.boards[sessionID] = &sessionBoard{board: board, lastUsed: r.clock}
	return board, true, nil
}

func (r *BoardRegistry) evictOldest() {
	var oldestID string
	var oldest *sessionBoard
	for id, entry := range r.boards {
		if oldest == nil || entry.lastUsed < oldest.lastUsed {
			oldestID, oldest = id, entry
		}
	}
	if oldest == nil {
		return
	}
	delete(r.boards, oldestID)
	oldest.board.Close()
}

// Len reports the number of live sessions
func (r *BoardRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.boards)
}

// Close closes every board. Later lookups fail.
func (r *BoardRegistry) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	r.closed = true
	for id, entry := range r.boards {
		entry.board.Close()
		delete(r.boards, id)
	}
}
