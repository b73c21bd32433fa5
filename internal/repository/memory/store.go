// Package memory provides in-process repositories with the same uniqueness
// and transactional guarantees as the Postgres implementations.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/spec-kit/ticketing-system/internal/domain"
	"github.com/spec-kit/ticketing-system/internal/repository"
)

// Store holds every table in memory.
type Store struct {
	mu   sync.RWMutex
	txMu sync.Mutex
	now  func() time.Time

	users    map[string]domain.User
	profiles map[string]domain.Profile
	tickets  map[string]domain.Ticket
	emails   map[string]domain.Email
	history  []domain.TicketHistory
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{
		now:      time.Now,
		users:    make(map[string]domain.User),
		profiles: make(map[string]domain.Profile),
		tickets:  make(map[string]domain.Ticket),
		emails:   make(map[string]domain.Email),
	}
}

func (s *Store) Users() repository.UserRepository {
	return &userRepo{s: s}
}

func (s *Store) Profiles() repository.ProfileRepository {
	return &profileRepo{s: s}
}

func (s *Store) Tickets() repository.TicketRepository {
	return &ticketRepo{s: s}
}

func (s *Store) Emails() repository.EmailRepository {
	return &emailRepo{s: s}
}

func (s *Store) TicketHistory() repository.TicketHistoryRepository {
	return &historyRepo{s: s}
}

func (s *Store) Transactor() repository.Transactor {
	return &transactor{s: s}
}

type txKey struct{}

// txLog records how to undo every row a transaction wrote. Entries run in
// reverse under Store.mu on rollback.
type txLog struct {
	undo []func()
}

func txFrom(ctx context.Context) *txLog {
	log, _ := ctx.Value(txKey{}).(*txLog)
	return log
}

// remember captures the current state of table[key] so a rollback of the
// transaction in ctx can put it back. The caller holds Store.mu.
func remember[V any](ctx context.Context, table map[string]V, key string) {
	log := txFrom(ctx)
	if log == nil {
		return
	}
	prev, existed := table[key]
	log.undo = append(log.undo, func() {
		if existed {
			table[key] = prev
			return
		}
		delete(table, key)
	})
}

// rememberHistory undoes one appended history entry. The caller holds Store.mu.
func (s *Store) rememberHistory(ctx context.Context, id string) {
	log := txFrom(ctx)
	if log == nil {
		return
	}
	log.undo = append(log.undo, func() {
		for i := range s.history {
			if s.history[i].ID == id {
				s.history = append(s.history[:i], s.history[i+1:]...)
				return
			}
		}
	})
}

func (s *Store) rollback(log *txLog) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := len(log.undo) - 1; i >= 0; i-- {
		log.undo[i]()
	}
}

// transactor serializes units of work. A failed unit reverts only the rows it
// wrote; writes made outside it in the meantime are kept.
type transactor struct {
	s *Store
}

func (t *transactor) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if txFrom(ctx) != nil {
		return fn(ctx)
	}

	t.s.txMu.Lock()
	defer t.s.txMu.Unlock()

	log := &txLog{}
	if err := fn(context.WithValue(ctx, txKey{}, log)); err != nil {
		t.s.rollback(log)
		return err
	}
	return nil
}
