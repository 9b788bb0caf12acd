// Package sqlitestore persists items in a single-table SQLite database, for
// applications that need session state to survive process restarts or to be
// shared between local processes.
package sqlitestore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/hashicorp/go-hclog"
	_ "modernc.org/sqlite"

	"github.com/baasic/baasic-go/dto"
)

const schema = `
CREATE TABLE IF NOT EXISTS items (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
);`

const defaultPollInterval = 500 * time.Millisecond

// Store is a dto.Backend over one SQLite database. SQLite has no change
// notification across connections, so Watch polls the table and diffs
// against the last snapshot.
type Store struct {
	db           *sql.DB
	pollInterval time.Duration
	logger       hclog.Logger

	mu       sync.Mutex
	watchers map[int]chan dto.Change
	nextID   int
	cancel   context.CancelFunc
}

type Option func(*Store)

func WithPollInterval(d time.Duration) Option {
	return func(s *Store) { s.pollInterval = d }
}

func WithLogger(logger hclog.Logger) Option {
	return func(s *Store) { s.logger = logger }
}

func New(dsn string, opts ...Option) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if _, err := db.ExecContext(context.Background(), schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create items table: %w", err)
	}

	s := &Store{
		db:           db,
		pollInterval: defaultPollInterval,
		logger:       hclog.NewNullLogger(),
		watchers:     make(map[int]chan dto.Change),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Close stops the poller and closes the database. Open watcher channels
// are closed.
func (s *Store) Close() error {
	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	for id, ch := range s.watchers {
		close(ch)
		delete(s.watchers, id)
	}
	s.mu.Unlock()
	return s.db.Close()
}

func (s *Store) GetItem(key string) (string, bool, error) {
	var value string
	err := s.db.QueryRowContext(context.Background(),
		`SELECT value FROM items WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get item: %w", err)
	}
	return value, true, nil
}

func (s *Store) SetItem(key, value string) error {
	_, err := s.db.ExecContext(context.Background(),
		`INSERT INTO items (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`, key, value)
	if err != nil {
		return fmt.Errorf("set item: %w", err)
	}
	return nil
}

func (s *Store) RemoveItem(key string) error {
	if _, err := s.db.ExecContext(context.Background(),
		`DELETE FROM items WHERE key = ?`, key); err != nil {
		return fmt.Errorf("remove item: %w", err)
	}
	return nil
}

// Watch returns a channel of change notifications and an unsubscribe
// function. The first subscriber starts the shared poller; the last one
// leaving stops it. Polling cannot observe a value that is written and
// removed within one interval.
func (s *Store) Watch() (<-chan dto.Change, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextID
	s.nextID++
	ch := make(chan dto.Change, 32)
	s.watchers[id] = ch

	if s.cancel == nil {
		ctx, cancel := context.WithCancel(context.Background())
		s.cancel = cancel
		go s.poll(ctx)
	}

	unsub := func() {
		s.mu.Lock()
		defer s.mu.Unlock()

		if c, ok := s.watchers[id]; ok {
			delete(s.watchers, id)
			close(c)
		}
		if len(s.watchers) == 0 && s.cancel != nil {
			s.cancel()
			s.cancel = nil
		}
	}
	return ch, unsub
}

func (s *Store) poll(ctx context.Context) {
	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	prev, err := s.snapshot(ctx)
	if err != nil {
		s.logger.Warn("initial snapshot failed", "error", err)
		prev = map[string]string{}
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		next, err := s.snapshot(ctx)
		if err != nil {
			s.logger.Warn("snapshot failed", "error", err)
			continue
		}

		for key, value := range next {
			if old, ok := prev[key]; !ok || old != value {
				s.notify(dto.Change{Key: key, NewValue: value})
			}
		}
		for key := range prev {
			if _, ok := next[key]; !ok {
				s.notify(dto.Change{Key: key, NewValue: ""})
			}
		}
		prev = next
	}
}

func (s *Store) snapshot(ctx context.Context) (map[string]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT key, value FROM items`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := map[string]string{}
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, err
		}
		items[key] = value
	}
	return items, rows.Err()
}

func (s *Store) notify(change dto.Change) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ch := range s.watchers {
		select {
		case ch <- change:
		default:
		}
	}
}
