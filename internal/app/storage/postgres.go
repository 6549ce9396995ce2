package storage

import (
	"context"
	"fmt"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/samber/lo"

	"chatcast/internal/app/db"
	"chatcast/internal/app/message"
)

const (
	selectHistorySQL = `SELECT sender, body FROM chat_messages ORDER BY seq`
	selectTailSQL    = `SELECT COALESCE(MAX(seq) + 1, 0) FROM chat_messages`
	deleteStaleSQL   = `DELETE FROM chat_messages WHERE seq >= $1`
	upsertMessageSQL = `INSERT INTO chat_messages (seq, sender, body) VALUES ($1, $2, $3)
ON CONFLICT (seq) DO UPDATE SET sender = EXCLUDED.sender, body = EXCLUDED.body`
)

// PostgresStore appends history entries to the chat_messages table, one row per
// message keyed by its position in the history. Sender and body are stored as BYTEA
// so any byte sequence a client sends round-trips, NUL included.
type PostgresStore struct {
	pool *pgxpool.Pool

	// persisted is the number of leading history entries known to match the table.
	// stored is one past the highest seq in the table.
	persisted int
	stored    int
	mu        sync.Mutex
}

// NewPostgresStore connects to PostgreSQL and applies pending migrations.
func NewPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	pool, err := db.NewPool(ctx, dsn)
	if err != nil {
		return nil, err
	}

	var stored int64
	if err := pool.QueryRow(ctx, selectTailSQL).Scan(&stored); err != nil {
		pool.Close()
		return nil, fmt.Errorf("query history tail: %w", err)
	}
	return &PostgresStore{pool: pool, stored: int(stored)}, nil
}

func (s *PostgresStore) Name() string { return BackendPostgres }

func (s *PostgresStore) Load(ctx context.Context) ([]message.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.pool.Query(ctx, selectHistorySQL)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}

	history, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (message.Message, error) {
		var sender, body []byte
		if err := row.Scan(&sender, &body); err != nil {
			return message.Message{}, err
		}
		return message.Message{Sender: string(sender), Body: string(body)}, nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan history: %w", err)
	}

	s.persisted = len(history)
	s.stored = len(history)
	return history, nil
}

func (s *PostgresStore) Persist(ctx context.Context, history []message.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(history) <= s.persisted && s.stored <= len(history) {
		return nil
	}

	batch := &pgx.Batch{}
	if s.stored > len(history) {
		// rows past the end of this history belong to an earlier run
		batch.Queue(deleteStaleSQL, int64(len(history)))
	}
	lo.ForEach(history[s.persisted:], func(m message.Message, i int) {
		batch.Queue(upsertMessageSQL, int64(s.persisted+i), []byte(m.Sender), []byte(m.Body))
	})

	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		return tx.SendBatch(ctx, batch).Close()
	})
	if err != nil {
		return fmt.Errorf("write history tail: %w", err)
	}

	s.persisted = len(history)
	s.stored = len(history)
	return nil
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
