package chat

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	// Register the modernc sqlite driver under the name "sqlite"
	_ "modernc.org/sqlite"

	"llmchatd/pkg/types"
)

const schema = `
CREATE TABLE IF NOT EXISTS conversations (
	id         TEXT PRIMARY KEY,
	title      TEXT NOT NULL,
	model_id   TEXT NOT NULL,
	created_at INTEGER NOT NULL,
	updated_at INTEGER NOT NULL,
	messages   TEXT NOT NULL DEFAULT '[]'
);
CREATE INDEX IF NOT EXISTS idx_conversations_updated ON conversations(updated_at DESC, created_at DESC);
`

// SQLiteStore is a Store backed by a SQLite file. Messages are stored as a
// JSON array per conversation.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (or creates) the database at path in WAL mode and applies
// the schema. The parent directory is created if missing. Use ":memory:" in
// tests.
func OpenSQLite(ctx context.Context, path string) (*SQLiteStore, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("chat.OpenSQLite: mkdir: %w", err)
		}
	}
	dsn := path +
		"?_pragma=journal_mode(WAL)" +
		"&_pragma=busy_timeout(5000)" +
		"&_pragma=synchronous(NORMAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("chat.OpenSQLite: open %q: %w", path, err)
	}
	if path == ":memory:" {
		// Every connection to :memory: is a separate database.
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(4)
		db.SetMaxIdleConns(2)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("chat.OpenSQLite: ping %q: %w", path, err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("chat.OpenSQLite: schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Create(ctx context.Context, c types.Conversation) error {
	msgs, err := encodeMessages(c.Messages)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO conversations (id, title, model_id, created_at, updated_at, messages) VALUES (?, ?, ?, ?, ?, ?)`,
		c.ID, c.Title, c.ModelID, c.CreatedAt.UnixMilli(), c.LastActivity().UnixMilli(), msgs)
	if err != nil {
		return fmt.Errorf("insert conversation: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Get(ctx context.Context, id string) (types.Conversation, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, title, model_id, created_at, messages FROM conversations WHERE id = ?`, id)
	c, err := scanConversation(row)
	if errors.Is(err, sql.ErrNoRows) {
		return types.Conversation{}, ErrNotFound
	}
	return c, err
}

func (s *SQLiteStore) List(ctx context.Context) ([]types.Conversation, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, title, model_id, created_at, messages FROM conversations ORDER BY updated_at DESC, created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}
	defer rows.Close()
	var out []types.Conversation
	for rows.Next() {
		c, err := scanConversation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) Save(ctx context.Context, c types.Conversation) error {
	msgs, err := encodeMessages(c.Messages)
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE conversations SET title = ?, messages = ?, updated_at = ? WHERE id = ?`,
		c.Title, msgs, c.LastActivity().UnixMilli(), c.ID)
	if err != nil {
		return fmt.Errorf("save conversation: %w", err)
	}
	return expectOne(res)
}

func (s *SQLiteStore) Rename(ctx context.Context, id, title string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE conversations SET title = ? WHERE id = ?`, title, id)
	if err != nil {
		return fmt.Errorf("rename conversation: %w", err)
	}
	return expectOne(res)
}

func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM conversations WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete conversation: %w", err)
	}
	return expectOne(res)
}

func (s *SQLiteStore) DeleteAll(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM conversations`); err != nil {
		return fmt.Errorf("delete conversations: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Close() error { return s.db.Close() }

type rowScanner interface {
	Scan(dest ...any) error
}

func scanConversation(r rowScanner) (types.Conversation, error) {
	var (
		c       types.Conversation
		created int64
		msgs    string
	)
	if err := r.Scan(&c.ID, &c.Title, &c.ModelID, &created, &msgs); err != nil {
		return c, err
	}
	c.CreatedAt = time.UnixMilli(created)
	if err := json.Unmarshal([]byte(msgs), &c.Messages); err != nil {
		return c, fmt.Errorf("decode messages of %s: %w", c.ID, err)
	}
	return c, nil
}

func encodeMessages(msgs []types.Message) (string, error) {
	if msgs == nil {
		msgs = []types.Message{}
	}
	b, err := json.Marshal(msgs)
	if err != nil {
		return "", fmt.Errorf("encode messages: %w", err)
	}
	return string(b), nil
}

func expectOne(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
