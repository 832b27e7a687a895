package state

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// SQLite stores collections in a single table keyed by client id and name.
type SQLite struct {
	db *sql.DB
}

// OpenSQLite opens or creates the database at dbPath and initializes the schema.
func OpenSQLite(dbPath string) (*SQLite, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	s := &SQLite{db: db}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return s, nil
}

func (s *SQLite) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS collections (
		client_id TEXT NOT NULL,
		name TEXT NOT NULL,
		data TEXT NOT NULL,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (client_id, name)
	);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Client scopes the database to one client identity.
func (s *SQLite) Client(clientID string) Store {
	return &clientStore{db: s.db, clientID: clientID}
}

// Close closes the database connection
func (s *SQLite) Close() error {
	return s.db.Close()
}

type clientStore struct {
	db       *sql.DB
	clientID string
}

func (c *clientStore) Get(ctx context.Context, name string) ([]byte, error) {
	var data string
	err := c.db.QueryRowContext(ctx,
		"SELECT data FROM collections WHERE client_id = ? AND name = ?",
		c.clientID, name,
	).Scan(&data)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read collection %s: %w", name, err)
	}

	return []byte(data), nil
}

func (c *clientStore) Set(ctx context.Context, name string, data []byte) error {
	_, err := c.db.ExecContext(ctx, `
		INSERT INTO collections (client_id, name, data, updated_at)
		VALUES (?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(client_id, name) DO UPDATE SET
			data = EXCLUDED.data,
			updated_at = CURRENT_TIMESTAMP
	`, c.clientID, name, string(data))

	if err != nil {
		return fmt.Errorf("failed to write collection %s: %w", name, err)
	}
	return nil
}
