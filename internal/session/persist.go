package session

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/redis/go-redis/v9"
)

// MemoryPersister keeps the record in process memory only.
type MemoryPersister struct {
	mu   sync.Mutex
	data []byte
}

func NewMemoryPersister() *MemoryPersister {
	return &MemoryPersister{}
}

func (p *MemoryPersister) Load(context.Context) ([]byte, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.data == nil {
		return nil, ErrNotFound
	}
	return append([]byte(nil), p.data...), nil
}

func (p *MemoryPersister) Save(_ context.Context, data []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.data = append([]byte(nil), data...)
	return nil
}

func (p *MemoryPersister) Delete(context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.data = nil
	return nil
}

// FilePersister stores the record as a JSON file readable only by the owner.
type FilePersister struct {
	path string
}

// NewFilePersister places the record for key inside dir.
func NewFilePersister(dir, key string) *FilePersister {
	return &FilePersister{path: filepath.Join(dir, fileName(key))}
}

func fileName(key string) string {
	replacer := strings.NewReplacer(":", "_", "/", "_", "\\", "_")
	return replacer.Replace(key) + ".json"
}

// Path is the location of the record on disk.
func (p *FilePersister) Path() string { return p.path }

func (p *FilePersister) Load(context.Context) ([]byte, error) {
	data, err := os.ReadFile(p.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNotFound
	}
	return data, err
}

// Save writes to a temp file in the same directory and renames it over the record.
func (p *FilePersister) Save(_ context.Context, data []byte) error {
	dir := filepath.Dir(p.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, ".session-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck

	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), p.path)
}

func (p *FilePersister) Delete(context.Context) error {
	err := os.Remove(p.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

// RedisPersister stores the record under one redis key.
type RedisPersister struct {
	client redis.Cmdable
	key    string
	ttl    time.Duration
}

// NewRedisPersister uses key as-is. A zero ttl keeps the record until Delete.
func NewRedisPersister(client redis.Cmdable, key string, ttl time.Duration) *RedisPersister {
	return &RedisPersister{client: client, key: key, ttl: ttl}
}

func (p *RedisPersister) Load(ctx context.Context) ([]byte, error) {
	data, err := p.client.Get(ctx, p.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis get %s: %w", p.key, err)
	}
	return data, nil
}

func (p *RedisPersister) Save(ctx context.Context, data []byte) error {
	return p.client.Set(ctx, p.key, data, p.ttl).Err()
}

func (p *RedisPersister) Delete(ctx context.Context) error {
	return p.client.Del(ctx, p.key).Err()
}

// PgxQuerier is satisfied by *pgxpool.Pool, *pgx.Conn and pgxmock pools.
type PgxQuerier interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresPersister stores the record as a row of the session_store table.
type PostgresPersister struct {
	db  PgxQuerier
	key string
}

func NewPostgresPersister(db PgxQuerier, key string) *PostgresPersister {
	return &PostgresPersister{db: db, key: key}
}

func (p *PostgresPersister) Load(ctx context.Context) ([]byte, error) {
	const query = `SELECT payload FROM session_store WHERE key = $1`

	var payload []byte
	if err := p.db.QueryRow(ctx, query, p.key).Scan(&payload); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return payload, nil
}

func (p *PostgresPersister) Save(ctx context.Context, data []byte) error {
	const query = `
        INSERT INTO session_store (key, payload, updated_at)
        VALUES ($1, $2, NOW())
        ON CONFLICT (key) DO UPDATE SET payload = EXCLUDED.payload, updated_at = NOW()`

	_, err := p.db.Exec(ctx, query, p.key, data)
	return err
}

func (p *PostgresPersister) Delete(ctx context.Context) error {
	const query = `DELETE FROM session_store WHERE key = $1`

	_, err := p.db.Exec(ctx, query, p.key)
	return err
}
