package local

import (
	"database/sql"
	"embed"
	"os"
	"path/filepath"
	"time"

	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// hashCache is a per-provider, on-disk cache of (path, size, mtime) -> digest
// so unchanged files are not re-hashed on every run. A nil db (construction
// failure, corrupt file, anything) degrades to "always miss" rather than
// failing the run.
type hashCache struct {
	db *sql.DB
}

func openHashCache(path string) *hashCache {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return &hashCache{}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return &hashCache{}
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return &hashCache{}
	}

	goose.SetBaseFS(migrationsFS)
	if err := goose.SetDialect("sqlite3"); err != nil {
		db.Close()
		return &hashCache{}
	}
	if err := goose.Up(db, "migrations"); err != nil {
		db.Close()
		return &hashCache{}
	}

	return &hashCache{db: db}
}

func (c *hashCache) lookup(path string, size int64, mtime time.Time) (string, bool) {
	if c == nil || c.db == nil {
		return "", false
	}
	var storedSize, storedMtime int64
	var digest string
	row := c.db.QueryRow(`SELECT size, mtime_unix, digest FROM hash_cache WHERE path = ?`, path)
	if err := row.Scan(&storedSize, &storedMtime, &digest); err != nil {
		return "", false
	}
	if storedSize != size || storedMtime != mtime.UnixNano() {
		return "", false
	}
	return digest, true
}

func (c *hashCache) store(path string, size int64, mtime time.Time, digest string) {
	if c == nil || c.db == nil {
		return
	}
	_, _ = c.db.Exec(`
		INSERT INTO hash_cache(path, size, mtime_unix, digest) VALUES (?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET size=excluded.size, mtime_unix=excluded.mtime_unix, digest=excluded.digest`,
		path, size, mtime.UnixNano(), digest)
}

func (c *hashCache) invalidate(path string) {
	if c == nil || c.db == nil {
		return
	}
	_, _ = c.db.Exec(`DELETE FROM hash_cache WHERE path = ?`, path)
}
