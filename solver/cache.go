package solver

import (
	"bytes"
	"context"
	"crypto/sha1"
	"database/sql"
	"fmt"
	"io/ioutil"
	"log"

	"github.com/dustin/go-humanize"
	_ "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"
)

// Cache is a Solver that remembers the solutions of another Solver in a
// sqlite database, keyed by the SHA-1 of the serialized problem. Only
// feasible solutions are stored as infeasibility may depend on the time
// budget.
type Cache struct {
	db     *sql.DB
	next   Solver
	logger *log.Logger
}

// OpenCache opens or creates the cache database in file. A nil logger
// discards all messages.
func OpenCache(file string, next Solver, logger *log.Logger) (*Cache, error) {
	if logger == nil {
		logger = log.New(ioutil.Discard, "", 0)
	}
	db, err := sql.Open("sqlite3", fmt.Sprintf("%s?_busy_timeout=5000", file))
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(10)

	if _, err = db.Exec("CREATE TABLE IF NOT EXISTS solution (id INTEGER PRIMARY KEY NOT NULL, sha1 TEXT NOT NULL UNIQUE, pass INTEGER NOT NULL, csv BLOB NOT NULL)"); err != nil {
		db.Close()
		return nil, err
	}

	return &Cache{
		db:     db,
		next:   next,
		logger: logger,
	}, nil
}

// Close closes the database.
func (c *Cache) Close() error {
	return c.db.Close()
}

// With returns a Cache sharing the database of c that defers to next on a
// miss. Only c should be closed.
func (c *Cache) With(next Solver) *Cache {
	return &Cache{
		db:     c.db,
		next:   next,
		logger: c.logger,
	}
}

func problemKey(p *Problem) (string, error) {
	h := sha1.New()
	if _, err := p.WriteTo(h); err != nil {
		return "", err
	}
	return fmt.Sprintf("%X", h.Sum(nil)), nil
}

// Len returns the number of cached solutions.
func (c *Cache) Len() (int, error) {
	var n int
	err := c.db.QueryRow("SELECT COUNT(*) FROM solution").Scan(&n)
	return n, err
}

// Solve implements the Solver interface.
func (c *Cache) Solve(ctx context.Context, p *Problem) (*Solution, error) {
	key, err := problemKey(p)
	if err != nil {
		return nil, err
	}

	var b []byte
	switch err := c.db.QueryRowContext(ctx, "SELECT csv FROM solution WHERE sha1 = ?", key).Scan(&b); err {
	case sql.ErrNoRows:
	case nil:
		c.logger.Printf("Cached %s solution %s (%s)\n", p.Pass, key, humanize.Bytes(uint64(len(b))))
		return ParseSolution(bytes.NewReader(b), p)
	default:
		return nil, errors.Wrap(err, "solver: reading cache")
	}

	s, err := c.next.Solve(ctx, p)
	if err != nil {
		return nil, err
	}

	buf := new(bytes.Buffer)
	if _, err := s.WriteTo(buf); err != nil {
		return nil, err
	}
	if _, err := c.db.ExecContext(ctx, "INSERT OR REPLACE INTO solution (sha1, pass, csv) VALUES (?, ?, ?)", key, int(p.Pass), buf.Bytes()); err != nil {
		return nil, errors.Wrap(err, "solver: writing cache")
	}

	return s, nil
}
