//go:build sqlite
// +build sqlite

package storage

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite"

	logx "swarmrelay/pkg/logx"
)

//go:embed migrations.sql
var migrationsFS embed.FS

// Keep the deliveries table bounded without a background job: every
// pruneEvery appends, delete everything but the newest pruneKeep rows.
const sqlitePruneKeep = 10000

type sqliteStore struct {
	db  *sql.DB
	log logx.Logger

	opCount    atomic.Uint64
	pruneEvery uint64
}

func openSQLite(cfg Config, log logx.Logger) (Store, error) {
	if strings.TrimSpace(cfg.Path) == "" {
		return nil, errors.New("sqlite path is required")
	}
	path := cfg.Path
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// SQLite prefers a small number of concurrent writers.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	st := &sqliteStore{db: db, log: log, pruneEvery: 500}

	// Basic pragmas.
	if cfg.BusyTimeout > 0 {
		ms := cfg.BusyTimeout.Milliseconds()
		_, _ = db.Exec(fmt.Sprintf("PRAGMA busy_timeout = %d", ms))
	}
	_, _ = db.Exec("PRAGMA journal_mode = WAL")
	_, _ = db.Exec("PRAGMA synchronous = NORMAL")

	if err := st.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return st, nil
}

func (s *sqliteStore) migrate(ctx context.Context) error {
	b, err := migrationsFS.ReadFile("migrations.sql")
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, string(b))
	return err
}

func (s *sqliteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *sqliteStore) AppendDelivery(ctx context.Context, r DeliveryRecord) error {
	if s == nil || s.db == nil {
		return ErrDisabled
	}
	if r.At.IsZero() {
		r.At = time.Now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO deliveries(at, kind, message_id, broadcast_id, agent_id, x, y, strategy, status, ok, err, took_ms)
		 VALUES(?,?,?,?,?,?,?,?,?,?,?,?)`,
		r.At.Format(time.RFC3339Nano), r.Kind, nullStr(r.MessageID), nullStr(r.BroadcastID),
		nullStr(r.AgentID), r.X, r.Y, nullStr(r.Strategy), nullStr(r.Status),
		boolInt(r.OK), nullStr(r.Error), r.TookMS,
	)
	if err == nil && s.opCount.Add(1)%s.pruneEvery == 0 {
		pctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		_ = s.prune(pctx)
		cancel()
	}
	return err
}

func (s *sqliteStore) RecentDeliveries(ctx context.Context, limit int) ([]DeliveryRecord, error) {
	if s == nil || s.db == nil {
		return nil, ErrDisabled
	}
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT at, kind, message_id, broadcast_id, agent_id, x, y, strategy, status, ok, err, took_ms
		 FROM deliveries ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []DeliveryRecord
	for rows.Next() {
		var (
			r                                    DeliveryRecord
			at                                   string
			msgID, bcID, agentID, strat, st, msg sql.NullString
			ok                                   int
		)
		if err := rows.Scan(&at, &r.Kind, &msgID, &bcID, &agentID, &r.X, &r.Y, &strat, &st, &ok, &msg, &r.TookMS); err != nil {
			return nil, err
		}
		r.At, _ = time.Parse(time.RFC3339Nano, at)
		r.MessageID = msgID.String
		r.BroadcastID = bcID.String
		r.AgentID = agentID.String
		r.Strategy = strat.String
		r.Status = st.String
		r.OK = ok != 0
		r.Error = msg.String
		out = append(out, r)
	}
	// Oldest first, matching the file driver.
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, rows.Err()
}

func (s *sqliteStore) prune(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM deliveries WHERE id NOT IN (SELECT id FROM deliveries ORDER BY id DESC LIMIT ?)`,
		sqlitePruneKeep)
	return err
}

func nullStr(s string) any {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return s
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
