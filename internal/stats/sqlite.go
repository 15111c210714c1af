package stats

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS request_events (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	request_id  TEXT    NOT NULL,
	user_id     INTEGER NOT NULL,
	platform    TEXT    NOT NULL,
	outcome     TEXT    NOT NULL,
	duration_ms INTEGER NOT NULL,
	created_at  TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_request_events_outcome  ON request_events (outcome);
CREATE INDEX IF NOT EXISTS idx_request_events_platform ON request_events (platform);
`

// SQLiteStore 把结果事件落到单文件 SQLite，既当计数器也当事件日志。
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore 打开（必要时初始化）统计数据库。
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if path == "" {
		return nil, fmt.Errorf("stats db path required")
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open stats db: %w", err)
	}
	// modernc 驱动是纯 Go 实现，单连接即可避免 SQLITE_BUSY。
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init stats schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Record 落一条结果事件。
func (s *SQLiteStore) Record(ctx context.Context, event Event) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO request_events (request_id, user_id, platform, outcome, duration_ms)
		 VALUES (?, ?, ?, ?, ?)`,
		event.RequestID, event.UserID, string(event.Platform), string(event.Outcome),
		event.Duration.Milliseconds(),
	)
	if err != nil {
		return fmt.Errorf("record stats event: %w", err)
	}
	return nil
}

// Snapshot 是聚合计数的一次性读数，供 /stats 命令与诊断端使用。
type Snapshot struct {
	Requests   int64            `json:"requests"`
	Hits       int64            `json:"hits"`
	Successes  int64            `json:"successes"`
	Failures   int64            `json:"failures"`
	ByOutcome  map[string]int64 `json:"by_outcome"`
	ByPlatform map[string]int64 `json:"by_platform"`
}

// Snapshot 聚合历史事件。
func (s *SQLiteStore) Snapshot(ctx context.Context) (*Snapshot, error) {
	snap := &Snapshot{
		ByOutcome:  make(map[string]int64),
		ByPlatform: make(map[string]int64),
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT outcome, COUNT(*) FROM request_events GROUP BY outcome`)
	if err != nil {
		return nil, fmt.Errorf("aggregate outcomes: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var outcome string
		var count int64
		if err := rows.Scan(&outcome, &count); err != nil {
			return nil, err
		}
		snap.ByOutcome[outcome] = count
		snap.Requests += count
		switch Outcome(outcome) {
		case OutcomeHit:
			snap.Hits += count
		case OutcomeSuccess:
			snap.Successes += count
		case OutcomeNoLink:
			// 未含链接不计入失败。
		default:
			snap.Failures += count
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	platformRows, err := s.db.QueryContext(ctx,
		`SELECT platform, COUNT(*) FROM request_events GROUP BY platform`)
	if err != nil {
		return nil, fmt.Errorf("aggregate platforms: %w", err)
	}
	defer platformRows.Close()
	for platformRows.Next() {
		var tag string
		var count int64
		if err := platformRows.Scan(&tag, &count); err != nil {
			return nil, err
		}
		snap.ByPlatform[tag] = count
	}
	if err := platformRows.Err(); err != nil {
		return nil, err
	}

	return snap, nil
}

// Close 关闭底层数据库。
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
