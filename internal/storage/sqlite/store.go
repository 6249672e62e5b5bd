// Package sqlite persists session activity so reports can be rebuilt after
// the process that recorded them has exited.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

const (
	StatusActive = "active"
	StatusEnded  = "ended"
)

type Store struct {
	db *sql.DB
}

type SessionRecord struct {
	ID        string
	StartTime time.Time
	EndTime   sql.NullTime
	Status    string
}

type TurnRecord struct {
	SessionID string
	Number    int
	StartTime time.Time
	EndTime   sql.NullTime
}

type ToolCallRecord struct {
	SessionID  string
	TurnNumber int
	ToolName   string
	ToolID     string
	Agent      string
	InputJSON  string
	CalledAt   time.Time
}

type SubagentRecord struct {
	SessionID     string
	ToolID        string
	SubagentType  string
	Description   string
	StartTime     time.Time
	EndTime       sql.NullTime
	DurationMS    int64
	TotalCostUSD  float64
	ResultSummary string
	UsageJSON     string
}

func Open(dbPath string) (*Store, error) {
	if strings.TrimSpace(dbPath) == "" {
		return nil, fmt.Errorf("db path is required")
	}

	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA busy_timeout=3000;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA foreign_keys=ON;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("set pragma %s: %w", p, err)
		}
	}

	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func initSchema(db *sql.DB) error {
	schema := `
CREATE TABLE IF NOT EXISTS sessions (
    id TEXT PRIMARY KEY,
    start_time DATETIME NOT NULL,
    end_time DATETIME,
    status TEXT NOT NULL,
    created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS turns (
    session_id TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
    number INTEGER NOT NULL,
    start_time DATETIME NOT NULL,
    end_time DATETIME,
    PRIMARY KEY (session_id, number)
);

CREATE TABLE IF NOT EXISTS tool_calls (
    session_id TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
    turn_number INTEGER NOT NULL,
    tool_name TEXT NOT NULL,
    tool_id TEXT NOT NULL,
    agent TEXT NOT NULL,
    input TEXT NOT NULL DEFAULT '',
    called_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS subagent_executions (
    session_id TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
    tool_id TEXT NOT NULL,
    subagent_type TEXT NOT NULL,
    description TEXT NOT NULL DEFAULT '',
    start_time DATETIME NOT NULL,
    end_time DATETIME,
    duration_ms INTEGER NOT NULL DEFAULT 0,
    total_cost_usd REAL NOT NULL DEFAULT 0,
    result_summary TEXT NOT NULL DEFAULT '',
    usage TEXT NOT NULL DEFAULT '',
    PRIMARY KEY (session_id, tool_id)
);

CREATE INDEX IF NOT EXISTS idx_tool_calls_session ON tool_calls(session_id, turn_number);
`

	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("init schema: %w", err)
	}
	return nil
}

func (s *Store) CreateSession(ctx context.Context, id string, start time.Time) error {
	_, err := s.db.ExecContext(ctx, `
INSERT INTO sessions (id, start_time, status)
VALUES (?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
    start_time=excluded.start_time,
    status=excluded.status,
    end_time=NULL,
    updated_at=CURRENT_TIMESTAMP
`, id, start.UTC(), StatusActive)
	if err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

func (s *Store) FinishSession(ctx context.Context, id string, end time.Time) error {
	_, err := s.db.ExecContext(ctx, `
UPDATE sessions
SET status = ?, end_time = ?, updated_at = CURRENT_TIMESTAMP
WHERE id = ?
`, StatusEnded, end.UTC(), id)
	if err != nil {
		return fmt.Errorf("finish session: %w", err)
	}
	return nil
}

func (s *Store) StartTurn(ctx context.Context, sessionID string, number int, start time.Time) error {
	_, err := s.db.ExecContext(ctx, `
INSERT INTO turns (session_id, number, start_time)
VALUES (?, ?, ?)
ON CONFLICT(session_id, number) DO NOTHING
`, sessionID, number, start.UTC())
	if err != nil {
		return fmt.Errorf("insert turn: %w", err)
	}
	return nil
}

func (s *Store) EndTurn(ctx context.Context, sessionID string, number int, end time.Time) error {
	_, err := s.db.ExecContext(ctx, `
UPDATE turns
SET end_time = ?
WHERE session_id = ? AND number = ? AND end_time IS NULL
`, end.UTC(), sessionID, number)
	if err != nil {
		return fmt.Errorf("end turn: %w", err)
	}
	return nil
}

func (s *Store) InsertToolCall(ctx context.Context, rec ToolCallRecord) error {
	if strings.TrimSpace(rec.ToolName) == "" {
		return fmt.Errorf("tool name is required")
	}
	_, err := s.db.ExecContext(ctx, `
INSERT INTO tool_calls (session_id, turn_number, tool_name, tool_id, agent, input, called_at)
VALUES (?, ?, ?, ?, ?, ?, ?)
`, rec.SessionID, rec.TurnNumber, rec.ToolName, rec.ToolID, rec.Agent, rec.InputJSON, rec.CalledAt.UTC())
	if err != nil {
		return fmt.Errorf("insert tool call: %w", err)
	}
	return nil
}

func (s *Store) OpenSubagent(ctx context.Context, rec SubagentRecord) error {
	_, err := s.db.ExecContext(ctx, `
INSERT INTO subagent_executions (session_id, tool_id, subagent_type, description, start_time)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT(session_id, tool_id) DO NOTHING
`, rec.SessionID, rec.ToolID, rec.SubagentType, rec.Description, rec.StartTime.UTC())
	if err != nil {
		return fmt.Errorf("open subagent: %w", err)
	}
	return nil
}

func (s *Store) CloseSubagent(ctx context.Context, rec SubagentRecord) error {
	res, err := s.db.ExecContext(ctx, `
UPDATE subagent_executions
SET end_time = ?, duration_ms = ?, total_cost_usd = ?, result_summary = ?, usage = ?
WHERE session_id = ? AND tool_id = ? AND end_time IS NULL
`, rec.EndTime.Time.UTC(), rec.DurationMS, rec.TotalCostUSD, rec.ResultSummary, rec.UsageJSON,
		rec.SessionID, rec.ToolID)
	if err != nil {
		return fmt.Errorf("close subagent: %w", err)
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		return fmt.Errorf("close subagent: %s/%s not open", rec.SessionID, rec.ToolID)
	}
	return nil
}

func (s *Store) GetSession(ctx context.Context, sessionID string) (*SessionRecord, error) {
	if strings.TrimSpace(sessionID) == "" {
		return nil, fmt.Errorf("session id is required")
	}
	row := s.db.QueryRowContext(ctx, `
SELECT id, start_time, end_time, status
FROM sessions
WHERE id = ?
LIMIT 1
`, sessionID)

	var rec SessionRecord
	if err := row.Scan(&rec.ID, &rec.StartTime, &rec.EndTime, &rec.Status); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get session: %w", err)
	}
	return &rec, nil
}

func (s *Store) ListSessions(ctx context.Context, limit int) ([]SessionRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	if limit > 200 {
		limit = 200
	}
	rows, err := s.db.QueryContext(ctx, `
SELECT id, start_time, end_time, status
FROM sessions
ORDER BY rowid DESC
LIMIT ?
`, limit)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var sessions []SessionRecord
	for rows.Next() {
		var rec SessionRecord
		if err := rows.Scan(&rec.ID, &rec.StartTime, &rec.EndTime, &rec.Status); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		sessions = append(sessions, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list sessions rows: %w", err)
	}
	return sessions, nil
}

func (s *Store) ListTurns(ctx context.Context, sessionID string) ([]TurnRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT session_id, number, start_time, end_time
FROM turns
WHERE session_id = ?
ORDER BY number ASC
`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("list turns: %w", err)
	}
	defer rows.Close()

	var turns []TurnRecord
	for rows.Next() {
		var rec TurnRecord
		if err := rows.Scan(&rec.SessionID, &rec.Number, &rec.StartTime, &rec.EndTime); err != nil {
			return nil, fmt.Errorf("scan turn: %w", err)
		}
		turns = append(turns, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list turns rows: %w", err)
	}
	return turns, nil
}

func (s *Store) ListToolCalls(ctx context.Context, sessionID string) ([]ToolCallRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT session_id, turn_number, tool_name, tool_id, agent, input, called_at
FROM tool_calls
WHERE session_id = ?
ORDER BY turn_number ASC, rowid ASC
`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("list tool calls: %w", err)
	}
	defer rows.Close()

	var calls []ToolCallRecord
	for rows.Next() {
		var rec ToolCallRecord
		if err := rows.Scan(&rec.SessionID, &rec.TurnNumber, &rec.ToolName, &rec.ToolID, &rec.Agent, &rec.InputJSON, &rec.CalledAt); err != nil {
			return nil, fmt.Errorf("scan tool call: %w", err)
		}
		calls = append(calls, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list tool calls rows: %w", err)
	}
	return calls, nil
}

func (s *Store) ListSubagents(ctx context.Context, sessionID string) ([]SubagentRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT session_id, tool_id, subagent_type, description, start_time, end_time,
       duration_ms, total_cost_usd, result_summary, usage
FROM subagent_executions
WHERE session_id = ?
ORDER BY start_time ASC, rowid ASC
`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("list subagents: %w", err)
	}
	defer rows.Close()

	var execs []SubagentRecord
	for rows.Next() {
		var rec SubagentRecord
		if err := rows.Scan(&rec.SessionID, &rec.ToolID, &rec.SubagentType, &rec.Description,
			&rec.StartTime, &rec.EndTime, &rec.DurationMS, &rec.TotalCostUSD,
			&rec.ResultSummary, &rec.UsageJSON); err != nil {
			return nil, fmt.Errorf("scan subagent: %w", err)
		}
		execs = append(execs, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list subagents rows: %w", err)
	}
	return execs, nil
}
