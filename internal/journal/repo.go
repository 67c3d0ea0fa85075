package journal

import (
	"encoding/json"
	"fmt"
	"time"
)

// Render statuses.
const (
	StatusOK     = "ok"
	StatusFailed = "failed"
)

const defaultListLimit = 50

// Entry is one recorded render run.
type Entry struct {
	ID        string        `json:"id"`
	NotePath  string        `json:"note_path"`
	Engine    string        `json:"engine"`
	PDFPath   string        `json:"pdf_path"`
	Status    string        `json:"status"`
	ErrorKind string        `json:"error_kind,omitempty"`
	Message   string        `json:"message,omitempty"`
	Tools     []string      `json:"tools"`
	Pages     int           `json:"pages"`
	Duration  time.Duration `json:"duration"`
	StartedAt time.Time     `json:"started_at"`
}

// Record inserts e. A zero StartedAt is set to the current time.
func (db *DB) Record(e Entry) error {
	if e.StartedAt.IsZero() {
		e.StartedAt = time.Now()
	}
	if e.Tools == nil {
		e.Tools = []string{}
	}
	toolsJSON, _ := json.Marshal(e.Tools)

	_, err := db.conn.Exec(`
		INSERT INTO renders (id, note_path, engine, pdf_path, status, error_kind, message, tools, pages, duration_ms, started_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, e.ID, e.NotePath, e.Engine, e.PDFPath, e.Status, e.ErrorKind, e.Message,
		string(toolsJSON), e.Pages, e.Duration.Milliseconds(), e.StartedAt.UTC())
	if err != nil {
		return fmt.Errorf("journal: record: %w", err)
	}
	return nil
}

// List returns recorded runs newest first. An empty notePath lists runs for
// every note; limit <= 0 uses a default.
func (db *DB) List(notePath string, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	query := `
		SELECT id, note_path, engine, pdf_path, status, error_kind, message, tools, pages, duration_ms, started_at
		FROM renders`
	args := []any{}
	if notePath != "" {
		query += ` WHERE note_path = ?`
		args = append(args, notePath)
	}
	query += ` ORDER BY started_at DESC, rowid DESC LIMIT ?`
	args = append(args, limit)

	rows, err := db.conn.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("journal: list: %w", err)
	}
	defer rows.Close()

	out := []Entry{}
	for rows.Next() {
		var (
			e          Entry
			toolsJSON  string
			durationMS int64
		)
		if err := rows.Scan(&e.ID, &e.NotePath, &e.Engine, &e.PDFPath, &e.Status, &e.ErrorKind,
			&e.Message, &toolsJSON, &e.Pages, &durationMS, &e.StartedAt); err != nil {
			return nil, fmt.Errorf("journal: scan: %w", err)
		}
		if err := json.Unmarshal([]byte(toolsJSON), &e.Tools); err != nil {
			return nil, fmt.Errorf("journal: decode tools of %s: %w", e.ID, err)
		}
		e.Duration = time.Duration(durationMS) * time.Millisecond
		out = append(out, e)
	}
	return out, rows.Err()
}
