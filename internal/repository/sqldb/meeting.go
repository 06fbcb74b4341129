package sqldb

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/Sibikrish3000/cr-agent/internal/domain"
)

const meetingColumns = "id, title, description, location, start_time, end_time, participants"

// MeetingRepository implements domain.MeetingRepository on database/sql
type MeetingRepository struct {
	db      *sql.DB
	dialect Dialect
}

// NewMeetingRepository creates a new meeting repository
func NewMeetingRepository(db *DB) *MeetingRepository {
	return &MeetingRepository{db: db.DB, dialect: db.Dialect}
}

func (r *MeetingRepository) Create(ctx context.Context, m *domain.Meeting) error {
	args := []any{
		m.Title,
		nullString(m.Description),
		nullString(m.Location),
		m.StartTime.Format(domain.TimeLayout),
		m.EndTime.Format(domain.TimeLayout),
		nullString(m.Participants),
	}
	query := `INSERT INTO meeting (title, description, location, start_time, end_time, participants)
		VALUES (?, ?, ?, ?, ?, ?)`

	if r.dialect == Postgres {
		if err := r.db.QueryRowContext(ctx, r.dialect.Rebind(query+" RETURNING id"), args...).Scan(&m.ID); err != nil {
			return fmt.Errorf("failed to create meeting: %w", err)
		}
		return nil
	}

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to create meeting: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read meeting id: %w", err)
	}
	m.ID = id
	return nil
}

// FindOverlapping returns meetings whose [start_time, end_time) intersects [start, end)
func (r *MeetingRepository) FindOverlapping(ctx context.Context, start, end time.Time) ([]domain.Meeting, error) {
	query := r.dialect.Rebind(`SELECT ` + meetingColumns + `
		FROM meeting
		WHERE start_time < ? AND end_time > ?
		ORDER BY start_time`)

	rows, err := r.db.QueryContext(ctx, query, end.Format(domain.TimeLayout), start.Format(domain.TimeLayout))
	if err != nil {
		return nil, fmt.Errorf("failed to find overlapping meetings: %w", err)
	}
	defer rows.Close()

	return scanMeetings(rows)
}

func (r *MeetingRepository) DeleteMatching(ctx context.Context, filter domain.CancelFilter) ([]domain.Meeting, error) {
	where, args := filterClause(filter)

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	rows, err := tx.QueryContext(ctx, r.dialect.Rebind(`SELECT `+meetingColumns+` FROM meeting`+where+` ORDER BY start_time`), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to select meetings: %w", err)
	}
	meetings, err := scanMeetings(rows)
	rows.Close()
	if err != nil {
		return nil, err
	}

	if len(meetings) == 0 {
		return nil, nil
	}

	ids := make([]any, len(meetings))
	for i, m := range meetings {
		ids[i] = m.ID
	}
	if _, err := tx.ExecContext(ctx, r.dialect.Rebind(`DELETE FROM meeting WHERE id IN (`+placeholders(len(ids))+`)`), ids...); err != nil {
		return nil, fmt.Errorf("failed to delete meetings: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return meetings, nil
}

func (r *MeetingRepository) List(ctx context.Context) ([]domain.Meeting, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+meetingColumns+` FROM meeting ORDER BY start_time`)
	if err != nil {
		return nil, fmt.Errorf("failed to list meetings: %w", err)
	}
	defer rows.Close()

	return scanMeetings(rows)
}

func filterClause(filter domain.CancelFilter) (string, []any) {
	if len(filter.IDs) > 0 {
		args := make([]any, len(filter.IDs))
		for i, id := range filter.IDs {
			args[i] = id
		}
		return ` WHERE id IN (` + placeholders(len(args)) + `)`, args
	}
	if filter.Day != nil {
		from := *filter.Day
		to := from.AddDate(0, 0, 1)
		return ` WHERE start_time >= ? AND start_time < ?`, []any{from.Format(domain.TimeLayout), to.Format(domain.TimeLayout)}
	}
	return "", nil
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

func scanMeetings(rows *sql.Rows) ([]domain.Meeting, error) {
	var meetings []domain.Meeting
	for rows.Next() {
		var (
			m                     domain.Meeting
			description, location sql.NullString
			participants          sql.NullString
			startRaw, endRaw      any
		)
		if err := rows.Scan(&m.ID, &m.Title, &description, &location, &startRaw, &endRaw, &participants); err != nil {
			return nil, fmt.Errorf("failed to scan meeting: %w", err)
		}

		var err error
		if m.StartTime, err = ParseTimestamp(startRaw); err != nil {
			return nil, err
		}
		if m.EndTime, err = ParseTimestamp(endRaw); err != nil {
			return nil, err
		}
		m.Description = description.String
		m.Location = location.String
		m.Participants = participants.String
		meetings = append(meetings, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return meetings, nil
}

var timestampLayouts = []string{
	domain.TimeLayout,
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05",
	time.RFC3339Nano,
}

// ParseTimestamp reads a stored timestamp as local wall-clock time.
// Drivers hand back time.Time, []byte or string depending on the dialect.
func ParseTimestamp(v any) (time.Time, error) {
	switch val := v.(type) {
	case time.Time:
		return wallClock(val), nil
	case []byte:
		return ParseTimestamp(string(val))
	case string:
		for _, layout := range timestampLayouts {
			if t, err := time.ParseInLocation(layout, val, time.Local); err == nil {
				return wallClock(t), nil
			}
		}
		return time.Time{}, fmt.Errorf("failed to parse timestamp %q", val)
	default:
		return time.Time{}, fmt.Errorf("unsupported timestamp type %T", v)
	}
}

func wallClock(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), 0, time.Local)
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
