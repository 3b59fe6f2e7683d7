package calllog

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"frontdesk/pkg/utils"
)

// PostgresStore persists call records in the call_logs table.
//
// Transcript lines are stored as JSONB; everything else is flat columns so
// reporting queries stay cheap.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const callColumns = `id, call_id, from_number, to_number, direction, status,
	start_time, end_time, duration, intent, transcript, transcript_summary,
	resolution, recording_url, customer_id, created_at, updated_at`

func (s *PostgresStore) Create(ctx context.Context, call Call) (Call, error) {
	if call.CallID == "" {
		return Call{}, ErrInvalidCall
	}
	now := time.Now().UTC()
	if call.ID == "" {
		call.ID = uuid.NewString()
	}
	if call.StartTime.IsZero() {
		call.StartTime = now
	}
	call.CreatedAt = now
	call.UpdatedAt = now

	transcript, err := json.Marshal(call.Transcript)
	if err != nil {
		return Call{}, fmt.Errorf("calllog: marshal transcript: %w", err)
	}

	// Insert and re-read run in one transaction so the returned record is the
	// surviving row, not a snapshot racing a concurrent duplicate webhook.
	// ON CONFLICT keeps creation idempotent on the carrier call id.
	var created Call
	err = utils.WithTx(ctx, s.db, nil, func(ctx context.Context, tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO call_logs (`+callColumns+`)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,NULLIF($10,''),$11,NULLIF($12,''),$13,NULLIF($14,''),NULLIF($15,''),$16,$17)
			ON CONFLICT (call_id) DO NOTHING`,
			call.ID, call.CallID, call.From, call.To, string(call.Direction), string(call.Status),
			call.StartTime, call.EndTime, call.DurationSeconds, string(call.Intent), transcript,
			call.TranscriptSummary, string(call.Resolution), call.RecordingURL, call.CustomerID,
			call.CreatedAt, call.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("calllog: insert: %w", err)
		}
		created, err = scanCall(tx.QueryRowContext(ctx, findCallQuery, call.CallID))
		if err == sql.ErrNoRows {
			return fmt.Errorf("calllog: record missing after insert for %s", call.CallID)
		}
		if err != nil {
			return fmt.Errorf("calllog: find after insert: %w", err)
		}
		return nil
	})
	if err != nil {
		return Call{}, err
	}
	return created, nil
}

const findCallQuery = `SELECT ` + callColumns + ` FROM call_logs WHERE call_id = $1`

func (s *PostgresStore) FindByCallID(ctx context.Context, callID string) (Call, bool, error) {
	row := s.db.QueryRowContext(ctx, findCallQuery, callID)
	c, err := scanCall(row)
	if err == sql.ErrNoRows {
		return Call{}, false, nil
	}
	if err != nil {
		return Call{}, false, fmt.Errorf("calllog: find: %w", err)
	}
	return c, true, nil
}

func (s *PostgresStore) Update(ctx context.Context, callID string, upd CallUpdate) (bool, error) {
	if upd.IsEmpty() {
		// Nothing to merge; report whether the record exists.
		_, ok, err := s.FindByCallID(ctx, callID)
		return ok, err
	}

	sets := []string{}
	args := []any{}
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if upd.Status != nil {
		sets = append(sets, "status = "+arg(string(*upd.Status)))
	}
	if upd.EndTime != nil {
		sets = append(sets, "end_time = "+arg(*upd.EndTime))
	}
	if upd.DurationSeconds != nil {
		sets = append(sets, "duration = "+arg(*upd.DurationSeconds))
	}
	if upd.Intent != nil {
		sets = append(sets, "intent = NULLIF("+arg(string(*upd.Intent))+", '')")
	}
	if upd.Transcript != nil {
		b, err := json.Marshal(upd.Transcript)
		if err != nil {
			return false, fmt.Errorf("calllog: marshal transcript: %w", err)
		}
		sets = append(sets, "transcript = "+arg(b))
	}
	if upd.TranscriptSummary != nil {
		sets = append(sets, "transcript_summary = "+arg(*upd.TranscriptSummary))
	}
	if upd.Resolution != nil {
		sets = append(sets, "resolution = "+arg(string(*upd.Resolution)))
	}
	if upd.RecordingURL != nil {
		sets = append(sets, "recording_url = "+arg(*upd.RecordingURL))
	}
	if upd.CustomerID != nil {
		sets = append(sets, "customer_id = "+arg(*upd.CustomerID))
	}
	sets = append(sets, "updated_at = "+arg(time.Now().UTC()))

	query := "UPDATE call_logs SET " + strings.Join(sets, ", ") + " WHERE call_id = " + arg(callID)
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("calllog: update: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("calllog: rows affected: %w", err)
	}
	return n > 0, nil
}

func (s *PostgresStore) List(ctx context.Context, f ListFilter) ([]Call, error) {
	where := []string{"TRUE"}
	args := []any{}
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if !f.From.IsZero() {
		where = append(where, "start_time >= "+arg(f.From))
	}
	if !f.To.IsZero() {
		where = append(where, "start_time < "+arg(f.To))
	}
	if f.Status != "" {
		where = append(where, "status = "+arg(string(f.Status)))
	}
	limit := f.Limit
	if limit <= 0 {
		limit = 100
	}

	query := `SELECT ` + callColumns + ` FROM call_logs WHERE ` +
		strings.Join(where, " AND ") + ` ORDER BY start_time DESC LIMIT ` + arg(limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("calllog: list: %w", err)
	}
	defer rows.Close()

	var out []Call
	for rows.Next() {
		c, err := scanCall(rows)
		if err != nil {
			return nil, fmt.Errorf("calllog: scan: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCall(r rowScanner) (Call, error) {
	var (
		c          Call
		direction  string
		status     string
		resolution string
		endTime    sql.NullTime
		duration   sql.NullInt64
		intent     sql.NullString
		transcript []byte
		summary    sql.NullString
		recording  sql.NullString
		customerID sql.NullString
	)
	err := r.Scan(
		&c.ID, &c.CallID, &c.From, &c.To, &direction, &status,
		&c.StartTime, &endTime, &duration, &intent, &transcript, &summary,
		&resolution, &recording, &customerID, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return Call{}, err
	}
	c.Direction = Direction(direction)
	c.Status = CallStatus(status)
	c.Resolution = Resolution(resolution)
	if endTime.Valid {
		t := endTime.Time
		c.EndTime = &t
	}
	if duration.Valid {
		c.DurationSeconds = int(duration.Int64)
	}
	if intent.Valid {
		c.Intent = Intent(intent.String)
	}
	if len(transcript) > 0 {
		if err := json.Unmarshal(transcript, &c.Transcript); err != nil {
			return Call{}, fmt.Errorf("unmarshal transcript: %w", err)
		}
	}
	if summary.Valid {
		c.TranscriptSummary = summary.String
	}
	if recording.Valid {
		c.RecordingURL = recording.String
	}
	if customerID.Valid {
		c.CustomerID = customerID.String
	}
	return c, nil
}
