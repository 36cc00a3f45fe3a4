package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/KurtDue/iono-pi-access-control/internal/core/domain"
	"github.com/KurtDue/iono-pi-access-control/internal/core/ports"
)

const maxQueryLimit = 500

// AuditStore persists access attempts append-only. Appends go through the
// single Writer; queries read directly.
type AuditStore struct {
	db     *sql.DB
	writer *Writer
}

func NewAuditStore(db *sql.DB, writer *Writer) *AuditStore {
	return &AuditStore{db: db, writer: writer}
}

// Append durably persists one attempt. The Writer commits before Do
// returns, so a nil error means the record is on disk.
func (s *AuditStore) Append(ctx context.Context, att *domain.AccessAttempt) error {
	if att.Timestamp.IsZero() {
		att.Timestamp = time.Now().UTC()
	}

	var granted int
	if att.Granted {
		granted = 1
	}

	err := s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
INSERT INTO access_attempts(
  ts_ms, barcode, source, granted, user_id, user_name, reason, operator, transition
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?);
`,
			att.Timestamp.UTC().UnixMilli(), att.Barcode, string(att.Source), granted,
			att.UserID, att.UserName, att.Reason, att.Operator, string(att.Transition),
		)
		if err != nil {
			return err
		}
		if id, err := res.LastInsertId(); err == nil {
			att.ID = id
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrAuditWriteFailed, err)
	}
	return nil
}

// Query returns attempts matching filter, newest first.
func (s *AuditStore) Query(ctx context.Context, filter ports.AttemptFilter) ([]domain.AccessAttempt, error) {
	var (
		conds []string
		args  []any
	)

	if filter.Source != "" {
		conds = append(conds, "source = ?")
		args = append(args, string(filter.Source))
	}
	if filter.Granted != nil {
		g := 0
		if *filter.Granted {
			g = 1
		}
		conds = append(conds, "granted = ?")
		args = append(args, g)
	}
	if !filter.Since.IsZero() {
		conds = append(conds, "ts_ms >= ?")
		args = append(args, filter.Since.UTC().UnixMilli())
	}
	if !filter.Until.IsZero() {
		conds = append(conds, "ts_ms <= ?")
		args = append(args, filter.Until.UTC().UnixMilli())
	}

	where := ""
	if len(conds) > 0 {
		where = "WHERE " + strings.Join(conds, " AND ")
	}

	limit := filter.Limit
	if limit <= 0 || limit > maxQueryLimit {
		limit = maxQueryLimit
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}
	args = append(args, limit, offset)

	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(`
SELECT id, ts_ms, barcode, source, granted, user_id, user_name, reason, operator, transition
FROM access_attempts %s
ORDER BY ts_ms DESC, id DESC
LIMIT ? OFFSET ?;`, where), args...)
	if err != nil {
		return nil, fmt.Errorf("query attempts: %w", err)
	}
	defer rows.Close()

	var out []domain.AccessAttempt
	for rows.Next() {
		var (
			att        domain.AccessAttempt
			tsMs       int64
			source     string
			granted    int
			transition string
		)
		if err := rows.Scan(
			&att.ID, &tsMs, &att.Barcode, &source, &granted,
			&att.UserID, &att.UserName, &att.Reason, &att.Operator, &transition,
		); err != nil {
			return nil, fmt.Errorf("scan attempt: %w", err)
		}
		att.Timestamp = time.UnixMilli(tsMs).UTC()
		att.Source = domain.Source(source)
		att.Granted = granted == 1
		att.Transition = domain.DoorState(transition)
		out = append(out, att)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate attempts: %w", err)
	}
	return out, nil
}
