package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/KurtDue/iono-pi-access-control/internal/core/domain"
)

// OperatorStore implements ports.OperatorRepository on the local database.
type OperatorStore struct {
	db     *sql.DB
	writer *Writer
}

func NewOperatorStore(db *sql.DB, writer *Writer) *OperatorStore {
	return &OperatorStore{db: db, writer: writer}
}

func (s *OperatorStore) FindByUsername(ctx context.Context, username string) (*domain.Operator, error) {
	var (
		id        int64
		op        domain.Operator
		createdMs int64
	)
	err := s.db.QueryRowContext(ctx, `
SELECT id, username, password_hash, role, created_at_ms
FROM operators WHERE username = ?;`, username).
		Scan(&id, &op.Username, &op.PasswordHash, &op.Role, &createdMs)
	if err == sql.ErrNoRows {
		return nil, domain.ErrOperatorNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find operator: %w", err)
	}
	op.ID = strconv.FormatInt(id, 10)
	op.CreatedAt = time.UnixMilli(createdMs).UTC()
	return &op, nil
}

func (s *OperatorStore) Create(ctx context.Context, op *domain.Operator) (*domain.Operator, error) {
	if op.CreatedAt.IsZero() {
		op.CreatedAt = time.Now().UTC()
	}

	err := s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
INSERT INTO operators(username, password_hash, role, created_at_ms)
VALUES (?, ?, ?, ?);`,
			op.Username, op.PasswordHash, op.Role, op.CreatedAt.UTC().UnixMilli(),
		)
		if err != nil {
			if strings.Contains(err.Error(), "UNIQUE constraint failed") {
				return domain.ErrOperatorExists
			}
			return err
		}
		id, err := res.LastInsertId()
		if err != nil {
			return err
		}
		op.ID = strconv.FormatInt(id, 10)
		return nil
	})
	if err != nil {
		if err == domain.ErrOperatorExists {
			return nil, err
		}
		return nil, fmt.Errorf("create operator: %w", err)
	}
	return op, nil
}

func (s *OperatorStore) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM operators;").Scan(&n); err != nil {
		return 0, fmt.Errorf("count operators: %w", err)
	}
	return n, nil
}
