package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/KurtDue/iono-pi-access-control/internal/core/domain"
)

func openTestWriter(t *testing.T) (*sql.DB, *Writer) {
	t.Helper()

	db, err := Open(context.Background(), Config{
		Path: filepath.Join(t.TempDir(), "test.db"),
	})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	writer := NewWriter(db)
	t.Cleanup(writer.Close)
	return db, writer
}

func TestWriter_DoAfterCloseReturnsError(t *testing.T) {
	_, writer := openTestWriter(t)

	writer.Close()

	err := writer.Do(context.Background(), func(ctx context.Context, tx *sql.Tx) error {
		return nil
	})
	if !errors.Is(err, ErrWriterClosed) {
		t.Fatalf("expected ErrWriterClosed, got %v", err)
	}
}

func TestWriter_CloseIsIdempotent(t *testing.T) {
	_, writer := openTestWriter(t)

	writer.Close()
	writer.Close()
}

func TestWriter_CloseDrainsQueuedJobs(t *testing.T) {
	_, writer := openTestWriter(t)

	started := make(chan struct{})
	release := make(chan struct{})
	go func() {
		_ = writer.Do(context.Background(), func(ctx context.Context, tx *sql.Tx) error {
			close(started)
			<-release
			return nil
		})
	}()
	<-started

	// The loop is busy, so this job lands in the buffer.
	ran := make(chan struct{})
	go func() {
		_ = writer.Do(context.Background(), func(ctx context.Context, tx *sql.Tx) error {
			close(ran)
			return nil
		})
	}()
	time.Sleep(50 * time.Millisecond)

	close(release)
	writer.Close()

	select {
	case <-ran:
	case <-time.After(time.Second):
		t.Fatalf("queued job was not drained before Close returned")
	}
}

func TestAuditStore_AppendAfterWriterCloseFailsSoftly(t *testing.T) {
	db, writer := openTestWriter(t)
	store := NewAuditStore(db, writer)

	writer.Close()

	err := store.Append(context.Background(), sampleAttempt("CARD", true, time.Now().UTC()))
	if !errors.Is(err, domain.ErrAuditWriteFailed) {
		t.Fatalf("expected ErrAuditWriteFailed wrap, got %v", err)
	}
}
