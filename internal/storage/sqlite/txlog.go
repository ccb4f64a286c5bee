package sqlite

import (
	"context"
	"fmt"

	"github.com/tanaste-io/tanaste/internal/types"
)

func appendTransactionLog(ctx context.Context, exec execer, entry *types.TransactionLogEntry) error {
	const q = `INSERT INTO transaction_log (id, entity_id, entity_type, operation, actor, occurred_at, detail)
		VALUES (?, ?, ?, ?, ?, ?, ?)`
	if _, err := exec.ExecContext(ctx, q, entry.ID, entry.EntityID, string(entry.EntityType),
		entry.Operation, entry.Actor, types.FormatTime(entry.OccurredAt), entry.Detail); err != nil {
		return fmt.Errorf("sqlite: append transaction log %s: %w", entry.ID, err)
	}
	return nil
}

func (s *SQLiteStorage) AppendTransactionLog(ctx context.Context, entry *types.TransactionLogEntry) error {
	return appendTransactionLog(ctx, s.db, entry)
}

func (t *txWrapper) AppendTransactionLog(ctx context.Context, entry *types.TransactionLogEntry) error {
	return appendTransactionLog(ctx, t.tx, entry)
}
