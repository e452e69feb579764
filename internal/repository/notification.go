package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/lmcosta/snapsight/internal/docstore"
	"github.com/lmcosta/snapsight/internal/model"
)

const notificationsCollection = "notifications"

// NotificationRepository persists the consumer-side notification history.
type NotificationRepository struct {
	store docstore.Store
}

// NewNotificationRepository constructs a repository over the given store.
func NewNotificationRepository(store docstore.Store) *NotificationRepository {
	return &NotificationRepository{store: store}
}

// Record persists one history entry keyed by the result id. The write is
// insert-if-absent so a redelivered message leaves at most one record;
// the return value reports whether this call created it.
func (r *NotificationRepository) Record(ctx context.Context, rec *model.NotificationRecord) (bool, error) {
	data, err := json.Marshal(rec)
	if err != nil {
		return false, fmt.Errorf("marshal notification: %w", err)
	}
	created, err := r.store.InsertIfAbsent(ctx, notificationsCollection, rec.ResultID, data, rec.ReceivedAt)
	if err != nil {
		return false, fmt.Errorf("insert notification: %w", err)
	}
	return created, nil
}

// Recent returns up to n history entries newest-first, bounded by the
// store's scan cap.
func (r *NotificationRepository) Recent(ctx context.Context, n int) ([]*model.NotificationRecord, error) {
	entries, err := r.store.Scan(ctx, notificationsCollection, n)
	if err != nil {
		return nil, fmt.Errorf("scan notifications: %w", err)
	}
	out := make([]*model.NotificationRecord, 0, len(entries))
	for _, e := range entries {
		var rec model.NotificationRecord
		if err := json.Unmarshal(e.Data, &rec); err != nil {
			return nil, fmt.Errorf("unmarshal notification %s: %w", e.ID, err)
		}
		out = append(out, &rec)
	}
	return out, nil
}
