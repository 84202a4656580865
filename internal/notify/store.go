package notify

import (
	"context"
	"time"

	"camrent-backend/internal/domain"
	"camrent-backend/internal/logger"
	"camrent-backend/internal/metrics"
	"camrent-backend/internal/repository"
)

type storeNotifier struct {
	repo repository.NotificationRepository
	now  func() time.Time
}

// Store keeps notifications in the staff notification feed.
func Store(repo repository.NotificationRepository) Notifier {
	return &storeNotifier{repo: repo, now: time.Now}
}

func (n *storeNotifier) Notify(ctx context.Context, kind domain.NotificationKind, message string) {
	note := &domain.Notification{Kind: kind, Message: message, CreatedAt: n.now()}
	if err := n.repo.Create(ctx, note); err != nil {
		metrics.IncNotification("store", "error")
		logger.WarnContext(ctx, "Failed to store notification", "kind", kind, "error", err)
		return
	}
	metrics.IncNotification("store", "ok")
}
