// Package notify reports outcomes and warnings to staff.
package notify

import (
	"context"

	"camrent-backend/internal/domain"
	"camrent-backend/internal/logger"
)

// Notifier delivers a message of the given kind. Delivery is best effort:
// failures are logged by the implementation and never returned.
type Notifier interface {
	Notify(ctx context.Context, kind domain.NotificationKind, message string)
}

var severity = map[domain.NotificationKind]int{
	domain.NotificationInfo:    0,
	domain.NotificationSuccess: 1,
	domain.NotificationWarning: 2,
	domain.NotificationError:   3,
}

// AtLeast reports whether kind is at least as severe as min.
func AtLeast(kind, min domain.NotificationKind) bool {
	return severity[kind] >= severity[min]
}

type multi []Notifier

// Multi fans a notification out to every non-nil notifier in order.
func Multi(notifiers ...Notifier) Notifier {
	var m multi
	for _, n := range notifiers {
		if n != nil {
			m = append(m, n)
		}
	}
	return m
}

func (m multi) Notify(ctx context.Context, kind domain.NotificationKind, message string) {
	for _, n := range m {
		n.Notify(ctx, kind, message)
	}
}

type logNotifier struct{}

// Log writes notifications to the structured log.
func Log() Notifier { return logNotifier{} }

func (logNotifier) Notify(ctx context.Context, kind domain.NotificationKind, message string) {
	switch kind {
	case domain.NotificationError:
		logger.ErrorContext(ctx, "Staff notification", "kind", kind, "message", message)
	case domain.NotificationWarning:
		logger.WarnContext(ctx, "Staff notification", "kind", kind, "message", message)
	default:
		logger.InfoContext(ctx, "Staff notification", "kind", kind, "message", message)
	}
}
