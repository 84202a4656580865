package notify

import (
	"context"
	"fmt"

	"camrent-backend/internal/domain"
	"camrent-backend/internal/logger"
	"camrent-backend/internal/metrics"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"google.golang.org/api/option"
)

// PushSender is the part of the FCM client used for delivery.
type PushSender interface {
	Send(ctx context.Context, message *messaging.Message) (string, error)
}

type pushNotifier struct {
	sender  PushSender
	topic   string
	minKind domain.NotificationKind
}

// NewFirebaseSender creates an FCM client from a service account file.
func NewFirebaseSender(ctx context.Context, credentialsFile string) (PushSender, error) {
	app, err := firebase.NewApp(ctx, nil, option.WithCredentialsFile(credentialsFile))
	if err != nil {
		return nil, fmt.Errorf("init firebase app: %w", err)
	}
	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("init firebase messaging: %w", err)
	}
	return client, nil
}

// Push sends notifications to the staff devices subscribed to topic.
func Push(sender PushSender, topic string, minKind domain.NotificationKind) Notifier {
	if minKind == "" {
		minKind = domain.NotificationWarning
	}
	return &pushNotifier{sender: sender, topic: topic, minKind: minKind}
}

func (n *pushNotifier) Notify(ctx context.Context, kind domain.NotificationKind, message string) {
	if !AtLeast(kind, n.minKind) {
		return
	}
	msg := &messaging.Message{
		Topic: n.topic,
		Notification: &messaging.Notification{
			Title: "camrent " + string(kind),
			Body:  firstLine(message),
		},
		Data: map[string]string{"kind": string(kind), "message": message},
	}

	logger.ExternalServiceCall("fcm", "send", "topic", n.topic, "kind", kind)
	id, err := n.sender.Send(ctx, msg)
	logger.ExternalServiceResult("fcm", "send", err, "messageID", id)
	if err != nil {
		metrics.IncNotification("push", "error")
		return
	}
	metrics.IncNotification("push", "ok")
}
