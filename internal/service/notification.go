package service

import (
	"context"

	"camrent-backend/internal/domain"
	"camrent-backend/internal/repository"
)

const maxPageSize = 100

type notificationService struct {
	noteRepo repository.NotificationRepository
}

func NewNotificationService(noteRepo repository.NotificationRepository) NotificationService {
	return &notificationService{noteRepo: noteRepo}
}

func (s *notificationService) GetNotifications(ctx context.Context, page, pageSize int32) ([]domain.Notification, int32, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > maxPageSize {
		pageSize = 20
	}
	offset := (page - 1) * pageSize
	notes, total, err := s.noteRepo.List(ctx, pageSize, offset)
	if err != nil {
		return nil, 0, translate(err, "listNotifications", "notification", 0, 0)
	}
	return notes, total, nil
}

func (s *notificationService) MarkAsRead(ctx context.Context, notificationID int32) error {
	return translate(s.noteRepo.MarkAsRead(ctx, notificationID), "markAsRead", "notification", notificationID, 0)
}
