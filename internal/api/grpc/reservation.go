package grpc

import (
	"context"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"camrent-backend/internal/domain"
	"camrent-backend/internal/feed"
	"camrent-backend/internal/logger"
	"camrent-backend/internal/service"
	"camrent-backend/internal/utils"
)

// BoardFactory opens a live availability board bound to ctx.
type BoardFactory func(ctx context.Context) *feed.Board

type ReservationHandler struct {
	reservationSvc  service.ReservationService
	availabilitySvc service.AvailabilityService
	calendarSvc     service.CalendarService
	noteSvc         service.NotificationService
	boards          BoardFactory
	clock           service.Clock
}

func NewReservationHandler(
	reservationSvc service.ReservationService,
	availabilitySvc service.AvailabilityService,
	calendarSvc service.CalendarService,
	noteSvc service.NotificationService,
	boards BoardFactory,
	clock service.Clock,
) *ReservationHandler {
	return &ReservationHandler{
		reservationSvc:  reservationSvc,
		availabilitySvc: availabilitySvc,
		calendarSvc:     calendarSvc,
		noteSvc:         noteSvc,
		boards:          boards,
		clock:           clock,
	}
}

type idRequest struct {
	ID              int32  `json:"id"`
	ExpectedVersion int64  `json:"expectedVersion"`
	Actor           string `json:"actor"`
	AdminNotes      string `json:"adminNotes"`
}

type reservationResponse struct {
	Reservation *domain.Reservation       `json:"reservation"`
	Warning     *domain.OverbookedWarning `json:"warning,omitempty"`
}

// parseDay reads an optional YYYY-MM-DD; empty means today.
func (h *ReservationHandler) parseDay(field, value string) (time.Time, error) {
	if value == "" {
		return h.clock.Today(), nil
	}
	day, err := utils.ParseDate(value, h.clock.Location)
	if err != nil {
		return time.Time{}, status.Errorf(codes.InvalidArgument, "invalid %s: %v", field, err)
	}
	return day, nil
}

func (h *ReservationHandler) CreateReservation(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req domain.ReservationRequest
	if err := decode(in, &req); err != nil {
		return nil, err
	}
	rv, warning, err := h.reservationSvc.Create(ctx, req)
	if err != nil {
		return nil, toStatus(err)
	}
	return encode(reservationResponse{Reservation: rv, Warning: warning})
}

func (h *ReservationHandler) GetReservation(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req idRequest
	if err := decode(in, &req); err != nil {
		return nil, err
	}
	rv, err := h.reservationSvc.Get(ctx, req.ID)
	if err != nil {
		return nil, toStatus(err)
	}
	return encode(reservationResponse{Reservation: rv})
}

func (h *ReservationHandler) ListReservations(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req struct {
		ResourceID int32                    `json:"resourceId"`
		Status     domain.ReservationStatus `json:"status"`
	}
	if err := decode(in, &req); err != nil {
		return nil, err
	}
	list, err := h.reservationSvc.List(ctx, domain.ReservationFilter{ResourceID: req.ResourceID, Status: req.Status})
	if err != nil {
		return nil, toStatus(err)
	}
	if list == nil {
		list = []domain.Reservation{}
	}
	return encode(map[string]any{"reservations": list})
}

func (h *ReservationHandler) AdvanceReservation(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req idRequest
	if err := decode(in, &req); err != nil {
		return nil, err
	}
	rv, err := h.reservationSvc.Advance(ctx, req.ID, req.ExpectedVersion, req.Actor)
	if err != nil {
		return nil, toStatus(err)
	}
	return encode(reservationResponse{Reservation: rv})
}

func (h *ReservationHandler) SetReservationStatus(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req domain.StatusChangeRequest
	if err := decode(in, &req); err != nil {
		return nil, err
	}
	rv, err := h.reservationSvc.SetStatus(ctx, req)
	if err != nil {
		return nil, toStatus(err)
	}
	return encode(reservationResponse{Reservation: rv})
}

func (h *ReservationHandler) UpdateAdminNotes(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req idRequest
	if err := decode(in, &req); err != nil {
		return nil, err
	}
	rv, err := h.reservationSvc.UpdateAdminNotes(ctx, req.ID, req.ExpectedVersion, req.AdminNotes)
	if err != nil {
		return nil, toStatus(err)
	}
	return encode(reservationResponse{Reservation: rv})
}

func (h *ReservationHandler) DeleteReservation(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req idRequest
	if err := decode(in, &req); err != nil {
		return nil, err
	}
	if err := h.reservationSvc.Delete(ctx, req.ID, req.ExpectedVersion, req.Actor); err != nil {
		return nil, toStatus(err)
	}
	return encode(map[string]any{"success": true})
}

func (h *ReservationHandler) GetAvailability(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req struct {
		Date          string `json:"date"`
		OfferableOnly bool   `json:"offerableOnly"`
	}
	if err := decode(in, &req); err != nil {
		return nil, err
	}
	asOf, err := h.parseDay("date", req.Date)
	if err != nil {
		return nil, err
	}
	board, err := h.availabilitySvc.Board(ctx, asOf, req.OfferableOnly)
	if err != nil {
		return nil, toStatus(err)
	}
	return encode(map[string]any{"date": utils.FormatDate(asOf), "resources": board})
}

func (h *ReservationHandler) EventsForDay(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req struct {
		Day string `json:"day"`
	}
	if err := decode(in, &req); err != nil {
		return nil, err
	}
	day, err := h.parseDay("day", req.Day)
	if err != nil {
		return nil, err
	}
	events, err := h.calendarSvc.EventsForDay(ctx, day)
	if err != nil {
		return nil, toStatus(err)
	}
	return encode(domain.DaySchedule{Day: utils.FormatDate(day), Events: events})
}

func (h *ReservationHandler) GetNotifications(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req struct {
		Page     int32 `json:"page"`
		PageSize int32 `json:"pageSize"`
	}
	if err := decode(in, &req); err != nil {
		return nil, err
	}
	notes, total, err := h.noteSvc.GetNotifications(ctx, req.Page, req.PageSize)
	if err != nil {
		return nil, toStatus(err)
	}
	if notes == nil {
		notes = []domain.Notification{}
	}
	return encode(map[string]any{"notifications": notes, "totalCount": total})
}

func (h *ReservationHandler) MarkNotificationRead(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req idRequest
	if err := decode(in, &req); err != nil {
		return nil, err
	}
	if err := h.noteSvc.MarkAsRead(ctx, req.ID); err != nil {
		return nil, toStatus(err)
	}
	return encode(map[string]any{"success": true})
}

// WatchAvailability streams the availability board, sending a fresh board
// whenever resources or reservations change.
func (h *ReservationHandler) WatchAvailability(_ *structpb.Struct, stream grpc.ServerStreamingServer[structpb.Struct]) error {
	ctx := stream.Context()
	board := h.boards(ctx)
	defer board.Close()

	for {
		select {
		case <-ctx.Done():
			return nil
		case resources, ok := <-board.Updates():
			if !ok {
				return nil
			}
			msg, err := encode(map[string]any{"resources": resources})
			if err != nil {
				return err
			}
			if err := stream.Send(msg); err != nil {
				logger.DebugContext(ctx, "Availability watcher went away", "error", err)
				return err
			}
		}
	}
}
