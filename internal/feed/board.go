package feed

import (
	"context"
	"time"

	"camrent-backend/internal/availability"
	"camrent-backend/internal/domain"
	"camrent-backend/internal/repository"
)

// Board joins the resource and reservation streams into live availability.
// It holds one subscription per stream and recomputes the join whenever
// either side changes.
type Board struct {
	updates chan []domain.ResourceAvailability
	cancel  context.CancelFunc
	done    chan struct{}
}

func NewBoard(ctx context.Context, hub *Hub, src repository.Snapshotter, calc *availability.Calculator, now func() time.Time) *Board {
	ctx, cancel := context.WithCancel(ctx)
	b := &Board{
		updates: make(chan []domain.ResourceAvailability, 1),
		cancel:  cancel,
		done:    make(chan struct{}),
	}

	resources := Watch(ctx, hub, repository.TopicResources, src.ResourceSnapshot)
	reservations := Watch(ctx, hub, repository.TopicReservations, src.ReservationSnapshot)
	go b.run(resources, reservations, calc, now)
	return b
}

func (b *Board) run(resCh <-chan []domain.Resource, rvCh <-chan []domain.Reservation, calc *availability.Calculator, now func() time.Time) {
	defer close(b.done)
	defer close(b.updates)

	var resources []domain.Resource
	var reservations []domain.Reservation
	haveRes, haveRv := false, false

	for resCh != nil || rvCh != nil {
		select {
		case snap, ok := <-resCh:
			if !ok {
				resCh = nil
				continue
			}
			resources, haveRes = snap, true
		case snap, ok := <-rvCh:
			if !ok {
				rvCh = nil
				continue
			}
			reservations, haveRv = snap, true
		}
		if !haveRes || !haveRv {
			continue
		}

		joined := calc.Board(resources, reservations, now(), false)
		select {
		case <-b.updates:
		default:
		}
		b.updates <- joined
	}
}

// Updates delivers the latest join; intermediate results may be skipped.
func (b *Board) Updates() <-chan []domain.ResourceAvailability { return b.updates }

// Close releases both subscriptions and waits for the join loop to exit.
func (b *Board) Close() {
	b.cancel()
	<-b.done
}
