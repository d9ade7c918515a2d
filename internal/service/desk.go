package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"qr-dine/internal/common/logger"
	"qr-dine/internal/domain"
	"qr-dine/internal/events"
	"qr-dine/internal/repository"
)

type DeskServiceInterface interface {
	ListDesks(ctx context.Context, shopID string) ([]domain.DeskResponse, error)
	// Release force-frees a desk: lingering non-terminal orders are
	// cancelled, carts bound to the desk are cleared, occupancy is
	// reset to available.
	Release(ctx context.Context, deskID string) (domain.DeskResponse, error)
}

type DeskService struct {
	repo      repository.DeskRepositoryInterface
	publisher events.PublisherInterface
	lg        *logger.Logger
}

func NewDeskService(repo repository.DeskRepositoryInterface, publisher events.PublisherInterface, lg *logger.Logger) DeskServiceInterface {
	return &DeskService{repo: repo, publisher: publisher, lg: lg}
}

func (s *DeskService) ListDesks(ctx context.Context, shopID string) ([]domain.DeskResponse, error) {
	if strings.TrimSpace(shopID) == "" {
		return nil, fmt.Errorf("shop id is required: %w", domain.ErrValidation)
	}
	desks, err := s.repo.List(ctx, shopID)
	if err != nil {
		return nil, err
	}
	out := make([]domain.DeskResponse, 0, len(desks))
	for _, d := range desks {
		out = append(out, domain.DeskResponse{
			ID: d.ID, ShopID: d.ShopID, Number: d.Number, Occupancy: string(d.Occupancy),
		})
	}
	return out, nil
}

func (s *DeskService) Release(ctx context.Context, deskID string) (domain.DeskResponse, error) {
	desk, err := s.repo.Get(ctx, deskID)
	if err != nil {
		return domain.DeskResponse{}, err
	}
	cancelled, err := s.repo.Release(ctx, deskID)
	if err != nil {
		return domain.DeskResponse{}, err
	}
	s.lg.Info("desk_released", map[string]any{
		"desk_id": deskID, "shop_id": desk.ShopID, "cancelled_orders": cancelled,
	})
	if err := s.publisher.DeskReleased(ctx, domain.DeskReleasedEvent{
		DeskID:          deskID,
		ShopID:          desk.ShopID,
		CancelledOrders: cancelled,
		ReleasedAt:      time.Now().UTC(),
	}); err != nil {
		s.lg.Error("desk_released_publish_failed", err, map[string]any{"desk_id": deskID})
	}
	return domain.DeskResponse{
		ID: desk.ID, ShopID: desk.ShopID, Number: desk.Number, Occupancy: string(domain.DeskAvailable),
	}, nil
}
