package service

import (
	"context"
	"strings"
	"time"

	"parkgate/internal/domain"
	"parkgate/internal/events"
	"parkgate/internal/models"

	"github.com/google/uuid"
	gocache "github.com/patrickmn/go-cache"
	"github.com/rs/zerolog"
)

const slotListCacheKey = "slots:all"

// SlotService is the registry of physical parking bays. Reads go through a
// short-lived in-memory cache; every write purges it.
type SlotService struct {
	store    domain.Store
	eventBus domain.EventPublisher
	cache    *gocache.Cache
	logger   *zerolog.Logger
}

func NewSlotService(store domain.Store, eventBus domain.EventPublisher, cacheTTL time.Duration, logger *zerolog.Logger) *SlotService {
	if cacheTTL <= 0 {
		cacheTTL = models.SlotCacheTTL
	}
	return &SlotService{
		store:    store,
		eventBus: eventBus,
		cache:    gocache.New(cacheTTL, 2*cacheTTL),
		logger:   logger,
	}
}

func (s *SlotService) ListSlots(ctx context.Context) ([]*models.Slot, error) {
	if cached, found := s.cache.Get(slotListCacheKey); found {
		return cached.([]*models.Slot), nil
	}

	slots, err := s.store.ListSlots(ctx)
	if err != nil {
		return nil, err
	}

	s.cache.SetDefault(slotListCacheKey, slots)
	return slots, nil
}

func (s *SlotService) GetSlot(ctx context.Context, id string) (*models.Slot, error) {
	slot, err := s.store.GetSlot(ctx, id)
	if err != nil {
		return nil, mapStoreErr(err, ErrSlotNotFound)
	}
	return slot, nil
}

// CreateSlot registers a new bay. Slots get uuid identifiers; bookings derive
// theirs from content.
func (s *SlotService) CreateSlot(ctx context.Context, location, description string, ratePerHour float64) (*models.Slot, error) {
	location = strings.TrimSpace(location)
	if location == "" {
		return nil, ErrLocationEmpty
	}
	if ratePerHour <= 0 {
		return nil, ErrInvalidRate
	}

	now := time.Now().UTC()
	slot := &models.Slot{
		ID:          uuid.NewString(),
		Location:    location,
		Description: strings.TrimSpace(description),
		RatePerHour: ratePerHour,
		IsActive:    true,
		Occupancy:   models.OccupancyEmpty,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.store.CreateSlot(ctx, slot); err != nil {
		return nil, err
	}
	s.cache.Delete(slotListCacheKey)

	s.logger.Info().Str("slot_id", slot.ID).Str("location", slot.Location).Msg("parking slot created")
	return slot, nil
}

// SetActive toggles a slot in or out of service. Slots are never deleted.
func (s *SlotService) SetActive(ctx context.Context, id string, active bool) error {
	slot, err := s.GetSlot(ctx, id)
	if err != nil {
		return err
	}

	slot.IsActive = active
	slot.UpdatedAt = time.Now().UTC()
	if err := s.store.UpdateSlot(ctx, slot); err != nil {
		return mapStoreErr(err, ErrSlotNotFound)
	}
	s.cache.Delete(slotListCacheKey)

	s.logger.Info().Str("slot_id", id).Bool("is_active", active).Msg("slot active flag updated")
	return nil
}

// SetOccupancy records a sensor reading for the physical bay.
func (s *SlotService) SetOccupancy(ctx context.Context, id string, occupancy models.Occupancy) error {
	if !occupancy.Valid() {
		return ErrInvalidStatus
	}

	slot, err := s.GetSlot(ctx, id)
	if err != nil {
		return err
	}

	slot.Occupancy = occupancy
	slot.UpdatedAt = time.Now().UTC()
	if err := s.store.UpdateSlot(ctx, slot); err != nil {
		return mapStoreErr(err, ErrSlotNotFound)
	}
	s.cache.Delete(slotListCacheKey)

	_ = s.eventBus.PublishJSON(events.EventSlotOccupancy, map[string]string{
		"slot_id":   id,
		"occupancy": string(occupancy),
	})

	s.logger.Info().Str("slot_id", id).Str("occupancy", string(occupancy)).Msg("slot occupancy updated")
	return nil
}
