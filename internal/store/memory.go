package store

import (
	"context"
	"sync"

	"parkgate/internal/models"
)

// MemoryStore is the in-process backend used by tests and single-node
// development. The single mutex makes every operation trivially atomic.
type MemoryStore struct {
	mu        sync.Mutex
	slots     map[string]*models.Slot
	bookings  map[string]*models.Booking
	payments  map[string]*models.Payment
	slotLocks map[string]*sync.Mutex
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		slots:     make(map[string]*models.Slot),
		bookings:  make(map[string]*models.Booking),
		payments:  make(map[string]*models.Payment),
		slotLocks: make(map[string]*sync.Mutex),
	}
}

func (m *MemoryStore) GetSlot(ctx context.Context, id string) (*models.Slot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	slot, ok := m.slots[id]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *slot
	return &copied, nil
}

func (m *MemoryStore) ListSlots(ctx context.Context) ([]*models.Slot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	slots := make([]*models.Slot, 0, len(m.slots))
	for _, slot := range m.slots {
		copied := *slot
		slots = append(slots, &copied)
	}
	return slots, nil
}

func (m *MemoryStore) CreateSlot(ctx context.Context, slot *models.Slot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.slots[slot.ID]; ok {
		return ErrAlreadyExists
	}
	copied := *slot
	m.slots[slot.ID] = &copied
	return nil
}

func (m *MemoryStore) UpdateSlot(ctx context.Context, slot *models.Slot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.slots[slot.ID]; !ok {
		return ErrNotFound
	}
	copied := *slot
	m.slots[slot.ID] = &copied
	return nil
}

func (m *MemoryStore) GetBooking(ctx context.Context, id string) (*models.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	booking, ok := m.bookings[id]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *booking
	return &copied, nil
}

func (m *MemoryStore) ListBookings(ctx context.Context) ([]*models.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	bookings := make([]*models.Booking, 0, len(m.bookings))
	for _, booking := range m.bookings {
		copied := *booking
		bookings = append(bookings, &copied)
	}
	return bookings, nil
}

func (m *MemoryStore) ListBookingsByUser(ctx context.Context, userID string) ([]*models.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	bookings := make([]*models.Booking, 0)
	for _, booking := range m.bookings {
		if booking.UserID == userID {
			copied := *booking
			bookings = append(bookings, &copied)
		}
	}
	return bookings, nil
}

func (m *MemoryStore) CreateBooking(ctx context.Context, booking *models.Booking) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.bookings[booking.ID]; ok {
		return ErrAlreadyExists
	}
	copied := *booking
	m.bookings[booking.ID] = &copied
	return nil
}

func (m *MemoryStore) UpdateBooking(ctx context.Context, booking *models.Booking) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.bookings[booking.ID]; !ok {
		return ErrNotFound
	}
	copied := *booking
	m.bookings[booking.ID] = &copied
	return nil
}

func (m *MemoryStore) WithSlotLock(ctx context.Context, slotID string, fn func(ctx context.Context) error) error {
	m.mu.Lock()
	lock, ok := m.slotLocks[slotID]
	if !ok {
		lock = &sync.Mutex{}
		m.slotLocks[slotID] = lock
	}
	m.mu.Unlock()

	lock.Lock()
	defer lock.Unlock()
	return fn(ctx)
}

func (m *MemoryStore) GetPayment(ctx context.Context, reference string) (*models.Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	payment, ok := m.payments[reference]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *payment
	return &copied, nil
}

func (m *MemoryStore) CreatePayment(ctx context.Context, payment *models.Payment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.payments[payment.Reference]; ok {
		return ErrAlreadyExists
	}
	copied := *payment
	m.payments[payment.Reference] = &copied
	return nil
}

func (m *MemoryStore) UpdatePayment(ctx context.Context, payment *models.Payment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.payments[payment.Reference]; !ok {
		return ErrNotFound
	}
	copied := *payment
	m.payments[payment.Reference] = &copied
	return nil
}

func (m *MemoryStore) CompareAndSetPaymentStatus(ctx context.Context, reference string, from, to models.PaymentStatus) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	payment, ok := m.payments[reference]
	if !ok {
		return false, ErrNotFound
	}
	if payment.Status != from {
		return false, nil
	}
	payment.Status = to
	return true, nil
}
