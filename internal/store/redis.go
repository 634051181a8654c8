// Package store persists slots, bookings and payments as JSON documents in a
// keyed namespace, with one secondary index (bookings by user). The Redis
// implementation is the production backend; the memory implementation backs
// tests and single-process development.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"parkgate/internal/models"

	"github.com/redis/go-redis/v9"
)

const (
	slotKeyPrefix    = "parking:slot:"
	slotIndexKey     = "parking:slots"
	bookingKeyPrefix = "parking:booking:"
	bookingIndexKey  = "parking:bookings"
	userIndexPrefix  = "parking:bookings:user:"
	paymentKeyPrefix = "parking:payment:"
	slotLockPrefix   = "parking:lock:slot:"

	slotLockTTL      = 5 * time.Second
	slotLockAttempts = 10
	slotLockBackoff  = 50 * time.Millisecond
)

type RedisStore struct {
	client *redis.Client
}

// NewRedisClient создает новый клиент Redis на основе конфигурации.
func NewRedisClient(addr, password string, db, poolSize int) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
		PoolSize: poolSize,
	})
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

// Ping проверяет соединение с Redis.
func Ping(ctx context.Context, client *redis.Client) error {
	if _, err := client.Ping(ctx).Result(); err != nil {
		return fmt.Errorf("failed to ping Redis: %w", err)
	}
	return nil
}

func (r *RedisStore) getJSON(ctx context.Context, key string, out interface{}) error {
	val, err := r.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to get %s: %w", key, err)
	}
	if err := json.Unmarshal([]byte(val), out); err != nil {
		return fmt.Errorf("failed to unmarshal %s: %w", key, err)
	}
	return nil
}

func (r *RedisStore) setJSON(ctx context.Context, key string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", key, err)
	}
	if err := r.client.Set(ctx, key, data, 0).Err(); err != nil {
		return fmt.Errorf("failed to set %s: %w", key, err)
	}
	return nil
}

func (r *RedisStore) GetSlot(ctx context.Context, id string) (*models.Slot, error) {
	var slot models.Slot
	if err := r.getJSON(ctx, slotKeyPrefix+id, &slot); err != nil {
		return nil, err
	}
	return &slot, nil
}

func (r *RedisStore) ListSlots(ctx context.Context) ([]*models.Slot, error) {
	ids, err := r.client.SMembers(ctx, slotIndexKey).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list slot ids: %w", err)
	}

	slots := make([]*models.Slot, 0, len(ids))
	for _, id := range ids {
		slot, err := r.GetSlot(ctx, id)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		slots = append(slots, slot)
	}
	return slots, nil
}

func (r *RedisStore) CreateSlot(ctx context.Context, slot *models.Slot) error {
	ok, err := r.client.SetNX(ctx, slotKeyPrefix+slot.ID, mustJSON(slot), 0).Result()
	if err != nil {
		return fmt.Errorf("failed to create slot: %w", err)
	}
	if !ok {
		return ErrAlreadyExists
	}
	if err := r.client.SAdd(ctx, slotIndexKey, slot.ID).Err(); err != nil {
		return fmt.Errorf("failed to index slot: %w", err)
	}
	return nil
}

func (r *RedisStore) UpdateSlot(ctx context.Context, slot *models.Slot) error {
	exists, err := r.client.Exists(ctx, slotKeyPrefix+slot.ID).Result()
	if err != nil {
		return fmt.Errorf("failed to check slot: %w", err)
	}
	if exists == 0 {
		return ErrNotFound
	}
	return r.setJSON(ctx, slotKeyPrefix+slot.ID, slot)
}

func (r *RedisStore) GetBooking(ctx context.Context, id string) (*models.Booking, error) {
	var booking models.Booking
	if err := r.getJSON(ctx, bookingKeyPrefix+id, &booking); err != nil {
		return nil, err
	}
	return &booking, nil
}

func (r *RedisStore) ListBookings(ctx context.Context) ([]*models.Booking, error) {
	ids, err := r.client.SMembers(ctx, bookingIndexKey).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list booking ids: %w", err)
	}
	return r.bookingsByIDs(ctx, ids)
}

func (r *RedisStore) ListBookingsByUser(ctx context.Context, userID string) ([]*models.Booking, error) {
	ids, err := r.client.SMembers(ctx, userIndexPrefix+userID).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list user booking ids: %w", err)
	}
	return r.bookingsByIDs(ctx, ids)
}

func (r *RedisStore) bookingsByIDs(ctx context.Context, ids []string) ([]*models.Booking, error) {
	bookings := make([]*models.Booking, 0, len(ids))
	for _, id := range ids {
		booking, err := r.GetBooking(ctx, id)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		bookings = append(bookings, booking)
	}
	return bookings, nil
}

func (r *RedisStore) CreateBooking(ctx context.Context, booking *models.Booking) error {
	ok, err := r.client.SetNX(ctx, bookingKeyPrefix+booking.ID, mustJSON(booking), 0).Result()
	if err != nil {
		return fmt.Errorf("failed to create booking: %w", err)
	}
	if !ok {
		return ErrAlreadyExists
	}

	pipe := r.client.Pipeline()
	pipe.SAdd(ctx, bookingIndexKey, booking.ID)
	pipe.SAdd(ctx, userIndexPrefix+booking.UserID, booking.ID)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to index booking: %w", err)
	}
	return nil
}

func (r *RedisStore) UpdateBooking(ctx context.Context, booking *models.Booking) error {
	exists, err := r.client.Exists(ctx, bookingKeyPrefix+booking.ID).Result()
	if err != nil {
		return fmt.Errorf("failed to check booking: %w", err)
	}
	if exists == 0 {
		return ErrNotFound
	}
	return r.setJSON(ctx, bookingKeyPrefix+booking.ID, booking)
}

// WithSlotLock serializes booking creation per slot via SETNX with a short
// TTL, so a crashed holder cannot wedge the slot.
func (r *RedisStore) WithSlotLock(ctx context.Context, slotID string, fn func(ctx context.Context) error) error {
	key := slotLockPrefix + slotID

	acquired := false
	for attempt := 0; attempt < slotLockAttempts; attempt++ {
		ok, err := r.client.SetNX(ctx, key, "1", slotLockTTL).Result()
		if err != nil {
			return fmt.Errorf("failed to acquire slot lock: %w", err)
		}
		if ok {
			acquired = true
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(slotLockBackoff):
		}
	}
	if !acquired {
		return ErrSlotLocked
	}
	defer r.client.Del(ctx, key)

	return fn(ctx)
}

func (r *RedisStore) GetPayment(ctx context.Context, reference string) (*models.Payment, error) {
	var payment models.Payment
	if err := r.getJSON(ctx, paymentKeyPrefix+reference, &payment); err != nil {
		return nil, err
	}
	return &payment, nil
}

func (r *RedisStore) CreatePayment(ctx context.Context, payment *models.Payment) error {
	ok, err := r.client.SetNX(ctx, paymentKeyPrefix+payment.Reference, mustJSON(payment), 0).Result()
	if err != nil {
		return fmt.Errorf("failed to create payment: %w", err)
	}
	if !ok {
		return ErrAlreadyExists
	}
	return nil
}

func (r *RedisStore) UpdatePayment(ctx context.Context, payment *models.Payment) error {
	exists, err := r.client.Exists(ctx, paymentKeyPrefix+payment.Reference).Result()
	if err != nil {
		return fmt.Errorf("failed to check payment: %w", err)
	}
	if exists == 0 {
		return ErrNotFound
	}
	return r.setJSON(ctx, paymentKeyPrefix+payment.Reference, payment)
}

// CompareAndSetPaymentStatus is a WATCH-guarded read-modify-write: a losing
// racer observes the transaction failure and reports swapped=false instead of
// clobbering the winner.
func (r *RedisStore) CompareAndSetPaymentStatus(ctx context.Context, reference string, from, to models.PaymentStatus) (bool, error) {
	key := paymentKeyPrefix + reference
	swapped := false

	txn := func(tx *redis.Tx) error {
		val, err := tx.Get(ctx, key).Result()
		if err == redis.Nil {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("failed to get payment: %w", err)
		}

		var payment models.Payment
		if err := json.Unmarshal([]byte(val), &payment); err != nil {
			return fmt.Errorf("failed to unmarshal payment: %w", err)
		}
		if payment.Status != from {
			return nil
		}

		payment.Status = to
		data, err := json.Marshal(&payment)
		if err != nil {
			return fmt.Errorf("failed to marshal payment: %w", err)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, 0)
			return nil
		})
		if err == nil {
			swapped = true
		}
		return err
	}

	err := r.client.Watch(ctx, txn, key)
	if err == redis.TxFailedErr {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return swapped, nil
}

// Close закрывает соединение с Redis.
func Close(client *redis.Client) error {
	if client != nil {
		return client.Close()
	}
	return nil
}

func mustJSON(v interface{}) string {
	data, err := json.Marshal(v)
	if err != nil {
		// All stored types marshal cleanly; reaching this is a programming error.
		panic(err)
	}
	return string(data)
}
