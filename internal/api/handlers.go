package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"parkgate/internal/credential"
	"parkgate/internal/export"
	"parkgate/internal/models"
	"parkgate/internal/service"
	"parkgate/internal/timeutil"
)

// handleError maps service sentinels onto HTTP statuses. Unexpected errors are
// logged and hidden behind a generic 500.
func (s *HTTPServer) handleError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidInterval),
		errors.Is(err, service.ErrInvalidDuration),
		errors.Is(err, service.ErrInvalidStatus),
		errors.Is(err, service.ErrInvalidRate),
		errors.Is(err, service.ErrLocationEmpty),
		errors.Is(err, credential.ErrMalformed),
		errors.Is(err, timeutil.ErrInvalidTimestamp):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrSlotNotFound),
		errors.Is(err, service.ErrBookingNotFound),
		errors.Is(err, service.ErrPaymentNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrSlotInactive),
		errors.Is(err, service.ErrSlotUnavailable),
		errors.Is(err, service.ErrIllegalTransition),
		errors.Is(err, service.ErrBookingNotPending),
		errors.Is(err, service.ErrReconcileInProgress),
		errors.Is(err, service.ErrBookingNotCancelable),
		errors.Is(err, service.ErrNoCredential):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, service.ErrVerificationFailed):
		writeError(w, http.StatusBadGateway, err.Error())
	case errors.Is(err, service.ErrPaymentServiceUnavailable):
		writeError(w, http.StatusServiceUnavailable, err.Error())
	default:
		s.logger.Error().Err(err).Str("path", r.URL.Path).Msg("unhandled error")
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

func decodeBody(r *http.Request, dst interface{}) error {
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

func (s *HTTPServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"service": s.cfg.App.Name,
		"time":    time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *HTTPServer) handleAvailability(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	start, err := timeutil.ParseTimestamp(r.URL.Query().Get("start_time"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid start_time")
		return
	}
	end, err := timeutil.ParseTimestamp(r.URL.Query().Get("end_time"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid end_time")
		return
	}

	slots, err := s.bookings.GetAvailability(r.Context(), start, end)
	if err != nil {
		s.handleError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"available_slots": slots,
		"count":           len(slots),
	})
}

type createBookingRequest struct {
	UserID    string `json:"user_id"`
	SlotID    string `json:"slot_id"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
}

func (s *HTTPServer) handleBookings(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		s.createBooking(w, r)
	case http.MethodGet:
		s.listUserBookings(w, r)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *HTTPServer) createBooking(w http.ResponseWriter, r *http.Request) {
	var req createBookingRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.UserID == "" || req.SlotID == "" {
		writeError(w, http.StatusBadRequest, "user_id and slot_id are required")
		return
	}

	start, err := timeutil.ParseTimestamp(req.StartTime)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid start_time")
		return
	}
	end, err := timeutil.ParseTimestamp(req.EndTime)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid end_time")
		return
	}

	booking, err := s.bookings.CreateBooking(r.Context(), req.UserID, req.SlotID, start, end)
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, booking)
}

func (s *HTTPServer) listUserBookings(w http.ResponseWriter, r *http.Request) {
	userID := strings.TrimSpace(r.URL.Query().Get("user_id"))
	if userID == "" {
		writeError(w, http.StatusBadRequest, "user_id is required")
		return
	}

	bookings, err := s.bookings.GetUserBookings(r.Context(), userID)
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"bookings": bookings,
		"count":    len(bookings),
	})
}

// handleBookingByID serves /api/v1/bookings/{id} and
// /api/v1/bookings/{id}/credential.
func (s *HTTPServer) handleBookingByID(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/v1/bookings/")
	parts := strings.Split(strings.Trim(rest, "/"), "/")
	if len(parts) == 0 || parts[0] == "" {
		writeError(w, http.StatusBadRequest, "booking id is required")
		return
	}
	bookingID := parts[0]

	if len(parts) == 2 && parts[1] == "credential" {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		booking, err := s.payments.RegenerateArtifact(r.Context(), bookingID)
		if err != nil {
			s.handleError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{
			"booking_id":       booking.ID,
			"credential_image": booking.CredentialImage,
		})
		return
	}
	if len(parts) != 1 {
		writeError(w, http.StatusNotFound, "not found")
		return
	}

	switch r.Method {
	case http.MethodGet:
		booking, err := s.bookings.GetBooking(r.Context(), bookingID)
		if err != nil {
			s.handleError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, booking)
	case http.MethodDelete:
		booking, err := s.bookings.CancelBooking(r.Context(), bookingID)
		if err != nil {
			s.handleError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, booking)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

type gateScanRequest struct {
	QRData string `json:"qr_data"`
}

// gateDenialReason maps a denial sentinel to a stable machine-readable code.
// Unknown errors return empty so callers can fall through to handleError.
func gateDenialReason(err error) string {
	switch {
	case errors.Is(err, credential.ErrMalformed):
		return "invalid_credential"
	case errors.Is(err, service.ErrBookingNotFound):
		return "booking_not_found"
	case errors.Is(err, service.ErrCredentialMismatch):
		return "credential_mismatch"
	case errors.Is(err, service.ErrTooEarly):
		return "too_early"
	case errors.Is(err, service.ErrEntryWindowExpired):
		return "entry_window_expired"
	case errors.Is(err, service.ErrAlreadyCompleted):
		return "already_completed"
	case errors.Is(err, service.ErrBookingCancelled):
		return "booking_cancelled"
	case errors.Is(err, service.ErrPaymentStillPending):
		return "payment_pending"
	case errors.Is(err, service.ErrInvalidBookingState):
		return "invalid_state"
	}
	return ""
}

// handleGateScan always answers a well-formed request with a GateResult body;
// barrier controllers key off status and open_barrier, not HTTP codes.
func (s *HTTPServer) handleGateScan(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req gateScanRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(req.QRData) == "" {
		writeError(w, http.StatusBadRequest, "qr_data is required")
		return
	}

	result, err := s.gate.Validate(r.Context(), req.QRData)
	if err != nil {
		reason := gateDenialReason(err)
		if reason == "" {
			s.handleError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, &models.GateResult{
			Status:      models.GateDenied,
			Message:     err.Error(),
			OpenBarrier: false,
			Reason:      reason,
		})
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *HTTPServer) handleGateDetails(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	payload := strings.TrimSpace(r.URL.Query().Get("qr_data"))
	if payload == "" {
		writeError(w, http.StatusBadRequest, "qr_data is required")
		return
	}

	details, err := s.gate.Details(r.Context(), payload)
	if err != nil {
		if errors.Is(err, service.ErrCredentialMismatch) {
			writeError(w, http.StatusForbidden, err.Error())
			return
		}
		s.handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, details)
}

type initiatePaymentRequest struct {
	BookingID string `json:"booking_id"`
	Email     string `json:"email"`
}

func (s *HTTPServer) handlePaymentInitiate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req initiatePaymentRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.BookingID == "" || req.Email == "" {
		writeError(w, http.StatusBadRequest, "booking_id and email are required")
		return
	}

	result, err := s.payments.Initiate(r.Context(), req.BookingID, req.Email)
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *HTTPServer) handlePaymentVerify(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	reference := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/v1/payments/verify/"), "/")
	if reference == "" {
		writeError(w, http.StatusBadRequest, "payment reference is required")
		return
	}

	result, err := s.payments.Reconcile(r.Context(), reference)
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *HTTPServer) handlePaymentStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	reference := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/v1/payments/"), "/")
	if reference == "" || strings.Contains(reference, "/") {
		writeError(w, http.StatusNotFound, "not found")
		return
	}

	autoVerify := r.URL.Query().Get("verify") == "true"
	payment, err := s.payments.Status(r.Context(), reference, autoVerify)
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, payment)
}

type createSlotRequest struct {
	Location    string  `json:"location"`
	Description string  `json:"description"`
	RatePerHour float64 `json:"rate_per_hour"`
}

func (s *HTTPServer) handleSlots(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		slots, err := s.slots.ListSlots(r.Context())
		if err != nil {
			s.handleError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"slots": slots,
			"count": len(slots),
		})
	case http.MethodPost:
		var req createSlotRequest
		if err := decodeBody(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		slot, err := s.slots.CreateSlot(r.Context(), req.Location, req.Description, req.RatePerHour)
		if err != nil {
			s.handleError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, slot)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

type slotStatusRequest struct {
	IsActive bool `json:"is_active"`
}

type slotOccupancyRequest struct {
	Occupancy string `json:"occupancy"`
}

// handleSlotByID serves /api/v1/slots/{id}, /api/v1/slots/{id}/status and
// /api/v1/slots/{id}/occupancy.
func (s *HTTPServer) handleSlotByID(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/v1/slots/")
	parts := strings.Split(strings.Trim(rest, "/"), "/")
	if len(parts) == 0 || parts[0] == "" {
		writeError(w, http.StatusBadRequest, "slot id is required")
		return
	}
	slotID := parts[0]

	if len(parts) == 1 {
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		slot, err := s.slots.GetSlot(r.Context(), slotID)
		if err != nil {
			s.handleError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, slot)
		return
	}

	if len(parts) != 2 || r.Method != http.MethodPatch {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	switch parts[1] {
	case "status":
		var req slotStatusRequest
		if err := decodeBody(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		if err := s.slots.SetActive(r.Context(), slotID, req.IsActive); err != nil {
			s.handleError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"slot_id": slotID, "is_active": req.IsActive})
	case "occupancy":
		var req slotOccupancyRequest
		if err := decodeBody(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		if err := s.slots.SetOccupancy(r.Context(), slotID, models.Occupancy(req.Occupancy)); err != nil {
			s.handleError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"slot_id": slotID, "occupancy": req.Occupancy})
	default:
		writeError(w, http.StatusNotFound, "not found")
	}
}

func (s *HTTPServer) handleBookingsReport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	bookings, err := s.bookings.ListAllBookings(r.Context())
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	slots, err := s.slots.ListSlots(r.Context())
	if err != nil {
		s.handleError(w, r, err)
		return
	}

	file, err := export.BookingsReport(bookings, slots)
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	defer file.Close()

	filename := fmt.Sprintf("bookings_%s.xlsx", time.Now().UTC().Format("2006-01-02"))
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	if err := file.Write(w); err != nil {
		s.logger.Error().Err(err).Msg("failed to stream report")
	}
}
