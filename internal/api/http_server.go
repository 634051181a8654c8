// Package api exposes the parking engine over HTTP.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"parkgate/internal/config"
	"parkgate/internal/metrics"
	"parkgate/internal/service"

	"github.com/rs/zerolog"
)

// HTTPServer wires the service layer to plain net/http handlers.
type HTTPServer struct {
	cfg      *config.Config
	slots    *service.SlotService
	bookings *service.BookingService
	gate     *service.GateService
	payments *service.PaymentService
	auth     *HTTPAuth
	logger   zerolog.Logger
	server   *http.Server
}

func NewHTTPServer(cfg *config.Config, slots *service.SlotService, bookings *service.BookingService,
	gate *service.GateService, payments *service.PaymentService, logger *zerolog.Logger) *HTTPServer {
	return &HTTPServer{
		cfg:      cfg,
		slots:    slots,
		bookings: bookings,
		gate:     gate,
		payments: payments,
		auth:     NewHTTPAuth(cfg.Server),
		logger:   logger.With().Str("component", "http").Logger(),
	}
}

func (s *HTTPServer) routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/api/v1/availability", s.handleAvailability)
	mux.HandleFunc("/api/v1/bookings", s.handleBookings)
	mux.HandleFunc("/api/v1/bookings/", s.handleBookingByID)
	mux.HandleFunc("/api/v1/gate/scan", s.handleGateScan)
	mux.HandleFunc("/api/v1/gate/details", s.handleGateDetails)
	mux.HandleFunc("/api/v1/payments/initiate", s.handlePaymentInitiate)
	mux.HandleFunc("/api/v1/payments/verify/", s.handlePaymentVerify)
	mux.HandleFunc("/api/v1/payments/", s.handlePaymentStatus)
	mux.HandleFunc("/api/v1/slots", s.handleSlots)
	mux.HandleFunc("/api/v1/slots/", s.handleSlotByID)
	mux.HandleFunc("/api/v1/reports/bookings", s.handleBookingsReport)

	return s.logMiddleware(s.auth.Wrap(mux))
}

// Start runs the HTTP server until ctx is cancelled, then shuts it down with a
// short drain window.
func (s *HTTPServer) Start(ctx context.Context) error {
	s.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", s.cfg.Server.Port),
		Handler:           s.routes(),
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      15 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Int("port", s.cfg.Server.Port).Msg("http server listening")
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return s.server.Shutdown(shutdownCtx)
}

// Handler exposes the routed handler for tests.
func (s *HTTPServer) Handler() http.Handler {
	return s.routes()
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *HTTPServer) logMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		metrics.IncHTTP(r.URL.Path)
		s.logger.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", rec.status).
			Dur("duration", time.Since(start)).
			Msg("request")
	})
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload != nil {
		_ = json.NewEncoder(w).Encode(payload)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
