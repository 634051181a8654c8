package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"parkgate/internal/api"
	"parkgate/internal/config"
	"parkgate/internal/credential"
	"parkgate/internal/domain"
	"parkgate/internal/events"
	"parkgate/internal/logging"
	"parkgate/internal/metrics"
	"parkgate/internal/models"
	"parkgate/internal/paystack"
	"parkgate/internal/service"
	"parkgate/internal/store"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	yaml "gopkg.in/yaml.v2"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "configs/config.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, logCloser, err := logging.New(cfg.Logging, cfg.App)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	if logCloser != nil {
		defer logCloser.Close()
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	redisClient := store.NewRedisClient(cfg.Redis.Address, cfg.Redis.Password, cfg.Redis.DB, cfg.Redis.PoolSize)
	defer store.Close(redisClient)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	err = store.Ping(pingCtx, redisClient)
	cancel()
	if err != nil {
		return err
	}
	logger.Info().Str("address", cfg.Redis.Address).Msg("connected to redis")

	st := store.NewRedisStore(redisClient)

	if cfg.SeedSlots != "" {
		if err := seedSlots(ctx, st, cfg.SeedSlots); err != nil {
			return fmt.Errorf("seed slots: %w", err)
		}
	}

	metrics.Register()

	eventBus := events.NewEventBus()
	eventBus.Subscribe(events.EventOvertimeDetected, func(event *events.Event) error {
		logger.Warn().RawJSON("payload", event.Payload).Msg("overtime detected")
		return nil
	})

	gateway := paystack.NewClient(cfg.Paystack.BaseURL, cfg.Paystack.SecretKey, cfg.Paystack.Timeout())
	renderer := credential.NewQRRenderer(0)

	slotSvc := service.NewSlotService(st, eventBus, cfg.Parking.SlotCacheTTL(), logger)
	bookingSvc := service.NewBookingService(st, eventBus, logger)
	gateSvc := service.NewGateService(st, bookingSvc, eventBus,
		cfg.Parking.GracePeriod(), cfg.Parking.LateEntryCutoff(), cfg.Parking.DefaultRatePerHour, logger)
	paymentSvc := service.NewPaymentService(st, bookingSvc, gateway, renderer, eventBus,
		cfg.Paystack.CallbackURL, logger)

	httpServer := api.NewHTTPServer(cfg, slotSvc, bookingSvc, gateSvc, paymentSvc, logger)

	if cfg.Monitoring.PrometheusEnabled {
		go func() {
			addr := fmt.Sprintf(":%d", cfg.Monitoring.PrometheusPort)
			logger.Info().Str("addr", addr).Msg("prometheus metrics listening")
			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.Handler())
			if err := http.ListenAndServe(addr, mux); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error().Err(err).Msg("metrics server stopped")
			}
		}()
	}

	logger.Info().Str("env", cfg.App.Environment).Msg("parkgate starting")
	if err := httpServer.Start(ctx); err != nil {
		return fmt.Errorf("http server: %w", err)
	}

	logger.Info().Msg("shutdown complete")
	return nil
}

type seedFile struct {
	Slots []struct {
		ID          string  `yaml:"id"`
		Location    string  `yaml:"location"`
		Description string  `yaml:"description"`
		RatePerHour float64 `yaml:"rate_per_hour"`
	} `yaml:"slots"`
}

// seedSlots upserts the initial slot registry from a YAML file. Existing slots
// are left untouched so operator edits survive restarts.
func seedSlots(ctx context.Context, st domain.Store, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	var seed seedFile
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}

	now := time.Now().UTC()
	for _, s := range seed.Slots {
		if s.ID == "" || s.Location == "" {
			continue
		}
		rate := s.RatePerHour
		if rate <= 0 {
			rate = models.DefaultRatePerHour
		}

		err := st.CreateSlot(ctx, &models.Slot{
			ID:          s.ID,
			Location:    s.Location,
			Description: s.Description,
			RatePerHour: rate,
			IsActive:    true,
			Occupancy:   models.OccupancyEmpty,
			CreatedAt:   now,
			UpdatedAt:   now,
		})
		if err != nil && !errors.Is(err, store.ErrAlreadyExists) {
			return err
		}
	}
	return nil
}
