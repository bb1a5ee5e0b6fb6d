package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/example/event-attendance/internal/application"
	"github.com/example/event-attendance/internal/broadcast"
	"github.com/example/event-attendance/internal/config"
	httptransport "github.com/example/event-attendance/internal/http"
	"github.com/example/event-attendance/internal/persistence"
	sqlitestore "github.com/example/event-attendance/internal/persistence/sqlite"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	storage, err := sqlitestore.Open(cfg.SQLiteDSN)
	if err != nil {
		logger.Error("failed to open storage", "error", err)
		os.Exit(1)
	}
	defer func() {
		if cerr := storage.Close(); cerr != nil {
			logger.Error("failed to close storage", "error", cerr)
		}
	}()

	if err := storage.Migrate(context.Background()); err != nil {
		logger.Error("failed to apply migrations", "error", err)
		os.Exit(1)
	}

	idGenerator := uuid.NewString
	now := time.Now

	events := newEventRegistryAdapter(storage)
	ledger := newRegistrationLedgerAdapter(storage)

	broadcaster := broadcast.New(cfg.SubscriberBuffer, logger)
	locks := application.NewEventLocks()
	cache := application.NewSummaryCache(cfg.SummaryCacheTTL, now)

	eventService := application.NewEventServiceWithLogger(events, cache, idGenerator, now, logger)
	lifecycleService := application.NewLifecycleServiceWithLogger(events, logger)
	registrationService := application.NewRegistrationServiceWithLogger(events, ledger, broadcaster, locks, cache, idGenerator, now, logger)
	attendanceService := application.NewAttendanceServiceWithLogger(events, ledger, lifecycleService, broadcaster, locks, cache, now, logger)

	eventHandler := httptransport.NewEventHandler(eventService, logger)
	registrationHandler := httptransport.NewRegistrationHandler(registrationService, logger)
	attendanceHandler := httptransport.NewAttendanceHandler(attendanceService, logger)
	streamHandler := httptransport.NewStreamHandler(broadcaster, logger)

	handler := httptransport.NewRouter(httptransport.RouterConfig{
		Events:        eventHandler,
		Registrations: registrationHandler,
		Attendance:    attendanceHandler,
		Streams:       streamHandler,
		Middleware: []func(http.Handler) http.Handler{
			httptransport.RequestLogger(logger),
			httptransport.RateLimit(rate.Limit(cfg.RateRPS), cfg.RateBurst, logger),
		},
	})

	go runLifecycleSweep(ctx, lifecycleService, cfg.RefreshInterval, logger)

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("failed to shutdown server", "error", err)
		}
	}()

	logger.Info("attendance API listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server encountered error", "error", err)
		os.Exit(1)
	}
}

// runLifecycleSweep ticks the lifecycle clock so events complete on schedule
// even when nobody is reading attendance.
func runLifecycleSweep(ctx context.Context, lifecycle *application.LifecycleService, interval time.Duration, logger *slog.Logger) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := lifecycle.RefreshCompletedEvents(ctx, time.Now()); err != nil {
				logger.Error("lifecycle sweep failed", "error", err)
			}
		}
	}
}

type eventRegistryAdapter struct {
	repo persistence.EventRepository
}

func newEventRegistryAdapter(repo persistence.EventRepository) *eventRegistryAdapter {
	return &eventRegistryAdapter{repo: repo}
}

func (a *eventRegistryAdapter) CreateEvent(ctx context.Context, event application.Event) (application.Event, error) {
	if err := a.repo.CreateEvent(ctx, toPersistenceEvent(event)); err != nil {
		return application.Event{}, err
	}
	stored, err := a.repo.GetEvent(ctx, event.ID)
	if err != nil {
		return application.Event{}, err
	}
	return toApplicationEvent(stored), nil
}

func (a *eventRegistryAdapter) GetEvent(ctx context.Context, id string) (application.Event, error) {
	stored, err := a.repo.GetEvent(ctx, id)
	if err != nil {
		return application.Event{}, err
	}
	return toApplicationEvent(stored), nil
}

func (a *eventRegistryAdapter) ListEvents(ctx context.Context) ([]application.Event, error) {
	stored, err := a.repo.ListEvents(ctx)
	if err != nil {
		return nil, err
	}
	events := make([]application.Event, 0, len(stored))
	for _, event := range stored {
		events = append(events, toApplicationEvent(event))
	}
	return events, nil
}

func (a *eventRegistryAdapter) UpdateEventStatus(ctx context.Context, id string, status application.EventStatus, updatedAt time.Time) error {
	return a.repo.UpdateEventStatus(ctx, id, string(status), updatedAt)
}

type registrationLedgerAdapter struct {
	repo persistence.RegistrationRepository
}

func newRegistrationLedgerAdapter(repo persistence.RegistrationRepository) *registrationLedgerAdapter {
	return &registrationLedgerAdapter{repo: repo}
}

func (a *registrationLedgerAdapter) FindByUserAndEvent(ctx context.Context, userID, eventID string) (application.Registration, error) {
	stored, err := a.repo.GetRegistrationByUserAndEvent(ctx, userID, eventID)
	if err != nil {
		return application.Registration{}, err
	}
	return toApplicationRegistration(stored), nil
}

func (a *registrationLedgerAdapter) ListByEvent(ctx context.Context, eventID string) ([]application.Registration, error) {
	stored, err := a.repo.ListRegistrationsByEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}
	return toApplicationRegistrations(stored), nil
}

func (a *registrationLedgerAdapter) ListWaitlisted(ctx context.Context, eventID string) ([]application.Registration, error) {
	stored, err := a.repo.ListWaitlisted(ctx, eventID)
	if err != nil {
		return nil, err
	}
	return toApplicationRegistrations(stored), nil
}

func (a *registrationLedgerAdapter) CountByEventAndStatus(ctx context.Context, eventID string, status application.RegistrationStatus) (int, error) {
	return a.repo.CountByEventAndStatus(ctx, eventID, string(status))
}

func (a *registrationLedgerAdapter) CountCheckedIn(ctx context.Context, eventID string) (int, error) {
	return a.repo.CountCheckedIn(ctx, eventID)
}

func (a *registrationLedgerAdapter) Save(ctx context.Context, registration application.Registration) (application.Registration, error) {
	stored, err := a.repo.SaveRegistration(ctx, toPersistenceRegistration(registration))
	if err != nil {
		return application.Registration{}, err
	}
	return toApplicationRegistration(stored), nil
}

func toPersistenceEvent(event application.Event) persistence.Event {
	return persistence.Event{
		ID:          event.ID,
		Title:       event.Title,
		Start:       event.Start,
		End:         event.End,
		MaxCapacity: event.MaxCapacity,
		Status:      string(event.Status),
		CreatedAt:   event.CreatedAt,
		UpdatedAt:   event.UpdatedAt,
	}
}

func toApplicationEvent(event persistence.Event) application.Event {
	return application.Event{
		ID:          event.ID,
		Title:       event.Title,
		Start:       event.Start,
		End:         event.End,
		MaxCapacity: event.MaxCapacity,
		Status:      application.EventStatus(event.Status),
		CreatedAt:   event.CreatedAt,
		UpdatedAt:   event.UpdatedAt,
	}
}

func toPersistenceRegistration(registration application.Registration) persistence.Registration {
	return persistence.Registration{
		ID:               registration.ID,
		EventID:          registration.EventID,
		UserID:           registration.UserID,
		Status:           string(registration.Status),
		RequestedAt:      registration.RequestedAt,
		ConfirmedAt:      registration.ConfirmedAt,
		CancelledAt:      registration.CancelledAt,
		CheckedInAt:      registration.CheckedInAt,
		WaitlistPosition: registration.WaitlistPosition,
	}
}

func toApplicationRegistration(registration persistence.Registration) application.Registration {
	return application.Registration{
		ID:               registration.ID,
		EventID:          registration.EventID,
		UserID:           registration.UserID,
		Status:           application.RegistrationStatus(registration.Status),
		RequestedAt:      registration.RequestedAt,
		ConfirmedAt:      registration.ConfirmedAt,
		CancelledAt:      registration.CancelledAt,
		CheckedInAt:      registration.CheckedInAt,
		WaitlistPosition: registration.WaitlistPosition,
	}
}

func toApplicationRegistrations(stored []persistence.Registration) []application.Registration {
	if len(stored) == 0 {
		return nil
	}
	registrations := make([]application.Registration, 0, len(stored))
	for _, registration := range stored {
		registrations = append(registrations, toApplicationRegistration(registration))
	}
	return registrations
}
