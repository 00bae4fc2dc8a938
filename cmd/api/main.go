// cmd/api/main.go
package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"biblios/internal/audit"
	"biblios/internal/backup"
	"biblios/internal/catalog"
	"biblios/internal/circulation"
	"biblios/internal/config"
	"biblios/internal/membership"
	"biblios/internal/notifier"
	"biblios/internal/reservation"
	"biblios/internal/scheduler"
	"biblios/internal/settings"
	"biblios/internal/store"
	"biblios/pkg/logger"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.uber.org/zap"
)

func main() {
	cfg := config.Load()
	log := logger.New("biblios", cfg.LogLevel)
	defer log.Sync()

	db, err := store.Open(cfg.DatabaseDSN)
	if err != nil {
		log.Fatal("failed to open database", zap.Error(err))
	}
	if err := store.Migrate(db); err != nil {
		log.Fatal("database migration failed", zap.Error(err))
	}
	log.Info("database ready", zap.String("dsn", cfg.DatabaseDSN))

	ctx := context.Background()
	if cfg.OTLPEndpoint != "" {
		shutdown, err := setupTracing(ctx, cfg.OTLPEndpoint)
		if err != nil {
			log.Fatal("failed to set up tracing", zap.Error(err))
		}
		defer shutdown(ctx)
	}

	cfgSvc := settings.NewService(db)
	recorder := audit.NewRecorder(db, log)

	catalogSvc := catalog.NewService(db, recorder, log)
	membershipSvc := membership.NewService(db, recorder, log)
	circulationSvc := circulation.NewService(db, cfgSvc, recorder, log)
	reservationSvc := reservation.NewService(db, recorder, log)
	engine := notifier.NewEngine(db, cfgSvc, circulationSvc, reservationSvc, log)

	dbFile := ""
	if !strings.HasPrefix(cfg.DatabaseDSN, "postgres://") && !strings.HasPrefix(cfg.DatabaseDSN, "host=") {
		dbFile = cfg.DatabaseDSN
	}
	backupSvc := backup.NewService(dbFile, cfg.BackupDir, log)

	sched := scheduler.New(log)
	sweep := func() {
		if err := engine.Sweep(context.Background()); err != nil {
			log.Error("notification sweep failed", zap.Error(err))
		}
	}
	mustAddJob(log, sched, "notifications_morning", scheduler.SpecMorningNotifications, sweep)
	mustAddJob(log, sched, "notifications_evening", scheduler.SpecEveningNotifications, sweep)
	mustAddJob(log, sched, "auto_backup", scheduler.SpecNightlyBackup, func() {
		if _, err := backupSvc.Auto(); err != nil {
			log.Error("auto backup failed", zap.Error(err))
		}
	})
	sched.Start()
	defer sched.Stop()

	circulationHandler := circulation.NewHandler(circulationSvc)
	reservationHandler := reservation.NewHandler(reservationSvc)
	catalogHandler := catalog.NewHandler(catalogSvc)
	membershipHandler := membership.NewHandler(membershipSvc)

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Recoverer)

	router.Route("/api/v1", func(r chi.Router) {
		r.Post("/loans", circulationHandler.HandleIssue)
		r.Post("/loans/return", circulationHandler.HandleReturn)
		r.Post("/loans/extend", circulationHandler.HandleExtend)

		r.Post("/reservations", reservationHandler.HandleReserve)
		r.Post("/reservations/{id}/cancel", reservationHandler.HandleCancel)
		r.Post("/reservations/{id}/fulfill", reservationHandler.HandleFulfill)

		r.Post("/books", catalogHandler.HandleAddBook)
		r.Delete("/books/{id}", catalogHandler.HandleRemoveBook)
		r.Post("/copies", catalogHandler.HandleAddCopy)
		r.Patch("/copies/{id}/status", catalogHandler.HandleCopyStatus)
		r.Delete("/copies/{id}", catalogHandler.HandleRemoveCopy)

		r.Post("/members", membershipHandler.HandleRegister)
		r.Get("/members/{id}", membershipHandler.HandleGetMember)
		r.Post("/members/{id}/block", membershipHandler.HandleBlock)
		r.Post("/members/{id}/unblock", membershipHandler.HandleUnblock)
		r.Post("/memberships", membershipHandler.HandleRecordMembership)
	})
	router.Get("/manage/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	router.Post("/manage/backup", func(w http.ResponseWriter, r *http.Request) {
		dest, err := backupSvc.Manual()
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		json.NewEncoder(w).Encode(map[string]string{"backup": dest})
	})
	router.Get("/manage/backups", func(w http.ResponseWriter, r *http.Request) {
		infos, err := backupSvc.List()
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		json.NewEncoder(w).Encode(infos)
	})

	server := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		log.Info("server starting", zap.String("port", cfg.Port))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("server shutdown failed", zap.Error(err))
	}
}

func mustAddJob(log *zap.Logger, s *scheduler.Scheduler, name, spec string, job func()) {
	if err := s.AddJob(name, spec, job); err != nil {
		log.Fatal("failed to register job", zap.String("job", name), zap.Error(err))
	}
}

func setupTracing(ctx context.Context, endpoint string) (func(context.Context) error, error) {
	exporter, err := otlptracehttp.New(ctx,
		otlptracehttp.WithEndpoint(endpoint),
		otlptracehttp.WithInsecure(),
	)
	if err != nil {
		return nil, err
	}

	provider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName("biblios"),
		)),
	)
	otel.SetTracerProvider(provider)
	return provider.Shutdown, nil
}
