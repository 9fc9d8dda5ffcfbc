package app

import (
	"context"
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/raditya/toko-backend/internal/domain/order"
	"github.com/raditya/toko-backend/internal/handler"
	"github.com/raditya/toko-backend/internal/midtrans"
	"github.com/raditya/toko-backend/internal/repository"
	"github.com/raditya/toko-backend/internal/shipping"
	"github.com/raditya/toko-backend/pkg/health"
	"github.com/raditya/toko-backend/pkg/httpmiddleware"
)

// Run creates all dependencies, starts the HTTP server, and handles graceful
// shutdown. It is the single wiring point for the application; in particular
// the payment-gateway client is constructed once here and injected, never
// shared through package state.
func Run(ctx context.Context, lg *zap.Logger, m *app.Telemetry, cfg *Config) error {
	lg.Info("Initializing", zap.String("addr", cfg.Addr))

	// PostgreSQL pool + migrations.
	pool, err := repository.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return errors.Wrap(err, "create db pool")
	}
	defer pool.Close()

	if err := repository.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	// Health check service.
	healthSvc := health.New()
	healthSvc.AddReadinessCheck("postgres", 5*time.Second, func(ctx context.Context) error {
		return pool.Ping(ctx)
	})
	healthSvc.AddLivenessCheck("goroutines", time.Second, health.GoroutineCountCheck(10000))

	// Repositories.
	orderRepo := repository.NewOrderRepository(pool)
	productRepo := repository.NewProductRepository(pool)
	sessionRepo := repository.NewSessionRepository(pool)

	// External collaborators.
	rateClient := shipping.NewClient(shipping.Config{
		BaseURL:    cfg.Shipping.BaseURL,
		APIKey:     cfg.Shipping.APIKey,
		GeoBaseURL: cfg.Shipping.GeoBaseURL,
		GeoAPIKey:  cfg.Shipping.GeoAPIKey,
		OriginID:   cfg.Shipping.OriginID,
		Timeout:    cfg.Shipping.Timeout,
	})
	snapClient := midtrans.NewClient(midtrans.Config{
		SnapURL:   cfg.Midtrans.SnapURL,
		ServerKey: cfg.Midtrans.ServerKey,
		Timeout:   cfg.Midtrans.Timeout,
	})

	// Domain services.
	orderService := order.NewService(orderRepo, productRepo, rateClient, snapClient)
	reconciler := order.NewReconciler(orderRepo)

	// HTTP handlers.
	h := handler.NewHandler(
		handler.Config{VerifyWebhookSignature: cfg.Midtrans.VerifySignature},
		orderService,
		reconciler,
		rateClient,
		snapClient,
		productRepo,
		sessionRepo,
	)

	mux := http.NewServeMux()
	mux.HandleFunc("/livez", healthSvc.LiveEndpoint)
	mux.HandleFunc("/readyz", healthSvc.ReadyEndpoint)
	mux.Handle("/api/", http.StripPrefix("/api", h.Routes()))

	server := &http.Server{
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
		Addr:              cfg.Addr,
		Handler: httpmiddleware.Wrap(mux,
			httpmiddleware.Recovery(),
			httpmiddleware.CORS(httpmiddleware.CORSConfig{
				AllowOrigins:     cfg.CORS.Origins,
				AllowHeaders:     []string{"Content-Type", "Authorization"},
				AllowCredentials: cfg.CORS.AllowCredentials,
				MaxAge:           86400,
			}),
			httpmiddleware.RateLimitWithCleanup(ctx, httpmiddleware.RateLimitConfig{
				Max:    cfg.RateLimit.Max,
				Window: cfg.RateLimit.Window,
			}),
			httpmiddleware.RequestID(),
			httpmiddleware.InjectLogger(zctx.From(ctx)),
			httpmiddleware.Instrument("toko-api", m.TracerProvider(), m.MeterProvider()),
			httpmiddleware.LogRequests(),
		),
	}

	healthSvc.SetReady(true)

	// Graceful shutdown: wait for context cancellation, drain, then stop.
	shutdownDone := make(chan struct{})
	go func() {
		<-ctx.Done()
		healthSvc.SetReady(false)
		lg.Info("Readiness set to false, draining", zap.Duration("delay", cfg.Graceful.ReadinessDelay))
		time.Sleep(cfg.Graceful.ReadinessDelay)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Graceful.ShutdownTimeout)
		defer cancel()

		lg.Info("Shutting down server", zap.Duration("timeout", cfg.Graceful.ShutdownTimeout))
		if err := server.Shutdown(shutdownCtx); err != nil {
			lg.Error("Server shutdown error", zap.Error(err))
		}
		close(shutdownDone)
	}()

	lg.Info("Server listening", zap.String("addr", cfg.Addr))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "server")
	}
	<-shutdownDone
	return nil
}
