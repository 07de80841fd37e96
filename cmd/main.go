package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/sobia-kanwal/closet-on-wheels/internal/cart"
	"github.com/sobia-kanwal/closet-on-wheels/internal/catalog"
	"github.com/sobia-kanwal/closet-on-wheels/internal/checkout"
	"github.com/sobia-kanwal/closet-on-wheels/internal/config"
	h "github.com/sobia-kanwal/closet-on-wheels/internal/http"
	"github.com/sobia-kanwal/closet-on-wheels/internal/orders"
	"github.com/sobia-kanwal/closet-on-wheels/internal/publisher"
	"github.com/sobia-kanwal/closet-on-wheels/internal/store"
	"github.com/sobia-kanwal/closet-on-wheels/pkg/circuitbreaker"
	"github.com/sobia-kanwal/closet-on-wheels/pkg/logger"
)

const serviceName = "closet-on-wheels"

type closer func(ctx context.Context) error

func main() {
	cfg, err := config.Load(os.Getenv("CONFIG_FILE"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(cfg.LogLevel, cfg.LogPretty).With().Str("service", serviceName).Logger()

	// upstream traceparent headers end up as trace_id/span_id on request logs
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(propagation.TraceContext{}, propagation.Baggage{}))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var closers []closer
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		for i := len(closers) - 1; i >= 0; i-- {
			if err := closers[i](shutdownCtx); err != nil {
				log.Warn().Err(err).Msg("failed to release resource")
			}
		}
	}()

	s, closeStore, err := openStore(ctx, cfg, log)
	if err != nil {
		log.Error().Err(err).Str("backend", cfg.StoreBackend).Msg("failed to open store")
		return
	}
	closers = append(closers, closeStore)

	products, closeCatalog, err := openCatalog(ctx, cfg, s, log)
	if err != nil {
		log.Error().Err(err).Str("backend", cfg.CatalogBackend).Msg("failed to open catalog")
		return
	}
	closers = append(closers, closeCatalog)

	orderRepo, closeOrders, err := openOrders(cfg, s, log)
	if err != nil {
		log.Error().Err(err).Str("backend", cfg.OrdersBackend).Msg("failed to open orders repository")
		return
	}
	closers = append(closers, closeOrders)

	calculator, err := cfg.Calculator()
	if err != nil {
		log.Error().Err(err).Msg("invalid pricing config")
		return
	}

	outbox := publisher.NewOutbox(s, log)
	var sink publisher.Sink = publisher.NewLogSink(log.With().Str("component", "events").Logger())
	if brokers := cfg.Brokers(); len(brokers) > 0 {
		sink = publisher.NewKafkaSink(cfg.OrderEventsTopic, brokers...)
		log.Info().Strs("brokers", brokers).Str("topic", cfg.OrderEventsTopic).Msg("publishing order events to kafka")
	}
	closers = append(closers, func(context.Context) error { return sink.Close() })

	poller := publisher.NewOutboxPoller(outbox, sink, cfg.OutboxInterval, log).WithMaxAttempts(cfg.OutboxMaxAttempts)
	go poller.Run(ctx)

	loader := cart.NewLoader(s, log)
	pipeline := checkout.NewPipeline(orderRepo, outbox, calculator, log)

	router := h.NewRouter(h.Handlers{
		Products: h.NewProductHandler(products, cfg.RequestTimeout),
		Cart:     h.NewCartHandler(loader, products, cfg.RequestTimeout),
		Checkout: h.NewCheckoutHandler(loader, pipeline, cfg.RequestTimeout),
		Orders:   h.NewOrdersHandler(orderRepo, cfg.RequestTimeout),
	}, h.RouterConfig{
		AdminAPIKey:    cfg.AdminAPIKey,
		RequestTimeout: cfg.RequestTimeout,
	}, log)

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      otelhttp.NewHandler(router, serviceName),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: cfg.RequestTimeout + 5*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	lis, err := net.Listen("tcp", ":"+cfg.GRPCPort)
	if err != nil {
		log.Error().Err(err).Str("port", cfg.GRPCPort).Msg("failed to listen")
		return
	}
	grpcServer := grpc.NewServer()
	healthServer := health.NewServer()
	healthpb.RegisterHealthServer(grpcServer, healthServer)
	healthServer.SetServingStatus(serviceName, healthpb.HealthCheckResponse_SERVING)

	// Enable reflection for grpcurl/grpcui
	reflection.Register(grpcServer)

	errCh := make(chan error, 2)
	go func() {
		log.Info().Str("port", cfg.GRPCPort).Msg("grpc health server listening")
		if err := grpcServer.Serve(lis); err != nil {
			errCh <- fmt.Errorf("grpc server: %w", err)
		}
	}()
	go func() {
		log.Info().Str("port", cfg.HTTPPort).Msg("http server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		log.Info().Msg("shutting down")
	case err := <-errCh:
		log.Error().Err(err).Msg("server failed")
	}

	healthServer.Shutdown()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("http server forced to shutdown")
	}
	grpcServer.GracefulStop()
	stop()
	log.Info().Msg("server exited")
}

func openStore(ctx context.Context, cfg *config.Config, log zerolog.Logger) (store.Store, closer, error) {
	switch cfg.StoreBackend {
	case config.StoreRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       0,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, nil, fmt.Errorf("redis ping: %w", err)
		}
		log.Info().Str("addr", cfg.RedisAddr).Msg("connected to redis")

		breaker := circuitbreaker.New(circuitbreaker.DefaultSettings("redis-store"), log)
		s := store.NewResilient(store.NewRedisStore(client, cfg.CartTTL), breaker, log)
		return s, func(context.Context) error { return client.Close() }, nil

	case config.StoreMongo:
		db, err := store.ConnectMongoDB(ctx, cfg.MongoURI, cfg.MongoDBName)
		if err != nil {
			return nil, nil, err
		}
		log.Info().Str("db", cfg.MongoDBName).Msg("connected to mongodb")

		breaker := circuitbreaker.New(circuitbreaker.DefaultSettings("mongo-store"), log)
		s := store.NewResilient(store.NewMongoStore(db), breaker, log)
		return s, func(ctx context.Context) error { return db.Client().Disconnect(ctx) }, nil

	default:
		log.Warn().Msg("using in-memory store, state is lost on restart")
		return store.NewMemoryStore(), func(context.Context) error { return nil }, nil
	}
}

func openCatalog(ctx context.Context, cfg *config.Config, s store.Store, log zerolog.Logger) (catalog.Repository, closer, error) {
	if cfg.CatalogBackend == config.CatalogSQLite {
		repo, err := catalog.NewSQLiteRepository(cfg.CatalogDBPath)
		if err != nil {
			return nil, nil, err
		}
		if err := repo.RunMigrations(cfg.CatalogMigrationsPath); err != nil {
			_ = repo.Close()
			return nil, nil, err
		}
		return repo, func(context.Context) error { return repo.Close() }, nil
	}

	repo := catalog.NewStoreRepository(s, log)
	if err := repo.Seed(ctx); err != nil {
		return nil, nil, err
	}
	return repo, func(context.Context) error { return nil }, nil
}

func openOrders(cfg *config.Config, s store.Store, log zerolog.Logger) (orders.Repository, closer, error) {
	if cfg.OrdersBackend == config.OrdersPostgres {
		cred := cfg.OrdersCredentials()
		repo, err := orders.NewPostgresRepository(cred)
		if err != nil {
			return nil, nil, err
		}
		if err := repo.RunMigrations(cred); err != nil {
			_ = repo.Close()
			return nil, nil, err
		}
		log.Info().Str("host", cred.Host).Str("db", cred.DBName).Msg("connected to postgres")
		return repo, func(context.Context) error { return repo.Close() }, nil
	}
	return orders.NewStoreRepository(s, log), func(context.Context) error { return nil }, nil
}
