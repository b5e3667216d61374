package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/cwrk-planet/poll-service/config"
	"github.com/cwrk-planet/poll-service/internal/memory"
	"github.com/cwrk-planet/poll-service/internal/pg"
	"github.com/cwrk-planet/poll-service/internal/postgres"
	"github.com/cwrk-planet/poll-service/internal/security"
	"github.com/cwrk-planet/poll-service/internal/service"
	"github.com/cwrk-planet/poll-service/internal/sqlite"
	"github.com/cwrk-planet/poll-service/internal/telemetry"
	grpcx "github.com/cwrk-planet/poll-service/internal/transport/grpc"
	httpx "github.com/cwrk-planet/poll-service/internal/transport/http"
	"github.com/cwrk-planet/poll-service/internal/transport/ws"
	"github.com/cwrk-planet/poll-service/pkg/logger"
)

func main() {
	devToken := flag.String("dev-token", "", "print a presenter JWT for this id (signed with auth.hmacSecret) and exit")
	flag.Parse()

	// --- config ---
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger.Init(cfg.Logging.ToLogger())

	if *devToken != "" {
		if err := printDevToken(cfg.Auth, *devToken); err != nil {
			log.Fatalf("dev token: %v", err)
		}
		return
	}

	slog.Info("starting poll-service",
		"env", cfg.Logging.Env, "version", cfg.Logging.Version, "storage", cfg.Storage.Driver)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// --- telemetry ---
	shutdownTracing, err := telemetry.Setup(ctx, cfg.ToTelemetry())
	if err != nil {
		log.Fatalf("telemetry: %v", err)
	}
	defer func() {
		shCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(shCtx); err != nil {
			slog.Warn("telemetry shutdown", "err", err)
		}
	}()

	// --- storage ---
	store, err := openStore(ctx, cfg.Storage)
	if err != nil {
		log.Fatalf("storage: %v", err)
	}
	defer store.Close()

	verifier, err := newVerifier(cfg.Auth)
	if err != nil {
		log.Fatalf("auth: %v", err)
	}

	// --- services ---
	sessionSvc := service.NewSessionService(store)
	questionSvc := service.NewQuestionService(store, store)
	memberSvc := service.NewMemberService(store, store)
	responseSvc := service.NewResponseService(store, store)
	analyticsSvc := service.NewAnalyticsService(store, store, store)

	// --- WS Hub & Server ---
	hub := ws.NewHub()
	wsServer := ws.NewServer(hub, sessionSvc, ws.Config{
		PingInterval: cfg.WS.PingInterval,
		WriteTimeout: cfg.WS.WriteTimeout,
		SendBuffer:   cfg.WS.SendBuffer,
	})

	// --- HTTP ---
	handler := httpx.NewHandler(httpx.Services{
		Sessions:  sessionSvc,
		Questions: questionSvc,
		Members:   memberSvc,
		Responses: responseSvc,
		Analytics: analyticsSvc,
	}, hub, store)
	router := httpx.NewRouter(handler, verifier, wsServer.HandleWS, httpx.RouterConfig{
		CORSOrigins: cfg.HTTP.CORSOrigins,
	})
	httpSrv := httpx.NewServer(httpx.ServerConfig{
		Addr:              cfg.HTTP.Addr,
		ReadHeaderTimeout: cfg.HTTP.ReadHeaderTimeout,
		ShutdownTimeout:   cfg.HTTP.ShutdownTimeout,
	}, router)

	// --- run ---
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		slog.Info("http listen", "addr", cfg.HTTP.Addr)
		return httpSrv.Run(gctx)
	})

	if cfg.GRPC.Addr != "" {
		health := grpcx.NewHealth(store, 5*time.Second)
		grpcServer := grpcx.NewServer(health.Server())

		g.Go(func() error { return health.Run(gctx) })
		g.Go(func() error {
			lis, err := net.Listen("tcp", cfg.GRPC.Addr)
			if err != nil {
				return fmt.Errorf("grpc listen: %w", err)
			}
			slog.Info("grpc listen", "addr", cfg.GRPC.Addr)
			return grpcServer.Serve(lis)
		})
		g.Go(func() error {
			<-gctx.Done()
			grpcServer.GracefulStop()
			return nil
		})
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("server error", "err", err)
	}
	slog.Info("stopped")
}

func openStore(ctx context.Context, cfg config.Storage) (service.Store, error) {
	switch cfg.Driver {
	case config.DriverPostgres:
		pool, err := pg.NewPool(ctx, cfg.Postgres.ToPGConfig())
		if err != nil {
			return nil, err
		}
		st := postgres.NewStore(pool)
		if cfg.Postgres.Migrate {
			if err := st.Migrate(ctx); err != nil {
				st.Close()
				return nil, fmt.Errorf("migrate: %w", err)
			}
		}
		return st, nil
	case config.DriverSQLite:
		st, err := sqlite.Open(cfg.SQLite.Path)
		if err != nil {
			return nil, err
		}
		return st, nil
	case config.DriverMemory:
		slog.Warn("using in-memory storage: data is lost on restart")
		return memory.NewStore(), nil
	}
	return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
}

func newVerifier(cfg config.Auth) (*security.PresenterVerifier, error) {
	if cfg.PublicKeyPath != "" {
		pub, err := security.LoadRSAPublicKeyFromPEM(cfg.PublicKeyPath)
		if err != nil {
			return nil, err
		}
		return security.NewRSAVerifier(pub, cfg.Issuer, cfg.Audience, cfg.ClockSkew), nil
	}
	return security.NewHMACVerifier([]byte(cfg.HMACSecret), cfg.Issuer, cfg.Audience, cfg.ClockSkew)
}

func printDevToken(cfg config.Auth, presenterID string) error {
	if cfg.HMACSecret == "" {
		return errors.New("auth.hmacSecret is not configured")
	}
	signer := security.NewHMACSigner([]byte(cfg.HMACSecret), cfg.Issuer, cfg.Audience, 12*time.Hour)
	tok, err := signer.Sign(presenterID, presenterID, time.Now())
	if err != nil {
		return err
	}
	fmt.Println(tok)
	return nil
}
