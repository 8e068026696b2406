package server

import (
	"context"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/reflection"

	"whatsapp-gateway/internal/config"
	hgrpc "whatsapp-gateway/internal/handler/grpc"
	hrest "whatsapp-gateway/internal/handler/http"
	wshandler "whatsapp-gateway/internal/handler/ws"
	"whatsapp-gateway/internal/metrics"
	"whatsapp-gateway/internal/middleware"
	"whatsapp-gateway/internal/pkg/phone"
	"whatsapp-gateway/internal/repository"
	"whatsapp-gateway/internal/router"
	"whatsapp-gateway/internal/session"
	"whatsapp-gateway/internal/usecase"
	"whatsapp-gateway/pkg/notifier"
	ws "whatsapp-gateway/pkg/notifier/ws"
	"whatsapp-gateway/pkg/whatsapp"
)

const (
	subscriberBuffer  = 32
	heartbeatInterval = 30 * time.Second
)

// NewServer wires the gateway and starts the whatsapp session and the gRPC
// listener. The returned cleanup stops everything except the HTTP server.
func NewServer(cfg config.AppConfig, logger *zap.Logger) (*http.Server, func()) {
	ctx, cancel := context.WithCancel(context.Background())

	// --- Session store ---
	sessionRepo := repository.NewSessionRepository(cfg.SessionFile, logger)
	blob, _ := sessionRepo.Load()

	// --- DB connection (device store) ---
	dbpool, err := config.ConnectDB(ctx, cfg.DB, logger)
	if err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}

	// --- WhatsApp client ---
	device, err := whatsapp.OpenDevice(ctx, dbpool, blob, logger, cfg.WALogLevel)
	if err != nil {
		logger.Fatal("failed to open device store", zap.Error(err))
	}
	client := whatsapp.NewClient(device, logger, cfg.WALogLevel)

	// --- Session ---
	sess := session.New(client, logger, session.WithPairingTimeout(cfg.PairingTimeout))

	// --- WS manager and handler ---
	wsManager := ws.NewManager(logger)
	go wsManager.Heartbeat(ctx, heartbeatInterval)
	wsHandler := wshandler.NewWSHandler(wsManager, originChecker(cfg.AllowedOrigins), logger)

	// --- Event subscribers ---
	notif := notifier.NewNotifier(wsManager, os.Stdout, logger)
	healthHandler := hgrpc.NewHealthHandler(logger)

	persistCh, _ := sess.Subscribe(subscriberBuffer)
	notifyCh, _ := sess.Subscribe(subscriberBuffer)
	metricsCh, _ := sess.Subscribe(subscriberBuffer)
	healthCh, _ := sess.Subscribe(subscriberBuffer)
	go sessionRepo.Persist(ctx, persistCh)
	go notif.Run(ctx, notifyCh)
	go metrics.ObserveSession(metricsCh)
	go healthHandler.Run(ctx, healthCh)

	// --- Usecases ---
	formatter := phone.NewFormatter(cfg.CountryCode, cfg.TrunkPrefix, cfg.JIDSuffix)
	uc := usecase.NewMessageUsecase(sess, formatter, logger)

	// --- Handlers ---
	restHandler := hrest.NewMessageHandler(uc, sess, logger)

	// --- Redis rate limiter (optional) ---
	var rdb *redis.Client
	var sendLimit func(http.Handler) http.Handler
	if cfg.RedisAddr != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPass,
			DB:       0,
		})
		sendLimit = middleware.RateLimiter(rdb, cfg.RateLimit, cfg.RateWindow, cfg.RateBlock, "wa:send", cfg.TrustProxy, logger)
	} else {
		logger.Info("REDIS_ADDR not set, rate limiting disabled")
	}

	// --- HTTP routes ---
	r := chi.NewRouter()
	router.SetupRoutes(r, restHandler, wsHandler, cfg.AllowedOrigins, sendLimit)

	// --- gRPC server ---
	grpcServer := grpc.NewServer()
	healthHandler.Register(grpcServer)
	reflection.Register(grpcServer)

	go func() {
		lis, err := net.Listen("tcp", cfg.GRPCAddr)
		if err != nil {
			logger.Fatal("failed to listen", zap.String("addr", cfg.GRPCAddr), zap.Error(err))
		}
		logger.Info("gRPC server listening", zap.String("addr", cfg.GRPCAddr))
		if err := grpcServer.Serve(lis); err != nil {
			logger.Error("gRPC server stopped", zap.Error(err))
		}
	}()

	// --- Start the session ---
	if err := sess.Initialize(ctx); err != nil {
		logger.Fatal("failed to initialize whatsapp session", zap.Error(err))
	}

	cleanup := func() {
		sess.Close()
		wsManager.CloseAll()
		grpcServer.GracefulStop()
		cancel()
		if rdb != nil {
			_ = rdb.Close()
		}
		dbpool.Close()
	}

	// --- HTTP server ---
	return &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}, cleanup
}

// originChecker returns nil (accept all) when "*" is allowed.
func originChecker(allowed []string) func(r *http.Request) bool {
	set := make(map[string]struct{}, len(allowed))
	for _, o := range allowed {
		if o == "*" {
			return nil
		}
		set[o] = struct{}{}
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		_, ok := set[origin]
		return ok
	}
}
