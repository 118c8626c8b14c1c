package server

import (
	"context"
	"log"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"

	"realtime-editor/internal/config"
	"realtime-editor/internal/handler"
	"realtime-editor/internal/hub"
	"realtime-editor/internal/metrics"
	"realtime-editor/internal/presence"
	"realtime-editor/internal/storage"
	"realtime-editor/internal/store"
)

// Server Fiber 서버 래퍼
type Server struct {
	app               *fiber.App
	cfg               *config.Config
	db                *gorm.DB
	registry          *hub.Registry
	promRegistry      *prometheus.Registry
	documentWSHandler *handler.DocumentWSHandler
	healthHandler     *handler.HealthHandler
	presence          *presence.Manager
}

// New 새 서버 인스턴스 생성
func New(cfg *config.Config, db *gorm.DB) *Server {
	app := fiber.New(fiber.Config{
		AppName:               "Realtime Document Editor",
		ServerHeader:          "Fiber",
		StrictRouting:         true,
		CaseSensitive:         true,
		ReadTimeout:           cfg.Server.ReadTimeout,
		WriteTimeout:          cfg.Server.WriteTimeout,
		IdleTimeout:           cfg.Server.IdleTimeout,
		Prefork:               false, // WebSocket과 호환성 문제로 비활성화
		ReadBufferSize:        16384, // 16KB - 큰 헤더 허용
		WriteBufferSize:       16384,
		DisableStartupMessage: true,
	})

	// 지표 (서버마다 독립 레지스트리)
	promRegistry := prometheus.NewRegistry()
	promRegistry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(promRegistry)

	registry := hub.NewRegistry(cfg.WebSocket.WriteTimeout)
	registry.AddObserver(m)
	dispatcher := hub.NewDispatcher(registry, m)

	opts := []handler.DocumentWSOption{handler.WithMetrics(m)}

	// Redis presence (선택적)
	var presenceManager *presence.Manager
	var counter handler.PresenceCounter
	if cfg.Redis.Addr != "" {
		var err error
		presenceManager, err = presence.NewManager(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, cfg.Redis.PresenceTTL)
		if err != nil {
			log.Printf("⚠️ Redis presence initialization failed: %v (presence will be disabled)", err)
		} else {
			registry.AddObserver(presenceManager)
			opts = append(opts, handler.WithPresence(presenceManager))
			counter = presenceManager
		}
	} else {
		log.Println("ℹ️ Redis not configured (presence will be disabled)")
	}

	// S3 이미지 첨부 (선택적)
	if cfg.S3.Enabled() {
		s3Service, err := storage.NewS3Service(context.Background(), &cfg.S3)
		if err != nil {
			log.Printf("⚠️ S3 service initialization failed: %v (images will be sent as URLs)", err)
		} else {
			opts = append(opts, handler.WithBlobFetcher(s3Service))
		}
	} else {
		log.Println("ℹ️ S3 image embedding not configured (images will be sent as URLs)")
	}

	return &Server{
		app:               app,
		cfg:               cfg,
		db:                db,
		registry:          registry,
		promRegistry:      promRegistry,
		documentWSHandler: handler.NewDocumentWSHandler(store.NewGormStore(db), dispatcher, opts...),
		healthHandler:     handler.NewHealthHandler(db, registry, counter),
		presence:          presenceManager,
	}
}

// App Fiber 앱 (테스트용)
func (s *Server) App() *fiber.App {
	return s.app
}

// Registry 세션 레지스트리
func (s *Server) Registry() *hub.Registry {
	return s.registry
}

// SetupMiddleware 미들웨어 설정
func (s *Server) SetupMiddleware() {
	// 패닉 복구
	s.app.Use(recover.New(recover.Config{
		EnableStackTrace: true,
	}))

	// 로깅
	s.app.Use(logger.New(logger.Config{
		Format:     "${time} | ${status} | ${latency} | ${ip} | ${method} ${path}\n",
		TimeFormat: "2006-01-02 15:04:05",
		TimeZone:   "Local",
	}))

	// CORS
	s.app.Use(cors.New(cors.Config{
		AllowOrigins: s.cfg.CORS.AllowOrigins,
		AllowHeaders: s.cfg.CORS.AllowHeaders,
		AllowMethods: "GET, OPTIONS",
	}))
}

// SetupRoutes 라우트 설정
func (s *Server) SetupRoutes() {
	s.app.Get("/health", s.healthHandler.Check)
	s.app.Get("/health/live", s.healthHandler.Liveness)
	s.app.Get("/health/ready", s.healthHandler.Readiness)

	s.app.Get("/metrics", adaptor.HTTPHandler(
		promhttp.HandlerFor(s.promRegistry, promhttp.HandlerOpts{}),
	))

	s.app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})

	s.app.Get("/ws", websocket.New(s.documentWSHandler.HandleWebSocket, websocket.Config{
		ReadBufferSize:  s.cfg.WebSocket.ReadBufferSize,
		WriteBufferSize: s.cfg.WebSocket.WriteBufferSize,
	}))
}

// Start 서버 시작 (Graceful Shutdown 지원)
func (s *Server) Start() error {
	// Graceful Shutdown 설정
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		log.Println("🛑 Shutting down server...")
		if err := s.Shutdown(); err != nil {
			log.Fatalf("Server shutdown error: %v", err)
		}
	}()

	log.Printf("🚀 Realtime Document Editor starting on %s", s.cfg.Server.Port)
	log.Printf("📡 WebSocket endpoint: ws://localhost%s/ws", s.cfg.Server.Port)

	return s.app.Listen(s.cfg.Server.Port)
}

// Serve 이미 열린 리스너에서 서비스 (테스트용)
func (s *Server) Serve(ln net.Listener) error {
	return s.app.Listener(ln)
}

// Shutdown 서버 종료
func (s *Server) Shutdown() error {
	err := s.app.ShutdownWithTimeout(30 * time.Second)
	if s.presence != nil {
		if cerr := s.presence.Close(); cerr != nil {
			log.Printf("⚠️ Redis close failed: %v", cerr)
		}
	}
	return err
}
