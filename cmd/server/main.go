package main

import (
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"syncgate/internal/controllers"
	"syncgate/internal/database"
	"syncgate/internal/dispatcher"
	"syncgate/internal/router"
	"syncgate/internal/services"
	"syncgate/pkg/authz"
	"syncgate/pkg/config"
	"syncgate/pkg/logger"
	"syncgate/pkg/token"
	"syncgate/pkg/version"
)

func main() {
	// 加载配置
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// 初始化日志
	if err := logger.Initialize(cfg); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}

	appLogger := logger.GetLogger()
	appLogger.Info("Starting syncgate...")

	// 初始化数据库
	if err := database.Initialize(cfg); err != nil {
		appLogger.Fatalf("Failed to initialize database: %v", err)
	}
	defer func() {
		if err := database.Close(); err != nil {
			appLogger.Error("Failed to close database:", err)
		}
	}()

	// 执行数据库迁移
	if err := database.Migrate(); err != nil {
		appLogger.Fatalf("Failed to migrate database: %v", err)
	}

	// 执行种子数据初始化
	if err := seedData(); err != nil {
		appLogger.Fatalf("Failed to initialize seed data: %v", err)
	}

	// 设置Gin模式
	gin.SetMode(cfg.Server.Mode)

	db := database.GetDB()

	// 版本计数器：启用Redis时用Redis（多实例共享），否则进程内计数
	var counter version.Counter
	if cfg.Redis.Enabled {
		client := database.InitializeRedis(cfg)
		counter = version.NewRedisCounter(client, cfg.Redis.Prefix)
		defer func() {
			if err := database.CloseRedis(); err != nil {
				appLogger.Error("Failed to close Redis:", err)
			}
		}()
	} else {
		counter = version.NewMemoryCounter()
	}

	// 令牌编解码器和水位线来源
	codec := token.NewCodec(token.NewAESProtector(cfg.Token.MasterKey))
	watermarks := dispatcher.NewGormWatermarkSource(db)

	// 变更通知中心，WebSocket握手复用调度器的令牌校验逻辑
	hub := services.NewNotifyHub(cfg.CORS.AllowOrigins, func(tokenString string) (*token.LoginSession, error) {
		session, err := codec.VerifySession(tokenString)
		if err != nil {
			return nil, err
		}
		watermark, err := watermarks.TokenValidTime(session.IsTenant(), session.TenantID, session.UserID)
		if err != nil {
			return nil, err
		}
		if !(watermark <= session.CreateTime) {
			return nil, errors.New("token revoked")
		}
		return session, nil
	})
	defer hub.Close()

	// 认证服务
	purposeTTL, err := time.ParseDuration(cfg.Token.PurposeTokenTTL)
	if err != nil {
		appLogger.Warnf("Invalid purpose token TTL %q, using default", cfg.Token.PurposeTokenTTL)
		purposeTTL = token.DefaultPurposeTokenTTL
	}
	authService := services.NewAuthService(db, codec, services.LogMailer{}, purposeTTL)

	// 调度器和控制器注册
	d := dispatcher.New(cfg, codec, watermarks)
	d.Register(authz.AuthControllerName, controllers.NewAuthController(authService))
	d.Register("note", controllers.NewNoteController(db, counter, cfg, hub))
	d.Register("noteitem", controllers.NewNoteItemController(db, counter, cfg, hub))
	d.Register("userclaim", controllers.NewUserClaimController(db, counter, cfg, hub))

	// 启动墓碑清理服务
	cleanup := services.NewTombstoneCleanupService(db, cfg.Sync.TombstoneCleanupCron, cfg.Sync.TombstoneRetentionDays)
	if err := cleanup.Start(); err != nil {
		appLogger.Errorf("Failed to start tombstone cleanup: %v", err)
		// 不影响主服务启动
	}
	defer cleanup.Stop()

	// 设置路由
	r := router.SetupRouter(cfg, d, hub)

	// 启动服务器
	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLogger.Fatalf("Failed to start server: %v", err)
		}
	}()

	appLogger.Infof("Server started on port %s", cfg.Server.Port)

	// 优雅关闭
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down server...")
	if err := server.Close(); err != nil {
		appLogger.Error("Server forced to shutdown:", err)
	}
	appLogger.Info("Server exited")
}
