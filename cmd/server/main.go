// Package main 是应用程序的入口点。
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"edubot/internal/config"
	"edubot/internal/handler"
	"edubot/internal/middleware"
	"edubot/internal/repository"
	"edubot/internal/service"
	"edubot/pkg/cache"
	"edubot/pkg/database"
	"edubot/pkg/events"
	"edubot/pkg/llm"
	"edubot/pkg/log"

	"github.com/gin-gonic/gin"
)

const defaultConfigPath = "./configs/config.yaml"

func main() {
	// 1. 初始化配置（配置出错时由引导日志记录器输出）
	log.Init("info", "console", "")
	configPath := os.Getenv("EDUBOT_CONFIG")
	if configPath == "" {
		configPath = defaultConfigPath
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatal("Failed to load configuration", err)
	}

	// 2. 初始化日志记录器
	log.Init(cfg.Log.Level, cfg.Log.Format, cfg.Log.OutputPath)
	defer log.Sync()
	log.Info("Logger initialised")

	// 3. 初始化数据库、缓存和事件
	db, err := database.Open(cfg.Database)
	if err != nil {
		log.Fatal("Failed to connect to database", err)
	}
	if err := database.Migrate(db); err != nil {
		log.Fatal("Failed to migrate database", err)
	}

	var store cache.Cache
	rdb, err := database.OpenRedis(cfg.Database.Redis)
	switch {
	case err != nil:
		log.Warnf("Redis unavailable, falling back to in-process cache: %v", err)
		store = cache.NewMemory()
	case rdb == nil:
		log.Info("Redis not configured, using in-process cache")
		store = cache.NewMemory()
	default:
		store = cache.NewRedis(rdb, "edubot:")
	}

	publisher := events.NewPublisher(cfg.Kafka)
	defer func() {
		if err := publisher.Close(); err != nil {
			log.Error("Failed to close event publisher", err)
		}
	}()

	llmClient, err := llm.NewClient(context.Background(), cfg.Gemini)
	if err != nil {
		log.Fatal("Failed to create Gemini client", err)
	}

	// 4. 初始化 Repository
	transcriptRepo := repository.NewTranscriptRepository(db)
	instructionRepo := repository.NewSystemInstructionRepository(db)
	userRepo := repository.NewUserRepository(db)

	// 5. 初始化 Service (依赖注入)
	instructionService := service.NewInstructionService(instructionRepo, store, publisher,
		cfg.Bot.DefaultInstruction, time.Duration(cfg.Cache.InstructionTTLSeconds)*time.Second)
	chatService := service.NewChatService(instructionService, llmClient, cfg.Bot.ID)
	transcriptService := service.NewTranscriptService(transcriptRepo, userRepo, publisher, store, cfg.Bot.ID)
	titleService := service.NewTitleService(transcriptRepo, llmClient)
	adminService := service.NewAdminService(transcriptRepo, store, time.Duration(cfg.Cache.StatsTTLSeconds)*time.Second)

	// 6. 预置默认 system instruction
	initDefaultInstruction(instructionService, cfg.Bot.ID)

	// 7. 设置 Gin 模式并创建路由引擎
	gin.SetMode(cfg.Server.Mode)
	r := gin.New()
	r.Use(middleware.CORS(), middleware.RequestLogger(), gin.Recovery())

	// 8. 注册路由
	handler.RegisterRoutes(r, handler.Handlers{
		Chat:         handler.NewChatHandler(chatService),
		Conversation: handler.NewConversationHandler(transcriptService, titleService),
		Admin:        handler.NewAdminHandler(adminService, instructionService, cfg.Bot.ID),
	}, cfg.Admin.Password)
	handler.ServeStatic(r, cfg.Server.StaticDir)

	// 启动 HTTP 服务器并实现优雅停机
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: r,
	}

	go func() {
		log.Infof("Server listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("HTTP server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutdown signal received, stopping server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Errorf("HTTP server shutdown failed: %v", err)
	}
	if rdb != nil {
		_ = rdb.Close()
	}
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
	log.Info("Server stopped")
}

// initDefaultInstruction 在启动时写入默认指令，使管理后台在首次对话前即可看到。
// 失败不致命，首次读取时会重试。
func initDefaultInstruction(instructions service.InstructionService, botID string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	si, err := instructions.GetActive(ctx, botID)
	if err != nil {
		log.Warnf("initDefaultInstruction: failed to load instruction for bot %s: %v", botID, err)
		return
	}
	log.Infof("initDefaultInstruction: bot %s steered by instruction #%d (updated by %s)", botID, si.ID, si.UpdatedBy)
}
