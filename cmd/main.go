package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/vnkhanh/e-learning-backend/config"
	"github.com/vnkhanh/e-learning-backend/middleware"
	"github.com/vnkhanh/e-learning-backend/routes"
	"github.com/vnkhanh/e-learning-backend/services"
	"github.com/vnkhanh/e-learning-backend/utils"
	"github.com/vnkhanh/e-learning-backend/ws"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Không đọc được cấu hình: ", err)
	}

	logger, err := utils.NewLogger(cfg.LogMode)
	if err != nil {
		log.Fatal("Không khởi tạo được logger: ", err)
	}
	defer logger.Sync()

	db, err := config.InitDB(cfg, logger)
	if err != nil {
		logger.Fatal("database init failed", "error", err)
	}

	// Storage không bắt buộc khi chạy local; upload sẽ trả 503
	var objectStorage services.ObjectStorage
	if cfg.SupabaseURL != "" && cfg.SupabaseKey != "" {
		s, err := utils.NewSupabaseStorage(cfg.SupabaseURL, cfg.SupabaseKey)
		if err != nil {
			logger.Fatal("supabase storage init failed", "error", err)
		}
		objectStorage = s
	} else {
		logger.Warn("SUPABASE_URL/SUPABASE_KEY chưa cấu hình, tắt upload")
	}

	hub := ws.NewHub(logger)
	svc := services.New(db, logger, services.Options{
		Location:            cfg.Timezone,
		WeeklyGoalHours:     cfg.WeeklyGoalHours,
		RequireFullProgress: cfg.RequireFullProgress,
		Buckets: services.Buckets{
			Thumbnails: cfg.ThumbnailsBucket,
			Videos:     cfg.VideosBucket,
			Materials:  cfg.MaterialsBucket,
		},
	}, hub, objectStorage)

	seedCtx, cancelSeed := context.WithTimeout(context.Background(), 10*time.Second)
	for _, id := range cfg.AdminUserIDs {
		if err := svc.Users.EnsureAdmin(seedCtx, id, "", ""); err != nil {
			logger.Error("seed admin failed", "user_id", id, "error", err)
		}
	}
	cancelSeed()

	jobCtx, stopJobs := context.WithCancel(context.Background())
	defer stopJobs()
	if cfg.NotificationRetentionDays > 0 {
		utils.StartCleanupJob(jobCtx, db, logger, time.Duration(cfg.NotificationRetentionDays)*24*time.Hour)
	}

	verifier := utils.NewTokenVerifier(cfg.JWTSecret)
	wsHandler := ws.NewHandler(hub, func(token string) (uuid.UUID, error) {
		claims, err := verifier.VerifyToken(token)
		if err != nil {
			return uuid.Nil, err
		}
		return claims.UserID()
	}, cfg.AllowedOrigins)

	gin.SetMode(cfg.GinMode)
	r := gin.New()
	r.Use(gin.Recovery(), middleware.LoggingMiddleware(logger))

	//Bật CORS
	r.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "X-Auth-Token"},
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition"},
		AllowCredentials: true,
	}))

	r = routes.SetupRouter(r, routes.Deps{
		DB:       db,
		Services: svc,
		Verifier: verifier,
		Hub:      hub,
		WS:       wsHandler,
		Log:      logger,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logger.Info("server running", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server stopped", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("graceful shutdown failed", "error", err)
	}
	logger.Info("server exited")
}
