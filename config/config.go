package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/vnkhanh/e-learning-backend/models"
	"github.com/vnkhanh/e-learning-backend/utils"
)

type Config struct {
	Port    string
	GinMode string
	LogMode string

	// Kết nối PostgreSQL (Supabase)
	DatabaseURL string
	DBHost      string
	DBPort      string
	DBUser      string
	DBPassword  string
	DBName      string
	DBSSLMode   string
	DBLogSQL    bool

	// JWT do Supabase Auth ký (HS256)
	JWTSecret string

	SupabaseURL      string
	SupabaseKey      string
	ThumbnailsBucket string
	VideosBucket     string
	MaterialsBucket  string

	AllowedOrigins []string
	AdminUserIDs   []uuid.UUID

	Timezone            *time.Location
	WeeklyGoalHours     float64
	RequireFullProgress bool
	// Số ngày giữ thông báo đã đọc; 0 là tắt cleanup job
	NotificationRetentionDays int
}

// Load đọc .env (nếu có) rồi tới biến môi trường
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Port:             getEnv("PORT", "8080"),
		GinMode:          getEnv("GIN_MODE", "debug"),
		LogMode:          getEnv("LOG_MODE", "dev"),
		DatabaseURL:      os.Getenv("DATABASE_URL"),
		DBHost:           getEnv("DB_HOST", "localhost"),
		DBPort:           getEnv("DB_PORT", "5432"),
		DBUser:           getEnv("DB_USER", "postgres"),
		DBPassword:       os.Getenv("DB_PASSWORD"),
		DBName:           getEnv("DB_NAME", "postgres"),
		DBSSLMode:        getEnv("DB_SSLMODE", "disable"),
		DBLogSQL:         getBool("DB_LOG_SQL", false),
		JWTSecret:        os.Getenv("SUPABASE_JWT_SECRET"),
		SupabaseURL:      os.Getenv("SUPABASE_URL"),
		SupabaseKey:      os.Getenv("SUPABASE_KEY"),
		ThumbnailsBucket: getEnv("STORAGE_BUCKET_THUMBNAILS", "course-thumbnails"),
		VideosBucket:     getEnv("STORAGE_BUCKET_VIDEOS", "lesson-videos"),
		MaterialsBucket:  getEnv("STORAGE_BUCKET_MATERIALS", "lesson-materials"),
		AllowedOrigins:   splitList(getEnv("CORS_ORIGINS", "http://localhost:5173")),
		WeeklyGoalHours:  10,

		NotificationRetentionDays: 30,
	}

	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("SUPABASE_JWT_SECRET chưa cấu hình")
	}

	loc, err := time.LoadLocation(getEnv("TIMEZONE", "UTC"))
	if err != nil {
		return nil, fmt.Errorf("TIMEZONE không hợp lệ: %w", err)
	}
	cfg.Timezone = loc

	if v := os.Getenv("WEEKLY_GOAL_HOURS"); v != "" {
		goal, err := strconv.ParseFloat(v, 64)
		if err != nil || goal <= 0 {
			return nil, fmt.Errorf("WEEKLY_GOAL_HOURS không hợp lệ: %q", v)
		}
		cfg.WeeklyGoalHours = goal
	}
	cfg.RequireFullProgress = getBool("REQUIRE_FULL_PROGRESS_TO_COMPLETE", false)

	if v := os.Getenv("NOTIFICATION_RETENTION_DAYS"); v != "" {
		days, err := strconv.Atoi(v)
		if err != nil || days < 0 {
			return nil, fmt.Errorf("NOTIFICATION_RETENTION_DAYS không hợp lệ: %q", v)
		}
		cfg.NotificationRetentionDays = days
	}

	for _, raw := range splitList(os.Getenv("ADMIN_USER_IDS")) {
		id, err := uuid.Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("ADMIN_USER_IDS chứa id không hợp lệ %q: %w", raw, err)
		}
		cfg.AdminUserIDs = append(cfg.AdminUserIDs, id)
	}
	return cfg, nil
}

func (c *Config) DSN() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	return fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=%s TimeZone=UTC",
		c.DBHost, c.DBUser, c.DBPassword, c.DBName, c.DBPort, c.DBSSLMode,
	)
}

// InitDB kết nối PostgreSQL, cấu hình pool và migrate schema
func InitDB(cfg *Config, log *utils.Logger) (*gorm.DB, error) {
	logLevel := logger.Warn
	if cfg.DBLogSQL {
		logLevel = logger.Info
	}
	db, err := gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{
		Logger:         logger.Default.LogMode(logLevel),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("không thể kết nối database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("không thể lấy sql.DB từ gorm: %w", err)
	}
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)
	sqlDB.SetConnMaxIdleTime(10 * time.Minute)

	if err := Migrate(db); err != nil {
		return nil, fmt.Errorf("autoMigrate lỗi: %w", err)
	}
	log.Info("postgreSQL connected & migrated successfully")
	return db, nil
}

// Migrate tạo/cập nhật bảng cho toàn bộ models
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.Profile{},
		&models.UserRole{},
		&models.Category{},
		&models.Course{},
		&models.Module{},
		&models.Lesson{},
		&models.Enrollment{},
		&models.AccessRequest{},
		&models.LessonProgress{},
		&models.Notification{},
	)
}

func getEnv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func getBool(key string, fallback bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
