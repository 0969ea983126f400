// cmd/main.go
package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/lmittmann/tint"
	"github.com/rs/cors"

	"go_lms_backend/internal/config"
	"go_lms_backend/internal/handlers"
	"go_lms_backend/internal/middleware"
	"go_lms_backend/internal/repository"
	"go_lms_backend/internal/service"
	"go_lms_backend/internal/storage"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
)

func main() {
	// 設定ファイル読み込み用の一時的なロガー設定
	tempLogger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	slog.SetDefault(tempLogger)
	log.Println("Log Config Loading...")

	// Configを読み込み
	if err := config.LoadConfig("configs"); err != nil {
		slog.Error("Error loading configuration", slog.Any("error", err))
		os.Exit(1)
	}

	// === 設定に基づいて slog ロガーを初期化 ===
	logLevel := new(slog.LevelVar)
	switch strings.ToLower(config.Cfg.Log.Level) {
	case "debug":
		logLevel.Set(slog.LevelDebug)
	case "info":
		logLevel.Set(slog.LevelInfo)
	case "warn", "warning":
		logLevel.Set(slog.LevelWarn)
	case "error":
		logLevel.Set(slog.LevelError)
	default:
		logLevel.Set(slog.LevelInfo)
		slog.Warn("Unknown log level specified in config, defaulting to INFO", slog.String("level", config.Cfg.Log.Level))
	}

	// 開発環境では tint、それ以外は JSON ハンドラ
	var handler slog.Handler
	appEnv := os.Getenv("APP_ENV")
	if strings.ToLower(appEnv) == "dev" {
		tintOpts := &tint.Options{
			Level:      logLevel,
			TimeFormat: time.RFC3339,
		}
		handler = tint.NewHandler(os.Stderr, tintOpts)
		tempLogger.Info("Using TINT log handler", slog.String("APP_ENV", appEnv))
	} else {
		jsonOpts := &slog.HandlerOptions{
			Level:     logLevel,
			AddSource: true,
		}
		handler = slog.NewJSONHandler(os.Stderr, jsonOpts)
		tempLogger.Info("Using JSON log handler", slog.String("APP_ENV", appEnv))
	}
	logger := slog.New(handler)
	slog.SetDefault(logger)

	slog.Info("Application starting...", slog.String("app", config.Cfg.App.Name))

	// 2. Initialize Database Connection (GORM)
	db, err := repository.NewDB(config.Cfg.Database.URL, logger)
	if err != nil {
		slog.Error("Error initializing database", slog.Any("error", err))
		os.Exit(1)
	}
	sqlDB, err := db.DB()
	if err != nil {
		slog.Error("Error getting underlying sql.DB from GORM", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := sqlDB.Close(); err != nil {
			slog.Error("Error closing database connection", slog.Any("error", err))
		} else {
			slog.Info("Database connection closed.")
		}
	}()

	if err := repository.AutoMigrate(db); err != nil {
		slog.Error("Error migrating database schema", slog.Any("error", err))
		os.Exit(1)
	}

	// オブジェクトストア (S3 または メモリ)
	store := storage.NewObjectStore(&config.Cfg)

	// 3. Dependency Injection
	userRepo := repository.NewGormUserRepository()
	languageRepo := repository.NewGormLanguageRepository()
	moduleRepo := repository.NewGormModuleRepository()
	topicRepo := repository.NewGormTopicRepository()
	lessonRepo := repository.NewGormLessonRepository()
	exerciseRepo := repository.NewGormExerciseRepository()
	textBlockRepo := repository.NewGormTextBlockRepository()

	userService := service.NewUserService(db, userRepo, &config.Cfg)
	curriculumService := service.NewCurriculumService(db, languageRepo, moduleRepo, topicRepo, store)
	lessonService := service.NewLessonService(db, lessonRepo, topicRepo, exerciseRepo, textBlockRepo)
	exerciseService := service.NewExerciseService(db, exerciseRepo, topicRepo, store)

	userHandler := handlers.NewUserHandler(userService, logger)
	curriculumHandler := handlers.NewCurriculumHandler(curriculumService, logger)
	lessonHandler := handlers.NewLessonHandler(lessonService, logger)
	exerciseHandler := handlers.NewExerciseHandler(exerciseService, logger)

	// 4. Setup Router
	r := chi.NewRouter()

	// Middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.LoggingMiddleware(logger))

	// CORS 設定と適用 (設定ファイルから読み込んだ値を使用)
	corsOptions := cors.Options{
		AllowedOrigins:   config.Cfg.CORS.AllowedOrigins,
		AllowedMethods:   config.Cfg.CORS.AllowedMethods,
		AllowedHeaders:   config.Cfg.CORS.AllowedHeaders,
		ExposedHeaders:   config.Cfg.CORS.ExposedHeaders,
		AllowCredentials: config.Cfg.CORS.AllowCredentials,
		MaxAge:           config.Cfg.CORS.MaxAge,
		Debug:            false,
	}
	corsHandler := cors.New(corsOptions)
	r.Use(corsHandler.Handler)

	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Timeout(60 * time.Second))

	// API Routes
	r.Route("/api/v1", func(r chi.Router) {
		// --- Public routes ---
		r.Post("/users", userHandler.PostUser)        // ユーザー登録 (認証不要)
		r.Post("/users/token", userHandler.PostToken) // トークン発行 (認証不要)

		// --- Protected routes (require Bearer token) ---
		r.Group(func(r chi.Router) {
			r.Use(middleware.JWTAuthMiddleware(&config.Cfg))

			// User self-management routes
			r.Get("/users/manage_user", userHandler.GetManageUser)
			r.Patch("/users/manage_user", userHandler.PatchManageUser)
			r.Get("/users/user_profile", userHandler.GetUserProfile)
			r.Patch("/users/user_profile", userHandler.PatchUserProfile)

			// Language routes
			r.Route("/languages", func(r chi.Router) {
				r.Post("/", curriculumHandler.PostLanguage)
				r.Get("/", curriculumHandler.GetLanguages)
				r.Get("/{language_id}", curriculumHandler.GetLanguage)
				r.Delete("/{language_id}", curriculumHandler.DeleteLanguage)
			})

			// Module routes
			r.Route("/modules", func(r chi.Router) {
				r.Post("/", curriculumHandler.PostModule)
				r.Get("/", curriculumHandler.GetModules)
				r.Get("/{module_id}", curriculumHandler.GetModule)
				r.Put("/{module_id}", curriculumHandler.PutModule)
				r.Patch("/{module_id}", curriculumHandler.PatchModule)
				r.Delete("/{module_id}", curriculumHandler.DeleteModule)
			})

			// Topic routes
			r.Route("/topics", func(r chi.Router) {
				r.Post("/", curriculumHandler.PostTopic)
				r.Get("/", curriculumHandler.GetTopics)
				r.Get("/{topic_id}", curriculumHandler.GetTopic)
				r.Put("/{topic_id}", curriculumHandler.PutTopic)
				r.Patch("/{topic_id}", curriculumHandler.PatchTopic)
				r.Delete("/{topic_id}", curriculumHandler.DeleteTopic)
			})

			// Lesson routes
			r.Route("/lessons", func(r chi.Router) {
				r.Post("/", lessonHandler.PostLesson)
				r.Get("/", lessonHandler.GetLessons)
				r.Get("/{lesson_id}", lessonHandler.GetLesson)
				r.Delete("/{lesson_id}", lessonHandler.DeleteLesson)
			})

			// TextBlock routes
			r.Route("/textblocks", func(r chi.Router) {
				r.Post("/", lessonHandler.PostTextBlock)
				r.Get("/", lessonHandler.GetTextBlocks)
				r.Get("/{text_block_id}", lessonHandler.GetTextBlock)
				r.Delete("/{text_block_id}", lessonHandler.DeleteTextBlock)
			})

			// Exercise routes
			r.Route("/exercises", func(r chi.Router) {
				r.Post("/", exerciseHandler.PostExercise)
				r.Get("/", exerciseHandler.GetExercises)
				r.Get("/{exercise_id}", exerciseHandler.GetExercise)
				r.Delete("/{exercise_id}", exerciseHandler.DeleteExercise)
			})
		})
	})

	// Health Check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		sqlDB, err := db.DB()
		if err != nil {
			slog.ErrorContext(ctx, "Health check failed: could not get DB object", slog.Any("error", err))
			http.Error(w, "Health check failed", http.StatusInternalServerError)
			return
		}
		if err := sqlDB.PingContext(ctx); err != nil {
			slog.ErrorContext(ctx, "Health check failed: could not ping DB", slog.Any("error", err))
			http.Error(w, "Health check failed", http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	// 5. Start Server
	server := &http.Server{
		Addr:         config.Cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		slog.Info("Server listening", slog.String("port", config.Cfg.Server.Port))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Could not listen on port", slog.String("port", config.Cfg.Server.Port), slog.Any("error", err))
			os.Exit(1)
		}
	}()

	// Graceful Shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	slog.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		slog.Error("Server forced to shutdown", slog.Any("error", err))
	}

	log.Println("Server exiting")
}
