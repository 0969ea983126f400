// cmd/createsuperuser/main.go
//
// 管理者ユーザーを作成するCLI。
//
//	go run ./cmd/createsuperuser -email admin@example.com -password secret123 -name Admin
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"

	"go_lms_backend/internal/config"
	"go_lms_backend/internal/model"
	"go_lms_backend/internal/repository"
	"go_lms_backend/internal/service"
	"go_lms_backend/internal/webutil"
)

func main() {
	email := flag.String("email", "", "管理者のメールアドレス")
	password := flag.String("password", "", "管理者のパスワード (8文字以上)")
	name := flag.String("name", "admin", "表示名")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	slog.SetDefault(logger)

	if *email == "" || *password == "" {
		slog.Error("Both -email and -password are required")
		os.Exit(1)
	}

	if err := config.LoadConfig("configs"); err != nil {
		slog.Error("Error loading configuration", slog.Any("error", err))
		os.Exit(1)
	}

	db, err := repository.NewDB(config.Cfg.Database.URL, logger)
	if err != nil {
		slog.Error("Error initializing database", slog.Any("error", err))
		os.Exit(1)
	}
	if err := repository.AutoMigrate(db); err != nil {
		slog.Error("Error migrating database schema", slog.Any("error", err))
		os.Exit(1)
	}

	userService := service.NewUserService(db, repository.NewGormUserRepository(), &config.Cfg)

	req := &model.CreateUserRequest{
		Email:    *email,
		Password: *password,
		Name:     *name,
	}
	if appErr := webutil.ValidateStruct(req); appErr != nil {
		slog.Error("Invalid input", slog.String("message", appErr.Detail.Message), slog.String("field", appErr.Detail.Field))
		os.Exit(1)
	}

	user, err := userService.RegisterSuperuser(context.Background(), req)
	if err != nil {
		slog.Error("Failed to create superuser", slog.Any("error", err))
		os.Exit(1)
	}

	slog.Info("Superuser created",
		slog.String("user_id", user.UserID.String()),
		slog.String("email", user.Email),
	)
}
