package service

import (
	"fmt"
	"testing"

	"go_lms_backend/internal/model"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// setupTestDB はテストごとに独立したインメモリDBを作成し、
// 全テーブルをマイグレーションして返します。
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to connect database for testing: %v", err)
	}

	err = db.AutoMigrate(
		&model.User{},
		&model.UserProfile{},
		&model.Language{},
		&model.Module{},
		&model.Topic{},
		&model.Lesson{},
		&model.Exercise{},
		&model.TextBlock{},
	)
	if err != nil {
		t.Fatalf("failed to migrate database for testing: %v", err)
	}
	return db
}

// seedCurriculum は Language → Module → Topic の親子を1件ずつ作成します。
func seedCurriculum(t *testing.T, db *gorm.DB) (*model.Language, *model.Module, *model.Topic) {
	t.Helper()

	language := &model.Language{LanguageID: uuid.New(), LanguageName: "Python"}
	if err := db.Create(language).Error; err != nil {
		t.Fatalf("failed to seed language: %v", err)
	}
	module := &model.Module{ModuleID: uuid.New(), ModuleName: "Basics", LanguageID: language.LanguageID}
	if err := db.Create(module).Error; err != nil {
		t.Fatalf("failed to seed module: %v", err)
	}
	topic := &model.Topic{TopicID: uuid.New(), TopicName: "Variables", ModuleID: module.ModuleID}
	if err := db.Create(topic).Error; err != nil {
		t.Fatalf("failed to seed topic: %v", err)
	}
	return language, module, topic
}
