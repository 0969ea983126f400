package repository

import (
	"context"
	"errors"
	"fmt"

	"go_lms_backend/internal/middleware"
	"go_lms_backend/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// LanguageRepository インターフェース
type LanguageRepository interface {
	Create(ctx context.Context, tx *gorm.DB, language *model.Language) error
	FindByID(ctx context.Context, db *gorm.DB, languageID uuid.UUID) (*model.Language, error)
	FindAll(ctx context.Context, db *gorm.DB) ([]*model.Language, error)
	DeleteCascade(ctx context.Context, tx *gorm.DB, languageID uuid.UUID) error
}

type gormLanguageRepository struct{}

func NewGormLanguageRepository() LanguageRepository {
	return &gormLanguageRepository{}
}

func (r *gormLanguageRepository) Create(ctx context.Context, tx *gorm.DB, language *model.Language) error {
	logger := middleware.GetLogger(ctx)
	result := tx.WithContext(ctx).Create(language)
	if result.Error != nil {
		logger.Error("Error creating language in DB",
			"error", result.Error,
			"language_name", language.LanguageName,
		)
		return fmt.Errorf("gormLanguageRepository.Create: %w", result.Error)
	}
	return nil
}

func (r *gormLanguageRepository) FindByID(ctx context.Context, db *gorm.DB, languageID uuid.UUID) (*model.Language, error) {
	logger := middleware.GetLogger(ctx)
	var language model.Language
	result := db.WithContext(ctx).Where("language_id = ?", languageID).First(&language)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, model.ErrNotFound
		}
		logger.Error("Error finding language by ID in DB",
			"error", result.Error,
			"language_id", languageID.String(),
		)
		return nil, fmt.Errorf("gormLanguageRepository.FindByID: %w", result.Error)
	}
	return &language, nil
}

func (r *gormLanguageRepository) FindAll(ctx context.Context, db *gorm.DB) ([]*model.Language, error) {
	logger := middleware.GetLogger(ctx)
	var languages []*model.Language
	result := db.WithContext(ctx).Order("created_at ASC").Find(&languages)
	if result.Error != nil {
		logger.Error("Error finding languages in DB", "error", result.Error)
		return nil, fmt.Errorf("gormLanguageRepository.FindAll: %w", result.Error)
	}
	return languages, nil
}

// DeleteCascade は言語とその配下 (モジュール→トピック→レッスン/演習→段落) を
// 深さ優先で削除します。呼び出し側のトランザクション内で実行してください。
func (r *gormLanguageRepository) DeleteCascade(ctx context.Context, tx *gorm.DB, languageID uuid.UUID) error {
	logger := middleware.GetLogger(ctx)

	var moduleIDs []uuid.UUID
	if err := tx.WithContext(ctx).Model(&model.Module{}).Where("language_id = ?", languageID).Pluck("module_id", &moduleIDs).Error; err != nil {
		logger.Error("Error listing modules for language cascade delete", "error", err, "language_id", languageID.String())
		return fmt.Errorf("gormLanguageRepository.DeleteCascade: %w", err)
	}

	if len(moduleIDs) > 0 {
		var topicIDs []uuid.UUID
		if err := tx.WithContext(ctx).Model(&model.Topic{}).Where("module_id IN ?", moduleIDs).Pluck("topic_id", &topicIDs).Error; err != nil {
			return fmt.Errorf("gormLanguageRepository.DeleteCascade: %w", err)
		}
		if len(topicIDs) > 0 {
			if err := deleteTopicChildren(ctx, tx, topicIDs); err != nil {
				return fmt.Errorf("gormLanguageRepository.DeleteCascade: %w", err)
			}
			if err := tx.WithContext(ctx).Where("topic_id IN ?", topicIDs).Delete(&model.Topic{}).Error; err != nil {
				return fmt.Errorf("gormLanguageRepository.DeleteCascade: %w", err)
			}
		}
		if err := tx.WithContext(ctx).Where("module_id IN ?", moduleIDs).Delete(&model.Module{}).Error; err != nil {
			return fmt.Errorf("gormLanguageRepository.DeleteCascade: %w", err)
		}
	}

	result := tx.WithContext(ctx).Where("language_id = ?", languageID).Delete(&model.Language{})
	if result.Error != nil {
		logger.Error("Error deleting language in DB", "error", result.Error, "language_id", languageID.String())
		return fmt.Errorf("gormLanguageRepository.DeleteCascade: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return model.ErrNotFound
	}
	return nil
}
