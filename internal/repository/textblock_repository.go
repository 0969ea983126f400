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

// TextBlockRepository インターフェース
type TextBlockRepository interface {
	Create(ctx context.Context, tx *gorm.DB, block *model.TextBlock) error
	FindByID(ctx context.Context, db *gorm.DB, textBlockID uuid.UUID) (*model.TextBlock, error)
	FindAll(ctx context.Context, db *gorm.DB) ([]*model.TextBlock, error)
	CheckParagraphExists(ctx context.Context, db *gorm.DB, lessonID, exerciseID *uuid.UUID, paragraphNumber int) (bool, error)
	Delete(ctx context.Context, tx *gorm.DB, textBlockID uuid.UUID) error
}

type gormTextBlockRepository struct{}

func NewGormTextBlockRepository() TextBlockRepository {
	return &gormTextBlockRepository{}
}

func (r *gormTextBlockRepository) Create(ctx context.Context, tx *gorm.DB, block *model.TextBlock) error {
	logger := middleware.GetLogger(ctx)
	result := tx.WithContext(ctx).Create(block)
	if result.Error != nil {
		logger.Error("Error creating text block in DB",
			"error", result.Error,
			"paragraph_number", block.ParagraphNumber,
		)
		return fmt.Errorf("gormTextBlockRepository.Create: %w", result.Error)
	}
	return nil
}

func (r *gormTextBlockRepository) FindByID(ctx context.Context, db *gorm.DB, textBlockID uuid.UUID) (*model.TextBlock, error) {
	logger := middleware.GetLogger(ctx)
	var block model.TextBlock
	result := db.WithContext(ctx).Where("text_block_id = ?", textBlockID).First(&block)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, model.ErrNotFound
		}
		logger.Error("Error finding text block by ID in DB",
			"error", result.Error,
			"text_block_id", textBlockID.String(),
		)
		return nil, fmt.Errorf("gormTextBlockRepository.FindByID: %w", result.Error)
	}
	return &block, nil
}

func (r *gormTextBlockRepository) FindAll(ctx context.Context, db *gorm.DB) ([]*model.TextBlock, error) {
	logger := middleware.GetLogger(ctx)
	var blocks []*model.TextBlock
	result := db.WithContext(ctx).Order("created_at ASC").Find(&blocks)
	if result.Error != nil {
		logger.Error("Error finding text blocks in DB", "error", result.Error)
		return nil, fmt.Errorf("gormTextBlockRepository.FindAll: %w", result.Error)
	}
	return blocks, nil
}

// CheckParagraphExists は同一親 (レッスンまたは演習) 内に同じ段落番号が
// 既に存在するかを確認します。
func (r *gormTextBlockRepository) CheckParagraphExists(ctx context.Context, db *gorm.DB, lessonID, exerciseID *uuid.UUID, paragraphNumber int) (bool, error) {
	logger := middleware.GetLogger(ctx)
	var count int64

	query := db.WithContext(ctx).Model(&model.TextBlock{}).Where("paragraph_number = ?", paragraphNumber)
	switch {
	case lessonID != nil:
		query = query.Where("lesson_id = ?", *lessonID)
	case exerciseID != nil:
		query = query.Where("exercise_id = ?", *exerciseID)
	default:
		return false, model.ErrInvalidInput
	}

	if err := query.Count(&count).Error; err != nil {
		logger.Error("Error checking paragraph number existence in DB",
			"error", err,
			"paragraph_number", paragraphNumber,
		)
		return false, fmt.Errorf("gormTextBlockRepository.CheckParagraphExists: %w", err)
	}
	return count > 0, nil
}

func (r *gormTextBlockRepository) Delete(ctx context.Context, tx *gorm.DB, textBlockID uuid.UUID) error {
	logger := middleware.GetLogger(ctx)
	result := tx.WithContext(ctx).Where("text_block_id = ?", textBlockID).Delete(&model.TextBlock{})
	if result.Error != nil {
		logger.Error("Error deleting text block in DB",
			"error", result.Error,
			"text_block_id", textBlockID.String(),
		)
		return fmt.Errorf("gormTextBlockRepository.Delete: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return model.ErrNotFound
	}
	return nil
}
