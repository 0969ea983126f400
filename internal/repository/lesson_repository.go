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

// LessonRepository インターフェース
type LessonRepository interface {
	Create(ctx context.Context, tx *gorm.DB, lesson *model.Lesson) error
	FindByID(ctx context.Context, db *gorm.DB, lessonID uuid.UUID) (*model.Lesson, error)
	FindByIDWithTextBlocks(ctx context.Context, db *gorm.DB, lessonID uuid.UUID) (*model.Lesson, error)
	FindAllWithTextBlocks(ctx context.Context, db *gorm.DB) ([]*model.Lesson, error)
	Delete(ctx context.Context, tx *gorm.DB, lessonID uuid.UUID) error
}

type gormLessonRepository struct{}

func NewGormLessonRepository() LessonRepository {
	return &gormLessonRepository{}
}

func (r *gormLessonRepository) Create(ctx context.Context, tx *gorm.DB, lesson *model.Lesson) error {
	logger := middleware.GetLogger(ctx)
	result := tx.WithContext(ctx).Create(lesson)
	if result.Error != nil {
		logger.Error("Error creating lesson in DB",
			"error", result.Error,
			"lesson_name", lesson.LessonName,
		)
		return fmt.Errorf("gormLessonRepository.Create: %w", result.Error)
	}
	return nil
}

func (r *gormLessonRepository) FindByID(ctx context.Context, db *gorm.DB, lessonID uuid.UUID) (*model.Lesson, error) {
	logger := middleware.GetLogger(ctx)
	var lesson model.Lesson
	result := db.WithContext(ctx).Where("lesson_id = ?", lessonID).First(&lesson)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, model.ErrNotFound
		}
		logger.Error("Error finding lesson by ID in DB",
			"error", result.Error,
			"lesson_id", lessonID.String(),
		)
		return nil, fmt.Errorf("gormLessonRepository.FindByID: %w", result.Error)
	}
	return &lesson, nil
}

// FindByIDWithTextBlocks は段落を段落番号順にプリロードして取得します。
func (r *gormLessonRepository) FindByIDWithTextBlocks(ctx context.Context, db *gorm.DB, lessonID uuid.UUID) (*model.Lesson, error) {
	logger := middleware.GetLogger(ctx)
	var lesson model.Lesson
	result := db.WithContext(ctx).
		Preload("TextBlocks", func(db *gorm.DB) *gorm.DB {
			return db.Order("text_blocks.paragraph_number ASC")
		}).
		Where("lesson_id = ?", lessonID).
		First(&lesson)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, model.ErrNotFound
		}
		logger.Error("Error finding lesson with text blocks in DB",
			"error", result.Error,
			"lesson_id", lessonID.String(),
		)
		return nil, fmt.Errorf("gormLessonRepository.FindByIDWithTextBlocks: %w", result.Error)
	}
	return &lesson, nil
}

func (r *gormLessonRepository) FindAllWithTextBlocks(ctx context.Context, db *gorm.DB) ([]*model.Lesson, error) {
	logger := middleware.GetLogger(ctx)
	var lessons []*model.Lesson
	result := db.WithContext(ctx).
		Preload("TextBlocks", func(db *gorm.DB) *gorm.DB {
			return db.Order("text_blocks.paragraph_number ASC")
		}).
		Order("created_at ASC").
		Find(&lessons)
	if result.Error != nil {
		logger.Error("Error finding lessons in DB", "error", result.Error)
		return nil, fmt.Errorf("gormLessonRepository.FindAllWithTextBlocks: %w", result.Error)
	}
	return lessons, nil
}

// Delete はレッスンとその段落を削除します。
func (r *gormLessonRepository) Delete(ctx context.Context, tx *gorm.DB, lessonID uuid.UUID) error {
	logger := middleware.GetLogger(ctx)

	if err := tx.WithContext(ctx).Where("lesson_id = ?", lessonID).Delete(&model.TextBlock{}).Error; err != nil {
		logger.Error("Error deleting lesson text blocks in DB", "error", err, "lesson_id", lessonID.String())
		return fmt.Errorf("gormLessonRepository.Delete: %w", err)
	}

	result := tx.WithContext(ctx).Where("lesson_id = ?", lessonID).Delete(&model.Lesson{})
	if result.Error != nil {
		logger.Error("Error deleting lesson in DB", "error", result.Error, "lesson_id", lessonID.String())
		return fmt.Errorf("gormLessonRepository.Delete: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return model.ErrNotFound
	}
	return nil
}
