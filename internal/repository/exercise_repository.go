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

// ExerciseRepository インターフェース
type ExerciseRepository interface {
	Create(ctx context.Context, tx *gorm.DB, exercise *model.Exercise) error
	FindByID(ctx context.Context, db *gorm.DB, exerciseID uuid.UUID) (*model.Exercise, error)
	FindAll(ctx context.Context, db *gorm.DB) ([]*model.Exercise, error)
	Delete(ctx context.Context, tx *gorm.DB, exerciseID uuid.UUID) error
}

type gormExerciseRepository struct{}

func NewGormExerciseRepository() ExerciseRepository {
	return &gormExerciseRepository{}
}

func (r *gormExerciseRepository) Create(ctx context.Context, tx *gorm.DB, exercise *model.Exercise) error {
	logger := middleware.GetLogger(ctx)
	result := tx.WithContext(ctx).Create(exercise)
	if result.Error != nil {
		logger.Error("Error creating exercise in DB",
			"error", result.Error,
			"exercise_name", exercise.ExerciseName,
		)
		return fmt.Errorf("gormExerciseRepository.Create: %w", result.Error)
	}
	return nil
}

func (r *gormExerciseRepository) FindByID(ctx context.Context, db *gorm.DB, exerciseID uuid.UUID) (*model.Exercise, error) {
	logger := middleware.GetLogger(ctx)
	var exercise model.Exercise
	result := db.WithContext(ctx).Where("exercise_id = ?", exerciseID).First(&exercise)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, model.ErrNotFound
		}
		logger.Error("Error finding exercise by ID in DB",
			"error", result.Error,
			"exercise_id", exerciseID.String(),
		)
		return nil, fmt.Errorf("gormExerciseRepository.FindByID: %w", result.Error)
	}
	return &exercise, nil
}

func (r *gormExerciseRepository) FindAll(ctx context.Context, db *gorm.DB) ([]*model.Exercise, error) {
	logger := middleware.GetLogger(ctx)
	var exercises []*model.Exercise
	result := db.WithContext(ctx).Order("created_at ASC").Find(&exercises)
	if result.Error != nil {
		logger.Error("Error finding exercises in DB", "error", result.Error)
		return nil, fmt.Errorf("gormExerciseRepository.FindAll: %w", result.Error)
	}
	return exercises, nil
}

// Delete は演習とその段落を削除します。
// オブジェクトストア上の本文は削除せず残します (キーはDB行と共に失われる)。
func (r *gormExerciseRepository) Delete(ctx context.Context, tx *gorm.DB, exerciseID uuid.UUID) error {
	logger := middleware.GetLogger(ctx)

	if err := tx.WithContext(ctx).Where("exercise_id = ?", exerciseID).Delete(&model.TextBlock{}).Error; err != nil {
		logger.Error("Error deleting exercise text blocks in DB", "error", err, "exercise_id", exerciseID.String())
		return fmt.Errorf("gormExerciseRepository.Delete: %w", err)
	}

	result := tx.WithContext(ctx).Where("exercise_id = ?", exerciseID).Delete(&model.Exercise{})
	if result.Error != nil {
		logger.Error("Error deleting exercise in DB", "error", result.Error, "exercise_id", exerciseID.String())
		return fmt.Errorf("gormExerciseRepository.Delete: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return model.ErrNotFound
	}
	return nil
}
