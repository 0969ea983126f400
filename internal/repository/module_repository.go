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

// ModuleRepository インターフェース
type ModuleRepository interface {
	Create(ctx context.Context, tx *gorm.DB, module *model.Module) error
	FindByID(ctx context.Context, db *gorm.DB, moduleID uuid.UUID) (*model.Module, error)
	FindAll(ctx context.Context, db *gorm.DB) ([]*model.Module, error)
	Update(ctx context.Context, tx *gorm.DB, moduleID uuid.UUID, updates map[string]interface{}) error
	DeleteCascade(ctx context.Context, tx *gorm.DB, moduleID uuid.UUID) error
}

type gormModuleRepository struct{}

func NewGormModuleRepository() ModuleRepository {
	return &gormModuleRepository{}
}

func (r *gormModuleRepository) Create(ctx context.Context, tx *gorm.DB, module *model.Module) error {
	logger := middleware.GetLogger(ctx)
	result := tx.WithContext(ctx).Create(module)
	if result.Error != nil {
		logger.Error("Error creating module in DB",
			"error", result.Error,
			"module_name", module.ModuleName,
		)
		return fmt.Errorf("gormModuleRepository.Create: %w", result.Error)
	}
	return nil
}

func (r *gormModuleRepository) FindByID(ctx context.Context, db *gorm.DB, moduleID uuid.UUID) (*model.Module, error) {
	logger := middleware.GetLogger(ctx)
	var module model.Module
	result := db.WithContext(ctx).Where("module_id = ?", moduleID).First(&module)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, model.ErrNotFound
		}
		logger.Error("Error finding module by ID in DB",
			"error", result.Error,
			"module_id", moduleID.String(),
		)
		return nil, fmt.Errorf("gormModuleRepository.FindByID: %w", result.Error)
	}
	return &module, nil
}

func (r *gormModuleRepository) FindAll(ctx context.Context, db *gorm.DB) ([]*model.Module, error) {
	logger := middleware.GetLogger(ctx)
	var modules []*model.Module
	result := db.WithContext(ctx).Order("created_at ASC").Find(&modules)
	if result.Error != nil {
		logger.Error("Error finding modules in DB", "error", result.Error)
		return nil, fmt.Errorf("gormModuleRepository.FindAll: %w", result.Error)
	}
	return modules, nil
}

func (r *gormModuleRepository) Update(ctx context.Context, tx *gorm.DB, moduleID uuid.UUID, updates map[string]interface{}) error {
	logger := middleware.GetLogger(ctx)
	if len(updates) == 0 {
		return nil
	}
	result := tx.WithContext(ctx).Model(&model.Module{}).Where("module_id = ?", moduleID).Updates(updates)
	if result.Error != nil {
		logger.Error("Error updating module in DB",
			"error", result.Error,
			"module_id", moduleID.String(),
		)
		return fmt.Errorf("gormModuleRepository.Update: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return model.ErrNotFound
	}
	return nil
}

// DeleteCascade はモジュールとその配下 (トピック→レッスン/演習→段落) を削除します。
func (r *gormModuleRepository) DeleteCascade(ctx context.Context, tx *gorm.DB, moduleID uuid.UUID) error {
	logger := middleware.GetLogger(ctx)

	var topicIDs []uuid.UUID
	if err := tx.WithContext(ctx).Model(&model.Topic{}).Where("module_id = ?", moduleID).Pluck("topic_id", &topicIDs).Error; err != nil {
		logger.Error("Error listing topics for module cascade delete", "error", err, "module_id", moduleID.String())
		return fmt.Errorf("gormModuleRepository.DeleteCascade: %w", err)
	}

	if len(topicIDs) > 0 {
		if err := deleteTopicChildren(ctx, tx, topicIDs); err != nil {
			return fmt.Errorf("gormModuleRepository.DeleteCascade: %w", err)
		}
		if err := tx.WithContext(ctx).Where("topic_id IN ?", topicIDs).Delete(&model.Topic{}).Error; err != nil {
			return fmt.Errorf("gormModuleRepository.DeleteCascade: %w", err)
		}
	}

	result := tx.WithContext(ctx).Where("module_id = ?", moduleID).Delete(&model.Module{})
	if result.Error != nil {
		logger.Error("Error deleting module in DB", "error", result.Error, "module_id", moduleID.String())
		return fmt.Errorf("gormModuleRepository.DeleteCascade: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return model.ErrNotFound
	}
	return nil
}
