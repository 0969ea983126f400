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

// TopicRepository インターフェース
type TopicRepository interface {
	Create(ctx context.Context, tx *gorm.DB, topic *model.Topic) error
	FindByID(ctx context.Context, db *gorm.DB, topicID uuid.UUID) (*model.Topic, error)
	FindByIDWithChildren(ctx context.Context, db *gorm.DB, topicID uuid.UUID) (*model.Topic, error)
	FindAllWithChildren(ctx context.Context, db *gorm.DB) ([]*model.Topic, error)
	Update(ctx context.Context, tx *gorm.DB, topicID uuid.UUID, updates map[string]interface{}) error
	DeleteCascade(ctx context.Context, tx *gorm.DB, topicID uuid.UUID) error
}

type gormTopicRepository struct{}

func NewGormTopicRepository() TopicRepository {
	return &gormTopicRepository{}
}

func (r *gormTopicRepository) Create(ctx context.Context, tx *gorm.DB, topic *model.Topic) error {
	logger := middleware.GetLogger(ctx)
	result := tx.WithContext(ctx).Create(topic)
	if result.Error != nil {
		logger.Error("Error creating topic in DB",
			"error", result.Error,
			"topic_name", topic.TopicName,
		)
		return fmt.Errorf("gormTopicRepository.Create: %w", result.Error)
	}
	return nil
}

func (r *gormTopicRepository) FindByID(ctx context.Context, db *gorm.DB, topicID uuid.UUID) (*model.Topic, error) {
	logger := middleware.GetLogger(ctx)
	var topic model.Topic
	result := db.WithContext(ctx).Where("topic_id = ?", topicID).First(&topic)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, model.ErrNotFound
		}
		logger.Error("Error finding topic by ID in DB",
			"error", result.Error,
			"topic_id", topicID.String(),
		)
		return nil, fmt.Errorf("gormTopicRepository.FindByID: %w", result.Error)
	}
	return &topic, nil
}

// FindByIDWithChildren はレッスン(段落込み)と演習をプリロードして取得します。
func (r *gormTopicRepository) FindByIDWithChildren(ctx context.Context, db *gorm.DB, topicID uuid.UUID) (*model.Topic, error) {
	logger := middleware.GetLogger(ctx)
	var topic model.Topic
	result := db.WithContext(ctx).
		Preload("Lessons", func(db *gorm.DB) *gorm.DB {
			return db.Order("lessons.created_at ASC")
		}).
		Preload("Lessons.TextBlocks", func(db *gorm.DB) *gorm.DB {
			return db.Order("text_blocks.paragraph_number ASC")
		}).
		Preload("Exercises", func(db *gorm.DB) *gorm.DB {
			return db.Order("exercises.created_at ASC")
		}).
		Where("topic_id = ?", topicID).
		First(&topic)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, model.ErrNotFound
		}
		logger.Error("Error finding topic with children in DB",
			"error", result.Error,
			"topic_id", topicID.String(),
		)
		return nil, fmt.Errorf("gormTopicRepository.FindByIDWithChildren: %w", result.Error)
	}
	return &topic, nil
}

func (r *gormTopicRepository) FindAllWithChildren(ctx context.Context, db *gorm.DB) ([]*model.Topic, error) {
	logger := middleware.GetLogger(ctx)
	var topics []*model.Topic
	result := db.WithContext(ctx).
		Preload("Lessons", func(db *gorm.DB) *gorm.DB {
			return db.Order("lessons.created_at ASC")
		}).
		Preload("Lessons.TextBlocks", func(db *gorm.DB) *gorm.DB {
			return db.Order("text_blocks.paragraph_number ASC")
		}).
		Preload("Exercises", func(db *gorm.DB) *gorm.DB {
			return db.Order("exercises.created_at ASC")
		}).
		Order("created_at ASC").
		Find(&topics)
	if result.Error != nil {
		logger.Error("Error finding topics in DB", "error", result.Error)
		return nil, fmt.Errorf("gormTopicRepository.FindAllWithChildren: %w", result.Error)
	}
	return topics, nil
}

func (r *gormTopicRepository) Update(ctx context.Context, tx *gorm.DB, topicID uuid.UUID, updates map[string]interface{}) error {
	logger := middleware.GetLogger(ctx)
	if len(updates) == 0 {
		return nil
	}
	result := tx.WithContext(ctx).Model(&model.Topic{}).Where("topic_id = ?", topicID).Updates(updates)
	if result.Error != nil {
		logger.Error("Error updating topic in DB",
			"error", result.Error,
			"topic_id", topicID.String(),
		)
		return fmt.Errorf("gormTopicRepository.Update: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return model.ErrNotFound
	}
	return nil
}

// DeleteCascade はトピックとその配下 (レッスン/演習→段落) を削除します。
func (r *gormTopicRepository) DeleteCascade(ctx context.Context, tx *gorm.DB, topicID uuid.UUID) error {
	logger := middleware.GetLogger(ctx)

	if err := deleteTopicChildren(ctx, tx, []uuid.UUID{topicID}); err != nil {
		return fmt.Errorf("gormTopicRepository.DeleteCascade: %w", err)
	}

	result := tx.WithContext(ctx).Where("topic_id = ?", topicID).Delete(&model.Topic{})
	if result.Error != nil {
		logger.Error("Error deleting topic in DB", "error", result.Error, "topic_id", topicID.String())
		return fmt.Errorf("gormTopicRepository.DeleteCascade: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return model.ErrNotFound
	}
	return nil
}

// deleteTopicChildren は指定トピック群の配下にあるレッスン・演習・段落を削除します。
// 段落 → レッスン/演習 の順に消すことで外部キー制約に違反しないようにしています。
func deleteTopicChildren(ctx context.Context, tx *gorm.DB, topicIDs []uuid.UUID) error {
	if len(topicIDs) == 0 {
		return nil
	}

	var lessonIDs []uuid.UUID
	if err := tx.WithContext(ctx).Model(&model.Lesson{}).Where("topic_id IN ?", topicIDs).Pluck("lesson_id", &lessonIDs).Error; err != nil {
		return err
	}
	var exerciseIDs []uuid.UUID
	if err := tx.WithContext(ctx).Model(&model.Exercise{}).Where("topic_id IN ?", topicIDs).Pluck("exercise_id", &exerciseIDs).Error; err != nil {
		return err
	}

	if len(lessonIDs) > 0 {
		if err := tx.WithContext(ctx).Where("lesson_id IN ?", lessonIDs).Delete(&model.TextBlock{}).Error; err != nil {
			return err
		}
		if err := tx.WithContext(ctx).Where("lesson_id IN ?", lessonIDs).Delete(&model.Lesson{}).Error; err != nil {
			return err
		}
	}
	if len(exerciseIDs) > 0 {
		if err := tx.WithContext(ctx).Where("exercise_id IN ?", exerciseIDs).Delete(&model.TextBlock{}).Error; err != nil {
			return err
		}
		if err := tx.WithContext(ctx).Where("exercise_id IN ?", exerciseIDs).Delete(&model.Exercise{}).Error; err != nil {
			return err
		}
	}
	return nil
}
