package service

import (
	"context"
	"errors"

	"go_lms_backend/internal/middleware"
	"go_lms_backend/internal/model"
	"go_lms_backend/internal/repository"
	"go_lms_backend/internal/storage"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CurriculumService は Language / Module / Topic のCRUDを提供します。
type CurriculumService interface {
	CreateLanguage(ctx context.Context, req *model.PostLanguageRequest) (*model.Language, error)
	ListLanguages(ctx context.Context) ([]*model.Language, error)
	GetLanguage(ctx context.Context, languageID uuid.UUID) (*model.Language, error)
	DeleteLanguage(ctx context.Context, languageID uuid.UUID) error

	CreateModule(ctx context.Context, req *model.PostModuleRequest) (*model.Module, error)
	ListModules(ctx context.Context) ([]*model.Module, error)
	GetModule(ctx context.Context, moduleID uuid.UUID) (*model.Module, error)
	UpdateModule(ctx context.Context, moduleID uuid.UUID, req *model.PutModuleRequest) (*model.Module, error)
	PatchModule(ctx context.Context, moduleID uuid.UUID, req *model.PatchModuleRequest) (*model.Module, error)
	DeleteModule(ctx context.Context, moduleID uuid.UUID) error

	CreateTopic(ctx context.Context, req *model.PostTopicRequest) (*model.Topic, error)
	ListTopics(ctx context.Context) ([]*model.TopicResponse, error)
	GetTopic(ctx context.Context, topicID uuid.UUID) (*model.TopicResponse, error)
	UpdateTopic(ctx context.Context, topicID uuid.UUID, req *model.PutTopicRequest) (*model.Topic, error)
	PatchTopic(ctx context.Context, topicID uuid.UUID, req *model.PatchTopicRequest) (*model.Topic, error)
	DeleteTopic(ctx context.Context, topicID uuid.UUID) error
}

type curriculumService struct {
	db           *gorm.DB
	languageRepo repository.LanguageRepository
	moduleRepo   repository.ModuleRepository
	topicRepo    repository.TopicRepository
	store        storage.ObjectStore
}

func NewCurriculumService(db *gorm.DB, languageRepo repository.LanguageRepository, moduleRepo repository.ModuleRepository, topicRepo repository.TopicRepository, store storage.ObjectStore) CurriculumService {
	return &curriculumService{
		db:           db,
		languageRepo: languageRepo,
		moduleRepo:   moduleRepo,
		topicRepo:    topicRepo,
		store:        store,
	}
}

// --- Language ---

func (s *curriculumService) CreateLanguage(ctx context.Context, req *model.PostLanguageRequest) (*model.Language, error) {
	logger := middleware.GetLogger(ctx)

	language := &model.Language{
		LanguageID:   uuid.New(),
		LanguageName: req.LanguageName,
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.languageRepo.Create(ctx, tx, language); err != nil {
			return model.NewAppError("INTERNAL_SERVER_ERROR", "言語の作成に失敗しました。", "", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info("Language created successfully", "language_id", language.LanguageID.String())
	return language, nil
}

func (s *curriculumService) ListLanguages(ctx context.Context) ([]*model.Language, error) {
	return s.languageRepo.FindAll(ctx, s.db)
}

func (s *curriculumService) GetLanguage(ctx context.Context, languageID uuid.UUID) (*model.Language, error) {
	return s.languageRepo.FindByID(ctx, s.db, languageID)
}

// DeleteLanguage は言語とその配下の階層全体を削除します。
func (s *curriculumService) DeleteLanguage(ctx context.Context, languageID uuid.UUID) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return s.languageRepo.DeleteCascade(ctx, tx, languageID)
	})
}

// --- Module ---

func (s *curriculumService) CreateModule(ctx context.Context, req *model.PostModuleRequest) (*model.Module, error) {
	logger := middleware.GetLogger(ctx)

	var module *model.Module
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// 親言語の存在確認
		if _, err := s.languageRepo.FindByID(ctx, tx, req.LanguageID); err != nil {
			if errors.Is(err, model.ErrNotFound) {
				return model.NewAppError("LANGUAGE_NOT_FOUND", "指定された言語が見つかりません。", "language_id", model.ErrNotFound)
			}
			return model.NewAppError("INTERNAL_SERVER_ERROR", "サーバー内部でエラーが発生しました。", "", err)
		}

		module = &model.Module{
			ModuleID:   uuid.New(),
			ModuleName: req.ModuleName,
			LanguageID: req.LanguageID,
		}
		if err := s.moduleRepo.Create(ctx, tx, module); err != nil {
			return model.NewAppError("INTERNAL_SERVER_ERROR", "モジュールの作成に失敗しました。", "", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info("Module created successfully", "module_id", module.ModuleID.String())
	return module, nil
}

func (s *curriculumService) ListModules(ctx context.Context) ([]*model.Module, error) {
	return s.moduleRepo.FindAll(ctx, s.db)
}

func (s *curriculumService) GetModule(ctx context.Context, moduleID uuid.UUID) (*model.Module, error) {
	return s.moduleRepo.FindByID(ctx, s.db, moduleID)
}

func (s *curriculumService) UpdateModule(ctx context.Context, moduleID uuid.UUID, req *model.PutModuleRequest) (*model.Module, error) {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return s.moduleRepo.Update(ctx, tx, moduleID, map[string]interface{}{
			"module_name": req.ModuleName,
		})
	})
	if err != nil {
		return nil, err
	}
	return s.moduleRepo.FindByID(ctx, s.db, moduleID)
}

func (s *curriculumService) PatchModule(ctx context.Context, moduleID uuid.UUID, req *model.PatchModuleRequest) (*model.Module, error) {
	updates := make(map[string]interface{})
	if req.ModuleName != nil {
		updates["module_name"] = *req.ModuleName
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if len(updates) == 0 {
			// 変更なしでも存在確認だけは行う
			_, err := s.moduleRepo.FindByID(ctx, tx, moduleID)
			return err
		}
		return s.moduleRepo.Update(ctx, tx, moduleID, updates)
	})
	if err != nil {
		return nil, err
	}
	return s.moduleRepo.FindByID(ctx, s.db, moduleID)
}

// DeleteModule はモジュールとその配下を削除します。
func (s *curriculumService) DeleteModule(ctx context.Context, moduleID uuid.UUID) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return s.moduleRepo.DeleteCascade(ctx, tx, moduleID)
	})
}

// --- Topic ---

func (s *curriculumService) CreateTopic(ctx context.Context, req *model.PostTopicRequest) (*model.Topic, error) {
	logger := middleware.GetLogger(ctx)

	var topic *model.Topic
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// 親モジュールの存在確認
		if _, err := s.moduleRepo.FindByID(ctx, tx, req.ModuleID); err != nil {
			if errors.Is(err, model.ErrNotFound) {
				return model.NewAppError("MODULE_NOT_FOUND", "指定されたモジュールが見つかりません。", "module_id", model.ErrNotFound)
			}
			return model.NewAppError("INTERNAL_SERVER_ERROR", "サーバー内部でエラーが発生しました。", "", err)
		}

		topic = &model.Topic{
			TopicID:   uuid.New(),
			TopicName: req.TopicName,
			ModuleID:  req.ModuleID,
		}
		if err := s.topicRepo.Create(ctx, tx, topic); err != nil {
			return model.NewAppError("INTERNAL_SERVER_ERROR", "トピックの作成に失敗しました。", "", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info("Topic created successfully", "topic_id", topic.TopicID.String())
	return topic, nil
}

// ListTopics はレッスン(段落込み)と本文解決済みの演習を埋め込んで返します。
func (s *curriculumService) ListTopics(ctx context.Context) ([]*model.TopicResponse, error) {
	topics, err := s.topicRepo.FindAllWithChildren(ctx, s.db)
	if err != nil {
		return nil, err
	}

	responses := make([]*model.TopicResponse, 0, len(topics))
	for _, topic := range topics {
		resp, err := s.buildTopicResponse(ctx, topic)
		if err != nil {
			return nil, err
		}
		responses = append(responses, resp)
	}
	return responses, nil
}

func (s *curriculumService) GetTopic(ctx context.Context, topicID uuid.UUID) (*model.TopicResponse, error) {
	topic, err := s.topicRepo.FindByIDWithChildren(ctx, s.db, topicID)
	if err != nil {
		return nil, err
	}
	return s.buildTopicResponse(ctx, topic)
}

func (s *curriculumService) UpdateTopic(ctx context.Context, topicID uuid.UUID, req *model.PutTopicRequest) (*model.Topic, error) {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return s.topicRepo.Update(ctx, tx, topicID, map[string]interface{}{
			"topic_name": req.TopicName,
		})
	})
	if err != nil {
		return nil, err
	}
	return s.topicRepo.FindByID(ctx, s.db, topicID)
}

func (s *curriculumService) PatchTopic(ctx context.Context, topicID uuid.UUID, req *model.PatchTopicRequest) (*model.Topic, error) {
	updates := make(map[string]interface{})
	if req.TopicName != nil {
		updates["topic_name"] = *req.TopicName
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if len(updates) == 0 {
			_, err := s.topicRepo.FindByID(ctx, tx, topicID)
			return err
		}
		return s.topicRepo.Update(ctx, tx, topicID, updates)
	})
	if err != nil {
		return nil, err
	}
	return s.topicRepo.FindByID(ctx, s.db, topicID)
}

// DeleteTopic はトピックとその配下を削除します。
func (s *curriculumService) DeleteTopic(ctx context.Context, topicID uuid.UUID) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return s.topicRepo.DeleteCascade(ctx, tx, topicID)
	})
}

func (s *curriculumService) buildTopicResponse(ctx context.Context, topic *model.Topic) (*model.TopicResponse, error) {
	lessons := make([]model.LessonResponse, 0, len(topic.Lessons))
	for i := range topic.Lessons {
		lessons = append(lessons, *model.NewLessonResponse(&topic.Lessons[i]))
	}

	exercises := make([]model.ExerciseResponse, 0, len(topic.Exercises))
	for i := range topic.Exercises {
		resolved, err := ResolveExercise(ctx, s.store, &topic.Exercises[i])
		if err != nil {
			return nil, err
		}
		exercises = append(exercises, *resolved)
	}

	return &model.TopicResponse{
		TopicID:   topic.TopicID,
		TopicName: topic.TopicName,
		ModuleID:  topic.ModuleID,
		Lessons:   lessons,
		Exercises: exercises,
	}, nil
}
