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

// ExerciseService インターフェース
type ExerciseService interface {
	CreateExercise(ctx context.Context, req *model.PostExerciseRequest) (*model.ExerciseResponse, error)
	GetExercise(ctx context.Context, exerciseID uuid.UUID) (*model.ExerciseResponse, error)
	ListExercises(ctx context.Context) ([]*model.ExerciseResponse, error)
	DeleteExercise(ctx context.Context, exerciseID uuid.UUID) error
}

type exerciseService struct {
	db           *gorm.DB
	exerciseRepo repository.ExerciseRepository
	topicRepo    repository.TopicRepository
	store        storage.ObjectStore
}

func NewExerciseService(db *gorm.DB, exerciseRepo repository.ExerciseRepository, topicRepo repository.TopicRepository, store storage.ObjectStore) ExerciseService {
	return &exerciseService{
		db:           db,
		exerciseRepo: exerciseRepo,
		topicRepo:    topicRepo,
		store:        store,
	}
}

// CreateExercise はコード本文をオブジェクトストアへ退避してから行を作成します。
// ストアへの保存が一つでも失敗した場合、行は作成されません。
// 先行して保存済みの本文は孤児として残る可能性があります (ログにのみ記録)。
func (s *exerciseService) CreateExercise(ctx context.Context, req *model.PostExerciseRequest) (*model.ExerciseResponse, error) {
	logger := middleware.GetLogger(ctx)

	var created *model.Exercise

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// 親トピックの存在確認
		if _, err := s.topicRepo.FindByID(ctx, tx, req.TopicID); err != nil {
			if errors.Is(err, model.ErrNotFound) {
				return model.NewAppError("TOPIC_NOT_FOUND", "指定されたトピックが見つかりません。", "topic_id", model.ErrNotFound)
			}
			return model.NewAppError("INTERNAL_SERVER_ERROR", "サーバー内部でエラーが発生しました。", "", err)
		}

		starterKey, err := s.store.Put(ctx, req.StarterCode)
		if err != nil {
			logger.Error("Failed to store starter code", "error", err)
			return model.NewAppError("UPSTREAM_STORAGE_ERROR", "外部ストレージへの保存に失敗しました。", "starter_code", model.ErrUpstreamStorage)
		}

		expectedKey, err := s.store.Put(ctx, req.ExpectedOutput)
		if err != nil {
			// 先に保存したスターターコードは孤児になる
			logger.Error("Failed to store expected output, starter code blob orphaned",
				"error", err,
				"orphaned_key", starterKey,
			)
			return model.NewAppError("UPSTREAM_STORAGE_ERROR", "外部ストレージへの保存に失敗しました。", "expected_output", model.ErrUpstreamStorage)
		}

		created = &model.Exercise{
			ExerciseID:        uuid.New(),
			ExerciseName:      req.ExerciseName,
			TopicID:           req.TopicID,
			StarterCodeKey:    starterKey,
			ExpectedOutputKey: expectedKey,
		}
		if err := s.exerciseRepo.Create(ctx, tx, created); err != nil {
			return model.NewAppError("INTERNAL_SERVER_ERROR", "演習の作成に失敗しました。", "", err)
		}
		return nil // コミット
	})
	if err != nil {
		return nil, err
	}

	logger.Info("Exercise created successfully", "exercise_id", created.ExerciseID.String())

	// レスポンスはリクエストの本文をそのまま返せる (保存済みのため)
	return &model.ExerciseResponse{
		ExerciseID:     created.ExerciseID,
		ExerciseName:   created.ExerciseName,
		TopicID:        created.TopicID,
		StarterCode:    req.StarterCode,
		ExpectedOutput: req.ExpectedOutput,
		CreatedAt:      created.CreatedAt,
	}, nil
}

// GetExercise は行を取得し、オブジェクトストアから本文を復元して返します。
func (s *exerciseService) GetExercise(ctx context.Context, exerciseID uuid.UUID) (*model.ExerciseResponse, error) {
	exercise, err := s.exerciseRepo.FindByID(ctx, s.db, exerciseID)
	if err != nil {
		return nil, err
	}
	return ResolveExercise(ctx, s.store, exercise)
}

func (s *exerciseService) ListExercises(ctx context.Context) ([]*model.ExerciseResponse, error) {
	exercises, err := s.exerciseRepo.FindAll(ctx, s.db)
	if err != nil {
		return nil, err
	}

	responses := make([]*model.ExerciseResponse, 0, len(exercises))
	for _, exercise := range exercises {
		resp, err := ResolveExercise(ctx, s.store, exercise)
		if err != nil {
			return nil, err
		}
		responses = append(responses, resp)
	}
	return responses, nil
}

// DeleteExercise は演習の行と段落を削除します。ストア上の本文は残します。
func (s *exerciseService) DeleteExercise(ctx context.Context, exerciseID uuid.UUID) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return s.exerciseRepo.Delete(ctx, tx, exerciseID)
	})
}

// ResolveExercise はDB行の不透明キーをオブジェクトストアで解決し、
// 本文入りの公開表現を組み立てます。本文が一つでも取得できない場合は
// 読み取り全体を失敗させます (部分的なレスポンスは返さない)。
func ResolveExercise(ctx context.Context, store storage.ObjectStore, exercise *model.Exercise) (*model.ExerciseResponse, error) {
	logger := middleware.GetLogger(ctx)

	starterCode, err := store.Get(ctx, exercise.StarterCodeKey)
	if err != nil {
		logger.Error("Failed to resolve starter code",
			"error", err,
			"exercise_id", exercise.ExerciseID.String(),
		)
		return nil, model.NewAppError("UPSTREAM_STORAGE_ERROR", "外部ストレージからの取得に失敗しました。", "", model.ErrUpstreamStorage)
	}

	expectedOutput, err := store.Get(ctx, exercise.ExpectedOutputKey)
	if err != nil {
		logger.Error("Failed to resolve expected output",
			"error", err,
			"exercise_id", exercise.ExerciseID.String(),
		)
		return nil, model.NewAppError("UPSTREAM_STORAGE_ERROR", "外部ストレージからの取得に失敗しました。", "", model.ErrUpstreamStorage)
	}

	return &model.ExerciseResponse{
		ExerciseID:     exercise.ExerciseID,
		ExerciseName:   exercise.ExerciseName,
		TopicID:        exercise.TopicID,
		StarterCode:    starterCode,
		ExpectedOutput: expectedOutput,
		CreatedAt:      exercise.CreatedAt,
	}, nil
}
