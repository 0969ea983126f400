package service

import (
	"context"
	"errors"

	"go_lms_backend/internal/middleware"
	"go_lms_backend/internal/model"
	"go_lms_backend/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// LessonService はレッスンと段落 (TextBlock) の操作を提供します。
type LessonService interface {
	CreateLesson(ctx context.Context, req *model.PostLessonRequest) (*model.LessonResponse, error)
	ListLessons(ctx context.Context) ([]*model.LessonResponse, error)
	GetLesson(ctx context.Context, lessonID uuid.UUID) (*model.LessonResponse, error)
	DeleteLesson(ctx context.Context, lessonID uuid.UUID) error

	CreateTextBlock(ctx context.Context, req *model.PostTextBlockRequest) (*model.TextBlock, error)
	ListTextBlocks(ctx context.Context) ([]*model.TextBlock, error)
	GetTextBlock(ctx context.Context, textBlockID uuid.UUID) (*model.TextBlock, error)
	DeleteTextBlock(ctx context.Context, textBlockID uuid.UUID) error
}

type lessonService struct {
	db            *gorm.DB
	lessonRepo    repository.LessonRepository
	topicRepo     repository.TopicRepository
	exerciseRepo  repository.ExerciseRepository
	textBlockRepo repository.TextBlockRepository
}

func NewLessonService(db *gorm.DB, lessonRepo repository.LessonRepository, topicRepo repository.TopicRepository, exerciseRepo repository.ExerciseRepository, textBlockRepo repository.TextBlockRepository) LessonService {
	return &lessonService{
		db:            db,
		lessonRepo:    lessonRepo,
		topicRepo:     topicRepo,
		exerciseRepo:  exerciseRepo,
		textBlockRepo: textBlockRepo,
	}
}

// CreateLesson はレッスンと同梱の段落群を単一トランザクションで作成します。
// 段落が一つでも作成できない場合はレッスンごとロールバックします。
func (s *lessonService) CreateLesson(ctx context.Context, req *model.PostLessonRequest) (*model.LessonResponse, error) {
	logger := middleware.GetLogger(ctx)

	var lesson *model.Lesson

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// 親トピックの存在確認
		if _, err := s.topicRepo.FindByID(ctx, tx, req.TopicID); err != nil {
			if errors.Is(err, model.ErrNotFound) {
				return model.NewAppError("TOPIC_NOT_FOUND", "指定されたトピックが見つかりません。", "topic_id", model.ErrNotFound)
			}
			return model.NewAppError("INTERNAL_SERVER_ERROR", "サーバー内部でエラーが発生しました。", "", err)
		}

		lesson = &model.Lesson{
			LessonID:   uuid.New(),
			LessonName: req.LessonName,
			TopicID:    req.TopicID,
		}
		if err := s.lessonRepo.Create(ctx, tx, lesson); err != nil {
			return model.NewAppError("INTERNAL_SERVER_ERROR", "レッスンの作成に失敗しました。", "", err)
		}

		// 同梱の段落をまとめて作成。段落番号の重複はリクエスト内もDBも許さない。
		seen := make(map[int]bool, len(req.TextBlocks))
		for i := range req.TextBlocks {
			blockReq := &req.TextBlocks[i]
			if seen[blockReq.ParagraphNumber] {
				return model.NewAppError("DUPLICATE_PARAGRAPH_NUMBER", "同じ段落番号が複数指定されています。", "paragraph_number", model.ErrConflict)
			}
			seen[blockReq.ParagraphNumber] = true

			block := &model.TextBlock{
				TextBlockID:     uuid.New(),
				Text:            blockReq.Text,
				TextFormat:      blockReq.TextFormat,
				ParagraphNumber: blockReq.ParagraphNumber,
				LessonID:        &lesson.LessonID,
			}
			if err := s.textBlockRepo.Create(ctx, tx, block); err != nil {
				return model.NewAppError("INTERNAL_SERVER_ERROR", "段落の作成に失敗しました。", "", err)
			}
			lesson.TextBlocks = append(lesson.TextBlocks, *block)
		}
		return nil // コミット
	})
	if err != nil {
		return nil, err
	}

	logger.Info("Lesson created successfully",
		"lesson_id", lesson.LessonID.String(),
		"text_blocks", len(lesson.TextBlocks),
	)
	return model.NewLessonResponse(lesson), nil
}

func (s *lessonService) ListLessons(ctx context.Context) ([]*model.LessonResponse, error) {
	lessons, err := s.lessonRepo.FindAllWithTextBlocks(ctx, s.db)
	if err != nil {
		return nil, err
	}
	responses := make([]*model.LessonResponse, 0, len(lessons))
	for _, lesson := range lessons {
		responses = append(responses, model.NewLessonResponse(lesson))
	}
	return responses, nil
}

func (s *lessonService) GetLesson(ctx context.Context, lessonID uuid.UUID) (*model.LessonResponse, error) {
	lesson, err := s.lessonRepo.FindByIDWithTextBlocks(ctx, s.db, lessonID)
	if err != nil {
		return nil, err
	}
	return model.NewLessonResponse(lesson), nil
}

// DeleteLesson はレッスンとその段落を削除します。
func (s *lessonService) DeleteLesson(ctx context.Context, lessonID uuid.UUID) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return s.lessonRepo.Delete(ctx, tx, lessonID)
	})
}

// CreateTextBlock は既存のレッスンまたは演習に段落を追加します。
// LessonID / ExerciseID はちょうど一方だけ指定されている必要があります。
func (s *lessonService) CreateTextBlock(ctx context.Context, req *model.PostTextBlockRequest) (*model.TextBlock, error) {
	logger := middleware.GetLogger(ctx)

	if (req.LessonID == nil) == (req.ExerciseID == nil) {
		return nil, model.NewAppError("INVALID_PARENT", "lesson_id または exercise_id のどちらか一方を指定してください。", "", model.ErrInvalidInput)
	}

	var block *model.TextBlock

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// 親の存在確認
		if req.LessonID != nil {
			if _, err := s.lessonRepo.FindByID(ctx, tx, *req.LessonID); err != nil {
				if errors.Is(err, model.ErrNotFound) {
					return model.NewAppError("LESSON_NOT_FOUND", "指定されたレッスンが見つかりません。", "lesson_id", model.ErrNotFound)
				}
				return model.NewAppError("INTERNAL_SERVER_ERROR", "サーバー内部でエラーが発生しました。", "", err)
			}
		} else {
			if _, err := s.exerciseRepo.FindByID(ctx, tx, *req.ExerciseID); err != nil {
				if errors.Is(err, model.ErrNotFound) {
					return model.NewAppError("EXERCISE_NOT_FOUND", "指定された演習が見つかりません。", "exercise_id", model.ErrNotFound)
				}
				return model.NewAppError("INTERNAL_SERVER_ERROR", "サーバー内部でエラーが発生しました。", "", err)
			}
		}

		// 同一親内での段落番号の重複チェック
		exists, err := s.textBlockRepo.CheckParagraphExists(ctx, tx, req.LessonID, req.ExerciseID, req.ParagraphNumber)
		if err != nil {
			return model.NewAppError("INTERNAL_SERVER_ERROR", "サーバー内部でエラーが発生しました。", "", err)
		}
		if exists {
			return model.NewAppError("DUPLICATE_PARAGRAPH_NUMBER", "この段落番号は既に使用されています。", "paragraph_number", model.ErrConflict)
		}

		block = &model.TextBlock{
			TextBlockID:     uuid.New(),
			Text:            req.Text,
			TextFormat:      req.TextFormat,
			ParagraphNumber: req.ParagraphNumber,
			LessonID:        req.LessonID,
			ExerciseID:      req.ExerciseID,
		}
		if err := s.textBlockRepo.Create(ctx, tx, block); err != nil {
			return model.NewAppError("INTERNAL_SERVER_ERROR", "段落の作成に失敗しました。", "", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info("Text block created successfully", "text_block_id", block.TextBlockID.String())
	return block, nil
}

func (s *lessonService) ListTextBlocks(ctx context.Context) ([]*model.TextBlock, error) {
	return s.textBlockRepo.FindAll(ctx, s.db)
}

func (s *lessonService) GetTextBlock(ctx context.Context, textBlockID uuid.UUID) (*model.TextBlock, error) {
	return s.textBlockRepo.FindByID(ctx, s.db, textBlockID)
}

func (s *lessonService) DeleteTextBlock(ctx context.Context, textBlockID uuid.UUID) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return s.textBlockRepo.Delete(ctx, tx, textBlockID)
	})
}
