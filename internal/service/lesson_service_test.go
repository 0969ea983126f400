// internal/service/lesson_service_test.go
package service

import (
	"context"
	"errors"
	"testing"

	"go_lms_backend/internal/model"
	"go_lms_backend/internal/repository"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newLessonService(db *gorm.DB) LessonService {
	return NewLessonService(
		db,
		repository.NewGormLessonRepository(),
		repository.NewGormTopicRepository(),
		repository.NewGormExerciseRepository(),
		repository.NewGormTextBlockRepository(),
	)
}

func Test_lessonService_CreateLesson(t *testing.T) {
	ctx := context.Background()

	t.Run("正常系: レッスンと同梱の段落が一括で作成される", func(t *testing.T) {
		db := setupTestDB(t)
		_, _, topic := seedCurriculum(t, db)
		svc := newLessonService(db)

		resp, err := svc.CreateLesson(ctx, &model.PostLessonRequest{
			LessonName: "Loops",
			TopicID:    topic.TopicID,
			TextBlocks: []model.PostLessonTextBlockRequest{
				{Text: "繰り返しとは", TextFormat: model.TextFormatText, ParagraphNumber: 1},
				{Text: "for i in range(10):", TextFormat: model.TextFormatCode, ParagraphNumber: 2},
			},
		})
		require.NoError(t, err)
		assert.Equal(t, "Loops", resp.LessonName)
		require.Len(t, resp.TextBlocks, 2)

		var count int64
		require.NoError(t, db.Model(&model.TextBlock{}).Count(&count).Error)
		assert.Equal(t, int64(2), count)
	})

	t.Run("正常系: 段落なしのレッスンも作成できる", func(t *testing.T) {
		db := setupTestDB(t)
		_, _, topic := seedCurriculum(t, db)
		svc := newLessonService(db)

		resp, err := svc.CreateLesson(ctx, &model.PostLessonRequest{
			LessonName: "Empty Lesson",
			TopicID:    topic.TopicID,
		})
		require.NoError(t, err)
		assert.Empty(t, resp.TextBlocks)
	})

	t.Run("異常系: 親トピックが存在しない場合はレッスンも段落も作られない", func(t *testing.T) {
		db := setupTestDB(t)
		svc := newLessonService(db)

		_, err := svc.CreateLesson(ctx, &model.PostLessonRequest{
			LessonName: "Orphan",
			TopicID:    uuid.New(),
			TextBlocks: []model.PostLessonTextBlockRequest{
				{Text: "x", TextFormat: model.TextFormatText, ParagraphNumber: 1},
			},
		})
		require.Error(t, err)
		assert.True(t, errors.Is(err, model.ErrNotFound))

		var count int64
		require.NoError(t, db.Model(&model.Lesson{}).Count(&count).Error)
		assert.Equal(t, int64(0), count)
		require.NoError(t, db.Model(&model.TextBlock{}).Count(&count).Error)
		assert.Equal(t, int64(0), count)
	})

	t.Run("異常系: リクエスト内で段落番号が重複するとレッスンごとロールバック", func(t *testing.T) {
		db := setupTestDB(t)
		_, _, topic := seedCurriculum(t, db)
		svc := newLessonService(db)

		_, err := svc.CreateLesson(ctx, &model.PostLessonRequest{
			LessonName: "Duplicated",
			TopicID:    topic.TopicID,
			TextBlocks: []model.PostLessonTextBlockRequest{
				{Text: "a", TextFormat: model.TextFormatText, ParagraphNumber: 1},
				{Text: "b", TextFormat: model.TextFormatText, ParagraphNumber: 1},
			},
		})
		require.Error(t, err)
		assert.True(t, errors.Is(err, model.ErrConflict))

		var count int64
		require.NoError(t, db.Model(&model.Lesson{}).Count(&count).Error)
		assert.Equal(t, int64(0), count)
		require.NoError(t, db.Model(&model.TextBlock{}).Count(&count).Error)
		assert.Equal(t, int64(0), count)
	})
}

func Test_lessonService_CreateTextBlock(t *testing.T) {
	ctx := context.Background()

	seedLessonAndExercise := func(t *testing.T, db *gorm.DB) (*model.Lesson, *model.Exercise) {
		_, _, topic := seedCurriculum(t, db)
		lesson := &model.Lesson{LessonID: uuid.New(), LessonName: "L", TopicID: topic.TopicID}
		require.NoError(t, db.Create(lesson).Error)
		exercise := &model.Exercise{
			ExerciseID:        uuid.New(),
			ExerciseName:      "E",
			TopicID:           topic.TopicID,
			StarterCodeKey:    "k1",
			ExpectedOutputKey: "k2",
		}
		require.NoError(t, db.Create(exercise).Error)
		return lesson, exercise
	}

	t.Run("正常系: レッスン配下に段落を追加できる", func(t *testing.T) {
		db := setupTestDB(t)
		lesson, _ := seedLessonAndExercise(t, db)
		svc := newLessonService(db)

		block, err := svc.CreateTextBlock(ctx, &model.PostTextBlockRequest{
			Text:            "段落本文",
			TextFormat:      model.TextFormatText,
			ParagraphNumber: 1,
			LessonID:        &lesson.LessonID,
		})
		require.NoError(t, err)
		require.NotNil(t, block.LessonID)
		assert.Equal(t, lesson.LessonID, *block.LessonID)
		assert.Nil(t, block.ExerciseID)
	})

	t.Run("正常系: 演習配下に段落を追加できる", func(t *testing.T) {
		db := setupTestDB(t)
		_, exercise := seedLessonAndExercise(t, db)
		svc := newLessonService(db)

		block, err := svc.CreateTextBlock(ctx, &model.PostTextBlockRequest{
			Text:            "ヒント",
			TextFormat:      model.TextFormatEditor,
			ParagraphNumber: 1,
			ExerciseID:      &exercise.ExerciseID,
		})
		require.NoError(t, err)
		require.NotNil(t, block.ExerciseID)
		assert.Nil(t, block.LessonID)
	})

	t.Run("異常系: 親を両方指定すると400相当", func(t *testing.T) {
		db := setupTestDB(t)
		lesson, exercise := seedLessonAndExercise(t, db)
		svc := newLessonService(db)

		_, err := svc.CreateTextBlock(ctx, &model.PostTextBlockRequest{
			Text:            "x",
			TextFormat:      model.TextFormatText,
			ParagraphNumber: 1,
			LessonID:        &lesson.LessonID,
			ExerciseID:      &exercise.ExerciseID,
		})
		require.Error(t, err)
		assert.True(t, errors.Is(err, model.ErrInvalidInput))
	})

	t.Run("異常系: 親をどちらも指定しないと400相当", func(t *testing.T) {
		db := setupTestDB(t)
		svc := newLessonService(db)

		_, err := svc.CreateTextBlock(ctx, &model.PostTextBlockRequest{
			Text:            "x",
			TextFormat:      model.TextFormatText,
			ParagraphNumber: 1,
		})
		require.Error(t, err)
		assert.True(t, errors.Is(err, model.ErrInvalidInput))
	})

	t.Run("異常系: 同一親内の段落番号の重複は409相当", func(t *testing.T) {
		db := setupTestDB(t)
		lesson, exercise := seedLessonAndExercise(t, db)
		svc := newLessonService(db)

		_, err := svc.CreateTextBlock(ctx, &model.PostTextBlockRequest{
			Text:            "first",
			TextFormat:      model.TextFormatText,
			ParagraphNumber: 1,
			LessonID:        &lesson.LessonID,
		})
		require.NoError(t, err)

		_, err = svc.CreateTextBlock(ctx, &model.PostTextBlockRequest{
			Text:            "second",
			TextFormat:      model.TextFormatText,
			ParagraphNumber: 1,
			LessonID:        &lesson.LessonID,
		})
		require.Error(t, err)
		assert.True(t, errors.Is(err, model.ErrConflict))

		// 別親なら同じ段落番号でも作成できる
		_, err = svc.CreateTextBlock(ctx, &model.PostTextBlockRequest{
			Text:            "other parent",
			TextFormat:      model.TextFormatText,
			ParagraphNumber: 1,
			ExerciseID:      &exercise.ExerciseID,
		})
		require.NoError(t, err)
	})

	t.Run("異常系: 存在しないレッスンには段落を追加できない", func(t *testing.T) {
		db := setupTestDB(t)
		svc := newLessonService(db)

		missing := uuid.New()
		_, err := svc.CreateTextBlock(ctx, &model.PostTextBlockRequest{
			Text:            "x",
			TextFormat:      model.TextFormatText,
			ParagraphNumber: 1,
			LessonID:        &missing,
		})
		require.Error(t, err)
		assert.True(t, errors.Is(err, model.ErrNotFound))
	})
}

func Test_lessonService_DeleteLesson(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	_, _, topic := seedCurriculum(t, db)
	svc := newLessonService(db)

	resp, err := svc.CreateLesson(ctx, &model.PostLessonRequest{
		LessonName: "ToDelete",
		TopicID:    topic.TopicID,
		TextBlocks: []model.PostLessonTextBlockRequest{
			{Text: "a", TextFormat: model.TextFormatText, ParagraphNumber: 1},
		},
	})
	require.NoError(t, err)

	require.NoError(t, svc.DeleteLesson(ctx, resp.LessonID))

	var count int64
	require.NoError(t, db.Model(&model.Lesson{}).Count(&count).Error)
	assert.Equal(t, int64(0), count)
	require.NoError(t, db.Model(&model.TextBlock{}).Count(&count).Error)
	assert.Equal(t, int64(0), count)

	err = svc.DeleteLesson(ctx, resp.LessonID)
	require.Error(t, err)
	assert.True(t, errors.Is(err, model.ErrNotFound))
}

func Test_lessonService_GetLesson(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	_, _, topic := seedCurriculum(t, db)
	svc := newLessonService(db)

	created, err := svc.CreateLesson(ctx, &model.PostLessonRequest{
		LessonName: "Ordered",
		TopicID:    topic.TopicID,
		TextBlocks: []model.PostLessonTextBlockRequest{
			{Text: "three", TextFormat: model.TextFormatText, ParagraphNumber: 3},
			{Text: "one", TextFormat: model.TextFormatText, ParagraphNumber: 1},
			{Text: "two", TextFormat: model.TextFormatText, ParagraphNumber: 2},
		},
	})
	require.NoError(t, err)

	got, err := svc.GetLesson(ctx, created.LessonID)
	require.NoError(t, err)
	require.Len(t, got.TextBlocks, 3)
	// 段落は段落番号順で返る
	assert.Equal(t, "one", got.TextBlocks[0].Text)
	assert.Equal(t, "two", got.TextBlocks[1].Text)
	assert.Equal(t, "three", got.TextBlocks[2].Text)
}
