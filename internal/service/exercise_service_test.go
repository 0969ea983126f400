// internal/service/exercise_service_test.go
package service

import (
	"context"
	"errors"
	"testing"

	"go_lms_backend/internal/model"
	"go_lms_backend/internal/repository"
	"go_lms_backend/internal/storage"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockObjectStore はストア障害を注入するための testify モックです。
type MockObjectStore struct {
	mock.Mock
}

func (m *MockObjectStore) Put(ctx context.Context, text string) (string, error) {
	args := m.Called(ctx, text)
	return args.String(0), args.Error(1)
}

func (m *MockObjectStore) Get(ctx context.Context, key string) (string, error) {
	args := m.Called(ctx, key)
	return args.String(0), args.Error(1)
}

func Test_exerciseService_CreateExercise(t *testing.T) {
	ctx := context.Background()

	starterCode := "def main():\n    pass\n"
	expectedOutput := "hello\n"

	t.Run("正常系: 本文がストアに退避され読み出しで復元される", func(t *testing.T) {
		db := setupTestDB(t)
		_, _, topic := seedCurriculum(t, db)
		store := storage.NewMemoryObjectStore()
		svc := NewExerciseService(db, repository.NewGormExerciseRepository(), repository.NewGormTopicRepository(), store)

		created, err := svc.CreateExercise(ctx, &model.PostExerciseRequest{
			ExerciseName:   "FizzBuzz",
			TopicID:        topic.TopicID,
			StarterCode:    starterCode,
			ExpectedOutput: expectedOutput,
		})
		require.NoError(t, err)
		assert.Equal(t, starterCode, created.StarterCode)
		assert.Equal(t, expectedOutput, created.ExpectedOutput)

		// DB行には本文ではなく不透明キーだけが入っている
		var row model.Exercise
		require.NoError(t, db.Where("exercise_id = ?", created.ExerciseID).First(&row).Error)
		assert.NotEmpty(t, row.StarterCodeKey)
		assert.NotEmpty(t, row.ExpectedOutputKey)
		assert.NotEqual(t, starterCode, row.StarterCodeKey)
		assert.NotEqual(t, expectedOutput, row.ExpectedOutputKey)

		// 読み出しで本文が一字一句復元される
		got, err := svc.GetExercise(ctx, created.ExerciseID)
		require.NoError(t, err)
		assert.Equal(t, starterCode, got.StarterCode)
		assert.Equal(t, expectedOutput, got.ExpectedOutput)
	})

	t.Run("正常系: 空文字の本文も許容される", func(t *testing.T) {
		db := setupTestDB(t)
		_, _, topic := seedCurriculum(t, db)
		store := storage.NewMemoryObjectStore()
		svc := NewExerciseService(db, repository.NewGormExerciseRepository(), repository.NewGormTopicRepository(), store)

		created, err := svc.CreateExercise(ctx, &model.PostExerciseRequest{
			ExerciseName:   "Empty",
			TopicID:        topic.TopicID,
			StarterCode:    "",
			ExpectedOutput: "",
		})
		require.NoError(t, err)

		got, err := svc.GetExercise(ctx, created.ExerciseID)
		require.NoError(t, err)
		assert.Equal(t, "", got.StarterCode)
		assert.Equal(t, "", got.ExpectedOutput)
	})

	t.Run("異常系: 親トピックが存在しない場合は404相当で行も作られない", func(t *testing.T) {
		db := setupTestDB(t)
		store := storage.NewMemoryObjectStore()
		svc := NewExerciseService(db, repository.NewGormExerciseRepository(), repository.NewGormTopicRepository(), store)

		_, err := svc.CreateExercise(ctx, &model.PostExerciseRequest{
			ExerciseName:   "Orphan",
			TopicID:        uuid.New(),
			StarterCode:    starterCode,
			ExpectedOutput: expectedOutput,
		})
		require.Error(t, err)
		assert.True(t, errors.Is(err, model.ErrNotFound))

		var count int64
		require.NoError(t, db.Model(&model.Exercise{}).Count(&count).Error)
		assert.Equal(t, int64(0), count)
	})

	t.Run("異常系: 1回目のPut失敗で502相当になり行は作られない", func(t *testing.T) {
		db := setupTestDB(t)
		_, _, topic := seedCurriculum(t, db)
		mockStore := new(MockObjectStore)
		mockStore.On("Put", mock.Anything, starterCode).Return("", model.ErrUpstreamStorage).Once()
		svc := NewExerciseService(db, repository.NewGormExerciseRepository(), repository.NewGormTopicRepository(), mockStore)

		_, err := svc.CreateExercise(ctx, &model.PostExerciseRequest{
			ExerciseName:   "Broken",
			TopicID:        topic.TopicID,
			StarterCode:    starterCode,
			ExpectedOutput: expectedOutput,
		})
		require.Error(t, err)
		assert.True(t, errors.Is(err, model.ErrUpstreamStorage))

		var count int64
		require.NoError(t, db.Model(&model.Exercise{}).Count(&count).Error)
		assert.Equal(t, int64(0), count)
		mockStore.AssertExpectations(t)
	})

	t.Run("異常系: 2回目のPut失敗でも行は作られない", func(t *testing.T) {
		db := setupTestDB(t)
		_, _, topic := seedCurriculum(t, db)
		mockStore := new(MockObjectStore)
		mockStore.On("Put", mock.Anything, starterCode).Return("key-1", nil).Once()
		mockStore.On("Put", mock.Anything, expectedOutput).Return("", model.ErrUpstreamStorage).Once()
		svc := NewExerciseService(db, repository.NewGormExerciseRepository(), repository.NewGormTopicRepository(), mockStore)

		_, err := svc.CreateExercise(ctx, &model.PostExerciseRequest{
			ExerciseName:   "HalfBroken",
			TopicID:        topic.TopicID,
			StarterCode:    starterCode,
			ExpectedOutput: expectedOutput,
		})
		require.Error(t, err)
		assert.True(t, errors.Is(err, model.ErrUpstreamStorage))

		var count int64
		require.NoError(t, db.Model(&model.Exercise{}).Count(&count).Error)
		assert.Equal(t, int64(0), count)
		mockStore.AssertExpectations(t)
	})
}

func Test_exerciseService_GetExercise(t *testing.T) {
	ctx := context.Background()

	t.Run("異常系: 行は存在するが本文が取得できない場合は読み出し全体が失敗する", func(t *testing.T) {
		db := setupTestDB(t)
		_, _, topic := seedCurriculum(t, db)

		row := &model.Exercise{
			ExerciseID:        uuid.New(),
			ExerciseName:      "Dangling",
			TopicID:           topic.TopicID,
			StarterCodeKey:    "missing-starter",
			ExpectedOutputKey: "missing-expected",
		}
		require.NoError(t, db.Create(row).Error)

		mockStore := new(MockObjectStore)
		mockStore.On("Get", mock.Anything, "missing-starter").Return("", model.ErrNotFound).Once()
		svc := NewExerciseService(db, repository.NewGormExerciseRepository(), repository.NewGormTopicRepository(), mockStore)

		_, err := svc.GetExercise(ctx, row.ExerciseID)
		require.Error(t, err)
		// 部分的なレスポンスではなく上流エラーとして扱う
		assert.True(t, errors.Is(err, model.ErrUpstreamStorage))
		mockStore.AssertExpectations(t)
	})

	t.Run("異常系: 存在しない演習は404相当", func(t *testing.T) {
		db := setupTestDB(t)
		store := storage.NewMemoryObjectStore()
		svc := NewExerciseService(db, repository.NewGormExerciseRepository(), repository.NewGormTopicRepository(), store)

		_, err := svc.GetExercise(ctx, uuid.New())
		require.Error(t, err)
		assert.True(t, errors.Is(err, model.ErrNotFound))
	})
}

func Test_exerciseService_DeleteExercise(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	_, _, topic := seedCurriculum(t, db)
	store := storage.NewMemoryObjectStore()
	svc := NewExerciseService(db, repository.NewGormExerciseRepository(), repository.NewGormTopicRepository(), store)

	created, err := svc.CreateExercise(ctx, &model.PostExerciseRequest{
		ExerciseName:   "ToDelete",
		TopicID:        topic.TopicID,
		StarterCode:    "x = 1",
		ExpectedOutput: "1",
	})
	require.NoError(t, err)

	// 演習に段落をぶら下げておく
	block := &model.TextBlock{
		TextBlockID:     uuid.New(),
		Text:            "説明",
		TextFormat:      model.TextFormatText,
		ParagraphNumber: 1,
		ExerciseID:      &created.ExerciseID,
	}
	require.NoError(t, db.Create(block).Error)

	require.NoError(t, svc.DeleteExercise(ctx, created.ExerciseID))

	var count int64
	require.NoError(t, db.Model(&model.Exercise{}).Count(&count).Error)
	assert.Equal(t, int64(0), count)
	require.NoError(t, db.Model(&model.TextBlock{}).Count(&count).Error)
	assert.Equal(t, int64(0), count)

	// 既に消えている演習の削除は404相当
	err = svc.DeleteExercise(ctx, created.ExerciseID)
	require.Error(t, err)
	assert.True(t, errors.Is(err, model.ErrNotFound))
}
