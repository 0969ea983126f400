// internal/handlers/api_integration_test.go
package handlers_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go_lms_backend/internal/config"
	"go_lms_backend/internal/handlers"
	appmiddleware "go_lms_backend/internal/middleware"
	"go_lms_backend/internal/model"
	"go_lms_backend/internal/repository"
	"go_lms_backend/internal/service"
	"go_lms_backend/internal/storage"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// setupTestServer はインメモリSQLiteとメモリストアでAPI全体を組み立てます。
func setupTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, repository.AutoMigrate(db))

	cfg := &config.Config{}
	cfg.JWT.SecretKey = "integration-test-secret"
	cfg.JWT.AccessTokenTTL = time.Hour
	cfg.Storage.Type = "memory"

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := storage.NewMemoryObjectStore()

	userRepo := repository.NewGormUserRepository()
	languageRepo := repository.NewGormLanguageRepository()
	moduleRepo := repository.NewGormModuleRepository()
	topicRepo := repository.NewGormTopicRepository()
	lessonRepo := repository.NewGormLessonRepository()
	exerciseRepo := repository.NewGormExerciseRepository()
	textBlockRepo := repository.NewGormTextBlockRepository()

	userService := service.NewUserService(db, userRepo, cfg)
	curriculumService := service.NewCurriculumService(db, languageRepo, moduleRepo, topicRepo, store)
	lessonService := service.NewLessonService(db, lessonRepo, topicRepo, exerciseRepo, textBlockRepo)
	exerciseService := service.NewExerciseService(db, exerciseRepo, topicRepo, store)

	userHandler := handlers.NewUserHandler(userService, logger)
	curriculumHandler := handlers.NewCurriculumHandler(curriculumService, logger)
	lessonHandler := handlers.NewLessonHandler(lessonService, logger)
	exerciseHandler := handlers.NewExerciseHandler(exerciseService, logger)

	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(appmiddleware.LoggingMiddleware(logger))

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/users", userHandler.PostUser)
		r.Post("/users/token", userHandler.PostToken)

		r.Group(func(r chi.Router) {
			r.Use(appmiddleware.JWTAuthMiddleware(cfg))

			r.Get("/users/manage_user", userHandler.GetManageUser)
			r.Patch("/users/manage_user", userHandler.PatchManageUser)
			r.Get("/users/user_profile", userHandler.GetUserProfile)
			r.Patch("/users/user_profile", userHandler.PatchUserProfile)

			r.Route("/languages", func(r chi.Router) {
				r.Post("/", curriculumHandler.PostLanguage)
				r.Get("/", curriculumHandler.GetLanguages)
				r.Get("/{language_id}", curriculumHandler.GetLanguage)
				r.Delete("/{language_id}", curriculumHandler.DeleteLanguage)
			})
			r.Route("/modules", func(r chi.Router) {
				r.Post("/", curriculumHandler.PostModule)
				r.Get("/", curriculumHandler.GetModules)
				r.Get("/{module_id}", curriculumHandler.GetModule)
				r.Put("/{module_id}", curriculumHandler.PutModule)
				r.Patch("/{module_id}", curriculumHandler.PatchModule)
				r.Delete("/{module_id}", curriculumHandler.DeleteModule)
			})
			r.Route("/topics", func(r chi.Router) {
				r.Post("/", curriculumHandler.PostTopic)
				r.Get("/", curriculumHandler.GetTopics)
				r.Get("/{topic_id}", curriculumHandler.GetTopic)
				r.Put("/{topic_id}", curriculumHandler.PutTopic)
				r.Patch("/{topic_id}", curriculumHandler.PatchTopic)
				r.Delete("/{topic_id}", curriculumHandler.DeleteTopic)
			})
			r.Route("/lessons", func(r chi.Router) {
				r.Post("/", lessonHandler.PostLesson)
				r.Get("/", lessonHandler.GetLessons)
				r.Get("/{lesson_id}", lessonHandler.GetLesson)
				r.Delete("/{lesson_id}", lessonHandler.DeleteLesson)
			})
			r.Route("/textblocks", func(r chi.Router) {
				r.Post("/", lessonHandler.PostTextBlock)
				r.Get("/", lessonHandler.GetTextBlocks)
				r.Get("/{text_block_id}", lessonHandler.GetTextBlock)
				r.Delete("/{text_block_id}", lessonHandler.DeleteTextBlock)
			})
			r.Route("/exercises", func(r chi.Router) {
				r.Post("/", exerciseHandler.PostExercise)
				r.Get("/", exerciseHandler.GetExercises)
				r.Get("/{exercise_id}", exerciseHandler.GetExercise)
				r.Delete("/{exercise_id}", exerciseHandler.DeleteExercise)
			})
		})
	})

	server := httptest.NewServer(r)
	t.Cleanup(server.Close)
	return server
}

func doJSONRequest(t *testing.T, method, url, token string, body interface{}) *http.Response {
	t.Helper()

	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequest(method, url, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, dst interface{}) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(dst))
}

// registerAndLogin はユーザーを登録してアクセストークンを取得します。
func registerAndLogin(t *testing.T, server *httptest.Server, email, password, name string) string {
	t.Helper()

	resp := doJSONRequest(t, http.MethodPost, server.URL+"/api/v1/users", "", map[string]string{
		"email":    email,
		"password": password,
		"name":     name,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	resp = doJSONRequest(t, http.MethodPost, server.URL+"/api/v1/users/token", "", map[string]string{
		"email":    email,
		"password": password,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var tokenResp model.CreateTokenResponse
	decodeBody(t, resp, &tokenResp)
	require.NotEmpty(t, tokenResp.Token)
	return tokenResp.Token
}

func TestAPI_UserRegistrationAndAuth(t *testing.T) {
	server := setupTestServer(t)

	t.Run("異常系: 8文字未満のパスワードは400でアカウントが作られない", func(t *testing.T) {
		resp := doJSONRequest(t, http.MethodPost, server.URL+"/api/v1/users", "", map[string]string{
			"email":    "short@example.com",
			"password": "short",
			"name":     "Short",
		})
		defer resp.Body.Close()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

		// その後同じメールアドレスで登録できる = アカウントは作られていない
		resp2 := doJSONRequest(t, http.MethodPost, server.URL+"/api/v1/users", "", map[string]string{
			"email":    "short@example.com",
			"password": "long-enough-password",
			"name":     "Short",
		})
		defer resp2.Body.Close()
		assert.Equal(t, http.StatusCreated, resp2.StatusCode)
	})

	t.Run("正常系: 登録→トークン取得→自分の情報参照", func(t *testing.T) {
		token := registerAndLogin(t, server, "alice@example.com", "password123", "Alice")

		resp := doJSONRequest(t, http.MethodGet, server.URL+"/api/v1/users/manage_user", token, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var user model.UserResponse
		decodeBody(t, resp, &user)
		assert.Equal(t, "Alice", user.Name)
		assert.Equal(t, "alice@example.com", user.Email)
	})

	t.Run("異常系: メールアドレスの重複登録は409", func(t *testing.T) {
		registerAndLogin(t, server, "dup@example.com", "password123", "Dup")

		resp := doJSONRequest(t, http.MethodPost, server.URL+"/api/v1/users", "", map[string]string{
			"email":    "dup@example.com",
			"password": "password456",
			"name":     "Dup2",
		})
		defer resp.Body.Close()
		assert.Equal(t, http.StatusConflict, resp.StatusCode)
	})

	t.Run("異常系: トークン無しの保護ルートは401", func(t *testing.T) {
		resp := doJSONRequest(t, http.MethodGet, server.URL+"/api/v1/users/manage_user", "", nil)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("異常系: 不正なトークンは401", func(t *testing.T) {
		resp := doJSONRequest(t, http.MethodGet, server.URL+"/api/v1/languages", "not-a-valid-jwt", nil)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("正常系: プロフィールは登録直後すべてnullで参照できる", func(t *testing.T) {
		token := registerAndLogin(t, server, "profile@example.com", "password123", "Profile")

		resp := doJSONRequest(t, http.MethodGet, server.URL+"/api/v1/users/user_profile", token, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var profile model.UserProfileResponse
		decodeBody(t, resp, &profile)
		assert.Nil(t, profile.FirstName)
		assert.Nil(t, profile.LastName)
		assert.Nil(t, profile.CohortNumber)

		// 部分更新
		resp = doJSONRequest(t, http.MethodPatch, server.URL+"/api/v1/users/user_profile", token, map[string]interface{}{
			"first_name":    "Taro",
			"cohort_number": 12,
		})
		require.Equal(t, http.StatusOK, resp.StatusCode)
		decodeBody(t, resp, &profile)
		require.NotNil(t, profile.FirstName)
		assert.Equal(t, "Taro", *profile.FirstName)
		require.NotNil(t, profile.CohortNumber)
		assert.Equal(t, 12, *profile.CohortNumber)
		assert.Nil(t, profile.LastName)
	})

	t.Run("異常系: 範囲外のコホート番号は400", func(t *testing.T) {
		token := registerAndLogin(t, server, "cohort@example.com", "password123", "Cohort")

		resp := doJSONRequest(t, http.MethodPatch, server.URL+"/api/v1/users/user_profile", token, map[string]interface{}{
			"cohort_number": 8,
		})
		defer resp.Body.Close()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
}

func TestAPI_CurriculumAndExerciseFlow(t *testing.T) {
	server := setupTestServer(t)
	token := registerAndLogin(t, server, "teacher@example.com", "password123", "Teacher")

	// 言語→モジュール→トピックを作成
	var language model.Language
	resp := doJSONRequest(t, http.MethodPost, server.URL+"/api/v1/languages", token, map[string]string{
		"language_name": "Python",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	decodeBody(t, resp, &language)

	var module model.Module
	resp = doJSONRequest(t, http.MethodPost, server.URL+"/api/v1/modules", token, map[string]interface{}{
		"module_name": "Basics",
		"language_id": language.LanguageID,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	decodeBody(t, resp, &module)

	var topic model.Topic
	resp = doJSONRequest(t, http.MethodPost, server.URL+"/api/v1/topics", token, map[string]interface{}{
		"topic_name": "Printing",
		"module_id":  module.ModuleID,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	decodeBody(t, resp, &topic)

	starterCode := "def main():\n    print('こんにちは')\n"
	expectedOutput := "こんにちは\n"

	t.Run("正常系: 演習の作成と読み出しで本文が一字一句一致する", func(t *testing.T) {
		var created model.ExerciseResponse
		resp := doJSONRequest(t, http.MethodPost, server.URL+"/api/v1/exercises", token, map[string]interface{}{
			"exercise_name":   "Hello",
			"topic_id":        topic.TopicID,
			"starter_code":    starterCode,
			"expected_output": expectedOutput,
		})
		require.Equal(t, http.StatusCreated, resp.StatusCode)
		decodeBody(t, resp, &created)
		assert.Equal(t, starterCode, created.StarterCode)
		assert.Equal(t, expectedOutput, created.ExpectedOutput)

		var got model.ExerciseResponse
		resp = doJSONRequest(t, http.MethodGet, server.URL+"/api/v1/exercises/"+created.ExerciseID.String(), token, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		decodeBody(t, resp, &got)
		assert.Equal(t, starterCode, got.StarterCode)
		assert.Equal(t, expectedOutput, got.ExpectedOutput)
	})

	t.Run("正常系: レッスンを段落込みで作成しトピックに埋め込まれる", func(t *testing.T) {
		resp := doJSONRequest(t, http.MethodPost, server.URL+"/api/v1/lessons", token, map[string]interface{}{
			"lesson_name": "Print Basics",
			"topic_id":    topic.TopicID,
			"lesson_textblocks": []map[string]interface{}{
				{"text": "印字の基本", "text_format": 1, "paragraph_number": 1},
				{"text": "print('x')", "text_format": 2, "paragraph_number": 2},
			},
		})
		require.Equal(t, http.StatusCreated, resp.StatusCode)
		resp.Body.Close()

		var topicResp model.TopicResponse
		resp = doJSONRequest(t, http.MethodGet, server.URL+"/api/v1/topics/"+topic.TopicID.String(), token, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		decodeBody(t, resp, &topicResp)

		require.Len(t, topicResp.Lessons, 1)
		require.Len(t, topicResp.Lessons[0].TextBlocks, 2)
		require.Len(t, topicResp.Exercises, 1)
		assert.Equal(t, starterCode, topicResp.Exercises[0].StarterCode)
	})

	t.Run("異常系: 存在しないトピックへの演習作成は404", func(t *testing.T) {
		resp := doJSONRequest(t, http.MethodPost, server.URL+"/api/v1/exercises", token, map[string]interface{}{
			"exercise_name":   "Orphan",
			"topic_id":        uuid.New(),
			"starter_code":    "x",
			"expected_output": "y",
		})
		defer resp.Body.Close()
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})

	t.Run("異常系: URLパラメータがUUIDでない場合は400", func(t *testing.T) {
		resp := doJSONRequest(t, http.MethodGet, server.URL+"/api/v1/exercises/not-a-uuid", token, nil)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("正常系: 言語の削除で配下の階層が全て消える", func(t *testing.T) {
		resp := doJSONRequest(t, http.MethodDelete, server.URL+"/api/v1/languages/"+language.LanguageID.String(), token, nil)
		require.Equal(t, http.StatusNoContent, resp.StatusCode)
		resp.Body.Close()

		resp = doJSONRequest(t, http.MethodGet, server.URL+"/api/v1/topics/"+topic.TopicID.String(), token, nil)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})
}
