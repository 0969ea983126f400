// internal/model/curriculum.go
//
// カリキュラムの階層: Language → Module → Topic → {Lesson, Exercise} → TextBlock
// 親の削除は子孫まで連鎖します (repository 側でトランザクション内の深さ優先削除)。
package model

import (
	"time"

	"github.com/google/uuid"
)

// Language はカリキュラムのルート (プログラミング言語)
type Language struct {
	LanguageID   uuid.UUID `gorm:"type:uuid;primaryKey" json:"language_id"`
	LanguageName string    `gorm:"not null" json:"language_name"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`

	Modules []Module `gorm:"foreignKey:LanguageID;references:LanguageID" json:"-"`
}

func (Language) TableName() string {
	return "languages"
}

// Module は言語配下の学習モジュール
type Module struct {
	ModuleID   uuid.UUID `gorm:"type:uuid;primaryKey" json:"module_id"`
	ModuleName string    `gorm:"not null" json:"module_name"`
	LanguageID uuid.UUID `gorm:"type:uuid;not null;index" json:"language_id"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`

	Topics []Topic `gorm:"foreignKey:ModuleID;references:ModuleID" json:"-"`
}

func (Module) TableName() string {
	return "modules"
}

// Topic はモジュール配下のトピック。Lesson と Exercise の親になります。
type Topic struct {
	TopicID   uuid.UUID `gorm:"type:uuid;primaryKey" json:"topic_id"`
	TopicName string    `gorm:"not null" json:"topic_name"`
	ModuleID  uuid.UUID `gorm:"type:uuid;not null;index" json:"module_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Lessons   []Lesson   `gorm:"foreignKey:TopicID;references:TopicID" json:"-"`
	Exercises []Exercise `gorm:"foreignKey:TopicID;references:TopicID" json:"-"`
}

func (Topic) TableName() string {
	return "topics"
}

// Lesson はトピック配下の読み物レッスン
type Lesson struct {
	LessonID   uuid.UUID `gorm:"type:uuid;primaryKey" json:"lesson_id"`
	LessonName string    `gorm:"not null" json:"lesson_name"`
	TopicID    uuid.UUID `gorm:"type:uuid;not null;index" json:"topic_id"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`

	TextBlocks []TextBlock `gorm:"foreignKey:LessonID;references:LessonID" json:"-"`
}

func (Lesson) TableName() string {
	return "lessons"
}

// Exercise はトピック配下のコード演習。
// スターターコードと期待出力の本文はオブジェクトストアに置き、
// DBにはその不透明キーだけを保存します。
type Exercise struct {
	ExerciseID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"exercise_id"`
	ExerciseName      string    `gorm:"not null" json:"exercise_name"`
	TopicID           uuid.UUID `gorm:"type:uuid;not null;index" json:"topic_id"`
	StarterCodeKey    string    `gorm:"not null" json:"-"`
	ExpectedOutputKey string    `gorm:"not null" json:"-"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`

	TextBlocks []TextBlock `gorm:"foreignKey:ExerciseID;references:ExerciseID" json:"-"`
}

func (Exercise) TableName() string {
	return "exercises"
}

// TextBlock の表示形式
const (
	TextFormatText   = 1
	TextFormatCode   = 2
	TextFormatEditor = 3
)

// TextBlock はレッスンまたは演習に属する段落です。
// LessonID / ExerciseID はちょうど一方だけが設定されます (両方・どちらも無しは不正)。
// ParagraphNumber は呼び出し側指定で、同一親内で一意です。
type TextBlock struct {
	TextBlockID     uuid.UUID  `gorm:"type:uuid;primaryKey" json:"text_block_id"`
	Text            string     `gorm:"not null" json:"text"`
	TextFormat      int        `gorm:"not null" json:"text_format"`
	ParagraphNumber int        `gorm:"not null" json:"paragraph_number"`
	LessonID        *uuid.UUID `gorm:"type:uuid;index" json:"lesson_id"`
	ExerciseID      *uuid.UUID `gorm:"type:uuid;index" json:"exercise_id"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

func (TextBlock) TableName() string {
	return "text_blocks"
}

// --- リクエストDTO ---

type PostLanguageRequest struct {
	LanguageName string `json:"language_name" validate:"required,min=1,max=255"`
}

type PostModuleRequest struct {
	ModuleName string    `json:"module_name" validate:"required,min=1,max=255"`
	LanguageID uuid.UUID `json:"language_id" validate:"required"`
}

type PutModuleRequest struct {
	ModuleName string `json:"module_name" validate:"required,min=1,max=255"`
}

type PatchModuleRequest struct {
	ModuleName *string `json:"module_name,omitempty" validate:"omitempty,min=1,max=255"`
}

type PostTopicRequest struct {
	TopicName string    `json:"topic_name" validate:"required,min=1,max=255"`
	ModuleID  uuid.UUID `json:"module_id" validate:"required"`
}

type PutTopicRequest struct {
	TopicName string `json:"topic_name" validate:"required,min=1,max=255"`
}

type PatchTopicRequest struct {
	TopicName *string `json:"topic_name,omitempty" validate:"omitempty,min=1,max=255"`
}

// PostLessonTextBlockRequest はレッスン作成時にまとめて登録する段落DTO
type PostLessonTextBlockRequest struct {
	Text            string `json:"text" validate:"required"`
	TextFormat      int    `json:"text_format" validate:"required,oneof=1 2 3"`
	ParagraphNumber int    `json:"paragraph_number" validate:"required,min=1"`
}

type PostLessonRequest struct {
	LessonName string                       `json:"lesson_name" validate:"required,min=1,max=255"`
	TopicID    uuid.UUID                    `json:"topic_id" validate:"required"`
	TextBlocks []PostLessonTextBlockRequest `json:"lesson_textblocks" validate:"omitempty,dive"`
}

type PostTextBlockRequest struct {
	Text            string     `json:"text" validate:"required"`
	TextFormat      int        `json:"text_format" validate:"required,oneof=1 2 3"`
	ParagraphNumber int        `json:"paragraph_number" validate:"required,min=1"`
	LessonID        *uuid.UUID `json:"lesson_id,omitempty"`
	ExerciseID      *uuid.UUID `json:"exercise_id,omitempty"`
}

// PostExerciseRequest は演習作成リクエストDTO。
// コード本文は平文で受け取り、保存時にオブジェクトストアへ退避します。
// 空文字のコードは許容します。
type PostExerciseRequest struct {
	ExerciseName   string    `json:"exercise_name" validate:"required,min=1,max=255"`
	TopicID        uuid.UUID `json:"topic_id" validate:"required"`
	StarterCode    string    `json:"starter_code"`
	ExpectedOutput string    `json:"expected_output"`
}

// --- レスポンスDTO ---
// 公開表現は操作ごとの明示的なフィールド集合とし、ストレージ列の
// リフレクションダンプはしない。

type TextBlockResponse struct {
	TextBlockID     uuid.UUID  `json:"text_block_id"`
	Text            string     `json:"text"`
	TextFormat      int        `json:"text_format"`
	ParagraphNumber int        `json:"paragraph_number"`
	LessonID        *uuid.UUID `json:"lesson_id,omitempty"`
	ExerciseID      *uuid.UUID `json:"exercise_id,omitempty"`
}

type LessonResponse struct {
	LessonID   uuid.UUID           `json:"lesson_id"`
	LessonName string              `json:"lesson_name"`
	TopicID    uuid.UUID           `json:"topic_id"`
	TextBlocks []TextBlockResponse `json:"lesson_textblocks"`
}

// ExerciseResponse は演習の公開表現。StarterCode / ExpectedOutput は
// オブジェクトストアから解決済みの平文です。
type ExerciseResponse struct {
	ExerciseID     uuid.UUID `json:"exercise_id"`
	ExerciseName   string    `json:"exercise_name"`
	TopicID        uuid.UUID `json:"topic_id"`
	StarterCode    string    `json:"starter_code"`
	ExpectedOutput string    `json:"expected_output"`
	CreatedAt      time.Time `json:"created_at"`
}

// TopicResponse は一覧・詳細でレッスンと演習を埋め込んで返します
type TopicResponse struct {
	TopicID   uuid.UUID          `json:"topic_id"`
	TopicName string             `json:"topic_name"`
	ModuleID  uuid.UUID          `json:"module_id"`
	Lessons   []LessonResponse   `json:"lessons"`
	Exercises []ExerciseResponse `json:"topic_exercises"`
}

func NewTextBlockResponse(tb *TextBlock) TextBlockResponse {
	return TextBlockResponse{
		TextBlockID:     tb.TextBlockID,
		Text:            tb.Text,
		TextFormat:      tb.TextFormat,
		ParagraphNumber: tb.ParagraphNumber,
		LessonID:        tb.LessonID,
		ExerciseID:      tb.ExerciseID,
	}
}

func NewLessonResponse(l *Lesson) *LessonResponse {
	blocks := make([]TextBlockResponse, 0, len(l.TextBlocks))
	for i := range l.TextBlocks {
		blocks = append(blocks, NewTextBlockResponse(&l.TextBlocks[i]))
	}
	return &LessonResponse{
		LessonID:   l.LessonID,
		LessonName: l.LessonName,
		TopicID:    l.TopicID,
		TextBlocks: blocks,
	}
}
