package model

import (
	"encoding/json"
	"time"

	"school_exam_backend/internal/grading"

	"gorm.io/datatypes"
)

// AssessmentFamily distinguishes the three assessment surfaces. They share
// one schema and one grading path; the family only scopes routing, listing
// and the default letter-grade table.
type AssessmentFamily string

const (
	FamilyLibrary  AssessmentFamily = "library"
	FamilyExamBody AssessmentFamily = "exam_body"
	FamilyExplore  AssessmentFamily = "explore"
)

type AssessmentStatus string

const (
	StatusDraft     AssessmentStatus = "draft"
	StatusPublished AssessmentStatus = "published"
	StatusActive    AssessmentStatus = "active"
	StatusClosed    AssessmentStatus = "closed"
	StatusArchived  AssessmentStatus = "archived"
)

// swagger:model Assessment
type Assessment struct {
	BaseModel
	SchoolID    uint             `gorm:"index;type:bigint unsigned" json:"schoolId"`
	Family      AssessmentFamily `gorm:"size:20;index;not null" json:"family"`
	Title       string           `gorm:"size:255;not null" json:"title"`
	Description string           `gorm:"type:text" json:"description"`
	Status      AssessmentStatus `gorm:"size:20;default:'draft'" json:"status"`
	CreatorID   uint             `gorm:"index;type:bigint unsigned" json:"creatorId"`

	StartDate *time.Time `json:"startDate,omitempty"`
	EndDate   *time.Time `json:"endDate,omitempty"`

	// nil means unlimited
	MaxAttempts  *int    `json:"maxAttempts"`
	PassingScore float64 `gorm:"default:50" json:"passingScore"` // percentage threshold
	TotalPoints  float64 `gorm:"default:0" json:"totalPoints"`

	// empty means family default
	LetterTable string `gorm:"size:20" json:"letterTable"`

	ShowCorrectAnswers bool `gorm:"default:false" json:"showCorrectAnswers"`
	ShowFeedback       bool `gorm:"default:true" json:"showFeedback"`
	ShuffleQuestions   bool `gorm:"default:false" json:"shuffleQuestions"`
	ShuffleOptions     bool `gorm:"default:false" json:"shuffleOptions"`

	Questions []AssessmentQuestion `gorm:"foreignKey:AssessmentID" json:"questions,omitempty"`
}

func (Assessment) TableName() string {
	return "assessments"
}

// GradingPolicy resolves the assessment's grading settings, defaulting the
// letter table per family when none is set.
func (a *Assessment) GradingPolicy() grading.Policy {
	table := a.LetterTable
	if table == "" {
		if a.Family == FamilyLibrary {
			table = grading.TablePlusMinus
		} else {
			table = grading.TableSimple
		}
	}
	return grading.Policy{PassingScore: a.PassingScore, LetterTable: table}
}

// Submittable reports whether the assessment accepts submissions at t.
// Callers that need to distinguish why it does not use the individual
// predicates below.
func (a *Assessment) Submittable(t time.Time) bool {
	return a.AcceptingSubmissions() && !a.NotYetOpen(t) && !a.ClosedAt(t)
}

// AcceptingSubmissions reports whether the status allows new attempts.
func (a *Assessment) AcceptingSubmissions() bool {
	return a.Status == StatusPublished || a.Status == StatusActive
}

// NotYetOpen reports whether t falls before the start date.
func (a *Assessment) NotYetOpen(t time.Time) bool {
	return a.StartDate != nil && t.Before(*a.StartDate)
}

// ClosedAt reports whether t falls after the end date.
func (a *Assessment) ClosedAt(t time.Time) bool {
	return a.EndDate != nil && t.After(*a.EndDate)
}

// swagger:model AssessmentQuestion
type AssessmentQuestion struct {
	BaseModel
	AssessmentID uint    `gorm:"index;type:bigint unsigned" json:"assessmentId"`
	QuestionType string  `gorm:"size:50;not null" json:"questionType"`
	Content      string  `gorm:"type:text;not null" json:"content"` // stem
	Points       float64 `gorm:"default:0" json:"points"`
	Order        int     `gorm:"default:0" json:"order"`
	Hint         string  `gorm:"type:text" json:"hint,omitempty"`
	Explanation  string  `gorm:"type:text" json:"explanation,omitempty"`

	Options   []QuestionOption `gorm:"foreignKey:QuestionID" json:"options,omitempty"`
	AnswerKey *AnswerKey       `gorm:"foreignKey:QuestionID" json:"answerKey,omitempty"`
}

func (AssessmentQuestion) TableName() string {
	return "assessment_questions"
}

// swagger:model QuestionOption
type QuestionOption struct {
	BaseModel
	QuestionID uint   `gorm:"index;type:bigint unsigned" json:"questionId"`
	Text       string `gorm:"type:text;not null" json:"text"`
	Order      int    `gorm:"default:0" json:"order"`
	// never serialized on student-facing payloads; student views go through
	// service.StudentOption which has no such field
	IsCorrect bool `gorm:"default:false" json:"isCorrect"`
}

func (QuestionOption) TableName() string {
	return "question_options"
}

// AnswerKey holds the correct answer for a gradable question. At most one
// row per question; a question without a row is graded manually.
// swagger:model AnswerKey
type AnswerKey struct {
	BaseModel
	QuestionID uint `gorm:"uniqueIndex;type:bigint unsigned" json:"questionId"`

	// exactly one of the following groups is populated, matching the question type
	OptionIDs    datatypes.JSON `gorm:"type:json" json:"optionIds,omitempty"` // []string, choice types
	AnswerText   *string        `gorm:"type:text" json:"answerText,omitempty"`
	AnswerNumber *float64       `json:"answerNumber,omitempty"`
	AnswerDate   *time.Time     `json:"answerDate,omitempty"`
}

func (AnswerKey) TableName() string {
	return "answer_keys"
}

// GradingKey converts the stored key into the grading package's shape. A
// decode failure on the option-id column degrades to an empty key, i.e.
// manual grading, never an error.
func (k *AnswerKey) GradingKey() *grading.Key {
	if k == nil {
		return nil
	}
	key := &grading.Key{
		Text:   k.AnswerText,
		Number: k.AnswerNumber,
		Date:   k.AnswerDate,
	}
	if len(k.OptionIDs) > 0 {
		var ids []string
		if err := json.Unmarshal(k.OptionIDs, &ids); err == nil {
			key.OptionIDs = ids
		}
	}
	return key
}
