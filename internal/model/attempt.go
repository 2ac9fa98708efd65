package model

import (
	"encoding/json"
	"time"

	"school_exam_backend/internal/grading"

	"gorm.io/datatypes"
)

type AttemptStatus string

const (
	AttemptSubmitted AttemptStatus = "submitted"
)

// AssessmentAttempt is append-only: created atomically with its responses at
// submission time and never renumbered. The composite unique index is what
// serializes concurrent submissions for the same (assessment, user) pair;
// the loser of a race gets a duplicate-key error and re-reads the count.
// swagger:model AssessmentAttempt
type AssessmentAttempt struct {
	UUIDBase
	AssessmentID  uint          `gorm:"uniqueIndex:uniq_attempt_seq;type:bigint unsigned" json:"assessmentId"`
	UserID        uint          `gorm:"uniqueIndex:uniq_attempt_seq;index;type:bigint unsigned" json:"userId"`
	AttemptNumber int           `gorm:"uniqueIndex:uniq_attempt_seq;not null" json:"attemptNumber"` // 1-based
	Status        AttemptStatus `gorm:"size:20;default:'submitted'" json:"status"`

	StartedAt   *time.Time `json:"startedAt,omitempty"`
	SubmittedAt time.Time  `json:"submittedAt"`
	TimeSpent   int        `json:"timeSpent"` // seconds, client-reported

	TotalScore   float64    `json:"totalScore"`
	MaxScore     float64    `json:"maxScore"`
	Percentage   float64    `json:"percentage"`
	Passed       bool       `json:"passed"`
	CorrectCount int        `json:"correctCount"`
	LetterGrade  string     `gorm:"size:5" json:"letterGrade"`
	IsGraded     bool       `gorm:"default:false" json:"isGraded"`
	GradedAt     *time.Time `json:"gradedAt,omitempty"`

	Responses []AttemptResponse `gorm:"foreignKey:AttemptID" json:"responses,omitempty"`
}

func (AssessmentAttempt) TableName() string {
	return "assessment_attempts"
}

// AttemptResponse stores the submitted answer in the shape matching the
// question type plus the grading output. IsCorrect is tri-state: nil means
// the question is ungradable (no key, or a manual-only type).
// swagger:model AttemptResponse
type AttemptResponse struct {
	UUIDBase
	AttemptID  string `gorm:"index;type:varchar(36)" json:"attemptId"`
	QuestionID uint   `gorm:"index;type:bigint unsigned" json:"questionId"`

	TextAnswer      *string        `gorm:"type:text" json:"textAnswer,omitempty"`
	NumericAnswer   *float64       `json:"numericAnswer,omitempty"`
	DateAnswer      *time.Time     `json:"dateAnswer,omitempty"`
	SelectedOptions datatypes.JSON `gorm:"type:json" json:"selectedOptions,omitempty"` // []string
	FileURLs        datatypes.JSON `gorm:"type:json" json:"fileUrls,omitempty"`        // []string

	IsCorrect    *bool   `json:"isCorrect"`
	PointsEarned float64 `json:"pointsEarned"`
	Feedback     string  `gorm:"type:text" json:"feedback,omitempty"`
}

func (AttemptResponse) TableName() string {
	return "attempt_responses"
}

// GradingResponse converts the stored answer back into the grading package's
// shape, for regrading after an answer-key correction.
func (r *AttemptResponse) GradingResponse() *grading.Response {
	resp := &grading.Response{
		Text:   r.TextAnswer,
		Number: r.NumericAnswer,
		Date:   r.DateAnswer,
	}
	if len(r.SelectedOptions) > 0 {
		var ids []string
		if err := json.Unmarshal(r.SelectedOptions, &ids); err == nil {
			resp.SelectedOptions = ids
		}
	}
	if len(r.FileURLs) > 0 {
		var urls []string
		if err := json.Unmarshal(r.FileURLs, &urls); err == nil {
			resp.FileURLs = urls
		}
	}
	return resp
}
