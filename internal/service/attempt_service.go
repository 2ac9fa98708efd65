package service

import (
	"encoding/json"
	"errors"
	"time"

	"school_exam_backend/internal/grading"
	"school_exam_backend/internal/model"
	"school_exam_backend/internal/util"
	"school_exam_backend/pkg/monitoring"

	"gorm.io/gorm"
)

// attemptNumberRetries bounds the duplicate-key retry loop for the
// concurrent-submission race. Two losses in a row for one user means
// something other than a race is wrong.
const attemptNumberRetries = 3

// AssessmentSource is the slice of the assessment repository the
// orchestrator needs.
type AssessmentSource interface {
	FindByID(id uint) (*model.Assessment, error)
	FindWithQuestions(id uint) (*model.Assessment, error)
}

// AttemptStore is the persistence boundary for attempts. CreateWithResponses
// must be atomic and must surface gorm.ErrDuplicatedKey on an attempt-number
// collision.
type AttemptStore interface {
	CountByUserAndAssessment(userID, assessmentID uint) (int64, error)
	CreateWithResponses(attempt *model.AssessmentAttempt, responses []model.AttemptResponse) error
	FindByID(id string) (*model.AssessmentAttempt, error)
	ListByUserAndAssessment(userID, assessmentID uint) ([]model.AssessmentAttempt, error)
	ListByUser(userID uint, family model.AssessmentFamily, page, limit int) ([]model.AssessmentAttempt, int64, error)
}

type AttemptService struct {
	Assessments AssessmentSource
	Attempts    AttemptStore
}

func NewAttemptService(assessments AssessmentSource, attempts AttemptStore) *AttemptService {
	return &AttemptService{Assessments: assessments, Attempts: attempts}
}

type ResponseInput struct {
	QuestionID      uint       `json:"questionId" binding:"required"`
	TextAnswer      *string    `json:"textAnswer"`
	NumericAnswer   *float64   `json:"numericAnswer"`
	DateAnswer      *time.Time `json:"dateAnswer"`
	SelectedOptions []string   `json:"selectedOptions"`
	FileURLs        []string   `json:"fileUrls"`
	TimeSpent       int        `json:"timeSpent"`
}

type SubmitRequest struct {
	Responses []ResponseInput `json:"responses" binding:"required"`
	TimeSpent int             `json:"timeSpent"`
}

// QuestionResult is one row of the per-question breakdown returned to the
// caller. Skipped questions appear here even though they get no persisted
// response row.
type QuestionResult struct {
	QuestionID     uint        `json:"questionId"`
	QuestionType   string      `json:"questionType"`
	Points         float64     `json:"points"`
	PointsEarned   float64     `json:"pointsEarned"`
	IsCorrect      *bool       `json:"isCorrect"`
	Answered       bool        `json:"answered"`
	CorrectAnswer  interface{} `json:"correctAnswer,omitempty"`
	SelectedAnswer interface{} `json:"selectedAnswer,omitempty"`
	Feedback       string      `json:"feedback,omitempty"`
	Explanation    string      `json:"explanation,omitempty"`
}

type AttemptResult struct {
	AttemptID         string           `json:"attemptId"`
	AttemptNumber     int              `json:"attemptNumber"`
	TotalScore        float64          `json:"totalScore"`
	MaxScore          float64          `json:"maxScore"`
	Percentage        float64          `json:"percentage"`
	Passed            bool             `json:"passed"`
	LetterGrade       string           `json:"letterGrade"`
	CorrectCount      int              `json:"correctCount"`
	QuestionCount     int              `json:"questionCount"`
	AttemptsRemaining *int             `json:"attemptsRemaining"`
	Message           string           `json:"message"`
	Breakdown         []QuestionResult `json:"breakdown"`
}

func responseFromInput(in *ResponseInput) *grading.Response {
	if in == nil {
		return nil
	}
	return &grading.Response{
		SelectedOptions: in.SelectedOptions,
		Text:            in.TextAnswer,
		Number:          in.NumericAnswer,
		Date:            in.DateAnswer,
		FileURLs:        in.FileURLs,
	}
}

type evaluation struct {
	persisted    []model.AttemptResponse
	breakdown    []QuestionResult
	totalScore   float64
	maxScore     float64
	correctCount int
}

// evaluateSubmission grades every question of the assessment against the
// submitted responses. Pure: no storage, no clock, no randomness.
//
// Submitted responses whose questionId is not part of the assessment are
// skipped silently. Questions without a submission are graded as "no answer"
// so they count toward maxScore and show up in the breakdown, but they do
// not produce a persisted response row.
func evaluateSubmission(questions []model.AssessmentQuestion, inputs []ResponseInput) evaluation {
	byQuestion := make(map[uint]*ResponseInput, len(inputs))
	for i := range inputs {
		in := &inputs[i]
		if _, dup := byQuestion[in.QuestionID]; dup {
			continue // first submission for a question wins
		}
		byQuestion[in.QuestionID] = in
	}

	ev := evaluation{
		breakdown: make([]QuestionResult, 0, len(questions)),
	}

	for i := range questions {
		q := &questions[i]
		in := byQuestion[q.ID]

		result := grading.Grade(
			grading.Question{ID: q.ID, Type: grading.QuestionType(q.QuestionType), Points: q.Points},
			q.AnswerKey.GradingKey(),
			responseFromInput(in),
		)

		ev.maxScore += q.Points
		ev.totalScore += result.PointsEarned
		if result.IsCorrect != nil && *result.IsCorrect {
			ev.correctCount++
		}

		ev.breakdown = append(ev.breakdown, QuestionResult{
			QuestionID:     q.ID,
			QuestionType:   q.QuestionType,
			Points:         q.Points,
			PointsEarned:   result.PointsEarned,
			IsCorrect:      result.IsCorrect,
			Answered:       in != nil,
			CorrectAnswer:  result.CorrectAnswer,
			SelectedAnswer: result.SelectedAnswer,
			Feedback:       result.Feedback,
			Explanation:    q.Explanation,
		})

		if in != nil {
			ev.persisted = append(ev.persisted, buildResponseRow(q.ID, in, result))
		}
	}

	return ev
}

func buildResponseRow(questionID uint, in *ResponseInput, result grading.Result) model.AttemptResponse {
	row := model.AttemptResponse{
		QuestionID:    questionID,
		TextAnswer:    in.TextAnswer,
		NumericAnswer: in.NumericAnswer,
		DateAnswer:    in.DateAnswer,
		IsCorrect:     result.IsCorrect,
		PointsEarned:  result.PointsEarned,
		Feedback:      result.Feedback,
	}
	if len(in.SelectedOptions) > 0 {
		if raw, err := json.Marshal(in.SelectedOptions); err == nil {
			row.SelectedOptions = raw
		}
	}
	if len(in.FileURLs) > 0 {
		if raw, err := json.Marshal(in.FileURLs); err == nil {
			row.FileURLs = raw
		}
	}
	return row
}

// Submit turns a submission request into a persisted, graded attempt. The
// assessment must belong to the caller's school and to the family of the
// route the request came in on.
func (s *AttemptService) Submit(assessmentID, userID, schoolID uint, family model.AssessmentFamily, req SubmitRequest) (*AttemptResult, error) {
	assessment, err := s.Assessments.FindWithQuestions(assessmentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrAssessmentNotFound
		}
		return nil, err
	}

	now := time.Now()
	if assessment.SchoolID != schoolID || assessment.Family != family {
		return nil, util.ErrAssessmentNotFound
	}
	if !assessment.AcceptingSubmissions() {
		return nil, util.ErrAssessmentNotFound
	}
	if assessment.NotYetOpen(now) {
		return nil, util.ErrAssessmentNotOpenYet
	}
	if assessment.ClosedAt(now) {
		return nil, util.ErrAssessmentClosed
	}

	ev := evaluateSubmission(assessment.Questions, req.Responses)

	percentage := 0.0
	if ev.maxScore > 0 {
		percentage = ev.totalScore / ev.maxScore * 100
	}
	policy := assessment.GradingPolicy()
	passed := policy.Passed(percentage)
	letter := policy.Letter(percentage)

	var attempt *model.AssessmentAttempt
	for retry := 0; retry < attemptNumberRetries; retry++ {
		count, err := s.Attempts.CountByUserAndAssessment(userID, assessmentID)
		if err != nil {
			return nil, err
		}
		if assessment.MaxAttempts != nil && count >= int64(*assessment.MaxAttempts) {
			return nil, util.ErrAttemptsExhausted
		}

		gradedAt := now
		candidate := &model.AssessmentAttempt{
			AssessmentID:  assessmentID,
			UserID:        userID,
			AttemptNumber: int(count) + 1,
			Status:        model.AttemptSubmitted,
			SubmittedAt:   now,
			TimeSpent:     req.TimeSpent,
			TotalScore:    ev.totalScore,
			MaxScore:      ev.maxScore,
			Percentage:    percentage,
			Passed:        passed,
			CorrectCount:  ev.correctCount,
			LetterGrade:   letter,
			IsGraded:      true,
			GradedAt:      &gradedAt,
		}

		rows := make([]model.AttemptResponse, len(ev.persisted))
		copy(rows, ev.persisted)

		err = s.Attempts.CreateWithResponses(candidate, rows)
		if err == nil {
			attempt = candidate
			break
		}
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			// lost the attempt-number race; re-read the count and try again
			continue
		}
		return nil, err
	}
	if attempt == nil {
		return nil, errors.New("could not allocate attempt number")
	}

	monitoring.ObserveAttempt(string(assessment.Family), passed)

	remaining := attemptsRemaining(assessment.MaxAttempts, attempt.AttemptNumber)

	result := &AttemptResult{
		AttemptID:         attempt.ID,
		AttemptNumber:     attempt.AttemptNumber,
		TotalScore:        ev.totalScore,
		MaxScore:          ev.maxScore,
		Percentage:        percentage,
		Passed:            passed,
		LetterGrade:       letter,
		CorrectCount:      ev.correctCount,
		QuestionCount:     len(assessment.Questions),
		AttemptsRemaining: remaining,
		Message:           grading.PassMessage(passed, percentage, remaining),
		Breakdown:         redactBreakdown(ev.breakdown, assessment, false),
	}
	return result, nil
}

func attemptsRemaining(maxAttempts *int, attemptNumber int) *int {
	if maxAttempts == nil {
		return nil
	}
	left := *maxAttempts - attemptNumber
	if left < 0 {
		left = 0
	}
	return &left
}

// redactBreakdown strips fields the assessment's flags hide from learners.
// Owners always see everything.
func redactBreakdown(breakdown []QuestionResult, a *model.Assessment, ownerView bool) []QuestionResult {
	if ownerView || (a.ShowCorrectAnswers && a.ShowFeedback) {
		return breakdown
	}
	out := make([]QuestionResult, len(breakdown))
	copy(out, breakdown)
	for i := range out {
		if !a.ShowCorrectAnswers {
			out[i].CorrectAnswer = nil
		}
		if !a.ShowFeedback {
			out[i].Feedback = ""
			out[i].Explanation = ""
		}
	}
	return out
}

type AttemptDetail struct {
	Attempt   *model.AssessmentAttempt `json:"attempt"`
	Responses []model.AttemptResponse  `json:"responses"`
}

// GetAttempt returns a learner's own attempt, redacted per the assessment
// flags. A foreign attempt id is a Forbidden, not a NotFound, so the client
// can tell the difference.
func (s *AttemptService) GetAttempt(attemptID string, requesterID uint) (*AttemptDetail, error) {
	attempt, err := s.Attempts.FindByID(attemptID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrAttemptNotFound
		}
		return nil, err
	}
	if attempt.UserID != requesterID {
		return nil, util.ErrAttemptForbidden
	}

	assessment, err := s.Assessments.FindByID(attempt.AssessmentID)
	if err != nil {
		return nil, err
	}

	responses := attempt.Responses
	if !assessment.ShowFeedback {
		responses = make([]model.AttemptResponse, len(attempt.Responses))
		copy(responses, attempt.Responses)
		for i := range responses {
			responses[i].Feedback = ""
		}
	}

	attempt.Responses = nil
	return &AttemptDetail{Attempt: attempt, Responses: responses}, nil
}

// GetAttemptForReview is the owner pathway: full, unredacted detail for the
// assessment creator.
func (s *AttemptService) GetAttemptForReview(attemptID string, reviewerID uint) (*AttemptDetail, error) {
	attempt, err := s.Attempts.FindByID(attemptID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrAttemptNotFound
		}
		return nil, err
	}

	assessment, err := s.Assessments.FindByID(attempt.AssessmentID)
	if err != nil {
		return nil, err
	}
	if assessment.CreatorID != reviewerID {
		return nil, util.ErrPermissionDenied
	}

	responses := attempt.Responses
	attempt.Responses = nil
	return &AttemptDetail{Attempt: attempt, Responses: responses}, nil
}

func (s *AttemptService) ListAttempts(userID uint, family model.AssessmentFamily, page, limit int) ([]model.AssessmentAttempt, int64, error) {
	return s.Attempts.ListByUser(userID, family, page, limit)
}
