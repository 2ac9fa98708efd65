package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"school_exam_backend/internal/model"
	"school_exam_backend/internal/repository"
	"school_exam_backend/internal/util"
	"school_exam_backend/pkg/logger"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const questionCacheTTL = 5 * time.Minute

type AssessmentService struct {
	Repo     *repository.AssessmentRepository
	Attempts *repository.AttemptRepository
	Redis    *redis.Client
}

func NewAssessmentService(repo *repository.AssessmentRepository, attempts *repository.AttemptRepository, rdb *redis.Client) *AssessmentService {
	return &AssessmentService{Repo: repo, Attempts: attempts, Redis: rdb}
}

type AssessmentRequest struct {
	Family      model.AssessmentFamily `json:"family" binding:"required,oneof=library exam_body explore"`
	Title       string                 `json:"title" binding:"required,max=255"`
	Description string                 `json:"description"`

	StartDate *time.Time `json:"startDate"`
	EndDate   *time.Time `json:"endDate"`

	MaxAttempts  *int     `json:"maxAttempts" binding:"omitempty,min=1"`
	PassingScore *float64 `json:"passingScore" binding:"omitempty,min=0,max=100"`
	LetterTable  string   `json:"letterTable" binding:"omitempty,oneof=plus-minus simple"`

	ShowCorrectAnswers bool `json:"showCorrectAnswers"`
	ShowFeedback       bool `json:"showFeedback"`
	ShuffleQuestions   bool `json:"shuffleQuestions"`
	ShuffleOptions     bool `json:"shuffleOptions"`
}

type OptionInput struct {
	Text      string `json:"text" binding:"required"`
	Order     int    `json:"order"`
	IsCorrect bool   `json:"isCorrect"`
}

type KeyInput struct {
	OptionIDs    []string   `json:"optionIds"`
	AnswerText   *string    `json:"answerText"`
	AnswerNumber *float64   `json:"answerNumber"`
	AnswerDate   *time.Time `json:"answerDate"`
}

type QuestionRequest struct {
	QuestionType string  `json:"questionType" binding:"required,max=50"`
	Content      string  `json:"content" binding:"required"`
	Points       float64 `json:"points" binding:"min=0"`
	Order        int     `json:"order"`
	Hint         string  `json:"hint"`
	Explanation  string  `json:"explanation"`

	Options   []OptionInput `json:"options"`
	AnswerKey *KeyInput     `json:"answerKey"`
}

func (s *AssessmentService) CreateAssessment(creatorID, schoolID uint, req AssessmentRequest) (*model.Assessment, error) {
	if req.StartDate != nil && req.EndDate != nil && req.EndDate.Before(*req.StartDate) {
		return nil, util.ErrValidation
	}

	a := &model.Assessment{
		SchoolID:           schoolID,
		Family:             req.Family,
		Title:              req.Title,
		Description:        req.Description,
		Status:             model.StatusDraft,
		CreatorID:          creatorID,
		StartDate:          req.StartDate,
		EndDate:            req.EndDate,
		MaxAttempts:        req.MaxAttempts,
		PassingScore:       50,
		LetterTable:        req.LetterTable,
		ShowCorrectAnswers: req.ShowCorrectAnswers,
		ShowFeedback:       req.ShowFeedback,
		ShuffleQuestions:   req.ShuffleQuestions,
		ShuffleOptions:     req.ShuffleOptions,
	}
	if req.PassingScore != nil {
		a.PassingScore = *req.PassingScore
	}

	if err := s.Repo.Create(a); err != nil {
		return nil, err
	}
	return a, nil
}

// UpdateAssessment rewrites the assessment settings. Once the assessment has
// attempts, scoring-relevant fields are frozen so recorded grades keep
// meaning; scheduling and display flags stay editable.
func (s *AssessmentService) UpdateAssessment(id, requesterID uint, req AssessmentRequest) (*model.Assessment, error) {
	a, err := s.ownedAssessment(id, requesterID)
	if err != nil {
		return nil, err
	}
	if req.StartDate != nil && req.EndDate != nil && req.EndDate.Before(*req.StartDate) {
		return nil, util.ErrValidation
	}

	hasAttempts, err := s.Attempts.HasAttempts(id)
	if err != nil {
		return nil, err
	}

	a.Title = req.Title
	a.Description = req.Description
	a.StartDate = req.StartDate
	a.EndDate = req.EndDate
	a.MaxAttempts = req.MaxAttempts
	a.ShowCorrectAnswers = req.ShowCorrectAnswers
	a.ShowFeedback = req.ShowFeedback
	a.ShuffleQuestions = req.ShuffleQuestions
	a.ShuffleOptions = req.ShuffleOptions

	if !hasAttempts {
		a.Family = req.Family
		a.LetterTable = req.LetterTable
		if req.PassingScore != nil {
			a.PassingScore = *req.PassingScore
		}
	}

	if err := s.Repo.Update(a); err != nil {
		return nil, err
	}
	s.invalidateQuestionCache(id)
	return a, nil
}

// statusTransitions maps each lifecycle status onto the statuses it may move
// to. Reverting published to draft is additionally gated on zero attempts.
var statusTransitions = map[model.AssessmentStatus][]model.AssessmentStatus{
	model.StatusDraft:     {model.StatusPublished},
	model.StatusPublished: {model.StatusActive, model.StatusClosed, model.StatusDraft},
	model.StatusActive:    {model.StatusClosed},
	model.StatusClosed:    {model.StatusActive, model.StatusArchived},
}

func canTransition(from, to model.AssessmentStatus) bool {
	for _, allowed := range statusTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

func (s *AssessmentService) ChangeStatus(id, requesterID uint, next model.AssessmentStatus) (*model.Assessment, error) {
	a, err := s.ownedAssessment(id, requesterID)
	if err != nil {
		return nil, err
	}

	if !canTransition(a.Status, next) {
		return nil, util.ErrValidation
	}

	if next == model.StatusDraft {
		hasAttempts, err := s.Attempts.HasAttempts(id)
		if err != nil {
			return nil, err
		}
		if hasAttempts {
			return nil, util.ErrHasAttempts
		}
	}

	a.Status = next
	if err := s.Repo.Update(a); err != nil {
		return nil, err
	}
	return a, nil
}

// DeleteAssessment refuses once any attempt exists; grades are never orphaned.
func (s *AssessmentService) DeleteAssessment(id, requesterID uint) error {
	if _, err := s.ownedAssessment(id, requesterID); err != nil {
		return err
	}

	hasAttempts, err := s.Attempts.HasAttempts(id)
	if err != nil {
		return err
	}
	if hasAttempts {
		return util.ErrHasAttempts
	}

	if err := s.Repo.Delete(id); err != nil {
		return err
	}
	s.invalidateQuestionCache(id)
	return nil
}

func (s *AssessmentService) AddQuestion(assessmentID, requesterID uint, req QuestionRequest) (*model.AssessmentQuestion, error) {
	if _, err := s.ownedAssessment(assessmentID, requesterID); err != nil {
		return nil, err
	}
	if err := s.questionsMutable(assessmentID); err != nil {
		return nil, err
	}

	q, err := questionFromRequest(assessmentID, req)
	if err != nil {
		return nil, err
	}
	if err := s.Repo.CreateQuestion(q); err != nil {
		return nil, err
	}
	s.invalidateQuestionCache(assessmentID)
	return q, nil
}

func (s *AssessmentService) UpdateQuestion(assessmentID, questionID, requesterID uint, req QuestionRequest) (*model.AssessmentQuestion, error) {
	if _, err := s.ownedAssessment(assessmentID, requesterID); err != nil {
		return nil, err
	}
	if err := s.questionsMutable(assessmentID); err != nil {
		return nil, err
	}

	existing, err := s.Repo.FindQuestionByID(questionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrQuestionNotFound
		}
		return nil, err
	}
	if existing.AssessmentID != assessmentID {
		return nil, util.ErrQuestionNotFound
	}

	q, err := questionFromRequest(assessmentID, req)
	if err != nil {
		return nil, err
	}
	q.ID = existing.ID
	q.CreatedAt = existing.CreatedAt

	if err := s.Repo.UpdateQuestion(q); err != nil {
		return nil, err
	}
	s.invalidateQuestionCache(assessmentID)
	return q, nil
}

func (s *AssessmentService) DeleteQuestion(assessmentID, questionID, requesterID uint) error {
	if _, err := s.ownedAssessment(assessmentID, requesterID); err != nil {
		return err
	}
	if err := s.questionsMutable(assessmentID); err != nil {
		return err
	}

	q, err := s.Repo.FindQuestionByID(questionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return util.ErrQuestionNotFound
		}
		return err
	}
	if q.AssessmentID != assessmentID {
		return util.ErrQuestionNotFound
	}

	if err := s.Repo.DeleteQuestion(q); err != nil {
		return err
	}
	s.invalidateQuestionCache(assessmentID)
	return nil
}

func questionFromRequest(assessmentID uint, req QuestionRequest) (*model.AssessmentQuestion, error) {
	q := &model.AssessmentQuestion{
		AssessmentID: assessmentID,
		QuestionType: req.QuestionType,
		Content:      req.Content,
		Points:       req.Points,
		Order:        req.Order,
		Hint:         req.Hint,
		Explanation:  req.Explanation,
	}
	for _, o := range req.Options {
		q.Options = append(q.Options, model.QuestionOption{
			Text:      o.Text,
			Order:     o.Order,
			IsCorrect: o.IsCorrect,
		})
	}
	if req.AnswerKey != nil {
		key := &model.AnswerKey{
			AnswerText:   req.AnswerKey.AnswerText,
			AnswerNumber: req.AnswerKey.AnswerNumber,
			AnswerDate:   req.AnswerKey.AnswerDate,
		}
		if len(req.AnswerKey.OptionIDs) > 0 {
			raw, err := json.Marshal(req.AnswerKey.OptionIDs)
			if err != nil {
				return nil, util.ErrValidation
			}
			key.OptionIDs = datatypes.JSON(raw)
		}
		q.AnswerKey = key
	}
	return q, nil
}

// questionsMutable blocks structural edits once submissions exist, otherwise
// recorded scores would stop matching the question set they were graded on.
func (s *AssessmentService) questionsMutable(assessmentID uint) error {
	hasAttempts, err := s.Attempts.HasAttempts(assessmentID)
	if err != nil {
		return err
	}
	if hasAttempts {
		return util.ErrHasAttempts
	}
	return nil
}

func (s *AssessmentService) ownedAssessment(id, requesterID uint) (*model.Assessment, error) {
	a, err := s.Repo.FindByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrAssessmentNotFound
		}
		return nil, err
	}
	if a.CreatorID != requesterID {
		return nil, util.ErrPermissionDenied
	}
	return a, nil
}

// AssessmentView is the learner-facing detail payload: the assessment
// settings, the caller's prior attempts and their standing against the
// attempt quota. The question set is served separately.
type AssessmentView struct {
	model.Assessment
	QuestionCount     int                       `json:"questionCount"`
	Attempts          []model.AssessmentAttempt `json:"attempts"`
	AttemptsUsed      int                       `json:"attemptsUsed"`
	AttemptsRemaining *int                      `json:"attemptsRemaining"`
	CanAttempt        bool                      `json:"canAttempt"`
	BestPercentage    *float64                  `json:"bestPercentage,omitempty"`
}

func buildAssessmentView(a *model.Assessment, attempts []model.AssessmentAttempt, now time.Time) *AssessmentView {
	view := &AssessmentView{
		Assessment:    *a,
		QuestionCount: len(a.Questions),
		Attempts:      attempts,
		AttemptsUsed:  len(attempts),
	}
	view.Assessment.Questions = nil

	for i := range attempts {
		p := attempts[i].Percentage
		if view.BestPercentage == nil || p > *view.BestPercentage {
			view.BestPercentage = &p
		}
	}

	if a.MaxAttempts != nil {
		left := *a.MaxAttempts - len(attempts)
		if left < 0 {
			left = 0
		}
		view.AttemptsRemaining = &left
	}

	quotaLeft := view.AttemptsRemaining == nil || *view.AttemptsRemaining > 0
	view.CanAttempt = a.Submittable(now) && quotaLeft
	return view
}

func (s *AssessmentService) GetAssessmentForUser(id, userID, schoolID uint, family model.AssessmentFamily) (*AssessmentView, error) {
	a, err := s.Repo.FindWithQuestions(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrAssessmentNotFound
		}
		return nil, err
	}
	if a.SchoolID != schoolID || a.Family != family {
		return nil, util.ErrAssessmentNotFound
	}
	if a.Status == model.StatusDraft || a.Status == model.StatusArchived {
		return nil, util.ErrAssessmentNotFound
	}

	attempts, err := s.Attempts.ListByUserAndAssessment(userID, id)
	if err != nil {
		return nil, err
	}
	return buildAssessmentView(a, attempts, time.Now()), nil
}

// StudentOption is a question option with the correctness flag stripped.
type StudentOption struct {
	ID    uint   `json:"id"`
	Text  string `json:"text"`
	Order int    `json:"order"`
}

// StudentQuestion is the learner-facing question payload: no answer key, no
// option correctness, no explanation.
type StudentQuestion struct {
	ID           uint            `json:"id"`
	QuestionType string          `json:"questionType"`
	Content      string          `json:"content"`
	Points       float64         `json:"points"`
	Order        int             `json:"order"`
	Hint         string          `json:"hint,omitempty"`
	Options      []StudentOption `json:"options,omitempty"`
}

func questionCacheKey(assessmentID uint) string {
	return fmt.Sprintf("assessment:questions:%d", assessmentID)
}

// GetQuestionsForUser serves the redacted question set, shuffled per the
// assessment flags. The canonical (unshuffled) set is cached; shuffling
// happens per request so every learner sees their own order.
func (s *AssessmentService) GetQuestionsForUser(ctx context.Context, id, userID, schoolID uint, family model.AssessmentFamily) ([]StudentQuestion, error) {
	a, err := s.Repo.FindByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrAssessmentNotFound
		}
		return nil, err
	}
	if a.SchoolID != schoolID || a.Family != family {
		return nil, util.ErrAssessmentNotFound
	}
	now := time.Now()
	if a.Status != model.StatusPublished && a.Status != model.StatusActive {
		return nil, util.ErrAssessmentNotFound
	}
	if a.StartDate != nil && now.Before(*a.StartDate) {
		return nil, util.ErrAssessmentNotOpenYet
	}
	if a.EndDate != nil && now.After(*a.EndDate) {
		return nil, util.ErrAssessmentClosed
	}

	questions, err := s.cachedStudentQuestions(ctx, id)
	if err != nil {
		return nil, err
	}

	if a.ShuffleQuestions {
		util.ShuffleSlice(questions)
	}
	if a.ShuffleOptions {
		for i := range questions {
			util.ShuffleSlice(questions[i].Options)
		}
	}
	return questions, nil
}

func (s *AssessmentService) cachedStudentQuestions(ctx context.Context, assessmentID uint) ([]StudentQuestion, error) {
	key := questionCacheKey(assessmentID)

	if s.Redis != nil {
		if raw, err := s.Redis.Get(ctx, key).Bytes(); err == nil {
			var cached []StudentQuestion
			if err := json.Unmarshal(raw, &cached); err == nil {
				return cached, nil
			}
			// stale or corrupt entry; fall through to the database
		}
	}

	a, err := s.Repo.FindWithQuestions(assessmentID)
	if err != nil {
		return nil, err
	}

	questions := make([]StudentQuestion, 0, len(a.Questions))
	for i := range a.Questions {
		q := &a.Questions[i]
		sq := StudentQuestion{
			ID:           q.ID,
			QuestionType: q.QuestionType,
			Content:      q.Content,
			Points:       q.Points,
			Order:        q.Order,
			Hint:         q.Hint,
		}
		for _, o := range q.Options {
			sq.Options = append(sq.Options, StudentOption{ID: o.ID, Text: o.Text, Order: o.Order})
		}
		questions = append(questions, sq)
	}

	if s.Redis != nil {
		if raw, err := json.Marshal(questions); err == nil {
			if err := s.Redis.Set(ctx, key, raw, questionCacheTTL).Err(); err != nil {
				logger.Log.Warn("Failed to cache question set",
					zap.Uint("assessment_id", assessmentID), zap.Error(err))
			}
		}
	}
	return questions, nil
}

func (s *AssessmentService) invalidateQuestionCache(assessmentID uint) {
	if s.Redis == nil {
		return
	}
	if err := s.Redis.Del(context.Background(), questionCacheKey(assessmentID)).Err(); err != nil {
		logger.Log.Warn("Failed to invalidate question cache",
			zap.Uint("assessment_id", assessmentID), zap.Error(err))
	}
}

func (s *AssessmentService) ListForFamily(schoolID uint, family model.AssessmentFamily, page, limit int) ([]model.Assessment, int64, error) {
	return s.Repo.ListByFamily(schoolID, family, page, limit)
}

func (s *AssessmentService) ListMine(creatorID uint, page, limit int) ([]model.Assessment, int64, error) {
	return s.Repo.ListByCreator(creatorID, page, limit)
}

func (s *AssessmentService) GetOwnedAssessment(id, requesterID uint) (*model.Assessment, error) {
	a, err := s.Repo.FindWithQuestions(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrAssessmentNotFound
		}
		return nil, err
	}
	if a.CreatorID != requesterID {
		return nil, util.ErrPermissionDenied
	}
	return a, nil
}

func (s *AssessmentService) ListAttemptsForReview(assessmentID, requesterID uint, page, limit int) ([]repository.AttemptListRow, int64, error) {
	if _, err := s.ownedAssessment(assessmentID, requesterID); err != nil {
		return nil, 0, err
	}
	return s.Attempts.ListByAssessment(assessmentID, page, limit)
}
