package repository

import (
	"school_exam_backend/internal/model"

	"gorm.io/gorm"
)

type AttemptRepository struct {
	DB *gorm.DB
}

func NewAttemptRepository(db *gorm.DB) *AttemptRepository {
	return &AttemptRepository{DB: db}
}

func (r *AttemptRepository) CountByUserAndAssessment(userID, assessmentID uint) (int64, error) {
	var count int64
	err := r.DB.Model(&model.AssessmentAttempt{}).
		Where("user_id = ? AND assessment_id = ?", userID, assessmentID).
		Count(&count).Error
	return count, err
}

// CreateWithResponses writes the attempt and all its responses in one
// transaction: a reader never observes an attempt without its responses.
// A duplicate attempt number surfaces as gorm.ErrDuplicatedKey for the
// caller's retry loop.
func (r *AttemptRepository) CreateWithResponses(attempt *model.AssessmentAttempt, responses []model.AttemptResponse) error {
	return r.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(attempt).Error; err != nil {
			return err
		}
		if len(responses) == 0 {
			return nil
		}
		for i := range responses {
			responses[i].AttemptID = attempt.ID
		}
		return tx.Create(&responses).Error
	})
}

func (r *AttemptRepository) FindByID(id string) (*model.AssessmentAttempt, error) {
	var a model.AssessmentAttempt
	err := r.DB.Preload("Responses").First(&a, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *AttemptRepository) ListByUserAndAssessment(userID, assessmentID uint) ([]model.AssessmentAttempt, error) {
	var attempts []model.AssessmentAttempt
	err := r.DB.
		Where("user_id = ? AND assessment_id = ?", userID, assessmentID).
		Order("attempt_number ASC").
		Find(&attempts).Error
	return attempts, err
}

func (r *AttemptRepository) ListByUser(userID uint, family model.AssessmentFamily, page, limit int) ([]model.AssessmentAttempt, int64, error) {
	var attempts []model.AssessmentAttempt
	var total int64

	q := r.DB.Model(&model.AssessmentAttempt{}).
		Joins("JOIN assessments ON assessments.id = assessment_attempts.assessment_id").
		Where("assessment_attempts.user_id = ? AND assessments.family = ?", userID, family)

	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := q.Order("assessment_attempts.submitted_at DESC").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&attempts).Error
	return attempts, total, err
}

// AttemptListRow is the owner-review listing projection.
type AttemptListRow struct {
	model.AssessmentAttempt
	StudentName  string `json:"studentName"`
	StudentEmail string `json:"studentEmail"`
}

func (r *AttemptRepository) ListByAssessment(assessmentID uint, page, limit int) ([]AttemptListRow, int64, error) {
	var rows []AttemptListRow
	var total int64

	q := r.DB.Model(&model.AssessmentAttempt{}).
		Where("assessment_attempts.assessment_id = ?", assessmentID)

	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := q.
		Select("assessment_attempts.*, users.name AS student_name, users.email AS student_email").
		Joins("LEFT JOIN users ON users.id = assessment_attempts.user_id").
		Order("assessment_attempts.submitted_at DESC").
		Offset((page - 1) * limit).
		Limit(limit).
		Scan(&rows).Error
	return rows, total, err
}

func (r *AttemptRepository) HasAttempts(assessmentID uint) (bool, error) {
	var count int64
	err := r.DB.Model(&model.AssessmentAttempt{}).
		Where("assessment_id = ?", assessmentID).
		Count(&count).Error
	return count > 0, err
}
