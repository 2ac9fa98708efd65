package repository

import (
	"school_exam_backend/internal/model"

	"gorm.io/gorm"
)

type AssessmentRepository struct {
	DB *gorm.DB
}

func NewAssessmentRepository(db *gorm.DB) *AssessmentRepository {
	return &AssessmentRepository{DB: db}
}

func (r *AssessmentRepository) Create(a *model.Assessment) error {
	return r.DB.Create(a).Error
}

func (r *AssessmentRepository) Update(a *model.Assessment) error {
	return r.DB.Save(a).Error
}

func (r *AssessmentRepository) Delete(id uint) error {
	return r.DB.Delete(&model.Assessment{}, id).Error
}

func (r *AssessmentRepository) FindByID(id uint) (*model.Assessment, error) {
	var a model.Assessment
	if err := r.DB.First(&a, id).Error; err != nil {
		return nil, err
	}
	return &a, nil
}

// FindWithQuestions loads the assessment together with its question set,
// options and answer keys, in display order.
func (r *AssessmentRepository) FindWithQuestions(id uint) (*model.Assessment, error) {
	var a model.Assessment
	err := r.DB.
		Preload("Questions", func(db *gorm.DB) *gorm.DB {
			return db.Order("assessment_questions.order ASC, assessment_questions.id ASC")
		}).
		Preload("Questions.Options", func(db *gorm.DB) *gorm.DB {
			return db.Order("question_options.order ASC, question_options.id ASC")
		}).
		Preload("Questions.AnswerKey").
		First(&a, id).Error
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *AssessmentRepository) ListByFamily(schoolID uint, family model.AssessmentFamily, page, limit int) ([]model.Assessment, int64, error) {
	var items []model.Assessment
	var total int64

	q := r.DB.Model(&model.Assessment{}).
		Where("school_id = ? AND family = ?", schoolID, family)

	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := q.Order("id DESC").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&items).Error
	return items, total, err
}

func (r *AssessmentRepository) ListByCreator(creatorID uint, page, limit int) ([]model.Assessment, int64, error) {
	var items []model.Assessment
	var total int64

	q := r.DB.Model(&model.Assessment{}).Where("creator_id = ?", creatorID)
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := q.Order("id DESC").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&items).Error
	return items, total, err
}

func (r *AssessmentRepository) FindQuestionByID(id uint) (*model.AssessmentQuestion, error) {
	var q model.AssessmentQuestion
	err := r.DB.
		Preload("Options").
		Preload("AnswerKey").
		First(&q, id).Error
	if err != nil {
		return nil, err
	}
	return &q, nil
}

// CreateQuestion persists a question with its options and optional answer
// key as one unit, then bumps the assessment's precomputed total points.
func (r *AssessmentRepository) CreateQuestion(q *model.AssessmentQuestion) error {
	return r.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(q).Error; err != nil {
			return err
		}
		return recomputeTotalPoints(tx, q.AssessmentID)
	})
}

func (r *AssessmentRepository) UpdateQuestion(q *model.AssessmentQuestion) error {
	return r.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("question_id = ?", q.ID).Delete(&model.QuestionOption{}).Error; err != nil {
			return err
		}
		if err := tx.Where("question_id = ?", q.ID).Delete(&model.AnswerKey{}).Error; err != nil {
			return err
		}
		if err := tx.Session(&gorm.Session{FullSaveAssociations: true}).Save(q).Error; err != nil {
			return err
		}
		return recomputeTotalPoints(tx, q.AssessmentID)
	})
}

func (r *AssessmentRepository) DeleteQuestion(q *model.AssessmentQuestion) error {
	return r.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("question_id = ?", q.ID).Delete(&model.QuestionOption{}).Error; err != nil {
			return err
		}
		if err := tx.Where("question_id = ?", q.ID).Delete(&model.AnswerKey{}).Error; err != nil {
			return err
		}
		if err := tx.Delete(&model.AssessmentQuestion{}, q.ID).Error; err != nil {
			return err
		}
		return recomputeTotalPoints(tx, q.AssessmentID)
	})
}

func recomputeTotalPoints(tx *gorm.DB, assessmentID uint) error {
	var total float64
	err := tx.Model(&model.AssessmentQuestion{}).
		Where("assessment_id = ?", assessmentID).
		Select("COALESCE(SUM(points), 0)").
		Scan(&total).Error
	if err != nil {
		return err
	}
	return tx.Model(&model.Assessment{}).
		Where("id = ?", assessmentID).
		Update("total_points", total).Error
}
