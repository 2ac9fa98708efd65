// Regrades every attempt of one assessment against its current answer keys.
//
// For use after an answer-key correction on an assessment that already has
// submissions: stored responses are re-run through the grading engine and
// the attempt totals are rewritten in place. Attempt numbers and timestamps
// are untouched.
//
// Usage: go run scripts/regrade.go -assessment 42
package main

import (
	"flag"
	"log"
	"os"

	"school_exam_backend/internal/config"
	"school_exam_backend/internal/grading"
	"school_exam_backend/internal/model"
	"school_exam_backend/pkg/database"
	"school_exam_backend/pkg/logger"

	"gopkg.in/yaml.v3"
	"gorm.io/gorm"
)

func main() {
	assessmentID := flag.Uint("assessment", 0, "assessment id to regrade")
	flag.Parse()
	if *assessmentID == 0 {
		log.Fatal("missing -assessment flag")
	}

	data, err := os.ReadFile("configs/config.yaml")
	if err != nil {
		log.Fatalf("Failed to read config file: %v", err)
	}

	var cfg config.Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		log.Fatalf("Failed to parse config file: %v", err)
	}

	logger.InitLogger(&cfg)

	db, err := database.InitDB(&cfg.Database, false)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	var assessment model.Assessment
	err = db.
		Preload("Questions").
		Preload("Questions.AnswerKey").
		First(&assessment, *assessmentID).Error
	if err != nil {
		log.Fatalf("Failed to load assessment %d: %v", *assessmentID, err)
	}

	questions := make(map[uint]*model.AssessmentQuestion, len(assessment.Questions))
	maxScore := 0.0
	for i := range assessment.Questions {
		q := &assessment.Questions[i]
		questions[q.ID] = q
		maxScore += q.Points
	}
	policy := assessment.GradingPolicy()

	var attempts []model.AssessmentAttempt
	if err := db.Preload("Responses").Where("assessment_id = ?", *assessmentID).Find(&attempts).Error; err != nil {
		log.Fatalf("Failed to load attempts: %v", err)
	}

	log.Printf("Regrading %d attempts of assessment %d (%s)", len(attempts), assessment.ID, assessment.Title)

	for i := range attempts {
		attempt := &attempts[i]

		totalScore := 0.0
		correctCount := 0
		for j := range attempt.Responses {
			r := &attempt.Responses[j]
			q, ok := questions[r.QuestionID]
			if !ok {
				continue // question was deleted since submission
			}

			result := grading.Grade(
				grading.Question{ID: q.ID, Type: grading.QuestionType(q.QuestionType), Points: q.Points},
				q.AnswerKey.GradingKey(),
				r.GradingResponse(),
			)
			r.IsCorrect = result.IsCorrect
			r.PointsEarned = result.PointsEarned
			r.Feedback = result.Feedback

			totalScore += result.PointsEarned
			if result.IsCorrect != nil && *result.IsCorrect {
				correctCount++
			}
		}

		percentage := 0.0
		if maxScore > 0 {
			percentage = totalScore / maxScore * 100
		}

		attempt.TotalScore = totalScore
		attempt.MaxScore = maxScore
		attempt.Percentage = percentage
		attempt.Passed = policy.Passed(percentage)
		attempt.LetterGrade = policy.Letter(percentage)
		attempt.CorrectCount = correctCount

		err := db.Transaction(func(tx *gorm.DB) error {
			for j := range attempt.Responses {
				if err := tx.Save(&attempt.Responses[j]).Error; err != nil {
					return err
				}
			}
			return tx.Model(&model.AssessmentAttempt{}).
				Where("id = ?", attempt.ID).
				Updates(map[string]interface{}{
					"total_score":   attempt.TotalScore,
					"max_score":     attempt.MaxScore,
					"percentage":    attempt.Percentage,
					"passed":        attempt.Passed,
					"letter_grade":  attempt.LetterGrade,
					"correct_count": attempt.CorrectCount,
				}).Error
		})
		if err != nil {
			log.Fatalf("Failed to regrade attempt %s: %v", attempt.ID, err)
		}
	}

	log.Println("Done")
}
