package service

import (
	"errors"
	"fmt"
	"math"
	"testing"
	"time"

	"school_exam_backend/internal/grading"
	"school_exam_backend/internal/model"
	"school_exam_backend/internal/util"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type fakeAssessments struct {
	byID map[uint]*model.Assessment
}

func (f *fakeAssessments) FindByID(id uint) (*model.Assessment, error) {
	a, ok := f.byID[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *a
	cp.Questions = nil
	return &cp, nil
}

func (f *fakeAssessments) FindWithQuestions(id uint) (*model.Assessment, error) {
	a, ok := f.byID[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *a
	return &cp, nil
}

type fakeAttemptStore struct {
	count int64
	// leading CreateWithResponses calls that lose the attempt-number race
	raceLosses int

	created     []*model.AssessmentAttempt
	createdRows [][]model.AttemptResponse
	attempts    map[string]*model.AssessmentAttempt
}

func (f *fakeAttemptStore) CountByUserAndAssessment(userID, assessmentID uint) (int64, error) {
	return f.count, nil
}

func (f *fakeAttemptStore) CreateWithResponses(attempt *model.AssessmentAttempt, responses []model.AttemptResponse) error {
	if f.raceLosses > 0 {
		f.raceLosses--
		f.count++ // the racer's row is now visible
		return gorm.ErrDuplicatedKey
	}
	attempt.ID = fmt.Sprintf("attempt-%d", len(f.created)+1)
	f.created = append(f.created, attempt)
	f.createdRows = append(f.createdRows, responses)
	f.count++
	return nil
}

func (f *fakeAttemptStore) FindByID(id string) (*model.AssessmentAttempt, error) {
	a, ok := f.attempts[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *a
	return &cp, nil
}

func (f *fakeAttemptStore) ListByUserAndAssessment(userID, assessmentID uint) ([]model.AssessmentAttempt, error) {
	return nil, nil
}

func (f *fakeAttemptStore) ListByUser(userID uint, family model.AssessmentFamily, page, limit int) ([]model.AssessmentAttempt, int64, error) {
	return nil, 0, nil
}

func optionKey(ids ...string) datatypes.JSON {
	raw := `["` + ids[0] + `"`
	for _, id := range ids[1:] {
		raw += `,"` + id + `"`
	}
	raw += `]`
	return datatypes.JSON(raw)
}

// two questions: a 10-point single choice and a 5-point short answer
func testAssessment() *model.Assessment {
	answer := "Paris"
	return &model.Assessment{
		BaseModel:          model.BaseModel{ID: 1},
		SchoolID:           1,
		Family:             model.FamilyLibrary,
		Status:             model.StatusActive,
		PassingScore:       50,
		ShowCorrectAnswers: true,
		ShowFeedback:       true,
		Questions: []model.AssessmentQuestion{
			{
				BaseModel:    model.BaseModel{ID: 11},
				AssessmentID: 1,
				QuestionType: string(grading.MultipleChoiceSingle),
				Points:       10,
				AnswerKey:    &model.AnswerKey{QuestionID: 11, OptionIDs: optionKey("B")},
			},
			{
				BaseModel:    model.BaseModel{ID: 12},
				AssessmentID: 1,
				QuestionType: string(grading.ShortAnswer),
				Points:       5,
				AnswerKey:    &model.AnswerKey{QuestionID: 12, AnswerText: &answer},
			},
		},
	}
}

func newTestService(a *model.Assessment, store *fakeAttemptStore) *AttemptService {
	return NewAttemptService(&fakeAssessments{byID: map[uint]*model.Assessment{a.ID: a}}, store)
}

func text(s string) *string { return &s }

func TestSubmitGradesWholeAttempt(t *testing.T) {
	store := &fakeAttemptStore{}
	svc := newTestService(testAssessment(), store)

	result, err := svc.Submit(1, 7, 1, model.FamilyLibrary, SubmitRequest{
		Responses: []ResponseInput{
			{QuestionID: 11, SelectedOptions: []string{"B"}},
			{QuestionID: 12, TextAnswer: text("London")},
		},
	})
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}

	if result.TotalScore != 10 || result.MaxScore != 15 {
		t.Errorf("score = %v/%v, want 10/15", result.TotalScore, result.MaxScore)
	}
	if math.Abs(result.Percentage-66.6667) > 0.01 {
		t.Errorf("percentage = %v, want ~66.67", result.Percentage)
	}
	if !result.Passed {
		t.Error("expected pass at 66.67%% with a 50%% threshold")
	}
	if result.LetterGrade != "C" {
		t.Errorf("letter = %q, want C (library defaults to plus-minus)", result.LetterGrade)
	}
	if result.CorrectCount != 1 {
		t.Errorf("correctCount = %d, want 1", result.CorrectCount)
	}
	if result.AttemptNumber != 1 {
		t.Errorf("attemptNumber = %d, want 1", result.AttemptNumber)
	}
	if result.AttemptsRemaining != nil {
		t.Errorf("attemptsRemaining = %v, want nil for unlimited", *result.AttemptsRemaining)
	}
	if len(result.Breakdown) != 2 {
		t.Fatalf("breakdown size = %d, want 2", len(result.Breakdown))
	}

	if len(store.created) != 1 {
		t.Fatalf("persisted %d attempts, want 1", len(store.created))
	}
	if got := store.created[0]; !got.IsGraded || got.TotalScore != 10 {
		t.Errorf("persisted attempt = graded %v score %v", got.IsGraded, got.TotalScore)
	}
	if len(store.createdRows[0]) != 2 {
		t.Errorf("persisted %d responses, want 2", len(store.createdRows[0]))
	}
}

func TestSubmitSkippedQuestionCountsTowardMax(t *testing.T) {
	store := &fakeAttemptStore{}
	svc := newTestService(testAssessment(), store)

	result, err := svc.Submit(1, 7, 1, model.FamilyLibrary, SubmitRequest{
		Responses: []ResponseInput{{QuestionID: 11, SelectedOptions: []string{"B"}}},
	})
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}

	if result.MaxScore != 15 {
		t.Errorf("maxScore = %v, want 15 including the skipped question", result.MaxScore)
	}
	if len(result.Breakdown) != 2 {
		t.Fatalf("breakdown size = %d, want 2", len(result.Breakdown))
	}

	skipped := result.Breakdown[1]
	if skipped.QuestionID != 12 || skipped.Answered {
		t.Errorf("breakdown[1] = question %d answered %v, want 12 unanswered", skipped.QuestionID, skipped.Answered)
	}
	if skipped.IsCorrect == nil || *skipped.IsCorrect {
		t.Error("skipped gradable question should grade as incorrect")
	}

	// skipped questions never get a persisted response row
	if len(store.createdRows[0]) != 1 {
		t.Errorf("persisted %d responses, want 1", len(store.createdRows[0]))
	}
}

func TestSubmitManualQuestionExcludedFromCorrectCount(t *testing.T) {
	a := testAssessment()
	a.Questions = append(a.Questions, model.AssessmentQuestion{
		BaseModel:    model.BaseModel{ID: 13},
		AssessmentID: 1,
		QuestionType: string(grading.LongAnswer),
		Points:       20,
	})

	store := &fakeAttemptStore{}
	svc := newTestService(a, store)

	result, err := svc.Submit(1, 7, 1, model.FamilyLibrary, SubmitRequest{
		Responses: []ResponseInput{
			{QuestionID: 11, SelectedOptions: []string{"B"}},
			{QuestionID: 12, TextAnswer: text("Paris")},
			{QuestionID: 13, TextAnswer: text("a long essay about rivers")},
		},
	})
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}

	if result.MaxScore != 35 {
		t.Errorf("maxScore = %v, want 35 including the essay points", result.MaxScore)
	}
	if result.TotalScore != 15 {
		t.Errorf("totalScore = %v, want 15 with the essay still ungraded", result.TotalScore)
	}
	if result.CorrectCount != 2 {
		t.Errorf("correctCount = %d, want 2, an ungraded essay is not correct", result.CorrectCount)
	}

	essay := result.Breakdown[2]
	if essay.QuestionID != 13 || essay.IsCorrect != nil {
		t.Errorf("breakdown[2] = question %d isCorrect %v, want 13 with nil", essay.QuestionID, essay.IsCorrect)
	}

	// the persisted row keeps the tri-state for later manual grading
	rows := store.createdRows[0]
	if len(rows) != 3 {
		t.Fatalf("persisted %d responses, want 3", len(rows))
	}
	if rows[2].QuestionID != 13 || rows[2].IsCorrect != nil || rows[2].PointsEarned != 0 {
		t.Errorf("essay row = %+v, want ungraded with zero points", rows[2])
	}
}

func TestSubmitEmptyAssessmentScoresZero(t *testing.T) {
	a := testAssessment()
	a.Questions = nil

	store := &fakeAttemptStore{}
	svc := newTestService(a, store)

	result, err := svc.Submit(1, 7, 1, model.FamilyLibrary, SubmitRequest{})
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}

	if result.TotalScore != 0 || result.MaxScore != 0 {
		t.Errorf("score = %v/%v, want 0/0", result.TotalScore, result.MaxScore)
	}
	if result.Percentage != 0 {
		t.Errorf("percentage = %v, want 0 when there is nothing to score", result.Percentage)
	}
	if result.Passed {
		t.Error("an assessment with no questions cannot be passed")
	}
	if len(result.Breakdown) != 0 {
		t.Errorf("breakdown size = %d, want 0", len(result.Breakdown))
	}
	if len(store.created) != 1 {
		t.Fatalf("persisted %d attempts, want 1", len(store.created))
	}
	if store.created[0].Percentage != 0 {
		t.Errorf("persisted percentage = %v, want 0", store.created[0].Percentage)
	}
}

func TestSubmitIgnoresForeignQuestionIDs(t *testing.T) {
	store := &fakeAttemptStore{}
	svc := newTestService(testAssessment(), store)

	result, err := svc.Submit(1, 7, 1, model.FamilyLibrary, SubmitRequest{
		Responses: []ResponseInput{
			{QuestionID: 999, TextAnswer: text("not part of this assessment")},
			{QuestionID: 11, SelectedOptions: []string{"B"}},
		},
	})
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}

	if len(result.Breakdown) != 2 {
		t.Errorf("breakdown size = %d, want 2", len(result.Breakdown))
	}
	for _, row := range store.createdRows[0] {
		if row.QuestionID == 999 {
			t.Error("foreign question id was persisted")
		}
	}
}

func TestSubmitScopedBySchoolAndFamily(t *testing.T) {
	svc := newTestService(testAssessment(), &fakeAttemptStore{})

	if _, err := svc.Submit(1, 7, 2, model.FamilyLibrary, SubmitRequest{}); !errors.Is(err, util.ErrAssessmentNotFound) {
		t.Errorf("foreign school error = %v, want ErrAssessmentNotFound", err)
	}
	if _, err := svc.Submit(1, 7, 1, model.FamilyExplore, SubmitRequest{}); !errors.Is(err, util.ErrAssessmentNotFound) {
		t.Errorf("wrong family error = %v, want ErrAssessmentNotFound", err)
	}
}

func TestSubmitAttemptQuota(t *testing.T) {
	a := testAssessment()
	limit := 2
	a.MaxAttempts = &limit

	store := &fakeAttemptStore{count: 2}
	svc := newTestService(a, store)

	_, err := svc.Submit(1, 7, 1, model.FamilyLibrary, SubmitRequest{})
	if !errors.Is(err, util.ErrAttemptsExhausted) {
		t.Fatalf("Submit() error = %v, want ErrAttemptsExhausted", err)
	}
	if len(store.created) != 0 {
		t.Error("no attempt should be persisted past the quota")
	}
}

func TestSubmitAvailabilityWindow(t *testing.T) {
	future := time.Now().Add(time.Hour)
	past := time.Now().Add(-time.Hour)

	tests := []struct {
		name    string
		mutate  func(a *model.Assessment)
		wantErr error
	}{
		{"not open yet", func(a *model.Assessment) { a.StartDate = &future }, util.ErrAssessmentNotOpenYet},
		{"closed", func(a *model.Assessment) { a.EndDate = &past }, util.ErrAssessmentClosed},
		{"draft", func(a *model.Assessment) { a.Status = model.StatusDraft }, util.ErrAssessmentNotFound},
		{"archived", func(a *model.Assessment) { a.Status = model.StatusArchived }, util.ErrAssessmentNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := testAssessment()
			tt.mutate(a)
			svc := newTestService(a, &fakeAttemptStore{})

			_, err := svc.Submit(1, 7, 1, model.FamilyLibrary, SubmitRequest{})
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Submit() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestSubmitRetriesAfterLosingAttemptNumberRace(t *testing.T) {
	store := &fakeAttemptStore{raceLosses: 1}
	svc := newTestService(testAssessment(), store)

	result, err := svc.Submit(1, 7, 1, model.FamilyLibrary, SubmitRequest{
		Responses: []ResponseInput{{QuestionID: 11, SelectedOptions: []string{"B"}}},
	})
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}

	// the racer took attempt 1; the retry re-reads the count and takes 2
	if result.AttemptNumber != 2 {
		t.Errorf("attemptNumber = %d, want 2", result.AttemptNumber)
	}
	if len(store.created) != 1 {
		t.Errorf("persisted %d attempts, want 1", len(store.created))
	}
}

func TestSubmitGivesUpAfterRepeatedCollisions(t *testing.T) {
	store := &fakeAttemptStore{raceLosses: attemptNumberRetries}
	svc := newTestService(testAssessment(), store)

	_, err := svc.Submit(1, 7, 1, model.FamilyLibrary, SubmitRequest{})
	if err == nil {
		t.Fatal("Submit() should fail once every retry collides")
	}
	if len(store.created) != 0 {
		t.Error("no attempt should be persisted after exhausted retries")
	}
}

func TestSubmitRedactsPerAssessmentFlags(t *testing.T) {
	a := testAssessment()
	a.ShowCorrectAnswers = false
	a.ShowFeedback = false
	a.Questions[0].Explanation = "B is the right bucket"

	svc := newTestService(a, &fakeAttemptStore{})
	result, err := svc.Submit(1, 7, 1, model.FamilyLibrary, SubmitRequest{
		Responses: []ResponseInput{{QuestionID: 11, SelectedOptions: []string{"A"}}},
	})
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}

	for _, row := range result.Breakdown {
		if row.CorrectAnswer != nil {
			t.Errorf("question %d leaked the correct answer", row.QuestionID)
		}
		if row.Feedback != "" || row.Explanation != "" {
			t.Errorf("question %d leaked feedback", row.QuestionID)
		}
	}
}

func TestGetAttemptForeignIsForbidden(t *testing.T) {
	a := testAssessment()
	store := &fakeAttemptStore{attempts: map[string]*model.AssessmentAttempt{
		"att-1": {UUIDBase: model.UUIDBase{ID: "att-1"}, AssessmentID: 1, UserID: 7},
	}}
	svc := newTestService(a, store)

	if _, err := svc.GetAttempt("att-1", 8); !errors.Is(err, util.ErrAttemptForbidden) {
		t.Errorf("GetAttempt() error = %v, want ErrAttemptForbidden", err)
	}
	if _, err := svc.GetAttempt("att-1", 7); err != nil {
		t.Errorf("owner GetAttempt() error = %v", err)
	}
	if _, err := svc.GetAttempt("missing", 7); !errors.Is(err, util.ErrAttemptNotFound) {
		t.Errorf("GetAttempt() error = %v, want ErrAttemptNotFound", err)
	}
}

func TestGetAttemptHidesFeedbackWhenDisabled(t *testing.T) {
	a := testAssessment()
	a.ShowFeedback = false
	store := &fakeAttemptStore{attempts: map[string]*model.AssessmentAttempt{
		"att-1": {
			UUIDBase:     model.UUIDBase{ID: "att-1"},
			AssessmentID: 1,
			UserID:       7,
			Responses: []model.AttemptResponse{
				{QuestionID: 11, Feedback: "so close"},
			},
		},
	}}
	svc := newTestService(a, store)

	detail, err := svc.GetAttempt("att-1", 7)
	if err != nil {
		t.Fatalf("GetAttempt() error = %v", err)
	}
	if detail.Responses[0].Feedback != "" {
		t.Error("feedback should be stripped when the assessment hides it")
	}
}

func TestGetAttemptForReviewChecksOwnership(t *testing.T) {
	a := testAssessment()
	a.CreatorID = 3
	store := &fakeAttemptStore{attempts: map[string]*model.AssessmentAttempt{
		"att-1": {UUIDBase: model.UUIDBase{ID: "att-1"}, AssessmentID: 1, UserID: 7},
	}}
	svc := newTestService(a, store)

	if _, err := svc.GetAttemptForReview("att-1", 3); err != nil {
		t.Errorf("creator review error = %v", err)
	}
	if _, err := svc.GetAttemptForReview("att-1", 4); !errors.Is(err, util.ErrPermissionDenied) {
		t.Errorf("non-creator review error = %v, want ErrPermissionDenied", err)
	}
}

func TestPolicyForFamilyDefaults(t *testing.T) {
	tests := []struct {
		family model.AssessmentFamily
		table  string
		want   string
	}{
		{model.FamilyLibrary, "", grading.TablePlusMinus},
		{model.FamilyExamBody, "", grading.TableSimple},
		{model.FamilyExplore, "", grading.TableSimple},
		{model.FamilyLibrary, grading.TableSimple, grading.TableSimple},
		{model.FamilyExplore, grading.TablePlusMinus, grading.TablePlusMinus},
	}

	for _, tt := range tests {
		a := &model.Assessment{Family: tt.family, LetterTable: tt.table, PassingScore: 50}
		if got := a.GradingPolicy().LetterTable; got != tt.want {
			t.Errorf("GradingPolicy(%s, %q).LetterTable = %q, want %q", tt.family, tt.table, got, tt.want)
		}
	}
}

func TestEvaluateSubmissionScoreInvariants(t *testing.T) {
	a := testAssessment()
	ev := evaluateSubmission(a.Questions, []ResponseInput{
		{QuestionID: 11, SelectedOptions: []string{"B"}},
		{QuestionID: 12, TextAnswer: text("  PARIS ")},
	})

	var sum float64
	for _, row := range ev.breakdown {
		sum += row.PointsEarned
		if row.PointsEarned != 0 && row.PointsEarned != row.Points {
			t.Errorf("question %d earned %v of %v, grading is all-or-nothing", row.QuestionID, row.PointsEarned, row.Points)
		}
	}
	if sum != ev.totalScore {
		t.Errorf("breakdown sums to %v, totalScore is %v", sum, ev.totalScore)
	}
	if ev.totalScore != 15 || ev.correctCount != 2 {
		t.Errorf("totalScore = %v correct = %d, want 15 and 2", ev.totalScore, ev.correctCount)
	}
}

func TestAttemptsRemainingClamps(t *testing.T) {
	limit := 3
	if got := attemptsRemaining(&limit, 1); got == nil || *got != 2 {
		t.Errorf("attemptsRemaining(3, 1) = %v, want 2", got)
	}
	if got := attemptsRemaining(&limit, 5); got == nil || *got != 0 {
		t.Errorf("attemptsRemaining(3, 5) = %v, want 0", got)
	}
	if got := attemptsRemaining(nil, 1); got != nil {
		t.Errorf("attemptsRemaining(nil, 1) = %v, want nil", got)
	}
}
