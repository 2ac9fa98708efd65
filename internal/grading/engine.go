// Package grading is the single auto-grading path shared by the library,
// exam-body and explore assessment surfaces. Everything here is a pure
// function: every input combination maps to a defined Result, and a missing
// or malformed submission is just "no answer", never an error.
package grading

const (
	FeedbackManualRequired = "manual grading required"
	FeedbackManualType     = "requires manual grading"
	FeedbackUnknownType    = "unknown question type"
)

// Grade compares a submitted response against the question's answer key.
// PointsEarned is all-or-nothing: q.Points on a correct answer, 0 otherwise.
func Grade(q Question, key *Key, resp *Response) Result {
	// deliberate ungraded sentinel, checked before anything else
	if key.Empty() {
		return Result{IsCorrect: nil, PointsEarned: 0, Feedback: FeedbackManualRequired}
	}

	switch q.Type {
	case MultipleChoiceSingle, TrueFalse:
		return gradeSingleChoice(q, key, resp)
	case MultipleChoiceMultiple:
		return gradeMultipleChoice(q, key, resp)
	case ShortAnswer, FillInBlank:
		return gradeText(q, key, resp)
	case Numeric:
		return gradeNumeric(q, key, resp)
	case Date:
		return gradeDate(q, key, resp)
	case LongAnswer, FileUpload, Matching, Ordering, RatingScale:
		return Result{
			IsCorrect:      nil,
			PointsEarned:   0,
			SelectedAnswer: selectedAnswer(resp),
			Feedback:       FeedbackManualType,
		}
	default:
		// unknown types grade as wrong, not as the nil sentinel; the
		// distinction is relied on by correct-count reporting
		return Result{IsCorrect: boolPtr(false), PointsEarned: 0, Feedback: FeedbackUnknownType}
	}
}

func gradeSingleChoice(q Question, key *Key, resp *Response) Result {
	correct := ""
	if len(key.OptionIDs) > 0 {
		correct = key.OptionIDs[0]
	}

	selected := ""
	if resp != nil && len(resp.SelectedOptions) > 0 {
		selected = resp.SelectedOptions[0]
	}

	isCorrect := correct != "" && selected == correct
	return Result{
		IsCorrect:      boolPtr(isCorrect),
		PointsEarned:   award(q, isCorrect),
		CorrectAnswer:  correct,
		SelectedAnswer: selected,
	}
}

func gradeMultipleChoice(q Question, key *Key, resp *Response) Result {
	correctSet := normalizeSet(key.OptionIDs)

	var submitted []string
	if resp != nil {
		submitted = resp.SelectedOptions
	}
	selectedSet := normalizeSet(submitted)

	isCorrect := len(correctSet) > 0 && len(selectedSet) == len(correctSet)
	if isCorrect {
		for id := range selectedSet {
			if _, ok := correctSet[id]; !ok {
				isCorrect = false
				break
			}
		}
	}

	return Result{
		IsCorrect:      boolPtr(isCorrect),
		PointsEarned:   award(q, isCorrect),
		CorrectAnswer:  key.OptionIDs,
		SelectedAnswer: submitted,
	}
}

func gradeText(q Question, key *Key, resp *Response) Result {
	if key.Text == nil {
		return Result{IsCorrect: boolPtr(false), PointsEarned: 0}
	}

	result := Result{CorrectAnswer: *key.Text}
	if resp == nil || resp.Text == nil {
		result.IsCorrect = boolPtr(false)
		return result
	}

	result.SelectedAnswer = *resp.Text
	isCorrect := normalizeText(*resp.Text) == normalizeText(*key.Text)
	result.IsCorrect = boolPtr(isCorrect)
	result.PointsEarned = award(q, isCorrect)
	return result
}

func gradeNumeric(q Question, key *Key, resp *Response) Result {
	if key.Number == nil {
		return Result{IsCorrect: boolPtr(false), PointsEarned: 0}
	}

	result := Result{CorrectAnswer: *key.Number}
	if resp == nil || resp.Number == nil {
		result.IsCorrect = boolPtr(false)
		return result
	}

	result.SelectedAnswer = *resp.Number
	// exact equality, no epsilon; stored values come from the same JSON
	// decoding path on both sides
	isCorrect := *resp.Number == *key.Number
	result.IsCorrect = boolPtr(isCorrect)
	result.PointsEarned = award(q, isCorrect)
	return result
}

func gradeDate(q Question, key *Key, resp *Response) Result {
	if key.Date == nil {
		return Result{IsCorrect: boolPtr(false), PointsEarned: 0}
	}

	result := Result{CorrectAnswer: key.Date.Format("2006-01-02")}
	if resp == nil || resp.Date == nil {
		result.IsCorrect = boolPtr(false)
		return result
	}

	result.SelectedAnswer = resp.Date.Format("2006-01-02")
	isCorrect := sameCalendarDay(*resp.Date, *key.Date)
	result.IsCorrect = boolPtr(isCorrect)
	result.PointsEarned = award(q, isCorrect)
	return result
}

func selectedAnswer(resp *Response) interface{} {
	if resp == nil {
		return nil
	}
	switch {
	case len(resp.SelectedOptions) > 0:
		return resp.SelectedOptions
	case resp.Text != nil:
		return *resp.Text
	case resp.Number != nil:
		return *resp.Number
	case resp.Date != nil:
		return resp.Date.Format("2006-01-02")
	case len(resp.FileURLs) > 0:
		return resp.FileURLs
	}
	return nil
}

func award(q Question, isCorrect bool) float64 {
	if isCorrect && q.Points > 0 {
		return q.Points
	}
	return 0
}
