package grading

import (
	"strings"
	"time"
)

type QuestionType string

const (
	MultipleChoiceSingle   QuestionType = "MULTIPLE_CHOICE_SINGLE"
	MultipleChoiceMultiple QuestionType = "MULTIPLE_CHOICE_MULTIPLE"
	TrueFalse              QuestionType = "TRUE_FALSE"
	ShortAnswer            QuestionType = "SHORT_ANSWER"
	FillInBlank            QuestionType = "FILL_IN_BLANK"
	Numeric                QuestionType = "NUMERIC"
	Date                   QuestionType = "DATE"
	LongAnswer             QuestionType = "LONG_ANSWER"
	FileUpload             QuestionType = "FILE_UPLOAD"
	Matching               QuestionType = "MATCHING"
	Ordering               QuestionType = "ORDERING"
	RatingScale            QuestionType = "RATING_SCALE"
)

// ManualOnly reports whether the type has no automatic grading rule.
func (t QuestionType) ManualOnly() bool {
	switch t {
	case LongAnswer, FileUpload, Matching, Ordering, RatingScale:
		return true
	}
	return false
}

// Known reports whether t is one of the supported question types.
func (t QuestionType) Known() bool {
	switch t {
	case MultipleChoiceSingle, MultipleChoiceMultiple, TrueFalse,
		ShortAnswer, FillInBlank, Numeric, Date,
		LongAnswer, FileUpload, Matching, Ordering, RatingScale:
		return true
	}
	return false
}

// Question carries the only fields grading needs.
type Question struct {
	ID     uint
	Type   QuestionType
	Points float64
}

// Key is the correct-answer spec for one question. Exactly one group of
// fields is populated, matching the question type. A nil or empty Key marks
// the question as manually graded.
type Key struct {
	OptionIDs []string
	Text      *string
	Number    *float64
	Date      *time.Time
}

func (k *Key) Empty() bool {
	if k == nil {
		return true
	}
	return len(k.OptionIDs) == 0 && k.Text == nil && k.Number == nil && k.Date == nil
}

// Response is a learner's submitted answer. A nil Response means the
// question was skipped.
type Response struct {
	SelectedOptions []string
	Text            *string
	Number          *float64
	Date            *time.Time
	FileURLs        []string
}

// Result is the grading verdict for a single question. IsCorrect is
// tri-state: nil means ungradable, never "wrong".
type Result struct {
	IsCorrect      *bool
	PointsEarned   float64
	CorrectAnswer  interface{}
	SelectedAnswer interface{}
	Feedback       string
}

// normalizeText is the short-answer comparison normalization: trim plus
// lowercase, nothing fuzzier.
func normalizeText(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// normalizeSet trims, drops empties and dedupes, so duplicate submitted
// option ids cannot fake the cardinality check.
func normalizeSet(in []string) map[string]struct{} {
	out := make(map[string]struct{}, len(in))
	for _, v := range in {
		s := strings.TrimSpace(v)
		if s == "" {
			continue
		}
		out[s] = struct{}{}
	}
	return out
}

func sameCalendarDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

func boolPtr(v bool) *bool {
	return &v
}
