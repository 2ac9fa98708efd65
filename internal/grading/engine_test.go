package grading

import (
	"reflect"
	"testing"
	"time"
)

func strPtr(s string) *string     { return &s }
func numPtr(f float64) *float64   { return &f }
func datePtr(s string) *time.Time { t, _ := time.Parse("2006-01-02T15:04:05Z07:00", s); return &t }

func assertResult(t *testing.T, got Result, isCorrect *bool, points float64) {
	t.Helper()
	if isCorrect == nil {
		if got.IsCorrect != nil {
			t.Fatalf("expected isCorrect=nil, got=%v", *got.IsCorrect)
		}
	} else {
		if got.IsCorrect == nil {
			t.Fatalf("expected isCorrect=%v, got=nil", *isCorrect)
		}
		if *got.IsCorrect != *isCorrect {
			t.Fatalf("expected isCorrect=%v, got=%v", *isCorrect, *got.IsCorrect)
		}
	}
	if got.PointsEarned != points {
		t.Fatalf("expected pointsEarned=%v, got=%v", points, got.PointsEarned)
	}
}

func TestGradeSingleChoice(t *testing.T) {
	q := Question{ID: 1, Type: MultipleChoiceSingle, Points: 10}
	key := &Key{OptionIDs: []string{"B"}}

	tests := []struct {
		name      string
		resp      *Response
		isCorrect *bool
		points    float64
	}{
		{"correct option", &Response{SelectedOptions: []string{"B"}}, boolPtr(true), 10},
		{"wrong option", &Response{SelectedOptions: []string{"A"}}, boolPtr(false), 0},
		{"no submission", nil, boolPtr(false), 0},
		{"empty selection", &Response{SelectedOptions: []string{}}, boolPtr(false), 0},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assertResult(t, Grade(q, key, tc.resp), tc.isCorrect, tc.points)
		})
	}
}

func TestGradeTrueFalse(t *testing.T) {
	q := Question{ID: 2, Type: TrueFalse, Points: 5}
	key := &Key{OptionIDs: []string{"true"}}

	got := Grade(q, key, &Response{SelectedOptions: []string{"true"}})
	assertResult(t, got, boolPtr(true), 5)

	got = Grade(q, key, &Response{SelectedOptions: []string{"false"}})
	assertResult(t, got, boolPtr(false), 0)
}

func TestGradeMultipleChoice(t *testing.T) {
	q := Question{ID: 3, Type: MultipleChoiceMultiple, Points: 5}
	key := &Key{OptionIDs: []string{"A", "C"}}

	tests := []struct {
		name      string
		resp      *Response
		isCorrect *bool
		points    float64
	}{
		{"same set different order", &Response{SelectedOptions: []string{"C", "A"}}, boolPtr(true), 5},
		{"subset", &Response{SelectedOptions: []string{"A"}}, boolPtr(false), 0},
		{"superset", &Response{SelectedOptions: []string{"A", "B", "C"}}, boolPtr(false), 0},
		{"duplicates cannot fake cardinality", &Response{SelectedOptions: []string{"A", "A"}}, boolPtr(false), 0},
		{"no submission", nil, boolPtr(false), 0},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assertResult(t, Grade(q, key, tc.resp), tc.isCorrect, tc.points)
		})
	}
}

func TestGradeShortAnswer(t *testing.T) {
	q := Question{ID: 4, Type: ShortAnswer, Points: 4}
	key := &Key{Text: strPtr("Paris")}

	tests := []struct {
		name      string
		resp      *Response
		isCorrect *bool
		points    float64
	}{
		{"trimmed lowercased match", &Response{Text: strPtr("  paris ")}, boolPtr(true), 4},
		{"near miss is wrong", &Response{Text: strPtr("Pariss")}, boolPtr(false), 0},
		{"no submission", nil, boolPtr(false), 0},
		{"nil text", &Response{}, boolPtr(false), 0},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assertResult(t, Grade(q, key, tc.resp), tc.isCorrect, tc.points)
		})
	}
}

func TestGradeNumeric(t *testing.T) {
	q := Question{ID: 5, Type: Numeric, Points: 3}
	key := &Key{Number: numPtr(42)}

	tests := []struct {
		name      string
		resp      *Response
		isCorrect *bool
		points    float64
	}{
		{"exact match", &Response{Number: numPtr(42)}, boolPtr(true), 3},
		{"float representation of same value", &Response{Number: numPtr(42.0)}, boolPtr(true), 3},
		{"no tolerance", &Response{Number: numPtr(42.01)}, boolPtr(false), 0},
		{"no submission", nil, boolPtr(false), 0},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assertResult(t, Grade(q, key, tc.resp), tc.isCorrect, tc.points)
		})
	}
}

func TestGradeDate(t *testing.T) {
	q := Question{ID: 6, Type: Date, Points: 2}
	key := &Key{Date: datePtr("2025-03-14T00:00:00Z")}

	tests := []struct {
		name      string
		resp      *Response
		isCorrect *bool
		points    float64
	}{
		{"same day different time", &Response{Date: datePtr("2025-03-14T17:45:00Z")}, boolPtr(true), 2},
		{"next day", &Response{Date: datePtr("2025-03-15T00:00:00Z")}, boolPtr(false), 0},
		{"no submission", nil, boolPtr(false), 0},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assertResult(t, Grade(q, key, tc.resp), tc.isCorrect, tc.points)
		})
	}
}

func TestGradeManualTypes(t *testing.T) {
	key := &Key{Text: strPtr("anything")}

	for _, qt := range []QuestionType{LongAnswer, FileUpload, Matching, Ordering, RatingScale} {
		t.Run(string(qt), func(t *testing.T) {
			q := Question{ID: 7, Type: qt, Points: 10}
			got := Grade(q, key, &Response{Text: strPtr("a long essay")})
			assertResult(t, got, nil, 0)
			if got.Feedback != FeedbackManualType {
				t.Fatalf("expected feedback %q, got %q", FeedbackManualType, got.Feedback)
			}
		})
	}
}

func TestGradeMissingKey(t *testing.T) {
	q := Question{ID: 8, Type: MultipleChoiceSingle, Points: 10}

	for _, key := range []*Key{nil, {}} {
		got := Grade(q, key, &Response{SelectedOptions: []string{"A"}})
		assertResult(t, got, nil, 0)
		if got.Feedback != FeedbackManualRequired {
			t.Fatalf("expected feedback %q, got %q", FeedbackManualRequired, got.Feedback)
		}
	}
}

func TestGradeUnknownType(t *testing.T) {
	// unknown types grade false, not the nil ungraded sentinel
	q := Question{ID: 9, Type: QuestionType("ESSAY_V2"), Points: 10}
	key := &Key{Text: strPtr("x")}

	got := Grade(q, key, &Response{Text: strPtr("x")})
	assertResult(t, got, boolPtr(false), 0)
	if got.Feedback != FeedbackUnknownType {
		t.Fatalf("expected feedback %q, got %q", FeedbackUnknownType, got.Feedback)
	}
}

func TestGradeDeterminism(t *testing.T) {
	q := Question{ID: 10, Type: MultipleChoiceMultiple, Points: 7}
	key := &Key{OptionIDs: []string{"A", "C"}}
	resp := &Response{SelectedOptions: []string{"C", "A"}}

	first := Grade(q, key, resp)
	for i := 0; i < 50; i++ {
		again := Grade(q, key, resp)
		if !reflect.DeepEqual(first, again) {
			t.Fatalf("grading not deterministic: %+v vs %+v", first, again)
		}
	}
}

func TestAllOrNothingScoring(t *testing.T) {
	gradable := []struct {
		q    Question
		key  *Key
		resp *Response
	}{
		{Question{Type: MultipleChoiceSingle, Points: 10}, &Key{OptionIDs: []string{"B"}}, &Response{SelectedOptions: []string{"B"}}},
		{Question{Type: MultipleChoiceMultiple, Points: 5}, &Key{OptionIDs: []string{"A", "B"}}, &Response{SelectedOptions: []string{"A"}}},
		{Question{Type: ShortAnswer, Points: 4}, &Key{Text: strPtr("x")}, &Response{Text: strPtr("y")}},
		{Question{Type: Numeric, Points: 3}, &Key{Number: numPtr(1)}, &Response{Number: numPtr(1)}},
	}

	for _, tc := range gradable {
		got := Grade(tc.q, tc.key, tc.resp)
		if got.PointsEarned != 0 && got.PointsEarned != tc.q.Points {
			t.Fatalf("fractional score %v for question worth %v", got.PointsEarned, tc.q.Points)
		}
	}
}
