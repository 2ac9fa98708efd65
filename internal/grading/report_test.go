package grading

import (
	"strings"
	"testing"
)

func TestLetterGradePlusMinus(t *testing.T) {
	tests := []struct {
		percentage float64
		want       string
	}{
		{100, "A+"}, {90, "A+"}, {89.9, "A"}, {80, "A"},
		{79.9, "B"}, {70, "B"}, {69.9, "C"}, {60, "C"},
		{59.9, "D"}, {50, "D"}, {49.9, "F"}, {0, "F"},
	}

	for _, tc := range tests {
		if got := LetterGrade(tc.percentage, TablePlusMinus); got != tc.want {
			t.Fatalf("plus-minus %.1f: expected %s, got %s", tc.percentage, tc.want, got)
		}
	}
}

func TestLetterGradeSimple(t *testing.T) {
	tests := []struct {
		percentage float64
		want       string
	}{
		{95, "A"}, {90, "A"}, {85, "B"}, {80, "B"},
		{75, "C"}, {70, "C"}, {65, "D"}, {60, "D"},
		{59.9, "F"}, {50, "F"}, {0, "F"},
	}

	for _, tc := range tests {
		if got := LetterGrade(tc.percentage, TableSimple); got != tc.want {
			t.Fatalf("simple %.1f: expected %s, got %s", tc.percentage, tc.want, got)
		}
	}
}

func TestLetterGradeUnknownTableFallsBackToSimple(t *testing.T) {
	if got := LetterGrade(85, "fancy"); got != "B" {
		t.Fatalf("expected fallback to simple table, got %s", got)
	}
}

func TestPolicyPassed(t *testing.T) {
	p := Policy{PassingScore: 50, LetterTable: TableSimple}

	if !p.Passed(50) {
		t.Fatal("threshold itself should pass")
	}
	if p.Passed(49.99) {
		t.Fatal("below threshold should not pass")
	}
}

func TestPassMessage(t *testing.T) {
	remaining := 2
	exhausted := 0

	if msg := PassMessage(true, 80, &remaining); !strings.Contains(msg, "passed") {
		t.Fatalf("unexpected pass message: %s", msg)
	}
	if msg := PassMessage(false, 40, &remaining); !strings.Contains(msg, "2 attempt(s) remaining") {
		t.Fatalf("unexpected fail message: %s", msg)
	}
	if msg := PassMessage(false, 40, &exhausted); !strings.Contains(msg, "no attempts remaining") {
		t.Fatalf("unexpected exhausted message: %s", msg)
	}
	if msg := PassMessage(false, 40, nil); !strings.Contains(msg, "try again") {
		t.Fatalf("unexpected unlimited message: %s", msg)
	}
}
