package grading

import "fmt"

// Two letter-grade tables survive from before the grading paths were
// unified. Keeping both as named strategies makes the difference a
// configuration choice per assessment instead of accidental drift.
const (
	TablePlusMinus = "plus-minus"
	TableSimple    = "simple"
)

// Policy parameterizes grading per call site: the passing threshold, which
// letter table applies, and the partial-credit toggle (reserved; every
// comparison today is all-or-nothing).
type Policy struct {
	PassingScore       float64
	LetterTable        string
	AllowPartialCredit bool
}

func (p Policy) Passed(percentage float64) bool {
	return percentage >= p.PassingScore
}

func (p Policy) Letter(percentage float64) string {
	return LetterGrade(percentage, p.LetterTable)
}

// LetterGrade buckets a 0-100 percentage. An unrecognized table name falls
// back to the simple table.
func LetterGrade(percentage float64, table string) string {
	if table == TablePlusMinus {
		switch {
		case percentage >= 90:
			return "A+"
		case percentage >= 80:
			return "A"
		case percentage >= 70:
			return "B"
		case percentage >= 60:
			return "C"
		case percentage >= 50:
			return "D"
		default:
			return "F"
		}
	}

	switch {
	case percentage >= 90:
		return "A"
	case percentage >= 80:
		return "B"
	case percentage >= 70:
		return "C"
	case percentage >= 60:
		return "D"
	default:
		return "F"
	}
}

// PassMessage is the learner-facing verdict line on an attempt result.
func PassMessage(passed bool, percentage float64, attemptsRemaining *int) string {
	if passed {
		return fmt.Sprintf("Congratulations, you passed with %.1f%%.", percentage)
	}
	if attemptsRemaining == nil {
		return fmt.Sprintf("You scored %.1f%%. You did not pass this time; you may try again.", percentage)
	}
	if *attemptsRemaining > 0 {
		return fmt.Sprintf("You scored %.1f%%. You did not pass; %d attempt(s) remaining.", percentage, *attemptsRemaining)
	}
	return fmt.Sprintf("You scored %.1f%%. You did not pass and have no attempts remaining.", percentage)
}
