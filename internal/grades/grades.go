// Package grades computes subject averages and pass/fail status. Pure
// functions only; nothing here touches the store.
package grades

import "acadkeeper/internal/model"

// Status is the outcome of a subject average.
type Status string

const (
	StatusPassed   Status = "Passed"
	StatusFailed   Status = "Failed"
	StatusUngraded Status = "Ungraded"
)

// passMark is the institutional pass threshold.
const passMark = 7.0

// Average applies the fixed 40/40/20 weighting: the two partial scores count
// four tenths each, the global project score two tenths. The project score is
// the same single grade for every subject.
func Average(first, second, project float64) float64 {
	return (first*4 + project*2 + second*4) / 10
}

// StatusOf maps an average to its outcome. An average of exactly zero is
// reported as Ungraded: genuinely all-zero scores are indistinguishable from
// "no scores entered", an ambiguity inherited from the grading policy rather
// than a bug to fix here.
func StatusOf(avg float64) Status {
	switch {
	case avg >= passMark:
		return StatusPassed
	case avg == 0:
		return StatusUngraded
	default:
		return StatusFailed
	}
}

// OverallAverage returns the arithmetic mean of the given per-subject
// averages. ok is false when the slice is empty; callers must special-case
// that instead of trusting the zero value.
func OverallAverage(subjectAverages []float64) (avg float64, ok bool) {
	if len(subjectAverages) == 0 {
		return 0, false
	}
	var sum float64
	for _, a := range subjectAverages {
		sum += a
	}
	return sum / float64(len(subjectAverages)), true
}

// SheetAverages recomputes every standard subject's average from the raw
// scores of the sheet. The sheet's cache is never consulted.
func SheetAverages(sheet model.GradeSheet) map[string]float64 {
	out := make(map[string]float64, len(sheet.Subjects))
	for code, s := range sheet.Subjects {
		out[code] = Average(s.First, s.Second, sheet.Project)
	}
	return out
}
