// Package grading converts scores into letter grades and checks rubric weights.
//
// Every screen that shows a letter grade goes through ScoreToGrade so the
// ladder below is the only one in the system.
package grading

import "math"

// Grade is a letter grade on the EcoLearn ladder.
type Grade string

// Letter grades ordered from best to worst.
const (
	GradeAPlus  Grade = "A+"
	GradeA      Grade = "A"
	GradeAMinus Grade = "A-"
	GradeBPlus  Grade = "B+"
	GradeB      Grade = "B"
	GradeBMinus Grade = "B-"
	GradeCPlus  Grade = "C+"
	GradeC      Grade = "C"
	GradeCMinus Grade = "C-"
	GradeDPlus  Grade = "D+"
	GradeD      Grade = "D"
	GradeF      Grade = "F"
)

// DefaultMaxPoints is used when an assignment does not define its own maximum.
const DefaultMaxPoints = 100.0

// Breakpoint maps a minimum percentage to the grade it earns.
type Breakpoint struct {
	Threshold float64
	Grade     Grade
}

// Ladder lists the breakpoints in descending order. There is no D- step:
// anything below 40% is an F.
var Ladder = []Breakpoint{
	{Threshold: 90, Grade: GradeAPlus},
	{Threshold: 85, Grade: GradeA},
	{Threshold: 80, Grade: GradeAMinus},
	{Threshold: 75, Grade: GradeBPlus},
	{Threshold: 70, Grade: GradeB},
	{Threshold: 65, Grade: GradeBMinus},
	{Threshold: 60, Grade: GradeCPlus},
	{Threshold: 55, Grade: GradeC},
	{Threshold: 50, Grade: GradeCMinus},
	{Threshold: 45, Grade: GradeDPlus},
	{Threshold: 40, Grade: GradeD},
}

// Grades returns every grade from best to worst, F included.
func Grades() []Grade {
	grades := make([]Grade, 0, len(Ladder)+1)
	for _, step := range Ladder {
		grades = append(grades, step.Grade)
	}
	return append(grades, GradeF)
}

// Rank returns the position of the grade on the ladder, 0 being A+.
// Unknown grades rank below F.
func (g Grade) Rank() int {
	for idx, grade := range Grades() {
		if grade == g {
			return idx
		}
	}
	return len(Ladder) + 1
}

// Valid reports whether g is one of the ladder grades.
func (g Grade) Valid() bool {
	return g.Rank() <= len(Ladder)
}

func (g Grade) String() string {
	return string(g)
}

// Percentage returns score as a percentage of maxPoints. ok is false when
// maxPoints is not positive or either value is NaN.
func Percentage(score, maxPoints float64) (float64, bool) {
	if math.IsNaN(score) || math.IsNaN(maxPoints) || maxPoints <= 0 {
		return 0, false
	}
	return (score / maxPoints) * 100, true
}

// ScoreToGrade converts a raw score into a letter grade. Scores are not
// clamped: above-max scores earn A+ and negative ones fall through to F.
// A non-positive maxPoints yields F.
func ScoreToGrade(score, maxPoints float64) Grade {
	percentage, ok := Percentage(score, maxPoints)
	if !ok {
		return GradeF
	}
	return PercentageToGrade(percentage)
}

// PercentageToGrade walks the ladder for an already computed percentage.
func PercentageToGrade(percentage float64) Grade {
	if math.IsNaN(percentage) {
		return GradeF
	}
	for _, step := range Ladder {
		if percentage >= step.Threshold {
			return step.Grade
		}
	}
	return GradeF
}
