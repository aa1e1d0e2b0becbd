package main

import (
	"fmt"
	"io"
	"strconv"

	"github.com/charmbracelet/lipgloss"

	"github.com/noah-isme/backend-gpa/internal/gpa"
)

var (
	excellentColor = lipgloss.Color("#10B981") // Green
	veryGoodColor  = lipgloss.Color("#3B82F6") // Blue
	goodColor      = lipgloss.Color("#F59E0B") // Amber
	fairColor      = lipgloss.Color("#EF4444") // Red
	mutedColor     = lipgloss.Color("#6B7280") // Gray
	primaryColor   = lipgloss.Color("#8B5CF6") // Purple

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(primaryColor)

	labelStyle = lipgloss.NewStyle().
			Width(14).
			Foreground(mutedColor)

	valueStyle = lipgloss.NewStyle().Bold(true)

	skippedStyle = lipgloss.NewStyle().
			Foreground(mutedColor).
			Italic(true)
)

func standingStyle(band string) lipgloss.Style {
	color := fairColor
	switch band {
	case "excellent":
		color = excellentColor
	case "very_good":
		color = veryGoodColor
	case "good":
		color = goodColor
	}
	return lipgloss.NewStyle().Bold(true).Foreground(color)
}

func formatGPA(v *float64) string {
	if v == nil {
		return "n/a"
	}
	return strconv.FormatFloat(*v, 'f', 2, 64)
}

func row(w io.Writer, label, value string) {
	fmt.Fprintln(w, labelStyle.Render(label)+value)
}

func printSubject(w io.Writer, res gpa.SubjectResult) {
	fmt.Fprintln(w, titleStyle.Render("Subject"))
	row(w, "Credit range", strconv.Itoa(int(res.CreditRange)))
	if res.Marks != nil {
		row(w, "Marks", strconv.Itoa(*res.Marks))
	}
	if !res.Valid {
		row(w, "GPA", skippedStyle.Render("undefined (marks outside 0-"+strconv.Itoa(int(res.CreditRange))+")"))
		return
	}
	row(w, "Quality pts", strconv.FormatFloat(res.QualityPoints, 'f', -1, 64))
	row(w, "GPA", valueStyle.Render(formatGPA(res.GPA)))
}

func printSemester(w io.Writer, res gpa.SemesterResult) {
	fmt.Fprintln(w, titleStyle.Render("Semester"))
	for i, s := range res.Subjects {
		name := s.Name
		if name == "" {
			name = "Subject " + strconv.Itoa(i+1)
		}
		if !s.Valid {
			row(w, name, skippedStyle.Render("skipped"))
			continue
		}
		row(w, name, formatGPA(s.GPA))
	}
	row(w, "Counted", fmt.Sprintf("%d of %d", res.Counted, len(res.Subjects)))
	row(w, "GPA", valueStyle.Render(formatGPA(res.GPA)))
}

func printCGPA(w io.Writer, input []float64, res gpa.CGPAResult) {
	fmt.Fprintln(w, titleStyle.Render("CGPA"))
	for _, idx := range res.Rejected {
		row(w, "Rejected", skippedStyle.Render(strconv.FormatFloat(input[idx], 'f', -1, 64)+" (outside 0-4)"))
	}
	row(w, "Semesters", strconv.Itoa(res.Count))
	row(w, "CGPA", valueStyle.Render(formatGPA(res.CGPA)))
	if res.Standing != nil {
		row(w, "Standing", standingStyle(res.Standing.Band).Render(res.Standing.Label))
	}
}

func printRanges(w io.Writer, info []gpa.CreditRangeInfo) {
	fmt.Fprintln(w, titleStyle.Render("Credit ranges"))
	for _, r := range info {
		row(w, strconv.Itoa(int(r.CreditRange)), fmt.Sprintf("min marks %d, max quality points %g, divider %g",
			r.MinimumMarks, r.MaxQualityPoints, r.Divider))
	}
}
