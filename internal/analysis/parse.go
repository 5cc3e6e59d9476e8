package analysis

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/codebuildervaibhav/quizsplice/internal/types"
)

var breakRe = regexp.MustCompile(`(\d+)\s*-\s*(\d+)\s*\(\s*(\d+)`)

// ParseResponse reads the 4-line model answer. It never fails: absent labels are recorded in
// Missing and leave their field empty (or nil for the break window).
func ParseResponse(text string) types.AnalysisResult {
	var lines []string
	for _, l := range strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n") {
		// models like to bold labels
		l = strings.TrimSpace(strings.TrimLeft(strings.TrimSpace(l), "*-# "))
		l = strings.ReplaceAll(l, "**", "")
		if l != "" {
			lines = append(lines, l)
		}
	}

	res := types.AnalysisResult{Raw: text}

	show, ok := findLabel(lines, LabelShow)
	if !ok {
		res.Missing = append(res.Missing, LabelShow)
	}
	if show == "" {
		show = "Unknown"
	}
	res.Show = show

	if window, ok := findLabel(lines, LabelBreak); ok {
		res.LongestBreak = parseBreak(window)
	} else {
		res.Missing = append(res.Missing, LabelBreak)
	}

	if q, ok := findLabel(lines, LabelQuestion); ok {
		res.Clip1Question = q
	} else {
		res.Missing = append(res.Missing, LabelQuestion)
	}

	if a, ok := findLabel(lines, LabelAnswer); ok {
		res.Clip2Answer = a
	} else {
		res.Missing = append(res.Missing, LabelAnswer)
	}

	return res
}

// findLabel returns the text after the first line starting with label, case-insensitively.
func findLabel(lines []string, label string) (string, bool) {
	for _, l := range lines {
		if len(l) >= len(label) && strings.EqualFold(l[:len(label)], label) {
			return strings.TrimSpace(l[len(label):]), true
		}
	}
	return "", false
}

func parseBreak(s string) types.BreakWindow {
	m := breakRe.FindStringSubmatch(s)
	if m == nil {
		return types.BreakWindow{}
	}
	start, err1 := strconv.ParseInt(m[1], 10, 64)
	end, err2 := strconv.ParseInt(m[2], 10, 64)
	dur, err3 := strconv.ParseInt(m[3], 10, 64)
	if err1 != nil || err2 != nil || err3 != nil {
		return types.BreakWindow{}
	}
	return types.BreakWindow{StartMs: &start, EndMs: &end, DurationMs: &dur}
}
