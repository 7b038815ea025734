package parser

import (
	"strings"

	"annotation-review/internal/models"
)

// ValidateColumns checks that a sheet has the columns required by the
// given annotation type. Column names are compared case-insensitively.
func ValidateColumns(columns []string, annotationType models.AnnotationType) (bool, []string) {
	has := make(map[string]bool, len(columns))
	for _, c := range columns {
		has[strings.ToLower(c)] = true
	}

	var errs []string
	if annotationType.IsSingleTurn() {
		if !has["question"] {
			errs = append(errs, "Missing required column: question")
		}
		if !has["answer"] && !(has["answer1"] && has["answer2"]) {
			errs = append(errs, "Missing required columns: answer OR (answer1, answer2)")
		}
	} else {
		dialog := has["dialog"]
		comparison := has["dialog1"] && has["dialog2"]
		history := has["history"] && has["question"]
		if !dialog && !comparison && !history {
			errs = append(errs, "Missing required columns: dialog OR (dialog1, dialog2) OR (history, question, answer)")
		}
	}

	return len(errs) == 0, errs
}
