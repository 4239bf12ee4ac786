package service

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"vigilore/internal/model"
)

// answer timestamps and dates accepted on date questions
var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// ValidateAnswer checks a raw JSON-decoded answer against the question's
// rules and, when valid, types it into an AnswerValue. Validation failures
// come back as values; the caller must not mutate session state on error.
func ValidateAnswer(q *model.ComplianceQuestion, raw interface{}) (*model.AnswerValue, *model.ValidationError) {
	switch q.QuestionType {
	case model.QuestionYesNo:
		return validateYesNo(q, raw)
	case model.QuestionNumber:
		return validateNumber(q, raw)
	case model.QuestionScale:
		return validateScale(q, raw)
	case model.QuestionMultipleChoice:
		return validateMultipleChoice(q, raw)
	case model.QuestionMultiSelect:
		return validateMultiSelect(q, raw)
	case model.QuestionDate:
		return validateDate(q, raw)
	case model.QuestionText:
		return &model.AnswerValue{Text: stringify(raw)}, nil
	default:
		return nil, &model.ValidationError{
			QuestionID: q.ID,
			ErrorType:  model.ErrQuestionError,
			Message:    fmt.Sprintf("unsupported question type %q", q.QuestionType),
		}
	}
}

func validateYesNo(q *model.ComplianceQuestion, raw interface{}) (*model.AnswerValue, *model.ValidationError) {
	if b, ok := raw.(bool); ok {
		return &model.AnswerValue{Bool: &b}, nil
	}
	if s, ok := raw.(string); ok {
		switch strings.ToLower(strings.TrimSpace(s)) {
		case "yes", "true":
			b := true
			return &model.AnswerValue{Bool: &b}, nil
		case "no", "false":
			b := false
			return &model.AnswerValue{Bool: &b}, nil
		}
	}
	return nil, &model.ValidationError{
		QuestionID:     q.ID,
		ErrorType:      model.ErrTypeError,
		Message:        "Answer must be yes/no or true/false",
		ExpectedFormat: "boolean",
	}
}

func validateNumber(q *model.ComplianceQuestion, raw interface{}) (*model.AnswerValue, *model.ValidationError) {
	n, ok := toFloat(raw)
	if !ok {
		return nil, &model.ValidationError{
			QuestionID:     q.ID,
			ErrorType:      model.ErrTypeError,
			Message:        "Answer must be a number",
			ExpectedFormat: "number",
		}
	}
	if r := q.ValidationRules; r != nil {
		if r.Min != nil && n < *r.Min {
			return nil, &model.ValidationError{
				QuestionID:     q.ID,
				ErrorType:      model.ErrRangeError,
				Message:        fmt.Sprintf("Value must be at least %s", formatBound(*r.Min)),
				ExpectedFormat: "number",
			}
		}
		if r.Max != nil && n > *r.Max {
			return nil, &model.ValidationError{
				QuestionID:     q.ID,
				ErrorType:      model.ErrRangeError,
				Message:        fmt.Sprintf("Value must be at most %s", formatBound(*r.Max)),
				ExpectedFormat: "number",
			}
		}
	}
	return &model.AnswerValue{Number: &n}, nil
}

func validateScale(q *model.ComplianceQuestion, raw interface{}) (*model.AnswerValue, *model.ValidationError) {
	n, ok := toFloat(raw)
	if !ok || n != math.Trunc(n) {
		return nil, &model.ValidationError{
			QuestionID:     q.ID,
			ErrorType:      model.ErrTypeError,
			Message:        "Answer must be a number between 1 and 5",
			ExpectedFormat: "1-5",
		}
	}
	v := int(n)
	if v < 1 || v > 5 {
		return nil, &model.ValidationError{
			QuestionID:     q.ID,
			ErrorType:      model.ErrRangeError,
			Message:        "Scale value must be between 1 and 5",
			ExpectedFormat: "1-5",
		}
	}
	return &model.AnswerValue{Scale: &v}, nil
}

func validateMultipleChoice(q *model.ComplianceQuestion, raw interface{}) (*model.AnswerValue, *model.ValidationError) {
	s, ok := raw.(string)
	if ok {
		for _, opt := range q.Options {
			if s == opt {
				return &model.AnswerValue{Option: s}, nil
			}
		}
	}
	return nil, &model.ValidationError{
		QuestionID:     q.ID,
		ErrorType:      model.ErrInvalidOption,
		Message:        fmt.Sprintf("Answer must be one of: %s", strings.Join(q.Options, ", ")),
		ExpectedFormat: "select one option",
	}
}

func validateMultiSelect(q *model.ComplianceQuestion, raw interface{}) (*model.AnswerValue, *model.ValidationError) {
	items, ok := toStringSlice(raw)
	if !ok {
		return nil, &model.ValidationError{
			QuestionID:     q.ID,
			ErrorType:      model.ErrTypeError,
			Message:        "Answer must be a list of selections",
			ExpectedFormat: "array",
		}
	}
	allowed := make(map[string]bool, len(q.Options))
	for _, opt := range q.Options {
		allowed[opt] = true
	}
	var invalid []string
	for _, it := range items {
		if !allowed[it] {
			invalid = append(invalid, it)
		}
	}
	if len(invalid) > 0 {
		return nil, &model.ValidationError{
			QuestionID:     q.ID,
			ErrorType:      model.ErrInvalidOption,
			Message:        fmt.Sprintf("Invalid options: %s", strings.Join(invalid, ", ")),
			ExpectedFormat: "select from available options",
		}
	}
	if items == nil {
		items = []string{}
	}
	return &model.AnswerValue{Options: items}, nil
}

func validateDate(q *model.ComplianceQuestion, raw interface{}) (*model.AnswerValue, *model.ValidationError) {
	if s, ok := raw.(string); ok {
		for _, layout := range dateLayouts {
			if _, err := time.Parse(layout, s); err == nil {
				return &model.AnswerValue{Date: s}, nil
			}
		}
	}
	return nil, &model.ValidationError{
		QuestionID:     q.ID,
		ErrorType:      model.ErrFormatError,
		Message:        "Date must be in ISO format (YYYY-MM-DD)",
		ExpectedFormat: "YYYY-MM-DD",
	}
}

// ParseDate resolves a stored date value back to a time, trying the same
// layouts the validator accepted.
func ParseDate(s string) (time.Time, bool) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// toFloat coerces numeric input. Non-finite values are rejected: they pass
// range checks (NaN comparisons are always false) and then poison every
// JSON marshal of the session.
func toFloat(raw interface{}) (float64, bool) {
	var n float64
	switch v := raw.(type) {
	case float64:
		n = v
	case float32:
		n = float64(v)
	case int:
		n = float64(v)
	case int64:
		n = float64(v)
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0, false
		}
		n = parsed
	default:
		return 0, false
	}
	if math.IsNaN(n) || math.IsInf(n, 0) {
		return 0, false
	}
	return n, true
}

func toStringSlice(raw interface{}) ([]string, bool) {
	switch v := raw.(type) {
	case []string:
		return v, true
	case []interface{}:
		out := make([]string, 0, len(v))
		for _, it := range v {
			s, ok := it.(string)
			if !ok {
				return nil, false
			}
			out = append(out, s)
		}
		return out, true
	default:
		return nil, false
	}
}

func stringify(raw interface{}) string {
	switch v := raw.(type) {
	case string:
		return v
	case nil:
		return ""
	default:
		return fmt.Sprintf("%v", v)
	}
}

// formatBound prints numeric bounds without a trailing .0 for whole numbers
func formatBound(f float64) string {
	if f == math.Trunc(f) {
		return strconv.FormatFloat(f, 'f', 0, 64)
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}
