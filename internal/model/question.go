package model

// QuestionType defines how a compliance question is answered and validated
type QuestionType string

const (
	QuestionYesNo          QuestionType = "yes_no"
	QuestionMultipleChoice QuestionType = "multiple_choice"
	QuestionMultiSelect    QuestionType = "multi_select"
	QuestionText           QuestionType = "text"
	QuestionNumber         QuestionType = "number"
	QuestionDate           QuestionType = "date"
	QuestionScale          QuestionType = "scale" // 1-5 rating
)

// ValidationRules holds optional numeric bounds for number questions
type ValidationRules struct {
	Min *float64 `json:"min,omitempty" yaml:"min,omitempty" bson:"min,omitempty"`
	Max *float64 `json:"max,omitempty" yaml:"max,omitempty" bson:"max,omitempty"`
}

// ComplianceQuestion is an immutable question drawn from a framework bank
type ComplianceQuestion struct {
	ID               string            `json:"id" yaml:"id" bson:"id"`
	Category         string            `json:"category" yaml:"category" bson:"category"`
	FrameworkRef     string            `json:"frameworkRef" yaml:"framework_ref" bson:"frameworkRef"`
	QuestionText     string            `json:"questionText" yaml:"question_text" bson:"questionText"`
	QuestionType     QuestionType      `json:"questionType" yaml:"question_type" bson:"questionType"`
	Options          []string          `json:"options,omitempty" yaml:"options,omitempty" bson:"options,omitempty"`
	ValidationRules  *ValidationRules  `json:"validationRules,omitempty" yaml:"validation_rules,omitempty" bson:"validationRules,omitempty"`
	FollowUpTrigger  map[string]string `json:"followUpTrigger,omitempty" yaml:"follow_up_trigger,omitempty" bson:"followUpTrigger,omitempty"`
	Weight           float64           `json:"weight" yaml:"weight" bson:"weight"`
	Required         bool              `json:"required" yaml:"required" bson:"required"`
	EvidenceRequired bool              `json:"evidenceRequired" yaml:"evidence_required" bson:"evidenceRequired"`
	HelpText         string            `json:"helpText,omitempty" yaml:"help_text,omitempty" bson:"helpText,omitempty"`
}

// HasOptions reports whether this question type selects from a fixed option set
func (q *ComplianceQuestion) HasOptions() bool {
	return q.QuestionType == QuestionMultipleChoice || q.QuestionType == QuestionMultiSelect
}
