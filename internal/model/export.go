package model

import "time"

// QAPair couples a question with its recorded answer for the audit trail
type QAPair struct {
	Question ComplianceQuestion `json:"question" bson:"question"`
	Answer   InterviewAnswer    `json:"answer" bson:"answer"`
}

// PenaltyFinding links an identified gap to a penal article it may violate
type PenaltyFinding struct {
	Gap        string   `json:"gap" bson:"gap"`
	Articles   []string `json:"articles" bson:"articles"`
	MaxFineUSD float64  `json:"maxFineUsd" bson:"maxFineUsd"`
}

// PenaltyExposure summarizes potential financial exposure for a DRC export
type PenaltyExposure struct {
	Findings    []PenaltyFinding `json:"findings" bson:"findings"`
	TotalMaxUSD float64          `json:"totalMaxUsd" bson:"totalMaxUsd"`
	Disclaimer  string           `json:"disclaimer" bson:"disclaimer"`
}

// InterviewExport is the scored, narrative bundle handed to the downstream
// comparison pipeline. StructuredResponses is the one field that pipeline
// requires; everything else is supplementary.
type InterviewExport struct {
	SessionMetadata     InterviewSession    `json:"sessionMetadata" bson:"sessionMetadata"`
	StructuredResponses map[string][]string `json:"structuredResponses" bson:"structuredResponses"`
	ComplianceSummary   string              `json:"complianceSummary" bson:"complianceSummary"`
	ComplianceScores    map[string]float64  `json:"complianceScores" bson:"complianceScores"`
	IdentifiedGaps      []string            `json:"identifiedGaps" bson:"identifiedGaps"`
	Recommendations     []string            `json:"recommendations" bson:"recommendations"`
	RawQAPairs          []QAPair            `json:"rawQaPairs" bson:"rawQaPairs"`
	PenaltyExposure     *PenaltyExposure    `json:"penaltyExposure,omitempty" bson:"penaltyExposure,omitempty"`
	ExportTimestamp     time.Time           `json:"exportTimestamp" bson:"exportTimestamp"`
	FormatVersion       string              `json:"formatVersion" bson:"formatVersion"`
}
