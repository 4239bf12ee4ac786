package model

import "time"

// SessionStatus tracks the interview lifecycle
type SessionStatus string

const (
	SessionInProgress SessionStatus = "in_progress"
	SessionCompleted  SessionStatus = "completed"
	SessionPaused     SessionStatus = "paused"
	SessionAbandoned  SessionStatus = "abandoned"
)

// SecondsPerQuestion is the fixed pacing assumption behind time estimates
const SecondsPerQuestion = 30

// InterviewSession is the full state of one interview, conducted by one
// auditor against one framework
type InterviewSession struct {
	SessionID    string   `json:"sessionId" bson:"_id"`
	Framework    string   `json:"framework" bson:"framework"`
	SiteName     string   `json:"siteName" bson:"siteName"`
	SiteCode     string   `json:"siteCode,omitempty" bson:"siteCode,omitempty"`
	Operator     string   `json:"operator,omitempty" bson:"operator,omitempty"`
	AuditorName  string   `json:"auditorName" bson:"auditorName"`
	AuditorEmail string   `json:"auditorEmail,omitempty" bson:"auditorEmail,omitempty"`
	Language     string   `json:"language" bson:"language"`
	Categories   []string `json:"categories,omitempty" bson:"categories,omitempty"` // empty = all

	StartedAt      time.Time  `json:"startedAt" bson:"startedAt"`
	CompletedAt    *time.Time `json:"completedAt,omitempty" bson:"completedAt,omitempty"`
	LastActivityAt time.Time  `json:"lastActivityAt" bson:"lastActivityAt"`

	CurrentQuestionIndex int               `json:"currentQuestionIndex" bson:"currentQuestionIndex"`
	LastAnsweredID       string            `json:"lastAnsweredId,omitempty" bson:"lastAnsweredId,omitempty"`
	TotalQuestions       int               `json:"totalQuestions" bson:"totalQuestions"`
	Answers              []InterviewAnswer `json:"answers" bson:"answers"`
	Status               SessionStatus     `json:"status" bson:"status"`
	ProgressPercentage   float64           `json:"progressPercentage" bson:"progressPercentage"`
	CategoriesCompleted  []string          `json:"categoriesCompleted" bson:"categoriesCompleted"`
	EstimatedSecondsLeft int               `json:"estimatedSecondsLeft" bson:"estimatedSecondsLeft"`
}

// AnsweredIDs returns the set of question ids with a recorded answer
func (s *InterviewSession) AnsweredIDs() map[string]bool {
	ids := make(map[string]bool, len(s.Answers))
	for _, a := range s.Answers {
		ids[a.QuestionID] = true
	}
	return ids
}

// AnswerFor returns the recorded answer for a question id, or nil
func (s *InterviewSession) AnswerFor(questionID string) *InterviewAnswer {
	for i := range s.Answers {
		if s.Answers[i].QuestionID == questionID {
			return &s.Answers[i]
		}
	}
	return nil
}

// LastAnswer returns the most recently submitted answer, or nil. A
// re-submission keeps its slot in Answers but still counts as the latest
// submission, so LastAnsweredID wins over the slice tail.
func (s *InterviewSession) LastAnswer() *InterviewAnswer {
	if s.LastAnsweredID != "" {
		if a := s.AnswerFor(s.LastAnsweredID); a != nil {
			return a
		}
	}
	if len(s.Answers) == 0 {
		return nil
	}
	return &s.Answers[len(s.Answers)-1]
}

// Terminal reports whether the session can no longer accept answers
func (s *InterviewSession) Terminal() bool {
	return s.Status == SessionCompleted || s.Status == SessionAbandoned
}

// RecomputeProgress refreshes the derived progress fields. The denominator is
// frozen at session start; follow-up answers beyond it are clamped at 100.
func (s *InterviewSession) RecomputeProgress(now time.Time) {
	answered := len(s.Answers)
	if s.TotalQuestions > 0 {
		pct := float64(answered) / float64(s.TotalQuestions) * 100
		if pct > 100 {
			pct = 100
		}
		s.ProgressPercentage = pct
	}
	remaining := s.TotalQuestions - answered
	if remaining < 0 {
		remaining = 0
	}
	s.EstimatedSecondsLeft = remaining * SecondsPerQuestion
	s.LastActivityAt = now
}

// CategoryProgress is derived per-category completion, never stored
type CategoryProgress struct {
	Category             string  `json:"category"`
	TotalQuestions       int     `json:"totalQuestions"`
	AnsweredQuestions    int     `json:"answeredQuestions"`
	RequiredQuestions    int     `json:"requiredQuestions"`
	RequiredAnswered     int     `json:"requiredAnswered"`
	CompletionPercentage float64 `json:"completionPercentage"`
}

// StartSessionRequest carries the metadata needed to open an interview
type StartSessionRequest struct {
	Framework    string   `json:"framework"`
	SiteName     string   `json:"siteName"`
	SiteCode     string   `json:"siteCode,omitempty"`
	Operator     string   `json:"operator,omitempty"`
	AuditorName  string   `json:"auditorName"`
	AuditorEmail string   `json:"auditorEmail,omitempty"`
	Language     string   `json:"language,omitempty"`
	Categories   []string `json:"categories,omitempty"`
}
