package service

import (
	"context"
	"fmt"
	"log"
	"math"
	"strings"
	"time"

	"vigilore/internal/metrics"
	"vigilore/internal/model"
	"vigilore/internal/penalty"
)

// ExportFormatVersion identifies the export schema consumed downstream
const ExportFormatVersion = "1.0"

// SummaryProvider generates the narrative compliance summary. On failure the
// exporter falls back to a templated summary built from the scores alone.
type SummaryProvider interface {
	Summarize(ctx context.Context, session *model.InterviewSession, pairs []model.QAPair) (string, error)
}

// ExportStore persists generated exports for later retrieval
type ExportStore interface {
	Save(ctx context.Context, export *model.InterviewExport) error
	Load(ctx context.Context, sessionID string) (*model.InterviewExport, error)
}

// ExportService turns finished interviews into the scored statement bundle
// consumed by the downstream comparison pipeline.
type ExportService struct {
	interviews *InterviewService
	summary    SummaryProvider
	store      ExportStore
	metrics    *metrics.Metrics
	now        func() time.Time
}

// NewExportService wires an exporter. summary, store and m may be nil.
func NewExportService(interviews *InterviewService, summary SummaryProvider, store ExportStore, m *metrics.Metrics) *ExportService {
	return &ExportService{
		interviews: interviews,
		summary:    summary,
		store:      store,
		metrics:    m,
		now:        time.Now,
	}
}

// Export builds the full bundle for a session: statements grouped by
// category, weighted scores, gaps, recommendations, penalty exposure for DRC
// audits and a narrative summary.
func (e *ExportService) Export(ctx context.Context, sessionID string) (*model.InterviewExport, error) {
	session, err := e.interviews.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	b, err := e.interviews.Bank(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	structured := make(map[string][]string)
	totals := make(map[string]float64)
	achieved := make(map[string]float64)
	var gaps []string
	var recommendations []string
	var findings []model.PenaltyFinding
	pairs := make([]model.QAPair, 0, len(session.Answers))

	for _, answer := range session.Answers {
		question, ok := b.QuestionByID(answer.QuestionID)
		if !ok {
			continue
		}
		pairs = append(pairs, model.QAPair{Question: *question, Answer: answer})

		statement := FormatComplianceStatement(question, &answer, e.now())
		structured[question.Category] = append(structured[question.Category], statement)

		totals[question.Category] += question.Weight
		achieved[question.Category] += complianceCredit(question, &answer.Value)

		if isGap(question, &answer.Value) {
			gap := fmt.Sprintf("%s: %s", question.Category, question.QuestionText)
			gaps = append(gaps, gap)

			var rec string
			if question.Weight >= 3.0 {
				rec = fmt.Sprintf("CRITICAL: Address %s - %s", question.FrameworkRef, question.QuestionText)
			} else if question.Weight >= 2.0 {
				rec = fmt.Sprintf("Important: Review %s compliance", question.FrameworkRef)
			}
			if rec != "" {
				recommendations = append(recommendations, rec)
			}

			if isDRCFramework(session.Framework) {
				if articles := penalty.IdentifyViolations(gap, rec); len(articles) > 0 {
					findings = append(findings, model.PenaltyFinding{
						Gap:        gap,
						Articles:   articles,
						MaxFineUSD: penalty.MaxPenalty(articles),
					})
				}
			}
		}
	}

	scores := make(map[string]float64, len(totals))
	for category, total := range totals {
		if total <= 0 {
			scores[category] = 0
			continue
		}
		score := achieved[category] / total
		if score < 0 {
			score = 0
		}
		if score > 1 {
			score = 1
		}
		scores[category] = math.Round(score*100) / 100
	}

	if len(gaps) > 20 {
		gaps = gaps[:20]
	}
	if len(recommendations) > 10 {
		recommendations = recommendations[:10]
	}

	export := &model.InterviewExport{
		SessionMetadata:     *session,
		StructuredResponses: structured,
		ComplianceScores:    scores,
		IdentifiedGaps:      gaps,
		Recommendations:     recommendations,
		RawQAPairs:          pairs,
		ExportTimestamp:     e.now().UTC(),
		FormatVersion:       ExportFormatVersion,
	}

	if len(findings) > 0 {
		var total float64
		for _, f := range findings {
			total += f.MaxFineUSD
		}
		export.PenaltyExposure = &model.PenaltyExposure{
			Findings:    findings,
			TotalMaxUSD: total,
			Disclaimer:  penalty.Disclaimer(),
		}
	}

	export.ComplianceSummary = e.buildSummary(ctx, session, pairs, scores)

	if e.store != nil {
		if err := e.store.Save(ctx, export); err != nil {
			log.Printf("export: store write for %s failed: %v", sessionID, err)
		}
	}
	if e.metrics != nil {
		e.metrics.ExportsGenerated.Inc()
	}
	log.Printf("export: generated bundle for session %s (%d statements, %d gaps)", sessionID, len(pairs), len(gaps))
	return export, nil
}

// Get retrieves a previously generated export from the store
func (e *ExportService) Get(ctx context.Context, sessionID string) (*model.InterviewExport, error) {
	if e.store == nil {
		return nil, fmt.Errorf("export storage not configured")
	}
	return e.store.Load(ctx, sessionID)
}

func (e *ExportService) buildSummary(ctx context.Context, session *model.InterviewSession, pairs []model.QAPair, scores map[string]float64) string {
	if e.summary != nil {
		summary, err := e.summary.Summarize(ctx, session, pairs)
		if err == nil && summary != "" {
			return summary
		}
		if err != nil {
			log.Printf("export: summary generation for %s failed, using fallback: %v", session.SessionID, err)
		}
	}
	return FallbackSummary(session, pairs)
}

// complianceCredit returns the weight credit an answer earns toward its
// category score. Scale answers earn proportional credit; negative yes/no
// answers earn nothing; every other answered type earns full weight.
func complianceCredit(q *model.ComplianceQuestion, v *model.AnswerValue) float64 {
	switch q.QuestionType {
	case model.QuestionYesNo:
		if v.IsAffirmative() {
			return q.Weight
		}
		return 0
	case model.QuestionScale:
		if v.Scale == nil {
			return 0
		}
		return q.Weight * float64(*v.Scale) / 5
	default:
		return q.Weight
	}
}

// isGap reports whether an answer counts as an identified compliance gap
func isGap(q *model.ComplianceQuestion, v *model.AnswerValue) bool {
	switch q.QuestionType {
	case model.QuestionYesNo:
		return v.Bool != nil && !*v.Bool
	case model.QuestionScale:
		return q.Required && v.Scale != nil && *v.Scale < 3
	}
	return false
}

func isDRCFramework(framework string) bool {
	return strings.Contains(strings.ToLower(framework), "drc")
}

// FormatComplianceStatement renders one Q&A pair as the narrative statement
// the downstream pipeline ingests.
func FormatComplianceStatement(q *model.ComplianceQuestion, a *model.InterviewAnswer, now time.Time) string {
	lower := strings.ToLower(q.QuestionText)
	var statement string

	switch q.QuestionType {
	case model.QuestionYesNo:
		if a.Value.IsAffirmative() {
			statement = "The site confirms: " + strings.ReplaceAll(lower, "?", ".")
		} else if strings.Contains(lower, "have") || strings.Contains(lower, "has") {
			statement = "The site reports non-compliance: " + strings.ReplaceAll(lower, "?", " is not in place.")
		} else {
			statement = "The site reports: " + strings.ReplaceAll(lower, "?", " - No.")
		}

	case model.QuestionScale:
		score := 0
		if a.Value.Scale != nil {
			score = *a.Value.Scale
		}
		statement = fmt.Sprintf("Regarding %s, the assessment score is %d/5.", strings.ReplaceAll(lower, "?", ""), score)
		switch {
		case score <= 2:
			statement += " This indicates significant gaps requiring immediate attention."
		case score == 3:
			statement += " This indicates partial compliance with room for improvement."
		default:
			statement += " This indicates good compliance with established procedures."
		}

	case model.QuestionNumber:
		statement = strings.ReplaceAll(q.QuestionText, "?", ":") + " " + a.Value.Display()
		if strings.Contains(lower, "incidents") || strings.Contains(lower, "violations") || strings.Contains(lower, "grievances") {
			if a.Value.Number != nil {
				if *a.Value.Number == 0 {
					statement += " (No issues reported)"
				} else if *a.Value.Number > 10 {
					statement += " (Significant number requiring attention)"
				}
			}
		}

	case model.QuestionDate:
		statement = strings.ReplaceAll(q.QuestionText, "?", ":") + " " + a.Value.Display()
		if strings.Contains(lower, "last") || strings.Contains(lower, "recent") {
			if t, ok := ParseDate(a.Value.Date); ok {
				days := int(now.Sub(t).Hours() / 24)
				if days > 365 {
					statement += " (Over a year ago - review recommended)"
				} else if days > 180 {
					statement += " (Over 6 months ago)"
				}
			}
		}

	default: // multiple_choice, multi_select, text
		statement = strings.ReplaceAll(q.QuestionText, "?", ":") + " " + a.Value.Display()
	}

	if a.Notes != "" {
		statement += fmt.Sprintf(" [Note: %s]", a.Notes)
	}

	if len(a.AIClarifications) > 0 {
		var exchanges []string
		for _, c := range a.AIClarifications {
			if c.Question != "" && c.Answer != "" {
				exchanges = append(exchanges, fmt.Sprintf("%s -> %s", c.Question, c.Answer))
			}
		}
		if len(exchanges) > 0 {
			statement += " [AI Deep-Dive: " + strings.Join(exchanges, "; ") + "]"
		}
	}

	if a.Confidence != nil && *a.Confidence < 0.5 {
		statement += " [Low confidence response]"
	}

	return statement
}

// FallbackSummary builds a deterministic assessment summary from the
// recorded answers alone, used when no summary provider is available.
func FallbackSummary(session *model.InterviewSession, pairs []model.QAPair) string {
	var compliant, nonCompliant, review int
	for _, p := range pairs {
		switch p.Question.QuestionType {
		case model.QuestionYesNo:
			if p.Answer.Value.IsAffirmative() {
				compliant++
			} else {
				nonCompliant++
			}
		case model.QuestionScale:
			if p.Answer.Value.Scale == nil {
				continue
			}
			switch {
			case *p.Answer.Value.Scale >= 4:
				compliant++
			case *p.Answer.Value.Scale == 3:
				review++
			default:
				nonCompliant++
			}
		}
	}

	rate := 0.0
	if len(pairs) > 0 {
		rate = math.Round(float64(compliant)/float64(len(pairs))*1000) / 10
	}

	return fmt.Sprintf(`Compliance Assessment Summary for %s

Framework: %s
Assessment Date: %s
Auditor: %s

Questions Assessed: %d
- Compliant Items: %d
- Non-Compliant Items: %d
- Items Requiring Review: %d

Overall Compliance Rate: %.1f%%

This assessment covers %d categories of compliance requirements.
Detailed analysis and recommendations should be developed based on the specific findings.`,
		session.SiteName,
		session.Framework,
		session.StartedAt.Format("2006-01-02"),
		session.AuditorName,
		len(pairs),
		compliant,
		nonCompliant,
		review,
		rate,
		len(session.CategoriesCompleted),
	)
}
