package bank

import (
	"embed"
	"fmt"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"vigilore/internal/model"
)

//go:embed banks/*.yaml
var bankFS embed.FS

// NotFoundError is returned when no framework matches the requested name,
// not even by partial match.
type NotFoundError struct {
	Framework string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("framework %q not found", e.Framework)
}

// Bank holds the full question set for one compliance framework plus the
// indexes derived from it at load time.
type Bank struct {
	Framework string                     `yaml:"framework"`
	Aliases   []string                   `yaml:"aliases"`
	Title     string                     `yaml:"title"`
	Questions []model.ComplianceQuestion `yaml:"questions"`

	byID         map[string]*model.ComplianceQuestion
	followUpOnly map[string]bool
	categories   []string
}

// QuestionByID looks up any question in the bank, follow-ups included.
func (b *Bank) QuestionByID(id string) (*model.ComplianceQuestion, bool) {
	q, ok := b.byID[id]
	return q, ok
}

// IsFollowUpOnly reports whether a question is only reachable as the target
// of another question's follow-up trigger. Such questions are excluded from
// the main interview ordering and from session totals.
func (b *Bank) IsFollowUpOnly(id string) bool {
	return b.followUpOnly[id]
}

// MainQuestions returns the bank's questions in declaration order, excluding
// follow-up-only questions. If categories is non-empty, only questions from
// those categories are returned.
func (b *Bank) MainQuestions(categories []string) []model.ComplianceQuestion {
	var filter map[string]bool
	if len(categories) > 0 {
		filter = make(map[string]bool, len(categories))
		for _, c := range categories {
			filter[c] = true
		}
	}
	out := make([]model.ComplianceQuestion, 0, len(b.Questions))
	for _, q := range b.Questions {
		if b.followUpOnly[q.ID] {
			continue
		}
		if filter != nil && !filter[q.Category] {
			continue
		}
		out = append(out, q)
	}
	return out
}

// Categories returns the sorted unique categories of the bank's main questions.
func (b *Bank) Categories() []string {
	return b.categories
}

// FollowUpFor resolves the follow-up triggered by answering q with the given
// answer. The answer is normalized to its trigger key (yes/no for booleans,
// the plain string form otherwise) and matched case-sensitively against the
// question's trigger map.
func (b *Bank) FollowUpFor(q *model.ComplianceQuestion, ans *model.AnswerValue) (*model.ComplianceQuestion, bool) {
	if q == nil || ans == nil || len(q.FollowUpTrigger) == 0 {
		return nil, false
	}
	target, ok := q.FollowUpTrigger[ans.TriggerKey()]
	if !ok {
		return nil, false
	}
	fq, ok := b.byID[target]
	return fq, ok
}

// NextFollowUp returns the pending follow-up triggered by the most recent
// answer, if it has not been answered yet.
func (b *Bank) NextFollowUp(last *model.InterviewAnswer, answered map[string]bool) (*model.ComplianceQuestion, bool) {
	if last == nil {
		return nil, false
	}
	q, ok := b.byID[last.QuestionID]
	if !ok {
		return nil, false
	}
	fq, ok := b.FollowUpFor(q, &last.Value)
	if !ok || answered[fq.ID] {
		return nil, false
	}
	return fq, true
}

func (b *Bank) buildIndexes() error {
	b.byID = make(map[string]*model.ComplianceQuestion, len(b.Questions))
	b.followUpOnly = make(map[string]bool)
	for i := range b.Questions {
		q := &b.Questions[i]
		if q.ID == "" {
			return fmt.Errorf("bank %s: question %d has no id", b.Framework, i)
		}
		if _, dup := b.byID[q.ID]; dup {
			return fmt.Errorf("bank %s: duplicate question id %s", b.Framework, q.ID)
		}
		b.byID[q.ID] = q
	}
	for i := range b.Questions {
		q := &b.Questions[i]
		if err := validateQuestion(q); err != nil {
			return fmt.Errorf("bank %s: %w", b.Framework, err)
		}
		for key, target := range q.FollowUpTrigger {
			tq, ok := b.byID[target]
			if !ok {
				return fmt.Errorf("bank %s: question %s trigger %q points at unknown question %s", b.Framework, q.ID, key, target)
			}
			if tq.ID == q.ID {
				return fmt.Errorf("bank %s: question %s triggers itself", b.Framework, q.ID)
			}
			b.followUpOnly[target] = true
		}
	}
	seen := make(map[string]bool)
	for _, q := range b.Questions {
		if b.followUpOnly[q.ID] || seen[q.Category] {
			continue
		}
		seen[q.Category] = true
		b.categories = append(b.categories, q.Category)
	}
	sort.Strings(b.categories)
	return nil
}

func validateQuestion(q *model.ComplianceQuestion) error {
	switch q.QuestionType {
	case model.QuestionYesNo, model.QuestionMultipleChoice, model.QuestionMultiSelect,
		model.QuestionText, model.QuestionNumber, model.QuestionDate, model.QuestionScale:
	default:
		return fmt.Errorf("question %s: unknown type %q", q.ID, q.QuestionType)
	}
	if q.HasOptions() && len(q.Options) < 2 {
		return fmt.Errorf("question %s: %s requires at least 2 options", q.ID, q.QuestionType)
	}
	if !q.HasOptions() && len(q.Options) > 0 {
		return fmt.Errorf("question %s: %s does not take options", q.ID, q.QuestionType)
	}
	if q.Weight < 0 || q.Weight > 5 {
		return fmt.Errorf("question %s: weight %.1f outside [0, 5]", q.ID, q.Weight)
	}
	if q.ValidationRules != nil && q.ValidationRules.Min != nil && q.ValidationRules.Max != nil &&
		*q.ValidationRules.Min > *q.ValidationRules.Max {
		return fmt.Errorf("question %s: min above max", q.ID)
	}
	return nil
}

// Registry resolves framework names, canonical or aliased, to loaded banks.
type Registry struct {
	banks map[string]*Bank
	names []string // canonical + aliases, sorted
	index map[string]*Bank
}

// Load parses and validates every embedded bank file.
func Load() (*Registry, error) {
	entries, err := bankFS.ReadDir("banks")
	if err != nil {
		return nil, fmt.Errorf("reading embedded banks: %w", err)
	}
	r := &Registry{
		banks: make(map[string]*Bank),
		index: make(map[string]*Bank),
	}
	for _, entry := range entries {
		data, err := bankFS.ReadFile("banks/" + entry.Name())
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", entry.Name(), err)
		}
		var b Bank
		if err := yaml.Unmarshal(data, &b); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", entry.Name(), err)
		}
		if b.Framework == "" {
			return nil, fmt.Errorf("%s: missing framework name", entry.Name())
		}
		if err := b.buildIndexes(); err != nil {
			return nil, err
		}
		if _, dup := r.index[b.Framework]; dup {
			return nil, fmt.Errorf("duplicate framework %s", b.Framework)
		}
		r.banks[b.Framework] = &b
		r.index[b.Framework] = &b
		r.names = append(r.names, b.Framework)
		for _, alias := range b.Aliases {
			if _, dup := r.index[alias]; dup {
				return nil, fmt.Errorf("duplicate framework alias %s", alias)
			}
			r.index[alias] = &b
			r.names = append(r.names, alias)
		}
	}
	sort.Strings(r.names)
	return r, nil
}

// Frameworks lists every name a bank can be requested under.
func (r *Registry) Frameworks() []string {
	out := make([]string, len(r.names))
	copy(out, r.names)
	return out
}

// Get resolves a framework name to its bank. Exact matches (canonical or
// alias) win; otherwise the first case-insensitive partial match is used.
func (r *Registry) Get(framework string) (*Bank, error) {
	if framework == "" {
		return nil, &NotFoundError{Framework: framework}
	}
	if b, ok := r.index[framework]; ok {
		return b, nil
	}
	lower := strings.ToLower(framework)
	for _, name := range r.names {
		key := strings.ToLower(name)
		if strings.Contains(key, lower) || strings.Contains(lower, key) {
			return r.index[name], nil
		}
	}
	return nil, &NotFoundError{Framework: framework}
}
