package service

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"vigilore/internal/bank"
	"vigilore/internal/metrics"
	"vigilore/internal/model"
)

// SessionStore persists sessions durably. Writes are best-effort: a storage
// failure is logged but never blocks the interview.
type SessionStore interface {
	Save(ctx context.Context, session *model.InterviewSession) error
	Load(ctx context.Context, sessionID string) (*model.InterviewSession, error)
}

// SessionCache keeps hot sessions in a fast shared store so interviews can
// resume across instances.
type SessionCache interface {
	Put(ctx context.Context, session *model.InterviewSession) error
	Get(ctx context.Context, sessionID string) (*model.InterviewSession, error)
	Drop(ctx context.Context, sessionID string) error
}

// Progress event types pushed to interview observers
const (
	EventAnswerAccepted    = "answer_accepted"
	EventCategoryCompleted = "category_completed"
	EventSessionComplete   = "session_complete"
	EventStatusChanged     = "status_changed"
)

// ProgressEvent is one observer notification about a session
type ProgressEvent struct {
	Type       string  `json:"type"`
	SessionID  string  `json:"sessionId"`
	QuestionID string  `json:"questionId,omitempty"`
	Category   string  `json:"category,omitempty"`
	Progress   float64 `json:"progress"`
	Status     string  `json:"status"`
}

// ProgressNotifier fans progress events out to session observers
type ProgressNotifier interface {
	Notify(sessionID string, event ProgressEvent)
}

// ClarificationProvider generates deep-dive follow-up questions for critical
// compliance gaps. Implementations degrade to an empty list on any failure.
type ClarificationProvider interface {
	Clarify(ctx context.Context, q *model.ComplianceQuestion, ans *model.InterviewAnswer) ([]model.AIClarification, error)
}

// sessionState pairs a live session with its bank and a mutex serializing
// submissions against it.
type sessionState struct {
	mu      sync.Mutex
	session *model.InterviewSession
	bank    *bank.Bank
}

// InterviewService runs interview sessions: question sequencing, answer
// validation, lifecycle transitions and progress tracking.
type InterviewService struct {
	registry *bank.Registry
	store    SessionStore
	cache    SessionCache
	notifier ProgressNotifier
	clarify  ClarificationProvider
	metrics  *metrics.Metrics

	mu       sync.RWMutex
	sessions map[string]*sessionState
}

// NewInterviewService wires an interview service. store, cache, notifier,
// clarify and m may each be nil; the service degrades to in-memory-only
// operation without them.
func NewInterviewService(registry *bank.Registry, store SessionStore, cache SessionCache, notifier ProgressNotifier, clarify ClarificationProvider, m *metrics.Metrics) *InterviewService {
	return &InterviewService{
		registry: registry,
		store:    store,
		cache:    cache,
		notifier: notifier,
		clarify:  clarify,
		metrics:  m,
		sessions: make(map[string]*sessionState),
	}
}

// StartSession opens a new interview against a framework. The question total
// is frozen at start from the main questions in scope; follow-ups triggered
// later never change it.
func (s *InterviewService) StartSession(ctx context.Context, req model.StartSessionRequest) (*model.InterviewSession, error) {
	if req.SiteName == "" || req.AuditorName == "" {
		return nil, fmt.Errorf("site name and auditor name are required")
	}
	b, err := s.registry.Get(req.Framework)
	if err != nil {
		return nil, err
	}
	questions := b.MainQuestions(req.Categories)
	if len(questions) == 0 {
		return nil, fmt.Errorf("framework %s has no questions for categories %v", b.Framework, req.Categories)
	}
	lang := req.Language
	if lang == "" {
		lang = "en"
	}
	now := time.Now().UTC()
	session := &model.InterviewSession{
		SessionID:           uuid.NewString(),
		Framework:           b.Framework,
		SiteName:            req.SiteName,
		SiteCode:            req.SiteCode,
		Operator:            req.Operator,
		AuditorName:         req.AuditorName,
		AuditorEmail:        req.AuditorEmail,
		Language:            lang,
		Categories:          req.Categories,
		StartedAt:           now,
		LastActivityAt:      now,
		TotalQuestions:      len(questions),
		Status:              model.SessionInProgress,
		Answers:             []model.InterviewAnswer{},
		CategoriesCompleted: []string{},
	}
	session.EstimatedSecondsLeft = len(questions) * model.SecondsPerQuestion

	s.mu.Lock()
	s.sessions[session.SessionID] = &sessionState{session: session, bank: b}
	s.mu.Unlock()

	s.persist(ctx, session)
	if s.metrics != nil {
		s.metrics.SessionsStarted.Inc()
	}
	log.Printf("interview: started session %s for %s (%s, %d questions)", session.SessionID, req.SiteName, b.Framework, len(questions))
	return snapshot(session), nil
}

// GetSession returns a point-in-time copy of a session. Sessions not held in
// memory are recovered from the cache, then the store.
func (s *InterviewService) GetSession(ctx context.Context, sessionID string) (*model.InterviewSession, error) {
	st, err := s.state(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	return snapshot(st.session), nil
}

// NextQuestion returns the question the interview should ask next: a pending
// follow-up triggered by the latest answer wins over the next unanswered main
// question. A nil question means the interview has run out.
func (s *InterviewService) NextQuestion(ctx context.Context, sessionID string) (*model.ComplianceQuestion, error) {
	st, err := s.state(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	return s.nextQuestionLocked(st), nil
}

func (s *InterviewService) nextQuestionLocked(st *sessionState) *model.ComplianceQuestion {
	answered := st.session.AnsweredIDs()
	if fq, ok := st.bank.NextFollowUp(st.session.LastAnswer(), answered); ok {
		q := *fq
		return &q
	}
	for _, q := range st.bank.MainQuestions(st.session.Categories) {
		if !answered[q.ID] {
			q := q
			return &q
		}
	}
	return nil
}

// SubmitAnswer validates and records one answer atomically. Rejected
// submissions leave the session untouched. Resubmitting a question id
// replaces the earlier answer in place.
func (s *InterviewService) SubmitAnswer(ctx context.Context, sessionID string, req model.SubmitAnswerRequest) (*model.SubmitAnswerResponse, error) {
	st, err := s.state(ctx, sessionID)
	if err != nil {
		return &model.SubmitAnswerResponse{
			Status: model.SubmissionValidationError,
			ValidationError: &model.ValidationError{
				QuestionID: req.QuestionID,
				ErrorType:  model.ErrSessionError,
				Message:    "Session not found",
			},
		}, nil
	}
	st.mu.Lock()
	defer st.mu.Unlock()

	session := st.session
	if session.Terminal() || session.Status == model.SessionPaused {
		return &model.SubmitAnswerResponse{
			Status:   model.SubmissionValidationError,
			Progress: session.ProgressPercentage,
			ValidationError: &model.ValidationError{
				QuestionID: req.QuestionID,
				ErrorType:  model.ErrSessionError,
				Message:    fmt.Sprintf("Session is %s", session.Status),
			},
		}, nil
	}

	question, ok := st.bank.QuestionByID(req.QuestionID)
	if !ok {
		return &model.SubmitAnswerResponse{
			Status:   model.SubmissionValidationError,
			Progress: session.ProgressPercentage,
			ValidationError: &model.ValidationError{
				QuestionID: req.QuestionID,
				ErrorType:  model.ErrQuestionError,
				Message:    "Question not found",
			},
		}, nil
	}

	value, verr := ValidateAnswer(question, req.Answer)
	if verr != nil {
		if s.metrics != nil {
			s.metrics.ValidationErrors.WithLabelValues(verr.ErrorType).Inc()
		}
		return &model.SubmitAnswerResponse{
			Status:          model.SubmissionValidationError,
			Progress:        session.ProgressPercentage,
			ValidationError: verr,
		}, nil
	}

	now := time.Now().UTC()
	answer := model.InterviewAnswer{
		QuestionID:    req.QuestionID,
		Value:         *value,
		Timestamp:     now,
		Confidence:    req.Confidence,
		Notes:         req.Notes,
		EvidenceFiles: req.EvidenceFiles,
	}
	answer.NeedsAIFollowUp = needsDeepDive(question, value)

	if prev := session.AnswerFor(req.QuestionID); prev != nil {
		// keep position, carry forward any clarifications already collected
		answer.AIClarifications = prev.AIClarifications
		*prev = answer
	} else {
		session.Answers = append(session.Answers, answer)
	}
	session.LastAnsweredID = req.QuestionID

	s.updateCategoriesLocked(st, question.Category)
	session.RecomputeProgress(now)

	next := s.nextQuestionLocked(st)
	if next == nil {
		session.Status = model.SessionCompleted
		session.CompletedAt = &now
		session.ProgressPercentage = 100
		session.EstimatedSecondsLeft = 0
	}

	s.persist(ctx, session)
	if s.metrics != nil {
		s.metrics.AnswersAccepted.Inc()
	}
	s.notify(session.SessionID, ProgressEvent{
		Type:       EventAnswerAccepted,
		SessionID:  session.SessionID,
		QuestionID: question.ID,
		Category:   question.Category,
		Progress:   session.ProgressPercentage,
		Status:     string(session.Status),
	})

	if next == nil {
		if s.metrics != nil {
			s.metrics.SessionsCompleted.Inc()
		}
		s.notify(session.SessionID, ProgressEvent{
			Type:      EventSessionComplete,
			SessionID: session.SessionID,
			Progress:  100,
			Status:    string(model.SessionCompleted),
		})
		log.Printf("interview: session %s complete (%d answers)", session.SessionID, len(session.Answers))
		return &model.SubmitAnswerResponse{
			Status:          model.SubmissionSessionComplete,
			Progress:        100,
			SessionComplete: true,
			NeedsAIFollowUp: answer.NeedsAIFollowUp,
		}, nil
	}

	return &model.SubmitAnswerResponse{
		Status:              model.SubmissionAccepted,
		Progress:            session.ProgressPercentage,
		NextQuestion:        next,
		CategoriesRemaining: s.remainingCategoriesLocked(st),
		NeedsAIFollowUp:     answer.NeedsAIFollowUp,
	}, nil
}

// needsDeepDive flags critical negative answers in the high-risk categories
// for AI clarification.
func needsDeepDive(q *model.ComplianceQuestion, v *model.AnswerValue) bool {
	if q.Weight < 2.5 || !v.IsNegativeLike() {
		return false
	}
	switch q.Category {
	case "Permits", "Environmental", "Safety", "Community":
		return true
	}
	return false
}

func (s *InterviewService) updateCategoriesLocked(st *sessionState, category string) {
	session := st.session
	for _, c := range session.CategoriesCompleted {
		if c == category {
			return
		}
	}
	answered := session.AnsweredIDs()
	for _, q := range st.bank.MainQuestions(session.Categories) {
		if q.Category == category && !answered[q.ID] {
			return
		}
	}
	session.CategoriesCompleted = append(session.CategoriesCompleted, category)
	s.notify(session.SessionID, ProgressEvent{
		Type:      EventCategoryCompleted,
		SessionID: session.SessionID,
		Category:  category,
		Progress:  session.ProgressPercentage,
		Status:    string(session.Status),
	})
}

// remainingCategoriesLocked lists in-scope categories no answer has touched yet
func (s *InterviewService) remainingCategoriesLocked(st *sessionState) []string {
	touched := make(map[string]bool)
	for _, a := range st.session.Answers {
		if q, ok := st.bank.QuestionByID(a.QuestionID); ok {
			touched[q.Category] = true
		}
	}
	var remaining []string
	seen := make(map[string]bool)
	for _, q := range st.bank.MainQuestions(st.session.Categories) {
		if !touched[q.Category] && !seen[q.Category] {
			seen[q.Category] = true
			remaining = append(remaining, q.Category)
		}
	}
	return remaining
}

// CategoryProgress reports per-category completion for the session's scope
func (s *InterviewService) CategoryProgress(ctx context.Context, sessionID string) ([]model.CategoryProgress, error) {
	st, err := s.state(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	st.mu.Lock()
	defer st.mu.Unlock()

	answered := st.session.AnsweredIDs()
	stats := make(map[string]*model.CategoryProgress)
	var order []string
	for _, q := range st.bank.MainQuestions(st.session.Categories) {
		cp, ok := stats[q.Category]
		if !ok {
			cp = &model.CategoryProgress{Category: q.Category}
			stats[q.Category] = cp
			order = append(order, q.Category)
		}
		cp.TotalQuestions++
		if q.Required {
			cp.RequiredQuestions++
		}
		if answered[q.ID] {
			cp.AnsweredQuestions++
			if q.Required {
				cp.RequiredAnswered++
			}
		}
	}
	out := make([]model.CategoryProgress, 0, len(order))
	for _, c := range order {
		cp := stats[c]
		if cp.TotalQuestions > 0 {
			cp.CompletionPercentage = float64(cp.AnsweredQuestions) / float64(cp.TotalQuestions) * 100
		}
		out = append(out, *cp)
	}
	return out, nil
}

// Pause suspends an in-progress interview
func (s *InterviewService) Pause(ctx context.Context, sessionID string) (*model.InterviewSession, error) {
	return s.transition(ctx, sessionID, model.SessionInProgress, model.SessionPaused)
}

// Resume reopens a paused interview
func (s *InterviewService) Resume(ctx context.Context, sessionID string) (*model.InterviewSession, error) {
	return s.transition(ctx, sessionID, model.SessionPaused, model.SessionInProgress)
}

// Abandon closes an interview without completing it. Abandoned sessions keep
// their answers but accept no more.
func (s *InterviewService) Abandon(ctx context.Context, sessionID string) (*model.InterviewSession, error) {
	st, err := s.state(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	if st.session.Terminal() {
		return nil, fmt.Errorf("session %s is already %s", sessionID, st.session.Status)
	}
	return s.setStatusLocked(ctx, st, model.SessionAbandoned), nil
}

// Complete ends an interview early, marking it completed with whatever
// answers it has.
func (s *InterviewService) Complete(ctx context.Context, sessionID string) (*model.InterviewSession, error) {
	st, err := s.state(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	if st.session.Terminal() {
		return nil, fmt.Errorf("session %s is already %s", sessionID, st.session.Status)
	}
	now := time.Now().UTC()
	st.session.CompletedAt = &now
	out := s.setStatusLocked(ctx, st, model.SessionCompleted)
	if s.metrics != nil {
		s.metrics.SessionsCompleted.Inc()
	}
	return out, nil
}

func (s *InterviewService) transition(ctx context.Context, sessionID string, from, to model.SessionStatus) (*model.InterviewSession, error) {
	st, err := s.state(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	if st.session.Status != from {
		return nil, fmt.Errorf("session %s is %s, expected %s", sessionID, st.session.Status, from)
	}
	return s.setStatusLocked(ctx, st, to), nil
}

func (s *InterviewService) setStatusLocked(ctx context.Context, st *sessionState, to model.SessionStatus) *model.InterviewSession {
	st.session.Status = to
	st.session.LastActivityAt = time.Now().UTC()
	s.persist(ctx, st.session)
	s.notify(st.session.SessionID, ProgressEvent{
		Type:      EventStatusChanged,
		SessionID: st.session.SessionID,
		Progress:  st.session.ProgressPercentage,
		Status:    string(to),
	})
	log.Printf("interview: session %s -> %s", st.session.SessionID, to)
	return snapshot(st.session)
}

// GenerateClarifications asks the clarification provider for deep-dive
// questions about a flagged answer. Without a provider, or on any provider
// failure, it returns an empty list.
func (s *InterviewService) GenerateClarifications(ctx context.Context, sessionID, questionID string) ([]model.AIClarification, error) {
	st, err := s.state(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	st.mu.Lock()
	question, ok := st.bank.QuestionByID(questionID)
	var ans *model.InterviewAnswer
	if ok {
		if a := st.session.AnswerFor(questionID); a != nil {
			copied := *a
			ans = &copied
		}
	}
	st.mu.Unlock()

	if !ok {
		return nil, fmt.Errorf("question %s not found", questionID)
	}
	if ans == nil {
		return nil, fmt.Errorf("question %s has no recorded answer", questionID)
	}
	if s.clarify == nil {
		return []model.AIClarification{}, nil
	}
	clars, err := s.clarify.Clarify(ctx, question, ans)
	if err != nil {
		if s.metrics != nil {
			s.metrics.ClarificationFailures.Inc()
		}
		log.Printf("interview: clarification failed for %s/%s: %v", sessionID, questionID, err)
		return []model.AIClarification{}, nil
	}
	return clars, nil
}

// RecordClarifications attaches answered deep-dive exchanges to a recorded
// answer so they flow into statements and exports.
func (s *InterviewService) RecordClarifications(ctx context.Context, sessionID, questionID string, clars []model.AIClarification) error {
	st, err := s.state(ctx, sessionID)
	if err != nil {
		return err
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	ans := st.session.AnswerFor(questionID)
	if ans == nil {
		return fmt.Errorf("question %s has no recorded answer", questionID)
	}
	ans.AIClarifications = append(ans.AIClarifications, clars...)
	st.session.LastActivityAt = time.Now().UTC()
	s.persist(ctx, st.session)
	return nil
}

// Bank exposes the loaded bank backing a session, for export scoring
func (s *InterviewService) Bank(ctx context.Context, sessionID string) (*bank.Bank, error) {
	st, err := s.state(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return st.bank, nil
}

// state resolves a session, recovering evicted ones from cache then store
func (s *InterviewService) state(ctx context.Context, sessionID string) (*sessionState, error) {
	s.mu.RLock()
	st, ok := s.sessions[sessionID]
	s.mu.RUnlock()
	if ok {
		return st, nil
	}

	var session *model.InterviewSession
	if s.cache != nil {
		if cached, err := s.cache.Get(ctx, sessionID); err == nil && cached != nil {
			session = cached
		}
	}
	if session == nil && s.store != nil {
		stored, err := s.store.Load(ctx, sessionID)
		if err == nil && stored != nil {
			session = stored
		}
	}
	if session == nil {
		return nil, fmt.Errorf("session %s not found", sessionID)
	}
	b, err := s.registry.Get(session.Framework)
	if err != nil {
		return nil, fmt.Errorf("session %s references unknown framework %s", sessionID, session.Framework)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if st, ok := s.sessions[sessionID]; ok {
		return st, nil
	}
	st = &sessionState{session: session, bank: b}
	s.sessions[sessionID] = st
	return st, nil
}

// persist writes through to cache and store, logging failures instead of
// surfacing them
func (s *InterviewService) persist(ctx context.Context, session *model.InterviewSession) {
	if s.cache != nil {
		if err := s.cache.Put(ctx, session); err != nil {
			log.Printf("interview: cache write for %s failed: %v", session.SessionID, err)
		}
	}
	if s.store != nil {
		if err := s.store.Save(ctx, session); err != nil {
			log.Printf("interview: store write for %s failed: %v", session.SessionID, err)
		}
	}
}

func (s *InterviewService) notify(sessionID string, event ProgressEvent) {
	if s.notifier != nil {
		s.notifier.Notify(sessionID, event)
	}
}

// snapshot copies a session so callers never share the live struct
func snapshot(session *model.InterviewSession) *model.InterviewSession {
	out := *session
	out.Answers = make([]model.InterviewAnswer, len(session.Answers))
	copy(out.Answers, session.Answers)
	out.CategoriesCompleted = append([]string(nil), session.CategoriesCompleted...)
	return &out
}
