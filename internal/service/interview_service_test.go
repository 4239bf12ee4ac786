package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vigilore/internal/bank"
	"vigilore/internal/model"
)

func newTestService(t *testing.T) *InterviewService {
	t.Helper()
	registry, err := bank.Load()
	require.NoError(t, err)
	return NewInterviewService(registry, nil, nil, nil, nil, nil)
}

func startPermitsSession(t *testing.T, svc *InterviewService) *model.InterviewSession {
	t.Helper()
	session, err := svc.StartSession(context.Background(), model.StartSessionRequest{
		Framework:   "DRC_Mining_Code",
		SiteName:    "Kamoto Site",
		AuditorName: "A. Mwamba",
		Categories:  []string{"Permits"},
	})
	require.NoError(t, err)
	return session
}

func TestStartSessionValidation(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, err := svc.StartSession(ctx, model.StartSessionRequest{Framework: "DRC_Mining_Code"})
	require.Error(t, err)

	_, err = svc.StartSession(ctx, model.StartSessionRequest{
		Framework: "no_such_framework", SiteName: "X", AuditorName: "Y",
	})
	var nfe *bank.NotFoundError
	require.ErrorAs(t, err, &nfe)
}

func TestStartSessionFreezesTotals(t *testing.T) {
	svc := newTestService(t)
	session := startPermitsSession(t, svc)

	// Permits has 4 main questions; drc_001a is follow-up-only and excluded
	assert.Equal(t, 4, session.TotalQuestions)
	assert.Equal(t, model.SessionInProgress, session.Status)
	assert.Equal(t, 4*model.SecondsPerQuestion, session.EstimatedSecondsLeft)
	assert.Equal(t, "en", session.Language)
	assert.NotEmpty(t, session.SessionID)
}

func TestNextQuestionFollowsBankOrder(t *testing.T) {
	svc := newTestService(t)
	session := startPermitsSession(t, svc)

	q, err := svc.NextQuestion(context.Background(), session.SessionID)
	require.NoError(t, err)
	require.NotNil(t, q)
	assert.Equal(t, "drc_001", q.ID)
}

func TestSubmitNegativeAnswerInsertsFollowUp(t *testing.T) {
	svc := newTestService(t)
	session := startPermitsSession(t, svc)
	ctx := context.Background()

	resp, err := svc.SubmitAnswer(ctx, session.SessionID, model.SubmitAnswerRequest{
		QuestionID: "drc_001", Answer: false,
	})
	require.NoError(t, err)
	require.Nil(t, resp.ValidationError)
	assert.Equal(t, model.SubmissionAccepted, resp.Status)
	require.NotNil(t, resp.NextQuestion)
	assert.Equal(t, "drc_001a", resp.NextQuestion.ID)
	// weight 3.0 negative answer in Permits triggers the deep dive
	assert.True(t, resp.NeedsAIFollowUp)
	assert.InDelta(t, 25.0, resp.Progress, 0.01)

	// the follow-up is a free-text question and never enters the denominator
	resp, err = svc.SubmitAnswer(ctx, session.SessionID, model.SubmitAnswerRequest{
		QuestionID: "drc_001a", Answer: "License renewal stalled at the ministry",
	})
	require.NoError(t, err)
	require.NotNil(t, resp.NextQuestion)
	assert.Equal(t, "drc_002", resp.NextQuestion.ID)

	refreshed, err := svc.GetSession(ctx, session.SessionID)
	require.NoError(t, err)
	assert.Equal(t, 4, refreshed.TotalQuestions)
	assert.Len(t, refreshed.Answers, 2)
}

func TestSubmitAffirmativeAnswerSkipsFollowUp(t *testing.T) {
	svc := newTestService(t)
	session := startPermitsSession(t, svc)

	resp, err := svc.SubmitAnswer(context.Background(), session.SessionID, model.SubmitAnswerRequest{
		QuestionID: "drc_001", Answer: "yes",
	})
	require.NoError(t, err)
	require.NotNil(t, resp.NextQuestion)
	assert.Equal(t, "drc_002", resp.NextQuestion.ID)
	assert.False(t, resp.NeedsAIFollowUp)
}

func TestResubmitReplacesAnswerInPlace(t *testing.T) {
	svc := newTestService(t)
	session := startPermitsSession(t, svc)
	ctx := context.Background()

	_, err := svc.SubmitAnswer(ctx, session.SessionID, model.SubmitAnswerRequest{
		QuestionID: "drc_001", Answer: true,
	})
	require.NoError(t, err)
	_, err = svc.SubmitAnswer(ctx, session.SessionID, model.SubmitAnswerRequest{
		QuestionID: "drc_003", Answer: true,
	})
	require.NoError(t, err)

	require.NoError(t, svc.RecordClarifications(ctx, session.SessionID, "drc_001", []model.AIClarification{
		{Question: "Which authority issued the permit?", Answer: "CAMI"},
	}))

	resp, err := svc.SubmitAnswer(ctx, session.SessionID, model.SubmitAnswerRequest{
		QuestionID: "drc_001", Answer: false,
	})
	require.NoError(t, err)
	require.Nil(t, resp.ValidationError)

	refreshed, err := svc.GetSession(ctx, session.SessionID)
	require.NoError(t, err)
	require.Len(t, refreshed.Answers, 2)
	// position kept, value replaced, clarifications carried forward
	assert.Equal(t, "drc_001", refreshed.Answers[0].QuestionID)
	require.NotNil(t, refreshed.Answers[0].Value.Bool)
	assert.False(t, *refreshed.Answers[0].Value.Bool)
	require.Len(t, refreshed.Answers[0].AIClarifications, 1)
	assert.Equal(t, "CAMI", refreshed.Answers[0].AIClarifications[0].Answer)
	assert.InDelta(t, 50.0, refreshed.ProgressPercentage, 0.01)
}

func TestCorrectedAnswerTriggersFollowUp(t *testing.T) {
	svc := newTestService(t)
	session := startPermitsSession(t, svc)
	ctx := context.Background()

	for _, req := range []model.SubmitAnswerRequest{
		{QuestionID: "drc_001", Answer: true},
		{QuestionID: "drc_002", Answer: "2024-03-15"},
		{QuestionID: "drc_003", Answer: true},
	} {
		resp, err := svc.SubmitAnswer(ctx, session.SessionID, req)
		require.NoError(t, err)
		require.Nil(t, resp.ValidationError)
	}

	// correcting an earlier answer keeps its slot but is still the latest
	// submission, so the follow-up it newly triggers is served next
	resp, err := svc.SubmitAnswer(ctx, session.SessionID, model.SubmitAnswerRequest{
		QuestionID: "drc_001", Answer: false,
	})
	require.NoError(t, err)
	require.Nil(t, resp.ValidationError)
	require.NotNil(t, resp.NextQuestion)
	assert.Equal(t, "drc_001a", resp.NextQuestion.ID)
	assert.False(t, resp.SessionComplete)

	next, err := svc.NextQuestion(ctx, session.SessionID)
	require.NoError(t, err)
	require.NotNil(t, next)
	assert.Equal(t, "drc_001a", next.ID)

	// the interview must not complete while that follow-up is reachable
	resp, err = svc.SubmitAnswer(ctx, session.SessionID, model.SubmitAnswerRequest{
		QuestionID: "drc_001a", Answer: "Permit renewal rejected in February",
	})
	require.NoError(t, err)
	require.NotNil(t, resp.NextQuestion)
	assert.Equal(t, "drc_004", resp.NextQuestion.ID)

	resp, err = svc.SubmitAnswer(ctx, session.SessionID, model.SubmitAnswerRequest{
		QuestionID: "drc_004", Answer: []string{"Exploitation permit"},
	})
	require.NoError(t, err)
	assert.True(t, resp.SessionComplete)

	refreshed, err := svc.GetSession(ctx, session.SessionID)
	require.NoError(t, err)
	require.NotNil(t, refreshed.AnswerFor("drc_001a"))
	assert.Len(t, refreshed.Answers, 5)
}

func TestSubmitRejectionsLeaveSessionUntouched(t *testing.T) {
	svc := newTestService(t)
	session := startPermitsSession(t, svc)
	ctx := context.Background()

	resp, err := svc.SubmitAnswer(ctx, session.SessionID, model.SubmitAnswerRequest{
		QuestionID: "drc_001", Answer: "maybe",
	})
	require.NoError(t, err)
	assert.Equal(t, model.SubmissionValidationError, resp.Status)
	require.NotNil(t, resp.ValidationError)
	assert.Equal(t, model.ErrTypeError, resp.ValidationError.ErrorType)

	resp, err = svc.SubmitAnswer(ctx, session.SessionID, model.SubmitAnswerRequest{
		QuestionID: "drc_999", Answer: true,
	})
	require.NoError(t, err)
	require.NotNil(t, resp.ValidationError)
	assert.Equal(t, model.ErrQuestionError, resp.ValidationError.ErrorType)
	assert.Equal(t, "Question not found", resp.ValidationError.Message)

	refreshed, err := svc.GetSession(ctx, session.SessionID)
	require.NoError(t, err)
	assert.Empty(t, refreshed.Answers)
	assert.Zero(t, refreshed.ProgressPercentage)
}

func TestSubmitUnknownSession(t *testing.T) {
	svc := newTestService(t)

	resp, err := svc.SubmitAnswer(context.Background(), "missing", model.SubmitAnswerRequest{
		QuestionID: "drc_001", Answer: true,
	})
	require.NoError(t, err)
	require.NotNil(t, resp.ValidationError)
	assert.Equal(t, model.ErrSessionError, resp.ValidationError.ErrorType)
	assert.Equal(t, "Session not found", resp.ValidationError.Message)
}

func TestPauseBlocksSubmissions(t *testing.T) {
	svc := newTestService(t)
	session := startPermitsSession(t, svc)
	ctx := context.Background()

	paused, err := svc.Pause(ctx, session.SessionID)
	require.NoError(t, err)
	assert.Equal(t, model.SessionPaused, paused.Status)

	resp, err := svc.SubmitAnswer(ctx, session.SessionID, model.SubmitAnswerRequest{
		QuestionID: "drc_001", Answer: true,
	})
	require.NoError(t, err)
	require.NotNil(t, resp.ValidationError)
	assert.Equal(t, model.ErrSessionError, resp.ValidationError.ErrorType)
	assert.Equal(t, "Session is paused", resp.ValidationError.Message)

	// pausing twice is an invalid transition
	_, err = svc.Pause(ctx, session.SessionID)
	require.Error(t, err)

	resumed, err := svc.Resume(ctx, session.SessionID)
	require.NoError(t, err)
	assert.Equal(t, model.SessionInProgress, resumed.Status)

	resp, err = svc.SubmitAnswer(ctx, session.SessionID, model.SubmitAnswerRequest{
		QuestionID: "drc_001", Answer: true,
	})
	require.NoError(t, err)
	assert.Nil(t, resp.ValidationError)
}

func TestAnsweringEverythingCompletesSession(t *testing.T) {
	svc := newTestService(t)
	session := startPermitsSession(t, svc)
	ctx := context.Background()

	answers := []model.SubmitAnswerRequest{
		{QuestionID: "drc_001", Answer: true},
		{QuestionID: "drc_002", Answer: "2024-03-15"},
		{QuestionID: "drc_003", Answer: true},
		{QuestionID: "drc_004", Answer: []string{"None - all documents current"}},
	}

	var last *model.SubmitAnswerResponse
	for _, req := range answers {
		resp, err := svc.SubmitAnswer(ctx, session.SessionID, req)
		require.NoError(t, err)
		require.Nil(t, resp.ValidationError, "question %s", req.QuestionID)
		last = resp
	}

	assert.Equal(t, model.SubmissionSessionComplete, last.Status)
	assert.True(t, last.SessionComplete)
	assert.Equal(t, 100.0, last.Progress)

	refreshed, err := svc.GetSession(ctx, session.SessionID)
	require.NoError(t, err)
	assert.Equal(t, model.SessionCompleted, refreshed.Status)
	require.NotNil(t, refreshed.CompletedAt)
	assert.Zero(t, refreshed.EstimatedSecondsLeft)
	assert.Contains(t, refreshed.CategoriesCompleted, "Permits")

	// completed sessions reject further answers
	resp, err := svc.SubmitAnswer(ctx, session.SessionID, model.SubmitAnswerRequest{
		QuestionID: "drc_001", Answer: false,
	})
	require.NoError(t, err)
	require.NotNil(t, resp.ValidationError)
	assert.Equal(t, "Session is completed", resp.ValidationError.Message)

	_, err = svc.Abandon(ctx, session.SessionID)
	require.Error(t, err)
}

func TestProgressMonotoneAndClamped(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	session, err := svc.StartSession(ctx, model.StartSessionRequest{
		Framework: "DRC_Mining_Code", SiteName: "Kolwezi Site", AuditorName: "B. Ilunga",
	})
	require.NoError(t, err)
	total := session.TotalQuestions

	prev := 0.0
	answered := 0
	for i := 0; i < 500; i++ {
		q, err := svc.NextQuestion(ctx, session.SessionID)
		require.NoError(t, err)
		if q == nil {
			break
		}
		var answer interface{}
		switch q.QuestionType {
		case model.QuestionYesNo:
			answer = false
		case model.QuestionScale:
			answer = 1.0
		case model.QuestionNumber:
			answer = 0.0
			if q.ValidationRules != nil && q.ValidationRules.Min != nil {
				answer = *q.ValidationRules.Min
			}
		case model.QuestionDate:
			answer = "2020-01-01"
		case model.QuestionMultipleChoice:
			answer = q.Options[0]
		case model.QuestionMultiSelect:
			answer = []string{q.Options[0]}
		default:
			answer = "none"
		}

		resp, err := svc.SubmitAnswer(ctx, session.SessionID, model.SubmitAnswerRequest{QuestionID: q.ID, Answer: answer})
		require.NoError(t, err)
		require.Nil(t, resp.ValidationError, "question %s", q.ID)
		answered++

		// progress never decreases and never exceeds 100, even once
		// triggered follow-ups push the answer count past the frozen total
		assert.GreaterOrEqual(t, resp.Progress, prev, "question %s", q.ID)
		assert.LessOrEqual(t, resp.Progress, 100.0, "question %s", q.ID)
		prev = resp.Progress

		if resp.SessionComplete {
			break
		}
	}

	assert.Equal(t, 100.0, prev)
	refreshed, err := svc.GetSession(ctx, session.SessionID)
	require.NoError(t, err)
	assert.Equal(t, model.SessionCompleted, refreshed.Status)
	// the negative answers fired follow-ups beyond the frozen denominator
	assert.Greater(t, answered, total)
	assert.Equal(t, total, refreshed.TotalQuestions)
}

func TestCompleteEarly(t *testing.T) {
	svc := newTestService(t)
	session := startPermitsSession(t, svc)
	ctx := context.Background()

	_, err := svc.SubmitAnswer(ctx, session.SessionID, model.SubmitAnswerRequest{
		QuestionID: "drc_001", Answer: true,
	})
	require.NoError(t, err)

	completed, err := svc.Complete(ctx, session.SessionID)
	require.NoError(t, err)
	assert.Equal(t, model.SessionCompleted, completed.Status)
	require.NotNil(t, completed.CompletedAt)
	assert.Len(t, completed.Answers, 1)
}

func TestCategoryProgress(t *testing.T) {
	svc := newTestService(t)
	session := startPermitsSession(t, svc)
	ctx := context.Background()

	_, err := svc.SubmitAnswer(ctx, session.SessionID, model.SubmitAnswerRequest{
		QuestionID: "drc_001", Answer: true,
	})
	require.NoError(t, err)

	progress, err := svc.CategoryProgress(ctx, session.SessionID)
	require.NoError(t, err)
	require.Len(t, progress, 1)
	cp := progress[0]
	assert.Equal(t, "Permits", cp.Category)
	assert.Equal(t, 4, cp.TotalQuestions)
	assert.Equal(t, 1, cp.AnsweredQuestions)
	assert.InDelta(t, 25.0, cp.CompletionPercentage, 0.01)
}

type stubClarifier struct {
	clars []model.AIClarification
	err   error
}

func (s *stubClarifier) Clarify(ctx context.Context, q *model.ComplianceQuestion, ans *model.InterviewAnswer) ([]model.AIClarification, error) {
	return s.clars, s.err
}

func TestGenerateClarifications(t *testing.T) {
	registry, err := bank.Load()
	require.NoError(t, err)
	stub := &stubClarifier{clars: []model.AIClarification{{Question: "What interim controls exist?"}}}
	svc := NewInterviewService(registry, nil, nil, nil, stub, nil)
	ctx := context.Background()

	session, err := svc.StartSession(ctx, model.StartSessionRequest{
		Framework: "DRC_Mining_Code", SiteName: "Kamoto Site", AuditorName: "A. Mwamba",
		Categories: []string{"Permits"},
	})
	require.NoError(t, err)

	// no recorded answer yet
	_, err = svc.GenerateClarifications(ctx, session.SessionID, "drc_001")
	require.Error(t, err)

	_, err = svc.SubmitAnswer(ctx, session.SessionID, model.SubmitAnswerRequest{
		QuestionID: "drc_001", Answer: false,
	})
	require.NoError(t, err)

	clars, err := svc.GenerateClarifications(ctx, session.SessionID, "drc_001")
	require.NoError(t, err)
	require.Len(t, clars, 1)
	assert.Equal(t, "What interim controls exist?", clars[0].Question)

	// provider failures degrade to an empty list
	stub.err = errors.New("upstream timeout")
	stub.clars = nil
	clars, err = svc.GenerateClarifications(ctx, session.SessionID, "drc_001")
	require.NoError(t, err)
	assert.Empty(t, clars)

	_, err = svc.GenerateClarifications(ctx, session.SessionID, "drc_999")
	require.Error(t, err)
}
