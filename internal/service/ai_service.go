package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"vigilore/internal/config"
	"vigilore/internal/model"
)

// clientPool shares one HTTP client per API credential so concurrent
// interviews reuse connections instead of building a client each call.
var clientPool = struct {
	sync.Mutex
	clients map[string]*http.Client
}{clients: make(map[string]*http.Client)}

func pooledClient(apiKey string, timeout time.Duration) *http.Client {
	clientPool.Lock()
	defer clientPool.Unlock()
	if c, ok := clientPool.clients[apiKey]; ok {
		return c
	}
	c := &http.Client{Timeout: timeout}
	clientPool.clients[apiKey] = c
	return c
}

// AIService generates deep-dive clarification questions and compliance
// summaries via the Gemini API. Without an API key every call degrades: an
// empty clarification list, an error from Summarize that sends the exporter
// to its templated fallback.
type AIService struct {
	config *config.AIConfig
	client *http.Client
}

// NewAIService creates an AI service from the given configuration
func NewAIService(cfg *config.AIConfig) *AIService {
	return &AIService{
		config: cfg,
		client: pooledClient(cfg.APIKey, time.Duration(cfg.TimeoutMS)*time.Millisecond),
	}
}

// IsEnabled reports whether a Gemini credential is configured
func (s *AIService) IsEnabled() bool {
	return s.config.IsEnabled()
}

// Clarify generates 2-3 targeted follow-up questions for a critical negative
// answer. Answers not flagged for a deep dive get an empty list, as does any
// disabled or failing API call.
func (s *AIService) Clarify(ctx context.Context, q *model.ComplianceQuestion, ans *model.InterviewAnswer) ([]model.AIClarification, error) {
	if !ans.NeedsAIFollowUp {
		return []model.AIClarification{}, nil
	}
	if !s.config.IsEnabled() {
		return []model.AIClarification{}, nil
	}

	prompt := s.buildClarifyPrompt(q, ans)
	response, err := s.callGemini(ctx, s.config.Models.Clarify, prompt)
	if err != nil {
		return nil, err
	}

	var result struct {
		Questions []struct {
			Question string `json:"question"`
			Purpose  string `json:"purpose"`
		} `json:"questions"`
	}
	if err := json.Unmarshal([]byte(response), &result); err != nil {
		return nil, fmt.Errorf("parsing clarification response: %w", err)
	}

	out := make([]model.AIClarification, 0, 3)
	for _, c := range result.Questions {
		if c.Question == "" {
			continue
		}
		out = append(out, model.AIClarification{Question: c.Question, Purpose: c.Purpose})
		if len(out) == 3 {
			break
		}
	}
	return out, nil
}

// Summarize generates the narrative compliance summary for a finished
// interview.
func (s *AIService) Summarize(ctx context.Context, session *model.InterviewSession, pairs []model.QAPair) (string, error) {
	if !s.config.IsEnabled() {
		return "", fmt.Errorf("AI summary disabled: no API key configured")
	}

	prompt := s.buildSummaryPrompt(session, pairs)
	response, err := s.callGemini(ctx, s.config.Models.Summary, prompt)
	if err != nil {
		return "", err
	}

	var result struct {
		Summary string `json:"summary"`
	}
	if err := json.Unmarshal([]byte(response), &result); err != nil {
		return "", fmt.Errorf("parsing summary response: %w", err)
	}
	if result.Summary == "" {
		return "", fmt.Errorf("empty summary from Gemini")
	}
	return result.Summary, nil
}

// callGemini makes a request to the Gemini API
func (s *AIService) callGemini(ctx context.Context, modelName, prompt string) (string, error) {
	reqBody := map[string]interface{}{
		"contents": []map[string]interface{}{
			{
				"parts": []map[string]string{
					{"text": prompt},
				},
			},
		},
		"generationConfig": map[string]interface{}{
			"responseMimeType": "application/json",
		},
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return "", err
	}

	url := fmt.Sprintf("%s?key=%s", s.config.ModelEndpoint(modelName), s.config.APIKey)
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(jsonBody))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("gemini returned %d", resp.StatusCode)
	}

	// Parse Gemini response structure
	var geminiResp struct {
		Candidates []struct {
			Content struct {
				Parts []struct {
					Text string `json:"text"`
				} `json:"parts"`
			} `json:"content"`
		} `json:"candidates"`
	}

	if err := json.Unmarshal(body, &geminiResp); err != nil {
		return "", err
	}

	if len(geminiResp.Candidates) > 0 && len(geminiResp.Candidates[0].Content.Parts) > 0 {
		return geminiResp.Candidates[0].Content.Parts[0].Text, nil
	}

	return "", fmt.Errorf("empty response from Gemini")
}

// Prompt builders
func (s *AIService) buildClarifyPrompt(q *model.ComplianceQuestion, ans *model.InterviewAnswer) string {
	notes := ""
	if ans.Notes != "" {
		notes = "Notes: " + ans.Notes
	}
	return fmt.Sprintf(`Compliance gap detected. The auditor answered 'No' to:
Question: %s
Reference: %s
Category: %s
%s

Generate exactly 2-3 targeted follow-up questions to understand:
1. Root cause of non-compliance
2. Current mitigation measures or workarounds
3. Timeline and plan for remediation

Return ONLY valid JSON:
{"questions": [{
  "question": "specific question text",
  "purpose": "what this reveals"
}]}

Keep questions short and specific.`,
		q.QuestionText, q.FrameworkRef, q.Category, notes)
}

func (s *AIService) buildSummaryPrompt(session *model.InterviewSession, pairs []model.QAPair) string {
	type promptPair struct {
		Category     string  `json:"category"`
		Question     string  `json:"question"`
		Answer       string  `json:"answer"`
		FrameworkRef string  `json:"framework_ref"`
		Weight       float64 `json:"weight"`
	}
	qa := make([]promptPair, 0, len(pairs))
	for _, p := range pairs {
		qa = append(qa, promptPair{
			Category:     p.Question.Category,
			Question:     p.Question.QuestionText,
			Answer:       p.Answer.Value.Display(),
			FrameworkRef: p.Question.FrameworkRef,
			Weight:       p.Question.Weight,
		})
	}
	qaJSON, _ := json.MarshalIndent(qa, "", "  ")

	var sb strings.Builder
	fmt.Fprintf(&sb, `Analyze this compliance interview for %s against %s.

Interview conducted by: %s
Date: %s

Questions and Answers:
%s

Generate a comprehensive compliance assessment summary that includes:
1. Overall compliance status assessment
2. Key strengths identified
3. Critical gaps and non-compliance areas
4. Risk level assessment
5. Priority recommendations

Format as a professional executive summary suitable for management review.
Focus on actionable insights and specific compliance requirements.

Return ONLY valid JSON: {"summary": "the full summary text"}`,
		session.SiteName, session.Framework, session.AuditorName,
		session.StartedAt.Format("2006-01-02"), string(qaJSON))
	return sb.String()
}
