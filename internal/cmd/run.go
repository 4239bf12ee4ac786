package cmd

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"vigilore/internal/bank"
	"vigilore/internal/config"
	"vigilore/internal/model"
	"vigilore/internal/penalty"
	"vigilore/internal/service"
)

// NewRunCommand runs an interactive compliance interview in the terminal
func NewRunCommand() *cobra.Command {
	var (
		framework  string
		categories []string
		siteName   string
		auditor    string
		outputDir  string
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Conduct an interactive compliance interview",
		Long: `Runs a full compliance interview in the terminal: pick a framework,
answer its questions, and export the scored results to a JSON file.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			registry, err := bank.Load()
			if err != nil {
				return fmt.Errorf("loading question banks: %w", err)
			}

			aiConfig := config.DefaultAIConfig()
			aiSvc := service.NewAIService(aiConfig)
			interviews := service.NewInterviewService(registry, nil, nil, nil, aiSvc, nil)
			exports := service.NewExportService(interviews, aiSvc, nil, nil)

			r := &interviewRunner{
				in:         bufio.NewScanner(cmd.InOrStdin()),
				out:        cmd.OutOrStdout(),
				registry:   registry,
				interviews: interviews,
				exports:    exports,
				ai:         aiSvc,
				outputDir:  outputDir,
			}
			return r.run(cmd.Context(), framework, categories, siteName, auditor)
		},
	}

	cmd.Flags().StringVarP(&framework, "framework", "f", "", "framework to assess (prompted if omitted)")
	cmd.Flags().StringSliceVarP(&categories, "category", "c", nil, "restrict to specific categories")
	cmd.Flags().StringVar(&siteName, "site", "", "name of the site being audited")
	cmd.Flags().StringVar(&auditor, "auditor", "", "name of the auditor")
	cmd.Flags().StringVarP(&outputDir, "output", "o", "interview_exports", "directory for exported results")

	return cmd
}

type interviewRunner struct {
	in         *bufio.Scanner
	out        io.Writer
	registry   *bank.Registry
	interviews *service.InterviewService
	exports    *service.ExportService
	ai         *service.AIService
	outputDir  string
}

func (r *interviewRunner) run(ctx context.Context, framework string, categories []string, siteName, auditor string) error {
	cyan := color.New(color.FgCyan, color.Bold)
	yellow := color.New(color.FgYellow)
	green := color.New(color.FgGreen)

	cyan.Fprintln(r.out, strings.Repeat("=", 70))
	cyan.Fprintln(r.out, "     VIGILORE COMPLIANCE INTERVIEW SYSTEM")
	cyan.Fprintln(r.out, strings.Repeat("=", 70))

	if r.ai.IsEnabled() {
		green.Fprintln(r.out, "\n[OK] Gemini API key loaded")
	} else {
		yellow.Fprintln(r.out, "\n[WARNING] GEMINI_API_KEY not set")
		fmt.Fprintln(r.out, "AI clarifications and summaries will not be available.")
	}

	if framework == "" {
		framework = r.selectFramework()
	}
	b, err := r.registry.Get(framework)
	if err != nil {
		return err
	}
	fmt.Fprintf(r.out, "\n[SELECTED] Framework: %s\n", strings.ReplaceAll(b.Framework, "_", " "))

	if len(categories) == 0 {
		categories = r.selectCategories(b)
	}
	if len(categories) > 0 {
		fmt.Fprintf(r.out, "[SELECTED] Categories: %s\n", strings.Join(categories, ", "))
	} else {
		fmt.Fprintln(r.out, "[SELECTED] All categories (complete assessment)")
	}

	if siteName == "" {
		siteName = r.promptDefault("Site name", "Unknown Site")
	}
	siteCode := r.promptDefault("Site code (optional)", "")
	operator := r.promptDefault("Operator (optional)", "")
	if auditor == "" {
		auditor = r.promptDefault("Your name", "Anonymous")
	}

	session, err := r.interviews.StartSession(ctx, model.StartSessionRequest{
		Framework:   framework,
		SiteName:    siteName,
		SiteCode:    siteCode,
		Operator:    operator,
		AuditorName: auditor,
		Categories:  categories,
	})
	if err != nil {
		return err
	}

	fmt.Fprintf(r.out, "\n[SESSION STARTED]\nSession ID: %s\nTotal questions: %d\nEstimated time: %d minutes\n",
		session.SessionID[:8]+"...", session.TotalQuestions,
		session.TotalQuestions*model.SecondsPerQuestion/60)

	num := 0
	for {
		question, err := r.interviews.NextQuestion(ctx, session.SessionID)
		if err != nil {
			return err
		}
		if question == nil {
			break
		}
		num++

		r.printQuestion(question, num, session.TotalQuestions, session.ProgressPercentage)

		answer := r.promptAnswer(question)
		var confidence *float64
		if question.Required && question.Weight >= 2.0 {
			confidence = r.promptConfidence()
		}
		notes := ""
		if question.EvidenceRequired || question.Weight >= 3.0 {
			yellow.Fprintln(r.out, "\n[NOTES] This is a critical question. Please provide context:")
			notes = r.promptDefault("Notes (optional)", "")
		}

		resp, err := r.interviews.SubmitAnswer(ctx, session.SessionID, model.SubmitAnswerRequest{
			QuestionID: question.ID,
			Answer:     answer,
			Confidence: confidence,
			Notes:      notes,
		})
		if err != nil {
			return err
		}
		if resp.ValidationError != nil {
			color.New(color.FgRed).Fprintf(r.out, "\n[ERROR] %s\n", resp.ValidationError.Message)
			num--
			continue
		}

		if resp.NeedsAIFollowUp {
			r.runClarifications(ctx, session.SessionID, question)
		}

		if resp.NextQuestion != nil && resp.NextQuestion.ID != question.ID && r.isFollowUp(framework, resp.NextQuestion.ID) {
			yellow.Fprintln(r.out, "\n[FOLLOW-UP] Your answer triggered a follow-up question")
		}

		refreshed, err := r.interviews.GetSession(ctx, session.SessionID)
		if err == nil {
			session = refreshed
		}
		if resp.SessionComplete {
			break
		}
	}

	green.Fprintln(r.out, "\n[COMPLETE] Interview finished!")
	fmt.Fprintf(r.out, "Questions answered: %d\n", len(session.Answers))

	progress, err := r.interviews.CategoryProgress(ctx, session.SessionID)
	if err == nil {
		fmt.Fprintln(r.out, "\n[RESULTS] Category Completion:")
		fmt.Fprintln(r.out, strings.Repeat("-", 70))
		for _, cp := range progress {
			fmt.Fprintf(r.out, "  %s:\n    Completion: %.1f%%\n    Questions: %d/%d\n",
				cp.Category, cp.CompletionPercentage, cp.AnsweredQuestions, cp.TotalQuestions)
		}
	}

	if strings.EqualFold(r.promptDefault("\nExport interview results? (y/n)", "y"), "y") {
		return r.exportResults(ctx, session)
	}
	return nil
}

func (r *interviewRunner) selectFramework() string {
	names := r.registry.Frameworks()
	// collapse aliases to their canonical bank
	var list []string
	seen := make(map[string]bool)
	for _, name := range names {
		b, err := r.registry.Get(name)
		if err != nil || seen[b.Framework] {
			continue
		}
		seen[b.Framework] = true
		list = append(list, b.Framework)
	}

	fmt.Fprintln(r.out, "\n[FRAMEWORKS] Available Compliance Frameworks:")
	fmt.Fprintln(r.out, strings.Repeat("-", 50))
	for i, fw := range list {
		fmt.Fprintf(r.out, "  %d. %s\n", i+1, strings.ReplaceAll(fw, "_", " "))
	}

	for {
		choice := r.promptDefault(fmt.Sprintf("\nSelect framework (1-%d)", len(list)), "")
		idx, err := strconv.Atoi(choice)
		if err == nil && idx >= 1 && idx <= len(list) {
			return list[idx-1]
		}
		fmt.Fprintln(r.out, "[ERROR] Please enter a valid number.")
	}
}

func (r *interviewRunner) selectCategories(b *bank.Bank) []string {
	cats := b.Categories()
	fmt.Fprintf(r.out, "\n[CATEGORIES] Available categories for %s:\n", strings.ReplaceAll(b.Framework, "_", " "))
	fmt.Fprintln(r.out, strings.Repeat("-", 50))
	for i, c := range cats {
		fmt.Fprintf(r.out, "  %d. %s\n", i+1, c)
	}
	fmt.Fprintln(r.out, "\n  0. All categories (complete assessment)")

	for {
		choice := r.promptDefault("\nSelect option (0 for all, or comma-separated numbers)", "0")
		if choice == "0" {
			return nil
		}
		var selected []string
		valid := true
		for _, part := range strings.Split(choice, ",") {
			idx, err := strconv.Atoi(strings.TrimSpace(part))
			if err != nil || idx < 1 || idx > len(cats) {
				valid = false
				break
			}
			selected = append(selected, cats[idx-1])
		}
		if valid && len(selected) > 0 {
			return selected
		}
		fmt.Fprintln(r.out, "[ERROR] Please enter valid numbers separated by commas.")
	}
}

func (r *interviewRunner) printQuestion(q *model.ComplianceQuestion, num, total int, progress float64) {
	bar := strings.Repeat("█", int(progress/2)) + strings.Repeat("░", 50-int(progress/2))
	fmt.Fprintf(r.out, "\nProgress: [%s] %.1f%%\n", bar, progress)

	fmt.Fprintf(r.out, "\n[QUESTION %d/%d]\n", num, total)
	fmt.Fprintln(r.out, strings.Repeat("=", 70))
	fmt.Fprintf(r.out, "Category: %s\nReference: %s\n", q.Category, q.FrameworkRef)
	if q.Weight > 2.5 {
		color.New(color.FgRed, color.Bold).Fprintln(r.out, "[CRITICAL] High-weight question")
	}
	fmt.Fprintf(r.out, "\n%s\n", q.QuestionText)
	if q.HelpText != "" {
		fmt.Fprintf(r.out, "\nHelp: %s\n", q.HelpText)
	}
}

// promptAnswer collects a raw answer of the shape the validator expects for
// the question type. Range and option errors still surface through the
// submission path.
func (r *interviewRunner) promptAnswer(q *model.ComplianceQuestion) interface{} {
	fmt.Fprintf(r.out, "\nAnswer type: %s\n", q.QuestionType)

	switch q.QuestionType {
	case model.QuestionYesNo:
		for {
			answer := strings.ToLower(r.promptDefault("\nAnswer (yes/no)", ""))
			switch answer {
			case "yes", "y", "true", "1":
				return true
			case "no", "n", "false", "0":
				return false
			}
			fmt.Fprintln(r.out, "[ERROR] Please answer yes or no")
		}

	case model.QuestionScale:
		for {
			raw := r.promptDefault("\nAnswer (1-5)", "")
			if n, err := strconv.Atoi(raw); err == nil && n >= 1 && n <= 5 {
				return float64(n)
			}
			fmt.Fprintln(r.out, "[ERROR] Please enter a number between 1 and 5")
		}

	case model.QuestionNumber:
		for {
			raw := r.promptDefault("\nAnswer (number)", "")
			if n, err := strconv.ParseFloat(raw, 64); err == nil {
				return n
			}
			fmt.Fprintln(r.out, "[ERROR] Please enter a valid number")
		}

	case model.QuestionDate:
		return r.promptDefault("\nAnswer (YYYY-MM-DD)", "")

	case model.QuestionMultipleChoice:
		fmt.Fprintln(r.out, "\nOptions:")
		for i, opt := range q.Options {
			fmt.Fprintf(r.out, "  %d. %s\n", i+1, opt)
		}
		for {
			raw := r.promptDefault(fmt.Sprintf("\nSelect option (1-%d)", len(q.Options)), "")
			if idx, err := strconv.Atoi(raw); err == nil && idx >= 1 && idx <= len(q.Options) {
				return q.Options[idx-1]
			}
			fmt.Fprintln(r.out, "[ERROR] Invalid choice")
		}

	case model.QuestionMultiSelect:
		fmt.Fprintln(r.out, "\nOptions (select multiple):")
		for i, opt := range q.Options {
			fmt.Fprintf(r.out, "  %d. %s\n", i+1, opt)
		}
		fmt.Fprintln(r.out, "\nEnter numbers separated by commas (e.g., 1,3,5)")
		for {
			raw := r.promptDefault("Select options", "")
			var selected []string
			for _, part := range strings.Split(raw, ",") {
				if idx, err := strconv.Atoi(strings.TrimSpace(part)); err == nil && idx >= 1 && idx <= len(q.Options) {
					selected = append(selected, q.Options[idx-1])
				}
			}
			if len(selected) > 0 {
				return selected
			}
			fmt.Fprintln(r.out, "[ERROR] No valid options selected")
		}

	default: // text
		answer := r.promptDefault("\nAnswer", "")
		if answer == "" {
			answer = "No answer provided"
		}
		return answer
	}
}

func (r *interviewRunner) promptConfidence() *float64 {
	for {
		raw := r.promptDefault("Confidence (0-100%, or press Enter for 100%)", "")
		if raw == "" {
			v := 1.0
			return &v
		}
		if n, err := strconv.ParseFloat(strings.TrimSuffix(raw, "%"), 64); err == nil && n >= 0 && n <= 100 {
			v := n / 100
			return &v
		}
		fmt.Fprintln(r.out, "[ERROR] Confidence must be between 0 and 100")
	}
}

func (r *interviewRunner) runClarifications(ctx context.Context, sessionID string, q *model.ComplianceQuestion) {
	yellow := color.New(color.FgYellow)
	yellow.Fprintln(r.out, "\n[AI ASSISTANT] This is a critical compliance gap. Let me ask a few clarifying questions...")
	fmt.Fprintln(r.out, strings.Repeat("-", 70))

	clars, err := r.interviews.GenerateClarifications(ctx, sessionID, q.ID)
	if err != nil || len(clars) == 0 {
		return
	}

	for i := range clars {
		fmt.Fprintf(r.out, "\n[AI Question %d] %s\n", i+1, clars[i].Question)
		clars[i].Answer = r.promptDefault("Your answer", "")
	}
	if err := r.interviews.RecordClarifications(ctx, sessionID, q.ID, clars); err == nil {
		fmt.Fprintln(r.out, "\n[AI COMPLETE] Thank you for the additional information. Continuing with assessment...")
	}
}

func (r *interviewRunner) exportResults(ctx context.Context, session *model.InterviewSession) error {
	fmt.Fprintln(r.out, "\n[EXPORTING] Generating export file...")

	if session.Status == model.SessionInProgress || session.Status == model.SessionPaused {
		if _, err := r.interviews.Complete(ctx, session.SessionID); err != nil {
			return err
		}
	}

	export, err := r.exports.Export(ctx, session.SessionID)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(r.outputDir, 0o755); err != nil {
		return err
	}
	filename := fmt.Sprintf("interview_%s_%s.json",
		strings.ReplaceAll(session.SiteName, " ", "_"),
		time.Now().Format("20060102_150405"))
	path := filepath.Join(r.outputDir, filename)

	data, err := json.MarshalIndent(export, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return err
	}

	color.New(color.FgGreen).Fprintf(r.out, "[SAVED] %s\n", path)
	fmt.Fprintln(r.out, "\nCompliance Scores:")
	for category, score := range export.ComplianceScores {
		fmt.Fprintf(r.out, "  %s: %.0f%%\n", category, score*100)
	}
	if export.PenaltyExposure != nil {
		fmt.Fprintf(r.out, "\nPotential financial exposure: %s\n",
			penalty.FormatAmount(export.PenaltyExposure.TotalMaxUSD))
	}
	return nil
}

func (r *interviewRunner) isFollowUp(framework, questionID string) bool {
	b, err := r.registry.Get(framework)
	if err != nil {
		return false
	}
	return b.IsFollowUpOnly(questionID)
}

func (r *interviewRunner) promptDefault(prompt, def string) string {
	fmt.Fprintf(r.out, "%s: ", prompt)
	if !r.in.Scan() {
		return def
	}
	answer := strings.TrimSpace(r.in.Text())
	if answer == "" {
		return def
	}
	return answer
}
