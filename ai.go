package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

const defaultAnthropicModel = "claude-sonnet-4-5-20250929"

// ActionAnalysis is the model's read on whether a message needs something
// from the owner. The triage pipeline treats it as one optional signal; a
// failed or disabled AI call degrades to rule-only operation.
type ActionAnalysis struct {
	IsTaskForMe string   `json:"is_task_for_me"` // "Yes", "No", "Unsure"
	Reasons     string   `json:"reasons"`
	Tasks       []AITask `json:"tasks"`
}

type AITask struct {
	Title    string `json:"title"`
	Priority string `json:"priority"`
}

// Suggester calls Anthropic for label suggestions and actionability
// analysis. A nil Suggester (no API key) disables both.
type Suggester struct {
	client anthropic.Client
	model  string

	exampleCount  int
	exampleMaxLen int
	examples      *tfidfIndex
}

func NewSuggester(cfg Config, pastCorrections []Correction) *Suggester {
	if !cfg.AIEnabled || cfg.AnthropicAPIKey == "" {
		return nil
	}
	s := &Suggester{
		client:        anthropic.NewClient(option.WithAPIKey(cfg.AnthropicAPIKey)),
		model:         cfg.AIModel,
		exampleCount:  cfg.AIExampleCount,
		exampleMaxLen: cfg.AIExampleMaxLen,
	}
	if len(pastCorrections) > 0 {
		s.examples = buildTFIDFIndex(correctionExamples(pastCorrections))
	}
	return s
}

// SuggestLabel asks the model for a category suggestion constrained to the
// known category names. Returns "" when the model declines or answers
// outside the allowed set.
func (s *Suggester) SuggestLabel(ctx context.Context, subject, body string, categories []string) (string, error) {
	if s == nil {
		return "", nil
	}
	systemPrompt := "You label incoming email for a triage pipeline. " +
		"Answer with exactly one label from the allowed list, or NONE if nothing fits. " +
		"No explanations."

	var b strings.Builder
	fmt.Fprintf(&b, "Allowed labels:\n")
	for _, c := range categories {
		fmt.Fprintf(&b, "- %s\n", c)
	}
	writeExampleBlock(&b, s.pickExamples(subject), s.exampleMaxLen)
	fmt.Fprintf(&b, "\nSubject: %s\nBody:\n%s\n", subject, body)

	text, err := s.call(ctx, systemPrompt, b.String())
	if err != nil {
		return "", err
	}
	answer := strings.TrimSpace(text)
	if answer == "" || strings.EqualFold(answer, "NONE") {
		return "", nil
	}
	for _, c := range categories {
		if strings.EqualFold(answer, c) {
			return c, nil
		}
	}
	log.Printf("ai label suggestion %q not in allowed set, dropped", answer)
	return "", nil
}

// Actionability asks the model whether the message needs action from the
// owner, returning a conservative Unsure on any parse trouble.
func (s *Suggester) Actionability(ctx context.Context, subject, body string, teamKeywords []string) (ActionAnalysis, error) {
	unsure := ActionAnalysis{IsTaskForMe: "Unsure"}
	if s == nil {
		return unsure, nil
	}
	systemPrompt := "You decide whether an email requires action from its owner. " +
		"Respond with JSON only: {\"is_task_for_me\": \"Yes\"|\"No\"|\"Unsure\", " +
		"\"reasons\": string, \"tasks\": [{\"title\": string, \"priority\": \"low\"|\"medium\"|\"high\"}]}."

	var b strings.Builder
	if len(teamKeywords) > 0 {
		fmt.Fprintf(&b, "The owner's team topics: %s\n", strings.Join(teamKeywords, ", "))
	}
	fmt.Fprintf(&b, "Subject: %s\nBody:\n%s\n", subject, body)

	text, err := s.call(ctx, systemPrompt, b.String())
	if err != nil {
		return unsure, err
	}
	var analysis ActionAnalysis
	if err := json.Unmarshal([]byte(extractJSONObject(text)), &analysis); err != nil {
		log.Printf("ai actionability parse error: %v", err)
		return unsure, nil
	}
	if !isTaskForMeValue(analysis.IsTaskForMe) {
		analysis.IsTaskForMe = "Unsure"
	}
	return analysis, nil
}

func (s *Suggester) call(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	message, err := s.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(s.model),
		MaxTokens: 1024,
		System: []anthropic.TextBlockParam{
			{Text: systemPrompt, CacheControl: anthropic.NewCacheControlEphemeralParam()},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(userPrompt)),
		},
	})
	if err != nil {
		log.Printf("ai anthropic error: %v", err)
		return "", fmt.Errorf("Anthropic API error: %w", err)
	}
	for _, block := range message.Content {
		if block.Type == "text" {
			log.Printf("ai anthropic response size=%d tokens_in=%d tokens_out=%d",
				len(block.Text), message.Usage.InputTokens, message.Usage.OutputTokens)
			return block.Text, nil
		}
	}
	return "", fmt.Errorf("no text content in Anthropic response")
}

func (s *Suggester) pickExamples(subject string) []labeledExample {
	if s.examples == nil {
		return nil
	}
	return s.examples.topK(subject, s.exampleCount)
}

func writeExampleBlock(b *strings.Builder, examples []labeledExample, maxLen int) {
	if len(examples) == 0 {
		return
	}
	fmt.Fprintf(b, "\nPast human-corrected examples (label|subject):\n")
	for _, ex := range examples {
		text := strings.TrimSpace(ex.Text)
		if len(text) > maxLen {
			text = text[:maxLen] + "..."
		}
		fmt.Fprintf(b, "- %s|%s\n", ex.Label, text)
	}
}

// extractJSONObject pulls the outermost {...} from a response that may be
// wrapped in prose or a code fence.
func extractJSONObject(text string) string {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return text
	}
	return text[start : end+1]
}
