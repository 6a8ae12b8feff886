package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"github.com/mailblast/mailblast/internal/config"
	"github.com/mailblast/mailblast/internal/logger"
	"github.com/mailblast/mailblast/internal/repository"
	"google.golang.org/api/option"
)

// ErrAIUnavailable is returned when content generation is not configured
var ErrAIUnavailable = errors.New("ai content generation is not configured")

// typeInstructions steer generation per email type. Unknown types fall
// back to "general".
var typeInstructions = map[string]string{
	"marketing":   "Create a compelling marketing email that drives action. Include a clear call-to-action.",
	"welcome":     "Write a warm welcome email for new customers or subscribers.",
	"promotional": "Create a promotional email highlighting offers, discounts, or special deals.",
	"newsletter":  "Write engaging newsletter content that provides value to subscribers.",
	"follow-up":   "Create a professional follow-up email to maintain engagement.",
	"general":     "Write a professional email suitable for business communication.",
}

// GeneratedEmail is a subject/body pair produced by the model
type GeneratedEmail struct {
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// AIService generates email drafts with Gemini
type AIService struct {
	client *genai.Client
	model  string
	log    *logger.Logger
}

// NewAIService creates a new AIService. A missing API key disables the
// service rather than failing startup.
func NewAIService(ctx context.Context, cfg config.AIConfig, log *logger.Logger) (*AIService, error) {
	svc := &AIService{
		model: cfg.Model,
		log:   log.WithComponent("ai_service"),
	}
	if cfg.APIKey == "" {
		return svc, nil
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.APIKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}
	svc.client = client
	return svc, nil
}

// Close releases the underlying client
func (s *AIService) Close() error {
	if s.client == nil {
		return nil
	}
	return s.client.Close()
}

// GenerateFullEmail produces a subject and body for the prompt. The two
// generations run concurrently.
func (s *AIService) GenerateFullEmail(ctx context.Context, prompt, emailType string) (*GeneratedEmail, error) {
	if s.client == nil {
		return nil, ErrAIUnavailable
	}
	if strings.TrimSpace(prompt) == "" {
		return nil, fmt.Errorf("%w: prompt is required", repository.ErrInvalidInput)
	}

	emailType = strings.ToLower(strings.TrimSpace(emailType))
	if _, ok := typeInstructions[emailType]; !ok {
		emailType = "general"
	}

	type generation struct {
		text string
		err  error
	}

	subjectCh := make(chan generation, 1)
	bodyCh := make(chan generation, 1)

	go func() {
		text, err := s.generate(ctx, subjectPrompt(prompt, emailType))
		subjectCh <- generation{text: strings.TrimSpace(text), err: err}
	}()
	go func() {
		text, err := s.generate(ctx, bodyPrompt(prompt, emailType))
		bodyCh <- generation{text: text, err: err}
	}()

	subject := <-subjectCh
	body := <-bodyCh

	if subject.err != nil {
		return nil, fmt.Errorf("subject generation failed: %w", subject.err)
	}
	if body.err != nil {
		return nil, fmt.Errorf("body generation failed: %w", body.err)
	}

	return &GeneratedEmail{Subject: subject.text, Body: body.text}, nil
}

// generate runs one prompt through the configured model and flattens the
// text parts of the first candidate.
func (s *AIService) generate(ctx context.Context, prompt string) (string, error) {
	model := s.client.GenerativeModel(s.model)

	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", err
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", fmt.Errorf("model returned no candidates")
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			sb.WriteString(string(text))
		}
	}
	if sb.Len() == 0 {
		return "", fmt.Errorf("model returned no text")
	}
	return sb.String(), nil
}

func subjectPrompt(userPrompt, emailType string) string {
	return fmt.Sprintf(`Generate a compelling email subject line for a %s email based on this request: %q

Requirements:
1. Keep it under 60 characters
2. Make it attention-grabbing but professional
3. Avoid spam words
4. Make it relevant to %s emails
5. Use action words when appropriate

Generate only the subject line (no quotes, no extra text):`, emailType, userPrompt, emailType)
}

func bodyPrompt(userPrompt, emailType string) string {
	return fmt.Sprintf(`You are a professional email copywriter specializing in %s emails. Generate ONLY the email body content based on the following requirements:

Email Type: %s
User Request: %q

Specific Instructions: %s

General Requirements:
1. Write in a professional, engaging tone appropriate for %s emails
2. Create proper email structure with greeting, body, and closing
3. Keep it concise but effective (150-300 words)
4. Use proper email etiquette
5. Make it suitable for business/marketing emails
6. Don't include subject line - only body content
7. Use placeholder format {{fieldname}} where personalization might be needed (e.g., {{name}}, {{company}}, {{email}})
8. Ensure the content is appropriate for mass email campaigns
9. Include a clear call-to-action if relevant to the email type

Generate only the email body content:`, emailType, capitalize(emailType), userPrompt, typeInstructions[emailType], emailType)
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
