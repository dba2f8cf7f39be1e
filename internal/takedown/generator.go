// Package takedown drafts GDPR/CCPA data deletion request emails for
// platforms where a scan found a presence. Drafting prefers an
// OpenAI-compatible model when one is configured and falls back to a
// pre-built legal template, so generation never fails.
package takedown

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"github.com/veilscan/veilscan/internal/interfaces"
)

// Config holds the optional language model settings. An empty APIKey with an
// empty BaseURL means template-only generation.
type Config struct {
	// APIKey authenticates against the completion endpoint. Local
	// inference servers usually accept any value.
	APIKey string

	// BaseURL points at an OpenAI-compatible server, e.g. a llama.cpp or
	// Ollama instance. Empty means the OpenAI default.
	BaseURL string

	// Model is the model name to request.
	Model string

	// MaxTokens bounds the completion length.
	MaxTokens int
}

// DefaultConfig returns the default generator configuration.
func DefaultConfig() Config {
	return Config{
		Model:     "mistral-7b-instruct",
		MaxTokens: 2048,
	}
}

// Request identifies the platform and data subject an email is drafted for.
// Findings carries the data the scan observed on the platform.
type Request struct {
	Platform  string
	UserName  string
	UserEmail string
	Findings  map[string]any
}

// Email is a drafted deletion request.
type Email struct {
	Subject       string `json:"email_subject"`
	Body          string `json:"email_body"`
	RecipientHint string `json:"recipient_hint"`
	Regulation    string `json:"regulation"`
	Platform      string `json:"platform"`
}

// Generator drafts takedown emails.
type Generator struct {
	cfg    Config
	client *openai.Client
	logger interfaces.Logger
}

// NewGenerator creates a generator. The model client is only constructed when
// an API key or base URL is configured.
func NewGenerator(cfg Config, logger interfaces.Logger) (*Generator, error) {
	if logger == nil {
		return nil, errors.New("takedown: nil logger provided")
	}
	if cfg.Model == "" {
		cfg.Model = DefaultConfig().Model
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = DefaultConfig().MaxTokens
	}

	g := &Generator{
		cfg:    cfg,
		logger: logger.With(interfaces.Field{Key: "component", Value: "takedown"}),
	}

	if cfg.APIKey != "" || cfg.BaseURL != "" {
		clientCfg := openai.DefaultConfig(cfg.APIKey)
		if cfg.BaseURL != "" {
			clientCfg.BaseURL = cfg.BaseURL
		}
		g.client = openai.NewClientWithConfig(clientCfg)
	} else {
		g.logger.Info("no model endpoint configured, using template-based email generation")
	}

	return g, nil
}

// Draft produces a deletion request email. Model failures degrade to the
// template, never to an error.
func (g *Generator) Draft(ctx context.Context, req Request) *Email {
	if g.client == nil {
		return templateEmail(req, time.Now())
	}

	email, err := g.draftWithModel(ctx, req)
	if err != nil {
		g.logger.Warn("model drafting failed, falling back to template",
			interfaces.Field{Key: "platform", Value: req.Platform},
			interfaces.Field{Key: "error", Value: err.Error()})
		return templateEmail(req, time.Now())
	}
	return email
}

const systemPrompt = "You are a legal compliance assistant specializing in data privacy."

func (g *Generator) draftWithModel(ctx context.Context, req Request) (*Email, error) {
	resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       g.cfg.Model,
		MaxTokens:   g.cfg.MaxTokens,
		Temperature: 0.3,
		TopP:        0.9,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: userPrompt(req)},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, errors.New("empty completion response")
	}

	email, ok := parseModelResponse(resp.Choices[0].Message.Content, req.Platform)
	if !ok {
		return nil, errors.New("completion missing subject or body")
	}
	return email, nil
}

func userPrompt(req Request) string {
	findings := "  (General data presence detected)"
	if items := findingItems(req.Findings); len(items) > 0 {
		findings = strings.Join(items, "\n")
	}

	return fmt.Sprintf(`Generate a formal, professional GDPR Article 17 and CCPA §1798.105 data deletion request email.

Details:
- Platform: %s
- Data Subject Name: %s
- Data Subject Email: %s
- Data found on platform:
%s

Requirements:
1. Subject line should be clear and reference the regulation
2. Body must cite GDPR Article 17 ("Right to Erasure") and CCPA §1798.105
3. Request complete deletion of all personal data
4. Request confirmation of deletion within 30 days
5. Mention right to lodge complaint with supervisory authority if not complied
6. Professional and firm but polite tone
7. Include a deadline for response (30 days as per regulation)

Format the response as:
SUBJECT: [subject line]
BODY:
[full email body]
RECIPIENT_HINT: [suggested email address or department, e.g., privacy@platform.com]`,
		req.Platform, req.UserName, req.UserEmail, findings)
}

// parseModelResponse extracts the SUBJECT/BODY/RECIPIENT_HINT sections from
// the model output. Returns false when the output is unusable.
func parseModelResponse(text, platform string) (*Email, bool) {
	var (
		subject   string
		body      strings.Builder
		recipient string
		section   string
	)

	for _, line := range strings.Split(text, "\n") {
		stripped := strings.TrimSpace(line)
		upper := strings.ToUpper(stripped)
		switch {
		case strings.HasPrefix(upper, "SUBJECT:"):
			subject = strings.TrimSpace(stripped[len("SUBJECT:"):])
			section = "subject"
		case strings.HasPrefix(upper, "BODY:"):
			if rest := strings.TrimSpace(stripped[len("BODY:"):]); rest != "" {
				body.WriteString(rest)
				body.WriteString("\n")
			}
			section = "body"
		case strings.HasPrefix(upper, "RECIPIENT_HINT:"):
			recipient = strings.TrimSpace(stripped[len("RECIPIENT_HINT:"):])
			section = "recipient"
		case section == "body":
			body.WriteString(line)
			body.WriteString("\n")
		}
	}

	if subject == "" || strings.TrimSpace(body.String()) == "" {
		return nil, false
	}
	if recipient == "" {
		recipient = recipientHint(platform)
	}

	return &Email{
		Subject:       subject,
		Body:          strings.TrimSpace(body.String()),
		RecipientHint: recipient,
		Regulation:    Regulation,
		Platform:      platform,
	}, true
}
