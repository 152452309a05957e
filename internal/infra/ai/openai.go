package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/cadencehq/cadence/internal/usecase"
)

const systemMessage = `You are an expert cold email copywriter. Write genuine, personal emails that land in Primary inbox.

CRITICAL: Respond in this EXACT JSON format (no markdown):
{"subject": "Your subject line here", "body": "Your email body here"}

SUBJECT LINE RULES:
1. Keep it 3-6 words
2. Use their name or company
3. Sound like a friend, not a marketer
4. NEVER use: "opportunity", "boost", "exciting", "limited", "free", "urgent"

EMAIL BODY RULES:
1. Write 3-4 SHORT sentences maximum
2. Separate paragraphs with double newlines
3. Start with "Hi [FirstName]," on its own line
4. Use plain, casual language like texting a work friend
5. Make one genuine observation about their work
6. Ask a simple question, do not pitch
7. End with "Best," and the sender's first name
8. AVOID spam words: "opportunity", "boost", "engagement", "innovative", "exciting", "leverage", "synergy", "unlock", "revolutionize", "transform"`

type OpenAIService struct {
	client *openai.Client
	model  string
}

func NewOpenAIService(apiKey, model string) *OpenAIService {
	cfg := openai.DefaultConfig(apiKey)
	return &OpenAIService{
		client: openai.NewClientWithConfig(cfg),
		model:  model,
	}
}

func (s *OpenAIService) GenerateEmail(ctx context.Context, req usecase.GenerateRequest) usecase.GenerateResult {
	log.Printf("[openai] generating personalized email for %s", req.Contact.Email)

	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	resp, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: s.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: buildSystemMessage(req.SystemPrompt)},
			{Role: openai.ChatMessageRoleUser, Content: buildUserMessage(req)},
		},
		Temperature: 0.8,
		MaxTokens:   600,
	})
	if err != nil {
		return usecase.GenerateResult{
			Error:     fmt.Sprintf("openai: %v", err),
			Retryable: isRetryable(err),
		}
	}

	if len(resp.Choices) == 0 {
		return usecase.GenerateResult{Error: "no content generated"}
	}
	raw := strings.TrimSpace(resp.Choices[0].Message.Content)
	if raw == "" {
		return usecase.GenerateResult{Error: "no content generated"}
	}

	subject, body := parseEmailJSON(raw)
	return usecase.GenerateResult{
		Success: true,
		Subject: subject,
		Content: body,
	}
}

func buildSystemMessage(userPrompt string) string {
	if userPrompt == "" {
		return systemMessage
	}
	return systemMessage + "\n\nUSER'S INSTRUCTIONS:\n" + userPrompt
}

func buildUserMessage(req usecase.GenerateRequest) string {
	var b strings.Builder
	b.WriteString("CONTACT INFORMATION:\n")
	b.WriteString(contactContext(req.Contact))
	b.WriteString("\n")

	if req.Research != "" {
		b.WriteString("\nRECENT COMPANY INTEL:\n")
		b.WriteString(req.Research)
		b.WriteString("\n")
	} else if req.Template != "" {
		b.WriteString("\nTEMPLATE FOR REFERENCE (use as inspiration):\n")
		b.WriteString(req.Template)
		b.WriteString("\n")
	}

	b.WriteString("\nWrite a personalized cold email with subject line. Respond ONLY with valid JSON in this format: {\"subject\": \"...\", \"body\": \"...\"}")
	return b.String()
}

func contactContext(c usecase.GenerateContact) string {
	var lines []string
	add := func(label, value string) {
		if value != "" {
			lines = append(lines, label+": "+value)
		}
	}
	add("First Name", c.FirstName)
	add("Last Name", c.LastName)
	add("Email", c.Email)
	add("Company", c.Company)
	add("Job Title", c.JobTitle)
	add("Headline", c.Headline)
	return strings.Join(lines, "\n")
}

// parseEmailJSON extracts {"subject","body"} from the model output, stripping
// markdown fences. Unparseable output is treated as a bare body.
func parseEmailJSON(raw string) (subject, body string) {
	jsonStr := raw
	if strings.HasPrefix(jsonStr, "```") {
		jsonStr = strings.TrimPrefix(jsonStr, "```json")
		jsonStr = strings.TrimPrefix(jsonStr, "```")
		jsonStr = strings.TrimSuffix(strings.TrimSpace(jsonStr), "```")
		jsonStr = strings.TrimSpace(jsonStr)
	}

	var parsed struct {
		Subject string `json:"subject"`
		Body    string `json:"body"`
	}
	if err := json.Unmarshal([]byte(jsonStr), &parsed); err != nil || parsed.Body == "" {
		log.Printf("[openai] response is not subject/body JSON, using raw content as body")
		return "", raw
	}
	return parsed.Subject, parsed.Body
}

// isRetryable marks rate limits, server errors, and timeouts as retryable.
// 4xx request errors are permanent.
func isRetryable(err error) bool {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode == 429 || apiErr.HTTPStatusCode >= 500
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	return false
}
