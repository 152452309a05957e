package ai

import (
	"context"
	"fmt"
	"log"

	"github.com/cadencehq/cadence/internal/usecase"
)

// MockAIService returns deterministic content for local development.
type MockAIService struct{}

func NewMockAIService() *MockAIService {
	return &MockAIService{}
}

func (s *MockAIService) GenerateEmail(ctx context.Context, req usecase.GenerateRequest) usecase.GenerateResult {
	name := req.Contact.FirstName
	if name == "" {
		name = "there"
	}
	company := req.Contact.Company
	if company == "" {
		company = "your company"
	}

	log.Printf("[ai] mock generation for %s", req.Contact.Email)
	return usecase.GenerateResult{
		Success: true,
		Subject: fmt.Sprintf("Quick question, %s", name),
		Content: fmt.Sprintf("Hi %s,\n\nCame across %s and was curious how you approach outreach today. Anything you wish worked better?\n\nBest,\n\nAlex", name, company),
	}
}
