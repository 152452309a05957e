package research

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/cadencehq/cadence/internal/usecase"
)

const researchSystemMessage = "You are a business research assistant. Provide brief, factual summaries about companies. Focus on recent news, funding, product launches, and notable achievements. Keep responses under 150 words."

type PerplexityService struct {
	baseURL string
	apiKey  string
	model   string
	http    *http.Client

	// minDelay paces requests at 1 per second; backoffUnit scales the retry
	// backoff. Both are shortened in tests.
	minDelay    time.Duration
	backoffUnit time.Duration

	mu       sync.Mutex
	lastCall time.Time
}

func NewPerplexityService(apiKey, model string) *PerplexityService {
	if model == "" {
		model = "sonar"
	}
	return &PerplexityService{
		baseURL:     "https://api.perplexity.ai/chat/completions",
		apiKey:      apiKey,
		model:       model,
		http:        &http.Client{Timeout: 30 * time.Second},
		minDelay:    time.Second,
		backoffUnit: time.Second,
	}
}

func (s *PerplexityService) IsConfigured() bool {
	return s.apiKey != ""
}

func (s *PerplexityService) ResearchCompany(ctx context.Context, req usecase.ResearchRequest) usecase.ResearchResult {
	if !s.IsConfigured() {
		return usecase.ResearchResult{Source: "perplexity", Error: "perplexity API key not configured"}
	}

	query := buildQuery(req)
	const maxRetries = 3

	var lastErr string
	for attempt := 1; attempt <= maxRetries; attempt++ {
		if err := s.rateLimitWait(ctx); err != nil {
			return usecase.ResearchResult{Source: "perplexity", Error: err.Error()}
		}

		log.Printf("[perplexity] researching %s (attempt %d)", req.Company, attempt)

		summary, status, err := s.call(ctx, query)
		if err == nil {
			return usecase.ResearchResult{Success: true, Summary: summary, Source: "perplexity"}
		}
		lastErr = err.Error()

		if status == http.StatusTooManyRequests {
			wait := time.Duration(1<<attempt) * s.backoffUnit
			log.Printf("[perplexity] rate limited, waiting %s", wait)
			if !sleep(ctx, wait) {
				return usecase.ResearchResult{Source: "perplexity", Error: ctx.Err().Error()}
			}
			continue
		}
		if attempt < maxRetries {
			if !sleep(ctx, time.Duration(1<<attempt)*s.backoffUnit/2) {
				return usecase.ResearchResult{Source: "perplexity", Error: ctx.Err().Error()}
			}
		}
	}

	return usecase.ResearchResult{Source: "perplexity", Error: lastErr}
}

func (s *PerplexityService) call(ctx context.Context, query string) (string, int, error) {
	payload := map[string]any{
		"model": s.model,
		"messages": []map[string]string{
			{"role": "system", "content": researchSystemMessage},
			{"role": "user", "content": query},
		},
		"max_tokens":  300,
		"temperature": 0.2,
	}
	jsonBody, err := json.Marshal(payload)
	if err != nil {
		return "", 0, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL, bytes.NewBuffer(jsonBody))
	if err != nil {
		return "", 0, err
	}
	httpReq.Header.Set("Authorization", "Bearer "+s.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := s.http.Do(httpReq)
	if err != nil {
		return "", 0, fmt.Errorf("perplexity request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return "", resp.StatusCode, fmt.Errorf("rate limited")
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(resp.Body)
		return "", resp.StatusCode, fmt.Errorf("API error %d: %s", resp.StatusCode, string(body))
	}

	var response struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return "", resp.StatusCode, fmt.Errorf("decode response: %w", err)
	}

	if len(response.Choices) == 0 {
		return "", resp.StatusCode, fmt.Errorf("no content in response")
	}
	content := strings.TrimSpace(response.Choices[0].Message.Content)
	if content == "" {
		return "", resp.StatusCode, fmt.Errorf("no content in response")
	}

	log.Printf("[perplexity] found intel")
	return content, resp.StatusCode, nil
}

func (s *PerplexityService) rateLimitWait(ctx context.Context) error {
	s.mu.Lock()
	elapsed := time.Since(s.lastCall)
	var wait time.Duration
	if elapsed < s.minDelay {
		wait = s.minDelay - elapsed
	}
	s.lastCall = time.Now().Add(wait)
	s.mu.Unlock()

	if wait > 0 && !sleep(ctx, wait) {
		return ctx.Err()
	}
	return nil
}

func buildQuery(req usecase.ResearchRequest) string {
	query := fmt.Sprintf("What is the latest news about %s?", req.Company)
	if req.JobTitle != "" {
		query += fmt.Sprintf(" The company has a %s.", req.JobTitle)
	}
	query += " Include any recent funding, product launches, partnerships, or notable achievements. Be specific and factual."
	return query
}

func sleep(ctx context.Context, d time.Duration) bool {
	select {
	case <-ctx.Done():
		return false
	case <-time.After(d):
		return true
	}
}
