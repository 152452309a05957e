package mail

import (
	"context"
	"log"
	"sync"

	"github.com/google/uuid"

	"github.com/cadencehq/cadence/internal/usecase"
)

// MockMailer records sends in memory for local development and tests. Failure
// injection mimics provider behavior without a provider.
type MockMailer struct {
	mu   sync.Mutex
	sent []usecase.SendRequest
	fail map[string]usecase.SendResult
}

func NewMockMailer() *MockMailer {
	return &MockMailer{fail: map[string]usecase.SendResult{}}
}

// FailFor makes every send to the given address return the given result.
func (m *MockMailer) FailFor(to string, result usecase.SendResult) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fail[to] = result
}

func (m *MockMailer) Send(ctx context.Context, req usecase.SendRequest) usecase.SendResult {
	m.mu.Lock()
	defer m.mu.Unlock()

	if result, ok := m.fail[req.To]; ok {
		return result
	}

	m.sent = append(m.sent, req)
	log.Printf("[mail] mock send to %s: %q", req.To, req.Subject)
	return usecase.SendResult{
		Success:   true,
		MessageID: "mock-" + uuid.New().String(),
	}
}

func (m *MockMailer) Sent() []usecase.SendRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]usecase.SendRequest, len(m.sent))
	copy(out, m.sent)
	return out
}
