// Package mock provides a scriptable Verifier for tests.
package mock

import (
	"context"
	"errors"
	"sync"

	"github.com/secureface/secureface/internal/biometric"
)

// Verifier returns scripted results. Queue entries are consumed first; once
// drained, Result is returned for every call. Error fields inject failures.
type Verifier struct {
	mu sync.Mutex

	Result      *biometric.Result
	Queue       []*biometric.Result
	VerifyError error

	Code      string
	CodeError error

	VerifyCalls   int
	CodeCalls     int
	LastCapture   []byte
	LastReference []byte
}

func (m *Verifier) Name() string {
	return "mock"
}

func (m *Verifier) Verify(ctx context.Context, capture, reference []byte) (*biometric.Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.VerifyCalls++
	m.LastCapture = capture
	m.LastReference = reference

	if m.VerifyError != nil {
		return nil, m.VerifyError
	}
	if len(m.Queue) > 0 {
		res := m.Queue[0]
		m.Queue = m.Queue[1:]
		return res, nil
	}
	if m.Result != nil {
		return m.Result, nil
	}
	return nil, errors.New("mock verifier: no result scripted")
}

func (m *Verifier) GenerateCode(ctx context.Context, recipient string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.CodeCalls++
	if m.CodeError != nil {
		return "", m.CodeError
	}
	if m.Code == "" {
		return "", errors.New("mock verifier: no code scripted")
	}
	return m.Code, nil
}
