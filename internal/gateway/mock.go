package gateway

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Mock is an in-memory Gateway for tests and local development. Every
// initialized reference verifies as success unless marked otherwise.
type Mock struct {
	mu sync.Mutex

	// InitErr, VerifyErr and PayoutErr force the next call of each kind
	// to fail.
	InitErr   error
	VerifyErr error
	PayoutErr error

	// FailRefs verify as failed instead of success.
	FailRefs map[string]string

	initialized map[string]InitializeParams
	payouts     map[string]int64
	seq         int
}

// NewMock creates an empty Mock gateway.
func NewMock() *Mock {
	return &Mock{
		FailRefs:    map[string]string{},
		initialized: map[string]InitializeParams{},
		payouts:     map[string]int64{},
	}
}

func (m *Mock) Initialize(ctx context.Context, params InitializeParams) (*InitializeResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.InitErr != nil {
		err := m.InitErr
		m.InitErr = nil
		return nil, err
	}

	m.seq++
	ref := params.Reference
	if ref == "" {
		ref = fmt.Sprintf("MOCK-%s-%05d", time.Now().Format("20060102150405"), m.seq)
	}
	m.initialized[ref] = params

	return &InitializeResult{
		AuthorizationURL: "https://checkout.example.test/" + ref,
		AccessCode:       "AC_" + ref,
		Reference:        ref,
	}, nil
}

func (m *Mock) Verify(ctx context.Context, reference string) (*VerifyResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.VerifyErr != nil {
		err := m.VerifyErr
		m.VerifyErr = nil
		return nil, err
	}

	params, ok := m.initialized[reference]
	if !ok {
		return nil, &RejectedError{Message: "transaction reference not found"}
	}

	if msg, failed := m.FailRefs[reference]; failed {
		return &VerifyResult{
			Status:          "failed",
			GatewayResponse: msg,
			AmountMinor:     params.AmountMinor,
			Currency:        params.Currency,
		}, nil
	}

	now := time.Now().UTC()
	return &VerifyResult{
		Status:          "success",
		GatewayResponse: "Approved",
		Channel:         "card",
		AmountMinor:     params.AmountMinor,
		Currency:        params.Currency,
		PaidAt:          &now,
	}, nil
}

func (m *Mock) SendPayout(ctx context.Context, destination string, amountMinor int64, currency string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.PayoutErr != nil {
		err := m.PayoutErr
		m.PayoutErr = nil
		return "", err
	}

	m.seq++
	ref := fmt.Sprintf("TRF-%05d", m.seq)
	m.payouts[ref] = amountMinor
	return ref, nil
}

// PayoutCount reports how many transfers were sent through this mock.
func (m *Mock) PayoutCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.payouts)
}

// Initialized reports whether a reference was created through this mock.
func (m *Mock) Initialized(reference string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.initialized[reference]
	return ok
}
