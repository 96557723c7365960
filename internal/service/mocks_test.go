package service

import (
	"context"
	"encoding/json"

	"github.com/stretchr/testify/mock"

	"maildrop/backend/internal/upstream"
)

// MockProvider 模拟上游账户接口
type MockProvider struct {
	mock.Mock
}

func (m *MockProvider) Register(ctx context.Context, address, password string) (*upstream.RegisteredAccount, error) {
	args := m.Called(ctx, address, password)
	switch v := args.Get(0).(type) {
	case func(address string) *upstream.RegisteredAccount:
		return v(address), args.Error(1)
	case *upstream.RegisteredAccount:
		return v, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockProvider) Login(ctx context.Context, address, password string) (string, error) {
	args := m.Called(ctx, address, password)
	return args.String(0), args.Error(1)
}

// MockReader 模拟上游收件箱接口
type MockReader struct {
	mock.Mock
}

func (m *MockReader) ListMessages(ctx context.Context, token string) ([]json.RawMessage, error) {
	args := m.Called(ctx, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]json.RawMessage), args.Error(1)
}

func (m *MockReader) GetMessage(ctx context.Context, token, id string) (json.RawMessage, error) {
	args := m.Called(ctx, token, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(json.RawMessage), args.Error(1)
}

type fixedDomain string

func (d fixedDomain) Resolve(context.Context) (string, error) {
	return string(d), nil
}

type recorderStub struct {
	attempts map[string]int
	results  map[string]int
	size     int
}

func newRecorderStub() *recorderStub {
	return &recorderStub{attempts: map[string]int{}, results: map[string]int{}}
}

func (r *recorderStub) RecordGenerationAttempt(strategy string, success bool) {
	key := strategy + ":failure"
	if success {
		key = strategy + ":success"
	}
	r.attempts[key]++
}

func (r *recorderStub) RecordGenerationResult(outcome string) {
	r.results[outcome]++
}

func (r *recorderStub) UpdateRegistryAccounts(count int) {
	r.size = count
}
