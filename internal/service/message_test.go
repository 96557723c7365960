package service

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"maildrop/backend/internal/domain"
	"maildrop/backend/internal/storage/memory"
	"maildrop/backend/internal/upstream"
)

func newMessageService(t *testing.T, reader MailReader) *MessageService {
	t.Helper()
	store := memory.NewStore(0)
	require.NoError(t, store.Set(context.Background(), &domain.Account{
		Prefix:    "inbox",
		AccountID: "acc-1",
		Token:     "tok-inbox",
		Address:   "inbox@punkproof.com",
	}))
	return NewMessageService(store, reader, nil)
}

func TestMessageService_List(t *testing.T) {
	ctx := context.Background()

	t.Run("使用注册表中的令牌读取收件箱", func(t *testing.T) {
		reader := &MockReader{}
		messages := []json.RawMessage{json.RawMessage(`{"id":"m1"}`)}
		reader.On("ListMessages", mock.Anything, "tok-inbox").Return(messages, nil)
		svc := newMessageService(t, reader)

		got, err := svc.List(ctx, "Inbox")

		require.NoError(t, err)
		assert.Equal(t, messages, got)
		reader.AssertExpectations(t)
	})

	t.Run("未知前缀不调用上游", func(t *testing.T) {
		reader := &MockReader{}
		svc := newMessageService(t, reader)

		for _, prefix := range []string{"unknown", "", "   "} {
			_, err := svc.List(ctx, prefix)
			assert.ErrorIs(t, err, ErrUnknownPrefix)
		}
		reader.AssertNotCalled(t, "ListMessages", mock.Anything, mock.Anything)
	})

	t.Run("上游错误被包装", func(t *testing.T) {
		reader := &MockReader{}
		reader.On("ListMessages", mock.Anything, "tok-inbox").Return(nil, upstream.ErrUpstream)
		svc := newMessageService(t, reader)

		_, err := svc.List(ctx, "inbox")

		assert.ErrorIs(t, err, upstream.ErrUpstream)
	})
}

func TestMessageService_Get(t *testing.T) {
	ctx := context.Background()

	t.Run("返回消息详情", func(t *testing.T) {
		reader := &MockReader{}
		detail := json.RawMessage(`{"id":"m1","subject":"hi"}`)
		reader.On("GetMessage", mock.Anything, "tok-inbox", "m1").Return(detail, nil)
		svc := newMessageService(t, reader)

		got, err := svc.Get(ctx, "inbox", "m1")

		require.NoError(t, err)
		assert.JSONEq(t, string(detail), string(got))
	})

	t.Run("先校验前缀再校验消息 ID", func(t *testing.T) {
		reader := &MockReader{}
		svc := newMessageService(t, reader)

		_, err := svc.Get(ctx, "unknown", "")
		assert.ErrorIs(t, err, ErrUnknownPrefix)

		_, err = svc.Get(ctx, "inbox", "")
		assert.ErrorIs(t, err, ErrMessageIDRequired)

		reader.AssertNotCalled(t, "GetMessage", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("上游错误被包装", func(t *testing.T) {
		reader := &MockReader{}
		reader.On("GetMessage", mock.Anything, "tok-inbox", "gone").Return(nil, upstream.ErrUpstream)
		svc := newMessageService(t, reader)

		_, err := svc.Get(ctx, "inbox", "gone")

		assert.ErrorIs(t, err, upstream.ErrUpstream)
	})
}
