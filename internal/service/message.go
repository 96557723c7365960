package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"maildrop/backend/internal/storage"
)

var (
	ErrUnknownPrefix     = errors.New("unknown email prefix")
	ErrMessageIDRequired = errors.New("message id is required")
)

// MailReader 使用账户令牌读取上游收件箱
type MailReader interface {
	ListMessages(ctx context.Context, token string) ([]json.RawMessage, error)
	GetMessage(ctx context.Context, token, id string) (json.RawMessage, error)
}

// MessageService 将收件箱读取请求转发到上游。
type MessageService struct {
	registry storage.AccountRepository
	reader   MailReader
	log      *zap.Logger
}

// NewMessageService 创建消息服务
func NewMessageService(registry storage.AccountRepository, reader MailReader, log *zap.Logger) *MessageService {
	if log == nil {
		log = zap.NewNop()
	}
	return &MessageService{
		registry: registry,
		reader:   reader,
		log:      log.Named("messages"),
	}
}

// List 返回前缀对应收件箱的消息摘要，未知前缀返回 ErrUnknownPrefix。
func (s *MessageService) List(ctx context.Context, prefix string) ([]json.RawMessage, error) {
	token, err := s.token(ctx, prefix)
	if err != nil {
		return nil, err
	}

	messages, err := s.reader.ListMessages(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	return messages, nil
}

// Get 返回单封消息详情。先校验前缀，再校验消息 ID。
func (s *MessageService) Get(ctx context.Context, prefix, id string) (json.RawMessage, error) {
	token, err := s.token(ctx, prefix)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(id) == "" {
		return nil, ErrMessageIDRequired
	}

	message, err := s.reader.GetMessage(ctx, token, id)
	if err != nil {
		return nil, fmt.Errorf("get message %s: %w", id, err)
	}
	return message, nil
}

func (s *MessageService) token(ctx context.Context, prefix string) (string, error) {
	prefix = strings.ToLower(strings.TrimSpace(prefix))
	if prefix == "" {
		return "", ErrUnknownPrefix
	}

	account, err := s.registry.Get(ctx, prefix)
	if errors.Is(err, storage.ErrAccountNotFound) {
		return "", ErrUnknownPrefix
	}
	if err != nil {
		return "", fmt.Errorf("registry lookup: %w", err)
	}
	return account.Token, nil
}
