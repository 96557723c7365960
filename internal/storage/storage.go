package storage

import (
	"context"
	"errors"

	"maildrop/backend/internal/domain"
)

// ErrAccountNotFound 注册表中不存在该前缀
var ErrAccountNotFound = errors.New("account not found")

// AccountRepository 定义前缀 -> 上游账户凭据的注册表操作。
//
// Set 对同一前缀执行覆盖写，并发写入以最后一次为准。
type AccountRepository interface {
	Get(ctx context.Context, prefix string) (*domain.Account, error)
	Set(ctx context.Context, account *domain.Account) error
	Has(ctx context.Context, prefix string) (bool, error)
	Count(ctx context.Context) (int, error)

	Close() error
	Health() error
}
