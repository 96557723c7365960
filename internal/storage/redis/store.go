package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"maildrop/backend/internal/domain"
	"maildrop/backend/internal/storage"
)

const keyPrefix = "maildrop:account:"

// Store 基于 Redis 的账户注册表实现，与内存实现共享同一接口。
type Store struct {
	rdb *goredis.Client
	ttl time.Duration // 0 表示永不过期
	log *zap.Logger
}

var _ storage.AccountRepository = (*Store)(nil)

// record 是写入 Redis 的序列化结构，包含令牌
type record struct {
	Prefix    string    `json:"prefix"`
	AccountID string    `json:"accountId"`
	Token     string    `json:"token"`
	Address   string    `json:"address"`
	CreatedAt time.Time `json:"createdAt"`
}

// NewStore 创建 Redis 注册表
func NewStore(rdb *goredis.Client, ttl time.Duration, log *zap.Logger) *Store {
	if log == nil {
		log = zap.NewNop()
	}
	return &Store{rdb: rdb, ttl: ttl, log: log}
}

func accountKey(prefix string) string {
	return keyPrefix + prefix
}

// Get 根据前缀获取账户
func (s *Store) Get(ctx context.Context, prefix string) (*domain.Account, error) {
	data, err := s.rdb.Get(ctx, accountKey(prefix)).Bytes()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, storage.ErrAccountNotFound
		}
		return nil, fmt.Errorf("redis get %s: %w", prefix, err)
	}
	return decodeAccount(data)
}

// Set 写入或覆盖账户
func (s *Store) Set(ctx context.Context, account *domain.Account) error {
	data, err := encodeAccount(account)
	if err != nil {
		return err
	}
	if err := s.rdb.Set(ctx, accountKey(account.Prefix), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", account.Prefix, err)
	}
	return nil
}

// Has 判断前缀是否已注册
func (s *Store) Has(ctx context.Context, prefix string) (bool, error) {
	n, err := s.rdb.Exists(ctx, accountKey(prefix)).Result()
	if err != nil {
		return false, fmt.Errorf("redis exists %s: %w", prefix, err)
	}
	return n > 0, nil
}

// Count 使用 SCAN 统计账户数量
func (s *Store) Count(ctx context.Context) (int, error) {
	return countKeys(func(cursor uint64) ([]string, uint64, error) {
		return s.rdb.Scan(ctx, cursor, keyPrefix+"*", scanBatch).Result()
	})
}

const scanBatch = 500

// countKeys 逐页累计 SCAN 结果，游标回到 0 时结束
func countKeys(scan func(cursor uint64) ([]string, uint64, error)) (int, error) {
	var (
		cursor uint64
		total  int
	)
	for {
		keys, next, err := scan(cursor)
		if err != nil {
			return 0, fmt.Errorf("redis scan: %w", err)
		}
		total += len(keys)
		cursor = next
		if cursor == 0 {
			return total, nil
		}
	}
}

// Close 关闭 Redis 连接
func (s *Store) Close() error {
	if err := s.rdb.Close(); err != nil {
		s.log.Error("failed to close Redis connection", zap.Error(err))
		return err
	}
	s.log.Info("Redis connection closed")
	return nil
}

// Health 检查 Redis 连接
func (s *Store) Health() error {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	return s.rdb.Ping(ctx).Err()
}

func encodeAccount(account *domain.Account) ([]byte, error) {
	return json.Marshal(record{
		Prefix:    account.Prefix,
		AccountID: account.AccountID,
		Token:     account.Token,
		Address:   account.Address,
		CreatedAt: account.CreatedAt,
	})
}

func decodeAccount(data []byte) (*domain.Account, error) {
	var r record
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("decode account: %w", err)
	}
	return &domain.Account{
		Prefix:    r.Prefix,
		AccountID: r.AccountID,
		Token:     r.Token,
		Address:   r.Address,
		CreatedAt: r.CreatedAt,
	}, nil
}
