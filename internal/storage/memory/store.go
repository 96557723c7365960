package memory

import (
	"context"
	"errors"
	"sync"
	"time"

	"maildrop/backend/internal/domain"
	"maildrop/backend/internal/storage"
)

// Store 使用进程内 map 保存账户注册表，进程重启后数据丢失。
type Store struct {
	mu       sync.RWMutex
	accounts map[string]*entry // prefix -> entry
	ttl      time.Duration     // 0 表示永不过期
	now      func() time.Time
}

type entry struct {
	account   domain.Account
	expiresAt time.Time
}

var _ storage.AccountRepository = (*Store)(nil)

// NewStore 创建内存注册表，ttl 为 0 时条目永不过期。
func NewStore(ttl time.Duration) *Store {
	return &Store{
		accounts: make(map[string]*entry),
		ttl:      ttl,
		now:      time.Now,
	}
}

// Get 根据前缀获取账户，返回副本。
func (s *Store) Get(_ context.Context, prefix string) (*domain.Account, error) {
	s.mu.RLock()
	e, ok := s.accounts[prefix]
	s.mu.RUnlock()
	if !ok {
		return nil, storage.ErrAccountNotFound
	}
	if s.expired(e) {
		s.mu.Lock()
		// 重新检查，避免删除并发写入的新条目
		if cur, ok := s.accounts[prefix]; ok && s.expired(cur) {
			delete(s.accounts, prefix)
		}
		s.mu.Unlock()
		return nil, storage.ErrAccountNotFound
	}
	account := e.account
	return &account, nil
}

// Set 写入或覆盖账户。
func (s *Store) Set(_ context.Context, account *domain.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.pruneExpiredLocked()

	e := &entry{account: *account}
	if s.ttl > 0 {
		e.expiresAt = s.now().Add(s.ttl)
	}
	s.accounts[account.Prefix] = e
	return nil
}

// Has 判断前缀是否已注册。
func (s *Store) Has(ctx context.Context, prefix string) (bool, error) {
	_, err := s.Get(ctx, prefix)
	if errors.Is(err, storage.ErrAccountNotFound) {
		return false, nil
	}
	return err == nil, err
}

// Count 返回未过期的账户数量。
func (s *Store) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, e := range s.accounts {
		if !s.expired(e) {
			count++
		}
	}
	return count, nil
}

// Close 内存存储无需释放资源。
func (s *Store) Close() error { return nil }

// Health 内存存储始终可用。
func (s *Store) Health() error { return nil }

func (s *Store) expired(e *entry) bool {
	return !e.expiresAt.IsZero() && s.now().After(e.expiresAt)
}

// pruneExpiredLocked 清理过期条目，调用方需持有写锁。
func (s *Store) pruneExpiredLocked() {
	if s.ttl <= 0 {
		return
	}
	for prefix, e := range s.accounts {
		if s.expired(e) {
			delete(s.accounts, prefix)
		}
	}
}
