package upstream

import (
	"context"
	"strings"
	"sync"

	"go.uber.org/zap"

	"maildrop/backend/internal/cache"
)

const activeDomainKey = "active_domain"

// DomainLister 可列出上游域名
type DomainLister interface {
	Domains(ctx context.Context) ([]Domain, error)
}

// DomainResolver 决定生成邮箱使用的域名。
//
// 配置了固定域名时直接返回；否则调用 GET /domains 选取第一个激活的公共域名并缓存。
type DomainResolver struct {
	fixed  string
	lister DomainLister
	cache  *cache.LocalCache
	log    *zap.Logger
	mu     sync.Mutex
}

// NewDomainResolver 创建域名解析器
func NewDomainResolver(fixed string, lister DomainLister, c *cache.LocalCache, log *zap.Logger) *DomainResolver {
	if log == nil {
		log = zap.NewNop()
	}
	return &DomainResolver{
		fixed:  strings.ToLower(strings.TrimSpace(fixed)),
		lister: lister,
		cache:  c,
		log:    log,
	}
}

// Resolve 返回当前可用域名
func (r *DomainResolver) Resolve(ctx context.Context) (string, error) {
	if r.fixed != "" {
		return r.fixed, nil
	}

	if v, ok := r.cache.Get(activeDomainKey); ok {
		return v.(string), nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if v, ok := r.cache.Get(activeDomainKey); ok {
		return v.(string), nil
	}

	domains, err := r.lister.Domains(ctx)
	if err != nil {
		return "", err
	}

	for _, d := range domains {
		if d.IsActive && !d.IsPrivate && d.Domain != "" {
			name := strings.ToLower(d.Domain)
			r.cache.Set(activeDomainKey, name, 0)
			r.log.Info("discovered upstream domain", zap.String("domain", name))
			return name, nil
		}
	}

	return "", ErrNoDomain
}
