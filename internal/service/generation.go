package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"maildrop/backend/internal/config"
	"maildrop/backend/internal/domain"
	"maildrop/backend/internal/storage"
	"maildrop/backend/internal/upstream"
)

var (
	// ErrGenerationExhausted 所有候选前缀均创建失败
	ErrGenerationExhausted = errors.New("email generation exhausted")

	errPrefixTaken = errors.New("random prefix already registered")
)

const randomPasswordLength = 16

// 生成结果，用于指标
const (
	OutcomeCreated   = "created"
	OutcomeCached    = "cached"
	OutcomeInvalid   = "invalid"
	OutcomeExhausted = "exhausted"
)

// Strategy 候选前缀的来源
type Strategy string

const (
	StrategyCustom Strategy = "custom"
	StrategyRandom Strategy = "random"
)

// Candidate 是生成计划中的一步。随机候选的 Prefix 为空，执行时才抽取。
type Candidate struct {
	Strategy Strategy
	Prefix   string
}

// Plan 是按顺序尝试的候选列表
type Plan []Candidate

// BuildPlan 构造生成计划：有效自定义前缀先尝试一次，随后是 randomAttempts 次随机前缀。
func BuildPlan(customPrefix string, randomAttempts int) Plan {
	plan := make(Plan, 0, randomAttempts+1)
	if customPrefix != "" {
		plan = append(plan, Candidate{Strategy: StrategyCustom, Prefix: customPrefix})
	}
	for i := 0; i < randomAttempts; i++ {
		plan = append(plan, Candidate{Strategy: StrategyRandom})
	}
	return plan
}

// Attempt 记录一个候选的执行结果
type Attempt struct {
	Strategy Strategy
	Prefix   string
	Err      error
}

// Succeeded 判断尝试是否成功
func (a Attempt) Succeeded() bool {
	return a.Err == nil
}

// GenerationResult 生成流程的输出
type GenerationResult struct {
	Email    domain.GeneratedEmail
	Cached   bool
	Attempts []Attempt
}

// AccountProvider 在上游创建账户并换取令牌
type AccountProvider interface {
	Register(ctx context.Context, address, password string) (*upstream.RegisteredAccount, error)
	Login(ctx context.Context, address, password string) (string, error)
}

// DomainSource 提供生成邮箱使用的域名
type DomainSource interface {
	Resolve(ctx context.Context) (string, error)
}

// GenerationRecorder 接收生成流程的指标
type GenerationRecorder interface {
	RecordGenerationAttempt(strategy string, success bool)
	RecordGenerationResult(outcome string)
	UpdateRegistryAccounts(count int)
}

// GenerationService 负责解析前缀、完成上游握手并写入注册表。
type GenerationService struct {
	registry       storage.AccountRepository
	provider       AccountProvider
	domains        DomainSource
	recorder       GenerationRecorder
	log            *zap.Logger
	password       string
	randomPassword bool
	randomAttempts int
	randomLength   int
	randomPrefix   func(length int) (string, error)
	now            func() time.Time
}

// NewGenerationService 创建邮箱生成服务，recorder 可为 nil。
func NewGenerationService(
	registry storage.AccountRepository,
	provider AccountProvider,
	domains DomainSource,
	recorder GenerationRecorder,
	upstreamCfg config.UpstreamConfig,
	generationCfg config.GenerationConfig,
	log *zap.Logger,
) *GenerationService {
	if log == nil {
		log = zap.NewNop()
	}
	attempts := generationCfg.RandomAttempts
	if attempts <= 0 {
		attempts = 3
	}
	return &GenerationService{
		registry:       registry,
		provider:       provider,
		domains:        domains,
		recorder:       recorder,
		log:            log.Named("generation"),
		password:       upstreamCfg.Password,
		randomPassword: upstreamCfg.RandomPassword,
		randomAttempts: attempts,
		randomLength:   generationCfg.RandomLength,
		randomPrefix:   domain.RandomPrefix,
		now:            time.Now,
	}
}

// Generate 生成临时邮箱。
//
// prefix 为空时使用随机前缀；非法前缀返回 domain.ErrPrefixInvalid 且不调用上游。
// 已注册的自定义前缀直接返回缓存结果。全部候选失败时返回 ErrGenerationExhausted，注册表保持不变。
func (s *GenerationService) Generate(ctx context.Context, prefix string) (*GenerationResult, error) {
	custom := ""
	if prefix != "" {
		normalized, err := domain.NormalizePrefix(prefix)
		if err != nil {
			s.recordResult(OutcomeInvalid)
			return nil, err
		}
		custom = normalized

		if account, err := s.registry.Get(ctx, custom); err == nil {
			s.recordResult(OutcomeCached)
			return &GenerationResult{
				Email:  domain.GeneratedEmail{Prefix: account.Prefix, Domain: account.Domain()},
				Cached: true,
			}, nil
		} else if !errors.Is(err, storage.ErrAccountNotFound) {
			s.log.Warn("registry lookup failed", zap.String("prefix", custom), zap.Error(err))
		}
	}

	plan := BuildPlan(custom, s.randomAttempts)
	result := &GenerationResult{Attempts: make([]Attempt, 0, len(plan))}
	errs := make([]error, 0, len(plan))

	for _, candidate := range plan {
		attempt, email := s.try(ctx, candidate)
		result.Attempts = append(result.Attempts, attempt)
		if s.recorder != nil {
			s.recorder.RecordGenerationAttempt(string(attempt.Strategy), attempt.Succeeded())
		}

		if attempt.Succeeded() {
			result.Email = *email
			s.recordResult(OutcomeCreated)
			s.updateRegistrySize(ctx)
			s.log.Info("email generated",
				zap.String("prefix", email.Prefix),
				zap.String("domain", email.Domain),
				zap.String("strategy", string(attempt.Strategy)),
				zap.Int("attempts", len(result.Attempts)),
			)
			return result, nil
		}

		s.log.Warn("generation attempt failed",
			zap.String("strategy", string(attempt.Strategy)),
			zap.String("prefix", attempt.Prefix),
			zap.Error(attempt.Err),
		)
		errs = append(errs, attempt.Err)

		if ctx.Err() != nil {
			break
		}
	}

	s.recordResult(OutcomeExhausted)
	return result, fmt.Errorf("%w: %w", ErrGenerationExhausted, errors.Join(errs...))
}

// try 执行一个候选
func (s *GenerationService) try(ctx context.Context, candidate Candidate) (Attempt, *domain.GeneratedEmail) {
	attempt := Attempt{Strategy: candidate.Strategy, Prefix: candidate.Prefix}

	if candidate.Strategy == StrategyRandom {
		prefix, err := s.randomPrefix(s.randomLength)
		if err != nil {
			attempt.Err = fmt.Errorf("random prefix: %w", err)
			return attempt, nil
		}
		attempt.Prefix = prefix

		taken, err := s.registry.Has(ctx, prefix)
		if err != nil {
			attempt.Err = fmt.Errorf("registry lookup: %w", err)
			return attempt, nil
		}
		if taken {
			attempt.Err = errPrefixTaken
			return attempt, nil
		}
	}

	email, err := s.createAccount(ctx, attempt.Prefix)
	if err != nil {
		attempt.Err = err
		return attempt, nil
	}
	return attempt, email
}

// createAccount 完成注册与登录，并以上游确认的地址写入注册表。
func (s *GenerationService) createAccount(ctx context.Context, prefix string) (*domain.GeneratedEmail, error) {
	mailDomain, err := s.domains.Resolve(ctx)
	if err != nil {
		return nil, fmt.Errorf("resolve domain: %w", err)
	}

	password := s.password
	if s.randomPassword {
		if password, err = domain.RandomPassword(randomPasswordLength); err != nil {
			return nil, fmt.Errorf("random password: %w", err)
		}
	}

	registered, err := s.provider.Register(ctx, domain.JoinAddress(prefix, mailDomain), password)
	if err != nil {
		return nil, err
	}

	actualPrefix, actualDomain, err := domain.SplitAddress(registered.Address)
	if err != nil {
		return nil, fmt.Errorf("%w: confirmed address %q: %v", upstream.ErrRegistration, registered.Address, err)
	}
	address := domain.JoinAddress(actualPrefix, actualDomain)

	token, err := s.provider.Login(ctx, address, password)
	if err != nil {
		return nil, err
	}

	account := &domain.Account{
		Prefix:    actualPrefix,
		AccountID: registered.ID,
		Token:     token,
		Address:   address,
		CreatedAt: s.now().UTC(),
	}
	if err := s.registry.Set(ctx, account); err != nil {
		return nil, fmt.Errorf("save account: %w", err)
	}

	return &domain.GeneratedEmail{Prefix: actualPrefix, Domain: actualDomain}, nil
}

func (s *GenerationService) recordResult(outcome string) {
	if s.recorder != nil {
		s.recorder.RecordGenerationResult(outcome)
	}
}

func (s *GenerationService) updateRegistrySize(ctx context.Context) {
	if s.recorder == nil {
		return
	}
	count, err := s.registry.Count(ctx)
	if err != nil {
		s.log.Debug("registry count failed", zap.Error(err))
		return
	}
	s.recorder.UpdateRegistryAccounts(count)
}

// ActiveDomain 返回当前用于生成邮箱的域名
func (s *GenerationService) ActiveDomain(ctx context.Context) (string, error) {
	d, err := s.domains.Resolve(ctx)
	if err != nil {
		return "", err
	}
	return strings.ToLower(d), nil
}
