package service

import (
	"context"
	"net/netip"
	"strings"
	"time"

	"github.com/imaginearsclub/backstage/internal/cache"
	"github.com/imaginearsclub/backstage/internal/config"
	"github.com/imaginearsclub/backstage/internal/reference"
	"github.com/imaginearsclub/backstage/internal/sessionpolicy/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const policyCacheTTL = 30 * time.Second

type Params struct {
	fx.In

	DB        *gorm.DB
	Log       *zap.Logger
	Repo      domain.Repository
	Security  *config.SecurityHolder
	Reference reference.Service `optional:"true"`
}

type Service struct {
	db        *gorm.DB
	log       *zap.Logger
	repo      domain.Repository
	security  *config.SecurityHolder
	reference reference.Service
	cached    cache.Cache[int, *domain.SessionPolicy]
}

func New(p Params) domain.Service {
	return &Service{
		db:        p.DB,
		log:       p.Log.Named("sessionpolicy.service"),
		repo:      p.Repo,
		security:  p.Security,
		reference: p.Reference,
		cached:    cache.NewBoundedTTLCache[int, *domain.SessionPolicy](1),
	}
}

func (s *Service) defaults() *domain.SessionPolicy {
	limits := s.security.Get().Session
	return &domain.SessionPolicy{
		ID:                 domain.PolicyID,
		Enabled:            false,
		MaxSessionMinutes:  limits.MaxDurationMinutes,
		IdleTimeoutMinutes: limits.IdleTimeoutMinutes,
		AllowCIDRs:         datatypes.JSONSlice[string]{},
		AllowCountries:     datatypes.JSONSlice[string]{},
		BlockCountries:     datatypes.JSONSlice[string]{},
	}
}

func (s *Service) Get(ctx context.Context) (*domain.SessionPolicy, error) {
	policy, err := s.repo.Find(ctx, s.db)
	if err != nil {
		return nil, err
	}
	if policy == nil {
		return s.defaults(), nil
	}
	return policy, nil
}

// current is the cached read used on the hot request path.
func (s *Service) current(ctx context.Context) *domain.SessionPolicy {
	if policy, ok := s.cached.Get(domain.PolicyID); ok {
		return policy
	}
	policy, err := s.Get(ctx)
	if err != nil {
		s.log.Warn("failed to load session policy, using defaults", zap.Error(err))
		return s.defaults()
	}
	s.cached.Set(domain.PolicyID, policy, policyCacheTTL)
	return policy
}

func (s *Service) Update(ctx context.Context, req domain.UpdatePolicyRequest) (*domain.SessionPolicy, error) {
	policy, err := s.Get(ctx)
	if err != nil {
		return nil, err
	}

	if req.Enabled != nil {
		policy.Enabled = *req.Enabled
	}
	if req.MaxSessionMinutes != nil {
		policy.MaxSessionMinutes = *req.MaxSessionMinutes
	}
	if req.IdleTimeoutMinutes != nil {
		policy.IdleTimeoutMinutes = *req.IdleTimeoutMinutes
	}
	if policy.MaxSessionMinutes <= 0 || policy.IdleTimeoutMinutes < 0 ||
		(policy.IdleTimeoutMinutes > 0 && policy.IdleTimeoutMinutes > policy.MaxSessionMinutes) {
		return nil, domain.ErrInvalidLimits
	}

	if req.AllowCIDRs != nil {
		cidrs, err := normalizeCIDRs(req.AllowCIDRs)
		if err != nil {
			return nil, err
		}
		policy.AllowCIDRs = cidrs
	}
	if req.AllowCountries != nil {
		countries, err := s.normalizeCountries(ctx, req.AllowCountries)
		if err != nil {
			return nil, err
		}
		policy.AllowCountries = countries
	}
	if req.BlockCountries != nil {
		countries, err := s.normalizeCountries(ctx, req.BlockCountries)
		if err != nil {
			return nil, err
		}
		policy.BlockCountries = countries
	}

	policy.UpdatedAt = time.Now().UTC()
	if err := s.repo.Upsert(ctx, s.db, policy); err != nil {
		return nil, err
	}
	s.cached.Set(domain.PolicyID, policy, policyCacheTTL)
	return policy, nil
}

func normalizeCIDRs(raw []string) (datatypes.JSONSlice[string], error) {
	cidrs := make(datatypes.JSONSlice[string], 0, len(raw))
	for _, entry := range raw {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		prefix, err := netip.ParsePrefix(entry)
		if err != nil {
			// A bare address is accepted as a single-host prefix.
			addr, addrErr := netip.ParseAddr(entry)
			if addrErr != nil {
				return nil, domain.ErrInvalidCIDR
			}
			prefix = netip.PrefixFrom(addr, addr.BitLen())
		}
		cidrs = append(cidrs, prefix.Masked().String())
	}
	return cidrs, nil
}

func (s *Service) normalizeCountries(ctx context.Context, raw []string) (datatypes.JSONSlice[string], error) {
	countries := make(datatypes.JSONSlice[string], 0, len(raw))
	for _, entry := range raw {
		code := strings.ToUpper(strings.TrimSpace(entry))
		if code == "" {
			continue
		}
		if s.reference != nil {
			valid, err := s.reference.IsValidCountry(ctx, code)
			if err != nil {
				return nil, err
			}
			if !valid {
				return nil, domain.ErrInvalidCountry
			}
		} else if len(code) != 2 {
			return nil, domain.ErrInvalidCountry
		}
		countries = append(countries, code)
	}
	return countries, nil
}

func (s *Service) Evaluate(ctx context.Context, ip, country string) error {
	policy := s.current(ctx)
	if !policy.Enabled {
		return nil
	}

	if len(policy.AllowCIDRs) > 0 {
		addr, err := netip.ParseAddr(strings.TrimSpace(ip))
		if err != nil {
			return domain.ErrIPBlocked
		}
		allowed := false
		for _, entry := range policy.AllowCIDRs {
			prefix, err := netip.ParsePrefix(entry)
			if err != nil {
				continue
			}
			if prefix.Contains(addr) {
				allowed = true
				break
			}
		}
		if !allowed {
			return domain.ErrIPBlocked
		}
	}

	country = strings.ToUpper(strings.TrimSpace(country))
	for _, blocked := range policy.BlockCountries {
		if country == blocked {
			return domain.ErrCountryBlocked
		}
	}
	if len(policy.AllowCountries) > 0 {
		// Requests with no country signal pass the allow list; the proxy
		// header is absent in local and direct deployments.
		if country == "" {
			return nil
		}
		for _, allowed := range policy.AllowCountries {
			if country == allowed {
				return nil
			}
		}
		return domain.ErrCountryBlocked
	}
	return nil
}

func (s *Service) Limits(ctx context.Context) (time.Duration, time.Duration) {
	policy := s.current(ctx)
	return time.Duration(policy.MaxSessionMinutes) * time.Minute,
		time.Duration(policy.IdleTimeoutMinutes) * time.Minute
}
