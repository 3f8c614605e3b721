package reference

import (
	"context"
	"strings"
	"time"

	"github.com/imaginearsclub/backstage/internal/cache"
	"github.com/imaginearsclub/backstage/internal/reference/domain"
)

const countryCacheTTL = 15 * time.Minute

type Service interface {
	ListCountries(ctx context.Context) ([]domain.Country, error)
	// IsValidCountry reports whether code is a known ISO 3166-1 alpha-2
	// country code. Unknown and empty codes return false.
	IsValidCountry(ctx context.Context, code string) (bool, error)
}

type service struct {
	repo      domain.Repository
	countries cache.Cache[string, map[string]domain.Country]
}

func NewService(repo domain.Repository) Service {
	return &service{
		repo:      repo,
		countries: cache.NewBoundedTTLCache[string, map[string]domain.Country](1),
	}
}

func (s *service) countrySet(ctx context.Context) (map[string]domain.Country, error) {
	if set, ok := s.countries.Get("all"); ok {
		return set, nil
	}
	countries, err := s.repo.ListCountries(ctx)
	if err != nil {
		return nil, err
	}
	set := make(map[string]domain.Country, len(countries))
	for _, country := range countries {
		set[strings.ToUpper(country.Code)] = country
	}
	s.countries.Set("all", set, countryCacheTTL)
	return set, nil
}

func (s *service) ListCountries(ctx context.Context) ([]domain.Country, error) {
	return s.repo.ListCountries(ctx)
}

func (s *service) IsValidCountry(ctx context.Context, code string) (bool, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if len(code) != 2 {
		return false, nil
	}
	set, err := s.countrySet(ctx)
	if err != nil {
		return false, err
	}
	_, ok := set[code]
	return ok, nil
}
