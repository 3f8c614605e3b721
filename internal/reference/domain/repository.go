package domain

import "context"

type Repository interface {
	ListCountries(ctx context.Context) ([]Country, error)
}
