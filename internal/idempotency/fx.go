package idempotency

import (
	redis "github.com/redis/go-redis/v9"
	"go.uber.org/fx"
)

var Module = fx.Module("idempotency",
	fx.Provide(func(client *redis.Client) *Store {
		return NewStore(client)
	}),
)
