package redis

import (
	"github.com/redis/go-redis/v9"
)

// Client is the surface stores, the membership registry and the event relay
// use. Both single-instance and cluster clients satisfy it.
type Client interface {
	redis.UniversalClient
}

// Nil is returned by reads of missing keys
const Nil = redis.Nil
