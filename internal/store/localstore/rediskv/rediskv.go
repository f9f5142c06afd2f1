// Package rediskv backs localstore with plain Redis string keys.
package rediskv

import (
	"context"
	"errors"

	redis "github.com/redis/go-redis/v9"
)

type KV struct {
	client *redis.Client
}

func New(client *redis.Client) *KV {
	return &KV{client: client}
}

func (k *KV) Get(ctx context.Context, key string) ([]byte, bool, error) {
	raw, err := k.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return raw, true, nil
}

// SetMany writes all keys inside MULTI/EXEC.
func (k *KV) SetMany(ctx context.Context, values map[string][]byte) error {
	_, err := k.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for key, raw := range values {
			pipe.Set(ctx, key, raw, 0)
		}
		return nil
	})
	return err
}
