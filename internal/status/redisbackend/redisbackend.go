// Package redisbackend mirrors Shared Status Surface snapshots into
// Redis, so multiple daemon processes (or an external dashboard) can
// observe connector status without sharing process memory (spec §9's
// "manual shared memory table" note generalizes to either an in-process
// map or a distributed cache; this is the distributed option). Never
// wired as the only backend: internal/status.Surface remains the
// source of truth for control-path reads (PostRequest/DrainRequest).
package redisbackend

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/hornetlabs/synchdb/internal/status"
)

const keyPrefix = "synchdb:status:"

// Mirror pushes Snapshot values to Redis under one key per connector.
type Mirror struct {
	client *redis.Client
}

// New builds a Mirror over an already-configured redis.Client.
func New(client *redis.Client) *Mirror {
	return &Mirror{client: client}
}

// Publish serializes snap and stores it with no expiry; callers decide
// how often to call this (e.g. once per processed batch).
func (m *Mirror) Publish(ctx context.Context, snap status.Snapshot) error {
	b, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("redisbackend: marshal snapshot: %w", err)
	}
	if err := m.client.Set(ctx, keyPrefix+snap.Name, b, 0).Err(); err != nil {
		return fmt.Errorf("redisbackend: set %s: %w", snap.Name, err)
	}
	return nil
}

// Fetch reads back the last mirrored snapshot for name, for an
// observer process that isn't running the connector itself.
func (m *Mirror) Fetch(ctx context.Context, name string) (status.Snapshot, error) {
	b, err := m.client.Get(ctx, keyPrefix+name).Bytes()
	if err != nil {
		return status.Snapshot{}, fmt.Errorf("redisbackend: get %s: %w", name, err)
	}
	var snap status.Snapshot
	if err := json.Unmarshal(b, &snap); err != nil {
		return status.Snapshot{}, fmt.Errorf("redisbackend: unmarshal %s: %w", name, err)
	}
	return snap, nil
}
