package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/dgraph-io/ristretto"
)

// Memory is an in-process cache backed by ristretto.
type Memory struct {
	client *ristretto.Cache
}

// MemoryConfig tunes the ristretto cache.
type MemoryConfig struct {
	NumCounters int64
	MaxCost     int64
	BufferItems int64
	Metrics     bool
}

// DefaultMemoryConfig sizes the cache for maxMB megabytes of image bytes.
func DefaultMemoryConfig(maxMB int64) MemoryConfig {
	if maxMB <= 0 {
		maxMB = 10
	}
	return MemoryConfig{
		NumCounters: 1_000_000,
		MaxCost:     maxMB * 1024 * 1024,
		BufferItems: 64,
		Metrics:     true,
	}
}

// NewMemory creates a ristretto-backed cache provider.
func NewMemory(config MemoryConfig) (*Memory, error) {
	client, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: config.NumCounters,
		MaxCost:     config.MaxCost,
		BufferItems: config.BufferItems,
		Metrics:     config.Metrics,
	})
	if err != nil {
		return nil, err
	}

	return &Memory{client: client}, nil
}

func (m *Memory) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	size := int64(1)
	if data, ok := value.([]byte); ok {
		size = int64(len(data))
	}

	if m.client.SetWithTTL(key, value, size, expiration) {
		// Wait so a read-after-write sees the value.
		m.client.Wait()
	}
	return nil
}

func (m *Memory) Get(ctx context.Context, key string, dest interface{}) error {
	value, found := m.client.Get(key)
	if !found {
		return ErrCacheMiss
	}

	switch dest := dest.(type) {
	case *[]byte:
		if data, ok := value.([]byte); ok {
			*dest = data
			return nil
		}
		jsonData, err := json.Marshal(value)
		if err != nil {
			return ErrCacheMiss
		}
		*dest = jsonData
	default:
		var data []byte
		if byteData, ok := value.([]byte); ok {
			data = byteData
		} else {
			jsonData, err := json.Marshal(value)
			if err != nil {
				return ErrCacheMiss
			}
			data = jsonData
		}

		if err := json.Unmarshal(data, dest); err != nil {
			return ErrCacheMiss
		}
	}

	return nil
}

func (m *Memory) Delete(ctx context.Context, key string) error {
	m.client.Del(key)
	return nil
}

func (m *Memory) Exists(ctx context.Context, key string) (bool, error) {
	_, found := m.client.Get(key)
	return found, nil
}

func (m *Memory) Close() error {
	m.client.Close()
	return nil
}

func (m *Memory) Name() string {
	return "memory"
}
