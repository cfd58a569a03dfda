package state

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// inFlightTTL bounds how long a crashed process can hold a patient locked.
const inFlightTTL = 5 * time.Minute

// RedisManager is the Redis-backed Guard for multi-instance deployments.
type RedisManager struct {
	client *redis.Client
}

// NewRedisManager creates a new Redis-based guard
func NewRedisManager(redisHost, redisPort string) (*RedisManager, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         fmt.Sprintf("%s:%s", redisHost, redisPort),
		Password:     "", // no password
		DB:           0,  // default DB
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisManager{
		client: client,
	}, nil
}

// Acquire marks the patient as having a live stream using SET NX with a TTL
func (m *RedisManager) Acquire(ctx context.Context, patientID uint) (bool, error) {
	key := inFlightKey(patientID)
	ok, err := m.client.SetNX(ctx, key, "1", inFlightTTL).Result()
	if err != nil {
		return false, fmt.Errorf("failed to acquire in-flight mark: %w", err)
	}
	return ok, nil
}

// Release clears the in-flight mark for the patient
func (m *RedisManager) Release(ctx context.Context, patientID uint) {
	m.client.Del(ctx, inFlightKey(patientID))
}

// Close closes the Redis connection
func (m *RedisManager) Close() error {
	return m.client.Close()
}

func inFlightKey(patientID uint) string {
	return fmt.Sprintf("patient:%d:recommendation", patientID)
}
