package config

import (
	"log"
	"sync"
	"time"
)

var (
	queueOnce   sync.Once
	queueConfig *QueueConfig
)

// QueueConfig covers the redis-backed task queue and its workers.
type QueueConfig struct {
	RedisAddr      string
	RedisDB        int
	MaxRetries     int
	RetryDelay     time.Duration
	ProcessTimeout time.Duration
	Concurrency    int
	StatusTTL      time.Duration
}

func GetQueueConfig() *QueueConfig {
	queueOnce.Do(func() {
		loadDotEnv()
		queueConfig = &QueueConfig{
			RedisAddr:      getEnv("REDIS_ADDR", "localhost:6379"),
			RedisDB:        0,
			MaxRetries:     3,
			RetryDelay:     time.Minute,
			ProcessTimeout: 10 * time.Minute,
			Concurrency:    5,
			StatusTTL:      24 * time.Hour,
		}
		if db, err := getEnvAsInt("REDIS_DB", 0); err == nil {
			queueConfig.RedisDB = db
		} else {
			log.Printf("Warning: invalid REDIS_DB, using 0: %v", err)
		}
		if n, err := getEnvAsInt("WORKER_CONCURRENCY", 5); err == nil && n > 0 {
			queueConfig.Concurrency = n
		} else if err != nil {
			log.Printf("Warning: invalid WORKER_CONCURRENCY, using 5: %v", err)
		}
	})
	return queueConfig
}
