package utils

import (
	"context"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"go.mongodb.org/mongo-driver/mongo"
)

const healthProbeInterval = 60 * time.Second

// DependencyHealth is the snapshot served on /api/health: the booking store
// plus every Redis role the lifecycle leans on (cache, webhook dedupe,
// task queue).
type DependencyHealth struct {
	Mongo     bool            `json:"mongo"`
	Redis     map[string]bool `json:"redis"`
	CheckedAt time.Time       `json:"checked_at"`
}

var (
	healthMu   sync.RWMutex
	lastHealth DependencyHealth
)

// GetHealthStatus returns the most recent dependency snapshot.
func GetHealthStatus() DependencyHealth {
	healthMu.RLock()
	defer healthMu.RUnlock()
	return lastHealth
}

// StartHealthMonitor probes the booking store and each named Redis client on
// an interval, keeping the snapshot fresh for the health endpoint. The first
// probe runs immediately so the endpoint never serves a zero value.
func StartHealthMonitor(redisByRole map[string]*redis.Client, mongoClient *mongo.Client) {
	go func() {
		ticker := time.NewTicker(healthProbeInterval)
		defer ticker.Stop()

		for {
			snapshot := probeDependencies(context.Background(), redisByRole, mongoClient)

			healthMu.Lock()
			lastHealth = snapshot
			healthMu.Unlock()

			<-ticker.C
		}
	}()
}

func probeDependencies(ctx context.Context, redisByRole map[string]*redis.Client, mongoClient *mongo.Client) DependencyHealth {
	redisHealth := make(map[string]bool, len(redisByRole))
	for role, client := range redisByRole {
		redisHealth[role] = client.Ping(ctx).Err() == nil
	}

	return DependencyHealth{
		Mongo:     mongoClient != nil && mongoClient.Ping(ctx, nil) == nil,
		Redis:     redisHealth,
		CheckedAt: time.Now(),
	}
}
