package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Check is one dependency probed by the health endpoint.
type Check struct {
	Name string
	Ping func(ctx context.Context) error
}

// DatabaseCheck pings the Postgres pool behind db.
func DatabaseCheck(db *gorm.DB) Check {
	return Check{Name: "db", Ping: func(ctx context.Context) error {
		sqlDB, err := db.DB()
		if err != nil {
			return err
		}
		return sqlDB.PingContext(ctx)
	}}
}

// RedisCheck pings the job queue.
func RedisCheck(rdb *redis.Client) Check {
	return Check{Name: "redis", Ping: func(ctx context.Context) error {
		return rdb.Ping(ctx).Err()
	}}
}

// Health reports each dependency as "connected" or "error" and answers 503
// when any of them fails. Never exposes credentials or internals.
func Health(checks ...Check) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
		defer cancel()

		body := gin.H{}
		status := http.StatusOK
		for _, chk := range checks {
			if err := chk.Ping(ctx); err != nil {
				body[chk.Name] = "error"
				status = http.StatusServiceUnavailable
				continue
			}
			body[chk.Name] = "connected"
		}
		body["ok"] = status == http.StatusOK

		c.JSON(status, body)
	}
}
