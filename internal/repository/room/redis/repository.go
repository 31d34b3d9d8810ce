package redis

import (
	"log/slog"

	"github.com/redis/go-redis/v9"
)

type repo struct {
	rc                  *redis.Client
	logger              *slog.Logger
	createIfNotExists   *redis.Script
	swapIfVersionEquals *redis.Script
}

func NewRepo(rc *redis.Client, logger *slog.Logger) *repo {
	return &repo{
		rc:     rc,
		logger: logger,
		createIfNotExists: redis.NewScript(`
			local key = KEYS[1]
			if redis.call('EXISTS', key) == 1 then
				return 0
			end
			for i = 1, #ARGV, 2 do
				redis.call('HSET', key, ARGV[i], ARGV[i + 1])
			end
			return 1
		`),
		// returns -1 when the key is missing, 0 on version mismatch, 1 on swap
		swapIfVersionEquals: redis.NewScript(`
			local key = KEYS[1]
			local version = redis.call('HGET', key, 'version')
			if not version then
				return -1
			end
			if version ~= ARGV[1] then
				return 0
			end
			redis.call('DEL', key)
			for i = 2, #ARGV, 2 do
				redis.call('HSET', key, ARGV[i], ARGV[i + 1])
			end
			return 1
		`),
	}
}
