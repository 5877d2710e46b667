package monitoring

import (
	"context"
	"net"

	"github.com/redis/go-redis/v9"
)

// RedisHook times every command, pipeline and dial of a client.
type RedisHook struct{}

func (RedisHook) ProcessHook(next redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error {
		defer TimeRedisCommand(cmd.Name())()
		return next(ctx, cmd)
	}
}

func (RedisHook) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return func(ctx context.Context, cmds []redis.Cmder) error {
		defer TimeRedisCommand("pipeline")()
		return next(ctx, cmds)
	}
}

func (RedisHook) DialHook(next redis.DialHook) redis.DialHook {
	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		defer TimeRedisCommand("dial")()
		return next(ctx, network, addr)
	}
}

func InstrumentRedisClient(client *redis.Client) *redis.Client {
	client.AddHook(RedisHook{})
	return client
}
