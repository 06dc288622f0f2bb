package sequence

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"strconv"
	"strings"
	"time"

	"creatorconnect-gamification/pkg/rediskey"

	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
)

var Module = fx.Module("sequence",
	fx.Provide(NewRedisGenerator),
)

type Generator interface {
	NextBrandCode(ctx context.Context) (string, error)
	NextCampaignCode(ctx context.Context, brandID string) (string, error)
	NextCouponCode(ctx context.Context, brandID string) (string, error)
	NextEventCode(ctx context.Context, brandID string) (string, error)
}

type RedisGenerator struct {
	rdb *redis.Client
}

type Params struct {
	fx.In

	Redis *redis.Client
}

func NewRedisGenerator(p Params) Generator {
	return &RedisGenerator{
		rdb: p.Redis,
	}
}

func (g *RedisGenerator) NextBrandCode(ctx context.Context) (string, error) {
	key := rediskey.BuildSequenceKey("brand")
	seq, err := g.rdb.Incr(ctx, key).Result()
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("B%03d", seq), nil
}

func (g *RedisGenerator) NextCampaignCode(ctx context.Context, brandID string) (string, error) {
	return g.nextDailyCode(ctx, "CMP", brandID)
}

func (g *RedisGenerator) NextCouponCode(ctx context.Context, brandID string) (string, error) {
	return g.nextDailyCode(ctx, "CPN", brandID)
}

func (g *RedisGenerator) NextEventCode(ctx context.Context, brandID string) (string, error) {
	return g.nextDailyCode(ctx, "EVT", brandID)
}

func (g *RedisGenerator) nextDailyCode(ctx context.Context, prefix, brandCode string) (string, error) {
	today := time.Now().UTC().Format("060102")
	key := rediskey.BuildDailySequenceKey(prefix, brandCode, today)

	seq, err := g.rdb.Incr(ctx, key).Result()
	if err != nil {
		return "", err
	}

	if seq == 1 {
		expire := time.Until(time.Now().Truncate(24 * time.Hour).Add(24*time.Hour - time.Second))
		_ = g.rdb.Expire(ctx, key, expire).Err()
	}

	// Base36, padded so short sequences read well on a coupon card.
	encodedSeq := strings.ToUpper(fmt.Sprintf("%03s", strconv.FormatInt(seq, 36)))

	randSuffix, _ := randomAlphaNumeric(2)

	return fmt.Sprintf("%s-%s-%s%s", prefix, today, encodedSeq, randSuffix), nil
}

func randomAlphaNumeric(n int) (string, error) {
	const chars = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	b := make([]byte, n)
	for i := range b {
		num, err := rand.Int(rand.Reader, big.NewInt(int64(len(chars))))
		if err != nil {
			return "", err
		}
		b[i] = chars[num.Int64()]
	}
	return string(b), nil
}
