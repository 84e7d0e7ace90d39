package infra

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// LotNumberSequencer issues lot numbers of the form PREFIX-YYYYMMDD-NNNN.
// The per-day counter lives in Redis so concurrent instances never collide;
// the key expires after 48h since it is only needed for the current day.
type LotNumberSequencer struct {
	rdb    *redis.Client
	prefix string
}

func NewLotNumberSequencer(rdb *redis.Client, prefix string) *LotNumberSequencer {
	if prefix == "" {
		prefix = "LOT"
	}
	return &LotNumberSequencer{rdb: rdb, prefix: prefix}
}

func (s *LotNumberSequencer) Next(ctx context.Context) (string, error) {
	day := time.Now().Format("20060102")
	key := fmt.Sprintf("lotnumber:seq:%s", day)

	n, err := s.rdb.Incr(ctx, key).Result()
	if err != nil {
		return "", fmt.Errorf("lot number sequence: %w", err)
	}
	if n == 1 {
		s.rdb.Expire(ctx, key, 48*time.Hour)
	}
	return fmt.Sprintf("%s-%s-%04d", s.prefix, day, n), nil
}
