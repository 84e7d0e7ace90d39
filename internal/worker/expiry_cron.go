package worker

// expiry_cron.go
// Background goroutine that periodically expires lots past their expiry date
// and queues a daily heads-up email for lots expiring soon.

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/erurang/wooyangcrm-sub005/internal/repository"
	"github.com/erurang/wooyangcrm-sub005/internal/service"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const expirySweepBatchSize = 50

// ExpiryCronConfig holds all dependencies for the sweep goroutine.
type ExpiryCronConfig struct {
	Ledger     service.LedgerService
	Lots       repository.LotRepository
	Dispatcher *Dispatcher
	RDB        *redis.Client
	Recipients []string
	AlertDays  int
	Interval   time.Duration
}

// StartExpiryCron launches a background goroutine that ticks on the configured
// interval, expires overdue lots and dispatches the expiring-soon digest.
// It respects the context for graceful shutdown.
func StartExpiryCron(ctx context.Context, cfg ExpiryCronConfig) {
	if cfg.Interval <= 0 {
		cfg.Interval = time.Hour
	}
	go func() {
		ticker := time.NewTicker(cfg.Interval)
		defer ticker.Stop()

		log.Info().Dur("interval", cfg.Interval).Msg("expiry_cron: started")

		for {
			select {
			case <-ctx.Done():
				log.Info().Msg("expiry_cron: shutting down")
				return
			case <-ticker.C:
				sweepExpired(ctx, cfg)
				dispatchExpiringDigest(ctx, cfg)
			}
		}
	}()
}

// sweepExpired marks available lots past their expiry date, batch by batch.
// Each lot is expired through the ledger so the status flip gets its audit
// entry and the stock projection stays consistent.
func sweepExpired(ctx context.Context, cfg ExpiryCronConfig) {
	for {
		lots, err := cfg.Lots.ListExpired(ctx, time.Now(), expirySweepBatchSize)
		if err != nil {
			log.Error().Err(err).Msg("expiry_cron: failed to query expired lots")
			return
		}
		if len(lots) == 0 {
			return
		}

		for i := range lots {
			if err := cfg.Ledger.Expire(ctx, lots[i].ID); err != nil {
				log.Error().Err(err).
					Str("lot_id", lots[i].ID.String()).
					Str("lot_number", lots[i].LotNumber).
					Msg("expiry_cron: failed to expire lot")
				continue
			}
			log.Info().
				Str("lot_id", lots[i].ID.String()).
				Str("lot_number", lots[i].LotNumber).
				Msg("expiry_cron: lot expired")
		}

		if len(lots) < expirySweepBatchSize {
			return
		}
	}
}

// dispatchExpiringDigest queues at most one expiring-soon email per day.
func dispatchExpiringDigest(ctx context.Context, cfg ExpiryCronConfig) {
	if len(cfg.Recipients) == 0 {
		return
	}

	// SetNX gates the digest to once per calendar day across instances.
	dedupKey := "alerts:expiring:sent:" + time.Now().Format("20060102")
	ok, err := cfg.RDB.SetNX(ctx, dedupKey, 1, 48*time.Hour).Result()
	if err != nil {
		log.Error().Err(err).Msg("expiry_cron: dedup check failed")
		return
	}
	if !ok {
		return
	}

	lots, err := cfg.Lots.ListExpiringWithin(ctx, cfg.AlertDays)
	if err != nil {
		log.Error().Err(err).Msg("expiry_cron: failed to query expiring lots")
		return
	}
	if len(lots) == 0 {
		return
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%d lot(s) expire within %d days:\n\n", len(lots), cfg.AlertDays)
	for i := range lots {
		l := &lots[i]
		name := ""
		if l.Product != nil {
			name = l.Product.InternalName
		}
		expiry := ""
		if l.ExpiryDate != nil {
			expiry = l.ExpiryDate.Format("2006-01-02")
		}
		fmt.Fprintf(&b, "  %s  %s  %s %s  expires %s\n",
			l.LotNumber, name, l.CurrentQuantity.String(), l.Unit, expiry)
	}

	payload := AlertJobPayload{
		Recipients: cfg.Recipients,
		Subject:    fmt.Sprintf("[inventory] %d lot(s) expiring within %d days", len(lots), cfg.AlertDays),
		Body:       b.String(),
	}
	if err := cfg.Dispatcher.EnqueueAlert(ctx, payload); err != nil {
		log.Error().Err(err).Msg("expiry_cron: failed to enqueue alert")
		return
	}
	log.Info().Int("lots", len(lots)).Msg("expiry_cron: expiring-soon digest queued")
}
