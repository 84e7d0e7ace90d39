package worker

// alert_worker.go
// Processes expiry alert jobs from QueueAlerts and delivers them over SMTP.
// Calls go through the circuit breaker so a downed mail relay fast-fails
// instead of tying up the pool.

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/erurang/wooyangcrm-sub005/internal/infra"

	"github.com/rs/zerolog/log"
)

// AlertJobPayload is the job envelope sent to QueueAlerts.
type AlertJobPayload struct {
	Recipients []string `json:"recipients"`
	Subject    string   `json:"subject"`
	Body       string   `json:"body"`
}

type AlertWorker struct {
	mailer *infra.Mailer
	cb     *infra.CircuitBreaker
}

func NewAlertWorker(mailer *infra.Mailer, cb *infra.CircuitBreaker) *AlertWorker {
	return &AlertWorker{mailer: mailer, cb: cb}
}

// Process sends one alert email. A non-nil return puts the job back on the
// queue (or into the DLQ once attempts are exhausted).
func (w *AlertWorker) Process(_ context.Context, raw json.RawMessage) error {
	var payload AlertJobPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		log.Error().Err(err).Msg("alert_worker: invalid payload")
		// Malformed payloads never succeed — drop without retry.
		return nil
	}
	if len(payload.Recipients) == 0 {
		log.Warn().Msg("alert_worker: no recipients — skipping")
		return nil
	}

	err := w.cb.Execute(func() error {
		return w.mailer.SendAlert(payload.Recipients, payload.Subject, payload.Body, nil, "")
	})
	if err != nil {
		if errors.Is(err, infra.ErrCircuitOpen) {
			log.Warn().Msg("alert_worker: circuit open, deferring")
		} else {
			log.Error().Err(err).Strs("to", payload.Recipients).Msg("alert_worker: send failed")
		}
		return err
	}

	log.Info().Strs("to", payload.Recipients).Str("subject", payload.Subject).Msg("alert_worker: alert sent")
	return nil
}
