package worker

// integridad_cron.go
// Background goroutine that periodically runs the integrity check so the
// inconsistency gauge stays current and drift shows up in the logs.

import (
	"context"
	"time"

	"restopos/internal/dto"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Verificador runs the integrity check, over every tenant when
// restauranteID is nil. service.IntegridadService implements it.
type Verificador interface {
	Verificar(ctx context.Context, restauranteID *uuid.UUID) (*dto.IntegridadResponse, error)
}

// StartIntegridadCron ticks every interval until ctx is cancelled.
// It never repairs anything.
func StartIntegridadCron(ctx context.Context, v Verificador, interval time.Duration) {
	if interval <= 0 {
		return
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		log.Info().Dur("interval", interval).Msg("integridad cron started")

		for {
			select {
			case <-ctx.Done():
				log.Info().Msg("integridad cron stopped")
				return
			case <-ticker.C:
				runIntegridad(ctx, v)
			}
		}
	}()
}

func runIntegridad(ctx context.Context, v Verificador) {
	ctx, cancel := context.WithTimeout(ctx, time.Minute)
	defer cancel()

	res, err := v.Verificar(ctx, nil)
	if err != nil {
		log.Error().Err(err).Msg("integridad cron: check failed")
		return
	}
	if !res.Consistente {
		log.Warn().Int("total", res.Total).Interface("por_tipo", res.PorTipo).Msg("integridad cron: inconsistencies found")
	}
}
