package worker

// cuenta_worker.go
// Processes cuenta jobs from QueueCuenta: renders the closed prefactura as a
// PDF and mails it to the customer through the circuit-breaker-guarded mailer.

import (
	"context"
	"encoding/json"
	"fmt"

	"restopos/internal/dto"
	"restopos/internal/infra"

	"github.com/rs/zerolog/log"
)

// CuentaJobPayload carries a snapshot of the bill taken when the mesa closed.
type CuentaJobPayload struct {
	ToEmail    string                 `json:"to_email"`
	Prefactura dto.PrefacturaResponse `json:"prefactura"`
}

// CuentaSender delivers the rendered bill. *infra.Mailer implements it.
type CuentaSender interface {
	SendCuenta(to, subject, body, pdfPath string) error
}

// CuentaWorker renders and sends closed bills.
type CuentaWorker struct {
	sender      CuentaSender
	cb          *infra.CircuitBreaker
	storagePath string
	negocio     string
}

func NewCuentaWorker(sender CuentaSender, cb *infra.CircuitBreaker, storagePath, negocio string) *CuentaWorker {
	return &CuentaWorker{sender: sender, cb: cb, storagePath: storagePath, negocio: negocio}
}

func (w *CuentaWorker) Process(_ context.Context, raw json.RawMessage) error {
	var payload CuentaJobPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return fmt.Errorf("%w: cuenta_worker: invalid payload: %v", ErrPermanent, err)
	}
	if payload.ToEmail == "" {
		log.Warn().Msg("cuenta_worker: empty to_email, skipping")
		return nil
	}

	pdfPath, err := infra.GeneratePrefacturaPDF(&payload.Prefactura, w.storagePath, w.negocio)
	if err != nil {
		return err
	}

	subject := fmt.Sprintf("%s - Cuenta mesa %d", w.negocio, payload.Prefactura.MesaNumero)
	body := fmt.Sprintf("Adjuntamos el detalle de su consumo. Total: $%s\n\nGracias por su visita.",
		payload.Prefactura.Total.StringFixed(2))

	err = w.cb.Execute(func() error {
		return w.sender.SendCuenta(payload.ToEmail, subject, body, pdfPath)
	})
	if err != nil {
		return err
	}
	log.Info().Str("to", payload.ToEmail).Int("mesa", payload.Prefactura.MesaNumero).Msg("cuenta_worker: cuenta sent")
	return nil
}
