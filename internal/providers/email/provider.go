package email

import (
	"context"

	"go.uber.org/zap"
)

type Provider interface {
	Send(ctx context.Context, to []string, subject string, htmlBody string) error
	SendTemplate(ctx context.Context, to []string, templateName string, data interface{}) error
}

// NoOpProvider logs outbound mail instead of delivering it. Used when
// SMTP is not configured so the rest of the app can stay mail-agnostic.
type NoOpProvider struct {
	log *zap.Logger
}

func NewNoOp(log *zap.Logger) *NoOpProvider {
	return &NoOpProvider{log: log.Named("providers.email.noop")}
}

func (p *NoOpProvider) Send(ctx context.Context, to []string, subject string, htmlBody string) error {
	p.log.Info("email suppressed, smtp not configured",
		zap.Strings("to", to),
		zap.String("subject", subject),
	)
	return nil
}

func (p *NoOpProvider) SendTemplate(ctx context.Context, to []string, templateName string, data interface{}) error {
	p.log.Info("email suppressed, smtp not configured",
		zap.Strings("to", to),
		zap.String("template", templateName),
	)
	return nil
}
