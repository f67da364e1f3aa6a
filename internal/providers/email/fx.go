package email

import (
	"github.com/dealerdesk/platform/internal/config"
	governancedomain "github.com/dealerdesk/platform/internal/governance/domain"
	"go.uber.org/fx"
)

var Module = fx.Module("providers.email",
	fx.Provide(NewFromConfig),
	fx.Provide(func(provider Provider, cfg config.Config) governancedomain.Notifier {
		return NewStatusNotifier(provider, cfg.AppName)
	}),
)

func NewFromConfig(cfg config.Config) Provider {
	if cfg.SMTPUsername == "" {
		return &NoOpProvider{}
	}
	return NewSMTP(Config{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.SMTPUsername,
		Password: cfg.SMTPPassword,
		From:     cfg.SMTPFrom,
	})
}
