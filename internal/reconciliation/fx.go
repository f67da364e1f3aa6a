package reconciliation

import (
	"github.com/dealerdesk/platform/internal/reconciliation/repository"
	"github.com/dealerdesk/platform/internal/reconciliation/service"
	"go.uber.org/fx"
)

var Module = fx.Module("reconciliation.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
