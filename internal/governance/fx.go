package governance

import (
	"github.com/dealerdesk/platform/internal/governance/repository"
	"github.com/dealerdesk/platform/internal/governance/service"
	"go.uber.org/fx"
)

var Module = fx.Module("governance.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
