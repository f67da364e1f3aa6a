package identity

import (
	"github.com/dealerdesk/platform/internal/identity/repository"
	"github.com/dealerdesk/platform/internal/identity/service"
	"go.uber.org/fx"
)

var Module = fx.Module("identity.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
