package migration

import (
	"github.com/dealerdesk/platform/internal/config"
	governancedomain "github.com/dealerdesk/platform/internal/governance/domain"
	identitydomain "github.com/dealerdesk/platform/internal/identity/domain"
	reconciliationdomain "github.com/dealerdesk/platform/internal/reconciliation/domain"
	"github.com/dealerdesk/platform/internal/seed"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, cfg config.Config) error {
		if cfg.DBType == "postgres" {
			sqlDB, err := conn.DB()
			if err != nil {
				return err
			}
			if err := RunMigrations(sqlDB); err != nil {
				return err
			}
		} else {
			// mysql and sqlite stay on the ORM's migrator.
			if err := conn.AutoMigrate(
				&identitydomain.Company{},
				&identitydomain.User{},
				&reconciliationdomain.Order{},
				&reconciliationdomain.Invoice{},
				&reconciliationdomain.Payment{},
				&governancedomain.UserAuditLog{},
			); err != nil {
				return err
			}
		}

		if cfg.BootstrapDefaultAdmin {
			return seed.EnsureDefaultCompanyAndAdmin(conn)
		}
		return nil
	}),
)
