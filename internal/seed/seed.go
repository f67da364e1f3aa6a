package seed

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	identitydomain "github.com/dealerdesk/platform/internal/identity/domain"
	"github.com/dealerdesk/platform/internal/principal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	defaultCompanyName = "Main Dealer"
	defaultAdminEmail  = "admin@dealerdesk.io"
	defaultAdminName   = "DealerDesk Admin"
)

// EnsureDefaultCompanyAndAdmin seeds a dealer company and an admin user for
// local and self-hosted setups. Idempotent: existing rows are left alone.
func EnsureDefaultCompanyAndAdmin(db *gorm.DB) error {
	if db == nil {
		return errors.New("seed database handle is required")
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		return err
	}

	ctx := context.Background()
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		company, err := ensureCompanyTx(ctx, tx, node)
		if err != nil {
			return err
		}
		return ensureAdminTx(ctx, tx, node, company.ID)
	})
}

func ensureCompanyTx(ctx context.Context, tx *gorm.DB, node *snowflake.Node) (*identitydomain.Company, error) {
	var company identitydomain.Company
	err := tx.WithContext(ctx).Where("name = ?", defaultCompanyName).Take(&company).Error
	if err == nil {
		return &company, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	company = identitydomain.Company{
		ID:     node.Generate(),
		Name:   defaultCompanyName,
		Type:   string(principal.CompanyTypeDealer),
		Status: identitydomain.CompanyStatusActive,
	}
	if err := tx.WithContext(ctx).Create(&company).Error; err != nil {
		return nil, err
	}
	return &company, nil
}

func ensureAdminTx(ctx context.Context, tx *gorm.DB, node *snowflake.Node, companyID snowflake.ID) error {
	var user identitydomain.User
	err := tx.WithContext(ctx).Where("email = ?", defaultAdminEmail).Take(&user).Error
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	user = identitydomain.User{
		ID:        node.Generate(),
		CompanyID: companyID,
		Email:     defaultAdminEmail,
		Name:      defaultAdminName,
		Role:      string(principal.RoleAdmin),
		Status:    identitydomain.UserStatusActive,
		Metadata:  datatypes.JSONMap{},
	}
	return tx.WithContext(ctx).Create(&user).Error
}
