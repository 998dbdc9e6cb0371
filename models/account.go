package models

import (
	"context"
	"errors"
	"time"

	"bitbucket.org/mmdatafocus/erp_backend/utils"
)

type Account struct {
	ID        int       `gorm:"primary_key" json:"id"`
	TenantId  int       `gorm:"index;not null" json:"tenant_id"`
	Code      string    `gorm:"size:20;not null;index" json:"code"`
	Name      string    `gorm:"size:255;not null" json:"name"`
	Type      string    `gorm:"size:50" json:"type"`
	IsActive  *bool     `gorm:"not null;default:true" json:"is_active"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// AccountConfiguration maps an abstract account type (ACCOUNTS_RECEIVABLE,
// GST_OUTPUT, ...) to a concrete chart-of-accounts row per tenant.
type AccountConfiguration struct {
	ID          int       `gorm:"primary_key" json:"id"`
	TenantId    int       `gorm:"not null;uniqueIndex:uniq_tenant_account_type" json:"tenant_id"`
	AccountType string    `gorm:"size:50;not null;uniqueIndex:uniq_tenant_account_type" json:"account_type"`
	AccountId   int       `gorm:"not null" json:"account_id"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func GetAccount(ctx context.Context, id int) (*Account, error) {
	tenantId, ok := utils.GetTenantIdFromContext(ctx)
	if !ok || tenantId <= 0 {
		return nil, errors.New("tenant id is required")
	}
	return utils.FetchModel[Account](ctx, tenantId, id)
}
