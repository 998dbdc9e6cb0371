package models

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type Currency struct {
	ID        int       `gorm:"primary_key" json:"id"`
	TenantId  int       `gorm:"index;not null" json:"tenant_id"`
	Code      string    `gorm:"size:10;not null" json:"code"`
	Name      string    `gorm:"size:100" json:"name"`
	Symbol    string    `gorm:"size:10" json:"symbol"`
	IsBase    *bool     `gorm:"not null;default:false" json:"is_base"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// ResolveDocumentCurrency picks the currency a stock document is priced in:
// the explicit currency id when given, else the tenant's configured base
// currency, else the row flagged as base. Exchange rate defaults to 1.
func ResolveDocumentCurrency(tx *gorm.DB, tenantId int, currencyId *int, exchangeRate *decimal.Decimal) (int, decimal.Decimal, error) {
	rate := decimal.NewFromInt(1)
	if exchangeRate != nil && exchangeRate.IsPositive() {
		rate = *exchangeRate
	}

	if currencyId != nil && *currencyId > 0 {
		var count int64
		if err := tx.Model(&Currency{}).
			Where("tenant_id = ? AND id = ?", tenantId, *currencyId).
			Count(&count).Error; err != nil {
			return 0, rate, err
		}
		if count == 0 {
			return 0, rate, errors.New("currency not found")
		}
		return *currencyId, rate, nil
	}

	var tenant Tenant
	if err := tx.First(&tenant, tenantId).Error; err == nil && tenant.BaseCurrencyId > 0 {
		return tenant.BaseCurrencyId, rate, nil
	}

	var base Currency
	if err := tx.Where("tenant_id = ? AND is_base = ?", tenantId, true).
		First(&base).Error; err != nil {
		return 0, rate, errors.New("no base currency configured for tenant")
	}
	return base.ID, rate, nil
}
