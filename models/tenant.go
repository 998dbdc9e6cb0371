package models

import (
	"context"
	"time"

	"bitbucket.org/mmdatafocus/erp_backend/config"
	"gorm.io/gorm"
)

type Tenant struct {
	ID             int       `gorm:"primary_key" json:"id"`
	Name           string    `gorm:"size:255;not null" json:"name"`
	BaseCurrencyId int       `gorm:"index" json:"base_currency_id"`
	Timezone       string    `gorm:"size:100;default:'UTC'" json:"timezone"`
	CreatedAt      time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func GetTenantById(ctx context.Context, id int) (*Tenant, error) {
	db := config.GetDB()
	var tenant Tenant
	if err := db.WithContext(ctx).First(&tenant, id).Error; err != nil {
		return nil, err
	}
	return &tenant, nil
}

func GetTenantById2(tx *gorm.DB, id int) (*Tenant, error) {
	var tenant Tenant
	if err := tx.First(&tenant, id).Error; err != nil {
		return nil, err
	}
	return &tenant, nil
}
