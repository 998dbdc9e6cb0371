package models

import (
	"context"
	"errors"
	"time"

	"bitbucket.org/mmdatafocus/erp_backend/config"
	"bitbucket.org/mmdatafocus/erp_backend/utils"
)

type Warehouse struct {
	ID        int       `gorm:"primary_key" json:"id"`
	TenantId  int       `gorm:"index;not null" json:"tenant_id"`
	Code      string    `gorm:"size:20;not null;index" json:"code"`
	Name      string    `gorm:"size:255;not null" json:"name"`
	Address   string    `gorm:"size:500" json:"address"`
	IsActive  *bool     `gorm:"not null;default:true" json:"is_active"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewWarehouse struct {
	Code    string `json:"code" validate:"required"`
	Name    string `json:"name" validate:"required"`
	Address string `json:"address"`
}

func CreateWarehouse(ctx context.Context, input *NewWarehouse) (*Warehouse, error) {

	tenantId, ok := utils.GetTenantIdFromContext(ctx)
	if !ok || tenantId <= 0 {
		return nil, errors.New("tenant id is required")
	}
	if err := utils.ValidateStruct(input); err != nil {
		return nil, err
	}
	if err := utils.ValidateUnique[Warehouse](ctx, tenantId, "code", input.Code, 0); err != nil {
		return nil, err
	}

	warehouse := Warehouse{
		TenantId: tenantId,
		Code:     input.Code,
		Name:     input.Name,
		Address:  input.Address,
	}
	db := config.GetDB()
	if err := db.WithContext(ctx).Create(&warehouse).Error; err != nil {
		return nil, err
	}
	return &warehouse, nil
}

func GetWarehouse(ctx context.Context, id int) (*Warehouse, error) {
	tenantId, ok := utils.GetTenantIdFromContext(ctx)
	if !ok || tenantId <= 0 {
		return nil, errors.New("tenant id is required")
	}
	return utils.FetchModel[Warehouse](ctx, tenantId, id)
}
