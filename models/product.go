package models

import (
	"context"
	"errors"
	"time"

	"bitbucket.org/mmdatafocus/erp_backend/config"
	"bitbucket.org/mmdatafocus/erp_backend/utils"
	"github.com/shopspring/decimal"
)

type Product struct {
	ID       int    `gorm:"primary_key" json:"id"`
	TenantId int    `gorm:"index;not null" json:"tenant_id"`
	Sku      string `gorm:"size:100;not null;index" json:"sku"`
	Name     string `gorm:"size:255;not null" json:"name"`
	UnitId   int    `json:"unit_id"`

	UnitPrice decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"unit_price"`
	CostPrice decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"cost_price"`

	// GST rate components, percentages.
	CgstRate decimal.Decimal `gorm:"type:decimal(10,4);default:0" json:"cgst_rate"`
	SgstRate decimal.Decimal `gorm:"type:decimal(10,4);default:0" json:"sgst_rate"`
	IgstRate decimal.Decimal `gorm:"type:decimal(10,4);default:0" json:"igst_rate"`

	// Stock threshold levels used by reorder reporting.
	ReorderLevel decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"reorder_level"`
	DangerLevel  decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"danger_level"`
	MinStock     decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"min_stock"`
	MaxStock     decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"max_stock"`

	IsActive  *bool     `gorm:"not null;default:true" json:"is_active"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewProduct struct {
	Sku          string          `json:"sku" validate:"required"`
	Name         string          `json:"name" validate:"required"`
	UnitId       int             `json:"unit_id"`
	UnitPrice    decimal.Decimal `json:"unit_price"`
	CostPrice    decimal.Decimal `json:"cost_price"`
	CgstRate     decimal.Decimal `json:"cgst_rate"`
	SgstRate     decimal.Decimal `json:"sgst_rate"`
	IgstRate     decimal.Decimal `json:"igst_rate"`
	ReorderLevel decimal.Decimal `json:"reorder_level"`
	DangerLevel  decimal.Decimal `json:"danger_level"`
	MinStock     decimal.Decimal `json:"min_stock"`
	MaxStock     decimal.Decimal `json:"max_stock"`
}

func CreateProduct(ctx context.Context, input *NewProduct) (*Product, error) {

	tenantId, ok := utils.GetTenantIdFromContext(ctx)
	if !ok || tenantId <= 0 {
		return nil, errors.New("tenant id is required")
	}
	if err := utils.ValidateStruct(input); err != nil {
		return nil, err
	}
	if err := utils.ValidateUnique[Product](ctx, tenantId, "sku", input.Sku, 0); err != nil {
		return nil, err
	}

	product := Product{
		TenantId:     tenantId,
		Sku:          input.Sku,
		Name:         input.Name,
		UnitId:       input.UnitId,
		UnitPrice:    input.UnitPrice,
		CostPrice:    input.CostPrice,
		CgstRate:     input.CgstRate,
		SgstRate:     input.SgstRate,
		IgstRate:     input.IgstRate,
		ReorderLevel: input.ReorderLevel,
		DangerLevel:  input.DangerLevel,
		MinStock:     input.MinStock,
		MaxStock:     input.MaxStock,
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Create(&product).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

func GetProduct(ctx context.Context, id int) (*Product, error) {
	tenantId, ok := utils.GetTenantIdFromContext(ctx)
	if !ok || tenantId <= 0 {
		return nil, errors.New("tenant id is required")
	}
	return utils.FetchModel[Product](ctx, tenantId, id)
}
