package models

import (
	"context"
	"errors"
	"time"

	"bitbucket.org/mmdatafocus/erp_backend/config"
	"bitbucket.org/mmdatafocus/erp_backend/utils"
)

type FinancialYear struct {
	ID        int       `gorm:"primary_key" json:"id"`
	TenantId  int       `gorm:"index;not null" json:"tenant_id"`
	Code      string    `gorm:"size:20;not null" json:"code"`
	Name      string    `gorm:"size:100" json:"name"`
	StartDate time.Time `gorm:"not null" json:"start_date"`
	EndDate   time.Time `gorm:"not null" json:"end_date"`
	IsActive  *bool     `gorm:"not null;default:false" json:"is_active"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewFinancialYear struct {
	Code      string    `json:"code" validate:"required"`
	Name      string    `json:"name"`
	StartDate time.Time `json:"start_date" validate:"required"`
	EndDate   time.Time `json:"end_date" validate:"required"`
}

func CreateFinancialYear(ctx context.Context, input *NewFinancialYear) (*FinancialYear, error) {

	tenantId, ok := utils.GetTenantIdFromContext(ctx)
	if !ok || tenantId <= 0 {
		return nil, errors.New("tenant id is required")
	}
	if err := utils.ValidateStruct(input); err != nil {
		return nil, err
	}
	if !input.EndDate.After(input.StartDate) {
		return nil, errors.New("end date must be after start date")
	}
	// duplicate code is a domain validation error, surfaced as-is to the caller
	if err := utils.ValidateUnique[FinancialYear](ctx, tenantId, "code", input.Code, 0); err != nil {
		return nil, err
	}

	fy := FinancialYear{
		TenantId:  tenantId,
		Code:      input.Code,
		Name:      input.Name,
		StartDate: input.StartDate,
		EndDate:   input.EndDate,
	}
	db := config.GetDB()
	if err := db.WithContext(ctx).Create(&fy).Error; err != nil {
		return nil, err
	}
	return &fy, nil
}
