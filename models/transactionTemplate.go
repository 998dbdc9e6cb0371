package models

import (
	"context"
	"errors"
	"fmt"
	"time"

	"bitbucket.org/mmdatafocus/erp_backend/config"
	"bitbucket.org/mmdatafocus/erp_backend/utils"
	"gorm.io/gorm"
)

// TransactionTemplate maps an abstract business event to a fixed ordered set
// of ledger postings. It is per-tenant data-driven policy, not code: the
// posting engine never hard-codes debit/credit logic per transaction type.
type TransactionTemplate struct {
	ID              int             `gorm:"primary_key" json:"id"`
	TenantId        int             `gorm:"index;not null" json:"tenant_id"`
	TransactionType TransactionType `gorm:"size:50;index;not null" json:"transaction_type"`
	Name            string          `gorm:"size:255;not null" json:"name"`
	IsActive        *bool           `gorm:"not null;default:true" json:"is_active"`

	Rules []TransactionTemplateRule `gorm:"foreignKey:TemplateId" json:"rules"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// TransactionTemplateRule is one posting line. The account resolves through
// AccountId when set, else the tenant's AccountConfiguration for AccountType,
// else the fixed default-code table. AmountSource names a field of the
// transaction data; empty means total_amount.
type TransactionTemplateRule struct {
	ID           int       `gorm:"primary_key" json:"id"`
	TemplateId   int       `gorm:"index;not null" json:"template_id"`
	LineNumber   int       `gorm:"not null" json:"line_number"`
	AccountId    *int      `json:"account_id"`
	AccountType  string    `gorm:"size:50" json:"account_type"`
	EntryType    EntryType `gorm:"size:10;not null;check:entry_type IN ('DEBIT','CREDIT')" json:"entry_type"`
	AmountSource string    `gorm:"size:50" json:"amount_source"`
	Description  string    `gorm:"size:255" json:"description"`
}

type NewTransactionTemplate struct {
	TransactionType TransactionType              `json:"transaction_type" validate:"required"`
	Name            string                       `json:"name" validate:"required"`
	Rules           []NewTransactionTemplateRule `json:"rules" validate:"required,min=1"`
}

type NewTransactionTemplateRule struct {
	LineNumber   int       `json:"line_number"`
	AccountId    *int      `json:"account_id"`
	AccountType  string    `json:"account_type"`
	EntryType    EntryType `json:"entry_type" validate:"required,oneof=DEBIT CREDIT"`
	AmountSource string    `json:"amount_source"`
	Description  string    `json:"description"`
}

// GetActiveTemplate finds the single active template for a transaction type.
// A missing template is a hard configuration error for the posting engine.
func GetActiveTemplate(tx *gorm.DB, tenantId int, transactionType TransactionType) (*TransactionTemplate, error) {
	var template TransactionTemplate
	err := tx.Preload("Rules", func(db *gorm.DB) *gorm.DB {
		return db.Order("line_number ASC")
	}).
		Where("tenant_id = ? AND transaction_type = ? AND is_active = ?", tenantId, transactionType, true).
		First(&template).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("no active transaction template for %s", transactionType)
		}
		return nil, err
	}
	if len(template.Rules) == 0 {
		return nil, fmt.Errorf("transaction template %d has no rules", template.ID)
	}
	return &template, nil
}

func CreateTransactionTemplate(ctx context.Context, input *NewTransactionTemplate) (*TransactionTemplate, error) {

	tenantId, ok := utils.GetTenantIdFromContext(ctx)
	if !ok || tenantId <= 0 {
		return nil, errors.New("tenant id is required")
	}
	if err := utils.ValidateStruct(input); err != nil {
		return nil, err
	}

	rules := make([]TransactionTemplateRule, 0, len(input.Rules))
	for i, r := range input.Rules {
		lineNumber := r.LineNumber
		if lineNumber == 0 {
			lineNumber = i + 1
		}
		if r.AccountId == nil && r.AccountType == "" {
			return nil, fmt.Errorf("rule %d needs an account id or account type", lineNumber)
		}
		rules = append(rules, TransactionTemplateRule{
			LineNumber:   lineNumber,
			AccountId:    r.AccountId,
			AccountType:  r.AccountType,
			EntryType:    r.EntryType,
			AmountSource: r.AmountSource,
			Description:  r.Description,
		})
	}

	template := TransactionTemplate{
		TenantId:        tenantId,
		TransactionType: input.TransactionType,
		Name:            input.Name,
		IsActive:        utils.NewTrue(),
		Rules:           rules,
	}

	db := config.GetDB()
	tx := db.Begin()
	// Only one active template per (tenant, transaction type): deactivate the rest.
	if err := tx.WithContext(ctx).Model(&TransactionTemplate{}).
		Where("tenant_id = ? AND transaction_type = ?", tenantId, input.TransactionType).
		Update("is_active", false).Error; err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.WithContext(ctx).Create(&template).Error; err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	return &template, nil
}
