package utils

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"bitbucket.org/mmdatafocus/erp_backend/config"
	"github.com/bsm/redislock"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

func NewTrue() *bool {
	b := true
	return &b
}

func NewFalse() *bool {
	b := false
	return &b
}

// safely dereference pointer of type T, nil pointer return zero value or optional default
func DereferencePtr[T any](ptr *T, defaults ...T) T {
	var defaultValue T
	if len(defaults) > 0 {
		defaultValue = defaults[0]
	}
	if ptr == nil {
		return defaultValue
	}
	return *ptr
}

func NilIfEmpty[T comparable](ptr T) *T {
	var defaultZero T
	if ptr == defaultZero {
		return nil
	}
	return &ptr
}

// returns slice removing duplicate elements
func UniqueSlice[T comparable](slice []T) []T {
	inResult := make(map[T]bool)
	var result []T
	for _, elm := range slice {
		if _, ok := inResult[elm]; !ok {
			inResult[elm] = true
			result = append(result, elm)
		}
	}
	return result
}

// mergeSlices merges two integer slices and removes duplicates
func MergeIntSlices(slice1, slice2 []int) []int {
	elementMap := make(map[int]bool)
	mergedSlice := []int{}

	for _, elem := range slice1 {
		if !elementMap[elem] {
			elementMap[elem] = true
			mergedSlice = append(mergedSlice, elem)
		}
	}
	for _, elem := range slice2 {
		if !elementMap[elem] {
			elementMap[elem] = true
			mergedSlice = append(mergedSlice, elem)
		}
	}

	return mergedSlice
}

// ParseDecimal converts a string to a decimal.Decimal value.
func ParseDecimal(value string) (decimal.Decimal, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return decimal.Zero, errors.New("empty decimal string")
	}

	dec, err := decimal.NewFromString(value)
	if err != nil {
		return decimal.Zero, err
	}

	return dec, nil
}

var validate = validator.New()

// ValidateStruct runs validator tags on an input DTO and flattens
// the first failure into a caller-facing message.
func ValidateStruct(input interface{}) error {
	if err := validate.Struct(input); err != nil {
		var validationErrors validator.ValidationErrors
		if errors.As(err, &validationErrors) && len(validationErrors) > 0 {
			ve := validationErrors[0]
			return fmt.Errorf("invalid %s (%s)", strings.ToLower(ve.Field()), ve.Tag())
		}
		return err
	}
	return nil
}

// TenantLock serializes a critical section per tenant across instances.
// The returned release function must be called when done.
func TenantLock(ctx context.Context, tenantId int, lockType string, moduleName string, functionName string) (func(), error) {
	logger := config.GetLogger()
	locker := config.GetRedisLock()
	if locker == nil {
		// Avoid nil-pointer panics when the Redis lock isn't initialized yet.
		config.LogError(logger, moduleName, functionName, "Redis lock not initialized", tenantId, errors.New("redis lock is nil"))
		return nil, errors.New("service not ready (redis lock not initialized)")
	}
	lockKey := fmt.Sprintf("%s:%d", lockType, tenantId)
	lock, err := locker.Obtain(ctx, lockKey, 30*time.Second, nil)
	if err == redislock.ErrNotObtained {
		config.LogError(logger, moduleName, functionName, "Could not obtain lock for tenant", tenantId, err)
		return nil, errors.New("could not obtain lock for tenant")
	} else if err != nil {
		config.LogError(logger, moduleName, functionName, "Error obtaining lock for tenant", tenantId, err)
		return nil, err
	}
	return func() { _ = lock.Release(ctx) }, nil
}
