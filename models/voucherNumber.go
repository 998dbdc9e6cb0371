package models

import (
	"context"
	"fmt"
	"time"

	"bitbucket.org/mmdatafocus/erp_backend/utils"
)

// voucherClock is swapped in tests to pin the legacy timestamp format.
var voucherClock = time.Now

// FormatVoucherNumber renders the legacy timestamp-based document number:
// {prefix}{tenantId}{ddMMyyyyHHmmssfff}. Millisecond precision only; two
// calls inside the same millisecond collide, which is why new voucher rows
// use NextVoucherNumber instead. The format survives here because stock
// reference numbers and older tenants still carry it.
func FormatVoucherNumber(prefix string, tenantId int, at time.Time) string {
	return fmt.Sprintf("%s%d%s%03d", prefix, tenantId, at.Format("02012006150405"), at.Nanosecond()/int(time.Millisecond))
}

// GenerateVoucherNumber is FormatVoucherNumber at the current clock.
func GenerateVoucherNumber(prefix string, tenantId int) string {
	return FormatVoucherNumber(prefix, tenantId, voucherClock())
}

// NextVoucherNumber hands out the next gapless-per-tenant voucher number
// from the redis-backed sequence, seeded from the vouchers table.
func NextVoucherNumber(ctx context.Context, tenantId int, prefix string) (int64, string, error) {
	seqNo, err := utils.GetSequence[Voucher](ctx, tenantId)
	if err != nil {
		return 0, "", err
	}
	return seqNo, fmt.Sprintf("%s%d", prefix, seqNo), nil
}
