package workflow

import (
	"gorm.io/gorm"
)

// Advisory lock class for ledger posting; the second key is the tenant id.
const postingLockClassId = 7001

// AcquireTenantPostingLock serializes ledger posting per tenant across
// instances using a Postgres transaction-scoped advisory lock. The lock is
// released automatically when the surrounding transaction commits or rolls
// back, so there is no release counterpart.
func AcquireTenantPostingLock(tx *gorm.DB, tenantId int) error {
	return tx.Exec("SELECT pg_advisory_xact_lock(?, ?)", postingLockClassId, tenantId).Error
}
