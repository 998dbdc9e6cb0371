package utils

import (
	"context"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"bitbucket.org/mmdatafocus/erp_backend/config"
)

var mutex sync.Mutex

func GetTypeName[T any]() string {
	var v T
	typeOfT := reflect.TypeOf(v)
	return typeOfT.Name()
}

// GetSequence returns the next tenant-scoped monotonic sequence number for
// model T. The counter lives in redis; when redis starts fresh it is seeded
// from max(sequence_no) in the database, then re-checked for uniqueness so a
// stale counter can never hand out a number that is already taken.
func GetSequence[T any](ctx context.Context, tenantId int) (int64, error) {
	var model T
	mutex.Lock()
	defer mutex.Unlock()
	cacheKey := fmt.Sprintf("%d-%s_seq", tenantId, strings.ToLower(GetTypeName[T]()))
	var seqNo int64
	var err error
	db := config.GetDB()

	for {
		seqNo, err = config.GetRedisCounter(ctx, cacheKey)
		if err != nil {
			return 0, err
		}
		// if not found in redis, seed from db
		if seqNo <= 1 {
			var dbSeq *int64
			if err := db.WithContext(ctx).Model(&model).Select("max(sequence_no)").
				Where("tenant_id = ?", tenantId).
				Scan(&dbSeq).Error; err != nil {
				return 0, err
			}
			// in case db has no records yet
			if dbSeq == nil {
				seqNo = 0
			} else {
				seqNo = *dbSeq
			}
			seqNo++
			if err := config.SetRedisObject(cacheKey, &seqNo, 0); err != nil {
				return 0, err
			}
		}
		// check if sequence number exists in db
		err = ValidateUnique[T](ctx, tenantId, "sequence_no", seqNo, 0)
		if err == nil {
			break
		}
	}
	return seqNo, nil
}
