// Package testsuite provides backend-neutral contract tests. Every
// backend runs the same named map against its own client, so the
// behavior the framework depends on, snapshot reads, first-committer-
// wins commits, MultiError shapes, stays identical across
// implementations.
//
// Run each test against a fresh client, or a client scoped to an
// isolated namespace when the backing service keeps state between
// tests.
package testsuite

import (
	"context"
	"testing"

	"go.kotori.dev/arbor"
)

// Test represents a test function for backend testing.
type Test func(ctx context.Context, t *testing.T, client arbor.Client)

// TestSuite contains all the test cases that this package provides.
var TestSuite = map[string]Test{
	"PutAndGet":                      putAndGet,
	"PutAndGet_IncompleteKey":        putAndGetIncompleteKey,
	"GetMulti_MixedResults":          getMultiMixedResults,
	"PutAndDelete":                   putAndDelete,
	"AllocateIDs":                    allocateIDs,
	"Transaction_Commit":             transactionCommit,
	"Transaction_Rollback":           transactionRollback,
	"Transaction_SnapshotIsolation":  transactionSnapshotIsolation,
	"Transaction_OwnWritesInvisible": transactionOwnWritesInvisible,
	"Transaction_FirstCommitterWins": transactionFirstCommitterWins,
	"RunInTransaction_Retry":         runInTransactionRetry,
	"Query_FilterAndOrder":           queryFilterAndOrder,
	"Query_KeysOnlyAndLimit":         queryKeysOnlyAndLimit,
	"Query_NoIndexExcluded":          queryNoIndexExcluded,
	"Query_Count":                    queryCount,
	"Batch_PutGetDelete":             batchPutGetDelete,
	"TransactionBatch_PutGetDelete":  transactionBatchPutGetDelete,
}

// MergeTestSuite into this package's TestSuite.
func MergeTestSuite(suite map[string]Test) {
	for key, spec := range suite {
		_, ok := TestSuite[key]
		if ok {
			panic("duplicate spec name")
		}
		TestSuite[key] = spec
	}
}
