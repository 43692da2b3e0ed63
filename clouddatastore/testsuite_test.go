package clouddatastore

import (
	"context"
	"os"
	"testing"

	"github.com/google/uuid"

	"go.kotori.dev/arbor"
	"go.kotori.dev/arbor/testsuite"
)

// The suite needs a live service. Point DATASTORE_EMULATOR_HOST at a
// running emulator to enable it. Each test gets its own namespace, so
// no cleanup pass runs between tests.
func TestCloudDatastoreTestSuite(t *testing.T) {
	if os.Getenv("DATASTORE_EMULATOR_HOST") == "" {
		t.Skip("DATASTORE_EMULATOR_HOST is not set")
	}

	ctx := context.Background()
	for name, test := range testsuite.TestSuite {
		t.Run(name, func(t *testing.T) {
			client, err := New(ctx,
				arbor.WithProjectID("arbor-suite"),
				arbor.WithNamespace("t"+uuid.NewString()[:8]),
			)
			if err != nil {
				t.Fatal(err)
			}
			test(ctx, t, client)
		})
	}
}
