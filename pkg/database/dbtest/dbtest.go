// Package dbtest provides database doubles for repository tests.
package dbtest

import (
	"testing"

	"github.com/pashagolub/pgxmock/v4"
)

// NewMockPool returns a pgxmock pool that fails the test if any expectation
// is left unmet when the test ends.
func NewMockPool(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()

	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("create pgxmock pool: %v", err)
	}
	t.Cleanup(func() {
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Errorf("unmet database expectations: %v", err)
		}
		mock.Close()
	})
	return mock
}
