package store

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"retailhub/backend/internal/domain"
)

func TestIsMissingDeletedAt(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"sentinel", fmt.Errorf("wrap: %w", ErrSoftDeleteUnsupported), true},
		{"postgres text", errors.New(`pq: column "deleted_at" does not exist`), true},
		{"schema cache text", errors.New("Could not find the 'deleted_at' column of 'sales'"), true},
		{"other column missing", errors.New("Could not find the 'x' column of 'sales'"), false},
		{"not null violation", errors.New(`null value in column "total_amount" violates not-null constraint`), false},
		{"typed write error naming deleted_at", fmt.Errorf("%w: deleted_at does not exist", ErrInvalidRecord), false},
		{"foreign key", fmt.Errorf("%w: product p1", ErrReferenced), false},
		{"network", errors.New("connection refused"), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, IsMissingDeletedAt(tc.err))
		})
	}
}

func TestDescriptors(t *testing.T) {
	for _, kind := range domain.RecoverableKinds {
		d, ok := Describe(kind)
		assert.True(t, ok, kind)
		assert.True(t, d.SoftDelete, kind)
		assert.Equal(t, string(kind), d.Table)
	}

	d, ok := Describe(domain.KindSuppliers)
	assert.True(t, ok)
	assert.False(t, d.SoftDelete)

	_, ok = Describe("sale_items")
	assert.False(t, ok)
}

func TestResetOrderDeletesLinesFirst(t *testing.T) {
	index := map[string]int{}
	for i, table := range ResetOrder {
		index[table] = i
	}
	assert.Less(t, index[TableSaleItems], index[TableSales])
	assert.Less(t, index[TablePurchaseItems], index[TablePurchases])
	assert.Less(t, index[TableSales], index[TableProducts])
	assert.Less(t, index[TableSales], index[TableCustomers])
	assert.Less(t, index[TablePurchases], index[TableSuppliers])
	assert.Less(t, index[TableProducts], index[TableCategories])
	assert.Len(t, ResetOrder, 9)
}
