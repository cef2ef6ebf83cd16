package checkout

import (
	"testing"

	"farmstand/internal/domain"
	"github.com/stretchr/testify/assert"
)

func TestApportion_SumsExactly(t *testing.T) {
	cases := []struct {
		amount  int64
		weights []int64
		want    []int64
	}{
		{300, []int64{1000, 1000}, []int64{150, 150}},
		{150, []int64{1000, 1000}, []int64{75, 75}},
		{100, []int64{1, 1, 1}, []int64{34, 33, 33}},
		{200, []int64{100, 500, 120}, []int64{28, 139, 33}},
		{7, []int64{0, 0}, []int64{4, 3}},
		{0, []int64{5, 5}, []int64{0, 0}},
		{450, []int64{1}, []int64{450}},
	}
	for _, tc := range cases {
		got := Apportion(tc.amount, tc.weights)
		assert.Equal(t, tc.want, got, "amount %d weights %v", tc.amount, tc.weights)
		var sum int64
		for _, v := range got {
			sum += v
		}
		assert.Equal(t, tc.amount, sum)
	}
	assert.Empty(t, Apportion(10, nil))
}

func TestPartitionByVendor_KeepsFirstAppearanceOrder(t *testing.T) {
	lines := []domain.PricedLine{
		{LineID: "1", VendorID: "B", UnitPriceMinor: 10, Quantity: 1},
		{LineID: "2", VendorID: "A", UnitPriceMinor: 20, Quantity: 2},
		{LineID: "3", VendorID: "B", UnitPriceMinor: 5, Quantity: 4},
	}
	groups := PartitionByVendor(lines)
	if assert.Len(t, groups, 2) {
		assert.Equal(t, "B", groups[0].VendorID)
		assert.Equal(t, int64(30), groups[0].Subtotal)
		assert.Equal(t, []string{"1", "3"}, []string{groups[0].Lines[0].LineID, groups[0].Lines[1].LineID})
		assert.Equal(t, "A", groups[1].VendorID)
		assert.Equal(t, int64(40), groups[1].Subtotal)
	}
	assert.Empty(t, PartitionByVendor(nil))
}
