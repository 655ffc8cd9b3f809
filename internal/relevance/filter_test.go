package relevance

import (
	"testing"

	"github.com/Veraticus/crypto-complaints/internal/model"
	"github.com/stretchr/testify/assert"
)

func TestFilter_IsRelevant(t *testing.T) {
	f := Default()

	tests := []struct {
		name string
		rec  model.ComplaintRecord
		want bool
	}{
		{
			name: "pure company ignores sub-product",
			rec:  model.ComplaintRecord{Company: "Coinbase, Inc.", SubProduct: "Mortgage"},
			want: true,
		},
		{
			name: "pure company with empty sub-product",
			rec:  model.ComplaintRecord{Company: "Payward Ventures Inc. dba Kraken"},
			want: true,
		},
		{
			name: "mixed company with crypto sub-product",
			rec:  model.ComplaintRecord{Company: "Block, Inc.", SubProduct: "Virtual currency"},
			want: true,
		},
		{
			name: "mixed company with wallet sub-product",
			rec:  model.ComplaintRecord{Company: "Paypal Holdings, Inc", SubProduct: "Mobile or digital wallet"},
			want: true,
		},
		{
			name: "mixed company with unrelated sub-product",
			rec:  model.ComplaintRecord{Company: "ROBINHOOD MARKETS INC.", SubProduct: "Stocks"},
			want: false,
		},
		{
			name: "mixed company with missing sub-product",
			rec:  model.ComplaintRecord{Company: "Block, Inc."},
			want: false,
		},
		{
			name: "unknown company is kept",
			rec:  model.ComplaintRecord{Company: "Legacy Exchange LLC", SubProduct: "Stocks"},
			want: true,
		},
		{
			name: "missing company is kept",
			rec:  model.ComplaintRecord{},
			want: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, f.IsRelevant(tt.rec))
		})
	}
}

func TestFilter_MixedDependsOnlyOnSubProduct(t *testing.T) {
	f := Default()
	for _, company := range DefaultMixedCompanies() {
		for _, sub := range DefaultSubProducts() {
			assert.True(t, f.IsRelevant(model.ComplaintRecord{Company: company, SubProduct: sub, Issue: "anything"}))
		}
		assert.False(t, f.IsRelevant(model.ComplaintRecord{Company: company, SubProduct: "Payday loan"}))
	}
}

func TestFilter_Apply(t *testing.T) {
	f := Default()
	hits := []model.Hit{
		{ID: "1", Source: model.ComplaintRecord{Company: "Coinbase, Inc."}},
		{ID: "2", Source: model.ComplaintRecord{Company: "Block, Inc.", SubProduct: "Credit reporting"}},
		{ID: "3", Source: model.ComplaintRecord{Company: "Old Exchange"}},
		{ID: "4", Source: model.ComplaintRecord{Company: "Block, Inc.", SubProduct: "Virtual currency"}},
	}

	kept, stats := f.Apply(hits)

	assert.Equal(t, []string{"1", "3", "4"}, []string{kept[0].ID, kept[1].ID, kept[2].ID})
	assert.Equal(t, 3, stats.Kept)
	assert.Equal(t, 1, stats.Dropped)
	assert.Equal(t, map[string]int{"Old Exchange": 1}, stats.Unknown)
}

func TestWithOverrides(t *testing.T) {
	f := WithOverrides([]string{"Example Exchange"}, nil, nil)

	assert.Equal(t, TierPure, f.TierOf("Example Exchange"))
	assert.Equal(t, TierUnknown, f.TierOf("Coinbase, Inc."))
	assert.Equal(t, TierMixed, f.TierOf("Block, Inc."))
}

func TestFilter_Suggest(t *testing.T) {
	f := Default()

	got, ok := f.Suggest("Coinbase Inc")
	assert.True(t, ok)
	assert.Equal(t, "Coinbase, Inc.", got)

	_, ok = f.Suggest("First National Savings and Loan of Nowhere")
	assert.False(t, ok)

	_, ok = f.Suggest("")
	assert.False(t, ok)
}
