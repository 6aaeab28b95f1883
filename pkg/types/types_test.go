package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTargetCriteria_PriceMatches(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		prices []float64
		price  float64
		want   bool
	}{
		{name: "price in set", prices: []float64{380, 580}, price: 380, want: true},
		{name: "price not in set", prices: []float64{380, 580}, price: 480, want: false},
		{name: "empty set matches nothing", prices: nil, price: 380, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			c := &TargetCriteria{Prices: tt.prices}
			assert.Equal(t, tt.want, c.PriceMatches(tt.price))
		})
	}
}

func TestTargetCriteria_DateMatches(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		dates []string
		label string
		want  bool
	}{
		{name: "substring match", dates: []string{"周六"}, label: "10月12日 周六场", want: true},
		{name: "any of several", dates: []string{"周五", "10月12日"}, label: "10月12日 周六场", want: true},
		{name: "no match", dates: []string{"周日"}, label: "10月12日 周六场", want: false},
		{name: "case sensitive", dates: []string{"sat"}, label: "Oct 12 Sat", want: false},
		{name: "empty set matches nothing", dates: nil, label: "10月12日 周六场", want: false},
		{name: "empty string entry ignored", dates: []string{""}, label: "anything", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			c := &TargetCriteria{Dates: tt.dates}
			assert.Equal(t, tt.want, c.DateMatches(tt.label))
		})
	}
}

func TestNotificationKeys(t *testing.T) {
	t.Parallel()

	offer := &SeatOffer{ID: "plan-1", Price: 380}
	assert.Equal(t, NotificationKey("livelab|show-1"), ShowKey(VendorLiveLab, "show-1"))
	assert.Equal(t,
		NotificationKey("livelab|show-1|plan-1|380"),
		MatchKey(VendorLiveLab, "show-1", offer),
	)

	offer.Price = 380.5
	assert.Equal(t,
		NotificationKey("livelab|show-1|plan-1|380.5"),
		MatchKey(VendorLiveLab, "show-1", offer),
	)
}
