package coupon

import (
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvaluate(t *testing.T) {
	fixedNow := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	pastTime := fixedNow.Add(-24 * time.Hour)
	futureTime := fixedNow.Add(24 * time.Hour)

	tests := []struct {
		name       string
		rule       *Rule
		base       decimal.Decimal
		quantity   int
		opts       Options
		wantAmount decimal.Decimal
		wantErr    error
	}{
		{
			name: "percentage discount",
			rule: &Rule{
				Code:   "SAVE10",
				Type:   TypePercentage,
				Value:  decimal.NewFromInt(10),
				Active: true,
			},
			base:       decimal.NewFromInt(120),
			quantity:   2,
			opts:       DefaultOptions(),
			wantAmount: decimal.NewFromInt(12),
		},
		{
			name: "percentage clamped to max discount",
			rule: &Rule{
				Code:        "BIGSALE",
				Type:        TypePercentage,
				Value:       decimal.NewFromInt(50),
				MaxDiscount: decimal.NewFromInt(30),
				Active:      true,
			},
			base:       decimal.NewFromInt(200),
			quantity:   1,
			opts:       DefaultOptions(),
			wantAmount: decimal.NewFromInt(30),
		},
		{
			name: "zero max discount means uncapped",
			rule: &Rule{
				Code:   "HALF",
				Type:   TypePercentage,
				Value:  decimal.NewFromInt(50),
				Active: true,
			},
			base:       decimal.NewFromInt(200),
			quantity:   1,
			opts:       DefaultOptions(),
			wantAmount: decimal.NewFromInt(100),
		},
		{
			name: "fixed discount capped at base",
			rule: &Rule{
				Code:   "TAKE50",
				Type:   TypeFixed,
				Value:  decimal.NewFromInt(50),
				Active: true,
			},
			base:       decimal.NewFromInt(40),
			quantity:   1,
			opts:       Options{CapFixedToBase: true},
			wantAmount: decimal.NewFromInt(40),
		},
		{
			name: "fixed discount uncapped when policy disabled",
			rule: &Rule{
				Code:   "TAKE50",
				Type:   TypeFixed,
				Value:  decimal.NewFromInt(50),
				Active: true,
			},
			base:       decimal.NewFromInt(40),
			quantity:   1,
			opts:       Options{CapFixedToBase: false},
			wantAmount: decimal.NewFromInt(50),
		},
		{
			name: "below minimum order amount",
			rule: &Rule{
				Code:           "MIN100",
				Type:           TypePercentage,
				Value:          decimal.NewFromInt(10),
				MinOrderAmount: decimal.NewFromInt(100),
				Active:         true,
			},
			base:     decimal.NewFromInt(60),
			quantity: 1,
			opts:     DefaultOptions(),
			wantErr:  &MinimumNotMetError{Code: "MIN100", Minimum: decimal.NewFromInt(100)},
		},
		{
			name: "below minimum quantity",
			rule: &Rule{
				Code:        "BULK3",
				Type:        TypePercentage,
				Value:       decimal.NewFromInt(30),
				MinQuantity: 3,
				Active:      true,
			},
			base:     decimal.NewFromInt(500),
			quantity: 2,
			opts:     DefaultOptions(),
			wantErr:  ErrInvalidCoupon,
		},
		{
			name: "inactive rule",
			rule: &Rule{
				Code:   "OLD",
				Type:   TypePercentage,
				Value:  decimal.NewFromInt(10),
				Active: false,
			},
			base:     decimal.NewFromInt(100),
			quantity: 1,
			opts:     DefaultOptions(),
			wantErr:  ErrCouponExpired,
		},
		{
			name: "before validity window",
			rule: &Rule{
				Code:      "SOON",
				Type:      TypePercentage,
				Value:     decimal.NewFromInt(10),
				Active:    true,
				ValidFrom: &futureTime,
			},
			base:     decimal.NewFromInt(100),
			quantity: 1,
			opts:     DefaultOptions(),
			wantErr:  ErrCouponExpired,
		},
		{
			name: "after validity window",
			rule: &Rule{
				Code:       "GONE",
				Type:       TypePercentage,
				Value:      decimal.NewFromInt(10),
				Active:     true,
				ValidUntil: &pastTime,
			},
			base:     decimal.NewFromInt(100),
			quantity: 1,
			opts:     DefaultOptions(),
			wantErr:  ErrCouponExpired,
		},
		{
			name: "usage limit exhausted",
			rule: &Rule{
				Code:    "LIMITED",
				Type:    TypePercentage,
				Value:   decimal.NewFromInt(10),
				Active:  true,
				MaxUses: 5,
				Uses:    5,
			},
			base:     decimal.NewFromInt(100),
			quantity: 1,
			opts:     DefaultOptions(),
			wantErr:  ErrCouponUsageLimitReached,
		},
		{
			name: "fractional percentage rounds to cents",
			rule: &Rule{
				Code:   "SAVE15",
				Type:   TypePercentage,
				Value:  decimal.NewFromInt(15),
				Active: true,
			},
			base:       decimal.RequireFromString("33.33"),
			quantity:   1,
			opts:       DefaultOptions(),
			wantAmount: decimal.NewFromInt(5),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := Evaluate(tt.rule, tt.base, tt.quantity, fixedNow, tt.opts)

			if tt.wantErr != nil {
				require.Error(t, err)
				var minErr *MinimumNotMetError
				if errors.As(tt.wantErr, &minErr) {
					var got *MinimumNotMetError
					require.ErrorAs(t, err, &got)
					assert.True(t, got.Minimum.Equal(minErr.Minimum))
				} else {
					assert.ErrorIs(t, err, tt.wantErr)
				}
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.rule.Code, d.Code)
			assert.True(t, d.Amount.Equal(tt.wantAmount),
				"amount = %s, want %s", d.Amount, tt.wantAmount)
		})
	}
}

func TestNormalizeCode(t *testing.T) {
	assert.Equal(t, "SAVE10", NormalizeCode("  save10 "))
	assert.Equal(t, "FLASH30", NormalizeCode("Flash30"))
}
