package coupon

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockCouponRepo struct {
	rule        *Rule
	err         error
	redeemOK    bool
	redeemErr   error
	redeemCalls []string
	lookupCodes []string
}

func (m *mockCouponRepo) FindByCode(_ context.Context, code string) (*Rule, error) {
	m.lookupCodes = append(m.lookupCodes, code)
	return m.rule, m.err
}

func (m *mockCouponRepo) RedeemUse(_ context.Context, code string) (bool, error) {
	m.redeemCalls = append(m.redeemCalls, code)
	return m.redeemOK, m.redeemErr
}

func fixedResolver(repo Repository) *RepoResolver {
	r := NewRepoResolver(repo, DefaultOptions())
	r.now = func() time.Time { return time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC) }
	return r
}

func TestRepoResolver_Validate(t *testing.T) {
	repo := &mockCouponRepo{
		rule: &Rule{
			Code:   "SAVE10",
			Type:   TypePercentage,
			Value:  decimal.NewFromInt(10),
			Active: true,
		},
		redeemOK: true,
	}
	r := fixedResolver(repo)

	d, err := r.Validate(context.Background(), "save10", decimal.NewFromInt(200), 2)
	require.NoError(t, err)
	assert.True(t, d.Amount.Equal(decimal.NewFromInt(20)))

	// Validation must not consume a use.
	assert.Empty(t, repo.redeemCalls)
	// Lookup sees the normalized code.
	require.Len(t, repo.lookupCodes, 1)
	assert.Equal(t, "SAVE10", repo.lookupCodes[0])
}

func TestRepoResolver_Validate_UnknownCode(t *testing.T) {
	repo := &mockCouponRepo{err: ErrInvalidCoupon}
	r := fixedResolver(repo)

	_, err := r.Validate(context.Background(), "BOGUS", decimal.NewFromInt(100), 1)
	assert.ErrorIs(t, err, ErrInvalidCoupon)
}

func TestRepoResolver_Redeem(t *testing.T) {
	repo := &mockCouponRepo{
		rule: &Rule{
			Code:   "SAVE10",
			Type:   TypePercentage,
			Value:  decimal.NewFromInt(10),
			Active: true,
		},
		redeemOK: true,
	}
	r := fixedResolver(repo)

	d, err := r.Redeem(context.Background(), "SAVE10", decimal.NewFromInt(100), 1)
	require.NoError(t, err)
	assert.True(t, d.Amount.Equal(decimal.NewFromInt(10)))

	require.Len(t, repo.redeemCalls, 1)
	assert.Equal(t, "SAVE10", repo.redeemCalls[0])
}

func TestRepoResolver_Redeem_CapExhausted(t *testing.T) {
	// The rule still looks redeemable, but the atomic increment loses the
	// race against the cap.
	repo := &mockCouponRepo{
		rule: &Rule{
			Code:    "LIMITED",
			Type:    TypeFixed,
			Value:   decimal.NewFromInt(5),
			Active:  true,
			MaxUses: 10,
			Uses:    9,
		},
		redeemOK: false,
	}
	r := fixedResolver(repo)

	_, err := r.Redeem(context.Background(), "LIMITED", decimal.NewFromInt(100), 1)
	assert.ErrorIs(t, err, ErrCouponUsageLimitReached)
}

func TestRepoResolver_Redeem_InvalidRuleDoesNotConsume(t *testing.T) {
	repo := &mockCouponRepo{
		rule: &Rule{
			Code:   "OLD",
			Type:   TypePercentage,
			Value:  decimal.NewFromInt(10),
			Active: false,
		},
		redeemOK: true,
	}
	r := fixedResolver(repo)

	_, err := r.Redeem(context.Background(), "OLD", decimal.NewFromInt(100), 1)
	assert.ErrorIs(t, err, ErrCouponExpired)
	assert.Empty(t, repo.redeemCalls)
}
