package settlement

import (
	"context"
	"testing"

	"taskona-ledger-go/internal/models"
	"taskona-ledger-go/internal/money"

	"github.com/stretchr/testify/require"
)

func TestActivateAccount_CreditsWelcomeBonus(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.register(t, "alice", "")
	require.Equal(t, money.Zero, env.balance(t, "alice"))

	res, err := env.engine.ActivateAccount(ctx, "alice", "PSK-ACT-1")
	require.NoError(t, err)
	require.Equal(t, money.FromNaira(1500), res.Balance)
	require.Equal(t, money.FromNaira(1500), res.TotalEarned)
	require.Len(t, res.EntryIds, 2)

	account, err := env.engine.Account(ctx, "alice")
	require.NoError(t, err)
	require.True(t, account.IsActivated)
	require.NotNil(t, account.ActivationDate)
	require.Equal(t, "PSK-ACT-1", account.ActivationRef)
	require.Equal(t, money.FromNaira(1500), account.Balance)
	require.Equal(t, money.FromNaira(1500), account.TotalEarned)

	require.Len(t, env.entriesOfKind(t, "alice", models.KindWelcomeBonus), 1)
	fees := env.entriesOfKind(t, "alice", models.KindActivationFee)
	require.Len(t, fees, 1)
	require.Equal(t, money.Zero, fees[0].Amount)
	env.requireBalanced(t, "alice")
}

func TestActivateAccount_SecondActivationReturnsPriorResult(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.register(t, "alice", "")

	first, err := env.engine.ActivateAccount(ctx, "alice", "PSK-ACT-1")
	require.NoError(t, err)

	replay, err := env.engine.ActivateAccount(ctx, "alice", "PSK-ACT-1")
	require.ErrorIs(t, err, ErrAlreadyActivated)
	require.True(t, replay.Replayed)
	require.Equal(t, first.EntryIds, replay.EntryIds)

	other, err := env.engine.ActivateAccount(ctx, "alice", "PSK-ACT-2")
	require.ErrorIs(t, err, ErrAlreadyActivated)
	require.Equal(t, KindPrecondition, KindOf(err))
	require.NotNil(t, other)
	require.Equal(t, "PSK-ACT-1", other.IdempotencyKey)

	require.Equal(t, money.FromNaira(1500), env.balance(t, "alice"))
	require.Len(t, env.entriesOfKind(t, "alice", models.KindWelcomeBonus), 1)
}

func TestActivateAccount_FeeReferenceBelongsToOneUser(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.register(t, "alice", "")
	env.register(t, "bob", "")

	_, err := env.engine.ActivateAccount(ctx, "alice", "PSK-ACT-1")
	require.NoError(t, err)

	_, err = env.engine.ActivateAccount(ctx, "bob", "PSK-ACT-1")
	require.ErrorIs(t, err, ErrIdempotencyConflict)
	require.Equal(t, money.Zero, env.balance(t, "bob"))
}

func TestActivateAccount_DebitedFeeNeedsBalance(t *testing.T) {
	env := newTestEnv(t, func(p *models.LedgerPolicy) {
		p.ActivationFeeDebit = true
	})
	ctx := context.Background()
	env.register(t, "alice", "")

	_, err := env.engine.ActivateAccount(ctx, "alice", "PSK-ACT-1")
	require.ErrorIs(t, err, ErrInsufficientBalance)

	env.fund(t, "alice", money.FromNaira(1000))

	// The failed key is reclaimed once the balance covers the fee.
	res, err := env.engine.ActivateAccount(ctx, "alice", "PSK-ACT-1")
	require.NoError(t, err)
	require.False(t, res.Replayed)
	require.Equal(t, money.FromNaira(1500), res.Balance)

	fees := env.entriesOfKind(t, "alice", models.KindActivationFee)
	require.Len(t, fees, 1)
	require.Equal(t, money.FromNaira(-1000), fees[0].Amount)
	env.requireBalanced(t, "alice")

	record, err := env.store.GetIdempotencyRecord(ctx, "PSK-ACT-1")
	require.NoError(t, err)
	require.Equal(t, models.KeyCompleted, record.Status)
	require.Equal(t, 2, record.Attempts)
}

func TestActivateAccount_Validation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.engine.ActivateAccount(ctx, "alice", "")
	require.ErrorIs(t, err, ErrMissingReference)

	_, err = env.engine.ActivateAccount(ctx, "ghost", "PSK-ACT-9")
	require.ErrorIs(t, err, ErrAccountNotFound)
	require.Equal(t, KindNotFound, KindOf(err))
}

func TestActivateAccount_PaysReferrerAutomatically(t *testing.T) {
	env := newTestEnv(t, func(p *models.LedgerPolicy) {
		p.AutoPayReferral = true
	})
	ctx := context.Background()
	referrer := env.register(t, "alice", "")
	env.register(t, "bob", referrer.ReferralCode)

	_, err := env.engine.ActivateAccount(ctx, "bob", "PSK-ACT-BOB")
	require.NoError(t, err)

	require.Equal(t, money.FromNaira(300), env.balance(t, "alice"))
	edges, err := env.engine.Referrals(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, edges, 1)
	require.Equal(t, money.FromNaira(300), edges[0].BonusPaid)

	// An admin retry of the same payout is a benign repeat.
	_, err = env.engine.PayReferralBonus(ctx, "alice", "bob")
	require.ErrorIs(t, err, ErrAlreadyPaid)
	require.Equal(t, money.FromNaira(300), env.balance(t, "alice"))
}
