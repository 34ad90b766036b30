package lthread

import (
	"testing"

	"github.com/joeholt/lthread/scheduler"
	"github.com/stretchr/testify/require"
)

func TestResolveMailboxOptionsDefaults(t *testing.T) {
	cfg := resolveMailboxOptions(nil)
	require.Equal(t, 0, cfg.maxMsgs)
	require.Equal(t, PolicyBlock, cfg.policy)
	require.Nil(t, cfg.predicate)
}

func TestResolveMailboxOptionsApplied(t *testing.T) {
	cfg := resolveMailboxOptions([]MailboxOption{
		WithMaxMessages(3),
		WithOverflowPolicy(PolicyDrop),
	})
	require.Equal(t, 3, cfg.maxMsgs)
	require.Equal(t, PolicyDrop, cfg.policy)
}

func TestWithOverflowPredicateClearsFixedPolicyIntent(t *testing.T) {
	predicate := func(Tid) bool { return true }
	cfg := resolveMailboxOptions([]MailboxOption{
		WithOverflowPolicy(PolicyThrowFull),
		WithOverflowPredicate(predicate),
	})
	require.NotNil(t, cfg.predicate)
}

func TestSetSchedulerRejectedAfterFirstSpawn(t *testing.T) {
	defer installScheduler(t, scheduler.NewKernelScheduler())

	installScheduler(t, scheduler.NewKernelScheduler())
	markSpawned()
	err := SetScheduler(scheduler.NewKernelScheduler())
	require.ErrorIs(t, err, ErrSchedulerAlreadySet)
}

func TestOverflowPolicyStringer(t *testing.T) {
	require.Equal(t, "block", PolicyBlock.String())
	require.Equal(t, "throw-full", PolicyThrowFull.String())
	require.Equal(t, "drop", PolicyDrop.String())
}
