package oauth

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStore(t *testing.T) (*StateStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewStateStore(rdb, "https://portal.example.com/"), mr
}

func TestStateStore_RoundTrip(t *testing.T) {
	store, mr := newStore(t)
	ctx := context.Background()

	state, err := store.GenerateState(ctx, "https://portal.example.com/plans")
	require.NoError(t, err)
	assert.Len(t, state, 48)
	assert.Equal(t, stateTTL, mr.TTL(stateKeyPrefix+state))

	redirect, err := store.ValidateState(ctx, state)
	require.NoError(t, err)
	assert.Equal(t, "https://portal.example.com/plans", redirect)

	_, err = store.ValidateState(ctx, state)
	assert.ErrorIs(t, err, ErrInvalidState, "state is single use")
}

func TestStateStore_InvalidStates(t *testing.T) {
	store, mr := newStore(t)
	ctx := context.Background()

	_, err := store.ValidateState(ctx, "")
	assert.ErrorIs(t, err, ErrInvalidState)

	_, err = store.ValidateState(ctx, "never-issued")
	assert.ErrorIs(t, err, ErrInvalidState)

	state, err := store.GenerateState(ctx, "")
	require.NoError(t, err)
	mr.FastForward(stateTTL + time.Second)
	_, err = store.ValidateState(ctx, state)
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestStateStore_RedirectAllowlist(t *testing.T) {
	store, _ := newStore(t)
	ctx := context.Background()

	cases := []struct {
		redirect string
		ok       bool
	}{
		{"", true},
		{"/bills?period=current", true},
		{"https://portal.example.com", true},
		{"https://portal.example.com/statements", true},
		{"http://portal.example.com/statements", false},
		{"https://evil.example/steal", false},
		{"//evil.example/steal", false},
		{"bills", false},
	}
	for _, tc := range cases {
		_, err := store.GenerateState(ctx, tc.redirect)
		if tc.ok {
			assert.NoError(t, err, tc.redirect)
		} else {
			assert.ErrorIs(t, err, ErrUnsafeRedirect, tc.redirect)
		}
	}
}
