package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/negomesh/core"
	"github.com/hupe1980/negomesh/env"
)

func testFactory(p Params) (core.Episode, error) {
	return env.NewSinglePair(120, 80)
}

func TestRegisterAndMake(t *testing.T) {
	r := New()
	require.NoError(t, r.Register("Test_env-v0", testFactory))

	ep, err := r.Make("Test_env-v0", nil)
	require.NoError(t, err)
	require.NotNil(t, ep)
	defer ep.Close()
}

func TestRegisterIDPattern(t *testing.T) {
	r := New()
	for _, id := range []string{"", "noversion", "Test_env", "Test_env-v", "Test_env-vX", "_env-v0", "Test-v0"} {
		err := r.Register(id, testFactory)
		assert.ErrorIs(t, err, core.ErrInvalidArgument, "id %q", id)
	}
	assert.NoError(t, r.Register("Negotiation_my_env2-v12", testFactory))
}

func TestRegisterNilFactory(t *testing.T) {
	r := New()
	err := r.Register("Test_env-v0", nil)
	assert.ErrorIs(t, err, core.ErrInvalidArgument)
}

func TestRegisterDuplicate(t *testing.T) {
	r := New()
	require.NoError(t, r.Register("Test_env-v0", testFactory))
	err := r.Register("Test_env-v0", testFactory)
	assert.ErrorIs(t, err, ErrDuplicateID)
}

func TestMakeUnknown(t *testing.T) {
	r := New()
	_, err := r.Make("Test_missing-v0", nil)
	assert.ErrorIs(t, err, ErrUnknownID)
}

func TestMakeMergesOverrides(t *testing.T) {
	r := New()
	var got Params
	require.NoError(t, r.Register("Test_env-v0", func(p Params) (core.Episode, error) {
		got = p
		return testFactory(p)
	}, func(o *RegisterOptions) {
		o.Defaults = Params{"buyer_max_price": 120.0, "seller_min_price": 80.0}
		o.MaxEpisodeSteps = 7
	}))

	_, err := r.Make("Test_env-v0", Params{"buyer_max_price": 200.0})
	require.NoError(t, err)

	v, _ := got.Float("buyer_max_price")
	assert.Equal(t, 200.0, v)
	v, _ = got.Float("seller_min_price")
	assert.Equal(t, 80.0, v)
	n, _ := got.Int("max_rounds")
	assert.Equal(t, 7, n)

	// An explicit max_rounds override wins over MaxEpisodeSteps.
	_, err = r.Make("Test_env-v0", Params{"max_rounds": 3})
	require.NoError(t, err)
	n, _ = got.Int("max_rounds")
	assert.Equal(t, 3, n)
}

func TestMakeDoesNotMutateDefaults(t *testing.T) {
	r := New()
	var got Params
	require.NoError(t, r.Register("Test_env-v0", func(p Params) (core.Episode, error) {
		got = p
		return testFactory(p)
	}, func(o *RegisterOptions) {
		o.Defaults = Params{"buyer_max_price": 120.0}
	}))

	_, err := r.Make("Test_env-v0", Params{"buyer_max_price": 99.0})
	require.NoError(t, err)
	_, err = r.Make("Test_env-v0", nil)
	require.NoError(t, err)

	v, _ := got.Float("buyer_max_price")
	assert.Equal(t, 120.0, v)
}

func TestListRegistrationOrder(t *testing.T) {
	r := New()
	require.NoError(t, r.Register("Test_b-v0", testFactory))
	require.NoError(t, r.Register("Test_a-v0", testFactory))

	var ids []string
	for id := range r.List() {
		ids = append(ids, id)
	}
	assert.Equal(t, []string{"Test_b-v0", "Test_a-v0"}, ids)

	// The sequence is restartable and supports early exit.
	for id := range r.List() {
		assert.Equal(t, "Test_b-v0", id)
		break
	}
}

func TestSnapshotIsolation(t *testing.T) {
	r := New()
	require.NoError(t, r.Register("Test_a-v0", testFactory))

	snap := r.Snapshot()
	require.NoError(t, snap.Register("Test_b-v0", testFactory))

	_, err := r.Make("Test_b-v0", nil)
	assert.ErrorIs(t, err, ErrUnknownID)
	_, err = snap.Make("Test_a-v0", nil)
	assert.NoError(t, err)
}
