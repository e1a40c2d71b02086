package state

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type session struct {
	User string
}

func TestPutBorrowTake(t *testing.T) {
	s := New()

	Put(s, session{User: "alice"})

	got, err := Borrow[session](s)
	require.NoError(t, err)
	assert.Equal(t, "alice", got.User)

	taken, err := Take[session](s)
	require.NoError(t, err)
	assert.Equal(t, "alice", taken.User)

	_, err = Borrow[session](s)
	require.Error(t, err)
	var se *Error
	require.ErrorAs(t, err, &se)
	assert.Equal(t, OpBorrow, se.Op)
}

func TestPutLastWriteWins(t *testing.T) {
	s := New()

	Put(s, session{User: "first"})
	Put(s, session{User: "second"})

	got, err := Borrow[session](s)
	require.NoError(t, err)
	assert.Equal(t, "second", got.User)

	taken, err := Take[session](s)
	require.NoError(t, err)
	assert.Equal(t, "second", taken.User)

	_, err = Borrow[session](s)
	assert.Error(t, err)
}

func TestDistinctTypesDoNotCollide(t *testing.T) {
	type other struct{ N int }
	s := New()

	Put(s, session{User: "alice"})
	Put(s, other{N: 7})

	sess, err := Borrow[session](s)
	require.NoError(t, err)
	o, err := Borrow[other](s)
	require.NoError(t, err)

	assert.Equal(t, "alice", sess.User)
	assert.Equal(t, 7, o.N)
}

func TestTakeOfAbsentType(t *testing.T) {
	s := New()

	_, err := Take[session](s)
	var se *Error
	require.ErrorAs(t, err, &se)
	assert.Equal(t, OpTake, se.Op)
	assert.Contains(t, se.Error(), "take")
}

func TestMustBorrowPanics(t *testing.T) {
	s := New()
	assert.Panics(t, func() { MustBorrow[session](s) })
}

func TestCleanupLIFO(t *testing.T) {
	s := New()
	var order []int

	s.OnCleanup(func() { order = append(order, 1) })
	s.OnCleanup(func() { order = append(order, 2) })
	s.OnCleanup(func() { order = append(order, 3) })

	s.RunCleanup()
	assert.Equal(t, []int{3, 2, 1}, order)

	// A second drain must not re-run hooks.
	s.RunCleanup()
	assert.Equal(t, []int{3, 2, 1}, order)
}

func TestParams(t *testing.T) {
	p := Params{"id": "42"}
	assert.Equal(t, "42", p.Get("id"))
	assert.Equal(t, "", p.Get("missing"))
}
