package capspace

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/veridian-os/kernel/internal/ktypes"
)

func TestInsertLookupRoundTrip(t *testing.T) {
	s := New()
	obj := ktypes.RefEndpoint(7)
	tok := s.Insert(obj, ktypes.READ|ktypes.WRITE, true, false)

	e, err := s.Lookup(tok)
	require.Zero(t, int(err))
	assert.Equal(t, obj, e.Object)
	assert.True(t, e.Rights.Has(ktypes.READ))
}

func TestRevokeInvalidatesToken(t *testing.T) {
	s := New()
	tok := s.Insert(ktypes.RefProcess(3), ktypes.READ, false, false)
	require.Zero(t, int(s.Revoke(tok)))

	_, err := s.Lookup(tok)
	assert.Equal(t, ktypes.EINVALCAP, err)
}

func TestRevokeThenReinsertReusesSlotWithNewGeneration(t *testing.T) {
	s := New()
	tok1 := s.Insert(ktypes.RefProcess(1), ktypes.READ, false, false)
	require.Zero(t, int(s.Revoke(tok1)))

	tok2 := s.Insert(ktypes.RefProcess(2), ktypes.WRITE, false, false)
	assert.NotEqual(t, tok1, tok2, "reused slot must carry a bumped generation")

	_, err := s.Lookup(tok1)
	assert.Equal(t, ktypes.EINVALCAP, err, "stale token from before revoke must never resolve to the new occupant")
}

func TestDeriveEnforcesSubsetRights(t *testing.T) {
	s := New()
	parent := s.Insert(ktypes.RefEndpoint(1), ktypes.SEND|ktypes.RECEIVE|ktypes.GRANT, false, false)

	child, err := s.Derive(parent, ktypes.SEND)
	require.Zero(t, int(err))
	require.Zero(t, int(s.CheckRights(child, ktypes.SEND)))
	assert.Equal(t, ktypes.EACCES, s.CheckRights(child, ktypes.RECEIVE))

	_, err = s.Derive(parent, ktypes.SEND|ktypes.DUPLICATE)
	assert.Equal(t, ktypes.EACCES, err, "derive must reject a superset of the parent's rights")
}

func TestCloneForForkKeepsOnlyForkInheritable(t *testing.T) {
	parent := New()
	forkable := parent.Insert(ktypes.RefFile(1), ktypes.READ, true, false)
	execOnly := parent.Insert(ktypes.RefFile(2), ktypes.READ, false, true)

	child := New()
	child.CloneForFork(parent)

	_, err := child.Lookup(forkable)
	assert.Zero(t, int(err))
	_, err = child.Lookup(execOnly)
	assert.Equal(t, ktypes.EINVALCAP, err)
}

func TestCloneForExecKeepsOnlyExecInheritable(t *testing.T) {
	current := New()
	forkOnly := current.Insert(ktypes.RefFile(1), ktypes.READ, true, false)
	execable := current.Insert(ktypes.RefFile(2), ktypes.READ, false, true)

	fresh := New()
	fresh.CloneForExec(current)

	_, err := fresh.Lookup(execable)
	assert.Zero(t, int(err))
	_, err = fresh.Lookup(forkOnly)
	assert.Equal(t, ktypes.EINVALCAP, err)
}

func TestLookupOutOfRangeIndexIsInvalidCapability(t *testing.T) {
	s := New()
	assert.Equal(t, ktypes.EINVALCAP, s.CheckRights(Token(0xffffffff), ktypes.READ))
}

func TestFirstInsertNeverMintsInvalidToken(t *testing.T) {
	s := New()
	tok := s.Insert(ktypes.RefProcess(1), ktypes.READ, false, false)
	assert.NotEqual(t, Invalid, tok, "slot 0 must stay reserved so callers can use Invalid as a sentinel")

	_, err := s.Lookup(Invalid)
	assert.Equal(t, ktypes.EINVALCAP, err)
}

func TestCloneKeepsSlotZeroReserved(t *testing.T) {
	parent := New()
	parent.Insert(ktypes.RefFile(1), ktypes.READ, true, false)

	child := New()
	child.CloneForFork(parent)

	_, err := child.Lookup(Invalid)
	assert.Equal(t, ktypes.EINVALCAP, err)

	tok := child.Insert(ktypes.RefFile(2), ktypes.READ, false, false)
	assert.NotEqual(t, Invalid, tok)
}
