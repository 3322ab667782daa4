package thread

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/veridian-os/kernel/internal/arch"
	"github.com/veridian-os/kernel/internal/ktypes"
)

func TestNewThreadStartsReady(t *testing.T) {
	th := New(1, 1, "init", arch.NewGenericContext())
	assert.Equal(t, StateReady, th.State())
}

func TestLegalTransitionSequence(t *testing.T) {
	th := New(1, 1, "init", arch.NewGenericContext())
	assert.Zero(t, int(th.SetState(StateRunning)))
	assert.Zero(t, int(th.SetState(StateBlocked)))
	assert.Zero(t, int(th.SetState(StateReady)))
	assert.Zero(t, int(th.SetState(StateRunning)))
	assert.Zero(t, int(th.SetState(StateZombie)))
	assert.Zero(t, int(th.SetState(StateDead)))
}

func TestIllegalTransitionIsRejected(t *testing.T) {
	th := New(1, 1, "init", arch.NewGenericContext())
	assert.Zero(t, int(th.SetState(StateRunning)))
	assert.Zero(t, int(th.SetState(StateZombie)))
	assert.Zero(t, int(th.SetState(StateDead)))
	assert.Equal(t, ktypes.EBADSTATE, th.SetState(StateRunning), "Dead -> Running must be rejected")
}

func TestBlockRecordsReason(t *testing.T) {
	th := New(1, 1, "init", arch.NewGenericContext())
	th.SetState(StateRunning)
	assert.Zero(t, int(th.Block(BlockReason("endpoint:3"))))
	assert.Equal(t, StateBlocked, th.State())
	assert.Equal(t, BlockReason("endpoint:3"), th.BlockedOn)
}
