package ipc_test

import (
	"context"
	"testing"
	"time"

	"github.com/mharrison-oss/sessiond/internal/frame"
	"github.com/mharrison-oss/sessiond/internal/ipc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterDialSend(t *testing.T) {
	reg := ipc.NewRegistry()

	recv, err := reg.Register(0)
	require.NoError(t, err)

	sender, ok := reg.Dial(0)
	require.True(t, ok)

	go func() {
		_ = sender.Send(context.Background(), frame.Empty(-1, frame.KindForkRequest))
	}()

	f, ok := recv.Recv(time.Second)
	require.True(t, ok)
	assert.Equal(t, int32(-1), f.SenderID)
}

func TestRegister_Duplicate(t *testing.T) {
	reg := ipc.NewRegistry()
	_, err := reg.Register(5)
	require.NoError(t, err)

	_, err = reg.Register(5)
	assert.ErrorIs(t, err, ipc.ErrAlreadyRegistered)
}

func TestDial_Unknown(t *testing.T) {
	reg := ipc.NewRegistry()
	_, ok := reg.Dial(99)
	assert.False(t, ok)
}

func TestRecv_Timeout(t *testing.T) {
	reg := ipc.NewRegistry()
	c, err := reg.Register(1)
	require.NoError(t, err)

	_, ok := c.Recv(20 * time.Millisecond)
	assert.False(t, ok)
}

func TestDeregister(t *testing.T) {
	reg := ipc.NewRegistry()
	_, err := reg.Register(2)
	require.NoError(t, err)

	reg.Deregister(2)
	_, ok := reg.Dial(2)
	assert.False(t, ok)
}
