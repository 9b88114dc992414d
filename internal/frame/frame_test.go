package frame_test

import (
	"testing"

	"github.com/mharrison-oss/sessiond/internal/frame"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoundTrip_Empty(t *testing.T) {
	f := frame.Empty(-3, frame.KindForkRequest)

	data, err := f.MarshalBinary()
	require.NoError(t, err)

	got, err := frame.Decode(data)
	require.NoError(t, err)
	assert.Equal(t, f.SenderID, got.SenderID)
	assert.Equal(t, f.Kind, got.Kind)
	assert.Empty(t, got.Payload)
}

func TestRoundTrip_Blob(t *testing.T) {
	f := frame.BlobString(42, frame.KindInitRequest, "hello world")

	data, err := f.MarshalBinary()
	require.NoError(t, err)

	got, err := frame.Decode(data)
	require.NoError(t, err)
	assert.Equal(t, f.SenderID, got.SenderID)
	assert.Equal(t, f.Kind, got.Kind)
	assert.Equal(t, f.Payload, got.Payload)
}

func TestRoundTrip_Value(t *testing.T) {
	f := frame.Value(0, -1)
	assert.Equal(t, frame.KindForkReply, f.Kind)

	data, err := f.MarshalBinary()
	require.NoError(t, err)

	got, err := frame.Decode(data)
	require.NoError(t, err)

	v, err := got.AsValue()
	require.NoError(t, err)
	assert.EqualValues(t, -1, v)
}

func TestRoundTrip_ReleaseOutput(t *testing.T) {
	f := frame.ReleaseOutput(7, "partial output", true)

	data, err := f.MarshalBinary()
	require.NoError(t, err)

	got, err := frame.Decode(data)
	require.NoError(t, err)

	output, hasMore, err := got.AsReleaseOutput()
	require.NoError(t, err)
	assert.Equal(t, "partial output", output)
	assert.True(t, hasMore)
}

func TestReleaseOutput_NoMore(t *testing.T) {
	f := frame.ReleaseOutput(7, "", false)
	data, err := f.MarshalBinary()
	require.NoError(t, err)

	got, err := frame.Decode(data)
	require.NoError(t, err)

	output, hasMore, err := got.AsReleaseOutput()
	require.NoError(t, err)
	assert.Equal(t, "", output)
	assert.False(t, hasMore)
}

func TestDecode_ShortBuffer(t *testing.T) {
	_, err := frame.Decode([]byte{1, 2, 3})
	assert.ErrorIs(t, err, frame.ErrShortFrame)
}
