package timecode

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToSeconds(t *testing.T) {
	secs, err := ToSeconds("01:02:03")
	require.NoError(t, err)
	assert.Equal(t, 3723, secs)

	secs, err = ToSeconds("00:00:00")
	require.NoError(t, err)
	assert.Equal(t, 0, secs)

	_, err = ToSeconds("1:02")
	assert.Error(t, err)

	_, err = ToSeconds("aa:bb:cc")
	assert.Error(t, err)
}

func TestFromSeconds(t *testing.T) {
	assert.Equal(t, "01:02:01", FromSeconds(3721))
	assert.Equal(t, "00:00:00", FromSeconds(0))
	assert.Equal(t, "00:00:00", FromSeconds(-5))
	assert.Equal(t, "10:00:00", FromSeconds(36000))
}

func TestAdjust(t *testing.T) {
	adjusted, err := Adjust("01:01:01", 60)
	require.NoError(t, err)
	assert.Equal(t, "01:02:01", adjusted)

	// Adjusting below zero clamps to the timeline start.
	adjusted, err = Adjust("00:00:01", -10)
	require.NoError(t, err)
	assert.Equal(t, "00:00:00", adjusted)
}
