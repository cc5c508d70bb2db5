//go:build !windows

package rlimit

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

func TestMaximize(t *testing.T) {
	soft, err := Maximize()
	require.NoError(t, err)
	assert.Greater(t, soft, uint64(0))

	var lim unix.Rlimit
	require.NoError(t, unix.Getrlimit(unix.RLIMIT_NOFILE, &lim))
	assert.Equal(t, lim.Max, lim.Cur, "soft limit should match the hard cap after Maximize")
	assert.Equal(t, lim.Cur, soft)
}

func TestMaximizeIdempotent(t *testing.T) {
	first, err := Maximize()
	require.NoError(t, err)

	second, err := Maximize()
	require.NoError(t, err)
	assert.Equal(t, first, second)
}
