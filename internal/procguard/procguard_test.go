package procguard_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"secureshed/internal/procguard"
)

func TestAcquireThenReleaseAllowsReacquire(t *testing.T) {
	path := filepath.Join(t.TempDir(), "guard.lock")

	guard, err := procguard.Acquire(path)
	require.NoError(t, err)
	require.NoError(t, guard.Release())

	guard2, err := procguard.Acquire(path)
	require.NoError(t, err)
	require.NoError(t, guard2.Release())
}

func TestAcquireFailsWhenAlreadyHeld(t *testing.T) {
	path := filepath.Join(t.TempDir(), "guard.lock")

	guard, err := procguard.Acquire(path)
	require.NoError(t, err)
	defer guard.Release()

	_, err = procguard.Acquire(path)
	require.Error(t, err)
}
