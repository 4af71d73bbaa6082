package lifecycle

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewTrackingNumber_Format(t *testing.T) {
	seen := map[string]struct{}{}
	for i := 0; i < 1000; i++ {
		n := NewTrackingNumber()
		require.Regexp(t, `^CRJ-[1-9]\d{8}$`, n)
		seen[n] = struct{}{}
	}
	// При 9 случайных цифрах коллизии на 1000 генераций почти невозможны.
	require.Greater(t, len(seen), 990)
}

func TestNewTempID_Format(t *testing.T) {
	for i := 0; i < 100; i++ {
		require.Regexp(t, `^TMP-[A-Z0-9]{8}$`, NewTempID())
	}
}
