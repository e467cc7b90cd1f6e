package debug

import (
	"runtime"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBuildInfo(t *testing.T) {
	info := BuildInfo()
	require.NotEmpty(t, info)
	require.Contains(t, info, runtime.Version())
}
