package assert

import (
	"testing"

	"github.com/stretchr/testify/require"
)

type sink interface{ Flush() }

type fileSink struct{}

func (*fileSink) Flush() {}

func TestNotNil(t *testing.T) {
	var typedNil *fileSink
	var iface sink = typedNil
	var fn func()

	require.Panics(t, func() { NotNil(nil) })
	require.Panics(t, func() { NotNil(iface) })
	require.Panics(t, func() { NotNil(fn) })
	require.NotPanics(t, func() { NotNil(&fileSink{}) })
	require.NotPanics(t, func() { NotNil(struct{}{}) })
	require.NotPanics(t, func() { NotNil(0) })
}

func TestNotEmpty(t *testing.T) {
	require.PanicsWithValue(t, "expected base url to be non-empty", func() { NotEmpty("base url", "") })
	require.NotPanics(t, func() { NotEmpty("base url", "https://www.usmint.gov") })
}
