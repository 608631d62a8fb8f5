package textutil

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNormalizeName(t *testing.T) {
	require.Equal(t, "halfdollar", NormalizeName("  Half \tDollar\n"))
}

func TestClosest(t *testing.T) {
	candidates := []string{"Penny", "Nickel", "Dime", "Quarter", "Half Dollar"}

	best, similarity := Closest("Quartr", candidates)
	require.Equal(t, "Quarter", best)
	require.Greater(t, similarity, 0.8)

	best, similarity = Closest("half-dollar", candidates)
	require.Equal(t, "Half Dollar", best)
	require.Greater(t, similarity, 0.8)

	best, similarity = Closest("anything", nil)
	require.Equal(t, "", best)
	require.Equal(t, 0.0, similarity)
}
