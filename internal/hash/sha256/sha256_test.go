package sha256

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestKey(t *testing.T) {
	t.Parallel()

	h := New()
	require.Equal(t, "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855", h.Key(""))

	a := h.Key("https://www.domestika.org/es/jobs/1001-product-designer")
	require.Len(t, a, 64)
	require.Equal(t, a, h.Key("https://www.domestika.org/es/jobs/1001-product-designer"))
	require.NotEqual(t, a, h.Key("https://www.domestika.org/es/jobs/1002-ux-researcher"))
	require.Len(t, h.Key(strings.Repeat("x", 10_000)), 64)
}
