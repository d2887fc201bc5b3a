package misc

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chervil-lang/chervil/pkg/chervil/object"
)

func callStr(t *testing.T, name string, arg string) (string, error) {
	t.Helper()
	f, ok := New().GetFn(name, []string{object.TypeString})
	require.True(t, ok, "missing function %s", name)
	d := object.Str(arg)
	v, err := f.Call(nil, []*object.Dynamic{&d})
	if err != nil {
		return "", err
	}
	s, ok := v.AsString()
	require.True(t, ok)
	return s, nil
}

func TestGzipRoundTrip(t *testing.T) {
	original := strings.Repeat("chervil compresses well ", 50)

	packed, err := callStr(t, "gzip", original)
	require.NoError(t, err)
	assert.Less(t, len(packed), len(original))

	unpacked, err := callStr(t, "gunzip", packed)
	require.NoError(t, err)
	assert.Equal(t, original, unpacked)
}

func TestGunzipGarbage(t *testing.T) {
	_, err := callStr(t, "gunzip", "definitely not gzip data")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "gunzip failed")
}

func TestBlake2b(t *testing.T) {
	a, err := callStr(t, "blake2b", "hello")
	require.NoError(t, err)
	assert.Len(t, a, 64)

	// Deterministic, and sensitive to the input.
	b, err := callStr(t, "blake2b", "hello")
	require.NoError(t, err)
	assert.Equal(t, a, b)

	c, err := callStr(t, "blake2b", "hello!")
	require.NoError(t, err)
	assert.NotEqual(t, a, c)
}
