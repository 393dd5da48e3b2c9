package api

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHostMatcher(t *testing.T) {
	m, err := NewHostMatcher([]string{"*.example.com", "localhost", " Intranet.Local "})
	require.NoError(t, err)

	assert.True(t, m.Allow("www.example.com"))
	assert.True(t, m.Allow("a.b.example.com"))
	assert.True(t, m.Allow("LOCALHOST"))
	assert.True(t, m.Allow("intranet.local"))
	assert.False(t, m.Allow("example.com"))
	assert.False(t, m.Allow("example.org"))
}

func TestHostMatcher_Wildcard(t *testing.T) {
	m, err := NewHostMatcher([]string{"*"})
	require.NoError(t, err)
	assert.True(t, m.Allow("anything.at.all"))
}

func TestHostMatcher_EmptyAllowsNothing(t *testing.T) {
	m, err := NewHostMatcher(nil)
	require.NoError(t, err)
	assert.False(t, m.Allow("example.com"))
}

func TestHostMatcher_AllowURL(t *testing.T) {
	m, err := NewHostMatcher([]string{"example.com"})
	require.NoError(t, err)

	ok, err := m.AllowURL("https://example.com:8443/path?q=1")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = m.AllowURL("http://other.com/")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = m.AllowURL("ftp://example.com/")
	assert.ErrorContains(t, err, "only http and https")

	_, err = m.AllowURL("https:///nohost")
	assert.ErrorContains(t, err, "missing host")

	_, err = m.AllowURL("://bad")
	assert.Error(t, err)
}
