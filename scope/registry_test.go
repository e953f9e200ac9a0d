package scope

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParse(t *testing.T) {
	assert := assert.New(t)
	set, err := Parse("read wallet:read read")
	assert.NoError(err)
	assert.Equal(Set{Read, WalletRead}, set)
	assert.Equal("read wallet:read", set.String())
}

func TestParsePlusSeparated(t *testing.T) {
	set, err := Parse("read+profile:read")
	assert.NoError(t, err)
	assert.Equal(t, Set{Read, ProfileRead}, set)
}

func TestParseRejectsWholeRequestOnUnknownScope(t *testing.T) {
	assert := assert.New(t)
	set, err := Parse("read openid")
	assert.Nil(set)
	var unknown *UnknownError
	assert.True(errors.As(err, &unknown))
	assert.Equal("openid", unknown.Scope)
}

func TestParseEmpty(t *testing.T) {
	_, err := Parse("   ")
	assert.ErrorIs(t, err, ErrEmpty)
}

func TestMissingAndCovers(t *testing.T) {
	assert := assert.New(t)
	granted := Set{Read}
	assert.Equal(Set{WalletRead}, granted.Missing(Set{Read, WalletRead}))
	assert.False(granted.Covers(Set{WalletRead}))
	assert.True(Set{Read, WalletRead}.Covers(Set{WalletRead}))
	assert.True(granted.Covers(nil))
}

func TestUnion(t *testing.T) {
	u := Set{Read, WalletRead}.Union(Set{WalletRead, ProfileRead})
	assert.Equal(t, Set{Read, WalletRead, ProfileRead}, u)
}

func TestIntersect(t *testing.T) {
	assert.Equal(t, Set{WalletRead}, Set{Read, WalletRead}.Intersect(Set{WalletRead, ProfileRead}))
	assert.Empty(t, Set{Read}.Intersect(nil))
}

func TestStorageRoundTrip(t *testing.T) {
	assert := assert.New(t)
	set := Set{Read, WritePosts, NotificationsWrite}
	stored := set.ToStorage()
	assert.Equal("read write_posts notifications_write", stored)
	assert.NotContains(stored, ":")
	assert.Equal(set, FromStorage(stored))
}

func TestFromStorageDropsRetiredScopes(t *testing.T) {
	assert.Equal(t, Set{Read}, FromStorage("read admin_everything"))
}

func TestAllIsACopy(t *testing.T) {
	all := All()
	all[0] = "tampered"
	assert.True(t, IsKnown("read"))
	assert.Len(t, All(), 10)
}
