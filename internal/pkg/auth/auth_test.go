package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSessions(t *testing.T) {
	_, err := NewSessions("", 0)
	assert.NotNil(t, err)
	s, err := NewSessions("secret", 0)
	require.Nil(t, err)
	assert.Equal(t, time.Hour*24*7, s.ttl)
	s, err = NewSessions("secret", time.Hour)
	require.Nil(t, err)
	assert.Equal(t, time.Hour, s.ttl)
}

func TestToken_Roundtrip(t *testing.T) {
	s, err := NewSessions("secret", time.Hour)
	require.Nil(t, err)
	token, err := s.NewToken(5)
	require.Nil(t, err)
	id, err := s.Parse(token)
	require.Nil(t, err)
	assert.Equal(t, int64(5), id)
}

func TestParse_WrongSecret(t *testing.T) {
	s, err := NewSessions("secret", time.Hour)
	require.Nil(t, err)
	other, err := NewSessions("other", time.Hour)
	require.Nil(t, err)
	token, err := other.NewToken(5)
	require.Nil(t, err)
	_, err = s.Parse(token)
	assert.NotNil(t, err)
}

func TestParse_Garbage(t *testing.T) {
	s, err := NewSessions("secret", time.Hour)
	require.Nil(t, err)
	_, err = s.Parse("olia")
	assert.NotNil(t, err)
	_, err = s.Parse("")
	assert.NotNil(t, err)
}

func TestParse_Expired(t *testing.T) {
	s, err := NewSessions("secret", time.Millisecond)
	require.Nil(t, err)
	token, err := s.NewToken(5)
	require.Nil(t, err)
	time.Sleep(time.Millisecond * 5)
	_, err = s.Parse(token)
	assert.NotNil(t, err)
}

func TestPassword(t *testing.T) {
	hash, err := HashPassword("slaptas")
	require.Nil(t, err)
	assert.NotEqual(t, "slaptas", hash)
	assert.True(t, CheckPassword(hash, "slaptas"))
	assert.False(t, CheckPassword(hash, "kitas"))
	assert.False(t, CheckPassword("", "slaptas"))
}
