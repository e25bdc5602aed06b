package http

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Reference vector from RFC 2617 section 3.5.
func TestDigestResponse_RFC2617Vector(t *testing.T) {
	creds := Credentials{Username: "Mufasa", Password: "Circle Of Life"}
	ch := challenge{
		Realm: "testrealm@host.com",
		Nonce: "dcd98b7102dd2f0e8b11d0f600bfb0c093",
		Qop:   "auth",
	}

	response := digestResponse(creds, "GET", "/dir/index.html", ch, "00000001", "0a4f113b")

	assert.Equal(t, "6629fae49393a05397450978507c4ef1", response)
}

func TestParseChallenge(t *testing.T) {
	header := `Digest realm="device@10.27.35.4", nonce="abc123", qop="auth", opaque="xyz"`

	ch, ok := parseChallenge(header)

	require.True(t, ok)
	assert.Equal(t, "device@10.27.35.4", ch.Realm)
	assert.Equal(t, "abc123", ch.Nonce)
	assert.Equal(t, "auth", ch.Qop)
	assert.Equal(t, "xyz", ch.Opaque)
}

func TestParseChallenge_QopList(t *testing.T) {
	ch, ok := parseChallenge(`Digest realm="r", nonce="n", qop="auth,auth-int"`)

	require.True(t, ok)
	assert.Equal(t, "auth", ch.Qop)

	ch, ok = parseChallenge(`Digest realm="r", nonce="n", qop="auth-int,auth"`)
	require.True(t, ok)
	assert.Equal(t, "auth", ch.Qop)
}

func TestParseChallenge_QopAuthIntOnly(t *testing.T) {
	ch, ok := parseChallenge(`Digest realm="r", nonce="n", qop="auth-int"`)

	require.True(t, ok)
	assert.Equal(t, "auth-int", ch.Qop)
}

func TestParseChallenge_NotDigest(t *testing.T) {
	_, ok := parseChallenge(`Basic realm="device"`)
	assert.False(t, ok)

	_, ok = parseChallenge("")
	assert.False(t, ok)
}

func TestAuthorize(t *testing.T) {
	creds := Credentials{Username: "admin", Password: "secret"}
	ch := challenge{Realm: "device", Nonce: "n1", Qop: "auth", Opaque: "op"}

	header, err := authorize(creds, "POST", "/api/call/GetContacts", ch)

	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(header, "Digest "))
	assert.Contains(t, header, `username="admin"`)
	assert.Contains(t, header, `realm="device"`)
	assert.Contains(t, header, `nonce="n1"`)
	assert.Contains(t, header, `uri="/api/call/GetContacts"`)
	assert.Contains(t, header, `qop=auth`)
	assert.Contains(t, header, `nc=00000001`)
	assert.Contains(t, header, `cnonce="`)
	assert.Contains(t, header, `opaque="op"`)
}

func TestAuthorize_NoQop(t *testing.T) {
	creds := Credentials{Username: "admin", Password: "secret"}
	ch := challenge{Realm: "device", Nonce: "n1"}

	header, err := authorize(creds, "POST", "/api/call", ch)

	require.NoError(t, err)
	assert.NotContains(t, header, "qop=")
	assert.NotContains(t, header, "nc=")
	assert.NotContains(t, header, "cnonce=")
}
