package http

import (
	"crypto/md5"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"strings"
)

// challenge holds the parameters of a WWW-Authenticate digest challenge.
type challenge struct {
	Realm  string
	Nonce  string
	Qop    string
	Opaque string
}

// parseChallenge extracts the digest parameters from a 401 response header.
// It returns false when the header does not announce digest auth.
func parseChallenge(header string) (challenge, bool) {
	if !strings.HasPrefix(strings.ToLower(header), "digest ") {
		return challenge{}, false
	}

	params := make(map[string]string)
	for _, part := range strings.Split(header[len("Digest "):], ",") {
		part = strings.TrimSpace(part)
		idx := strings.Index(part, "=")
		if idx < 0 {
			continue
		}
		key := strings.TrimSpace(part[:idx])
		value := strings.Trim(strings.TrimSpace(part[idx+1:]), `"`)
		params[key] = value
	}

	ch := challenge{
		Realm:  params["realm"],
		Nonce:  params["nonce"],
		Qop:    params["qop"],
		Opaque: params["opaque"],
	}
	// Multiple qop values may be offered; pick plain "auth" only when it is
	// actually in the list. "auth-int" alone must not be rewritten.
	for _, q := range strings.Split(ch.Qop, ",") {
		if strings.TrimSpace(q) == "auth" {
			ch.Qop = "auth"
			break
		}
	}
	return ch, true
}

// digestResponse computes the bare response hash for the given credentials,
// HTTP method and request URI (RFC 2617, MD5). nc and cnonce are only used
// when the challenge carries qop=auth.
func digestResponse(creds Credentials, method, uri string, ch challenge, nc, cnonce string) string {
	ha1 := md5Hex(creds.Username + ":" + ch.Realm + ":" + creds.Password)
	ha2 := md5Hex(method + ":" + uri)
	if ch.Qop == "auth" {
		return md5Hex(strings.Join([]string{ha1, ch.Nonce, nc, cnonce, ch.Qop, ha2}, ":"))
	}
	return md5Hex(ha1 + ":" + ch.Nonce + ":" + ha2)
}

// authorize builds the Authorization header value answering a challenge.
func authorize(creds Credentials, method, uri string, ch challenge) (string, error) {
	var nc, cnonce string
	if ch.Qop == "auth" {
		nc = "00000001"
		var err error
		cnonce, err = newCnonce()
		if err != nil {
			return "", err
		}
	}

	response := digestResponse(creds, method, uri, ch, nc, cnonce)

	parts := []string{
		fmt.Sprintf(`username="%s"`, creds.Username),
		fmt.Sprintf(`realm="%s"`, ch.Realm),
		fmt.Sprintf(`nonce="%s"`, ch.Nonce),
		fmt.Sprintf(`uri="%s"`, uri),
		fmt.Sprintf(`response="%s"`, response),
	}
	if ch.Qop == "auth" {
		parts = append(parts,
			fmt.Sprintf(`qop=%s`, ch.Qop),
			fmt.Sprintf(`nc=%s`, nc),
			fmt.Sprintf(`cnonce="%s"`, cnonce),
		)
	}
	if ch.Opaque != "" {
		parts = append(parts, fmt.Sprintf(`opaque="%s"`, ch.Opaque))
	}

	return "Digest " + strings.Join(parts, ", "), nil
}

func newCnonce() (string, error) {
	b := make([]byte, 8)
	if _, err := io.ReadFull(rand.Reader, b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

func md5Hex(s string) string {
	sum := md5.Sum([]byte(s))
	return hex.EncodeToString(sum[:])
}
