package initdata

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/url"
	"sort"
	"strings"
)

// Sign computes the hash field for the given pairs and returns the full
// query-encoded payload including it. Any existing hash value is replaced.
// It exists for tooling and tests; the host platform performs the same
// derivation when it hands the payload to the embedded application.
func Sign(pairs url.Values, secret []byte) string {
	keys := make([]string, 0, len(pairs))
	for k := range pairs {
		if k == "hash" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var check strings.Builder
	for i, k := range keys {
		for j, v := range pairs[k] {
			if i > 0 || j > 0 {
				check.WriteByte('\n')
			}
			check.WriteString(k)
			check.WriteByte('=')
			check.WriteString(v)
		}
	}

	mac := hmac.New(sha256.New, []byte(signingKeyLabel))
	mac.Write(secret)
	signingKey := mac.Sum(nil)

	mac = hmac.New(sha256.New, signingKey)
	mac.Write([]byte(check.String()))

	signed := url.Values{}
	for k, vs := range pairs {
		if k == "hash" {
			continue
		}
		signed[k] = vs
	}
	signed.Set("hash", hex.EncodeToString(mac.Sum(nil)))
	return signed.Encode()
}
