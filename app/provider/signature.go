package provider

import (
	"crypto/md5"
	"crypto/subtle"
	"encoding/hex"
	"sort"
	"strings"
)

const hashField = "hash"

// Sign builds the gateway signature: non-empty fields except hash, sorted by
// key, joined as k=v with '&', secret appended, MD5 as lowercase hex.
func Sign(fields map[string]string, secret string) string {
	keys := make([]string, 0, len(fields))
	for key, value := range fields {
		if key == hashField || value == "" {
			continue
		}
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var b strings.Builder
	for i, key := range keys {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(key)
		b.WriteByte('=')
		b.WriteString(fields[key])
	}
	b.WriteString(secret)

	sum := md5.Sum([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}

// VerifySignature recomputes the signature over fields and compares it with fields["hash"].
func VerifySignature(fields map[string]string, secret string) bool {
	received := strings.ToLower(strings.TrimSpace(fields[hashField]))
	if received == "" || secret == "" {
		return false
	}
	expected := Sign(fields, secret)
	return subtle.ConstantTimeCompare([]byte(expected), []byte(received)) == 1
}
