package payment

import (
	"crypto/md5"
	"encoding/hex"
	"sort"
	"strings"
)

// Z-Pay (Alipay-compatible) MD5 signing. MD5 is the channel's protocol, not a
// choice this service controls.
//
// Canonical string: drop "sign", "sign_type" and any empty-valued key, sort the
// remaining keys bytewise, join as k1=v1&k2=v2, then append &key=<secret>.
// Omitting the &key= separator produces a signature the channel rejects; the
// separator is covered by a regression test.

// CanonicalString builds the string to be hashed from callback parameters.
func CanonicalString(params map[string]string, secret string) string {
	keys := make([]string, 0, len(params))
	for k, v := range params {
		if k == "sign" || k == "sign_type" || v == "" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for i, k := range keys {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(params[k])
	}
	b.WriteString("&key=")
	b.WriteString(secret)
	return b.String()
}

// Sign computes the lowercase hex MD5 signature over the canonical string.
func Sign(params map[string]string, secret string) string {
	sum := md5.Sum([]byte(CanonicalString(params, secret)))
	return hex.EncodeToString(sum[:])
}

// Verify checks a provided signature case-insensitively. Pure function: it
// returns false on any mismatch and never errors.
func Verify(params map[string]string, signature, secret string) bool {
	if signature == "" || secret == "" {
		return false
	}
	return strings.EqualFold(Sign(params, secret), signature)
}
