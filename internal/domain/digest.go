package domain

import (
	"crypto/hmac"
	"crypto/md5"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
)

// Digest selects the hash construction behind link ids and transfer tokens.
// Both peers of a link must use the same digest.
type Digest string

const (
	// DigestMD5 is wire-compatible with existing site-link installations.
	DigestMD5 Digest = "md5"
	// DigestHMACSHA256 keys the link id by the secret and the token by the link id.
	DigestHMACSHA256 Digest = "hmac-sha256"
)

// ParseDigest validates a digest name (case-insensitive). Empty means md5.
func ParseDigest(s string) (Digest, error) {
	switch Digest(strings.ToLower(strings.TrimSpace(s))) {
	case "", DigestMD5:
		return DigestMD5, nil
	case DigestHMACSHA256:
		return DigestHMACSHA256, nil
	default:
		return "", fmt.Errorf("unknown digest %q (want %q or %q)", s, DigestMD5, DigestHMACSHA256)
	}
}

// LinkID derives the stable identifier of a link. Order of site1/site2 matters.
func (d Digest) LinkID(secret, site1, site2 string) string {
	if d == DigestHMACSHA256 {
		return hmacHex(secret, site1+"\n"+site2)
	}
	return md5Hex(secret + site1 + site2)
}

// token hashes a link id together with a time bucket.
func (d Digest) token(linkID, bucket string) string {
	if d == DigestHMACSHA256 {
		return hmacHex(linkID, bucket)
	}
	return md5Hex(linkID + bucket)
}

func md5Hex(s string) string {
	sum := md5.Sum([]byte(s))
	return hex.EncodeToString(sum[:])
}

func hmacHex(key, msg string) string {
	mac := hmac.New(sha256.New, []byte(key))
	mac.Write([]byte(msg))
	return hex.EncodeToString(mac.Sum(nil))
}
