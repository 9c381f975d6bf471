package devserver

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/url"
	"time"
)

// signKey binds a storage key to an expiry time with an HMAC so the upload
// URL works without session cookies but cannot be forged or extended.
func signKey(secret, key string, expires int64) string {
	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "%s|%d", key, expires)
	return hex.EncodeToString(mac.Sum(nil))
}

func verifySignature(secret, key string, expires int64, signature string) bool {
	if time.Now().Unix() > expires {
		return false
	}
	expected := signKey(secret, key, expires)
	return hmac.Equal([]byte(expected), []byte(signature))
}

// presignedURL builds the full credential-less URL for a storage key.
func presignedURL(publicURL, secret, key string, ttl time.Duration) string {
	expires := time.Now().Add(ttl).Unix()
	q := url.Values{}
	q.Set("expires", fmt.Sprint(expires))
	q.Set("signature", signKey(secret, key, expires))
	return fmt.Sprintf("%s/storage/%s?%s", publicURL, key, q.Encode())
}
