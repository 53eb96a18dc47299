package pakettikauppa

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Form field names added by the signer.
const (
	fieldAPIKey    = "api_key"
	fieldTimestamp = "timestamp"
	fieldHash      = "hash"
)

// SignForm returns the form body for params: api_key and timestamp are added
// when absent, then the values are sorted by key, joined with "&" and signed
// with HMAC-SHA256 keyed by secret. The hex digest is sent as "hash".
//
// The hash covers exactly the returned values; adding or changing a field
// afterwards invalidates the request on the server side.
func SignForm(params map[string]string, apiKey, secret string, now time.Time) url.Values {
	signed := make(map[string]string, len(params)+2)
	for k, v := range params {
		signed[k] = v
	}
	if _, ok := signed[fieldAPIKey]; !ok {
		signed[fieldAPIKey] = apiKey
	}
	if _, ok := signed[fieldTimestamp]; !ok {
		signed[fieldTimestamp] = strconv.FormatInt(now.Unix(), 10)
	}

	values := make(url.Values, len(signed)+1)
	for k, v := range signed {
		values.Set(k, v)
	}
	values.Set(fieldHash, FormHash(signed, secret))
	return values
}

// FormHash computes the form signature over params without modifying them.
func FormHash(params map[string]string, secret string) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = params[k]
	}

	return hmacSHA256Hex(strings.Join(parts, "&"), secret)
}

// VerifyForm reports whether values carry a valid hash for secret.
func VerifyForm(values url.Values, secret string) bool {
	got := values.Get(fieldHash)
	if got == "" {
		return false
	}
	params := make(map[string]string, len(values))
	for k := range values {
		if k == fieldHash {
			continue
		}
		params[k] = values.Get(k)
	}
	return hmac.Equal([]byte(got), []byte(FormHash(params, secret)))
}

func hmacSHA256Hex(message, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(message))
	return hex.EncodeToString(mac.Sum(nil))
}
