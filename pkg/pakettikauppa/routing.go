package pakettikauppa

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"time"
)

// RoutingScheme selects how Routing.Key is derived.
type RoutingScheme int

const (
	// RoutingHMAC is the current scheme: Routing.Version 2 and
	// Routing.Key = HMAC-SHA256(account + requestID) keyed by the secret.
	RoutingHMAC RoutingScheme = iota

	// RoutingLegacyMD5 is the pre-v2 scheme still accepted by the old
	// endpoint: Routing.Key = MD5(account + requestID + secret), no version.
	RoutingLegacyMD5
)

// RoutingVersion is sent as Routing.Version with RoutingHMAC keys.
const RoutingVersion = "2"

func (s RoutingScheme) String() string {
	switch s {
	case RoutingHMAC:
		return "hmac-sha256"
	case RoutingLegacyMD5:
		return "legacy-md5"
	default:
		return fmt.Sprintf("RoutingScheme(%d)", int(s))
	}
}

// Routing is the authentication block embedded in every document.
type Routing struct {
	Account string
	ID      string
	Version string
	Key     string
	Token   string
	Comment string
}

// NewRequestID derives a request id from t: unix seconds followed by four
// fractional digits, without the separating dot.
func NewRequestID(t time.Time) string {
	return fmt.Sprintf("%d%04d", t.Unix(), t.Nanosecond()/100000)
}

// RoutingKey computes Routing.Key for account and requestID under scheme.
func RoutingKey(scheme RoutingScheme, account, requestID, secret string) string {
	if scheme == RoutingLegacyMD5 {
		sum := md5.Sum([]byte(account + requestID + secret))
		return hex.EncodeToString(sum[:])
	}
	return hmacSHA256Hex(account+requestID, secret)
}

// NewKeyedRouting returns a routing block authenticated with a routing key.
func NewKeyedRouting(scheme RoutingScheme, account, secret string, now time.Time) Routing {
	id := NewRequestID(now)
	r := Routing{
		Account: account,
		ID:      id,
		Key:     RoutingKey(scheme, account, id, secret),
	}
	if scheme == RoutingHMAC {
		r.Version = RoutingVersion
	}
	return r
}

// NewTokenRouting returns a routing block authenticated with a bearer token.
func NewTokenRouting(account, token string, now time.Time) Routing {
	return Routing{
		Account: account,
		ID:      NewRequestID(now),
		Token:   token,
	}
}
