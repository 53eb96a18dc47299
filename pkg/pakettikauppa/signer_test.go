package pakettikauppa_test

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/tournevent/pakettikauppa/pkg/pakettikauppa"
)

var fixedTime = time.Date(2024, 3, 1, 12, 0, 0, 123456789, time.UTC)

func TestSignForm_AddsKeyAndTimestamp(t *testing.T) {
	values := pakettikauppa.SignForm(map[string]string{"tracking_code": "JJFITEST123"},
		pakettikauppa.SandboxAPIKey, pakettikauppa.SandboxSecret, fixedTime)

	assert.Equal(t, "JJFITEST123", values.Get("tracking_code"))
	assert.Equal(t, pakettikauppa.SandboxAPIKey, values.Get("api_key"))
	assert.Equal(t, "1709294400", values.Get("timestamp"))
	assert.Len(t, values.Get("hash"), 64)
	assert.True(t, pakettikauppa.VerifyForm(values, pakettikauppa.SandboxSecret))
}

func TestSignForm_KeepsExplicitTimestamp(t *testing.T) {
	values := pakettikauppa.SignForm(map[string]string{"timestamp": "42"}, "key", "secret", fixedTime)
	assert.Equal(t, "42", values.Get("timestamp"))
}

func TestSignForm_Deterministic(t *testing.T) {
	params := map[string]string{"b": "2", "a": "1", "c": "3"}

	first := pakettikauppa.SignForm(params, "key", "secret", fixedTime)
	second := pakettikauppa.SignForm(params, "key", "secret", fixedTime)

	assert.Equal(t, first.Get("hash"), second.Get("hash"))
}

func TestSignForm_DoesNotModifyParams(t *testing.T) {
	params := map[string]string{"a": "1"}
	pakettikauppa.SignForm(params, "key", "secret", fixedTime)
	assert.Equal(t, map[string]string{"a": "1"}, params)
}

func TestFormHash_SortedByKey(t *testing.T) {
	// Values are joined in key order: api_key, timestamp, tracking_code.
	h1 := pakettikauppa.FormHash(map[string]string{"tracking_code": "X", "api_key": "K", "timestamp": "1"}, "secret")
	h2 := pakettikauppa.FormHash(map[string]string{"api_key": "K", "timestamp": "1", "tracking_code": "X"}, "secret")
	assert.Equal(t, h1, h2)

	mac := hmac.New(sha256.New, []byte("secret"))
	mac.Write([]byte("K&1&X"))
	assert.Equal(t, hex.EncodeToString(mac.Sum(nil)), h1)
}

func TestFormHash_ChangesWithValue(t *testing.T) {
	base := map[string]string{"api_key": "K", "timestamp": "1", "tracking_code": "X"}
	changed := map[string]string{"api_key": "K", "timestamp": "1", "tracking_code": "Y"}

	assert.NotEqual(t, pakettikauppa.FormHash(base, "secret"), pakettikauppa.FormHash(changed, "secret"))
	assert.NotEqual(t, pakettikauppa.FormHash(base, "secret"), pakettikauppa.FormHash(base, "other"))
}

func TestVerifyForm_RejectsTampering(t *testing.T) {
	values := pakettikauppa.SignForm(map[string]string{"tracking_code": "X"}, "key", "secret", fixedTime)
	values.Set("tracking_code", "Y")
	assert.False(t, pakettikauppa.VerifyForm(values, "secret"))

	values.Del("hash")
	assert.False(t, pakettikauppa.VerifyForm(values, "secret"))
}
