package webhooksign

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// DefaultReplayWindow bounds how old a signed timestamp may be before the
// signature is rejected.
const DefaultReplayWindow = 5 * time.Minute

// Sign computes the hex HMAC-SHA256 signature over "timestamp.payload".
func Sign(payload []byte, secret string, ts time.Time) string {
	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "%d.", ts.Unix())
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

// Headers returns the signature headers attached to a signed outbound send.
func Headers(payload []byte, secret string) map[string]string {
	now := time.Now()
	return map[string]string{
		"X-Signature":           Sign(payload, secret, now),
		"X-Signature-Timestamp": strconv.FormatInt(now.Unix(), 10),
	}
}

// Verify checks a signature and its timestamp against the replay window. A
// failed verification is a hard rejection of the payload.
func Verify(payload []byte, signatureHeader, timestampHeader, secret string, replayWindow time.Duration) bool {
	sig := strings.TrimSpace(signatureHeader)
	if sig == "" || secret == "" {
		return false
	}

	tsUnix, err := strconv.ParseInt(strings.TrimSpace(timestampHeader), 10, 64)
	if err != nil {
		return false
	}
	ts := time.Unix(tsUnix, 0)

	if replayWindow > 0 {
		age := time.Since(ts)
		if age > replayWindow || age < -replayWindow {
			return false
		}
	}

	expected, err := hex.DecodeString(strings.ToLower(sig))
	if err != nil {
		return false
	}

	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "%d.", ts.Unix())
	mac.Write(payload)
	return hmac.Equal(mac.Sum(nil), expected)
}
