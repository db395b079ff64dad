package securitylog

import (
	"encoding/hex"

	"github.com/MichaelAJay/go-security-policy/storage"
)

const fingerprintLength = 32

// FingerprintHasher hashes client attributes. go-encrypter's HashLookupData
// satisfies it.
type FingerprintHasher interface {
	HashLookupData(data []byte) []byte
}

// ClientInfo describes the device a log belongs to.
type ClientInfo struct {
	UserAgent string `json:"user_agent"`
	Language  string `json:"language,omitempty"`
	Platform  string `json:"platform,omitempty"`
	Screen    string `json:"screen,omitempty"`
	Timezone  string `json:"timezone,omitempty"`
}

// Fingerprint returns a stable 32 character identifier for the client, or ""
// when hasher is nil or the attributes cannot be encoded.
func (c ClientInfo) Fingerprint(hasher FingerprintHasher) string {
	if hasher == nil {
		return ""
	}
	raw, err := storage.NewSerializer().Serialize(c)
	if err != nil {
		return ""
	}
	sum := hex.EncodeToString(hasher.HashLookupData(raw))
	if len(sum) > fingerprintLength {
		sum = sum[:fingerprintLength]
	}
	return sum
}

// WithClientInfo stamps every appended event that carries no user agent or
// fingerprint of its own with the client's.
func WithClientInfo(info ClientInfo, hasher FingerprintHasher) Option {
	fingerprint := info.Fingerprint(hasher)
	return func(l *EventLog) {
		l.client = &clientStamp{userAgent: info.UserAgent, fingerprint: fingerprint}
	}
}

type clientStamp struct {
	userAgent   string
	fingerprint string
}

func (c *clientStamp) apply(e Event) Event {
	if c == nil {
		return e
	}
	if e.UserAgent == "" {
		e.UserAgent = c.userAgent
	}
	if e.Fingerprint == "" {
		e.Fingerprint = c.fingerprint
	}
	return e
}
