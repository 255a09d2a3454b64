// Package signature constructs signed, time-limited object storage requests.
// It implements the two signing schemes the stores accept: the legacy
// query-string scheme (v2) and the modern credential-scope scheme (v4).
// Signers are bound to their credentials and clock at construction, so every
// request signed for one job shares the same signing instant.
package signature

import (
	"fmt"
	"time"
)

// A KeyPair holds one set of store credentials.
type KeyPair struct {
	AccessKeyID     string
	SecretAccessKey string
}

// A Location describes one addressable remote object.
type Location struct {
	Scheme string
	Region string
	Bucket string
	Path   string
	// HostnameFor derives the storage endpoint for a region.
	HostnameFor func(region string) string
}

// Hostname returns the bucket-qualified hostname for this location.
func (l Location) Hostname() string {
	return l.Bucket + "." + l.HostnameFor(l.Region)
}

// A Header is a single HTTP header attached to a signed request.
type Header struct {
	Name, Value string
}

// A SignedRequest carries everything an anonymous HTTP client needs to
// authenticate a single request. The expiry is baked into the signature;
// there is no renewal, only regeneration.
type SignedRequest struct {
	URL     string
	Headers []Header
}

// A Signer turns a verb and location into a time-limited signed request.
type Signer interface {
	Sign(verb string, loc Location, expiresIn time.Duration) (*SignedRequest, error)
}

// A HeaderSigner can additionally authenticate a request through its headers
// rather than its query string, which suits requests carrying a payload.
type HeaderSigner interface {
	SignHeaders(verb string, loc Location, payload []byte) (*SignedRequest, error)
}

// ForVersion returns the signer for the given signature version, bound to the
// given keys and clock. Version "2" selects the legacy scheme; anything else,
// including the empty string, selects the modern one.
func ForVersion(version string, keys KeyPair, now time.Time) Signer {
	if version == "2" {
		return &aws2{keys: keys, now: now}
	}
	return &aws4{keys: keys, now: now}
}

// checkSignable rejects inputs that cannot produce a usable signature.
// These are the only fatal conditions in the package; everything downstream
// of a well-formed signature is the transfer's problem.
func checkSignable(keys KeyPair, loc Location) error {
	if keys.AccessKeyID == "" {
		return fmt.Errorf("Can't sign request: access key id is empty")
	}
	if keys.SecretAccessKey == "" {
		return fmt.Errorf("Can't sign request: secret access key is empty")
	}
	if loc.Bucket == "" {
		return fmt.Errorf("Can't sign request: bucket is empty")
	}
	return nil
}
