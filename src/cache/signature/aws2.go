package signature

import (
	"crypto/hmac"
	"crypto/sha1"
	"encoding/base64"
	"fmt"
	"net/url"
	"strconv"
	"time"
)

// aws2 implements the legacy query-string signing scheme: a single HMAC-SHA1
// pass over a canonicalized string built from the verb, expiry and resource.
// Interoperable stores accept it with their HMAC keys, which is why it
// survives here despite its age.
type aws2 struct {
	keys KeyPair
	now  time.Time
}

// Sign implements the Signer interface.
func (s *aws2) Sign(verb string, loc Location, expiresIn time.Duration) (*SignedRequest, error) {
	if err := checkSignable(s.keys, loc); err != nil {
		return nil, err
	}
	expires := s.now.Add(expiresIn).Unix()
	stringToSign := fmt.Sprintf("%s\n\n\n%d\n/%s%s", verb, expires, loc.Bucket, loc.Path)
	mac := hmac.New(sha1.New, []byte(s.keys.SecretAccessKey))
	mac.Write([]byte(stringToSign))
	query := url.Values{
		"AWSAccessKeyId": []string{s.keys.AccessKeyID},
		"Expires":        []string{strconv.FormatInt(expires, 10)},
		"Signature":      []string{base64.StdEncoding.EncodeToString(mac.Sum(nil))},
	}
	u := url.URL{
		Scheme:   loc.Scheme,
		Host:     loc.Hostname(),
		Path:     loc.Path,
		RawQuery: query.Encode(),
	}
	return &SignedRequest{URL: u.String()}, nil
}
