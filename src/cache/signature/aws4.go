package signature

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const (
	algorithm       = "AWS4-HMAC-SHA256"
	unsignedPayload = "UNSIGNED-PAYLOAD"
	serviceName     = "s3"
	requestSuffix   = "aws4_request"
	defaultRegion   = "us-east-1"
	timeFormat      = "20060102T150405Z"
	dateFormat      = "20060102"
)

// aws4 implements the modern credential-scope signing scheme: a canonical
// request hashed into a date/region/service-scoped string to sign, signed
// with a four-round HMAC-SHA256 key chain.
type aws4 struct {
	keys KeyPair
	now  time.Time
}

// Sign implements the Signer interface. The signature and its parameters are
// carried entirely in the query string; the payload is left unsigned so the
// URL works for any body.
func (s *aws4) Sign(verb string, loc Location, expiresIn time.Duration) (*SignedRequest, error) {
	if err := checkSignable(s.keys, loc); err != nil {
		return nil, err
	}
	region := regionOrDefault(loc.Region)
	host := loc.Hostname()
	query := url.Values{
		"X-Amz-Algorithm":     []string{algorithm},
		"X-Amz-Credential":    []string{s.keys.AccessKeyID + "/" + s.scope(region)},
		"X-Amz-Date":          []string{s.now.Format(timeFormat)},
		"X-Amz-Expires":       []string{strconv.Itoa(int(expiresIn / time.Second))},
		"X-Amz-SignedHeaders": []string{"host"},
	}
	canonicalQuery := encodeQuery(query)
	canonicalRequest := strings.Join([]string{
		verb,
		escapePath(loc.Path),
		canonicalQuery,
		"host:" + host,
		"",
		"host",
		unsignedPayload,
	}, "\n")
	u := url.URL{Scheme: loc.Scheme, Host: host, Path: loc.Path}
	u.RawQuery = canonicalQuery + "&X-Amz-Signature=" + s.signature(region, canonicalRequest)
	return &SignedRequest{URL: u.String()}, nil
}

// SignHeaders implements the HeaderSigner interface. The signature covers the
// payload hash, so unlike Sign the request body is fixed at signing time.
func (s *aws4) SignHeaders(verb string, loc Location, payload []byte) (*SignedRequest, error) {
	if err := checkSignable(s.keys, loc); err != nil {
		return nil, err
	}
	region := regionOrDefault(loc.Region)
	host := loc.Hostname()
	date := s.now.Format(timeFormat)
	payloadHash := sha256Hex(payload)
	signedHeaders := "host;x-amz-content-sha256;x-amz-date"
	canonicalRequest := strings.Join([]string{
		verb,
		escapePath(loc.Path),
		"",
		"host:" + host,
		"x-amz-content-sha256:" + payloadHash,
		"x-amz-date:" + date,
		"",
		signedHeaders,
		payloadHash,
	}, "\n")
	authorization := fmt.Sprintf("%s Credential=%s, SignedHeaders=%s, Signature=%s",
		algorithm, s.keys.AccessKeyID+"/"+s.scope(region), signedHeaders, s.signature(region, canonicalRequest))
	u := url.URL{Scheme: loc.Scheme, Host: host, Path: loc.Path}
	return &SignedRequest{
		URL: u.String(),
		Headers: []Header{
			{Name: "x-amz-content-sha256", Value: payloadHash},
			{Name: "x-amz-date", Value: date},
			{Name: "Authorization", Value: authorization},
		},
	}, nil
}

func (s *aws4) signature(region, canonicalRequest string) string {
	stringToSign := strings.Join([]string{
		algorithm,
		s.now.Format(timeFormat),
		s.scope(region),
		sha256Hex([]byte(canonicalRequest)),
	}, "\n")
	key := hmacSHA256([]byte("AWS4"+s.keys.SecretAccessKey), s.now.Format(dateFormat))
	key = hmacSHA256(key, region)
	key = hmacSHA256(key, serviceName)
	key = hmacSHA256(key, requestSuffix)
	return hex.EncodeToString(hmacSHA256(key, stringToSign))
}

func (s *aws4) scope(region string) string {
	return strings.Join([]string{s.now.Format(dateFormat), region, serviceName, requestSuffix}, "/")
}

func regionOrDefault(region string) string {
	if region == "" {
		return defaultRegion
	}
	return region
}

func hmacSHA256(key []byte, data string) []byte {
	mac := hmac.New(sha256.New, key)
	mac.Write([]byte(data))
	return mac.Sum(nil)
}

func sha256Hex(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// encodeQuery canonicalizes a query string: keys sorted, RFC 3986 escaping
// with spaces as %20 rather than +.
func encodeQuery(query url.Values) string {
	return strings.ReplaceAll(query.Encode(), "+", "%20")
}

// escapePath percent-encodes a URI path for canonicalization, preserving
// segment separators and unreserved characters.
func escapePath(path string) string {
	var b strings.Builder
	for i := 0; i < len(path); i++ {
		c := path[i]
		switch {
		case c >= 'A' && c <= 'Z' || c >= 'a' && c <= 'z' || c >= '0' && c <= '9':
			b.WriteByte(c)
		case c == '-' || c == '.' || c == '_' || c == '~' || c == '/':
			b.WriteByte(c)
		default:
			fmt.Fprintf(&b, "%%%02X", c)
		}
	}
	return b.String()
}
