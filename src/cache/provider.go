package cache

import "fmt"

// A Provider describes one supported cache store: how its endpoints are named
// and which signature scheme it speaks when the config doesn't say.
type Provider struct {
	Name             string
	SignatureVersion string
	HostnameFor      func(region string) string
}

var providers = map[string]*Provider{
	"s3": {
		Name:             "s3",
		SignatureVersion: "4",
		HostnameFor:      s3Hostname,
	},
	"gcs": {
		Name:             "gcs",
		SignatureVersion: "2",
		HostnameFor:      gcsHostname,
	},
}

// providerFor returns the provider for the named store.
func providerFor(store string) (*Provider, error) {
	if provider, present := providers[store]; present {
		return provider, nil
	}
	return nil, fmt.Errorf("Unknown cache store %s; supported stores are s3 and gcs", store)
}

// s3Hostname returns the S3 endpoint for a region. us-east-1 predates regional
// endpoint names, so it and the empty string map to the global one.
func s3Hostname(region string) string {
	if region == "" || region == "us-east-1" {
		return "s3.amazonaws.com"
	}
	return "s3." + region + ".amazonaws.com"
}

// gcsHostname returns the GCS interoperability endpoint, which is the same
// everywhere; buckets have no region in their hostnames.
func gcsHostname(region string) string {
	return "storage.googleapis.com"
}
