// Utilities for reading the cachestage config files.

package core

import (
	"encoding"
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/please-build/gcfg"
	"gopkg.in/op/go-logging.v1"

	"github.com/cachestage/cachestage/src/cli"
)

var log = logging.MustGetLogger("core")

// ConfigFileName is the file name for the typical repo config - this is normally checked in.
const ConfigFileName = ".cachestage"

// LocalConfigFileName is the file name for the local repo config - this is not normally
// checked in and is used to override settings on the local machine.
const LocalConfigFileName = ".cachestage.local"

// MachineConfigFileName is the file name for the machine-level config - can use this to
// override things for a particular machine (eg. a CI agent with its own credentials).
const MachineConfigFileName = "/etc/cachestage"

func readConfigFile(config *Configuration, filename string) error {
	if err := gcfg.ReadFileInto(config, filename); err != nil && os.IsNotExist(err) {
		return nil // It's not an error to not have the file at all.
	} else if err != nil {
		return err
	}
	log.Debug("Read config from %s", filename)
	return nil
}

// ReadConfigFiles reads the config files from the given locations, in order.
// Values are filled in by defaults initially and then overridden by each file in turn.
func ReadConfigFiles(filenames []string) (*Configuration, error) {
	config := DefaultConfiguration()
	for _, filename := range filenames {
		if err := readConfigFile(config, filename); err != nil {
			return config, err
		}
	}
	for _, scheme := range []string{config.S3.Scheme, config.GCS.Scheme} {
		if scheme != "http" && scheme != "https" {
			return config, fmt.Errorf("Unsupported URL scheme %s; must be http or https", scheme)
		}
	}
	return config, nil
}

// DefaultConfiguration returns a config populated with the default settings for
// everything, as though no config files existed.
func DefaultConfiguration() *Configuration {
	config := Configuration{}
	config.Cache.Store = "s3"
	config.Cache.FetchTimeout = cli.Duration(3 * time.Minute)
	config.Cache.PushTimeout = cli.Duration(5 * time.Minute)
	config.S3.Scheme = "https"
	config.S3.SignatureVersion = "4"
	config.GCS.Scheme = "https"
	config.GCS.SignatureVersion = "2"
	return &config
}

// A Configuration is the cachestage equivalent of the usual layered config file
// set; it holds everything the tool can be told about a cache store.
type Configuration struct {
	Cache struct {
		Store        string
		Directories  []string
		FetchTimeout cli.Duration
		PushTimeout  cli.Duration
		Debug        bool
	}
	Client struct {
		Branch string
		Edge   bool
		Source string
	}
	S3 struct {
		Bucket           string
		AccessKeyID      string
		SecretAccessKey  string
		Region           string
		Scheme           string
		SignatureVersion string
	}
	GCS struct {
		Bucket           string
		AccessKeyID      string
		SecretAccessKey  string
		Scheme           string
		SignatureVersion string
	}
}

// StoreOptions returns the flattened options for the named cache store.
// Unknown names fall through to S3 since that is also where its defaults live;
// callers are expected to have validated the name beforehand.
func (config *Configuration) StoreOptions(store string) StoreOptions {
	if store == "gcs" {
		return StoreOptions{
			Store:            store,
			Bucket:           config.GCS.Bucket,
			AccessKeyID:      config.GCS.AccessKeyID,
			SecretAccessKey:  config.GCS.SecretAccessKey,
			Scheme:           config.GCS.Scheme,
			SignatureVersion: config.GCS.SignatureVersion,
		}
	}
	return StoreOptions{
		Store:            store,
		Bucket:           config.S3.Bucket,
		AccessKeyID:      config.S3.AccessKeyID,
		SecretAccessKey:  config.S3.SecretAccessKey,
		Region:           config.S3.Region,
		Scheme:           config.S3.Scheme,
		SignatureVersion: config.S3.SignatureVersion,
	}
}

// ApplyOverrides applies a set of overrides to the config.
// The keys of the given map are dot notation for the config setting.
func (config *Configuration) ApplyOverrides(overrides map[string]string) error {
	match := func(s1 string) func(string) bool {
		return func(s2 string) bool {
			return strings.ToLower(s2) == s1
		}
	}
	elem := reflect.ValueOf(config).Elem()
	for k, v := range overrides {
		split := strings.Split(strings.ToLower(k), ".")
		if len(split) != 2 {
			return fmt.Errorf("Bad option format: %s", k)
		}
		field := elem.FieldByNameFunc(match(split[0]))
		if !field.IsValid() {
			return fmt.Errorf("Unknown config section: %s", split[0])
		} else if field.Kind() != reflect.Struct {
			return fmt.Errorf("Unsettable config field: %s", split[0])
		}
		field = field.FieldByNameFunc(match(split[1]))
		if !field.IsValid() {
			return fmt.Errorf("Unknown config field: %s", split[1])
		}
		if u, ok := field.Addr().Interface().(encoding.TextUnmarshaler); ok {
			if err := u.UnmarshalText([]byte(v)); err != nil {
				return fmt.Errorf("Invalid value for %s: %s", k, err)
			}
			continue
		}
		switch field.Kind() {
		case reflect.String:
			field.Set(reflect.ValueOf(v))
		case reflect.Bool:
			v = strings.ToLower(v)
			// Mimics the set of truthy things gcfg accepts in our config file.
			field.SetBool(v == "true" || v == "yes" || v == "on" || v == "1")
		case reflect.Int:
			i, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("Invalid value for an integer field: %s", v)
			}
			field.Set(reflect.ValueOf(i))
		case reflect.Slice:
			// We only have to worry about slices of strings. Comma-separated values are accepted.
			field.Set(reflect.ValueOf(strings.Split(v, ",")))
		default:
			return fmt.Errorf("Can't override config field %s", k)
		}
	}
	return nil
}

// StoreOptions is a flattened view of the configuration for a single cache store.
type StoreOptions struct {
	Store            string
	Bucket           string
	AccessKeyID      string
	SecretAccessKey  string
	Region           string
	Scheme           string
	SignatureVersion string
}

// String implements the fmt.Stringer interface. The secret key is elided so the
// result is safe to write to logs.
func (opts StoreOptions) String() string {
	return fmt.Sprintf("store: %s, bucket: %s, region: %s, scheme: %s, signature version: %s, access key id: %s, secret access key: %s",
		opts.Store, opts.Bucket, opts.Region, opts.Scheme, opts.SignatureVersion, opts.AccessKeyID, elided(opts.SecretAccessKey))
}

// elided replaces all but the first four characters of a credential with asterisks.
func elided(secret string) string {
	if len(secret) <= 4 {
		return strings.Repeat("*", len(secret))
	}
	return secret[:4] + strings.Repeat("*", len(secret)-4)
}
