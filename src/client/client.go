// Package client locates, fetches and installs the stasher cache client.
// Build scripts normally install it themselves with the instructions a cache
// stage emits; this package is the direct route for local use and debugging.
package client

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/hashicorp/go-retryablehttp"
	"gopkg.in/op/go-logging.v1"

	"github.com/cachestage/cachestage/src/cli"
	"github.com/cachestage/cachestage/src/core"
)

var log = logging.MustGetLogger("client")

// sourceTemplate is where builds of the client are published; the placeholder
// is the branch to install from.
const sourceTemplate = "https://raw.githubusercontent.com/cachestage/stasher/%s/bin/stasher"

var httpClient = newHTTPClient()

func newHTTPClient() *retryablehttp.Client {
	c := retryablehttp.NewClient()
	c.Logger = &cli.HTTPLogWrapper{Log: log}
	return c
}

// Branch returns the branch of the client repo that installs come from.
func Branch(config *core.Configuration) string {
	if config.Client.Branch != "" {
		return config.Client.Branch
	} else if config.Client.Edge {
		return "master"
	}
	return "production"
}

// URL returns the URL the client will be downloaded from. A configured source
// may reference the branch with a %s placeholder.
func URL(config *core.Configuration, branch string) string {
	if config.Client.Source != "" {
		return strings.ReplaceAll(config.Client.Source, "%s", branch)
	}
	return fmt.Sprintf(sourceTemplate, branch)
}

// Download fetches the client and installs it under dir/bin, returning the
// path of the installed binary.
func Download(config *core.Configuration, dir string) (string, error) {
	url := URL(config, Branch(config))
	log.Info("Downloading %s", url)
	response, err := httpClient.Get(url)
	if err != nil {
		return "", err
	} else if response.StatusCode < 200 || response.StatusCode > 299 {
		return "", fmt.Errorf("Failed to download %s: got response %s", url, response.Status)
	}
	defer response.Body.Close()
	length, _ := strconv.Atoi(response.Header.Get("Content-Length"))
	r := cli.NewProgressReader(response.Body, length, "Downloading")
	defer r.Close()
	binDir := filepath.Join(dir, "bin")
	if err := os.MkdirAll(binDir, core.DirPermissions); err != nil {
		return "", err
	}
	target := filepath.Join(binDir, "stasher")
	f, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0755)
	if err != nil {
		return "", err
	}
	// Don't leave a half-written client behind if we get interrupted.
	done := false
	onInterrupt(func() {
		if !done {
			os.Remove(target)
		}
	})
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		os.Remove(target)
		return "", err
	}
	if err := f.Chmod(0755); err != nil {
		f.Close()
		return "", err
	}
	if err := f.Close(); err != nil {
		return "", err
	}
	done = true
	log.Notice("Installed %s", target)
	return target, nil
}
