// Package probe checks a cache store end to end with real HTTP requests.
// It reuses the same signed URLs a build script would receive, so a passing
// probe means the emitted instructions would have worked too.
package probe

import (
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/hashicorp/go-multierror"
	"github.com/hashicorp/go-retryablehttp"
	"gopkg.in/op/go-logging.v1"

	"github.com/cachestage/cachestage/src/cache"
	"github.com/cachestage/cachestage/src/cache/signature"
	"github.com/cachestage/cachestage/src/cli"
	"github.com/cachestage/cachestage/src/core"
	"github.com/cachestage/cachestage/src/shell"
)

var log = logging.MustGetLogger("probe")

// probeExpiry is how long the probe's own signed URLs stay valid. Probes run
// right away so this is generous.
const probeExpiry = 5 * time.Minute

var probePayload = []byte{'1'}

var httpClient = newHTTPClient()

func newHTTPClient() *retryablehttp.Client {
	c := retryablehttp.NewClient()
	c.Logger = &cli.HTTPLogWrapper{Log: log}
	c.RetryMax = 2
	return c
}

// Options are the options for a probe run.
type Options struct {
	// Write also stores a one-byte object in the store and deletes it again,
	// proving the credentials can write and not just read.
	Write bool
}

// Probe checks each archive the job would try to fetch and reports what it
// finds to w. The returned error wraps everything that went wrong; misses are
// expected outcomes, not errors.
func Probe(config *core.Configuration, job *core.Job, opts Options, w io.Writer) error {
	stage, err := cache.NewStage(config, job, shell.NewRecorder())
	if err != nil {
		return err
	}
	if missing := stage.Validate(); len(missing) > 0 {
		return fmt.Errorf("%s cache config missing: %s", strings.ToUpper(config.Cache.Store), strings.Join(missing, ", "))
	}
	urls, err := stage.FetchURLs()
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "Probing %s cache for %s on %s...\n", config.Cache.Store, job.Repository, job.Group())
	var result *multierror.Error
	found := 0
	for _, u := range urls {
		if hit, err := check(u, w); err != nil {
			result = multierror.Append(result, err)
		} else if hit {
			found++
		}
	}
	fmt.Fprintf(w, "%d of %d archives available\n", found, len(urls))
	if opts.Write {
		if err := writeProbe(stage, w); err != nil {
			result = multierror.Append(result, err)
		}
	}
	return result.ErrorOrNil()
}

// check issues a HEAD for one archive and reports the verdict.
func check(u string, w io.Writer) (bool, error) {
	display := displayPath(u)
	resp, err := httpClient.Head(u)
	if err != nil {
		fmt.Fprintf(w, "  %s: %s\n", display, err)
		return false, err
	}
	defer resp.Body.Close()
	switch resp.StatusCode {
	case http.StatusOK:
		fmt.Fprintf(w, "  %s: found (%s)\n", display, describe(resp))
		return true, nil
	case http.StatusNotFound:
		fmt.Fprintf(w, "  %s: not found\n", display)
		return false, nil
	case http.StatusForbidden:
		fmt.Fprintf(w, "  %s: access denied\n", display)
		return false, fmt.Errorf("Access denied to %s; check the configured keys", display)
	default:
		fmt.Fprintf(w, "  %s: unexpected response %s\n", display, resp.Status)
		return false, fmt.Errorf("Unexpected response for %s: %s", display, resp.Status)
	}
}

// writeProbe round-trips a one-byte object through the store.
func writeProbe(stage *cache.Stage, w io.Writer) error {
	loc := stage.Location(stage.ProbePath())
	put, err := signPut(stage.Signer(), loc)
	if err != nil {
		return err
	}
	del, err := stage.Signer().Sign("DELETE", loc, probeExpiry)
	if err != nil {
		return err
	}
	return roundTrip(put, del, stage.ProbePath(), w)
}

// signPut signs the probe upload, through headers where the scheme supports
// them since that matches how clients upload with a fixed body.
func signPut(signer signature.Signer, loc signature.Location) (*signature.SignedRequest, error) {
	if hs, ok := signer.(signature.HeaderSigner); ok {
		return hs.SignHeaders("PUT", loc, probePayload)
	}
	return signer.Sign("PUT", loc, probeExpiry)
}

// roundTrip stores the probe object and deletes it again.
func roundTrip(put, del *signature.SignedRequest, path string, w io.Writer) error {
	if err := send(http.MethodPut, put, probePayload); err != nil {
		return fmt.Errorf("Failed to store probe object: %s", err)
	}
	fmt.Fprintf(w, "  stored probe object at %s\n", path)
	if err := send(http.MethodDelete, del, nil); err != nil {
		return fmt.Errorf("Failed to delete probe object: %s", err)
	}
	fmt.Fprintf(w, "  deleted probe object again\n")
	return nil
}

// send issues one signed request and fails on any non-2xx response.
func send(method string, signed *signature.SignedRequest, body []byte) error {
	req, err := retryablehttp.NewRequest(method, signed.URL, body)
	if err != nil {
		return err
	}
	for _, h := range signed.Headers {
		req.Header.Set(h.Name, h.Value)
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("got response %s", resp.Status)
	}
	return nil
}

// describe summarizes a found archive from its response headers.
func describe(resp *http.Response) string {
	desc := "size unknown"
	if resp.ContentLength > 0 {
		desc = humanize.Bytes(uint64(resp.ContentLength))
	}
	if modified, err := http.ParseTime(resp.Header.Get("Last-Modified")); err == nil {
		desc += ", uploaded " + humanize.Time(modified)
	}
	return desc
}

// displayPath strips the signing noise off a URL for display.
func displayPath(u string) string {
	if parsed, err := url.Parse(u); err == nil {
		return parsed.Path
	}
	return u
}
