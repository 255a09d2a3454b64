// Package cache compiles the cache synchronization steps of a CI job into
// shell instructions. A Stage decides what the job should do about its build
// cache (install the client, fetch the nearest archive, push its own back)
// and expresses those decisions through a shell.Writer; nothing here touches
// the network or the filesystem itself.
package cache

import (
	"fmt"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/alessio/shellescape"
	"github.com/cespare/xxhash/v2"
	"gopkg.in/op/go-logging.v1"

	"github.com/cachestage/cachestage/src/cache/signature"
	"github.com/cachestage/cachestage/src/client"
	"github.com/cachestage/cachestage/src/core"
	"github.com/cachestage/cachestage/src/shell"
)

var log = logging.MustGetLogger("cache")

const (
	// clientDir is where the stasher client lives on the build machine.
	clientDir = "${CACHESTAGE_HOME:-$HOME}/.stasher"
	// binPath is the installed client binary, guarded on before every use.
	binPath = "$STASHER_DIR/bin/stasher"
	// addBatchLimit caps how many directories a single add command receives.
	addBatchLimit = 100
)

// curlFormat is the timing write-out curl emits when cache debugging is enabled.
const curlFormat = `     time_namelookup:  %{time_namelookup} s
        time_connect:  %{time_connect} s
     time_appconnect:  %{time_appconnect} s
    time_pretransfer:  %{time_pretransfer} s
       time_redirect:  %{time_redirect} s
  time_starttransfer:  %{time_starttransfer} s
      speed_download:  %{speed_download} bytes/s
       url_effective:  %{url_effective}
                     ----------
          time_total:  %{time_total} s`

// A Stage compiles the cache synchronization for one job. It is bound to a
// single writer and a single signing clock at construction; all URLs signed
// through it share the same instant.
type Stage struct {
	config    *core.Configuration
	job       *core.Job
	sh        shell.Writer
	provider  *Provider
	opts      core.StoreOptions
	signer    signature.Signer
	slug      string
	missing   []string
	available bool
	start     time.Time
	folds     int
}

// NewStage returns a stage for the given job, bound to the given writer.
// It fails only if the configured store is unknown; missing credentials
// degrade the stage instead, since a build without a cache is still a build.
func NewStage(config *core.Configuration, job *core.Job, sh shell.Writer) (*Stage, error) {
	provider, err := providerFor(config.Cache.Store)
	if err != nil {
		return nil, err
	}
	opts := config.StoreOptions(provider.Name)
	if opts.SignatureVersion == "" {
		opts.SignatureVersion = provider.SignatureVersion
	}
	start := time.Now()
	s := &Stage{
		config:   config,
		job:      job,
		sh:       sh,
		provider: provider,
		opts:     opts,
		signer: signature.ForVersion(opts.SignatureVersion, signature.KeyPair{
			AccessKeyID:     opts.AccessKeyID,
			SecretAccessKey: opts.SecretAccessKey,
		}, start),
		slug:  job.Slug,
		start: start,
	}
	if s.slug == "" {
		s.slug = DeriveSlug(config.Cache.Directories)
	}
	s.missing = s.Validate()
	s.available = len(s.missing) == 0
	log.Debug("Cache store options: %s", opts)
	return s, nil
}

// Validate returns the human-readable names of required store settings that
// are missing, in the order they would be filled in.
func (s *Stage) Validate() []string {
	missing := []string{}
	if s.opts.Bucket == "" {
		missing = append(missing, "bucket name")
	}
	if s.opts.AccessKeyID == "" {
		missing = append(missing, "access key id")
	}
	if s.opts.SecretAccessKey == "" {
		missing = append(missing, "secret access key")
	}
	return missing
}

// Valid returns true if the store config is complete enough to sign requests.
func (s *Stage) Valid() bool {
	return s.available
}

// Setup emits the full cache setup: installing the client, fetching the
// nearest archive and registering the directories to watch.
func (s *Stage) Setup() error {
	var err error
	s.fold("Setting up build cache", func() {
		s.Install()
		if err = s.Fetch(); err != nil {
			return
		}
		if len(s.config.Cache.Directories) > 0 {
			s.Add(s.config.Cache.Directories)
		}
	})
	return err
}

// Teardown emits the cache push step that concludes a build.
func (s *Stage) Teardown() error {
	var err error
	s.fold("store build cache", func() {
		err = s.Push()
	})
	return err
}

// Install emits the instructions that download the stasher client. When the
// store config is incomplete it installs a placeholder instead, so later
// invocations quietly no-op rather than fail the build.
func (s *Stage) Install() {
	s.sh.Export("STASHER_DIR", clientDir)
	s.sh.Mkdir("$STASHER_DIR/bin", shell.MkdirOpts{Recursive: true})
	if s.available {
		u := client.URL(s.config, client.Branch(s.config))
		s.sh.Cmd(fmt.Sprintf("curl %s -L -o %s %s", s.curlFlags(), binPath, u), shell.CmdOpts{
			Echo:    true,
			Message: "Installing caching utilities",
			Retry:   true,
		})
		s.sh.If("$? -ne 0", func() {
			s.sh.Echo("Failed to fetch stasher, disabling the cache", shell.EchoOpts{ANSI: "yellow"})
			s.writePlaceholder()
		})
	} else {
		missing := fmt.Sprintf("%s cache config missing: %s", strings.ToUpper(s.provider.Name), strings.Join(s.missing, ", "))
		log.Warning("%s", missing)
		s.sh.Echo(missing, shell.EchoOpts{ANSI: "red"})
		s.writePlaceholder()
	}
	s.sh.If("-f "+binPath, func() {
		s.sh.Chmod("+x", binPath, shell.ChmodOpts{})
	})
}

// Fetch emits the instruction that pulls down the nearest archive, passing
// the client each candidate URL in preference order.
func (s *Stage) Fetch() error {
	if !s.available {
		return nil
	}
	urls, err := s.FetchURLs()
	if err != nil {
		return err
	}
	escaped := make([]string, len(urls))
	for i, u := range urls {
		escaped[i] = url.QueryEscape(u)
	}
	s.run("fetch "+strings.Join(escaped, " "), shell.CmdOpts{Timing: true})
	return nil
}

// FetchURLs returns the signed URLs fetch will try: this job's own group
// first, then the branches it was cut from, gzipped archives before bzipped.
func (s *Stage) FetchURLs() ([]string, error) {
	urls := []string{}
	for _, group := range s.fetchGroups() {
		for _, ext := range []string{".tgz", ".tbz"} {
			req, err := s.signer.Sign("GET", s.Location(s.prefixed(group, ext)), time.Duration(s.config.Cache.FetchTimeout))
			if err != nil {
				return nil, err
			}
			urls = append(urls, req.URL)
		}
	}
	return urls, nil
}

// Push emits the instruction that uploads the job's archive back to its group.
func (s *Stage) Push() error {
	if !s.available {
		return nil
	}
	u, err := s.PushURL()
	if err != nil {
		return err
	}
	s.run("push "+url.QueryEscape(u), shell.CmdOpts{Timing: true})
	return nil
}

// PushURL returns the signed URL push will upload to. Pushes always target
// the job's own group; fallbacks are a fetch-time concept only.
func (s *Stage) PushURL() (string, error) {
	req, err := s.signer.Sign("PUT", s.Location(s.prefixed(s.job.Group(), ".tgz")), time.Duration(s.config.Cache.PushTimeout))
	if err != nil {
		return "", err
	}
	return req.URL, nil
}

// Add registers directories with the client in batches; anything already
// cached gets extracted, anything new gets watched for changes.
func (s *Stage) Add(dirs []string) {
	if !s.available {
		return
	}
	for len(dirs) > 0 {
		batch := dirs
		if len(batch) > addBatchLimit {
			batch = batch[:addBatchLimit]
		}
		escaped := make([]string, len(batch))
		for i, dir := range batch {
			escaped[i] = shellescape.Quote(dir)
		}
		s.run("add "+strings.Join(escaped, " "), shell.CmdOpts{})
		dirs = dirs[len(batch):]
	}
}

// Location returns the store location for an object path.
func (s *Stage) Location(path string) signature.Location {
	return signature.Location{
		Scheme:      s.opts.Scheme,
		Region:      s.opts.Region,
		Bucket:      s.opts.Bucket,
		Path:        path,
		HostnameFor: s.provider.HostnameFor,
	}
}

// Signer returns the signer bound to this stage's credentials and clock.
func (s *Stage) Signer() signature.Signer {
	return s.signer
}

// ProbePath returns an object path reserved for connectivity probes.
func (s *Stage) ProbePath() string {
	return s.prefixed(s.job.Group(), ".probe")
}

// fetchGroups returns the cascade of groups to try fetching, nearest first.
func (s *Stage) fetchGroups() []string {
	groups := []string{s.job.Group()}
	if s.job.IsPullRequest() {
		groups = append(groups, s.job.Branch)
	}
	if !s.job.OnDefaultBranch() {
		groups = append(groups, s.job.DefaultBranch)
	}
	seen := map[string]bool{}
	distinct := []string{}
	for _, group := range groups {
		if !seen[group] {
			seen[group] = true
			distinct = append(distinct, group)
		}
	}
	return distinct
}

// prefixed returns the object path for a group: the repository, group and
// slug separated by slashes, with anything outside the safe charset dropped.
func (s *Stage) prefixed(group, ext string) string {
	segments := []string{}
	for _, segment := range []string{s.job.Repository, group, s.slug} {
		if cleaned := sanitize(segment); cleaned != "" {
			segments = append(segments, cleaned)
		}
	}
	return "/" + strings.Join(segments, "/") + ext
}

// run emits one stasher invocation, guarded on the client being present.
func (s *Stage) run(args string, opts shell.CmdOpts) {
	s.sh.If("-f "+binPath, func() {
		s.sh.Cmd(binPath+" "+args, opts)
	})
}

// fold wraps a body in the next numbered fold, echoing a descriptive message.
func (s *Stage) fold(msg string, body func()) {
	s.folds++
	s.sh.Fold(fmt.Sprintf("cache.%d", s.folds), func() {
		if msg != "" {
			s.sh.Echo(msg, shell.EchoOpts{ANSI: "yellow"})
		}
		body()
	})
}

// writePlaceholder emits the instruction that leaves an empty script where
// the client would be, which later guarded invocations run as a no-op.
func (s *Stage) writePlaceholder() {
	s.sh.Cmd("echo > "+binPath, shell.CmdOpts{})
}

// curlFlags returns the flags the client download runs curl with.
func (s *Stage) curlFlags() string {
	if s.config.Cache.Debug {
		return "-v -w '" + curlFormat + "'"
	}
	return "-sf"
}

// sanitize strips every character we don't allow into object paths.
func sanitize(segment string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'A' && r <= 'Z' || r >= 'a' && r <= 'z' || r >= '0' && r <= '9':
			return r
		case r == '.' || r == '_' || r == '-':
			return r
		}
		return -1
	}, segment)
}

// DeriveSlug computes a stable slug from the set of cached directories, so
// different cache contents on the same branch don't clobber each other.
// Order doesn't matter; the same directories always produce the same slug.
func DeriveSlug(dirs []string) string {
	sorted := make([]string, len(dirs))
	copy(sorted, dirs)
	sort.Strings(sorted)
	h := xxhash.New()
	for _, dir := range sorted {
		h.WriteString(dir)
		h.Write([]byte{0})
	}
	return fmt.Sprintf("cache-%016x", h.Sum64())
}
