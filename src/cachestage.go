package main

import (
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"gopkg.in/op/go-logging.v1"

	"github.com/cachestage/cachestage/src/cache"
	"github.com/cachestage/cachestage/src/cli"
	"github.com/cachestage/cachestage/src/client"
	"github.com/cachestage/cachestage/src/core"
	"github.com/cachestage/cachestage/src/probe"
	"github.com/cachestage/cachestage/src/scm"
	"github.com/cachestage/cachestage/src/shell"
)

var log = logging.MustGetLogger("cachestage")

var config *core.Configuration

var opts struct {
	Usage string `usage:"cachestage compiles the build-cache stage of a CI job into shell instructions.\n\nIt derives cache locations from the job's identity, signs time-limited URLs for them and emits the commands that install the stasher client, restore the nearest archive and store updates after the build. The emitted script is inert until the job runs it."`

	Verbosity     cli.Verbosity     `short:"v" long:"verbosity" env:"CACHESTAGE_VERBOSITY" description:"Verbosity of output (error, warning, notice, info, debug)" default:"warning"`
	Config        cli.Filepaths     `short:"c" long:"config" description:"Additional config file to read, applied on top of the default locations"`
	Option        map[string]string `short:"o" long:"override" env:"CACHESTAGE_OVERRIDES" env-delim:";" description:"Options to override from the config file (e.g. -o s3.region:eu-west-1)"`
	Version       bool              `long:"version" description:"Print the version of the tool"`
	AssertVersion cli.Version       `long:"assert_version" hidden:"true" description:"Assert the tool matches this version."`

	Job struct {
		Repository    string `short:"r" long:"repository" env:"CACHESTAGE_REPOSITORY" description:"Repository the job is building, in owner/name form"`
		Branch        string `short:"b" long:"branch" env:"CACHESTAGE_BRANCH" description:"Branch under build; for pull requests this is the branch the PR targets"`
		PullRequest   string `long:"pull_request" env:"CACHESTAGE_PULL_REQUEST" description:"Pull request number, if this is a pull request build"`
		DefaultBranch string `long:"default_branch" env:"CACHESTAGE_DEFAULT_BRANCH" description:"Default branch of the repository" default:"master"`
		Slug          string `long:"slug" env:"CACHESTAGE_SLUG" description:"Label distinguishing this job's archives from other jobs on the same branch. Derived from the cached directories when not given."`
	} `group:"Options identifying the job"`

	Script struct {
		Output    cli.Filepath `long:"output" description:"File to write the script to (defaults to stdout)"`
		PushStage bool         `long:"push_stage" description:"Compile the stage that stores the cache after the build, instead of the one that restores it"`
	} `command:"script" description:"Compiles the cache stage for a job to a shell script"`

	URLs struct {
	} `command:"urls" description:"Prints the signed fetch and push URLs for a job"`

	Validate struct {
	} `command:"validate" description:"Checks the cache configuration is complete"`

	Probe struct {
		Write bool `short:"w" long:"write" description:"Verify write access by storing and deleting a small probe object"`
	} `command:"probe" description:"Checks which of a job's archives exist in the cache store"`

	Client struct {
		Install struct {
			Dir string `short:"d" long:"dir" description:"Directory to install into" default:"~/.stasher"`
		} `command:"install" description:"Downloads the stasher client directly, without going through a script"`
	} `command:"client" description:"Operations on the stasher cache client"`

	Init struct {
		Dir string `long:"dir" description:"Directory to create the config file in" default:"."`
	} `command:"init" description:"Initialises a new .cachestage config file"`
}

// Definitions of what we do for each command.
// Functions are called after the flags are parsed and return true for success.
var commands = map[string]func() bool{
	"script": func() bool {
		sh := shell.NewScript()
		stage := newStage(sh)
		var err error
		if opts.Script.PushStage {
			err = stage.Teardown()
		} else {
			err = stage.Setup()
		}
		if err != nil {
			log.Error("Cannot compile cache stage: %s", err)
			return false
		}
		return writeScript(sh)
	},
	"urls": func() bool {
		stage := newStage(shell.NewRecorder())
		fetchURLs, err := stage.FetchURLs()
		if err != nil {
			log.Error("Cannot sign fetch URLs: %s", err)
			return false
		}
		pushURL, err := stage.PushURL()
		if err != nil {
			log.Error("Cannot sign push URL: %s", err)
			return false
		}
		for _, url := range fetchURLs {
			fmt.Printf("GET %s\n", url)
		}
		fmt.Printf("PUT %s\n", pushURL)
		return true
	},
	"validate": func() bool {
		stage := newStage(shell.NewRecorder())
		store := strings.ToUpper(config.Cache.Store)
		if missing := stage.Validate(); len(missing) > 0 {
			fmt.Printf("%s cache config missing: %s\n", store, strings.Join(missing, ", "))
			return false
		}
		fmt.Printf("%s cache config looks complete.\n", store)
		return true
	},
	"probe": func() bool {
		if err := probe.Probe(config, currentJob(), probe.Options{Write: opts.Probe.Write}, os.Stdout); err != nil {
			log.Error("%s", err)
			return false
		}
		return true
	},
	"install": func() bool {
		installed, err := client.Download(config, core.ExpandHomePath(opts.Client.Install.Dir))
		if err != nil {
			log.Error("Failed to install stasher: %s", err)
			return false
		}
		fmt.Printf("Installed %s\n", installed)
		return true
	},
}

// newStage creates the cache stage for the current job, writing into the given sink.
func newStage(sh shell.Writer) *cache.Stage {
	stage, err := cache.NewStage(config, currentJob(), sh)
	if err != nil {
		log.Fatalf("%s", err)
	}
	return stage
}

// currentJob assembles the job identity from flags and environment, filling in
// anything missing from the SCM checkout we are run inside of.
func currentJob() *core.Job {
	job := &core.Job{
		Repository:    opts.Job.Repository,
		Branch:        opts.Job.Branch,
		PullRequest:   opts.Job.PullRequest,
		DefaultBranch: opts.Job.DefaultBranch,
		Slug:          opts.Job.Slug,
	}
	if job.Repository == "" || job.Branch == "" {
		s := scm.NewFallback(".")
		if job.Repository == "" {
			job.Repository = s.Repository()
		}
		if job.Branch == "" {
			job.Branch = s.CurrentBranch()
		}
	}
	return job
}

// writeScript writes the compiled script to the requested output.
func writeScript(sh *shell.Script) bool {
	if opts.Script.Output == "" {
		fmt.Print(sh.String())
		return true
	}
	if err := os.WriteFile(string(opts.Script.Output), []byte(sh.String()), 0755); err != nil {
		log.Error("Failed to write %s: %s", opts.Script.Output, err)
		return false
	}
	return true
}

// readConfig reads the config files and applies any overrides.
func readConfig() *core.Configuration {
	if opts.AssertVersion.IsSet && !opts.AssertVersion.Matches(core.CachestageVersion) {
		log.Fatalf("Requested cachestage version %s, but this is version %s", opts.AssertVersion, core.RawVersion)
	}
	files := []string{core.ConfigFileName, core.MachineConfigFileName, core.LocalConfigFileName}
	files = append(files, opts.Config.AsStrings()...)
	config, err := core.ReadConfigFiles(files)
	if err != nil {
		log.Fatalf("Error reading config file: %s", err)
	}
	if err := config.ApplyOverrides(opts.Option); err != nil {
		log.Fatalf("Can't override requested config setting: %s", err)
	}
	return config
}

const configTemplate = `; cachestage config file
; Defines where build caches are stored and which directories they carry.
; Fill in the store credentials, then run 'cachestage validate' to check them.
[cache]
; store = s3
; directories = node_modules

[s3]
; bucket = my-cache-bucket
; accesskeyid = ...
; secretaccesskey = ...
; region = us-east-1
`

// initConfig writes a fresh config template into the given directory.
func initConfig(dir string) {
	dir, err := filepath.Abs(dir)
	if err != nil {
		log.Warning("Can't determine absolute directory: %s", err)
	}
	filename := path.Join(dir, core.ConfigFileName)
	if core.PathExists(filename) {
		log.Fatalf("Config file %s already exists", filename)
	}
	if err := os.WriteFile(filename, []byte(configTemplate), 0644); err != nil {
		log.Fatalf("Failed to write file: %s", err)
	}
	fmt.Printf("Wrote config template to %s, you're now ready to go!\n", filename)
}

func main() {
	parser, extraArgs, err := cli.ParseFlags("cachestage", &opts, os.Args)
	if opts.Version {
		fmt.Printf("cachestage version %s\n", core.RawVersion)
		os.Exit(0) // Ignore other errors if --version was passed.
	}
	if err != nil || len(extraArgs) > 0 {
		// Re-parse to handle --help and die with a sensible message.
		cli.ParseFlagsFromArgsOrDie("cachestage", &opts, os.Args)
	}
	cli.InitLogging(opts.Verbosity)
	command := cli.ActiveCommand(parser.Command)
	if command == "init" {
		// Running init implies there isn't a config file to read yet.
		initConfig(opts.Init.Dir)
		os.Exit(0)
	}
	config = readConfig()
	if commands[command]() {
		os.Exit(0)
	}
	os.Exit(1)
}
