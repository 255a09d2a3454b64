// Package scm abstracts operations on various tools like git
// Currently, only git is supported.
package scm

import (
	"path"

	"gopkg.in/op/go-logging.v1"

	"github.com/cachestage/cachestage/src/core"
)

var log = logging.MustGetLogger("scm")

// An SCM represents an SCM implementation that we can ask about the state of a checkout.
type SCM interface {
	// CurrentBranch returns the name of the currently checked out branch,
	// or empty if it can't be determined.
	CurrentBranch() string
	// Repository returns the repository identifier in owner/name form,
	// or empty if it can't be determined.
	Repository() string
}

// New returns a new SCM instance for this repo root.
// It returns nil if there is no known implementation there.
func New(repoRoot string) SCM {
	if core.PathExists(path.Join(repoRoot, ".git")) {
		return &git{repoRoot: repoRoot}
	}
	return nil
}

// NewFallback returns a new SCM instance for this repo root.
// If there is no known implementation it returns a stub that knows nothing,
// and the job identity must be passed in explicitly.
func NewFallback(repoRoot string) SCM {
	if scm := New(repoRoot); scm != nil {
		return scm
	}
	log.Warning("Cannot determine SCM, job identity must be passed explicitly")
	return &stub{}
}
