package scm

import (
	"os/exec"
	"strings"
)

// git implements operations on a git repository.
type git struct {
	repoRoot string
}

// CurrentBranch returns the name of the branch HEAD points at, or empty if
// HEAD is detached, which is common on CI machines that check out a commit.
func (g *git) CurrentBranch() string {
	out, err := exec.Command("git", "-C", g.repoRoot, "symbolic-ref", "-q", "--short", "HEAD").CombinedOutput()
	if err != nil {
		log.Warning("Can't determine the current branch, HEAD seems detached")
		return ""
	}
	return strings.TrimSpace(string(out))
}

// Repository returns the owner/name form of the origin remote, or empty if
// there isn't one.
func (g *git) Repository() string {
	out, err := exec.Command("git", "-C", g.repoRoot, "remote", "get-url", "origin").CombinedOutput()
	if err != nil {
		log.Warning("Can't determine the origin remote: %s", strings.TrimSpace(string(out)))
		return ""
	}
	return parseRemote(string(out))
}

// parseRemote extracts the owner/name form from a git remote URL. It handles
// the usual https, ssh and scp-like forms; anything else comes back empty.
func parseRemote(remote string) string {
	remote = strings.TrimSuffix(strings.TrimSpace(remote), ".git")
	if i := strings.Index(remote, "://"); i != -1 {
		// URL syntax; owner/name is everything following the authority.
		remote = remote[i+len("://"):]
		if i := strings.IndexByte(remote, '/'); i != -1 {
			return strings.Trim(remote[i+1:], "/")
		}
		return ""
	}
	if i := strings.IndexByte(remote, ':'); i != -1 {
		// scp-like syntax, i.e. git@host:owner/name.
		return strings.Trim(remote[i+1:], "/")
	}
	return ""
}
