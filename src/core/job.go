package core

// A Job identifies the CI job a cache stage is compiled for. It is filled in
// once from flags or the environment and read-only from then on.
type Job struct {
	// Repository the job runs for, in "owner/name" form.
	Repository string
	// Branch the job runs for. On pull request jobs this is the branch the
	// pull request targets, not the one it comes from.
	Branch string
	// PullRequest is the pull request number, or empty for branch jobs.
	PullRequest string
	// DefaultBranch is the repository's default branch, the last resort of
	// the fetch cascade.
	DefaultBranch string
	// Slug distinguishes this cache from other caches on the same branch,
	// e.g. different build environments. Derived from the configured
	// directories when left empty.
	Slug string
}

// IsPullRequest returns true if the job builds a pull request.
func (job *Job) IsPullRequest() bool {
	return job.PullRequest != ""
}

// Group returns the path segment the job's own archives live under. Pull
// requests get a group of their own so they never overwrite branch caches.
func (job *Job) Group() string {
	if job.IsPullRequest() {
		return "PR." + job.PullRequest
	}
	return job.Branch
}

// OnDefaultBranch returns true if the job runs on the repository's default branch.
func (job *Job) OnDefaultBranch() bool {
	return job.Branch == job.DefaultBranch
}
