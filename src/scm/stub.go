package scm

// stub is the implementation of last resort; it reports the conventional
// default branch and no repository.
type stub struct{}

func (s *stub) CurrentBranch() string {
	return "master"
}

func (s *stub) Repository() string {
	return ""
}
