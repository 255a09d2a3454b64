package core

import "github.com/coreos/go-semver/semver"

// RawVersion is the unparsed raw version of cachestage.
const RawVersion = "1.3.0"

// CachestageVersion is the current version of cachestage.
var CachestageVersion = *semver.New(RawVersion)
