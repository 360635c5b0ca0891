package version

import "runtime/debug"

const version = "0.1.0"

// BuildFlag is set at link time, e.g. -X ...version.BuildFlag=$(git rev-parse --short HEAD).
var BuildFlag string

func CurrentVersion() string {
	flag := BuildFlag
	if flag == "" {
		flag = vcsRevision()
	}
	if flag == "" {
		return version
	}
	return version + "+" + flag
}

// vcsRevision falls back to the revision stamped by the go tool.
func vcsRevision() string {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return ""
	}
	for _, s := range info.Settings {
		if s.Key == "vcs.revision" && len(s.Value) >= 7 {
			return s.Value[:7]
		}
	}
	return ""
}
