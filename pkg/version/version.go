// Package version reports what build is running: an -ldflags override
// when set, the VCS revision from embedded build info otherwise, "dev"
// when neither exists.
package version

import (
	"runtime/debug"
	"sync"
)

// AppName appears in health responses, user agents, and log lines.
const AppName = "sleuth"

// commit is overridable at build time:
//
//	go build -ldflags "-X github.com/sleuthops/sleuth/pkg/version.commit=$(git rev-parse HEAD)"
//
// Container builds need this; their build context has no .git.
var commit string

var resolve = sync.OnceValue(func() string {
	if commit != "" {
		return short(commit)
	}
	if info, ok := debug.ReadBuildInfo(); ok {
		for _, setting := range info.Settings {
			if setting.Key == "vcs.revision" && setting.Value != "" {
				return short(setting.Value)
			}
		}
	}
	return "dev"
})

func short(rev string) string {
	if len(rev) > 8 {
		return rev[:8]
	}
	return rev
}

// Commit returns the short revision identifying this build.
func Commit() string { return resolve() }

// Full returns "sleuth/<commit>".
func Full() string { return AppName + "/" + resolve() }
