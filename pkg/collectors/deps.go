// Package collectors fills the evidence slots of an in-flight investigation.
// Every collector shares one contract: it mutates its own slot (or appends
// compact error strings) and never lets a failure escape its boundary. The
// pipeline decides which collectors run and in what concurrency shape; each
// collector owns a disjoint set of slots so fan-out is safe.
package collectors

import (
	"github.com/sleuthops/sleuth/pkg/cloud"
	"github.com/sleuthops/sleuth/pkg/config"
	"github.com/sleuthops/sleuth/pkg/kube"
	"github.com/sleuthops/sleuth/pkg/logsclient"
	"github.com/sleuthops/sleuth/pkg/promql"
	"github.com/sleuthops/sleuth/pkg/scm"
)

// Deps carries the provider handles collectors call. Any handle may be nil;
// collectors treat a missing provider as an unavailable subsystem.
type Deps struct {
	Kube       *kube.Provider
	Metrics    *promql.Provider
	Logs       *logsclient.Client
	Cloud      *cloud.Provider
	SCM        *scm.Client
	Discoverer *scm.Discoverer
	Settings   *config.Settings
}
