package scm

import (
	"context"
	"log/slog"
	"regexp"

	"github.com/sleuthops/sleuth/pkg/config"
)

// repoPattern is the shape every discovered repo must satisfy: "org/name",
// both parts non-empty, no extra slashes.
var repoPattern = regexp.MustCompile(`^[^/]+/[^/]+$`)

// Discovery method tags, recorded on the evidence for traceability.
const (
	MethodWorkloadAnnotation = "workload_annotation"
	MethodAlertLabel         = "alert_label"
	MethodServiceCatalog     = "service_catalog"
	MethodThirdPartyCatalog  = "third_party_catalog"
	MethodNamingConvention   = "naming_convention"
	MethodNotFound           = "not_found"
)

// RepoVerifier checks that a guessed repository actually exists.
type RepoVerifier interface {
	RepoExists(ctx context.Context, repo string) (bool, error)
}

// DiscoveryInput carries everything the chain inspects.
type DiscoveryInput struct {
	WorkloadName        string
	WorkloadAnnotations map[string]string
	AlertLabels         map[string]string
}

// DiscoveryResult is the outcome of one chain run.
type DiscoveryResult struct {
	Repo         string
	Method       string
	IsThirdParty bool
	// Unverified marks a naming-convention guess that could not be
	// confirmed against the SCM provider.
	Unverified bool
}

// Discoverer resolves a workload to its source repository through an
// ordered fallback chain; the first hit wins.
type Discoverer struct {
	catalog    *config.ServiceCatalog
	verifier   RepoVerifier
	defaultOrg string
	orgPrefix  string
	logger     *slog.Logger
}

// NewDiscoverer builds the chain. verifier may be nil (naming-convention
// guesses are then returned unverified); catalog may be nil.
func NewDiscoverer(catalog *config.ServiceCatalog, verifier RepoVerifier, defaultOrg, orgPrefix string) *Discoverer {
	return &Discoverer{
		catalog:    catalog,
		verifier:   verifier,
		defaultOrg: defaultOrg,
		orgPrefix:  orgPrefix,
		logger:     slog.Default(),
	}
}

// ValidRepo reports whether a string is a well-formed "org/name" reference.
func ValidRepo(repo string) bool {
	return repoPattern.MatchString(repo)
}

// Discover runs the chain:
//  1. workload annotations (github.com/repo, <org-prefix>/github-repo)
//  2. alert labels (github_repo, github_repository)
//  3. user service catalog, exact then fuzzy (suffix-stripped, and
//     "<stripped>-service")
//  4. third-party service catalog (custom overlay already merged in)
//  5. naming convention "<default-org>/<cleaned-name>", verified when a
//     verifier is available
//  6. Helm release metadata — not implemented, reports not found
//  7. OCI image labels — not implemented, reports not found
//  8. not found
func (d *Discoverer) Discover(ctx context.Context, in DiscoveryInput) DiscoveryResult {
	// 1. Workload annotations
	for _, key := range d.annotationKeys() {
		if repo := in.WorkloadAnnotations[key]; ValidRepo(repo) {
			return DiscoveryResult{Repo: repo, Method: MethodWorkloadAnnotation}
		}
	}

	// 2. Alert labels
	for _, key := range []string{"github_repo", "github_repository"} {
		if repo := in.AlertLabels[key]; ValidRepo(repo) {
			return DiscoveryResult{Repo: repo, Method: MethodAlertLabel}
		}
	}

	name := CleanWorkloadName(in.WorkloadName)
	if name == "" {
		return DiscoveryResult{Method: MethodNotFound}
	}

	// 3. User service catalog, exact then fuzzy
	if repo, ok := d.catalogLookup(name); ok {
		return DiscoveryResult{Repo: repo, Method: MethodServiceCatalog}
	}

	// 4. Third-party catalog
	if repo, ok := d.thirdPartyLookup(name); ok {
		return DiscoveryResult{Repo: repo, Method: MethodThirdPartyCatalog, IsThirdParty: true}
	}

	// 5. Naming convention with verification
	if d.defaultOrg != "" {
		if result, ok := d.namingConvention(ctx, name); ok {
			return result
		}
	}

	// 6-7. Helm release metadata and OCI image labels have no definitive
	// source semantics yet; both report not found.

	return DiscoveryResult{Method: MethodNotFound}
}

func (d *Discoverer) annotationKeys() []string {
	keys := []string{"github.com/repo"}
	if d.orgPrefix != "" {
		keys = append(keys, d.orgPrefix+"/github-repo")
	}
	return keys
}

// catalogLookup tries the exact name, then suffix-stripped variants and the
// "<stripped>-service" convention.
func (d *Discoverer) catalogLookup(name string) (string, bool) {
	if repo, ok := d.catalog.LookupService(name); ok {
		return repo, true
	}
	stripped, changed := StripWorkloadSuffix(name)
	if !changed {
		return "", false
	}
	if repo, ok := d.catalog.LookupService(stripped); ok {
		return repo, true
	}
	if repo, ok := d.catalog.LookupService(stripped + "-service"); ok {
		return repo, true
	}
	return "", false
}

func (d *Discoverer) thirdPartyLookup(name string) (string, bool) {
	if repo, ok := d.catalog.LookupThirdParty(name); ok {
		return repo, true
	}
	stripped, changed := StripWorkloadSuffix(name)
	if changed {
		if repo, ok := d.catalog.LookupThirdParty(stripped); ok {
			return repo, true
		}
	}
	return "", false
}

// namingConvention builds candidates from the cleaned name and its
// suffix-stripped variants and verifies each against the SCM provider.
// Without a verifier the first candidate is returned, marked unverified.
func (d *Discoverer) namingConvention(ctx context.Context, name string) (DiscoveryResult, bool) {
	candidates := []string{name}
	if stripped, changed := StripWorkloadSuffix(name); changed {
		candidates = append(candidates, stripped, stripped+"-service")
	}

	if d.verifier == nil {
		repo := d.defaultOrg + "/" + candidates[0]
		if !ValidRepo(repo) {
			return DiscoveryResult{}, false
		}
		return DiscoveryResult{Repo: repo, Method: MethodNamingConvention, Unverified: true}, true
	}

	for _, candidate := range candidates {
		repo := d.defaultOrg + "/" + candidate
		if !ValidRepo(repo) {
			continue
		}
		exists, err := d.verifier.RepoExists(ctx, repo)
		if err != nil {
			// Verification unavailable: trust the first candidate but say so.
			d.logger.Warn("Repo verification unavailable, returning unverified guess",
				"repo", repo, "error", err)
			return DiscoveryResult{Repo: repo, Method: MethodNamingConvention, Unverified: true}, true
		}
		if exists {
			return DiscoveryResult{Repo: repo, Method: MethodNamingConvention}, true
		}
	}
	return DiscoveryResult{}, false
}
