package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"dario.cat/mergo"
	"gopkg.in/yaml.v3"
)

// ServiceCatalog maps workload/service names to source repositories
// ("org/repo"). Lookups are case-insensitive. The third-party catalog marks
// services whose code the team does not own; a custom overlay file takes
// precedence over the built-in one.
type ServiceCatalog struct {
	Services   map[string]string `yaml:"services"`
	ThirdParty map[string]string `yaml:"third_party"`
}

// NewServiceCatalog builds a catalog from in-memory maps (used by tests and
// by callers that do not load YAML files).
func NewServiceCatalog(services, thirdParty map[string]string) *ServiceCatalog {
	c := &ServiceCatalog{
		Services:   map[string]string{},
		ThirdParty: map[string]string{},
	}
	for k, v := range services {
		c.Services[strings.ToLower(k)] = v
	}
	for k, v := range thirdParty {
		c.ThirdParty[strings.ToLower(k)] = v
	}
	return c
}

// LoadServiceCatalog reads the catalog YAML at path and merges an optional
// overlay file on top of it (overlay entries win). Either path may be empty
// or absent; an empty catalog is returned in that case.
func LoadServiceCatalog(path, overlayPath string) (*ServiceCatalog, error) {
	base := &ServiceCatalog{}
	if path != "" {
		if err := loadCatalogFile(path, base); err != nil {
			return nil, err
		}
	}
	if overlayPath != "" {
		overlay := &ServiceCatalog{}
		if err := loadCatalogFile(overlayPath, overlay); err != nil {
			slog.Warn("Could not load catalog overlay, continuing without it",
				"path", overlayPath, "error", err)
		} else if err := mergo.Merge(base, overlay, mergo.WithOverride); err != nil {
			return nil, fmt.Errorf("merge catalog overlay: %w", err)
		}
	}
	return NewServiceCatalog(base.Services, base.ThirdParty), nil
}

func loadCatalogFile(path string, target *ServiceCatalog) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read catalog %s: %w", path, err)
	}
	data = ExpandEnv(data)
	if err := yaml.Unmarshal(data, target); err != nil {
		return fmt.Errorf("parse catalog %s: %w", path, err)
	}
	return nil
}

// LookupService returns the repo for a user-owned service name.
func (c *ServiceCatalog) LookupService(name string) (string, bool) {
	if c == nil {
		return "", false
	}
	repo, ok := c.Services[strings.ToLower(name)]
	return repo, ok
}

// LookupThirdParty returns the repo for a third-party service name.
func (c *ServiceCatalog) LookupThirdParty(name string) (string, bool) {
	if c == nil {
		return "", false
	}
	repo, ok := c.ThirdParty[strings.ToLower(name)]
	return repo, ok
}
