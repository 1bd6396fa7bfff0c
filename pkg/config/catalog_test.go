package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestServiceCatalogLookup(t *testing.T) {
	catalog := NewServiceCatalog(
		map[string]string{"Checkout-Service": "myorg/checkout"},
		map[string]string{"ingress-nginx": "kubernetes/ingress-nginx"},
	)

	repo, ok := catalog.LookupService("checkout-service")
	assert.True(t, ok)
	assert.Equal(t, "myorg/checkout", repo)

	repo, ok = catalog.LookupService("CHECKOUT-SERVICE")
	assert.True(t, ok)
	assert.Equal(t, "myorg/checkout", repo)

	_, ok = catalog.LookupService("payments")
	assert.False(t, ok)

	repo, ok = catalog.LookupThirdParty("ingress-nginx")
	assert.True(t, ok)
	assert.Equal(t, "kubernetes/ingress-nginx", repo)
}

func TestServiceCatalogNilSafe(t *testing.T) {
	var catalog *ServiceCatalog
	_, ok := catalog.LookupService("anything")
	assert.False(t, ok)
	_, ok = catalog.LookupThirdParty("anything")
	assert.False(t, ok)
}

func TestLoadServiceCatalog(t *testing.T) {
	dir := t.TempDir()
	base := writeFile(t, dir, "catalog.yaml", `
services:
  checkout: myorg/checkout
  payments: myorg/payments
third_party:
  redis: redis/redis
`)

	t.Run("base only", func(t *testing.T) {
		catalog, err := LoadServiceCatalog(base, "")
		require.NoError(t, err)

		repo, ok := catalog.LookupService("checkout")
		assert.True(t, ok)
		assert.Equal(t, "myorg/checkout", repo)
	})

	t.Run("overlay entries win", func(t *testing.T) {
		overlay := writeFile(t, dir, "overlay.yaml", `
services:
  checkout: fork-org/checkout
  search: myorg/search
`)
		catalog, err := LoadServiceCatalog(base, overlay)
		require.NoError(t, err)

		repo, _ := catalog.LookupService("checkout")
		assert.Equal(t, "fork-org/checkout", repo)
		repo, _ = catalog.LookupService("search")
		assert.Equal(t, "myorg/search", repo)
		repo, _ = catalog.LookupService("payments")
		assert.Equal(t, "myorg/payments", repo)
	})

	t.Run("absent files yield empty catalog", func(t *testing.T) {
		catalog, err := LoadServiceCatalog(filepath.Join(dir, "missing.yaml"), "")
		require.NoError(t, err)
		_, ok := catalog.LookupService("checkout")
		assert.False(t, ok)
	})

	t.Run("malformed yaml fails", func(t *testing.T) {
		bad := writeFile(t, dir, "bad.yaml", "services: [not, a, map")
		_, err := LoadServiceCatalog(bad, "")
		assert.Error(t, err)
	})

	t.Run("env expansion in values", func(t *testing.T) {
		t.Setenv("CATALOG_ORG", "acme")
		templated := writeFile(t, dir, "templated.yaml", `
services:
  checkout: "{{.CATALOG_ORG}}/checkout"
`)
		catalog, err := LoadServiceCatalog(templated, "")
		require.NoError(t, err)
		repo, _ := catalog.LookupService("checkout")
		assert.Equal(t, "acme/checkout", repo)
	})
}

func TestExpandEnv(t *testing.T) {
	t.Setenv("EXPAND_TEST_VAR", "value-1")

	out := ExpandEnv([]byte("key: {{.EXPAND_TEST_VAR}}"))
	assert.Equal(t, "key: value-1", string(out))

	// Plain $ passes through untouched.
	out = ExpandEnv([]byte(`pattern: ^foo-$`))
	assert.Equal(t, "pattern: ^foo-$", string(out))

	// Missing variables expand to empty.
	out = ExpandEnv([]byte("key: {{.EXPAND_TEST_MISSING}}"))
	assert.Equal(t, "key: ", string(out))

	// Broken templates fall back to the original data.
	out = ExpandEnv([]byte("key: {{.unclosed"))
	assert.Equal(t, "key: {{.unclosed", string(out))
}
