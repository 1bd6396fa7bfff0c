package collectors

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sleuthops/sleuth/pkg/config"
	"github.com/sleuthops/sleuth/pkg/models"
	"github.com/sleuthops/sleuth/pkg/scm"
)

// githubFixture serves the endpoints CollectGitHub reads for myorg/checkout.
func githubFixture(t *testing.T) *httptest.Server {
	t.Helper()
	readme := base64.StdEncoding.EncodeToString([]byte("# checkout service\n"))
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/repos/myorg/checkout/commits":
			fmt.Fprint(w, `[{"sha":"abc123","commit":{"message":"fix timeout","author":{"name":"dev","date":"2025-06-01T10:00:00Z"}}}]`)
		case "/repos/myorg/checkout/actions/runs":
			fmt.Fprint(w, `{"workflow_runs":[
				{"id":42,"name":"ci","status":"completed","conclusion":"failure","head_branch":"main"},
				{"id":41,"name":"ci","status":"completed","conclusion":"success","head_branch":"main"}
			]}`)
		case "/repos/myorg/checkout/actions/runs/42/jobs":
			fmt.Fprint(w, `{"jobs":[{"name":"test","conclusion":"failure","steps":[{"name":"go test","conclusion":"failure"}]}]}`)
		case "/repos/myorg/checkout/readme":
			fmt.Fprintf(w, `{"content":%q,"encoding":"base64"}`, readme)
		case "/repos/myorg/checkout/contents/docs":
			fmt.Fprint(w, `[{"name":"runbook.md","path":"docs/runbook.md","type":"file"}]`)
		default:
			http.Error(w, `{"message":"Not Found"}`, http.StatusNotFound)
		}
	}))
}

func TestCollectGitHub(t *testing.T) {
	server := githubFixture(t)
	defer server.Close()

	client := scm.NewClient(scm.StaticTokenSource("tok"), server.URL)
	catalog := config.NewServiceCatalog(map[string]string{"checkout": "myorg/checkout"}, nil)
	deps := &Deps{
		SCM:        client,
		Discoverer: scm.NewDiscoverer(catalog, client, "myorg", ""),
	}
	inv := &models.Investigation{
		Target: models.TargetRef{Namespace: "prod", WorkloadName: "checkout"},
	}

	CollectGitHub(context.Background(), deps, inv)

	gh := inv.Evidence.GitHub
	require.NotNil(t, gh)
	assert.Equal(t, "myorg/checkout", gh.Repo)
	assert.Equal(t, scm.MethodServiceCatalog, gh.DiscoveryMethod)
	require.Len(t, gh.RecentCommits, 1)
	assert.Equal(t, "fix timeout", gh.RecentCommits[0].Message)
	require.Len(t, gh.WorkflowRuns, 2)
	require.Len(t, gh.FailedWorkflowLogs, 1)
	assert.Contains(t, gh.FailedWorkflowLogs[0], `job "test" failed`)
	assert.Equal(t, "# checkout service\n", gh.Readme)
	require.Len(t, gh.Docs, 1)
	assert.Empty(t, inv.Errors)
}

func TestCollectGitHubThirdPartyReducedRead(t *testing.T) {
	var paths []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path)
		if r.URL.Path == "/repos/kubernetes/ingress-nginx/commits" {
			fmt.Fprint(w, `[{"sha":"abc","commit":{"message":"release","author":{"name":"bot","date":"2025-06-01T10:00:00Z"}}}]`)
			return
		}
		http.Error(w, `{"message":"Not Found"}`, http.StatusNotFound)
	}))
	defer server.Close()

	client := scm.NewClient(nil, server.URL)
	catalog := config.NewServiceCatalog(nil, map[string]string{"ingress-nginx": "kubernetes/ingress-nginx"})
	deps := &Deps{
		SCM:        client,
		Discoverer: scm.NewDiscoverer(catalog, client, "myorg", ""),
	}
	inv := &models.Investigation{
		Target: models.TargetRef{Namespace: "kube-system", WorkloadName: "ingress-nginx"},
	}

	CollectGitHub(context.Background(), deps, inv)

	gh := inv.Evidence.GitHub
	require.NotNil(t, gh)
	assert.True(t, gh.IsThirdParty)
	assert.Len(t, gh.RecentCommits, 1)
	// Commits only: no CI, readme, or docs reads for third-party repos.
	assert.Equal(t, []string{"/repos/kubernetes/ingress-nginx/commits"}, paths)
	assert.Empty(t, gh.WorkflowRuns)
	assert.Empty(t, gh.Readme)
}

func TestCollectGitHubRepoNotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"message":"Not Found"}`, http.StatusNotFound)
	}))
	defer server.Close()

	client := scm.NewClient(nil, server.URL)
	deps := &Deps{
		SCM:        client,
		Discoverer: scm.NewDiscoverer(nil, client, "", ""),
	}
	inv := &models.Investigation{
		Target: models.TargetRef{Namespace: "prod", WorkloadName: "ghost"},
	}

	CollectGitHub(context.Background(), deps, inv)
	require.NotNil(t, inv.Evidence.GitHub)
	assert.Empty(t, inv.Evidence.GitHub.Repo)
	assert.Equal(t, scm.MethodNotFound, inv.Evidence.GitHub.DiscoveryMethod)
}

func TestCollectGitHubSkips(t *testing.T) {
	t.Run("no providers", func(t *testing.T) {
		inv := &models.Investigation{Target: models.TargetRef{WorkloadName: "checkout"}}
		CollectGitHub(context.Background(), &Deps{}, inv)
		assert.Nil(t, inv.Evidence.GitHub)
	})

	t.Run("no workload identity", func(t *testing.T) {
		client := scm.NewClient(nil, "http://github.invalid")
		deps := &Deps{SCM: client, Discoverer: scm.NewDiscoverer(nil, nil, "myorg", "")}
		inv := &models.Investigation{}
		CollectGitHub(context.Background(), deps, inv)
		assert.Nil(t, inv.Evidence.GitHub)
	})
}
