// Sleuth investigation server — accepts Alertmanager webhooks, runs
// evidence collection and analysis, and serves the chat tool API.
package main

import (
	"context"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/sleuthops/sleuth/pkg/analysis"
	"github.com/sleuthops/sleuth/pkg/api"
	"github.com/sleuthops/sleuth/pkg/cloud"
	"github.com/sleuthops/sleuth/pkg/collectors"
	"github.com/sleuthops/sleuth/pkg/config"
	"github.com/sleuthops/sleuth/pkg/kube"
	"github.com/sleuthops/sleuth/pkg/llm"
	"github.com/sleuthops/sleuth/pkg/logsclient"
	"github.com/sleuthops/sleuth/pkg/masking"
	"github.com/sleuthops/sleuth/pkg/pipeline"
	"github.com/sleuthops/sleuth/pkg/promql"
	"github.com/sleuthops/sleuth/pkg/scm"
	"github.com/sleuthops/sleuth/pkg/tools"
	"github.com/sleuthops/sleuth/pkg/version"
)

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func main() {
	configDir := flag.String("config-dir",
		getEnv("CONFIG_DIR", "./deploy/config"),
		"Path to configuration directory")
	flag.Parse()

	// Load .env from the config directory; absence is fine.
	envPath := filepath.Join(*configDir, ".env")
	if err := godotenv.Load(envPath); err != nil {
		slog.Warn("Could not load .env file, continuing with existing environment",
			"path", envPath, "error", err)
	} else {
		slog.Info("Loaded environment", "path", envPath)
	}

	httpPort := getEnv("HTTP_PORT", "8080")

	slog.Info("Starting sleuth",
		"version", version.Full(),
		"http_port", httpPort,
		"config_dir", *configDir)

	ctx := context.Background()

	// 1. Process configuration.
	settings := config.Load()

	// 2. Kubernetes provider: in-cluster config or kubeconfig.
	var kubeProvider *kube.Provider
	if kp, err := kube.NewProviderFromEnv(); err != nil {
		slog.Warn("Kubernetes unavailable, pod evidence disabled", "error", err)
	} else {
		kubeProvider = kp
		slog.Info("Kubernetes provider initialized", "in_cluster", settings.InCluster)
	}

	// 3. Prometheus provider.
	var metricsProvider *promql.Provider
	if promURL := os.Getenv("PROMETHEUS_URL"); promURL != "" {
		mp, err := promql.NewProviderFromURL(promURL)
		if err != nil {
			slog.Error("Invalid PROMETHEUS_URL", "url", promURL, "error", err)
			os.Exit(1)
		}
		metricsProvider = mp
		slog.Info("Metrics provider initialized", "url", promURL)
	} else {
		slog.Warn("PROMETHEUS_URL unset, metric evidence disabled")
	}

	// 4. Logs provider (Loki or VictoriaLogs).
	var logsProvider *logsclient.Client
	if settings.LogsURL != "" {
		logsProvider = logsclient.NewClient(settings)
		slog.Info("Logs provider initialized", "url", settings.LogsURL, "backend", settings.LogsBackend)
	} else {
		slog.Warn("LOGS_URL unset, log evidence disabled")
	}

	// 5. AWS provider; clients are created lazily per region.
	var cloudProvider *cloud.Provider
	if settings.AWSEvidenceEnabled {
		cloudProvider = cloud.NewProvider(cloud.NewClientCache())
		slog.Info("AWS provider initialized", "default_region", settings.AWSRegion)
	}

	// 6. SCM client, service catalog, and repo discovery.
	var scmClient *scm.Client
	var discoverer *scm.Discoverer
	catalog, err := config.LoadServiceCatalog(
		filepath.Join(*configDir, "service_catalog.yaml"),
		os.Getenv("SERVICE_CATALOG_OVERLAY"))
	if err != nil {
		slog.Error("Failed to load service catalog", "error", err)
		os.Exit(1)
	}
	if settings.GitHubAppID != "" && settings.GitHubAppPrivateKey != "" {
		tokenSource, err := scm.NewAppTokenSource(
			settings.GitHubAppID,
			settings.GitHubAppInstallationID,
			settings.GitHubAppPrivateKey,
			"")
		if err != nil {
			slog.Error("Failed to initialize GitHub app credentials", "error", err)
			os.Exit(1)
		}
		scmClient = scm.NewClient(tokenSource, "")
		slog.Info("GitHub client initialized", "app_id", settings.GitHubAppID)
	}
	// A typed nil client must not become a non-nil verifier interface.
	var verifier scm.RepoVerifier
	if scmClient != nil {
		verifier = scmClient
	}
	discoverer = scm.NewDiscoverer(catalog, verifier, settings.GitHubDefaultOrg,
		os.Getenv("GITHUB_ORG_PREFIX"))

	// 7. Masking service and LLM enrichment.
	masker := masking.NewService()
	var enricher *analysis.Enricher
	if settings.LLM.Enabled {
		client, configError := llm.NewClient(ctx, settings.LLM)
		enricher = analysis.NewEnricher(client, configError, masker, settings.LLM.IncludeLogs)
		slog.Info("LLM enrichment initialized",
			"provider", settings.LLM.Provider,
			"mock", settings.LLM.Mock,
			"config_error", configError)
	}

	// 8. Pipeline, tool dispatcher, and HTTP server.
	deps := &collectors.Deps{
		Kube:       kubeProvider,
		Metrics:    metricsProvider,
		Logs:       logsProvider,
		Cloud:      cloudProvider,
		SCM:        scmClient,
		Discoverer: discoverer,
		Settings:   settings,
	}
	pipe := pipeline.New(deps, enricher)
	dispatcher := tools.NewDispatcher(deps, pipe, masker)

	httpServer := &http.Server{
		Addr: ":" + httpPort,
		Handler: api.NewServer(pipe, dispatcher,
			getEnv("DEFAULT_TIME_WINDOW", "1h"),
			defaultChatPolicy(), defaultActionPolicy()).Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// 9. Start HTTP server (non-blocking).
	errCh := make(chan error, 1)
	go func() {
		slog.Info("HTTP server listening", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("HTTP server error", "error", err)
			errCh <- err
		}
	}()

	slog.Info("Sleuth started successfully")

	// 10. Wait for shutdown signal or server error.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)

	select {
	case sig := <-sigCh:
		slog.Info("Shutdown signal received", "signal", sig)
	case err := <-errCh:
		slog.Error("Server error triggered shutdown", "error", err)
	}

	// 11. Graceful shutdown.
	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	}

	slog.Info("Shutdown complete")
}

// defaultChatPolicy is read-everything with redaction on; deployments
// tighten it via their own policy wiring.
func defaultChatPolicy() tools.ChatPolicy {
	return tools.ChatPolicy{
		AllowPromQL:      true,
		AllowK8sRead:     true,
		AllowK8sEvents:   true,
		AllowLogsQuery:   true,
		AllowAWSRead:     true,
		AllowGitHubRead:  true,
		AllowMemoryRead:  true,
		AllowReportRerun: true,
		RedactSecrets:    true,

		MaxLogLines:          500,
		MaxPromQLSeries:      50,
		MaxTimeWindowSeconds: int((24 * time.Hour).Seconds()),
	}
}

// defaultActionPolicy keeps mutating proposals off until enabled
// explicitly.
func defaultActionPolicy() tools.ActionPolicy {
	return tools.ActionPolicy{
		Enabled:           config.ParseBool(os.Getenv("ACTIONS_ENABLED")),
		MaxActionsPerCase: 10,
	}
}
