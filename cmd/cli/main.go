package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/kurihiro0119/orgsync/internal/config"
	"github.com/kurihiro0119/orgsync/internal/domain"
	"github.com/kurihiro0119/orgsync/internal/forge"
	"github.com/kurihiro0119/orgsync/internal/gitops"
	"github.com/kurihiro0119/orgsync/internal/scope"
	"github.com/kurihiro0119/orgsync/internal/storage"
	"github.com/kurihiro0119/orgsync/internal/storage/postgres"
	"github.com/kurihiro0119/orgsync/internal/storage/sqlite"
)

var (
	scopeToTeams bool
	devHome      string
	dryRun       bool
	outputJSON   bool
	historyLimit int
)

var rootCmd = &cobra.Command{
	Use:   "orgsync",
	Short: "GitHub organization repository sync tool",
	Long: `A CLI tool that keeps local clones of a GitHub organization's
repositories up to date.

It discovers the organization's repositories (optionally only those owned
by teams you belong to), clones missing ones under DEV_HOME/org/repo and
updates existing ones by stashing local changes, pulling the default
branch and restoring your prior state.`,
}

var syncCmd = &cobra.Command{
	Use:   "sync [org]",
	Short: "Clone and update the organization's repositories",
	Long:  `Resolve the visible repository set and clone or update each local copy.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runSync,
}

var reposCmd = &cobra.Command{
	Use:   "repos [org]",
	Short: "List the repositories a sync would touch",
	Args:  cobra.ExactArgs(1),
	RunE:  runRepos,
}

var historyCmd = &cobra.Command{
	Use:   "history [org]",
	Short: "Show recent sync runs",
	Args:  cobra.ExactArgs(1),
	RunE:  runHistory,
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&scopeToTeams, "teams", false, "only repositories owned by teams you belong to")
	rootCmd.PersistentFlags().StringVar(&devHome, "dev-home", "", "local development root (default $DEV_HOME or ~/dev)")
	rootCmd.PersistentFlags().BoolVar(&outputJSON, "json", false, "output in JSON format")
	syncCmd.Flags().BoolVar(&dryRun, "dry-run", false, "resolve and list repositories without touching the filesystem")
	historyCmd.Flags().IntVar(&historyLimit, "limit", 20, "number of runs to show")

	rootCmd.AddCommand(syncCmd)
	rootCmd.AddCommand(reposCmd)
	rootCmd.AddCommand(historyCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if devHome != "" {
		cfg.DevHome = devHome
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func getStorage(cfg *config.Config) (storage.Storage, error) {
	switch cfg.StorageType {
	case "postgres":
		return postgres.NewPostgresStorage(cfg.PostgresURL)
	default:
		return sqlite.NewSQLiteStorage(cfg.SQLitePath)
	}
}

func newResolver(cfg *config.Config, org string) (*scope.Resolver, error) {
	token, err := cfg.Credentials.Resolve()
	if err != nil {
		return nil, err
	}
	client, err := forge.NewGitHubClient(token, cfg.BaseURL)
	if err != nil {
		return nil, err
	}
	return scope.NewResolver(client, org, cfg.DevHome, scopeToTeams), nil
}

func runSync(cmd *cobra.Command, args []string) error {
	org := args[0]

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	resolver, err := newResolver(cfg, org)
	if err != nil {
		return err
	}

	ctx := context.Background()

	fmt.Printf("Resolving repositories for organization: %s\n", org)
	if scopeToTeams {
		fmt.Println("Scope: teams of the authenticated user")
	}

	repos, err := resolver.Repos(ctx)
	if err != nil {
		return fmt.Errorf("failed to resolve repositories: %w", err)
	}
	paths, err := resolver.RepoPaths(ctx)
	if err != nil {
		return fmt.Errorf("failed to resolve repository paths: %w", err)
	}
	fmt.Printf("Found %d repositories\n", len(repos))

	if dryRun {
		printRepoTable(repos, paths)
		return nil
	}

	if err := os.MkdirAll(filepath.Join(cfg.DevHome, org), 0o755); err != nil {
		return fmt.Errorf("failed to create organization directory: %w", err)
	}

	run := &domain.SyncRun{
		ID:        uuid.New().String(),
		Org:       org,
		Scoped:    scopeToTeams,
		Status:    domain.RunStatusInProgress,
		StartedAt: time.Now(),
	}

	// Run recording is best effort: a broken history database must not
	// block the sync itself.
	store, err := getStorage(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: run history unavailable: %v\n", err)
		store = nil
	} else {
		defer store.Close()
		if err := store.SaveRun(ctx, run); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to record run: %v\n", err)
		}
	}

	syncer := gitops.NewSyncer(os.Stdout)
	result := syncer.Sync(repos, paths)

	now := time.Now()
	run.FinishedAt = &now
	run.Status = domain.RunStatusCompleted
	run.Cloned = result.Cloned
	run.Updated = result.Updated
	run.UpToDate = result.UpToDate
	run.Failed = result.Failed
	for _, r := range result.Repos {
		r.RunID = run.ID
	}

	if store != nil {
		if err := store.SaveRun(ctx, run); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to record run: %v\n", err)
		}
		if err := store.SaveRepoResults(ctx, result.Repos); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to record repo results: %v\n", err)
		}
	}

	if outputJSON {
		return json.NewEncoder(os.Stdout).Encode(struct {
			Run   *domain.SyncRun      `json:"run"`
			Repos []*domain.RepoResult `json:"repos"`
		}{run, result.Repos})
	}

	printSummary(run, result)
	return nil
}

func runRepos(cmd *cobra.Command, args []string) error {
	org := args[0]

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	resolver, err := newResolver(cfg, org)
	if err != nil {
		return err
	}

	ctx := context.Background()
	repos, err := resolver.Repos(ctx)
	if err != nil {
		return fmt.Errorf("failed to resolve repositories: %w", err)
	}
	paths, err := resolver.RepoPaths(ctx)
	if err != nil {
		return fmt.Errorf("failed to resolve repository paths: %w", err)
	}

	if outputJSON {
		return json.NewEncoder(os.Stdout).Encode(repos)
	}

	printRepoTable(repos, paths)
	return nil
}

func runHistory(cmd *cobra.Command, args []string) error {
	org := args[0]

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	store, err := getStorage(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	defer store.Close()

	runs, err := store.GetRuns(context.Background(), org, historyLimit)
	if err != nil {
		return fmt.Errorf("failed to get runs: %w", err)
	}

	if outputJSON {
		return json.NewEncoder(os.Stdout).Encode(runs)
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Started", "Run ID", "Scoped", "Status", "Cloned", "Updated", "Up To Date", "Failed"})
	for _, r := range runs {
		table.Append([]string{
			r.StartedAt.Format("2006-01-02 15:04:05"),
			r.ID,
			fmt.Sprintf("%v", r.Scoped),
			r.Status,
			fmt.Sprintf("%d", r.Cloned),
			fmt.Sprintf("%d", r.Updated),
			fmt.Sprintf("%d", r.UpToDate),
			fmt.Sprintf("%d", r.Failed),
		})
	}
	table.Render()

	return nil
}

func printRepoTable(repos map[string]string, paths map[string]string) {
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Repository", "URL", "Path"})
	for _, name := range sortedKeys(repos) {
		table.Append([]string{name, repos[name], paths[name]})
	}
	table.Render()
}

func printSummary(run *domain.SyncRun, result gitops.Result) {
	fmt.Println()
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Metric", "Value"})
	table.Append([]string{"Cloned", fmt.Sprintf("%d", run.Cloned)})
	table.Append([]string{"Updated", fmt.Sprintf("%d", run.Updated)})
	table.Append([]string{"Up to date", fmt.Sprintf("%d", run.UpToDate)})
	table.Append([]string{"Failed", fmt.Sprintf("%d", run.Failed)})
	table.Render()

	if run.Failed > 0 {
		fmt.Println("\nFailures:")
		failures := tablewriter.NewWriter(os.Stdout)
		failures.SetHeader([]string{"Repository", "Step", "Detail"})
		for _, r := range result.Repos {
			if r.State == domain.StateFailed {
				failures.Append([]string{r.Repo, r.FailedStep, r.Detail})
			}
		}
		failures.Render()
	}

	fmt.Printf("\nRun %s complete\n", run.ID)
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
