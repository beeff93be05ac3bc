package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/liberate-sh/liberate/internal/coolify"
	"github.com/liberate-sh/liberate/internal/githubrepo"
	"github.com/liberate-sh/liberate/internal/preflight"
	"github.com/liberate-sh/liberate/internal/store"
)

var preflightCmd = &cobra.Command{
	Use:   "preflight",
	Short: "Run deployment pre-flight checks (and repair the Dockerfile if needed)",
	Long: `Preflight checks orchestrator reachability, compute nodes, repository
access, package.json presence, and Dockerfile validity. An invalid or
missing Dockerfile is repaired or generated in place via a commit on the
default branch, then re-fetched and re-verified before the run is marked
ready.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		serverRef, _ := cmd.Flags().GetString("server")
		repoURL, _ := cmd.Flags().GetString("repo")
		output, _ := cmd.Flags().GetString("output")
		skipFix, _ := cmd.Flags().GetBool("skip-dockerfile-fix")
		port, _ := cmd.Flags().GetInt("port")
		envPairs, _ := cmd.Flags().GetStringArray("env")
		project, _ := cmd.Flags().GetString("project")
		domain, _ := cmd.Flags().GetString("domain")
		autoDeploy, _ := cmd.Flags().GetBool("auto-deploy")
		doProvision, _ := cmd.Flags().GetBool("provision")

		manifest, err := loadManifest()
		if err != nil {
			return err
		}
		if repoURL == "" {
			repoURL = manifest.Repo
		}
		if port == 0 {
			port = manifest.Port
		}
		if project == "" {
			project = manifest.Project
		}
		if domain == "" {
			domain = manifest.Domain
		}
		if repoURL == "" {
			return fmt.Errorf("repository URL is required (--repo or liberate.yaml)")
		}
		if serverRef == "" {
			return fmt.Errorf("--server is required (see 'liberate servers add')")
		}

		envVars, err := parseEnvFlags(envPairs)
		if err != nil {
			return err
		}
		for k, v := range manifest.Env {
			if _, set := envVars[k]; !set {
				envVars[k] = v
			}
		}

		owner, repo, err := githubrepo.ParseRepoURL(repoURL)
		if err != nil {
			return err
		}

		srv, err := openServer(serverRef)
		if err != nil {
			return err
		}

		debug := viper.GetBool("debug")
		orch, err := coolify.NewClient(srv.URL, srv.Token, debug)
		if err != nil {
			return err
		}
		src := githubrepo.NewClient(resolveGitHubToken(), owner, repo, debug)

		runReq := preflight.Request{
			Source:            src,
			Orchestrator:      orch,
			Port:              port,
			EnvVars:           envVars,
			EnvDefaults:       viper.GetStringMapString("defaults.env"),
			SkipDockerfileFix: skipFix,
			Budget:            time.Duration(viper.GetInt("timeout_seconds")) * time.Second,
		}
		if doProvision {
			if project == "" {
				return fmt.Errorf("--provision requires --project (or project in liberate.yaml)")
			}
			runReq.Provisioner = orch
			runReq.ProjectName = project
			runReq.Domain = domain
			runReq.AutoDeploy = autoDeploy
			runReq.DeployToken = viper.GetString("github.deploy_token")
		}

		report := preflight.Run(context.Background(), runReq)

		if err := printReport(report, output); err != nil {
			return err
		}
		if !report.Ready {
			return fmt.Errorf("pre-flight checks failed")
		}
		return nil
	},
}

// openServer loads the orchestrator record the run should target. A missing
// record is an entry failure: the run never starts.
func openServer(idOrName string) (*store.Server, error) {
	path, err := store.DefaultPath()
	if err != nil {
		return nil, err
	}
	st, err := store.Open(path)
	if err != nil {
		return nil, err
	}
	defer st.Close()
	return st.Get(idOrName)
}

func printReport(report *preflight.Report, output string) error {
	switch output {
	case "json":
		data, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(data))
	case "yaml":
		data, err := yaml.Marshal(report)
		if err != nil {
			return err
		}
		fmt.Print(string(data))
	default:
		fmt.Print(report.Summary())
	}
	return nil
}

func init() {
	preflightCmd.Flags().String("server", "", "stored orchestrator server id or name")
	preflightCmd.Flags().String("repo", "", "GitHub repository URL (or set repo in liberate.yaml)")
	preflightCmd.Flags().Int("port", 0, "exposed application port (default 3000)")
	preflightCmd.Flags().StringArray("env", nil, "environment variable KEY=VALUE (repeatable)")
	preflightCmd.Flags().Bool("skip-dockerfile-fix", false, "report Dockerfile problems without committing a fix")
	preflightCmd.Flags().Bool("provision", false, "provision the application when every check passes")
	preflightCmd.Flags().String("project", "", "orchestrator project name (with --provision)")
	preflightCmd.Flags().String("domain", "", "domain to bind to the application (with --provision)")
	preflightCmd.Flags().Bool("auto-deploy", false, "trigger the first build/deploy after provisioning")
	preflightCmd.Flags().String("output", "summary", "output format: summary, json, yaml")

	rootCmd.AddCommand(preflightCmd)
}
