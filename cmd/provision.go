package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/liberate-sh/liberate/internal/coolify"
	"github.com/liberate-sh/liberate/internal/githubrepo"
)

var provisionCmd = &cobra.Command{
	Use:   "provision",
	Short: "Create and configure the application on the orchestrator",
	Long: `Provision finds or creates the Coolify project, creates the application
bound to the repository and a compute node, patches its build configuration,
injects environment variables, and optionally triggers the first deploy.
Run preflight first; provision assumes the repository already passed.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		serverRef, _ := cmd.Flags().GetString("server")
		repoURL, _ := cmd.Flags().GetString("repo")
		project, _ := cmd.Flags().GetString("project")
		domain, _ := cmd.Flags().GetString("domain")
		nodeUUID, _ := cmd.Flags().GetString("node")
		port, _ := cmd.Flags().GetInt("port")
		autoDeploy, _ := cmd.Flags().GetBool("auto-deploy")
		envPairs, _ := cmd.Flags().GetStringArray("env")

		manifest, err := loadManifest()
		if err != nil {
			return err
		}
		if repoURL == "" {
			repoURL = manifest.Repo
		}
		if project == "" {
			project = manifest.Project
		}
		if domain == "" {
			domain = manifest.Domain
		}
		if port == 0 {
			port = manifest.Port
		}

		if serverRef == "" || repoURL == "" || project == "" {
			return fmt.Errorf("--server, --repo, and --project are required")
		}

		envMap, err := parseEnvFlags(envPairs)
		if err != nil {
			return err
		}
		for k, v := range manifest.Env {
			if _, set := envMap[k]; !set {
				envMap[k] = v
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
		client, err := coolify.NewClient(srv.URL, srv.Token, debug)
		if err != nil {
			return err
		}

		ctx := context.Background()

		if nodeUUID == "" {
			nodes, err := client.ListServers(ctx)
			if err != nil {
				return err
			}
			nodeUUID = nodes[0].UUID
			if debug {
				fmt.Printf("[provision] using compute node %s (%s)\n", nodes[0].Name, nodeUUID)
			}
		}

		src := githubrepo.NewClient(resolveGitHubToken(), owner, repo, debug)
		branch, _, err := src.DefaultBranch(ctx)
		if err != nil {
			return err
		}

		// A platform-level deploy token embedded in the clone URL lets the
		// orchestrator pull a private repository without the user's token.
		deployToken := viper.GetString("github.deploy_token")
		gitURL := githubrepo.CloneURL(owner, repo, deployToken)

		envVars := make([]coolify.EnvVar, 0, len(envMap))
		for k, v := range envMap {
			envVars = append(envVars, coolify.EnvVar{
				Key:         k,
				Value:       v,
				IsBuildTime: coolify.IsBuildTimeKey(k),
			})
		}

		result, err := client.Provision(ctx, coolify.ProvisionRequest{
			ProjectName: project,
			RepoGitURL:  gitURL,
			Branch:      branch,
			ServerUUID:  nodeUUID,
			Port:        port,
			Domain:      domain,
			EnvVars:     envVars,
			AutoDeploy:  autoDeploy,
		})
		for _, step := range result.Steps {
			line := fmt.Sprintf("  [%s] %s", step.Outcome, step.Name)
			if step.Detail != "" {
				line += ": " + step.Detail
			}
			fmt.Println(line)
		}
		if err != nil {
			return err
		}

		fmt.Printf("Application %s provisioned in project %s\n", result.ApplicationUUID, result.ProjectUUID)
		if result.DeployTriggered {
			fmt.Printf("Deployment started: %s\n", result.DeploymentUUID)
		}
		return nil
	},
}

func init() {
	provisionCmd.Flags().String("server", "", "stored orchestrator server id or name")
	provisionCmd.Flags().String("repo", "", "GitHub repository URL")
	provisionCmd.Flags().String("project", "", "orchestrator project name")
	provisionCmd.Flags().String("domain", "", "domain to bind to the application")
	provisionCmd.Flags().String("node", "", "compute node UUID (default: first registered node)")
	provisionCmd.Flags().Int("port", 0, "exposed application port (default 3000)")
	provisionCmd.Flags().Bool("auto-deploy", false, "trigger the first build/deploy after provisioning")
	provisionCmd.Flags().StringArray("env", nil, "environment variable KEY=VALUE (repeatable)")

	rootCmd.AddCommand(provisionCmd)
}
