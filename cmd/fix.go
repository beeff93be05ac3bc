package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/liberate-sh/liberate/internal/dockerfile"
	"github.com/liberate-sh/liberate/internal/githubrepo"
)

var fixCmd = &cobra.Command{
	Use:   "fix-dockerfile",
	Short: "Analyze a repository's Dockerfile and repair it in place",
	Long: `Fix-dockerfile fetches the Dockerfile from the repository's default
branch, checks that package.json is copied before npm install runs, and
commits a corrected version (plus .dockerignore) when it is not. The commit
is verified by re-fetching the file afterwards.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		repoURL, _ := cmd.Flags().GetString("repo")
		dryRun, _ := cmd.Flags().GetBool("dry-run")
		port, _ := cmd.Flags().GetInt("port")

		if repoURL == "" {
			return fmt.Errorf("--repo is required")
		}
		owner, repo, err := githubrepo.ParseRepoURL(repoURL)
		if err != nil {
			return err
		}

		src := githubrepo.NewClient(resolveGitHubToken(), owner, repo, viper.GetBool("debug"))
		ctx := context.Background()

		branch, headSHA, err := src.DefaultBranch(ctx)
		if err != nil {
			return err
		}

		content, fetched := src.FetchFileRaw(ctx, "Dockerfile", branch)
		var fixed, action string
		if fetched {
			analysis := dockerfile.Analyze(content)
			fmt.Printf("Dockerfile on %s: %s\n", branch, analysis.Detail)
			if analysis.Valid {
				fmt.Println("Nothing to fix.")
				return nil
			}
			fixed = dockerfile.Fix(content, port)
			action = "fix Dockerfile: copy package.json before npm install"
		} else {
			rootFiles, err := src.ListRootFiles(ctx, branch)
			if err != nil {
				return err
			}
			if rootFiles["Dockerfile"] || rootFiles["dockerfile"] {
				return fmt.Errorf("Dockerfile exists on %s but could not be read; refusing to overwrite content that was never fetched", branch)
			}
			fmt.Printf("No Dockerfile on %s; generating one.\n", branch)
			fixed = dockerfile.Generate(port)
			action = "add Dockerfile for container deployment"
		}

		if dryRun {
			fmt.Println("--- proposed Dockerfile ---")
			fmt.Print(fixed)
			return nil
		}

		newSHA, err := src.CommitFiles(ctx, githubrepo.CommitRequest{
			Branch:  branch,
			BaseSHA: headSHA,
			Message: action,
			Files: []githubrepo.FileChange{
				{Path: "Dockerfile", Content: fixed},
				{Path: ".dockerignore", Content: dockerfile.GenerateDockerignore()},
			},
		})
		if err != nil {
			return err
		}

		if _, err := src.Verify(ctx, "Dockerfile", branch, func(got string) bool {
			return dockerfile.Analyze(got).Valid
		}); err != nil {
			return err
		}

		fmt.Printf("Committed and verified %s on %s\n", newSHA, branch)
		return nil
	},
}

func init() {
	fixCmd.Flags().String("repo", "", "GitHub repository URL")
	fixCmd.Flags().Int("port", 0, "exposed application port for a generated Dockerfile (default 3000)")
	fixCmd.Flags().Bool("dry-run", false, "print the proposed Dockerfile without committing")

	rootCmd.AddCommand(fixCmd)
}
