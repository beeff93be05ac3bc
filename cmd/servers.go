package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/liberate-sh/liberate/internal/coolify"
	"github.com/liberate-sh/liberate/internal/store"
)

var serversCmd = &cobra.Command{
	Use:   "servers",
	Short: "Manage stored orchestrator servers",
	Long:  `Servers stores Coolify instance URLs and API tokens locally so other commands can reference them by name or id.`,
}

var serversAddCmd = &cobra.Command{
	Use:   "add <name> <url> <token>",
	Short: "Store an orchestrator server",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		name, rawURL, token := args[0], args[1], args[2]

		// Normalize up front so a bare IP fails loudly here instead of as a
		// connection error during preflight.
		normalized, err := coolify.NormalizeBaseURL(rawURL)
		if err != nil {
			return err
		}

		st, err := openStore()
		if err != nil {
			return err
		}
		defer st.Close()

		id, err := st.Put(name, normalized, token)
		if err != nil {
			return err
		}
		fmt.Printf("Stored server %s (%s) as %s\n", name, normalized, id)
		return nil
	},
}

var serversListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored orchestrator servers",
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore()
		if err != nil {
			return err
		}
		defer st.Close()

		servers, err := st.List()
		if err != nil {
			return err
		}
		if len(servers) == 0 {
			fmt.Println("No servers stored. Add one with: liberate servers add <name> <url> <token>")
			return nil
		}
		for _, s := range servers {
			fmt.Printf("  %s  %s  %s\n", s.ID, s.Name, s.URL)
		}
		return nil
	},
}

var serversRemoveCmd = &cobra.Command{
	Use:   "remove <id-or-name>",
	Short: "Remove a stored orchestrator server",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore()
		if err != nil {
			return err
		}
		defer st.Close()

		if err := st.Delete(args[0]); err != nil {
			return err
		}
		fmt.Printf("Removed server %s\n", args[0])
		return nil
	},
}

func openStore() (*store.Store, error) {
	path, err := store.DefaultPath()
	if err != nil {
		return nil, err
	}
	return store.Open(path)
}

func init() {
	serversCmd.AddCommand(serversAddCmd)
	serversCmd.AddCommand(serversListCmd)
	serversCmd.AddCommand(serversRemoveCmd)
	rootCmd.AddCommand(serversCmd)
}
