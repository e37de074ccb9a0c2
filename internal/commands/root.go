package commands

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/nhle/berrydesk/internal/app"
	"github.com/nhle/berrydesk/internal/model"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var configPath string

// openServices builds the shared services from the config file. Tests swap
// it for one backed by a fake API.
var openServices = func(path string) (*app.Services, error) {
	cfg, err := model.LoadConfig(path)
	if err != nil {
		return nil, err
	}
	return app.NewServices(cfg, path)
}

var rootCmd = &cobra.Command{
	Use:   "berrydesk",
	Short: "Projects, invoices and todos for influencer work",
	Long: `berrydesk is a terminal client for the influberry business API.
Run it without arguments to open the dashboard, or use a subcommand to
print a listing.`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openServices(configPath)
		if err != nil {
			return err
		}
		defer s.Close()

		p := tea.NewProgram(app.New(s), tea.WithAltScreen())
		if _, err := p.Run(); err != nil {
			return fmt.Errorf("running dashboard: %w", err)
		}
		return nil
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "berrydesk %s (commit %s, built %s)\n", version, commit, date)
	},
}

// withServices opens the services around fn.
func withServices(fn func(cmd *cobra.Command, args []string, s *app.Services) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		s, err := openServices(configPath)
		if err != nil {
			return err
		}
		defer s.Close()
		return fn(cmd, args, s)
	}
}

// SetVersion sets the version information
func SetVersion(v, c, d string) {
	version = v
	commit = c
	date = d
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", model.DefaultConfigPath(), "config file")

	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(logoutCmd)
	rootCmd.AddCommand(whoamiCmd)
	rootCmd.AddCommand(projectsCmd)
	rootCmd.AddCommand(invoicesCmd)
	rootCmd.AddCommand(todosCmd)
	rootCmd.AddCommand(versionCmd)
}
