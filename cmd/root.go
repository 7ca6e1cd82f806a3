package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/cobra"
	"github.com/ternarybob/arbor"

	"cppdecl/pkg/config"
	"cppdecl/pkg/logger"
)

// Version information
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

var (
	configPath string
	logLevel   string

	// cfg and log are set before any subcommand runs
	cfg *config.Config
	log arbor.ILogger
)

var rootCmd = &cobra.Command{
	Use:   "cppdecl",
	Short: "A declaration-level C++ parser",
	Long: `cppdecl scans C and C++ sources and recognizes their declarations
(namespaces, classes, functions, variables, enums, typedefs, templates and
preprocessor directives) without compiling them. Unknown constructs are
reported as diagnostics and skipped, so even partial or broken sources yield
a declaration tree.`,
	Version:       getVersionString(),
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load(configPath)
		if err != nil {
			return err
		}
		if logLevel != "" {
			loaded.Logging.Level = strings.ToLower(logLevel)
			if err := loaded.Validate(); err != nil {
				return err
			}
		}
		cfg = loaded
		log = logger.Init(cfg.Logging.Level)
		return nil
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "cppdecl %s\n", getVersionString())
		fmt.Fprintf(out, "  Version: %s\n", version)
		fmt.Fprintf(out, "  Commit:  %s\n", commit)
		fmt.Fprintf(out, "  Date:    %s\n", date)
	},
}

func getVersionString() string {
	if version == "dev" {
		return fmt.Sprintf("%s (%s)", version, commit)
	}
	return version
}

func SetVersionInfo(v, c, d string) {
	version = v
	commit = c
	date = d
	rootCmd.Version = getVersionString()
}

// Execute runs the CLI until it finishes or the process is interrupted
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default: .cppdecl.yaml or .cppdecl.toml in the working directory)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (trace, debug, info, warn, error)")

	rootCmd.AddCommand(parseCmd)
	rootCmd.AddCommand(tokensCmd)
	rootCmd.AddCommand(extractCmd)
	rootCmd.AddCommand(formatCmd)
	rootCmd.AddCommand(batchCmd)
	rootCmd.AddCommand(queryCmd)
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(versionCmd)
}
