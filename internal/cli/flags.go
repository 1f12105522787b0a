package cli

import (
	"github.com/spf13/cobra"
)

// GlobalFlags holds global flag values
type GlobalFlags struct {
	ConfigFile string
	Verbose    bool
	Quiet      bool
	Output     string
	Bandwidth  string
	// Logging flags
	LogFile   string
	LogFormat string
	LogLevel  string
}

var globalFlags GlobalFlags

// AddGlobalFlags adds global flags to the root command
func AddGlobalFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().StringVar(
		&globalFlags.ConfigFile,
		"config",
		"",
		"config file (default is $HOME/.config/mediakit/config.yaml)",
	)
	cmd.PersistentFlags().BoolVarP(
		&globalFlags.Verbose,
		"verbose",
		"v",
		false,
		"log every file operation to the console",
	)
	cmd.PersistentFlags().BoolVarP(
		&globalFlags.Quiet,
		"quiet",
		"q",
		false,
		"suppress non-error output",
	)
	cmd.PersistentFlags().StringVarP(&globalFlags.Output, "output", "o", "", "output format: human, json (default from config)")
	cmd.PersistentFlags().StringVarP(&globalFlags.Bandwidth, "bandwidth", "b", "", "bandwidth limit for moves across filesystems (e.g. \"10M\")")
	cmd.PersistentFlags().StringVar(&globalFlags.LogFile, "log-file", "", "write logs to file")
	cmd.PersistentFlags().StringVar(&globalFlags.LogFormat, "log-format", "", "log file format: text, json")
	cmd.PersistentFlags().StringVar(&globalFlags.LogLevel, "log-level", "", "log file level: debug, info, warn, error")
}

// GetGlobalFlags returns the global flags
func GetGlobalFlags() *GlobalFlags {
	return &globalFlags
}

// ReportFlags are shared by commands that can write a run report
type ReportFlags struct {
	Path   string
	Format string
}

func addReportFlags(cmd *cobra.Command, f *ReportFlags) {
	cmd.Flags().StringVar(&f.Path, "report", "", "write a run report to file")
	cmd.Flags().StringVar(&f.Format, "report-format", "human", "run report format: human, json")
}
