package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/cardoc/cardoc-go/cmd/analyze"
	"github.com/cardoc/cardoc-go/cmd/serve"
	"github.com/cardoc/cardoc-go/internal/buildinfo"
	"github.com/cardoc/cardoc-go/internal/conf"
	"github.com/cardoc/cardoc-go/internal/logger"
	"github.com/cardoc/cardoc-go/internal/telemetry"
)

// RootCommand creates and returns the root command
func RootCommand(ctx *conf.Context) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "cardoc",
		Short:         "CarDoc vehicle diagnostics CLI",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	// Set up the global flags for the root command.
	if err := setupFlags(rootCmd); err != nil {
		panic(err)
	}

	versionCmd := versionCommand(ctx.Build)

	rootCmd.AddCommand(
		analyze.Command(ctx),
		serve.Command(ctx),
		versionCmd,
	)

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		// Skip setup for the version command
		if cmd.Name() == versionCmd.Name() {
			return nil
		}
		return initialize(ctx)
	}

	return rootCmd
}

// initialize loads the config with command-line flags taking precedence,
// then sets up logging and error telemetry.
func initialize(ctx *conf.Context) error {
	settings, err := conf.Load()
	if err != nil {
		return err
	}
	ctx.Settings = settings

	if settings.Debug {
		settings.Logging.DefaultLevel = "debug"
		if settings.Logging.Console != nil {
			settings.Logging.Console.Level = "debug"
		}
	}
	cl, err := logger.NewCentralLogger(&settings.Logging)
	if err != nil {
		return err
	}
	logger.SetGlobal(cl)

	return telemetry.InitSentry(settings, ctx.Build.GetVersion())
}

// setupFlags defines flags that are global to the command line interface
func setupFlags(rootCmd *cobra.Command) error {
	flags := rootCmd.PersistentFlags()
	flags.BoolP("debug", "d", false, "Enable debug output")
	flags.String("ffmpeg", "", "Path to the ffmpeg binary used for mp3, m4a and ogg")
	flags.String("temp-dir", "", "Directory for staging files handed to ffmpeg")

	return BindFlags(flags, map[string]string{
		"debug":                "debug",
		"analysis.ffmpeg_path": "ffmpeg",
		"analysis.temp_dir":    "temp-dir",
	})
}

// BindFlags binds each flag to its viper config key so an explicitly set
// flag overrides the config file and environment.
func BindFlags(flags *pflag.FlagSet, keys map[string]string) error {
	for key, name := range keys {
		flag := flags.Lookup(name)
		if flag == nil {
			return fmt.Errorf("flag %s is not defined", name)
		}
		if err := viper.BindPFlag(key, flag); err != nil {
			return fmt.Errorf("error binding flag %s: %w", name, err)
		}
	}
	return nil
}

func versionCommand(bi buildinfo.BuildInfo) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the CarDoc version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "cardoc %s (commit %s, built %s)\n",
				bi.GetVersion(), bi.GetCommit(), bi.GetBuildDate())
		},
	}
}
