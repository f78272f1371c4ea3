package cli

import (
	"os"

	"github.com/spf13/cobra"
)

const (
	annotationPublish = "publish"
	// annotationStandalone marks commands that load their own config and
	// never open the primary store.
	annotationStandalone = "standalone"
)

type rootOptions struct {
	configFile string
	json       bool
	app        *App
}

// NewRootCommand builds the tracker command tree.
func NewRootCommand() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:           "tracker",
		Short:         "Track habits, expenses and gym sets over append-only tables",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Annotations[annotationStandalone] == "true" {
				return nil
			}
			LoadEnvFile()
			cfg, err := LoadAndValidateConfig(opts.configFile)
			if err != nil {
				return userError("%v", err)
			}

			logOut := cmd.ErrOrStderr()
			if cmd.Name() == "serve" {
				logOut = os.Stdout
			}
			logger := SetupLogger(cfg.LogLevel, logOut)

			app, err := OpenApp(cmd.Context(), cfg, logger, cmd.Annotations[annotationPublish] == "true")
			if err != nil {
				return err
			}
			opts.app = app
			return nil
		},
		PersistentPostRunE: func(*cobra.Command, []string) error {
			if opts.app == nil {
				return nil
			}
			return opts.app.Close()
		},
	}

	root.PersistentFlags().StringVar(&opts.configFile, "config", "", "config file (default: ./tracker.yaml if present)")
	root.PersistentFlags().BoolVar(&opts.json, "json", false, "output as JSON")

	root.AddCommand(
		newServeCommand(opts),
		newHabitsCommand(opts),
		newExpensesCommand(opts),
		newGymCommand(opts),
		newExercisesCommand(opts),
		newExportCommand(opts),
		newWorkerCommand(&opts.configFile),
	)
	return root
}

// Execute runs the command tree and returns the process exit code.
func Execute() int {
	root := NewRootCommand()
	if err := root.Execute(); err != nil {
		root.PrintErrln("Error:", err)
		return ExitCode(err)
	}
	return 0
}

func publishing(cmd *cobra.Command) *cobra.Command {
	if cmd.Annotations == nil {
		cmd.Annotations = map[string]string{}
	}
	cmd.Annotations[annotationPublish] = "true"
	return cmd
}
