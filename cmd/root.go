// root.go viper root command code
package cmd

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/rchanrussell/go-looper/cmd/calibrate"
	"github.com/rchanrussell/go-looper/cmd/devices"
	"github.com/rchanrussell/go-looper/cmd/realtime"
	"github.com/rchanrussell/go-looper/internal/conf"
	"github.com/rchanrussell/go-looper/internal/logging"
)

// RootCommand creates and returns the root command
func RootCommand(settings *conf.Settings) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "go-looper",
		Short: "Multi-track live audio looper",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if settings.Debug {
				logging.SetLevel(slog.LevelDebug)
			}
		},
	}

	if err := setupFlags(rootCmd, settings); err != nil {
		fmt.Printf("error setting up flags: %v\n", err)
	}

	subcommands := []*cobra.Command{
		realtime.Command(settings),
		devices.Command(),
		calibrate.Command(settings),
	}
	rootCmd.AddCommand(subcommands...)

	return rootCmd
}

// setupFlags defines flags that are global to the command line interface
func setupFlags(rootCmd *cobra.Command, settings *conf.Settings) error {
	rootCmd.PersistentFlags().BoolVarP(&settings.Debug, "debug", "d", viper.GetBool("debug"), "Enable debug output")
	rootCmd.PersistentFlags().StringVar(&settings.Audio.Device, "device", viper.GetString("audio.device"), "Audio device name, \"default\" for the system default")
	rootCmd.PersistentFlags().IntVar(&settings.Audio.SampleRate, "samplerate", viper.GetInt("audio.samplerate"), "Sample rate in Hz")
	rootCmd.PersistentFlags().IntVar(&settings.Audio.Channels, "channels", viper.GetInt("audio.channels"), "Channel count, 1 mono or 2 stereo")

	if err := viper.BindPFlags(rootCmd.PersistentFlags()); err != nil {
		return fmt.Errorf("error binding flags: %w", err)
	}

	return nil
}
