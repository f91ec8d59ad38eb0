// Package devices implements the command that lists audio devices.
package devices

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rchanrussell/go-looper/internal/transport"
)

// Command creates the device listing command.
func Command() *cobra.Command {
	return &cobra.Command{
		Use:   "devices",
		Short: "List available audio capture devices",
		RunE: func(cmd *cobra.Command, args []string) error {
			devices, err := transport.EnumerateDevices()
			if err != nil {
				return err
			}

			if len(devices) == 0 {
				fmt.Println("No audio capture devices found.")
				return nil
			}

			fmt.Println("Available audio capture devices:")
			for _, d := range devices {
				marker := " "
				if d.IsDefault {
					marker = "*"
				}
				fmt.Printf("%s [%d] %s (%s)\n", marker, d.Index, d.Name, d.ID)
			}
			return nil
		},
	}
}
