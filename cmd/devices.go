// cmd/devices.go
package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/ColonelBlimp/cwcodec/internal/audio"
)

var devicesCmd = &cobra.Command{
	Use:   "devices",
	Short: "List audio capture devices",
	Long:  `List audio capture devices. Pass the index to --device to select one.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		capture := audio.New(audioConfig(settings))
		if err := capture.Init(); err != nil {
			return fmt.Errorf("audio: %w", err)
		}
		defer capture.Close()

		devices, err := capture.ListDevices()
		if err != nil {
			return fmt.Errorf("audio: %w", err)
		}
		return printDevices(cmd.OutOrStdout(), devices)
	},
}

func printDevices(w io.Writer, devices []audio.Device) error {
	if len(devices) == 0 {
		_, err := fmt.Fprintln(w, "no capture devices found")
		return err
	}
	for _, d := range devices {
		marker := ""
		if d.IsDefault {
			marker = " (default)"
		}
		if _, err := fmt.Fprintf(w, "[%d] %s%s\n", d.Index, d.Name, marker); err != nil {
			return err
		}
	}
	return nil
}
