package cli

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/0xlemi/bertcam/internal/capture"
	"github.com/0xlemi/bertcam/internal/output"
)

func NewDevicesCmd(deps *Dependencies) *cobra.Command {
	return &cobra.Command{
		Use:   "devices",
		Short: "List cameras and audio inputs",
		RunE: func(cmd *cobra.Command, args []string) error {
			f := output.NewFormatter(os.Stdout)
			d := capture.NewFFmpegDiscoverer(deps.Config.FFmpegPath, deps.Logger)
			ctx := cmd.Context()

			video, err := d.VideoDevices(ctx)
			if err != nil {
				return err
			}
			audio, err := d.AudioDevices(ctx)
			if err != nil {
				return err
			}

			f.DeviceListHeader("Cameras")
			if len(video) == 0 {
				f.Warning("no cameras found")
			}
			chosen := pick(video, deps.Config.Camera, func() *capture.Device {
				def, _ := capture.ChooseVideoDevice(video, capture.PositionBack)
				return def
			})
			for _, v := range video {
				f.DeviceListItem(v, chosen != nil && chosen.ID == v.ID)
			}

			f.DeviceListHeader("\nAudio inputs")
			if len(audio) == 0 {
				f.Warning("no audio inputs found")
			}
			chosen = pick(audio, deps.Config.AudioInput, func() *capture.Device {
				if len(audio) == 0 {
					return nil
				}
				return &audio[0]
			})
			for _, a := range audio {
				f.DeviceListItem(a, chosen != nil && chosen.ID == a.ID)
			}
			return nil
		},
	}
}

// pick returns the configured device, or fallback() when none is configured
// or it is missing.
func pick(devices []capture.Device, key string, fallback func() *capture.Device) *capture.Device {
	if key != "" {
		if d, ok := capture.FindDevice(devices, key); ok {
			return d
		}
	}
	return fallback()
}
