package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/0xlemi/bertcam/internal/audio"
	"github.com/0xlemi/bertcam/internal/capture"
	"github.com/0xlemi/bertcam/internal/config"
	"github.com/0xlemi/bertcam/internal/library"
	"github.com/0xlemi/bertcam/internal/output"
)

func NewDoctorCmd(deps *Dependencies) *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check prerequisites",
		RunE: func(cmd *cobra.Command, args []string) error {
			f := output.NewFormatter(cmd.OutOrStdout())
			ctx := cmd.Context()
			cfg := deps.Config
			ok := true

			if path := config.FilePath(); path != "" {
				f.SetupCheck("Config", true, path)
			} else {
				f.SetupCheck("Config", true, "none, using defaults")
			}

			if err := capture.CheckFFmpeg(cfg.FFmpegPath); err != nil {
				f.SetupCheck("ffmpeg", false, err.Error())
				ok = false
			} else {
				f.SetupCheck("ffmpeg", true, "installed, capturing with "+capture.InputFormat())
			}

			d := capture.NewFFmpegDiscoverer(cfg.FFmpegPath, deps.Logger)
			if cam, err := capture.DefaultVideoDevice(ctx, d, capture.PositionBack); err != nil {
				f.SetupCheck("Camera", false, err.Error())
				ok = false
			} else {
				f.SetupCheck("Camera", true, cam.Name)
			}

			if mics, err := d.AudioDevices(ctx); err != nil {
				f.SetupCheck("Microphone", false, err.Error())
				ok = false
			} else if len(mics) == 0 {
				f.SetupCheck("Microphone", false, "none found; recordings will have no sound")
				ok = false
			} else {
				f.SetupCheck("Microphone", true, fmt.Sprintf("%d input(s), first is %s", len(mics), mics[0].Name))
			}

			if !cfg.Meter {
				f.SetupCheck("Audio meter", true, "disabled")
			} else if names, err := audio.InputDeviceNames(); err != nil {
				f.SetupCheck("Audio meter", false, err.Error())
			} else {
				f.SetupCheck("Audio meter", true, "PortAudio inputs: "+strings.Join(names, ", "))
			}

			policy, err := library.ParsePolicy(cfg.LibraryAuthorization)
			if err != nil {
				return err
			}
			lib := library.New(cfg.LibraryDir, policy, deps.Logger)
			if status := lib.RequestAuthorization(ctx); status == library.Authorized {
				f.SetupCheck("Library", true, cfg.LibraryDir)
			} else {
				f.SetupCheck("Library", false, fmt.Sprintf("%s (%s); recordings will stay in %s", cfg.LibraryDir, status, cfg.DocumentsDir))
				ok = false
			}

			if ok {
				f.Success("\nAll prerequisites met. Ready to record!")
			} else {
				f.Warning("\nSome prerequisites are missing.")
			}
			return nil
		},
	}
}
