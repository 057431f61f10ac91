package cli

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/0xlemi/bertcam/internal/app"
	"github.com/0xlemi/bertcam/internal/config"
	"github.com/0xlemi/bertcam/internal/logging"
	"github.com/0xlemi/bertcam/internal/version"
)

type Dependencies struct {
	Config *config.Config
	// Logger is set once flags are parsed.
	Logger *slog.Logger

	logCloser io.Closer
}

func NewRootCmd(deps *Dependencies) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "bertcam",
		Short: "Record video from your camera",
		Long:  "A single-screen camera: live preview, one record button, and an audio input picker.\nFinished recordings are saved to the library directory.",
		Args:  cobra.NoArgs,

		SilenceUsage:  true,
		SilenceErrors: true,

		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := deps.Config.Validate(); err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}
			logger, closer, err := logging.New(logging.Config{
				File:  deps.Config.LogFile,
				Level: deps.Config.LogLevel,
			})
			if err != nil {
				return fmt.Errorf("opening log: %w", err)
			}
			deps.Logger = logger
			deps.logCloser = closer
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if deps.logCloser != nil {
				return deps.logCloser.Close()
			}
			return nil
		},

		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := app.New(deps.Config, deps.Logger)
			if err != nil {
				return fmt.Errorf("initializing app: %w", err)
			}
			deps.Logger.Info("starting", "version", version.Version, "library", deps.Config.LibraryDir)
			runErr := a.Run(cmd.Context())
			if err := a.Close(); err != nil {
				deps.Logger.Warn("shutdown", "error", err)
			}
			return runErr
		},
	}

	rootCmd.Version = version.Version
	rootCmd.SetVersionTemplate(version.Full() + "\n")

	cfg := deps.Config
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfg.Camera, "camera", cfg.Camera, "Camera ID or name (default: back-facing, else first)")
	flags.StringVar(&cfg.AudioInput, "audio-input", cfg.AudioInput, "Preferred audio input ID or name")
	flags.StringVar(&cfg.LibraryDir, "library-dir", cfg.LibraryDir, "Where finished recordings are saved")
	flags.StringVar(&cfg.DocumentsDir, "documents-dir", cfg.DocumentsDir, "Where recordings are written while in progress")
	flags.StringVar(&cfg.FFmpegPath, "ffmpeg", cfg.FFmpegPath, "ffmpeg binary")
	flags.StringVar(&cfg.VideoSize, "video-size", cfg.VideoSize, "Capture size, e.g. 1280x720")
	flags.IntVar(&cfg.Framerate, "framerate", cfg.Framerate, "Capture frame rate")
	flags.StringVar(&cfg.LibraryAuthorization, "library-authorization", cfg.LibraryAuthorization, "Library access policy: auto or deny")
	flags.BoolVar(&cfg.Meter, "meter", cfg.Meter, "Show the live audio meter")
	flags.BoolVar(&cfg.Preview, "preview", cfg.Preview, "Show the live camera preview")
	flags.StringVar(&cfg.PreviewSize, "preview-size", cfg.PreviewSize, "Preview size in terminal pixels, e.g. 64x36")
	flags.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "Log level: debug, info, warn or error")

	rootCmd.AddCommand(NewDevicesCmd(deps))
	rootCmd.AddCommand(NewDoctorCmd(deps))
	rootCmd.AddCommand(NewLibraryCmd(deps))

	return rootCmd
}
