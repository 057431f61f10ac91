package capture

import "context"

// platformConfig binds the capture format and device listing for one OS.
type platformConfig struct {
	format    string
	listVideo func(ctx context.Context, ffmpegPath string) ([]Device, error)
	listAudio func(ctx context.Context, ffmpegPath string) ([]Device, error)
}
