//go:build darwin

package capture

import "context"

const installHint = "install with: brew install ffmpeg"

func getPlatformConfig() platformConfig {
	return platformConfig{
		format:    formatAVFoundation,
		listVideo: func(ctx context.Context, ffmpeg string) ([]Device, error) { return listAVFoundation(ctx, ffmpeg, MediaVideo) },
		listAudio: func(ctx context.Context, ffmpeg string) ([]Device, error) { return listAVFoundation(ctx, ffmpeg, MediaAudio) },
	}
}

func listAVFoundation(ctx context.Context, ffmpeg string, media MediaType) ([]Device, error) {
	out, err := runListing(ctx, ffmpeg, "-hide_banner", "-f", "avfoundation", "-list_devices", "true", "-i", "")
	if err != nil {
		return nil, err
	}
	video, audio := parseAVFoundationDevices(out)
	if media == MediaVideo {
		return video, nil
	}
	return audio, nil
}
