//go:build windows

package capture

import "context"

const installHint = "install with: winget install ffmpeg"

func getPlatformConfig() platformConfig {
	return platformConfig{
		format:    formatDShow,
		listVideo: func(ctx context.Context, ffmpeg string) ([]Device, error) { return listDShow(ctx, ffmpeg, MediaVideo) },
		listAudio: func(ctx context.Context, ffmpeg string) ([]Device, error) { return listDShow(ctx, ffmpeg, MediaAudio) },
	}
}

func listDShow(ctx context.Context, ffmpeg string, media MediaType) ([]Device, error) {
	out, err := runListing(ctx, ffmpeg, "-hide_banner", "-f", "dshow", "-list_devices", "true", "-i", "dummy")
	if err != nil {
		return nil, err
	}
	video, audio := parseDShowDevices(out)
	if media == MediaVideo {
		return video, nil
	}
	return audio, nil
}
