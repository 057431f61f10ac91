//go:build !darwin && !linux && !windows

package capture

import "context"

const installHint = "install ffmpeg from https://ffmpeg.org/download.html"

func getPlatformConfig() platformConfig {
	return platformConfig{
		format: formatV4L2,
		listVideo: func(context.Context, string) ([]Device, error) {
			return nil, ErrNoVideoDevice
		},
		listAudio: func(context.Context, string) ([]Device, error) {
			return nil, ErrNoAudioDevice
		},
	}
}
