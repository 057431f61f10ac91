//go:build linux

package capture

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

const installHint = "install with your package manager, e.g. apt install ffmpeg"

func getPlatformConfig() platformConfig {
	return platformConfig{
		format:    formatV4L2,
		listVideo: listV4L2,
		listAudio: listALSA,
	}
}

// listV4L2 lists /dev/video* nodes, naming them from sysfs when possible.
func listV4L2(_ context.Context, _ string) ([]Device, error) {
	nodes, err := filepath.Glob("/dev/video*")
	if err != nil {
		return nil, err
	}
	sort.Strings(nodes)

	devices := make([]Device, 0, len(nodes))
	for _, node := range nodes {
		name := filepath.Base(node)
		if raw, err := os.ReadFile(filepath.Join("/sys/class/video4linux", name, "name")); err == nil {
			name = strings.TrimSpace(string(raw))
		}
		devices = append(devices, Device{ID: node, Name: name, Media: MediaVideo, Position: guessPosition(name)})
	}
	return devices, nil
}

// listALSA parses `arecord -l`. Without alsa-utils only the default PCM is offered.
func listALSA(ctx context.Context, _ string) ([]Device, error) {
	out, err := runListing(ctx, "arecord", "-l")
	if err != nil {
		return parseArecordDevices(""), nil
	}
	return parseArecordDevices(out), nil
}
