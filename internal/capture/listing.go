package capture

import (
	"bufio"
	"fmt"
	"regexp"
	"strings"
)

// Input formats understood by ffmpeg for live capture.
const (
	formatAVFoundation = "avfoundation"
	formatDShow        = "dshow"
	formatV4L2         = "v4l2"
	formatALSA         = "alsa"
)

// avfDeviceRe matches lines like: [AVFoundation indev @ 0x7f..] [2] MacBook Pro Microphone
var avfDeviceRe = regexp.MustCompile(`\[(\d+)\]\s+(.+)$`)

// parseAVFoundationDevices splits the avfoundation listing into cameras and
// microphones. Screen-capture pseudo devices are skipped.
//
//	[AVFoundation indev @ 0x...] AVFoundation video devices:
//	[AVFoundation indev @ 0x...] [0] FaceTime HD Camera
//	[AVFoundation indev @ 0x...] [1] Capture screen 0
//	[AVFoundation indev @ 0x...] AVFoundation audio devices:
//	[AVFoundation indev @ 0x...] [0] MacBook Pro Microphone
func parseAVFoundationDevices(output string) (video, audio []Device) {
	var section MediaType = -1
	scanner := bufio.NewScanner(strings.NewReader(output))
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case strings.Contains(line, "AVFoundation video devices"):
			section = MediaVideo
			continue
		case strings.Contains(line, "AVFoundation audio devices"):
			section = MediaAudio
			continue
		}
		m := avfDeviceRe.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		name := strings.TrimSpace(m[2])
		switch section {
		case MediaVideo:
			if strings.HasPrefix(strings.ToLower(name), "capture screen") {
				continue
			}
			video = append(video, Device{ID: m[1], Name: name, Media: MediaVideo, Position: guessPosition(name)})
		case MediaAudio:
			audio = append(audio, Device{ID: m[1], Name: name, Media: MediaAudio})
		}
	}
	return video, audio
}

// dshowDeviceRe matches a quoted device name with an optional "(video)" or
// "(audio)" suffix, as printed by current ffmpeg builds.
var dshowDeviceRe = regexp.MustCompile(`"([^"]+)"(?:\s+\((video|audio|none)\))?`)

// parseDShowDevices handles both the sectioned layout of older ffmpeg builds
// and the per-line "(video)"/"(audio)" suffix of newer ones. DirectShow
// addresses devices by name, so the name doubles as the ID.
//
//	[dshow @ 0x...] "Integrated Camera" (video)
//	[dshow @ 0x...]   Alternative name "@device_pnp_..."
//	[dshow @ 0x...] "Microphone (Realtek High Definition Audio)" (audio)
func parseDShowDevices(output string) (video, audio []Device) {
	var section MediaType = -1
	scanner := bufio.NewScanner(strings.NewReader(output))
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case strings.Contains(line, "DirectShow video devices"):
			section = MediaVideo
			continue
		case strings.Contains(line, "DirectShow audio devices"):
			section = MediaAudio
			continue
		case strings.Contains(line, "Alternative name"):
			continue
		}
		m := dshowDeviceRe.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		kind := section
		switch m[2] {
		case "video":
			kind = MediaVideo
		case "audio":
			kind = MediaAudio
		case "none":
			continue
		}
		switch kind {
		case MediaVideo:
			video = append(video, Device{ID: m[1], Name: m[1], Media: MediaVideo, Position: guessPosition(m[1])})
		case MediaAudio:
			audio = append(audio, Device{ID: m[1], Name: m[1], Media: MediaAudio})
		}
	}
	return video, audio
}

// arecordCardRe matches: card 0: PCH [HDA Intel PCH], device 0: ALC3246 Analog [ALC3246 Analog]
var arecordCardRe = regexp.MustCompile(`^card\s+(\d+):\s+\S+\s+\[([^\]]+)\],\s+device\s+(\d+):\s+[^\[]*\[([^\]]+)\]`)

// parseArecordDevices parses `arecord -l` into ALSA capture devices. The
// "default" PCM is always listed first.
func parseArecordDevices(output string) []Device {
	devices := []Device{{ID: "default", Name: "System default", Media: MediaAudio}}
	scanner := bufio.NewScanner(strings.NewReader(output))
	for scanner.Scan() {
		m := arecordCardRe.FindStringSubmatch(strings.TrimSpace(scanner.Text()))
		if m == nil {
			continue
		}
		devices = append(devices, Device{
			ID:    fmt.Sprintf("hw:%s,%s", m[1], m[3]),
			Name:  fmt.Sprintf("%s: %s", m[2], m[4]),
			Media: MediaAudio,
		})
	}
	return devices
}

// RecordSpec describes one recording for the encoder.
type RecordSpec struct {
	Video     Device
	Audio     *Device // nil records without sound
	Path      string
	VideoSize string // e.g. "1280x720"; empty lets the device choose
	Framerate int
	Preset    string

	// Preview, when set, also streams scaled frames to stdout.
	Preview *PreviewSpec
}

// buildInputArgs returns the ffmpeg input arguments for a capture format.
func buildInputArgs(format string, spec RecordSpec) []string {
	var args []string
	common := func() {
		if spec.Framerate > 0 {
			args = append(args, "-framerate", fmt.Sprint(spec.Framerate))
		}
		if spec.VideoSize != "" {
			args = append(args, "-video_size", spec.VideoSize)
		}
	}

	switch format {
	case formatAVFoundation:
		audio := "none"
		if spec.Audio != nil {
			audio = spec.Audio.ID
		}
		args = append(args, "-f", formatAVFoundation)
		common()
		args = append(args, "-i", spec.Video.ID+":"+audio)
	case formatDShow:
		input := "video=" + spec.Video.ID
		if spec.Audio != nil {
			input += ":audio=" + spec.Audio.ID
		}
		args = append(args, "-f", formatDShow)
		common()
		args = append(args, "-i", input)
	default:
		args = append(args, "-f", formatV4L2)
		common()
		args = append(args, "-i", spec.Video.ID)
		if spec.Audio != nil {
			args = append(args, "-f", formatALSA, "-i", spec.Audio.ID)
		}
	}
	return args
}

// buildRecordArgs returns the full ffmpeg command line for a recording.
func buildRecordArgs(format string, spec RecordSpec) []string {
	args := []string{"-hide_banner", "-nostats", "-loglevel", "warning", "-y"}
	args = append(args, buildInputArgs(format, spec)...)

	preset := spec.Preset
	if preset == "" {
		preset = "veryfast"
	}
	args = append(args,
		"-c:v", "libx264",
		"-preset", preset,
		"-pix_fmt", "yuv420p",
	)
	if spec.Audio != nil {
		args = append(args, "-c:a", "aac", "-b:a", "128k")
	} else {
		args = append(args, "-an")
	}
	args = append(args, spec.Path)
	if spec.Preview != nil {
		args = append(args, "-map", "0:v")
		args = append(args, rawvideoArgs(*spec.Preview)...)
	}
	return args
}

// buildPreviewArgs returns the ffmpeg command line streaming the camera as
// raw RGB24 frames on stdout.
func buildPreviewArgs(format string, video Device, spec PreviewSpec) []string {
	args := []string{"-hide_banner", "-nostats", "-loglevel", "warning"}
	args = append(args, buildInputArgs(format, RecordSpec{
		Video:     video,
		VideoSize: spec.VideoSize,
		Framerate: spec.Framerate,
	})...)
	return append(args, rawvideoArgs(spec)...)
}

func rawvideoArgs(spec PreviewSpec) []string {
	args := []string{"-an", "-vf", fmt.Sprintf("scale=%d:%d", spec.Width, spec.Height), "-pix_fmt", "rgb24"}
	if spec.Rate > 0 {
		args = append(args, "-r", fmt.Sprint(spec.Rate))
	}
	return append(args, "-f", "rawvideo", "pipe:1")
}
