package capture

import (
	"reflect"
	"strings"
	"testing"
)

const avfListing = `[AVFoundation indev @ 0x7fb1c8e04a40] AVFoundation video devices:
[AVFoundation indev @ 0x7fb1c8e04a40] [0] FaceTime HD Camera
[AVFoundation indev @ 0x7fb1c8e04a40] [1] Capture screen 0
[AVFoundation indev @ 0x7fb1c8e04a40] AVFoundation audio devices:
[AVFoundation indev @ 0x7fb1c8e04a40] [0] MacBook Pro Microphone
[AVFoundation indev @ 0x7fb1c8e04a40] [1] Shure MV7
: Input/output error`

func TestParseAVFoundationDevices(t *testing.T) {
	video, audio := parseAVFoundationDevices(avfListing)

	wantVideo := []Device{{ID: "0", Name: "FaceTime HD Camera", Media: MediaVideo, Position: PositionFront}}
	if !reflect.DeepEqual(video, wantVideo) {
		t.Errorf("Expected video %+v, got %+v", wantVideo, video)
	}
	wantAudio := []Device{
		{ID: "0", Name: "MacBook Pro Microphone", Media: MediaAudio},
		{ID: "1", Name: "Shure MV7", Media: MediaAudio},
	}
	if !reflect.DeepEqual(audio, wantAudio) {
		t.Errorf("Expected audio %+v, got %+v", wantAudio, audio)
	}
}

func TestParseDShowDevices(t *testing.T) {
	tests := []struct {
		name   string
		output string
	}{
		{
			name: "suffixed",
			output: `[dshow @ 000001] "Integrated Camera" (video)
[dshow @ 000001]   Alternative name "@device_pnp_\\?\usb#vid_04f2"
[dshow @ 000001] "OBS Virtual Camera" (none)
[dshow @ 000001] "Microphone (Realtek(R) Audio)" (audio)
[dshow @ 000001]   Alternative name "@device_cm_{33D9A762}"`,
		},
		{
			name: "sectioned",
			output: `[dshow @ 000001] DirectShow video devices (some may be both video and audio devices)
[dshow @ 000001]  "Integrated Camera"
[dshow @ 000001]     Alternative name "@device_pnp_\\?\usb#vid_04f2"
[dshow @ 000001] DirectShow audio devices
[dshow @ 000001]  "Microphone (Realtek(R) Audio)"
[dshow @ 000001]     Alternative name "@device_cm_{33D9A762}"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			video, audio := parseDShowDevices(tt.output)
			if len(video) != 1 || video[0].Name != "Integrated Camera" || video[0].ID != "Integrated Camera" {
				t.Errorf("Expected one Integrated Camera, got %+v", video)
			}
			if len(audio) != 1 || audio[0].Name != "Microphone (Realtek(R) Audio)" {
				t.Errorf("Expected one Realtek microphone, got %+v", audio)
			}
		})
	}
}

func TestParseArecordDevices(t *testing.T) {
	output := `**** List of CAPTURE Hardware Devices ****
card 0: PCH [HDA Intel PCH], device 0: ALC3246 Analog [ALC3246 Analog]
  Subdevices: 1/1
  Subdevice #0: subdevice #0
card 2: Device [USB PnP Sound Device], device 0: USB Audio [USB Audio]
  Subdevices: 1/1`

	got := parseArecordDevices(output)
	want := []Device{
		{ID: "default", Name: "System default", Media: MediaAudio},
		{ID: "hw:0,0", Name: "HDA Intel PCH: ALC3246 Analog", Media: MediaAudio},
		{ID: "hw:2,0", Name: "USB PnP Sound Device: USB Audio", Media: MediaAudio},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Expected %+v, got %+v", want, got)
	}
}

func TestParseArecordDevices_Empty(t *testing.T) {
	got := parseArecordDevices("")
	if len(got) != 1 || got[0].ID != "default" {
		t.Errorf("Expected only the default device, got %+v", got)
	}
}

func TestBuildRecordArgs(t *testing.T) {
	mic := &Device{ID: "1", Name: "Shure MV7", Media: MediaAudio}
	tests := []struct {
		name   string
		format string
		spec   RecordSpec
		want   string
	}{
		{
			name:   "avfoundation with audio",
			format: formatAVFoundation,
			spec:   RecordSpec{Video: Device{ID: "0"}, Audio: mic, Path: "/tmp/a.mov", Framerate: 30},
			want:   "-hide_banner -nostats -loglevel warning -y -f avfoundation -framerate 30 -i 0:1 -c:v libx264 -preset veryfast -pix_fmt yuv420p -c:a aac -b:a 128k /tmp/a.mov",
		},
		{
			name:   "avfoundation without audio",
			format: formatAVFoundation,
			spec:   RecordSpec{Video: Device{ID: "0"}, Path: "/tmp/a.mov", Preset: "ultrafast"},
			want:   "-hide_banner -nostats -loglevel warning -y -f avfoundation -i 0:none -c:v libx264 -preset ultrafast -pix_fmt yuv420p -an /tmp/a.mov",
		},
		{
			name:   "dshow",
			format: formatDShow,
			spec:   RecordSpec{Video: Device{ID: "Cam"}, Audio: &Device{ID: "Mic"}, Path: "a.mov", VideoSize: "1280x720"},
			want:   "-hide_banner -nostats -loglevel warning -y -f dshow -video_size 1280x720 -i video=Cam:audio=Mic -c:v libx264 -preset veryfast -pix_fmt yuv420p -c:a aac -b:a 128k a.mov",
		},
		{
			name:   "v4l2 with alsa",
			format: formatV4L2,
			spec:   RecordSpec{Video: Device{ID: "/dev/video0"}, Audio: &Device{ID: "hw:1,0"}, Path: "a.mov"},
			want:   "-hide_banner -nostats -loglevel warning -y -f v4l2 -i /dev/video0 -f alsa -i hw:1,0 -c:v libx264 -preset veryfast -pix_fmt yuv420p -c:a aac -b:a 128k a.mov",
		},
		{
			name:   "with preview stream",
			format: formatV4L2,
			spec:   RecordSpec{Video: Device{ID: "/dev/video0"}, Path: "a.mov", Preview: &PreviewSpec{Width: 64, Height: 36, Rate: 10}},
			want:   "-hide_banner -nostats -loglevel warning -y -f v4l2 -i /dev/video0 -c:v libx264 -preset veryfast -pix_fmt yuv420p -an a.mov -map 0:v -an -vf scale=64:36 -pix_fmt rgb24 -r 10 -f rawvideo pipe:1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := strings.Join(buildRecordArgs(tt.format, tt.spec), " ")
			if got != tt.want {
				t.Errorf("Expected\n%s\ngot\n%s", tt.want, got)
			}
		})
	}
}

func TestTailBuffer(t *testing.T) {
	b := &tailBuffer{max: 8}
	b.Write([]byte("hello "))
	b.Write([]byte("world"))
	if got := string(b.Bytes()); got != "lo world" {
		t.Errorf("Expected %q, got %q", "lo world", got)
	}
}

func TestBuildPreviewArgs(t *testing.T) {
	tests := []struct {
		name   string
		format string
		spec   PreviewSpec
		want   string
	}{
		{
			name:   "avfoundation",
			format: formatAVFoundation,
			spec:   PreviewSpec{Framerate: 30, Width: 64, Height: 36, Rate: 10},
			want:   "-hide_banner -nostats -loglevel warning -f avfoundation -framerate 30 -i 0:none -an -vf scale=64:36 -pix_fmt rgb24 -r 10 -f rawvideo pipe:1",
		},
		{
			name:   "v4l2 at device rate",
			format: formatV4L2,
			spec:   PreviewSpec{VideoSize: "1280x720", Width: 32, Height: 18},
			want:   "-hide_banner -nostats -loglevel warning -f v4l2 -video_size 1280x720 -i 0 -an -vf scale=32:18 -pix_fmt rgb24 -f rawvideo pipe:1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := strings.Join(buildPreviewArgs(tt.format, Device{ID: "0"}, tt.spec), " ")
			if got != tt.want {
				t.Errorf("Expected\n%s\ngot\n%s", tt.want, got)
			}
		})
	}
}
