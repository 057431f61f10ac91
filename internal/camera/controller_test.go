package camera

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"testing"
	"time"

	"github.com/0xlemi/bertcam/internal/capture"
	"github.com/0xlemi/bertcam/internal/capture/capturetest"
	"github.com/0xlemi/bertcam/internal/library"
)

var (
	builtinMic = capturetest.Mic("0", "Built-in Microphone")
	usbMic     = capturetest.Mic("1", "USB Mic")
)

type testRig struct {
	c      *Controller
	enc    *capturetest.Encoder
	disc   *capturetest.Discoverer
	docs   string
	libDir string
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func newRig(t *testing.T, lib Library, cameras ...capture.Device) *testRig {
	t.Helper()
	if cameras == nil {
		cameras = []capture.Device{capturetest.Camera("0", "FaceTime HD Camera")}
	}
	r := &testRig{
		enc:  &capturetest.Encoder{},
		disc: capturetest.NewDiscoverer(cameras, []capture.Device{builtinMic, usbMic}),
		docs: t.TempDir(),
	}
	if lib == nil {
		r.libDir = filepath.Join(t.TempDir(), "Library")
		lib = library.New(r.libDir, library.PolicyAuto, testLogger())
	}
	r.c = New(r.disc, r.enc, lib, Options{DocumentsDir: r.docs}, testLogger())
	t.Cleanup(func() { r.c.Close() })

	ctx := testContext(t)
	if err := r.c.Initialize(ctx); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	return r
}

func (r *testRig) startSession(t *testing.T) {
	t.Helper()
	if err := r.c.StartSession().Wait(testContext(t)); err != nil {
		t.Fatalf("StartSession failed: %v", err)
	}
}

func (r *testRig) tempFiles(t *testing.T) []string {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join(r.docs, "recording-*.mov"))
	if err != nil {
		t.Fatal(err)
	}
	return matches
}

func record(t *testing.T, c *Controller) Result {
	t.Helper()
	ctx := testContext(t)
	rec := c.StartRecording()
	select {
	case <-rec.Started():
	case <-ctx.Done():
		t.Fatal("Recording never started")
	}
	if err := rec.StartErr(); err != nil {
		t.Fatalf("Recording failed to start: %v", err)
	}
	if err := c.StopRecording().Wait(ctx); err != nil {
		t.Fatalf("StopRecording failed: %v", err)
	}
	res, err := rec.Wait(ctx)
	if err != nil {
		t.Fatalf("Recording never resolved: %v", err)
	}
	return res
}

func TestInitialize_SelectsFirstInputAndRuns(t *testing.T) {
	r := newRig(t, nil)

	if !r.c.Configured() {
		t.Fatal("Expected the session to be configured")
	}
	if cam, ok := r.c.Camera(); !ok || cam.Name != "FaceTime HD Camera" {
		t.Errorf("Unexpected camera %+v", cam)
	}
	if got, ok := r.c.SelectedAudioInput(); !ok || got != builtinMic.AudioInput() {
		t.Errorf("Expected %+v selected, got %+v", builtinMic.AudioInput(), got)
	}
	if n := len(r.c.AvailableAudioInputs()); n != 2 {
		t.Errorf("Expected 2 available inputs, got %d", n)
	}
	if !r.c.SessionRunning() {
		t.Error("Expected the session to be running after the first input was selected")
	}
}

func TestPreview_PausedWhileRecording(t *testing.T) {
	enc := &capturetest.Encoder{}
	disc := capturetest.NewDiscoverer([]capture.Device{capturetest.Camera("0", "Webcam")}, []capture.Device{builtinMic})
	p := &capturetest.Previewer{}
	frames := &capture.FrameBuffer{}
	c := New(disc, enc, library.New(filepath.Join(t.TempDir(), "Library"), library.PolicyAuto, testLogger()), Options{
		DocumentsDir: t.TempDir(),
		Output:       capture.OutputSettings{VideoSize: "1280x720", Framerate: 30},
		Previewer:    p,
		Preview:      capture.PreviewSpec{Width: 8, Height: 4, Sink: frames},
	}, testLogger())
	t.Cleanup(func() { c.Close() })

	ctx := testContext(t)
	if err := c.Initialize(ctx); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	if err := c.StartSession().Wait(ctx); err != nil {
		t.Fatalf("StartSession failed: %v", err)
	}
	if p.Active() != 1 {
		t.Fatalf("Expected the preview running with the session, got %d", p.Active())
	}

	rec := c.StartRecording()
	select {
	case <-rec.Started():
	case <-ctx.Done():
		t.Fatal("Recording never started")
	}
	if err := rec.StartErr(); err != nil {
		t.Fatalf("Recording failed to start: %v", err)
	}
	if p.Active() != 0 {
		t.Errorf("Expected the preview paused while recording, got %d", p.Active())
	}
	if spec := enc.Specs()[0]; spec.Preview == nil || spec.Preview.VideoSize != "1280x720" || spec.Preview.Framerate != 30 {
		t.Errorf("Expected the preview to open the camera like the recording, got %+v", spec.Preview)
	}

	if err := c.StopRecording().Wait(ctx); err != nil {
		t.Fatalf("StopRecording failed: %v", err)
	}
	if _, err := rec.Wait(ctx); err != nil {
		t.Fatalf("Recording never resolved: %v", err)
	}
	if p.Active() != 1 {
		t.Errorf("Expected the preview back after recording, got %d", p.Active())
	}

	if err := c.StopSession().Wait(ctx); err != nil {
		t.Fatalf("StopSession failed: %v", err)
	}
	if _, _, ok := frames.Latest(); ok {
		t.Error("Expected no frame once the session stopped")
	}
}

func TestInitialize_NoCamera(t *testing.T) {
	r := newRig(t, nil, []capture.Device{}...)
	if r.c.Configured() {
		t.Fatal("Expected the session to stay unconfigured without a camera")
	}
	if err := r.c.StartSession().Wait(testContext(t)); !errors.Is(err, ErrNotConfigured) {
		t.Errorf("Expected ErrNotConfigured, got %v", err)
	}

	rec := r.c.StartRecording()
	res, err := rec.Wait(testContext(t))
	if err != nil {
		t.Fatal(err)
	}
	if res.Stage != StageStart || !errors.Is(res.Err, capture.ErrOutputNotReady) {
		t.Errorf("Expected a start failure with ErrOutputNotReady, got %s: %v", res.Stage, res.Err)
	}
	if r.c.IsRecording() {
		t.Error("Expected IsRecording to clear after a failed start")
	}
}

func TestRecording_SavedToLibrary(t *testing.T) {
	r := newRig(t, nil)
	r.startSession(t)

	res := record(t, r.c)

	specs := r.enc.Specs()
	if len(specs) != 1 {
		t.Fatalf("Expected exactly one recording file, got %d", len(specs))
	}
	if !regexp.MustCompile(`^recording-\d+\.\d{6}\.mov$`).MatchString(filepath.Base(specs[0].Path)) {
		t.Errorf("Unexpected temp file name %s", specs[0].Path)
	}
	if filepath.Dir(specs[0].Path) != r.docs {
		t.Errorf("Expected temp file under %s, got %s", r.docs, specs[0].Path)
	}

	if res.Stage != StageSaved || res.Err != nil || res.Asset == nil {
		t.Fatalf("Expected the recording to be saved, got %s: %v", res.Stage, res.Err)
	}
	if files := r.tempFiles(t); len(files) != 0 {
		t.Errorf("Expected the temp file to be removed, found %v", files)
	}
	assets, err := library.New(r.libDir, library.PolicyAuto, testLogger()).Assets()
	if err != nil || len(assets) != 1 {
		t.Fatalf("Expected exactly one asset, got %d (%v)", len(assets), err)
	}
	if assets[0].ID != res.Asset.ID {
		t.Errorf("Expected asset %s, got %s", res.Asset.ID, assets[0].ID)
	}
}

func TestRecording_IsRecordingFollowsRequests(t *testing.T) {
	r := newRig(t, nil)
	r.startSession(t)

	rec := r.c.StartRecording()
	if !r.c.IsRecording() {
		t.Error("Expected IsRecording right after StartRecording")
	}
	<-rec.Started()

	second := r.c.StartRecording()
	res, _ := second.Wait(testContext(t))
	if !errors.Is(res.Err, ErrAlreadyRecording) {
		t.Errorf("Expected ErrAlreadyRecording, got %v", res.Err)
	}

	stop := r.c.StopRecording()
	if r.c.IsRecording() {
		t.Error("Expected IsRecording to clear right after StopRecording")
	}
	if err := stop.Wait(testContext(t)); err != nil {
		t.Fatal(err)
	}
	if _, err := rec.Wait(testContext(t)); err != nil {
		t.Fatal(err)
	}
	if n := len(r.enc.Specs()); n != 1 {
		t.Errorf("Expected one recording, got %d", n)
	}
}

func TestRecording_PermissionDenied(t *testing.T) {
	lib := library.New(t.TempDir(), library.PolicyDeny, testLogger())
	r := newRig(t, lib)
	r.startSession(t)
	before, _ := r.c.SelectedAudioInput()

	res := record(t, r.c)

	if res.Stage != StageAuthorize || !errors.Is(res.Err, library.ErrNotAuthorized) {
		t.Fatalf("Expected an authorization failure, got %s: %v", res.Stage, res.Err)
	}
	if _, err := os.Stat(res.Path); err != nil {
		t.Errorf("Expected the temp file to be kept: %v", err)
	}
	if files := r.tempFiles(t); len(files) != 1 {
		t.Errorf("Expected exactly one temp file, found %v", files)
	}
	if after, _ := r.c.SelectedAudioInput(); after != before {
		t.Errorf("Expected selection to stay %+v, got %+v", before, after)
	}
	if r.c.IsRecording() {
		t.Error("Expected IsRecording to be false")
	}
	if !r.c.SessionRunning() {
		t.Error("Expected the session to keep running")
	}
}

type failingLibrary struct{}

func (failingLibrary) RequestAuthorization(context.Context) library.AuthorizationStatus {
	return library.Authorized
}

func (failingLibrary) CreateVideoAsset(context.Context, string) (library.Asset, error) {
	return library.Asset{}, errors.New("disk full")
}

func TestRecording_LibraryWriteError(t *testing.T) {
	r := newRig(t, failingLibrary{})
	r.startSession(t)

	res := record(t, r.c)
	if res.Stage != StageSave || res.Err == nil {
		t.Fatalf("Expected a save failure, got %s: %v", res.Stage, res.Err)
	}
	if _, err := os.Stat(res.Path); err != nil {
		t.Errorf("Expected the temp file to be kept: %v", err)
	}
}

func TestRecording_EncoderError(t *testing.T) {
	r := newRig(t, nil)
	r.enc.FinishErr = errors.New("device lost")
	r.startSession(t)

	res := record(t, r.c)
	if res.Stage != StageRecord || res.Asset != nil {
		t.Fatalf("Expected a recording failure without an asset, got %s", res.Stage)
	}
}

func TestRecording_RapidTogglesNeverOverlap(t *testing.T) {
	r := newRig(t, nil)
	r.startSession(t)
	ctx := testContext(t)

	var recs []*Recording
	for i := 0; i < 5; i++ {
		recs = append(recs, r.c.StartRecording())
		r.c.StopRecording()
	}
	for i, rec := range recs {
		res, err := rec.Wait(ctx)
		if err != nil {
			t.Fatalf("Recording %d never resolved: %v", i, err)
		}
		if res.Stage != StageSaved {
			t.Errorf("Recording %d: expected saved, got %s: %v", i, res.Stage, res.Err)
		}
	}
	if got := r.enc.MaxActive(); got != 1 {
		t.Errorf("Expected at most one writing output, got %d", got)
	}
	if got := len(r.enc.Specs()); got != 5 {
		t.Errorf("Expected 5 recordings, got %d", got)
	}
}

func TestSelectAudioInput(t *testing.T) {
	r := newRig(t, nil)
	r.startSession(t)

	if err := r.c.SelectAudioInput(usbMic.AudioInput()).Wait(testContext(t)); err != nil {
		t.Fatalf("SelectAudioInput failed: %v", err)
	}
	if got, _ := r.c.SelectedAudioInput(); got != usbMic.AudioInput() {
		t.Errorf("Expected %+v selected, got %+v", usbMic.AudioInput(), got)
	}
	if !r.c.SessionRunning() {
		t.Error("Expected the session to be running again")
	}
	in, ok := r.c.session.Input(capture.MediaAudio)
	if !ok || in.Device().ID != usbMic.ID {
		t.Errorf("Expected the USB mic wired into the session, got %+v", in)
	}
	if !r.c.output.Connection(capture.MediaAudio).Enabled() {
		t.Error("Expected the audio connection to be enabled")
	}
	category, opts := r.c.audio.Category()
	want := capture.OptionAllowBluetooth | capture.OptionAllowBluetoothA2DP | capture.OptionDefaultToSpeaker
	if category != capture.CategoryPlayAndRecord || opts != want {
		t.Errorf("Expected play-and-record with %s, got %s with %s", want, category, opts)
	}
	if !r.c.audio.IsActive() {
		t.Error("Expected the audio session to be active")
	}

	// The next recording picks up the new microphone.
	record(t, r.c)
	specs := r.enc.Specs()
	if specs[0].Audio == nil || specs[0].Audio.ID != usbMic.ID {
		t.Errorf("Expected the recording to use the USB mic, got %+v", specs[0].Audio)
	}
}

func TestSelectAudioInput_Unknown(t *testing.T) {
	r := newRig(t, nil)
	r.startSession(t)
	before, _ := r.c.session.Input(capture.MediaAudio)

	err := r.c.SelectAudioInput(capture.AudioInput{UID: "42", Name: "Ghost"}).Wait(testContext(t))
	if !errors.Is(err, ErrUnknownAudioInput) {
		t.Fatalf("Expected ErrUnknownAudioInput, got %v", err)
	}
	if got, _ := r.c.SelectedAudioInput(); got != builtinMic.AudioInput() {
		t.Errorf("Expected selection unchanged, got %+v", got)
	}
	if after, _ := r.c.session.Input(capture.MediaAudio); after != before {
		t.Error("Expected the session's audio input to be untouched")
	}
	if pref, _ := r.c.audio.PreferredInput(); pref != builtinMic.AudioInput() {
		t.Errorf("Expected preferred input unchanged, got %+v", pref)
	}
	if !r.c.SessionRunning() {
		t.Error("Expected the session to keep running")
	}
}

func TestSelectAudioInput_UnpluggedDuringSwitch(t *testing.T) {
	r := newRig(t, nil)
	r.startSession(t)

	// Listed while checking availability and setting the preference, gone by
	// the time the session is rewired.
	both := []capture.Device{builtinMic, usbMic}
	r.disc.QueueAudio(both, both, []capture.Device{builtinMic})

	err := r.c.SelectAudioInput(usbMic.AudioInput()).Wait(testContext(t))
	if !errors.Is(err, ErrUnknownAudioInput) {
		t.Fatalf("Expected ErrUnknownAudioInput, got %v", err)
	}
	if got, _ := r.c.SelectedAudioInput(); got != builtinMic.AudioInput() {
		t.Errorf("Expected the wired mic %+v to be reported, got %+v", builtinMic.AudioInput(), got)
	}
	if in, ok := r.c.session.Input(capture.MediaAudio); !ok || in.Device().ID != builtinMic.ID {
		t.Errorf("Expected the built-in mic wired into the session, got %+v", in)
	}
	if !r.c.SessionRunning() {
		t.Error("Expected the session to be running again")
	}
}

func TestListAudioInputs_PicksUpNewDevices(t *testing.T) {
	r := newRig(t, nil)
	headset := capturetest.Mic("2", "AirPods")
	r.disc.SetAudio([]capture.Device{builtinMic, usbMic, headset})

	inputs, err := r.c.ListAudioInputs(testContext(t))
	if err != nil {
		t.Fatalf("ListAudioInputs failed: %v", err)
	}
	if len(inputs) != 3 || inputs[2] != headset.AudioInput() {
		t.Errorf("Expected the new headset to be listed, got %+v", inputs)
	}
	if len(r.c.AvailableAudioInputs()) != 3 {
		t.Error("Expected the available inputs to be updated")
	}
}

func TestClose_FinalizesActiveRecording(t *testing.T) {
	r := newRig(t, nil)
	r.startSession(t)

	rec := r.c.StartRecording()
	<-rec.Started()
	if err := r.c.Close(); err != nil {
		t.Fatal(err)
	}

	select {
	case <-rec.Done():
	default:
		t.Fatal("Expected Close to wait for the recording to be saved")
	}
	if res := rec.Result(); res.Stage != StageSaved {
		t.Errorf("Expected saved, got %s: %v", res.Stage, res.Err)
	}
	if err := r.c.StartSession().Err(); !errors.Is(err, ErrClosed) {
		t.Errorf("Expected ErrClosed after Close, got %v", err)
	}
}

func TestTempPath_AvoidsCollisions(t *testing.T) {
	fixed := time.Unix(1700000000, 123456000)
	c := &Controller{opts: Options{DocumentsDir: t.TempDir(), Now: func() time.Time { return fixed }}}

	first, err := c.tempPath()
	if err != nil {
		t.Fatal(err)
	}
	if filepath.Base(first) != "recording-1700000000.123456.mov" {
		t.Errorf("Unexpected name %s", filepath.Base(first))
	}
	if err := os.WriteFile(first, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	second, err := c.tempPath()
	if err != nil {
		t.Fatal(err)
	}
	if filepath.Base(second) != "recording-1700000000.123457.mov" {
		t.Errorf("Expected the next free name, got %s", filepath.Base(second))
	}
}
