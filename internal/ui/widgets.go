package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/0xlemi/bertcam/internal/audio"
	"github.com/0xlemi/bertcam/internal/capture"
)

var (
	// Styles
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#E0245E")).
			PaddingLeft(2).
			PaddingRight(2)

	infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#CCCCCC"))

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF5F5F"))

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#5FD787"))

	redStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FF0000"))

	pillStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#1C1C1C")).
			Padding(0, 2)

	previewStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#444444")).
			Padding(0, 1)

	recordIdleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FF0000")).
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#FAFAFA")).
			Padding(0, 3)

	recordActiveStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("#FAFAFA")).
				Background(lipgloss.Color("#FF0000")).
				BorderStyle(lipgloss.ThickBorder()).
				BorderForeground(lipgloss.Color("#FF0000")).
				Padding(0, 3)

	logo = []string{
		"█▄▄ █▀▀ █▀█ ▀█▀ █▀▀ ▄▀█ █▀▄▀█",
		"█▄█ ██▄ █▀▄  █  █▄▄ █▀█ █ ▀ █",
	}
)

var sparkBlocks = []rune("▁▂▃▄▅▆▇█")

// FormatElapsed renders seconds as MM:SS.
func FormatElapsed(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%02d:%02d", seconds/60, seconds%60)
}

func renderSplash(width, height int) string {
	content := lipgloss.JoinVertical(lipgloss.Center,
		redStyle.Render(strings.Join(logo, "\n")),
		"",
		dimStyle.Render("camera"),
	)
	return place(width, height, content)
}

func renderLoading(width, height int, spinner string) string {
	content := lipgloss.JoinHorizontal(lipgloss.Center, spinner, " ", infoStyle.Render("Initializing Camera"))
	return place(width, height, content)
}

func place(width, height int, content string) string {
	if width == 0 || height == 0 {
		return content
	}
	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, content)
}

// renderRecordButton draws the shutter: a red dot when idle, a stop square
// while recording.
func renderRecordButton(recording bool) string {
	if recording {
		return recordActiveStyle.Render("■ STOP")
	}
	return recordIdleStyle.Render("● REC")
}

// renderTimer is the MM:SS readout shown under the button while recording.
func renderTimer(seconds int) string {
	return pillStyle.Render(redStyle.Render("●") + " " + FormatElapsed(seconds))
}

// renderRecordingIndicator is the header badge shown while recording. The
// dot blinks with blinkOn.
func renderRecordingIndicator(seconds int, blinkOn bool) string {
	dot := redStyle.Render("●")
	if !blinkOn {
		dot = dimStyle.Render("●")
	}
	return pillStyle.Render(dot + " " + FormatElapsed(seconds) + " " + redStyle.Render("REC"))
}

func renderAudioInputButton(selected capture.AudioInput, ok bool) string {
	label := "Select Audio Input"
	if ok {
		label = selected.Name
	}
	return pillStyle.Render("🎤 " + label)
}

// renderMeter draws a horizontal level bar of the given width.
func renderMeter(level float64, width int) string {
	if width < 1 {
		return ""
	}
	filled := int(level*float64(width) + 0.5)
	if filled > width {
		filled = width
	}
	if filled < 0 {
		filled = 0
	}
	bar := strings.Repeat("█", filled)
	color := "#5FD787"
	switch {
	case level > 0.9:
		color = "#FF0000"
	case level > 0.7:
		color = "#FFD700"
	}
	return lipgloss.NewStyle().Foreground(lipgloss.Color(color)).Render(bar) +
		dimStyle.Render(strings.Repeat("░", width-filled))
}

// renderSpectrum draws one block per band, taller for louder bands.
func renderSpectrum(bands []float64) string {
	var b strings.Builder
	for _, v := range bands {
		i := int(v * float64(len(sparkBlocks)-1))
		if i < 0 {
			i = 0
		}
		if i >= len(sparkBlocks) {
			i = len(sparkBlocks) - 1
		}
		b.WriteRune(sparkBlocks[i])
	}
	return successStyle.Render(b.String())
}

// renderPreview is the live preview panel: what the camera sees and how
// loud the microphone is.
func renderPreview(camera string, frame *capture.Frame, meterDevice string, levels audio.Levels, width int) string {
	inner := width - 4
	if inner < 20 {
		inner = 20
	}
	cam := camera
	if cam == "" {
		cam = "no camera"
	}
	lines := []string{infoStyle.Render("📷 " + cam), ""}
	if frame != nil {
		lines = append(lines, renderFrame(*frame), "")
	}
	lines = append(lines,
		renderSpectrum(levels.Bands),
		renderMeter(levels.Level(), inner-8)+" "+infoStyle.Render(fmt.Sprintf("%4.0f dB", dbForDisplay(levels.DB))),
	)
	if meterDevice != "" {
		lines = append(lines, dimStyle.Render("monitoring "+meterDevice))
	}
	return previewStyle.Width(inner).Render(strings.Join(lines, "\n"))
}

// renderFrame draws two pixel rows per line with upper half blocks: the top
// pixel is the foreground, the bottom one the background.
func renderFrame(f capture.Frame) string {
	var b strings.Builder
	for y := 0; y < f.Height; y += 2 {
		if y > 0 {
			b.WriteByte('\n')
		}
		for x := 0; x < f.Width; x++ {
			b.WriteString(lipgloss.NewStyle().
				Foreground(pixelColor(f.RGB(x, y))).
				Background(pixelColor(f.RGB(x, y+1))).
				Render("▀"))
		}
	}
	return b.String()
}

func pixelColor(r, g, b uint8) lipgloss.Color {
	return lipgloss.Color(fmt.Sprintf("#%02x%02x%02x", r, g, b))
}

func dbForDisplay(db float64) float64 {
	if db < -99 {
		return -99
	}
	return db
}

func renderStatus(text string, isErr bool) string {
	if text == "" {
		return ""
	}
	if isErr {
		return errorStyle.Render(text)
	}
	return successStyle.Render(text)
}
