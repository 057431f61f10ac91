package output

import (
	"fmt"
	"io"

	"github.com/0xlemi/bertcam/internal/capture"
	"github.com/0xlemi/bertcam/internal/library"
)

type Formatter struct {
	w io.Writer
}

func NewFormatter(w io.Writer) *Formatter {
	return &Formatter{w: w}
}

func (f *Formatter) Error(msg string) {
	fmt.Fprintf(f.w, "❌ %s\n", msg)
}

func (f *Formatter) Info(msg string) {
	fmt.Fprintf(f.w, "ℹ️  %s\n", msg)
}

func (f *Formatter) Success(msg string) {
	fmt.Fprintf(f.w, "✅ %s\n", msg)
}

func (f *Formatter) Warning(msg string) {
	fmt.Fprintf(f.w, "⚠️  %s\n", msg)
}

func (f *Formatter) DeviceListHeader(title string) {
	fmt.Fprintf(f.w, "%s:\n", title)
}

func (f *Formatter) DeviceListItem(d capture.Device, isDefault bool) {
	mark := ""
	if isDefault {
		mark = " (default)"
	}
	if d.Position != capture.PositionUnspecified {
		mark += fmt.Sprintf(" [%s]", d.Position)
	}
	fmt.Fprintf(f.w, "  %-8s %s%s\n", d.ID, d.Name, mark)
}

func (f *Formatter) AssetListHeader(dir string, count int) {
	fmt.Fprintf(f.w, "🎬 %d recording(s) in %s:\n\n", count, dir)
}

func (f *Formatter) AssetListItem(a library.Asset) {
	fmt.Fprintf(f.w, "  %s  %s  %s\n", a.CreatedAt.Format("2006-01-02 15:04:05"), formatSize(a.Size), a.ID)
}

func (f *Formatter) SetupCheck(name string, ok bool, detail string) {
	if ok {
		fmt.Fprintf(f.w, "  ✅ %s: %s\n", name, detail)
	} else {
		fmt.Fprintf(f.w, "  ❌ %s: %s\n", name, detail)
	}
}

func formatSize(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(n)/float64(div), "KMGT"[exp])
}
