// Package library is the media library finished recordings are saved into:
// a directory of video assets guarded by an authorization check.
package library

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

var ErrNotAuthorized = errors.New("not authorized to add to the library")

// AuthorizationStatus represents whether the app may add to the library
type AuthorizationStatus int

const (
	// NotDetermined means authorization has not been requested yet
	NotDetermined AuthorizationStatus = iota
	// Restricted means the library exists but cannot be written to
	Restricted
	// Denied means the user turned library access off
	Denied
	// Authorized means assets can be added
	Authorized
)

func (s AuthorizationStatus) String() string {
	switch s {
	case NotDetermined:
		return "not determined"
	case Restricted:
		return "restricted"
	case Denied:
		return "denied"
	case Authorized:
		return "authorized"
	default:
		return "unknown"
	}
}

// Policy decides how authorization requests are answered.
type Policy string

const (
	// PolicyAuto grants access whenever the library directory is writable.
	PolicyAuto Policy = "auto"
	// PolicyDeny refuses every request.
	PolicyDeny Policy = "deny"
)

func ParsePolicy(s string) (Policy, error) {
	switch p := Policy(strings.ToLower(strings.TrimSpace(s))); p {
	case PolicyAuto, PolicyDeny:
		return p, nil
	case "":
		return PolicyAuto, nil
	default:
		return "", fmt.Errorf("unknown library authorization policy %q (want auto or deny)", s)
	}
}

// Asset is one video in the library.
type Asset struct {
	ID        string
	Path      string
	CreatedAt time.Time
	Size      int64
}

// videoExts are the file types Assets lists.
var videoExts = map[string]bool{".mov": true, ".mp4": true, ".m4v": true}

type Library struct {
	dir    string
	policy Policy
	logger *slog.Logger

	mu     sync.Mutex
	status AuthorizationStatus
}

func New(dir string, policy Policy, logger *slog.Logger) *Library {
	return &Library{dir: dir, policy: policy, logger: logger}
}

func (l *Library) Dir() string { return l.dir }

// AuthorizationStatus returns the current status without asking.
func (l *Library) AuthorizationStatus() AuthorizationStatus {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.status
}

// RequestAuthorization determines access, creating the library directory if
// needed. A denial is remembered; a restricted library is checked again on
// the next request.
func (l *Library) RequestAuthorization(ctx context.Context) AuthorizationStatus {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.status == Authorized || l.status == Denied {
		return l.status
	}
	if ctx.Err() != nil {
		return l.status
	}

	if l.policy == PolicyDeny {
		l.status = Denied
		l.logger.Info("library authorization denied by policy", "dir", l.dir)
		return l.status
	}

	if err := os.MkdirAll(l.dir, 0o755); err != nil {
		l.logger.Warn("library directory unavailable", "dir", l.dir, "error", err)
		l.status = Restricted
		return l.status
	}
	if err := checkWritable(l.dir); err != nil {
		l.logger.Warn("library directory not writable", "dir", l.dir, "error", err)
		l.status = Restricted
		return l.status
	}
	l.status = Authorized
	l.logger.Debug("library authorized", "dir", l.dir)
	return l.status
}

// CreateVideoAsset copies the video at src into the library. The asset
// appears atomically: it is staged next to its final name and renamed into
// place. src is left untouched.
func (l *Library) CreateVideoAsset(ctx context.Context, src string) (Asset, error) {
	if l.AuthorizationStatus() != Authorized {
		return Asset{}, ErrNotAuthorized
	}
	if err := ctx.Err(); err != nil {
		return Asset{}, err
	}

	in, err := os.Open(src)
	if err != nil {
		return Asset{}, fmt.Errorf("opening recording: %w", err)
	}
	defer in.Close()

	staging, err := os.CreateTemp(l.dir, ".import-*")
	if err != nil {
		return Asset{}, fmt.Errorf("creating staging file: %w", err)
	}
	stagingPath := staging.Name()
	committed := false
	defer func() {
		if !committed {
			staging.Close()
			os.Remove(stagingPath)
		}
	}()

	size, err := io.Copy(staging, in)
	if err != nil {
		return Asset{}, fmt.Errorf("copying recording: %w", err)
	}
	if err := staging.Sync(); err != nil {
		return Asset{}, fmt.Errorf("syncing asset: %w", err)
	}
	if err := staging.Close(); err != nil {
		return Asset{}, fmt.Errorf("closing asset: %w", err)
	}

	ext := strings.ToLower(filepath.Ext(src))
	if !videoExts[ext] {
		ext = ".mov"
	}
	id := uuid.NewString()
	dst := filepath.Join(l.dir, id+ext)
	if err := os.Rename(stagingPath, dst); err != nil {
		return Asset{}, fmt.Errorf("saving asset: %w", err)
	}
	committed = true

	asset := Asset{ID: id, Path: dst, CreatedAt: time.Now(), Size: size}
	if info, err := os.Stat(dst); err == nil {
		asset.CreatedAt = info.ModTime()
	}
	l.logger.Info("asset created", "id", id, "path", dst, "bytes", size)
	return asset, nil
}

// Assets lists the library's videos, newest first. A missing library is empty.
func (l *Library) Assets() ([]Asset, error) {
	entries, err := os.ReadDir(l.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var assets []Asset
	for _, e := range entries {
		name := e.Name()
		ext := strings.ToLower(filepath.Ext(name))
		if e.IsDir() || !videoExts[ext] {
			continue
		}
		id := strings.TrimSuffix(name, filepath.Ext(name))
		if _, err := uuid.Parse(id); err != nil {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		assets = append(assets, Asset{
			ID:        id,
			Path:      filepath.Join(l.dir, name),
			CreatedAt: info.ModTime(),
			Size:      info.Size(),
		})
	}

	sort.Slice(assets, func(i, j int) bool {
		return assets[i].CreatedAt.After(assets[j].CreatedAt)
	})
	return assets, nil
}
