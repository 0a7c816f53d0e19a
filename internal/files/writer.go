package files

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofrs/flock"
)

// LockName is the lock file created inside the output directory.
const LockName = ".skills-extractor.lock"

// Output is one file to write: its preferred name and how to render it.
type Output struct {
	Name   string
	Encode func(w io.Writer) error
}

// Writer places outputs in a directory without overwriting earlier runs.
type Writer struct {
	dir         string
	now         func() time.Time
	lockTimeout time.Duration
}

// NewWriter creates dir if needed.
func NewWriter(dir string) (*Writer, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}
	return &Writer{dir: dir, now: time.Now, lockTimeout: 10 * time.Second}, nil
}

// Dir is the output directory.
func (w *Writer) Dir() string { return w.dir }

// maxAttempts bounds the numbered names tried after the timestamped one.
const maxAttempts = 1000

// candidate is the name tried on the given attempt: the plain name first,
// then a _YYYYMMDDHHMMSS suffix before the extension, then that suffix
// followed by _1, _2 and so on.
func (w *Writer) candidate(name string, stamp string, attempt int) string {
	if attempt == 0 {
		return filepath.Join(w.dir, name)
	}
	ext := filepath.Ext(name)
	base := strings.TrimSuffix(name, ext)
	if attempt == 1 {
		return filepath.Join(w.dir, fmt.Sprintf("%s_%s%s", base, stamp, ext))
	}
	return filepath.Join(w.dir, fmt.Sprintf("%s_%s_%d%s", base, stamp, attempt-1, ext))
}

// Write renders every output to a temporary file under the directory lock,
// then claims a free name for each one. Either every output is placed and
// the chosen paths are returned in order, or none is.
func (w *Writer) Write(outputs ...Output) ([]string, error) {
	unlock, err := w.acquire()
	if err != nil {
		return nil, err
	}
	defer unlock()

	temps := make([]string, 0, len(outputs))
	defer func() {
		for _, tmp := range temps {
			_ = os.Remove(tmp)
		}
	}()
	for _, o := range outputs {
		tmp, err := w.render(o)
		if err != nil {
			return nil, fmt.Errorf("write %s: %w", o.Name, err)
		}
		temps = append(temps, tmp)
	}

	stamp := w.now().Format("20060102150405")
	paths := make([]string, 0, len(outputs))
	for i, o := range outputs {
		path, err := w.claim(temps[i], o.Name, stamp)
		if err != nil {
			for _, p := range paths {
				_ = os.Remove(p)
			}
			return nil, fmt.Errorf("write %s: %w", o.Name, err)
		}
		paths = append(paths, path)
	}
	return paths, nil
}

// claim hard-links tmp to the first candidate name that does not exist yet.
// Link fails on an existing target, so no earlier file is replaced.
func (w *Writer) claim(tmp, name, stamp string) (string, error) {
	for attempt := 0; attempt <= maxAttempts; attempt++ {
		path := w.candidate(name, stamp, attempt)
		err := os.Link(tmp, path)
		if err == nil {
			return path, nil
		}
		if !errors.Is(err, fs.ErrExist) {
			return "", err
		}
	}
	return "", fmt.Errorf("no free name for %s in %s", name, w.dir)
}

func (w *Writer) acquire() (func(), error) {
	lockPath := filepath.Join(w.dir, LockName)
	l := flock.New(lockPath)
	deadline := w.now().Add(w.lockTimeout)
	for {
		locked, err := l.TryLock()
		if err != nil {
			return nil, fmt.Errorf("cannot acquire output lock: %w", err)
		}
		if locked {
			return func() { _ = l.Unlock() }, nil
		}
		if w.now().After(deadline) {
			return nil, fmt.Errorf("another run is writing to %s (lock: %s)", w.dir, lockPath)
		}
		time.Sleep(200 * time.Millisecond)
	}
}

// render encodes o into a temporary file in the output directory.
func (w *Writer) render(o Output) (string, error) {
	tmp, err := os.CreateTemp(w.dir, "."+o.Name+".*.tmp")
	if err != nil {
		return "", err
	}
	if err := o.Encode(tmp); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return "", err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return "", err
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		_ = os.Remove(tmp.Name())
		return "", err
	}
	return tmp.Name(), nil
}
