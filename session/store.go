// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package session // import "github.com/drdotnet/agent/session"

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/klauspost/compress/zstd"
	sha256 "github.com/minio/sha256-simd"
	log "github.com/sirupsen/logrus"

	"github.com/drdotnet/agent/report"
)

const (
	infoFileName     = "session.json"
	manifestFileName = "manifest.json"
	zstdSuffix       = ".zst"
	gzipSuffix       = ".gz"
)

// DefaultRoot is the directory sessions are written under unless configured
// otherwise.
func DefaultRoot() string {
	return filepath.Join(os.TempDir(), "dr-dotnet")
}

// Store persists sessions under a root directory, one directory per session
// uuid.
type Store struct {
	root     string
	compress bool
}

// NewStore returns a store rooted at root. With compress set, report files
// are zstd compressed and get a ".zst" suffix. Files that are gzipped
// already are stored as they are.
func NewStore(root string, compress bool) *Store {
	return &Store{root: root, compress: compress}
}

// Root returns the store root directory.
func (s *Store) Root() string {
	return s.root
}

// Open creates the session directory and writes session.json.
func (s *Store) Open(info *Info) (*Session, error) {
	if err := info.Validate(); err != nil {
		return nil, err
	}
	dir := filepath.Join(s.root, info.ID.String())
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create session directory: %w", err)
	}

	data, err := json.MarshalIndent(info, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode session info: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, infoFileName), data, 0o644); err != nil {
		return nil, fmt.Errorf("failed to write session info: %w", err)
	}
	log.Debugf("Opened %v in %s", info, dir)

	return &Session{info: info, dir: dir, compress: s.compress}, nil
}

// Session is one open session directory. It implements report.Factory.
type Session struct {
	info     *Info
	dir      string
	compress bool

	mu       sync.Mutex
	files    []string
	finished bool
}

var _ report.Factory = (*Session)(nil)

// Dir returns the session directory.
func (s *Session) Dir() string {
	return s.dir
}

// Info returns the session parameters.
func (s *Session) Info() *Info {
	return s.info
}

func (s *Session) create(name string) (io.WriteCloser, error) {
	if name == "" || filepath.Base(name) != name || name == infoFileName || name == manifestFileName {
		return nil, fmt.Errorf("invalid report name %q", name)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.finished {
		return nil, errors.New("session already finished")
	}
	compress := s.compress && !strings.HasSuffix(name, gzipSuffix)
	fileName := name
	if compress {
		fileName += zstdSuffix
	}
	if slices.Contains(s.files, fileName) {
		return nil, fmt.Errorf("report %q already exists", name)
	}
	f, err := os.Create(filepath.Join(s.dir, fileName))
	if err != nil {
		return nil, fmt.Errorf("failed to create report %q: %w", name, err)
	}
	s.files = append(s.files, fileName)
	if !compress {
		return f, nil
	}
	enc, err := zstd.NewWriter(f)
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("failed to create zstd writer: %w", err)
	}
	return &compressedFile{enc: enc, file: f}, nil
}

// NewReport implements report.Factory with a markdown rendering.
func (s *Session) NewReport(name string) (report.Writer, error) {
	w, err := s.create(name)
	if err != nil {
		return nil, err
	}
	return report.NewMarkdown(w), nil
}

// NewFile implements report.Factory.
func (s *Session) NewFile(name string) (io.WriteCloser, error) {
	return s.create(name)
}

// ManifestEntry describes one persisted report.
type ManifestEntry struct {
	Name   string `json:"name"`
	Size   int64  `json:"size"`
	SHA256 string `json:"sha256"`
}

// Manifest lists the reports of a finished session.
type Manifest struct {
	Session string          `json:"session"`
	Files   []ManifestEntry `json:"files"`
}

// Finish writes manifest.json with the checksum of every report. Reports
// must be closed before. Finish is idempotent.
func (s *Session) Finish() (*Manifest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	manifest := &Manifest{Session: s.info.ID.String()}
	for _, name := range s.files {
		entry, err := checksum(filepath.Join(s.dir, name))
		if err != nil {
			return nil, err
		}
		entry.Name = name
		manifest.Files = append(manifest.Files, entry)
	}
	data, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode manifest: %w", err)
	}
	if err := os.WriteFile(filepath.Join(s.dir, manifestFileName), data, 0o644); err != nil {
		return nil, fmt.Errorf("failed to write manifest: %w", err)
	}
	s.finished = true
	return manifest, nil
}

// Close finishes the session so it can serve as a profiler output.
func (s *Session) Close() error {
	_, err := s.Finish()
	return err
}

func checksum(path string) (ManifestEntry, error) {
	f, err := os.Open(path)
	if err != nil {
		return ManifestEntry{}, fmt.Errorf("failed to open %q: %w", path, err)
	}
	defer f.Close()

	hasher := sha256.New()
	size, err := io.Copy(hasher, f)
	if err != nil {
		return ManifestEntry{}, fmt.Errorf("failed to hash content of %q: %w", path, err)
	}
	return ManifestEntry{Size: size, SHA256: hex.EncodeToString(hasher.Sum(nil))}, nil
}

type compressedFile struct {
	enc  *zstd.Encoder
	file *os.File
}

func (c *compressedFile) Write(p []byte) (int, error) {
	return c.enc.Write(p)
}

func (c *compressedFile) Close() error {
	return errors.Join(c.enc.Close(), c.file.Close())
}
