// Package filestore keeps the files of each transfer session in a folder of
// its own under the upload directory. All paths handed to the store are
// relative to that directory and may not escape it.
package filestore

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"

	"github.com/yasinhessnawi1/SecureTransfer_Backend/internal/constants"
)

var (
	// ErrPathTraversal is returned for a folder or file that would resolve outside the root
	ErrPathTraversal = errors.New("path escapes upload root")

	// ErrEmptyFilename is returned when nothing usable is left of a filename after sanitizing
	ErrEmptyFilename = errors.New("empty filename")
)

const (
	folderPerm os.FileMode = 0o750
	filePerm   os.FileMode = 0o640
)

// Store is a per-session file store over an afero filesystem.
type Store struct {
	fs   afero.Fs
	root string
}

// New creates a store over fs. root is only used to report absolute folder
// paths; fs itself must already be rooted at the upload directory.
func New(fs afero.Fs, root string) *Store {
	return &Store{fs: fs, root: root}
}

// NewOnDisk creates a store jailed to the given upload directory.
func NewOnDisk(root string) (*Store, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve upload directory: %w", err)
	}
	if err := os.MkdirAll(abs, folderPerm); err != nil {
		return nil, fmt.Errorf("failed to create upload directory: %w", err)
	}
	return New(afero.NewBasePathFs(afero.NewOsFs(), abs), abs), nil
}

// Fs exposes the underlying filesystem.
func (s *Store) Fs() afero.Fs {
	return s.fs
}

// LANFolder returns the folder of the LAN session with the given code.
func LANFolder(code string) string {
	return filepath.Join(constants.LANFolderName, constants.LANSessionDirPrefix+code)
}

// OnlineFolder returns the folder of the online session with the given token.
func OnlineFolder(token string) string {
	return filepath.Join(constants.OnlineFolderName, token)
}

// AbsPath returns the on-disk location of a folder for display and logging.
func (s *Store) AbsPath(folder string) string {
	return filepath.Join(s.root, folder)
}

// EnsureFolder creates a folder and its parents if they are missing.
func (s *Store) EnsureFolder(folder string) error {
	p, err := local(folder)
	if err != nil {
		return err
	}
	return s.fs.MkdirAll(p, folderPerm)
}

// Save writes content into folder under the sanitized form of name and
// returns the name it was stored under. An existing file is overwritten.
func (s *Store) Save(folder, name string, content io.Reader) (string, error) {
	filename := SanitizeFilename(name)
	if filename == "" {
		return "", ErrEmptyFilename
	}

	dir, err := local(folder)
	if err != nil {
		return "", err
	}
	if err := s.fs.MkdirAll(dir, folderPerm); err != nil {
		return "", fmt.Errorf("failed to create session folder: %w", err)
	}

	f, err := s.fs.OpenFile(filepath.Join(dir, filename), os.O_CREATE|os.O_WRONLY|os.O_TRUNC, filePerm)
	if err != nil {
		return "", fmt.Errorf("failed to create file: %w", err)
	}

	if _, err := io.Copy(f, content); err != nil {
		f.Close()
		return "", fmt.Errorf("failed to write file: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("failed to close file: %w", err)
	}

	return filename, nil
}

// Open opens a stored file for reading. The name is sanitized the same way
// Save does, so a client may ask for the name it uploaded.
// A missing file yields an error satisfying os.IsNotExist.
func (s *Store) Open(folder, name string) (afero.File, string, error) {
	filename := SanitizeFilename(name)
	if filename == "" {
		return nil, "", os.ErrNotExist
	}

	dir, err := local(folder)
	if err != nil {
		return nil, "", err
	}

	p := filepath.Join(dir, filename)
	info, err := s.fs.Stat(p)
	if err != nil {
		return nil, "", err
	}
	if info.IsDir() {
		return nil, "", os.ErrNotExist
	}

	f, err := s.fs.Open(p)
	if err != nil {
		return nil, "", err
	}
	return f, filename, nil
}

// List returns the sorted names of the regular files in folder.
// A missing folder lists as empty.
func (s *Store) List(folder string) ([]string, error) {
	dir, err := local(folder)
	if err != nil {
		return nil, err
	}

	entries, err := afero.ReadDir(s.fs, dir)
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		return nil, err
	}

	files := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.Mode().IsRegular() {
			files = append(files, entry.Name())
		}
	}
	sort.Strings(files)
	return files, nil
}

// ListFolders returns the sorted names of the folders directly below parent.
func (s *Store) ListFolders(parent string) ([]string, error) {
	dir, err := local(parent)
	if err != nil {
		return nil, err
	}

	entries, err := afero.ReadDir(s.fs, dir)
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		return nil, err
	}

	folders := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			folders = append(folders, entry.Name())
		}
	}
	sort.Strings(folders)
	return folders, nil
}

// Exists reports whether a folder exists.
func (s *Store) Exists(folder string) (bool, error) {
	p, err := local(folder)
	if err != nil {
		return false, err
	}
	return afero.DirExists(s.fs, p)
}

// RemoveFolder deletes a folder and everything in it. A missing folder is not an error.
func (s *Store) RemoveFolder(folder string) error {
	p, err := local(folder)
	if err != nil {
		return err
	}
	if p == "." {
		return ErrPathTraversal
	}
	return s.fs.RemoveAll(p)
}

// SweepPrefix removes every folder below parent whose name starts with
// prefix and returns how many were removed. Failures are logged and the
// sweep continues; the first failure is returned.
func (s *Store) SweepPrefix(parent, prefix string) (int, error) {
	folders, err := s.ListFolders(parent)
	if err != nil {
		return 0, err
	}

	var firstErr error
	removed := 0
	for _, name := range folders {
		if !strings.HasPrefix(name, prefix) {
			continue
		}
		folder := filepath.Join(parent, name)
		if err := s.RemoveFolder(folder); err != nil {
			log.Warn().Err(err).Str("folder", folder).Msg("Failed to remove session folder")
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		removed++
	}
	return removed, firstErr
}

// local cleans a root-relative path and rejects anything that escapes the root.
func local(rel string) (string, error) {
	p := filepath.Clean(filepath.FromSlash(strings.TrimLeft(rel, "/\\")))
	if p == ".." || strings.HasPrefix(p, ".."+string(filepath.Separator)) || filepath.IsAbs(p) {
		return "", ErrPathTraversal
	}
	return p, nil
}
