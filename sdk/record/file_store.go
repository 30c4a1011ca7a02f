package record

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabrielopesantos/recidx/sdk/bptree"
	"github.com/hashicorp/go-hclog"
)

const recordFileExt = ".rec"

// FileStoreConfig configures a FileStore
type FileStoreConfig struct {
	Dir string `json:"dir"` // Directory holding one file per record
}

var _ Store = &FileStore{}

// FileStore keeps every record in its own small file. The handle is the
// file name, <key>-<id>.rec, relative to the store directory.
type FileStore struct {
	dir    string
	logger hclog.Logger
}

// NewFileStore creates the store directory if needed
func NewFileStore(config *FileStoreConfig, logger hclog.Logger) (*FileStore, error) {
	if config == nil || config.Dir == "" {
		return nil, fmt.Errorf("file store directory required")
	}
	if err := os.MkdirAll(config.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create record directory: %w", err)
	}
	if logger == nil {
		logger = hclog.NewNullLogger()
	}

	return &FileStore{dir: config.Dir, logger: logger}, nil
}

// filePath maps a handle to its file, refusing anything that is not a plain
// record file name inside the store directory.
func (s *FileStore) filePath(handle bptree.RecordHandle) (string, error) {
	name := string(handle)
	if name == "" || filepath.Base(name) != name || !strings.HasSuffix(name, recordFileExt) {
		return "", fmt.Errorf("%w: invalid handle %q", ErrRecordNotFound, name)
	}
	return filepath.Join(s.dir, name), nil
}

// Write stores a new record file and returns its handle
func (s *FileStore) Write(_ context.Context, key int, payload []byte) (bptree.RecordHandle, error) {
	id, err := genHandleID()
	if err != nil {
		return "", err
	}

	handle := bptree.RecordHandle(fmt.Sprintf("%d-%s%s", key, id, recordFileExt))
	path := filepath.Join(s.dir, string(handle))
	if err := os.WriteFile(path, payload, 0o644); err != nil {
		return "", fmt.Errorf("failed to write record for key %d: %w", key, err)
	}

	s.logger.Debug("stored record", "key", key, "file", path)
	return handle, nil
}

// Read returns the contents of a record file
func (s *FileStore) Read(_ context.Context, handle bptree.RecordHandle) ([]byte, error) {
	path, err := s.filePath(handle)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrRecordNotFound, handle)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read record %s: %w", handle, err)
	}
	return data, nil
}

// Release removes a record file. A file that is already gone is not an error.
func (s *FileStore) Release(_ context.Context, handle bptree.RecordHandle) error {
	path, err := s.filePath(handle)
	if err != nil {
		return err
	}

	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to delete record %s: %w", handle, err)
	}

	s.logger.Debug("released record", "file", path)
	return nil
}

// List returns the handles of every record file in the store directory
func (s *FileStore) List(_ context.Context) ([]bptree.RecordHandle, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list records: %w", err)
	}

	var handles []bptree.RecordHandle
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), recordFileExt) {
			continue
		}
		handles = append(handles, bptree.RecordHandle(entry.Name()))
	}
	return handles, nil
}
