package storage

import (
	"fmt"
	"os"
	"sync"

	"github.com/uhyunpark/lockbox/pkg/chain"
)

type NopWAL struct{}

func NewNopWAL() *NopWAL          { return &NopWAL{} }
func (w *NopWAL) Append(_ string) {}

type FileWAL struct {
	mu sync.Mutex
	f  *os.File
}

func NewFileWAL(path string) (*FileWAL, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, err
	}
	return &FileWAL{f: f}, nil
}
func (w *FileWAL) Append(line string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	fmt.Fprintln(w.f, line)
}
func (w *FileWAL) Close() error { return w.f.Close() }

var _ chain.WAL = (*NopWAL)(nil)
var _ chain.WAL = (*FileWAL)(nil)
