package utils

import (
	"bytes"
	"os"
	"sync"
	"testing"
)

// WithCleanDirs removes dirs before and after the package's tests and returns the
// exit code for TestMain to pass to os.Exit.
func WithCleanDirs(m *testing.M, dirs ...string) int {
	removeAll(dirs)
	code := m.Run()
	removeAll(dirs)
	return code
}

func removeAll(dirs []string) {
	for _, dir := range dirs {
		if err := os.RemoveAll(dir); err != nil {
			Warn("cleanup %s: %v", dir, err)
		}
	}
}

// LogBuffer is a goroutine safe buffer for captured log output.
type LogBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *LogBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *LogBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// CaptureLogs sends internal log output to a buffer until t finishes.
func CaptureLogs(t testing.TB) *LogBuffer {
	t.Helper()
	buf := &LogBuffer{}
	SetInternalOutput(buf)
	t.Cleanup(func() { SetInternalOutput(nil) })
	return buf
}
