package infra

import (
	"path/filepath"
	"sync"
	"testing"
)

func TestRecoverPanicKeepsGoroutineAlive(t *testing.T) {
	t.Parallel()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		defer RecoverPanic("test")
		panic("boom")
	}()
	wg.Wait()
}

func TestGetWorkDirCreatesDirectory(t *testing.T) {
	t.Parallel()

	base := t.TempDir()
	dir, err := GetWorkDir(base, "nested", "state")
	if err != nil {
		t.Fatalf("get work dir: %v", err)
	}
	if dir != filepath.Join(base, "nested", "state") {
		t.Fatalf("unexpected dir: %s", dir)
	}
}
