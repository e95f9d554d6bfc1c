package watcher

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStylesheetFilter(t *testing.T) {
	tests := []struct {
		path string
		want bool
	}{
		{"transform.xsl", true},
		{"transform.xslt", true},
		{"TRANSFORM.XSL", true},
		{"transform.xml", false},
		{"transform.xsl.bak", false},
		{"readme.md", false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, StylesheetFilter(tt.path), tt.path)
	}
}

func TestNoBackupFilter(t *testing.T) {
	assert.False(t, NoBackupFilter("transform.xsl.bak"))
	assert.False(t, NoBackupFilter("transform.xsl~"))
	assert.True(t, NoBackupFilter("transform.xsl"))
}

func TestNoGitFilter(t *testing.T) {
	assert.False(t, NoGitFilter(".git/config"))
	assert.False(t, NoGitFilter("project/.git/hooks/pre-commit"))
	assert.True(t, NoGitFilter("project/transform.xsl"))
}

func TestDebouncerBatchesAndDeduplicates(t *testing.T) {
	d := &Debouncer{
		delay:   20 * time.Millisecond,
		events:  make(chan ChangeEvent, 100),
		output:  make(chan []ChangeEvent, 10),
		pending: make([]ChangeEvent, 0),
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go d.start(ctx)

	// Three rapid events for two paths collapse into one batch of two.
	d.events <- ChangeEvent{Type: EventTypeModified, Path: "a.xsl"}
	d.events <- ChangeEvent{Type: EventTypeModified, Path: "b.xsl"}
	d.events <- ChangeEvent{Type: EventTypeModified, Path: "a.xsl"}

	select {
	case batch := <-d.output:
		assert.Len(t, batch, 2)
		paths := map[string]bool{}
		for _, event := range batch {
			paths[event.Path] = true
		}
		assert.True(t, paths["a.xsl"])
		assert.True(t, paths["b.xsl"])
	case <-time.After(time.Second):
		t.Fatal("debounced batch never arrived")
	}
}

func TestWatcherDeliversFilteredEvents(t *testing.T) {
	dir := t.TempDir()

	fw, err := NewFileWatcher(20*time.Millisecond, nil)
	require.NoError(t, err)
	defer fw.Stop()

	fw.AddFilter(StylesheetFilter)

	var mu sync.Mutex
	var received []ChangeEvent
	fw.AddHandler(func(events []ChangeEvent) error {
		mu.Lock()
		defer mu.Unlock()
		received = append(received, events...)
		return nil
	})

	require.NoError(t, fw.AddPath(dir))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, fw.Start(ctx))

	require.NoError(t, os.WriteFile(filepath.Join(dir, "transform.xsl"), []byte("<x/>"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0644))

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(received) > 0
	}, 2*time.Second, 10*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	for _, event := range received {
		assert.Equal(t, ".xsl", filepath.Ext(event.Path))
	}
}

func TestEventTypeString(t *testing.T) {
	assert.Equal(t, "created", EventTypeCreated.String())
	assert.Equal(t, "modified", EventTypeModified.String())
	assert.Equal(t, "deleted", EventTypeDeleted.String())
	assert.Equal(t, "renamed", EventTypeRenamed.String())
	assert.Equal(t, "unknown", EventType(42).String())
}

func TestValidatePathRejectsTraversal(t *testing.T) {
	fw, err := NewFileWatcher(time.Millisecond, nil)
	require.NoError(t, err)
	defer fw.Stop()

	err = fw.AddPath("../outside")
	assert.Error(t, err)
}
