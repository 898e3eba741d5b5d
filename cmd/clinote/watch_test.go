package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ersonp/clinote/internal/application/handlers"
	"github.com/ersonp/clinote/internal/domain/entities"
	"github.com/ersonp/clinote/internal/domain/mocks"
	"github.com/ersonp/clinote/internal/domain/services"
)

func TestIsNoteEvent(t *testing.T) {
	tests := []struct {
		name     string
		path     string
		op       fsnotify.Op
		expected bool
	}{
		{name: "create note", path: "/notes/consulta.txt", op: fsnotify.Create, expected: true},
		{name: "write note", path: "/notes/consulta.txt", op: fsnotify.Write, expected: true},
		{name: "write and chmod", path: "/notes/consulta.TXT", op: fsnotify.Write | fsnotify.Chmod, expected: true},
		{name: "remove note", path: "/notes/consulta.txt", op: fsnotify.Remove},
		{name: "rename note", path: "/notes/consulta.txt", op: fsnotify.Rename},
		{name: "chmod only", path: "/notes/consulta.txt", op: fsnotify.Chmod},
		{name: "hidden file", path: "/notes/.consulta.txt", op: fsnotify.Create},
		{name: "other extension", path: "/notes/consulta.md", op: fsnotify.Create},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, isNoteEvent(fsnotify.Event{Name: tt.path, Op: tt.op}))
		})
	}
}

func newTestWatcher(t *testing.T, store *mocks.AnnotationStore) (*noteWatcher, *bytes.Buffer) {
	t.Helper()
	patterns, err := services.NewPatternExtractor()
	require.NoError(t, err)
	service := services.NewAnnotationService(
		services.NewEntityRecognizer(patterns, nil, false, nil),
		services.NewMapper(nil),
		services.MustLocalTerminology("snomed", entities.DefaultSNOMEDFallback),
		services.MustLocalTerminology("hl7", entities.DefaultHL7Table),
		store,
		nil,
	)

	var out bytes.Buffer
	nw := newNoteWatcher(handlers.NewAnnotateHandler(service), services.AnnotateOptions{
		Mode:            entities.ModePatterns,
		SNOMEDThreshold: services.DefaultSNOMEDThreshold,
		HL7Threshold:    services.DefaultHL7Threshold,
	}, nil, &out)
	return nw, &out
}

func TestNoteWatcher_Process(t *testing.T) {
	store := &mocks.AnnotationStore{}
	nw, out := newTestWatcher(t, store)
	path := filepath.Join(t.TempDir(), "plantao.txt")
	require.NoError(t, os.WriteFile(path, []byte("Paciente com febre e tosse."), 0644))

	nw.process(t.Context(), path)
	nw.process(t.Context(), path)

	assert.Equal(t, 1, store.SaveCallCount, "an unchanged note is annotated once")
	require.Contains(t, store.Annotations, "ann-1")
	assert.Equal(t, "plantao", store.Annotations["ann-1"].Title)
	assert.Contains(t, out.String(), "plantao.txt: 2 entities")
	assert.Contains(t, out.String(), "saved as ann-1")
}

func TestNoteWatcher_ProcessExisting(t *testing.T) {
	store := &mocks.AnnotationStore{}
	nw, _ := newTestWatcher(t, store)
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.txt"), []byte("Refere dispneia."), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "vazio.txt"), []byte("   "), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.md"), []byte("Refere febre."), 0644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub.txt"), 0755))

	require.NoError(t, nw.processExisting(t.Context(), dir))

	assert.Equal(t, 1, store.SaveCallCount)
}

func TestNoteWatcher_Process_SaveFailure(t *testing.T) {
	store := &mocks.AnnotationStore{Err: assert.AnError}
	nw, out := newTestWatcher(t, store)
	path := filepath.Join(t.TempDir(), "nota.txt")
	require.NoError(t, os.WriteFile(path, []byte("Paciente com febre."), 0644))

	nw.process(t.Context(), path)

	assert.Contains(t, out.String(), "annotated but not saved")
}
