package storage

import (
	"bytes"
	"context"
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestObjectStore(t *testing.T) (*LocalObjectStore, string) {
	t.Helper()
	dir := t.TempDir()
	objectStore, err := NewLocalObjectStore(dir)
	require.NoError(t, err)
	return objectStore, dir
}

func TestLocalObjectStore_PutObject(t *testing.T) {
	objectStore, baseDir := setupTestObjectStore(t)

	content := []byte("Test content")
	err := objectStore.PutObject(context.Background(), "session/test-file.txt", bytes.NewReader(content))
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(baseDir, "session", "test-file.txt"))
	require.NoError(t, err)
	assert.Equal(t, content, data)
}

func TestLocalObjectStore_RejectsEscapingKeys(t *testing.T) {
	objectStore, _ := setupTestObjectStore(t)

	for _, key := range []string{"../outside.txt", "a/../../outside.txt", "", "."} {
		assert.Error(t, objectStore.PutObject(context.Background(), key, bytes.NewReader([]byte("x"))), key)
	}
	assert.Error(t, objectStore.DeleteObjects(context.Background(), ".."))
}

func TestLocalObjectStore_DeleteObjects(t *testing.T) {
	objectStore, baseDir := setupTestObjectStore(t)

	files := []string{"test-dir/file1.txt", "test-dir/file2.txt", "other-dir/file3.txt"}
	for _, file := range files {
		filePath := filepath.Join(baseDir, file)
		require.NoError(t, os.MkdirAll(filepath.Dir(filePath), os.ModePerm))
		require.NoError(t, os.WriteFile(filePath, []byte("content"), os.ModePerm))
	}

	require.NoError(t, objectStore.DeleteObjects(context.Background(), "test-dir"))

	_, err := os.Stat(filepath.Join(baseDir, "test-dir"))
	assert.True(t, os.IsNotExist(err))

	_, err = os.Stat(filepath.Join(baseDir, "other-dir", "file3.txt"))
	assert.NoError(t, err)
}

func TestImageArchive(t *testing.T) {
	objectStore, baseDir := setupTestObjectStore(t)
	archive := NewImageArchive(objectStore)

	pngBytes := []byte("\x89PNG fake image")
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing.png" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "image/jpeg")
		_, _ = w.Write(pngBytes)
	}))
	defer server.Close()

	dataURI := "data:image/png;base64," + base64.StdEncoding.EncodeToString(pngBytes)

	t.Run("StoresDataAndRemoteImages", func(t *testing.T) {
		err := archive.Archive(context.Background(), "s1", "m1", []string{dataURI, server.URL + "/out"})
		require.NoError(t, err)

		data, err := os.ReadFile(filepath.Join(baseDir, "s1", "m1-0.png"))
		require.NoError(t, err)
		assert.Equal(t, pngBytes, data)

		data, err = os.ReadFile(filepath.Join(baseDir, "s1", "m1-1.jpg"))
		require.NoError(t, err)
		assert.Equal(t, pngBytes, data)
	})

	t.Run("ReportsFailuresButKeepsGoing", func(t *testing.T) {
		err := archive.Archive(context.Background(), "s2", "m1", []string{server.URL + "/missing.png", "ftp://nope", dataURI})
		require.Error(t, err)

		_, statErr := os.Stat(filepath.Join(baseDir, "s2", "m1-2.png"))
		assert.NoError(t, statErr)
	})

	t.Run("Remove", func(t *testing.T) {
		require.NoError(t, archive.Remove(context.Background(), "s1"))
		_, err := os.Stat(filepath.Join(baseDir, "s1"))
		assert.True(t, os.IsNotExist(err))
	})
}

func TestImageArchiveStalledDownload(t *testing.T) {
	objectStore, baseDir := setupTestObjectStore(t)

	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-release:
		}
	}))
	defer server.Close()
	defer close(release)

	t.Run("Timeout", func(t *testing.T) {
		archive := NewImageArchive(objectStore)
		archive.http.SetTimeout(50 * time.Millisecond)

		err := archive.Archive(context.Background(), "s1", "m1", []string{server.URL + "/slow.png"})
		require.Error(t, err)

		_, statErr := os.Stat(filepath.Join(baseDir, "s1", "m1-0.png"))
		assert.True(t, os.IsNotExist(statErr))
	})

	t.Run("Cancelled", func(t *testing.T) {
		archive := NewImageArchive(objectStore)

		ctx, cancel := context.WithCancel(context.Background())
		time.AfterFunc(50*time.Millisecond, cancel)

		err := archive.Archive(ctx, "s2", "m1", []string{server.URL + "/slow.png"})
		require.ErrorIs(t, err, context.Canceled)
	})
}
