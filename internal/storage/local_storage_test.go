package storage

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"
)

func TestLocalStorage(t *testing.T) {
	tmpDir := t.TempDir()
	storage, err := NewLocalStorage(tmpDir)
	if err != nil {
		t.Fatalf("Failed to create storage: %v", err)
	}

	t.Run("SaveImage", func(t *testing.T) {
		content := []byte{0xFF, 0xD8, 0x01, 0x02, 0xFF, 0xD9}

		filename, err := storage.SaveImage(content)
		if err != nil {
			t.Fatalf("Failed to save image: %v", err)
		}

		if filepath.Ext(filename) != ".jpg" {
			t.Errorf("Expected .jpg extension, got %s", filepath.Ext(filename))
		}

		saved, err := os.ReadFile(filepath.Join(tmpDir, filename))
		if err != nil {
			t.Fatalf("Image was not saved: %v", err)
		}
		if !bytes.Equal(saved, content) {
			t.Error("Saved image content mismatch")
		}
	})

	t.Run("SaveImageUniqueNames", func(t *testing.T) {
		a, err := storage.SaveImage([]byte("a"))
		if err != nil {
			t.Fatalf("Failed to save image: %v", err)
		}
		b, err := storage.SaveImage([]byte("b"))
		if err != nil {
			t.Fatalf("Failed to save image: %v", err)
		}
		if a == b {
			t.Errorf("Expected unique filenames, both were %s", a)
		}
	})

	t.Run("OpenFile", func(t *testing.T) {
		content := []byte("frame bytes")
		testFile := "test-frame.jpg"

		if err := os.WriteFile(filepath.Join(tmpDir, testFile), content, 0644); err != nil {
			t.Fatalf("Failed to create test file: %v", err)
		}

		file, err := storage.OpenFile(testFile)
		if err != nil {
			t.Fatalf("Failed to open file: %v", err)
		}
		defer file.Close()

		got, err := io.ReadAll(file)
		if err != nil {
			t.Fatalf("Failed to read file: %v", err)
		}
		if !bytes.Equal(got, content) {
			t.Errorf("File content mismatch")
		}
	})

	t.Run("DeleteFile", func(t *testing.T) {
		testFile := "delete-test.jpg"
		fullPath := filepath.Join(tmpDir, testFile)

		if err := os.WriteFile(fullPath, []byte("test"), 0644); err != nil {
			t.Fatalf("Failed to create test file: %v", err)
		}

		if err := storage.DeleteFile(testFile); err != nil {
			t.Fatalf("Failed to delete file: %v", err)
		}

		if _, err := os.Stat(fullPath); !os.IsNotExist(err) {
			t.Errorf("File was not deleted")
		}
	})

	t.Run("PathTraversalPrevention", func(t *testing.T) {
		_, err := storage.OpenFile("../../../etc/passwd")
		if err == nil {
			t.Errorf("Path traversal was not prevented")
		}

		err = storage.DeleteFile("../../../etc/passwd")
		if err == nil {
			t.Errorf("Path traversal was not prevented in delete")
		}
	})
}
