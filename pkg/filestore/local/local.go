package local

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
)

type Store struct {
	root  string
	debug bool
}

func New(root string, debug bool) (*Store, error) {
	if root == "" {
		return nil, fmt.Errorf("local: empty root directory")
	}
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("local: couldn't create %q: %w", root, err)
	}
	return &Store{root: root, debug: debug}, nil
}

func (s *Store) Upload(ctx context.Context, path, name string) error {
	dst := filepath.Join(s.root, name)
	if err := copyFile(path, dst); err != nil {
		return fmt.Errorf("local: couldn't copy file %q to %q: %w", path, dst, err)
	}
	if s.debug {
		log.Println("local: stored", dst)
	}
	return nil
}

func (s *Store) Download(ctx context.Context, path, name string) error {
	src := filepath.Join(s.root, name)
	if err := copyFile(src, path); err != nil {
		return fmt.Errorf("local: couldn't copy file %q to %q: %w", src, path, err)
	}
	return nil
}

func copyFile(src, dst string) error {
	srcFile, err := os.Open(src)
	if err != nil {
		return err
	}
	defer srcFile.Close()

	// Readers must never see a partially copied file.
	tmp, err := os.CreateTemp(filepath.Dir(dst), filepath.Base(dst)+".*.tmp")
	if err != nil {
		return err
	}
	if _, err := io.Copy(tmp, srcFile); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), dst)
}
