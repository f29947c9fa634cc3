package io

import (
	stdio "io"
	"os"
	"path/filepath"

	"github.com/ecopia-map/georeferencer/tools"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// TempSibling returns an unused path next to target that keeps target's
// extension, so that format-sniffing writers behave the same on it.
func TempSibling(target string) string {
	return tools.RelatedFilePath(target, "_tmp-"+uuid.NewString()[:8])
}

// Commit makes tmp durable and atomically moves it over target
func Commit(tmp string, target string) error {
	if err := syncFile(tmp); err != nil {
		return err
	}
	if err := os.Rename(tmp, target); err != nil {
		return errors.Wrapf(err, "cannot move %s to %s", tmp, target)
	}
	return syncDir(filepath.Dir(target))
}

// WriteAtomic runs write against a temporary sibling of target and commits the
// result. target is never observed half written.
func WriteAtomic(target string, write func(tmp string) error) error {
	if err := tools.CreateDirectoryIfDoesNotExist(filepath.Dir(target)); err != nil {
		return err
	}
	tmp := TempSibling(target)
	if err := write(tmp); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	if err := Commit(tmp, target); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return nil
}

func WriteFileAtomic(target string, data []byte, perm os.FileMode) error {
	return WriteAtomic(target, func(tmp string) error {
		return os.WriteFile(tmp, data, perm)
	})
}

// CopyFileAtomic copies src to dst through a temporary sibling of dst
func CopyFileAtomic(src string, dst string) error {
	return WriteAtomic(dst, func(tmp string) error {
		return copyFile(src, tmp)
	})
}

func copyFile(src string, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return err
	}

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return err
	}
	if _, err := stdio.Copy(out, in); err != nil {
		out.Close()
		return errors.Wrapf(err, "cannot copy %s to %s", src, dst)
	}
	return out.Close()
}

func syncFile(path string) error {
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return errors.Wrapf(err, "cannot sync %s", path)
	}
	return f.Close()
}

func syncDir(dir string) error {
	d, err := os.Open(dir)
	if err != nil {
		return err
	}
	defer d.Close()
	// Some filesystems refuse fsync on directories; the rename already happened.
	_ = d.Sync()
	return nil
}
