package io

import (
	"os"

	"github.com/ecopia-map/georeferencer/tools"
	"github.com/golang/glog"
	"github.com/pkg/errors"
)

const UnalignedPostfix = "_unaligned"

// BackupPath returns the pre-transform sibling of target
func BackupPath(target string) string {
	return tools.RelatedFilePath(target, UnalignedPostfix)
}

// ApplyWithBackup applies a destructive transform to target while keeping it
// recoverable. The transform always reads the pristine pre-transform content
// (the backup) and writes a temporary sibling that is committed over target.
//
// target exists at every instant. On success the backup stays on disk as the
// pre-transform artifact. On failure target is restored to the pre-transform
// content and the backup is consumed, so no orphan backup remains.
func ApplyWithBackup(target string, transform func(src string, dst string) error) error {
	backup := BackupPath(target)

	if !tools.FileExists(target) {
		if !tools.FileExists(backup) {
			return errors.Wrap(os.ErrNotExist, target)
		}
		// interrupted before a previous commit, recover the original first
		glog.Warningf("Restoring %s from %s", target, backup)
		if err := os.Rename(backup, target); err != nil {
			return errors.Wrapf(err, "cannot restore %s", target)
		}
	}

	if !tools.FileExists(backup) {
		if err := CopyFileAtomic(target, backup); err != nil {
			return errors.Wrapf(err, "cannot back up %s", target)
		}
	}

	tmp := TempSibling(target)
	err := transform(backup, tmp)
	if err == nil {
		err = Commit(tmp, target)
	}
	if err != nil {
		_ = os.Remove(tmp)
		if rerr := os.Rename(backup, target); rerr != nil {
			return errors.Wrapf(rerr, "cannot roll back %s after: %v", target, err)
		}
		return err
	}
	return nil
}
