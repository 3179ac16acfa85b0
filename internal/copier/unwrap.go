package copier

import (
	"archive/tar"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/mholt/archiver/v3"
)

var (
	errIsDir        = errors.New("destination is a directory")
	errNotSingle    = errors.New("archive does not hold exactly one entry")
	errNameMismatch = errors.New("archive entry name does not match destination")
)

// unwrapSingleFile replaces dst with the contents of the tar archive it
// holds, but only when the archive has exactly one regular-file entry named
// like dst itself. Some engine versions produce a tar stream for
// "docker cp" of a single file; this undoes that.
//
// Any error means dst was left untouched. Callers treat it as informational.
func unwrapSingleFile(dst string) error {
	info, err := os.Stat(dst)
	if err != nil {
		return err
	}
	if info.IsDir() {
		return errIsDir
	}

	name := filepath.Base(dst)

	var (
		entries int
		content []byte
		matched bool
	)

	err = archiver.NewTar().Walk(dst, func(f archiver.File) error {
		entries++
		if entries > 1 {
			return errNotSingle
		}

		hdr, ok := f.Header.(*tar.Header)
		if !ok {
			return fmt.Errorf("unexpected tar header type %T", f.Header)
		}
		if hdr.Name != name || !f.Mode().IsRegular() {
			return errNameMismatch
		}

		data, err := io.ReadAll(f)
		if err != nil {
			return err
		}
		content, matched = data, true
		return nil
	})
	if err != nil {
		return err
	}
	if entries != 1 || !matched {
		return errNotSingle
	}

	// WriteFile truncates in place, so the mode docker cp set is kept.
	return os.WriteFile(dst, content, info.Mode().Perm())
}
