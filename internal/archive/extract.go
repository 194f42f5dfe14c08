package archive

import (
	"archive/tar"
	"bufio"
	"bytes"
	"compress/gzip"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

var gzipMagic = []byte{0x1f, 0x8b}

// Extract unpacks every member of the archive at archivePath into destDir and
// returns the member names that were written. destDir must already exist.
// Gzip compression is detected from the file header; plain tar is also accepted.
func Extract(archivePath, destDir string) ([]string, error) {
	f, err := os.Open(archivePath)
	if err != nil {
		return nil, &FormatError{Path: archivePath, Message: "failed to open archive", Cause: err}
	}
	defer func() { _ = f.Close() }()

	br := bufio.NewReader(f)
	var src io.Reader = br

	head, err := br.Peek(len(gzipMagic))
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, &FormatError{Path: archivePath, Message: "failed to read archive header", Cause: err}
	}
	if bytes.Equal(head, gzipMagic) {
		gz, err := gzip.NewReader(br)
		if err != nil {
			return nil, &FormatError{Path: archivePath, Message: "invalid gzip stream", Cause: err}
		}
		defer func() { _ = gz.Close() }()
		src = gz
	}

	tr := tar.NewReader(src)
	var members []string
	for {
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return members, &FormatError{Path: archivePath, Message: "corrupt tar stream", Cause: err}
		}

		target, err := memberPath(destDir, hdr.Name)
		if err != nil {
			return members, err
		}

		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0755); err != nil {
				return members, fmt.Errorf("failed to create directory %s: %w", target, err)
			}
		case tar.TypeReg:
			if err := writeMember(target, tr, hdr.FileInfo().Mode().Perm()); err != nil {
				var rerr *readError
				if errors.As(err, &rerr) {
					return members, &FormatError{Path: archivePath, Message: "failed to read member " + hdr.Name, Cause: rerr.err}
				}
				return members, err
			}
		default:
			// Links, devices and other special members are not part of a dataset archive.
			continue
		}
		members = append(members, hdr.Name)
	}

	if len(members) == 0 {
		return nil, &FormatError{Path: archivePath, Message: "archive contains no members"}
	}
	return members, nil
}

func memberPath(destDir, name string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(name))
	if filepath.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", &UnsafePathError{Member: name}
	}
	return filepath.Join(destDir, clean), nil
}

// readError marks a failure reading member content, as opposed to writing it.
type readError struct{ err error }

func (e *readError) Error() string { return e.err.Error() }

func writeMember(target string, r io.Reader, perm os.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", target, err)
	}
	if perm == 0 {
		perm = 0644
	}

	out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, perm)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", target, err)
	}
	if _, err := io.Copy(out, readErrReader{r}); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}

type readErrReader struct{ r io.Reader }

func (r readErrReader) Read(p []byte) (int, error) {
	n, err := r.r.Read(p)
	if err != nil && !errors.Is(err, io.EOF) {
		return n, &readError{err: err}
	}
	return n, err
}
