package utils

import (
	"archive/zip"
	"os"
	"time"
)

// ArchiveEntry is one file written by WriteArchive.
type ArchiveEntry struct {
	Name string
	Data []byte
}

// WriteArchive writes entries into a new zip file at target, replacing any
// existing file.
func WriteArchive(target string, entries []ArchiveEntry, modified time.Time) error {
	zipfile, err := os.Create(target)
	if err != nil {
		return err
	}
	defer zipfile.Close()

	archive := zip.NewWriter(zipfile)

	for _, e := range entries {
		header := &zip.FileHeader{
			Name:     e.Name,
			Method:   zip.Deflate,
			Modified: modified,
		}

		writer, err := archive.CreateHeader(header)
		if err != nil {
			archive.Close()
			return err
		}
		if _, err := writer.Write(e.Data); err != nil {
			archive.Close()
			return err
		}
	}

	if err := archive.Close(); err != nil {
		return err
	}
	return zipfile.Close()
}
