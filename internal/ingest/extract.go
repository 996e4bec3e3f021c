// Package ingest streams the tabular extracts produced by the external
// data-generation pipeline: a listings file and a picture-descriptions
// file, joined on the listing number.
package ingest

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Join and picture columns of the extracts.
const (
	colNumber      = "number"
	colPictureFile = "picture_file"
	colImageDesc   = "image_desc"
)

// Record is one joined extract row: the listing fields keyed by normalized
// column name, plus the resolved raw image bytes.
type Record struct {
	Number      string
	Fields      map[string]string
	PictureFile string
	Image       []byte
}

// Extract reads the two delimited files and resolves picture files
// relative to picturesDir.
type Extract struct {
	listingsPath string
	picturesPath string
	picturesDir  string
}

// New creates an extract reader.
func New(listingsPath, picturesPath, picturesDir string) *Extract {
	return &Extract{
		listingsPath: listingsPath,
		picturesPath: picturesPath,
		picturesDir:  picturesDir,
	}
}

type picture struct {
	file string
	desc string
}

// Stream reads listings in file order, joins each with its picture row and
// image bytes, and hands the record to fn. A listing without a picture row,
// an unreadable image, or a callback error aborts the stream.
func (e *Extract) Stream(ctx context.Context, fn func(rec *Record) error) error {
	pictures, err := e.readPictures()
	if err != nil {
		return err
	}

	f, err := os.Open(e.listingsPath)
	if err != nil {
		return fmt.Errorf("open listings extract: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	header, err := r.Read()
	if err != nil {
		return fmt.Errorf("read listings header: %w", err)
	}
	cols := normalizeHeader(header)

	for line := 2; ; line++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		row, err := r.Read()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read listings row: %w", err)
		}

		fields := make(map[string]string, len(cols))
		for i, name := range cols {
			if i < len(row) {
				fields[name] = strings.TrimSpace(row[i])
			}
		}

		number := fields[colNumber]
		pic, ok := pictures[number]
		if !ok {
			return fmt.Errorf("%s line %d: listing %q has no picture row", filepath.Base(e.listingsPath), line, number)
		}

		img, err := os.ReadFile(filepath.Join(e.picturesDir, pic.file))
		if err != nil {
			return fmt.Errorf("listing %q: read picture: %w", number, err)
		}

		fields[colImageDesc] = pic.desc

		rec := &Record{
			Number:      number,
			Fields:      fields,
			PictureFile: pic.file,
			Image:       img,
		}
		if err := fn(rec); err != nil {
			return err
		}
	}
}

// readPictures loads the picture-descriptions extract keyed by listing number.
func (e *Extract) readPictures() (map[string]picture, error) {
	f, err := os.Open(e.picturesPath)
	if err != nil {
		return nil, fmt.Errorf("open pictures extract: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read pictures extract: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("pictures extract %s is empty", filepath.Base(e.picturesPath))
	}

	cols := normalizeHeader(rows[0])
	idx := make(map[string]int, len(cols))
	for i, name := range cols {
		idx[name] = i
	}
	for _, required := range []string{colNumber, colPictureFile, colImageDesc} {
		if _, ok := idx[required]; !ok {
			return nil, fmt.Errorf("pictures extract missing column %q", required)
		}
	}

	pictures := make(map[string]picture, len(rows)-1)
	for _, row := range rows[1:] {
		number := strings.TrimSpace(row[idx[colNumber]])
		pictures[number] = picture{
			file: strings.TrimSpace(row[idx[colPictureFile]]),
			desc: strings.TrimSpace(row[idx[colImageDesc]]),
		}
	}
	return pictures, nil
}

// normalizeHeader lowercases column names and turns spaces into
// underscores, so "House Size" and "house_size" address the same field.
func normalizeHeader(header []string) []string {
	cols := make([]string, len(header))
	for i, h := range header {
		cols[i] = strings.ReplaceAll(strings.ToLower(strings.TrimSpace(h)), " ", "_")
	}
	return cols
}
