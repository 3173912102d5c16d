package bundle

import (
	"archive/zip"
	"bytes"
	"fmt"
)

// Archive accumulates image entries into an in-memory zip file.
// Entries use the Store method: the inputs are already JPEG-compressed,
// so deflating them again costs Lambda CPU for no size win.
type Archive struct {
	buf    bytes.Buffer
	writer *zip.Writer
	count  int
	closed bool
}

// NewArchive creates an empty in-memory archive.
func NewArchive() *Archive {
	a := &Archive{}
	a.writer = zip.NewWriter(&a.buf)
	return a
}

// AddImage writes a product image entry named {itemCode}_{index}.jpg.
// Index numbering is the caller's concern; entries appear in call order.
func (a *Archive) AddImage(itemCode string, index int, data []byte) error {
	return a.add(fmt.Sprintf("%s_%d.jpg", itemCode, index), data)
}

// AddSizeImage writes the rendered size chart as {itemCode}_size.jpg.
func (a *Archive) AddSizeImage(itemCode string, data []byte) error {
	return a.add(fmt.Sprintf("%s_size.jpg", itemCode), data)
}

func (a *Archive) add(name string, data []byte) error {
	if a.closed {
		return fmt.Errorf("archive is already finalized, cannot add %s", name)
	}

	w, err := a.writer.CreateHeader(&zip.FileHeader{
		Name:   name,
		Method: zip.Store,
	})
	if err != nil {
		return fmt.Errorf("failed to create zip entry %s: %w", name, err)
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("failed to write zip entry %s: %w", name, err)
	}

	a.count++
	return nil
}

// Len returns the number of entries written so far.
func (a *Archive) Len() int {
	return a.count
}

// Bytes finalizes the archive and returns the zip file contents.
// The archive cannot be written to after Bytes is called.
func (a *Archive) Bytes() ([]byte, error) {
	if !a.closed {
		if err := a.writer.Close(); err != nil {
			return nil, fmt.Errorf("failed to finalize zip: %w", err)
		}
		a.closed = true
	}
	return a.buf.Bytes(), nil
}
