package dataset

import (
	"bufio"
	"compress/gzip"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
)

// IDX magic numbers, big-endian.
const (
	magicImages = 2051
	magicLabels = 2049
)

// readImages parses an IDX image file: magic 2051, big-endian counts
// for images, rows and cols, then one unsigned byte per pixel. Pixels
// come back normalized to [0, 1]. Gzipped files are handled
// transparently; the SHA-256 of the on-disk bytes is logged so a run
// records exactly which file it consumed.
func readImages(path string) (images [][]float32, rows, cols int, err error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, 0, err
	}
	defer f.Close()

	digest := sha256.New()
	r, done, err := maybeGunzip(io.TeeReader(f, digest))
	if err != nil {
		return nil, 0, 0, fmt.Errorf("dataset: open %s: %w", path, err)
	}
	defer done()

	var header struct{ Magic, Count, Rows, Cols uint32 }
	if err := binary.Read(r, binary.BigEndian, &header); err != nil {
		return nil, 0, 0, fmt.Errorf("dataset: read %s header: %w", path, err)
	}
	if header.Magic != magicImages {
		return nil, 0, 0, fmt.Errorf("dataset: %s: magic %d, want %d", path, header.Magic, magicImages)
	}

	rows, cols = int(header.Rows), int(header.Cols)
	size := rows * cols
	images = make([][]float32, int(header.Count))
	buf := make([]byte, size)
	for i := range images {
		if _, err := io.ReadFull(r, buf); err != nil {
			return nil, 0, 0, fmt.Errorf("dataset: %s: image %d: %w", path, i, err)
		}
		img := make([]float32, size)
		for j, p := range buf {
			img[j] = float32(p) / 255
		}
		images[i] = img
	}

	// Drain so the digest covers the whole file.
	io.Copy(io.Discard, r)
	log.Printf("dataset: %s  %d images %dx%d  sha256=%x",
		filepath.Base(path), len(images), rows, cols, digest.Sum(nil))
	return images, rows, cols, nil
}

// readLabels parses an IDX label file: magic 2049, a big-endian
// count, then one unsigned byte per label.
func readLabels(path string) ([]int32, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	digest := sha256.New()
	r, done, err := maybeGunzip(io.TeeReader(f, digest))
	if err != nil {
		return nil, fmt.Errorf("dataset: open %s: %w", path, err)
	}
	defer done()

	var header struct{ Magic, Count uint32 }
	if err := binary.Read(r, binary.BigEndian, &header); err != nil {
		return nil, fmt.Errorf("dataset: read %s header: %w", path, err)
	}
	if header.Magic != magicLabels {
		return nil, fmt.Errorf("dataset: %s: magic %d, want %d", path, header.Magic, magicLabels)
	}

	buf := make([]byte, int(header.Count))
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, fmt.Errorf("dataset: %s: labels: %w", path, err)
	}
	labels := make([]int32, len(buf))
	for i, b := range buf {
		labels[i] = int32(b)
	}

	io.Copy(io.Discard, r)
	log.Printf("dataset: %s  %d labels  sha256=%x",
		filepath.Base(path), len(labels), digest.Sum(nil))
	return labels, nil
}

// maybeGunzip wraps r in a gzip reader when the stream opens with the
// gzip magic bytes 0x1f 0x8b, detected by sniffing rather than by
// file name. The returned func releases the decompressor.
func maybeGunzip(r io.Reader) (io.Reader, func(), error) {
	br := bufio.NewReader(r)
	head, err := br.Peek(2)
	if err == nil && head[0] == 0x1f && head[1] == 0x8b {
		gz, err := gzip.NewReader(br)
		if err != nil {
			return nil, nil, err
		}
		return gz, func() { gz.Close() }, nil
	}
	return br, func() {}, nil
}
