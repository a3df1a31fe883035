package serialization

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"time"

	"github.com/born-ml/born-sae/internal/tensor"
)

// Version is the library version recorded in file headers.
const Version = "0.1.0"

// Writer writes state dictionaries in .born format.
type Writer struct {
	file   *os.File
	closed bool
}

// NewWriter creates a new .born file writer.
func NewWriter(path string) (*Writer, error) {
	//nolint:gosec // G304: File path comes from user input, which is expected for model saving
	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create file: %w", err)
	}

	return &Writer{file: file}, nil
}

// WriteStateDict writes stateDict with the given header, storing every
// tensor as dtype.
//
// Tensors are written in name order so identical inputs produce identical
// data sections. Header fields describing the format, version, creation
// time and tensors are filled in by the writer.
func (w *Writer) WriteStateDict(stateDict map[string]*tensor.Matrix, header Header, dtype tensor.DataType) error {
	if w.closed {
		return ErrClosed
	}

	names := make([]string, 0, len(stateDict))
	for name := range stateDict {
		if err := ValidateTensorName(name); err != nil {
			return err
		}
		names = append(names, name)
	}
	sort.Strings(names)

	header.FormatVersion = FormatVersion
	header.Version = Version
	header.CreatedAt = time.Now().UTC()
	header.Tensors = make([]TensorMeta, 0, len(names))
	if header.Metadata == nil {
		header.Metadata = make(map[string]string)
	}

	var data []byte
	for _, name := range names {
		m := stateDict[name]
		encoded, err := encodeValues(m.Data(), dtype)
		if err != nil {
			return fmt.Errorf("failed to encode tensor %s: %w", name, err)
		}
		header.Tensors = append(header.Tensors, TensorMeta{
			Name:   name,
			DType:  dtype.String(),
			Shape:  []int(m.Shape()),
			Offset: int64(len(data)),
			Size:   int64(len(encoded)),
		})
		data = append(data, encoded...)
	}

	headerJSON, err := json.Marshal(header)
	if err != nil {
		return fmt.Errorf("failed to marshal header: %w", err)
	}

	flags := uint32(0)
	if len(header.Metadata) > 0 {
		flags |= FlagHasMetadata
	}
	if header.CheckpointMeta != nil && header.CheckpointMeta.IsCheckpoint {
		flags |= FlagHasOptimizer
	}

	checksum := ComputeChecksum(data)

	fixedHeader := make([]byte, FixedHeaderSize)
	copy(fixedHeader[0:4], MagicBytes)
	binary.LittleEndian.PutUint32(fixedHeader[4:8], uint32(FormatVersion))
	binary.LittleEndian.PutUint32(fixedHeader[8:12], flags)
	// 0x0C-0x0F reserved
	binary.LittleEndian.PutUint64(fixedHeader[16:24], uint64(len(headerJSON)))
	binary.LittleEndian.PutUint64(fixedHeader[24:32], uint64(len(data)))
	copy(fixedHeader[ChecksumOffset:ChecksumOffset+ChecksumSize], checksum[:])

	if _, err := w.file.Write(fixedHeader); err != nil {
		return fmt.Errorf("failed to write fixed header: %w", err)
	}
	if _, err := w.file.Write(headerJSON); err != nil {
		return fmt.Errorf("failed to write header JSON: %w", err)
	}

	padding := alignedDataOffset(int64(len(headerJSON))) - int64(FixedHeaderSize+len(headerJSON))
	if padding > 0 {
		if _, err := w.file.Write(make([]byte, padding)); err != nil {
			return fmt.Errorf("failed to write padding: %w", err)
		}
	}

	if _, err := w.file.Write(data); err != nil {
		return fmt.Errorf("failed to write tensor data: %w", err)
	}

	slog.Debug("wrote state dict", "file", w.file.Name(), "tensors", len(names), "dtype", dtype, "bytes", len(data))
	return nil
}

// Close closes the writer and the underlying file.
func (w *Writer) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true
	return w.file.Close()
}
