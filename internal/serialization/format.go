package serialization

import "time"

// Format constants.
const (
	MagicBytes      = "BORN"
	FormatVersion   = 2    // With SHA-256 checksum
	HeaderAlignment = 64   // Align tensor data to 64 bytes
	FixedHeaderSize = 64   // Fixed header size (0x40 bytes)
	ChecksumSize    = 32   // SHA-256 checksum size (32 bytes)
	ChecksumOffset  = 0x20 // Checksum offset in the fixed header
)

// Flags for the .born format.
const (
	FlagHasOptimizer uint32 = 1 << 1 // bit 1: optimizer state included
	FlagHasMetadata  uint32 = 1 << 2 // bit 2: custom metadata included
)

// Header represents the JSON header in a .born file.
type Header struct {
	FormatVersion  int               `json:"format_version"`       // Version of the .born format
	Version        string            `json:"born_version"`         // Version of the library that created this file
	ModelType      string            `json:"model_type"`           // Type of model (e.g., "SparseBias")
	CreatedAt      time.Time         `json:"created_at"`           // When the file was created
	Tensors        []TensorMeta      `json:"tensors"`              // Tensor metadata
	Metadata       map[string]string `json:"metadata"`             // Custom metadata
	CheckpointMeta *CheckpointMeta   `json:"checkpoint,omitempty"` // Optimizer state description (optional)
}

// CheckpointMeta describes the optimizer state stored next to the weights.
type CheckpointMeta struct {
	IsCheckpoint    bool           `json:"is_checkpoint"`    // Whether optimizer tensors are present
	OptimizerType   string         `json:"optimizer_type"`   // Optimizer name ("rmsprop", "sgd", "adam")
	OptimizerConfig map[string]any `json:"optimizer_config"` // Optimizer hyperparameters
}

// TensorMeta describes a tensor in the .born file.
type TensorMeta struct {
	Name   string `json:"name"`   // Tensor name (e.g., "bias.weights")
	DType  string `json:"dtype"`  // Storage type (e.g., "float32")
	Shape  []int  `json:"shape"`  // Tensor shape
	Offset int64  `json:"offset"` // Offset in the data section
	Size   int64  `json:"size"`   // Size in bytes
}

// alignedDataOffset returns where tensor data starts for a JSON header of headerSize bytes.
func alignedDataOffset(headerSize int64) int64 {
	currentPos := int64(FixedHeaderSize) + headerSize
	padding := (HeaderAlignment - (currentPos % HeaderAlignment)) % HeaderAlignment
	return currentPos + padding
}
