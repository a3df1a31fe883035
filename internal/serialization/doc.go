// Package serialization saves and loads sparse autoencoder layers in the
// .born checkpoint format.
//
//	Format Structure:
//	  [64 bytes: fixed header]
//	    0x00 Magic "BORN"
//	    0x04 Version (uint32 LE, 2)
//	    0x08 Flags (uint32 LE)
//	    0x10 Header size (uint64 LE)
//	    0x18 Data size (uint64 LE)
//	    0x20 SHA-256 of the data section
//	  [Header: JSON metadata]
//	  [Tensor data: little-endian values, 64-byte aligned]
//
// Values are float64 in memory. Checkpoints store them as float64, float32,
// float16 or bfloat16.
//
// Example usage:
//
//	layer := nn.NewSparseBias(64, 32)
//	if err := serialization.SaveLayer("bias.born", layer, serialization.SaveOptions{}); err != nil {
//	    log.Fatal(err)
//	}
//
//	restored, err := serialization.OpenLayer("bias.born")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer restored.Close()
package serialization
