package model

import "fmt"

func errLenMismatch(v *VariableInfo) error {
	return fmt.Errorf("model: variable schema mismatch: len(shape)=%d len(dimensions)=%d len(chunk_sizes)=%d",
		len(v.Shape), len(v.Dimensions), len(v.ChunkSizes))
}

func errChunkTooLarge(v *VariableInfo, i int) error {
	return fmt.Errorf("model: chunk_sizes[%d]=%d exceeds shape[%d]=%d", i, v.ChunkSizes[i], i, v.Shape[i])
}
