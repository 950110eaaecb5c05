//go:build !cgo
// +build !cgo

package embedding

import "fmt"

// ONNXEmbedder requires CGO; this stub keeps cgo-less builds working.
type ONNXEmbedder struct{}

// NewONNXEmbedder always fails without CGO.
func NewONNXEmbedder(modelPath string, dimensions, maxTokens, cacheSize int) (Embedder, error) {
	return nil, fmt.Errorf("ONNX embedder requires CGO; rebuild with CGO_ENABLED=1")
}
