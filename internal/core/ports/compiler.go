package ports

import (
	"context"

	"go.trai.ch/shade/internal/core/domain"
)

// Compiler is the compilation pipeline the cache wraps. Implementations
// must be deterministic with respect to the fields that feed key derivation:
// identical inputs must produce identical blobs.
//
//go:generate mockgen -source=compiler.go -destination=mocks/mock_compiler.go -package=mocks
type Compiler interface {
	// Compile turns a shader module into a compiled binary blob.
	Compile(ctx context.Context, module domain.ShaderModule, spec domain.Specialization, opts domain.CompileOptions) ([]byte, error)
}
