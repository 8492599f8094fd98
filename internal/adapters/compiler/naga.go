// Package compiler adapts the naga shader compiler to ports.Compiler.
package compiler

import (
	"context"

	"github.com/gogpu/naga"
	"github.com/gogpu/naga/spirv"
	"go.trai.ch/shade/internal/core/domain"
	"go.trai.ch/shade/internal/core/ports"
	"go.trai.ch/zerr"
)

var _ ports.Compiler = (*Naga)(nil)

// Naga compiles WGSL shader modules to SPIR-V through github.com/gogpu/naga.
//
// naga compiles whole modules; the entry point, stage and specialization
// constants do not alter its output today but still participate in cache
// key derivation upstream, so a future pipeline that honors them never
// reuses stale results.
type Naga struct{}

// New creates the naga-backed compiler.
func New() *Naga {
	return &Naga{}
}

// Compile translates WGSL source into a SPIR-V binary blob.
func (n *Naga) Compile(ctx context.Context, module domain.ShaderModule, _ domain.Specialization, opts domain.CompileOptions) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	nopts := naga.DefaultOptions()
	nopts.Debug = opts.Debug
	nopts.Validate = opts.Validate
	nopts.SPIRVVersion = targetVersion(opts.TargetVersion)

	blob, err := naga.CompileWithOptions(string(module.Code), nopts)
	if err != nil {
		wrapped := zerr.Wrap(err, domain.ErrCompileFailed.Error())
		wrapped = zerr.With(wrapped, "entryPoint", module.EntryPoint)
		return nil, zerr.With(wrapped, "stage", module.Stage.String())
	}
	return blob, nil
}

// targetVersion maps the configured SPIR-V version string onto naga's
// version constants. Unknown values fall back to the naga default.
func targetVersion(v string) spirv.Version {
	switch v {
	case "1.0":
		return spirv.Version1_0
	case "1.3":
		return spirv.Version1_3
	case "1.4":
		return spirv.Version1_4
	case "1.5":
		return spirv.Version1_5
	case "1.6":
		return spirv.Version1_6
	default:
		return naga.DefaultOptions().SPIRVVersion
	}
}
