// Package domain contains core domain types for the shader compiler driver.
package domain

import (
	"fmt"
	"io/fs"
)

// File permissions for cache artifacts.
const (
	// DirPerm is the permission used when creating cache directories.
	DirPerm fs.FileMode = 0o755
	// FilePerm is the permission used when writing cache files and artifacts.
	FilePerm fs.FileMode = 0o644
)

// ShaderStage identifies the pipeline stage a shader module targets.
type ShaderStage uint8

const (
	// StageVertex is a vertex shader.
	StageVertex ShaderStage = iota
	// StageFragment is a fragment shader.
	StageFragment
	// StageCompute is a compute shader.
	StageCompute
)

// String returns the lower-case stage name.
func (s ShaderStage) String() string {
	switch s {
	case StageVertex:
		return "vertex"
	case StageFragment:
		return "fragment"
	case StageCompute:
		return "compute"
	default:
		return fmt.Sprintf("stage(%d)", uint8(s))
	}
}

// ShaderModule is one unit of code submitted for compilation, identified by
// its code and entry point.
type ShaderModule struct {
	// Code is the module content as submitted (WGSL source or SPIR-V bytecode).
	Code []byte
	// EntryPoint is the entry function compiled from the module.
	EntryPoint string
	// Stage is the pipeline stage the entry point targets.
	Stage ShaderStage
}

// Specialization maps specialization constant ids to their raw 32-bit
// override values. Iteration order is irrelevant; key derivation sorts ids.
type Specialization map[uint32]uint32

// OptLevel selects how aggressively the pipeline optimizes emitted code.
type OptLevel uint8

const (
	// OptNone disables optimization.
	OptNone OptLevel = iota
	// OptQuick favors compile speed over output quality.
	OptQuick
	// OptDefault is the balanced optimization level.
	OptDefault
	// OptFull enables all optimizations.
	OptFull
)

// ResourceBinding describes one slot of the resource-binding layout that is
// visible to code generation.
type ResourceBinding struct {
	Group   uint32
	Binding uint32
	Kind    uint32
}

// CompileOptions carries every option that can change the emitted code.
// All fields participate in cache key derivation.
type CompileOptions struct {
	// OptLevel is the optimization level.
	OptLevel OptLevel
	// Debug includes debug information in the output.
	Debug bool
	// Validate runs IR validation before code generation.
	Validate bool
	// TargetVersion is the SPIR-V version to target, e.g. "1.3".
	TargetVersion string
	// TargetProfile names the device variant code is generated for.
	TargetProfile string
	// BindingLayout is the resource-binding layout relevant to codegen.
	BindingLayout []ResourceBinding
}

// Config is the resolved driver configuration.
type Config struct {
	// CacheEnabled toggles the shader result cache. Callers must be able to
	// run fully uncached.
	CacheEnabled bool
	// CacheDir is the directory persisted cache images are stored in.
	CacheDir string
	// CacheBudgetBytes caps the cumulative blob bytes held per cache.
	// Zero means unlimited.
	CacheBudgetBytes int64
	// Parallelism bounds concurrent compiles. Zero means GOMAXPROCS.
	Parallelism int
	// TargetProfile is the default device variant.
	TargetProfile string
	// TargetVersion is the default SPIR-V version.
	TargetVersion string
}

// DefaultCacheDir is where cache images live unless configured otherwise.
const DefaultCacheDir = ".shade/cache"

// CompatibilityTag builds the identity string under which cached results
// may be shared. It must encode everything that would make two otherwise
// identical cache keys produce different machine code across devices.
func CompatibilityTag(profile, compilerVersion, targetVersion string) string {
	return profile + "|" + compilerVersion + "|spirv-" + targetVersion
}
