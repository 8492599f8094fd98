package compiler_test

import (
	"context"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/shade/internal/adapters/compiler"
	"go.trai.ch/shade/internal/core/domain"
)

// spirvMagic is the first word of every SPIR-V binary.
const spirvMagic = 0x07230203

const vertexSource = `
@vertex
fn main(@builtin(vertex_index) idx: u32) -> @builtin(position) vec4<f32> {
    return vec4<f32>(0.0, 0.0, 0.0, 1.0);
}
`

func TestNaga_Compile(t *testing.T) {
	t.Parallel()

	c := compiler.New()
	module := domain.ShaderModule{
		Code:       []byte(vertexSource),
		EntryPoint: "main",
		Stage:      domain.StageVertex,
	}

	blob, err := c.Compile(context.Background(), module, nil, domain.CompileOptions{
		Validate:      true,
		TargetVersion: "1.3",
	})
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(blob), 4)
	assert.Equal(t, uint32(spirvMagic), binary.LittleEndian.Uint32(blob[:4]))
}

func TestNaga_Compile_Deterministic(t *testing.T) {
	t.Parallel()

	c := compiler.New()
	module := domain.ShaderModule{Code: []byte(vertexSource), EntryPoint: "main"}
	opts := domain.CompileOptions{Validate: true, TargetVersion: "1.3"}

	first, err := c.Compile(context.Background(), module, nil, opts)
	require.NoError(t, err)
	second, err := c.Compile(context.Background(), module, nil, opts)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestNaga_Compile_InvalidSource(t *testing.T) {
	t.Parallel()

	c := compiler.New()
	module := domain.ShaderModule{Code: []byte("fn broken("), EntryPoint: "main"}

	_, err := c.Compile(context.Background(), module, nil, domain.CompileOptions{})
	require.Error(t, err)
	assert.ErrorContains(t, err, domain.ErrCompileFailed.Error())
}

func TestNaga_Compile_CancelledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := compiler.New()
	_, err := c.Compile(ctx, domain.ShaderModule{Code: []byte(vertexSource)}, nil, domain.CompileOptions{})
	assert.ErrorIs(t, err, context.Canceled)
}
