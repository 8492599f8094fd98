package app_test

import (
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/shade/internal/adapters/logger"
	"go.trai.ch/shade/internal/adapters/telemetry"
	"go.trai.ch/shade/internal/app"
	"go.trai.ch/shade/internal/core/domain"
	"go.trai.ch/shade/internal/core/ports/mocks"
	"go.trai.ch/shade/internal/engine/shadercache"
	"go.trai.ch/zerr"
	"go.uber.org/mock/gomock"
)

func testConfig() *domain.Config {
	return &domain.Config{
		CacheEnabled:     true,
		CacheBudgetBytes: 1 << 20,
		Parallelism:      4,
		TargetProfile:    "generic",
		TargetVersion:    "1.3",
	}
}

func newTestApp(t *testing.T, comp *mocks.MockCompiler, cfg *domain.Config) *app.App {
	t.Helper()
	log := logger.NewWithWriter(io.Discard)
	manager := shadercache.NewManager(nil, log, shadercache.Options{BudgetBytes: cfg.CacheBudgetBytes})
	return app.New(comp, manager, mocks.NewMockImageStore(gomock.NewController(t)), log, telemetry.NewNoOpTracer(), cfg)
}

func vertexRequest(name, code string) app.Request {
	return app.Request{
		Name: name,
		Module: domain.ShaderModule{
			Code:       []byte(code),
			EntryPoint: "main",
			Stage:      domain.StageVertex,
		},
	}
}

func TestApp_CompileAll_NoInputs(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	a := newTestApp(t, mocks.NewMockCompiler(ctrl), testConfig())

	_, err := a.CompileAll(context.Background(), nil, app.RunOptions{})
	require.ErrorIs(t, err, domain.ErrNoInputs)
}

func TestApp_CompileAll_IdenticalRequestsCompileOnce(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	comp := mocks.NewMockCompiler(ctrl)
	comp.EXPECT().
		Compile(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		Return([]byte("SPIRV"), nil).
		Times(1)

	a := newTestApp(t, comp, testConfig())

	reqs := []app.Request{
		vertexRequest("a.wgsl", "fn main() {}"),
		vertexRequest("b.wgsl", "fn main() {}"),
	}
	artifacts, err := a.CompileAll(context.Background(), reqs, app.RunOptions{Parallelism: 2})
	require.NoError(t, err)
	require.Len(t, artifacts, 2)

	assert.Equal(t, "a.wgsl", artifacts[0].Name)
	assert.Equal(t, "b.wgsl", artifacts[1].Name)
	assert.Equal(t, []byte("SPIRV"), artifacts[0].Blob)
	assert.Equal(t, []byte("SPIRV"), artifacts[1].Blob)
	assert.Equal(t, artifacts[0].Key, artifacts[1].Key)
}

func TestApp_CompileAll_DistinctRequestsCompileSeparately(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	comp := mocks.NewMockCompiler(ctrl)
	comp.EXPECT().
		Compile(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, m domain.ShaderModule, _ domain.Specialization, _ domain.CompileOptions) ([]byte, error) {
			return append([]byte("SPIRV:"), m.Code...), nil
		}).
		Times(2)

	a := newTestApp(t, comp, testConfig())

	reqs := []app.Request{
		vertexRequest("a.wgsl", "fn a() {}"),
		vertexRequest("b.wgsl", "fn b() {}"),
	}
	artifacts, err := a.CompileAll(context.Background(), reqs, app.RunOptions{})
	require.NoError(t, err)
	require.Len(t, artifacts, 2)

	assert.Equal(t, []byte("SPIRV:fn a() {}"), artifacts[0].Blob)
	assert.Equal(t, []byte("SPIRV:fn b() {}"), artifacts[1].Blob)
	assert.NotEqual(t, artifacts[0].Key, artifacts[1].Key)
}

func TestApp_CompileAll_FailurePropagates(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	comp := mocks.NewMockCompiler(ctrl)
	boom := zerr.New("parse error at line 3")
	comp.EXPECT().
		Compile(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		Return(nil, boom).
		Times(1)

	a := newTestApp(t, comp, testConfig())

	_, err := a.CompileAll(context.Background(), []app.Request{vertexRequest("bad.wgsl", "nope")}, app.RunOptions{})
	require.ErrorIs(t, err, boom)
}

func TestApp_CompileAll_NoCacheBypassesDeduplication(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	comp := mocks.NewMockCompiler(ctrl)
	comp.EXPECT().
		Compile(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		Return([]byte("SPIRV"), nil).
		Times(2)

	a := newTestApp(t, comp, testConfig())

	reqs := []app.Request{
		vertexRequest("a.wgsl", "fn main() {}"),
		vertexRequest("b.wgsl", "fn main() {}"),
	}
	artifacts, err := a.CompileAll(context.Background(), reqs, app.RunOptions{NoCache: true, Parallelism: 1})
	require.NoError(t, err)
	require.Len(t, artifacts, 2)
	assert.False(t, artifacts[0].CacheHit)
	assert.False(t, artifacts[1].CacheHit)
}

func TestApp_CompileAll_CacheDisabledInConfig(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	comp := mocks.NewMockCompiler(ctrl)
	comp.EXPECT().
		Compile(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		Return([]byte("SPIRV"), nil).
		Times(2)

	cfg := testConfig()
	cfg.CacheEnabled = false
	a := newTestApp(t, comp, cfg)

	reqs := []app.Request{
		vertexRequest("a.wgsl", "fn main() {}"),
		vertexRequest("b.wgsl", "fn main() {}"),
	}
	_, err := a.CompileAll(context.Background(), reqs, app.RunOptions{Parallelism: 1})
	require.NoError(t, err)
	assert.False(t, a.CacheEnabled())
}

func TestApp_CompileAll_FillsTargetDefaultsFromConfig(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	comp := mocks.NewMockCompiler(ctrl)

	var seen domain.CompileOptions
	comp.EXPECT().
		Compile(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, _ domain.ShaderModule, _ domain.Specialization, opts domain.CompileOptions) ([]byte, error) {
			seen = opts
			return []byte("SPIRV"), nil
		}).
		Times(1)

	a := newTestApp(t, comp, testConfig())

	_, err := a.CompileAll(context.Background(), []app.Request{vertexRequest("a.wgsl", "fn main() {}")}, app.RunOptions{})
	require.NoError(t, err)
	assert.Equal(t, "generic", seen.TargetProfile)
	assert.Equal(t, "1.3", seen.TargetVersion)
}

func TestApp_CompileAll_SecondBatchHitsPersistedCache(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	comp := mocks.NewMockCompiler(ctrl)
	comp.EXPECT().
		Compile(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		Return([]byte("SPIRV"), nil).
		Times(1)

	// The last handle release persists the cache image; back the store
	// with a map so the second batch can seed from it.
	saved := make(map[string][]byte)
	images := mocks.NewMockImageStore(ctrl)
	images.EXPECT().Load(gomock.Any()).DoAndReturn(func(tag string) ([]byte, error) {
		return saved[tag], nil
	}).AnyTimes()
	images.EXPECT().Save(gomock.Any(), gomock.Any()).DoAndReturn(func(tag string, image []byte) error {
		saved[tag] = image
		return nil
	}).AnyTimes()

	cfg := testConfig()
	log := logger.NewWithWriter(io.Discard)
	manager := shadercache.NewManager(images, log, shadercache.Options{BudgetBytes: cfg.CacheBudgetBytes})
	a := app.New(comp, manager, images, log, telemetry.NewNoOpTracer(), cfg)

	reqs := []app.Request{vertexRequest("a.wgsl", "fn main() {}")}

	first, err := a.CompileAll(context.Background(), reqs, app.RunOptions{})
	require.NoError(t, err)
	require.False(t, first[0].CacheHit)

	second, err := a.CompileAll(context.Background(), reqs, app.RunOptions{})
	require.NoError(t, err)
	assert.True(t, second[0].CacheHit)
	assert.Equal(t, first[0].Blob, second[0].Blob)
}

func TestApp_CleanCache(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	images := mocks.NewMockImageStore(ctrl)
	images.EXPECT().Clean().Return(nil).Times(1)

	log := logger.NewWithWriter(io.Discard)
	manager := shadercache.NewManager(images, log, shadercache.Options{})
	a := app.New(mocks.NewMockCompiler(ctrl), manager, images, log, telemetry.NewNoOpTracer(), testConfig())

	require.NoError(t, a.CleanCache())
}
