// Package app implements the application layer for shade.
package app

import (
	"context"
	"runtime"
	"sync"

	"go.trai.ch/shade/internal/build"
	"go.trai.ch/shade/internal/core/domain"
	"go.trai.ch/shade/internal/core/ports"
	"go.trai.ch/shade/internal/engine/shadercache"
	"go.trai.ch/zerr"
	"golang.org/x/sync/errgroup"
)

// App drives shader compilation through the shared result cache.
type App struct {
	compiler ports.Compiler
	manager  *shadercache.Manager
	images   ports.ImageStore
	logger   ports.Logger
	tracer   ports.Tracer
	config   *domain.Config
}

// New creates a new App instance.
func New(
	compiler ports.Compiler,
	manager *shadercache.Manager,
	images ports.ImageStore,
	log ports.Logger,
	tracer ports.Tracer,
	cfg *domain.Config,
) *App {
	return &App{
		compiler: compiler,
		manager:  manager,
		images:   images,
		logger:   log,
		tracer:   tracer,
		config:   cfg,
	}
}

// Request is one shader to compile.
type Request struct {
	// Name identifies the request in logs and errors, typically the
	// source path.
	Name           string
	Module         domain.ShaderModule
	Specialization domain.Specialization
	Options        domain.CompileOptions
}

// Artifact is one compiled shader.
type Artifact struct {
	Name     string
	Key      domain.CacheKey
	Blob     []byte
	CacheHit bool
}

// RunOptions configures one CompileAll invocation.
type RunOptions struct {
	// NoCache bypasses the result cache entirely.
	NoCache bool
	// Parallelism bounds concurrent compiles; zero falls back to the
	// configured value, then to GOMAXPROCS.
	Parallelism int
}

// CompileAll compiles every request, deduplicating identical content
// through the shared cache. Artifacts are returned in request order.
func (a *App) CompileAll(ctx context.Context, reqs []Request, opts RunOptions) ([]Artifact, error) {
	if len(reqs) == 0 {
		return nil, domain.ErrNoInputs
	}

	ctx, span := a.tracer.Start(ctx, "compile batch")
	defer span.End()
	span.SetAttribute("shaders", len(reqs))

	useCache := a.config.CacheEnabled && !opts.NoCache
	span.SetAttribute("cacheEnabled", useCache)

	// One shared handle per compatibility tag seen in this batch, released
	// (and thereby persisted) when the batch ends.
	var (
		handleMu sync.Mutex
		handles  = make(map[string]*shadercache.Handle)
	)
	cacheFor := func(o domain.CompileOptions) *shadercache.Cache {
		tag := domain.CompatibilityTag(o.TargetProfile, build.Version, o.TargetVersion)
		handleMu.Lock()
		defer handleMu.Unlock()
		h, ok := handles[tag]
		if !ok {
			h = a.manager.Acquire(tag)
			handles[tag] = h
		}
		return h.Cache()
	}
	defer func() {
		for tag, h := range handles {
			hits, misses := h.Cache().Stats()
			a.logger.Info("shader cache", "tag", tag, "hits", hits, "misses", misses)
			h.Release()
		}
	}()

	artifacts := make([]Artifact, len(reqs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.parallelism(opts))
	for i, req := range reqs {
		g.Go(func() error {
			req.Options = a.withDefaults(req.Options)
			var cache *shadercache.Cache
			if useCache {
				cache = cacheFor(req.Options)
			}
			artifact, err := a.compileOne(gctx, cache, req)
			if err != nil {
				return err
			}
			artifacts[i] = artifact
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return artifacts, nil
}

// compileOne resolves a single request, through the cache when one is
// given. A reservation taken here is settled on every path: success,
// compile failure, and anything unexpected in between.
func (a *App) compileOne(ctx context.Context, cache *shadercache.Cache, req Request) (Artifact, error) {
	ctx, span := a.tracer.Start(ctx, "compile "+req.Name)
	defer span.End()

	if cache == nil {
		blob, err := a.compiler.Compile(ctx, req.Module, req.Specialization, req.Options)
		if err != nil {
			return Artifact{}, zerr.With(err, "shader", req.Name)
		}
		return Artifact{Name: req.Name, Blob: blob}, nil
	}

	key := domain.ComputeKey(req.Module, req.Specialization, req.Options)
	span.SetAttribute("key", key.String())

	hit, res, err := cache.FindOrReserve(ctx, key)
	if err != nil {
		return Artifact{}, err
	}
	if hit != nil {
		span.SetAttribute("cacheHit", true)
		if hit.Err != nil {
			return Artifact{}, zerr.With(hit.Err, "shader", req.Name)
		}
		return Artifact{Name: req.Name, Key: key, Blob: hit.Blob, CacheHit: true}, nil
	}

	span.SetAttribute("cacheHit", false)
	settled := false
	defer func() {
		// Waiters must never be left blocked, whatever happens above.
		if !settled {
			res.Fail(domain.ErrCompileFailed)
		}
	}()

	blob, err := a.compiler.Compile(ctx, req.Module, req.Specialization, req.Options)
	if err != nil {
		res.Fail(err)
		settled = true
		return Artifact{}, zerr.With(err, "shader", req.Name)
	}
	res.Complete(blob)
	settled = true
	return Artifact{Name: req.Name, Key: key, Blob: blob, CacheHit: false}, nil
}

// withDefaults fills unset target fields from the configuration so keys and
// compatibility tags are always derived from resolved values.
func (a *App) withDefaults(o domain.CompileOptions) domain.CompileOptions {
	if o.TargetProfile == "" {
		o.TargetProfile = a.config.TargetProfile
	}
	if o.TargetVersion == "" {
		o.TargetVersion = a.config.TargetVersion
	}
	return o
}

func (a *App) parallelism(opts RunOptions) int {
	if opts.Parallelism > 0 {
		return opts.Parallelism
	}
	if a.config.Parallelism > 0 {
		return a.config.Parallelism
	}
	return runtime.GOMAXPROCS(0)
}

// CleanCache removes every persisted cache image.
func (a *App) CleanCache() error {
	return a.images.Clean()
}

// CacheEnabled reports whether the result cache is active for this process.
func (a *App) CacheEnabled() bool {
	return a.config.CacheEnabled
}

// Components bundles everything the CLI layer needs.
type Components struct {
	App    *App
	Logger ports.Logger
	Config *domain.Config
}
