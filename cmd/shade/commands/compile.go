package commands

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"go.trai.ch/shade/internal/app"
	"go.trai.ch/shade/internal/core/domain"
	"go.trai.ch/zerr"
)

func (c *CLI) newCompileCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "compile [files...]",
		Short: "Compile WGSL shaders to SPIR-V",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				// Display command usage help without returning an error
				_ = cmd.Help()
				return nil
			}

			outDir, _ := cmd.Flags().GetString("out")
			noCache, _ := cmd.Flags().GetBool("no-cache")
			debug, _ := cmd.Flags().GetBool("debug")
			entry, _ := cmd.Flags().GetString("entry")
			optName, _ := cmd.Flags().GetString("opt")
			parallelism, _ := cmd.Flags().GetInt("parallelism")

			opt, err := parseOptLevel(optName)
			if err != nil {
				return err
			}

			reqs, err := loadRequests(args, entry, domain.CompileOptions{
				OptLevel: opt,
				Debug:    debug,
				Validate: true,
			})
			if err != nil {
				return err
			}

			artifacts, err := c.app.CompileAll(cmd.Context(), reqs, app.RunOptions{
				NoCache:     noCache,
				Parallelism: parallelism,
			})
			if err != nil {
				return err
			}

			return writeArtifacts(cmd, artifacts, outDir)
		},
	}

	cmd.Flags().StringP("out", "o", ".", "Directory to write .spv artifacts to")
	cmd.Flags().BoolP("no-cache", "n", false, "Bypass the result cache and force compilation")
	cmd.Flags().Bool("debug", false, "Emit debug information into the compiled modules")
	cmd.Flags().String("entry", "main", "Entry point name shared by all inputs")
	cmd.Flags().String("opt", "default", "Optimization level: none, quick, default or full")
	cmd.Flags().IntP("parallelism", "j", 0, "Maximum concurrent compilations (0 uses the configured value)")

	return cmd
}

func parseOptLevel(name string) (domain.OptLevel, error) {
	switch name {
	case "none":
		return domain.OptNone, nil
	case "quick":
		return domain.OptQuick, nil
	case "default":
		return domain.OptDefault, nil
	case "full":
		return domain.OptFull, nil
	default:
		return 0, zerr.With(zerr.New("unknown optimization level"), "opt", name)
	}
}

func loadRequests(paths []string, entry string, opts domain.CompileOptions) ([]app.Request, error) {
	reqs := make([]app.Request, 0, len(paths))
	for _, path := range paths {
		code, err := os.ReadFile(path) //nolint:gosec // Paths come from the command line
		if err != nil {
			return nil, zerr.With(zerr.Wrap(err, domain.ErrInputReadFailed.Error()), "path", path)
		}
		reqs = append(reqs, app.Request{
			Name: path,
			Module: domain.ShaderModule{
				Code:       code,
				EntryPoint: entry,
				Stage:      stageForPath(path),
			},
			Options: opts,
		})
	}
	return reqs, nil
}

// stageForPath infers the shader stage from conventional double extensions
// such as shader.frag.wgsl. Anything unrecognized compiles as a vertex
// shader.
func stageForPath(path string) domain.ShaderStage {
	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	switch filepath.Ext(base) {
	case ".frag":
		return domain.StageFragment
	case ".comp":
		return domain.StageCompute
	default:
		return domain.StageVertex
	}
}

func writeArtifacts(cmd *cobra.Command, artifacts []app.Artifact, outDir string) error {
	if err := os.MkdirAll(outDir, domain.DirPerm); err != nil {
		return zerr.With(zerr.Wrap(err, domain.ErrOutputWriteFailed.Error()), "dir", outDir)
	}
	for _, artifact := range artifacts {
		out := filepath.Join(outDir, spvName(artifact.Name))
		if err := os.WriteFile(out, artifact.Blob, domain.FilePerm); err != nil {
			return zerr.With(zerr.Wrap(err, domain.ErrOutputWriteFailed.Error()), "path", out)
		}
		status := "compiled"
		if artifact.CacheHit {
			status = "cached"
		}
		cmd.Printf("%s %s -> %s\n", status, artifact.Name, out)
	}
	return nil
}

func spvName(source string) string {
	base := filepath.Base(source)
	return strings.TrimSuffix(base, filepath.Ext(base)) + ".spv"
}
