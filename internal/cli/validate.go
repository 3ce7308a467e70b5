package cli

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/weftlabs/weft/internal/manifest"
	"github.com/weftlabs/weft/internal/patch"
)

// ValidationResult holds manifest validation results.
type ValidationResult struct {
	Valid    bool              `json:"valid"`
	Manifest string            `json:"manifest,omitempty"`
	Order    []string          `json:"order,omitempty"`
	Errors   []ValidationError `json:"errors,omitempty"`
}

// ValidationError is one manifest problem.
type ValidationError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <manifest.cue|dir>",
		Short: "Validate a patch manifest",
		Long: `Validate a patch manifest without installing anything.

Checks CUE syntax and manifest shape, then resolves the declared module
dependency graph. Reports the install order that EnableAll would use,
or the cycle/missing-dependency preventing one.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}
	return cmd
}

func runValidate(opts *RootOptions, path string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(), // Verbose logs go to stderr to avoid corrupting JSON
		Verbose:   opts.Verbose,
	}

	m, err := loadManifest(path)
	if err != nil {
		var loadErr *manifest.LoadError
		if errors.As(err, &loadErr) {
			if outErr := formatter.Error(loadErr.Code, loadErr.Message, nil); outErr != nil {
				return outErr
			}
			return NewExitError(ExitCommandError, loadErr.Message)
		}
		if outErr := formatter.Error(manifest.ErrCodeGeneric, err.Error(), nil); outErr != nil {
			return outErr
		}
		return WrapExitError(ExitCommandError, "loading manifest", err)
	}

	formatter.VerboseLog("Loaded manifest %q with %d module(s)", m.Name, len(m.Modules))

	// Resolve the dependency graph exactly the way EnableAll would.
	eng := patch.NewEngine()
	for _, spec := range m.Modules {
		if regErr := eng.Register(patch.Module{Name: spec.Name, DependsOn: spec.DependsOn}); regErr != nil {
			return WrapExitError(ExitCommandError, "registering modules", regErr)
		}
	}
	order, err := eng.ResolveOrder(m.ModuleNames())
	if err != nil {
		result := ValidationResult{
			Valid:    false,
			Manifest: m.Name,
			Errors:   []ValidationError{{Code: resolveErrorCode(err), Message: err.Error()}},
		}
		if outErr := outputValidationResult(formatter, result); outErr != nil {
			return outErr
		}
		return NewExitError(ExitFailure, "manifest validation failed")
	}

	return outputValidationResult(formatter, ValidationResult{
		Valid:    true,
		Manifest: m.Name,
		Order:    order,
	})
}

// loadManifest accepts either a single CUE file or a manifest directory.
func loadManifest(path string) (*manifest.Manifest, error) {
	info, err := os.Stat(path)
	if err == nil && info.IsDir() {
		return manifest.LoadDir(path)
	}
	return manifest.Load(path)
}

func resolveErrorCode(err error) string {
	var resolveErr *patch.ResolveError
	if errors.As(err, &resolveErr) {
		return string(resolveErr.Code)
	}
	return manifest.ErrCodeGeneric
}

func outputValidationResult(f *OutputFormatter, result ValidationResult) error {
	if f.Format == "json" {
		return f.Success(result)
	}

	if !result.Valid {
		for _, e := range result.Errors {
			fmt.Fprintf(f.Writer, "Error [%s]: %s\n", e.Code, e.Message)
		}
		return nil
	}

	fmt.Fprintf(f.Writer, "✓ Manifest %q valid\n", result.Manifest)
	if len(result.Order) > 0 {
		fmt.Fprintf(f.Writer, "Install order: %s\n", strings.Join(result.Order, ", "))
	}
	return nil
}
