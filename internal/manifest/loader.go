package manifest

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/load"
	"cuelang.org/go/cue/token"
)

// Error code constants - unified across manifest loading.
const (
	ErrCodeGeneric     = "E001" // Generic/unknown error
	ErrCodeScanError   = "E002" // Directory scan error
	ErrCodeNoFiles     = "E003" // No CUE files found
	ErrCodeLoadFailed  = "E004" // CUE load failed
	ErrCodeNotFound    = "E005" // Path not found
	ErrCodeBuildFailed = "E006" // CUE build failed

	// Manifest validation errors
	ErrCodeMissingName     = "E101" // Missing manifest name
	ErrCodeInvalidModule   = "E102" // Malformed module declaration
	ErrCodeDuplicateModule = "E103" // Module declared twice
	ErrCodeInvalidCoord    = "E104" // Malformed coordination block
)

// DefaultStaleLockTimeout applies when a manifest's coordination block
// does not set staleLockTimeoutMS.
const DefaultStaleLockTimeout = 30 * time.Second

// LoadError represents an error that occurred during manifest loading.
type LoadError struct {
	Code    string
	Message string
	Pos     token.Pos // CUE position if available
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Load compiles a single CUE manifest file.
func Load(path string) (*Manifest, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("manifest not found: %s", path)}
	}
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("error reading manifest: %v", err)}
	}

	ctx := cuecontext.New()
	value := ctx.CompileBytes(src, cue.Filename(path))
	if err := value.Err(); err != nil {
		return nil, formatCUEError(ErrCodeBuildFailed, err)
	}
	return compileManifest(value)
}

// LoadDir loads all CUE files in a directory as one manifest instance.
func LoadDir(dir string) (*Manifest, error) {
	info, err := os.Stat(dir)
	if os.IsNotExist(err) {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("manifest directory not found: %s", dir)}
	}
	if err != nil {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("error accessing manifest directory: %v", err)}
	}
	if !info.IsDir() {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("not a directory: %s", dir)}
	}

	cueFiles, err := findCUEFiles(dir)
	if err != nil {
		return nil, &LoadError{Code: ErrCodeScanError, Message: fmt.Sprintf("error scanning directory: %v", err)}
	}
	if len(cueFiles) == 0 {
		return nil, &LoadError{Code: ErrCodeNoFiles, Message: fmt.Sprintf("no CUE files found in %s", dir)}
	}

	ctx := cuecontext.New()
	cfg := &load.Config{Dir: dir}
	instances := load.Instances([]string{"."}, cfg)
	if len(instances) == 0 {
		return nil, &LoadError{Code: ErrCodeLoadFailed, Message: "no CUE instances loaded"}
	}
	inst := instances[0]
	if inst.Err != nil {
		return nil, &LoadError{Code: ErrCodeLoadFailed, Message: fmt.Sprintf("loading CUE files: %v", inst.Err)}
	}

	value := ctx.BuildInstance(inst)
	if err := value.Err(); err != nil {
		return nil, formatCUEError(ErrCodeBuildFailed, err)
	}
	return compileManifest(value)
}

// compileManifest parses a CUE value into a Manifest.
//
// The expected shape:
//
//	name: "studio"
//	coordination: {
//		namespace:          "studio"
//		version:            "1"
//		staleLockTimeoutMS: 30000
//	}
//	module: "selection-tools": {
//		description: "adds multi-select entry points"
//		dependsOn: ["core"]
//	}
func compileManifest(v cue.Value) (*Manifest, error) {
	m := &Manifest{
		Coordination: Coordination{
			Namespace:        "weft",
			Version:          "0",
			StaleLockTimeout: DefaultStaleLockTimeout,
		},
	}

	nameVal := v.LookupPath(cue.ParsePath("name"))
	if !nameVal.Exists() {
		return nil, &LoadError{Code: ErrCodeMissingName, Message: "manifest name is required", Pos: v.Pos()}
	}
	name, err := nameVal.String()
	if err != nil || name == "" {
		return nil, &LoadError{Code: ErrCodeMissingName, Message: "manifest name must be a non-empty string", Pos: nameVal.Pos()}
	}
	m.Name = name

	coordVal := v.LookupPath(cue.ParsePath("coordination"))
	if coordVal.Exists() {
		if err := parseCoordination(coordVal, &m.Coordination); err != nil {
			return nil, err
		}
	}

	modulesVal := v.LookupPath(cue.ParsePath("module"))
	if modulesVal.Exists() {
		iter, iterErr := modulesVal.Fields()
		if iterErr != nil {
			return nil, formatCUEError(ErrCodeInvalidModule, iterErr)
		}
		seen := map[string]bool{}
		for iter.Next() {
			spec, err := parseModule(iter.Label(), iter.Value())
			if err != nil {
				return nil, err
			}
			if seen[spec.Name] {
				return nil, &LoadError{
					Code:    ErrCodeDuplicateModule,
					Message: fmt.Sprintf("module %q declared twice", spec.Name),
					Pos:     iter.Value().Pos(),
				}
			}
			seen[spec.Name] = true
			m.Modules = append(m.Modules, spec)
		}
	}

	return m, nil
}

func parseModule(name string, v cue.Value) (ModuleSpec, error) {
	spec := ModuleSpec{Name: name}

	descVal := v.LookupPath(cue.ParsePath("description"))
	if descVal.Exists() {
		desc, err := descVal.String()
		if err != nil {
			return spec, &LoadError{
				Code:    ErrCodeInvalidModule,
				Message: fmt.Sprintf("module %q: description must be a string", name),
				Pos:     descVal.Pos(),
			}
		}
		spec.Description = desc
	}

	depsVal := v.LookupPath(cue.ParsePath("dependsOn"))
	if depsVal.Exists() {
		iter, err := depsVal.List()
		if err != nil {
			return spec, &LoadError{
				Code:    ErrCodeInvalidModule,
				Message: fmt.Sprintf("module %q: dependsOn must be a list of module names", name),
				Pos:     depsVal.Pos(),
			}
		}
		for iter.Next() {
			dep, err := iter.Value().String()
			if err != nil {
				return spec, &LoadError{
					Code:    ErrCodeInvalidModule,
					Message: fmt.Sprintf("module %q: dependsOn entries must be strings", name),
					Pos:     iter.Value().Pos(),
				}
			}
			spec.DependsOn = append(spec.DependsOn, dep)
		}
	}

	return spec, nil
}

func parseCoordination(v cue.Value, c *Coordination) error {
	nsVal := v.LookupPath(cue.ParsePath("namespace"))
	if nsVal.Exists() {
		ns, err := nsVal.String()
		if err != nil || ns == "" {
			return &LoadError{Code: ErrCodeInvalidCoord, Message: "coordination.namespace must be a non-empty string", Pos: nsVal.Pos()}
		}
		c.Namespace = ns
	}

	verVal := v.LookupPath(cue.ParsePath("version"))
	if verVal.Exists() {
		ver, err := verVal.String()
		if err != nil {
			return &LoadError{Code: ErrCodeInvalidCoord, Message: "coordination.version must be a string", Pos: verVal.Pos()}
		}
		c.Version = ver
	}

	timeoutVal := v.LookupPath(cue.ParsePath("staleLockTimeoutMS"))
	if timeoutVal.Exists() {
		ms, err := timeoutVal.Int64()
		if err != nil || ms <= 0 {
			return &LoadError{Code: ErrCodeInvalidCoord, Message: "coordination.staleLockTimeoutMS must be a positive integer", Pos: timeoutVal.Pos()}
		}
		c.StaleLockTimeout = time.Duration(ms) * time.Millisecond
	}

	return nil
}

// findCUEFiles walks the directory and returns all .cue file paths.
func findCUEFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() && filepath.Ext(path) == ".cue" {
			files = append(files, path)
		}
		return nil
	})
	return files, err
}

// formatCUEError converts a CUE error into a LoadError with position info.
func formatCUEError(code string, err error) error {
	if errs := cueerrors.Errors(err); len(errs) > 0 {
		return &LoadError{Code: code, Message: errs[0].Error(), Pos: errs[0].Position()}
	}
	return &LoadError{Code: code, Message: err.Error()}
}
