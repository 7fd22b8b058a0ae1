package profile

import (
	"fmt"
	"os"
	"path/filepath"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/load"

	"github.com/rida-louchachha/punchsync/internal/punch"
)

// LoadResult holds the profiles loaded from a directory.
type LoadResult struct {
	Profiles  map[string]*punch.VendorProfile
	FileCount int
}

// Get returns the named profile, or the built-in default when name is
// empty and the directory declared nothing usable under that name.
func (r *LoadResult) Get(name string) (*punch.VendorProfile, error) {
	if name == "" {
		if p, ok := r.Profiles[punch.DefaultProfile().Name]; ok {
			return p, nil
		}
		return punch.DefaultProfile(), nil
	}
	p, ok := r.Profiles[name]
	if !ok {
		return nil, fmt.Errorf("profile %q not found (have %d profiles)", name, len(r.Profiles))
	}
	return p, nil
}

// LoadDir loads every .cue file under dir and compiles all entries beneath
// the top-level "profile" field. Structural failures (missing directory, no
// files, CUE build errors) fail fast; per-profile compile errors are
// collected so validate can report them all at once.
func LoadDir(dir string) (*LoadResult, []error) {
	info, err := os.Stat(dir)
	if os.IsNotExist(err) {
		return nil, []error{fmt.Errorf("profiles directory not found: %s", dir)}
	}
	if err != nil {
		return nil, []error{fmt.Errorf("accessing profiles directory: %w", err)}
	}
	if !info.IsDir() {
		return nil, []error{fmt.Errorf("not a directory: %s", dir)}
	}

	cueFiles, err := findCUEFiles(dir)
	if err != nil {
		return nil, []error{fmt.Errorf("scanning profiles directory: %w", err)}
	}
	if len(cueFiles) == 0 {
		return nil, []error{fmt.Errorf("no .cue files found in %s", dir)}
	}

	ctx := cuecontext.New()
	instances := load.Instances([]string{"."}, &load.Config{Dir: dir})
	if len(instances) == 0 {
		return nil, []error{fmt.Errorf("no CUE instances loaded from %s", dir)}
	}
	inst := instances[0]
	if inst.Err != nil {
		return nil, []error{formatCUEError(inst.Err)}
	}

	value := ctx.BuildInstance(inst)
	if err := value.Err(); err != nil {
		return nil, []error{formatCUEError(err)}
	}

	result := &LoadResult{
		Profiles:  make(map[string]*punch.VendorProfile),
		FileCount: len(cueFiles),
	}

	profilesVal := value.LookupPath(cue.ParsePath("profile"))
	if !profilesVal.Exists() {
		return nil, []error{fmt.Errorf("no top-level \"profile\" field in %s", dir)}
	}

	iter, err := profilesVal.Fields()
	if err != nil {
		return nil, []error{formatCUEError(err)}
	}

	var errs []error
	for iter.Next() {
		p, compileErr := CompileProfile(iter.Value())
		if compileErr != nil {
			errs = append(errs, compileErr)
			continue
		}
		result.Profiles[p.Name] = p
	}

	if len(result.Profiles) == 0 && len(errs) == 0 {
		errs = append(errs, fmt.Errorf("no profiles declared in %s", dir))
	}
	return result, errs
}

// findCUEFiles walks dir and returns all .cue file paths.
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
