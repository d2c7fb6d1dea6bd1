package compiler

import (
	"fmt"
	"os"
	"path/filepath"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/load"
)

// Source is a loaded process file.
type Source struct {
	// Path is the file or directory the value was loaded from.
	Path string
	// Files lists the CUE files that make up the value.
	Files []string
	// Process is the value of the top-level "process" field.
	Process cue.Value
}

// LoadPath loads a process from a single .cue file or from a directory
// holding one CUE package.
func LoadPath(path string) (*Source, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}

	ctx := cuecontext.New()
	src := &Source{Path: path}
	var value cue.Value

	if info.IsDir() {
		src.Files, err = FindCUEFiles(path)
		if err != nil {
			return nil, fmt.Errorf("scan %s: %w", path, err)
		}
		if len(src.Files) == 0 {
			return nil, fmt.Errorf("no CUE files found in %s", path)
		}
		instances := load.Instances([]string{"."}, &load.Config{Dir: path})
		if len(instances) == 0 {
			return nil, fmt.Errorf("no CUE instances loaded from %s", path)
		}
		if err := instances[0].Err; err != nil {
			return nil, formatCUEError(err)
		}
		value = ctx.BuildInstance(instances[0])
	} else {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("load %s: %w", path, err)
		}
		src.Files = []string{path}
		value = ctx.CompileBytes(data, cue.Filename(path))
	}

	if err := value.Err(); err != nil {
		return nil, formatCUEError(err)
	}
	return fromValue(src, value)
}

// LoadBytes compiles process source held in memory.
func LoadBytes(filename string, data []byte) (*Source, error) {
	value := cuecontext.New().CompileBytes(data, cue.Filename(filename))
	if err := value.Err(); err != nil {
		return nil, formatCUEError(err)
	}
	return fromValue(&Source{Path: filename, Files: []string{filename}}, value)
}

func fromValue(src *Source, value cue.Value) (*Source, error) {
	pv := value.LookupPath(cue.ParsePath("process"))
	if !pv.Exists() {
		return nil, &CompileError{Field: "process", Message: fmt.Sprintf("%s has no process", src.Path), Pos: value.Pos()}
	}
	src.Process = pv
	return src, nil
}

// FindCUEFiles walks the directory and returns all .cue file paths.
func FindCUEFiles(dir string) ([]string, error) {
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
