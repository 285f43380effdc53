package settings

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/load"
	"cuelang.org/go/cue/token"
	"gopkg.in/yaml.v3"
)

//go:embed schema.cue
var schemaCUE string

// Error is a settings error with its source position when known.
type Error struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *Error) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Load reads, unifies with the schema, decodes and validates the settings
// document at path. The format is chosen by extension: .json, .cue, .yaml
// or .yml.
func Load(path string) (*Settings, error) {
	ctx := cuecontext.New()
	doc, err := loadDocument(ctx, path)
	if err != nil {
		return nil, err
	}
	return decode(ctx, doc)
}

// Parse is Load for an in-memory document of the given format ("json",
// "cue" or "yaml").
func Parse(data []byte, format string) (*Settings, error) {
	ctx := cuecontext.New()
	var doc cue.Value
	switch format {
	case "json", "cue":
		doc = ctx.CompileBytes(data, cue.Filename("settings."+format))
	case "yaml", "yml":
		v, err := yamlValue(ctx, data)
		if err != nil {
			return nil, err
		}
		doc = v
	default:
		return nil, &Error{Field: "format", Message: fmt.Sprintf("unsupported settings format %q", format)}
	}
	if err := doc.Err(); err != nil {
		return nil, formatCUEError(err)
	}
	return decode(ctx, doc)
}

func loadDocument(ctx *cue.Context, path string) (cue.Value, error) {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".cue":
		instances := load.Instances([]string{filepath.Base(path)}, &load.Config{Dir: filepath.Dir(path)})
		if len(instances) == 0 {
			return cue.Value{}, &Error{Field: "load", Message: "no CUE instances loaded from " + path}
		}
		if inst := instances[0]; inst.Err != nil {
			return cue.Value{}, &Error{Field: "load", Message: fmt.Sprintf("loading %s: %v", path, inst.Err)}
		}
		v := ctx.BuildInstance(instances[0])
		if err := v.Err(); err != nil {
			return cue.Value{}, formatCUEError(err)
		}
		return v, nil
	case ".json", ".yaml", ".yml":
		data, err := os.ReadFile(path)
		if err != nil {
			return cue.Value{}, &Error{Field: "load", Message: fmt.Sprintf("read settings: %v", err)}
		}
		if ext != ".json" {
			return yamlValue(ctx, data)
		}
		v := ctx.CompileBytes(data, cue.Filename(path))
		if err := v.Err(); err != nil {
			return cue.Value{}, formatCUEError(err)
		}
		return v, nil
	default:
		return cue.Value{}, &Error{Field: "load", Message: fmt.Sprintf("unsupported settings file extension %q", ext)}
	}
}

func yamlValue(ctx *cue.Context, data []byte) (cue.Value, error) {
	var m map[string]any
	if err := yaml.Unmarshal(data, &m); err != nil {
		return cue.Value{}, &Error{Field: "yaml", Message: err.Error()}
	}
	v := ctx.Encode(m)
	if err := v.Err(); err != nil {
		return cue.Value{}, formatCUEError(err)
	}
	return v, nil
}

func decode(ctx *cue.Context, doc cue.Value) (*Settings, error) {
	schema := ctx.CompileString(schemaCUE, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return nil, fmt.Errorf("compile settings schema: %w", err)
	}
	v := schema.LookupPath(cue.ParsePath("#Settings")).Unify(doc)
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return nil, formatCUEError(err)
	}
	var s Settings
	if err := v.Decode(&s); err != nil {
		return nil, formatCUEError(err)
	}
	if err := validate(&s); err != nil {
		return nil, err
	}
	return &s, nil
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	first := errs[0]
	field := strings.Join(first.Path(), ".")
	if field == "" {
		field = "cue"
	}
	msg := first.Error()
	if len(errs) > 1 {
		msg = fmt.Sprintf("%s (and %d more errors)", msg, len(errs)-1)
	}
	positions := errors.Positions(first)
	if len(positions) > 0 {
		return &Error{Field: field, Message: msg, Pos: positions[0]}
	}
	return &Error{Field: field, Message: msg}
}
