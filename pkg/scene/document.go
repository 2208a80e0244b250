package scene

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/matzehuels/framekit/pkg/draw"
	"github.com/matzehuels/framekit/pkg/errors"
	"github.com/matzehuels/framekit/pkg/observability"
)

// Format is a scene document encoding.
type Format string

const (
	FormatTOML Format = "toml"
	FormatYAML Format = "yaml"
)

// Default window size for documents that omit one.
const (
	DefaultWidth  = 800
	DefaultHeight = 600
)

// Document is a declarative scene: a window and a list of entities, each
// with constraints written in the expression language of [ParseExpr].
type Document struct {
	ID       string   `toml:"id" yaml:"id"`
	Window   Window   `toml:"window" yaml:"window"`
	Entities []Entity `toml:"entities" yaml:"entities" validate:"dive"`
}

// Window is the initial window size.
type Window struct {
	Width  uint32 `toml:"width" yaml:"width" validate:"lte=100000"`
	Height uint32 `toml:"height" yaml:"height" validate:"lte=100000"`
}

// Entity declares one laid-out element.
type Entity struct {
	Name        string   `toml:"name" yaml:"name" validate:"entityname"`
	Parent      string   `toml:"parent" yaml:"parent"`
	Visibility  string   `toml:"visibility" yaml:"visibility" validate:"omitempty,oneof=visible hidden collapsed"`
	Constraints []string `toml:"constraints" yaml:"constraints" validate:"dive,required"`
	Collapsed   []string `toml:"collapsed" yaml:"collapsed" validate:"dive,required"`
}

// sceneValidate is the validator instance for scene documents.
var sceneValidate *validator.Validate

func init() {
	sceneValidate = validator.New()
	_ = sceneValidate.RegisterValidation("entityname", validateEntityName)
}

func validateEntityName(fl validator.FieldLevel) bool {
	return errors.ValidateEntityName(fl.Field().String()) == nil
}

// FormatFromPath infers the format from a file extension.
func FormatFromPath(path string) (Format, error) {
	if err := errors.ValidateScenePath(path); err != nil {
		return "", err
	}
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		return FormatTOML, nil
	}
	return FormatYAML, nil
}

// Load reads and parses the scene document at path.
func Load(path string) (*Document, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, errors.Wrap(errors.ErrCodeFileNotFound, err, "scene %s", path)
	}
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "read scene %s", path)
	}
	return Parse(data, format)
}

// Parse decodes, defaults and validates a scene document.
func Parse(data []byte, format Format) (doc *Document, err error) {
	start := time.Now()
	defer func() {
		n := 0
		if doc != nil {
			n = len(doc.Entities)
		}
		observability.Scene().OnSceneLoad(string(format), n, time.Since(start), err)
	}()

	doc = &Document{}
	switch format {
	case FormatTOML:
		md, err := toml.Decode(string(data), doc)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidScene, err, "decode toml")
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			keys := make([]string, len(undecoded))
			for i, k := range undecoded {
				keys[i] = k.String()
			}
			return nil, errors.New(errors.ErrCodeInvalidScene, "decode toml: unknown keys %s", strings.Join(keys, ", "))
		}
	case FormatYAML:
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(doc); err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidScene, err, "decode yaml")
		}
	default:
		return nil, errors.New(errors.ErrCodeInvalidFormat, "unknown scene format %q", format)
	}

	doc.EnsureDefaults()
	if err := doc.Validate(); err != nil {
		return nil, err
	}
	return doc, nil
}

// EnsureDefaults fills the ID and window size when missing.
func (d *Document) EnsureDefaults() {
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	if d.Window.Width == 0 {
		d.Window.Width = DefaultWidth
	}
	if d.Window.Height == 0 {
		d.Window.Height = DefaultHeight
	}
}

// Validate checks field tags, name uniqueness, parent references (parents
// must be declared before their children) and constraint syntax.
func (d *Document) Validate() error {
	if err := sceneValidate.Struct(d); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidScene, err, "validate scene")
	}
	seen := make(map[string]bool, len(d.Entities))
	for _, e := range d.Entities {
		if seen[e.Name] {
			return errors.New(errors.ErrCodeInvalidScene, "duplicate entity %q", e.Name)
		}
		if e.Parent != "" && !seen[e.Parent] {
			return errors.New(errors.ErrCodeUnknownEntity, "entity %q: parent %q is not declared before it", e.Name, e.Parent)
		}
		seen[e.Name] = true
		for _, src := range append(append([]string(nil), e.Constraints...), e.Collapsed...) {
			if _, err := ParseExpr(src); err != nil {
				return errors.Wrap(errors.ErrCodeInvalidScene, err, "entity %q", e.Name)
			}
		}
	}
	return nil
}

// State returns the parsed initial visibility of e.
func (e Entity) State() draw.VisibilityState {
	s, err := draw.ParseVisibilityState(e.Visibility)
	if err != nil {
		return draw.Visible
	}
	return s
}
