package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fosdem/glupload/lib/caps"
	"github.com/fosdem/glupload/lib/encdec"
	"github.com/fosdem/glupload/lib/log"
	yaml "github.com/goccy/go-yaml"
)

type Config struct {
	Name     string
	LogLevel string `yaml:"log_level"`
	Context  *ContextCfg
	Source   *SourceCfg
	Output   *OutputCfg
	Api      *ApiCfg
}

func Parse(filename string) (*Config, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("could not open %s: %s", filename, err)
	}
	defer func(f *os.File) {
		err := f.Close()
		if err != nil {
			_ = fmt.Errorf("could not close %s: %s", filename, err)
		}
	}(f)

	absFilename, err := filepath.Abs(filename)
	if err != nil {
		return nil, fmt.Errorf("somehow, %s is malformed: %w", filename, err)
	}
	UnmarshalBase = filepath.Dir(absFilename)

	m := yaml.NewDecoder(f)
	cfg := &Config{}
	err = m.Decode(cfg)
	if err != nil {
		return nil, err
	}
	err = cfg.Validate()
	if err != nil {
		return nil, err
	}
	return cfg, err
}

func (c *Config) Validate() error {
	if c.Name == "" {
		c.Name = "glupload"
	}
	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		return err
	}
	if c.Context == nil {
		return fmt.Errorf("a context must be defined")
	}
	if err := c.Context.Validate(); err != nil {
		return fmt.Errorf("context is invalid: %w", err)
	}
	if c.Source == nil {
		return fmt.Errorf("a source must be defined")
	}
	if err := c.Source.Validate(); err != nil {
		return fmt.Errorf("source is invalid: %w", err)
	}
	if c.Source.Memory == MemoryTexture && !c.Context.ShareWithPrimary {
		return fmt.Errorf("a texture source needs share_with_primary")
	}
	if c.Output == nil {
		c.Output = &OutputCfg{}
	}
	if err := c.Output.Validate(); err != nil {
		return fmt.Errorf("output is invalid: %w", err)
	}
	if c.Api != nil && c.Api.Bind == "" {
		return fmt.Errorf("api bind address must be specified")
	}
	return nil
}

func (c *Config) String() string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("Name: %s\n", c.Name))
	b.WriteString(fmt.Sprintf("\nContext:\n  %s %dx%d", c.Context.Type, c.Context.Width, c.Context.Height))
	if c.Context.ShareWithPrimary {
		b.WriteString(" (shared)")
	}
	b.WriteString("\n\nSource:\n")
	b.WriteString(fmt.Sprintf("  %s (%s memory)\n", c.Source.Type, c.Source.Memory))
	if c.Output.Caps != "" {
		b.WriteString(fmt.Sprintf("\nOutput:\n  %s\n", c.Output.Caps))
	}
	if c.Api != nil {
		b.WriteString(fmt.Sprintf("\nApi:\n  %s\n", c.Api.Bind))
	}
	return b.String()
}

const (
	ContextGL       = "gl"
	ContextSoftware = "software"
)

type ContextCfg struct {
	Type   string
	Width  int
	Height int
	UseEGL bool `yaml:"use_egl"`
	// ShareWithPrimary creates the producer context in the share group of
	// the upload context.
	ShareWithPrimary bool `yaml:"share_with_primary"`
}

func (c *ContextCfg) Validate() error {
	switch c.Type {
	case ContextGL:
		if c.Width <= 0 || c.Height <= 0 {
			return fmt.Errorf("a gl context needs a window size")
		}
	case ContextSoftware:
		if c.UseEGL {
			return fmt.Errorf("use_egl needs a gl context")
		}
	default:
		return fmt.Errorf("unknown context type: %s", c.Type)
	}
	return nil
}

// Memory kinds a source can hand its frames over in.
const (
	MemorySystem     = "system"
	MemoryTexture    = "texture"
	MemoryUploadMeta = "upload_meta"
)

type SourceCfgStub struct {
	Type      string
	Memory    string
	Framerate int
}

type Valid interface {
	Validate() error
}

type SourceCfg struct {
	SourceCfgStub
	Cfg Valid
}

// FrameCfg describes raw frames produced outside of the process.
type FrameCfg struct {
	Format        string
	Width         int
	Height        int
	Views         int
	MultiviewMode string `yaml:"multiview_mode"`
}

func (f *FrameCfg) Validate() error {
	_, err := f.Info()
	return err
}

// Info is the layout of the described frames.
func (f *FrameCfg) Info() (*encdec.VideoInfo, error) {
	format, err := encdec.ParseVideoFormat(f.Format)
	if err != nil {
		return nil, err
	}
	info, err := encdec.NewVideoInfo(format, f.Width, f.Height)
	if err != nil {
		return nil, err
	}
	if f.Views > 1 {
		info.Views = f.Views
	}
	if f.MultiviewMode != "" {
		info.MultiviewMode, err = encdec.ParseMultiviewMode(f.MultiviewMode)
		if err != nil {
			return nil, err
		}
	}
	return info, nil
}

type ImgSourceCfg struct {
	Path    CfgPath
	Width   int
	Height  int
	Inotify bool
}

type RawSourceCfg struct {
	FrameCfg `yaml:"frames"`
	Path     CfgPath
}

type CommandSourceCfg struct {
	FrameCfg `yaml:"frames"`
	Cmd      string
}

func (s *SourceCfg) UnmarshalYAML(b []byte) error {
	err := yaml.Unmarshal(b, &s.SourceCfgStub)
	if err != nil {
		return err
	}

	switch s.Type {
	case "image":
		cfg := ImgSourceCfg{}
		s.Cfg = &cfg
		return yaml.Unmarshal(b, &cfg)
	case "raw":
		cfg := RawSourceCfg{}
		s.Cfg = &cfg
		return yaml.Unmarshal(b, &cfg)
	case "command":
		cfg := CommandSourceCfg{}
		s.Cfg = &cfg
		return yaml.Unmarshal(b, &cfg)
	default:
		return fmt.Errorf("unknown source type: %s", s.Type)
	}
}

func (s *SourceCfg) Validate() error {
	if s.Memory == "" {
		s.Memory = MemorySystem
	}
	switch s.Memory {
	case MemorySystem, MemoryTexture:
	case MemoryUploadMeta:
		if _, ok := s.Cfg.(*ImgSourceCfg); !ok {
			return fmt.Errorf("upload_meta memory is only supported for image sources")
		}
	default:
		return fmt.Errorf("unknown memory kind: %s", s.Memory)
	}
	if s.Framerate == 0 {
		s.Framerate = 30
	}
	if s.Framerate < 0 {
		return fmt.Errorf("framerate must be positive")
	}
	return s.Cfg.Validate()
}

func (s *ImgSourceCfg) Validate() error {
	if s.Path == "" {
		if s.Width == 0 && s.Height == 0 {
			return fmt.Errorf("image path or size must be specified")
		}
		if s.Inotify {
			return fmt.Errorf("cannot enable inotify for an imagesource without path")
		}
	} else {
		if s.Width != 0 || s.Height != 0 {
			return fmt.Errorf("image path or size can't both be specified")
		}
	}
	return nil
}

func (s *RawSourceCfg) Validate() error {
	if s.Path == "" {
		return fmt.Errorf("path to the raw frames must be specified")
	}
	return s.FrameCfg.Validate()
}

func (s *CommandSourceCfg) Validate() error {
	if s.Cmd == "" {
		return fmt.Errorf("cmd must be specified")
	}
	return s.FrameCfg.Validate()
}

// OutputCfg restricts the negotiated output formats.
type OutputCfg struct {
	Caps string
}

func (o *OutputCfg) Validate() error {
	if o.Caps == "" {
		return nil
	}
	_, err := o.Filter()
	return err
}

// Filter parses Caps. It returns nil when no restriction is configured.
func (o *OutputCfg) Filter() (*caps.Caps, error) {
	if o.Caps == "" {
		return nil, nil
	}
	return caps.Parse(o.Caps)
}

type ApiCfg struct {
	Bind           string
	EnableProfiler bool `yaml:"enable_profiler"`
}
