package config

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"
	"regexp"
	"text/template"

	"github.com/bmatcuk/doublestar/v4"
	sprig "github.com/go-task/slim-sprig/v3"
	validator "github.com/go-playground/validator/v10"
	yaml "gopkg.in/yaml.v3"

	"github.com/rupor-github/gencfg"

	"kfscope/common"
	"kfscope/keyframes"
)

//go:embed config.yaml.tmpl
var ConfigTmpl []byte

type (
	// ScopingConfig mirrors keyframes.Options.
	ScopingConfig struct {
		Prefix          string            `yaml:"prefix" validate:"required"`
		DefaultScope    common.Scope      `yaml:"default_scope" validate:"gte=0"`
		Convention      common.Convention `yaml:"convention" validate:"gte=0"`
		GlobalRegExp    string            `yaml:"global_regexp" validate:"required"`
		LocalRegExp     string            `yaml:"local_regexp" validate:"required"`
		StrictShorthand bool              `yaml:"strict_shorthand"`
		VendorPrefixes  bool              `yaml:"vendor_prefixes"`
	}

	FilesConfig struct {
		Include               []string `yaml:"include" validate:"min=1,dive,required"`
		Exclude               []string `yaml:"exclude" validate:"dive,required"`
		OutputSuffix          string   `yaml:"output_suffix" validate:"excludesall=/\\"`
		OutputNameTemplate    string   `yaml:"output_name_template"`
		FileNameTransliterate bool     `yaml:"file_name_transliterate"`
	}

	Config struct {
		Version   int            `yaml:"version" validate:"eq=1"`
		Scoping   ScopingConfig  `yaml:"scoping"`
		Files     FilesConfig    `yaml:"files"`
		Logging   LoggingConfig  `yaml:"logging"`
		Reporting ReporterConfig `yaml:"reporting"`
	}
)

// Options converts scoping configuration to engine options.
func (conf *ScopingConfig) Options() keyframes.Options {
	opts := keyframes.DefaultOptions()
	opts.Prefix = conf.Prefix
	opts.DefaultScope = conf.DefaultScope
	opts.Convention = conf.Convention
	opts.GlobalRegExp = conf.GlobalRegExp
	opts.LocalRegExp = conf.LocalRegExp
	opts.StrictShorthand = conf.StrictShorthand
	opts.VendorPrefixes = conf.VendorPrefixes
	return opts
}

// NOTE: must match yaml field names above. Values of these fields are taken
// verbatim, regular expressions and fixed prefixes are not templates.
var requiredOptions = append([]func(*gencfg.ProcessingOptions){},
	gencfg.WithDoNotExpandField("prefix"),
	gencfg.WithDoNotExpandField("global_regexp"),
	gencfg.WithDoNotExpandField("local_regexp"),
	gencfg.WithDoNotExpandField(OutputNameTemplateFieldName),
)

// OutputNameTemplateFieldName is used to name output file name template.
const OutputNameTemplateFieldName = "output_name_template"

// additionalChecks validates what tags cannot express.
func additionalChecks(sl validator.StructLevel) {
	cfg, ok := sl.Current().Interface().(Config)
	if !ok {
		return
	}
	for field, expr := range map[string]string{
		"GlobalRegExp": cfg.Scoping.GlobalRegExp,
		"LocalRegExp":  cfg.Scoping.LocalRegExp,
	} {
		if _, err := regexp.Compile(expr); err != nil {
			sl.ReportError(expr, "Scoping."+field, field, "regexp", "")
		}
	}
	if !cfg.Scoping.DefaultScope.IsValid() {
		sl.ReportError(cfg.Scoping.DefaultScope, "Scoping.DefaultScope", "DefaultScope", "oneof", "global local")
	}
	if !cfg.Scoping.Convention.IsValid() {
		sl.ReportError(cfg.Scoping.Convention, "Scoping.Convention", "Convention", "oneof", "affix wrapper")
	}
	if len(cfg.Files.OutputNameTemplate) > 0 {
		if _, err := template.New(OutputNameTemplateFieldName).Funcs(sprig.FuncMap()).Parse(cfg.Files.OutputNameTemplate); err != nil {
			sl.ReportError(cfg.Files.OutputNameTemplate, "Files.OutputNameTemplate", "OutputNameTemplate", "template", "")
		}
	}
	for _, pattern := range append(append([]string{}, cfg.Files.Include...), cfg.Files.Exclude...) {
		if !doublestar.ValidatePattern(pattern) {
			sl.ReportError(pattern, "Files", "Files", "glob", pattern)
		}
	}
}

func unmarshalConfig(data []byte, cfg *Config, process bool) (*Config, error) {
	// We want to use only fields we defined so we cannot use yaml.Unmarshal
	// directly here
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode configuration data: %w", err)
	}
	if process {
		if err := gencfg.Sanitize(cfg); err != nil {
			return nil, fmt.Errorf("failed to sanitize configuration: %w", err)
		}
		if err := gencfg.Validate(cfg, gencfg.WithAdditionalChecks(additionalChecks)); err != nil {
			return nil, fmt.Errorf("failed to validate configuration: %w", err)
		}
	}
	return cfg, nil
}

// LoadConfiguration reads the configuration from the file at the given path,
// superimposes its values on top of expanded configuration template to provide
// sane defaults and performs validation.
func LoadConfiguration(path string, options ...func(*gencfg.ProcessingOptions)) (*Config, error) {
	haveFile := len(path) > 0

	data, err := gencfg.Process(ConfigTmpl, append(requiredOptions, options...)...)
	if err != nil {
		return nil, fmt.Errorf("failed to process configuration template: %w", err)
	}
	cfg, err := unmarshalConfig(data, &Config{}, !haveFile)
	if err != nil {
		return nil, fmt.Errorf("failed to process configuration template: %w", err)
	}
	if !haveFile {
		return cfg, nil
	}

	data, err = os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	cfg, err = unmarshalConfig(data, cfg, haveFile)
	if err != nil {
		return nil, fmt.Errorf("failed to process configuration file: %w", err)
	}
	return cfg, nil
}

// Prepare generates configuration file from template and returns it as a byte
// slice.
func Prepare() ([]byte, error) {
	return gencfg.Process(ConfigTmpl, requiredOptions...)
}

// Dump returns configuration as YAML.
func Dump(cfg *Config) ([]byte, error) {
	data, err := yaml.Marshal(*cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal config to yaml: %w", err)
	}
	return data, nil
}
