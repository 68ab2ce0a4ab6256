package transform

import (
	"bytes"
	"fmt"
	"path"
	"path/filepath"
	"strings"
	"text/template"

	sprig "github.com/go-task/slim-sprig/v3"
	"go.uber.org/zap"

	"kfscope/config"
	"kfscope/css"
	"kfscope/keyframes"
	"kfscope/state"
)

// Values is a struct that holds variables we make available for output name
// template expansion.
type Values struct {
	Name   string // base name without extension
	Ext    string // extension with leading dot
	Dir    string // slash separated directory relative to processed source, "." for top level
	Source string // slash separated path relative to processed source
	Hash   string // base 36 hash of stylesheet text
	Prefix string // resolved prefix
}

func newValues(rel string, sheet *css.Stylesheet, opts keyframes.Options) Values {
	rel = filepath.ToSlash(rel)
	ext := path.Ext(rel)
	return Values{
		Name:   strings.TrimSuffix(path.Base(rel), ext),
		Ext:    ext,
		Dir:    path.Dir(rel),
		Source: rel,
		Hash:   keyframes.Hash(sheet.Source),
		Prefix: keyframes.ResolvePrefix(opts, sheet),
	}
}

func expandTemplate(name, field string, values Values) (string, error) {
	tmpl, err := template.New(name).Funcs(sprig.FuncMap()).Parse(field)
	if err != nil {
		return "", fmt.Errorf("unable to parse template field %s: %w", name, err)
	}

	buf := new(bytes.Buffer)
	if err := tmpl.Execute(buf, values); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// buildTemplatedOutputPath returns output file name produced by configured
// template, or an empty string when there is no template or it could not be
// expanded. Every produced path segment is cleaned, so template cannot escape
// destination directory.
func buildTemplatedOutputPath(values Values, dst string, env *state.LocalEnv) string {
	field := env.Cfg.Files.OutputNameTemplate
	if field == "" {
		return ""
	}
	expanded, err := expandTemplate(config.OutputNameTemplateFieldName, field, values)
	if err != nil {
		env.Log.Warn("Unable to prepare output filename", zap.Error(err))
		return ""
	}

	segments := splitPath(expanded)
	if len(segments) == 0 {
		return ""
	}
	if env.NoDirs {
		segments = segments[len(segments)-1:]
	}
	parts := make([]string, 0, len(segments)+1)
	parts = append(parts, dst)
	for _, s := range segments {
		parts = append(parts, cleanPathSegment(s, env))
	}
	return filepath.Join(parts...)
}
