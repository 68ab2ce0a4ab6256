package transform

import (
	"path/filepath"
	"strings"

	"github.com/gosimple/slug"

	"kfscope/config"
	"kfscope/state"
)

const defaultExt = ".css"

// buildOutputPath returns output file name for stylesheet src, which is a
// path relative to the processed directory or archive (just base name for a
// single file). Source directory structure is kept under dst unless NoDirs is
// set, every path segment is cleaned and optionally transliterated.
func buildOutputPath(src, dst string, env *state.LocalEnv) string {
	parts := make([]string, 0, 8)
	parts = append(parts, dst)
	if !env.NoDirs {
		for _, dir := range splitPath(filepath.Dir(src)) {
			parts = append(parts, cleanPathSegment(dir, env))
		}
	}
	return filepath.Join(append(parts, buildFileName(src, env))...)
}

func buildFileName(src string, env *state.LocalEnv) string {
	ext := filepath.Ext(src)
	if ext == "" {
		ext = defaultExt
	}
	base := strings.TrimSuffix(filepath.Base(src), filepath.Ext(src))
	return cleanPathSegment(base, env) + env.Cfg.Files.OutputSuffix + ext
}

// splitPath returns directory names of a relative path, "." and empty
// segments are dropped.
func splitPath(path string) []string {
	segments := make([]string, 0, 8)
	for _, s := range strings.Split(filepath.ToSlash(path), "/") {
		if s == "" || s == "." {
			continue
		}
		segments = append(segments, s)
	}
	return segments
}

func cleanPathSegment(segment string, env *state.LocalEnv) string {
	if env.Cfg.Files.FileNameTransliterate {
		slug.Lowercase = false
		segment = slug.Make(segment)
		slug.Lowercase = true
	}
	return config.CleanFileName(segment)
}
