package keyframes

import (
	"strconv"
	"unicode/utf16"

	"kfscope/css"
)

// Hash returns 32 bit rolling hash of s in base 36. Hash is computed over
// UTF-16 code units so digests match ones produced by JavaScript tooling.
func Hash(s string) string {
	var acc int32
	for _, c := range utf16.Encode([]rune(s)) {
		acc = acc<<5 - acc + int32(c)
	}
	return strconv.FormatUint(uint64(uint32(acc)), 36)
}

// unknownSource stands for the path of a stylesheet read from memory, so
// that prefixes agree with JavaScript tooling for such stylesheets too.
const unknownSource = "undefined"

// GenerateHashedPrefix is the default PrefixGenerator.
func GenerateHashedPrefix(from, source string) string {
	if len(from) == 0 {
		from = unknownSource
	}
	return "_" + Hash(from+" - "+source) + "_"
}

// ResolvePrefix returns prefix for local names of the stylesheet. A fixed
// prefix is returned verbatim, generator is only called in hashed mode.
func ResolvePrefix(opts Options, sheet *css.Stylesheet) string {
	if !opts.hashed() {
		return opts.Prefix
	}
	gen := opts.GenerateHashedPrefix
	if gen == nil {
		gen = GenerateHashedPrefix
	}
	return gen(sheet.From, sheet.Source)
}
