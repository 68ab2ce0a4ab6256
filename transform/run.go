// Package transform applies animation name scoping to stylesheets on disk:
// single files, directory trees and zip archives.
package transform

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime/debug"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	cli "github.com/urfave/cli/v3"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/text/encoding/ianaindex"

	"kfscope/archive"
	"kfscope/common"
	"kfscope/config"
	"kfscope/css"
	"kfscope/keyframes"
	"kfscope/state"
)

// ErrDiagnostics is returned for stylesheets with diagnostics in strict mode.
var ErrDiagnostics = errors.New("stylesheet has diagnostics")

func Run(ctx context.Context, cmd *cli.Command) (err error) {
	if err := ctx.Err(); err != nil {
		return err
	}

	env := state.EnvFromContext(ctx)
	log := env.Log.Named("scope")

	src := cmd.Args().Get(0)
	if len(src) == 0 {
		return errors.New("no input source has been specified")
	}
	src, err = filepath.Abs(src)
	if err != nil {
		return err
	}

	dst := cmd.Args().Get(1)
	if len(dst) == 0 {
		if dst, err = os.Getwd(); err != nil {
			return fmt.Errorf("unable to get working directory: %w", err)
		}
	}
	if dst, err = filepath.Abs(dst); err != nil {
		return err
	}
	if cmd.Args().Len() > 2 {
		log.Warn("Malformed command line, too many destinations", zap.Strings("ignoring", cmd.Args().Slice()[2:]))
	}

	if err := applyScopingFlags(cmd, &env.Cfg.Scoping); err != nil {
		return err
	}
	env.NoDirs, env.Overwrite = cmd.Bool("nodirs"), cmd.Bool("overwrite")
	env.Stdout, env.Strict = cmd.Bool("stdout"), cmd.Bool("strict")
	if env.Stdout {
		config.ConsoleToStderr()
	}

	// Stylesheets without BOM and @charset are UTF-8 unless told otherwise,
	// the same charset is used for non UTF-8 file names in archives
	if cp := cmd.String("charset"); len(cp) > 0 {
		env.CodePage, err = ianaindex.IANA.Encoding(cp)
		if err != nil || env.CodePage == nil {
			log.Warn("Unknown character set specification. Ignoring...", zap.String("charset", cp), zap.Error(err))
			env.CodePage = nil
		} else {
			n, _ := ianaindex.IANA.Name(env.CodePage)
			log.Debug("Forcing stylesheet charset", zap.String("charset", n))
		}
	}

	engine, err := env.NewEngine()
	if err != nil {
		return err
	}

	if cfg, err := config.Dump(env.Cfg); err == nil {
		env.Rpt.StoreData("config.yaml", cfg)
	}

	log.Info("Processing starting", zap.String("source", src), zap.String("destination", dst),
		zap.String("prefix", env.Cfg.Scoping.Prefix), zap.Stringer("default_scope", env.Cfg.Scoping.DefaultScope))
	defer func(start time.Time) {
		log.Info("Processing completed", zap.Duration("elapsed", time.Since(start)))
	}(time.Now())

	return newJob(env, engine, dst, os.Stdout, log).process(ctx, src)
}

// applyScopingFlags overwrites configured scoping options with ones given on
// command line.
func applyScopingFlags(cmd *cli.Command, conf *config.ScopingConfig) (err error) {
	if cmd.IsSet("prefix") {
		conf.Prefix = cmd.String("prefix")
	}
	if cmd.IsSet("default-scope") {
		if conf.DefaultScope, err = common.ParseScope(cmd.String("default-scope")); err != nil {
			return fmt.Errorf("bad default scope: %w", err)
		}
	}
	if cmd.IsSet("convention") {
		if conf.Convention, err = common.ParseConvention(cmd.String("convention")); err != nil {
			return fmt.Errorf("bad naming convention: %w", err)
		}
	}
	return nil
}

// job keeps what is shared by all stylesheets of a single run.
type job struct {
	env    *state.LocalEnv
	engine *keyframes.Engine
	parser *css.Parser
	dst    string
	out    io.Writer // used with env.Stdout
	log    *zap.Logger

	processed int
	failed    error
}

func newJob(env *state.LocalEnv, engine *keyframes.Engine, dst string, out io.Writer, log *zap.Logger) *job {
	return &job{
		env:    env,
		engine: engine,
		parser: css.NewParser(log),
		dst:    dst,
		out:    out,
		log:    log,
	}
}

// match checks slash separated relative path against configured patterns.
func (j *job) match(name string) bool {
	files := &j.env.Cfg.Files
	included := false
	for _, p := range files.Include {
		if ok, _ := doublestar.Match(p, name); ok {
			included = true
			break
		}
	}
	if !included {
		return false
	}
	for _, p := range files.Exclude {
		if ok, _ := doublestar.Match(p, name); ok {
			return false
		}
	}
	return true
}

// process determines the input type (directory, archive, or single file) and
// processes it. Failures of individual stylesheets do not stop processing,
// they are reported together at the end.
func (j *job) process(ctx context.Context, src string) error {
	// stylesheet path takes part in hashed prefix, it must not depend on
	// working directory
	src, err := filepath.Abs(src)
	if err != nil {
		return err
	}

	var head, tail string
	for head = src; len(head) != 0; head, tail = filepath.Split(head) {
		if err := ctx.Err(); err != nil {
			return err
		}

		head = strings.TrimSuffix(head, string(filepath.Separator))

		fi, err := os.Stat(head)
		if err != nil {
			// does not exists - probably path in archive
			continue
		}

		if fi.Mode().IsDir() {
			if len(tail) != 0 {
				// directory cannot have tail - it would be simple file
				return fmt.Errorf("input source was not found (%s) => (%s)", head, strings.TrimPrefix(src, head))
			}
			if err := j.processDir(ctx, head); err != nil {
				return fmt.Errorf("unable to process directory: %w", err)
			}
			break
		}

		if !fi.Mode().IsRegular() {
			return fmt.Errorf("unexpected path mode for (%s) => (%s)", head, strings.TrimPrefix(src, head))
		}

		arc, err := isArchiveFile(head)
		if err != nil {
			return fmt.Errorf("unable to check archive type: %w", err)
		}
		if arc {
			// we need to look inside to see if path makes sense
			tail = filepath.ToSlash(strings.TrimPrefix(strings.TrimPrefix(src, head), string(filepath.Separator)))
			if err := j.processArchive(ctx, head, tail, ""); err != nil {
				return fmt.Errorf("unable to process archive: %w", err)
			}
			break
		}

		if len(tail) != 0 {
			return fmt.Errorf("input source was not found (%s) => (%s)", head, strings.TrimPrefix(src, head))
		}
		buf, err := readHeader(head)
		if err != nil {
			return fmt.Errorf("unable to check file type: %w", err)
		}
		if !isStylesheet(buf) {
			return fmt.Errorf("input was not recognized as stylesheet (%s)", src)
		}
		// explicitly named file is processed regardless of patterns
		j.processFile(src, filepath.Base(src))
		break
	}
	if len(head) == 0 {
		return fmt.Errorf("input source was not found (%s)", src)
	}
	return j.result()
}

func (j *job) result() error {
	if j.failed == nil {
		return nil
	}
	errs := multierr.Errors(j.failed)
	return fmt.Errorf("%d of %d stylesheets failed: %w", len(errs), j.processed, j.failed)
}

func (j *job) fail(err error) {
	j.failed = multierr.Append(j.failed, err)
}

// processDir walks directory tree finding stylesheets and archives with
// stylesheets.
func (j *job) processDir(ctx context.Context, dir string) (err error) {
	count := 0
	defer func() {
		if err == nil && count == 0 {
			j.log.Debug("Nothing to process", zap.String("dir", dir))
		}
	}()

	return filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err := ctx.Err(); err != nil {
			return err
		}

		if err != nil {
			j.log.Warn("Skipping path", zap.String("path", path), zap.Error(err))
			return nil
		}
		if info.IsDir() && path != dir && path == j.dst {
			// do not pick up our own output
			return filepath.SkipDir
		}
		if !info.Mode().IsRegular() {
			return nil
		}

		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}

		arc, err := isArchiveFile(path)
		if err != nil {
			j.log.Warn("Skipping file", zap.String("file", path), zap.Error(err))
			return nil
		}
		if arc {
			if err := j.processArchive(ctx, path, "", filepath.Dir(rel)); err != nil {
				j.log.Error("Unable to process archive", zap.String("file", path), zap.Error(err))
				j.fail(fmt.Errorf("%s: %w", path, err))
			}
			return nil
		}

		if !j.match(filepath.ToSlash(rel)) {
			j.log.Debug("Skipping file, does not match patterns", zap.String("file", path))
			return nil
		}
		head, err := readHeader(path)
		if err != nil {
			j.log.Warn("Skipping file", zap.String("file", path), zap.Error(err))
			return nil
		}
		if !isStylesheet(head) {
			j.log.Debug("Skipping file, not recognized as stylesheet", zap.String("file", path))
			return nil
		}

		count++
		j.processFile(path, rel)
		return nil
	})
}

// processArchive walks all files inside archive, finds stylesheets under
// "pathIn" and processes them. "pathOut" is directory of the archive relative
// to the processed directory.
func (j *job) processArchive(ctx context.Context, path, pathIn, pathOut string) (err error) {
	count := 0
	defer func() {
		if err == nil && count == 0 {
			j.log.Debug("Nothing to process", zap.String("archive", path))
		}
	}()

	match := func(name string) bool {
		if pathIn == "" {
			return j.match(name)
		}
		// explicitly named entry is processed regardless of patterns
		return name == pathIn || (strings.HasPrefix(name, strings.TrimSuffix(pathIn, "/")+"/") && j.match(name))
	}

	return archive.Walk(path, match, func(arc string, f *zip.File) error {
		if err := ctx.Err(); err != nil {
			return err
		}

		ok, err := isStylesheetInArchive(f)
		if err != nil {
			j.log.Warn("Skipping file in archive",
				zap.String("archive", arc), zap.String("path", f.FileHeader.Name), zap.Error(err))
			return nil
		}
		if !ok {
			j.log.Debug("Skipping file, not recognized as stylesheet", zap.String("archive", arc), zap.String("file", f.FileHeader.Name))
			return nil
		}

		count++

		pathInArchive := f.FileHeader.Name
		if cp := j.env.CodePage; cp != nil && f.FileHeader.NonUTF8 {
			// forcing zip file name encoding
			if n, err := cp.NewDecoder().String(pathInArchive); err == nil {
				pathInArchive = n
			} else {
				n, _ = ianaindex.IANA.Name(cp)
				j.log.Warn("Unable to convert archive name from specified encoding",
					zap.String("charset", n), zap.String("path", pathInArchive), zap.Error(err))
			}
		}

		from := arc + "/" + pathInArchive
		r, err := f.Open()
		if err != nil {
			j.log.Error("Unable to process file in archive",
				zap.String("archive", arc), zap.String("file", f.FileHeader.Name), zap.Error(err))
			j.fail(fmt.Errorf("%s: %w", from, err))
			return nil
		}
		defer r.Close()

		data, err := io.ReadAll(r)
		if err != nil {
			j.log.Error("Unable to read file in archive",
				zap.String("archive", arc), zap.String("file", f.FileHeader.Name), zap.Error(err))
			j.fail(fmt.Errorf("%s: %w", from, err))
			return nil
		}
		j.processed++
		if err := j.processSheet(data, from, filepath.Join(pathOut, filepath.FromSlash(pathInArchive))); err != nil {
			j.log.Error("Unable to process file in archive",
				zap.String("archive", arc), zap.String("file", f.FileHeader.Name), zap.Error(err))
			j.fail(fmt.Errorf("%s: %w", from, err))
		}
		return nil
	})
}

func (j *job) processFile(path, rel string) {
	j.processed++
	data, err := os.ReadFile(path)
	if err == nil {
		err = j.processSheet(data, path, rel)
	}
	if err != nil {
		j.log.Error("Unable to process file", zap.String("file", path), zap.Error(err))
		j.fail(fmt.Errorf("%s: %w", path, err))
	}
}

// processSheet scopes a single stylesheet. "from" identifies stylesheet
// origin and takes part in hashed prefix, "rel" is its path relative to the
// processed directory or archive (always including file name).
func (j *job) processSheet(data []byte, from, rel string) (rerr error) {
	var outputName string

	j.log.Debug("Scoping starting", zap.String("from", from))
	defer func(start time.Time) {
		if r := recover(); r != nil {
			j.log.Error("Scoping ended with panic",
				zap.Any("panic", r), zap.Duration("elapsed", time.Since(start)), zap.String("from", from), zap.ByteString("stack", debug.Stack()))
			rerr = fmt.Errorf("scoping panic: %v", r)
		} else if rerr == nil {
			j.log.Info("Scoping completed", zap.Duration("elapsed", time.Since(start)), zap.String("from", from), zap.String("to", outputName))
		}
	}(time.Now())

	cs, err := detectCharset(data, j.env.CodePage)
	if err != nil {
		return err
	}
	text, err := cs.decode(data)
	if err != nil {
		return err
	}

	sheet := j.parser.Parse(text, from)
	res := j.engine.Process(sheet)
	for _, w := range res.Warnings {
		j.log.Warn("Stylesheet diagnostic", zap.String("file", from), zap.Int("line", w.Line), zap.Int("column", w.Column),
			zap.String("plugin", w.Plugin), zap.String("text", w.Text))
	}
	if j.env.Strict && len(res.Warnings) > 0 {
		return fmt.Errorf("%w: %d diagnostic(s)", ErrDiagnostics, len(res.Warnings))
	}

	out, err := cs.encode([]byte(sheet.String()))
	if err != nil {
		return err
	}

	name := filepath.ToSlash(rel)
	j.env.Rpt.StoreData("source/"+name, data)
	j.env.Rpt.StoreData("scoped/"+name, out)

	if j.env.Stdout {
		outputName = "<stdout>"
		_, err := io.Copy(j.out, bytes.NewReader(out))
		return err
	}

	outputName = j.outputPath(rel, sheet)
	if err := j.prepareOutput(outputName); err != nil {
		return err
	}
	if err := os.WriteFile(outputName, out, 0644); err != nil {
		return fmt.Errorf("unable to write output: %w", err)
	}
	return nil
}

// outputPath uses configured template when possible, falling back to the
// source name.
func (j *job) outputPath(rel string, sheet *css.Stylesheet) string {
	if j.env.Cfg.Files.OutputNameTemplate != "" {
		if name := buildTemplatedOutputPath(newValues(rel, sheet, j.engine.Options()), j.dst, j.env); name != "" {
			return name
		}
	}
	return buildOutputPath(rel, j.dst, j.env)
}

func (j *job) prepareOutput(name string) error {
	if _, err := os.Stat(name); err == nil {
		if !j.env.Overwrite {
			return fmt.Errorf("output file already exists: %s", name)
		}
		j.log.Warn("Overwriting existing file", zap.String("file", name))
		return nil
	} else if !os.IsNotExist(err) {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(name), 0755); err != nil {
		return fmt.Errorf("unable to create output directory: %w", err)
	}
	return nil
}
