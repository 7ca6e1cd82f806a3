package batch

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/ternarybob/arbor"
	"golang.org/x/sync/errgroup"

	"cppdecl/pkg/ast"
	"cppdecl/pkg/logger"
	"cppdecl/pkg/parser"
)

// Options control a batch run
type Options struct {
	// Workers bounds the number of files parsed at once; zero means 4
	Workers int
	// FileTimeout is the deadline for one file; zero means none
	FileTimeout time.Duration
	// FollowIncludes parses the files named by #include directives as well,
	// using Resolver to locate them
	FollowIncludes bool
	Resolver       IncludeResolver
	// ParserOptions are passed to every parser
	ParserOptions []parser.Option
	Logger        arbor.ILogger
}

// Result is the outcome for one file. Err is set when the file could not be
// read or its parse was cut short by the deadline; Tree holds whatever was
// recognized.
type Result struct {
	File     string
	Tree     *ast.Tree
	Err      error
	Duration time.Duration
	// Included is set for files reached by following includes
	Included bool
}

// Run parses files in parallel. Results keep the input order; files reached
// through includes follow in discovery order. Per-file failures are reported
// in the results; the returned error is set only when ctx ends the run.
func Run(ctx context.Context, files []string, opts Options) ([]Result, error) {
	if opts.Workers <= 0 {
		opts.Workers = 4
	}
	if opts.Logger == nil {
		opts.Logger = logger.Discard()
	}
	if opts.FollowIncludes && opts.Resolver == nil {
		opts.Resolver = NewDirResolver()
	}

	visited := make(map[string]bool)
	var wave []string
	for _, f := range files {
		f = filepath.Clean(f)
		if !visited[f] {
			visited[f] = true
			wave = append(wave, f)
		}
	}

	var results []Result
	included := false
	for len(wave) > 0 {
		batch, err := parseAll(ctx, wave, opts)
		for i := range batch {
			batch[i].Included = included
		}
		results = append(results, batch...)
		if err != nil {
			return results, err
		}
		if !opts.FollowIncludes {
			break
		}

		wave = nil
		for _, r := range batch {
			for _, inc := range includesOf(r, opts.Resolver) {
				if !visited[inc] {
					visited[inc] = true
					wave = append(wave, inc)
				}
			}
		}
		included = true
	}
	return results, nil
}

// parseAll parses one wave of files on a bounded pool
func parseAll(ctx context.Context, files []string, opts Options) ([]Result, error) {
	results := make([]Result, len(files))
	var g errgroup.Group
	g.SetLimit(opts.Workers)

	for i, file := range files {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				results[i] = Result{File: file, Err: err}
				return err
			}
			results[i] = parseFile(ctx, file, opts)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return results, err
	}
	return results, ctx.Err()
}

func parseFile(ctx context.Context, file string, opts Options) Result {
	start := time.Now()
	result := Result{File: file}

	content, err := os.ReadFile(file)
	if err != nil {
		result.Err = fmt.Errorf("failed to read file %s: %w", file, err)
		opts.Logger.Warn().Err(err).Str("file", file).Msg("Skipping unreadable file")
		return result
	}

	if opts.FileTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.FileTimeout)
		defer cancel()
	}

	tree, err := parser.New(opts.ParserOptions...).ParseContext(ctx, file, string(content))
	result.Tree = tree
	result.Duration = time.Since(start)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			err = fmt.Errorf("parsing %s exceeded %s: %w", file, opts.FileTimeout, err)
		}
		result.Err = err
		opts.Logger.Warn().Err(err).Str("file", file).Msg("Parse interrupted")
		return result
	}

	opts.Logger.Info().
		Str("file", file).
		Int("declarations", len(tree.Declarations)).
		Int("diagnostics", len(tree.Diagnostics)).
		Str("duration", result.Duration.String()).
		Msg("File parsed")
	return result
}

// includesOf resolves the includes recorded in a parsed file
func includesOf(r Result, resolver IncludeResolver) []string {
	if r.Tree == nil {
		return nil
	}
	var out []string
	for _, d := range r.Tree.DeclarationsByKind(ast.KindInclude) {
		var path string
		var ok bool
		if d.System {
			path, ok = resolver.ResolveAngled(r.File, d.Target)
		} else {
			path, ok = resolver.ResolveQuote(r.File, d.Target)
		}
		if ok {
			out = append(out, path)
		}
	}
	return out
}

// Summary counts the outcome of a run
type Summary struct {
	Files        int
	Failed       int
	Declarations int
	Diagnostics  int
}

// Summarize totals a run's results
func Summarize(results []Result) Summary {
	var s Summary
	for _, r := range results {
		s.Files++
		if r.Err != nil {
			s.Failed++
		}
		if r.Tree != nil {
			s.Declarations += len(r.Tree.Declarations)
			s.Diagnostics += len(r.Tree.Diagnostics)
		}
	}
	return s
}
