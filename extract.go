package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync"

	"github.com/rs/zerolog/log"
	sitter "github.com/smacker/go-tree-sitter"
	"github.com/spf13/cobra"

	"github.com/phobologic/apicurate/internal/discover"
	"github.com/phobologic/apicurate/internal/lang"
	"github.com/phobologic/apicurate/internal/model"
	"github.com/phobologic/apicurate/internal/parse"
)

const defaultMaxFileSize = 1_000_000 // 1 MB

func newExtractCmd(a *app) *cobra.Command {
	var (
		name         string
		pkgVersion   string
		out          string
		maxFileSize  int64
		includeTests bool
	)
	cmd := &cobra.Command{
		Use:   "extract DIR",
		Short: "Write the API snapshot of a Python package directory",
		Long: `Parse every Python file of the package rooted at DIR and write its API
snapshot as JSON: modules, classes, methods, functions and their parameters
with defaults, type hints, docstrings and decorators.

.gitignore is honoured, and inside a git checkout only files git knows about
are read. Test modules are skipped unless --include-tests is given.`,
		Example: `  apicurate extract ./src/lib --out api.json
  apicurate extract . --name lib --version 1.4.0`,
		Args: cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			root, err := filepath.Abs(args[0])
			if err != nil {
				return fmt.Errorf("resolving root: %w", err)
			}
			info, err := os.Stat(root)
			if err != nil {
				return fmt.Errorf("root path: %w", err)
			}
			if !info.IsDir() {
				return fmt.Errorf("%s: not a directory", root)
			}
			if name == "" {
				name = filepath.Base(root)
			}

			files, err := discover.Files(root, discover.Options{
				Package:      name,
				IncludeTests: includeTests,
				MaxFileSize:  maxFileSize,
			})
			if err != nil {
				return fmt.Errorf("discovering files: %w", err)
			}
			if len(files) == 0 {
				return fmt.Errorf("no Python files found in %s", root)
			}

			raw := parse.Package(name, pkgVersion, extractConcurrent(root, files))
			if _, err := model.FromRaw(raw); err != nil {
				return fmt.Errorf("extracted snapshot is invalid: %w", err)
			}

			data, err := json.MarshalIndent(raw, "", "  ")
			if err != nil {
				return fmt.Errorf("encoding snapshot: %w", err)
			}
			data = append(data, '\n')
			if out == "" {
				_, err = a.stdout.Write(data)
				return err
			}
			if err := os.WriteFile(out, data, 0o644); err != nil {
				return fmt.Errorf("writing %s: %w", out, err)
			}
			_, _ = fmt.Fprintf(a.stderr, "wrote %d modules to %s\n", len(raw.Modules), out)
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "package name (default: the directory name)")
	cmd.Flags().StringVar(&pkgVersion, "version", "", "package version recorded in the snapshot")
	cmd.Flags().StringVarP(&out, "out", "o", "", "output file (default: stdout)")
	cmd.Flags().Int64Var(&maxFileSize, "max-file-size", defaultMaxFileSize, "skip files larger than this many bytes")
	cmd.Flags().BoolVar(&includeTests, "include-tests", false, "also extract test modules")
	return cmd
}

// extractConcurrent parses files on a worker pool and returns their module
// declarations in file order. Files that cannot be read are skipped, and two
// files mapping to the same module (a.py next to a/__init__.py) keep the
// first.
func extractConcurrent(root string, files []discover.FileEntry) []*model.RawDeclaration {
	type result struct {
		index int
		mod   *model.RawDeclaration
	}

	numWorkers := runtime.GOMAXPROCS(0)
	if numWorkers > len(files) {
		numWorkers = len(files)
	}

	work := make(chan int, len(files))
	results := make(chan result, len(files))

	var wg sync.WaitGroup

	for range numWorkers {
		wg.Add(1)
		go func() {
			defer wg.Done()

			// Each goroutine gets its own parser
			parsers := make(map[string]*parserPair)

			for idx := range work {
				f := files[idx]
				pp, ok := parsers[f.Language]
				if !ok {
					l := lang.Languages[f.Language]
					q, err := l.DefinitionQuery()
					if err != nil {
						log.Warn().Err(err).Str("language", f.Language).Msg("failed to compile query")
						continue
					}
					pp = &parserPair{lang: l, parser: l.NewParser(), query: q}
					parsers[f.Language] = pp
				}

				source, err := os.ReadFile(filepath.Join(root, f.Path))
				if err != nil {
					log.Warn().Err(err).Str("path", f.Path).Msg("skipping file")
					continue
				}

				results <- result{
					index: idx,
					mod:   parse.ExtractModule(pp.lang, pp.parser, pp.query, source, f.Module),
				}
			}
		}()
	}

	for i := range files {
		work <- i
	}
	close(work)

	go func() {
		wg.Wait()
		close(results)
	}()

	// Collect results in original order
	indexed := make([]*model.RawDeclaration, len(files))
	for r := range results {
		indexed[r.index] = r.mod
	}

	seen := make(map[string]bool)
	var mods []*model.RawDeclaration
	for i, m := range indexed {
		if m == nil {
			continue
		}
		if seen[m.Name] {
			log.Warn().Str("path", files[i].Path).Str("module", m.Name).Msg("duplicate module skipped")
			continue
		}
		seen[m.Name] = true
		mods = append(mods, m)
	}
	log.Debug().Int("files", len(files)).Int("modules", len(mods)).Msg("extracted")
	return mods
}

type parserPair struct {
	lang   *lang.Language
	parser *sitter.Parser
	query  *sitter.Query
}
