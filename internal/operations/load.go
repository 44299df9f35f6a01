package operations

import (
	"context"
	"fmt"
	"strings"

	"evalgo.org/rdfendpoint/internal/domain"
	"evalgo.org/rdfendpoint/internal/helpers"
	"evalgo.org/rdfendpoint/internal/store"
)

// multipleCottasMessage is printed when serve gets several COTTAS files.
const multipleCottasMessage = "🚫 you can't load multiple '.cottas' files at the same time. Use the compress command to merge them into one file."

// LoadFiles glob-expands every pattern and loads each match into s,
// printing the running triple count after each file. Patterns without a
// match are reported and skipped. It returns the number of files loaded.
func (b BaseHandler) LoadFiles(ctx context.Context, s store.Store, patterns []string) (int, error) {
	matches, err := helpers.ExpandPatterns(patterns)
	if err != nil {
		return 0, err
	}

	loaded := 0
	for _, m := range matches {
		if len(m.Files) == 0 {
			b.Console.Warn("⚠️ No file matches %s", b.Console.Bold(m.Pattern))
			continue
		}
		for _, file := range m.Files {
			if err := ctx.Err(); err != nil {
				return loaded, err
			}
			if err := s.Load(ctx, file); err != nil {
				return loaded, domain.NewOperationError("load", fmt.Sprintf("failed to load %s", file), err)
			}
			n, err := s.Len(ctx)
			if err != nil {
				return loaded, domain.NewOperationError("load", "failed to count triples", err)
			}
			loaded++
			b.Console.Info("📥️ Loaded triples from %s, for a total of %s", b.Console.Bold(file), b.Console.Bold(n))
			b.Log.WithField("file", file).WithField("triples", n).Debug("File loaded")
		}
	}
	return loaded, nil
}

// openForServe picks the store for the serve action. A single COTTAS
// argument is served directly and never globbed.
func (b BaseHandler) openForServe(ctx context.Context, task domain.Task) (store.Store, error) {
	cottasFiles, others := helpers.SplitCottas(task.Files)
	if len(cottasFiles) > 1 {
		return nil, domain.NewUsageError("%s", multipleCottasMessage)
	}
	if len(cottasFiles) == 1 {
		path := cottasFiles[0]
		b.Console.Info("📦 Loading COTTAS file → %s", b.Console.Bold(path))
		if len(others) > 0 {
			b.Console.Warn("Ignoring other file arguments when serving a COTTAS file: %s", strings.Join(others, ", "))
		}
		if task.Store.Backend != domain.BackendDefault {
			b.Console.Warn("--store %s is ignored, COTTAS files are served by the cottas backend", task.Store.Backend)
		}
		return store.OpenCottas(path)
	}

	s, err := b.Stores.Open(ctx, task.Store)
	if err != nil {
		return nil, err
	}
	if _, err := b.LoadFiles(ctx, s, task.Files); err != nil {
		_ = s.Close()
		return nil, err
	}
	return s, nil
}
