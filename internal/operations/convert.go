package operations

import (
	"context"
	"fmt"

	"evalgo.org/rdfendpoint/internal/domain"
	"evalgo.org/rdfendpoint/internal/graph"
	"evalgo.org/rdfendpoint/internal/helpers"
	"evalgo.org/rdfendpoint/internal/rdfio"
	"evalgo.org/rdfendpoint/internal/store"
	"evalgo.org/rdfendpoint/internal/store/cottas"
	"evalgo.org/rdfendpoint/internal/store/memory"
)

// ConvertHandler merges the inputs and writes them in the format picked by the output suffix.
type ConvertHandler struct {
	BaseHandler
}

// Handle executes the convert action
func (h *ConvertHandler) Handle(ctx context.Context, task domain.Task) (map[string]interface{}, error) {
	output := task.Output
	if output == "" {
		output = helpers.DefaultConvertOut
	}

	s, err := h.Stores.Open(ctx, task.Store)
	if err != nil {
		return nil, err
	}
	defer func() { _ = s.Close() }()

	files, err := h.LoadFiles(ctx, s, task.Files)
	if err != nil {
		return nil, err
	}
	if err := store.WriteFile(ctx, s, output); err != nil {
		return nil, domain.NewOperationError("convert", fmt.Sprintf("failed to write %s", output), err)
	}
	n, err := s.Len(ctx)
	if err != nil {
		return nil, domain.NewOperationError("convert", "failed to count triples", err)
	}

	format := rdfio.OutputFormat(output)
	h.Console.Info("💾 Wrote %s triples to %s as %s", h.Console.Bold(n), h.Console.Bold(output), format)

	result := Result()
	SetResult(result, "output", output)
	SetResult(result, "format", string(format))
	SetResult(result, "files", files)
	SetResult(result, "triples", n)
	return result, nil
}

// CompressHandler merges the inputs in memory and writes a COTTAS file.
type CompressHandler struct {
	BaseHandler
}

// Handle executes the compress action
func (h *CompressHandler) Handle(ctx context.Context, task domain.Task) (map[string]interface{}, error) {
	output := task.Output
	if output == "" {
		output = helpers.DefaultCompressOut
	}
	index := task.Index
	if index == "" {
		index = helpers.DefaultCottasIndex
	}
	if err := helpers.ValidateIndex(index); err != nil {
		return nil, err
	}

	local := store.NewLocal(domain.BackendDefault, memory.New(), nil, nil)
	files, err := h.LoadFiles(ctx, local, task.Files)
	if err != nil {
		return nil, err
	}
	quads, err := graph.All(ctx, local.Dataset())
	if err != nil {
		return nil, domain.NewOperationError("compress", "failed to read dataset", err)
	}

	n, err := cottas.WriteFile(ctx, output, quads, cottas.WriteOptions{Index: index})
	if err != nil {
		return nil, domain.NewOperationError("compress", fmt.Sprintf("failed to write %s", output), err)
	}
	if err := helpers.VerifyFileNotEmpty(output); err != nil {
		return nil, domain.NewOperationError("compress", "COTTAS output is missing", err)
	}
	h.Log.WithField("bytes", helpers.GetFileSize(output)).Debug("COTTAS file written")
	h.Console.Info("📦 Compressed %s triples into %s with index %s", h.Console.Bold(n), h.Console.Bold(output), index)

	result := Result()
	SetResult(result, "output", output)
	SetResult(result, "index", index)
	SetResult(result, "files", files)
	SetResult(result, "triples", n)
	return result, nil
}
