package loam

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/aretw0/loam"
	"github.com/aretw0/loam/pkg/core"
	"github.com/clubdesk/formflow/pkg/schema"
)

// Export writes definitions into a Loam repository at path, one Markdown
// document per wizard. The description becomes the document body and the
// rest of the definition its frontmatter. Existing documents are kept unless
// overwrite is set. It returns the IDs of the documents written.
func Export(ctx context.Context, path string, overwrite bool, defs ...*schema.Definition) ([]string, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("invalid path: %w", err)
	}
	if err := os.MkdirAll(absPath, 0o755); err != nil {
		return nil, err
	}
	repo, err := loam.Init(absPath, loam.WithVersioning(false))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize loam: %w", err)
	}

	written := make([]string, 0, len(defs))
	for _, def := range defs {
		docID := def.ID + ".md"
		if !overwrite {
			if _, err := os.Stat(filepath.Join(absPath, docID)); err == nil {
				return written, fmt.Errorf("%s already exists", docID)
			}
		}
		meta, err := frontmatter(def)
		if err != nil {
			return written, fmt.Errorf("wizard %s: %w", def.ID, err)
		}
		if err := repo.Save(ctx, core.Document{ID: docID, Content: def.Description + "\n", Metadata: meta}); err != nil {
			return written, fmt.Errorf("failed to save %s: %w", docID, err)
		}
		written = append(written, docID)
	}
	return written, nil
}

// frontmatter renders the definition as plain JSON shapes without its
// description.
func frontmatter(def *schema.Definition) (core.Metadata, error) {
	data, err := json.Marshal(def)
	if err != nil {
		return nil, err
	}
	var meta core.Metadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, err
	}
	delete(meta, "description")
	return meta, nil
}
