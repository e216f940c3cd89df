// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package importer

import (
	"bufio"
	"bytes"
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/poiesic/docraptor/core"
)

const (
	// DefaultBatchSize is the number of documents written per batch.
	DefaultBatchSize = 50

	// LocalSource is the metadata source of imported files.
	LocalSource = "local"
)

// DefaultExtensions lists the file types picked up by an import.
var DefaultExtensions = []string{".md", ".markdown", ".mdx", ".txt", ".rst"}

// FileIterator walks a directory tree and yields documents in batches.
type FileIterator struct {
	root       string
	batchSize  int
	extensions []string
}

// NewFileIterator creates an iterator over root.
// batchSize: number of documents per batch (defaults to DefaultBatchSize when <= 0)
func NewFileIterator(root string, batchSize int, extensions []string) *FileIterator {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	if len(extensions) == 0 {
		extensions = DefaultExtensions
	}
	return &FileIterator{
		root:       root,
		batchSize:  batchSize,
		extensions: extensions,
	}
}

// Files returns the matching file paths in lexical order.
func (it *FileIterator) Files(ctx context.Context) ([]string, error) {
	var files []string
	err := filepath.WalkDir(it.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() {
			if path != it.root && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if slices.Contains(it.extensions, strings.ToLower(filepath.Ext(path))) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return files, nil
}

// ForEach reads files and calls fn for each batch of documents.
// Blank files are skipped and reported through skip.
// Iteration stops on the first error from fn or when all files are processed.
func (it *FileIterator) ForEach(ctx context.Context, files []string, skip func(path string), fn func([]core.Document) error) error {
	batch := make([]core.Document, 0, it.batchSize)
	for _, path := range files {
		if err := ctx.Err(); err != nil {
			return err
		}

		doc, err := ReadDocument(path)
		if err != nil {
			return err
		}
		if doc.IsBlank() {
			if skip != nil {
				skip(path)
			}
			continue
		}

		batch = append(batch, doc)
		if len(batch) == it.batchSize {
			if err := fn(batch); err != nil {
				return err
			}
			batch = make([]core.Document, 0, it.batchSize)
		}
	}

	if len(batch) > 0 {
		return fn(batch)
	}
	return nil
}

// ReadDocument loads a file as a document. The title is the first markdown
// heading, or the file name without extension.
func ReadDocument(path string) (core.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return core.Document{}, err
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}

	return core.Document{
		Content: string(data),
		Metadata: core.Metadata{
			Title:   titleFor(path, data),
			URL:     "file://" + filepath.ToSlash(abs),
			Source:  LocalSource,
			Version: core.DefaultVersion,
		},
	}, nil
}

func titleFor(path string, data []byte) string {
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if heading, ok := strings.CutPrefix(line, "# "); ok {
			if heading = strings.TrimSpace(heading); heading != "" {
				return heading
			}
		}
		break
	}
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
