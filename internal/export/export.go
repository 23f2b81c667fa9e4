// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/morganforge/tllm/internal/model"
	"github.com/morganforge/tllm/internal/store"
	"github.com/morganforge/tllm/internal/util"
)

// =============================================================================
// EXPORT INTERFACE
// =============================================================================

// Exporter converts one conversation into a target format.
type Exporter interface {
	// Export renders the conversation and returns the file contents.
	Export(conv *model.Conversation) ([]byte, error)

	// FileExtension returns the extension for the format (e.g. ".md").
	FileExtension() string

	// MimeType returns the MIME type for the format.
	MimeType() string
}

// ForFormat returns the exporter for a format name. Unknown names fall back
// to markdown.
func ForFormat(format string) Exporter {
	switch format {
	case "json":
		return NewJSONExporter()
	default:
		return NewMarkdownExporter()
	}
}

// =============================================================================
// BULK EXPORT
// =============================================================================

// WriteAll renders every stored conversation into dir, one file each, and
// returns how many were written. Files are written atomically so an
// interrupted export never leaves partial documents.
func WriteAll(s *store.Store, dir string, exporter Exporter) (int, error) {
	count := 0
	err := s.ExportAll(func(conv *model.Conversation) error {
		content, err := exporter.Export(conv)
		if err != nil {
			return fmt.Errorf("export %s: %w", conv.ID, err)
		}

		path := filepath.Join(dir, exportFilename(conv, exporter.FileExtension()))
		if err := util.AtomicWriteFile(path, content, 0644); err != nil {
			return fmt.Errorf("write %s: %w", path, err)
		}
		count++
		return nil
	})
	return count, err
}

// exportFilename derives a stable, collision-free filename for a
// conversation. The created-at stamp keeps names readable; the id suffix
// keeps conversations sharing a title and timestamp from overwriting each
// other.
func exportFilename(conv *model.Conversation, ext string) string {
	slug := util.Slug(conv.Title, 5)
	if slug == "" {
		slug = "conversation"
	}
	return fmt.Sprintf("%s_%s_%s%s", slug, conv.CreatedAt.Format("20060102_150405"), shortID(conv.ID), ext)
}

// shortID compacts a conversation id into a filename-safe suffix.
func shortID(id string) string {
	id = strings.TrimPrefix(id, "conv_")
	id = strings.ReplaceAll(id, "-", "")
	if len(id) > 8 {
		id = id[:8]
	}
	return id
}

// formatTimestamp formats a timestamp for display in exported documents.
func formatTimestamp(t time.Time) string {
	return t.Format("2006-01-02 15:04:05")
}
