// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package api

import (
	"bytes"
	"fmt"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
)

var (
	markdown = goldmark.New(
		goldmark.WithExtensions(extension.GFM),
		goldmark.WithRendererOptions(html.WithHardWraps()),
	)

	// bodyPolicy allows user-generated formatting and strips scripts,
	// handlers and unsafe URLs.
	bodyPolicy = bluemonday.UGCPolicy().AddTargetBlankToFullyQualifiedLinks(true)
)

// renderBody converts an article body from Markdown to sanitized HTML.
func renderBody(body string) (string, error) {
	if body == "" {
		return "", nil
	}
	var buf bytes.Buffer
	if err := markdown.Convert([]byte(body), &buf); err != nil {
		return "", fmt.Errorf("rendering markdown: %w", err)
	}
	return bodyPolicy.Sanitize(buf.String()), nil
}
