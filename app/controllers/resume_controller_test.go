package controllers

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRenderExportHTMLEscapesMarkup(t *testing.T) {
	t.Parallel()

	got := renderExportHTML("Jane Doe\n<script>alert(1)</script> & Partners")

	assert.True(t, strings.HasPrefix(got, "<!DOCTYPE html>"))
	assert.Contains(t, got, "Jane Doe")
	assert.NotContains(t, got, "<script>")
	assert.Contains(t, got, "&lt;script&gt;")
	assert.Contains(t, got, "&amp; Partners")
}

func TestRenderExportHTMLKeepsLineStructure(t *testing.T) {
	t.Parallel()

	got := renderExportHTML("EXPERIENCE\nAcme Corp, 2020-2024")

	// white-space:pre-wrap relies on the raw newlines surviving
	assert.Contains(t, got, "EXPERIENCE\nAcme Corp, 2020-2024")
}
