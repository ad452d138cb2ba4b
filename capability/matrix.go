// Package capability holds the static table of legal source→target
// conversion pairs. The table is asymmetric and per-format: a target is
// listed only when the conversion is practically implementable, so a
// missing pair is a caller error, never a converter failure.
package capability

import (
	"strings"

	"fileconverter/detect"
)

// Matrix maps (category, source format) to the ordered list of legal
// target formats. Built once at startup and never mutated.
type Matrix struct {
	targets map[detect.Category]map[string][]string
}

// imageTargets: every supported image source can reach every image format
// plus pdf.
var imageTargets = []string{"png", "jpg", "jpeg", "pdf", "bmp", "tiff", "gif", "webp", "ico"}

func New() *Matrix {
	m := &Matrix{targets: map[detect.Category]map[string][]string{
		detect.CategoryDocument: {
			"pdf":  {"pdf", "docx", "txt", "png", "jpg", "jpeg"},
			"docx": {"docx", "pdf", "txt", "md"},
			"txt":  {"txt", "md", "pdf", "docx"},
			"md":   {"md", "txt", "pdf", "docx"},
			"xlsx": {"xlsx", "pdf", "csv"},
			"xlsm": {"xlsx", "pdf", "csv"},
			"csv":  {"csv", "xlsx", "pdf"},
		},
		detect.CategoryImage: {},
	}}
	for _, src := range imageTargets {
		if src == "pdf" {
			continue
		}
		m.targets[detect.CategoryImage][src] = imageTargets
	}
	return m
}

// TargetsFor returns the legal target formats for a source, in preference
// order. Unknown categories or formats yield an empty list, never an error.
func (m *Matrix) TargetsFor(category detect.Category, format string) []string {
	byFormat, ok := m.targets[category]
	if !ok {
		return nil
	}
	targets, ok := byFormat[strings.ToLower(format)]
	if !ok {
		return nil
	}
	out := make([]string, len(targets))
	copy(out, targets)
	return out
}

// Supports reports whether converting source to target is legal.
// Same-format conversion is always legal and is defined as a byte copy.
func (m *Matrix) Supports(category detect.Category, source, target string) bool {
	source = strings.ToLower(source)
	target = strings.ToLower(target)
	if source == target {
		return true
	}
	for _, t := range m.TargetsFor(category, source) {
		if t == target {
			return true
		}
	}
	return false
}
