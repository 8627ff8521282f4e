// Package cv turns a candidate's CV file into the plain text the evaluation
// prompt embeds.
package cv

import (
	"errors"
	"fmt"
	"html"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/nguyenthenguyen/docx"
)

// Load reads the CV at path and returns its extracted plain text. Supported
// formats are txt, md, pdf and docx. A CV with no extractable text is an
// error: evaluating against an empty CV would only produce garbage verdicts.
func Load(path string) (string, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return "", errors.New("cv file is required")
	}

	var (
		text string
		err  error
	)
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".txt", ".md":
		text, err = loadPlain(path)
	case ".pdf":
		text, err = loadPDF(path)
	case ".docx":
		text, err = loadDocx(path)
	default:
		return "", fmt.Errorf("unsupported cv format %q (want txt, md, pdf or docx)", ext)
	}
	if err != nil {
		return "", err
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return "", fmt.Errorf("cv file %s contains no extractable text", path)
	}

	return text, nil
}

func loadPlain(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read cv: %w", err)
	}
	return string(data), nil
}

func loadPDF(path string) (string, error) {
	file, reader, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("open cv pdf: %w", err)
	}
	defer func() {
		_ = file.Close()
	}()

	var builder strings.Builder
	for pageNum := 1; pageNum <= reader.NumPage(); pageNum++ {
		page := reader.Page(pageNum)
		if page.V.IsNull() {
			continue
		}
		content, err := page.GetPlainText(nil)
		if err != nil {
			return "", fmt.Errorf("extract text from cv pdf page %d: %w", pageNum, err)
		}
		builder.WriteString(content)
		builder.WriteString("\n")
	}

	return builder.String(), nil
}

var xmlTagRe = regexp.MustCompile(`<[^>]+>`)

func loadDocx(path string) (string, error) {
	doc, err := docx.ReadDocxFile(path)
	if err != nil {
		return "", fmt.Errorf("open cv docx: %w", err)
	}
	defer func() {
		_ = doc.Close()
	}()

	// GetContent returns the raw document XML.
	return docxText(doc.Editable().GetContent()), nil
}

// docxText flattens document XML to plain text: paragraph closes become
// line breaks, the remaining tags are stripped, and XML entities are
// decoded. Entities decode last so escaped text that looks like markup
// ("&lt;nil&gt;") survives the tag strip.
func docxText(content string) string {
	content = strings.ReplaceAll(content, "</w:p>", "\n")
	content = xmlTagRe.ReplaceAllString(content, "")
	return html.UnescapeString(content)
}
