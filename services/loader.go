package services

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"pdf-chat-backend/internal/apperr"
	"pdf-chat-backend/internal/logger"

	"github.com/ledongthuc/pdf"
)

// Page is the extracted text of one document page, numbered from 1.
type Page struct {
	Number int
	Text   string
}

// LoadDocument reads a PDF, or a .txt/.md file as a single page.
func LoadDocument(path string) ([]Page, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".txt", ".md":
		return loadText(path)
	default:
		return LoadPDF(path)
	}
}

// LoadPDF extracts plain text per page. Pages without text are skipped.
func LoadPDF(path string) (pages []Page, err error) {
	// The pdf reader panics on some malformed inputs.
	defer func() {
		if r := recover(); r != nil {
			pages = nil
			err = apperr.New(apperr.ErrLoad, "services.LoadPDF", "malformed pdf %s: %v", path, r)
		}
	}()

	f, reader, err := pdf.Open(path)
	if err != nil {
		if f != nil {
			f.Close()
		}
		logger.Error("Failed to open PDF", "path", path, "error", err)
		return nil, apperr.Wrap(apperr.ErrLoad, "services.LoadPDF", fmt.Errorf("open %s: %w", path, err))
	}
	defer f.Close()

	fonts := make(map[string]*pdf.Font)
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(fonts)
		if err != nil {
			logger.Warn("Failed to extract page text", "path", path, "page", i, "error", err)
			continue
		}
		text = normalizePageText(text)
		if text == "" {
			continue
		}
		pages = append(pages, Page{Number: i, Text: text})
	}

	if len(pages) == 0 {
		return nil, apperr.New(apperr.ErrLoad, "services.LoadPDF", "no extractable text in %s", path)
	}
	logger.Info("Loaded PDF", "path", path, "pages", reader.NumPage(), "text_pages", len(pages))
	return pages, nil
}

func loadText(path string) ([]Page, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, apperr.Wrap(apperr.ErrLoad, "services.loadText", err)
	}
	text := normalizePageText(strings.ReplaceAll(string(data), "\r\n", "\n"))
	if text == "" {
		return nil, apperr.New(apperr.ErrLoad, "services.loadText", "%s is empty", path)
	}
	return []Page{{Number: 1, Text: text}}, nil
}

// FileChecksum returns the hex sha256 of the file contents.
func FileChecksum(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", apperr.Wrap(apperr.ErrLoad, "services.FileChecksum", err)
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", apperr.Wrap(apperr.ErrLoad, "services.FileChecksum", err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
