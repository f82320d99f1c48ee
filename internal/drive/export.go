package drive

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"path/filepath"
	"regexp"
	"strings"
)

const nativePrefix = "application/vnd.google-apps."

var ErrBadKind = errors.New("kind must be txt, csv or pdf")

// Exporter fetches file contents. Export converts Google-native files,
// Download returns the stored bytes of anything else.
type Exporter interface {
	Get(ctx context.Context, id string) (File, error)
	Export(ctx context.Context, id, mimeType string) ([]byte, error)
	Download(ctx context.Context, id string) ([]byte, error)
}

// Export converts f to kind (txt, csv or pdf). Spreadsheets asked for txt
// come out as csv. Binary files are downloaded as-is.
func Export(ctx context.Context, ex Exporter, f File, kind string) ([]byte, string, error) {
	if !strings.HasPrefix(f.MimeType, nativePrefix) {
		b, err := ex.Download(ctx, f.ID)
		return b, extFor(f.MimeType, "bin"), err
	}
	var target, ext string
	switch kind {
	case "txt":
		target, ext = "text/plain", "txt"
		if strings.Contains(f.MimeType, "spreadsheet") {
			target, ext = "text/csv", "csv"
		}
	case "csv":
		target, ext = "text/csv", "csv"
	case "pdf":
		target, ext = "application/pdf", "pdf"
	default:
		return nil, "", ErrBadKind
	}
	b, err := ex.Export(ctx, f.ID, target)
	return b, ext, err
}

var exportMap = map[string][2]string{
	nativePrefix + "document":     {"text/plain", "txt"},
	nativePrefix + "spreadsheet":  {"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", "xlsx"},
	nativePrefix + "presentation": {"application/vnd.openxmlformats-officedocument.presentationml.presentation", "pptx"},
	nativePrefix + "drawing":      {"image/png", "png"},
}

// DownloadByID fetches any file keeping its richest format: documents as
// text, sheets as xlsx, slides as pptx, other native files as pdf.
// It returns the sanitized output file name.
func DownloadByID(ctx context.Context, ex Exporter, id string) ([]byte, string, error) {
	f, err := ex.Get(ctx, id)
	if err != nil {
		return nil, "", err
	}
	base := Sanitize(f.Name)
	if strings.HasPrefix(f.MimeType, nativePrefix) {
		m, ok := exportMap[f.MimeType]
		if !ok {
			m = [2]string{"application/pdf", "pdf"}
		}
		b, err := ex.Export(ctx, id, m[0])
		return b, base + "." + m[1], err
	}
	b, err := ex.Download(ctx, id)
	if ext := extFor(f.MimeType, ""); ext != "" {
		return b, base + "." + ext, err
	}
	return b, base, err
}

func extFor(mimeType, def string) string {
	exts, _ := mime.ExtensionsByType(mimeType)
	if len(exts) == 0 {
		return def
	}
	return strings.TrimPrefix(exts[0], ".")
}

// OutputPath places text exports under data/raw (they feed ingestion) and
// everything else under data/downloads.
func OutputPath(root, name, ext string) string {
	sub := "downloads"
	if ext == "txt" || ext == "csv" {
		sub = "raw"
	}
	return filepath.Join(root, "data", sub, Sanitize(name)+"."+ext)
}

var (
	badChars = regexp.MustCompile(`[<>:"/\\|?*\x00-\x1F]+`)
	spaces   = regexp.MustCompile(`\s+`)
	reserved = map[string]bool{
		"CON": true, "PRN": true, "AUX": true, "NUL": true,
		"COM1": true, "COM2": true, "COM3": true, "COM4": true, "COM5": true,
		"COM6": true, "COM7": true, "COM8": true, "COM9": true,
		"LPT1": true, "LPT2": true, "LPT3": true, "LPT4": true, "LPT5": true,
		"LPT6": true, "LPT7": true, "LPT8": true, "LPT9": true,
	}
)

const maxName = 120

// Sanitize makes name safe as a file name on Windows and macOS.
func Sanitize(name string) string {
	name = badChars.ReplaceAllString(name, " ")
	name = strings.TrimSpace(spaces.ReplaceAllString(name, " "))
	name = strings.TrimRight(name, ". ")
	if reserved[strings.ToUpper(name)] {
		name = "_" + name
	}
	if r := []rune(name); len(r) > maxName {
		name = string(r[:maxName])
	}
	return name
}

func (f File) String() string {
	return fmt.Sprintf("%s | %s | %s | %s", f.Name, f.MimeType, f.ID, f.ModifiedTime)
}
