// Package upload classifies uploaded files and enforces the per-category
// MIME allow-list and size ceilings.
package upload

import (
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

type Category string

const (
	CategoryImage Category = "image"
	CategoryPDF   Category = "pdf"
	CategoryVideo Category = "video"
	CategoryOther Category = "other"
)

// sniffLen is how many leading bytes are inspected for content detection.
const sniffLen = 3072

var allowed = map[string]Category{
	"image/jpeg":      CategoryImage,
	"image/png":       CategoryImage,
	"image/gif":       CategoryImage,
	"image/webp":      CategoryImage,
	"application/pdf": CategoryPDF,
	"video/mp4":       CategoryVideo,
	"video/webm":      CategoryVideo,
	"video/quicktime": CategoryVideo,
}

// CategoryOf maps a MIME type onto a file category. Anything outside the
// allow-list is CategoryOther.
func CategoryOf(mime string) Category {
	mime = strings.ToLower(strings.TrimSpace(mime))
	if i := strings.IndexByte(mime, ';'); i >= 0 {
		mime = strings.TrimSpace(mime[:i])
	}
	if c, ok := allowed[mime]; ok {
		return c
	}
	return CategoryOther
}

type Limits struct {
	Image int64
	PDF   int64
	Video int64
}

func DefaultLimits() Limits {
	return Limits{Image: 5 << 20, PDF: 10 << 20, Video: 50 << 20}
}

// AdminLimits allows larger videos for uploads made from the back-office.
func AdminLimits() Limits {
	l := DefaultLimits()
	l.Video = 100 << 20
	return l
}

func (l Limits) Max(c Category) int64 {
	switch c {
	case CategoryImage:
		return l.Image
	case CategoryPDF:
		return l.PDF
	case CategoryVideo:
		return l.Video
	}
	return 0
}

// RejectError describes why a single file was not accepted.
type RejectError struct {
	Filename string `json:"filename"`
	Reason   string `json:"reason"`
}

func (e *RejectError) Error() string {
	return fmt.Sprintf("%s: %s", e.Filename, e.Reason)
}

// Accepted is a file that passed Check.
type Accepted struct {
	Header   *multipart.FileHeader
	Category Category
	MIME     string
}

// Detect returns the MIME type sniffed from content. The declared type is
// only trusted when the content is unrecognised and the declaration does
// not claim an image or a PDF, so a spoofed header never passes the
// image and paper checks.
func Detect(head []byte, declared string) string {
	sniffed := octetStream
	if len(head) > 0 {
		sniffed = baseType(mimetype.Detect(head).String())
	}
	if sniffed != octetStream {
		return sniffed
	}
	switch CategoryOf(declared) {
	case CategoryImage, CategoryPDF:
		return sniffed
	}
	if declared == "" {
		return sniffed
	}
	return baseType(declared)
}

const octetStream = "application/octet-stream"

func baseType(mime string) string {
	if i := strings.IndexByte(mime, ';'); i >= 0 {
		mime = mime[:i]
	}
	return strings.ToLower(strings.TrimSpace(mime))
}

// Check validates one file's type and size. want may be empty to accept any
// allow-listed category.
func Check(name string, size int64, mime string, want Category, limits Limits) (Category, error) {
	cat := CategoryOf(mime)
	if cat == CategoryOther {
		return cat, &RejectError{Filename: name, Reason: fmt.Sprintf("file type %q is not allowed", mime)}
	}
	if want != "" && cat != want {
		return cat, &RejectError{Filename: name, Reason: fmt.Sprintf("expected a %s file, got %s", want, cat)}
	}
	if max := limits.Max(cat); size > max {
		return cat, &RejectError{Filename: name, Reason: fmt.Sprintf("file exceeds the %s limit for %s files", humanSize(max), cat)}
	}
	return cat, nil
}

// CheckHeader validates an uploaded multipart file.
func CheckHeader(fh *multipart.FileHeader, want Category, limits Limits) (*Accepted, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()

	head := make([]byte, sniffLen)
	n, err := io.ReadFull(f, head)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return nil, err
	}
	mime := Detect(head[:n], fh.Header.Get("Content-Type"))

	cat, err := Check(fh.Filename, fh.Size, mime, want, limits)
	if err != nil {
		return nil, err
	}
	return &Accepted{Header: fh, Category: cat, MIME: mime}, nil
}

// CheckPath validates a local file, as done by the CLI before upload.
func CheckPath(path string, want Category, limits Limits) (Category, string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", "", err
	}
	defer f.Close()

	st, err := f.Stat()
	if err != nil {
		return "", "", err
	}
	head := make([]byte, sniffLen)
	n, err := io.ReadFull(f, head)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return "", "", err
	}
	mime := Detect(head[:n], "")
	cat, err := Check(filepath.Base(path), st.Size(), mime, want, limits)
	return cat, mime, err
}

// Filter splits files into accepted ones and rejections. Rejected files are
// dropped; the caller surfaces the rejection messages.
func Filter(files []*multipart.FileHeader, want Category, limits Limits) ([]*Accepted, []*RejectError) {
	var (
		kept     []*Accepted
		rejected []*RejectError
	)
	for _, fh := range files {
		acc, err := CheckHeader(fh, want, limits)
		if err != nil {
			if re, ok := err.(*RejectError); ok {
				rejected = append(rejected, re)
				continue
			}
			rejected = append(rejected, &RejectError{Filename: fh.Filename, Reason: err.Error()})
			continue
		}
		kept = append(kept, acc)
	}
	return kept, rejected
}

func humanSize(n int64) string {
	return fmt.Sprintf("%dMB", n>>20)
}
