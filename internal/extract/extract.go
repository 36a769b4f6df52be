// Package extract pulls metadata and plain text out of document files
// attached to proposals, routing each file by extension to the right
// external tool. PDF support shells out to poppler's pdfinfo/pdftotext.
package extract

import (
	"context"
	"os"
	"os/exec"
	"regexp"
	"time"

	"zonewatch/internal/dispatch"
	"zonewatch/internal/errors"
	"zonewatch/internal/util"
)

var creationDatePattern = regexp.MustCompile(`CreationDate:\s+(.*?)\n`)

// pdfinfo date layouts, most common first.
var pdfinfoLayouts = []string{
	"Mon Jan _2 15:04:05 2006 MST",
	"Mon Jan _2 15:04:05 2006",
	time.UnixDate,
	time.ANSIC,
}

// Extractor routes document files to per-format handlers. The zero value
// is not usable; construct with New.
type Extractor struct {
	published *dispatch.Table[string, time.Time]
	encoding  *dispatch.Table[string, string]
	text      *dispatch.Table[textArgs, bool]
}

type textArgs struct {
	path       string
	outputPath string
}

// New builds an extractor with the built-in PDF handlers registered.
func New() *Extractor {
	e := &Extractor{}

	e.published = dispatch.New[string, time.Time](dispatch.ExtKey).
		Register(pdfPublishedDate, "pdf").
		Default(func(string) (time.Time, error) { return time.Time{}, nil })

	// TODO: sniff the PDF producer from pdfinfo output and pick the
	// encoding per producer instead of assuming ISO-8859-9.
	e.encoding = dispatch.New[string, string](dispatch.ExtKey).
		Register(func(string) (string, error) { return "ISO-8859-9", nil }, "pdf").
		Default(func(string) (string, error) { return "utf-8", nil })

	e.text = dispatch.New[textArgs, bool](func(args textArgs) string {
		return dispatch.ExtKey(args.path)
	}).Register(e.pdfExtractText, "pdf")

	return e
}

// PublishedDate determines when a document was authored. Formats without
// a registered handler report a zero time.
func (e *Extractor) PublishedDate(path string) (time.Time, error) {
	return e.published.Dispatch(path)
}

// Encoding returns the text encoding to assume for a document.
func (e *Extractor) Encoding(path string) (string, error) {
	return e.encoding.Dispatch(path)
}

// Fingerprint returns the document's content checksum. Callers use it to
// skip re-processing a file whose contents have not changed.
func (e *Extractor) Fingerprint(path string) (string, error) {
	return util.CalculateFileChecksum(path)
}

// ExtractText writes the document's plain text to outputPath and reports
// whether extraction succeeded. Unsupported formats return a dispatch
// error rather than false.
func (e *Extractor) ExtractText(path, outputPath string) (bool, error) {
	return e.text.Dispatch(textArgs{path: path, outputPath: outputPath})
}

func pdfPublishedDate(path string) (time.Time, error) {
	out, err := exec.CommandContext(context.Background(), "pdfinfo", path).Output()
	if err != nil {
		return time.Time{}, errors.Wrap(err, "pdfinfo")
	}

	if m := creationDatePattern.FindSubmatch(out); m != nil {
		if t, ok := parsePdfinfoDate(string(m[1])); ok {
			return t, nil
		}
	}

	// No parseable creation date; fall back to the file's mtime.
	info, err := os.Stat(path)
	if err != nil {
		return time.Time{}, errors.Wrap(err, "stat")
	}

	return info.ModTime(), nil
}

func parsePdfinfoDate(s string) (time.Time, bool) {
	for _, layout := range pdfinfoLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}

	return time.Time{}, false
}

func (e *Extractor) pdfExtractText(args textArgs) (bool, error) {
	enc, err := e.Encoding(args.path)
	if err != nil {
		return false, err
	}

	cmd := exec.CommandContext(context.Background(), "pdftotext", "-enc", enc, args.path, args.outputPath)
	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return false, nil
		}

		return false, errors.Wrap(err, "pdftotext")
	}

	return true, nil
}
