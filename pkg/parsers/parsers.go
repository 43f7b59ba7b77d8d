// Package parsers dispatches book files to the format parser registered for
// their extension, checks the sniffed content type against that extension,
// and fills gaps from the file name.
package parsers

import (
	"context"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/gabriel-vasile/mimetype"
	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"
	"github.com/shelfwatch/shelfwatch/pkg/cleanup"
	"github.com/shelfwatch/shelfwatch/pkg/errcodes"
	"github.com/shelfwatch/shelfwatch/pkg/mediafile"
	"github.com/shelfwatch/shelfwatch/pkg/metrics"
	"github.com/shelfwatch/shelfwatch/pkg/models"
)

// Parser extracts metadata from one family of file formats.
type Parser interface {
	Parse(ctx context.Context, path string) (*mediafile.ParsedMetadata, error)
	// Extensions lists the lower-case extensions handled, with leading dot.
	Extensions() []string
}

// MIMEChecker is implemented by parsers that restrict which sniffed content
// types are accepted for an extension. A nil or empty result accepts
// anything.
type MIMEChecker interface {
	MIMETypes(ext string) []string
}

// Func adapts a plain parse function to Parser and MIMEChecker.
type Func struct {
	Exts  []string
	MIMEs map[string][]string
	Fn    func(path string) (*mediafile.ParsedMetadata, error)
}

func (f Func) Parse(ctx context.Context, path string) (*mediafile.ParsedMetadata, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.WithStack(err)
	}
	return f.Fn(path)
}

func (f Func) Extensions() []string {
	return f.Exts
}

func (f Func) MIMETypes(ext string) []string {
	return f.MIMEs[ext]
}

type Registry struct {
	mu      sync.RWMutex
	parsers map[string]Parser
}

func NewRegistry(parsers ...Parser) *Registry {
	r := &Registry{parsers: map[string]Parser{}}
	for _, p := range parsers {
		r.Register(p)
	}
	return r
}

// Register adds p under each of its extensions, replacing any earlier
// parser for them.
func (r *Registry) Register(p Parser) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, ext := range p.Extensions() {
		r.parsers[normalizeExt(ext)] = p
	}
}

// ForExtension returns the parser for ext. Case is ignored and the leading
// dot is optional.
func (r *Registry) ForExtension(ext string) (Parser, error) {
	ext = normalizeExt(ext)
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.parsers[ext]
	if !ok {
		return nil, errcodes.UnsupportedFormat(ext)
	}
	return p, nil
}

// Supported returns every registered extension, sorted.
func (r *Registry) Supported() []string {
	r.mu.RLock()
	out := make([]string, 0, len(r.parsers))
	for ext := range r.parsers {
		out = append(out, ext)
	}
	r.mu.RUnlock()
	sort.Strings(out)
	return out
}

// Extension returns the registered extension path ends in. Compound
// extensions like ".fb2.zip" win over their last segment. Unregistered
// files get their plain lower-cased extension.
func (r *Registry) Extension(path string) string {
	base := strings.ToLower(filepath.Base(path))
	r.mu.RLock()
	defer r.mu.RUnlock()
	best := ""
	for ext := range r.parsers {
		if strings.HasSuffix(base, ext) && len(base) > len(ext) && len(ext) > len(best) {
			best = ext
		}
	}
	if best != "" {
		return best
	}
	return strings.ToLower(filepath.Ext(base))
}

// IsSupported reports whether a parser is registered for path's extension.
func (r *Registry) IsSupported(path string) bool {
	_, err := r.ForExtension(r.Extension(path))
	return err == nil
}

// Parse sniffs path, runs the parser registered for its extension and fills
// anything the file didn't say from its name.
func (r *Registry) Parse(ctx context.Context, path string) (*mediafile.ParsedMetadata, error) {
	log := logger.FromContext(ctx).Data(logger.Data{"path": path})

	ext := r.Extension(path)
	p, err := r.ForExtension(ext)
	if err != nil {
		return nil, err
	}
	format := strings.TrimPrefix(ext, ".")

	var allowed []string
	if mc, ok := p.(MIMEChecker); ok {
		allowed = mc.MIMETypes(ext)
	}
	mime, err := CheckMIME(path, allowed)
	if err != nil {
		metrics.FilesParsed.WithLabelValues(format, "rejected").Inc()
		return nil, err
	}

	md, err := p.Parse(ctx, path)
	if err != nil {
		metrics.FilesParsed.WithLabelValues(format, "error").Inc()
		return nil, errors.Wrapf(err, "failed to parse %s", filepath.Base(path))
	}
	if md == nil {
		md = &mediafile.ParsedMetadata{DataSource: models.DataSourceFile}
	}
	if md.DataSource == "" {
		md.DataSource = models.DataSourceFile
	}
	md.FillFrom(FromFilename(path))
	if md.Title == "" {
		md.Title = cleanup.StripExtension(filepath.Base(path))
	}
	md.MimeType = mime

	metrics.FilesParsed.WithLabelValues(format, "success").Inc()
	log.Debug("parsed file", logger.Data{"title": md.Title, "source": md.SourceForField("title")})
	return md, nil
}

// FromFilename returns what the file name alone says about a book.
func FromFilename(path string) *mediafile.ParsedMetadata {
	parsed := cleanup.ParseFilename(path)
	return &mediafile.ParsedMetadata{
		Title:        parsed.Title,
		Authors:      parsed.Authors,
		Series:       parsed.Series,
		SeriesNumber: parsed.Volume,
		DataSource:   models.DataSourceFilepath,
	}
}

// CheckMIME sniffs path and returns its content type. When allowed is not
// empty the sniffed type, or one of its ancestors, must be listed.
func CheckMIME(path string, allowed []string) (string, error) {
	detected, err := mimetype.DetectFile(path)
	if err != nil {
		return "", errors.WithStack(err)
	}
	if len(allowed) == 0 {
		return baseMIME(detected.String()), nil
	}
	for m := detected; m != nil; m = m.Parent() {
		got := baseMIME(m.String())
		for _, a := range allowed {
			if strings.EqualFold(got, a) {
				return baseMIME(detected.String()), nil
			}
		}
	}
	return "", errcodes.ValidationError("File content (" + baseMIME(detected.String()) + ") does not match its extension.")
}

func baseMIME(s string) string {
	s, _, _ = strings.Cut(s, ";")
	return strings.ToLower(strings.TrimSpace(s))
}

func normalizeExt(ext string) string {
	ext = strings.ToLower(strings.TrimSpace(ext))
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}
