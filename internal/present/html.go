package present

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"log/slog"
	"strconv"

	"finx/internal/cache"
	"finx/internal/ledger"
	applog "finx/internal/log"
)

const (
	IndexTemplate = "index.html"
	TableTemplate = "ledger_table.html"
)

// ErrTemplatesMissing is returned when a required template is not embedded.
var ErrTemplatesMissing = errors.New("required template missing")

// HTML renders ledger views with html/template and caches the table
// fragment per revision and filter mode.
type HTML struct {
	templates *template.Template
	fragments cache.Cache[[]byte]
	logger    *slog.Logger
}

// NewHTML parses templates/*.html from fsys. fragments may be nil to
// disable caching.
func NewHTML(fsys fs.FS, fragments cache.Cache[[]byte], logger *slog.Logger) (*HTML, error) {
	t, err := template.ParseFS(fsys, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	for _, name := range []string{IndexTemplate, TableTemplate} {
		if t.Lookup(name) == nil {
			return nil, fmt.Errorf("%w: %s", ErrTemplatesMissing, name)
		}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &HTML{templates: t, fragments: fragments, logger: logger.With(applog.FieldComponent, applog.ComponentTemplate)}, nil
}

// CacheKey identifies the fragment for v.
func CacheKey(v ledger.View) string {
	return strconv.FormatInt(v.Revision, 10) + ":" + v.Mode.String()
}

// Render pre-renders the fragment for the active mode so the next request
// is served from cache.
func (h *HTML) Render(ctx context.Context, v ledger.View) error {
	_, err := h.Fragment(ctx, v)
	return err
}

// Fragment returns the ledger table partial for v.
func (h *HTML) Fragment(ctx context.Context, v ledger.View) ([]byte, error) {
	key := CacheKey(v)
	if h.fragments != nil {
		if b, ok := h.fragments.Get(key); ok {
			h.logger.DebugContext(ctx, "Fragment cache hit", "key", key)
			return b, nil
		}
	}

	var buf bytes.Buffer
	if err := h.templates.ExecuteTemplate(&buf, TableTemplate, BuildPage(v)); err != nil {
		return nil, fmt.Errorf("execute %s: %w", TableTemplate, err)
	}
	b := buf.Bytes()
	if h.fragments != nil {
		h.fragments.Set(key, b)
	}
	return b, nil
}

// Page writes the full ledger page for v to w.
func (h *HTML) Page(w io.Writer, v ledger.View) error {
	if err := h.templates.ExecuteTemplate(w, IndexTemplate, BuildPage(v)); err != nil {
		return fmt.Errorf("execute %s: %w", IndexTemplate, err)
	}
	return nil
}
