package export

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/koustreak/DryDB/internal/database"
	"github.com/koustreak/DryDB/internal/errs"
	"github.com/koustreak/DryDB/internal/filestore"
	"github.com/koustreak/DryDB/internal/logger"
)

// Result describes a finished export.
type Result struct {
	Path string `json:"path"`
	Rows int    `json:"rows"`

	// Set only when the file was uploaded.
	Object *filestore.ObjectInfo `json:"object,omitempty"`
	URL    string                `json:"url,omitempty"`
}

// Exporter writes result sets into a directory and, when an object store is
// attached, uploads each file and presigns a download URL.
type Exporter struct {
	dir    string
	sheet  string
	store  filestore.Store
	bucket string
	ttl    time.Duration
	now    func() time.Time
	log    *logger.Logger
}

// Option configures an Exporter.
type Option func(*Exporter)

// WithUpload publishes exports into bucket with links valid for ttl.
func WithUpload(store filestore.Store, bucket string, ttl time.Duration) Option {
	return func(e *Exporter) {
		e.store = store
		e.bucket = bucket
		e.ttl = ttl
	}
}

func WithSheet(name string) Option {
	return func(e *Exporter) {
		if name != "" {
			e.sheet = name
		}
	}
}

func WithLogger(l *logger.Logger) Option {
	return func(e *Exporter) {
		if l != nil {
			e.log = l.Component("export")
		}
	}
}

// WithClock replaces time.Now when naming files.
func WithClock(now func() time.Time) Option {
	return func(e *Exporter) {
		e.now = now
	}
}

// NewExporter writes into dir, creating it on first use.
func NewExporter(dir string, opts ...Option) *Exporter {
	e := &Exporter{
		dir:   dir,
		sheet: DefaultSheet,
		ttl:   time.Hour,
		now:   time.Now,
		log:   logger.Nop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Export writes rs to a new file and uploads it when configured.
func (e *Exporter) Export(ctx context.Context, rs *database.ResultSet) (*Result, error) {
	if rs == nil || len(rs.Rows) == 0 {
		return nil, errs.New(errs.ErrKindInvalidInput, "no results to export")
	}
	if err := os.MkdirAll(e.dir, 0o755); err != nil {
		return nil, errs.Wrap(errs.ErrKindPermissionDenied, "failed to create export directory", err)
	}

	name := FileName(e.now())
	path := filepath.Join(e.dir, name)

	f, err := os.Create(path)
	if err != nil {
		return nil, errs.Wrap(errs.ErrKindPermissionDenied, "failed to create export file", err)
	}
	if err := WriteXLSX(f, rs, e.sheet); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return nil, err
	}
	if err := f.Close(); err != nil {
		return nil, errs.Wrap(errs.ErrKindUnknown, "failed to close export file", err)
	}

	res := &Result{Path: path, Rows: len(rs.Rows)}
	e.log.InfoWith("results exported", map[string]any{"path": path, "rows": res.Rows})

	if e.store == nil {
		return res, nil
	}
	if err := e.upload(ctx, res, name); err != nil {
		return nil, err
	}
	return res, nil
}

func (e *Exporter) upload(ctx context.Context, res *Result, key string) error {
	if err := e.store.EnsureBucket(ctx, e.bucket); err != nil {
		return err
	}

	f, err := os.Open(res.Path)
	if err != nil {
		return errs.Wrap(errs.ErrKindUnknown, "failed to reopen export file", err)
	}
	defer f.Close()

	st, err := f.Stat()
	if err != nil {
		return errs.Wrap(errs.ErrKindUnknown, "failed to stat export file", err)
	}

	obj, err := e.store.PutObject(ctx, e.bucket, key, f, st.Size(), filestore.ContentTypeXLSX)
	if err != nil {
		return err
	}
	url, err := e.store.PresignGetURL(ctx, e.bucket, key, e.ttl)
	if err != nil {
		return err
	}

	res.Object = obj
	res.URL = url
	e.log.InfoWith("export uploaded", map[string]any{"bucket": e.bucket, "key": key, "size": obj.Size})
	return nil
}
