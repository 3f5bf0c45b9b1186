// Package workspace owns the application's current knowledge base.
//
// The current knowledge base is an immutable Snapshot behind an atomic
// pointer. Loading parses a complete source and swaps the pointer; a failed
// load leaves the previous snapshot in place. Loads run one at a time from
// read to swap. Readers never lock.
package workspace

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pbaille/expertkb/internal/domain"
	"github.com/pbaille/expertkb/internal/errors"
	"github.com/pbaille/expertkb/internal/kb"
	"github.com/pbaille/expertkb/internal/logger"
	"github.com/pbaille/expertkb/internal/source"
	"github.com/pbaille/expertkb/internal/store"
	"go.uber.org/zap"
)

// Snapshot is one loaded knowledge base and where it came from
type Snapshot struct {
	DB         *domain.DB
	Location   string
	SourceID   *string // nil when no store is attached
	Reloadable bool    // Location was read by Load and can be read again
	LoadedAt   time.Time
}

// Options configures a Workspace. All fields are optional.
type Options struct {
	Store  *store.Store
	Reader *source.Reader
	Logger *zap.SugaredLogger
}

// Workspace holds the current snapshot and records loads and queries
type Workspace struct {
	store  *store.Store
	reader *source.Reader
	logger *zap.SugaredLogger

	current atomic.Pointer[Snapshot]
	loadMu  sync.Mutex
}

// New creates a workspace with nothing loaded
func New(opts Options) *Workspace {
	ws := &Workspace{
		store:  opts.Store,
		reader: opts.Reader,
		logger: opts.Logger,
	}
	if ws.reader == nil {
		ws.reader = &source.Reader{}
	}
	if ws.logger == nil {
		ws.logger = logger.Named("workspace")
	}
	return ws
}

// Current returns the current snapshot, or nil if nothing has been loaded
func (ws *Workspace) Current() *Snapshot {
	return ws.current.Load()
}

// DB returns the current knowledge base, or an empty one
func (ws *Workspace) DB() *domain.DB {
	if snap := ws.current.Load(); snap != nil {
		return snap.DB
	}
	return domain.Empty()
}

// Load reads location and makes it the current knowledge base. The snapshot
// it produces can be re-read with Reload.
func (ws *Workspace) Load(ctx context.Context, location string) (*Snapshot, error) {
	ws.loadMu.Lock()
	defer ws.loadMu.Unlock()

	return ws.load(ctx, location)
}

func (ws *Workspace) load(ctx context.Context, location string) (*Snapshot, error) {
	text, err := ws.reader.Read(ctx, location)
	if err != nil {
		ws.logger.Warnw("Knowledge base unreadable", "location", location, "error", err)
		return nil, errors.Wrapf(err, "load %s", location)
	}
	return ws.commit(ctx, location, text, true)
}

// Reload re-reads the location of the current snapshot. Snapshots that were
// not read by Load (uploads, restored sources) cannot be reloaded.
func (ws *Workspace) Reload(ctx context.Context) (*Snapshot, error) {
	ws.loadMu.Lock()
	defer ws.loadMu.Unlock()

	snap := ws.current.Load()
	if snap == nil {
		return nil, errors.ErrNoKnowledgeBase
	}
	if !snap.Reloadable {
		return nil, errors.NewInvalidRequestError("%s was not read from a file or URL", snap.Location)
	}
	return ws.load(ctx, snap.Location)
}

// LoadText parses text and, if it is valid, makes it the current knowledge
// base. location only labels the snapshot; it is never read.
// On a syntax error the returned error wraps a *kb.SyntaxError.
func (ws *Workspace) LoadText(ctx context.Context, location, text string) (*Snapshot, error) {
	ws.loadMu.Lock()
	defer ws.loadMu.Unlock()

	return ws.commit(ctx, location, text, false)
}

// Restore loads the most recently recorded source from the store
func (ws *Workspace) Restore(ctx context.Context) (*Snapshot, error) {
	if ws.store == nil {
		return nil, errors.ErrNoKnowledgeBase
	}
	src, err := ws.store.LatestSource("")
	if err != nil {
		if errors.IsNotFound(err) {
			return nil, errors.ErrNoKnowledgeBase
		}
		return nil, err
	}
	return ws.LoadText(ctx, src.Location, src.Content)
}

// commit parses text and swaps it in. Callers hold loadMu, so a slow read
// cannot overwrite a load that started after it.
func (ws *Workspace) commit(ctx context.Context, location, text string, reloadable bool) (*Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	db, err := kb.Parse(text)
	if err != nil {
		var serr *kb.SyntaxError
		if errors.As(err, &serr) {
			ws.logger.Warnw("Knowledge base rejected",
				"location", location,
				"line", serr.Line,
				"column", serr.Column,
				"error", serr.Message)
		}
		return nil, errors.Wrapf(err, "parse %s", location)
	}

	snap := &Snapshot{DB: db, Location: location, Reloadable: reloadable, LoadedAt: time.Now()}

	if ws.store != nil {
		src, err := ws.store.SaveSource(location, text)
		if err != nil {
			ws.logger.Warnw("Failed to record source", "location", location, "error", err)
		} else {
			snap.SourceID = &src.ID
			snap.LoadedAt = src.LoadedAt
		}
	}

	ws.current.Store(snap)

	ws.logger.Infow("Knowledge base loaded",
		"location", location,
		"entries", db.Len(),
		"categories", len(db.CategoryNames()),
		"questions", len(db.QuestionCategories()))

	return snap, nil
}

// Resolve resolves answers against the current snapshot and records the
// attempt when a store is attached
func (ws *Workspace) Resolve(ctx context.Context, target string, answers []domain.Pair) (string, error) {
	snap := ws.current.Load()
	if snap == nil {
		return "", errors.ErrNoKnowledgeBase
	}

	conclusion, err := kb.ResolveContext(ctx, snap.DB, target, answers)
	found := err == nil
	if err != nil && !errors.IsNotFound(err) {
		return "", err
	}

	ws.logger.Debugw("Resolved query",
		"target", target,
		"answers", kb.FormatAnswers(answers),
		"found", found,
		"conclusion", conclusion)

	if ws.store != nil {
		if _, rerr := ws.store.RecordQuery(snap.SourceID, target, answers, conclusion, found); rerr != nil {
			ws.logger.Warnw("Failed to record query", "error", rerr)
		}
	}

	return conclusion, err
}
