package document

import (
	"context"
	"errors"
	"image"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
)

// ErrSuperseded is returned by Loader.Load when a newer request for a
// different page or scale cancelled this one. Callers drop the result.
var ErrSuperseded = errors.New("page render superseded")

const DefaultCacheSize = 16

type pageKey struct {
	page  int
	scale float64
}

// Loader serves page bitmaps for the live view. Only the most recent
// request is kept alive: asking for another page or scale cancels the
// render in flight. Finished renders are cached.
type Loader struct {
	r     Rasterizer
	cache *lru.Cache[pageKey, image.Image]

	mu     sync.Mutex
	doc    *Document
	seq    uint64
	cur    pageKey
	cancel context.CancelFunc
}

func NewLoader(r Rasterizer, size int) (*Loader, error) {
	if size <= 0 {
		size = DefaultCacheSize
	}
	cache, err := lru.New[pageKey, image.Image](size)
	if err != nil {
		return nil, err
	}
	return &Loader{r: r, cache: cache}, nil
}

// SetDocument switches documents, cancelling any render in flight and
// dropping cached pages.
func (l *Loader) SetDocument(doc *Document) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.cancel != nil {
		l.cancel()
		l.cancel = nil
	}
	l.doc = doc
	l.seq++
	l.cache.Purge()
}

func (l *Loader) Document() *Document {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.doc
}

// Load renders page at scale, or returns the cached bitmap.
func (l *Loader) Load(ctx context.Context, page int, scale float64) (image.Image, error) {
	key := pageKey{page: page, scale: scale}
	if img, ok := l.cache.Get(key); ok {
		return img, nil
	}

	l.mu.Lock()
	if l.doc == nil {
		l.mu.Unlock()
		return nil, errors.New("no document loaded")
	}
	if l.cancel != nil && l.cur != key {
		l.cancel()
	}
	ctx, cancel := context.WithCancel(ctx)
	l.seq++
	seq, doc := l.seq, l.doc
	l.cur, l.cancel = key, cancel
	l.mu.Unlock()
	defer cancel()

	img, err := l.r.Render(ctx, doc, page, scale)

	l.mu.Lock()
	defer l.mu.Unlock()
	stale := l.doc != doc || (l.seq != seq && l.cur != key)
	if err != nil {
		if stale || errors.Is(err, context.Canceled) {
			return nil, ErrSuperseded
		}
		return nil, err
	}
	if l.doc == doc {
		l.cache.Add(key, img)
	}
	if stale {
		return nil, ErrSuperseded
	}
	return img, nil
}
