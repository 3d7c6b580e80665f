package artwork

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/jiemo/player/internal/observable"
	"github.com/rs/zerolog"
)

// Surface is a widget that can show album art or a placeholder.
type Surface interface {
	ShowImage(uri string)
	ShowPlaceholder()
}

// Loader populates a surface from an art URI, asynchronously.
// An empty URI shows the placeholder.
type Loader interface {
	Load(uri string, into Surface)
}

// HTTPLoader checks that an art URI answers before showing it, falling
// back to the placeholder when it does not. Results reach the surface
// through the dispatcher, and only the latest Load per surface is shown.
type HTTPLoader struct {
	client   *retryablehttp.Client
	dispatch observable.Dispatcher
	logger   zerolog.Logger

	mu   sync.Mutex
	gens map[Surface]uint64
}

// NewHTTPLoader creates a loader. A nil dispatcher updates the surface on
// the loading goroutine.
func NewHTTPLoader(dispatch observable.Dispatcher, logger zerolog.Logger) *HTTPLoader {
	logger = logger.With().Str("component", "artwork").Logger()
	return &HTTPLoader{
		client:   newRetryClient(2*time.Second, logger),
		dispatch: dispatch,
		logger:   logger,
		gens:     make(map[Surface]uint64),
	}
}

// Load implements Loader.
func (l *HTTPLoader) Load(uri string, into Surface) {
	gen := l.nextGen(into)

	if uri == "" {
		l.apply(into, gen, func() { into.ShowPlaceholder() })
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := l.check(ctx, uri); err != nil {
			l.logger.Debug().Err(err).Str("uri", uri).Msg("Artwork unavailable")
			l.apply(into, gen, func() { into.ShowPlaceholder() })
			return
		}
		l.apply(into, gen, func() { into.ShowImage(uri) })
	}()
}

// Forget drops bookkeeping for a surface that is being torn down.
func (l *HTTPLoader) Forget(s Surface) {
	l.mu.Lock()
	delete(l.gens, s)
	l.mu.Unlock()
}

func (l *HTTPLoader) nextGen(s Surface) uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.gens[s]++
	return l.gens[s]
}

func (l *HTTPLoader) current(s Surface, gen uint64) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.gens[s] == gen
}

// apply runs show unless a newer Load for the same surface has started.
func (l *HTTPLoader) apply(s Surface, gen uint64, show func()) {
	run := func() {
		if l.current(s, gen) {
			show()
		}
	}
	if l.dispatch == nil {
		run()
		return
	}
	l.dispatch.Dispatch(run)
}

func (l *HTTPLoader) check(ctx context.Context, uri string) error {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodHead, uri, nil)
	if err != nil {
		return err
	}
	resp, err := l.client.Do(req)
	if err != nil {
		return err
	}
	resp.Body.Close()
	if resp.StatusCode >= 400 {
		return &statusError{code: resp.StatusCode}
	}
	return nil
}

type statusError struct{ code int }

func (e *statusError) Error() string {
	return "artwork request failed: " + http.StatusText(e.code)
}
