package tui

import (
	"context"
	"reflect"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/jiemo/player/internal/artwork"
	"github.com/jiemo/player/internal/media"
	"github.com/jiemo/player/internal/music"
	"github.com/jiemo/player/internal/observable"
	"github.com/jiemo/player/internal/session"
	"github.com/jiemo/player/internal/viewmodel"
	"github.com/rs/zerolog"
)

func TestBuildProgressBar(t *testing.T) {
	tests := []struct {
		name       string
		percent    int
		width      int
		wantFilled int
		wantEmpty  int
	}{
		{"empty", 0, 10, 0, 10},
		{"quarter", 25, 20, 5, 15},
		{"half", 50, 10, 5, 5},
		{"full", 100, 10, 10, 0},
		{"over clamps", 150, 10, 10, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bar := buildProgressBar(tt.percent, tt.width)
			if got := strings.Count(bar, "█"); got != tt.wantFilled {
				t.Errorf("filled = %d, want %d", got, tt.wantFilled)
			}
			if got := strings.Count(bar, "░"); got != tt.wantEmpty {
				t.Errorf("empty = %d, want %d", got, tt.wantEmpty)
			}
		})
	}

	if bar := buildProgressBar(-1, 4); bar != "----" {
		t.Errorf("unknown duration bar = %q", bar)
	}
	if bar := buildProgressBar(50, 0); bar != "" {
		t.Errorf("zero width bar = %q", bar)
	}
}

func TestProgressText(t *testing.T) {
	text := progressText(50000, 200000, 25, 4)
	if !strings.HasPrefix(text, "0:50 ") || !strings.HasSuffix(text, " 3:20") {
		t.Errorf("progressText() = %q", text)
	}
}

func TestNowPlayingText(t *testing.T) {
	empty := nowPlayingText(viewmodel.NowPlayingMetadata{}, viewmodel.IconPlay, viewmodel.IconRepeatOff)
	if !strings.Contains(empty, "No track playing") {
		t.Errorf("empty text = %q", empty)
	}

	md := viewmodel.NowPlayingMetadata{ID: "A1", Title: "Song [live]", Subtitle: "Artist"}
	text := nowPlayingText(md, viewmodel.IconPause, viewmodel.IconRepeatAll)
	if !strings.Contains(text, "Song [live[]") {
		t.Errorf("title not escaped: %q", text)
	}
	if !strings.Contains(text, "⏸") {
		t.Errorf("pause icon missing: %q", text)
	}
}

func TestItemText(t *testing.T) {
	main, secondary := itemText(viewmodel.ItemData{Title: "Albums", Subtitle: "12", Browsable: true}, 0)
	if main != "  Albums ›" || secondary != "  12" {
		t.Errorf("itemText() = %q, %q", main, secondary)
	}

	main, _ = itemText(viewmodel.ItemData{Title: "Song", Indicator: viewmodel.IndicatorPlaying}, 0)
	if !strings.HasPrefix(main, "⏸ ") {
		t.Errorf("playing row = %q", main)
	}

	main, _ = itemText(viewmodel.ItemData{Title: "A very long song title indeed"}, 12)
	if !strings.HasSuffix(main, "...") {
		t.Errorf("long row not truncated: %q", main)
	}
}

func TestStatusText(t *testing.T) {
	if statusText(false, false) != "" {
		t.Error("loaded list shows a banner")
	}
	if !strings.Contains(statusText(true, false), "Loading") {
		t.Error("empty list does not show loading")
	}
	if !strings.Contains(statusText(true, true), "Network error") {
		t.Error("network error hidden")
	}
}

func TestSeekGesture(t *testing.T) {
	var g seekGesture

	if _, ok := g.Release(); ok {
		t.Error("Release without a drag reported a seek")
	}

	g.Drag(30, seekStep)
	g.Drag(30, seekStep)
	if !g.Active() {
		t.Fatal("gesture not active after drag")
	}
	percent, ok := g.Release()
	if !ok || percent != 40 {
		t.Errorf("Release() = %d, %v; want 40, true", percent, ok)
	}
	if g.Active() {
		t.Error("gesture still active after release")
	}

	g.Drag(2, -seekStep)
	if g.percent != 0 {
		t.Errorf("drag below zero = %d", g.percent)
	}
	g.Cancel()
	if _, ok := g.Release(); ok {
		t.Error("Release after Cancel reported a seek")
	}

	if got := g.Drag(98, seekStep); got != 100 {
		t.Errorf("drag past end = %d", got)
	}
}

func TestUIDispatcher_Order(t *testing.T) {
	var (
		mu      sync.Mutex
		got     []int
		batches int
	)
	d := newUIDispatcher(func(fn func()) {
		mu.Lock()
		batches++
		mu.Unlock()
		fn()
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go d.run(ctx)

	for i := 0; i < 50; i++ {
		i := i
		d.Dispatch(func() {
			mu.Lock()
			got = append(got, i)
			mu.Unlock()
		})
	}

	deadline := time.Now().Add(2 * time.Second)
	for {
		mu.Lock()
		n := len(got)
		mu.Unlock()
		if n == 50 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("only %d deliveries ran", n)
		}
		time.Sleep(time.Millisecond)
	}

	mu.Lock()
	defer mu.Unlock()
	for i, v := range got {
		if v != i {
			t.Fatalf("delivery %d ran as %d", i, v)
		}
	}
	if batches > 50 {
		t.Errorf("batches = %d", batches)
	}
}

// inline runs deliveries synchronously, standing in for the event goroutine
var inline = observable.DispatcherFunc(func(fn func()) { fn() })

type stubClient struct {
	mu    sync.Mutex
	track *music.Track
}

func (c *stubClient) GetCurrentTrack(ctx context.Context) (*music.Track, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.track == nil {
		return nil, nil
	}
	cp := *c.track
	return &cp, nil
}
func (c *stubClient) IsRunning(ctx context.Context) (bool, error)             { return true, nil }
func (c *stubClient) Play(ctx context.Context) error                          { return nil }
func (c *stubClient) Pause(ctx context.Context) error                         { return nil }
func (c *stubClient) PlayTrack(ctx context.Context, id string) error          { return nil }
func (c *stubClient) Seek(ctx context.Context, pos time.Duration) error       { return nil }
func (c *stubClient) SetRepeat(ctx context.Context, m media.RepeatMode) error { return nil }
func (c *stubClient) NextTrack(ctx context.Context) error                     { return nil }
func (c *stubClient) PreviousTrack(ctx context.Context) error                 { return nil }

type stubBrowser map[string][]media.Item

func (b stubBrowser) Children(ctx context.Context, parentID string) ([]media.Item, error) {
	return b[parentID], nil
}

type connFactory struct{ conn *session.Connection }

func (f connFactory) MediaItems(ctx context.Context, mediaID string) (*viewmodel.MediaItems, error) {
	return viewmodel.NewMediaItems(ctx, mediaID, f.conn, zerolog.Nop())
}

type recordingClicker struct {
	mu      sync.Mutex
	clicked []string
}

func (r *recordingClicker) MediaItemClicked(ctx context.Context, item viewmodel.ItemData) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clicked = append(r.clicked, item.ID)
	return nil
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met before deadline")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestItemsScreen_BindRequiresMediaID(t *testing.T) {
	conn := session.New(session.Config{}, &stubClient{}, stubBrowser{}, zerolog.Nop())
	s := NewItemsScreen(context.Background(), connFactory{conn}, &recordingClicker{}, inline, zerolog.Nop())
	defer s.Close()

	if s.Bind("") {
		t.Error("Bind(\"\") = true")
	}
	if s.MediaID() != "" {
		t.Errorf("unbound screen has media id %q", s.MediaID())
	}
}

func TestItemsScreen_RendersAndClicks(t *testing.T) {
	browser := stubBrowser{"__ROOT__": {
		{ID: "albums", Title: "Albums", Browsable: true},
		{ID: "A1", Title: "Song", Subtitle: "Artist"},
	}}
	conn := session.New(session.Config{}, &stubClient{}, browser, zerolog.Nop())
	clicker := &recordingClicker{}

	// Deliveries hop through a mutex so the test can read the list safely
	var mu sync.Mutex
	locked := observable.DispatcherFunc(func(fn func()) {
		mu.Lock()
		defer mu.Unlock()
		fn()
	})

	s := NewItemsScreen(context.Background(), connFactory{conn}, clicker, locked, zerolog.Nop())
	defer s.Close()

	if !s.Bind("__ROOT__") {
		t.Fatal("Bind() = false")
	}
	if s.Bind("__ROOT__") {
		t.Error("second Bind() = true")
	}

	waitFor(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return s.List().GetItemCount() == 2
	})

	mu.Lock()
	main, _ := s.List().GetItemText(0)
	status := s.status.GetText(true)
	s.click(1)
	s.click(5)
	mu.Unlock()

	if !strings.Contains(main, "Albums") {
		t.Errorf("first row = %q", main)
	}
	if status != "" {
		t.Errorf("status after load = %q", status)
	}
	if !reflect.DeepEqual(clicker.clicked, []string{"A1"}) {
		t.Errorf("clicked = %v", clicker.clicked)
	}
}

func TestItemsScreen_ShowsLoadingUntilItems(t *testing.T) {
	conn := session.New(session.Config{}, &stubClient{}, stubBrowser{}, zerolog.Nop())

	var mu sync.Mutex
	locked := observable.DispatcherFunc(func(fn func()) {
		mu.Lock()
		defer mu.Unlock()
		fn()
	})

	s := NewItemsScreen(context.Background(), connFactory{conn}, &recordingClicker{}, locked, zerolog.Nop())
	defer s.Close()

	if !s.Bind("empty") {
		t.Fatal("Bind() = false")
	}
	waitFor(t, func() bool { _, ok := s.vm.Items().Value(); return ok })

	mu.Lock()
	got := s.status.GetText(true)
	mu.Unlock()
	if !strings.Contains(got, "Loading") {
		t.Errorf("status = %q, want loading", got)
	}
}

type recordingController struct {
	calls []string
}

func (r *recordingController) PlayMediaID(ctx context.Context, id string) error {
	r.calls = append(r.calls, "playpause "+id)
	return nil
}

func (r *recordingController) SetRepeatMode(ctx context.Context, mode media.RepeatMode) error {
	r.calls = append(r.calls, "repeat "+mode.String())
	return nil
}

func (r *recordingController) SeekToProgress(ctx context.Context, percent int, durationMs int64) (bool, error) {
	target, ok := viewmodel.SeekTarget(percent, durationMs)
	if !ok {
		return false, nil
	}
	r.calls = append(r.calls, "seek "+time.Duration(target*int64(time.Millisecond)).String())
	return true, nil
}

type recordingLoader struct {
	uris []string
}

func (l *recordingLoader) Load(uri string, into artwork.Surface) {
	l.uris = append(l.uris, uri)
	if uri == "" {
		into.ShowPlaceholder()
		return
	}
	into.ShowImage(uri)
}

func newTestNowPlayingScreen(t *testing.T, track *music.Track) (*NowPlayingScreen, *recordingController, *recordingLoader) {
	t.Helper()

	conn := session.New(session.Config{}, &stubClient{track: track}, stubBrowser{}, zerolog.Nop())
	if err := conn.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}

	vm := viewmodel.NewNowPlaying(conn, time.Second, zerolog.Nop())
	t.Cleanup(vm.Close)

	control := &recordingController{}
	loader := &recordingLoader{}
	s := NewNowPlayingScreen(context.Background(), vm, control, loader, inline, zerolog.Nop())
	t.Cleanup(s.Close)
	return s, control, loader
}

func key(k tcell.Key) *tcell.EventKey { return tcell.NewEventKey(k, 0, tcell.ModNone) }
func runeKey(r rune) *tcell.EventKey  { return tcell.NewEventKey(tcell.KeyRune, r, tcell.ModNone) }

func TestNowPlayingScreen_SeekOnlyOnRelease(t *testing.T) {
	s, control, _ := newTestNowPlayingScreen(t, &music.Track{
		ID: "A1", Name: "Song", Artist: "Artist",
		Duration: 200 * time.Second, Position: 60 * time.Second,
		State: music.StatePaused,
	})

	for i := 0; i < 2; i++ {
		if !s.HandleKey(key(tcell.KeyRight)) {
			t.Fatal("Right not handled")
		}
	}
	if len(control.calls) != 0 {
		t.Fatalf("seek issued during drag: %v", control.calls)
	}
	if !strings.HasPrefix(s.progress.GetText(true), "1:20 ") {
		t.Errorf("handle label = %q, want 1:20", s.progress.GetText(true))
	}

	if !s.HandleKey(key(tcell.KeyEnter)) {
		t.Fatal("Enter not handled")
	}
	if !reflect.DeepEqual(control.calls, []string{"seek 1m20s"}) {
		t.Errorf("calls = %v", control.calls)
	}

	// Enter without a drag is left to other widgets
	if s.HandleKey(key(tcell.KeyEnter)) {
		t.Error("Enter without drag handled")
	}
}

func TestNowPlayingScreen_CancelDrag(t *testing.T) {
	s, control, _ := newTestNowPlayingScreen(t, &music.Track{
		ID: "A1", Duration: 200 * time.Second, State: music.StatePaused,
	})

	s.HandleKey(key(tcell.KeyRight))
	if !s.HandleKey(key(tcell.KeyEscape)) {
		t.Fatal("Escape during drag not handled")
	}
	s.HandleKey(key(tcell.KeyEnter))
	if len(control.calls) != 0 {
		t.Errorf("calls after cancel = %v", control.calls)
	}
}

func TestNowPlayingScreen_NoSeekWithoutDuration(t *testing.T) {
	s, control, _ := newTestNowPlayingScreen(t, nil)

	s.HandleKey(key(tcell.KeyRight))
	s.HandleKey(key(tcell.KeyEnter))
	if len(control.calls) != 0 {
		t.Errorf("calls = %v, want none", control.calls)
	}
}

func TestNowPlayingScreen_TransportKeys(t *testing.T) {
	s, control, loader := newTestNowPlayingScreen(t, &music.Track{
		ID: "A1", Name: "Song", Artist: "Artist",
		Duration: 200 * time.Second, State: music.StatePlaying,
		Repeat: media.RepeatAll,
	})

	s.HandleKey(runeKey(' '))
	s.HandleKey(runeKey('r'))
	if s.HandleKey(runeKey('x')) {
		t.Error("unbound key handled")
	}

	want := []string{"playpause A1", "repeat none"}
	if !reflect.DeepEqual(control.calls, want) {
		t.Errorf("calls = %v, want %v", control.calls, want)
	}

	if !strings.Contains(s.info.GetText(true), "Song") {
		t.Errorf("info = %q", s.info.GetText(true))
	}
	if len(loader.uris) != 1 || loader.uris[0] != "" {
		t.Errorf("loader uris = %q, want one placeholder load", loader.uris)
	}
	if !strings.Contains(s.art.view.GetText(true), "no artwork") {
		t.Errorf("art = %q", s.art.view.GetText(true))
	}
}
