package watch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"github.com/justchokingaround/watchline/internal/prefs"
)

// Options wires a Session to its collaborators
type Options struct {
	Catalog Catalog
	Mirrors Mirrors
	Streams Streams
	// Airing is optional; when set the next air time is fetched with the catalog.
	Airing Airing
	// Store defaults to an in-memory store.
	Store  prefs.Store
	Logger *slog.Logger
}

// Session drives catalog, server and manifest resolution for one viewer.
//
// All state lives behind mu. Fetches run on their own goroutines without the
// lock and re-acquire it to apply their result, which is dropped if the stage
// has been invalidated since the request started.
type Session struct {
	id        string
	logger    *slog.Logger
	catalog   *CatalogResolver
	servers   *ServerListResolver
	manifests *ManifestResolver
	airing    Airing

	ctx    context.Context
	cancel context.CancelFunc

	mu       sync.Mutex
	idle     *sync.Cond
	inflight int
	closed   bool
	requests  uint64
	stages    map[StageName]*stage
	subs      map[int]chan Snapshot
	nextSub   int
	lastState State

	titleID       string
	requested     EpisodeSelector
	title         *TitleDetails
	episodes      []Episode
	totalEpisodes int
	selector      EpisodeSelector
	episode       *Episode
	nextEpisodeAt *time.Time
	serverList    []Server
	active        *Selection
	manifest      *Manifest
}

// NewSession creates an idle session
func NewSession(opts Options) (*Session, error) {
	if opts.Catalog == nil || opts.Mirrors == nil || opts.Streams == nil {
		return nil, errors.New("session requires catalog, mirrors and streams")
	}
	if opts.Store == nil {
		opts.Store = prefs.NewMemoryStore()
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	id := uuid.NewString()
	logger := opts.Logger.With("session", id)
	ctx, cancel := context.WithCancel(context.Background())

	s := &Session{
		id:        id,
		logger:    logger,
		catalog:   NewCatalogResolver(opts.Catalog, logger),
		servers:   NewServerListResolver(opts.Mirrors, opts.Store, logger),
		manifests: NewManifestResolver(opts.Streams, logger),
		airing:    opts.Airing,
		ctx:       ctx,
		cancel:    cancel,
		stages:    make(map[StageName]*stage, len(pipelineOrder)),
		subs:      make(map[int]chan Snapshot),
		lastState: StateIdle,
	}
	s.idle = sync.NewCond(&s.mu)
	for _, name := range pipelineOrder {
		s.stages[name] = &stage{name: name}
	}
	return s, nil
}

// ID returns the session identifier used in logs
func (s *Session) ID() string {
	return s.id
}

// Open switches the session to a title. A different title resets every stage
// and restarts from the catalog; the same title only moves to ep if given.
// An empty titleID returns the session to idle.
func (s *Session) Open(titleID string, ep EpisodeSelector) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}

	if titleID != "" && titleID == s.titleID {
		if ep == "" || ep == s.selector {
			return
		}
		if !s.stages[StageCatalog].resolved {
			// picked up by finishCatalog
			s.requested = ep
			return
		}
		if err := s.selectEpisodeLocked(ep); err != nil {
			s.logger.Debug("ignoring episode for open title", "title", titleID, "ep", ep, "error", err)
		}
		return
	}

	s.logger.Info("opening title", "title", titleID, "ep", ep)
	s.titleID = titleID
	s.requested = ep
	s.invalidateLocked(StageCatalog, true)

	s.startCatalogLocked()
	s.startAiringLocked()
	s.notifyLocked()
}

// SelectEpisode moves to another episode of the open title. Only the server
// and stream stages are re-run. Selecting the current episode retries a
// failed server list and is otherwise a no-op.
func (s *Session) SelectEpisode(ep EpisodeSelector) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selectEpisodeLocked(ep)
}

func (s *Session) selectEpisodeLocked(ep EpisodeSelector) error {
	catalog := s.stages[StageCatalog]
	if !catalog.resolved || catalog.err != nil {
		return ErrNotReady
	}

	found, ok := lo.Find(s.episodes, func(e Episode) bool { return e.Selector() == ep })
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownEpisode, ep)
	}

	if ep == s.selector {
		if s.stages[StageServers].err != nil {
			s.resolveServersLocked()
		}
		return nil
	}

	s.logger.Debug("episode changed", "title", s.titleID, "from", s.selector, "to", ep)
	s.selector = ep
	s.episode = &found
	s.invalidateLocked(StageServers, false)

	s.startServersLocked()
	s.notifyLocked()
	return nil
}

// ResolveServers re-runs the server stage for the current episode. While a
// fetch is outstanding the call is skipped.
func (s *Session) ResolveServers() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resolveServersLocked()
}

func (s *Session) resolveServersLocked() {
	st := s.stages[StageServers]
	if st.pending() {
		s.logger.Debug("server fetch already in flight, skipping", "key", st.guard.key)
		return
	}
	s.invalidateLocked(StageServers, false)
	s.startServersLocked()
	s.notifyLocked()
}

// SelectServer makes the mirror with mirrorID active and persists the choice.
// Re-selecting the active mirror retries it only after a failure.
func (s *Session) SelectServer(mirrorID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.serverList == nil {
		return ErrNotReady
	}

	server, ok := lo.Find(s.serverList, func(srv Server) bool { return srv.MirrorID == mirrorID })
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownMirror, mirrorID)
	}

	sel := server.Selection()
	if s.active != nil && *s.active == sel && s.stages[StageStream].err == nil {
		return nil
	}

	s.logger.Debug("server changed", "title", s.titleID, "ep", s.selector, "mirror", sel.MirrorID, "name", sel.Name, "kind", sel.Kind)
	s.active = &sel
	s.servers.Remember(sel)
	s.invalidateLocked(StageStream, false)

	s.startStreamLocked()
	s.notifyLocked()
	return nil
}

// Snapshot returns the current state
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Subscribe delivers a snapshot after every change. Slow readers miss
// intermediate snapshots rather than blocking the session. The returned
// function unsubscribes and closes the channel.
func (s *Session) Subscribe(buffer int) (<-chan Snapshot, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ch := make(chan Snapshot, max(buffer, 1))
	if s.closed {
		close(ch)
		return ch, func() {}
	}
	id := s.nextSub
	s.nextSub++
	s.subs[id] = ch

	return ch, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if c, ok := s.subs[id]; ok {
			delete(s.subs, id)
			close(c)
		}
	}
}

// Wait blocks until no fetch is in flight. Fetches started by other
// goroutines while Wait is blocked are waited for too.
func (s *Session) Wait() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.waitIdleLocked()
}

func (s *Session) waitIdleLocked() {
	for s.inflight > 0 {
		s.idle.Wait()
	}
}

// Close abandons outstanding fetches and closes subscriber channels
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.cancel()
	defer s.mu.Unlock()

	s.waitIdleLocked()
	for id, ch := range s.subs {
		delete(s.subs, id)
		close(ch)
	}
}

// invalidateLocked bumps from and every stage downstream of it and drops the
// data they own. Guards are only reset for a new title; otherwise a pending
// request keeps its guard and re-triggers its stage when it completes.
func (s *Session) invalidateLocked(from StageName, resetGuards bool) {
	downstream := false
	for _, name := range pipelineOrder {
		if name == from {
			downstream = true
		}
		if !downstream {
			continue
		}
		s.stages[name].invalidate(resetGuards)

		switch name {
		case StageCatalog:
			s.title = nil
			s.episodes = nil
			s.totalEpisodes = 0
			s.selector = ""
			s.episode = nil
			s.nextEpisodeAt = nil
		case StageServers:
			s.serverList = nil
			s.active = nil
		case StageStream:
			s.manifest = nil
		}
	}
}

func (s *Session) nextRequestLocked() uint64 {
	s.requests++
	return s.requests
}

// spawnLocked runs fn on its own goroutine and counts it as in flight until
// it returns. Nothing is started once the session is closed.
func (s *Session) spawnLocked(fn func(ctx context.Context)) {
	if s.closed {
		return
	}
	s.inflight++
	go func() {
		defer func() {
			s.mu.Lock()
			s.inflight--
			if s.inflight == 0 {
				s.idle.Broadcast()
			}
			s.mu.Unlock()
		}()
		fn(s.ctx)
	}()
}

func (s *Session) startCatalogLocked() {
	st := s.stages[StageCatalog]
	if s.closed || s.titleID == "" || st.resolved {
		return
	}

	id := s.nextRequestLocked()
	if !st.guard.acquire(s.titleID, id) {
		s.logger.Debug("catalog fetch already in flight, skipping", "key", st.guard.key)
		return
	}

	gen, titleID, requested := st.gen, s.titleID, s.requested
	s.spawnLocked(func(ctx context.Context) {
		res, err := s.catalog.Resolve(ctx, titleID, requested)
		s.finishCatalog(id, gen, titleID, requested, res, err)
	})
}

func (s *Session) finishCatalog(id, gen uint64, titleID string, requested EpisodeSelector, res *CatalogResult, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := s.stages[StageCatalog]
	st.guard.release(id)
	if s.closed {
		return
	}
	if gen != st.gen {
		s.logger.Debug("discarding stale catalog", "title", titleID)
		s.startCatalogLocked()
		return
	}

	st.resolved = true
	if err != nil {
		st.err = asStageError(err, CatalogFetchError)
		s.logger.Warn("catalog resolution failed", "title", titleID, "error", err)
		s.notifyLocked()
		return
	}

	s.title = res.Title
	s.episodes = res.Episodes
	s.totalEpisodes = res.TotalEpisodes

	if res.Empty() {
		st.err = newError(NoEpisodesError, fmt.Errorf("title %s has no episodes", titleID))
		s.logger.Info("title has no episodes", "title", titleID)
		s.notifyLocked()
		return
	}

	s.selector, s.episode = res.Selector, res.Episode
	if s.requested != requested {
		s.selector, s.episode = ResolveSelector(res.Episodes, s.requested)
	}
	s.logger.Debug("catalog resolved", "title", titleID, "episodes", len(res.Episodes), "ep", s.selector)

	s.startServersLocked()
	s.notifyLocked()
}

func (s *Session) startAiringLocked() {
	if s.closed || s.airing == nil || s.titleID == "" {
		return
	}

	gen, titleID := s.stages[StageCatalog].gen, s.titleID
	s.spawnLocked(func(ctx context.Context) {
		at, ok, err := s.airing.NextEpisodeAt(ctx, titleID)

		s.mu.Lock()
		defer s.mu.Unlock()
		if s.closed || gen != s.stages[StageCatalog].gen {
			return
		}
		if err != nil {
			s.logger.Debug("next episode schedule unavailable", "title", titleID, "error", err)
			return
		}
		if ok {
			s.nextEpisodeAt = &at
			s.notifyLocked()
		}
	})
}

func (s *Session) startServersLocked() {
	st := s.stages[StageServers]
	catalog := s.stages[StageCatalog]
	if s.closed || !catalog.resolved || catalog.err != nil || s.selector == "" || st.resolved {
		return
	}

	id := s.nextRequestLocked()
	key := s.titleID + "|" + string(s.selector)
	if !st.guard.acquire(key, id) {
		s.logger.Debug("server fetch already in flight, skipping", "key", key, "pending", st.guard.key)
		return
	}

	gen, titleID, ep := st.gen, s.titleID, s.selector
	s.spawnLocked(func(ctx context.Context) {
		res, err := s.servers.Resolve(ctx, titleID, ep)
		s.finishServers(id, gen, titleID, ep, res, err)
	})
}

func (s *Session) finishServers(id, gen uint64, titleID string, ep EpisodeSelector, res *ServerListResult, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := s.stages[StageServers]
	st.guard.release(id)
	if s.closed {
		return
	}
	if gen != st.gen {
		s.logger.Debug("discarding stale server list", "title", titleID, "ep", ep)
		s.startServersLocked()
		s.notifyLocked()
		return
	}

	st.resolved = true
	if err == nil && res.Selected == nil {
		err = newError(ServerListError, fmt.Errorf("%w for %s ep %s", ErrNoMirrors, titleID, ep))
	}
	if err != nil {
		st.err = asStageError(err, ServerListError)
		s.serverList = nil
		s.active = nil
		s.logger.Warn("server resolution failed", "title", titleID, "ep", ep, "error", err)
		s.notifyLocked()
		return
	}

	sel := res.Selected.Selection()
	s.serverList = res.Servers
	s.active = &sel
	s.servers.Remember(sel)
	s.logger.Debug("servers resolved", "title", titleID, "ep", ep, "count", len(res.Servers), "selected", sel.Name, "kind", sel.Kind)

	s.startStreamLocked()
	s.notifyLocked()
}

func (s *Session) startStreamLocked() {
	st := s.stages[StageStream]
	serverStage := s.stages[StageServers]
	if s.closed || s.selector == "" || s.active == nil || s.serverList == nil || serverStage.pending() || st.resolved {
		return
	}

	if SelfContained(s.active.Name) {
		st.resolved = true
		s.manifest = nil
		s.logger.Debug("self-contained mirror, skipping manifest fetch", "title", s.titleID, "ep", s.selector, "name", s.active.Name)
		return
	}

	id := s.nextRequestLocked()
	key := s.titleID + "|" + string(s.selector) + "|" + s.active.MirrorID
	if !st.guard.acquire(key, id) {
		s.logger.Debug("manifest fetch already in flight, deferring", "key", key, "pending", st.guard.key)
		return
	}

	gen, titleID, ep, servers, sel := st.gen, s.titleID, s.selector, s.serverList, *s.active
	s.spawnLocked(func(ctx context.Context) {
		m, err := s.manifests.Resolve(ctx, titleID, ep, servers, sel)
		s.finishStream(id, gen, titleID, ep, m, err)
	})
}

func (s *Session) finishStream(id, gen uint64, titleID string, ep EpisodeSelector, m *Manifest, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := s.stages[StageStream]
	st.guard.release(id)
	if s.closed {
		return
	}
	if gen != st.gen {
		s.logger.Debug("discarding stale manifest", "title", titleID, "ep", ep)
		s.startStreamLocked()
		s.notifyLocked()
		return
	}

	st.resolved = true
	if err != nil {
		st.err = asStageError(err, ManifestFetchError)
		s.manifest = nil
		s.logger.Warn("manifest resolution failed", "title", titleID, "ep", ep, "error", err)
		s.notifyLocked()
		return
	}

	s.manifest = m
	s.logger.Info("stream ready", "title", titleID, "ep", ep, "subtitles", len(m.SubtitleTracks))
	s.notifyLocked()
}

func (s *Session) stateLocked() State {
	if s.titleID == "" {
		return StateIdle
	}
	for _, name := range pipelineOrder {
		st := s.stages[name]
		if st.err != nil {
			return StateError
		}
		if !st.resolved {
			return loadingState(name)
		}
	}
	return StateReady
}

func (s *Session) errLocked() *Error {
	for _, name := range pipelineOrder {
		if err := s.stages[name].err; err != nil {
			return err
		}
	}
	return nil
}

func (s *Session) snapshotLocked() Snapshot {
	state := s.stateLocked()
	catalog := s.stages[StageCatalog]
	servers := s.stages[StageServers]

	snap := Snapshot{
		State:         state,
		TitleID:       s.titleID,
		Title:         s.title,
		Episodes:      s.episodes,
		TotalEpisodes: s.totalEpisodes,
		Selector:      s.selector,
		NextEpisodeAt: s.nextEpisodeAt,
		Servers:       s.serverList,
		ServerLoading: s.titleID != "" && catalog.err == nil && !servers.resolved,
		Buffering:     state == StateLoadingCatalog || state == StateLoadingServers || state == StateLoadingStream,
		Err:           s.errLocked(),
	}
	if s.episode != nil {
		snap.EpisodeNumber = s.episode.Number
	}
	if s.active != nil {
		sel := *s.active
		snap.ActiveServer = &sel
	}
	if s.manifest != nil {
		snap.StreamURL = s.manifest.StreamURL
		snap.SubtitleTracks = s.manifest.SubtitleTracks
		snap.ThumbnailTrack = s.manifest.ThumbnailTrack
		snap.Intro = s.manifest.Intro
		snap.Outro = s.manifest.Outro
	}
	return snap
}

func (s *Session) notifyLocked() {
	snap := s.snapshotLocked()
	if snap.State != s.lastState {
		s.logger.Debug("state transition", "from", s.lastState, "to", snap.State, "title", snap.TitleID)
		s.lastState = snap.State
	}

	for _, ch := range s.subs {
		select {
		case ch <- snap:
		default:
		}
	}
}

func asStageError(err error, kind ErrorKind) *Error {
	var stageErr *Error
	if errors.As(err, &stageErr) {
		return stageErr
	}
	return newError(kind, err)
}
