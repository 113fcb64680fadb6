package broadcast

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/igolaizola/timeslip/pkg/clock"
	"github.com/igolaizola/timeslip/pkg/narration"
	"github.com/igolaizola/timeslip/pkg/program"
	"github.com/oklog/ulid/v2"
)

// DefaultDelay is the pause between a song ending and the next talk.
const DefaultDelay = 3 * time.Second

var (
	ErrNoProgram  = errors.New("broadcast: no program loaded")
	ErrOutOfRange = errors.New("broadcast: segment out of range")
	ErrStopped    = errors.New("broadcast: orchestrator stopped")
	ErrNoGenerate = errors.New("broadcast: no generator configured")
)

type Ambience interface {
	Start()
	Pause()
}

type Narrator interface {
	Speak(ctx context.Context, text string) error
	Stop()
}

type Videos interface {
	Resolve(ctx context.Context, query string) (string, bool)
	Play(ctx context.Context, id string) error
}

type Generator interface {
	Generate(ctx context.Context, period program.Period) (program.Program, error)
}

type Config struct {
	Debug bool
	// Delay between a song and the next talk. Zero means DefaultDelay and
	// a negative value means no pause.
	Delay time.Duration
	Clock clock.Clock
	// OnChange is called from the control goroutine after every
	// transition. It must not call back into the orchestrator
	// synchronously.
	OnChange func(State)
}

type eventKind int

const (
	narrationDone eventKind = iota
	lookupDone
	videoEnded
	delayElapsed
	generated
)

type token struct {
	session string
	step    uint64
}

type event struct {
	kind    eventKind
	tok     token
	request uint64
	err     error
	videoID string
	program program.Program
}

type session struct {
	id      string
	program program.Program
	index   int
	phase   Phase
	videoID string

	step       uint64
	ctx        context.Context
	cancel     context.CancelFunc
	stepCancel context.CancelFunc
}

// Orchestrator sequences narration, music and transitions of a broadcast.
// All session state is owned by the goroutine running Run.
type Orchestrator struct {
	ambience  Ambience
	narrator  Narrator
	videos    Videos
	generator Generator
	delay     time.Duration
	clock     clock.Clock
	onChange  func(State)
	debug     bool

	cmds   chan func()
	events chan event
	done   chan struct{}

	mu      sync.RWMutex
	state   State
	program program.Program

	// Owned by the control goroutine.
	ctx       context.Context
	sess      *session
	request   uint64
	genCancel context.CancelFunc
	loading   bool
	err       error
}

func New(cfg *Config, ambience Ambience, narrator Narrator, videos Videos, generator Generator) *Orchestrator {
	delay := cfg.Delay
	switch {
	case delay == 0:
		delay = DefaultDelay
	case delay < 0:
		delay = 0
	}
	c := cfg.Clock
	if c == nil {
		c = clock.Real{}
	}
	return &Orchestrator{
		ambience:  ambience,
		narrator:  narrator,
		videos:    videos,
		generator: generator,
		delay:     delay,
		clock:     c,
		onChange:  cfg.OnChange,
		debug:     cfg.Debug,
		cmds:      make(chan func()),
		events:    make(chan event),
		done:      make(chan struct{}),
		state:     State{Phase: Idle, Index: -1},
	}
}

// Run processes commands and events until ctx is done. Pending work is torn
// down before it returns.
func (o *Orchestrator) Run(ctx context.Context) error {
	o.ctx = ctx
	defer close(o.done)
	defer func() {
		o.teardown()
		o.cancelGeneration()
	}()
	for {
		select {
		case <-ctx.Done():
			return nil
		case cmd := <-o.cmds:
			cmd()
		case ev := <-o.events:
			o.handle(ev)
		}
	}
}

// State returns a snapshot of the current state.
func (o *Orchestrator) State() State {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.state
}

// Program returns a copy of the loaded program, nil if there is none.
func (o *Orchestrator) Program() program.Program {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.program.Clone()
}

// Load tears down the current session and starts playing p from the first
// segment.
func (o *Orchestrator) Load(ctx context.Context, p program.Program) error {
	return o.do(ctx, func() error {
		o.teardown()
		o.cancelGeneration()
		o.loading = false
		if err := p.Validate(); err != nil {
			o.report(err)
			return err
		}
		o.start(p, 0)
		return nil
	})
}

// Generate tears down the current session and requests a new program. The
// program is loaded when it arrives, unless a newer request superseded it.
func (o *Orchestrator) Generate(ctx context.Context, period program.Period) error {
	if o.generator == nil {
		return ErrNoGenerate
	}
	if err := period.Validate(); err != nil {
		return err
	}
	return o.do(ctx, func() error {
		o.teardown()
		o.cancelGeneration()
		req := o.request
		gctx, cancel := context.WithCancel(o.ctx)
		o.genCancel = cancel
		o.loading = true
		o.err = nil
		o.publish()
		if o.debug {
			log.Printf("broadcast: generating program for %s\n", period)
		}
		go func() {
			p, err := o.generator.Generate(gctx, period)
			o.post(event{kind: generated, request: req, program: p, err: err})
		}()
		return nil
	})
}

// Play jumps to the narration of segment i.
func (o *Orchestrator) Play(ctx context.Context, i int) error {
	return o.do(ctx, func() error {
		return o.jump(func(int) int { return i })
	})
}

// Next jumps to the narration of the segment after the active one.
func (o *Orchestrator) Next(ctx context.Context) error {
	return o.do(ctx, func() error {
		return o.jump(func(current int) int { return current + 1 })
	})
}

// Stop tears down the session and unloads the program.
func (o *Orchestrator) Stop(ctx context.Context) error {
	return o.do(ctx, func() error {
		o.teardown()
		o.cancelGeneration()
		o.loading = false
		o.err = nil
		o.publish()
		return nil
	})
}

func (o *Orchestrator) do(ctx context.Context, f func() error) error {
	errC := make(chan error, 1)
	select {
	case o.cmds <- func() { errC <- f() }:
	case <-ctx.Done():
		return ctx.Err()
	case <-o.done:
		return ErrStopped
	}
	select {
	case err := <-errC:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (o *Orchestrator) post(ev event) {
	select {
	case o.events <- ev:
	case <-o.done:
	}
}

func (o *Orchestrator) jump(target func(current int) int) error {
	s := o.sess
	if s == nil {
		return ErrNoProgram
	}
	i := target(s.index)
	if i < 0 || i >= len(s.program) {
		return fmt.Errorf("%w: %d", ErrOutOfRange, i)
	}
	if s.phase == Complete {
		o.start(s.program, i)
		return nil
	}
	o.err = nil
	o.narrate(s, i)
	return nil
}

func (o *Orchestrator) start(p program.Program, i int) {
	o.teardown()
	ctx, cancel := context.WithCancel(o.ctx)
	s := &session{
		id:      ulid.Make().String(),
		program: p.Clone(),
		index:   -1,
		ctx:     ctx,
		cancel:  cancel,
	}
	o.sess = s
	o.err = nil
	if o.debug {
		log.Printf("broadcast: session %s loaded (%d segments)\n", s.id, len(s.program))
	}
	o.narrate(s, i)
}

// teardown stops everything the current session has in flight.
func (o *Orchestrator) teardown() {
	s := o.sess
	if s == nil {
		return
	}
	o.halt(s)
	s.cancel()
	o.narrator.Stop()
	o.ambience.Pause()
	o.sess = nil
	if o.debug {
		log.Printf("broadcast: session %s released\n", s.id)
	}
}

func (o *Orchestrator) cancelGeneration() {
	o.request++
	if o.genCancel != nil {
		o.genCancel()
		o.genCancel = nil
	}
}

// next cancels the work of the current step and returns the context and
// token for the new one.
func (o *Orchestrator) next(s *session) (context.Context, token) {
	o.halt(s)
	ctx, cancel := context.WithCancel(s.ctx)
	s.stepCancel = cancel
	return ctx, token{session: s.id, step: s.step}
}

func (o *Orchestrator) narrate(s *session, i int) {
	ctx, tok := o.next(s)
	s.index = i
	s.phase = Narrating
	s.videoID = ""
	o.publish()

	o.ambience.Start()
	text := s.program[i].Narration
	go func() {
		err := o.narrator.Speak(ctx, text)
		o.post(event{kind: narrationDone, tok: tok, err: err})
	}()
}

func (o *Orchestrator) lookup(s *session) {
	ctx, tok := o.next(s)
	s.phase = MusicLookup
	o.publish()

	o.ambience.Pause()
	seg := s.program[s.index]
	if !seg.HasSong() {
		go o.post(event{kind: lookupDone, tok: tok})
		return
	}
	query := seg.Query()
	go func() {
		id, ok := o.videos.Resolve(ctx, query)
		if !ok {
			id = ""
		}
		o.post(event{kind: lookupDone, tok: tok, videoID: id})
	}()
}

func (o *Orchestrator) playVideo(s *session, id string) {
	ctx, tok := o.next(s)
	s.phase = MusicPlaying
	s.videoID = id
	o.publish()

	go func() {
		err := o.videos.Play(ctx, id)
		o.post(event{kind: videoEnded, tok: tok, videoID: id, err: err})
	}()
}

func (o *Orchestrator) advance(s *session) {
	ctx, tok := o.next(s)
	s.phase = Advancing
	s.videoID = ""
	o.publish()

	go func() {
		if err := clock.Sleep(ctx, o.clock, o.delay); err != nil {
			return
		}
		o.post(event{kind: delayElapsed, tok: tok})
	}()
}

// halt cancels the current step so none of its events are accepted.
func (o *Orchestrator) halt(s *session) {
	if s.stepCancel != nil {
		s.stepCancel()
		s.stepCancel = nil
	}
	s.step++
}

func (o *Orchestrator) complete(s *session) {
	o.halt(s)
	s.phase = Complete
	o.ambience.Pause()
	s.cancel()
	if o.debug {
		log.Printf("broadcast: session %s complete\n", s.id)
	}
	o.publish()
}

func (o *Orchestrator) fail(s *session, err error) {
	o.halt(s)
	s.phase = Idle
	s.videoID = ""
	o.ambience.Pause()
	o.report(err)
}

func (o *Orchestrator) report(err error) {
	o.err = err
	log.Printf("broadcast: %v\n", err)
	o.publish()
}

func (o *Orchestrator) handle(ev event) {
	if ev.kind == generated {
		if ev.request != o.request {
			return
		}
		o.genCancel = nil
		o.loading = false
		if ev.err != nil {
			o.report(ev.err)
			return
		}
		if err := ev.program.Validate(); err != nil {
			o.report(err)
			return
		}
		o.start(ev.program, 0)
		return
	}

	s := o.sess
	if s == nil || ev.tok.session != s.id || ev.tok.step != s.step {
		if o.debug {
			log.Printf("broadcast: dropped stale event %d from %s/%d\n", ev.kind, ev.tok.session, ev.tok.step)
		}
		return
	}
	if s.ctx.Err() != nil {
		return
	}

	switch ev.kind {
	case narrationDone:
		if ev.err != nil {
			err := ev.err
			if !errors.Is(err, narration.ErrFailed) {
				err = &narration.Error{Err: err}
			}
			o.fail(s, fmt.Errorf("segment %d: %w", s.index, err))
			return
		}
		o.lookup(s)
	case lookupDone:
		if ev.videoID == "" {
			o.advance(s)
			return
		}
		o.playVideo(s, ev.videoID)
	case videoEnded:
		if ev.videoID != s.videoID || ev.err != nil {
			return
		}
		o.advance(s)
	case delayElapsed:
		if s.index+1 < len(s.program) {
			o.narrate(s, s.index+1)
			return
		}
		o.complete(s)
	}
}

func (o *Orchestrator) publish() {
	st := State{
		Phase:   Idle,
		Index:   -1,
		Loading: o.loading,
		Err:     o.err,
	}
	var p program.Program
	if o.err != nil {
		st.Error = o.err.Error()
	}
	if s := o.sess; s != nil {
		st.Session = s.id
		st.Phase = s.phase
		st.Index = s.index
		st.Total = len(s.program)
		st.VideoID = s.videoID
		p = s.program
		if s.index >= 0 && s.index < len(s.program) {
			seg := s.program[s.index]
			st.Segment = &seg
		}
	}
	o.mu.Lock()
	o.state = st
	o.program = p
	o.mu.Unlock()
	if o.debug {
		log.Printf("broadcast: %s\n", st)
	}
	if o.onChange != nil {
		o.onChange(st)
	}
}
