// Package serializer queues submitted snapshots and merges them into the
// canonical document one at a time.
//
// The first caller to submit while nothing is being merged becomes the drainer:
// it merges its own snapshot and every snapshot queued behind it, then gets the
// final document back. Callers that submit during a drain are queued and return
// at once with no result; they learn about the outcome through OnDrain hooks or
// by reading the store.
package serializer

import (
	"fmt"
	"sync"

	"github.com/burntcarrot/slatepad/merge"
	"github.com/burntcarrot/slatepad/store"
	"github.com/sirupsen/logrus"
)

// Merger merges a snapshot into the canonical document. merge.Engine implements it.
type Merger interface {
	Merge(local, remote merge.Document) (merge.Document, error)
}

// State is either Idle or Draining.
type State int

const (
	Idle State = iota
	Draining
)

func (s State) String() string {
	if s == Draining {
		return "draining"
	}
	return "idle"
}

// Serializer guarantees that at most one merge against the store runs at a time.
type Serializer struct {
	store  *store.Store
	merger Merger
	log    logrus.FieldLogger

	mu    sync.Mutex // protects the fields below
	queue []merge.Document
	busy  bool
	hooks []func(merge.Document)
}

// Option configures a Serializer.
type Option func(*Serializer)

// WithLogger sets the logger used for drain events.
func WithLogger(log logrus.FieldLogger) Option {
	return func(s *Serializer) {
		s.log = log
	}
}

// New returns an idle serializer merging into st with m.
func New(st *store.Store, m Merger, opts ...Option) *Serializer {
	s := &Serializer{
		store:  st,
		merger: m,
		log:    logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// OnDrain registers fn to be called with the canonical document after every
// drain that merged at least one snapshot. Hooks run on the draining goroutine
// while it still owns the serializer, so calls never overlap and arrive in
// version order.
func (s *Serializer) OnDrain(fn func(merge.Document)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hooks = append(s.hooks, fn)
}

// State reports whether a drain is in progress.
func (s *Serializer) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.busy {
		return Draining
	}
	return Idle
}

// Pending returns the number of queued snapshots not yet merged.
func (s *Serializer) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.queue)
}

// Submit queues snapshot. If no drain is running, the caller drains the queue
// and receives the merged document with drained set to true. Otherwise Submit
// returns immediately with drained set to false.
//
// A snapshot whose merge fails is discarded and the drain goes on with the rest
// of the queue. The drainer then gets an error wrapping ErrDrainFailure instead
// of the document.
func (s *Serializer) Submit(snapshot merge.Document) (doc merge.Document, drained bool, err error) {
	if len(snapshot) == 0 {
		return nil, false, ErrEmptySubmission
	}

	s.mu.Lock()
	s.queue = append(s.queue, snapshot)
	if s.busy {
		pending := len(s.queue)
		s.mu.Unlock()
		s.log.WithField("pending", pending).Debug("snapshot queued behind running drain")
		return nil, false, nil
	}
	s.busy = true
	s.mu.Unlock()

	doc, merged, err := s.drain()
	if err != nil {
		s.log.WithError(err).WithField("merged", merged).Error("drain failed")
		return nil, false, err
	}

	s.log.WithFields(logrus.Fields{
		"merged":  merged,
		"version": s.store.Version(),
	}).Debug("drain complete")

	return doc, true, nil
}

// drain merges queued snapshots until the queue is empty. Drain hooks run
// before busy is cleared, so they see drains in order. It must only be called
// by the goroutine that set busy, and it always clears busy before returning.
func (s *Serializer) drain() (doc merge.Document, merged int, err error) {
	notified := 0
	for {
		s.mu.Lock()
		if len(s.queue) == 0 {
			if merged == notified {
				s.busy = false
				s.mu.Unlock()
				break
			}
			hooks := append([]func(merge.Document){}, s.hooks...)
			s.mu.Unlock()

			s.notify(hooks, doc)
			notified = merged
			continue
		}
		next := s.queue[0]
		s.queue[0] = nil
		s.queue = s.queue[1:]
		s.mu.Unlock()

		result, mergeErr := s.mergeOne(next)
		if mergeErr != nil {
			s.log.WithError(mergeErr).Warn("discarding snapshot that failed to merge")
			if err == nil {
				err = fmt.Errorf("%w: %w", ErrDrainFailure, mergeErr)
			}
			continue
		}
		s.store.Replace(result)
		doc = result
		merged++
	}

	if err != nil {
		return nil, merged, err
	}
	return doc, merged, nil
}

// mergeOne merges snapshot into the current document, turning a panic into an error.
func (s *Serializer) mergeOne(snapshot merge.Document) (doc merge.Document, err error) {
	defer func() {
		if r := recover(); r != nil {
			doc, err = nil, fmt.Errorf("panic: %v", r)
		}
	}()
	return s.merger.Merge(s.store.Current(), snapshot)
}

func (s *Serializer) notify(hooks []func(merge.Document), doc merge.Document) {
	for _, fn := range hooks {
		func() {
			defer func() {
				if r := recover(); r != nil {
					s.log.WithField("panic", r).Error("drain hook panicked")
				}
			}()
			fn(doc)
		}()
	}
}
