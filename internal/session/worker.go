package session

import (
	"sync/atomic"

	"lexime/internal/candidates"
)

// The candidate worker moves generation off the keystroke path. Requests are
// stamped with a monotonic generation; the worker drains its queue to the
// latest request, and Poll drops any result whose generation is no longer
// current. Cancellation is implicit — a superseding generation is the only
// way to abandon in-flight work.
type workRequest struct {
	generation uint64
	reading    string
	mode       ConversionMode
}

type workResult struct {
	generation uint64
	reading    string
	response   candidates.Response
}

type candidateWorker struct {
	res        Resources
	generation atomic.Uint64
	reqCh      chan workRequest
	resCh      chan workResult
	done       chan struct{}
}

func newCandidateWorker(res Resources) *candidateWorker {
	w := &candidateWorker{
		res:   res,
		reqCh: make(chan workRequest, 8),
		resCh: make(chan workResult, 8),
		done:  make(chan struct{}),
	}
	go w.run()
	return w
}

// submit enqueues a generation-stamped request. A full queue drops the
// oldest request first; the worker only serves the newest anyway.
func (w *candidateWorker) submit(reading string, mode ConversionMode) uint64 {
	gen := w.generation.Add(1)
	req := workRequest{generation: gen, reading: reading, mode: mode}
	for {
		select {
		case w.reqCh <- req:
			return gen
		default:
			select {
			case <-w.reqCh:
			default:
			}
		}
	}
}

// invalidate bumps the generation so in-flight work becomes stale.
func (w *candidateWorker) invalidate() {
	w.generation.Add(1)
}

// tryRecv drains one result without blocking.
func (w *candidateWorker) tryRecv() (workResult, bool) {
	select {
	case r := <-w.resCh:
		return r, true
	default:
		return workResult{}, false
	}
}

func (w *candidateWorker) stop() {
	close(w.done)
}

// run is the worker loop. A panic during generation is contained and the
// loop restarts, so a poisoned request cannot take down the session.
func (w *candidateWorker) run() {
	for {
		select {
		case <-w.done:
			return
		case req := <-w.reqCh:
			w.serve(req)
		}
	}
}

func (w *candidateWorker) serve(req workRequest) {
	defer func() {
		if r := recover(); r != nil && w.res.Log != nil {
			w.res.Log.Error("candidate worker panic", "panic", r, "reading", req.reading)
		}
	}()

	// Drain to the latest queued request.
	latest := req
	for {
		select {
		case newer := <-w.reqCh:
			latest = newer
			continue
		default:
		}
		break
	}

	if latest.generation != w.generation.Load() {
		return
	}

	maxResults := w.res.Settings.Candidates.MaxResults
	var resp candidates.Response
	if latest.mode == ModePredictive {
		resp = candidates.GeneratePredictive(w.res.Dict, w.res.Conn, w.res.History, w.res.Settings, latest.reading, maxResults)
	} else {
		resp = candidates.Generate(w.res.Dict, w.res.Conn, w.res.History, w.res.Settings, latest.reading, maxResults)
	}

	if latest.generation != w.generation.Load() {
		return
	}

	result := workResult{generation: latest.generation, reading: latest.reading, response: resp}
	select {
	case w.resCh <- result:
	default:
		// The host stopped polling; drop the oldest result to make room.
		select {
		case <-w.resCh:
		default:
		}
		select {
		case w.resCh <- result:
		default:
		}
	}
}

// Poll drains worker results and applies the one matching the current
// generation. Stale results are silently dropped. Returns nil when nothing
// was applied.
func (s *Session) Poll() *KeyResponse {
	var applied *workResult
	for {
		r, ok := s.worker.tryRecv()
		if !ok {
			break
		}
		if r.generation == s.worker.generation.Load() {
			rr := r
			applied = &rr
		}
	}
	if applied == nil {
		return nil
	}

	c := s.comp
	if c == nil || c.kana != applied.reading {
		// The composition moved on while the worker was busy.
		return nil
	}

	s.applyCandidates(c, applied.response)

	resp := consumed()
	if auto, ok := s.tryAutoCommitDeferred(); ok {
		return &auto
	}
	s.buildDisplay(&resp)
	return &resp
}

// tryAutoCommitDeferred runs the stability check when a deferred result has
// just been applied.
func (s *Session) tryAutoCommitDeferred() (KeyResponse, bool) {
	return s.tryAutoCommit()
}
