// Copyright 2025 The Go MCP SDK Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package mould

import (
	"context"
	"log/slog"
	"time"
)

// Dispatcher drives one connection's session state machine (§4.8): Idle,
// Streaming(worker), Terminated. It enforces the at-most-one-active-task
// rule by construction — there is exactly one Dispatcher goroutine per
// connection, and it never starts a second Prepare/Realize before the
// first's outputs are all sent.
type Dispatcher[S any] struct {
	session    *Session[S]
	suite      *Suite[S]
	suspended  *suspendedTable[S]
	logger     *slog.Logger
	middleware []Middleware[S]
}

// DispatcherOptions configures a Dispatcher beyond its required Session and
// Suite.
type DispatcherOptions[S any] struct {
	// SuspendCapacity bounds the per-session suspended-workers table
	// (spec.md §9; default DefaultSuspendCapacity).
	SuspendCapacity int
	// PingInterval and MaxMissedPings tune the Session's proactive
	// liveness ping over a NonBlockingFlow (spec.md §4.1). Zero keeps the
	// Session's existing defaults (DefaultLivenessPingInterval,
	// DefaultMaxMissedPings).
	PingInterval   time.Duration
	MaxMissedPings int
	Logger         *slog.Logger
	Middleware     []Middleware[S]
}

// NewDispatcher builds a Dispatcher for one session.
func NewDispatcher[S any](session *Session[S], suite *Suite[S], opts DispatcherOptions[S]) *Dispatcher[S] {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	session.SetLiveness(opts.PingInterval, opts.MaxMissedPings)
	return &Dispatcher[S]{
		session:    session,
		suite:      suite,
		suspended:  newSuspendedTable[S](opts.SuspendCapacity),
		logger:     logger,
		middleware: opts.Middleware,
	}
}

// Run drives the dispatcher loop until the connection terminates (an
// orderly close or a transport failure). It always returns a non-nil error
// describing why the session ended; callers (the Acceptor) log it at an
// appropriate level and move on — per-connection faults never propagate
// beyond this call.
func (d *Dispatcher[S]) Run(ctx context.Context) error {
	defer d.suspended.clear()

	for {
		in, err := d.session.recvRequestOrResume(ctx)
		if err != nil {
			if term, fatal := d.handleIdleError(err); fatal {
				return term
			}
			continue
		}

		switch in.kind {
		case inRequest:
			if err := d.handleRequest(ctx, in.request); err != nil {
				return err
			}
		case inResume:
			if err := d.handleResume(ctx, in.resume); err != nil {
				return err
			}
		}
	}
}

// handleIdleError classifies an error from recvRequestOrResume. It returns
// (err, true) when the session must terminate, or (nil, false) when the
// dispatcher should report fail (or stay silent, for cancel) and keep
// looping in Idle.
func (d *Dispatcher[S]) handleIdleError(err error) (terminal error, fatal bool) {
	me, ok := err.(*Error)
	if !ok {
		return wrapErr(KindConnectionBroken, "unclassified error", err), true
	}
	if me.Kind.IsFatal() {
		return me, true
	}
	if me.Kind.IsSilent() {
		// A bare cancel with no active task: nothing to discard, nothing
		// to emit. Stay in Idle.
		return nil, false
	}
	d.sendBestEffort(context.Background(), OutFail(clientMessage(me)))
	return nil, false
}

// handleRequest resolves (service, action) and runs the worker through
// completion, suspension, or failure. A non-nil return means the session
// must terminate (transport failure); all other outcomes are reported to
// the client and handleRequest returns nil so the dispatcher loop
// continues.
func (d *Dispatcher[S]) handleRequest(ctx context.Context, req Request) error {
	svc, ok := d.suite.Get(req.Service)
	if !ok {
		return d.sendFailOrTerminate(ctx, newErr(KindServiceNotFound, "service not found"))
	}
	factory, ok := svc.Route(req.Action)
	if !ok {
		return d.sendFailOrTerminate(ctx, newErr(KindActionNotFound, "action not found"))
	}
	worker := factory()

	task := func(taskCtx context.Context) (TaskOutcome, error) {
		return d.runPrepare(taskCtx, worker, req.Payload)
	}
	task = chainMiddleware(req.Service, req.Action, false, task, d.middleware)

	_, err := task(ctx)
	return d.terminalOf(err)
}

// handleResume retrieves a previously suspended worker and resumes its
// streaming loop at "ready" (§4.8, Resume transition).
func (d *Dispatcher[S]) handleResume(ctx context.Context, id TaskId) error {
	worker, ok := d.suspended.remove(id)
	if !ok {
		return d.sendFailOrTerminate(ctx, newErr(KindCannotResume, "cannot resume"))
	}

	task := func(taskCtx context.Context) (TaskOutcome, error) {
		return d.streamLoop(taskCtx, worker)
	}
	task = chainMiddleware("", "", true, task, d.middleware)

	_, err := task(ctx)
	return d.terminalOf(err)
}

// runPrepare executes Worker.Prepare and either short-circuits the request
// or enters the streaming loop.
func (d *Dispatcher[S]) runPrepare(ctx context.Context, worker Worker[S], payload []byte) (TaskOutcome, error) {
	shortcut, err := worker.Prepare(d.session, payload)
	if err != nil {
		return d.reportWorkerError(ctx, err)
	}

	switch shortcut.Kind {
	case ShortcutDone:
		return OutcomeDone, d.sendOrTerminate(ctx, OutDone())
	case ShortcutOneItemAndDone:
		item, ierr := OutItem(shortcut.Item)
		if ierr != nil {
			return d.reportWorkerError(ctx, ierr)
		}
		if err := d.sendOrTerminate(ctx, item); err != nil {
			return OutcomeFail, err
		}
		return OutcomeDone, d.sendOrTerminate(ctx, OutDone())
	case ShortcutReject:
		return OutcomeReject, d.sendOrTerminate(ctx, OutReject(shortcut.Message))
	case ShortcutTuned:
		return d.streamLoop(ctx, worker)
	default:
		return d.reportWorkerError(ctx, newErr(KindWorkerFault, "worker returned an unknown shortcut"))
	}
}

// streamLoop drives a tuned (or resumed) worker: emit ready, receive
// next/suspend, call Realize, repeat (§4.8, Streaming state; §5 response
// shapes).
func (d *Dispatcher[S]) streamLoop(ctx context.Context, worker Worker[S]) (TaskOutcome, error) {
	for {
		if err := d.sendOrTerminate(ctx, OutReady()); err != nil {
			return OutcomeFail, err
		}

		in, err := d.session.recvNextOrSuspend(ctx)
		if err != nil {
			return d.handleStreamError(ctx, err)
		}

		switch in.kind {
		case inNext:
			outcome, done, terr := d.runRealize(ctx, worker, in.next, in.hasNext)
			if terr != nil {
				return OutcomeFail, terr
			}
			if done {
				return outcome, nil
			}
			// RealizeEmpty / RealizeOneItem / RealizeManyItems: loop.

		case inSuspend:
			id, ok := d.suspended.insert(worker)
			if !ok {
				return OutcomeFail, d.sendOrTerminate(ctx, OutFail("cannot suspend"))
			}
			return OutcomeSuspended, d.sendOrTerminate(ctx, OutSuspended(id))
		}
	}
}

// runRealize executes one Worker.Realize step and emits whatever items it
// produces. done reports whether the stream has reached a terminal state
// (Done); if so, outcome names it.
func (d *Dispatcher[S]) runRealize(ctx context.Context, worker Worker[S], payload []byte, hasPayload bool) (outcome TaskOutcome, done bool, err error) {
	realize, rerr := worker.Realize(d.session, payload, hasPayload)
	if rerr != nil {
		outcome, terr := d.reportWorkerError(ctx, rerr)
		return outcome, true, terr
	}

	switch realize.Kind {
	case RealizeOneItem:
		item, ierr := OutItem(realize.Item)
		if ierr != nil {
			oc, terr := d.reportWorkerError(ctx, ierr)
			return oc, true, terr
		}
		return "", false, d.sendOrTerminate(ctx, item)

	case RealizeManyItems:
		if err := d.sendItems(ctx, realize.Items); err != nil {
			return OutcomeFail, true, err
		}
		return "", false, nil

	case RealizeManyItemsAndDone:
		if err := d.sendItems(ctx, realize.Items); err != nil {
			return OutcomeFail, true, err
		}
		return OutcomeDone, true, d.sendOrTerminate(ctx, OutDone())

	case RealizeEmpty:
		return "", false, nil

	case RealizeDone:
		return OutcomeDone, true, d.sendOrTerminate(ctx, OutDone())

	default:
		oc, terr := d.reportWorkerError(ctx, newErr(KindWorkerFault, "worker returned an unknown realize"))
		return oc, true, terr
	}
}

func (d *Dispatcher[S]) sendItems(ctx context.Context, items []any) error {
	for _, v := range items {
		item, err := OutItem(v)
		if err != nil {
			return d.sendOrTerminate(ctx, OutFail(clientMessage(err)))
		}
		if err := d.sendOrTerminate(ctx, item); err != nil {
			return err
		}
	}
	return nil
}

// handleStreamError classifies an error from recvNextOrSuspend. A cancel
// silently discards the worker and returns to Idle with no output (§5
// "Cancellation"); any other error is reported (fail) or fatal.
func (d *Dispatcher[S]) handleStreamError(ctx context.Context, err error) (TaskOutcome, error) {
	me, ok := err.(*Error)
	if !ok {
		return OutcomeFail, wrapErr(KindConnectionBroken, "unclassified error", err)
	}
	if me.Kind.IsFatal() {
		return OutcomeFail, me
	}
	if me.Kind.IsSilent() {
		return OutcomeCanceled, nil
	}
	return OutcomeFail, d.sendOrTerminate(ctx, OutFail(clientMessage(me)))
}

// reportWorkerError classifies an error returned by Prepare/Realize: a
// KindReject error is a domain refusal (emit reject); anything else is an
// operational/application fault (emit fail). Both return to Idle.
func (d *Dispatcher[S]) reportWorkerError(ctx context.Context, err error) (TaskOutcome, error) {
	me, ok := err.(*Error)
	if !ok {
		return OutcomeFail, d.sendOrTerminate(ctx, OutFail(clientMessage(err)))
	}
	if me.Kind.IsFatal() {
		return OutcomeFail, me
	}
	if me.Kind.IsSilent() {
		return OutcomeCanceled, nil
	}
	if me.Kind == KindReject {
		return OutcomeReject, d.sendOrTerminate(ctx, OutReject(me.Message))
	}
	return OutcomeFail, d.sendOrTerminate(ctx, OutFail(clientMessage(me)))
}

// sendFailOrTerminate reports a dispatcher-level error (service/action not
// found, cannot resume) as a fail event, unless sending itself fails.
func (d *Dispatcher[S]) sendFailOrTerminate(ctx context.Context, err *Error) error {
	return d.sendOrTerminate(ctx, OutFail(clientMessage(err)))
}

// sendOrTerminate pushes an Output and converts a transport failure into
// the error the dispatcher loop returns to terminate the session.
func (d *Dispatcher[S]) sendOrTerminate(ctx context.Context, out Output) error {
	if err := d.session.send(ctx, out); err != nil {
		return err
	}
	return nil
}

// sendBestEffort pushes an Output, logging (not propagating) any failure.
// Used only where the caller has already decided to stay in Idle
// regardless of whether the fail event itself makes it onto the wire.
func (d *Dispatcher[S]) sendBestEffort(ctx context.Context, out Output) {
	if err := d.session.send(ctx, out); err != nil {
		d.logger.Warn("failed to send best-effort output", "who", d.session.Who(), "error", err)
	}
}

// terminalOf converts the error returned by a task into the Dispatcher.Run
// contract: nil unless the session must terminate.
func (d *Dispatcher[S]) terminalOf(err error) error {
	if err == nil {
		return nil
	}
	if me, ok := err.(*Error); ok && !me.Kind.IsFatal() {
		// Shouldn't happen given the helpers above only return non-fatal
		// errors as nil, but fail safe by reporting and continuing.
		d.sendBestEffort(context.Background(), OutFail(clientMessage(me)))
		return nil
	}
	return err
}
