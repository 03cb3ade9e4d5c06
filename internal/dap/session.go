package dap

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/go-dap"
	"github.com/google/uuid"

	"github.com/bherbruck/mcp-debugger/internal/logging"
	"github.com/bherbruck/mcp-debugger/pkg/types"
)

// validTransitions encodes the session lifecycle diagram:
//
//	created -> initializing -> ready -> running <-> paused -> terminated|error
//
// Any state may also fall through to terminated (adapter exit) or error
// (unrecoverable failure) directly. "created" and "initializing" also
// permit jumping straight to running/paused: handleDebugLaunch/Attach
// drive the DAP handshake directly and report "running" the moment
// configurationDone/launch complete without an intermediate explicit
// "ready" update, and a breakpoint can be hit (surfacing "paused") before
// any caller has polled status at all.
var validTransitions = map[types.SessionStatus]map[types.SessionStatus]bool{
	types.SessionStatusCreated:      {types.SessionStatusInitializing: true, types.SessionStatusReady: true, types.SessionStatusRunning: true, types.SessionStatusPaused: true, types.SessionStatusError: true, types.SessionStatusTerminated: true},
	types.SessionStatusInitializing: {types.SessionStatusReady: true, types.SessionStatusRunning: true, types.SessionStatusPaused: true, types.SessionStatusError: true, types.SessionStatusTerminated: true},
	types.SessionStatusReady:        {types.SessionStatusRunning: true, types.SessionStatusPaused: true, types.SessionStatusError: true, types.SessionStatusTerminated: true},
	types.SessionStatusRunning:      {types.SessionStatusPaused: true, types.SessionStatusError: true, types.SessionStatusTerminated: true},
	types.SessionStatusPaused:       {types.SessionStatusRunning: true, types.SessionStatusError: true, types.SessionStatusTerminated: true},
	types.SessionStatusTerminated:   {},
	types.SessionStatusError:        {},
}

// defaultTerminationGrace is how long a terminated session's record is kept
// around after its adapter exits, so a client that raced the terminated
// event with its own status poll still sees the final state instead of a
// "session not found" error.
const defaultTerminationGrace = 5 * time.Second

// defaultMaxTraceBuffer bounds the number of in-memory tracepoint
// snapshots a session retains, whether or not a dump file is configured
// for a tracepoint; older entries are dropped to make room for new ones.
const defaultMaxTraceBuffer = 1000

// trackedBreakpoint carries the desired breakpoint definition plus mutable
// hit-count state for tracepoints, keyed by "path:line" in Session.dumpBreakpoints.
type trackedBreakpoint struct {
	types.Breakpoint
	Path string
}

// Session represents an active debug session and its full lifecycle state,
// including the breakpoint table, tracepoint/dump engine state, and the
// most recent stop context used to answer inspection queries.
type Session struct {
	ID        string
	Language  types.Language
	Status    types.SessionStatus
	Client    *Client
	Process   *exec.Cmd
	PID       int
	Program   string
	Cwd       string
	CreatedAt time.Time

	ExitCode     *int
	ErrorMessage string

	// breakpoints holds the desired breakpoint set per absolute source
	// path, as stored by RecordBreakpoints. Nothing here sends them to the
	// adapter; FlushQueuedBreakpoints hands a copy to the caller.
	breakpoints map[string][]types.Breakpoint

	// dumpBreakpoints tracks tracepoint hit counts, keyed by "path:line".
	dumpBreakpoints map[string]*trackedBreakpoint

	collectedTraces []types.TracePoint
	maxTraceBuffer  int

	currentThreadID int
	currentFrameID  int
	lastStopContext *types.StopContext

	// pauseWaiters holds one-shot channels for goroutines blocked in
	// WaitForPause. onStopped closes and clears the slice once
	// lastStopContext and Status have both been updated for a surfaced stop.
	pauseWaiters []chan struct{}

	scheduler *scheduler

	mu sync.RWMutex
}

// StateChangeEvent is emitted on the session manager's dispatcher whenever
// a session's Status field transitions.
type StateChangeEvent struct {
	SessionID string
	Old       types.SessionStatus
	New       types.SessionStatus
}

// StopEvent is emitted whenever a session's adapter reports a stopped
// event that surfaces to the caller (i.e. not one absorbed by the
// tracepoint auto-continue path).
type StopEvent struct {
	SessionID string
	Info      *StoppedInfo
}

// OutputEvent is emitted for adapter "output" events (stdout/stderr/console).
type OutputEvent struct {
	SessionID string
	Category  string
	Output    string
}

// ErrorEvent is emitted when a session transitions to the error state or
// encounters a non-fatal but noteworthy failure (e.g. a dump write error).
type ErrorEvent struct {
	SessionID string
	Err       error
}

// CompoundSession tracks a group of sessions launched together
type CompoundSession struct {
	Name       string
	SessionIDs []string
	StopAll    bool
}

// SessionManager manages multiple debug sessions
type SessionManager struct {
	sessions          map[string]*Session
	compoundSessions  map[string]*CompoundSession // compound name -> compound session
	sessionToCompound map[string]string           // session ID -> compound name
	mu                sync.RWMutex

	maxSessions          int
	sessionTimeout       time.Duration
	terminationGrace     time.Duration
	maxTraceBuffer       int
	maxVariablesPerTrace int

	dispatcher *dispatcher
	scheduler  *scheduler

	ctx    context.Context
	cancel context.CancelFunc
}

// defaultMaxVariablesPerTrace bounds how many top-scope variables are
// captured on each tracepoint hit when config.TracepointConfig doesn't
// specify one.
const defaultMaxVariablesPerTrace = 50

// NewSessionManager creates a new session manager. maxTraceBuffer bounds
// each session's in-memory tracepoint history and maxVariablesPerTrace
// bounds how many variables are captured per hit (config.TracepointConfig);
// pass 0 for either to fall back to its package default.
func NewSessionManager(maxSessions int, sessionTimeout time.Duration, maxTraceBuffer int, maxVariablesPerTrace int) *SessionManager {
	if maxTraceBuffer <= 0 {
		maxTraceBuffer = defaultMaxTraceBuffer
	}
	if maxVariablesPerTrace <= 0 {
		maxVariablesPerTrace = defaultMaxVariablesPerTrace
	}

	ctx, cancel := context.WithCancel(context.Background())
	sm := &SessionManager{
		sessions:             make(map[string]*Session),
		compoundSessions:     make(map[string]*CompoundSession),
		sessionToCompound:    make(map[string]string),
		maxSessions:          maxSessions,
		sessionTimeout:       sessionTimeout,
		terminationGrace:     defaultTerminationGrace,
		maxTraceBuffer:       maxTraceBuffer,
		maxVariablesPerTrace: maxVariablesPerTrace,
		dispatcher:           newDispatcher(),
		scheduler:            newScheduler(),
		ctx:                  ctx,
		cancel:               cancel,
	}

	go sm.cleanupLoop()

	return sm
}

// Dispatcher exposes the manager's event dispatcher for subscribers (e.g.
// an MCP tool that streams session events back to the caller).
func (sm *SessionManager) Dispatcher() *dispatcher {
	return sm.dispatcher
}

// SetTerminationGrace overrides how long a terminated session's record is
// retained before eviction. Defaults to defaultTerminationGrace; exposed so
// tests can shrink the window instead of sleeping for the production value.
func (sm *SessionManager) SetTerminationGrace(d time.Duration) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	sm.terminationGrace = d
}

// cleanupLoop periodically terminates sessions that have existed longer
// than the session timeout. Eviction of terminated sessions after their
// grace period is done by the task terminateSessionLocked schedules.
func (sm *SessionManager) cleanupLoop() {
	ticker := time.NewTicker(1 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-sm.ctx.Done():
			return
		case <-ticker.C:
			sm.cleanupExpiredSessions()
		}
	}
}

// cleanupExpiredSessions terminates every session whose age since creation
// exceeds sessionTimeout. Sessions already terminated or in error are
// skipped; it does not evict records from the table.
func (sm *SessionManager) cleanupExpiredSessions() {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	now := time.Now()
	for id, session := range sm.sessions {
		session.mu.RLock()
		status := session.Status
		age := now.Sub(session.CreatedAt)
		session.mu.RUnlock()

		if status == types.SessionStatusTerminated || status == types.SessionStatusError {
			continue
		}
		if age > sm.sessionTimeout {
			sm.terminateSessionLocked(id, true)
		}
	}
}

// CreateSession creates a new debug session in the "created" state.
func (sm *SessionManager) CreateSession(language types.Language, program string) (*Session, error) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if len(sm.sessions) >= sm.maxSessions {
		return nil, fmt.Errorf("maximum number of sessions (%d) reached", sm.maxSessions)
	}

	session := &Session{
		ID:              uuid.New().String(),
		Language:        language,
		Status:          types.SessionStatusCreated,
		Program:         program,
		CreatedAt:       time.Now(),
		breakpoints:     make(map[string][]types.Breakpoint),
		dumpBreakpoints: make(map[string]*trackedBreakpoint),
		maxTraceBuffer:  sm.maxTraceBuffer,
		// Each session gets its own scheduler goroutine so that one
		// session's slow tracepoint dump can never delay another
		// session's stop processing.
		scheduler: newScheduler(),
	}

	sm.sessions[session.ID] = session
	logging.Session(session.ID).WithField("language", language).Info("session created")
	return session, nil
}

// GetSession retrieves a session by ID
func (sm *SessionManager) GetSession(id string) (*Session, error) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	session, ok := sm.sessions[id]
	if !ok {
		return nil, fmt.Errorf("session not found: %s", id)
	}

	return session, nil
}

// ListSessions returns all active sessions
func (sm *SessionManager) ListSessions() []*Session {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	sessions := make([]*Session, 0, len(sm.sessions))
	for _, session := range sm.sessions {
		sessions = append(sessions, session)
	}

	return sessions
}

// TerminateSession terminates a session and cleans up resources. The
// session record is retained for terminationGrace before a task on the
// manager's scheduler evicts it, so a caller that raced termination with a status poll still
// observes the terminated state.
func (sm *SessionManager) TerminateSession(id string, terminateDebuggee bool) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if _, ok := sm.sessions[id]; !ok {
		return fmt.Errorf("session not found: %s", id)
	}

	if compoundName, ok := sm.sessionToCompound[id]; ok {
		if compound, ok := sm.compoundSessions[compoundName]; ok && compound.StopAll {
			for _, siblingID := range compound.SessionIDs {
				if siblingID != id {
					sm.terminateSessionLocked(siblingID, terminateDebuggee)
					delete(sm.sessionToCompound, siblingID)
				}
			}
			delete(sm.compoundSessions, compoundName)
		}
		delete(sm.sessionToCompound, id)
	}

	sm.terminateSessionLocked(id, terminateDebuggee)
	return nil
}

// terminateSessionLocked terminates a session (must be called with sm.mu held).
// The session stays in the table, marked terminated, until a task it
// schedules on the manager's scheduler evicts it after terminationGrace.
func (sm *SessionManager) terminateSessionLocked(id string, terminateDebuggee bool) {
	session, ok := sm.sessions[id]
	if !ok {
		return
	}

	session.mu.RLock()
	alreadyTerminated := session.Status == types.SessionStatusTerminated || session.Status == types.SessionStatusError
	session.mu.RUnlock()
	if alreadyTerminated {
		return
	}

	log := logging.Session(id)

	if session.Client != nil {
		if err := session.Client.Disconnect(terminateDebuggee); err != nil {
			log.WithError(err).Warn("failed to disconnect session, continuing cleanup")
		}
		if err := session.Client.Close(); err != nil {
			log.WithError(err).Warn("failed to close client, continuing cleanup")
		}
	}

	if err := killProcessGroup(session.PID, session.Process); err != nil {
		log.WithError(err).WithField("pid", session.PID).Warn("failed to kill process group")
	}

	sm.setStatusLocked(session, types.SessionStatusTerminated)
	session.scheduler.close()

	sm.scheduler.schedule(func() {
		time.Sleep(sm.terminationGrace)
		sm.mu.Lock()
		delete(sm.sessions, id)
		sm.mu.Unlock()
	})
}

// setStatusLocked applies a state transition and emits a StateChangeEvent.
// Invalid transitions are logged and ignored rather than panicking, since
// a race between an adapter-driven terminate and a caller-driven one is
// expected and harmless.
func (sm *SessionManager) setStatusLocked(session *Session, next types.SessionStatus) {
	session.mu.Lock()
	current := session.Status
	if current == next {
		session.mu.Unlock()
		return
	}
	allowed := validTransitions[current]
	if !allowed[next] {
		session.mu.Unlock()
		logging.Session(session.ID).WithFields(map[string]interface{}{
			"from": current, "to": next,
		}).Warn("ignoring invalid session state transition")
		return
	}
	session.Status = next
	session.mu.Unlock()

	sm.dispatcher.emitState(StateChangeEvent{SessionID: session.ID, Old: current, New: next})
}

// TrackCompoundSession registers a group of sessions as a compound session.
// If stopAll is true, terminating any session in the compound will terminate all of them.
func (sm *SessionManager) TrackCompoundSession(compoundName string, sessionIDs []string, stopAll bool) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	compound := &CompoundSession{
		Name:       compoundName,
		SessionIDs: sessionIDs,
		StopAll:    stopAll,
	}

	sm.compoundSessions[compoundName] = compound

	for _, sessionID := range sessionIDs {
		sm.sessionToCompound[sessionID] = compoundName
	}
}

// GetCompoundSession returns information about a compound session
func (sm *SessionManager) GetCompoundSession(compoundName string) (*CompoundSession, bool) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	compound, ok := sm.compoundSessions[compoundName]
	return compound, ok
}

// ListCompoundSessions returns all active compound sessions
func (sm *SessionManager) ListCompoundSessions() []*CompoundSession {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	compounds := make([]*CompoundSession, 0, len(sm.compoundSessions))
	for _, compound := range sm.compoundSessions {
		compounds = append(compounds, compound)
	}
	return compounds
}

// SetSessionClient sets the DAP client for a session and wires the
// session manager's event/stop handling onto it.
func (sm *SessionManager) SetSessionClient(id string, client *Client) error {
	sm.mu.Lock()
	session, ok := sm.sessions[id]
	sm.mu.Unlock()
	if !ok {
		return fmt.Errorf("session not found: %s", id)
	}

	session.mu.Lock()
	session.Client = client
	session.mu.Unlock()

	client.SetEventHandler(func(msg dap.Message) {
		sm.handleClientEvent(session, msg)
	})

	return nil
}

// SetSessionProcess sets the spawned process for a session
func (sm *SessionManager) SetSessionProcess(id string, cmd *exec.Cmd, pid int) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	session, ok := sm.sessions[id]
	if !ok {
		return fmt.Errorf("session not found: %s", id)
	}

	session.mu.Lock()
	session.Process = cmd
	session.PID = pid
	session.mu.Unlock()
	return nil
}

// UpdateSessionStatus updates the status of a session, validating the
// transition against the lifecycle diagram.
func (sm *SessionManager) UpdateSessionStatus(id string, status types.SessionStatus) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	session, ok := sm.sessions[id]
	if !ok {
		return fmt.Errorf("session not found: %s", id)
	}

	sm.setStatusLocked(session, status)
	return nil
}

// Close shuts down the session manager and all sessions
func (sm *SessionManager) Close() {
	sm.cancel()

	sm.mu.Lock()
	for id := range sm.sessions {
		sm.terminateSessionLocked(id, true)
	}
	// The manager is shutting down, so there is no caller left to race a
	// status poll against; drop the grace-delay eviction and clear the
	// table immediately rather than leaving it to a scheduler task that
	// close() below would silently discard.
	sm.sessions = make(map[string]*Session)
	sm.mu.Unlock()

	sm.scheduler.close()
}

// GetInfo returns session info for a session
func (s *Session) GetInfo() types.SessionInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()

	info := types.SessionInfo{
		SessionID: s.ID,
		Language:  s.Language,
		Status:    s.Status,
		PID:       s.PID,
		Program:   s.Program,
		Cwd:       s.Cwd,
		ExitCode:  s.ExitCode,
		CreatedAt: s.CreatedAt.Unix(),
	}
	if s.lastStopContext != nil {
		info.StoppedReason = s.lastStopContext.Reason
		info.StoppedThreadID = s.lastStopContext.ThreadID
	}
	if s.ErrorMessage != "" {
		info.ErrorMessage = s.ErrorMessage
	}
	return info
}

// --- Breakpoint table ---

// RecordBreakpoints stores the desired breakpoint set for a source path in
// the session's own table and updates the tracepoint tracking map. It does
// not talk to the adapter: the caller (the mcp handler, which owns
// dap.Source/dap.SourceBreakpoint construction) is responsible for
// forwarding the same set through Client.SetBreakpoints once the session
// is ready, and for calling this method again with the adapter-confirmed
// results. Recording ahead of "ready" implements the "breakpoints may be
// set before launch completes" requirement (spec §4.4): IsReady reports
// whether the caller should send the request immediately or queue it.
func (s *Session) RecordBreakpoints(absPath string, breakpoints []types.Breakpoint) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.breakpoints[absPath] = breakpoints
	for _, bp := range breakpoints {
		if bp.IsTracepoint() {
			key := dumpKey(absPath, bp.Line)
			s.dumpBreakpoints[key] = &trackedBreakpoint{Breakpoint: bp, Path: absPath}
		}
	}
}

// IsReady reports whether the session has completed its handshake and can
// accept breakpoint requests immediately rather than queueing them.
func (s *Session) IsReady() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.Status != types.SessionStatusCreated && s.Status != types.SessionStatusInitializing
}

// FlushQueuedBreakpoints returns a copy of every recorded breakpoint set,
// keyed by path, so the caller can forward each one through the adapter's
// setBreakpoints request. It sends nothing itself and leaves the table as is.
func (s *Session) FlushQueuedBreakpoints() map[string][]types.Breakpoint {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string][]types.Breakpoint, len(s.breakpoints))
	for path, bps := range s.breakpoints {
		out[path] = bps
	}
	return out
}

func dumpKey(path string, line int) string {
	return fmt.Sprintf("%s:%d", filepath.Clean(path), line)
}

// --- Tracepoint / dump engine ---

// handleClientEvent is installed as the Client's event handler. It is
// invoked synchronously from the connection's read loop, so it must never
// call back into the client (StackTrace, Scopes, Continue, ...): doing so
// would block that same read loop waiting for a response only it can
// deliver. Every event is instead handed to the session's scheduler, which
// runs on its own goroutine and is free to make further requests.
func (sm *SessionManager) handleClientEvent(session *Session, msg dap.Message) {
	session.scheduler.schedule(func() {
		sm.processClientEvent(session, msg)
	})
}

// processClientEvent does the actual work for handleClientEvent, off the
// read loop. It updates currentThreadID/lastStopContext on stopped events,
// applies the tracepoint auto-continue path when the stop matches a
// tracing breakpoint, and forwards output/terminated events to the
// manager's dispatcher.
func (sm *SessionManager) processClientEvent(session *Session, msg dap.Message) {
	log := logging.Session(session.ID)

	switch e := msg.(type) {
	case *dap.StoppedEvent:
		sm.onStopped(session, e)
	case *dap.OutputEvent:
		sm.dispatcher.emitOutput(OutputEvent{
			SessionID: session.ID,
			Category:  e.Body.Category,
			Output:    e.Body.Output,
		})
	case *dap.TerminatedEvent:
		sm.mu.Lock()
		sm.terminateSessionLocked(session.ID, false)
		sm.mu.Unlock()
	case *dap.ExitedEvent:
		code := e.Body.ExitCode
		session.mu.Lock()
		session.ExitCode = &code
		session.mu.Unlock()
	case *dap.ContinuedEvent:
		sm.mu.Lock()
		sm.setStatusLocked(session, types.SessionStatusRunning)
		sm.mu.Unlock()
	default:
		log.WithField("type", fmt.Sprintf("%T", msg)).Debug("unhandled DAP event")
	}
}

// onStopped implements spec §4.4's stopped-event handling. If the stop was
// caused by a tracepoint breakpoint, it snapshots state and schedules an
// auto-continue instead of surfacing "paused"; otherwise it caches the
// stop context and transitions the session to paused.
func (sm *SessionManager) onStopped(session *Session, e *dap.StoppedEvent) {
	log := logging.Session(session.ID)

	session.mu.Lock()
	session.currentThreadID = e.Body.ThreadId
	client := session.Client
	session.mu.Unlock()

	if client == nil {
		return
	}

	tb := session.matchTracepoint(e)
	if tb != nil {
		sm.captureTracepointHit(session, client, e, tb)
		// The deferred continue never runs inline here: scheduling it
		// avoids reentering event processing from inside this handler
		// while the adapter may still be delivering the rest of the
		// stopped-event's side effects (spec §9 reentrancy warning).
		session.scheduler.schedule(func() {
			if _, err := client.Continue(e.Body.ThreadId); err != nil {
				log.WithError(err).Warn("tracepoint auto-continue failed")
			}
		})
		return
	}

	ctx := session.captureStopContext(client, e)

	session.mu.Lock()
	session.lastStopContext = ctx
	session.mu.Unlock()

	sm.mu.Lock()
	sm.setStatusLocked(session, types.SessionStatusPaused)
	sm.mu.Unlock()

	session.closePauseWaiters()

	sm.dispatcher.emitStop(StopEvent{SessionID: session.ID, Info: &StoppedInfo{
		Reason:      e.Body.Reason,
		ThreadID:    e.Body.ThreadId,
		Description: e.Body.Description,
		AllStopped:  e.Body.AllThreadsStopped,
	}})
}

// WaitForPause implements spec §4.4's wait-for-pause helper: it resolves
// when the session's next surfaced stop arrives, or immediately if the
// cached state already shows paused. Unlike the client's WaitForStopped, it
// never returns an error on timeout — the caller distinguishes "no stop
// happened" by checking the returned context and the session's Status.
func (session *Session) WaitForPause(timeout time.Duration) *types.StopContext {
	session.mu.Lock()
	if session.Status == types.SessionStatusPaused {
		ctx := session.lastStopContext
		session.mu.Unlock()
		return ctx
	}
	ch := make(chan struct{})
	session.pauseWaiters = append(session.pauseWaiters, ch)
	session.mu.Unlock()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-ch:
	case <-timer.C:
		session.mu.Lock()
		for i, w := range session.pauseWaiters {
			if w == ch {
				session.pauseWaiters = append(session.pauseWaiters[:i], session.pauseWaiters[i+1:]...)
				break
			}
		}
		session.mu.Unlock()
	}

	session.mu.RLock()
	defer session.mu.RUnlock()
	return session.lastStopContext
}

// closePauseWaiters wakes every goroutine blocked in WaitForPause. Must be
// called after lastStopContext and Status have both been updated for the
// stop, and never from the tracepoint auto-continue path (which never
// surfaces a pause to callers).
func (session *Session) closePauseWaiters() {
	session.mu.Lock()
	waiters := session.pauseWaiters
	session.pauseWaiters = nil
	session.mu.Unlock()

	for _, ch := range waiters {
		close(ch)
	}
}

// matchTracepoint reports the tracked tracepoint breakpoint hit by this
// stop, if any. DAP does not report which breakpoint id was hit on every
// adapter, so the match is made against the current top frame's file:line
// once the stack trace is available.
func (session *Session) matchTracepoint(e *dap.StoppedEvent) *trackedBreakpoint {
	if e.Body.Reason != "breakpoint" {
		return nil
	}
	session.mu.RLock()
	defer session.mu.RUnlock()
	if len(session.dumpBreakpoints) == 0 {
		return nil
	}
	frame := session.topFrameUnlocked(e.Body.ThreadId)
	if frame == nil || frame.Source == nil || frame.Source.Path == "" {
		return nil
	}
	key := dumpKey(frame.Source.Path, frame.Line)
	return session.dumpBreakpoints[key]
}

// topFrameUnlocked fetches the top stack frame for a thread directly
// through the client, bypassing lastStopContext (which has not been
// updated for this stop yet). Caller must hold session.mu.
func (session *Session) topFrameUnlocked(threadID int) *types.StackFrame {
	if session.Client == nil {
		return nil
	}
	frames, _, err := session.Client.StackTrace(threadID, 0, 1)
	if err != nil || len(frames) == 0 {
		return nil
	}
	f := frames[0]
	var src *types.SourceInfo
	if f.Source != nil {
		src = &types.SourceInfo{Name: f.Source.Name, Path: f.Source.Path, SourceReference: f.Source.SourceReference}
	}
	return &types.StackFrame{ID: f.Id, Name: f.Name, Source: src, Line: f.Line, Column: f.Column}
}

// captureStopContext gathers the top frame, its scopes, and top-level
// locals for a stop, used both to answer immediate inspection queries and
// as the cached "last known state" for step/continue return values.
func (session *Session) captureStopContext(client *Client, e *dap.StoppedEvent) *types.StopContext {
	ctx := &types.StopContext{Reason: e.Body.Reason, ThreadID: e.Body.ThreadId}

	frames, _, err := client.StackTrace(e.Body.ThreadId, 0, 20)
	if err != nil {
		return ctx
	}
	for _, f := range frames {
		var src *types.SourceInfo
		if f.Source != nil {
			src = &types.SourceInfo{Name: f.Source.Name, Path: f.Source.Path, SourceReference: f.Source.SourceReference}
		}
		ctx.Frames = append(ctx.Frames, types.StackFrame{ID: f.Id, Name: f.Name, Source: src, Line: f.Line, Column: f.Column})
	}
	if len(ctx.Frames) == 0 {
		return ctx
	}
	top := ctx.Frames[0]
	ctx.TopFrame = &top
	session.mu.Lock()
	session.currentFrameID = top.ID
	session.mu.Unlock()

	scopes, err := client.Scopes(top.ID)
	if err != nil {
		return ctx
	}
	for _, sc := range scopes {
		ctx.Scopes = append(ctx.Scopes, types.Scope{
			Name: sc.Name, VariablesReference: sc.VariablesReference,
			NamedVariables: sc.NamedVariables, IndexedVariables: sc.IndexedVariables, Expensive: sc.Expensive,
		})
	}
	if len(ctx.Scopes) > 0 {
		localIdx := findLocalScopeIndex(scopes)
		if localIdx < 0 {
			localIdx = 0
		}
		vars, err := client.Variables(ctx.Scopes[localIdx].VariablesReference, "", 0, 0)
		if err == nil {
			for _, v := range vars {
				ctx.Variables = append(ctx.Variables, types.Variable{
					Name: v.Name, Value: v.Value, Type: v.Type, VariablesReference: v.VariablesReference,
					NamedVariables: v.NamedVariables, IndexedVariables: v.IndexedVariables,
				})
			}
		}
	}
	return ctx
}

// captureTracepointHit snapshots a tracepoint's variables into the
// session's trace buffer and, if a dump file is configured, appends a
// JSONL record to it. maxDumps (when set) bounds how many hits are
// recorded before the tracepoint reverts to a normal breakpoint.
func (sm *SessionManager) captureTracepointHit(session *Session, client *Client, e *dap.StoppedEvent, tb *trackedBreakpoint) {
	log := logging.Session(session.ID)

	frames, _, err := client.StackTrace(e.Body.ThreadId, 0, 1)
	if err != nil || len(frames) == 0 {
		log.WithError(err).Warn("failed to capture stack trace for tracepoint hit")
		return
	}
	top := frames[0]

	var vars []types.Variable
	if scopes, err := client.Scopes(top.Id); err == nil && len(scopes) > 0 {
		localIdx := findLocalScopeIndex(scopes)
		if localIdx < 0 {
			localIdx = 0
		}
		if raw, err := client.Variables(scopes[localIdx].VariablesReference, "", 0, 0); err == nil {
			for i, v := range raw {
				if i >= sm.maxVariablesPerTrace {
					break
				}
				vars = append(vars, types.Variable{Name: v.Name, Value: v.Value, Type: v.Type, VariablesReference: v.VariablesReference})
			}
		}
	}

	session.mu.Lock()
	tb.DumpCount++
	hitNumber := tb.DumpCount
	point := types.TracePoint{
		HitNumber: hitNumber,
		Timestamp: time.Now().UnixMilli(),
		File:      sourcePath(top),
		Line:      top.Line,
		Function:  top.Name,
		Variables: vars,
	}
	session.collectedTraces = append(session.collectedTraces, point)
	if len(session.collectedTraces) > session.maxTraceBuffer {
		session.collectedTraces = session.collectedTraces[len(session.collectedTraces)-session.maxTraceBuffer:]
	}
	dumpFile := tb.DumpFile
	maxDumps := tb.MaxDumps
	session.mu.Unlock()

	if dumpFile != "" {
		if err := appendDumpRecord(dumpFile, point); err != nil {
			log.WithError(err).WithField("path", dumpFile).Warn("failed to append tracepoint dump")
			sm.dispatcher.emitError(ErrorEvent{SessionID: session.ID, Err: err})
		}
	}

	if maxDumps > 0 && hitNumber >= maxDumps {
		session.mu.Lock()
		key := dumpKey(tb.Path, tb.Line)
		delete(session.dumpBreakpoints, key)
		session.mu.Unlock()
		log.WithField("path", tb.Path).WithField("line", tb.Line).Info("tracepoint reached maxDumps, reverting to a normal breakpoint")
	}
}

// findLocalScopeIndex returns the index of the scope whose name matches
// "*local*" case-insensitively (spec §4.4 step 4), or -1 if none does.
// Adapters are not guaranteed to return Locals first, so callers must not
// assume scopes[0] is the local scope.
func findLocalScopeIndex(scopes []dap.Scope) int {
	for i, sc := range scopes {
		if strings.Contains(strings.ToLower(sc.Name), "local") {
			return i
		}
	}
	return -1
}

func sourcePath(f dap.StackFrame) string {
	if f.Source != nil {
		return f.Source.Path
	}
	return ""
}

// appendDumpRecord appends one JSON-encoded TracePoint per line to path,
// creating it if necessary.
func appendDumpRecord(path string, point types.TracePoint) error {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	return enc.Encode(point)
}

// appendTrace assigns the next hit number and appends tp to the session's
// in-memory trace buffer, trimming the oldest entry once maxTraceBuffer is
// exceeded. Returns the trace point as stored, with HitNumber populated.
func (session *Session) appendTrace(tp types.TracePoint) types.TracePoint {
	session.mu.Lock()
	defer session.mu.Unlock()
	tp.HitNumber = len(session.collectedTraces) + 1
	session.collectedTraces = append(session.collectedTraces, tp)
	if len(session.collectedTraces) > session.maxTraceBuffer {
		session.collectedTraces = session.collectedTraces[len(session.collectedTraces)-session.maxTraceBuffer:]
	}
	return tp
}

// tracePointFromContext builds a TracePoint from a cached stop context, as
// used by the continue collect-hits loop and step-and-trace.
func tracePointFromContext(ctx *types.StopContext) types.TracePoint {
	tp := types.TracePoint{Timestamp: time.Now().UnixMilli(), Variables: ctx.Variables}
	if ctx.TopFrame != nil {
		tp.Line = ctx.TopFrame.Line
		tp.Function = ctx.TopFrame.Name
		if ctx.TopFrame.Source != nil {
			tp.File = ctx.TopFrame.Source.Path
		}
	}
	return tp
}

// ContinueOptions configures the advanced modes of Continue (spec §4.4
// "Continue with options").
type ContinueOptions struct {
	// WaitForBreakpoint, if set, blocks until the next pause (or Timeout
	// elapses) and reports the resulting stop context.
	WaitForBreakpoint bool
	// Timeout bounds WaitForBreakpoint and the collect-hits loop's overall
	// budget. Defaults to 30s when zero.
	Timeout time.Duration
	// CollectHits, if > 0, repeatedly continues and waits for a pause up to
	// this many times, recording a TracePoint from each hit.
	CollectHits int
}

// ContinueResult reports the outcome of a Continue call, including any
// stop context or traces gathered by the advanced modes.
type ContinueResult struct {
	AllThreadsContinued bool
	State               types.SessionStatus
	Message             string
	StoppedAt           *types.StopContext
	Traces              []types.TracePoint
}

const defaultContinueTimeout = 30 * time.Second

// Continue resumes execution on threadID and, depending on opts, either
// returns immediately, waits for the resulting pause, or drives a
// collect-hits loop (spec §4.4 "Continue with options", tested by spec §8
// testable property #4).
func (sm *SessionManager) Continue(session *Session, threadID int, opts ContinueOptions) (*ContinueResult, error) {
	session.mu.RLock()
	client := session.Client
	session.mu.RUnlock()
	if client == nil {
		return nil, fmt.Errorf("session %s has no attached client", session.ID)
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultContinueTimeout
	}

	if opts.CollectHits > 0 {
		return sm.continueCollectHits(session, client, threadID, opts.CollectHits, timeout)
	}

	allContinued, err := client.Continue(threadID)
	if err != nil {
		return nil, err
	}
	sm.mu.Lock()
	sm.setStatusLocked(session, types.SessionStatusRunning)
	sm.mu.Unlock()

	result := &ContinueResult{AllThreadsContinued: allContinued}

	if opts.WaitForBreakpoint {
		ctx := session.WaitForPause(timeout)
		result.State = session.GetInfo().Status
		if result.State == types.SessionStatusPaused && ctx != nil {
			result.Message = "paused"
			result.StoppedAt = ctx
			return result, nil
		}
		result.Message = "no breakpoint hit"
		return result, nil
	}

	result.State = session.GetInfo().Status
	return result, nil
}

// continueCollectHits clears the trace buffer, then continues and waits for
// a pause up to collectHits times, breaking early once a continue fails to
// reach a pause within the remaining budget.
func (sm *SessionManager) continueCollectHits(session *Session, client *Client, threadID int, collectHits int, timeout time.Duration) (*ContinueResult, error) {
	deadline := time.Now().Add(timeout)
	session.ClearTraces()

	result := &ContinueResult{AllThreadsContinued: true}

	for i := 0; i < collectHits; i++ {
		allContinued, err := client.Continue(threadID)
		if err != nil {
			return nil, err
		}
		result.AllThreadsContinued = result.AllThreadsContinued && allContinued
		sm.mu.Lock()
		sm.setStatusLocked(session, types.SessionStatusRunning)
		sm.mu.Unlock()

		remaining := time.Until(deadline)
		if remaining <= 0 {
			remaining = time.Millisecond
		}
		ctx := session.WaitForPause(remaining)

		if session.GetInfo().Status != types.SessionStatusPaused || ctx == nil {
			break
		}
		tp := session.appendTrace(tracePointFromContext(ctx))
		result.Traces = append(result.Traces, tp)
		result.StoppedAt = ctx
	}

	result.State = session.GetInfo().Status
	if len(result.Traces) < collectHits {
		result.Message = fmt.Sprintf("collected %d of %d requested hits", len(result.Traces), collectHits)
	} else {
		result.Message = fmt.Sprintf("collected %d hits", len(result.Traces))
	}
	return result, nil
}

// StepAndTraceOptions configures StepAndTrace (spec §4.4 "Step-and-trace").
type StepAndTraceOptions struct {
	// Count is how many steps to execute. Defaults to 1 when zero.
	Count int
	// Timeout bounds the whole operation. Defaults to 30s when zero.
	Timeout time.Duration
	// StepType selects the DAP request issued each iteration: "over"
	// (Next), "into" (StepIn), or "out" (StepOut). Defaults to "over".
	StepType string
	// DumpFile, if set, receives one JSONL record per step in addition to
	// the returned trace list.
	DumpFile string
}

// StepAndTraceResult reports how many steps completed and the traces
// gathered along the way.
type StepAndTraceResult struct {
	StepsCompleted int
	State          types.SessionStatus
	Traces         []types.TracePoint
}

const stepAndTracePerStepCap = 5 * time.Second

// StepAndTrace implements spec §4.4 "Step-and-trace": while the session is
// paused and budget remains, it snapshots the current stop context as a
// TracePoint, executes the selected step, then waits for the resulting
// pause with a per-step cap.
func (sm *SessionManager) StepAndTrace(session *Session, threadID int, opts StepAndTraceOptions) (*StepAndTraceResult, error) {
	session.mu.RLock()
	client := session.Client
	session.mu.RUnlock()
	if client == nil {
		return nil, fmt.Errorf("session %s has no attached client", session.ID)
	}

	count := opts.Count
	if count <= 0 {
		count = 1
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultContinueTimeout
	}
	deadline := time.Now().Add(timeout)

	result := &StepAndTraceResult{}

	for i := 0; i < count; i++ {
		if session.GetInfo().Status != types.SessionStatusPaused || time.Now().After(deadline) {
			break
		}

		if ctx := session.LastStopContext(); ctx != nil {
			tp := session.appendTrace(tracePointFromContext(ctx))
			if opts.DumpFile != "" {
				if err := appendDumpRecord(opts.DumpFile, tp); err != nil {
					logging.Session(session.ID).WithError(err).WithField("path", opts.DumpFile).Warn("failed to append step-and-trace dump")
				}
			}
			result.Traces = append(result.Traces, tp)
		}

		var stepErr error
		switch opts.StepType {
		case "into":
			stepErr = client.StepIn(threadID)
		case "out":
			stepErr = client.StepOut(threadID)
		default:
			stepErr = client.Next(threadID)
		}
		if stepErr != nil {
			return nil, stepErr
		}
		sm.mu.Lock()
		sm.setStatusLocked(session, types.SessionStatusRunning)
		sm.mu.Unlock()
		result.StepsCompleted++

		remaining := time.Until(deadline)
		perStepCap := stepAndTracePerStepCap
		if remaining < perStepCap {
			perStepCap = remaining
		}
		if perStepCap <= 0 {
			perStepCap = time.Millisecond
		}
		session.WaitForPause(perStepCap)
	}

	result.State = session.GetInfo().Status
	return result, nil
}

// GetTraces returns a copy of the session's collected in-memory traces.
func (session *Session) GetTraces() []types.TracePoint {
	session.mu.RLock()
	defer session.mu.RUnlock()
	out := make([]types.TracePoint, len(session.collectedTraces))
	copy(out, session.collectedTraces)
	return out
}

// ClearTraces discards the session's in-memory trace buffer and resets
// every tracked tracepoint's hit counter so it starts dumping again.
// Tracepoints that reached maxDumps and were dropped from tracking are
// re-tracked from the recorded breakpoint table.
func (session *Session) ClearTraces() {
	session.mu.Lock()
	defer session.mu.Unlock()
	session.collectedTraces = nil
	for _, tb := range session.dumpBreakpoints {
		tb.DumpCount = 0
	}
	for path, bps := range session.breakpoints {
		for _, bp := range bps {
			key := dumpKey(path, bp.Line)
			if _, tracked := session.dumpBreakpoints[key]; bp.IsTracepoint() && !tracked {
				bp.DumpCount = 0
				session.dumpBreakpoints[key] = &trackedBreakpoint{Breakpoint: bp, Path: path}
			}
		}
	}
}

// CurrentThread returns the thread id of the most recent stop, or 0 if the
// session has never stopped.
func (session *Session) CurrentThread() int {
	session.mu.RLock()
	defer session.mu.RUnlock()
	return session.currentThreadID
}

// LastStopContext returns the cached context from the most recent
// non-tracepoint stop, or nil if the session has never paused.
func (session *Session) LastStopContext() *types.StopContext {
	session.mu.RLock()
	defer session.mu.RUnlock()
	return session.lastStopContext
}

// CurrentFrame returns the frame id refreshed by the most recent
// getStackTrace call or stop event, or 0 if none has occurred yet.
func (session *Session) CurrentFrame() int {
	session.mu.RLock()
	defer session.mu.RUnlock()
	return session.currentFrameID
}

// SetCurrentFrame updates the frame id used as the default for scope and
// variable lookups (spec §4.4: "getStackTrace also refreshes currentFrameId").
func (session *Session) SetCurrentFrame(frameID int) {
	session.mu.Lock()
	defer session.mu.Unlock()
	session.currentFrameID = frameID
}

// HasBreakpointAt reports whether absPath:line carries a recorded
// breakpoint, used to annotate source-context windows.
func (session *Session) HasBreakpointAt(absPath string, line int) bool {
	session.mu.RLock()
	defer session.mu.RUnlock()
	for _, bp := range session.breakpoints[absPath] {
		if bp.Line == line {
			return true
		}
	}
	return false
}
