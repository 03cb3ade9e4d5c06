package test

import (
	"testing"
	"time"

	"github.com/bherbruck/mcp-debugger/internal/dap"
	"github.com/bherbruck/mcp-debugger/pkg/types"
)

// TestSessionManager_CreateSession verifies session creation.
func TestSessionManager_CreateSession(t *testing.T) {
	sm := dap.NewSessionManager(10, 30*time.Minute, 0, 0)
	defer sm.Close()

	session, err := sm.CreateSession(types.LanguagePython, "/path/to/program.py")
	if err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}

	// Verify session fields
	if session.ID == "" {
		t.Error("expected session ID to be set")
	}
	if session.Language != types.LanguagePython {
		t.Errorf("expected language %s, got %s", types.LanguagePython, session.Language)
	}
	if session.Program != "/path/to/program.py" {
		t.Errorf("expected program /path/to/program.py, got %s", session.Program)
	}
	if session.Status != types.SessionStatusCreated {
		t.Errorf("expected status %s, got %s", types.SessionStatusCreated, session.Status)
	}
	if session.CreatedAt.IsZero() {
		t.Error("expected CreatedAt to be set")
	}
}

// TestSessionManager_MaxSessions verifies max session limit enforcement.
func TestSessionManager_MaxSessions(t *testing.T) {
	sm := dap.NewSessionManager(2, 30*time.Minute, 0, 0) // Max 2 sessions
	defer sm.Close()

	// Create first session
	_, err := sm.CreateSession(types.LanguagePython, "/path/1.py")
	if err != nil {
		t.Fatalf("first session failed: %v", err)
	}

	// Create second session
	_, err = sm.CreateSession(types.LanguageGo, "/path/2.go")
	if err != nil {
		t.Fatalf("second session failed: %v", err)
	}

	// Third session should fail
	_, err = sm.CreateSession(types.LanguageJavaScript, "/path/3.js")
	if err == nil {
		t.Error("expected error when max sessions reached")
	}
}

// TestSessionManager_GetSession verifies session retrieval.
func TestSessionManager_GetSession(t *testing.T) {
	sm := dap.NewSessionManager(10, 30*time.Minute, 0, 0)
	defer sm.Close()

	// Create a session
	created, err := sm.CreateSession(types.LanguagePython, "/path/to/program.py")
	if err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}

	// Get by ID
	retrieved, err := sm.GetSession(created.ID)
	if err != nil {
		t.Fatalf("GetSession failed: %v", err)
	}

	if retrieved.ID != created.ID {
		t.Errorf("expected ID %s, got %s", created.ID, retrieved.ID)
	}
}

// TestSessionManager_GetSession_NotFound verifies error for non-existent session.
func TestSessionManager_GetSession_NotFound(t *testing.T) {
	sm := dap.NewSessionManager(10, 30*time.Minute, 0, 0)
	defer sm.Close()

	_, err := sm.GetSession("nonexistent-id")
	if err == nil {
		t.Error("expected error for non-existent session")
	}
}

// TestSessionManager_ListSessions verifies listing all sessions.
func TestSessionManager_ListSessions(t *testing.T) {
	sm := dap.NewSessionManager(10, 30*time.Minute, 0, 0)
	defer sm.Close()

	// Initially empty
	sessions := sm.ListSessions()
	if len(sessions) != 0 {
		t.Errorf("expected 0 sessions, got %d", len(sessions))
	}

	// Create sessions
	_, _ = sm.CreateSession(types.LanguagePython, "/path/1.py")
	_, _ = sm.CreateSession(types.LanguageGo, "/path/2.go")
	_, _ = sm.CreateSession(types.LanguageJavaScript, "/path/3.js")

	sessions = sm.ListSessions()
	if len(sessions) != 3 {
		t.Errorf("expected 3 sessions, got %d", len(sessions))
	}
}

// TestSessionManager_TerminateSession verifies session termination. A
// terminated session stays visible in the "terminated" state for the grace
// window (so a caller racing termination with a status poll still sees the
// terminal state) and is only evicted afterward.
func TestSessionManager_TerminateSession(t *testing.T) {
	sm := dap.NewSessionManager(10, 30*time.Minute, 0, 0)
	sm.SetTerminationGrace(20 * time.Millisecond)
	defer sm.Close()

	// Create a session
	session, err := sm.CreateSession(types.LanguagePython, "/path/to/program.py")
	if err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}

	// Terminate it
	err = sm.TerminateSession(session.ID, true)
	if err != nil {
		t.Fatalf("TerminateSession failed: %v", err)
	}

	// Still visible during the grace window, in the terminated state.
	retrieved, err := sm.GetSession(session.ID)
	if err != nil {
		t.Fatalf("expected session to remain visible during grace window: %v", err)
	}
	if retrieved.Status != types.SessionStatusTerminated {
		t.Errorf("expected status %s, got %s", types.SessionStatusTerminated, retrieved.Status)
	}

	// Terminating again is a no-op, not an error or a double-close panic.
	if err := sm.TerminateSession(session.ID, true); err != nil {
		t.Fatalf("expected repeat termination to be a no-op, got: %v", err)
	}

	// After the grace window elapses, the record is evicted.
	time.Sleep(100 * time.Millisecond)
	_, err = sm.GetSession(session.ID)
	if err == nil {
		t.Error("expected error after grace window eviction")
	}
	sessions := sm.ListSessions()
	if len(sessions) != 0 {
		t.Errorf("expected 0 sessions after grace window eviction, got %d", len(sessions))
	}
}

// TestSessionManager_TerminateSession_NotFound verifies error for non-existent termination.
func TestSessionManager_TerminateSession_NotFound(t *testing.T) {
	sm := dap.NewSessionManager(10, 30*time.Minute, 0, 0)
	defer sm.Close()

	err := sm.TerminateSession("nonexistent-id", true)
	if err == nil {
		t.Error("expected error for non-existent session termination")
	}
}

// TestSessionManager_UpdateSessionStatus verifies status updates.
func TestSessionManager_UpdateSessionStatus(t *testing.T) {
	sm := dap.NewSessionManager(10, 30*time.Minute, 0, 0)
	defer sm.Close()

	session, err := sm.CreateSession(types.LanguagePython, "/path/to/program.py")
	if err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}

	// Walk the valid lifecycle chain: created -> initializing -> ready -> running.
	for _, next := range []types.SessionStatus{
		types.SessionStatusInitializing,
		types.SessionStatusReady,
		types.SessionStatusRunning,
	} {
		if err := sm.UpdateSessionStatus(session.ID, next); err != nil {
			t.Fatalf("UpdateSessionStatus(%s) failed: %v", next, err)
		}
	}

	// Verify update
	retrieved, _ := sm.GetSession(session.ID)
	if retrieved.Status != types.SessionStatusRunning {
		t.Errorf("expected status %s, got %s", types.SessionStatusRunning, retrieved.Status)
	}
}

// TestSessionManager_UpdateSessionStatus_NotFound verifies error for non-existent status update.
func TestSessionManager_UpdateSessionStatus_NotFound(t *testing.T) {
	sm := dap.NewSessionManager(10, 30*time.Minute, 0, 0)
	defer sm.Close()

	err := sm.UpdateSessionStatus("nonexistent-id", types.SessionStatusRunning)
	if err == nil {
		t.Error("expected error for non-existent session status update")
	}
}

// TestSessionManager_SetSessionProcess verifies process tracking.
func TestSessionManager_SetSessionProcess(t *testing.T) {
	sm := dap.NewSessionManager(10, 30*time.Minute, 0, 0)
	defer sm.Close()

	session, err := sm.CreateSession(types.LanguagePython, "/path/to/program.py")
	if err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}

	// Set process info (nil cmd is fine for testing)
	err = sm.SetSessionProcess(session.ID, nil, 12345)
	if err != nil {
		t.Fatalf("SetSessionProcess failed: %v", err)
	}

	// Verify update
	retrieved, _ := sm.GetSession(session.ID)
	if retrieved.PID != 12345 {
		t.Errorf("expected PID 12345, got %d", retrieved.PID)
	}
}

// TestSessionManager_SetSessionProcess_NotFound verifies error handling.
func TestSessionManager_SetSessionProcess_NotFound(t *testing.T) {
	sm := dap.NewSessionManager(10, 30*time.Minute, 0, 0)
	defer sm.Close()

	err := sm.SetSessionProcess("nonexistent-id", nil, 12345)
	if err == nil {
		t.Error("expected error for non-existent session process update")
	}
}

// TestSessionManager_CompoundSessions verifies compound session tracking.
func TestSessionManager_CompoundSessions(t *testing.T) {
	sm := dap.NewSessionManager(10, 30*time.Minute, 0, 0)
	defer sm.Close()

	// Create sessions
	s1, _ := sm.CreateSession(types.LanguagePython, "/path/1.py")
	s2, _ := sm.CreateSession(types.LanguageGo, "/path/2.go")

	// Track as compound
	sm.TrackCompoundSession("Full Stack", []string{s1.ID, s2.ID}, true)

	// Verify compound exists
	compound, ok := sm.GetCompoundSession("Full Stack")
	if !ok {
		t.Fatal("compound session not found")
	}
	if compound.Name != "Full Stack" {
		t.Errorf("expected name 'Full Stack', got %s", compound.Name)
	}
	if !compound.StopAll {
		t.Error("expected StopAll to be true")
	}
	if len(compound.SessionIDs) != 2 {
		t.Errorf("expected 2 session IDs, got %d", len(compound.SessionIDs))
	}
}

// TestSessionManager_CompoundSessions_StopAll verifies stopAll behavior.
func TestSessionManager_CompoundSessions_StopAll(t *testing.T) {
	sm := dap.NewSessionManager(10, 30*time.Minute, 0, 0)
	defer sm.Close()

	// Create sessions
	s1, _ := sm.CreateSession(types.LanguagePython, "/path/1.py")
	s2, _ := sm.CreateSession(types.LanguageGo, "/path/2.go")

	// Track as compound with stopAll=true
	sm.TrackCompoundSession("Full Stack", []string{s1.ID, s2.ID}, true)

	// Terminate one session - should terminate both due to stopAll
	err := sm.TerminateSession(s1.ID, true)
	if err != nil {
		t.Fatalf("TerminateSession failed: %v", err)
	}

	// Both sessions should be terminated (still visible during the grace
	// window, but in the terminated state).
	got1, err := sm.GetSession(s1.ID)
	if err != nil {
		t.Fatalf("s1 should still be visible during grace window: %v", err)
	}
	if got1.Status != types.SessionStatusTerminated {
		t.Errorf("s1 should be terminated, got %s", got1.Status)
	}

	got2, err := sm.GetSession(s2.ID)
	if err != nil {
		t.Fatalf("s2 should still be visible during grace window: %v", err)
	}
	if got2.Status != types.SessionStatusTerminated {
		t.Errorf("s2 should be terminated due to stopAll, got %s", got2.Status)
	}
}

// TestSessionManager_ListCompoundSessions verifies listing compounds.
func TestSessionManager_ListCompoundSessions(t *testing.T) {
	sm := dap.NewSessionManager(10, 30*time.Minute, 0, 0)
	defer sm.Close()

	// Create sessions
	s1, _ := sm.CreateSession(types.LanguagePython, "/path/1.py")
	s2, _ := sm.CreateSession(types.LanguageGo, "/path/2.go")

	// Initially empty
	compounds := sm.ListCompoundSessions()
	if len(compounds) != 0 {
		t.Errorf("expected 0 compounds, got %d", len(compounds))
	}

	// Track compound
	sm.TrackCompoundSession("Full Stack", []string{s1.ID, s2.ID}, true)

	compounds = sm.ListCompoundSessions()
	if len(compounds) != 1 {
		t.Errorf("expected 1 compound, got %d", len(compounds))
	}
}

// TestSession_GetInfo verifies session info retrieval.
func TestSession_GetInfo(t *testing.T) {
	sm := dap.NewSessionManager(10, 30*time.Minute, 0, 0)
	defer sm.Close()

	session, err := sm.CreateSession(types.LanguagePython, "/path/to/program.py")
	if err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}

	info := session.GetInfo()

	if info.SessionID != session.ID {
		t.Errorf("expected ID %s, got %s", session.ID, info.SessionID)
	}
	if info.Language != types.LanguagePython {
		t.Errorf("expected language %s, got %s", types.LanguagePython, info.Language)
	}
	if info.Program != "/path/to/program.py" {
		t.Errorf("expected program /path/to/program.py, got %s", info.Program)
	}
	if info.Status != types.SessionStatusCreated {
		t.Errorf("expected status %s, got %s", types.SessionStatusCreated, info.Status)
	}
}

// TestSessionManager_ConcurrentAccess verifies thread safety.
func TestSessionManager_ConcurrentAccess(t *testing.T) {
	sm := dap.NewSessionManager(100, 30*time.Minute, 0, 0)
	defer sm.Close()

	// Create sessions concurrently
	done := make(chan bool)
	for i := 0; i < 10; i++ {
		go func(n int) {
			_, err := sm.CreateSession(types.LanguagePython, "/path/to/program.py")
			if err != nil {
				t.Errorf("concurrent CreateSession failed: %v", err)
			}
			done <- true
		}(i)
	}

	// Wait for all goroutines
	for i := 0; i < 10; i++ {
		<-done
	}

	// Verify all sessions created
	sessions := sm.ListSessions()
	if len(sessions) != 10 {
		t.Errorf("expected 10 sessions, got %d", len(sessions))
	}
}

// TestSessionManager_Close verifies cleanup on close.
func TestSessionManager_Close(t *testing.T) {
	sm := dap.NewSessionManager(10, 30*time.Minute, 0, 0)

	// Create sessions
	_, _ = sm.CreateSession(types.LanguagePython, "/path/1.py")
	_, _ = sm.CreateSession(types.LanguageGo, "/path/2.go")

	// Close manager
	sm.Close()

	// Sessions should be cleaned up
	sessions := sm.ListSessions()
	if len(sessions) != 0 {
		t.Errorf("expected 0 sessions after close, got %d", len(sessions))
	}
}

// TestSessionManager_InvalidTransitionIgnored verifies that a status update
// out of a terminal state is logged and dropped rather than applied or
// returned as an error, since adapter-driven and caller-driven transitions
// can race in either order.
func TestSessionManager_InvalidTransitionIgnored(t *testing.T) {
	sm := dap.NewSessionManager(10, 30*time.Minute, 0, 0)
	defer sm.Close()

	session, err := sm.CreateSession(types.LanguagePython, "/path/to/program.py")
	if err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}

	if err := sm.UpdateSessionStatus(session.ID, types.SessionStatusTerminated); err != nil {
		t.Fatalf("UpdateSessionStatus failed: %v", err)
	}

	// terminated is a terminal state; nothing transitions out of it.
	if err := sm.UpdateSessionStatus(session.ID, types.SessionStatusRunning); err != nil {
		t.Fatalf("UpdateSessionStatus returned an error instead of ignoring: %v", err)
	}

	retrieved, _ := sm.GetSession(session.ID)
	if retrieved.Status != types.SessionStatusTerminated {
		t.Errorf("expected invalid transition to be ignored, status changed to %s", retrieved.Status)
	}
}

// TestSessionManager_DispatcherStateEvents verifies that valid status
// transitions are published on the manager's state-change subscription.
func TestSessionManager_DispatcherStateEvents(t *testing.T) {
	sm := dap.NewSessionManager(10, 30*time.Minute, 0, 0)
	defer sm.Close()

	states := sm.Dispatcher().SubscribeState()

	session, err := sm.CreateSession(types.LanguagePython, "/path/to/program.py")
	if err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}

	if err := sm.UpdateSessionStatus(session.ID, types.SessionStatusInitializing); err != nil {
		t.Fatalf("UpdateSessionStatus failed: %v", err)
	}

	select {
	case evt := <-states:
		if evt.SessionID != session.ID {
			t.Errorf("expected event for session %s, got %s", session.ID, evt.SessionID)
		}
		if evt.New != types.SessionStatusInitializing {
			t.Errorf("expected new status %s, got %s", types.SessionStatusInitializing, evt.New)
		}
		if evt.Old != types.SessionStatusCreated {
			t.Errorf("expected old status %s, got %s", types.SessionStatusCreated, evt.Old)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for state change event")
	}
}

// TestSession_RecordBreakpoints verifies breakpoint queueing and tracepoint
// tracking ahead of the session becoming ready, per the "breakpoints may be
// set before launch completes" requirement.
func TestSession_RecordBreakpoints(t *testing.T) {
	sm := dap.NewSessionManager(10, 30*time.Minute, 0, 0)
	defer sm.Close()

	session, err := sm.CreateSession(types.LanguagePython, "/path/to/program.py")
	if err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}

	if session.IsReady() {
		t.Error("expected a freshly created session to not be ready")
	}

	bps := []types.Breakpoint{
		{Line: 10},
		{Line: 20, Trace: true, MaxDumps: 3},
	}
	session.RecordBreakpoints("/path/to/program.py", bps)

	queued := session.FlushQueuedBreakpoints()
	if len(queued["/path/to/program.py"]) != 2 {
		t.Fatalf("expected 2 queued breakpoints, got %d", len(queued["/path/to/program.py"]))
	}

	if err := sm.UpdateSessionStatus(session.ID, types.SessionStatusInitializing); err != nil {
		t.Fatalf("UpdateSessionStatus failed: %v", err)
	}
	if err := sm.UpdateSessionStatus(session.ID, types.SessionStatusReady); err != nil {
		t.Fatalf("UpdateSessionStatus failed: %v", err)
	}
	if !session.IsReady() {
		t.Error("expected session to report ready once past initializing")
	}
}

// TestSession_TraceBuffer verifies that a session created with a bounded
// trace buffer starts with no traces and stays empty after ClearTraces.
// Dropping the oldest entries past the bound is covered in
// dap_integration_test.go.
func TestSession_TraceBuffer(t *testing.T) {
	sm := dap.NewSessionManager(10, 30*time.Minute, 2, 0) // buffer of 2 traces
	defer sm.Close()

	session, err := sm.CreateSession(types.LanguagePython, "/path/to/program.py")
	if err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}

	if traces := session.GetTraces(); len(traces) != 0 {
		t.Fatalf("expected no traces initially, got %d", len(traces))
	}

	session.ClearTraces()
	if traces := session.GetTraces(); len(traces) != 0 {
		t.Errorf("expected ClearTraces on an empty buffer to remain empty, got %d", len(traces))
	}
}
