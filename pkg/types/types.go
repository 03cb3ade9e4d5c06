// Package types defines shared data types used across the DAP-MCP server.
//
// This package provides type definitions for:
//   - Language: Supported programming languages (Go, Python, JavaScript, TypeScript, Rust, C, C++)
//   - SessionStatus: Debug session lifecycle states
//   - Request types: LaunchRequest, AttachRequest, BreakpointRequest
//   - Info types: SessionInfo, ThreadInfo, StackFrame, Variable, Scope, etc.
//   - TracePoint: a captured snapshot from a tracepoint hit
//   - DebugSnapshot: Complete debug state for inspection
//
// These types are used throughout the codebase to maintain type safety
// and provide clear contracts between components.
package types

// Language represents a supported programming language
type Language string

const (
	LanguageGo         Language = "go"
	LanguagePython     Language = "python"
	LanguageJavaScript Language = "javascript"
	LanguageTypeScript Language = "typescript"
	LanguageRust       Language = "rust"
	LanguageC          Language = "c"
	LanguageCpp        Language = "cpp"
)

// SessionStatus represents the status of a debug session.
//
// The full lifecycle is:
//
//	created -> initializing -> ready -> running <-> paused -> terminated|error
//
// A session may also move directly from any state to terminated (adapter
// exit) or error (unrecoverable failure).
type SessionStatus string

const (
	SessionStatusCreated      SessionStatus = "created"
	SessionStatusInitializing SessionStatus = "initializing"
	SessionStatusReady        SessionStatus = "ready"
	SessionStatusRunning      SessionStatus = "running"
	SessionStatusPaused       SessionStatus = "paused"
	SessionStatusTerminated   SessionStatus = "terminated"
	SessionStatusError        SessionStatus = "error"
)

// LaunchRequest represents a request to launch a debug session
type LaunchRequest struct {
	Language    Language          `json:"language"`
	Program     string            `json:"program"`
	Args        []string          `json:"args,omitempty"`
	Cwd         string            `json:"cwd,omitempty"`
	Env         map[string]string `json:"env,omitempty"`
	StopOnEntry bool              `json:"stopOnEntry,omitempty"`
}

// AttachRequest represents a request to attach to a debug session
type AttachRequest struct {
	Language Language `json:"language"`
	Host     string   `json:"host,omitempty"`
	Port     int      `json:"port,omitempty"`
	PID      int      `json:"pid,omitempty"`
}

// SessionInfo represents information about a debug session
type SessionInfo struct {
	SessionID       string        `json:"sessionId"`
	Name            string        `json:"name,omitempty"`
	Language        Language      `json:"language"`
	Status          SessionStatus `json:"status"`
	PID             int           `json:"pid,omitempty"`
	Program         string        `json:"program,omitempty"`
	Cwd             string        `json:"cwd,omitempty"`
	StoppedReason   string        `json:"stoppedReason,omitempty"`
	StoppedThreadID int           `json:"stoppedThreadId,omitempty"`
	ExitCode        *int          `json:"exitCode,omitempty"`
	ErrorMessage    string        `json:"errorMessage,omitempty"`
	CreatedAt       int64         `json:"createdAt,omitempty"`
}

// ThreadInfo represents information about a thread
type ThreadInfo struct {
	ID     int    `json:"id"`
	Name   string `json:"name"`
	Status string `json:"status,omitempty"`
}

// StackFrame represents a stack frame
type StackFrame struct {
	ID        int         `json:"id"`
	Name      string      `json:"name"`
	Source    *SourceInfo `json:"source,omitempty"`
	Line      int         `json:"line"`
	Column    int         `json:"column,omitempty"`
	EndLine   int         `json:"endLine,omitempty"`
	EndColumn int         `json:"endColumn,omitempty"`
}

// SourceInfo represents source file information
type SourceInfo struct {
	Name            string `json:"name,omitempty"`
	Path            string `json:"path,omitempty"`
	SourceReference int    `json:"sourceReference,omitempty"`
}

// Scope represents a variable scope
type Scope struct {
	Name               string `json:"name"`
	VariablesReference int    `json:"variablesReference"`
	NamedVariables     int    `json:"namedVariables,omitempty"`
	IndexedVariables   int    `json:"indexedVariables,omitempty"`
	Expensive          bool   `json:"expensive,omitempty"`
}

// Variable represents a variable. HasChildren mirrors the DAP convention
// that a variable is expandable iff its VariablesReference is greater than
// zero; it is derived, never set directly by adapter responses.
type Variable struct {
	Name               string `json:"name"`
	Value              string `json:"value"`
	Type               string `json:"type,omitempty"`
	VariablesReference int    `json:"variablesReference"`
	NamedVariables     int    `json:"namedVariables,omitempty"`
	IndexedVariables   int    `json:"indexedVariables,omitempty"`
}

// HasChildren reports whether this variable can be expanded via expandVariable.
func (v Variable) HasChildren() bool {
	return v.VariablesReference > 0
}

// Breakpoint represents a breakpoint. Trace/DumpFile/MaxDumps/DumpCount
// configure tracepoint behavior: a breakpoint with Trace set or a non-empty
// DumpFile auto-continues on hit while appending a TracePoint snapshot,
// rather than surfacing a stopped event, until DumpCount reaches MaxDumps.
type Breakpoint struct {
	ID           int         `json:"id,omitempty"`
	Verified     bool        `json:"verified"`
	Message      string      `json:"message,omitempty"`
	Source       *SourceInfo `json:"source,omitempty"`
	Line         int         `json:"line,omitempty"`
	Column       int         `json:"column,omitempty"`
	EndLine      int         `json:"endLine,omitempty"`
	EndColumn    int         `json:"endColumn,omitempty"`
	Condition    string      `json:"condition,omitempty"`
	HitCondition string      `json:"hitCondition,omitempty"`
	LogMessage   string      `json:"logMessage,omitempty"`
	Trace        bool        `json:"trace,omitempty"`
	DumpFile     string      `json:"dumpFile,omitempty"`
	MaxDumps     int         `json:"maxDumps,omitempty"`
	DumpCount    int         `json:"dumpCount,omitempty"`
}

// IsTracepoint reports whether this breakpoint auto-continues and dumps
// state instead of pausing the session.
func (b Breakpoint) IsTracepoint() bool {
	return b.Trace || b.DumpFile != ""
}

// BreakpointRequest represents a request to set a breakpoint
type BreakpointRequest struct {
	Line         int    `json:"line"`
	Condition    string `json:"condition,omitempty"`
	HitCondition string `json:"hitCondition,omitempty"`
	LogMessage   string `json:"logMessage,omitempty"`
	Trace        bool   `json:"trace,omitempty"`
	DumpFile     string `json:"dumpFile,omitempty"`
	MaxDumps     int    `json:"maxDumps,omitempty"`
}

// TracePoint is a single captured snapshot from a tracepoint hit.
// Variables are truncated to a fixed maximum length before being appended
// to a session's trace buffer or written to a dump file.
type TracePoint struct {
	HitNumber int        `json:"hitNumber"`
	Timestamp int64      `json:"timestamp"`
	File      string     `json:"file"`
	Line      int        `json:"line"`
	Function  string     `json:"function"`
	Variables []Variable `json:"variables"`
}

// ChildSession identifies one child DAP connection opened in response to a
// startDebugging reverse request from a multi-session adapter such as
// vscode-js-debug.
type ChildSession struct {
	TargetID  string `json:"targetId"`
	CreatedAt int64  `json:"createdAt"`
}

// EvaluateResult represents the result of evaluating an expression
type EvaluateResult struct {
	Result             string `json:"result"`
	Type               string `json:"type,omitempty"`
	VariablesReference int    `json:"variablesReference"`
	NamedVariables     int    `json:"namedVariables,omitempty"`
	IndexedVariables   int    `json:"indexedVariables,omitempty"`
}

// SourceContext is a window of source lines around a target line,
// annotated with which line is current and which lines carry breakpoints.
type SourceContext struct {
	File        string       `json:"file"`
	StartLine   int          `json:"startLine"`
	EndLine     int          `json:"endLine"`
	CurrentLine int          `json:"currentLine"`
	Lines       []SourceLine `json:"lines"`
}

// SourceLine is one annotated line within a SourceContext.
type SourceLine struct {
	Line          int    `json:"line"`
	Text          string `json:"text"`
	IsCurrent     bool   `json:"isCurrent"`
	HasBreakpoint bool   `json:"hasBreakpoint"`
}

// StopContext caches the top frame and locals captured on the most recent
// stopped event; it is the source of return values for step/continue
// operations per the session manager's "stopped-event handling" contract.
type StopContext struct {
	Reason    string       `json:"reason"`
	ThreadID  int          `json:"threadId"`
	TopFrame  *StackFrame  `json:"topFrame,omitempty"`
	Variables []Variable   `json:"variables,omitempty"`
	Scopes    []Scope      `json:"scopes,omitempty"`
	Frames    []StackFrame `json:"frames,omitempty"`
}

// DebugSnapshot represents a complete snapshot of debug state
type DebugSnapshot struct {
	SessionID string               `json:"sessionId"`
	Status    SessionStatus        `json:"status"`
	Threads   []ThreadInfo         `json:"threads"`
	Stacks    map[int][]StackFrame `json:"stacks"`              // threadId -> stack frames
	Scopes    map[int][]Scope      `json:"scopes"`              // frameId -> scopes
	Variables map[int][]Variable   `json:"variables,omitempty"` // variablesReference -> variables
}

// ModuleInfo represents information about a loaded module
type ModuleInfo struct {
	ID             int    `json:"id"`
	Name           string `json:"name"`
	Path           string `json:"path,omitempty"`
	Version        string `json:"version,omitempty"`
	SymbolStatus   string `json:"symbolStatus,omitempty"`
	SymbolFilePath string `json:"symbolFilePath,omitempty"`
}
