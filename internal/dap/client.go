package dap

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/go-dap"

	"github.com/bherbruck/mcp-debugger/internal/logging"
)

// StoppedInfo contains information about why the debugger stopped
type StoppedInfo struct {
	Reason      string
	ThreadID    int
	Description string
	AllStopped  bool
}

// Client provides a high-level API for DAP operations. It owns one adapter
// process, a primary DAP connection, and — for multi-session adapters such
// as vscode-js-debug — any number of child connections opened in response
// to startDebugging reverse requests (spec §4.3.1). Thread/frame-scoped
// operations are routed to the active child connection when one exists.
type Client struct {
	primary *connection

	// dialChild opens a new transport to the same adapter endpoint used by
	// the primary connection. nil for stdio-based adapters, which never
	// spawn multi-session children.
	dialChild func() (*Transport, error)

	childrenMu    sync.Mutex
	children      map[string]*connection
	activeChildID string

	eventHandler func(dap.Message)

	capabilities dap.Capabilities

	initialized     chan struct{}
	initializedOnce sync.Once

	stoppedChan chan *StoppedInfo
	stoppedMu   sync.Mutex

	// childHandshakeTimeout bounds each step of a child connection's
	// initialize/attach/configurationDone handshake. Defaults to
	// childHandshakeTimeout (router.go); callers may override via
	// SetChildHandshakeTimeout to apply a RouterConfig value.
	childHandshakeTimeoutOverride time.Duration
}

// SetChildHandshakeTimeout overrides the per-step timeout used when a
// multi-session adapter announces a new child target. Zero leaves the
// package default in place.
func (c *Client) SetChildHandshakeTimeout(d time.Duration) {
	c.childHandshakeTimeoutOverride = d
}

func (c *Client) childTimeout() time.Duration {
	if c.childHandshakeTimeoutOverride > 0 {
		return c.childHandshakeTimeoutOverride
	}
	return childHandshakeTimeout
}

// NewClient creates a new DAP client with the given primary transport.
// dialChild may be nil for adapters that never announce child targets
// (stdio adapters, and any TCP adapter that isn't vscode-js-debug).
func NewClient(transport *Transport, dialChild func() (*Transport, error)) *Client {
	c := &Client{
		dialChild:   dialChild,
		children:    make(map[string]*connection),
		initialized: make(chan struct{}),
	}
	c.primary = newConnection(transport, "")
	c.primary.reverseHandler = c.handleReverseRequest
	c.primary.eventHandler = c.dispatchEvent
	return c
}

// dispatchEvent intercepts InitializedEvent and TerminatedEvent for
// internal bookkeeping before forwarding to the caller's event handler.
func (c *Client) dispatchEvent(msg dap.Message) {
	switch msg.(type) {
	case *dap.InitializedEvent:
		c.initializedOnce.Do(func() {
			close(c.initialized)
		})
	case *dap.TerminatedEvent:
		// If the primary adapter announces termination, any child targets
		// are no longer reachable.
		c.childrenMu.Lock()
		for id, child := range c.children {
			_ = child.close()
			delete(c.children, id)
		}
		c.activeChildID = ""
		c.childrenMu.Unlock()
	}
	if c.eventHandler != nil {
		c.eventHandler(msg)
	}
}

// SetEventHandler sets the handler for DAP events, including those
// arriving on child connections (spec §4.3.1: "Events arriving on any
// child connection are forwarded through the same classification path as
// the primary").
func (c *Client) SetEventHandler(handler func(dap.Message)) {
	c.eventHandler = handler
}

// Initialize sends the initialize request
func (c *Client) Initialize(clientID, clientName string) (*dap.InitializeResponse, error) {
	req := &dap.InitializeRequest{
		Request: dap.Request{
			ProtocolMessage: dap.ProtocolMessage{Type: "request"},
			Command:         "initialize",
		},
		Arguments: dap.InitializeRequestArguments{
			ClientID:                      clientID,
			ClientName:                    clientName,
			AdapterID:                     "dap-mcp",
			Locale:                        "en-US",
			LinesStartAt1:                 true,
			ColumnsStartAt1:               true,
			PathFormat:                    "path",
			SupportsVariableType:          true,
			SupportsVariablePaging:        true,
			SupportsRunInTerminalRequest:  false,
			SupportsStartDebuggingRequest: true,
		},
	}

	resp, err := c.primary.sendRequest(req, 10*time.Second)
	if err != nil {
		return nil, err
	}

	initResp, ok := resp.(*dap.InitializeResponse)
	if !ok {
		return nil, fmt.Errorf("unexpected response type: %T", resp)
	}

	if !initResp.Success {
		return nil, fmt.Errorf("initialize failed: %s", initResp.Message)
	}

	c.capabilities = initResp.Body

	return initResp, nil
}

// WaitInitialized waits for the initialized event with a timeout
func (c *Client) WaitInitialized(timeout time.Duration) error {
	select {
	case <-c.initialized:
		return nil
	case <-time.After(timeout):
		return fmt.Errorf("timeout waiting for initialized event")
	}
}

// Launch sends a launch request and waits for its response. Prefer
// LaunchAsync/WaitForLaunchResponse for adapters that hold the response
// until after configurationDone (spec §4.3, "Async launch").
func (c *Client) Launch(args map[string]interface{}) (*dap.LaunchResponse, error) {
	argsJSON, err := json.Marshal(args)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal launch args: %w", err)
	}

	req := &dap.LaunchRequest{
		Request: dap.Request{
			ProtocolMessage: dap.ProtocolMessage{Type: "request"},
			Command:         "launch",
		},
		Arguments: argsJSON,
	}

	resp, err := c.primary.sendRequest(req, 60*time.Second)
	if err != nil {
		return nil, err
	}

	launchResp, ok := resp.(*dap.LaunchResponse)
	if !ok {
		return nil, fmt.Errorf("unexpected response type: %T", resp)
	}

	if !launchResp.Success {
		return nil, fmt.Errorf("launch failed: %s", launchResp.Message)
	}

	return launchResp, nil
}

// LaunchAsync sends a launch request without waiting for the response.
func (c *Client) LaunchAsync(args map[string]interface{}) (chan dap.Message, error) {
	argsJSON, err := json.Marshal(args)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal launch args: %w", err)
	}

	req := &dap.LaunchRequest{
		Request: dap.Request{
			ProtocolMessage: dap.ProtocolMessage{Type: "request"},
			Command:         "launch",
		},
		Arguments: argsJSON,
	}

	return c.primary.sendRequestAsync(req)
}

// WaitForLaunchResponse waits for the launch response on the channel
// returned by LaunchAsync. Late arrival is acceptable: on timeout it
// returns a nil response and a nil error, so callers proceed instead of
// failing the launch. A response that arrives and reports failure is
// still returned as an error.
func (c *Client) WaitForLaunchResponse(respCh chan dap.Message, timeout time.Duration) (*dap.LaunchResponse, error) {
	select {
	case resp := <-respCh:
		launchResp, ok := resp.(*dap.LaunchResponse)
		if !ok {
			return nil, fmt.Errorf("unexpected response type: %T", resp)
		}
		if !launchResp.Success {
			return nil, fmt.Errorf("launch failed: %s", launchResp.Message)
		}
		return launchResp, nil
	case <-time.After(timeout):
		return nil, nil
	}
}

// Attach sends an attach request
func (c *Client) Attach(args map[string]interface{}) (*dap.AttachResponse, error) {
	argsJSON, err := json.Marshal(args)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal attach args: %w", err)
	}

	req := &dap.AttachRequest{
		Request: dap.Request{
			ProtocolMessage: dap.ProtocolMessage{Type: "request"},
			Command:         "attach",
		},
		Arguments: argsJSON,
	}

	resp, err := c.primary.sendRequest(req, 30*time.Second)
	if err != nil {
		return nil, err
	}

	attachResp, ok := resp.(*dap.AttachResponse)
	if !ok {
		return nil, fmt.Errorf("unexpected response type: %T", resp)
	}

	if !attachResp.Success {
		return nil, fmt.Errorf("attach failed: %s", attachResp.Message)
	}

	return attachResp, nil
}

// AttachAsync sends an attach request without waiting for the response.
func (c *Client) AttachAsync(args map[string]interface{}) (chan dap.Message, error) {
	argsJSON, err := json.Marshal(args)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal attach args: %w", err)
	}

	req := &dap.AttachRequest{
		Request: dap.Request{
			ProtocolMessage: dap.ProtocolMessage{Type: "request"},
			Command:         "attach",
		},
		Arguments: argsJSON,
	}

	return c.primary.sendRequestAsync(req)
}

// WaitForAttachResponse waits for the attach response on the channel
func (c *Client) WaitForAttachResponse(respCh chan dap.Message, timeout time.Duration) (*dap.AttachResponse, error) {
	select {
	case resp := <-respCh:
		attachResp, ok := resp.(*dap.AttachResponse)
		if !ok {
			return nil, fmt.Errorf("unexpected response type: %T", resp)
		}
		if !attachResp.Success {
			return nil, fmt.Errorf("attach failed: %s", attachResp.Message)
		}
		return attachResp, nil
	case <-time.After(timeout):
		return nil, fmt.Errorf("attach response timeout")
	}
}

// ConfigurationDone signals that configuration is complete. A no-op
// success when the adapter did not advertise support, per spec §4.3.
func (c *Client) ConfigurationDone() error {
	if !c.capabilities.SupportsConfigurationDoneRequest {
		return nil
	}

	req := &dap.ConfigurationDoneRequest{
		Request: dap.Request{
			ProtocolMessage: dap.ProtocolMessage{Type: "request"},
			Command:         "configurationDone",
		},
	}

	resp, err := c.primary.sendRequest(req, 10*time.Second)
	if err != nil {
		return err
	}

	configResp, ok := resp.(*dap.ConfigurationDoneResponse)
	if !ok {
		return fmt.Errorf("unexpected response type: %T", resp)
	}

	if !configResp.Success {
		return fmt.Errorf("configurationDone failed: %s", configResp.Message)
	}

	return nil
}

// Disconnect ends the debug session
func (c *Client) Disconnect(terminateDebuggee bool) error {
	req := &dap.DisconnectRequest{
		Request: dap.Request{
			ProtocolMessage: dap.ProtocolMessage{Type: "request"},
			Command:         "disconnect",
		},
		Arguments: &dap.DisconnectArguments{
			TerminateDebuggee: terminateDebuggee,
		},
	}

	resp, err := c.primary.sendRequest(req, 5*time.Second)
	if err != nil {
		return err
	}

	disconnectResp, ok := resp.(*dap.DisconnectResponse)
	if !ok {
		return fmt.Errorf("unexpected response type: %T", resp)
	}

	if !disconnectResp.Success {
		return fmt.Errorf("disconnect failed: %s", disconnectResp.Message)
	}

	return nil
}

// Terminate asks the adapter to end the debuggee gracefully. A no-op
// success when unsupported, per spec §7 "capability gaps".
func (c *Client) Terminate() error {
	if !c.capabilities.SupportsTerminateRequest {
		return nil
	}

	req := &dap.TerminateRequest{
		Request: dap.Request{
			ProtocolMessage: dap.ProtocolMessage{Type: "request"},
			Command:         "terminate",
		},
	}

	resp, err := c.primary.sendRequest(req, 5*time.Second)
	if err != nil {
		return err
	}

	termResp, ok := resp.(*dap.TerminateResponse)
	if !ok {
		return fmt.Errorf("unexpected response type: %T", resp)
	}
	if !termResp.Success {
		return fmt.Errorf("terminate failed: %s", termResp.Message)
	}
	return nil
}

// Threads gets all threads on the active connection (primary, or the
// active child once a multi-session target has been established).
func (c *Client) Threads() ([]dap.Thread, error) {
	req := &dap.ThreadsRequest{
		Request: dap.Request{
			ProtocolMessage: dap.ProtocolMessage{Type: "request"},
			Command:         "threads",
		},
	}

	resp, err := c.activeConnection().sendRequest(req, 10*time.Second)
	if err != nil {
		return nil, err
	}

	threadsResp, ok := resp.(*dap.ThreadsResponse)
	if !ok {
		return nil, fmt.Errorf("unexpected response type: %T", resp)
	}

	if !threadsResp.Success {
		return nil, fmt.Errorf("threads request failed: %s", threadsResp.Message)
	}

	return threadsResp.Body.Threads, nil
}

// StackTrace gets the stack trace for a thread
func (c *Client) StackTrace(threadID, startFrame, levels int) ([]dap.StackFrame, int, error) {
	req := &dap.StackTraceRequest{
		Request: dap.Request{
			ProtocolMessage: dap.ProtocolMessage{Type: "request"},
			Command:         "stackTrace",
		},
		Arguments: dap.StackTraceArguments{
			ThreadId:   threadID,
			StartFrame: startFrame,
			Levels:     levels,
		},
	}

	resp, err := c.activeConnection().sendRequest(req, 10*time.Second)
	if err != nil {
		return nil, 0, err
	}

	stackResp, ok := resp.(*dap.StackTraceResponse)
	if !ok {
		return nil, 0, fmt.Errorf("unexpected response type: %T", resp)
	}

	if !stackResp.Success {
		return nil, 0, fmt.Errorf("stackTrace request failed: %s", stackResp.Message)
	}

	return stackResp.Body.StackFrames, stackResp.Body.TotalFrames, nil
}

// Scopes gets the scopes for a stack frame
func (c *Client) Scopes(frameID int) ([]dap.Scope, error) {
	req := &dap.ScopesRequest{
		Request: dap.Request{
			ProtocolMessage: dap.ProtocolMessage{Type: "request"},
			Command:         "scopes",
		},
		Arguments: dap.ScopesArguments{
			FrameId: frameID,
		},
	}

	resp, err := c.activeConnection().sendRequest(req, 10*time.Second)
	if err != nil {
		return nil, err
	}

	scopesResp, ok := resp.(*dap.ScopesResponse)
	if !ok {
		return nil, fmt.Errorf("unexpected response type: %T", resp)
	}

	if !scopesResp.Success {
		return nil, fmt.Errorf("scopes request failed: %s", scopesResp.Message)
	}

	return scopesResp.Body.Scopes, nil
}

// Variables gets variables for a reference
func (c *Client) Variables(variablesRef int, filter string, start, count int) ([]dap.Variable, error) {
	args := dap.VariablesArguments{
		VariablesReference: variablesRef,
	}
	if filter != "" {
		args.Filter = filter
	}
	if start > 0 {
		args.Start = start
	}
	if count > 0 {
		args.Count = count
	}

	req := &dap.VariablesRequest{
		Request: dap.Request{
			ProtocolMessage: dap.ProtocolMessage{Type: "request"},
			Command:         "variables",
		},
		Arguments: args,
	}

	resp, err := c.activeConnection().sendRequest(req, 10*time.Second)
	if err != nil {
		return nil, err
	}

	varsResp, ok := resp.(*dap.VariablesResponse)
	if !ok {
		return nil, fmt.Errorf("unexpected response type: %T", resp)
	}

	if !varsResp.Success {
		return nil, fmt.Errorf("variables request failed: %s", varsResp.Message)
	}

	return varsResp.Body.Variables, nil
}

// Evaluate evaluates an expression
func (c *Client) Evaluate(expression string, frameID int, context string) (*dap.EvaluateResponseBody, error) {
	req := &dap.EvaluateRequest{
		Request: dap.Request{
			ProtocolMessage: dap.ProtocolMessage{Type: "request"},
			Command:         "evaluate",
		},
		Arguments: dap.EvaluateArguments{
			Expression: expression,
			FrameId:    frameID,
			Context:    context,
		},
	}

	resp, err := c.activeConnection().sendRequest(req, 10*time.Second)
	if err != nil {
		return nil, err
	}

	evalResp, ok := resp.(*dap.EvaluateResponse)
	if !ok {
		return nil, fmt.Errorf("unexpected response type: %T", resp)
	}

	if !evalResp.Success {
		return nil, fmt.Errorf("evaluate failed: %s", evalResp.Message)
	}

	return &evalResp.Body, nil
}

// SetBreakpoints sets breakpoints in a source file. DAP replaces the full
// file's breakpoint set atomically, matching the session manager's
// authoritative-desired-state contract.
func (c *Client) SetBreakpoints(source dap.Source, breakpoints []dap.SourceBreakpoint) ([]dap.Breakpoint, error) {
	req := &dap.SetBreakpointsRequest{
		Request: dap.Request{
			ProtocolMessage: dap.ProtocolMessage{Type: "request"},
			Command:         "setBreakpoints",
		},
		Arguments: dap.SetBreakpointsArguments{
			Source:      source,
			Breakpoints: breakpoints,
		},
	}

	resp, err := c.primary.sendRequest(req, 10*time.Second)
	if err != nil {
		return nil, err
	}

	bpResp, ok := resp.(*dap.SetBreakpointsResponse)
	if !ok {
		return nil, fmt.Errorf("unexpected response type: %T", resp)
	}

	if !bpResp.Success {
		return nil, fmt.Errorf("setBreakpoints failed: %s", bpResp.Message)
	}

	return bpResp.Body.Breakpoints, nil
}

// SetFunctionBreakpoints sets function breakpoints. A no-op success when
// unsupported.
func (c *Client) SetFunctionBreakpoints(breakpoints []dap.FunctionBreakpoint) ([]dap.Breakpoint, error) {
	if !c.capabilities.SupportsFunctionBreakpoints {
		return nil, nil
	}

	req := &dap.SetFunctionBreakpointsRequest{
		Request: dap.Request{
			ProtocolMessage: dap.ProtocolMessage{Type: "request"},
			Command:         "setFunctionBreakpoints",
		},
		Arguments: dap.SetFunctionBreakpointsArguments{
			Breakpoints: breakpoints,
		},
	}

	resp, err := c.primary.sendRequest(req, 10*time.Second)
	if err != nil {
		return nil, err
	}

	bpResp, ok := resp.(*dap.SetFunctionBreakpointsResponse)
	if !ok {
		return nil, fmt.Errorf("unexpected response type: %T", resp)
	}

	if !bpResp.Success {
		return nil, fmt.Errorf("setFunctionBreakpoints failed: %s", bpResp.Message)
	}

	return bpResp.Body.Breakpoints, nil
}

// SetExceptionBreakpoints sets exception breakpoint filters. A no-op
// success when unsupported.
func (c *Client) SetExceptionBreakpoints(filters []string) error {
	if len(c.capabilities.ExceptionBreakpointFilters) == 0 {
		// exceptionBreakpointFilters advertisement is optional; treat an
		// adapter with no filters advertised as unsupported.
		return nil
	}

	req := &dap.SetExceptionBreakpointsRequest{
		Request: dap.Request{
			ProtocolMessage: dap.ProtocolMessage{Type: "request"},
			Command:         "setExceptionBreakpoints",
		},
		Arguments: dap.SetExceptionBreakpointsArguments{
			Filters: filters,
		},
	}

	resp, err := c.primary.sendRequest(req, 10*time.Second)
	if err != nil {
		return err
	}

	excResp, ok := resp.(*dap.SetExceptionBreakpointsResponse)
	if !ok {
		return fmt.Errorf("unexpected response type: %T", resp)
	}
	if !excResp.Success {
		return fmt.Errorf("setExceptionBreakpoints failed: %s", excResp.Message)
	}
	return nil
}

// Continue continues execution
func (c *Client) Continue(threadID int) (bool, error) {
	req := &dap.ContinueRequest{
		Request: dap.Request{
			ProtocolMessage: dap.ProtocolMessage{Type: "request"},
			Command:         "continue",
		},
		Arguments: dap.ContinueArguments{
			ThreadId: threadID,
		},
	}

	resp, err := c.activeConnection().sendRequest(req, 10*time.Second)
	if err != nil {
		return false, err
	}

	contResp, ok := resp.(*dap.ContinueResponse)
	if !ok {
		return false, fmt.Errorf("unexpected response type: %T", resp)
	}

	if !contResp.Success {
		return false, fmt.Errorf("continue failed: %s", contResp.Message)
	}

	return contResp.Body.AllThreadsContinued, nil
}

// Next steps over
func (c *Client) Next(threadID int) error {
	req := &dap.NextRequest{
		Request: dap.Request{
			ProtocolMessage: dap.ProtocolMessage{Type: "request"},
			Command:         "next",
		},
		Arguments: dap.NextArguments{
			ThreadId: threadID,
		},
	}

	resp, err := c.activeConnection().sendRequest(req, 10*time.Second)
	if err != nil {
		return err
	}

	nextResp, ok := resp.(*dap.NextResponse)
	if !ok {
		return fmt.Errorf("unexpected response type: %T", resp)
	}

	if !nextResp.Success {
		return fmt.Errorf("next failed: %s", nextResp.Message)
	}

	return nil
}

// StepIn steps into
func (c *Client) StepIn(threadID int) error {
	req := &dap.StepInRequest{
		Request: dap.Request{
			ProtocolMessage: dap.ProtocolMessage{Type: "request"},
			Command:         "stepIn",
		},
		Arguments: dap.StepInArguments{
			ThreadId: threadID,
		},
	}

	resp, err := c.activeConnection().sendRequest(req, 10*time.Second)
	if err != nil {
		return err
	}

	stepResp, ok := resp.(*dap.StepInResponse)
	if !ok {
		return fmt.Errorf("unexpected response type: %T", resp)
	}

	if !stepResp.Success {
		return fmt.Errorf("stepIn failed: %s", stepResp.Message)
	}

	return nil
}

// StepOut steps out
func (c *Client) StepOut(threadID int) error {
	req := &dap.StepOutRequest{
		Request: dap.Request{
			ProtocolMessage: dap.ProtocolMessage{Type: "request"},
			Command:         "stepOut",
		},
		Arguments: dap.StepOutArguments{
			ThreadId: threadID,
		},
	}

	resp, err := c.activeConnection().sendRequest(req, 10*time.Second)
	if err != nil {
		return err
	}

	stepResp, ok := resp.(*dap.StepOutResponse)
	if !ok {
		return fmt.Errorf("unexpected response type: %T", resp)
	}

	if !stepResp.Success {
		return fmt.Errorf("stepOut failed: %s", stepResp.Message)
	}

	return nil
}

// Pause pauses execution
func (c *Client) Pause(threadID int) error {
	req := &dap.PauseRequest{
		Request: dap.Request{
			ProtocolMessage: dap.ProtocolMessage{Type: "request"},
			Command:         "pause",
		},
		Arguments: dap.PauseArguments{
			ThreadId: threadID,
		},
	}

	resp, err := c.activeConnection().sendRequest(req, 10*time.Second)
	if err != nil {
		return err
	}

	pauseResp, ok := resp.(*dap.PauseResponse)
	if !ok {
		return fmt.Errorf("unexpected response type: %T", resp)
	}

	if !pauseResp.Success {
		return fmt.Errorf("pause failed: %s", pauseResp.Message)
	}

	return nil
}

// SetVariable sets a variable value
func (c *Client) SetVariable(variablesRef int, name, value string) (*dap.SetVariableResponseBody, error) {
	req := &dap.SetVariableRequest{
		Request: dap.Request{
			ProtocolMessage: dap.ProtocolMessage{Type: "request"},
			Command:         "setVariable",
		},
		Arguments: dap.SetVariableArguments{
			VariablesReference: variablesRef,
			Name:               name,
			Value:              value,
		},
	}

	resp, err := c.activeConnection().sendRequest(req, 10*time.Second)
	if err != nil {
		return nil, err
	}

	setResp, ok := resp.(*dap.SetVariableResponse)
	if !ok {
		return nil, fmt.Errorf("unexpected response type: %T", resp)
	}

	if !setResp.Success {
		return nil, fmt.Errorf("setVariable failed: %s", setResp.Message)
	}

	return &setResp.Body, nil
}

// Source gets source code
func (c *Client) Source(sourceRef int, path string) (string, string, error) {
	req := &dap.SourceRequest{
		Request: dap.Request{
			ProtocolMessage: dap.ProtocolMessage{Type: "request"},
			Command:         "source",
		},
		Arguments: dap.SourceArguments{
			Source: &dap.Source{
				Path:            path,
				SourceReference: sourceRef,
			},
			SourceReference: sourceRef,
		},
	}

	resp, err := c.primary.sendRequest(req, 10*time.Second)
	if err != nil {
		return "", "", err
	}

	sourceResp, ok := resp.(*dap.SourceResponse)
	if !ok {
		return "", "", fmt.Errorf("unexpected response type: %T", resp)
	}

	if !sourceResp.Success {
		return "", "", fmt.Errorf("source request failed: %s", sourceResp.Message)
	}

	return sourceResp.Body.Content, sourceResp.Body.MimeType, nil
}

// Modules gets loaded modules
func (c *Client) Modules(startModule, moduleCount int) ([]dap.Module, int, error) {
	req := &dap.ModulesRequest{
		Request: dap.Request{
			ProtocolMessage: dap.ProtocolMessage{Type: "request"},
			Command:         "modules",
		},
		Arguments: dap.ModulesArguments{
			StartModule: startModule,
			ModuleCount: moduleCount,
		},
	}

	resp, err := c.primary.sendRequest(req, 10*time.Second)
	if err != nil {
		return nil, 0, err
	}

	modulesResp, ok := resp.(*dap.ModulesResponse)
	if !ok {
		return nil, 0, fmt.Errorf("unexpected response type: %T", resp)
	}

	if !modulesResp.Success {
		return nil, 0, fmt.Errorf("modules request failed: %s", modulesResp.Message)
	}

	return modulesResp.Body.Modules, modulesResp.Body.TotalModules, nil
}

// Capabilities returns the capabilities from the initialize response
func (c *Client) Capabilities() dap.Capabilities {
	return c.capabilities
}

// WaitForStopped waits for the debugger to stop (hit breakpoint, step complete, etc.)
func (c *Client) WaitForStopped(timeout time.Duration) (*StoppedInfo, error) {
	stoppedCh := make(chan *StoppedInfo, 1)

	c.stoppedMu.Lock()
	c.stoppedChan = stoppedCh
	c.primary.stoppedMu.Lock()
	c.primary.stoppedChan = stoppedCh
	c.primary.stoppedMu.Unlock()
	c.childrenMu.Lock()
	for _, child := range c.children {
		child.stoppedMu.Lock()
		child.stoppedChan = stoppedCh
		child.stoppedMu.Unlock()
	}
	c.childrenMu.Unlock()
	c.stoppedMu.Unlock()

	defer func() {
		c.stoppedMu.Lock()
		c.stoppedChan = nil
		c.stoppedMu.Unlock()
	}()

	select {
	case info := <-stoppedCh:
		return info, nil
	case <-time.After(timeout):
		return nil, fmt.Errorf("timeout waiting for stopped event")
	}
}

// ContinueAndWait continues execution and waits for the program to stop
func (c *Client) ContinueAndWait(threadID int, timeout time.Duration) (*StoppedInfo, error) {
	stoppedCh := make(chan *StoppedInfo, 1)

	c.stoppedMu.Lock()
	c.stoppedChan = stoppedCh
	c.primary.stoppedMu.Lock()
	c.primary.stoppedChan = stoppedCh
	c.primary.stoppedMu.Unlock()
	c.childrenMu.Lock()
	for _, child := range c.children {
		child.stoppedMu.Lock()
		child.stoppedChan = stoppedCh
		child.stoppedMu.Unlock()
	}
	c.childrenMu.Unlock()
	c.stoppedMu.Unlock()

	defer func() {
		c.stoppedMu.Lock()
		c.stoppedChan = nil
		c.stoppedMu.Unlock()
	}()

	_, err := c.Continue(threadID)
	if err != nil {
		return nil, err
	}

	select {
	case info := <-stoppedCh:
		return info, nil
	case <-time.After(timeout):
		return nil, fmt.Errorf("timeout waiting for stopped event after continue")
	}
}

// Close shuts down the client and every connection it owns.
func (c *Client) Close() error {
	c.childrenMu.Lock()
	for id, child := range c.children {
		if err := child.close(); err != nil {
			logging.L().WithError(err).WithField("targetId", id).Warn("error closing child connection")
		}
	}
	c.children = make(map[string]*connection)
	c.activeChildID = ""
	c.childrenMu.Unlock()

	return c.primary.close()
}
