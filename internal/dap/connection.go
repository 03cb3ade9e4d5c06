package dap

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/go-dap"

	"github.com/bherbruck/mcp-debugger/internal/logging"
)

// connection is one logical DAP peer over one byte stream: a monotonically
// increasing sequence counter, a pending-request table with per-request
// timeouts, and event/reverse-request dispatch. This is C2 in the
// orchestrator's layering; Client (C3) owns one primary connection plus,
// for multi-session adapters, zero or more child connections opened in
// response to startDebugging reverse requests.
type connection struct {
	transport *Transport

	// targetID is empty for the primary connection and holds the adapter's
	// __pendingTargetId for a child connection.
	targetID string

	pendingRequests map[int]chan dap.Message
	mu              sync.Mutex

	eventHandler    func(dap.Message)
	reverseHandler  func(dap.Message)
	stoppedChan     chan *StoppedInfo
	stoppedMu       sync.Mutex

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	closed   bool
	closedMu sync.Mutex
}

func newConnection(transport *Transport, targetID string) *connection {
	ctx, cancel := context.WithCancel(context.Background())
	c := &connection{
		transport:       transport,
		targetID:        targetID,
		pendingRequests: make(map[int]chan dap.Message),
		ctx:             ctx,
		cancel:          cancel,
	}
	c.wg.Add(1)
	go c.readLoop()
	return c
}

func (c *connection) readLoop() {
	defer c.wg.Done()

	consecutiveErrors := 0
	const maxConsecutiveErrors = 5

	log := logging.L().WithField("targetId", c.targetID)

	for {
		select {
		case <-c.ctx.Done():
			return
		default:
		}

		msg, err := c.transport.Receive()
		if err != nil {
			select {
			case <-c.ctx.Done():
				return
			default:
				consecutiveErrors++
				log.WithError(err).Warnf("DAP transport error (attempt %d/%d)", consecutiveErrors, maxConsecutiveErrors)
				if consecutiveErrors >= maxConsecutiveErrors {
					log.Error("DAP transport: too many consecutive errors, stopping read loop")
					c.rejectAllPending(fmt.Errorf("adapter connection closed: %w", err))
					return
				}
				continue
			}
		}

		consecutiveErrors = 0
		c.handleMessage(msg)
	}
}

// rejectAllPending resolves every outstanding request with an error,
// matching the spec's "on stream close or adapter exit: reject all pending
// with a close reason" contract.
func (c *connection) rejectAllPending(reason error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for seq, ch := range c.pendingRequests {
		select {
		case ch <- &dap.ErrorResponse{
			Response: dap.Response{
				ProtocolMessage: dap.ProtocolMessage{Type: "response"},
				RequestSeq:      seq,
				Success:         false,
				Message:         reason.Error(),
			},
		}:
		default:
		}
		delete(c.pendingRequests, seq)
	}
}

func (c *connection) handleMessage(msg dap.Message) {
	var requestSeq int
	var isResponse bool

	switch m := msg.(type) {
	case *dap.InitializeResponse:
		requestSeq, isResponse = m.RequestSeq, true
	case *dap.LaunchResponse:
		requestSeq, isResponse = m.RequestSeq, true
	case *dap.AttachResponse:
		requestSeq, isResponse = m.RequestSeq, true
	case *dap.DisconnectResponse:
		requestSeq, isResponse = m.RequestSeq, true
	case *dap.TerminateResponse:
		requestSeq, isResponse = m.RequestSeq, true
	case *dap.ConfigurationDoneResponse:
		requestSeq, isResponse = m.RequestSeq, true
	case *dap.ThreadsResponse:
		requestSeq, isResponse = m.RequestSeq, true
	case *dap.StackTraceResponse:
		requestSeq, isResponse = m.RequestSeq, true
	case *dap.ScopesResponse:
		requestSeq, isResponse = m.RequestSeq, true
	case *dap.VariablesResponse:
		requestSeq, isResponse = m.RequestSeq, true
	case *dap.EvaluateResponse:
		requestSeq, isResponse = m.RequestSeq, true
	case *dap.SetBreakpointsResponse:
		requestSeq, isResponse = m.RequestSeq, true
	case *dap.SetFunctionBreakpointsResponse:
		requestSeq, isResponse = m.RequestSeq, true
	case *dap.SetExceptionBreakpointsResponse:
		requestSeq, isResponse = m.RequestSeq, true
	case *dap.ContinueResponse:
		requestSeq, isResponse = m.RequestSeq, true
	case *dap.NextResponse:
		requestSeq, isResponse = m.RequestSeq, true
	case *dap.StepInResponse:
		requestSeq, isResponse = m.RequestSeq, true
	case *dap.StepOutResponse:
		requestSeq, isResponse = m.RequestSeq, true
	case *dap.PauseResponse:
		requestSeq, isResponse = m.RequestSeq, true
	case *dap.SetVariableResponse:
		requestSeq, isResponse = m.RequestSeq, true
	case *dap.SourceResponse:
		requestSeq, isResponse = m.RequestSeq, true
	case *dap.ModulesResponse:
		requestSeq, isResponse = m.RequestSeq, true
	case *dap.ErrorResponse:
		requestSeq, isResponse = m.RequestSeq, true
	case *dap.RunInTerminalRequest, *dap.StartDebuggingRequest:
		if c.reverseHandler != nil {
			c.reverseHandler(msg)
		}
		return
	case *dap.InitializedEvent:
		if c.eventHandler != nil {
			c.eventHandler(msg)
		}
		return
	case *dap.StoppedEvent:
		info := &StoppedInfo{
			Reason:      m.Body.Reason,
			ThreadID:    m.Body.ThreadId,
			Description: m.Body.Description,
			AllStopped:  m.Body.AllThreadsStopped,
		}
		c.stoppedMu.Lock()
		if c.stoppedChan != nil {
			select {
			case c.stoppedChan <- info:
			default:
			}
		}
		c.stoppedMu.Unlock()
		if c.eventHandler != nil {
			c.eventHandler(msg)
		}
		return
	}

	if isResponse {
		c.mu.Lock()
		if ch, ok := c.pendingRequests[requestSeq]; ok {
			ch <- msg
			delete(c.pendingRequests, requestSeq)
		}
		// An unmatched request_seq is a stale/duplicate response; per the
		// codec contract it is silently ignored.
		c.mu.Unlock()
		return
	}

	if c.eventHandler != nil {
		c.eventHandler(msg)
	}
}

func stampSeq(req dap.RequestMessage, seq int) {
	switch r := req.(type) {
	case *dap.InitializeRequest:
		r.Seq = seq
	case *dap.LaunchRequest:
		r.Seq = seq
	case *dap.AttachRequest:
		r.Seq = seq
	case *dap.DisconnectRequest:
		r.Seq = seq
	case *dap.TerminateRequest:
		r.Seq = seq
	case *dap.ConfigurationDoneRequest:
		r.Seq = seq
	case *dap.ThreadsRequest:
		r.Seq = seq
	case *dap.StackTraceRequest:
		r.Seq = seq
	case *dap.ScopesRequest:
		r.Seq = seq
	case *dap.VariablesRequest:
		r.Seq = seq
	case *dap.EvaluateRequest:
		r.Seq = seq
	case *dap.SetBreakpointsRequest:
		r.Seq = seq
	case *dap.SetFunctionBreakpointsRequest:
		r.Seq = seq
	case *dap.SetExceptionBreakpointsRequest:
		r.Seq = seq
	case *dap.ContinueRequest:
		r.Seq = seq
	case *dap.NextRequest:
		r.Seq = seq
	case *dap.StepInRequest:
		r.Seq = seq
	case *dap.StepOutRequest:
		r.Seq = seq
	case *dap.PauseRequest:
		r.Seq = seq
	case *dap.SetVariableRequest:
		r.Seq = seq
	case *dap.SourceRequest:
		r.Seq = seq
	case *dap.ModulesRequest:
		r.Seq = seq
	}
}

// sendRequest allocates a sequence number, registers a pending response
// channel, writes the request, and blocks until the response arrives, the
// timeout elapses, or the connection is closed.
func (c *connection) sendRequest(req dap.RequestMessage, timeout time.Duration) (dap.Message, error) {
	seq := c.transport.NextSeq()
	stampSeq(req, seq)

	respCh := make(chan dap.Message, 1)
	c.mu.Lock()
	c.pendingRequests[seq] = respCh
	c.mu.Unlock()

	if err := c.transport.Send(req); err != nil {
		c.mu.Lock()
		delete(c.pendingRequests, seq)
		c.mu.Unlock()
		return nil, err
	}

	select {
	case resp := <-respCh:
		return resp, nil
	case <-time.After(timeout):
		c.mu.Lock()
		delete(c.pendingRequests, seq)
		c.mu.Unlock()
		return nil, fmt.Errorf("request timed out after %s", timeout)
	case <-c.ctx.Done():
		return nil, c.ctx.Err()
	}
}

// sendRequestAsync registers the pending response and writes the request
// without waiting; the caller collects the result later via the returned
// channel. Used for the async-launch protocol (spec §4.3, "Async launch").
func (c *connection) sendRequestAsync(req dap.RequestMessage) (chan dap.Message, error) {
	seq := c.transport.NextSeq()
	stampSeq(req, seq)

	respCh := make(chan dap.Message, 1)
	c.mu.Lock()
	c.pendingRequests[seq] = respCh
	c.mu.Unlock()

	if err := c.transport.Send(req); err != nil {
		c.mu.Lock()
		delete(c.pendingRequests, seq)
		c.mu.Unlock()
		return nil, err
	}

	return respCh, nil
}

// reply sends a response to a reverse request, matching command and
// request_seq per the codec's "a response MUST be emitted... even for
// rejections" contract.
func (c *connection) reply(resp dap.ResponseMessage) error {
	return c.transport.Send(resp)
}

func (c *connection) close() error {
	c.closedMu.Lock()
	if c.closed {
		c.closedMu.Unlock()
		return nil
	}
	c.closed = true
	c.closedMu.Unlock()

	c.cancel()
	c.wg.Wait()
	c.rejectAllPending(fmt.Errorf("connection closed"))
	return c.transport.Close()
}
