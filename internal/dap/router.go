package dap

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/go-dap"

	"github.com/bherbruck/mcp-debugger/internal/logging"
)

// Multi-session router (spec §4.3.1): vscode-js-debug announces each
// debuggee target with a startDebugging reverse request carrying
// configuration.__pendingTargetId. The client opens a new connection to
// the same host:port, tags it with the target id, runs its own
// initialize/attach/configurationDone handshake, and marks it the active
// child session. Every subsequent thread/frame-scoped request is then
// routed to the active child rather than the primary connection.

const (
	childHandshakeTimeout = 5 * time.Second
)

// handleReverseRequest is installed as the reverseHandler on every
// connection (primary and child). runInTerminal is rejected; startDebugging
// is handled by spawning a child session. The connection routes only these
// two reverse requests here; any other reverse request gets no reply.
func (c *Client) handleReverseRequest(msg dap.Message) {
	switch req := msg.(type) {
	case *dap.RunInTerminalRequest:
		resp := &dap.RunInTerminalResponse{
			Response: dap.Response{
				ProtocolMessage: dap.ProtocolMessage{Type: "response"},
				RequestSeq:      req.Seq,
				Command:         req.Command,
				Success:         false,
				Message:         "runInTerminal is not supported by this orchestrator",
			},
		}
		if err := c.primary.reply(resp); err != nil {
			logging.L().WithError(err).Warn("failed to reply to runInTerminal reverse request")
		}
	case *dap.StartDebuggingRequest:
		c.handleStartDebugging(req)
	}
}

// handleStartDebugging implements spec §4.3.1 steps 1-5.
func (c *Client) handleStartDebugging(req *dap.StartDebuggingRequest) {
	log := logging.L()

	targetID, _ := req.Arguments.Configuration["__pendingTargetId"].(string)
	if targetID == "" {
		targetID = fmt.Sprintf("target-%d", req.Seq)
	}

	replyTo := func(success bool, message string) {
		resp := &dap.StartDebuggingResponse{
			Response: dap.Response{
				ProtocolMessage: dap.ProtocolMessage{Type: "response"},
				RequestSeq:      req.Seq,
				Command:         req.Command,
				Success:         success,
				Message:         message,
			},
		}
		if err := c.primary.reply(resp); err != nil {
			log.WithError(err).Warn("failed to reply to startDebugging reverse request")
		}
	}

	if c.dialChild == nil {
		replyTo(false, "client is not configured for multi-session targets")
		return
	}

	transport, err := c.dialChild()
	if err != nil {
		log.WithError(err).WithField("targetId", targetID).Error("failed to open child session connection")
		replyTo(false, err.Error())
		return
	}

	child := newConnection(transport, targetID)
	child.eventHandler = c.eventHandler
	child.reverseHandler = c.handleReverseRequest
	c.stoppedMu.Lock()
	child.stoppedChan = c.stoppedChan
	c.stoppedMu.Unlock()

	if err := c.childHandshake(child, targetID); err != nil {
		log.WithError(err).WithField("targetId", targetID).Warn("child session handshake did not fully complete")
		// Per spec §4.3.1 step 3, attach timing out is non-fatal; proceed anyway.
	}

	c.childrenMu.Lock()
	c.children[targetID] = child
	c.activeChildID = targetID
	c.childrenMu.Unlock()

	log.WithField("targetId", targetID).Info("multi-session child target attached and made active")
	replyTo(true, "")
}

// childHandshake runs initialize/attach/configurationDone on a freshly
// opened child connection. Each step has its own timeout; a timed-out
// attach is tolerated (spec §4.3.1 step 3).
func (c *Client) childHandshake(child *connection, targetID string) error {
	initReq := &dap.InitializeRequest{
		Request: dap.Request{
			ProtocolMessage: dap.ProtocolMessage{Type: "request"},
			Command:         "initialize",
		},
		Arguments: dap.InitializeRequestArguments{
			ClientID:                     "dap-mcp",
			ClientName:                   "DAP-MCP Server",
			AdapterID:                    "dap-mcp",
			Locale:                       "en-US",
			LinesStartAt1:                true,
			ColumnsStartAt1:              true,
			PathFormat:                   "path",
			SupportsVariableType:         true,
			SupportsVariablePaging:       true,
			SupportsStartDebuggingRequest: true,
		},
	}
	if _, err := child.sendRequest(initReq, c.childTimeout()); err != nil {
		return fmt.Errorf("child initialize: %w", err)
	}

	attachArgs, err := json.Marshal(map[string]interface{}{
		"type":              "pwa-node",
		"__pendingTargetId": targetID,
	})
	if err != nil {
		return fmt.Errorf("marshal child attach args: %w", err)
	}
	attachReq := &dap.AttachRequest{
		Request: dap.Request{
			ProtocolMessage: dap.ProtocolMessage{Type: "request"},
			Command:         "attach",
		},
		Arguments: attachArgs,
	}
	// attach timing out is non-fatal; the child is still tracked.
	if _, err := child.sendRequest(attachReq, c.childTimeout()); err != nil {
		logging.L().WithError(err).WithField("targetId", targetID).Debug("child attach did not complete in time, continuing")
	}

	confDoneReq := &dap.ConfigurationDoneRequest{
		Request: dap.Request{
			ProtocolMessage: dap.ProtocolMessage{Type: "request"},
			Command:         "configurationDone",
		},
	}
	if _, err := child.sendRequest(confDoneReq, c.childTimeout()); err != nil {
		return fmt.Errorf("child configurationDone: %w", err)
	}

	return nil
}

// activeConnection returns the child session's connection if one is
// active, otherwise the primary connection. Thread/frame-scoped DAP
// requests resolve their target connection through this method.
func (c *Client) activeConnection() *connection {
	c.childrenMu.Lock()
	defer c.childrenMu.Unlock()
	if c.activeChildID != "" {
		if conn, ok := c.children[c.activeChildID]; ok {
			return conn
		}
	}
	return c.primary
}

// closeChild removes a child connection, e.g. after observing a
// terminated event on it. If it was the active child, the active pointer
// clears and thread-scoped requests fall back to the primary connection.
func (c *Client) closeChild(targetID string) {
	c.childrenMu.Lock()
	defer c.childrenMu.Unlock()
	if conn, ok := c.children[targetID]; ok {
		_ = conn.close()
		delete(c.children, targetID)
	}
	if c.activeChildID == targetID {
		c.activeChildID = ""
	}
}
