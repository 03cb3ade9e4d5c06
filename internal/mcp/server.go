// Package mcp provides the Model Context Protocol (MCP) server implementation.
//
// This package exposes debugging capabilities through MCP tools that can be used
// by AI assistants and other MCP clients. It provides a consolidated 21-tool API:
//
// Session Management (always available):
//   - debug_launch: Launch a new debug session
//   - debug_attach: Attach to an existing process or browser
//   - debug_disconnect: Disconnect from a session
//   - debug_list_sessions: List active sessions
//
// Inspection (always available):
//   - debug_snapshot: Get complete debug state (threads, stacks, variables)
//   - debug_evaluate: Evaluate expressions in debug context
//   - debug_get_threads: List threads
//   - debug_get_stack_trace: Get a thread's call stack
//   - debug_get_variables: Get a frame's variables
//   - debug_expand_variable: Expand a variable's children
//   - debug_get_source_context: Read source lines around a line
//
// Control (full mode only):
//   - debug_breakpoints: Set/clear breakpoints
//   - debug_step: Step over/into/out
//   - debug_continue: Resume execution
//   - debug_step_and_trace: Step repeatedly, capturing a trace per step
//   - debug_pause: Pause execution
//   - debug_set_variable: Modify variable values
//   - debug_run_to_line: Run to a specific line
//   - debug_execute_command: Run a native GDB/LLDB command
//   - debug_get_traces: Retrieve captured tracepoint hits
//   - debug_clear_traces: Discard captured tracepoint hits
package mcp

import (
	"context"

	"github.com/bherbruck/mcp-debugger/internal/adapters"
	"github.com/bherbruck/mcp-debugger/internal/config"
	"github.com/bherbruck/mcp-debugger/internal/dap"
	"github.com/mark3labs/mcp-go/server"
)

// Server wraps the MCP server with debugging capabilities
type Server struct {
	mcpServer      *server.MCPServer
	sessionManager *dap.SessionManager
	adapterReg     *adapters.Registry
	config         *config.Config
}

// NewServer creates a new DAP-MCP server
func NewServer(cfg *config.Config) *Server {
	// Create MCP server
	mcpServer := server.NewMCPServer(
		"dap-mcp",
		"0.1.0",
		server.WithToolCapabilities(true),
		server.WithRecovery(),
	)

	// Create session manager
	sessionManager := dap.NewSessionManager(cfg.MaxSessions, cfg.SessionTimeout, cfg.Tracepoint.MaxBufferSize, cfg.Tracepoint.MaxVariablesPerTrace)

	// Create adapter registry
	adapterReg := adapters.NewRegistry(cfg)
	adapters.SetChildHandshakeTimeout(cfg.Router.ChildHandshakeTimeout)

	s := &Server{
		mcpServer:      mcpServer,
		sessionManager: sessionManager,
		adapterReg:     adapterReg,
		config:         cfg,
	}

	// Register all tools
	s.registerTools()

	return s
}

// registerTools is defined in tools.go with the consolidated 21-tool API

// ServeStdio starts the server using stdio transport
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// Close shuts down the server
func (s *Server) Close() {
	s.sessionManager.Close()
}

// GetSessionManager returns the session manager
func (s *Server) GetSessionManager() *dap.SessionManager {
	return s.sessionManager
}

// GetAdapterRegistry returns the adapter registry
func (s *Server) GetAdapterRegistry() *adapters.Registry {
	return s.adapterReg
}

// GetConfig returns the server configuration
func (s *Server) GetConfig() *config.Config {
	return s.config
}

// Helper function to get context from handler
func contextFromHandler() context.Context {
	return context.Background()
}
