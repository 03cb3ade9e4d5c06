package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/bherbruck/mcp-debugger/internal/config"
	"github.com/bherbruck/mcp-debugger/internal/logging"
	"github.com/bherbruck/mcp-debugger/internal/mcp"
	"github.com/bherbruck/mcp-debugger/internal/version"
)

func main() {
	// Parse command line flags
	configPath := flag.String("config", "", "Path to configuration file")
	mode := flag.String("mode", "full", "Capability mode: 'readonly' or 'full'")
	verbose := flag.Bool("verbose", false, "Enable debug-level logging")
	showVersion := flag.Bool("version", false, "Show version and exit")
	help := flag.Bool("help", false, "Show help and exit")

	flag.Parse()

	if *showVersion {
		fmt.Printf("dap-mcp version %s\n", version.Version)
		os.Exit(0)
	}

	if *help {
		printHelp()
		os.Exit(0)
	}

	if *verbose {
		logging.SetLevel(logrus.DebugLevel)
	}

	log := logging.L()

	// Load configuration
	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.WithError(err).Fatal("failed to load configuration")
	}

	// Override mode from command line
	if *mode == "readonly" {
		cfg.Mode = config.ModeReadOnly
	} else if *mode == "full" {
		cfg.Mode = config.ModeFull
	}

	// Create and start the server
	server := mcp.NewServer(cfg)

	// Check for a newer release in the background; never blocks startup
	// and any failure (offline, rate-limited) is swallowed into UpdateInfo.Error.
	checker := version.NewChecker()
	checker.CheckForUpdatesAsync()
	go func() {
		time.Sleep(10 * time.Second)
		if info := checker.GetUpdateInfo(); info != nil {
			if msg := info.UpdateMessage(); msg != "" {
				log.Info(msg)
			}
		}
	}()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigCh
		log.Info("shutting down")
		server.Close()
		os.Exit(0)
	}()

	// Start serving via stdio
	log.Info("dap-mcp server starting")
	if err := server.ServeStdio(); err != nil {
		server.Close()
		log.WithError(err).Fatal("server error")
	}
	server.Close()
}

func printHelp() {
	fmt.Println(`DAP-MCP: Debug Adapter Protocol MCP Server

A Model Context Protocol (MCP) server that exposes Debug Adapter Protocol (DAP)
functionality to LLMs, enabling AI agents to introspect and debug code.

USAGE:
    dap-mcp [OPTIONS]

OPTIONS:
    -config <path>     Path to configuration file (JSON)
    -mode <mode>       Capability mode: 'readonly' or 'full' (default: full)
    -version           Show version and exit
    -help              Show this help message

SUPPORTED LANGUAGES:
    - Go (via Delve)
    - Python (via debugpy)
    - JavaScript/TypeScript (via Node.js inspector)

CONFIGURATION:
    Create a JSON configuration file to customize behavior:

    {
        "mode": "full",
        "allowSpawn": true,
        "allowAttach": true,
        "allowModify": true,
        "allowExecute": true,
        "maxSessions": 10,
        "sessionTimeout": 1800000000000,
        "adapters": {
            "go": {
                "path": "dlv",
                "buildFlags": ""
            },
            "python": {
                "pythonPath": "python3"
            },
            "node": {
                "nodePath": "node",
                "inspectBrk": true
            }
        }
    }

MCP INTEGRATION:
    Add to your MCP client configuration:

    Claude Code (~/.claude.json):
    {
        "mcpServers": {
            "dap-mcp": {
                "command": "dap-mcp",
                "args": ["--mode", "full"]
            }
        }
    }

TOOLS:
    Session Management:
        debug_launch          Launch a new debug session
        debug_attach          Attach to an existing adapter
        debug_disconnect      End a debug session
        debug_list_sessions   List active sessions

    Inspection (read-only):
        debug_get_threads         Get all threads
        debug_get_stack_trace     Get call stack
        debug_get_variables       Get variables
        debug_expand_variable     Expand a variable's children
        debug_evaluate            Evaluate expressions
        debug_get_source_context  Get source code

    Control (full mode only):
        debug_breakpoints         Set source breakpoints
        debug_continue            Continue execution
        debug_step                Step over/into/out
        debug_step_and_trace      Step repeatedly, tracing each stop
        debug_pause               Pause execution
        debug_set_variable        Modify variables
        debug_execute_command     Run a native GDB/LLDB command
        debug_get_traces          Get captured tracepoint hits
        debug_clear_traces        Discard captured tracepoint hits

    Convenience:
        debug_snapshot        Get complete debug state
        debug_run_to_line     Run to a specific line

For more information, visit: https://github.com/bherbruck/mcp-debugger`)
}
