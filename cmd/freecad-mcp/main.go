// freecad-mcp bridges MCP agents to a running FreeCAD instance. It serves
// the MCP protocol over SSE and keeps a single control connection into the
// FreeCAD RPC add-on.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/naicud/freecad-mcp/internal/bridge"
	"github.com/naicud/freecad-mcp/internal/config"
	"github.com/naicud/freecad-mcp/internal/freecad"
	"github.com/naicud/freecad-mcp/internal/httpapi"
	"github.com/naicud/freecad-mcp/internal/tools"
)

const version = "0.1.0"

const shutdownTimeout = 10 * time.Second

var flags struct {
	configPath       string
	host             string
	port             int
	ssePath          string
	messagePath      string
	freecadHost      string
	freecadPort      int
	onlyTextFeedback bool
	debug            bool
}

var rootCmd = &cobra.Command{
	Use:          "freecad-mcp",
	Short:        "MCP server bridging AI agents to a FreeCAD instance",
	Version:      version,
	SilenceUsage: true,
	RunE:         runServe,
}

func init() {
	f := rootCmd.Flags()
	f.StringVar(&flags.configPath, "config", "", "Path to the config file (default ~/.freecad-mcp/config.yaml)")
	f.StringVar(&flags.host, "host", "", "Host interface for the HTTP/SSE server")
	f.IntVar(&flags.port, "port", 0, "TCP port for the HTTP/SSE server")
	f.StringVar(&flags.ssePath, "sse-path", "", "Relative path that clients use to establish SSE connections")
	f.StringVar(&flags.messagePath, "message-path", "", "Relative path where clients POST MCP messages")
	f.StringVar(&flags.freecadHost, "freecad-host", "", "Host of the FreeCAD RPC add-on")
	f.IntVar(&flags.freecadPort, "freecad-port", 0, "Port of the FreeCAD RPC add-on")
	f.BoolVar(&flags.onlyTextFeedback, "only-text-feedback", false, "Disable screenshot feedback and respond with text only")
	f.BoolVar(&flags.debug, "debug", false, "Enable request logging and pprof handlers")
}

func main() {
	log.SetOutput(os.Stderr)
	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	var cfg *config.Config
	var err error
	if flags.configPath != "" {
		cfg, err = config.LoadFrom(flags.configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		log.Printf("Warning: could not load config, using defaults: %v", err)
		cfg = config.Default()
	}

	// Flags override file values only when set on the command line.
	set := cmd.Flags().Changed
	if set("host") {
		cfg.Server.Host = flags.host
	}
	if set("port") {
		cfg.Server.Port = flags.port
	}
	if set("sse-path") {
		cfg.Server.SSEPath = flags.ssePath
	}
	if set("message-path") {
		cfg.Server.MessagePath = flags.messagePath
	}
	if set("freecad-host") {
		cfg.FreeCAD.Host = flags.freecadHost
	}
	if set("freecad-port") {
		cfg.FreeCAD.Port = flags.freecadPort
	}
	if set("only-text-feedback") {
		cfg.Feedback.TextOnly = flags.onlyTextFeedback
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	manager := freecad.NewManager(cfg.RemoteAddr(), cfg.CallTimeout())
	defer manager.Close()

	dispatcher := bridge.New(manager, cfg.Feedback.TextOnly)
	log.Printf("Only text feedback: %v", cfg.Feedback.TextOnly)

	registry := tools.NewRegistry(dispatcher)

	mcpServer := server.NewMCPServer("FreeCAD MCP", version,
		server.WithToolCapabilities(false),
		server.WithRecovery(),
		server.WithInstructions("Bridge to a running FreeCAD instance. Tool failures are reported as text content; read them before retrying."),
	)
	registry.Register(mcpServer)

	sse := server.NewSSEServer(mcpServer,
		server.WithSSEEndpoint(cfg.Server.SSEPath),
		server.WithMessageEndpoint(cfg.Server.MessagePath),
	)

	api := &httpapi.Server{
		Conns:    manager,
		Registry: registry,
		Debug:    flags.debug,
	}
	router := api.Router(cfg.Server.SSEPath, cfg.Server.MessagePath, sse.SSEHandler(), sse.MessageHandler())

	httpServer := &http.Server{
		Addr:              cfg.ListenAddr(),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	log.Printf("freecad-mcp %s listening on %s (sse=%s messages=%s freecad=%s)",
		version, cfg.ListenAddr(), cfg.Server.SSEPath, cfg.Server.MessagePath, cfg.RemoteAddr())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-sigCh:
		log.Printf("received %s, shutting down", sig)
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return <-errCh
}
