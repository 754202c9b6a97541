package mcp

import (
	"context"
	"fmt"
	"net/url"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/sirupsen/logrus"

	"github.com/datasniffing/caramelo/pkg/models"
	"github.com/datasniffing/caramelo/pkg/page"
	"github.com/datasniffing/caramelo/pkg/registry"
)

const serverName = "caramelo"

// PasswordChecker inspects a single page for a password policy
type PasswordChecker interface {
	Check(ctx context.Context, rawURL string) models.PasswordPolicyResult
	Inspect(view page.View) models.PasswordPolicyResult
}

// RobotsChecker reports whether a URL may be crawled
type RobotsChecker interface {
	Allowed(ctx context.Context, target *url.URL) (bool, error)
}

// ServerConfig holds configuration for the MCP server
type ServerConfig struct {
	Version   string
	Transport string // "stdio" or "sse"
	Addr      string // Listen address for sse
	Registry  *registry.Registry
	Run       registry.RunFunc
	Password  PasswordChecker
	Robots    RobotsChecker
	Logger    *logrus.Logger
}

// Server exposes crawl tasks and the password check as MCP tools
type Server struct {
	mcpServer *server.MCPServer
	sseServer *server.SSEServer
	cfg       *ServerConfig
	log       *logrus.Entry
}

// NewServer creates a new MCP server instance
func NewServer(cfg *ServerConfig) (*Server, error) {
	if cfg.Registry == nil || cfg.Run == nil {
		return nil, fmt.Errorf("registry and run function are required")
	}
	if cfg.Password == nil || cfg.Robots == nil {
		return nil, fmt.Errorf("password and robots checkers are required")
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}
	if cfg.Version == "" {
		cfg.Version = "dev"
	}

	mcpServer := server.NewMCPServer(
		serverName,
		cfg.Version,
		server.WithToolCapabilities(false),
		server.WithLogging(),
		server.WithRecovery(),
	)

	s := &Server{
		mcpServer: mcpServer,
		cfg:       cfg,
		log:       cfg.Logger.WithField("component", "mcp"),
	}
	s.registerTools()
	return s, nil
}

// registerTools registers all available MCP tools
func (s *Server) registerTools() {
	// run_crawler - start a background compliance crawl
	runCrawlerTool := mcp.NewTool("run_crawler",
		mcp.WithDescription("Start a background privacy-compliance crawl of a website. Returns immediately with a task ID."),
		mcp.WithString("url",
			mcp.Required(),
			mcp.Description("Seed URL (http or https); only pages on the same host are visited"),
		),
	)
	s.mcpServer.AddTool(runCrawlerTool, s.handleRunCrawler)

	// get_crawler_result - poll a crawl task
	getResultTool := mcp.NewTool("get_crawler_result",
		mcp.WithDescription("Get the compliance checklist of a crawl task, or ready=false while it is still running"),
		mcp.WithString("task_id",
			mcp.Required(),
			mcp.Description("The task ID returned by run_crawler"),
		),
	)
	s.mcpServer.AddTool(getResultTool, s.handleGetCrawlerResult)

	// check_password_policy - inspect one page
	passwordTool := mcp.NewTool("check_password_policy",
		mcp.WithDescription("Fetch one page and report whether its password field enforces a strength policy"),
		mcp.WithString("url",
			mcp.Required(),
			mcp.Description("URL of a sign-up or password page"),
		),
		mcp.WithString("html",
			mcp.Description("Optional page markup; when set it is inspected instead of fetching the URL"),
		),
	)
	s.mcpServer.AddTool(passwordTool, s.handleCheckPasswordPolicy)

	s.log.Infof("Registered %d MCP tools", 3)
}

// Run starts the MCP server with the configured transport
func (s *Server) Run() error {
	switch s.cfg.Transport {
	case "stdio":
		s.log.Info("Starting MCP server with stdio transport")
		return server.ServeStdio(s.mcpServer)
	case "sse":
		s.log.Infof("Starting MCP server with SSE transport on %s", s.cfg.Addr)
		s.sseServer = server.NewSSEServer(s.mcpServer)
		return s.sseServer.Start(s.cfg.Addr)
	default:
		return fmt.Errorf("unknown transport: %s (supported: stdio, sse)", s.cfg.Transport)
	}
}

// Shutdown stops the SSE listener. Running crawls are left to the registry.
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info("Shutting down MCP server...")
	if s.sseServer != nil {
		return s.sseServer.Shutdown(ctx)
	}
	return nil
}
