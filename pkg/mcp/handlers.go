package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/sirupsen/logrus"

	"github.com/datasniffing/caramelo/pkg/models"
	"github.com/datasniffing/caramelo/pkg/page"
	"github.com/datasniffing/caramelo/pkg/parse"
	"github.com/datasniffing/caramelo/pkg/utils"
)

// handleRunCrawler handles the run_crawler tool
func (s *Server) handleRunCrawler(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	urlStr := request.GetString("url", "")
	if urlStr == "" {
		return mcp.NewToolResultError("url parameter is required"), nil
	}

	id := s.cfg.Registry.Spawn(urlStr, s.cfg.Run)
	s.log.WithFields(logrus.Fields{"task_id": id, "url": urlStr}).Info("Crawl requested via MCP")

	return mcp.NewToolResultText(formatJSON(map[string]any{
		"success": true,
		"task_id": id,
		"message": "Crawl started. Use get_crawler_result to poll for the checklist.",
	})), nil
}

// handleGetCrawlerResult handles the get_crawler_result tool
func (s *Server) handleGetCrawlerResult(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := request.GetString("task_id", "")
	if id == "" {
		return mcp.NewToolResultError("task_id parameter is required"), nil
	}

	task, found := s.cfg.Registry.Get(id)
	if !found {
		return mcp.NewToolResultError("Task not found"), nil
	}

	response := map[string]any{
		"task_id":    task.ID,
		"url":        task.URL,
		"created_at": task.CreatedAt,
		"ready":      task.State == models.TaskStateReady,
	}
	if task.State == models.TaskStateReady {
		results := task.Results
		if results == nil {
			results = []models.CheckResult{}
		}
		response["completed_at"] = task.CompletedAt
		response["results"] = results
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleCheckPasswordPolicy handles the check_password_policy tool
func (s *Server) handleCheckPasswordPolicy(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	urlStr := request.GetString("url", "")
	target, err := parse.ParseSeed(urlStr)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid URL: %v", err)), nil
	}

	// Markup supplied by the caller is inspected as is, nothing is fetched
	if html := request.GetString("html", ""); html != "" {
		view, err := page.FromHTML(target.String(), html)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("cannot parse html: %v", err)), nil
		}
		return passwordResult(target, s.cfg.Password.Inspect(view)), nil
	}

	allowed, err := s.cfg.Robots.Allowed(ctx, target)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("robots.txt check failed (%s): %v", utils.CategorizeError(err), err)), nil
	}
	if !allowed {
		return mcp.NewToolResultError("Website does not allow crawling of this URL"), nil
	}

	return passwordResult(target, s.cfg.Password.Check(ctx, target.String())), nil
}

func passwordResult(target *url.URL, result models.PasswordPolicyResult) *mcp.CallToolResult {
	return mcp.NewToolResultText(formatJSON(map[string]any{
		"url":    target.String(),
		"result": result,
	}))
}

// formatJSON formats data as an indented JSON string
func formatJSON(data any) string {
	b, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Sprintf(`{"error": "failed to format result: %v"}`, err)
	}
	return string(b)
}
