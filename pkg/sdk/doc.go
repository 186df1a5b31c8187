// Package sdk provides a typed Go client for the shiplift MCP server.
//
// The client wraps mcp-go/client.CallTool with one method per MCP tool,
// connection management, and automatic retry via fortify.
//
// Usage:
//
//	transport, _ := client.NewStdioTransport("shiplift", "mcp")
//	c := sdk.NewClient(transport)
//	defer c.Close()
//
//	info, _ := c.Initialize(ctx)
//	report, _ := c.GetReport(ctx)
//	fmt.Println(report.Summary.Complexity.Overall.Rating)
package sdk
