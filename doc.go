// Package afmcp runs an MCP server in front of a Salesforce Agentforce agent.
//
// A Service wires the token manager, the Agent API client, the conversation
// bridge and the MCP server from a config.Config. Run is the command line
// entry point: it loads the configuration, verifies the credentials with an
// initial token request and serves until the context is cancelled.
//
// Example:
//
//	cfg, _ := config.Load(ctx, os.Args[1:])
//	srv, _ := afmcp.New(ctx, cfg)
//	_ = srv.Start(ctx)
//	_ = srv.Serve(ctx)
package afmcp
