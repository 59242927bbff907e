// Package service correlates server-to-client requests with their responses
// and tracks the language server session lifecycle.
//
// A Client queues requests and notifications on a ClientSocket. The transport
// drains the socket's RequestStream and feeds the client's answers into its
// ResponseSink, which wakes the caller waiting in Call. Both halves stop once
// the ServerState reaches Exited.
//
//	state := service.NewServerState()
//	client, socket := service.NewClient(state)
//	handler := service.NewLifecycle(state, router)
//	// hand handler and socket to a transport.Server
package service
