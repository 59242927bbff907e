// Package jsonrpc provides typed JSON-RPC 2.0 envelopes for the language server protocol.
//
// This package implements the message shapes of the JSON-RPC 2.0 specification
// (https://www.jsonrpc.org/specification) as used by the language server
// protocol's base protocol. It does no I/O; see package transport for framing.
//
// # Method Descriptors
//
// Envelopes are generic over a method descriptor: a value type whose zero value
// reports the method name.
//
//	type WillRenameFiles struct{}
//
//	func (WillRenameFiles) Name() string { return "workspace/willRenameFiles" }
//
// A request is then a RequestMessage over the descriptor and its params type:
//
//	req := jsonrpc.NewRequest[WillRenameFiles](jsonrpc.NumberID(0), &RenameFilesParams{})
//	data, err := json.Marshal(req)
//	// {"jsonrpc":"2.0","id":0,"method":"workspace/willRenameFiles","params":{"files":[]}}
//
// Decoding checks the "jsonrpc" member first and then the "method" member
// against the descriptor, so a RequestMessage[WillRenameFiles, P] never decodes
// an envelope for another method:
//
//	var req jsonrpc.RequestMessage[WillRenameFiles, RenameFilesParams]
//	err := json.Unmarshal(data, &req)
//	errors.Is(err, jsonrpc.ErrMethodMismatch) // for any other method
//
// Responses carry a result or an error, never both:
//
//	resp := jsonrpc.NewResponse(jsonrpc.NumberID(0), struct{}{})
//	result, err := resp.Result() // err is a *jsonrpc.Error for error responses
//
// # Untyped Messages
//
// Message decodes an envelope before its method is known, for the transport
// to classify as a request, notification, or response. Response is the
// untyped response form; ResponseAs decodes its result once the caller knows
// which request it answers.
//
// # Routing
//
// Router maps method names to handlers:
//
//	rt := jsonrpc.NewRouter()
//	jsonrpc.HandleRequest[Shutdown](rt, func(ctx context.Context, _ struct{}) (any, error) {
//	    return nil, nil
//	})
//	resp := rt.Handle(ctx, msg)
//
// Handler errors that are *Error keep their code; other errors become
// CodeInternalError. Handler panics are recovered as CodeInternalError.
//
// # Error Codes
//
// The JSON-RPC codes are defined as constants:
//   - CodeParseError (-32700)
//   - CodeInvalidRequest (-32600)
//   - CodeMethodNotFound (-32601)
//   - CodeInvalidParams (-32602)
//   - CodeInternalError (-32603)
//
// along with the language server protocol's CodeServerNotInitialized,
// CodeRequestCancelled, CodeContentModified and friends.
package jsonrpc
