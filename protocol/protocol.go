// Package protocol declares the language server protocol methods this module
// needs to drive a session: the lifecycle methods and a few window methods.
// Other methods are declared by the application the same way.
package protocol

import (
	"encoding/json"

	"github.com/mnehpets/lspwire/jsonrpc"
)

type Initialize struct{}

func (Initialize) Name() string { return "initialize" }

type Initialized struct{}

func (Initialized) Name() string { return "initialized" }

type Shutdown struct{}

func (Shutdown) Name() string { return "shutdown" }

type Exit struct{}

func (Exit) Name() string { return "exit" }

type CancelRequest struct{}

func (CancelRequest) Name() string { return "$/cancelRequest" }

type LogMessage struct{}

func (LogMessage) Name() string { return "window/logMessage" }

type ShowMessageRequest struct{}

func (ShowMessageRequest) Name() string { return "window/showMessageRequest" }

type ClientInfo struct {
	Name    string `json:"name"`
	Version string `json:"version,omitempty"`
}

type ServerInfo struct {
	Name    string `json:"name"`
	Version string `json:"version,omitempty"`
}

// InitializeParams keeps client capabilities undecoded; servers pick out
// what they care about.
type InitializeParams struct {
	ProcessID    *int            `json:"processId"`
	ClientInfo   *ClientInfo     `json:"clientInfo,omitempty"`
	RootURI      *string         `json:"rootUri,omitempty"`
	Capabilities json.RawMessage `json:"capabilities,omitempty"`
}

type InitializeResult struct {
	Capabilities map[string]any `json:"capabilities"`
	ServerInfo   *ServerInfo    `json:"serverInfo,omitempty"`
}

type InitializedParams struct{}

type CancelParams struct {
	ID jsonrpc.ID `json:"id"`
}

type MessageType int

const (
	MessageTypeError   MessageType = 1
	MessageTypeWarning MessageType = 2
	MessageTypeInfo    MessageType = 3
	MessageTypeLog     MessageType = 4
)

type LogMessageParams struct {
	Type    MessageType `json:"type"`
	Message string      `json:"message"`
}

type MessageActionItem struct {
	Title string `json:"title"`
}

type ShowMessageRequestParams struct {
	Type    MessageType         `json:"type"`
	Message string              `json:"message"`
	Actions []MessageActionItem `json:"actions,omitempty"`
}
