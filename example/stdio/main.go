// Command stdio is a minimal language server speaking the base protocol on
// stdin and stdout. Logs go to stderr.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"

	"github.com/mnehpets/lspwire/config"
	"github.com/mnehpets/lspwire/jsonrpc"
	"github.com/mnehpets/lspwire/protocol"
	"github.com/mnehpets/lspwire/service"
	"github.com/mnehpets/lspwire/transport"
)

type hover struct{}

func (hover) Name() string { return "textDocument/hover" }

type hoverParams struct {
	TextDocument struct {
		URI string `json:"uri"`
	} `json:"textDocument"`
	Position struct {
		Line      int `json:"line"`
		Character int `json:"character"`
	} `json:"position"`
}

type markupContent struct {
	Kind  string `json:"kind"`
	Value string `json:"value"`
}

type hoverResult struct {
	Contents markupContent `json:"contents"`
}

func main() {
	os.Exit(run())
}

func run() int {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("configuration", "error", err)
		return 2
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.LogLevel}))
	slog.SetDefault(logger)

	codec, err := transport.CodecByName(cfg.Codec)
	if err != nil {
		logger.Error("configuration", "error", err)
		return 2
	}

	state := service.NewServerState()
	client, socket := service.NewClient(state,
		service.WithQueueSize(cfg.QueueSize),
		service.WithLogger(logger),
	)
	defer client.Close()

	rt := jsonrpc.NewRouter(jsonrpc.WithLogger(logger))
	jsonrpc.HandleRequest[protocol.Initialize](rt, func(ctx context.Context, p protocol.InitializeParams) (protocol.InitializeResult, error) {
		if p.ClientInfo != nil {
			logger.Info("client connected", "name", p.ClientInfo.Name, "version", p.ClientInfo.Version)
		}
		return protocol.InitializeResult{
			Capabilities: map[string]any{"hoverProvider": true},
			ServerInfo:   &protocol.ServerInfo{Name: "lspwire-stdio", Version: "0.1.0"},
		}, nil
	})
	jsonrpc.HandleNotification[protocol.Initialized](rt, func(ctx context.Context, _ protocol.InitializedParams) {
		if err := client.LogMessage(ctx, protocol.MessageTypeInfo, "server initialized!"); err != nil {
			logger.Warn("log message", "error", err)
		}
	})
	jsonrpc.HandleRequest[hover](rt, func(ctx context.Context, p hoverParams) (*hoverResult, error) {
		name := p.TextDocument.URI[strings.LastIndex(p.TextDocument.URI, "/")+1:]
		return &hoverResult{Contents: markupContent{
			Kind:  "markdown",
			Value: "**" + name + "** line " + strconv.Itoa(p.Position.Line+1),
		}}, nil
	})
	jsonrpc.HandleRequest[protocol.Shutdown](rt, func(ctx context.Context, _ struct{}) (any, error) {
		return nil, nil
	})
	jsonrpc.HandleNotification[protocol.Exit](rt, func(ctx context.Context, _ struct{}) {})
	jsonrpc.HandleNotification[protocol.CancelRequest](rt, func(ctx context.Context, p protocol.CancelParams) {
		logger.Debug("cancel requested", "id", p.ID.String())
	})

	lc := service.NewLifecycle(state, rt, service.WithLifecycleLogger(logger))
	srv := transport.NewServer(os.Stdin, os.Stdout,
		transport.WithCodec(codec),
		transport.WithMaxFrameBytes(cfg.MaxFrameBytes),
		transport.WithLogger(logger),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	logger.Info("serving on stdio", "codec", codec.Name())
	if err := srv.Serve(ctx, lc, socket); err != nil {
		logger.Error("serve", "error", err)
		return 1
	}
	return lc.ExitCode()
}
