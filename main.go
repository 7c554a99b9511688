// Command wsbridge runs the messenger demo built on the WebSocket bridge.
//
// It supports three modes:
//  1. "serve" (default) – runs the demo server: WebSocket endpoint, REST
//     admin API, /mcp HTTP endpoint, static messenger page, and the tick
//     loop that drives the chat room
//  2. "client" – a terminal client that dials a server, performs the
//     handshake, and pipes stdin/stdout
//  3. "mcp" – an MCP stdio server proxying the REST API of a running server
//
// Flags control the listen address, connection limits, tick rate, and
// optional ngrok tunneling for easy external access during development.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/websocket"
	"github.com/joho/godotenv"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/urfave/cli/v3"
	"golang.ngrok.com/ngrok"
	ngrokConfig "golang.ngrok.com/ngrok/config"

	"github.com/yuunalein/wsbridge/api"
	"github.com/yuunalein/wsbridge/chat"
	"github.com/yuunalein/wsbridge/server"
	"github.com/yuunalein/wsbridge/tick"
	mcptransport "github.com/yuunalein/wsbridge/transport/mcp"
)

const (
	Version = "1.0.0"
	AppName = "wsbridge messenger"
)

func main() {
	// Load .env file if it exists (ignore error if not found)
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("Warning: Error loading .env file: %v", err)
	}

	cmd := &cli.Command{
		Name:           "wsbridge",
		Usage:          AppName,
		Version:        Version,
		DefaultCommand: "serve",
		Commands: []*cli.Command{
			serveCommand(),
			clientCommand(),
			mcpCommand(),
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the messenger demo server",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "addr",
				Value:   "localhost:8080",
				Usage:   "HTTP listen address",
				Sources: cli.EnvVars("WSBRIDGE_ADDR"),
			},
			&cli.IntFlag{
				Name:  "max-connections",
				Usage: "reject new connections beyond this count (0 = unlimited)",
			},
			&cli.DurationFlag{
				Name:  "handshake-timeout",
				Value: 10 * time.Second,
				Usage: "time a client has to send its auth message",
			},
			&cli.IntFlag{
				Name:  "queue-capacity",
				Usage: "bound the inbound event queue, dropping oldest (0 = unbounded)",
			},
			&cli.DurationFlag{
				Name:  "tick",
				Value: 50 * time.Millisecond,
				Usage: "poll interval of the chat room loop",
			},
			&cli.StringFlag{
				Name:  "static-dir",
				Value: "static",
				Usage: "directory with the demo page",
			},
			&cli.BoolFlag{
				Name:    "ngrok",
				Usage:   "expose the server through an ngrok tunnel",
				Sources: cli.EnvVars("NGROK_ENABLED"),
			},
			&cli.StringFlag{
				Name:    "ngrok-auth",
				Usage:   "ngrok auth token",
				Sources: cli.EnvVars("NGROK_AUTHTOKEN"),
			},
			&cli.StringFlag{
				Name:    "ngrok-domain",
				Usage:   "custom ngrok domain (optional)",
				Sources: cli.EnvVars("NGROK_DOMAIN"),
			},
		},
		Action: runServe,
	}
}

// runServe wires the bridge, the chat room, the HTTP surface, and the tick
// loop, then blocks until a shutdown signal arrives.
func runServe(ctx context.Context, cmd *cli.Command) error {
	ws := server.New(server.Config{
		MaxConnections:   int(cmd.Int("max-connections")),
		HandshakeTimeout: cmd.Duration("handshake-timeout"),
		QueueCapacity:    int(cmd.Int("queue-capacity")),
	})
	room := chat.NewRoom(ws)
	apiServer := api.NewServer(ws, room, cmd.String("static-dir"))

	addr := cmd.String("addr")

	// Bind before anything else runs so a taken port fails fast.
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to bind %s: %w", addr, err)
	}

	// Create MCP client for the /mcp endpoint
	mcpClient := mcptransport.NewClient(fmt.Sprintf("http://%s", addr))

	mainRouter := http.NewServeMux()
	mainRouter.Handle("/", apiServer)
	mainRouter.HandleFunc("/mcp", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != "POST" {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		body, err := io.ReadAll(r.Body)
		if err != nil {
			http.Error(w, "Failed to read request", http.StatusBadRequest)
			return
		}
		defer r.Body.Close()

		response := mcpClient.GetMCPServer().HandleMessage(r.Context(), body)

		w.Header().Set("Content-Type", "application/json")
		responseData, err := json.Marshal(response)
		if err != nil {
			http.Error(w, "Failed to marshal response", http.StatusInternalServerError)
			return
		}
		w.Write(responseData)
	})

	httpServer := &http.Server{
		Handler:     mainRouter,
		IdleTimeout: 60 * time.Second,
	}

	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	go func() {
		log.Printf("HTTP server listening on %s", addr)
		log.Printf("Messenger UI: http://%s/", addr)
		log.Printf("WebSocket: ws://%s/ws", addr)
		log.Printf("Admin API: http://%s/api", addr)
		log.Printf("MCP endpoint: http://%s/mcp", addr)

		if err := httpServer.Serve(ln); err != nil && err != http.ErrServerClosed {
			log.Fatalf("HTTP server failed: %v", err)
		}
	}()

	if cmd.Bool("ngrok") {
		go runNgrokTunnel(ctx, mainRouter, cmd.String("ngrok-auth"), cmd.String("ngrok-domain"))
	}

	runner := tick.NewRunner(cmd.Duration("tick"))
	runner.OnStartup(func(context.Context) error {
		log.Printf("Chat room running at %v per tick", cmd.Duration("tick"))
		return nil
	})
	runner.OnUpdate(room.Update)

	if err := runner.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	log.Println("Shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := ws.Shutdown(shutdownCtx); err != nil {
		log.Printf("Bridge shutdown error: %v", err)
	}
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
	}

	log.Println("Server stopped")
	return nil
}

// runNgrokTunnel serves the router through a public ngrok endpoint until
// the context is cancelled.
func runNgrokTunnel(ctx context.Context, handler http.Handler, authToken, domain string) {
	if authToken == "" {
		log.Println("WARNING: Ngrok enabled but no auth token provided (use --ngrok-auth or NGROK_AUTHTOKEN)")
		return
	}

	log.Println("Starting ngrok tunnel...")

	var tunnel ngrokConfig.Tunnel
	if domain != "" {
		tunnel = ngrokConfig.HTTPEndpoint(ngrokConfig.WithDomain(domain))
		log.Printf("Using custom ngrok domain: %s", domain)
	} else {
		tunnel = ngrokConfig.HTTPEndpoint()
	}

	tun, err := ngrok.Listen(ctx, tunnel, ngrok.WithAuthtoken(authToken))
	if err != nil {
		log.Printf("Failed to start ngrok tunnel: %v", err)
		return
	}
	defer func() {
		if err := tun.Close(); err != nil {
			log.Printf("Failed to close ngrok tunnel: %v", err)
		}
	}()

	log.Printf("Ngrok tunnel established: %s", tun.URL())

	if err := http.Serve(tun, handler); err != nil && err != http.ErrServerClosed {
		log.Printf("Ngrok server error: %v", err)
	}
	log.Println("Ngrok tunnel closed")
}

func clientCommand() *cli.Command {
	return &cli.Command{
		Name:  "client",
		Usage: "Connect to a messenger server from the terminal",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "url",
				Value: "ws://localhost:8080/ws",
				Usage: "WebSocket endpoint to dial",
			},
			&cli.StringFlag{
				Name:  "name",
				Value: "terminal",
				Usage: "display name sent during the handshake",
			},
		},
		Action: runClient,
	}
}

// runClient dials the server, performs the $$hello$$/$$auth$$ exchange, and
// then relays stdin lines up and received messages to stdout.
func runClient(ctx context.Context, cmd *cli.Command) error {
	url := cmd.String("url")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		return fmt.Errorf("failed to dial %s: %w", url, err)
	}
	defer conn.Close()

	_, greeting, err := conn.ReadMessage()
	if err != nil {
		return fmt.Errorf("failed to read greeting: %w", err)
	}
	if string(greeting) != server.HelloSentinel {
		return fmt.Errorf("unexpected greeting %q", greeting)
	}

	if err := conn.WriteMessage(websocket.TextMessage, []byte(server.AuthPrefix+cmd.String("name"))); err != nil {
		return fmt.Errorf("failed to send auth message: %w", err)
	}

	log.Printf("Connected to %s as %q", url, cmd.String("name"))

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				log.Printf("Connection closed: %v", err)
				return
			}
			fmt.Println(string(data))
		}
	}()

	input := make(chan string)
	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			input <- scanner.Text()
		}
		close(input)
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-done:
			return nil
		case line, ok := <-input:
			if !ok {
				conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				<-done
				return nil
			}
			if err := conn.WriteMessage(websocket.TextMessage, []byte(line)); err != nil {
				return fmt.Errorf("failed to send message: %w", err)
			}
		}
	}
}

func mcpCommand() *cli.Command {
	return &cli.Command{
		Name:  "mcp",
		Usage: "Run an MCP stdio server proxying a running demo server",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "api-url",
				Value: "http://localhost:8080",
				Usage: "base URL of the demo server's REST API",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			mcpClient := mcptransport.NewClient(cmd.String("api-url"))
			log.Println("MCP stdio server ready")
			return mcpserver.ServeStdio(mcpClient.GetMCPServer())
		},
	}
}
