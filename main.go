// Command mazed hosts maze levels over a line protocol.
//
// Subcommands:
//  1. "serve" – runs the TCP game server plus the HTTP admin server (REST API,
//     WebSocket play and events, /metrics and an /mcp endpoint)
//  2. "levels list|validate|analyze" – inspects level definition files
//  3. "mcp" – runs an MCP stdio server, spinning up an internal HTTP API if none is available
//  4. "play" and "solve" – protocol clients for a running server
//
// Flags read their defaults from MAZED_* environment variables; a .env file
// in the working directory is loaded first. ngrok can expose the HTTP server
// publicly during development.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/mark3labs/mcp-go/server"
	"github.com/rs/zerolog"
	"github.com/urfave/cli/v3"
	"golang.ngrok.com/ngrok"
	ngrokConfig "golang.ngrok.com/ngrok/config"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/wricardo/mazed/api"
	"github.com/wricardo/mazed/game/config"
	"github.com/wricardo/mazed/game/levels"
	"github.com/wricardo/mazed/game/protocol"
	"github.com/wricardo/mazed/game/registry"
	"github.com/wricardo/mazed/game/service"
	"github.com/wricardo/mazed/game/session"
	xlog "github.com/wricardo/mazed/internal/log"
	"github.com/wricardo/mazed/transport/mcp"
	"github.com/wricardo/mazed/transport/tcp"
	"github.com/wricardo/mazed/transport/websocket"
)

// Version information
const (
	Version = "1.0.0"
	AppName = "mazed"
)

const shutdownTimeout = 10 * time.Second

// main loads .env, builds the command tree and runs it until a signal arrives.
func main() {
	// Load .env file if it exists (ignore error if not found)
	envErr := godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app := newApp(os.Stdin, os.Stdout)
	app.Before = func(ctx context.Context, cmd *cli.Command) (context.Context, error) {
		xlog.Configure(xlog.Config{
			Level:  cmd.String("log-level"),
			Pretty: cmd.Bool("pretty"),
		})
		if envErr != nil && !errors.Is(envErr, os.ErrNotExist) {
			logger := xlog.Base()
			logger.Warn().Err(envErr).Msg("failed to load .env file")
		}
		return ctx, nil
	}

	if err := app.Run(ctx, os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", AppName, err)
		os.Exit(1)
	}
}

// newApp builds the command tree. Input and output are parameters so the
// client commands can be exercised in tests.
func newApp(in io.Reader, out io.Writer) *cli.Command {
	return &cli.Command{
		Name:      AppName,
		Usage:     "host maze levels over a line protocol",
		Version:   Version,
		Writer:    out,
		ErrWriter: os.Stderr,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Value:   "info",
				Usage:   "log level (debug, info, warn, error)",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
			&cli.BoolFlag{
				Name:    "pretty",
				Usage:   "human-readable logs instead of JSON",
				Sources: cli.EnvVars("MAZED_LOG_PRETTY"),
			},
		},
		Commands: []*cli.Command{
			serveCommand(),
			levelsCommand(out),
			mcpCommand(),
			playCommand(in, out),
			solveCommand(out),
			{
				Name:  "version",
				Usage: "print the version",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					fmt.Fprintf(out, "%s v%s\n", AppName, Version)
					return nil
				},
			},
		},
	}
}

func levelsDirFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "levels-dir",
		Value:   "levels",
		Usage:   "directory of level definition files (*.yaml, *.yml, *.json); empty for the built-in level only",
		Sources: cli.EnvVars("MAZED_LEVELS_DIR"),
	}
}

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "run the game server",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "addr",
				Value:   ":4000",
				Usage:   "TCP address for the line protocol",
				Sources: cli.EnvVars("MAZED_ADDR"),
			},
			&cli.StringFlag{
				Name:    "http-addr",
				Value:   ":8080",
				Usage:   "HTTP address for the admin API and websockets; empty disables it",
				Sources: cli.EnvVars("MAZED_HTTP_ADDR"),
			},
			levelsDirFlag(),
			&cli.StringFlag{
				Name:    "history-dir",
				Usage:   "directory for records of ended sessions; empty disables history",
				Sources: cli.EnvVars("MAZED_HISTORY_DIR"),
			},
			&cli.DurationFlag{
				Name:    "history-retention",
				Value:   24 * time.Hour,
				Usage:   "how long ended-session records are kept",
				Sources: cli.EnvVars("MAZED_HISTORY_RETENTION"),
			},
			&cli.FloatFlag{
				Name:    "rate",
				Usage:   "commands per second allowed per connection; 0 disables the limit",
				Sources: cli.EnvVars("MAZED_RATE"),
			},
			&cli.IntFlag{
				Name:    "burst",
				Value:   10,
				Usage:   "command burst allowed per connection",
				Sources: cli.EnvVars("MAZED_BURST"),
			},
			&cli.BoolFlag{
				Name:    "ngrok",
				Usage:   "expose the HTTP server through an ngrok tunnel",
				Sources: cli.EnvVars("NGROK_ENABLED"),
			},
			&cli.StringFlag{
				Name:    "ngrok-auth",
				Usage:   "ngrok auth token",
				Sources: cli.EnvVars("NGROK_AUTHTOKEN", "NGROK_AUTH_TOKEN"),
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

// runtime holds the components shared by serve and the internal MCP server.
type runtime struct {
	registry *registry.Registry
	host     *session.Host
	hub      *websocket.Hub
	admin    service.AdminService
	recorder session.Recorder
}

// newRuntime loads the levels, seals the registry and creates the session host.
func newRuntime(levelsDir, historyDir string) (*runtime, error) {
	reg := registry.New()
	if levelsDir == "" {
		reg.MustRegister(levels.BlindDescriptor(xlog.WithComponent("level")))
	} else {
		manager, err := config.NewManager(levelsDir, xlog.WithComponent("config"))
		if err != nil {
			return nil, fmt.Errorf("failed to create level manager: %w", err)
		}
		if err := manager.Populate(reg); err != nil {
			return nil, fmt.Errorf("failed to register levels: %w", err)
		}
	}
	reg.Seal()

	rt := &runtime{
		registry: reg,
		hub:      websocket.NewHub(xlog.WithComponent("events")),
	}

	opts := []session.Option{
		session.WithLogger(xlog.WithComponent("session")),
		session.WithObserver(rt.hub.Publish),
	}
	if historyDir != "" {
		rec, err := session.NewFileRecorder(historyDir)
		if err != nil {
			return nil, err
		}
		rt.recorder = rec
		opts = append(opts, session.WithRecorder(rec))
	}

	rt.host = session.NewHost(reg, opts...)
	rt.admin = service.NewAdminService(reg, rt.host)
	return rt, nil
}

// runServe starts every server and blocks until ctx is cancelled or one of
// them fails.
func runServe(ctx context.Context, cmd *cli.Command) error {
	logger := xlog.WithComponent("serve")

	rt, err := newRuntime(cmd.String("levels-dir"), cmd.String("history-dir"))
	if err != nil {
		return err
	}
	for _, d := range rt.registry.Descriptors() {
		logger.Info().
			Str(xlog.FieldLevel, d.Code).
			Int("max_connections", d.MaxConnections).
			Dur("max_duration", d.MaxDuration).
			Msg("level available")
	}

	driverOpts := []protocol.DriverOption{protocol.WithDriverLogger(xlog.WithComponent("protocol"))}
	if r := cmd.Float("rate"); r > 0 {
		driverOpts = append(driverOpts, protocol.WithRateLimit(rate.Limit(r), int(cmd.Int("burst"))))
	}
	driver := protocol.NewDriver(rt.host, driverOpts...)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		rt.hub.Run(gctx)
		return nil
	})

	tcpServer := &tcp.Server{
		Addr:   cmd.String("addr"),
		Driver: driver,
		Logger: xlog.WithComponent("tcp"),
	}
	g.Go(func() error { return tcpServer.ListenAndServe(gctx) })

	if httpAddr := cmd.String("http-addr"); httpAddr != "" {
		handler := api.NewServer(rt.admin,
			api.WithHub(rt.hub),
			api.WithPlay(websocket.NewPlayHandler(gctx, driver, xlog.WithComponent("websocket"))),
			api.WithMCP(mcp.NewClient(localURL(httpAddr)).Handler()),
			api.WithLogger(xlog.WithComponent("http")),
		)
		httpServer := &http.Server{
			Addr:        httpAddr,
			Handler:     handler,
			ReadTimeout: 15 * time.Second,
			IdleTimeout: 60 * time.Second,
		}

		g.Go(func() error {
			logger.Info().
				Str("addr", httpAddr).
				Str("api", localURL(httpAddr)+"/api").
				Str("mcp", localURL(httpAddr)+"/mcp").
				Msg("http server listening")
			if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("http server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			return httpServer.Shutdown(shutdownCtx)
		})

		if cmd.Bool("ngrok") {
			g.Go(func() error {
				runNgrok(gctx, logger, handler, cmd.String("ngrok-auth"), cmd.String("ngrok-domain"))
				return nil
			})
		}
	}

	if rt.recorder != nil {
		g.Go(func() error {
			historyPruneRoutine(gctx, logger, rt.recorder, cmd.Duration("history-retention"))
			return nil
		})
	}

	err = g.Wait()
	rt.host.Shutdown()
	logger.Info().Msg("server stopped")
	return err
}

// runNgrok serves handler through an ngrok tunnel until ctx is cancelled.
// Tunnel failures are logged and do not stop the server.
func runNgrok(ctx context.Context, logger zerolog.Logger, handler http.Handler, authToken, domain string) {
	if authToken == "" {
		logger.Warn().Msg("ngrok enabled but no auth token provided (use --ngrok-auth, NGROK_AUTHTOKEN, or NGROK_AUTH_TOKEN)")
		return
	}

	var tunnel ngrokConfig.Tunnel
	if domain != "" {
		tunnel = ngrokConfig.HTTPEndpoint(ngrokConfig.WithDomain(domain))
	} else {
		tunnel = ngrokConfig.HTTPEndpoint()
	}

	tun, err := ngrok.Listen(ctx, tunnel, ngrok.WithAuthtoken(authToken))
	if err != nil {
		logger.Error().Err(err).Msg("failed to start ngrok tunnel")
		return
	}
	stop := context.AfterFunc(ctx, func() { tun.Close() })
	defer stop()

	url := tun.URL()
	logger.Info().Str("url", url).Str("mcp", url+"/mcp").Msg("ngrok tunnel established")

	if err := http.Serve(tun, handler); err != nil && ctx.Err() == nil {
		logger.Error().Err(err).Msg("ngrok server error")
	}
	logger.Info().Msg("ngrok tunnel closed")
}

// historyPruneRoutine periodically removes records of sessions that ended
// longer than retention ago.
func historyPruneRoutine(ctx context.Context, logger zerolog.Logger, rec session.Recorder, retention time.Duration) {
	if retention <= 0 {
		return
	}
	interval := retention / 24
	if interval < time.Minute {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		removed, err := session.PruneHistory(rec, time.Now().Add(-retention))
		if err != nil {
			logger.Warn().Err(err).Msg("failed to prune session history")
		} else if removed > 0 {
			logger.Info().Int("removed", removed).Msg("pruned session history")
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// localURL turns a listen address into a URL reachable from this host.
func localURL(addr string) string {
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return "http://" + addr
	}
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "127.0.0.1"
	}
	return "http://" + net.JoinHostPort(host, port)
}

func levelsCommand(out io.Writer) *cli.Command {
	return &cli.Command{
		Name:  "levels",
		Usage: "inspect level definitions",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "list the levels a server would host",
				Flags: []cli.Flag{levelsDirFlag()},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					rt, err := newRuntime(cmd.String("levels-dir"), "")
					if err != nil {
						return err
					}
					defer rt.host.Shutdown()

					infos, err := rt.admin.ListLevels(ctx)
					if err != nil {
						return err
					}
					for _, l := range infos {
						fmt.Fprintf(out, "%-16s %-24s max_connections=%d max_duration=%ds map=%t\n",
							l.Code, l.Name, l.MaxConnections, l.MaxDuration, l.Probe)
					}
					return nil
				},
			},
			{
				Name:      "validate",
				Usage:     "validate every level definition in a directory",
				ArgsUsage: "[dir]",
				Flags:     []cli.Flag{levelsDirFlag()},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					dir := cmd.Args().First()
					if dir == "" {
						dir = cmd.String("levels-dir")
					}
					return validateLevels(out, dir)
				},
			},
			{
				Name:      "analyze",
				Usage:     "print size, open cells and shortest solution of every grid level",
				ArgsUsage: "[dir]",
				Flags:     []cli.Flag{levelsDirFlag()},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					dir := cmd.Args().First()
					if dir == "" {
						dir = cmd.String("levels-dir")
					}
					return analyzeLevels(out, dir)
				},
			},
		},
	}
}

// analyzeLevels summarizes the grid levels defined in dir.
func analyzeLevels(out io.Writer, dir string) error {
	manager, err := config.NewManager(dir, xlog.WithComponent("config"))
	if err != nil {
		return err
	}
	files, err := manager.LoadAll()
	if err != nil {
		return err
	}

	for _, lf := range files {
		if lf.Kind != config.KindGrid {
			fmt.Fprintf(out, "%s: kind %s has no layout\n", lf.Code, lf.Kind)
			continue
		}
		open := 0
		for _, row := range lf.Layout {
			open += len(row) - strings.Count(row, "#")
		}
		width, height := len(lf.Layout[0]), len(lf.Layout)
		path, _ := levels.ShortestPath(lf.Layout)
		fmt.Fprintf(out, "%s: %dx%d, %d open cells (%.0f%%), shortest solution %d moves: %s\n",
			lf.Code, width, height, open, 100*float64(open)/float64(width*height), len(path), path)
	}
	return nil
}

// validateLevels prints one line per definition file and fails if any is
// invalid.
func validateLevels(out io.Writer, dir string) error {
	results, err := config.ValidateDir(dir)
	if err != nil {
		return err
	}

	invalid := 0
	for _, r := range results {
		if r.Err != nil {
			invalid++
			fmt.Fprintf(out, "INVALID %s: %v\n", r.File, r.Err)
			continue
		}
		fmt.Fprintf(out, "ok      %s (%s)\n", r.File, r.Code)
	}

	if invalid > 0 {
		return fmt.Errorf("%d of %d level files are invalid", invalid, len(results))
	}
	fmt.Fprintf(out, "%d level files are valid\n", len(results))
	return nil
}

func mcpCommand() *cli.Command {
	return &cli.Command{
		Name:  "mcp",
		Usage: "run an MCP stdio server for operating mazed",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "api-url",
				Value:   "http://localhost:8080",
				Usage:   "admin API of a running server",
				Sources: cli.EnvVars("MAZED_API_URL"),
			},
			levelsDirFlag(),
		},
		Action: runStdioMCP,
	}
}

// runStdioMCP runs an MCP stdio server. It reuses a running admin API when
// one answers at --api-url; otherwise it starts an internal one on a
// random loopback port.
func runStdioMCP(ctx context.Context, cmd *cli.Command) error {
	logger := xlog.WithComponent("mcp")
	baseURL := cmd.String("api-url")

	probe := &http.Client{Timeout: 2 * time.Second}
	resp, err := probe.Get(baseURL + "/healthz")
	if err == nil && resp.StatusCode < 500 {
		resp.Body.Close()
		logger.Info().Str("url", baseURL).Msg("using external admin API")
	} else {
		if err == nil {
			resp.Body.Close()
		}
		rt, err := newRuntime(cmd.String("levels-dir"), "")
		if err != nil {
			return err
		}
		defer rt.host.Shutdown()

		listener, err := net.Listen("tcp", "127.0.0.1:0")
		if err != nil {
			return fmt.Errorf("failed to get available port: %w", err)
		}
		httpServer := &http.Server{Handler: api.NewServer(rt.admin)}
		go httpServer.Serve(listener)
		defer httpServer.Close()

		baseURL = "http://" + listener.Addr().String()
		logger.Info().Str("url", baseURL).Msg("started internal admin API")
	}

	if err := server.ServeStdio(mcp.NewClient(baseURL).GetMCPServer()); err != nil {
		return fmt.Errorf("mcp stdio server: %w", err)
	}
	return nil
}
