package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	wsocket "github.com/yukibtc/async-wsocket"
	"github.com/yukibtc/async-wsocket/wserr"
	"github.com/yukibtc/async-wsocket/wslog"
)

var (
	flagProxy     string
	flagTrust     string
	flagTimeout   time.Duration
	flagProtocols []string
	flagConfig    string
	flagVerbose   bool
	flagNoColor   bool
)

var (
	colorIn    = color.New(color.FgGreen).SprintFunc()
	colorOut   = color.New(color.FgCyan).SprintFunc()
	colorCtrl  = color.New(color.FgYellow).SprintFunc()
	colorError = color.New(color.FgRed).SprintFunc()
)

var rootCmd = &cobra.Command{
	Use:   "wscat <url>",
	Short: "Interactive WebSocket client",
	Long: `wscat connects to a ws:// or wss:// endpoint and bridges it to the
terminal: stdin lines go out as text messages, inbound frames are
printed as they arrive.

Examples:
  wscat ws://localhost:8080/chat
  wscat --proxy 127.0.0.1:9050 wss://relay.example.com
  wscat --trust bundled --timeout 5s wss://relay.example.com`,
	Args: cobra.ExactArgs(1),
	RunE: runWscat,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, colorError("error:"), err)
		if wserr.IsRetryable(err) {
			fmt.Fprintln(os.Stderr, "the failure looks transient; retrying may succeed")
		}
		os.Exit(1)
	}
}

func init() {
	rootCmd.Flags().StringVarP(&flagProxy, "proxy", "x", "", "SOCKS5 proxy address (host:port)")
	rootCmd.Flags().StringVar(&flagTrust, "trust", "", "TLS trust roots: platform or bundled")
	rootCmd.Flags().DurationVarP(&flagTimeout, "timeout", "t", 0, "Connection timeout (e.g. 5s)")
	rootCmd.Flags().StringSliceVarP(&flagProtocols, "subprotocol", "p", nil, "Subprotocol to offer (repeatable)")
	rootCmd.Flags().StringVarP(&flagConfig, "config", "c", "", "Config file path")
	rootCmd.Flags().BoolVarP(&flagVerbose, "verbose", "v", false, "Debug logging")
	rootCmd.Flags().BoolVar(&flagNoColor, "no-color", false, "Disable colored output")
}

func runWscat(cmd *cobra.Command, args []string) error {
	cmd.SilenceUsage = true
	color.NoColor = color.NoColor || flagNoColor

	cfg, err := loadConfig(flagConfig)
	if err != nil {
		return err
	}

	opts, err := buildOptions(cfg)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	url := args[0]
	sess, err := wsocket.Connect(ctx, url, opts)
	if err != nil {
		return err
	}
	fmt.Printf("%s %s\n", colorCtrl("connected:"), url)
	if sp := sess.Subprotocol(); sp != "" {
		fmt.Printf("%s %s\n", colorCtrl("subprotocol:"), sp)
	}

	g, gctx := errgroup.WithContext(ctx)

	// Inbound: print every frame until the stream ends.
	g.Go(func() error {
		for {
			msg, err := sess.Recv(gctx)
			if err != nil {
				if wserr.Is(err, wserr.ErrStreamClosed) || gctx.Err() != nil {
					return nil
				}
				return err
			}
			printInbound(msg)
		}
	})

	// Outbound: one text message per stdin line.
	g.Go(func() error {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			line := scanner.Text()
			if err := sess.Send(gctx, wsocket.Text(line)); err != nil {
				if wserr.Is(err, wserr.ErrStreamClosed) {
					return nil
				}
				return err
			}
			fmt.Printf("%s %s\n", colorOut(">"), line)
		}
		// stdin closed: start the close handshake.
		sess.Close(wsocket.CloseNormalClosure, "stdin closed")
		return scanner.Err()
	})

	err = g.Wait()
	sess.Close(wsocket.CloseNormalClosure, "")
	fmt.Printf("%s state=%s\n", colorCtrl("disconnected:"), sess.State())
	return err
}

func buildOptions(cfg *Config) (*wsocket.Options, error) {
	opts := &wsocket.Options{
		ConnectTimeout: cfg.ConnectTimeout,
		Subprotocols:   cfg.Subprotocols,
		Logger:         buildLogger(cfg),
	}

	proxyAddr := flagProxy
	if proxyAddr == "" && cfg.Proxy.Host != "" {
		proxyAddr = fmt.Sprintf("%s:%d", cfg.Proxy.Host, cfg.Proxy.Port)
	}
	if proxyAddr != "" {
		proxy, err := parseProxy(proxyAddr)
		if err != nil {
			return nil, err
		}
		opts.Proxy = proxy
	}

	trust := flagTrust
	if trust == "" {
		trust = cfg.TLS.Trust
	}
	switch trust {
	case "", "platform":
		opts.TLSTrust = wsocket.PlatformRoots
	case "bundled":
		opts.TLSTrust = wsocket.BundledRoots
	default:
		return nil, wserr.Newf(wserr.CodeInternal, "unknown trust policy %q (want platform or bundled)", trust)
	}

	if flagTimeout > 0 {
		opts.ConnectTimeout = flagTimeout
	}
	if len(flagProtocols) > 0 {
		opts.Subprotocols = flagProtocols
	}
	return opts, nil
}

func buildLogger(cfg *Config) wslog.Logger {
	l := logrus.New()
	l.SetOutput(os.Stderr)
	l.SetLevel(logrus.WarnLevel)
	if flagVerbose {
		l.SetLevel(logrus.DebugLevel)
	} else if lvl, err := logrus.ParseLevel(cfg.Log.Level); err == nil && cfg.Log.Level != "" {
		l.SetLevel(lvl)
	}
	return wslog.NewLogrusLogger(l)
}

func printInbound(msg wsocket.Message) {
	switch msg.Type {
	case wsocket.TextMessage:
		fmt.Printf("%s %s\n", colorIn("<"), string(msg.Data))
	case wsocket.BinaryMessage:
		fmt.Printf("%s %d bytes: %x\n", colorIn("< binary"), len(msg.Data), msg.Data)
	case wsocket.CloseMessage:
		fmt.Printf("%s code=%d reason=%q\n", colorCtrl("< close"), msg.Code, msg.Reason)
	default:
		fmt.Printf("%s %x\n", colorCtrl("< "+msg.Type.String()), msg.Data)
	}
}
