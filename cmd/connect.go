package cmd

import (
	"bufio"
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"
	"github.com/vkviyu/wsbridge/recorder"
	"github.com/vkviyu/wsbridge/transport/client"
)

func (w *WsBridgeCmd) newConnectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "connect [url]",
		Short: "Upgrade to a websocket, send stdin lines as text frames and print received frames",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				w.config.Client.URL = args[0]
			}
			headers, _ := cmd.Flags().GetStringArray("header")
			for _, item := range headers {
				name, value, err := parseHeader(item)
				if err != nil {
					return err
				}
				if w.config.Client.Headers == nil {
					w.config.Client.Headers = make(map[string]string)
				}
				w.config.Client.Headers[name] = value
			}
			if err := w.config.Validate(); err != nil {
				return err
			}
			if w.config.Client.URL == "" {
				return errors.New("no url given")
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return w.connect(ctx, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
	flags := cmd.Flags()
	flags.Int("max-frame-size", client.DefaultMaxFrameSize, "largest accepted frame in bytes")
	flags.StringArrayP("header", "H", nil, "additional upgrade request header, format NAME=VALUE or \"NAME: VALUE\"")
	flags.Duration("handshake-timeout", client.DefaultHandshakeTimeout, "dial and upgrade timeout")
	flags.StringSlice("subprotocol", nil, "requested subprotocols")
	flags.String("record", "none", "record frames: none, bbolt or badger")
	flags.String("record-path", "", "recorder database path")
	w.viper.BindPFlag("client.max_frame_size", flags.Lookup("max-frame-size"))
	w.viper.BindPFlag("client.handshake_timeout", flags.Lookup("handshake-timeout"))
	w.viper.BindPFlag("client.subprotocols", flags.Lookup("subprotocol"))
	w.viper.BindPFlag("recorder.backend", flags.Lookup("record"))
	w.viper.BindPFlag("recorder.path", flags.Lookup("record-path"))
	return cmd
}

func parseHeader(item string) (string, string, error) {
	name, value, ok := strings.Cut(item, ":")
	if !ok {
		name, value, ok = strings.Cut(item, "=")
	}
	name = strings.TrimSpace(name)
	if !ok || name == "" {
		return "", "", fmt.Errorf("invalid header %q, expected NAME=VALUE", item)
	}
	return name, strings.TrimSpace(value), nil
}

func (w *WsBridgeCmd) connect(ctx context.Context, in io.Reader, out io.Writer) error {
	store, err := recorder.Open(recorder.Backend(w.config.Recorder.Backend), w.config.Recorder.Path)
	if err != nil {
		return err
	}
	if store != nil {
		defer store.Close()
	}
	cc := w.config.Client
	var handler client.Handler = &consoleHandler{in: in, out: out}
	handler = recorder.Wrap(handler, store)
	c, err := client.NewWebSocketClient(cc.URL, handler,
		client.WithMaxFrameSize(cc.MaxFrameSize),
		client.WithHeader(cc.HeaderValues()),
		client.WithHandshakeTimeout(cc.HandshakeTimeout),
		client.WithSubprotocols(cc.Subprotocols...),
		client.WithLogger(w.logger),
	)
	if err != nil {
		return err
	}
	err = c.Run(ctx)
	var declined *client.UpgradeDeclinedError
	if errors.As(err, &declined) {
		return fmt.Errorf("server at %s does not accept websocket upgrades: %w", cc.URL, err)
	}
	return err
}

// consoleHandler sends each input line as a text frame and prints every
// received frame. End of input starts the closing handshake.
type consoleHandler struct {
	in  io.Reader
	out io.Writer
}

func (h *consoleHandler) Handle(ctx context.Context, s *client.Session, hctx *client.HandlerContext) error {
	hctx.Logger.WithField("session", s.ID()).Info("connected")
	go func() {
		scanner := bufio.NewScanner(h.in)
		scanner.Buffer(make([]byte, 0, 4096), s.MaxFrameSize())
		for scanner.Scan() {
			if err := s.WriteMessage(client.TextMessage, scanner.Bytes()); err != nil {
				return
			}
		}
		s.WriteClose(websocket.CloseNormalClosure, "")
	}()
	for {
		mt, data, err := s.ReadMessage()
		if err != nil {
			if errors.Is(err, io.EOF) || ctx.Err() != nil {
				return nil
			}
			return err
		}
		if mt == client.BinaryMessage {
			fmt.Fprintf(h.out, "< [%d bytes] %s\n", len(data), hex.EncodeToString(data))
			continue
		}
		fmt.Fprintf(h.out, "< %s\n", data)
	}
}
