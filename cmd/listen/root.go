package listen

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/GridProtectionAlliance/gsf-sub058/cmd/util"
	"github.com/GridProtectionAlliance/gsf-sub058/communication/common"
	"github.com/GridProtectionAlliance/gsf-sub058/communication/transport/payload"
	"github.com/lni/dragonboat/v4/logger"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	log = logger.GetLogger("gsfclient")

	// ListenCmd runs a TCP peer for the connect command
	ListenCmd = &cobra.Command{
		Use:   "listen",
		Short: "Accept TCP connections and print what clients send",
		Long: `Accept TCP connections and print what clients send, e.g.

  gsfclient listen --endpoint :8888 --payload-aware --echo

With --payload-aware the stream is decoded into marker and length framed
payloads; with --echo everything received is sent back to the client (framed
again when payload aware).`,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return util.BindCommandFlags(cmd)
		},
		RunE: runListen,
	}
)

func init() {
	cobra.OnInitialize(util.InitConfig)

	util.SetupLogFlags(ListenCmd)

	key := "endpoint"
	ListenCmd.Flags().String(key, ":8888", util.WrapString("Address to listen on"))

	key = "payload-aware"
	ListenCmd.Flags().Bool(key, false, util.WrapString("Decode received data as framed payloads"))

	key = "echo"
	ListenCmd.Flags().Bool(key, false, util.WrapString("Send received data back to the client"))
}

func runListen(cmd *cobra.Command, _ []string) error {
	conf := &common.ListenerConfig{
		Endpoint:     viper.GetString("endpoint"),
		PayloadAware: viper.GetBool("payload-aware"),
		Echo:         viper.GetBool("echo"),
		LogLevel:     viper.GetString("log-level"),
	}
	if err := common.InitLoggers(conf.LogLevel); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	lc := net.ListenConfig{}
	l, err := lc.Listen(ctx, "tcp", conf.Endpoint)
	if err != nil {
		return err
	}
	log.Infof("listening on %s with configuration:\n%s", l.Addr(), conf)

	return serve(ctx, l, conf, os.Stdout)
}

// serve accepts connections on l until ctx is done
func serve(ctx context.Context, l net.Listener, conf *common.ListenerConfig, out io.Writer) error {
	var wg sync.WaitGroup
	var outMu sync.Mutex
	conns := make(map[net.Conn]struct{})
	var connsMu sync.Mutex

	go func() {
		<-ctx.Done()
		_ = l.Close()
		connsMu.Lock()
		for conn := range conns {
			_ = conn.Close()
		}
		connsMu.Unlock()
	}()

	for {
		conn, err := l.Accept()
		if err != nil {
			wg.Wait()
			if ctx.Err() != nil {
				return nil
			}
			return err
		}

		connsMu.Lock()
		conns[conn] = struct{}{}
		connsMu.Unlock()
		if ctx.Err() != nil {
			// accepted while shutting down
			_ = conn.Close()
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			defer func() {
				connsMu.Lock()
				delete(conns, conn)
				connsMu.Unlock()
				_ = conn.Close()
			}()

			log.Infof("client %s connected", conn.RemoteAddr())
			h := &handler{conn: conn, conf: conf, out: out, outMu: &outMu}
			if err := h.run(); err != nil && !errors.Is(err, net.ErrClosed) {
				log.Warningf("client %s failed: %v", conn.RemoteAddr(), err)
			}
			log.Infof("client %s disconnected", conn.RemoteAddr())
		}()
	}
}

// handler reads one client connection
type handler struct {
	conn  net.Conn
	conf  *common.ListenerConfig
	out   io.Writer
	outMu *sync.Mutex
	codec *payload.Codec
}

func (h *handler) run() error {
	if h.conf.PayloadAware {
		h.codec = payload.NewCodec()
		return h.runFramed()
	}

	buf := make([]byte, 32*1024)
	for {
		n, err := h.conn.Read(buf)
		if n > 0 {
			if werr := h.emit(buf[:n]); werr != nil {
				return werr
			}
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
	}
}

func (h *handler) runFramed() error {
	dec := payload.NewDecoder(h.codec)
	for {
		n, err := h.conn.Read(dec.Target())
		if n > 0 {
			frame, derr := dec.Advance(n)
			var desync *payload.DesyncError
			if errors.As(derr, &desync) {
				log.Warningf("client %s: stream out of sync, skipped %d bytes", h.conn.RemoteAddr(), desync.Skipped)
			}
			if frame != nil {
				if werr := h.emit(frame); werr != nil {
					return werr
				}
			}
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
	}
}

// emit prints data and echoes it when configured
func (h *handler) emit(data []byte) error {
	h.outMu.Lock()
	if h.conf.PayloadAware {
		_, _ = fmt.Fprintf(h.out, "[%s] %d bytes: %s\n", h.conn.RemoteAddr(), len(data), data)
	} else {
		_, _ = h.out.Write(data)
	}
	h.outMu.Unlock()

	if !h.conf.Echo {
		return nil
	}
	if h.conf.PayloadAware {
		data = h.codec.AddHeader(data)
	}
	_, err := h.conn.Write(data)
	return err
}
