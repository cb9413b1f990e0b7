package connect

import (
	"bufio"
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/GridProtectionAlliance/gsf-sub058/cmd/util"
	"github.com/GridProtectionAlliance/gsf-sub058/communication/common"
	"github.com/GridProtectionAlliance/gsf-sub058/communication/transport"
	"github.com/GridProtectionAlliance/gsf-sub058/communication/transport/factory"
	"github.com/VictoriaMetrics/metrics"
	"github.com/lni/dragonboat/v4/logger"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	log = logger.GetLogger("gsfclient")

	// ConnectCmd connects to a server and streams stdin to it
	ConnectCmd = &cobra.Command{
		Use:   "connect",
		Short: "Connect to a server, send stdin and print received data",
		Long: `Connect to a server using a connection string, e.g.

  gsfclient connect --connection-string "protocol=tcp; server=localhost:8888; payloadAware=true"

Every line read from stdin is sent as one payload. Received data is printed to
stdout, errors and the final status to stderr. The command stops on end of input,
on SIGINT/SIGTERM or when the connection is terminated.`,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return util.BindCommandFlags(cmd)
		},
		RunE: runConnect,
	}
)

func init() {
	cobra.OnInitialize(util.InitConfig)

	util.SetupClientFlags(ConnectCmd)
	util.SetupLogFlags(ConnectCmd)

	key := "hex"
	ConnectCmd.Flags().Bool(key, false, util.WrapString("Print received data as a hex dump instead of raw bytes"))

	key = "metrics-endpoint"
	ConnectCmd.Flags().String(key, "", util.WrapString("Serve Prometheus metrics of the client on this address, e.g. :9090 (empty = disabled)"))

	key = "trace"
	ConnectCmd.Flags().Bool(key, false, util.WrapString("Write structured traces of every socket operation to stderr"))
}

func runConnect(cmd *cobra.Command, _ []string) error {
	conf := util.GetClientConfig()
	if err := common.InitLoggers(conf.LogLevel); err != nil {
		return err
	}

	connectionString, err := util.EffectiveConnectionString(conf)
	if err != nil {
		return err
	}
	payloadAware, err := isPayloadAware(connectionString)
	if err != nil {
		return err
	}

	log.Infof("starting client with configuration:\n%s", conf)

	opts := factory.Options{Name: "gsfclient"}
	if viper.GetBool("trace") {
		opts.SLogger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}

	client, err := factory.CreateWithOptions(connectionString, opts)
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
		fmt.Fprint(os.Stderr, client.Status())
	}()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	terminated := make(chan struct{}, 1)
	subscribe(client, conf.HexOutput, terminated)

	if conf.MetricsEndpoint != "" {
		srv := serveMetrics(conf.MetricsEndpoint)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	if err := client.Connect(ctx); err != nil {
		return fmt.Errorf("could not connect to %s: %w", client.ServerURI(), err)
	}
	log.Infof("connected to %s", client.ServerURI())

	lines := readLines(os.Stdin)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-terminated:
			return errors.New("connection terminated")
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			if !payloadAware {
				line = append(line, '\n')
			}
			if err := client.Send(line); err != nil {
				return fmt.Errorf("send failed: %w", err)
			}
		}
	}
}

// isPayloadAware reports whether the connection string enables payload framing
func isPayloadAware(connectionString string) (bool, error) {
	settings, err := transport.ParseConnectionString(connectionString)
	if err != nil {
		return false, err
	}
	return settings.Bool("payloadAware", false)
}

// subscribe prints received data and errors of client
func subscribe(client transport.IClient, hexOutput bool, terminated chan<- struct{}) {
	client.Subscribe(transport.ReceiveDataComplete, func(n transport.Notification) {
		if hexOutput {
			fmt.Print(hex.Dump(n.Data))
			return
		}
		_, _ = os.Stdout.Write(n.Data)
	})

	for _, event := range []transport.Event{
		transport.ConnectionException,
		transport.SendDataException,
		transport.ReceiveDataException,
		transport.UnhandledUserException,
	} {
		client.Subscribe(event, func(n transport.Notification) {
			log.Warningf("%s: %v", n.Event, n.Err)
		})
	}

	client.Subscribe(transport.ConnectionTerminated, func(n transport.Notification) {
		select {
		case terminated <- struct{}{}:
		default:
		}
	})
}

// readLines streams the lines of f; the channel is closed on end of input
func readLines(f *os.File) <-chan []byte {
	lines := make(chan []byte)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(f)
		scanner.Buffer(make([]byte, 64*1024), 16*1024*1024)
		for scanner.Scan() {
			lines <- append([]byte(nil), scanner.Bytes()...)
		}
	}()
	return lines
}

// serveMetrics exposes the VictoriaMetrics default set on addr
func serveMetrics(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/metrics", func(w http.ResponseWriter, _ *http.Request) {
		metrics.WritePrometheus(w, true)
	})
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Errorf("metrics endpoint %s failed: %v", addr, err)
		}
	}()
	return srv
}
