package util

import (
	"strconv"
	"strings"

	"github.com/GridProtectionAlliance/gsf-sub058/communication/common"
	"github.com/GridProtectionAlliance/gsf-sub058/communication/transport"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	// Wrap is the number of characters to Wrap the help text at
	Wrap int = 50

	// EnvPrefix is the prefix of environment variables read by the commands
	EnvPrefix = "gsf"
)

// WrapString wraps a string at Wrap characters
func WrapString(text string) string {
	var wrappedLines []string
	var currentLine strings.Builder
	lineWidth := 0

	for _, word := range strings.Fields(text) {
		if lineWidth > 0 && lineWidth+1+len(word) > Wrap {
			wrappedLines = append(wrappedLines, currentLine.String())
			currentLine.Reset()
			lineWidth = 0
		}
		if lineWidth > 0 {
			currentLine.WriteString(" ")
			lineWidth++
		}
		currentLine.WriteString(word)
		lineWidth += len(word)
	}

	if currentLine.Len() > 0 {
		wrappedLines = append(wrappedLines, currentLine.String())
	}
	return strings.Join(wrappedLines, "\n")
}

// InitConfig loads .env files and maps GSF_* environment variables onto flags
func InitConfig() {
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")

	viper.SetEnvPrefix(EnvPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

// BindCommandFlags binds a command's flags to viper
func BindCommandFlags(cmd *cobra.Command) error {
	return viper.BindPFlags(cmd.Flags())
}

// SetupClientFlags adds the connection flags of client commands
func SetupClientFlags(cmd *cobra.Command) {
	key := "connection-string"
	cmd.Flags().String(key, "protocol=tcp; server=localhost:8888", WrapString("Connection string of the client. The protocol key selects the client type, all other keys configure it (e.g. server, payloadAware, noDelay, interface)"))

	key = "max-connection-attempts"
	cmd.Flags().Int(key, 0, WrapString("Overrides maxConnectionAttempts; refused connections are retried until this many attempts were made (-1 = forever, 0 = keep connection string value)"))

	key = "max-send-queue-size"
	cmd.Flags().Int(key, 0, WrapString("Overrides maxSendQueueSize, the number of payloads that may wait for transmission (0 = keep connection string value)"))

	key = "send-buffer"
	cmd.Flags().Int(key, 0, WrapString("Overrides sendBufferSize in bytes (0 = keep connection string value)"))

	key = "receive-buffer"
	cmd.Flags().Int(key, 0, WrapString("Overrides receiveBufferSize in bytes (0 = keep connection string value)"))
}

// SetupLogFlags adds the logging flags shared by all commands
func SetupLogFlags(cmd *cobra.Command) {
	cmd.Flags().String("log-level", "info", WrapString("LogLevel is the level at which logs will be output (debug, info, warn, error, off)"))
}

// GetClientConfig reads the client configuration from viper
func GetClientConfig() *common.ClientConfig {
	return &common.ClientConfig{
		ConnectionString:      viper.GetString("connection-string"),
		MaxConnectionAttempts: viper.GetInt("max-connection-attempts"),
		MaxSendQueueSize:      viper.GetInt("max-send-queue-size"),
		SendBufferSize:        viper.GetInt("send-buffer"),
		ReceiveBufferSize:     viper.GetInt("receive-buffer"),
		HexOutput:             viper.GetBool("hex"),
		MetricsEndpoint:       viper.GetString("metrics-endpoint"),
		LogLevel:              viper.GetString("log-level"),
	}
}

// EffectiveConnectionString merges the non-zero overrides of conf into its
// connection string
func EffectiveConnectionString(conf *common.ClientConfig) (string, error) {
	settings, err := transport.ParseConnectionString(conf.ConnectionString)
	if err != nil {
		return "", err
	}

	overrides := map[string]int{
		"maxConnectionAttempts": conf.MaxConnectionAttempts,
		"maxSendQueueSize":      conf.MaxSendQueueSize,
		"sendBufferSize":        conf.SendBufferSize,
		"receiveBufferSize":     conf.ReceiveBufferSize,
	}
	for key, value := range overrides {
		if value != 0 {
			settings.Set(key, strconv.Itoa(value))
		}
	}
	return settings.String(), nil
}
