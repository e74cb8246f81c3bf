package util

import (
	"strconv"
	"strings"
	"time"

	"github.com/ValentinKolb/aspike/client"
	"github.com/ValentinKolb/aspike/lib/policy"
	"github.com/ValentinKolb/aspike/lib/types"
	"github.com/ValentinKolb/aspike/proto"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	// Wrap is the number of characters to Wrap the help text at
	Wrap int = 50
)

// WrapString wraps a string at Wrap characters
func WrapString(text string) string {
	var wrappedLines []string
	var currentLine strings.Builder
	lineWidth := 0

	for _, word := range strings.Fields(text) {
		wordWidth := len(word)

		// Check if we need to wrap
		if lineWidth > 0 && lineWidth+1+wordWidth > Wrap {
			wrappedLines = append(wrappedLines, currentLine.String())
			currentLine.Reset()
			lineWidth = 0
		}

		// Add space before word (if not first word on line)
		if lineWidth > 0 {
			currentLine.WriteString(" ")
			lineWidth++
		}

		// Add the word
		currentLine.WriteString(word)
		lineWidth += wordWidth
	}

	// Add any remaining text
	if currentLine.Len() > 0 {
		wrappedLines = append(wrappedLines, currentLine.String())
	}

	return strings.Join(wrappedLines, "\n")
}

// SetupClientFlags adds the common cluster connection flags to a command
func SetupClientFlags(cmd *cobra.Command) {
	key := "seeds"
	cmd.PersistentFlags().String(key, "localhost:3000", WrapString("Seed addresses of the cluster as a comma-separated list. The port defaults to 3000 when omitted"))

	key = "namespace"
	cmd.PersistentFlags().String(key, "test", WrapString("The namespace to operate on"))

	key = "set"
	cmd.PersistentFlags().String(key, "", WrapString("The set to operate on (empty for the null set)"))

	key = "timeout"
	cmd.PersistentFlags().Int(key, 5, WrapString("Total timeout in seconds including all retries"))

	key = "socket-timeout"
	cmd.PersistentFlags().Int(key, 30, WrapString("Timeout in seconds for a single socket exchange"))

	key = "retries"
	cmd.PersistentFlags().Int(key, 2, WrapString("How many times to retry a failed request"))

	key = "connect-timeout"
	cmd.PersistentFlags().Int(key, 1, WrapString("Timeout in seconds for dialing a node"))

	key = "pool-size"
	cmd.PersistentFlags().Int(key, 16, WrapString("Connection pool capacity per node"))

	key = "min-connections"
	cmd.PersistentFlags().Int(key, 0, WrapString("Connections to pre-open per node"))

	key = "log-level"
	cmd.PersistentFlags().String(key, "warning", WrapString("Log level (debug, info, warning, error)"))
}

// InitClientConfig initializes configuration from environment variables
func InitClientConfig() {
	// load env files
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")

	// initialize viper
	viper.SetEnvPrefix("aspike")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv() // read in environment variables that match
}

// GetClientPolicy reads the connection configuration from viper
func GetClientPolicy() *policy.ClientPolicy {
	p := policy.NewClientPolicy()
	p.ConnectTimeout = time.Duration(viper.GetInt("connect-timeout")) * time.Second
	p.ConnectionQueueSize = viper.GetInt("pool-size")
	p.MinConnectionsPerNode = viper.GetInt("min-connections")
	return p
}

// GetBasePolicy reads the per-request configuration from viper
func GetBasePolicy() *policy.BasePolicy {
	p := policy.NewBasePolicy()
	p.TotalTimeout = time.Duration(viper.GetInt("timeout")) * time.Second
	p.SocketTimeout = time.Duration(viper.GetInt("socket-timeout")) * time.Second
	p.MaxRetries = viper.GetInt("retries")
	return p
}

// GetWritePolicy reads the write configuration from viper
func GetWritePolicy() *policy.WritePolicy {
	p := policy.NewWritePolicy()
	p.BasePolicy = *GetBasePolicy()
	p.MaxRetries = 0
	p.Expiration = uint32(viper.GetInt("ttl"))
	p.SendKey = viper.GetBool("send-key")
	return p
}

// NewClient connects to the cluster configured via flags and environment
func NewClient() (*client.Client, error) {
	proto.InitLoggers(viper.GetString("log-level"))

	seeds := strings.Split(viper.GetString("seeds"), ",")
	return client.NewClient(GetClientPolicy(), seeds...)
}

// GetNamespace returns the configured namespace
func GetNamespace() string { return viper.GetString("namespace") }

// GetSet returns the configured set name
func GetSet() string { return viper.GetString("set") }

// ParseValue turns a command line argument into a typed value: integers
// and floats stay numeric, "true"/"false" become booleans, everything
// else is a string
func ParseValue(s string) types.Value {
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return types.IntegerValue(i)
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return types.FloatValue(f)
	}
	if b, err := strconv.ParseBool(s); err == nil {
		return types.BoolValue(b)
	}
	return types.StringValue(s)
}

// BindCommandFlags binds a command's flags to viper
func BindCommandFlags(cmd *cobra.Command) error {
	return viper.BindPFlags(cmd.Flags())
}
