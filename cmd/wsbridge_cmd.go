package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/vkviyu/wsbridge/config"
	"github.com/vkviyu/wsbridge/utils/logutil"
)

// DefaultConfigFile is read when --config is not given and the file exists.
var DefaultConfigFile = "wsbridge.yaml"

type WsBridgeCmd struct {
	cmd    *cobra.Command
	viper  *viper.Viper
	config *config.Config
	logger *logrus.Logger
	closer io.Closer
}

// NewWsBridgeCmd creates the cobra command tree: connect, serve, config and
// records.
func NewWsBridgeCmd() *WsBridgeCmd {
	w := &WsBridgeCmd{viper: viper.New()}
	cmd := &cobra.Command{
		Use:           "wsbridge",
		Short:         "WebSocket upgrade client and echo peer",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pflags := cmd.PersistentFlags()
	pflags.StringP("config", "c", "", "config file")
	pflags.String("log-level", "", "log level (trace, debug, info, warn, error)")
	pflags.StringArrayP("set", "s", nil, "Override config items, format KEY=VALUE (can be set multiple times)")

	cmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		return w.load(cmd)
	}
	cmd.PersistentPostRun = func(cmd *cobra.Command, args []string) {
		if w.closer != nil {
			w.closer.Close()
		}
	}
	w.cmd = cmd
	cmd.AddCommand(w.newConnectCmd(), w.newServeCmd(), w.newConfigCmd(), w.newRecordsCmd())
	return w
}

func (w *WsBridgeCmd) Execute() error {
	return w.cmd.Execute()
}

// SetArgs overrides os.Args, for tests.
func (w *WsBridgeCmd) SetArgs(args []string) {
	w.cmd.SetArgs(args)
}

// SetInput replaces stdin, for tests.
func (w *WsBridgeCmd) SetInput(in io.Reader) {
	w.cmd.SetIn(in)
}

// SetOutput redirects command output, for tests.
func (w *WsBridgeCmd) SetOutput(out io.Writer) {
	w.cmd.SetOut(out)
	w.cmd.SetErr(out)
}

func (w *WsBridgeCmd) load(cmd *cobra.Command) error {
	v := w.viper
	if f := cmd.Flags().Lookup("log-level"); f != nil && f.Changed {
		v.Set("log.level", f.Value.String())
	}
	overrides, _ := cmd.Flags().GetStringArray("set")
	for _, item := range overrides {
		key, value, ok := strings.Cut(item, "=")
		if !ok {
			return fmt.Errorf("invalid override %q, expected KEY=VALUE", item)
		}
		v.Set(strings.TrimSpace(key), strings.TrimSpace(value))
	}

	configFile, _ := cmd.Flags().GetString("config")
	if configFile == "" {
		if _, err := os.Stat(DefaultConfigFile); err == nil {
			configFile = DefaultConfigFile
		}
	}
	cfg, err := config.Load(v, configFile)
	if err != nil {
		return err
	}
	w.config = cfg
	return w.setupLogger()
}

func (w *WsBridgeCmd) setupLogger() error {
	level, err := logutil.ParseLevel(w.config.Log.Level)
	if err != nil {
		return err
	}
	if w.config.Log.Dir == "" {
		w.logger = logutil.NewConsoleLogger(level)
		return nil
	}
	rl, err := logutil.NewRotateLogger(&logutil.RotateLoggerConfig{
		LogDir:     w.config.Log.Dir,
		RotateTime: w.config.Log.RotateTime,
		MaxAge:     w.config.Log.MaxAge,
		LogLevel:   level,
		Console:    true,
	})
	if err != nil {
		return err
	}
	w.logger = rl.Logger
	w.closer = rl
	return nil
}
