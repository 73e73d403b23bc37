package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/aretw0/notenest"
	"github.com/aretw0/notenest/pkg/core"
	"github.com/aretw0/notenest/pkg/remote"
)

// Config keys, shared by flags, notenest.yaml and NOTENEST_* variables.
const (
	keyStore    = "store"
	keyAdapter  = "adapter"
	keyFormat   = "format"
	keyEndpoint = "endpoint"
	keyOffline  = "offline"
	keyTimeout  = "timeout"
	keyVerbose  = "verbose"

	// endpointNone disables the remote sink.
	endpointNone = "none"
)

// app carries the state shared by every subcommand.
type app struct {
	v       *viper.Viper
	cfgFile string
	logger  *slog.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{v: viper.New()}

	cmd := &cobra.Command{
		Use:   "notenest",
		Short: "A local-first note store with a remote note sink",
		Long: heredoc.Doc(`
			NoteNest keeps your notes in a local store and writes every new note
			through to a remote note sink, which assigns it a remote id.

			Edits stay local. Notes saved while the sink is unreachable (--offline)
			can be sent later with "notenest push".
		`),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := a.initConfig(); err != nil {
				return err
			}
			level := slog.LevelInfo
			if a.v.GetBool(keyVerbose) {
				level = slog.LevelDebug
			}
			a.logger = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
			slog.SetDefault(a.logger)
			return nil
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&a.cfgFile, "config", "", "config file (default is ./notenest.yaml)")
	flags.String(keyStore, "", "store directory (default is the nearest store above the working directory)")
	flags.String(keyAdapter, notenest.AdapterFS, "storage adapter: fs, sqlite or memory")
	flags.String(keyFormat, "json", "record format of the fs adapter: json or yaml")
	flags.String(keyEndpoint, remote.DefaultEndpoint, `note sink URL ("none" keeps notes local)`)
	flags.Bool(keyOffline, false, "keep new notes locally when the sink is unreachable")
	flags.Duration(keyTimeout, remote.DefaultTimeout, "timeout of a remote write")
	flags.BoolP(keyVerbose, "v", false, "Enable verbose logging")
	for _, key := range []string{keyStore, keyAdapter, keyFormat, keyEndpoint, keyOffline, keyTimeout, keyVerbose} {
		_ = a.v.BindPFlag(key, flags.Lookup(key))
	}

	cmd.AddCommand(
		newCmdInit(a),
		newCmdAdd(a),
		newCmdEdit(a),
		newCmdList(a),
		newCmdShow(a),
		newCmdDelete(a),
		newCmdCategories(a),
		newCmdPush(a),
		newCmdVersion(),
	)
	return cmd
}

func (a *app) initConfig() error {
	a.v.SetEnvPrefix("NOTENEST")
	a.v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	a.v.AutomaticEnv()

	if a.cfgFile != "" {
		a.v.SetConfigFile(a.cfgFile)
	} else {
		a.v.SetConfigName("notenest")
		a.v.SetConfigType("yaml")
		a.v.AddConfigPath(".")
	}

	if err := a.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if a.cfgFile != "" || !errors.As(err, &notFound) {
			return fmt.Errorf("read config: %w", err)
		}
	}
	return nil
}

// storePath returns the configured store, or the nearest store above the
// working directory, or the working directory itself.
func (a *app) storePath() (string, error) {
	if p := a.v.GetString(keyStore); p != "" {
		return p, nil
	}
	wd, err := os.Getwd()
	if err != nil {
		return "", err
	}
	if root, err := notenest.FindStoreRoot(wd); err == nil {
		return root, nil
	}
	return wd, nil
}

func (a *app) endpoint() string {
	e := strings.TrimSpace(a.v.GetString(keyEndpoint))
	if strings.EqualFold(e, endpointNone) {
		return ""
	}
	return e
}

func (a *app) options(extra ...notenest.Option) []notenest.Option {
	opts := []notenest.Option{
		notenest.WithAdapter(a.v.GetString(keyAdapter)),
		notenest.WithFormat(a.v.GetString(keyFormat)),
		notenest.WithOffline(a.v.GetBool(keyOffline)),
		notenest.WithLogger(a.logger),
	}
	if e := a.endpoint(); e != "" {
		opts = append(opts,
			notenest.WithRemoteEndpoint(e),
			notenest.WithRemoteTimeout(a.v.GetDuration(keyTimeout)),
		)
	}
	return append(opts, extra...)
}

// open opens the existing store.
func (a *app) open(ctx context.Context) (*core.Service, error) {
	path, err := a.storePath()
	if err != nil {
		return nil, err
	}
	svc, err := notenest.Open(ctx, path, a.options(notenest.WithMustExist(true))...)
	if err != nil {
		return nil, fmt.Errorf("open store %s: %w", path, err)
	}
	return svc, nil
}

func commandContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithTimeout(ctx, 2*time.Minute)
}

func parseID(arg string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid note id %q", arg)
	}
	return id, nil
}
