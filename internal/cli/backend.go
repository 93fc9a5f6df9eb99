package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/mcoot/playerinfo-proxy/internal/model"
	"github.com/mcoot/playerinfo-proxy/internal/transport"
	"github.com/mcoot/playerinfo-proxy/internal/wire"
)

// publishTimeout bounds connect, publish and flush of one backend command
const publishTimeout = 10 * time.Second

// BackendLink is the uplink the backend commands publish on
type BackendLink interface {
	transport.Uplink
	Flush(ctx context.Context) error
	Close() error
}

// BackendDialer opens the link for one backend command
type BackendDialer func(cfg *Config, logger *slog.Logger) (BackendLink, error)

// DialNATS connects to the NATS server named in cfg without reconnecting
func DialNATS(cfg *Config, logger *slog.Logger) (BackendLink, error) {
	natsCfg := transport.DefaultNATSConfig()
	natsCfg.URL = cfg.NATSURL
	natsCfg.Channel = cfg.NATSChannel
	natsCfg.Name = "pinfo-cli"
	natsCfg.MaxReconnects = 0

	channel, err := transport.NewNATSChannel(natsCfg, logger)
	if err != nil {
		return nil, err
	}
	return channel, nil
}

func newBackendCmd(dial BackendDialer) *cobra.Command {
	var backend string

	cmd := &cobra.Command{
		Use:   "backend",
		Short: "Publish envelopes over NATS as a backend server would",
	}

	cmd.PersistentFlags().StringVar(&backend, "as", "", "Backend server name to publish as (required)")
	cmd.PersistentFlags().StringVar(&cfg.NATSURL, "nats-url", cfg.NATSURL, "NATS URL (env: PINFO_NATS_URL)")
	cmd.PersistentFlags().StringVar(&cfg.NATSChannel, "channel", cfg.NATSChannel, "Channel subject root (env: PINFO_NATS_CHANNEL)")
	_ = cmd.MarkPersistentFlagRequired("as")

	cmd.AddCommand(newBackendPushCmd(dial, &backend))
	cmd.AddCommand(newBackendRemoveCmd(dial, &backend))
	cmd.AddCommand(newBackendInfoCmd(dial, &backend))

	return cmd
}

func newBackendPushCmd(dial BackendDialer, backend *string) *cobra.Command {
	var id, file string

	cmd := &cobra.Command{
		Use:   "push",
		Short: "Publish a player payload (JSON from --file or stdin)",
		RunE: func(cmd *cobra.Command, args []string) error {
			payload, err := readPayload(cmd, file)
			if err != nil {
				return err
			}

			return withPublisher(cmd, dial, *backend, func(ctx context.Context, p *transport.Publisher) error {
				if id == "" {
					// The payload names its players itself
					return p.PushBatch(ctx, payload)
				}
				pid, err := model.ParsePlayerID(id)
				if err != nil {
					return fmt.Errorf("--id: %w", err)
				}
				return p.PushPlayer(ctx, pid, payload)
			})
		},
	}

	cmd.Flags().StringVar(&id, "id", "", "Player UUID; omit when the payload carries uuid fields")
	cmd.Flags().StringVarP(&file, "file", "f", "", "Payload file (default stdin)")

	return cmd
}

func newBackendRemoveCmd(dial BackendDialer, backend *string) *cobra.Command {
	var id string

	cmd := &cobra.Command{
		Use:   "remove",
		Short: "Withdraw a player from the backend",
		RunE: func(cmd *cobra.Command, args []string) error {
			pid, err := model.ParsePlayerID(id)
			if err != nil {
				return fmt.Errorf("--id: %w", err)
			}
			return withPublisher(cmd, dial, *backend, func(ctx context.Context, p *transport.Publisher) error {
				return p.RemovePlayer(ctx, pid)
			})
		},
	}

	cmd.Flags().StringVar(&id, "id", "", "Player UUID (required)")
	_ = cmd.MarkFlagRequired("id")

	return cmd
}

func newBackendInfoCmd(dial BackendDialer, backend *string) *cobra.Command {
	var info wire.ServerInfo

	cmd := &cobra.Command{
		Use:   "info",
		Short: "Publish the backend's version and online count",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withPublisher(cmd, dial, *backend, func(ctx context.Context, p *transport.Publisher) error {
				return p.PushServerInfo(ctx, info)
			})
		},
	}

	cmd.Flags().StringVar(&info.Version, "version", "", "Backend version string")
	cmd.Flags().IntVar(&info.OnlinePlayers, "online", 0, "Players online")

	return cmd
}

func readPayload(cmd *cobra.Command, file string) ([]byte, error) {
	if file != "" {
		data, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("failed to read payload: %w", err)
		}
		return data, nil
	}
	data, err := io.ReadAll(cmd.InOrStdin())
	if err != nil {
		return nil, fmt.Errorf("failed to read payload: %w", err)
	}
	return data, nil
}

// withPublisher opens a link, runs fn and flushes before returning
func withPublisher(cmd *cobra.Command, dial BackendDialer, backend string, fn func(ctx context.Context, p *transport.Publisher) error) error {
	level := slog.LevelWarn
	if cfg.Verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))

	link, err := dial(cfg, logger)
	if err != nil {
		return err
	}
	defer func() { _ = link.Close() }()

	codec, err := wire.NewCodec(wire.DefaultConfig())
	if err != nil {
		return err
	}
	publisher, err := transport.NewPublisher(link, codec, model.ServerName(backend), logger)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), publishTimeout)
	defer cancel()

	if err := fn(ctx, publisher); err != nil {
		return err
	}
	if err := link.Flush(ctx); err != nil {
		return fmt.Errorf("failed to flush: %w", err)
	}

	output(cmd).PrintMessage("Published as " + backend)
	return nil
}
