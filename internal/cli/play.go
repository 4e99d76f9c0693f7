package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/tavere/legendgame-go/internal/client"
	"github.com/tavere/legendgame-go/internal/model"
	"github.com/tavere/legendgame-go/internal/protocol"
)

const socketCmdTimeout = 15 * time.Second

func newOnlineCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "online",
		Short: "List currently online players",
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := newSocketSession()
			if err != nil {
				return err
			}
			defer sess.Close()

			players := make(chan []model.OnlinePlayer, 1)
			failed := make(chan error, 1)
			sess.Subscribe(func(ev protocol.Event) {
				switch ev.Type {
				case protocol.EventAuthenticated:
					_ = sess.RequestOnlinePlayers()
				case protocol.EventOnlinePlayers:
					var reply protocol.OnlinePlayersReply
					if err := ev.Decode(&reply); err == nil {
						select {
						case players <- reply.Players:
						default:
						}
					}
				default:
					reportFailure(ev, failed)
				}
			})

			ctx, cancel := context.WithTimeout(cmd.Context(), socketCmdTimeout)
			defer cancel()
			if err := sess.Connect(ctx); err != nil {
				return err
			}

			select {
			case list := <-players:
				NewOutput(cfg.Output).Print(OnlineResult{Players: list, Total: len(list)})
				return nil
			case err := <-failed:
				return err
			case <-ctx.Done():
				return errors.New("timed out waiting for server")
			}
		},
	}
}

func newSyncCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sync [state-file]",
		Short: "Push a game-state snapshot to the server",
		Long: `Push a game-state snapshot to the server.

Reads the snapshot JSON from the given file, or from stdin when no file
is given.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var data []byte
			var err error
			if len(args) == 1 {
				data, err = os.ReadFile(args[0])
			} else {
				data, err = io.ReadAll(cmd.InOrStdin())
			}
			if err != nil {
				return err
			}
			if err := model.ValidateSnapshot(data); err != nil {
				return err
			}

			sess, err := newSocketSession()
			if err != nil {
				return err
			}
			defer sess.Close()

			synced := make(chan struct{}, 1)
			failed := make(chan error, 1)
			sess.Subscribe(func(ev protocol.Event) {
				switch ev.Type {
				case protocol.EventAuthenticated:
					if err := sess.Sync(data); err != nil {
						select {
						case failed <- err:
						default:
						}
					}
				case protocol.EventSyncComplete:
					select {
					case synced <- struct{}{}:
					default:
					}
				default:
					reportFailure(ev, failed)
				}
			})

			ctx, cancel := context.WithTimeout(cmd.Context(), socketCmdTimeout)
			defer cancel()
			if err := sess.Connect(ctx); err != nil {
				return err
			}

			select {
			case <-synced:
				NewOutput(cfg.Output).PrintMessage("Game state synced")
				return nil
			case err := <-failed:
				return err
			case <-ctx.Done():
				return errors.New("timed out waiting for server")
			}
		},
	}

	return cmd
}

// newSocketSession builds a one-shot session over the gameplay socket,
// reusing the CLI's stored token
func newSocketSession() (*client.Session, error) {
	if cfg.Token == "" {
		return nil, fmt.Errorf("%w; run 'legend login' first", client.ErrNoToken)
	}
	var tokens client.TokenStore = cfg.TokenStore()
	if cfg.Token != "" {
		// Token came from a flag or the environment; keep it out of the
		// token file
		mem := &client.MemoryTokenStore{}
		_ = mem.Save(cfg.Token)
		tokens = mem
	}
	return client.NewSession(client.Config{
		URL:    cfg.SocketURL(),
		Tokens: tokens,
		// One attempt is enough for a one-shot command
		MaxReconnectAttempts: 1,
	}), nil
}

func reportFailure(ev protocol.Event, failed chan<- error) {
	var err error
	switch ev.Type {
	case protocol.EventAuthError:
		err = errors.New("authentication failed; log in again")
	case protocol.EventGiveUp:
		err = errors.New("could not reach server")
	case protocol.EventForceDisconnect:
		err = errors.New("disconnected: another session took over")
	default:
		return
	}
	select {
	case failed <- err:
	default:
	}
}
