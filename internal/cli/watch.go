package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"
)

type watchOptions struct {
	create   bool
	password string
	count    int
}

func newWatchCmd() *cobra.Command {
	var opts watchOptions

	cmd := &cobra.Command{
		Use:   "watch <name>",
		Short: "Connect as a player and stream realtime events",
		Long: `Reserve a display name, connect to the realtime endpoint, bind the name
and print every event the server sends.

Events include:
  - updateGames: The set of open offers changed
  - enterGame: Another player joined your offer
  - opponentMadeAMove: The board changed
  - newMessage: Chat message from your opponent
  - opponentLostConnection: Your session was ended

Press Ctrl+C to disconnect.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return watch(ctx, args[0], opts)
		},
	}

	cmd.Flags().BoolVar(&opts.create, "create", false, "Publish an open offer after connecting")
	cmd.Flags().StringVar(&opts.password, "password", "", "Password for the published offer")
	cmd.Flags().IntVar(&opts.count, "count", 0, "Exit after this many events (0 streams until interrupted)")

	return cmd
}

// wireEvent is the realtime frame
type wireEvent struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

func watch(ctx context.Context, name string, opts watchOptions) error {
	out := NewOutput(cfg.Output)

	result, err := reserve(name)
	if err != nil {
		return err
	}
	if !result.Available {
		return fmt.Errorf("%s: %s", name, result.Message)
	}

	wsURL, err := cfg.WebsocketURL()
	if err != nil {
		return err
	}
	conn, err := client.Dial(ctx, wsURL)
	if err != nil {
		return err
	}
	defer func() { _ = conn.Close() }()

	// Unblock the read loop on interrupt
	go func() {
		<-ctx.Done()
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		_ = conn.Close()
	}()

	if err := send(conn, "saveUsername", name); err != nil {
		return err
	}
	if opts.create {
		offer := map[string]string{"creatorName": name, "password": opts.password}
		if err := send(conn, "createNewGame", offer); err != nil {
			return err
		}
	}

	if cfg.Verbose {
		out.PrintMessage(fmt.Sprintf("Connected as %s", name))
	}

	received := 0
	for opts.count == 0 || received < opts.count {
		var evt wireEvent
		if err := conn.ReadJSON(&evt); err != nil {
			if ctx.Err() != nil || websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				if cfg.Verbose {
					out.PrintMessage("Disconnected")
				}
				return nil
			}
			return fmt.Errorf("stream error: %w", err)
		}
		received++
		out.Print(EventLine{Time: time.Now(), Event: evt.Event, Data: evt.Data})
	}
	return nil
}

func send(conn *websocket.Conn, event string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", event, err)
	}
	if err := conn.WriteJSON(wireEvent{Event: event, Data: data}); err != nil {
		return fmt.Errorf("failed to send %s: %w", event, err)
	}
	return nil
}
