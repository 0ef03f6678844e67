package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/matheus3301/chatsync/internal/bus"
	"github.com/matheus3301/chatsync/internal/ledger"
	"github.com/matheus3301/chatsync/internal/model"
	"github.com/matheus3301/chatsync/internal/outbox"
	"github.com/matheus3301/chatsync/internal/status"
	"github.com/matheus3301/chatsync/internal/store"
	intsync "github.com/matheus3301/chatsync/internal/sync"
	"github.com/spf13/cobra"
)

var (
	limitFlag       int
	outboxLimitFlag int
)

func init() {
	historyCmd.Flags().IntVarP(&limitFlag, "limit", "n", 20, "show at most the last n messages (0 for all)")
	outboxCmd.Flags().IntVarP(&outboxLimitFlag, "limit", "n", 10, "number of submissions to show")
	rootCmd.AddCommand(historyCmd, sendCmd, sendFileCmd, outboxCmd, watchCmd)
}

var historyCmd = &cobra.Command{
	Use:   "history <peer>",
	Short: "Print the conversation with a contact",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		r, err := openRuntime(false)
		if err != nil {
			return err
		}
		defer r.close()
		if err := r.requireSession(); err != nil {
			return err
		}
		peer, err := r.resolvePeer(args[0])
		if err != nil {
			return err
		}

		msgs, err := r.client.History(cmd.Context(), peer.ID)
		if err != nil {
			return err
		}
		if limitFlag > 0 && len(msgs) > limitFlag {
			msgs = msgs[len(msgs)-limitFlag:]
		}
		if jsonFlag {
			outputJSON(msgs)
			return nil
		}
		for _, m := range msgs {
			printMessage(m, peer)
		}
		return nil
	},
}

var sendCmd = &cobra.Command{
	Use:   "send <peer> <text>...",
	Short: "Send a text message",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		text := strings.Join(args[1:], " ")
		return sendAndWait(cmd.Context(), args[0], func(e *intsync.Engine) (model.Message, error) {
			return e.SendText(text)
		})
	},
}

var sendFileCmd = &cobra.Command{
	Use:   "send-file <peer> <audio|video> <path>",
	Short: "Send an audio or video file",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		kind := model.Kind(args[1])
		if !kind.IsMedia() {
			return intsync.ErrInvalidKind
		}
		data, err := os.ReadFile(args[2])
		if err != nil {
			return err
		}
		return sendAndWait(cmd.Context(), args[0], func(e *intsync.Engine) (model.Message, error) {
			return e.SendMedia(kind, filepath.Base(args[2]), data)
		})
	},
}

// sendAndWait opens the conversation, submits one message and waits for the
// server's answer.
func sendAndWait(ctx context.Context, peerArg string, send func(*intsync.Engine) (model.Message, error)) error {
	r, err := openRuntime(true)
	if err != nil {
		return err
	}
	defer r.close()
	if err := r.requireSession(); err != nil {
		return err
	}
	peer, err := r.resolvePeer(peerArg)
	if err != nil {
		return err
	}

	events, unsub := r.bus.Subscribe("message.", 16)
	defer unsub()

	if err := r.engine.Open(peer.ID); err != nil {
		return err
	}
	m, err := send(r.engine)
	if err != nil {
		return err
	}

	timeout := time.After(2*r.cfg.RequestTimeout.Duration + 5*time.Second)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timeout:
			return errors.New("timed out waiting for the server")
		case evt, ok := <-events:
			if !ok {
				return errors.New("shutting down")
			}
			switch p := evt.Payload.(type) {
			case outbox.Ack:
				if p.ClientMsgID == m.ID {
					if jsonFlag {
						outputJSON(p)
					} else {
						fmt.Printf("Sent to %s (id %s)\n", peer.DisplayName(), p.ServerMsgID)
					}
					return nil
				}
			case outbox.Failure:
				if p.ClientMsgID == m.ID {
					return fmt.Errorf("send failed: %s", p.Error)
				}
			}
		}
	}
}

var watchCmd = &cobra.Command{
	Use:   "watch [peer]",
	Short: "Follow a conversation and print notifications until interrupted",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		r, err := openRuntime(true)
		if err != nil {
			return err
		}
		defer r.close()
		if err := r.requireSession(); err != nil {
			return err
		}

		events, unsub := r.bus.Subscribe("", 64)
		defer unsub()

		var peer model.Contact
		if len(args) == 1 {
			if peer, err = r.resolvePeer(args[0]); err != nil {
				return err
			}
			if err := r.engine.Open(peer.ID); err != nil {
				return err
			}
			fmt.Printf("Watching %s. Ctrl-C to stop.\n", peer.DisplayName())
		} else {
			fmt.Println("Watching for messages. Ctrl-C to stop.")
		}

		printed := make(map[model.MessageID]bool)
		for {
			select {
			case <-ctx.Done():
				return nil
			case evt, ok := <-events:
				if !ok {
					return nil
				}
				switch p := evt.Payload.(type) {
				case intsync.Update:
					if !peer.ID.Valid() || p.Peer != peer.ID {
						continue
					}
					for _, m := range r.engine.View().Messages {
						if m.Local || printed[m.ID] {
							continue
						}
						printed[m.ID] = true
						printMessage(m, peer)
					}
				case intsync.Notification:
					name := p.From.String()
					if c, _ := r.dir.Get(p.From); c != nil {
						name = c.DisplayName()
					}
					fmt.Printf("* %s: %s (%d unread)\n", name, p.Preview, p.Unread)
				case ledger.Change:
					if verboseFlag {
						fmt.Printf("  unread %s = %d\n", p.Peer, p.Count)
					}
				case status.StatusChange:
					if evt.Kind == bus.KindStreamStateChanged && verboseFlag {
						fmt.Printf("  stream %s -> %s\n", p.From, p.To)
					}
				}
			}
		}
	},
}

var outboxCmd = &cobra.Command{
	Use:   "outbox <peer>",
	Short: "Show recent submissions to a contact and their delivery state",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		r, err := openRuntime(false)
		if err != nil {
			return err
		}
		defer r.close()
		peer, err := r.resolvePeer(args[0])
		if err != nil {
			return err
		}
		if outboxLimitFlag <= 0 {
			outboxLimitFlag = 10
		}
		entries, err := r.db.RecentOutbox(int64(peer.ID), outboxLimitFlag)
		if err != nil {
			return err
		}
		if jsonFlag {
			outputJSON(entries)
			return nil
		}
		if len(entries) == 0 {
			fmt.Printf("Nothing sent to %s from this profile.\n", peer.DisplayName())
			return nil
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		_, _ = fmt.Fprintln(w, "QUEUED\tKIND\tSTATUS\tBODY")
		for i := len(entries) - 1; i >= 0; i-- {
			e := entries[i]
			body := e.Body
			if e.FileName != "" {
				body = e.FileName
			}
			state := e.Status
			if e.Status == store.OutboxFailed && e.ErrorMessage != "" {
				state += ": " + e.ErrorMessage
			}
			queued := time.UnixMilli(e.CreatedAt).Local().Format("2006-01-02 15:04")
			_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", queued, e.Kind, state, body)
		}
		return w.Flush()
	},
}

func printMessage(m model.Message, peer model.Contact) {
	who := peer.DisplayName()
	if m.Mine {
		who = "you"
	}
	body := m.Content
	if m.Kind.IsMedia() {
		body = "[" + string(m.Kind) + "] " + m.URL
	}
	fmt.Printf("[%s] %s: %s", m.CreatedAt.Local().Format("2006-01-02 15:04"), who, body)
	if m.Mine {
		fmt.Printf(" (%s)", m.Status)
	}
	fmt.Println()
}
