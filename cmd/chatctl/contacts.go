package main

import (
	"fmt"
	"os"
	"sort"
	"text/tabwriter"

	"github.com/matheus3301/chatsync/internal/model"
	"github.com/spf13/cobra"
)

var refreshFlag bool

func init() {
	contactsCmd.Flags().BoolVar(&refreshFlag, "refresh", false, "fetch the directory from the server first")
	rootCmd.AddCommand(contactsCmd, unreadCmd)
}

var contactsCmd = &cobra.Command{
	Use:   "contacts [query]",
	Short: "List contacts, optionally filtered by name or email",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		r, err := openRuntime(false)
		if err != nil {
			return err
		}
		defer r.close()

		cached, err := r.db.ContactCount()
		if err != nil {
			return err
		}
		if refreshFlag || (cached == 0 && r.auth.Session().Authenticated()) {
			if err := r.requireSession(); err != nil {
				return err
			}
			if _, err := r.dir.Refresh(cmd.Context()); err != nil {
				return err
			}
		}

		query := ""
		if len(args) == 1 {
			query = args[0]
		}
		entries, err := r.dir.Entries(query)
		if err != nil {
			return err
		}

		if jsonFlag {
			outputJSON(entries)
			return nil
		}
		if len(entries) == 0 {
			fmt.Println("No contacts.")
			return nil
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		_, _ = fmt.Fprintln(w, "ID\tNAME\tEMAIL\tUNREAD")
		for _, e := range entries {
			_, _ = fmt.Fprintf(w, "%d\t%s\t%s\t%d\n", e.ID, e.DisplayName(), e.Email, e.Unread)
		}
		return w.Flush()
	},
}

var unreadCmd = &cobra.Command{
	Use:   "unread",
	Short: "Show unread counts per contact",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		r, err := openRuntime(false)
		if err != nil {
			return err
		}
		defer r.close()

		counts := r.ledger.Snapshot()
		peers := make([]model.UserID, 0, len(counts))
		for p, n := range counts {
			if n > 0 {
				peers = append(peers, p)
			}
		}
		sort.Slice(peers, func(i, j int) bool { return peers[i] < peers[j] })

		if jsonFlag {
			out := make(map[string]int, len(peers))
			for _, p := range peers {
				out[p.String()] = counts[p]
			}
			outputJSON(out)
			return nil
		}
		if len(peers) == 0 {
			fmt.Println("No unread messages.")
			return nil
		}
		for _, p := range peers {
			name := p.String()
			if c, _ := r.dir.Get(p); c != nil {
				name = c.DisplayName()
			}
			fmt.Printf("%-30s %d\n", name, counts[p])
		}
		return nil
	},
}

// resolvePeer accepts a numeric user id or a name/email query.
func (r *runtime) resolvePeer(arg string) (model.Contact, error) {
	if id, err := model.ParseUserID(arg); err == nil {
		if c, _ := r.dir.Get(id); c != nil {
			return *c, nil
		}
		return model.Contact{ID: id}, nil
	}
	entries, err := r.dir.Entries(arg)
	if err != nil {
		return model.Contact{}, err
	}
	switch len(entries) {
	case 0:
		return model.Contact{}, fmt.Errorf("no contact matches %q", arg)
	case 1:
		return entries[0].Contact, nil
	default:
		return model.Contact{}, fmt.Errorf("%q matches %d contacts; use the id", arg, len(entries))
	}
}
