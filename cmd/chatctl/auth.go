package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/matheus3301/chatsync/internal/backend"
	"github.com/spf13/cobra"
)

var (
	passwordFlag  string
	firstNameFlag string
	lastNameFlag  string
)

func init() {
	loginCmd.Flags().StringVar(&passwordFlag, "password", "", "password (read from stdin when omitted)")
	registerCmd.Flags().StringVar(&passwordFlag, "password", "", "password (read from stdin when omitted)")
	registerCmd.Flags().StringVar(&firstNameFlag, "first-name", "", "first name")
	registerCmd.Flags().StringVar(&lastNameFlag, "last-name", "", "last name")

	rootCmd.AddCommand(loginCmd, registerCmd, logoutCmd, whoamiCmd)
}

var loginCmd = &cobra.Command{
	Use:   "login <email>",
	Short: "Sign in and store the credential",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		password, err := readPassword()
		if err != nil {
			return err
		}
		r, err := openRuntime(true)
		if err != nil {
			return err
		}
		defer r.close()

		ctx, cancel := context.WithTimeout(cmd.Context(), r.cfg.RequestTimeout.Duration+5*time.Second)
		defer cancel()
		s, err := r.auth.Login(ctx, args[0], password)
		if err != nil {
			return err
		}
		fmt.Printf("Logged in as user %s (profile %s)\n", s.UserID, r.name)
		return nil
	},
}

var registerCmd = &cobra.Command{
	Use:   "register <email>",
	Short: "Create an account and sign in",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		password, err := readPassword()
		if err != nil {
			return err
		}
		r, err := openRuntime(true)
		if err != nil {
			return err
		}
		defer r.close()

		ctx, cancel := context.WithTimeout(cmd.Context(), 2*r.cfg.RequestTimeout.Duration+5*time.Second)
		defer cancel()
		s, err := r.auth.Register(ctx, backend.Registration{
			Email:     args[0],
			Password:  password,
			FirstName: firstNameFlag,
			LastName:  lastNameFlag,
		})
		if err != nil {
			return err
		}
		fmt.Printf("Registered and logged in as user %s\n", s.UserID)
		return nil
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Forget the stored credential",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		r, err := openRuntime(true)
		if err != nil {
			return err
		}
		defer r.close()
		if err := r.auth.Logout(); err != nil {
			return err
		}
		fmt.Println("Logged out.")
		return nil
	},
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the profile's user",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		r, err := openRuntime(false)
		if err != nil {
			return err
		}
		defer r.close()

		s := r.auth.Session()
		out := struct {
			Profile       string `json:"profile"`
			Server        string `json:"server"`
			Authenticated bool   `json:"authenticated"`
			UserID        int64  `json:"user_id,omitempty"`
			Name          string `json:"name,omitempty"`
		}{Profile: r.name, Server: r.cfg.BaseURL, Authenticated: s.Authenticated(), UserID: int64(s.UserID)}
		if c, _ := r.dir.Get(s.UserID); c != nil {
			out.Name = c.DisplayName()
		}

		if jsonFlag {
			outputJSON(out)
			return nil
		}
		fmt.Printf("Profile: %s\n", out.Profile)
		fmt.Printf("Server:  %s\n", out.Server)
		if !out.Authenticated {
			fmt.Println("User:    (not logged in)")
			return nil
		}
		fmt.Printf("User:    %d %s\n", out.UserID, out.Name)
		return nil
	},
}

func readPassword() (string, error) {
	if passwordFlag != "" {
		return passwordFlag, nil
	}
	fmt.Fprint(os.Stderr, "Password: ")
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("read password: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}
