// Command titanctl is a terminal client for the TitanBot API.
package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/Abdulkalam-AIML/titanbot/internal/domain"
)

var (
	serverURL string
	token     string
	timeout   time.Duration
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:           "titanctl",
	Short:         "Terminal client for the TitanBot chat API",
	SilenceUsage:  true,
	SilenceErrors: true,
}

var registerCmd = &cobra.Command{
	Use:   "register <email>",
	Short: "Create an account and print its token",
	Args:  cobra.ExactArgs(1),
	RunE:  runRegister,
}

var loginCmd = &cobra.Command{
	Use:   "login <email>",
	Short: "Log in and print a token",
	Long: `Log in with email and password and print the bearer token.

Export it for later commands:
  export TITANBOT_TOKEN=$(titanctl login me@example.com -p secret)`,
	Args: cobra.ExactArgs(1),
	RunE: runLogin,
}

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "List chat sessions",
	RunE:  runSessions,
}

var historyCmd = &cobra.Command{
	Use:   "history <session-id>",
	Short: "Print a session's turns",
	Args:  cobra.ExactArgs(1),
	RunE:  runHistory,
}

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Chat interactively over a WebSocket",
	Long: `Open an interactive chat. Each line you type is sent as one message
and the reply is streamed back. Type /quit to exit.`,
	RunE: runChat,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&serverURL, "server", "s", envOr("TITANBOT_SERVER", "http://localhost:8000/api"), "API base URL")
	rootCmd.PersistentFlags().StringVarP(&token, "token", "t", os.Getenv("TITANBOT_TOKEN"), "Bearer token (or set TITANBOT_TOKEN)")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 30*time.Second, "Request timeout")

	for _, cmd := range []*cobra.Command{registerCmd, loginCmd} {
		cmd.Flags().StringP("password", "p", "", "Password")
		_ = cmd.MarkFlagRequired("password")
	}
	registerCmd.Flags().StringP("name", "n", "", "Full name")

	chatCmd.Flags().Int64("session", 0, "Continue an existing session")
	chatCmd.Flags().String("model", "", "Preferred cloud model")

	rootCmd.AddCommand(registerCmd, loginCmd, sessionsCmd, historyCmd, chatCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func requestContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return context.WithTimeout(cmd.Context(), timeout)
}

func requireToken() error {
	if token == "" {
		return fmt.Errorf("no token: pass --token or set TITANBOT_TOKEN")
	}
	return nil
}

func runRegister(cmd *cobra.Command, args []string) error {
	password, _ := cmd.Flags().GetString("password")
	name, _ := cmd.Flags().GetString("name")

	ctx, cancel := requestContext(cmd)
	defer cancel()
	tok, err := NewAPIClient(serverURL, "").Register(ctx, domain.RegisterRequest{Email: args[0], Password: password, FullName: name})
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), tok.AccessToken)
	return nil
}

func runLogin(cmd *cobra.Command, args []string) error {
	password, _ := cmd.Flags().GetString("password")

	ctx, cancel := requestContext(cmd)
	defer cancel()
	tok, err := NewAPIClient(serverURL, "").Login(ctx, domain.LoginRequest{Email: args[0], Password: password})
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), tok.AccessToken)
	return nil
}

func runSessions(cmd *cobra.Command, args []string) error {
	if err := requireToken(); err != nil {
		return err
	}
	ctx, cancel := requestContext(cmd)
	defer cancel()
	sessions, err := NewAPIClient(serverURL, token).ListSessions(ctx)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTITLE\tUPDATED")
	for _, s := range sessions {
		fmt.Fprintf(w, "%d\t%s\t%s\n", s.ID, s.Title, s.UpdatedAt.Local().Format(time.DateTime))
	}
	return w.Flush()
}

func runHistory(cmd *cobra.Command, args []string) error {
	if err := requireToken(); err != nil {
		return err
	}
	var id int64
	if _, err := fmt.Sscan(args[0], &id); err != nil {
		return fmt.Errorf("invalid session id %q", args[0])
	}
	ctx, cancel := requestContext(cmd)
	defer cancel()
	messages, err := NewAPIClient(serverURL, token).ListMessages(ctx, id)
	if err != nil {
		return err
	}
	for _, m := range messages {
		fmt.Fprintf(cmd.OutOrStdout(), "[%s] %s\n", m.Role, m.Content)
	}
	return nil
}

func runChat(cmd *cobra.Command, args []string) error {
	if err := requireToken(); err != nil {
		return err
	}
	sessionID, _ := cmd.Flags().GetInt64("session")
	model, _ := cmd.Flags().GetString("model")

	ctx, cancel := requestContext(cmd)
	client, err := DialChat(ctx, serverURL, token)
	cancel()
	if err != nil {
		return err
	}
	defer client.Close()
	if sessionID > 0 {
		client.UseSession(sessionID)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "Connected. Type a message, or /quit to exit.")
	scanner := bufio.NewScanner(cmd.InOrStdin())
	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		switch line {
		case "":
			continue
		case "/quit", "/exit":
			return nil
		}
		if err := client.Send(line, model, out); err != nil {
			return err
		}
	}
}
