// SPDX-License-Identifier: MIT

// Command workpulse-agent is the terminal client: log in, take breaks, and
// watch the live countdown with push notifications from the daemon.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/joho/godotenv"

	"github.com/Aathif-M/workpulse/internal/breaks"
	"github.com/Aathif-M/workpulse/internal/client"
	"github.com/Aathif-M/workpulse/internal/clock"
	"github.com/Aathif-M/workpulse/internal/config"
	wplog "github.com/Aathif-M/workpulse/internal/log"
	"github.com/Aathif-M/workpulse/internal/timer"
)

var version = "dev"

func usage() {
	fmt.Fprintf(os.Stderr, `workpulse-agent %s

Usage:
  workpulse-agent [flags] <command> [args]

Commands:
  login <email>      authenticate and store credentials
  logout             revoke the stored token
  status             show the current break state
  types              list available break types
  start <type-id>    start a break
  end                end the ongoing break
  watch              live countdown with push notifications
  history [limit]    list past breaks
  passwd             change the account password

Manager commands:
  history all [limit]  list breaks across all users
  users                live view of every user and their current break

Flags:
`, version)
	flag.PrintDefaults()
}

func main() {
	serverFlag := flag.String("server", "", "daemon base URL (overrides stored credentials)")
	flag.Usage = usage
	flag.Parse()

	_ = godotenv.Load()

	wplog.Configure(wplog.Config{
		Level:   config.ParseString("WP_LOG_LEVEL", "warn"),
		Output:  os.Stderr,
		Service: "workpulse-agent",
		Version: version,
	})

	if flag.NArg() < 1 {
		usage()
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, *serverFlag, flag.Args()); err != nil {
		if errors.Is(err, context.Canceled) {
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, serverURL string, args []string) error {
	credsPath, err := client.DefaultCredentialsPath()
	if err != nil {
		return err
	}
	creds, err := client.LoadCredentials(credsPath)
	if err != nil {
		return err
	}

	baseURL := serverURL
	if baseURL == "" {
		baseURL = creds.BaseURL
	}
	if baseURL == "" {
		baseURL = config.ParseString("WP_SERVER", "http://localhost:8080")
	}

	c := client.New(baseURL)
	c.SetToken(creds.Token)

	command, rest := args[0], args[1:]
	switch command {
	case "login":
		return runLogin(ctx, c, credsPath, rest)
	case "logout":
		return runLogout(ctx, c, credsPath)
	case "status":
		return runStatus(ctx, c)
	case "types":
		return runTypes(ctx, c)
	case "start":
		return runStart(ctx, c, rest)
	case "end":
		return runEnd(ctx, c)
	case "watch":
		return runWatch(ctx, c, credsPath, creds.UserID)
	case "history":
		return runHistory(ctx, c, rest)
	case "passwd":
		return runPasswd(ctx, c, credsPath)
	case "users":
		return runUsers(ctx, c)
	default:
		usage()
		return fmt.Errorf("unknown command %q", command)
	}
}

func runLogin(ctx context.Context, c *client.Client, credsPath string, args []string) error {
	if len(args) < 1 {
		return errors.New("usage: login <email>")
	}
	email := args[0]

	fmt.Fprint(os.Stderr, "Password: ")
	reader := bufio.NewReader(os.Stdin)
	password, err := reader.ReadString('\n')
	if err != nil {
		return fmt.Errorf("read password: %w", err)
	}
	password = strings.TrimSpace(password)

	res, err := c.Login(ctx, email, password)
	if err != nil {
		return err
	}

	if err := client.SaveCredentials(credsPath, client.Credentials{
		BaseURL: c.BaseURL(),
		Token:   res.Token,
		UserID:  res.User.ID,
		Email:   res.User.Email,
	}); err != nil {
		return err
	}

	fmt.Printf("Logged in as %s (%s)\n", res.User.Name, res.User.Role)
	if res.User.MustChangePassword {
		fmt.Println("NOTE: you must change your password. Run: workpulse-agent passwd")
	}
	return nil
}

func runLogout(ctx context.Context, c *client.Client, credsPath string) error {
	if err := c.Logout(ctx); err != nil && !client.IsNetworkError(err) {
		return err
	}
	if err := client.ClearCredentials(credsPath); err != nil {
		return err
	}
	fmt.Println("Logged out.")
	return nil
}

func runStatus(ctx context.Context, c *client.Client) error {
	session, err := c.ActiveBreak(ctx)
	if errors.Is(err, breaks.ErrNotFound) {
		fmt.Println("Not on a break.")
		return nil
	}
	if err != nil {
		return err
	}
	printSession(session, time.Now())
	return nil
}

func runTypes(ctx context.Context, c *client.Client) error {
	types, err := c.BreakTypes(ctx)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tDURATION\tACTIVE")
	for _, bt := range types {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%v\n", bt.ID, bt.Name, clock.FormatCompact(bt.Duration), bt.IsActive)
	}
	return tw.Flush()
}

func runStart(ctx context.Context, c *client.Client, args []string) error {
	if len(args) < 1 {
		return errors.New("usage: start <type-id>")
	}
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid break type id %q", args[0])
	}

	session, err := c.StartBreak(ctx, id)
	if errors.Is(err, breaks.ErrConflict) {
		return errors.New("you already have an ongoing break; end it first")
	}
	if err != nil {
		return err
	}
	fmt.Printf("Started %s break, ends at %s\n",
		session.BreakType.Name, session.ExpectedEndTime.Local().Format("15:04:05"))
	return nil
}

func runEnd(ctx context.Context, c *client.Client) error {
	session, err := c.EndBreak(ctx)
	if errors.Is(err, breaks.ErrInvalidState) {
		return errors.New("no ongoing break to end")
	}
	if err != nil {
		return err
	}
	if session.ViolationDuration != nil {
		fmt.Printf("Break ended, %s over the limit.\n", clock.FormatCompact(*session.ViolationDuration))
	} else {
		fmt.Println("Break ended on time.")
	}
	return nil
}

// runWatch renders the live countdown and reacts to push events until the
// break ends or the user interrupts.
func runWatch(ctx context.Context, c *client.Client, credsPath string, userID int64) error {
	clk := clock.System()
	rec := client.NewReconciler(c, clk)

	snap, err := rec.Refresh(ctx)
	if err != nil {
		return err
	}

	watchCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	dispatcher := client.NewDispatcher(userID, client.Hooks{
		OnAlert: func(a client.Alert) {
			fmt.Printf("\n*** %s ***\a\n", a.Message)
		},
		OnAlertPulse: func(a client.Alert) {
			// keep ringing until the alert expires or is replaced
			fmt.Printf("\n*** %s ***\a\n", a.Message)
		},
		OnRefresh: func(ctx context.Context) {
			_, _ = rec.Refresh(ctx)
		},
		OnForceLogout: func(reason string) {
			fmt.Printf("\nSession terminated: %s\n", reason)
			_ = client.ClearCredentials(credsPath)
			cancel()
		},
	})
	defer dispatcher.Close()

	stream := client.NewStream(c, dispatcher.Dispatch)
	go func() { _ = stream.Run(watchCtx) }()

	var handle *timer.Handle
	defer func() {
		if handle != nil {
			handle.Cancel()
		}
	}()

	for {
		if snap.Session == nil {
			fmt.Println("Not on a break. Waiting for one to start...")
			select {
			case <-watchCtx.Done():
				return watchCtx.Err()
			case <-time.After(5 * time.Second):
			}
			snap, err = rec.Refresh(watchCtx)
			if err != nil && !client.IsNetworkError(err) {
				return err
			}
			continue
		}

		session := *snap.Session
		fmt.Printf("On %s break until %s\n",
			session.BreakType.Name, session.ExpectedEndTime.Local().Format("15:04:05"))

		tickerDone := make(chan struct{})
		handle = timer.Observe(clk, session, timer.Hooks{
			OnTick: func(t timer.Tick) {
				if t.IsViolation {
					fmt.Printf("\rOVER by %s  ", clock.FormatHMS(t.ElapsedOrRemaining))
				} else {
					fmt.Printf("\r%s remaining", clock.FormatHMS(t.ElapsedOrRemaining))
				}
			},
			OnViolationOnset: func() {
				fmt.Print("\a") // terminal bell, once
			},
		})

		// poll until the session leaves the snapshot (ended elsewhere or here)
		go func() {
			defer close(tickerDone)
			for {
				select {
				case <-watchCtx.Done():
					return
				case <-time.After(5 * time.Second):
				}
				fresh, err := rec.Refresh(watchCtx)
				if err != nil {
					continue
				}
				if fresh.Session == nil || fresh.Session.ID != session.ID {
					snap = fresh
					return
				}
			}
		}()

		select {
		case <-watchCtx.Done():
			handle.Cancel()
			handle.Wait()
			fmt.Println()
			return watchCtx.Err()
		case <-tickerDone:
			handle.Cancel()
			handle.Wait()
			fmt.Println("\nBreak finished.")
		}
	}
}

func runPasswd(ctx context.Context, c *client.Client, credsPath string) error {
	reader := bufio.NewReader(os.Stdin)

	fmt.Fprint(os.Stderr, "Current password: ")
	current, err := reader.ReadString('\n')
	if err != nil {
		return fmt.Errorf("read password: %w", err)
	}
	fmt.Fprint(os.Stderr, "New password: ")
	next, err := reader.ReadString('\n')
	if err != nil {
		return fmt.Errorf("read password: %w", err)
	}

	if err := c.ChangePassword(ctx, strings.TrimSpace(current), strings.TrimSpace(next)); err != nil {
		return err
	}

	// the server rotates the token on password change
	creds, err := client.LoadCredentials(credsPath)
	if err == nil {
		creds.Token = c.Token()
		_ = client.SaveCredentials(credsPath, creds)
	}
	fmt.Println("Password changed.")
	return nil
}

func runHistory(ctx context.Context, c *client.Client, args []string) error {
	all := false
	if len(args) > 0 && args[0] == "all" {
		all = true
		args = args[1:]
	}
	limit := 20
	if len(args) > 0 {
		if n, err := strconv.Atoi(args[0]); err == nil {
			limit = n
		}
	}

	if all {
		return printHistoryAll(ctx, c, limit)
	}

	history, err := c.History(ctx, limit)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "START\tTYPE\tSTATUS\tOVERRUN")
	for _, s := range history {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n",
			s.StartTime.Local().Format("2006-01-02 15:04"), s.BreakType.Name, s.Status, overrunLabel(s))
	}
	return tw.Flush()
}

func printHistoryAll(ctx context.Context, c *client.Client, limit int) error {
	history, err := c.HistoryAll(ctx, limit)
	if errors.Is(err, breaks.ErrForbidden) {
		return errors.New("history all requires a manager role")
	}
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "START\tUSER\tTYPE\tSTATUS\tOVERRUN")
	for _, s := range history {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			s.StartTime.Local().Format("2006-01-02 15:04"), s.UserName, s.BreakType.Name,
			s.Status, overrunLabel(s.Session))
	}
	return tw.Flush()
}

func runUsers(ctx context.Context, c *client.Client) error {
	users, err := c.Users(ctx)
	if errors.Is(err, breaks.ErrForbidden) {
		return errors.New("users requires a manager role")
	}
	if err != nil {
		return err
	}

	now := time.Now()
	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tROLE\tONLINE\tCURRENT BREAK")
	for _, u := range users {
		current := "-"
		if len(u.BreakSessions) > 0 {
			s := u.BreakSessions[0]
			if s.IsOverrun(now) {
				current = fmt.Sprintf("%s, OVER by %s", s.BreakType.Name, clock.FormatCompact(s.CurrentViolation(now)))
			} else {
				current = fmt.Sprintf("%s, %s left", s.BreakType.Name, clock.FormatCompact(s.Remaining(now)))
			}
		}
		online := "no"
		if u.IsOnline {
			online = "yes"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", u.Name, u.Role, online, current)
	}
	return tw.Flush()
}

func overrunLabel(s breaks.Session) string {
	if s.ViolationDuration != nil {
		return clock.FormatCompact(*s.ViolationDuration)
	}
	return "-"
}

func printSession(s breaks.Session, now time.Time) {
	fmt.Printf("On %s break since %s\n", s.BreakType.Name, s.StartTime.Local().Format("15:04:05"))
	if s.IsOverrun(now) {
		fmt.Printf("OVER the limit by %s\n", clock.FormatCompact(s.CurrentViolation(now)))
	} else {
		fmt.Printf("%s remaining (ends %s)\n",
			clock.FormatCompact(s.Remaining(now)), s.ExpectedEndTime.Local().Format("15:04:05"))
	}
}
