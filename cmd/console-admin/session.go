package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	domainauth "github.com/serm-lab/admin-console/internal/domain/auth"
)

type credentialOptions struct {
	Email         string
	Password      string
	PasswordStdin bool
	Timeout       time.Duration
}

type emailOptions struct {
	Email   string
	Timeout time.Duration
}

type codeOptions struct {
	Code          string
	Password      string
	PasswordStdin bool
	Timeout       time.Duration
}

type timeoutOptions struct {
	Timeout time.Duration
}

func parseCredentialFlags(name string, args []string) (credentialOptions, error) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	opts := credentialOptions{Timeout: defaultCommandTimeout}
	fs.StringVar(&opts.Email, "email", "", "Account email (required)")
	fs.StringVar(&opts.Password, "password", "", "Account password (prefer --password-stdin)")
	fs.BoolVar(&opts.PasswordStdin, "password-stdin", false, "Read the password from the first line of stdin")
	fs.DurationVar(&opts.Timeout, "timeout", defaultCommandTimeout, "Maximum duration to wait for the backend")

	if err := fs.Parse(args); err != nil {
		return credentialOptions{}, err
	}

	opts.Email = strings.TrimSpace(opts.Email)
	if opts.Email == "" {
		return credentialOptions{}, errors.New("--email is required")
	}
	if opts.PasswordStdin && opts.Password != "" {
		return credentialOptions{}, errors.New("--password and --password-stdin are mutually exclusive")
	}
	if !opts.PasswordStdin && opts.Password == "" {
		return credentialOptions{}, errors.New("--password or --password-stdin is required")
	}
	return opts, nil
}

func parseEmailFlags(name string, args []string) (emailOptions, error) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	opts := emailOptions{Timeout: defaultCommandTimeout}
	fs.StringVar(&opts.Email, "email", "", "Account email (required)")
	fs.DurationVar(&opts.Timeout, "timeout", defaultCommandTimeout, "Maximum duration to wait for the backend")

	if err := fs.Parse(args); err != nil {
		return emailOptions{}, err
	}
	opts.Email = strings.TrimSpace(opts.Email)
	if opts.Email == "" {
		return emailOptions{}, errors.New("--email is required")
	}
	return opts, nil
}

func parseCodeFlags(name string, args []string, wantPassword bool) (codeOptions, error) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	opts := codeOptions{Timeout: defaultCommandTimeout}
	fs.StringVar(&opts.Code, "code", "", "Code from the mailed link (required)")
	if wantPassword {
		fs.StringVar(&opts.Password, "password", "", "New password (prefer --password-stdin)")
		fs.BoolVar(&opts.PasswordStdin, "password-stdin", false, "Read the new password from the first line of stdin")
	}
	fs.DurationVar(&opts.Timeout, "timeout", defaultCommandTimeout, "Maximum duration to wait for the backend")

	if err := fs.Parse(args); err != nil {
		return codeOptions{}, err
	}
	opts.Code = strings.TrimSpace(opts.Code)
	if opts.Code == "" {
		return codeOptions{}, errors.New("--code is required")
	}
	if wantPassword && !opts.PasswordStdin && opts.Password == "" {
		return codeOptions{}, errors.New("--password or --password-stdin is required")
	}
	return opts, nil
}

func parseTimeoutFlags(name string, args []string) (timeoutOptions, error) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	opts := timeoutOptions{Timeout: defaultCommandTimeout}
	fs.DurationVar(&opts.Timeout, "timeout", defaultCommandTimeout, "Maximum duration to wait for the backend")
	if err := fs.Parse(args); err != nil {
		return timeoutOptions{}, err
	}
	return opts, nil
}

// readPassword returns the first line of r without its line ending.
func readPassword(r io.Reader) (string, error) {
	if r == nil {
		return "", errors.New("no stdin available")
	}
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read password: %w", err)
	}
	line = strings.TrimRight(line, "\r\n")
	if line == "" {
		return "", errors.New("empty password on stdin")
	}
	return line, nil
}

func runLogin(cmdCtx *commandContext, args []string) error {
	opts, err := parseCredentialFlags("login", args)
	if err != nil {
		return err
	}
	if opts.PasswordStdin {
		if opts.Password, err = readPassword(cmdCtx.In); err != nil {
			return err
		}
	}

	return withSession(cmdCtx, opts.Timeout, func(ctx context.Context, s sessionClient) error {
		user, err := s.Login(ctx, domainauth.Credentials{Email: opts.Email, Password: opts.Password})
		if err != nil {
			return fmt.Errorf("login: %w", err)
		}
		if err := writef(cmdCtx.Out, "Logged in.\n"); err != nil {
			return err
		}
		return printUser(cmdCtx.Out, domainauth.PhaseAuthenticated, &user)
	})
}

func runWhoami(cmdCtx *commandContext, args []string) error {
	opts, err := parseTimeoutFlags("whoami", args)
	if err != nil {
		return err
	}

	return withSession(cmdCtx, opts.Timeout, func(ctx context.Context, s sessionClient) error {
		if err := s.Load(ctx); err != nil {
			return fmt.Errorf("restore session: %w", err)
		}
		phase, sess := s.Snapshot()
		return printUser(cmdCtx.Out, phase, sess.User)
	})
}

func runLogout(cmdCtx *commandContext, args []string) error {
	opts, err := parseTimeoutFlags("logout", args)
	if err != nil {
		return err
	}

	return withSession(cmdCtx, opts.Timeout, func(ctx context.Context, s sessionClient) error {
		if err := s.Load(ctx); err != nil {
			return fmt.Errorf("restore session: %w", err)
		}
		if !s.State().IsAuthenticated {
			return writef(cmdCtx.Out, "Not logged in.\n")
		}
		s.Logout(ctx)
		return writef(cmdCtx.Out, "Logged out.\n")
	})
}

func runStartResetPassword(cmdCtx *commandContext, args []string) error {
	opts, err := parseEmailFlags("start-reset-password", args)
	if err != nil {
		return err
	}

	return withSession(cmdCtx, opts.Timeout, func(ctx context.Context, s sessionClient) error {
		if err := s.StartResetPassword(ctx, opts.Email); err != nil {
			return fmt.Errorf("start reset password: %w", err)
		}
		return writef(cmdCtx.Out, "Reset code sent to %s.\n", opts.Email)
	})
}

func runResetPassword(cmdCtx *commandContext, args []string) error {
	opts, err := parseCodeFlags("reset-password", args, true)
	if err != nil {
		return err
	}
	if opts.PasswordStdin {
		if opts.Password, err = readPassword(cmdCtx.In); err != nil {
			return err
		}
	}

	return withSession(cmdCtx, opts.Timeout, func(ctx context.Context, s sessionClient) error {
		user, err := s.ResetPassword(ctx, opts.Code, opts.Password)
		if err != nil {
			return fmt.Errorf("reset password: %w", err)
		}
		if err := writef(cmdCtx.Out, "Password updated.\n"); err != nil {
			return err
		}
		return printUser(cmdCtx.Out, s.Phase(), &user)
	})
}

func runRegister(cmdCtx *commandContext, args []string) error {
	opts, err := parseCredentialFlags("register", args)
	if err != nil {
		return err
	}
	if opts.PasswordStdin {
		if opts.Password, err = readPassword(cmdCtx.In); err != nil {
			return err
		}
	}

	return withSession(cmdCtx, opts.Timeout, func(ctx context.Context, s sessionClient) error {
		if err := s.Register(ctx, domainauth.Credentials{Email: opts.Email, Password: opts.Password}); err != nil {
			return fmt.Errorf("register: %w", err)
		}
		return writef(cmdCtx.Out, "Registered %s; check the mailbox for the activation code.\n", opts.Email)
	})
}

func runActivate(cmdCtx *commandContext, args []string) error {
	opts, err := parseCodeFlags("activate", args, false)
	if err != nil {
		return err
	}

	return withSession(cmdCtx, opts.Timeout, func(ctx context.Context, s sessionClient) error {
		user, err := s.Activate(ctx, opts.Code)
		if err != nil {
			return fmt.Errorf("activate: %w", err)
		}
		if err := writef(cmdCtx.Out, "Account activated.\n"); err != nil {
			return err
		}
		return printUser(cmdCtx.Out, s.Phase(), &user)
	})
}

func printUser(w io.Writer, phase domainauth.Phase, user *domainauth.User) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	if err := writef(tw, "PHASE\t%s\n", phase); err != nil {
		return fmt.Errorf("write phase row: %w", err)
	}
	if user == nil {
		return tw.Flush()
	}
	rows := [][2]string{
		{"ID", user.ID.String()},
		{"EMAIL", user.Email},
		{"ROLES", strings.Join(user.RoleNames(), ",")},
		{"ENABLED", fmt.Sprint(user.IsEnabled)},
		{"ACTIVE", fmt.Sprint(user.IsActive)},
	}
	for _, row := range rows {
		if err := writef(tw, "%s\t%s\n", row[0], row[1]); err != nil {
			return fmt.Errorf("write %s row: %w", strings.ToLower(row[0]), err)
		}
	}
	return tw.Flush()
}
