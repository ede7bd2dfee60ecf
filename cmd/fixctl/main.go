// Copyright (c) 2026 Fixaroo. All rights reserved.
// Author: dev@fixaroo.app

// Command fixctl is the terminal client for the Fixaroo API.
//
// It drives the login/verification flow against a running server and keeps
// the resulting session on disk, so subsequent invocations stay signed in:
//
//	fixctl login              # prompts for email and password
//	fixctl resend             # requests a fresh verification code
//	fixctl whoami             # shows the stored session
//	fixctl logout             # clears the stored session
//
// The API base URL comes from -server or the FIXAROO_API_URL environment
// variable; session state lives under ~/.fixaroo.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"golang.org/x/term"

	"github.com/fixaroo/fixaroo/internal/client/authflow"
)

const defaultServerURL = "http://localhost:8080"

func main() {
	serverURL := flag.String("server", "", "API base URL (defaults to $FIXAROO_API_URL)")
	flag.Usage = usage
	flag.Parse()

	if flag.NArg() < 1 {
		usage()
		os.Exit(2)
	}

	baseURL := *serverURL
	if baseURL == "" {
		baseURL = os.Getenv("FIXAROO_API_URL")
	}
	if baseURL == "" {
		baseURL = defaultServerURL
	}
	baseURL = strings.TrimRight(baseURL, "/")

	controller, err := newController(baseURL)
	if err != nil {
		fatal(err)
	}

	// A Ctrl-C during a retry backoff abandons the attempt cleanly.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	switch command := flag.Arg(0); command {
	case "login":
		err = runLogin(ctx, controller)
	case "resend":
		err = runResend(ctx, controller)
	case "whoami":
		err = runWhoami(ctx, controller)
	case "logout":
		err = runLogout(ctx, controller)
	default:
		fmt.Fprintf(os.Stderr, "fixctl: unknown command %q\n\n", command)
		usage()
		os.Exit(2)
	}
	if err != nil {
		fatal(err)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "Usage: fixctl [-server URL] <login|resend|whoami|logout>")
	flag.PrintDefaults()
}

func fatal(err error) {
	fmt.Fprintln(os.Stderr, "fixctl:", err.Error())
	os.Exit(1)
}

// newController wires the auth controller against the given server with the
// on-disk session store.
func newController(baseURL string) (*authflow.Controller, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("resolve home directory: %w", err)
	}

	store, err := authflow.NewFileSessionStore(filepath.Join(home, ".fixaroo"))
	if err != nil {
		return nil, err
	}

	return authflow.NewController(authflow.Config{
		LoginURL:  baseURL + "/api/v1/auth/login",
		ResendURL: baseURL + "/api/v1/auth/resend-verification",
		Store:     store,
	}), nil
}

// # Commands

func runLogin(ctx context.Context, controller *authflow.Controller) error {
	reader := bufio.NewReader(os.Stdin)

	identifier, err := promptLine(reader, "Email")
	if err != nil {
		return err
	}
	secret, err := promptPassword()
	if err != nil {
		return err
	}

	credentials := authflow.Credentials{Identifier: identifier, Secret: secret}

	// The challenge loop: keep submitting until the outcome is terminal for
	// the user (authenticated, rejected, or the network gave up).
	for {
		result, err := controller.SubmitLogin(ctx, credentials)
		if err != nil {
			return err
		}

		switch result.Outcome {
		case authflow.OutcomeAuthenticated:
			fmt.Printf("Signed in as %s (%s).\n", result.Session.DisplayName, result.Session.Role)
			return nil

		case authflow.OutcomeAwaitingVerification:
			fmt.Println(result.Err.Message)
			code, promptErr := promptLine(reader, "Verification code")
			if promptErr != nil {
				return promptErr
			}
			credentials.VerificationCode = code

		default:
			return result.Err
		}
	}
}

func runResend(ctx context.Context, controller *authflow.Controller) error {
	reader := bufio.NewReader(os.Stdin)

	identifier, err := promptLine(reader, "Email")
	if err != nil {
		return err
	}

	message, err := controller.RequestVerificationResend(ctx, identifier)
	if err != nil {
		return err
	}

	fmt.Println(message)
	return nil
}

func runWhoami(ctx context.Context, controller *authflow.Controller) error {
	session, err := controller.CurrentSession(ctx)
	if err != nil {
		if errors.Is(err, authflow.ErrNoSession) {
			fmt.Println("Not signed in.")
			return nil
		}
		return err
	}

	fmt.Printf("%s (%s), subject #%d\n", session.DisplayName, session.Role, session.SubjectID)
	return nil
}

func runLogout(ctx context.Context, controller *authflow.Controller) error {
	if err := controller.ClearSession(ctx); err != nil {
		return err
	}
	fmt.Println("Signed out.")
	return nil
}

// # Prompts

func promptLine(reader *bufio.Reader, label string) (string, error) {
	fmt.Printf("%s: ", label)
	line, err := reader.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

func promptPassword() (string, error) {
	fmt.Print("Password: ")
	raw, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Println()
	if err != nil {
		return "", err
	}
	return string(raw), nil
}
