package commands

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dyluth/boardsync/internal/identity"
	"github.com/dyluth/boardsync/internal/printer"
	"github.com/dyluth/boardsync/pkg/board"
)

func newLoginCmd(g *globalOptions) *cobra.Command {
	var (
		fullName string
		username string
		imgURL   string
	)

	cmd := &cobra.Command{
		Use:   "login USER_ID",
		Short: "Set the user that posts updates from this machine",
		Long: `Set the session user. The profile is created or updated when --name,
--username or --img is given; otherwise USER_ID must already be known.

Examples:
  boardsync login u1 --name "Ada Lovelace"
  boardsync login u1`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			s, err := openSession(ctx, g, nil)
			if err != nil {
				return err
			}
			defer s.Close()

			userID := args[0]
			if fullName != "" || username != "" || imgURL != "" {
				u := board.User{ID: userID, FullName: fullName, Username: username, ImgURL: imgURL}
				if existing, err := s.identity.GetByID(ctx, userID); err == nil {
					u.Activities = existing.Activities
				}
				if _, err := s.orch.SaveUser(ctx, u); err != nil {
					return fmt.Errorf("failed to save user: %w", err)
				}
			}

			u, err := s.identity.Login(ctx, userID)
			if err != nil {
				if errors.Is(err, identity.ErrUserNotFound) {
					return printer.Error(
						fmt.Sprintf("unknown user '%s'", userID),
						"No profile is stored for that user id.",
						[]string{fmt.Sprintf("Create it while logging in:\n  boardsync login %s --name \"Full Name\"", userID)},
					)
				}
				return fmt.Errorf("failed to log in: %w", err)
			}

			printer.Success("Logged in as %s (%s)\n", displayName(u), u.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&fullName, "name", "", "Full name")
	cmd.Flags().StringVar(&username, "username", "", "Username")
	cmd.Flags().StringVar(&imgURL, "img", "", "Avatar URL")

	return cmd
}

func newLogoutCmd(g *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Clear the session user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			s, err := openSession(ctx, g, nil)
			if err != nil {
				return err
			}
			defer s.Close()

			if err := s.identity.Logout(ctx); err != nil {
				return fmt.Errorf("failed to log out: %w", err)
			}
			printer.Success("Logged out\n")
			return nil
		},
	}
}

func displayName(u board.User) string {
	if u.FullName != "" {
		return u.FullName
	}
	if u.Username != "" {
		return u.Username
	}
	return u.ID
}
