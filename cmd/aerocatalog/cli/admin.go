package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/PDPyeh/AeroCatalog-103-C/internal/model"
	"github.com/PDPyeh/AeroCatalog-103-C/internal/service"
	"github.com/PDPyeh/AeroCatalog-103-C/internal/store"
)

func newAdminCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "admin",
		Short: "Manage admin users",
		Long:  "Create, list and deactivate the administrators who curate the aircraft catalog.",
	}

	cmd.AddCommand(newAdminCreateCmd())
	cmd.AddCommand(newAdminListCmd())
	cmd.AddCommand(newAdminDeactivateCmd())

	return cmd
}

// ---------- admin create ----------

func newAdminCreateCmd() *cobra.Command {
	var (
		email    string
		password string
		name     string
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a new admin user",
		Example: `  aerocatalog admin create --email admin@example.com --password secret123
  aerocatalog admin create --email admin@example.com  # prompts for password`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if password == "" {
				pw, err := promptPassword()
				if err != nil {
					return err
				}
				password = pw
			}
			st, err := openConfiguredStore()
			if err != nil {
				return err
			}
			defer st.Close()
			return runAdminCreate(cmd.Context(), st, cmd.OutOrStdout(), email, password, name)
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "Admin email address (required)")
	cmd.Flags().StringVar(&password, "password", "", "Admin password (prompted if omitted)")
	cmd.Flags().StringVar(&name, "name", "", "Admin display name")
	cmd.MarkFlagRequired("email")

	return cmd
}

func promptPassword() (string, error) {
	fmt.Print("Password: ")
	pwBytes, err := term.ReadPassword(int(os.Stdin.Fd()))
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	fmt.Println()

	fmt.Print("Confirm password: ")
	confirmBytes, err := term.ReadPassword(int(os.Stdin.Fd()))
	if err != nil {
		return "", fmt.Errorf("failed to read confirmation: %w", err)
	}
	fmt.Println()

	if string(pwBytes) != string(confirmBytes) {
		return "", fmt.Errorf("passwords do not match")
	}
	return string(pwBytes), nil
}

func runAdminCreate(ctx context.Context, st *store.Store, out io.Writer, email, password, name string) error {
	email = strings.TrimSpace(email)
	if !strings.Contains(email, "@") {
		return fmt.Errorf("invalid email address: %q", email)
	}
	if len(password) < 8 {
		return fmt.Errorf("password must be at least 8 characters")
	}
	if name == "" {
		name = email[:strings.Index(email, "@")]
	}

	hash, err := service.HashPassword(password)
	if err != nil {
		return err
	}
	admin := &model.Admin{Email: email, PasswordHash: hash, Name: name, IsActive: true}
	if err := st.CreateAdmin(ctx, admin); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return fmt.Errorf("an admin with email %q already exists", email)
		}
		return err
	}

	fmt.Fprintf(out, "Created admin user %q (id %d)\n", admin.Email, admin.ID)
	return nil
}

// ---------- admin list ----------

func newAdminListCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List all admin users",
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := openConfiguredStore()
			if err != nil {
				return err
			}
			defer st.Close()
			return runAdminList(cmd.Context(), st, cmd.OutOrStdout(), jsonOutput)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")

	return cmd
}

func runAdminList(ctx context.Context, st *store.Store, out io.Writer, jsonOutput bool) error {
	admins, err := st.ListAdmins(ctx)
	if err != nil {
		return err
	}

	if jsonOutput {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(admins)
	}

	if len(admins) == 0 {
		fmt.Fprintln(out, "No admin users configured. Use 'aerocatalog admin create' to create one.")
		return nil
	}

	fmt.Fprintf(out, "%-30s %-24s %-8s %s\n", "EMAIL", "NAME", "ACTIVE", "LAST LOGIN")
	fmt.Fprintf(out, "%-30s %-24s %-8s %s\n", "-----", "----", "------", "----------")
	for _, a := range admins {
		active := "yes"
		if !a.IsActive {
			active = "no"
		}
		lastLogin := "never"
		if a.LastLoginAt != nil {
			lastLogin = humanize.Time(*a.LastLoginAt)
		}
		fmt.Fprintf(out, "%-30s %-24s %-8s %s\n", a.Email, a.Name, active, lastLogin)
	}

	return nil
}

// ---------- admin deactivate ----------

func newAdminDeactivateCmd() *cobra.Command {
	var reactivate bool

	cmd := &cobra.Command{
		Use:   "deactivate <email>",
		Short: "Deactivate (or with --undo, reactivate) an admin user",
		Long:  "Admins are never deleted. A deactivated admin can no longer log in.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := openConfiguredStore()
			if err != nil {
				return err
			}
			defer st.Close()
			return runAdminSetActive(cmd.Context(), st, cmd.OutOrStdout(), args[0], reactivate)
		},
	}

	cmd.Flags().BoolVar(&reactivate, "undo", false, "Reactivate the admin instead")

	return cmd
}

func runAdminSetActive(ctx context.Context, st *store.Store, out io.Writer, email string, active bool) error {
	if err := st.SetAdminActive(ctx, email, active); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("no admin with email %q", email)
		}
		return err
	}
	state := "Deactivated"
	if active {
		state = "Reactivated"
	}
	fmt.Fprintf(out, "%s admin %q\n", state, email)
	return nil
}

// openConfiguredStore loads the configuration and opens its database.
func openConfiguredStore() (*store.Store, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return openStore(cfg)
}
