package cli

import (
	"context"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/magabrotheeeer/mirzo-ai/internal/lib/phone"
	"github.com/magabrotheeeer/mirzo-ai/internal/models"
	"github.com/magabrotheeeer/mirzo-ai/internal/services/auth"
)

func (r *runtime) loginCmd() *cobra.Command {
	var phoneNumber, password string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in with phone number and password",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			r.app.Controller.ShowAuth()

			var err error
			if phoneNumber, err = r.valueOrPrompt(phoneNumber, "Phone", false); err != nil {
				return err
			}
			if password, err = r.valueOrPrompt(password, "Password", true); err != nil {
				return err
			}

			user, err := r.app.Auth.Login(ctx, auth.LoginForm{PhoneNumber: phoneNumber, Password: password})
			if err != nil {
				return err
			}
			return r.signedIn(ctx, user)
		},
	}
	cmd.Flags().StringVar(&phoneNumber, "phone", "", "phone number, e.g. 901234567")
	cmd.Flags().StringVar(&password, "password", "", "password (supply to avoid prompt)")
	return cmd
}

func (r *runtime) registerCmd() *cobra.Command {
	var form auth.RegisterForm

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			r.app.Controller.ShowAuth()

			var err error
			if form.FullName, err = r.valueOrPrompt(form.FullName, "Full name", false); err != nil {
				return err
			}
			if form.PhoneNumber, err = r.valueOrPrompt(form.PhoneNumber, "Phone", false); err != nil {
				return err
			}
			if form.Organization, err = r.valueOrPrompt(form.Organization, "Organization", false); err != nil {
				return err
			}
			if form.Password, err = r.valueOrPrompt(form.Password, "Password", true); err != nil {
				return err
			}
			if form.Password2, err = r.valueOrPrompt(form.Password2, "Repeat password", true); err != nil {
				return err
			}

			user, err := r.app.Auth.Register(ctx, form)
			if err != nil {
				return err
			}
			return r.signedIn(ctx, user)
		},
	}
	flags := cmd.Flags()
	flags.StringVar(&form.FullName, "name", "", "full name")
	flags.StringVar(&form.PhoneNumber, "phone", "", "phone number, e.g. 901234567")
	flags.StringVar(&form.Organization, "org", "", "organization")
	flags.StringVar(&form.Password, "password", "", "password (supply to avoid prompt)")
	flags.StringVar(&form.Password2, "password2", "", "password confirmation (supply to avoid prompt)")
	return cmd
}

func (r *runtime) adminLoginCmd() *cobra.Command {
	var secret string

	cmd := &cobra.Command{
		Use:   "admin-login",
		Short: "Sign in as administrator with the admin secret",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			r.app.Controller.ShowAuth()

			var err error
			if secret, err = r.valueOrPrompt(secret, "Admin secret", true); err != nil {
				return err
			}
			user, err := r.app.Auth.LoginAsAdmin(ctx, secret)
			if err != nil {
				return err
			}
			return r.signedIn(ctx, user)
		},
	}
	cmd.Flags().StringVar(&secret, "secret", "", "admin secret (supply to avoid prompt)")
	return cmd
}

// signedIn переводит контроллер в состояние после входа и печатает итог.
func (r *runtime) signedIn(_ context.Context, user *models.User) error {
	r.app.Controller.Login(user)

	name := user.FullName
	if name == "" {
		name = phone.Display(user.PhoneNumber)
	}
	r.printer.Success("Signed in as %s", r.printer.Bold(name))
	if user.IsAdmin {
		r.printer.Info("Administrator session: see `mirzo admin --help`")
		return nil
	}
	r.printer.Field("Subscription", r.printer.StatusBadge(user.SubscriptionStatus))
	if user.SubscriptionStatus == models.StatusPending {
		r.printer.Info("Your receipt is under review: run `mirzo subscription wait`")
	}
	return nil
}

func (r *runtime) logoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out and forget the stored token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := r.app.Controller.Logout(cmd.Context()); err != nil {
				return err
			}
			r.printer.Success("Signed out")
			return nil
		},
	}
}

func (r *runtime) whoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			user, err := r.session(cmd.Context())
			if err != nil {
				return err
			}
			r.printUser(user)
			return nil
		},
	}
}

func (r *runtime) printUser(user *models.User) {
	r.printer.Header(user.FullName)
	r.printer.Field("ID", user.ID)
	r.printer.Field("Phone", phone.Display(user.PhoneNumber))
	r.printer.Field("Organization", user.Organization)
	r.printer.Field("Subscription", r.printer.StatusBadge(user.SubscriptionStatus))
	if user.SubscriptionExpiry != nil {
		r.printer.Field("Expires", user.SubscriptionExpiry.Local().Format("2006-01-02"))
	}
	if user.IsAdmin {
		r.printer.Field("Role", "administrator")
	}
	r.printer.Field("Documents", strconv.Itoa(len(user.History)))
}
