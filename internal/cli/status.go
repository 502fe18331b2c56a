package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/magabrotheeeer/mirzo-ai/internal/app"
	"github.com/magabrotheeeer/mirzo-ai/internal/models"
	"github.com/magabrotheeeer/mirzo-ai/internal/output"
)

func (r *runtime) statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the current screen and subscription state",
		Long: `Restore the session and show which screen the client would open,
together with the subscription status and the days left.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			user := r.app.Boot(cmd.Context())
			ctrl := r.app.Controller

			r.printer.Field("Screen", string(ctrl.Screen()))
			r.printer.Field("View", string(ctrl.View()))
			if user == nil {
				r.printer.Field("Session", "none")
				return nil
			}
			r.printer.Field("User", user.FullName)
			r.printSubscription(user)
			return nil
		},
	}
}

func (r *runtime) printSubscription(user *models.User) {
	st := r.app.Subscription.Describe(user)
	r.printer.Field("Subscription", r.printer.StatusBadge(st.Status))
	if st.Expiry != nil {
		r.printer.Field("Expires", st.Expiry.Local().Format("2006-01-02"))
		r.printer.Field("Days left", fmt.Sprint(st.DaysLeft))
	}
	if st.Expiring {
		r.printer.Warning("Subscription ends in %d day(s), renew it with `mirzo subscription upload`", st.DaysLeft)
	}
}

func viewNames() string {
	names := make([]string, 0, len(app.Views))
	for _, v := range app.Views {
		names = append(names, strings.ToLower(strings.ReplaceAll(string(v), "_", "-")))
	}
	return strings.Join(names, ", ")
}

func (r *runtime) viewCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "view <name>",
		Short: "Check whether a section can be opened",
		Long:  "Open a section the way the client would and print the resulting screen.\nSections: " + viewNames(),
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			view, ok := app.ParseView(args[0])
			if !ok {
				return &output.CLIError{
					Summary:  fmt.Sprintf("unknown section %q", args[0]),
					Detail:   []string{"available: " + viewNames()},
					ExitCode: output.ExitUsageError,
				}
			}

			if _, err := r.open(cmd.Context(), view); err != nil {
				return err
			}
			r.printer.Field("Screen", string(r.app.Controller.Screen()))
			return nil
		},
	}
}

func (r *runtime) profileCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Show or update the profile",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if _, err := r.open(cmd.Context(), app.ViewProfile); err != nil {
				return err
			}
			user, err := r.app.Subscription.Profile(cmd.Context())
			if err != nil {
				return err
			}
			r.printUser(user)
			return nil
		},
	}

	var fullName, organization string
	update := &cobra.Command{
		Use:   "update",
		Short: "Change full name or organization",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if _, err := r.open(cmd.Context(), app.ViewProfile); err != nil {
				return err
			}
			user, err := r.app.Subscription.UpdateProfile(cmd.Context(), fullName, organization)
			if err != nil {
				return err
			}
			r.app.Controller.SetUser(user)
			r.printer.Success("Profile updated")
			r.printUser(user)
			return nil
		},
	}
	update.Flags().StringVar(&fullName, "name", "", "new full name")
	update.Flags().StringVar(&organization, "org", "", "new organization")
	cmd.AddCommand(update)
	return cmd
}
