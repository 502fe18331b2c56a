package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/magabrotheeeer/mirzo-ai/internal/lib/phone"
	"github.com/magabrotheeeer/mirzo-ai/internal/models"
	"github.com/magabrotheeeer/mirzo-ai/internal/services/admin"
)

func (r *runtime) adminCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "admin",
		Short: "Administrator tools: users, approvals, stats, API key",
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := r.init(cmd.Context()); err != nil {
				return err
			}
			_, err := r.requireAdmin(cmd.Context())
			return err
		},
	}
	cmd.AddCommand(
		r.adminUsersCmd(),
		r.adminUserCmd(),
		r.adminCreateCmd(),
		r.adminUpdateCmd(),
		r.adminDeleteCmd(),
		r.adminDecisionCmd("approve", "Activate the user's subscription", r.adminApprove),
		r.adminDecisionCmd("reject", "Reject the user's receipt", r.adminReject),
		r.adminStatsCmd(),
		r.adminAPIKeyCmd(),
	)
	return cmd
}

func (r *runtime) adminUsersCmd() *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "users",
		Short: "List users (pending review by default)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			filter := admin.FilterPending
			if all {
				filter = admin.FilterAll
			}
			users, err := r.app.Admin.Users(cmd.Context(), filter)
			if err != nil {
				return err
			}
			if len(users) == 0 {
				r.printer.Info("No users")
				return nil
			}
			tbl := r.printer.NewTable("ID", "Name", "Phone", "Organization", "Status", "Expires")
			for _, u := range users {
				expires := ""
				if u.SubscriptionExpiry != nil {
					expires = u.SubscriptionExpiry.Local().Format("2006-01-02")
				}
				name := u.FullName
				if u.IsAdmin {
					name += " (admin)"
				}
				tbl.AddRow(u.ID, name, phone.Display(u.PhoneNumber), u.Organization, string(u.SubscriptionStatus), expires)
			}
			return tbl.Render()
		},
	}
	cmd.Flags().BoolVarP(&all, "all", "a", false, "list every user, not only pending ones")
	return cmd
}

func (r *runtime) adminUserCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "user <id>",
		Short: "Show one user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			user, err := r.app.Admin.User(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			r.printUser(user)
			return nil
		},
	}
}

// userFlags — флаги формы пользователя, общие для create и update.
type userFlags struct {
	fullName, phoneNumber, password, organization, status string
	isAdmin, isActive                                     bool
}

func (f *userFlags) register(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.StringVar(&f.fullName, "name", "", "full name")
	flags.StringVar(&f.phoneNumber, "phone", "", "phone number")
	flags.StringVar(&f.password, "password", "", "password (at least 6 characters)")
	flags.StringVar(&f.organization, "org", "", "organization")
	flags.StringVar(&f.status, "status", "", "subscription status: NONE, PENDING or ACTIVE")
	flags.BoolVar(&f.isAdmin, "admin", false, "grant administrator rights")
	flags.BoolVar(&f.isActive, "active", true, "account is active")
}

// apply переносит в форму только заданные флаги.
func (f *userFlags) apply(cmd *cobra.Command, form *admin.UserForm) {
	flags := cmd.Flags()
	if flags.Changed("name") {
		form.FullName = f.fullName
	}
	if flags.Changed("phone") {
		form.PhoneNumber = phone.Normalize(f.phoneNumber)
	}
	if flags.Changed("password") {
		form.Password = f.password
	}
	if flags.Changed("org") {
		form.Organization = f.organization
	}
	if flags.Changed("status") {
		form.SubscriptionStatus = models.SubscriptionStatus(strings.ToUpper(f.status))
	}
	if flags.Changed("admin") {
		form.IsAdmin = &f.isAdmin
	}
	if flags.Changed("active") {
		form.IsActive = &f.isActive
	}
}

func (r *runtime) adminCreateCmd() *cobra.Command {
	var f userFlags

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var form admin.UserForm
			f.apply(cmd, &form)

			user, err := r.app.Admin.Save(cmd.Context(), form)
			if err != nil {
				return err
			}
			if user == nil {
				r.printer.Success("User created")
				return nil
			}
			r.printer.Success("User %s created", user.ID)
			r.printUser(user)
			return nil
		},
	}
	f.register(cmd)
	return cmd
}

func (r *runtime) adminUpdateCmd() *cobra.Command {
	var f userFlags

	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Change user fields; only the given flags are sent",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			current, err := r.app.Admin.User(ctx, args[0])
			if err != nil {
				return err
			}
			form := admin.UserForm{
				ID:           current.ID,
				FullName:     current.FullName,
				PhoneNumber:  phone.Normalize(current.PhoneNumber),
				Organization: current.Organization,
			}
			f.apply(cmd, &form)

			user, err := r.app.Admin.Save(ctx, form)
			if err != nil {
				return err
			}
			r.printer.Success("User %s updated", current.ID)
			if user != nil {
				r.printUser(user)
			}
			return nil
		},
	}
	f.register(cmd)
	return cmd
}

func (r *runtime) adminDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := r.app.Admin.Delete(cmd.Context(), args[0]); err != nil {
				return err
			}
			r.printer.Success("User %s deleted", args[0])
			return nil
		},
	}
}

func (r *runtime) adminApprove(cmd *cobra.Command, id string) error {
	if err := r.app.Admin.Approve(cmd.Context(), id); err != nil {
		return err
	}
	r.printer.Success("Subscription of %s activated", id)
	return nil
}

func (r *runtime) adminReject(cmd *cobra.Command, id string) error {
	if err := r.app.Admin.Reject(cmd.Context(), id); err != nil {
		return err
	}
	r.printer.Success("Receipt of %s rejected", id)
	return nil
}

func (r *runtime) adminDecisionCmd(use, short string, run func(*cobra.Command, string) error) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, args[0])
		},
	}
}

func (r *runtime) adminStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Pending receipts, active subscriptions and earnings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			stats := r.app.Admin.Stats(cmd.Context())
			r.printer.Field("Pending", fmt.Sprint(stats.PendingCount))
			r.printer.Field("Active", fmt.Sprint(stats.ActiveCount))
			r.printer.Field("Earnings", fmt.Sprintf("%.0f so'm", stats.TotalEarnings))
			return nil
		},
	}
}

func (r *runtime) adminAPIKeyCmd() *cobra.Command {
	var set string

	cmd := &cobra.Command{
		Use:   "apikey",
		Short: "Show or replace the AI provider API key",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			if cmd.Flags().Changed("set") {
				if err := r.app.Admin.UpdateAPIKey(ctx, set); err != nil {
					return err
				}
				r.printer.Success("API key updated")
			}
			key, err := r.app.Admin.APIKey(ctx)
			if err != nil {
				return err
			}
			r.printer.Field("API key", key)
			return nil
		},
	}
	cmd.Flags().StringVar(&set, "set", "", "new API key")
	return cmd
}
