package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/magabrotheeeer/mirzo-ai/internal/app"
	"github.com/magabrotheeeer/mirzo-ai/internal/lib/attachment"
	"github.com/magabrotheeeer/mirzo-ai/internal/models"
	"github.com/magabrotheeeer/mirzo-ai/internal/output"
	"github.com/magabrotheeeer/mirzo-ai/internal/services/pending"
	"github.com/magabrotheeeer/mirzo-ai/internal/services/subscription"
)

// countdownEvery — как часто печатать оставшееся время ожидания.
const countdownEvery = time.Minute

func (r *runtime) subscriptionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "subscription",
		Aliases: []string{"sub"},
		Short:   "Subscription status, payment receipt and approval",
	}
	cmd.AddCommand(r.subscriptionInfoCmd(), r.subscriptionUploadCmd(), r.subscriptionWaitCmd())
	return cmd
}

func (r *runtime) subscriptionInfoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "info",
		Short: "Show price, payment details and the current status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			user, err := r.open(cmd.Context(), app.ViewSubscription)
			if err != nil {
				return err
			}
			r.printer.Header("Premium")
			r.printer.Field("Price", fmt.Sprintf("$%.2f / month (%d so'm)", subscription.USDPrice, subscription.PriceUZS()))
			r.printer.Field("Card", subscription.PaymentCard)
			r.printSubscription(user)
			if user.SubscriptionStatus == models.StatusNone {
				r.printer.Info("Pay to the card above and send the receipt: `mirzo subscription upload <file>`")
			}
			return nil
		},
	}
}

func (r *runtime) subscriptionUploadCmd() *cobra.Command {
	var wait bool

	cmd := &cobra.Command{
		Use:   "upload <receipt>",
		Short: "Send a payment receipt for review",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if _, err := r.open(ctx, app.ViewSubscription); err != nil {
				return err
			}

			receipt, err := attachment.Load(args[0])
			if err != nil {
				return err
			}
			user, err := r.app.Subscription.UploadReceipt(ctx, &receipt)
			if err != nil {
				return err
			}
			r.app.Controller.SetUser(user)
			r.printer.Success("Receipt %s sent", receipt.Name)
			r.printer.Field("Subscription", r.printer.StatusBadge(user.SubscriptionStatus))

			if user.SubscriptionStatus != models.StatusPending {
				return nil
			}
			r.app.Controller.ChangeView(app.ViewPendingSubscription)
			if !wait {
				r.printer.Info("Run `mirzo subscription wait` to follow the review")
				return nil
			}
			return r.waitForApproval(ctx)
		},
	}
	cmd.Flags().BoolVarP(&wait, "wait", "w", false, "wait for the admin decision after upload")
	return cmd
}

func (r *runtime) subscriptionWaitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "wait",
		Short: "Wait until the admin approves or rejects the receipt",
		Long: `Poll the subscription status until an admin decides. The countdown is
only an estimate: when it runs out, polling continues until Ctrl-C.
With metrics.address configured, Prometheus metrics are served meanwhile.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			user, err := r.open(ctx, app.ViewPendingSubscription)
			if err != nil {
				return err
			}
			switch user.SubscriptionStatus {
			case models.StatusActive:
				r.printer.Success("Subscription is already active")
				return nil
			case models.StatusNone:
				return &output.CLIError{
					Summary:    "no receipt is under review",
					Suggestion: "send one with `mirzo subscription upload <file>`",
					ExitCode:   output.ExitUsageError,
				}
			}
			return r.waitForApproval(ctx)
		},
	}
}

func (r *runtime) waitForApproval(ctx context.Context) error {
	r.printer.Info("Waiting for the admin to review your receipt (about %s)", pending.FormatCountdown(r.cfg.Countdown))

	res, err := r.app.WaitForApproval(ctx, r.printPendingEvent)
	if err != nil {
		return err
	}
	switch res.Outcome {
	case pending.OutcomeApproved:
		r.printer.Success("Subscription activated")
		r.printSubscription(res.User)
		return nil
	default:
		return &output.CLIError{
			Summary:    "receipt was rejected",
			Suggestion: "check the payment and upload a new receipt",
			ExitCode:   output.ExitGeneral,
		}
	}
}

func (r *runtime) printPendingEvent(ev pending.Event) {
	switch ev.Kind {
	case pending.EventTick:
		if ev.Remaining%countdownEvery == 0 {
			r.printer.Print("%s left", pending.FormatCountdown(ev.Remaining))
		}
	case pending.EventCheckFailed:
		r.printer.Warning("Status check failed: %s", toCLIError(ev.Err).Summary)
	case pending.EventTimedOut:
		r.printer.Warning("Review is taking longer than usual, still waiting (Ctrl-C to stop)")
	}
}
