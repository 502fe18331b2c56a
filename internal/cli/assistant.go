package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/magabrotheeeer/mirzo-ai/internal/app"
	"github.com/magabrotheeeer/mirzo-ai/internal/lib/attachment"
	"github.com/magabrotheeeer/mirzo-ai/internal/models"
	"github.com/magabrotheeeer/mirzo-ai/internal/services/assistant"
	"github.com/magabrotheeeer/mirzo-ai/internal/services/daily"
)

func (r *runtime) chatCmd() *cobra.Command {
	var historyFile string

	cmd := &cobra.Command{
		Use:   "chat [message...]",
		Short: "Talk to the assistant",
		Long: `Send a message to the assistant. Without arguments an interactive
session starts; type /exit or press Ctrl-D to leave.

--history keeps the conversation in a JSON file between runs.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if _, err := r.open(ctx, app.ViewDashboard); err != nil {
				return err
			}

			history, err := loadHistory(historyFile)
			if err != nil {
				return err
			}

			if len(args) > 0 {
				history, err = r.chatTurn(ctx, history, strings.Join(args, " "))
				if err != nil {
					return err
				}
				return saveHistory(historyFile, history)
			}

			for {
				line, err := r.prompt("You")
				if errors.Is(err, io.EOF) {
					break
				}
				if err != nil {
					return err
				}
				if line == "" {
					continue
				}
				if line == "/exit" {
					break
				}
				if history, err = r.chatTurn(ctx, history, line); err != nil {
					r.printer.Error("%s", toCLIError(err).Summary)
				}
			}
			return saveHistory(historyFile, history)
		},
	}
	cmd.Flags().StringVar(&historyFile, "history", "", "JSON file to keep the conversation in")
	return cmd
}

// chatTurn отправляет одно сообщение и дописывает обе реплики в историю.
func (r *runtime) chatTurn(ctx context.Context, history []models.ChatMessage, message string) ([]models.ChatMessage, error) {
	reply, err := r.app.Assistant.Chat(ctx, history, message)
	if err != nil {
		return history, err
	}
	r.printer.Raw(reply.Text)
	for _, s := range reply.Sources {
		r.printer.Print("  • %s %s", s.Title, r.printer.Dim(s.URI))
	}
	return append(history,
		models.ChatMessage{Role: models.RoleUser, Text: strings.TrimSpace(message), Timestamp: reply.Timestamp},
		*reply,
	), nil
}

func loadHistory(path string) ([]models.ChatMessage, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read chat history: %w", err)
	}
	var history []models.ChatMessage
	if err := json.Unmarshal(data, &history); err != nil {
		return nil, fmt.Errorf("parse chat history: %w", err)
	}
	return history, nil
}

func saveHistory(path string, history []models.ChatMessage) error {
	if path == "" {
		return nil
	}
	data, err := json.MarshalIndent(history, "", "  ")
	if err != nil {
		return fmt.Errorf("encode chat history: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write chat history: %w", err)
	}
	return nil
}

func (r *runtime) quoteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "quote",
		Short: "Print a motivational quote",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if _, err := r.open(cmd.Context(), app.ViewDashboard); err != nil {
				return err
			}
			r.printer.Raw(r.app.Assistant.Quote(cmd.Context()))
			return nil
		},
	}
}

func (r *runtime) briefingCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "briefing",
		Short: "Print today's briefing",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if _, err := r.open(cmd.Context(), app.ViewDashboard); err != nil {
				return err
			}
			for _, item := range daily.SplitBriefing(r.app.Assistant.Briefing(cmd.Context())) {
				r.printer.Raw("- " + item)
			}
			return nil
		},
	}
}

func (r *runtime) dailyCmd() *cobra.Command {
	var reset bool

	cmd := &cobra.Command{
		Use:   "daily",
		Short: "Show today's quote and briefing (cached for the day)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			user, err := r.open(ctx, app.ViewDashboard)
			if err != nil {
				return err
			}
			if reset {
				if err := r.app.Daily.Reset(ctx, user); err != nil {
					return err
				}
			}

			content, err := r.app.Daily.Load(ctx, user)
			if err != nil {
				return err
			}
			r.printer.Header(content.Date)
			r.printer.Raw(r.printer.Bold(content.Quote))
			if len(content.Briefing) > 0 {
				r.printer.Header("Briefing")
				for _, item := range content.Briefing {
					r.printer.Raw("- " + item)
				}
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&reset, "reset", false, "drop the cached content and fetch it again")
	return cmd
}

func (r *runtime) imageCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "image",
		Short: "Image analysis",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "analyze <file> [prompt...]",
		Short: "Describe or answer a question about an image",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if _, err := r.open(ctx, app.ViewDashboard); err != nil {
				return err
			}
			image, err := attachment.LoadImage(args[0])
			if err != nil {
				return err
			}
			text, err := r.app.Assistant.AnalyzeImage(ctx, image, strings.Join(args[1:], " "))
			if err != nil {
				return err
			}
			r.printer.Raw(text)
			return nil
		},
	})
	return cmd
}

func (r *runtime) mapCmd() *cobra.Command {
	var lat, lng float64

	analyze := &cobra.Command{
		Use:   "analyze <file> <question...>",
		Short: "Answer a question about a map screenshot",
		Long: `Analyze a map image. The user location is sent along with the question;
without --lat/--lng Tashkent is used.`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if _, err := r.open(ctx, app.ViewDashboard); err != nil {
				return err
			}
			image, err := attachment.LoadImage(args[0])
			if err != nil {
				return err
			}

			var loc *assistant.Location
			if cmd.Flags().Changed("lat") || cmd.Flags().Changed("lng") {
				loc = &assistant.Location{Lat: assistant.Tashkent.Lat, Lng: assistant.Tashkent.Lng}
				if cmd.Flags().Changed("lat") {
					loc.Lat = lat
				}
				if cmd.Flags().Changed("lng") {
					loc.Lng = lng
				}
			}

			text, err := r.app.Assistant.AnalyzeMap(ctx, image, strings.Join(args[1:], " "), loc)
			if err != nil {
				return err
			}
			r.printer.Raw(text)
			return nil
		},
	}
	analyze.Flags().Float64Var(&lat, "lat", 0, "latitude of the user location")
	analyze.Flags().Float64Var(&lng, "lng", 0, "longitude of the user location")

	cmd := &cobra.Command{
		Use:   "map",
		Short: "Map analysis",
	}
	cmd.AddCommand(analyze)
	return cmd
}
