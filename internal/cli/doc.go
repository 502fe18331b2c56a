package cli

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/magabrotheeeer/mirzo-ai/internal/app"
	"github.com/magabrotheeeer/mirzo-ai/internal/lib/attachment"
	"github.com/magabrotheeeer/mirzo-ai/internal/models"
	"github.com/magabrotheeeer/mirzo-ai/internal/output"
	"github.com/magabrotheeeer/mirzo-ai/internal/services/documents"
)

func (r *runtime) docCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "doc",
		Short: "Generate and manage official documents",
	}
	cmd.AddCommand(
		r.docTypesCmd(),
		r.docGenerateCmd(),
		r.docRefineCmd(),
		r.docHistoryCmd(),
		r.docShowCmd(),
		r.docDeleteCmd(),
	)
	return cmd
}

// parseChoice принимает номер варианта (с 1) или его точное значение без учёта регистра.
func parseChoice[T ~string](raw string, values []T) (T, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", true
	}
	if n, err := strconv.Atoi(raw); err == nil {
		if n >= 1 && n <= len(values) {
			return values[n-1], true
		}
		return "", false
	}
	for _, v := range values {
		if strings.EqualFold(string(v), raw) {
			return v, true
		}
	}
	return "", false
}

func (r *runtime) docTypesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "types",
		Short: "List document types and sectors",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			types := r.printer.NewTable("#", "Document type")
			for i, v := range models.DocumentTypes {
				types.AddRow(strconv.Itoa(i+1), string(v))
			}
			if err := types.Render(); err != nil {
				return err
			}

			sectors := r.printer.NewTable("#", "Sector")
			for i, v := range models.Sectors {
				sectors.AddRow(strconv.Itoa(i+1), string(v))
			}
			return sectors.Render()
		},
	}
}

func (r *runtime) docGenerateCmd() *cobra.Command {
	var (
		docType, sector string
		form            documents.GenerateForm
		files           []string
		out             string
	)

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate a document with the AI backend",
		Long: `Generate an official document. --type and --sector accept the number
shown by "mirzo doc types" or the exact name.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			var ok bool
			if form.DocType, ok = parseChoice(docType, models.DocumentTypes); !ok {
				return usageError("unknown document type %q, see `mirzo doc types`", docType)
			}
			if form.Sector, ok = parseChoice(sector, models.Sectors); !ok {
				return usageError("unknown sector %q, see `mirzo doc types`", sector)
			}

			user, err := r.open(ctx, app.ViewDocGenerator)
			if err != nil {
				return err
			}
			if form.Files, err = attachment.LoadAll(files); err != nil {
				return err
			}

			doc, err := r.app.Documents.Generate(ctx, user, form)
			if err != nil {
				return err
			}
			return r.writeDocument(*doc, out)
		},
	}
	flags := cmd.Flags()
	flags.StringVar(&docType, "type", "", "document type (number or name, default report)")
	flags.StringVar(&sector, "sector", "", "sector (number or name, default government)")
	flags.StringVar(&form.Topic, "topic", "", "document topic")
	flags.StringVar(&form.Goal, "goal", "", "what the document should achieve")
	flags.StringVar(&form.Organization, "org", "", "organization (default from profile)")
	flags.BoolVar(&form.UseSearch, "search", false, "ground the document in web search results")
	flags.StringSliceVarP(&files, "file", "f", nil, "reference file to attach (repeatable)")
	flags.StringVarP(&out, "out", "o", "", "write a printable HTML page to this file")
	return cmd
}

func (r *runtime) docRefineCmd() *cobra.Command {
	var (
		id, in, instruction string
		files               []string
		out                 string
	)

	cmd := &cobra.Command{
		Use:   "refine",
		Short: "Rework an existing document with an instruction",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			if (id == "") == (in == "") {
				return usageError("exactly one of --id or --in is required")
			}
			if _, err := r.open(ctx, app.ViewDocGenerator); err != nil {
				return err
			}

			doc := documents.Document{}
			if id != "" {
				saved, err := r.app.Documents.Find(ctx, id)
				if err != nil {
					return err
				}
				doc.Type, doc.Topic, doc.HTML = saved.Type, saved.Title, saved.Content
			} else {
				data, err := os.ReadFile(in)
				if err != nil {
					return fmt.Errorf("read document: %w", err)
				}
				doc.HTML = string(data)
			}

			attachments, err := attachment.LoadAll(files)
			if err != nil {
				return err
			}
			doc.HTML, err = r.app.Documents.Refine(ctx, doc.HTML, instruction, attachments)
			if err != nil {
				return err
			}
			return r.writeDocument(doc, out)
		},
	}
	flags := cmd.Flags()
	flags.StringVar(&id, "id", "", "document id from history")
	flags.StringVar(&in, "in", "", "HTML file with the document")
	flags.StringVarP(&instruction, "instruction", "i", "", "what to change")
	flags.StringSliceVarP(&files, "file", "f", nil, "file to attach (repeatable)")
	flags.StringVarP(&out, "out", "o", "", "write a printable HTML page to this file")
	return cmd
}

// writeDocument печатает HTML в stdout или сохраняет страницу для печати.
func (r *runtime) writeDocument(doc documents.Document, out string) error {
	if out == "" {
		r.printer.Raw(doc.HTML)
		if len(doc.Sources) > 0 {
			r.printer.Header("Sources")
			for _, s := range doc.Sources {
				r.printer.Print("• %s %s", s.Title, r.printer.Dim(s.URI))
			}
		}
		return nil
	}

	page, err := documents.Printable(doc)
	if err != nil {
		return err
	}
	if err := os.WriteFile(out, page, 0o644); err != nil {
		return fmt.Errorf("write document: %w", err)
	}
	r.printer.Success("Document saved to %s", out)
	return nil
}

func (r *runtime) docHistoryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "history",
		Short: "List saved documents",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if _, err := r.open(cmd.Context(), app.ViewDocGenerator); err != nil {
				return err
			}
			docs, err := r.app.Documents.History(cmd.Context())
			if err != nil {
				return err
			}
			if len(docs) == 0 {
				r.printer.Info("No saved documents yet")
				return nil
			}
			tbl := r.printer.NewTable("ID", "Date", "Type", "Title")
			for _, d := range docs {
				tbl.AddRow(d.ID, d.Date, string(d.Type), d.Title)
			}
			return tbl.Render()
		},
	}
}

func (r *runtime) docShowCmd() *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Print a saved document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := r.open(cmd.Context(), app.ViewDocGenerator); err != nil {
				return err
			}
			saved, err := r.app.Documents.Find(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return r.writeDocument(documents.Document{Type: saved.Type, Topic: saved.Title, HTML: saved.Content}, out)
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "write a printable HTML page to this file")
	return cmd
}

func (r *runtime) docDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a saved document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := r.open(cmd.Context(), app.ViewDocGenerator); err != nil {
				return err
			}
			if err := r.app.Documents.Delete(cmd.Context(), args[0]); err != nil {
				return err
			}
			r.printer.Success("Document %s deleted", args[0])
			return nil
		},
	}
}

func usageError(format string, args ...any) *output.CLIError {
	return &output.CLIError{Summary: fmt.Sprintf(format, args...), ExitCode: output.ExitUsageError}
}
