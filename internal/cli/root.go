// Package cli содержит команды mirzo. Каждая команда собирает приложение
// через internal/app, восстанавливает сессию и вызывает нужный сервис.
package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/magabrotheeeer/mirzo-ai/internal/app"
	"github.com/magabrotheeeer/mirzo-ai/internal/config"
	"github.com/magabrotheeeer/mirzo-ai/internal/lib/sl"
	"github.com/magabrotheeeer/mirzo-ai/internal/models"
	"github.com/magabrotheeeer/mirzo-ai/internal/output"
	"github.com/magabrotheeeer/mirzo-ai/internal/services/auth"
)

var version = "dev"

// SetVersion задаёт версию, которую печатает --version.
func SetVersion(v string) {
	version = v
}

// runtime — общее состояние одного запуска CLI.
type runtime struct {
	cfgFile   string
	apiURL    string
	verbose   bool
	quiet     bool
	colorMode string

	in     io.Reader
	reader *bufio.Reader
	out    io.Writer
	errOut io.Writer

	cfg     *config.Config
	log     *slog.Logger
	printer *output.Printer
	app     *app.App
}

// Option настраивает потоки ввода-вывода (используется в тестах).
type Option func(*runtime)

// WithIO подменяет stdin, stdout и stderr.
func WithIO(in io.Reader, out, errOut io.Writer) Option {
	return func(r *runtime) {
		r.in, r.out, r.errOut = in, out, errOut
	}
}

func newRuntime(opts ...Option) *runtime {
	r := &runtime{in: os.Stdin, out: os.Stdout, errOut: os.Stderr}
	for _, opt := range opts {
		opt(r)
	}
	r.reader = bufio.NewReader(r.in)
	return r
}

func (r *runtime) close() {
	if r.app != nil {
		r.app.Close()
	}
}

func (r *runtime) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "mirzo",
		Short: "Mirzo AI client",
		Long: `mirzo is a command-line client for the Mirzo AI assistant.

It generates official documents, talks to the assistant, analyzes images
and maps, and manages the subscription that unlocks these features.

Example usage:
  mirzo login --phone 901234567        # Sign in
  mirzo daily                          # Today's quote and briefing
  mirzo doc generate --topic "..."     # Generate a document
  mirzo subscription upload check.jpg  # Send a payment receipt
  mirzo subscription wait              # Wait for admin approval`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return r.init(cmd.Context())
		},
	}
	root.SetIn(r.in)
	root.SetOut(r.out)
	root.SetErr(r.errOut)

	flags := root.PersistentFlags()
	flags.StringVar(&r.cfgFile, "config", "", "config file (default is $CONFIG_PATH)")
	flags.StringVar(&r.apiURL, "api", "", "API base URL (overrides config)")
	flags.BoolVarP(&r.verbose, "verbose", "v", false, "verbose logging")
	flags.BoolVarP(&r.quiet, "quiet", "q", false, "print only command results")
	flags.StringVar(&r.colorMode, "color", "auto", "color output: auto, always or never")

	root.AddCommand(
		r.loginCmd(),
		r.registerCmd(),
		r.adminLoginCmd(),
		r.logoutCmd(),
		r.whoamiCmd(),
		r.statusCmd(),
		r.viewCmd(),
		r.profileCmd(),
		r.docCmd(),
		r.chatCmd(),
		r.quoteCmd(),
		r.briefingCmd(),
		r.dailyCmd(),
		r.imageCmd(),
		r.mapCmd(),
		r.subscriptionCmd(),
		r.adminCmd(),
	)
	return root
}

// init читает конфиг и собирает приложение.
func (r *runtime) init(ctx context.Context) error {
	mode, err := output.ParseColorMode(r.colorMode)
	if err != nil {
		return &output.CLIError{Summary: err.Error(), ExitCode: output.ExitUsageError}
	}
	r.printer = output.NewPrinter(output.PrinterOptions{
		Out:       r.out,
		Err:       r.errOut,
		ColorMode: mode,
		Quiet:     r.quiet,
	})

	cfg, err := config.Load(r.cfgFile)
	if err != nil {
		return &output.CLIError{Summary: "cannot read config", Detail: []string{err.Error()}, ExitCode: output.ExitConfigError, Err: err}
	}
	if r.apiURL != "" {
		cfg.BaseURL = r.apiURL
	}
	r.cfg = cfg
	r.log = sl.SetupCLILogger(cfg.Env, r.errOut, r.verbose)
	r.log.Debug("configuration loaded", slog.String("config", cfg.String()))

	a, err := app.New(ctx, cfg, r.log)
	if err != nil {
		return &output.CLIError{Summary: "cannot start client", Detail: []string{err.Error()}, ExitCode: output.ExitConfigError, Err: err}
	}
	r.app = a
	return nil
}

// session восстанавливает сессию и требует вошедшего пользователя.
func (r *runtime) session(ctx context.Context) (*models.User, error) {
	user := r.app.Boot(ctx)
	if user == nil {
		return nil, auth.ErrNoSession
	}
	return user, nil
}

// open восстанавливает сессию и открывает раздел view.
func (r *runtime) open(ctx context.Context, view app.View) (*models.User, error) {
	user, err := r.session(ctx)
	if err != nil {
		return nil, err
	}
	if err := r.app.Controller.Open(view); err != nil {
		return nil, err
	}
	return user, nil
}

// requireAdmin восстанавливает сессию администратора.
func (r *runtime) requireAdmin(ctx context.Context) (*models.User, error) {
	user, err := r.session(ctx)
	if err != nil {
		return nil, err
	}
	if !user.IsAdmin {
		return nil, &output.CLIError{
			Summary:    "admin access required",
			Suggestion: "sign in with `mirzo admin-login`",
			ExitCode:   output.ExitUnauthorized,
		}
	}
	return user, nil
}

// prompt читает строку из stdin.
func (r *runtime) prompt(label string) (string, error) {
	fmt.Fprint(r.errOut, label+": ")
	line, err := r.reader.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", fmt.Errorf("read %s: %w", strings.ToLower(label), err)
	}
	return strings.TrimSpace(line), nil
}

// promptSecret читает пароль без эха, если stdin — терминал.
func (r *runtime) promptSecret(label string) (string, error) {
	f, ok := r.in.(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) {
		return r.prompt(label)
	}
	fmt.Fprint(r.errOut, label+": ")
	secret, err := term.ReadPassword(int(f.Fd()))
	fmt.Fprintln(r.errOut)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", strings.ToLower(label), err)
	}
	return strings.TrimSpace(string(secret)), nil
}

// valueOrPrompt возвращает значение флага или спрашивает его.
func (r *runtime) valueOrPrompt(value, label string, secret bool) (string, error) {
	if strings.TrimSpace(value) != "" {
		return strings.TrimSpace(value), nil
	}
	if secret {
		return r.promptSecret(label)
	}
	return r.prompt(label)
}

// Execute запускает CLI и возвращает код выхода.
func Execute(ctx context.Context, args []string, opts ...Option) int {
	r := newRuntime(opts...)
	defer r.close()

	root := r.rootCmd()
	root.SetArgs(args)

	err := root.ExecuteContext(ctx)
	if err == nil {
		return output.ExitSuccess
	}

	printer := r.printer
	if printer == nil {
		printer = output.NewPrinter(output.PrinterOptions{Out: r.out, Err: r.errOut})
	}
	cliErr := toCLIError(err)
	printer.FormatError(cliErr)
	return cliErr.ExitCode
}
