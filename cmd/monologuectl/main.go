package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"math/rand/v2"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/jrsteele09/go-monologue/apiclient"
	"github.com/jrsteele09/go-monologue/internal/config"
	apperrors "github.com/jrsteele09/go-monologue/internal/errors"
	"github.com/jrsteele09/go-monologue/localstore"
	"github.com/jrsteele09/go-monologue/members"
	"github.com/jrsteele09/go-monologue/monologues"
	"github.com/jrsteele09/go-monologue/sessions"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/term"
)

// cliScope is the storage scope used by the command line client
const cliScope = "cli"

const usage = `Usage: monologuectl [-server URL] [-store PATH] <command> [flags] [args]

Commands:
  login     [-email EMAIL] [-password PASSWORD]
  signup    -name NAME [-email EMAIL] [-password PASSWORD]
  logout
  whoami
  list      [-q TERM]
  show      ID
  random
  write     [-weather W] [-file PATH] [CONTENT...]   (reads stdin without CONTENT)
  edit      ID [-weather W] [-file PATH] [CONTENT...]
  delete    ID [-yes]
  download  ID [-o PATH]
`

func main() {
	envErr := config.LoadEnv()
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.TimeOnly})
	zerolog.SetGlobalLevel(zerolog.WarnLevel)
	if envErr != nil {
		log.Debug().Err(envErr).Msg("No .env file loaded, using process environment")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr); err != nil {
		if err == flag.ErrHelp {
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// app is the wiring shared by every command
type app struct {
	session    *sessions.Manager
	api        *apiclient.Client
	monologues monologues.Service
	in         *bufio.Reader
	stdin      io.Reader
	stdout     io.Writer
	now        func() time.Time
	intn       func(int) int
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("monologuectl", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() { fmt.Fprint(stderr, usage) }

	serverURL := fs.String("server", "", "Monologue API base URL (defaults to API_BASE_URL)")
	storePath := fs.String("store", "", "Path to the local session file (defaults to ~/.monologue/storage.json)")
	timeout := fs.Duration("timeout", config.New().GetAPITimeout(), "Request timeout")

	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		fmt.Fprint(stdout, usage)
		return fmt.Errorf("missing command")
	}

	a, err := newApp(ctx, *serverURL, *storePath, *timeout)
	if err != nil {
		return err
	}
	a.stdin = stdin
	a.in = bufio.NewReader(stdin)
	a.stdout = stdout

	cmd, cmdArgs := fs.Arg(0), fs.Args()[1:]
	switch cmd {
	case "login":
		err = a.login(ctx, cmdArgs, stderr)
	case "signup":
		err = a.signup(ctx, cmdArgs, stderr)
	case "logout":
		err = a.logout(ctx)
	case "whoami":
		err = a.whoami()
	case "list":
		err = a.list(ctx, cmdArgs, stderr)
	case "show":
		err = a.show(ctx, cmdArgs)
	case "random":
		err = a.random(ctx)
	case "write":
		err = a.write(ctx, cmdArgs, stderr)
	case "edit":
		err = a.edit(ctx, cmdArgs, stderr)
	case "delete":
		err = a.delete(ctx, cmdArgs, stderr)
	case "download":
		err = a.download(ctx, cmdArgs, stderr)
	default:
		fmt.Fprint(stdout, usage)
		return fmt.Errorf("unknown command %q", cmd)
	}

	if apperrors.Is(err, apperrors.ErrSessionExpired) {
		return errors.New("session expired, please log in again")
	}
	return err
}

func newApp(ctx context.Context, serverURL, storePath string, timeout time.Duration) (*app, error) {
	if serverURL == "" {
		serverURL = config.GetEnv("API_BASE_URL", "")
	}
	baseURL, err := config.ResolveBaseURL(config.New().GetEnv(), serverURL)
	if err != nil {
		return nil, fmt.Errorf("%w (use -server or API_BASE_URL)", err)
	}

	if storePath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("locate home folder: %w", err)
		}
		storePath = filepath.Join(home, ".monologue", "storage.json")
	}

	var repo localstore.Repo
	if repo, err = localstore.NewFileRepo(storePath); err != nil {
		return nil, err
	}
	if secret := config.New().GetStoreSecret(); secret != "" {
		if repo, err = localstore.NewSealedRepo(repo, secret); err != nil {
			return nil, err
		}
	}

	manager, err := sessions.NewProvider(repo).Manager(ctx, cliScope)
	if err != nil {
		return nil, err
	}

	api := apiclient.New(baseURL, &http.Client{Timeout: timeout}).WithSession(manager)
	return &app{
		session:    manager,
		api:        api,
		monologues: monologues.NewClient(api),
		now:        time.Now,
		intn:       rand.IntN,
	}, nil
}

func (a *app) requireLogin() error {
	if !a.session.IsLoggedIn() {
		return fmt.Errorf("%w: run `monologuectl login` first", apperrors.ErrNotLoggedIn)
	}
	return nil
}

func (a *app) login(ctx context.Context, args []string, stderr io.Writer) error {
	fs := flag.NewFlagSet("login", flag.ContinueOnError)
	fs.SetOutput(stderr)
	email := fs.String("email", "", "Email")
	password := fs.String("password", "", "Password (prompts when omitted)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	form := members.LoginForm{Email: *email, Password: *password}
	var err error
	if form.Email == "" {
		if form.Email, err = a.prompt("Email: "); err != nil {
			return err
		}
	}
	if form.Password == "" {
		if form.Password, err = a.promptPassword("Password: "); err != nil {
			return err
		}
	}
	form.Email = strings.TrimSpace(form.Email)
	if err := members.ValidateLogin(form); err != nil {
		return errors.New(apperrors.UserMessage(err))
	}

	return a.startSession(ctx, form.Email, form.Password, "")
}

func (a *app) signup(ctx context.Context, args []string, stderr io.Writer) error {
	fs := flag.NewFlagSet("signup", flag.ContinueOnError)
	fs.SetOutput(stderr)
	name := fs.String("name", "", "Your name")
	email := fs.String("email", "", "Email")
	password := fs.String("password", "", "Password (prompts when omitted)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	form := members.SignupForm{Name: *name, Email: *email, Password: *password, ConfirmPassword: *password}
	var err error
	if form.Email == "" {
		if form.Email, err = a.prompt("Email: "); err != nil {
			return err
		}
	}
	if form.Password == "" {
		if form.Password, err = a.promptPassword("Password: "); err != nil {
			return err
		}
		if form.ConfirmPassword, err = a.promptPassword("Confirm password: "); err != nil {
			return err
		}
	}
	form = form.Normalise()
	if err := members.ValidateSignup(form); err != nil {
		return errors.New(apperrors.UserMessage(err))
	}

	if err := a.api.Signup(ctx, apiclient.SignupRequest{Email: form.Email, Password: form.Password, Name: form.Name}); err != nil {
		return errors.New(apperrors.UserMessage(err))
	}
	return a.startSession(ctx, form.Email, form.Password, form.Name)
}

func (a *app) startSession(ctx context.Context, email, password, fallbackName string) error {
	resp, err := a.api.Login(ctx, email, password)
	if err != nil {
		return errors.New(apperrors.UserMessage(err))
	}

	name := resp.Name
	if name == "" {
		name = fallbackName
	}
	if name == "" {
		name, _, _ = strings.Cut(email, "@")
	}
	identity := sessions.Identity{Email: email, Name: name}
	if err := a.session.Login(ctx, identity, sessions.Tokens{AccessToken: resp.AccessToken, RefreshToken: resp.RefreshToken}); err != nil {
		return err
	}
	fmt.Fprintf(a.stdout, "Logged in as %s <%s>\n", name, email)
	return nil
}

func (a *app) logout(ctx context.Context) error {
	if err := a.session.Logout(ctx); err != nil {
		return err
	}
	fmt.Fprintln(a.stdout, "Logged out")
	return nil
}

func (a *app) whoami() error {
	user, ok := a.session.CurrentUser()
	if !ok {
		fmt.Fprintln(a.stdout, "Not logged in")
		return nil
	}
	fmt.Fprintf(a.stdout, "%s <%s> on %s\n", user.Name, user.Email, a.api.BaseURL())
	return nil
}

func (a *app) list(ctx context.Context, args []string, stderr io.Writer) error {
	fs := flag.NewFlagSet("list", flag.ContinueOnError)
	fs.SetOutput(stderr)
	query := fs.String("q", "", "Only show entries containing this text")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := a.requireLogin(); err != nil {
		return err
	}

	list, err := a.monologues.List(ctx)
	if err != nil {
		return err
	}
	list = monologues.Filter(list, *query)
	if len(list) == 0 {
		fmt.Fprintln(a.stdout, "No entries yet")
		return nil
	}

	tw := tabwriter.NewWriter(a.stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tDATE\tWHEN\tWEATHER\tFILE\tCONTENT")
	for _, m := range list {
		file := ""
		if m.HasAttachment() {
			file = m.AttachmentName()
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			m.ID, a.formatDate(m.CreatedAt), monologues.DaysAgo(m.CreatedAt.Time, a.now()), m.Weather, file, preview(m.Content))
	}
	return tw.Flush()
}

func (a *app) show(ctx context.Context, args []string) error {
	id, err := singleID(args)
	if err != nil {
		return err
	}
	if err := a.requireLogin(); err != nil {
		return err
	}

	m, err := a.monologues.Get(ctx, id)
	if err != nil {
		return err
	}
	a.printMonologue(m)
	return nil
}

func (a *app) random(ctx context.Context) error {
	if err := a.requireLogin(); err != nil {
		return err
	}

	list, err := a.monologues.List(ctx)
	if err != nil {
		return err
	}
	m, ok := monologues.PickRandom(list, a.intn)
	if !ok {
		fmt.Fprintln(a.stdout, "No entries yet")
		return nil
	}
	a.printMonologue(m)
	return nil
}

func (a *app) write(ctx context.Context, args []string, stderr io.Writer) error {
	fs := flag.NewFlagSet("write", flag.ContinueOnError)
	fs.SetOutput(stderr)
	weather := fs.String("weather", "", "Weather note")
	file := fs.String("file", "", "File to attach")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := a.requireLogin(); err != nil {
		return err
	}

	draft, closeFile, err := a.draft(fs.Args(), *weather, *file)
	if err != nil {
		return err
	}
	defer closeFile()

	m, err := a.monologues.Create(ctx, draft)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.stdout, "Saved monologue %s\n", m.ID)
	return nil
}

func (a *app) edit(ctx context.Context, args []string, stderr io.Writer) error {
	if len(args) == 0 {
		return fmt.Errorf("edit needs an ID")
	}
	id := monologues.ID(args[0])

	fs := flag.NewFlagSet("edit", flag.ContinueOnError)
	fs.SetOutput(stderr)
	weather := fs.String("weather", "", "Weather note")
	file := fs.String("file", "", "Replacement attachment")
	if err := fs.Parse(args[1:]); err != nil {
		return err
	}
	if err := a.requireLogin(); err != nil {
		return err
	}

	draft, closeFile, err := a.draft(fs.Args(), *weather, *file)
	if err != nil {
		return err
	}
	defer closeFile()

	m, err := a.monologues.Update(ctx, id, draft)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.stdout, "Updated monologue %s\n", m.ID)
	return nil
}

func (a *app) delete(ctx context.Context, args []string, stderr io.Writer) error {
	if len(args) == 0 {
		return fmt.Errorf("delete needs an ID")
	}
	id := monologues.ID(args[0])

	fs := flag.NewFlagSet("delete", flag.ContinueOnError)
	fs.SetOutput(stderr)
	yes := fs.Bool("yes", false, "Do not ask for confirmation")
	if err := fs.Parse(args[1:]); err != nil {
		return err
	}
	if err := a.requireLogin(); err != nil {
		return err
	}

	if !*yes {
		answer, err := a.prompt(fmt.Sprintf("Delete monologue %s? [y/N]: ", id))
		if err != nil && !errors.Is(err, io.EOF) {
			return err
		}
		if answer = strings.ToLower(strings.TrimSpace(answer)); answer != "y" && answer != "yes" {
			fmt.Fprintln(a.stdout, "Cancelled")
			return nil
		}
	}

	if err := a.monologues.Delete(ctx, id); err != nil {
		return err
	}
	fmt.Fprintf(a.stdout, "Deleted monologue %s\n", id)
	return nil
}

func (a *app) download(ctx context.Context, args []string, stderr io.Writer) error {
	if len(args) == 0 {
		return fmt.Errorf("download needs an ID")
	}
	id := monologues.ID(args[0])

	fs := flag.NewFlagSet("download", flag.ContinueOnError)
	fs.SetOutput(stderr)
	out := fs.String("o", "", "Output path (defaults to the attachment's file name)")
	if err := fs.Parse(args[1:]); err != nil {
		return err
	}
	if err := a.requireLogin(); err != nil {
		return err
	}

	m, err := a.monologues.Get(ctx, id)
	if err != nil {
		return err
	}
	if !m.HasAttachment() {
		return fmt.Errorf("monologue %s has no attachment", id)
	}

	attachment, err := a.monologues.DownloadAttachment(ctx, id, m.AttachmentPath)
	if err != nil {
		return err
	}
	defer attachment.Close()

	path := *out
	if path == "" {
		path = attachment.Filename
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	n, err := io.Copy(f, attachment.Body)
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return fmt.Errorf("save %s: %w", path, err)
	}
	fmt.Fprintf(a.stdout, "Saved %s (%d bytes)\n", path, n)
	return nil
}

// draft builds the entry from CONTENT args or, without them, stdin.
func (a *app) draft(args []string, weather, file string) (monologues.Draft, func(), error) {
	draft := monologues.Draft{Content: strings.Join(args, " "), Weather: strings.TrimSpace(weather)}
	if len(args) == 0 {
		data, err := io.ReadAll(a.in)
		if err != nil {
			return draft, func() {}, err
		}
		draft.Content = strings.TrimRight(string(data), "\n")
	}
	if file == "" {
		return draft, func() {}, nil
	}

	f, err := os.Open(file)
	if err != nil {
		return draft, func() {}, err
	}
	draft.File = &monologues.Upload{Name: filepath.Base(file), Body: f}
	return draft, func() { f.Close() }, nil
}

func (a *app) printMonologue(m monologues.Monologue) {
	fmt.Fprintf(a.stdout, "#%s  %s (%s)\n", m.ID, a.formatDate(m.CreatedAt), monologues.DaysAgo(m.CreatedAt.Time, a.now()))
	if m.Weather != "" {
		fmt.Fprintf(a.stdout, "Weather: %s\n", m.Weather)
	}
	if m.HasAttachment() {
		fmt.Fprintf(a.stdout, "Attachment: %s\n", m.AttachmentName())
	}
	fmt.Fprintf(a.stdout, "\n%s\n", m.Content)
}

func (a *app) formatDate(t monologues.Timestamp) string {
	if t.IsZero() {
		return "-"
	}
	return t.Format("2006-01-02 15:04")
}

func (a *app) prompt(label string) (string, error) {
	fmt.Fprint(a.stdout, label)
	line, err := a.in.ReadString('\n')
	if err != nil && (!errors.Is(err, io.EOF) || line == "") {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func (a *app) promptPassword(label string) (string, error) {
	if f, ok := a.stdin.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fmt.Fprint(a.stdout, label)
		password, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(a.stdout)
		if err != nil {
			return "", err
		}
		return string(password), nil
	}
	return a.prompt(label)
}

func preview(content string) string {
	line, _, _ := strings.Cut(strings.TrimSpace(content), "\n")
	if r := []rune(line); len(r) > 60 {
		return string(r[:57]) + "..."
	}
	return line
}

func singleID(args []string) (monologues.ID, error) {
	if len(args) != 1 || strings.TrimSpace(args[0]) == "" {
		return "", fmt.Errorf("expected exactly one ID")
	}
	return monologues.ID(args[0]), nil
}
