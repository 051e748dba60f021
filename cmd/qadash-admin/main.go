package main

import (
	"bufio"
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/agentqa/qa-dashboard/config"
	"github.com/agentqa/qa-dashboard/internal/adapters/password"
	"github.com/agentqa/qa-dashboard/internal/bootstrap"
	"github.com/agentqa/qa-dashboard/internal/data"
	domainauth "github.com/agentqa/qa-dashboard/internal/domain/auth"
	"github.com/agentqa/qa-dashboard/internal/domain/model"
	"github.com/agentqa/qa-dashboard/internal/service"
)

type commandFn func(ctx *commandContext, args []string) error

type command struct {
	name        string
	description string
	run         commandFn
}

type commandContext struct {
	Ctx    context.Context
	Logger *slog.Logger
	Config config.AppConfig
	Stdin  io.Reader
	Stdout io.Writer
}

const (
	defaultMigrationTimeout = 5 * time.Minute
	defaultCommandTimeout   = 30 * time.Second
)

func main() {
	logger := bootstrap.InitLogger()

	if len(os.Args) < 2 {
		printUsage(os.Stdout)
		os.Exit(2) //nolint:forbidigo // CLI must exit with failure status when no command is provided
	}

	cmdName := os.Args[1]
	cmd, ok := commands()[cmdName]
	if !ok {
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n", cmdName)
		printUsage(os.Stdout)
		os.Exit(2) //nolint:forbidigo // CLI must exit with failure status when command is unknown
	}

	cfg, err := bootstrap.LoadConfig()
	if err != nil {
		logger.ErrorContext(context.Background(), "load config", "error", err)
		os.Exit(1) //nolint:forbidigo // CLI must signal configuration load failure to shell scripts
	}

	cmdCtx := &commandContext{
		Ctx:    context.Background(),
		Logger: logger,
		Config: cfg,
		Stdin:  os.Stdin,
		Stdout: os.Stdout,
	}
	if runErr := cmd.run(cmdCtx, os.Args[2:]); runErr != nil {
		logger.ErrorContext(cmdCtx.Ctx, "command failed", "command", cmdName, "error", runErr)
		os.Exit(1) //nolint:forbidigo // CLI must propagate command execution failure to callers
	}
}

func commands() map[string]command {
	return map[string]command{
		"migrate": {
			name:        "migrate",
			description: "Run database migrations",
			run:         runMigrations,
		},
		"create-user": {
			name:        "create-user",
			description: "Create a dashboard account (password read from stdin with --password-stdin)",
			run:         runCreateUser,
		},
		"set-role": {
			name:        "set-role",
			description: "Change the role of an existing account",
			run:         runSetRole,
		},
		"set-password": {
			name:        "set-password",
			description: "Replace an account's password (read from stdin)",
			run:         runSetPassword,
		},
	}
}

func printUsage(w io.Writer) {
	fmt.Fprintf(w, "Usage: qadash-admin <command> [flags]\n\n")
	fmt.Fprintf(w, "Available commands:\n")
	cmds := commands()
	names := make([]string, 0, len(cmds))
	for name := range cmds {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(w, "  %-14s %s\n", name, cmds[name].description)
	}
}

type migrateOptions struct {
	Timeout time.Duration
}

type createUserOptions struct {
	Email         string
	Name          string
	Role          string
	PasswordStdin bool
}

type setRoleOptions struct {
	Email string
	Role  string
}

func parseMigrateFlags(args []string) (migrateOptions, error) {
	fs := flag.NewFlagSet("migrate", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	opts := migrateOptions{}
	fs.DurationVar(&opts.Timeout, "timeout", defaultMigrationTimeout, "Maximum time to wait for migrations")
	if err := fs.Parse(args); err != nil {
		return migrateOptions{}, err
	}
	if opts.Timeout <= 0 {
		return migrateOptions{}, errors.New("--timeout must be positive")
	}
	return opts, nil
}

func parseCreateUserFlags(args []string) (createUserOptions, error) {
	fs := flag.NewFlagSet("create-user", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	var opts createUserOptions
	fs.StringVar(&opts.Email, "email", "", "Account email (required)")
	fs.StringVar(&opts.Name, "name", "", "Display name (defaults to the email's local part)")
	fs.StringVar(&opts.Role, "role", string(domainauth.RoleViewer), "One of ADMIN, MANAGER, TESTER, VIEWER")
	fs.BoolVar(&opts.PasswordStdin, "password-stdin", false, "Read the password from the first line of stdin")
	if err := fs.Parse(args); err != nil {
		return createUserOptions{}, err
	}

	opts.Email = strings.TrimSpace(opts.Email)
	if opts.Email == "" {
		return createUserOptions{}, errors.New("--email is required")
	}
	opts.Name = strings.TrimSpace(opts.Name)
	if opts.Name == "" {
		opts.Name, _, _ = strings.Cut(opts.Email, "@")
	}
	role, ok := domainauth.ParseRoleFold(opts.Role)
	if !ok {
		return createUserOptions{}, fmt.Errorf("--role %q is not one of ADMIN, MANAGER, TESTER, VIEWER", opts.Role)
	}
	opts.Role = string(role)
	return opts, nil
}

func parseSetRoleFlags(args []string) (setRoleOptions, error) {
	fs := flag.NewFlagSet("set-role", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	var opts setRoleOptions
	fs.StringVar(&opts.Email, "email", "", "Account email (required)")
	fs.StringVar(&opts.Role, "role", "", "One of ADMIN, MANAGER, TESTER, VIEWER (required)")
	if err := fs.Parse(args); err != nil {
		return setRoleOptions{}, err
	}

	opts.Email = strings.TrimSpace(opts.Email)
	if opts.Email == "" {
		return setRoleOptions{}, errors.New("--email is required")
	}
	if _, ok := domainauth.ParseRoleFold(opts.Role); !ok {
		return setRoleOptions{}, fmt.Errorf("--role %q is not one of ADMIN, MANAGER, TESTER, VIEWER", opts.Role)
	}
	return opts, nil
}

func parseEmailFlag(name string, args []string) (string, error) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	var email string
	fs.StringVar(&email, "email", "", "Account email (required)")
	if err := fs.Parse(args); err != nil {
		return "", err
	}
	email = strings.TrimSpace(email)
	if email == "" {
		return "", errors.New("--email is required")
	}
	return email, nil
}

// readSecretLine reads the first line of r without the trailing newline.
func readSecretLine(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read password: %w", err)
	}
	line = strings.TrimRight(line, "\r\n")
	if line == "" {
		return "", errors.New("password on stdin is empty")
	}
	return line, nil
}

func withTimeout(parent context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	ctx, cancel := context.WithTimeout(ctx, d)
	return ctx, func() {
		cancel()
		stop()
	}
}

func connectDB(cmdCtx *commandContext) (*sql.DB, func(), error) {
	db, err := bootstrap.ConnectDB(bootstrap.DatabaseConfig{
		DBConfig: cmdCtx.Config.Postgres,
		Logger:   cmdCtx.Logger,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("connect db: %w", err)
	}
	return db, func() {
		if closeErr := db.Close(); closeErr != nil {
			cmdCtx.Logger.Warn("db close failed", "error", closeErr)
		}
	}, nil
}

func newUserService(db *sql.DB, logger *slog.Logger) (*service.UserService, error) {
	hasher, err := password.NewArgon2(password.DefaultConfig())
	if err != nil {
		return nil, fmt.Errorf("password hasher: %w", err)
	}
	return service.NewUserService(service.UserServiceOptions{
		Repo:   data.NewUserRepo(db),
		Hasher: hasher,
		Logger: logger,
	}), nil
}

func runMigrations(cmdCtx *commandContext, args []string) error {
	opts, err := parseMigrateFlags(args)
	if err != nil {
		return err
	}
	ctx, cancel := withTimeout(cmdCtx.Ctx, opts.Timeout)
	defer cancel()

	db, closeDB, err := connectDB(cmdCtx)
	if err != nil {
		return err
	}
	defer closeDB()

	if migrateErr := bootstrap.RunMigrations(ctx, db, cmdCtx.Logger); migrateErr != nil {
		return migrateErr
	}
	cmdCtx.Logger.Info("migrations completed successfully")
	return nil
}

func runCreateUser(cmdCtx *commandContext, args []string) error {
	opts, err := parseCreateUserFlags(args)
	if err != nil {
		return err
	}
	req := model.CreateUserRequest{Name: opts.Name, Email: opts.Email, Role: domainauth.Role(opts.Role)}
	if opts.PasswordStdin {
		if req.Password, err = readSecretLine(cmdCtx.Stdin); err != nil {
			return err
		}
	}

	ctx, cancel := withTimeout(cmdCtx.Ctx, defaultCommandTimeout)
	defer cancel()
	db, closeDB, err := connectDB(cmdCtx)
	if err != nil {
		return err
	}
	defer closeDB()

	users, err := newUserService(db, cmdCtx.Logger)
	if err != nil {
		return err
	}
	u, err := users.Create(ctx, req)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmdCtx.Stdout, "created %s (%s) id=%s\n", u.Email, u.Role, u.ID)
	return nil
}

func runSetRole(cmdCtx *commandContext, args []string) error {
	opts, err := parseSetRoleFlags(args)
	if err != nil {
		return err
	}
	ctx, cancel := withTimeout(cmdCtx.Ctx, defaultCommandTimeout)
	defer cancel()
	db, closeDB, err := connectDB(cmdCtx)
	if err != nil {
		return err
	}
	defer closeDB()

	users, err := newUserService(db, cmdCtx.Logger)
	if err != nil {
		return err
	}
	u, err := users.GetByEmail(ctx, opts.Email)
	if err != nil {
		return err
	}
	u, err = users.UpdateRole(ctx, u.ID, model.UpdateUserRoleRequest{Role: opts.Role})
	if err != nil {
		return err
	}
	fmt.Fprintf(cmdCtx.Stdout, "%s is now %s\n", u.Email, u.Role)
	return nil
}

func runSetPassword(cmdCtx *commandContext, args []string) error {
	email, err := parseEmailFlag("set-password", args)
	if err != nil {
		return err
	}
	secret, err := readSecretLine(cmdCtx.Stdin)
	if err != nil {
		return err
	}
	if err = model.ValidatePassword(secret); err != nil {
		return err
	}

	ctx, cancel := withTimeout(cmdCtx.Ctx, defaultCommandTimeout)
	defer cancel()
	db, closeDB, err := connectDB(cmdCtx)
	if err != nil {
		return err
	}
	defer closeDB()

	users, err := newUserService(db, cmdCtx.Logger)
	if err != nil {
		return err
	}
	u, err := users.GetByEmail(ctx, email)
	if err != nil {
		return err
	}
	if err = users.SetPassword(ctx, u.ID, secret); err != nil {
		return err
	}
	fmt.Fprintf(cmdCtx.Stdout, "password updated for %s\n", u.Email)
	return nil
}
