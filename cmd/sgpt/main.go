package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/iishyfishyy/sgpt/internal/batch"
	"github.com/iishyfishyy/sgpt/internal/cache"
	"github.com/iishyfishyy/sgpt/internal/chat"
	"github.com/iishyfishyy/sgpt/internal/config"
	"github.com/iishyfishyy/sgpt/internal/executor"
	"github.com/iishyfishyy/sgpt/internal/function"
	"github.com/iishyfishyy/sgpt/internal/gate"
	"github.com/iishyfishyy/sgpt/internal/handler"
	"github.com/iishyfishyy/sgpt/internal/history"
	"github.com/iishyfishyy/sgpt/internal/integration"
	"github.com/iishyfishyy/sgpt/internal/provider"
	"github.com/iishyfishyy/sgpt/internal/role"
	"github.com/iishyfishyy/sgpt/internal/ui"
)

var (
	// version is set by goreleaser at build time
	version = "dev"

	// CLI flags
	shellFlag         bool
	codeFlag          bool
	describeShellFlag bool
	roleFlag          string
	modelFlag         string
	temperature       float64
	topP              float64
	mdFlag            bool
	noCache           bool
	functionsFlag     bool
	noInteraction     bool
	editorFlag        bool
	chatID            string
	replID            string
	showChatID        string
	listChatsFlag     bool
	createRoleName    string
	showRoleName      string
	listRolesFlag     bool
	installFlag       bool
	batchFile         string
	batchOutput       string
	batchFormat       string
	debug             bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:     "sgpt [prompt]",
		Short:   "Generate shell commands, code and text with an LLM",
		Long:    "sgpt forwards prompts to a chat-completion API and prints back shell commands, code, or text. The default backend is DeepSeek.",
		Version: version,
		Args:    cobra.ArbitraryArgs,
		RunE:    runCommand,

		SilenceUsage: true,
	}

	flags := rootCmd.Flags()
	flags.BoolVarP(&shellFlag, "shell", "s", false, "Generate and execute a shell command")
	flags.BoolVarP(&codeFlag, "code", "c", false, "Generate only code")
	flags.BoolVarP(&describeShellFlag, "describe-shell", "d", false, "Describe a shell command")
	flags.StringVar(&roleFlag, "role", "", "System role to use")
	flags.StringVarP(&modelFlag, "model", "m", "", "Model to use (default from config)")
	flags.Float64Var(&temperature, "temperature", 0.0, "Sampling temperature (0.0-2.0)")
	flags.Float64Var(&topP, "top-p", 1.0, "Nucleus sampling threshold (0.0-1.0)")
	flags.BoolVar(&mdFlag, "md", true, "Prettify markdown output")
	flags.BoolVar(&noCache, "no-cache", false, "Skip the completion cache")
	flags.BoolVar(&functionsFlag, "functions", false, "Allow function calling (default from config)")
	flags.BoolVar(&noInteraction, "no-interaction", false, "Print the shell command without the confirmation prompt")
	flags.BoolVar(&editorFlag, "editor", false, "Open $EDITOR to provide the prompt")
	flags.StringVar(&chatID, "chat", "", `Continue conversation with this id ("temp" for a throwaway session)`)
	flags.StringVar(&replID, "repl", "", "Start a REPL session with this id")
	flags.StringVar(&showChatID, "show-chat", "", "Show all messages of a chat id")
	flags.BoolVarP(&listChatsFlag, "list-chats", "l", false, "List existing chat ids")
	flags.StringVar(&createRoleName, "create-role", "", "Create a role")
	flags.StringVar(&showRoleName, "show-role", "", "Show a role")
	flags.BoolVarP(&listRolesFlag, "list-roles", "r", false, "List all roles")
	flags.BoolVar(&installFlag, "install-integration", false, "Install shell integration (bash and zsh only)")
	flags.StringVar(&batchFile, "batch-file", "", "Process a file of questions (txt, json, or csv)")
	flags.StringVar(&batchOutput, "batch-output", "", "Batch results output path")
	flags.StringVar(&batchFormat, "batch-format", "txt", "Batch results format (txt, json, md)")

	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging")

	if err := rootCmd.Execute(); err != nil {
		ui.ShowError(err.Error())
		os.Exit(1)
	}
}

func runCommand(cmd *cobra.Command, args []string) error {
	if installFlag {
		if err := integration.Install(); err != nil {
			return err
		}
		ui.ShowSuccess("Shell integration installed. Restart your terminal to apply changes.")
		return nil
	}

	cfg, err := config.LoadOrInit()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if debug {
		configPath, _ := config.GetConfigPath()
		fmt.Fprintf(os.Stderr, "[DEBUG] Config: loaded from %s (provider=%s, model=%s)\n",
			configPath, cfg.Provider, cfg.DefaultModel)
	}

	roles, err := roleStore(cfg)
	if err != nil {
		return err
	}

	// Management flags run without touching the network.
	switch {
	case createRoleName != "":
		return runCreateRole(roles)
	case showRoleName != "":
		return runShowRole(roles)
	case listRolesFlag:
		return runListRoles(roles)
	case listChatsFlag:
		return runListChats(cfg)
	case showChatID != "":
		return runShowChat(cfg, roles)
	}

	prompt, stdinPassed, err := assemblePrompt(args)
	if err != nil {
		return err
	}

	if moreThanOne(shellFlag, describeShellFlag, codeFlag) {
		return errors.New("only one of --shell, --describe-shell, and --code can be used at a time")
	}
	if chatID != "" && replID != "" {
		return errors.New("--chat and --repl cannot be used together")
	}
	if editorFlag && stdinPassed {
		return errors.New("--editor cannot be used with stdin input")
	}
	if batchFile != "" && (chatID != "" || replID != "") {
		return errors.New("--batch-file cannot be used with --chat or --repl")
	}

	if editorFlag {
		prompt, err = getEditedPrompt()
		if err != nil {
			return err
		}
	}

	if prompt == "" && replID == "" && batchFile == "" {
		return errors.New("a prompt is required (or use --repl)")
	}

	// Configuration errors block the network call.
	if err := cfg.Validate(); err != nil {
		return err
	}

	var selectedRole *role.SystemRole
	if roleFlag != "" {
		selectedRole, err = roles.Get(roleFlag)
	} else {
		selectedRole, err = roles.CheckGet(shellFlag, describeShellFlag, codeFlag)
	}
	if err != nil {
		return err
	}

	dispatcher, completionCache, err := buildDispatcher(cfg, selectedRole)
	if err != nil {
		return err
	}
	if completionCache != nil {
		defer completionCache.Close()
	}

	ctx := context.Background()

	if replID != "" {
		return runRepl(ctx, cfg, roles, dispatcher, prompt)
	}

	if batchFile != "" {
		return runBatch(ctx, dispatcher)
	}

	var completion string
	if chatID != "" {
		chatHandler, err := chatDispatcher(cfg, dispatcher)
		if err != nil {
			return err
		}
		completion, err = chatHandler.Handle(ctx, prompt)
		if err != nil {
			return err
		}
	} else {
		completion, err = dispatcher.Handle(ctx, prompt)
		if err != nil {
			return err
		}
	}

	if shellFlag && cfg.ShellInteraction && !noInteraction {
		// The gate displays the command itself.
		return runGate(ctx, cfg, roles, prompt, selectedRole, completion)
	}

	printCompletion(cfg, selectedRole, completion)
	return nil
}

// buildDispatcher wires config -> provider -> handler for the selected role
func buildDispatcher(cfg *config.Config, selectedRole *role.SystemRole) (*handler.Handler, *cache.Cache, error) {
	httpClient := provider.NewHTTPClient(requestTimeout(cfg))
	client, err := provider.FromConfig(cfg, httpClient)
	if err != nil {
		return nil, nil, err
	}

	var completionCache *cache.Cache
	if cfg.Cache.Enabled && !noCache {
		cachePath, err := cfg.CachePath()
		if err != nil {
			return nil, nil, err
		}
		completionCache, err = cache.Open(cachePath, cfg.Cache.Length)
		if err != nil {
			// The cache is an optimization; a broken cache file must not
			// block the invocation.
			ui.ShowWarning(fmt.Sprintf("Completion cache unavailable: %v", err))
			completionCache = nil
		}
	}

	registry, err := functionRegistry(cfg)
	if err != nil {
		return nil, nil, err
	}

	opts := handler.Options{
		Model:       model(cfg),
		Temperature: temperature,
		TopP:        topP,
		Caching:     !noCache,
		Functions:   registry,
		Debug:       debug,
	}
	return handler.New(client, selectedRole, completionCache, opts), completionCache, nil
}

// functionRegistry returns nil when function calling is disabled, so no tool
// payload is ever constructed in that case.
func functionRegistry(cfg *config.Config) (*function.Registry, error) {
	enabled := cfg.UseFunctions
	if functionsFlag {
		enabled = true
	}
	if !enabled {
		return nil, nil
	}

	registry := function.NewRegistry()
	functionsDir, err := cfg.FunctionsDir()
	if err != nil {
		return nil, err
	}
	if err := registry.LoadDir(functionsDir); err != nil {
		return nil, err
	}
	if debug {
		fmt.Fprintf(os.Stderr, "[DEBUG] Functions: %d functions registered\n", len(registry.Specs()))
	}
	return registry, nil
}

func chatDispatcher(cfg *config.Config, base *handler.Handler) (*handler.ChatHandler, error) {
	chatsDir, err := cfg.ChatsDir()
	if err != nil {
		return nil, err
	}
	store := chat.NewStore(chatsDir, cfg.ChatCacheLength)
	id := chatID
	if id == "" {
		id = replID
	}
	return handler.NewChat(base, store, id)
}

// runGate drives the execution gate for a generated shell command and
// records the outcome in the invocation history.
func runGate(ctx context.Context, cfg *config.Config, roles *role.Store, prompt string, selectedRole *role.SystemRole, command string) error {
	describer, err := describeDispatcher(cfg, roles)
	if err != nil {
		return err
	}

	exec := executor.New(cfg.ShellName, debug)
	g := &gate.Gate{
		Prompter:       gate.SurveyPrompter{},
		Execute:        exec.Run,
		DefaultExecute: cfg.DefaultExecuteShellCmd,
		Describe: func(ctx context.Context, cmd string) (string, error) {
			description, err := describer.Handle(ctx, cmd)
			if err != nil {
				return "", err
			}
			return ui.FormatMarkdown(description), nil
		},
	}

	result, err := g.Run(ctx, command)
	if err != nil {
		return err
	}

	saveHistory(prompt, selectedRole, cfg, result)
	return nil
}

// describeDispatcher builds a secondary dispatcher using the describe role,
// for the gate's describe option.
func describeDispatcher(cfg *config.Config, roles *role.Store) (*handler.Handler, error) {
	describeRole, err := roles.Get(role.DescribeRoleName)
	if err != nil {
		return nil, err
	}
	dispatcher, _, err := buildDispatcher(cfg, describeRole)
	return dispatcher, err
}

func saveHistory(prompt string, selectedRole *role.SystemRole, cfg *config.Config, result *gate.Result) {
	hist, err := history.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to load history: %v\n", err)
		return
	}

	executed := result.Outcome == gate.OutcomeExecuted
	entry := history.NewEntry(prompt, selectedRole.Name, model(cfg), result.FinalCommand, executed, result.Modifications)
	hist.AddEntry(entry)
	if err := hist.Save(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to save history: %v\n", err)
	}
}

func runRepl(ctx context.Context, cfg *config.Config, roles *role.Store, base *handler.Handler, initPrompt string) error {
	chatHandler, err := chatDispatcher(cfg, base)
	if err != nil {
		return err
	}

	repl := handler.NewRepl(chatHandler)
	if base.Role().UsesMarkdown() && markdownEnabled(cfg) {
		repl.Render = ui.FormatMarkdown
	}

	if base.Role().Name == role.ShellRoleName {
		exec := executor.New(cfg.ShellName, debug)
		repl.Execute = exec.Run

		describer, err := describeDispatcher(cfg, roles)
		if err != nil {
			return err
		}
		repl.Describe = func(ctx context.Context, cmd string) (string, error) {
			description, err := describer.Handle(ctx, cmd)
			if err != nil {
				return "", err
			}
			return ui.FormatMarkdown(description), nil
		}
	}

	return repl.Run(ctx, initPrompt, os.Stdin, os.Stdout)
}

func runBatch(ctx context.Context, dispatcher *handler.Handler) error {
	questions, err := batch.ReadQuestions(batchFile)
	if err != nil {
		return err
	}
	if len(questions) == 0 {
		return fmt.Errorf("no questions found in %s", batchFile)
	}

	processor := batch.NewProcessor(batchOutput)
	processor.Run(ctx, questions, dispatcher)

	outputPath, err := processor.Save(batchFormat)
	if err != nil {
		return err
	}
	processor.PrintSummary()
	ui.ShowInfo(fmt.Sprintf("Results saved to %s", outputPath))
	return nil
}

func runCreateRole(roles *role.Store) error {
	description, err := ui.PromptInput("Enter role description:")
	if err != nil {
		return err
	}
	if _, err := roles.Create(createRoleName, description); err != nil {
		return err
	}
	ui.ShowSuccess(fmt.Sprintf("Role %q created", createRoleName))
	return nil
}

func runShowRole(roles *role.Store) error {
	r, err := roles.Get(showRoleName)
	if err != nil {
		return err
	}
	fmt.Println(r.Role)
	return nil
}

func runListRoles(roles *role.Store) error {
	names, err := roles.List()
	if err != nil {
		return err
	}
	for _, name := range names {
		fmt.Println(name)
	}
	return nil
}

func runListChats(cfg *config.Config) error {
	chatsDir, err := cfg.ChatsDir()
	if err != nil {
		return err
	}
	ids, err := chat.NewStore(chatsDir, cfg.ChatCacheLength).List()
	if err != nil {
		return err
	}
	for _, id := range ids {
		fmt.Println(id)
	}
	return nil
}

func runShowChat(cfg *config.Config, roles *role.Store) error {
	chatsDir, err := cfg.ChatsDir()
	if err != nil {
		return err
	}
	messages, err := chat.NewStore(chatsDir, cfg.ChatCacheLength).Read(showChatID)
	if err != nil {
		return err
	}

	cyan := color.New(color.FgCyan, color.Bold)
	for _, msg := range messages {
		if msg.Role == provider.RoleSystem {
			continue
		}
		cyan.Printf("%s:\n", msg.Role)
		content := msg.Content
		if msg.Role == provider.RoleAssistant && markdownEnabled(cfg) {
			content = ui.FormatMarkdown(content)
		}
		fmt.Println(content)
	}
	return nil
}

// assemblePrompt joins the args and prepends piped stdin when present
func assemblePrompt(args []string) (string, bool, error) {
	prompt := strings.Join(args, " ")

	stdinPassed := !term.IsTerminal(int(os.Stdin.Fd()))
	if !stdinPassed {
		return prompt, false, nil
	}

	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		return "", true, fmt.Errorf("failed to read stdin: %w", err)
	}
	stdin := strings.TrimRight(string(data), "\n")
	if stdin == "" {
		return prompt, false, nil
	}

	if prompt != "" {
		return stdin + "\n\n" + prompt, true, nil
	}
	return stdin, true, nil
}

func printCompletion(cfg *config.Config, selectedRole *role.SystemRole, completion string) {
	if selectedRole.UsesMarkdown() && markdownEnabled(cfg) {
		fmt.Println(ui.FormatMarkdown(completion))
		return
	}
	fmt.Println(completion)
}

func roleStore(cfg *config.Config) (*role.Store, error) {
	rolesDir, err := cfg.RolesDir()
	if err != nil {
		return nil, err
	}
	roles := role.NewStore(rolesDir)
	if err := roles.CreateDefaults(role.OSName(cfg.OSName), role.ShellName(cfg.ShellName)); err != nil {
		return nil, err
	}
	return roles, nil
}

func model(cfg *config.Config) string {
	if modelFlag != "" {
		return modelFlag
	}
	return cfg.DefaultModel
}

func markdownEnabled(cfg *config.Config) bool {
	return mdFlag && cfg.PrettifyMarkdown
}

func requestTimeout(cfg *config.Config) time.Duration {
	return time.Duration(cfg.RequestTimeout) * time.Second
}

func moreThanOne(flags ...bool) bool {
	count := 0
	for _, f := range flags {
		if f {
			count++
		}
	}
	return count > 1
}
