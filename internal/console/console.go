// Package console is the interactive shell over a running observer. It
// speaks to the observer's HTTP API, so it can attach to and detach from a
// live session without disturbing it.
package console

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/chzyer/readline"
	"github.com/fatih/color"

	"github.com/modwatch/citywatch/internal/api"
)

// Console represents the interactive shell
type Console struct {
	client   *api.Client
	rl       *readline.Instance
	ctx      context.Context
	commands map[string]CommandHandler
}

// CommandHandler handles a specific command
type CommandHandler func(args []string) error

// New creates a new Console over the given API client.
func New(client *api.Client) (*Console, error) {
	if client == nil {
		return nil, fmt.Errorf("api client is required")
	}
	c := &Console{
		client:   client,
		commands: make(map[string]CommandHandler),
	}
	c.registerCommands()
	return c, nil
}

// Run starts the console loop
func (c *Console) Run(ctx context.Context) error {
	c.ctx = ctx

	cyan := color.New(color.FgCyan).SprintFunc()
	prompt := cyan("citywatch> ")

	rl, err := readline.NewEx(&readline.Config{
		Prompt:            prompt,
		HistoryFile:       "",
		InterruptPrompt:   "^C",
		EOFPrompt:         "exit",
		HistorySearchFold: true,
	})
	if err != nil {
		return fmt.Errorf("failed to create readline: %w", err)
	}
	defer rl.Close()
	c.rl = rl

	c.printWelcome()

	for {
		line, err := rl.Readline()
		if err != nil {
			if err == readline.ErrInterrupt {
				continue
			} else if err == io.EOF {
				fmt.Println("\nGoodbye!")
				return nil
			}
			return err
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if err := c.processInput(line); err != nil {
			if err == io.EOF {
				return nil
			}
			red := color.New(color.FgRed).SprintFunc()
			fmt.Printf("%s %v\n", red("Error:"), err)
		}
	}
}

// processInput processes a single line of input
func (c *Console) processInput(line string) error {
	parts := strings.Fields(line)
	if len(parts) == 0 {
		return nil
	}

	command := parts[0]
	args := parts[1:]

	if handler, ok := c.commands[command]; ok {
		return handler(args)
	}

	yellow := color.New(color.FgYellow).SprintFunc()
	fmt.Printf("%s Unknown command %q. Use 'help' for available commands.\n", yellow("Note:"), command)
	return nil
}

func (c *Console) registerCommands() {
	c.commands["help"] = c.cmdHelp
	c.commands["?"] = c.cmdHelp
	c.commands["state"] = c.cmdState
	c.commands["events"] = c.cmdEvents
	c.commands["scenarios"] = c.cmdScenarios
	c.commands["counters"] = c.cmdCounters
	c.commands["pending"] = c.cmdPending
	c.commands["clear"] = c.cmdClear
	c.commands["exit"] = c.cmdExit
	c.commands["quit"] = c.cmdExit
}

func (c *Console) printWelcome() {
	cyan := color.New(color.FgCyan, color.Bold).SprintFunc()
	fmt.Printf("\n%s\n", cyan("citywatch console"))
	fmt.Println("Interactive shell over the running lifecycle observer")
	fmt.Println()
	fmt.Println("Type 'help' for available commands, 'exit' to quit")
	fmt.Println()
}

func (c *Console) cmdHelp(args []string) error {
	cyan := color.New(color.FgCyan, color.Bold).SprintFunc()
	green := color.New(color.FgGreen).SprintFunc()
	fmt.Printf("\n%s\n\n", cyan("Available Commands:"))

	commands := []struct {
		name string
		desc string
	}{
		{"state", "Show current lifecycle state and presentation context"},
		{"events [n]", "Show the n most recent event records (default 20)"},
		{"scenarios", "Show which usage scenarios have been detected"},
		{"counters", "Show transition, error, and hook counters"},
		{"pending", "Show outstanding pending user actions"},
		{"clear", "Wipe the event log, counters, and scenario flags"},
		{"help, ?", "Show this help message"},
		{"exit, quit", "Exit the console"},
	}
	for _, cmd := range commands {
		fmt.Printf("  %-12s %s\n", green(cmd.name), cmd.desc)
	}
	fmt.Println()
	return nil
}

func (c *Console) cmdState(args []string) error {
	info, err := c.client.State(c.ctx)
	if err != nil {
		return err
	}
	magenta := color.New(color.FgMagenta).SprintFunc()
	fmt.Printf("state: %s  context: %s\n", magenta(info.State), magenta(info.Context))
	return nil
}

func (c *Console) cmdEvents(args []string) error {
	n := 20
	if len(args) > 0 {
		parsed, err := strconv.Atoi(args[0])
		if err != nil || parsed < 1 {
			return fmt.Errorf("events takes a positive count, got %q", args[0])
		}
		n = parsed
	}
	records, err := c.client.Events(c.ctx, n)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		fmt.Println("no events recorded")
		return nil
	}
	for _, rec := range records {
		DisplayRecord(rec)
	}
	return nil
}

func (c *Console) cmdScenarios(args []string) error {
	scenarios, err := c.client.Scenarios(c.ctx)
	if err != nil {
		return err
	}
	green := color.New(color.FgGreen).SprintFunc()
	gray := color.New(color.FgHiBlack).SprintFunc()
	for _, sc := range scenarios {
		mark := gray("✗")
		if sc.Detected {
			mark = green("✓")
		}
		fmt.Printf("  %s %s\n", mark, sc.Name)
	}
	return nil
}

func (c *Console) cmdCounters(args []string) error {
	counters, err := c.client.Counters(c.ctx)
	if err != nil {
		return err
	}
	fmt.Printf("  valid transitions: %d\n", counters.ValidTransitions)
	fmt.Printf("  errors:            %d\n", counters.Errors)
	fmt.Printf("  demand (pre/in):   %d/%d\n", counters.PreGameDemand, counters.InGameDemand)
	for hook, count := range counters.Hooks {
		fmt.Printf("  hook %-18s %d\n", hook+":", count)
	}
	return nil
}

func (c *Console) cmdPending(args []string) error {
	pending, err := c.client.Pending(c.ctx)
	if err != nil {
		return err
	}
	if len(pending) == 0 {
		fmt.Println("no pending actions")
		return nil
	}
	for kind, pa := range pending {
		fmt.Printf("  %s %q (origin %s, issued %s)\n",
			kind, pa.Target, pa.Origin, pa.IssuedAt.Format("15:04:05"))
	}
	return nil
}

func (c *Console) cmdClear(args []string) error {
	if err := c.client.Clear(c.ctx); err != nil {
		return err
	}
	green := color.New(color.FgGreen).SprintFunc()
	fmt.Printf("%s Diagnostics cleared\n", green("✓"))
	return nil
}

func (c *Console) cmdExit(args []string) error {
	green := color.New(color.FgGreen).SprintFunc()
	fmt.Printf("\n%s Goodbye!\n", green("✓"))
	c.rl.Close()
	return io.EOF
}
