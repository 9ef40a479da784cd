// Package console is the presentation layer: a readline REPL plus the
// single UI-owning event loop that both polls the outcome inbox and executes
// user commands. Model calls never run on this goroutine.
package console

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/chzyer/readline"
	"github.com/rs/zerolog"

	"mldesk/internal/registry"
	"mldesk/internal/runner"
	"mldesk/pkg/types"
)

// App wires the registry, runner and view together and owns all mutable
// presentation state (selected model, selected input).
type App struct {
	reg       *registry.Registry
	runner    *runner.Runner
	poller    *runner.Poller
	view      *View
	explainer Explainer
	log       zerolog.Logger

	selectedModel string
	input         selectedInput
	quit          bool
}

// NewApp builds the app; the view doubles as the poller's outcome handler.
func NewApp(reg *registry.Registry, run *runner.Runner, inbox *runner.Inbox, pollInterval time.Duration, view *View, log zerolog.Logger) *App {
	a := &App{
		reg:    reg,
		runner: run,
		view:   view,
		log:    log,
		input:  selectedInput{mode: modeText},
	}
	a.poller = runner.NewPoller(inbox, view, pollInterval)
	if names := reg.Names(); len(names) > 0 {
		a.selectedModel = names[0]
	}
	return a
}

// Run drives the UI-owning loop: a fixed poll tick plus user commands, both
// handled on this one goroutine, until quit, EOF or cancellation.
func (a *App) Run(ctx context.Context) error {
	rl, err := readline.New("mldesk> ")
	if err != nil {
		return err
	}
	defer rl.Close()

	lines := make(chan string)
	go func() {
		defer close(lines)
		for {
			line, err := rl.Readline()
			if err != nil { // io.EOF or interrupt
				return
			}
			lines <- line
		}
	}()

	a.view.Say("mldesk — type 'help' for commands")
	a.view.Notice("selected model: %s", a.selectedModel)

	ticker := time.NewTicker(a.poller.Interval())
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			a.poller.Poll()
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			a.dispatch(ctx, strings.TrimSpace(line))
			if a.quit {
				return nil
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (a *App) dispatch(ctx context.Context, line string) {
	if line == "" {
		return
	}
	fields := strings.Fields(line)
	cmd, args := fields[0], fields[1:]
	a.log.Debug().Str("cmd", cmd).Int("args", len(args)).Msg("command")
	switch cmd {
	case "help":
		a.showHelp()
	case "models":
		a.view.ShowModels(a.reg.Infos())
	case "info":
		a.cmdInfo(args)
	case "select":
		a.cmdSelect(args)
	case "text":
		a.input.setText(strings.Join(args, " "))
		a.view.Notice("text input set (%d chars)", len(a.input.text))
	case "image":
		a.cmdImage(args)
	case "clear":
		a.input.clear()
		a.view.Notice("input cleared")
	case "load":
		a.cmdLoad(ctx, args)
	case "loadall":
		a.view.Notice("loading all models in background")
		a.runner.LoadAll(ctx)
	case "run":
		a.cmdRun(ctx, a.selectedModel)
	case "run2":
		other, err := a.reg.OtherThan(a.selectedModel)
		if err != nil {
			a.view.ShowError(err.Error())
			return
		}
		a.cmdRun(ctx, other)
	case "chain":
		a.cmdChain(ctx, args)
	case "concepts":
		a.view.Say("%s", a.explainer.Explain())
	case "quit", "exit":
		a.quit = true
	default:
		a.view.ShowError("unknown command: " + cmd + " (try 'help')")
	}
}

func (a *App) showHelp() {
	a.view.Say(`commands:
  models              list registered models
  info [model]        show model details
  select <model>      choose the model 'run' uses (name or number)
  text <prompt...>    select text input
  image <path>        select image input
  clear               clear the selected input
  load [model]        load a model in the background
  loadall             load every model (may download a lot)
  run                 run the selected model on the selected input
  run2                run the other model on the selected input
  chain <prompt...>   generate an image, then classify it
  concepts            explain the design concepts in this app
  quit                exit`)
}

// resolveName accepts a 1-based index or a (possibly multi-word) model name.
func (a *App) resolveName(args []string) (string, error) {
	if len(args) == 0 {
		return a.selectedModel, nil
	}
	joined := strings.Join(args, " ")
	if idx, err := strconv.Atoi(joined); err == nil {
		names := a.reg.Names()
		if idx < 1 || idx > len(names) {
			return "", fmt.Errorf("model number out of range: %d", idx)
		}
		return names[idx-1], nil
	}
	if _, err := a.reg.Get(joined); err != nil {
		return "", err
	}
	return joined, nil
}

func (a *App) cmdInfo(args []string) {
	name, err := a.resolveName(args)
	if err != nil {
		a.view.ShowError(err.Error())
		return
	}
	p, err := a.reg.Get(name)
	if err != nil {
		a.view.ShowError(err.Error())
		return
	}
	a.view.ShowInfo(p.Info())
}

func (a *App) cmdSelect(args []string) {
	if len(args) == 0 {
		a.view.ShowError("select needs a model name or number")
		return
	}
	name, err := a.resolveName(args)
	if err != nil {
		a.view.ShowError(err.Error())
		return
	}
	a.selectedModel = name
	a.view.Notice("selected model: %s", name)
}

func (a *App) cmdImage(args []string) {
	if len(args) == 0 {
		a.view.ShowError("image needs a file path")
		return
	}
	path := strings.Join(args, " ")
	if err := a.input.setImage(path); err != nil {
		a.view.ShowError(err.Error())
		return
	}
	a.view.Notice("image input set: %s", path)
}

func (a *App) cmdLoad(ctx context.Context, args []string) {
	name, err := a.resolveName(args)
	if err != nil {
		a.view.ShowError(err.Error())
		return
	}
	a.view.Notice("loading %s in background", name)
	a.runner.LoadOne(ctx, name)
}

// cmdRun validates the mode/model pairing before submitting; the adapters
// themselves do not police prompts.
func (a *App) cmdRun(ctx context.Context, model string) {
	p, err := a.reg.Get(model)
	if err != nil {
		a.view.ShowError(err.Error())
		return
	}
	if a.input.empty() {
		a.view.ShowError("no input selected; use 'text <prompt>' or 'image <path>'")
		return
	}
	category := p.Info().Category
	switch {
	case category == types.CategoryTextToImage && a.input.mode != modeText:
		a.view.ShowError(model + " needs text input; use 'text <prompt>'")
		return
	case category == types.CategoryImageClassification && a.input.mode != modeImage:
		a.view.ShowError(model + " needs an image input; use 'image <path>'")
		return
	}
	a.view.Notice("running %s in background", model)
	a.runner.RunOne(ctx, model, a.input.value())
}

func (a *App) cmdChain(ctx context.Context, args []string) {
	prompt := strings.Join(args, " ")
	if prompt == "" && a.input.mode == modeText {
		prompt = a.input.text
	}
	if prompt == "" {
		a.view.ShowError("chain needs a prompt")
		return
	}
	a.view.Notice("running generate->classify chain in background")
	a.runner.RunChain(ctx, prompt)
}
