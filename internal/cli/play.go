package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/aretw0/storyline/internal/logging"
	"github.com/aretw0/storyline/internal/presentation/tui"
	"github.com/aretw0/storyline/pkg/domain"
	"github.com/aretw0/storyline/pkg/session"
)

const playHelp = `Commands:
  <enter>, n      next line
  1..9            pick a choice
  b, back         rewind to the last choice
  h, history      show the transcript
  s N, save N     save into slot N
  l N, load N     load slot N
  slots           list save slots
  j ID, jump ID   jump to a node
  jumps           list recent jumps
  ?, help         this help
  q, quit         leave`

// Player drives one player's session from line-based input.
type Player struct {
	Manager *session.Manager
	ID      string
	Out     io.Writer
	Render  tui.Renderer
	Now     func() time.Time
	Logger  *slog.Logger
}

// ReadLines pumps r into a channel, one trimmed line per item. The channel
// closes on EOF. There must be a single pump per reader.
func ReadLines(ctx context.Context, r io.Reader) <-chan string {
	out := make(chan string)
	go func() {
		defer close(out)
		scanner := bufio.NewScanner(r)
		for scanner.Scan() {
			select {
			case out <- strings.TrimSpace(scanner.Text()):
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

func (p *Player) defaults() {
	if p.Render == nil {
		p.Render = tui.PlainRenderer
	}
	if p.Now == nil {
		p.Now = time.Now
	}
	if p.Logger == nil {
		p.Logger = logging.NewNop()
	}
}

// Run starts (or, with loadSlot >= 0, loads) the session and processes input
// until quit, EOF or ctx is done. Graphs received on reloads replace the story
// while keeping the player's place.
func (p *Player) Run(ctx context.Context, loadSlot int, input <-chan string, reloads <-chan *domain.Graph) error {
	p.defaults()

	var (
		frame domain.Frame
		err   error
	)
	if loadSlot >= 0 {
		frame, err = p.Manager.LoadSlot(ctx, p.ID, loadSlot)
		if err == nil {
			printSystemMessage(p.Out, "Loaded slot %d.", loadSlot)
		}
	} else {
		frame, err = p.Manager.Start(ctx, p.ID)
	}
	if err != nil {
		return err
	}
	p.show(frame)

	for {
		fmt.Fprint(p.Out, "> ")
		select {
		case <-ctx.Done():
			fmt.Fprintln(p.Out)
			return ctx.Err()
		case g, ok := <-reloads:
			if !ok {
				reloads = nil
				continue
			}
			fmt.Fprintln(p.Out)
			if err := p.reload(ctx, g); err != nil {
				return err
			}
		case line, ok := <-input:
			if !ok {
				return nil
			}
			quit, err := p.handle(ctx, line)
			if err != nil {
				return err
			}
			if quit {
				return nil
			}
		}
	}
}

func (p *Player) reload(ctx context.Context, g *domain.Graph) error {
	kept, _ := p.Manager.Reload(ctx, g)
	for _, id := range kept {
		if id == p.ID {
			printSystemMessage(p.Out, "Story changed, resuming in place.")
			frame, err := p.Manager.View(ctx, p.ID)
			if err != nil {
				return err
			}
			p.show(frame)
			return nil
		}
	}
	printSystemMessage(p.Out, "Story changed and the current node is gone, starting over.")
	frame, err := p.Manager.Start(ctx, p.ID)
	if err != nil {
		return err
	}
	p.show(frame)
	return nil
}

func (p *Player) show(f domain.Frame) {
	p.print(tui.FrameMarkdown(f))
}

func (p *Player) print(markdown string) {
	out, err := p.Render(markdown)
	if err != nil {
		out = markdown
	}
	fmt.Fprint(p.Out, out)
}

// handle runs one command. Engine and store errors are reported to the player
// and do not end the loop.
func (p *Player) handle(ctx context.Context, line string) (bool, error) {
	cmd, arg, _ := strings.Cut(line, " ")
	arg = strings.TrimSpace(arg)

	switch strings.ToLower(cmd) {
	case "q", "quit", "exit":
		return true, nil
	case "?", "help":
		fmt.Fprintln(p.Out, playHelp)
	case "", "n", "next":
		p.transition(p.Manager.Next(ctx, p.ID))
	case "b", "back", "rewind":
		p.transition(p.Manager.Rewind(ctx, p.ID))
	case "h", "history":
		history, err := p.Manager.History(ctx, p.ID)
		if err != nil {
			p.fail(err)
			break
		}
		p.print(tui.HistoryMarkdown(history))
	case "s", "save":
		slot, ok := p.slotArg(arg)
		if !ok {
			break
		}
		rec, err := p.Manager.SaveSlot(ctx, p.ID, slot, p.Now())
		if err != nil {
			p.fail(err)
			break
		}
		printSystemMessage(p.Out, "Saved slot %d: %s", slot, rec.PreviewText)
	case "l", "load":
		slot, ok := p.slotArg(arg)
		if !ok {
			break
		}
		frame, err := p.Manager.LoadSlot(ctx, p.ID, slot)
		if err != nil {
			p.fail(err)
			break
		}
		printSystemMessage(p.Out, "Loaded slot %d.", slot)
		p.show(frame)
	case "slots":
		slots, err := p.Manager.Slots(ctx, p.ID)
		if err != nil {
			p.fail(err)
			break
		}
		for _, s := range slots {
			fmt.Fprintf(p.Out, "  [%d] %-16s %s\n", s.Slot, s.SaveTime, s.PreviewText)
		}
	case "j", "jump":
		if arg == "" {
			printSystemMessage(p.Out, "Jump needs a node id.")
			break
		}
		frame, err := p.Manager.Jump(ctx, p.ID, arg)
		if err != nil {
			p.fail(err)
			break
		}
		printSystemMessage(p.Out, "Jumped to %s.", arg)
		p.show(frame)
	case "jumps":
		jumps, err := p.Manager.Jumps(ctx, p.ID)
		if err != nil {
			p.fail(err)
			break
		}
		if len(jumps) == 0 {
			printSystemMessage(p.Out, "No jumps yet.")
			break
		}
		for i, id := range jumps {
			fmt.Fprintf(p.Out, "  %d. %s\n", i+1, id)
		}
	default:
		n, err := strconv.Atoi(cmd)
		if err != nil {
			printSystemMessage(p.Out, "Unknown command %q, type ? for help.", line)
			break
		}
		p.transition(p.Manager.Choose(ctx, p.ID, n-1))
	}
	return false, nil
}

func (p *Player) slotArg(arg string) (int, bool) {
	slot, err := strconv.Atoi(arg)
	if err != nil {
		printSystemMessage(p.Out, "Slot must be a number between 0 and %d.", p.Manager.SlotCount()-1)
		return 0, false
	}
	return slot, true
}

// transition reports the outcome of a move. A dangling target still moves
// the session, so the frame is shown anyway.
func (p *Player) transition(frame domain.Frame, err error) {
	if err != nil {
		p.fail(err)
		if !errors.Is(err, domain.ErrDanglingReference) {
			return
		}
	}
	p.show(frame)
}

func (p *Player) fail(err error) {
	p.Logger.Warn("Command failed", "player", p.ID, "err", err)
	var d domain.Diagnostic
	switch {
	case errors.As(err, &d) && d.Kind == domain.DiagInvalidOp:
		printSystemMessage(p.Out, "Not now: %s", d.Message)
	case errors.Is(err, domain.ErrSaveNotFound):
		printSystemMessage(p.Out, "That slot is empty.")
	default:
		printSystemMessage(p.Out, "Error: %v", err)
	}
}
