package main

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/vango-dev/querysync/internal/config"
	"github.com/vango-dev/querysync/pkg/querysync"
	"github.com/vango-dev/querysync/pkg/router"
	"github.com/vango-dev/querysync/pkg/server"
	"github.com/vango-dev/querysync/pkg/vango"
)

// step is one scripted action of a simulation.
type step struct {
	op  string
	arg string
}

func (s step) String() string {
	if s.arg == "" {
		return s.op
	}
	return s.op + " " + s.arg
}

// scenario is a scripted run of a single synchronized param.
type scenario struct {
	URL   string
	Param config.ParamConfig
	Steps []step
	Debug bool
}

func simulateCmd() *cobra.Command {
	var (
		sc       scenario
		rawSteps []string
		min, max float64
	)

	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Replay a scripted scenario against an in-memory router",
		Long: `Mount one synchronizer on an in-memory router at --url and replay
the given steps, one tick per step. Every navigation is printed as it
happens, followed by the final URL and store value.

Steps:
  set=VALUE        set the store (URL form; numbers are coerced)
  clear            set the store to absent
  navigate=URL     push an external navigation
  back             go back in history
  unmount          tear the synchronizer down

Examples:
  querysync simulate --url "/list?page=3" --key page --type number --min 1 --step set=0
  querysync simulate --url "/" --key tab --context users --step set=orders --step navigate=/?users_tab=x`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("min") {
				sc.Param.Min = &min
			}
			if cmd.Flags().Changed("max") {
				sc.Param.Max = &max
			}
			steps, err := parseSteps(rawSteps)
			if err != nil {
				return err
			}
			sc.Steps = steps
			return runSimulate(cmd.OutOrStdout(), sc)
		},
	}

	cmd.Flags().StringVarP(&sc.URL, "url", "u", "/", "Initial location")
	cmd.Flags().StringVarP(&sc.Param.Key, "key", "k", "page", "Param name")
	cmd.Flags().StringVar(&sc.Param.Context, "context", "", "Key prefix")
	cmd.Flags().StringVarP(&sc.Param.Type, "type", "t", config.TypeNumber, "Param type: string or number")
	cmd.Flags().StringVarP(&sc.Param.Default, "default", "d", "", "Initial store value in URL form")
	cmd.Flags().Float64Var(&min, "min", 0, "Smallest number the store accepts")
	cmd.Flags().Float64Var(&max, "max", 0, "Largest number the store accepts")
	cmd.Flags().StringArrayVarP(&rawSteps, "step", "s", nil, "Step to replay (repeatable)")
	cmd.Flags().BoolVar(&sc.Debug, "debug", false, "Log flushes and navigations")

	return cmd
}

func parseSteps(raw []string) ([]step, error) {
	steps := make([]step, 0, len(raw))
	for _, r := range raw {
		op, arg, hasArg := strings.Cut(r, "=")
		switch op {
		case "set", "navigate":
			if !hasArg {
				return nil, fmt.Errorf("step %q needs a value (%s=...)", r, op)
			}
		case "clear", "back", "unmount":
			if hasArg {
				return nil, fmt.Errorf("step %q takes no value", op)
			}
		default:
			return nil, fmt.Errorf("unknown step %q", r)
		}
		steps = append(steps, step{op: op, arg: arg})
	}
	return steps, nil
}

func runSimulate(w io.Writer, sc scenario) error {
	cfg := config.New()
	cfg.Params = []config.ParamConfig{sc.Param}
	if err := cfg.Validate(); err != nil {
		return err
	}

	loc, err := router.ParseLocation(sc.URL)
	if err != nil {
		return err
	}

	level := slog.LevelWarn
	if sc.Debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))

	r := router.NewMemoryRouter(loc, router.WithLogger(logger))
	queue := vango.NewMicrotaskQueue()
	binding := querysync.NewBinding(r,
		querysync.WithScheduler(queue),
		querysync.WithLogger(logger),
	)

	stop := r.OnNavigate(func(ev router.NavigationEvent) {
		fmt.Fprintf(w, "%-8s %s\n", ev.Kind, ev.To)
	})
	defer stop()

	param := server.NewParam(sc.Param)
	owner := vango.NewOwner(nil)
	defer owner.Dispose()

	var qs *querysync.Synchronizer
	tick := func(fn func()) {
		vango.WithOwner(owner, func() { queue.Tick(fn) })
	}

	fmt.Fprintf(w, "%-8s %s\n", "start", r.Peek())
	tick(func() {
		qs = binding.Use(sc.Param.Key, param.Get, param.Set, querysync.WithContext(sc.Param.Context))
	})

	for _, s := range sc.Steps {
		fmt.Fprintf(w, "# %s\n", s)
		tick(func() {
			switch s.op {
			case "set":
				param.Set(querysync.ParseQueryValue(s.arg))
			case "clear":
				param.Set(querysync.Absent())
			case "navigate":
				err = r.Navigate(s.arg)
			case "back":
				if !r.Back() {
					fmt.Fprintln(w, "no history")
				}
			case "unmount":
				qs.Close()
			}
		})
		if err != nil {
			return err
		}
	}

	fmt.Fprintf(w, "%-8s %s\n", "final", r.Peek())
	fmt.Fprintf(w, "%-8s %s=%s\n", "store", qs.Key(), storeText(param.Peek()))
	return nil
}

func storeText(v querysync.Value) string {
	if v.IsAbsent() {
		return "(absent)"
	}
	return fmt.Sprintf("%q", v.String())
}
