// Command gcdemo drives the incremental marker against a small simulated
// heap, either by replaying a scripted command file (tokenized with
// github.com/google/shlex) or by single-stepping interactively on each
// keypress (via github.com/mattn/go-tty), and writes a trace of the run
// through internal/tracez.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/google/shlex"
	"github.com/mattn/go-tty"

	incmark "github.com/domyhero/v8gc"
	"github.com/domyhero/v8gc/internal/config"
	"github.com/domyhero/v8gc/internal/tracez"
	"github.com/domyhero/v8gc/simheap"
)

func main() {
	scriptPath := flag.String("script", "", "path to a command script; omit for interactive stepping")
	configPath := flag.String("config", "", "path to a YAML tuning file; omit for defaults")
	profilePath := flag.String("profile", "gcdemo.pprof", "where to write the per-step duration profile")
	flag.Parse()

	tuning := incmark.DefaultTuning()
	if *configPath != "" {
		var err error
		tuning, err = config.Load(*configPath)
		if err != nil {
			fmt.Fprintln(os.Stderr, "gcdemo:", err)
			os.Exit(1)
		}
	}

	tracer := tracez.New(nil, true)
	colors := incmark.NewColorStore()
	heap := simheap.New(colors)
	worklist := incmark.NewWorklist(0)
	compactor := simheap.NewCompactor(false)
	visitor := incmark.NewVisitor(colors, worklist, heap, compactor, heap, false)
	barrier := incmark.NewWriteBarrier(colors, worklist, compactor)

	var roots []incmark.Object
	rootSet := simheap.NewRootSet(&roots)

	ctrl := incmark.NewController(tuning, colors, worklist, visitor, barrier, rootSet, tracer)
	ctrl.SetPeers(heap, compactor, &simheap.EmbedderTracer{}, nil, &simheap.StackGuard{}, &simheap.StubsRegistry{})
	barrier.SetRestartHook(func() {
		if ctrl.State() == incmark.Marking {
			ctrl.Step(1<<20, incmark.NoForceCompletion)
		}
	})

	env := &demoEnv{heap: heap, colors: colors, ctrl: ctrl, roots: &roots, objects: map[string]incmark.Object{}, maps: map[string]incmark.Object{}}

	if *scriptPath != "" {
		runScript(env, *scriptPath)
	} else {
		runInteractive(env)
	}

	if err := tracer.Flush(*profilePath); err != nil {
		fmt.Fprintln(os.Stderr, "gcdemo:", err)
	}
}

// demoEnv holds the names the script/REPL can refer to.
type demoEnv struct {
	heap    *simheap.Heap
	colors  *incmark.ColorStore
	ctrl    *incmark.Controller
	roots   *[]incmark.Object
	objects map[string]incmark.Object
	maps    map[string]incmark.Object
}

func runScript(env *demoEnv, path string) {
	f, err := os.Open(path)
	if err != nil {
		fmt.Fprintln(os.Stderr, "gcdemo:", err)
		os.Exit(1)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		tokens, err := shlex.Split(line)
		if err != nil || len(tokens) == 0 {
			continue
		}
		dispatch(env, tokens)
	}
}

func runInteractive(env *demoEnv) {
	t, err := tty.Open()
	if err != nil {
		fmt.Fprintln(os.Stderr, "gcdemo: interactive mode unavailable:", err)
		return
	}
	defer t.Close()

	fmt.Println("gcdemo: press 's' to Step, 'h' to Hurry, 'q' to quit")
	for {
		r, err := t.ReadRune()
		if err != nil {
			return
		}
		switch r {
		case 's':
			env.ctrl.Step(64*1024, incmark.NoForceCompletion)
			fmt.Println("state:", env.ctrl.State())
		case 'h':
			env.ctrl.Hurry(nil)
			fmt.Println("hurried; state:", env.ctrl.State())
		case 'q':
			return
		}
	}
}

func dispatch(env *demoEnv, tokens []string) {
	switch tokens[0] {
	case "start":
		env.ctrl.Start(incmark.ReasonTesting)
	case "step":
		n := uintptr(64 * 1024)
		if len(tokens) > 1 {
			if v, err := strconv.Atoi(tokens[1]); err == nil {
				n = uintptr(v)
			}
		}
		env.ctrl.Step(n, incmark.NoForceCompletion)
	case "hurry":
		env.ctrl.Hurry(nil)
	case "stop":
		env.ctrl.Stop()
	case "sleep":
		if len(tokens) > 1 {
			if ms, err := strconv.Atoi(tokens[1]); err == nil {
				time.Sleep(time.Duration(ms) * time.Millisecond)
			}
		}
	}
}
