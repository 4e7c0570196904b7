package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/wippyai/evemu"
	"github.com/wippyai/evemu/config"
	"github.com/wippyai/evemu/device"
	"github.com/wippyai/evemu/errors"
	"github.com/wippyai/evemu/inputdev"
	"github.com/wippyai/evemu/native"
	"github.com/wippyai/evemu/session"
)

func usage() {
	fmt.Fprintln(os.Stderr, "Usage: evemu [-lib libevemu.so] [-v] <command> [args]")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Commands:")
	fmt.Fprintln(os.Stderr, "  devices                              list input devices")
	fmt.Fprintln(os.Stderr, "  describe [node]                      print a device description")
	fmt.Fprintln(os.Stderr, "  record [-o file] [-idle d] [node]    record one device")
	fmt.Fprintln(os.Stderr, "  record -idle d -mouse n [-mouse-x x] [-mouse-y y] [-device n ...]")
	fmt.Fprintln(os.Stderr, "                                       record a multi-device session")
	fmt.Fprintln(os.Stderr, "  create <description>                 create a virtual device until interrupted")
	fmt.Fprintln(os.Stderr, "  play -description <file> <events>    create a device and replay events into it")
	fmt.Fprintln(os.Stderr, "  replay [session]                     replay a session file (default stdin)")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintf(os.Stderr, "The library path defaults to $%s.\n", config.EnvLibrary)
}

func main() {
	var (
		libPath = flag.String("lib", "", "Path to the libevemu shared object")
		verbose = flag.Bool("v", false, "Verbose logging")
	)
	flag.Usage = usage
	flag.Parse()

	if flag.NArg() < 1 {
		usage()
		os.Exit(2)
	}

	if *verbose {
		logger, err := zap.NewDevelopment()
		if err == nil {
			setLoggers(logger)
			defer logger.Sync()
		}
	}

	cfg := config.FromEnv().WithLibrary(*libPath)
	if err := run(cfg, flag.Arg(0), flag.Args()[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func setLoggers(l *zap.Logger) {
	evemu.SetLogger(l.Named("evemu"))
	native.SetLogger(l.Named("native"))
	device.SetLogger(l.Named("device"))
	session.SetLogger(l.Named("session"))
	inputdev.SetLogger(l.Named("inputdev"))
}

func run(cfg config.Config, cmd string, args []string) error {
	switch cmd {
	case "devices":
		return listDevices(os.Stdout)
	case "describe":
		return describe(cfg, args)
	case "record":
		return record(cfg, args)
	case "create":
		return create(cfg, args)
	case "play":
		return play(cfg, args)
	case "replay":
		return replay(cfg, args)
	default:
		usage()
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func listDevices(w io.Writer) error {
	nodes, err := inputdev.List()
	if err != nil {
		return err
	}
	if len(nodes) == 0 {
		return fmt.Errorf("no readable input devices, check permissions on /dev/input")
	}
	for _, n := range nodes {
		kind := ""
		if n.Pointer {
			kind = "  (pointer)"
		}
		fmt.Fprintf(w, "%s:\t%s%s\n", n.Path, n.Name, kind)
	}
	return nil
}

// selectNode returns the node named on the command line, or lets the user
// pick one when running on a terminal.
func selectNode(args []string, title string) (string, error) {
	if len(args) > 1 {
		return "", fmt.Errorf("expected at most one device node, got %d arguments", len(args))
	}
	if len(args) == 1 {
		return args[0], nil
	}
	if !term.IsTerminal(int(os.Stdin.Fd())) || !term.IsTerminal(int(os.Stderr.Fd())) {
		return "", errors.Precondition(title, "a device node is required when not running on a terminal")
	}

	nodes, err := inputdev.List()
	if err != nil {
		return "", err
	}
	if len(nodes) == 0 {
		return "", fmt.Errorf("no readable input devices, check permissions on /dev/input")
	}
	return runPicker(title, nodes)
}

func describe(cfg config.Config, args []string) error {
	node, err := selectNode(args, "describe")
	if err != nil {
		return err
	}
	emu, err := evemu.New(cfg)
	if err != nil {
		return err
	}
	defer emu.Close()
	return emu.Describe(node, os.Stdout)
}

func record(cfg config.Config, args []string) error {
	fs := flag.NewFlagSet("record", flag.ContinueOnError)
	output := fs.String("o", "", "Write the recording to this file instead of stdout")
	idle := fs.Duration("idle", 0, "Stop after this long without events (0 records until interrupted)")
	opts := &config.RecordOptions{}
	opts.RegisterFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}

	out := io.Writer(os.Stdout)
	if *output != "" {
		f, err := os.Create(*output)
		if err != nil {
			return err
		}
		defer f.Close()
		out = f
	}

	if !opts.Empty() {
		if fs.NArg() > 0 {
			return fmt.Errorf("session recording takes devices from -mouse and -device only")
		}
		if err := opts.Validate(); err != nil {
			return err
		}
		if *idle <= 0 {
			return fmt.Errorf("session recording needs a positive -idle timeout")
		}
		emu, err := evemu.New(cfg)
		if err != nil {
			return err
		}
		defer emu.Close()
		return emu.RecordSession(opts, out, *idle)
	}

	node, err := selectNode(fs.Args(), "record")
	if err != nil {
		return err
	}
	emu, err := evemu.New(cfg)
	if err != nil {
		return err
	}
	defer emu.Close()

	wait := *idle
	if wait <= 0 {
		wait = -1
	}
	return emu.Record(node, out, wait)
}

func create(cfg config.Config, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: evemu create <description>")
	}
	emu, err := evemu.New(cfg)
	if err != nil {
		return err
	}
	defer emu.Close()

	vd, err := emu.CreateDevice(args[0])
	if err != nil {
		return err
	}
	node, err := vd.Node()
	if err != nil {
		node = "(event node not found)"
	}
	fmt.Printf("%s: %s\n", vd.Name(), node)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()
	return nil
}

func play(cfg config.Config, args []string) error {
	fs := flag.NewFlagSet("play", flag.ContinueOnError)
	desc := fs.String("description", "", "Device description to create the virtual device from")
	settle := fs.Duration("settle", 500*time.Millisecond, "Wait this long after creating the device before playing")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *desc == "" || fs.NArg() != 1 {
		return fmt.Errorf("usage: evemu play -description <file> <events>")
	}

	emu, err := evemu.New(cfg)
	if err != nil {
		return err
	}
	defer emu.Close()

	if _, err := emu.CreateDevice(*desc); err != nil {
		return err
	}
	time.Sleep(*settle)
	return emu.Play(fs.Arg(0))
}

func replay(cfg config.Config, args []string) error {
	if len(args) > 1 {
		return fmt.Errorf("usage: evemu replay [session]")
	}

	in := io.Reader(os.Stdin)
	if len(args) == 1 {
		f, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer f.Close()
		in = f
	}

	s, err := session.Parse(in)
	if err != nil {
		return err
	}

	emu, err := evemu.New(cfg)
	if err != nil {
		return err
	}
	defer emu.Close()
	return emu.ReplaySession(s)
}
