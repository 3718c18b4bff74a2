package sh

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"strings"

	"github.com/abiosoft/ishell"
	"github.com/golang/glog"

	"github.com/robotalks/dspi/pkg/cli/parse"
	fx "github.com/robotalks/dspi/pkg/framework"
	"github.com/robotalks/dspi/pkg/host"
)

// Shell provides ishell backed interactive shell.
type Shell struct {
	Interactive bool

	Shell  *ishell.Shell
	Config *host.Config
	Worker *host.Worker

	runner  *fx.Runner
	cancel  func()
	lastErr error
}

const (
	shellKey = "$shell"
	prompt   = "dspi > "
)

var (
	// flags

	evalOnly bool

	// commands
	commands = []*ishell.Cmd{
		&HelpCmd,
	}
)

func init() {
	flag.BoolVar(&evalOnly, "e", evalOnly, "Evaluation only, no interactive shell.")
}

// AddCmds is used by other commands providers during init func.
func AddCmds(cmds ...*ishell.Cmd) {
	commands = append(commands, cmds...)
}

// New creates a new shell with a worker on the configured link.
func New(conf *host.Config) (*Shell, error) {
	worker, err := conf.NewWorker()
	if err != nil {
		return nil, err
	}
	return NewWithWorker(conf, worker), nil
}

// NewWithWorker creates a new shell using an existing worker.
func NewWithWorker(conf *host.Config, worker *host.Worker) *Shell {
	s := &Shell{
		Interactive: !evalOnly,
		Shell:       ishell.New(),
		Config:      conf,
		Worker:      worker,
	}
	s.Shell.Set(shellKey, s)
	s.Shell.SetPrompt(prompt)
	for _, cmd := range commands {
		s.Shell.AddCmd(cmd)
	}
	s.Shell.NotFound(func(c *ishell.Context) {
		if len(c.Args) > 0 {
			if verb := strings.ToLower(c.Args[0]); verb != c.Args[0] {
				// verbs are case-insensitive, retry with the registered name.
				if err := s.Shell.Process(append([]string{verb}, c.Args[1:]...)...); err != nil {
					c.Err(err)
				}
				return
			}
		}
		DoLine(c, c.Args)
	})
	return s
}

// ShellFrom gets Shell from ishell context.
func ShellFrom(c *ishell.Context) *Shell {
	return c.Get(shellKey).(*Shell)
}

// Usage returns the help text of all commands.
func Usage() string {
	var sb strings.Builder
	sb.WriteString(parse.Usage)
	sb.WriteString(parse.CounterUsage)
	sb.WriteString("status\t\t\t-\tshow link and session state\n")
	return sb.String()
}

// Start brings up the link and starts the worker in background.
func (s *Shell) Start(ctx context.Context) error {
	initCtx, cancel := context.WithTimeout(ctx, s.Config.Timeout)
	err := s.Worker.Init(initCtx)
	cancel()
	if err != nil {
		return err
	}
	ctx, s.cancel = context.WithCancel(ctx)
	s.runner = fx.NewRunnerWith(ctx).Go(s.Worker)
	return nil
}

// Stop stops the worker and releases the link.
func (s *Shell) Stop() error {
	if s.cancel == nil {
		return nil
	}
	s.cancel()
	return s.runner.Wait()
}

// Do submits a request to the worker and waits for the result
// within the configured timeout.
func (s *Shell) Do(req host.Request) (host.Result, error) {
	ctx, cancel := context.WithTimeout(context.Background(), s.Config.Timeout)
	defer cancel()
	res, err := s.Worker.Session.Do(ctx, req)
	if errors.Is(err, context.DeadlineExceeded) {
		err = fmt.Errorf("command timeout")
	}
	return res, err
}

// DoRequest runs a request and prints the result.
func DoRequest(c *ishell.Context, req host.Request) error {
	s := ShellFrom(c)
	res, err := s.Do(req)
	if err != nil {
		s.fail(c, err)
		return err
	}
	c.Println(res.String())
	return nil
}

// DoLine interprets args as a register command line and runs it.
func DoLine(c *ishell.Context, args []string) error {
	req, err := parse.Parse(strings.Join(args, " "))
	if errors.Is(err, parse.ErrHelp) {
		c.Print(Usage())
		return nil
	}
	if err != nil {
		ShellFrom(c).fail(c, err)
		return err
	}
	return DoRequest(c, req)
}

// DoParsed runs the request produced by a parser over the command args.
// Parse errors are reported with the usage hint and nothing is sent.
func DoParsed(c *ishell.Context, parser func([]string) (host.Request, error)) error {
	req, err := parser(c.Args)
	if err != nil {
		ShellFrom(c).fail(c, err)
		return err
	}
	return DoRequest(c, req)
}

// fail records err as the command error, parse errors come with the usage.
func (s *Shell) fail(c *ishell.Context, err error) {
	s.lastErr = err
	c.Err(err)
	if parse.KindOf(err) != 0 {
		c.Print(Usage())
	}
}

// Run runs the shell. In evaluation mode, the error of the command is
// returned.
func (s *Shell) Run(args ...string) error {
	if len(args) > 0 {
		s.lastErr = nil
		if err := s.Shell.Process(args...); err != nil {
			return err
		}
		return s.lastErr
	}
	if s.Interactive {
		s.Shell.Println(Usage())
		s.Shell.Run()
		return nil
	}
	return fmt.Errorf("command expected")
}

var (
	// HelpCmd prints the usage.
	HelpCmd = ishell.Cmd{
		Name:    "help",
		Aliases: []string{"?"},
		Help:    "print usage",
		Func: func(c *ishell.Context) {
			c.Print(Usage())
		},
	}
)

// Main is a helper to provide a single call in main.
func Main() {
	flag.Parse()
	s, err := New(host.Default())
	if err != nil {
		glog.Exitf("%v", err)
	}
	if err := s.Start(context.Background()); err != nil {
		glog.Exitf("%v", err)
	}
	err = s.Run(flag.Args()...)
	if stopErr := s.Stop(); stopErr != nil {
		glog.Warningf("stop: %v", stopErr)
	}
	glog.Flush()
	if err != nil {
		glog.Exitf("%v", err)
	}
}
