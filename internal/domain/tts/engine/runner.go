package engine

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"

	"github.com/leechanwoo-kor/chatterbox/internal/domain/audio"
	"github.com/leechanwoo-kor/chatterbox/internal/domain/tts/inter"
	"github.com/leechanwoo-kor/chatterbox/internal/platform/errors"
	"github.com/leechanwoo-kor/chatterbox/internal/utils"
)

const (
	defaultLoadTimeout     = 5 * time.Minute
	defaultGenerateTimeout = 2 * time.Minute

	// model checkpoints can emit multi-megabyte stderr noise on load
	maxLineSize = 1 << 20
)

// Config controls how runtime processes are spawned.
type Config struct {
	// Command is the runtime executable, e.g. "python3".
	Command string
	// Args precede the per-variant flags.
	Args []string
	// WorkDir is the process working directory. Empty inherits ours.
	WorkDir string
	// LoadTimeout bounds waiting for the ready line.
	LoadTimeout time.Duration
	// GenerateTimeout bounds a single synthesis job.
	GenerateTimeout time.Duration
}

func (c *Config) loadTimeout() time.Duration {
	if c.LoadTimeout > 0 {
		return c.LoadTimeout
	}
	return defaultLoadTimeout
}

func (c *Config) generateTimeout() time.Duration {
	if c.GenerateTimeout > 0 {
		return c.GenerateTimeout
	}
	return defaultGenerateTimeout
}

// Runner is one live runtime process hosting a loaded model variant.
// It implements inter.Engine. Jobs are serialized onto the pipe; the
// runtime answers in request order.
type Runner struct {
	variant    string
	sampleRate int
	genTimeout time.Duration

	cmd    *exec.Cmd
	stdin  io.WriteCloser
	lines  chan string
	logger *utils.Logger

	mu     sync.Mutex
	closed bool
}

// Factory spawns Runner processes. It implements inter.EngineFactory.
type Factory struct {
	cfg    Config
	logger *utils.Logger
}

func NewFactory(cfg Config, logger *utils.Logger) (*Factory, error) {
	if cfg.Command == "" {
		return nil, errors.New(errors.KindEngine, "factory.new", "runner command is empty")
	}
	return &Factory{cfg: cfg, logger: logger}, nil
}

// Load starts a runtime process for the variant and waits for it to
// report ready.
func (f *Factory) Load(ctx context.Context, variant, device string) (inter.Engine, error) {
	const op = "engine.load"

	args := append(append([]string{}, f.cfg.Args...),
		"--model", variant, "--device", device)
	cmd := exec.Command(f.cfg.Command, args...)
	cmd.Dir = f.cfg.WorkDir

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, errors.Wrap(errors.KindEngine, op, "open stdin pipe", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, errors.Wrap(errors.KindEngine, op, "open stdout pipe", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, errors.Wrap(errors.KindEngine, op, "open stderr pipe", err)
	}

	if err := cmd.Start(); err != nil {
		return nil, errors.Wrap(errors.KindEngine, op, "start runner process", err)
	}

	r := &Runner{
		variant:    variant,
		genTimeout: f.cfg.generateTimeout(),
		cmd:        cmd,
		stdin:      stdin,
		lines:      make(chan string),
		logger:     f.logger,
	}
	go r.readLoop(stdout)
	go r.drainStderr(stderr)

	ready, err := r.awaitReady(ctx, f.cfg.loadTimeout())
	if err != nil {
		r.kill()
		return nil, err
	}
	r.sampleRate = ready.SampleRate
	if f.logger != nil {
		f.logger.InfoTag("Engine", "runner ready for %s (pid %d, %d Hz)",
			variant, cmd.Process.Pid, ready.SampleRate)
	}
	return r, nil
}

func (r *Runner) readLoop(stdout io.Reader) {
	scanner := bufio.NewScanner(stdout)
	scanner.Buffer(make([]byte, 64*1024), maxLineSize)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		r.lines <- line
	}
	close(r.lines)
}

func (r *Runner) drainStderr(stderr io.Reader) {
	scanner := bufio.NewScanner(stderr)
	scanner.Buffer(make([]byte, 64*1024), maxLineSize)
	for scanner.Scan() {
		if r.logger != nil {
			r.logger.DebugTag("Engine", "%s: %s", r.variant, scanner.Text())
		}
	}
}

func (r *Runner) awaitReady(ctx context.Context, timeout time.Duration) (*readyMessage, error) {
	const op = "engine.load"

	deadline := time.NewTimer(timeout)
	defer deadline.Stop()

	select {
	case line, ok := <-r.lines:
		if !ok {
			return nil, errors.New(errors.KindEngine, op,
				"runner exited before reporting ready")
		}
		var ready readyMessage
		if err := sonic.UnmarshalString(line, &ready); err != nil {
			return nil, errors.Wrap(errors.KindEngine, op, "parse ready line", err)
		}
		if ready.Error != "" {
			return nil, errors.New(errors.KindEngine, op, ready.Error)
		}
		if !ready.Ready || ready.SampleRate <= 0 {
			return nil, errors.New(errors.KindEngine, op,
				fmt.Sprintf("malformed ready line: %q", line))
		}
		return &ready, nil
	case <-deadline.C:
		return nil, errors.New(errors.KindEngine, op,
			fmt.Sprintf("model %s not ready after %s", r.variant, timeout))
	case <-ctx.Done():
		return nil, errors.Wrap(errors.KindEngine, op, "load canceled", ctx.Err())
	}
}

// Generate sends one job to the runtime and collects the produced WAV.
func (r *Runner) Generate(ctx context.Context, req inter.SynthesizeRequest) (*inter.SynthesizeResult, error) {
	const op = "engine.generate"

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil, errors.New(errors.KindEngine, op, "engine is closed")
	}

	msg := request{
		ID:         uuid.NewString(),
		Text:       req.Text,
		LanguageID: req.LanguageID,
		VoicePath:  req.VoicePath,
	}
	payload, err := sonic.Marshal(msg)
	if err != nil {
		return nil, errors.Wrap(errors.KindEngine, op, "encode request", err)
	}
	if _, err := r.stdin.Write(append(payload, '\n')); err != nil {
		r.markBroken()
		return nil, errors.Wrap(errors.KindEngine, op, "write to runner", err)
	}

	resp, err := r.awaitResponse(ctx, msg.ID)
	if err != nil {
		return nil, err
	}
	if resp.Error != "" {
		return nil, errors.New(errors.KindEngine, op, resp.Error)
	}

	data, err := os.ReadFile(resp.AudioPath)
	if err != nil {
		return nil, errors.Wrap(errors.KindEngine, op, "read generated audio", err)
	}
	os.Remove(resp.AudioPath)

	wav, err := audio.EnsureWAV(data)
	if err != nil {
		return nil, errors.Wrap(errors.KindAudio, op, "normalize generated audio", err)
	}

	rate := resp.SampleRate
	if rate == 0 {
		rate = r.sampleRate
	}
	return &inter.SynthesizeResult{Audio: wav, SampleRate: rate}, nil
}

func (r *Runner) awaitResponse(ctx context.Context, id string) (*response, error) {
	const op = "engine.generate"

	timeout := time.NewTimer(r.genTimeout)
	defer timeout.Stop()

	for {
		select {
		case line, ok := <-r.lines:
			if !ok {
				r.markBroken()
				return nil, errors.New(errors.KindEngine, op, "runner exited mid-request")
			}
			var resp response
			if err := sonic.UnmarshalString(line, &resp); err != nil {
				if r.logger != nil {
					r.logger.WarnTag("Engine", "discarding unparseable line: %s", line)
				}
				continue
			}
			if resp.ID != id {
				// stale answer from an earlier timed-out job
				continue
			}
			return &resp, nil
		case <-timeout.C:
			r.markBroken()
			return nil, errors.New(errors.KindEngine, op, "synthesis timed out")
		case <-ctx.Done():
			return nil, errors.Wrap(errors.KindEngine, op, "synthesis canceled", ctx.Err())
		}
	}
}

// SampleRate reports the rate announced on the ready line.
func (r *Runner) SampleRate() int { return r.sampleRate }

// markBroken kills the process so the manager evicts this engine on the
// next error and a fresh one gets loaded. Callers hold r.mu.
func (r *Runner) markBroken() {
	if r.closed {
		return
	}
	r.closed = true
	r.kill()
}

func (r *Runner) kill() {
	r.stdin.Close()
	if r.cmd.Process != nil {
		r.cmd.Process.Kill()
	}
	go r.cmd.Wait()
	// unblock the read loop so it can observe EOF
	go func() {
		for range r.lines {
		}
	}()
}

// Close shuts the runtime down. Closing stdin asks it to exit; the
// process is killed if it lingers.
func (r *Runner) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil
	}
	r.closed = true

	r.stdin.Close()
	go func() {
		for range r.lines {
		}
	}()
	done := make(chan error, 1)
	go func() { done <- r.cmd.Wait() }()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		if r.cmd.Process != nil {
			r.cmd.Process.Kill()
		}
		<-done
	}
	return nil
}
