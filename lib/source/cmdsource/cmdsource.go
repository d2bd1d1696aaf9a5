// Package cmdsource reads raw frames from the stdout of a shell command,
// typically ffmpeg or gst-launch writing rawvideo.
package cmdsource

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"sync"
	"syscall"
	"time"

	"github.com/fosdem/glupload/lib/buffer"
	"github.com/fosdem/glupload/lib/config"
	"github.com/fosdem/glupload/lib/encdec"
	"github.com/fosdem/glupload/lib/source"
)

// RestartDelay is the pause before a command that exited is started again.
var RestartDelay = 1 * time.Second

type CmdSource struct {
	name     string
	shellCmd string
	info     encdec.VideoInfo
	logger   *slog.Logger
	slot     *source.FrameSlot

	cancel context.CancelFunc
	done   sync.WaitGroup
}

func New(name string, cfg *config.CommandSourceCfg) (*CmdSource, error) {
	info, err := cfg.Info()
	if err != nil {
		return nil, err
	}
	return &CmdSource{
		name:     name,
		shellCmd: cfg.Cmd,
		info:     *info,
		logger:   slog.Default().With(slog.String("module", name)),
		slot:     source.NewFrameSlot(name),
	}, nil
}

func (c *CmdSource) Name() string {
	return c.name
}

func (c *CmdSource) Info() encdec.VideoInfo {
	return c.info
}

func (c *CmdSource) Start() error {
	ctx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel
	c.done.Add(1)
	go func() {
		defer c.done.Done()
		c.run(ctx)
	}()
	return nil
}

// run keeps the command alive until ctx is cancelled.
func (c *CmdSource) run(ctx context.Context) {
	for ctx.Err() == nil {
		c.logger.Info("starting command")
		if err := c.runOnce(ctx); err != nil && ctx.Err() == nil {
			c.logger.Warn(fmt.Sprintf("command error: %s", err))
		}
		select {
		case <-ctx.Done():
		case <-time.After(RestartDelay):
		}
	}
}

func (c *CmdSource) runOnce(ctx context.Context) error {
	cmd := exec.CommandContext(ctx, "bash", "-c", c.shellCmd)
	cmd.SysProcAttr = &syscall.SysProcAttr{Pdeathsig: syscall.SIGTERM, Setpgid: true}
	// children of the shell hold stdout open, so the whole group must go
	cmd.Cancel = func() error {
		return syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("could not get stdout: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("could not get stderr: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("could not start: %w", err)
	}

	go c.processStderr(stderr)
	readErr := c.processStdout(stdout)
	waitErr := cmd.Wait()
	if readErr != nil && readErr != io.EOF {
		return readErr
	}
	return waitErr
}

func (c *CmdSource) processStderr(stderr io.Reader) {
	scanner := bufio.NewScanner(stderr)
	for scanner.Scan() {
		c.logger.Debug(fmt.Sprintf("[cmd] %s", scanner.Text()))
	}
}

func (c *CmdSource) processStdout(stdout io.Reader) error {
	frameSize := c.info.Size * c.info.Views
	for {
		data := make([]byte, frameSize)
		_, err := io.ReadFull(stdout, data)
		if err == io.ErrUnexpectedEOF {
			return fmt.Errorf("output ended in the middle of a frame")
		}
		if err != nil {
			return err
		}
		c.slot.Put(buffer.NewWrapped(data))
	}
}

func (c *CmdSource) Frame() *buffer.Buffer {
	return c.slot.Get()
}

func (c *CmdSource) Close() error {
	if c.cancel != nil {
		c.cancel()
		c.done.Wait()
	}
	c.slot.Close()
	return nil
}
