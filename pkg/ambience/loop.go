package ambience

import (
	"fmt"
	"os/exec"
	"strconv"
	"sync"
)

// Loop plays an audio file in an endless loop through ffplay. Pausing stops
// the process; playing again restarts the file from the beginning.
type Loop struct {
	bin    string
	file   string
	volume int

	mu  sync.Mutex
	cmd *exec.Cmd
}

// NewLoop returns a loop source. Volume ranges from 0 to 100.
func NewLoop(bin, file string, volume int) *Loop {
	if bin == "" {
		bin = "ffplay"
	}
	if volume < 0 {
		volume = 0
	}
	if volume > 100 {
		volume = 100
	}
	return &Loop{bin: bin, file: file, volume: volume}
}

func (l *Loop) args() []string {
	return []string{
		"-nodisp",
		"-loglevel", "quiet",
		"-loop", "0",
		"-volume", strconv.Itoa(l.volume),
		l.file,
	}
}

func (l *Loop) Play() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.cmd != nil {
		return nil
	}
	cmd := exec.Command(l.bin, l.args()...)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("ambience: couldn't start %s: %w", l.bin, err)
	}
	l.cmd = cmd
	go func() {
		_ = cmd.Wait()
		l.mu.Lock()
		if l.cmd == cmd {
			l.cmd = nil
		}
		l.mu.Unlock()
	}()
	return nil
}

func (l *Loop) Pause() error {
	l.mu.Lock()
	cmd := l.cmd
	l.cmd = nil
	l.mu.Unlock()
	if cmd == nil || cmd.Process == nil {
		return nil
	}
	if err := cmd.Process.Kill(); err != nil {
		return fmt.Errorf("ambience: couldn't stop %s: %w", l.bin, err)
	}
	return nil
}

func (l *Loop) Close() error {
	return l.Pause()
}
