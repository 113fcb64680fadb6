package ffmpeg

import (
	"bufio"
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// Version returns the version reported by a binary of the ffmpeg suite,
// such as ffplay.
func Version(ctx context.Context, bin string) (string, error) {
	cmd := exec.CommandContext(ctx, bin, "-version")
	data, err := cmd.CombinedOutput()
	if err != nil {
		msg := string(data)
		return "", fmt.Errorf("ffmpeg: couldn't get %s version: %w: %s", bin, err, msg)
	}
	return parseVersion(string(data))
}

func parseVersion(out string) (string, error) {
	sc := bufio.NewScanner(strings.NewReader(out))
	if !sc.Scan() {
		return "", fmt.Errorf("ffmpeg: empty version output")
	}
	line := strings.TrimSpace(sc.Text())
	fields := strings.Fields(line)
	if len(fields) < 3 || fields[1] != "version" {
		return "", fmt.Errorf("ffmpeg: invalid version: %s", line)
	}
	return fields[2], nil
}
