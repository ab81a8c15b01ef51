package mediapipe

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/zk94007/osum-vsl/shared/media"
)

// Reframer reframes a clip to a target aspect ratio.
type Reframer interface {
	Reframe(ctx context.Context, in, out, aspect string) error
}

// AutoflipReframer runs the external auto-reframe pipeline. The command is a
// template from configuration with %INPUT%, %OUTPUT% and %ASPECT%
// placeholders, split on whitespace after substitution.
type AutoflipReframer struct {
	commandTemplate string
}

// NewAutoflipReframer reads the command template from MEDIAPIPE_COMMAND.
func NewAutoflipReframer() (*AutoflipReframer, error) {
	tpl := os.Getenv("MEDIAPIPE_COMMAND")
	if tpl == "" {
		return nil, fmt.Errorf("MEDIAPIPE_COMMAND is not set")
	}
	return &AutoflipReframer{commandTemplate: tpl}, nil
}

func (r *AutoflipReframer) Reframe(ctx context.Context, in, out, aspect string) error {
	cmd := strings.NewReplacer(
		"%INPUT%", in,
		"%OUTPUT%", out,
		"%ASPECT%", aspect,
	).Replace(r.commandTemplate)

	parts := strings.Fields(cmd)
	if len(parts) == 0 {
		return fmt.Errorf("empty reframe command")
	}
	if err := media.ExecCommand(ctx, parts[0], parts[1:]...); err != nil {
		return fmt.Errorf("reframe %s to %s: %w", in, aspect, err)
	}
	return nil
}
