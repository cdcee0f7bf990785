// handlers/confirm.go
package handlers

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/gewnthar/ulsync/database"
	"github.com/gewnthar/ulsync/services"
)

// PromptConfirmer shows the prune preview on Out and reads a y/N answer
// from In. Anything but yes, including end of input, declines.
type PromptConfirmer struct {
	In  io.Reader
	Out io.Writer
}

func (p PromptConfirmer) Confirm(ctx context.Context, preview *database.PrunePreview) (bool, error) {
	renderPreview(p.Out, preview)
	fmt.Fprint(p.Out, "Delete these licenses and all their records? [y/N] ")

	line, err := bufio.NewReader(p.In).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return false, fmt.Errorf("failed to read answer: %w", err)
	}
	if ctx.Err() != nil {
		return false, ctx.Err()
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true, nil
	}
	return false, nil
}

// Approved answers yes without asking; it backs --yes.
var Approved services.Confirmer = services.ConfirmFunc(func(context.Context, *database.PrunePreview) (bool, error) {
	return true, nil
})

func confirmer(yes bool, in io.Reader, out io.Writer) services.Confirmer {
	if yes {
		return Approved
	}
	return PromptConfirmer{In: in, Out: out}
}
