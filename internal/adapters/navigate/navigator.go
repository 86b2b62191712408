package navigate

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os/exec"
	"runtime"

	"github.com/bnema/draftguard/internal/domain"
	"github.com/bnema/draftguard/internal/ports"
)

var ErrOpenerUnavailable = errors.New("no browser opener available")

type runFunc func(ctx context.Context, target string) error

// Navigator turns a navigation request into a record page URL, prints it and
// optionally hands it to the platform opener.
type Navigator struct {
	instanceURL string
	out         io.Writer
	open        bool
	run         runFunc
}

var _ ports.Navigator = (*Navigator)(nil)

func New(instanceURL string, out io.Writer, open bool) *Navigator {
	return &Navigator{instanceURL: instanceURL, out: out, open: open, run: runOpener}
}

func (n *Navigator) Navigate(ctx context.Context, nav domain.Navigation) error {
	target, err := RecordURL(n.instanceURL, nav)
	if err != nil {
		return err
	}

	if n.out != nil {
		if _, err := fmt.Fprintf(n.out, "Open this URL to view %s %s:\n%s\n", nav.ObjectAPIName, nav.RecordID, target); err != nil {
			return fmt.Errorf("print record url: %w", err)
		}
	}

	if !n.open {
		return nil
	}
	if err := n.run(ctx, target); err != nil {
		return fmt.Errorf("open record url: %w", err)
	}
	return nil
}

// RecordURL builds <instance>/lightning/r/<object>/<id>/<action>.
func RecordURL(instanceURL string, nav domain.Navigation) (string, error) {
	if instanceURL == "" {
		return "", errors.New("instance url is required")
	}
	if nav.RecordID == "" {
		return "", errors.New("navigation record id is required")
	}

	base, err := url.Parse(instanceURL)
	if err != nil {
		return "", fmt.Errorf("parse instance url: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return "", errors.New("instance url must use http or https")
	}

	object := nav.ObjectAPIName
	if object == "" {
		object = "Case"
	}
	action := nav.Action
	if action == "" {
		action = "view"
	}

	return base.JoinPath("lightning", "r", url.PathEscape(object), url.PathEscape(string(nav.RecordID)), action).String(), nil
}

func runOpener(ctx context.Context, target string) error {
	name := "xdg-open"
	if runtime.GOOS == "darwin" {
		name = "open"
	}

	path, err := exec.LookPath(name)
	if err != nil {
		return ErrOpenerUnavailable
	}

	return exec.CommandContext(ctx, path, target).Run()
}
