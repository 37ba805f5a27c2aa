package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"svitlo/internal/config"
	"svitlo/internal/wizard"
)

func newSetupCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "setup",
		Short: "Choose region, queue and polling interval interactively",
		Long: `Walk through region, queue and polling interval selection and write the
result to the config file. An existing config file is reconfigured in place;
its other settings are kept.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSetup(cmd.InOrStdin(), cmd.OutOrStdout(), opts.configPath)
		},
	}
}

func runSetup(in io.Reader, out io.Writer, path string) error {
	cfg := config.Default()
	existing := false

	if _, err := os.Stat(path); err == nil {
		loaded, err := config.NewLoader(path, zap.NewNop()).Load()
		if err != nil {
			return err
		}
		cfg, existing = loaded, true
	}

	flow := wizard.NewFlow(nil)
	state := flow.Start()
	if existing {
		var err error
		state, err = flow.Reconfigure(wizard.EntryData{
			Region:       cfg.Region,
			Queue:        cfg.Queue,
			ScanInterval: cfg.ScanInterval,
		})
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Reconfiguring %s (%s / %s)\n", path, cfg.Region, cfg.Queue)
	}

	p := &prompter{in: bufio.NewScanner(in), out: out}

	for state.Step != wizard.Done {
		var err error
		form := state.Form()

		switch state.Step {
		case wizard.AwaitingRegion:
			var name string
			name, err = p.choose("Region", form.Regions, form.DefaultRegion)
			if err == nil {
				state, err = flow.SelectRegion(state, name)
			}
		case wizard.AwaitingDetails:
			var queue, interval string
			queue, err = p.choose("Queue", form.Queues, form.DefaultQueue)
			if err == nil {
				interval, err = p.choose("Polling interval", form.Intervals, form.DefaultInterval)
			}
			if err == nil {
				state, err = flow.SubmitDetails(state, queue, interval)
			}
		}

		switch {
		case errors.Is(err, io.EOF):
			return fmt.Errorf("setup aborted: %w", err)
		case errors.Is(err, wizard.ErrAlreadyConfigured):
			return err
		case err != nil:
			fmt.Fprintf(out, "  %v\n", err)
		}
	}

	entry := state.Entry
	cfg.Title = entry.Title
	cfg.Region = entry.Region
	cfg.Queue = entry.Queue
	cfg.ScanInterval = entry.ScanInterval

	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := config.Save(path, cfg); err != nil {
		return err
	}

	fmt.Fprintf(out, "Saved %s: %s, every %ds\n", path, entry.Title, entry.ScanInterval)
	return nil
}

type prompter struct {
	in  *bufio.Scanner
	out io.Writer
}

// choose lists options and reads a selection by number or by value. An
// empty answer picks def.
func (p *prompter) choose(label string, options []string, def string) (string, error) {
	fmt.Fprintf(p.out, "%s:\n", label)
	for i, o := range options {
		marker := " "
		if o == def {
			marker = "*"
		}
		fmt.Fprintf(p.out, " %s %2d) %s\n", marker, i+1, o)
	}
	fmt.Fprintf(p.out, "%s [%s]: ", label, def)

	if !p.in.Scan() {
		if err := p.in.Err(); err != nil {
			return "", err
		}
		return "", io.EOF
	}

	answer := strings.TrimSpace(p.in.Text())
	if answer == "" {
		return def, nil
	}
	if n, err := strconv.Atoi(answer); err == nil && n >= 1 && n <= len(options) && !contains(options, answer) {
		return options[n-1], nil
	}
	return answer, nil
}

func contains(options []string, v string) bool {
	for _, o := range options {
		if o == v {
			return true
		}
	}
	return false
}
