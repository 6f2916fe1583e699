package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"countdown/internal/adapter/secondary/export"
	"countdown/internal/adapter/secondary/notify"
	"countdown/internal/domain"
	"countdown/internal/usecase"
)

func newTimerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "timer",
		Short: "Create and control timers",
	}
	cmd.AddCommand(
		newTimerAddCmd(),
		newTimerListCmd(),
		newTimerActionCmd("start", "Start timers and wait for them (outside the shell)", usecase.TimerUseCase.Start),
		newTimerActionCmd("resume", "Resume paused timers and wait for them (outside the shell)", usecase.TimerUseCase.Resume),
		newTimerActionCmd("pause", "Pause running timers", usecase.TimerUseCase.Pause),
		newTimerActionCmd("reset", "Restore the full duration of timers", usecase.TimerUseCase.Reset),
		newTimerActionCmd("delete", "Delete timers", usecase.TimerUseCase.Delete),
		newBulkCmd("start-all", "Start every timer that is not running or completed", func(e *engine) error {
			before := e.scheduler.Running()
			err := e.timers.StartAll()
			return waitStarted(e, before, err)
		}),
		newBulkCmd("pause-all", "Pause every running timer", func(e *engine) error {
			return e.timers.PauseAll()
		}),
	)
	return cmd
}

func newTimerAddCmd() *cobra.Command {
	var (
		category string
		duration string
		mid      int
	)
	cmd := &cobra.Command{
		Use:   "add NAME",
		Short: "Create a timer",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			seconds, err := parseSeconds(duration)
			if err != nil {
				return err
			}
			return withEngine(cmd.Context(), cmd.OutOrStdout(), func(e *engine) error {
				t, err := e.timers.CreateTimer(domain.TimerDraft{
					Name:       args[0],
					Category:   category,
					Duration:   seconds,
					MidTrigger: mid,
				})
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "created %s %q (%s, %s)\n",
					shortID(t.ID), t.Name, t.Category, notify.FormatSeconds(t.Duration))
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&category, "category", "c", "", "category label")
	cmd.Flags().StringVarP(&duration, "duration", "d", "", "duration, e.g. 90, 90s, 25m")
	cmd.Flags().IntVar(&mid, "mid", 0, "mid alert when this percentage of the duration remains (0 disables)")
	_ = cmd.MarkFlagRequired("category")
	_ = cmd.MarkFlagRequired("duration")
	return cmd
}

func newTimerListCmd() *cobra.Command {
	var (
		category string
		status   string
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List timers",
		RunE: func(cmd *cobra.Command, args []string) error {
			filter := usecase.TimerFilter{Category: category}
			if status != "" {
				st, ok := domain.ParseStatus(status)
				if !ok {
					return fmt.Errorf("unknown status %q", status)
				}
				filter.Status = &st
			}
			return withEngine(cmd.Context(), cmd.OutOrStdout(), func(e *engine) error {
				return printTimers(cmd.OutOrStdout(), e.timers.Timers(filter))
			})
		},
	}
	cmd.Flags().StringVarP(&category, "category", "c", "", "only this category")
	cmd.Flags().StringVarP(&status, "status", "s", "", "only this status (created|running|paused|completed)")
	return cmd
}

func newTimerActionCmd(use, short string, action func(usecase.TimerUseCase, string) error) *cobra.Command {
	return &cobra.Command{
		Use:   use + " ID|NAME...",
		Short: short,
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), cmd.OutOrStdout(), func(e *engine) error {
				var errs []error
				for _, arg := range args {
					id, err := resolveID(e.timers, arg)
					if err == nil {
						err = action(e.timers, id)
					}
					if err != nil {
						errs = append(errs, err)
						continue
					}
					fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", use, shortID(id))
				}
				err := errors.Join(errs...)
				if use == "start" || use == "resume" {
					return waitStarted(e, nil, err)
				}
				return err
			})
		},
	}
}

func newBulkCmd(use, short string, fn func(*engine) error) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), cmd.OutOrStdout(), fn)
		},
	}
}

// waitStarted keeps a one-shot process alive while the countdowns started
// by this command run. Inside the shell it returns immediately.
func waitStarted(e *engine, before []string, startErr error) error {
	if sharedEngine != nil {
		return startErr
	}
	skip := make(map[string]bool, len(before))
	for _, id := range before {
		skip[id] = true
	}
	var ids []string
	for _, id := range e.scheduler.Running() {
		if !skip[id] {
			ids = append(ids, id)
		}
	}
	if len(ids) > 0 {
		fmt.Fprintf(os.Stdout, "%d timer(s) running, Ctrl-C pauses them\n", len(ids))
		ctx, stop := signalContext(context.Background())
		e.waitForCompletion(ctx, ids)
		stop()
	}
	return startErr
}

func newCategoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "category",
		Short: "Manage categories and run them as a group",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "add NAME",
			Short: "Add a category",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return withEngine(cmd.Context(), cmd.OutOrStdout(), func(e *engine) error {
					return e.timers.AddCategory(args[0])
				})
			},
		},
		&cobra.Command{
			Use:   "list",
			Short: "List categories with progress",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return withEngine(cmd.Context(), cmd.OutOrStdout(), func(e *engine) error {
					return printGroups(cmd.OutOrStdout(), e.timers.Groups())
				})
			},
		},
		&cobra.Command{
			Use:   "start NAME",
			Short: "Start every startable timer in a category",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return withEngine(cmd.Context(), cmd.OutOrStdout(), func(e *engine) error {
					before := e.scheduler.Running()
					err := e.timers.StartCategory(args[0])
					return waitStarted(e, before, err)
				})
			},
		},
		&cobra.Command{
			Use:   "pause NAME",
			Short: "Pause every running timer in a category",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return withEngine(cmd.Context(), cmd.OutOrStdout(), func(e *engine) error {
					return e.timers.PauseCategory(args[0])
				})
			},
		},
	)
	return cmd
}

func newHistoryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "history",
		Short: "List completed timers, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), cmd.OutOrStdout(), func(e *engine) error {
				w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(w, "COMPLETED\tNAME\tCATEGORY\tDURATION")
				for _, t := range e.timers.History() {
					when := "-"
					if t.CompletionTime != nil {
						when = t.CompletionTime.Local().Format("2006-01-02 15:04")
					}
					fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", when, t.Name, t.Category, notify.FormatSeconds(t.Duration))
				}
				return w.Flush()
			})
		},
	}
}

func newExportCmd() *cobra.Command {
	var (
		format string
		out    string
	)
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export timers as json, yaml, cbor or ics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := export.ParseFormat(format)
			if err != nil {
				return err
			}
			return withEngine(cmd.Context(), cmd.OutOrStdout(), func(e *engine) error {
				timers := e.timers.Timers(usecase.TimerFilter{})
				if out == "" || out == "-" {
					return export.Write(cmd.OutOrStdout(), f, timers)
				}
				file, err := os.Create(out)
				if err != nil {
					return err
				}
				if err := export.Write(file, f, timers); err != nil {
					file.Close()
					return err
				}
				if err := file.Close(); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "exported %d timer(s) to %s\n", len(timers), out)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", string(export.FormatJSON), "json|yaml|cbor|ics")
	cmd.Flags().StringVarP(&out, "out", "o", "", "output file (default stdout)")
	return cmd
}

func newThemeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "theme",
		Short: "Read or change the stored theme preference",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "get",
			Short: "Print the theme",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return withEngine(cmd.Context(), cmd.OutOrStdout(), func(e *engine) error {
					fmt.Fprintln(cmd.OutOrStdout(), e.timers.Theme(cmd.Context()))
					return nil
				})
			},
		},
		&cobra.Command{
			Use:       "set light|dark|system",
			Short:     "Store the theme",
			Args:      cobra.ExactArgs(1),
			ValidArgs: []string{string(domain.ThemeLight), string(domain.ThemeDark), string(domain.ThemeSystem)},
			RunE: func(cmd *cobra.Command, args []string) error {
				return withEngine(cmd.Context(), cmd.OutOrStdout(), func(e *engine) error {
					return e.timers.SetTheme(cmd.Context(), domain.Theme(strings.ToLower(args[0])))
				})
			},
		},
	)
	return cmd
}

// resolveID accepts a full id, a unique id prefix or a unique timer name.
func resolveID(uc usecase.TimerUseCase, arg string) (string, error) {
	timers := uc.Timers(usecase.TimerFilter{})
	var byPrefix, byName []string
	for _, t := range timers {
		if t.ID == arg {
			return arg, nil
		}
		if strings.HasPrefix(t.ID, arg) {
			byPrefix = append(byPrefix, t.ID)
		}
		if strings.EqualFold(t.Name, arg) {
			byName = append(byName, t.ID)
		}
	}
	for _, ids := range [][]string{byPrefix, byName} {
		switch len(ids) {
		case 0:
			continue
		case 1:
			return ids[0], nil
		default:
			return "", fmt.Errorf("%q matches %d timers, use a longer id", arg, len(ids))
		}
	}
	return "", fmt.Errorf("%w: %s", domain.ErrTimerNotFound, arg)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func printTimers(out io.Writer, timers []domain.Timer) error {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tCATEGORY\tSTATUS\tREMAINING\tDURATION\tMID")
	for _, t := range timers {
		mid := "-"
		if t.MidTrigger > 0 {
			mid = fmt.Sprintf("%d%%", t.MidTrigger)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			shortID(t.ID), t.Name, t.Category, t.Status,
			notify.FormatSeconds(t.RemainingDuration), notify.FormatSeconds(t.Duration), mid)
	}
	return w.Flush()
}

func printGroups(out io.Writer, groups []domain.CategoryGroup) error {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "CATEGORY\tTIMERS\tRUNNING\tCOMPLETED\tREMAINING\tPROGRESS")
	for _, g := range groups {
		fmt.Fprintf(w, "%s\t%d\t%d\t%d\t%s\t%.0f%%\n",
			g.Name, len(g.Timers), g.Running, g.Completed, notify.FormatSeconds(g.Remaining), g.Progress()*100)
	}
	return w.Flush()
}
