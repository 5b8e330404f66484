package main

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"adgen/internal/api"
	"adgen/internal/ipc"
	"adgen/internal/stage"
)

func newSubmitCommand(ctx *commandContext) *cobra.Command {
	var style string
	var modelIndex int
	var prompt string
	var keywords []string
	var mustInclude []string
	var watch bool
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "submit <content-id>",
		Short: "Start a pipeline run for a registered product image",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := api.SubmitRequest{
				ContentID:  args[0],
				Style:      style,
				UserPrompt: prompt,
			}
			if cmd.Flags().Changed("model-index") {
				req.ModelIndex = &modelIndex
			}
			if len(keywords) > 0 || len(mustInclude) > 0 {
				req.AdInputs = &api.AdInputs{Keywords: keywords, MustInclude: mustInclude}
			}
			return ctx.withClient(func(client *ipc.Client) error {
				ack, err := client.Submit(cmd.Context(), req)
				if err != nil {
					return err
				}
				if !watch {
					if jsonOutput {
						return writeJSON(cmd, ack)
					}
					fmt.Fprintf(cmd.OutOrStdout(), "Job %s %s (%s)\n", ack.JobID, ack.Message, ack.Status)
					return nil
				}
				return watchJob(cmd, client, ack.JobID, jsonOutput)
			})
		},
	}
	cmd.Flags().StringVarP(&style, "style", "s", string(stage.DefaultStyle), "Model style (resort, retro, romantic)")
	cmd.Flags().IntVar(&modelIndex, "model-index", 0, "Model image index for virtual fitting")
	cmd.Flags().StringVarP(&prompt, "prompt", "p", "", "Extra instructions for the scene and caption")
	cmd.Flags().StringSliceVarP(&keywords, "keyword", "k", nil, "Caption keyword (repeatable)")
	cmd.Flags().StringSliceVar(&mustInclude, "must-include", nil, "Phrase the ad copy must include (repeatable)")
	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "Follow the job until it finishes")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

func newWatchCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool
	cmd := &cobra.Command{
		Use:   "watch <job-id>",
		Short: "Follow a job's progress until it finishes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				return watchJob(cmd, client, args[0], jsonOutput)
			})
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output the final snapshot as JSON")
	return cmd
}

var errJobFailed = errors.New("job failed")

func watchJob(cmd *cobra.Command, client *ipc.Client, jobID string, jsonOutput bool) error {
	out := cmd.OutOrStdout()
	colorize := shouldColorize(out)
	final, err := client.Watch(cmd.Context(), jobID, func(view api.JobView) error {
		if !jsonOutput {
			fmt.Fprintln(out, renderProgressLine(view, colorize))
		}
		return nil
	})
	if err != nil {
		return err
	}
	if jsonOutput {
		if err := writeJSON(cmd, final); err != nil {
			return err
		}
	} else {
		renderJobView(out, final, colorize)
	}
	if final.Status == "failed" {
		return errJobFailed
	}
	return nil
}

func newJobsCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool
	cmd := &cobra.Command{
		Use:   "jobs",
		Short: "List your pipeline jobs",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				jobs, err := client.Jobs(cmd.Context())
				if err != nil {
					return err
				}
				if jsonOutput {
					return writeJSON(cmd, jobs)
				}
				if len(jobs) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No jobs")
					return nil
				}
				rows := make([][]string, 0, len(jobs))
				for _, j := range jobs {
					rows = append(rows, []string{
						j.JobID,
						j.ContentID,
						j.Style,
						j.Status,
						fmt.Sprintf("%d/%d", j.CurrentStep, j.TotalSteps),
						j.UpdatedAt,
					})
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable(
					[]string{"Job", "Content", "Style", "Status", "Step", "Updated"}, rows,
					[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignLeft},
				))
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool
	cmd := &cobra.Command{
		Use:   "status [job-id]",
		Short: "Show daemon health, or one job's snapshot",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				out := cmd.OutOrStdout()
				colorize := shouldColorize(out)
				if len(args) == 1 {
					view, err := client.Job(cmd.Context(), args[0])
					if err != nil {
						return err
					}
					if jsonOutput {
						return writeJSON(cmd, view)
					}
					renderJobView(out, view, colorize)
					return nil
				}

				health, err := client.Health(cmd.Context())
				if err != nil {
					return fmt.Errorf("daemon at %s is not reachable: %w", client.Address(), err)
				}
				if jsonOutput {
					return writeJSON(cmd, health)
				}
				for _, line := range renderSectionHeader("Daemon", colorize) {
					fmt.Fprintln(out, line)
				}
				kind := statusOK
				if health.Status != "ok" {
					kind = statusWarn
				}
				fmt.Fprintln(out, renderStatusLine("Health", kind, health.Status, colorize))
				fmt.Fprintln(out, renderStatusLine("Address", statusInfo, client.Address(), colorize))
				fmt.Fprintln(out, renderStatusLine("Running jobs", statusInfo, strconv.Itoa(health.RunningJobs), colorize))
				fmt.Fprintln(out, renderStatusLine("Tracked jobs", statusInfo, strconv.Itoa(health.TrackedJobs), colorize))
				if len(health.Stages) == 0 {
					return nil
				}
				fmt.Fprintln(out)
				for _, line := range renderSectionHeader("Collaborators", colorize) {
					fmt.Fprintln(out, line)
				}
				for _, dep := range health.Stages {
					kind := statusOK
					detail := dep.Name
					if !dep.Ready {
						kind = statusError
						detail = dep.Name + ": " + dep.Detail
					}
					fmt.Fprintln(out, renderStatusLine(stage.Label(dep.Stage), kind, detail, colorize))
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}
