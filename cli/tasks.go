package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"siramm-project/web-service/credentials"
	"siramm-project/web-service/models"
	"siramm-project/web-service/repositories"
	"siramm-project/web-service/services"
)

func tasksCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tasks",
		Short: "List and change tasks in the remote store",
	}
	cmd.PersistentFlags().String("token", "", "Bearer token (defaults to SIRAMM_TOKEN)")
	cmd.PersistentFlags().Int("project", 0, "Project id; 0 means every project")
	cmd.PersistentFlags().BoolP("json", "j", false, "Output as JSON")

	cmd.AddCommand(tasksListCmd())
	cmd.AddCommand(tasksCreateCmd())
	cmd.AddCommand(tasksDeleteCmd())
	cmd.AddCommand(tasksStatusCmd())
	return cmd
}

func tasksListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List tasks, optionally of one project and one status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			status, _ := cmd.Flags().GetString("status")
			if status != "" && status != "all" && !models.TaskStatus(status).IsValid() {
				return fmt.Errorf("unknown status %q", status)
			}
			c, err := openCollection(cmd)
			if err != nil {
				return err
			}
			if err := c.LoadError(); err != nil {
				return fmt.Errorf("failed to load tasks: %w", err)
			}
			return printRows(cmd, c.Rows(status, time.Now()))
		},
	}
	cmd.Flags().String("status", "all", "Status filter: all, not_started, in_progress, completed, blocked")
	return cmd
}

func tasksCreateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a task",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			projectID, _ := cmd.Flags().GetInt("project")
			if projectID <= 0 {
				return fmt.Errorf("--project is required")
			}
			c, err := openCollection(cmd)
			if err != nil {
				return err
			}

			draft := c.StartDraft()
			fields := map[models.TaskField]string{}
			for flag, field := range map[string]models.TaskField{
				"action":      models.FieldAction,
				"assignee":    models.FieldAssignedTo,
				"scope":       models.FieldScope,
				"status":      models.FieldStatus,
				"description": models.FieldStatusDescription,
				"due":         models.FieldDueDate,
			} {
				if cmd.Flags().Changed(flag) {
					fields[field], _ = cmd.Flags().GetString(flag)
				}
			}
			attachments, _ := cmd.Flags().GetStringArray("attachment")

			for field, value := range fields {
				if err := draft.Set(field, value); err != nil {
					return err
				}
			}
			if len(attachments) > 0 {
				draft.Attachments = attachments
			}

			created, err := c.CreateNew(cmd.Context(), draft)
			if err != nil {
				return err
			}
			row, err := c.Row(created.ID, time.Now())
			if err != nil {
				return err
			}
			return printRows(cmd, []services.RowView{row})
		},
	}
	cmd.Flags().String("action", "", "What has to be done")
	cmd.Flags().String("assignee", "", "User id of the assignee")
	cmd.Flags().String("scope", "", "Scope; defaults to the project's first scope")
	cmd.Flags().String("status", string(models.StatusNotStarted), "Initial status")
	cmd.Flags().String("description", "", "Status description")
	cmd.Flags().String("due", "", "Due date (YYYY-MM-DD)")
	cmd.Flags().StringArray("attachment", nil, "Attachment URL; repeat for more")
	return cmd
}

func tasksDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete ID",
		Short: "Delete a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid task id %q", args[0])
			}
			c, err := openCollection(cmd)
			if err != nil {
				return err
			}
			if _, err := c.DeleteRow(cmd.Context(), id); err != nil {
				return err
			}
			c.Wait()

			pending, err := c.Mutations(cmd.Context())
			if err != nil {
				return err
			}
			for _, m := range pending {
				if m.TaskID == id && m.Kind == models.MutationDelete && m.Outcome == models.OutcomeFailed {
					return fmt.Errorf("task %d was not deleted: %s", id, m.Error)
				}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted task %d\n", id)
			return nil
		},
	}
}

func tasksStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status ID STATUS",
		Short: "Change the status of a task",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid task id %q", args[0])
			}
			c, err := openCollection(cmd)
			if err != nil {
				return err
			}
			if _, err := c.ChangeStatus(cmd.Context(), id, args[1]); err != nil {
				return err
			}
			row, err := c.Row(id, time.Now())
			if err != nil {
				return err
			}
			return printRows(cmd, []services.RowView{row})
		},
	}
}

// openCollection loads the view selected by --project with the CLI token.
func openCollection(cmd *cobra.Command) (*services.TaskCollection, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	token, _ := cmd.Flags().GetString("token")
	if token == "" {
		token = cfg.Token
	}
	creds := credentials.NewStatic(token)
	if _, err := creds.Get(cmd.Context()); err != nil {
		return nil, fmt.Errorf("no usable token, pass --token or set SIRAMM_TOKEN: %w", err)
	}

	remote := newRemote(cfg)
	tasks := repositories.NewTaskRepository(remote, creds, taskOptions(cfg)...)
	journal := repositories.NewMemoryJournal()

	var c *services.TaskCollection
	projectID, _ := cmd.Flags().GetInt("project")
	if projectID > 0 {
		project, err := repositories.NewProjectRepository(remote, creds).Get(cmd.Context(), projectID)
		if err != nil {
			return nil, err
		}
		if project.ID == 0 {
			project.ID = projectID
		}
		c = services.NewProjectCollection(tasks, journal, project)
	} else {
		c = services.NewGlobalCollection(tasks, journal)
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), cfg.ProjectTasksTimeout)
	defer cancel()
	if err := c.Load(ctx); err != nil {
		return nil, err
	}
	return c, nil
}

func printRows(cmd *cobra.Command, rows []services.RowView) error {
	out := cmd.OutOrStdout()
	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(rows)
	}
	return writeTable(out, rows)
}

func writeTable(out io.Writer, rows []services.RowView) error {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tPROJECT\tSCOPE\tACTION\tASSIGNEE\tSTATUS\tDUE\tATTACHMENTS")
	for _, r := range rows {
		t := r.Task
		assignee := "-"
		if t.AssignedTo != nil {
			assignee = strconv.Itoa(*t.AssignedTo)
		}
		due := t.DueDate
		switch {
		case due == "":
			due = "-"
		case r.PastDeadline:
			due += " (overdue)"
		case r.NearDeadline:
			due += " (soon)"
		}
		fmt.Fprintf(tw, "%d\t%d\t%s\t%s\t%s\t%s\t%s\t%s\n",
			t.ID, t.ProjectID, r.DisplayScope, t.Action, assignee, t.Status, due, strings.Join(t.Attachments, " "))
	}
	return tw.Flush()
}
