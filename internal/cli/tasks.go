package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"taskflow/internal/model"
	"taskflow/internal/query"
	"taskflow/internal/service"
)

func newListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List tasks",
		Args:  cobra.NoArgs,
		RunE:  runList,
	}
	cmd.Flags().String("filter", "all", "Bucket: "+bucketNames())
	cmd.Flags().String("search", "", "Match title or description")
	cmd.Flags().String("priority", "", "Only this priority: high, medium, low")
	cmd.Flags().String("category", "", "Only this category")
	cmd.Flags().String("sort", string(query.SortDueDate), "Sort key: dueDate, priority, created, title, completed")
	cmd.Flags().String("order", string(query.Asc), "Sort order: asc, desc")
	return cmd
}

func newAddCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add <title>",
		Short: "Create a task",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runAdd,
	}
	cmd.Flags().String("due", "", "Due date YYYY-MM-DD (default today)")
	cmd.Flags().String("start", "", "Start time HH:MM")
	cmd.Flags().String("end", "", "End time HH:MM")
	cmd.Flags().StringP("priority", "p", "", "high, medium or low (default medium)")
	cmd.Flags().StringP("category", "c", "", "Category")
	cmd.Flags().StringP("description", "d", "", "Description")
	cmd.Flags().String("notes", "", "Notes with **bold**, *italic*, `code` and - lists")
	cmd.Flags().String("tags", "", "Comma separated tags")
	cmd.Flags().String("recur", "", "none, daily, weekly or monthly")
	return cmd
}

func newExportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write all tasks as a JSON backup",
		Args:  cobra.NoArgs,
		RunE:  runExport,
	}
	cmd.Flags().StringP("output", "o", "", "Output file (default stdout)")
	return cmd
}

func newImportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Add the tasks from a JSON backup",
		Args:  cobra.ExactArgs(1),
		RunE:  runImport,
	}
}

func newMoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "move <id> <status>",
		Short: "Move a task to todo or in-progress",
		Long: `Move runs one lifecycle step: todo -> in-progress, in-progress -> todo or
completed -> todo. Completing needs a photo, use "taskflow complete" for that.`,
		Args: cobra.ExactArgs(2),
		RunE: runMove,
	}
}

func newCompleteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "complete <id>",
		Short: "Complete an in-progress task with a photo",
		Long:  "Complete accepts a full task id or its last six or more characters.",
		Args:  cobra.ExactArgs(1),
		RunE:  runComplete,
	}
	cmd.Flags().String("photo", "", "Image file proving the task is done (required)")
	return cmd
}

func runList(cmd *cobra.Command, _ []string) error {
	view, err := listView(cmd)
	if err != nil {
		return err
	}

	st, err := openStoreFromEnv(cmd.Context())
	if err != nil {
		return err
	}
	defer st.Close()

	res := st.svc.Query(view)
	out := cmd.OutOrStdout()
	if len(res.Tasks) == 0 {
		fmt.Fprintln(out, "No tasks found.")
		return nil
	}
	for _, task := range res.Tasks {
		writeTaskLine(out, task, res)
	}
	fmt.Fprintf(out, "\n%d shown · %d total · %d overdue · %d due soon\n", len(res.Tasks), res.Counts.Total, res.Counts.Overdue, res.Counts.DueSoon)
	return nil
}

func listView(cmd *cobra.Command) (query.View, error) {
	filter, _ := cmd.Flags().GetString("filter")
	search, _ := cmd.Flags().GetString("search")
	priority, _ := cmd.Flags().GetString("priority")
	category, _ := cmd.Flags().GetString("category")
	sortBy, _ := cmd.Flags().GetString("sort")
	order, _ := cmd.Flags().GetString("order")

	bucket, err := query.ParseBucket(filter)
	if err != nil {
		return query.View{}, err
	}
	key, err := query.ParseSortKey(sortBy)
	if err != nil {
		return query.View{}, err
	}
	dir, err := query.ParseOrder(order)
	if err != nil {
		return query.View{}, err
	}
	p := model.Priority(strings.ToLower(strings.TrimSpace(priority)))
	if p != "" && !p.Valid() {
		return query.View{}, fmt.Errorf("unknown priority %q", priority)
	}

	return query.View{
		Search:   search,
		Bucket:   bucket,
		Priority: p,
		Category: strings.TrimSpace(category),
		SortBy:   key,
		Order:    dir,
	}, nil
}

func writeTaskLine(w io.Writer, task model.Task, res query.Result) {
	due := task.DueDate
	if model.IsOverdue(task, res.Now) {
		due += "!"
	}
	line := fmt.Sprintf("%-8s %-12s %-7s %-11s %s", shortRef(task.ID), task.Status, task.Priority, due, task.Title)
	if task.Category != "" {
		line += " [" + task.Category + "]"
	}
	if task.Recurring.Active() {
		line += " (" + string(task.Recurring) + ")"
	}
	fmt.Fprintln(w, line)
}

func shortRef(id string) string {
	if len(id) <= service.MinRefLength {
		return id
	}
	return id[len(id)-service.MinRefLength:]
}

func bucketNames() string {
	var names []string
	for _, b := range query.Buckets() {
		names = append(names, string(b))
	}
	return strings.Join(names, ", ")
}

func runAdd(cmd *cobra.Command, args []string) error {
	flags := cmd.Flags()
	due, _ := flags.GetString("due")
	start, _ := flags.GetString("start")
	end, _ := flags.GetString("end")
	priority, _ := flags.GetString("priority")
	category, _ := flags.GetString("category")
	description, _ := flags.GetString("description")
	notes, _ := flags.GetString("notes")
	tags, _ := flags.GetString("tags")
	recur, _ := flags.GetString("recur")

	st, err := openStoreFromEnv(cmd.Context())
	if err != nil {
		return err
	}
	defer st.Close()

	task, err := st.svc.CreateTask(cmd.Context(), service.TaskInput{
		Title:       strings.Join(args, " "),
		Description: description,
		Notes:       notes,
		Category:    category,
		Priority:    model.Priority(priority),
		DueDate:     due,
		StartTime:   start,
		EndTime:     end,
		Tags:        service.SplitTags(tags),
		Recurring:   model.Recurrence(recur),
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Created %s %s due %s\n", shortRef(task.ID), task.Title, task.DueDate)
	return nil
}

func runExport(cmd *cobra.Command, _ []string) error {
	output, _ := cmd.Flags().GetString("output")

	st, err := openStoreFromEnv(cmd.Context())
	if err != nil {
		return err
	}
	defer st.Close()

	if output == "" {
		return st.svc.Export(cmd.OutOrStdout())
	}

	f, err := os.Create(output)
	if err != nil {
		return fmt.Errorf("create %s: %w", output, err)
	}
	if err := st.svc.Export(f); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", output, err)
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "Exported %d tasks to %s\n", len(st.svc.Snapshot()), output)
	return nil
}

func runImport(cmd *cobra.Command, args []string) error {
	f, err := os.Open(args[0])
	if err != nil {
		return fmt.Errorf("open %s: %w", args[0], err)
	}
	defer f.Close()

	st, err := openStoreFromEnv(cmd.Context())
	if err != nil {
		return err
	}
	defer st.Close()

	res, err := st.svc.Import(cmd.Context(), f)
	if err != nil {
		if res.Created > 0 {
			fmt.Fprintf(cmd.OutOrStdout(), "Imported %d tasks before the failure.\n", res.Created)
		}
		return fmt.Errorf("import failed: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Imported %d tasks.\n", res.Created)
	return nil
}

func runMove(cmd *cobra.Command, args []string) error {
	to := model.Status(strings.ToLower(strings.TrimSpace(args[1])))
	if !to.Valid() {
		return fmt.Errorf("unknown status %q: use todo or in-progress", args[1])
	}
	if to == model.StatusCompleted {
		return fmt.Errorf("completing needs a photo: run taskflow complete %s --photo <file>", args[0])
	}

	st, err := openStoreFromEnv(cmd.Context())
	if err != nil {
		return err
	}
	defer st.Close()

	task, err := st.svc.Resolve(args[0])
	if err != nil {
		return err
	}
	res, err := st.svc.Move(cmd.Context(), task.ID, to, "")
	if err != nil {
		return fmt.Errorf("move %s: %w", shortRef(task.ID), err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Moved %s %s: %s -> %s\n", shortRef(res.Task.ID), res.Task.Title, res.From, res.To)
	return nil
}

func runComplete(cmd *cobra.Command, args []string) error {
	photo, _ := cmd.Flags().GetString("photo")
	if photo == "" {
		return fmt.Errorf("--photo is required: completing a task needs a photo")
	}

	st, err := openStoreFromEnv(cmd.Context())
	if err != nil {
		return err
	}
	defer st.Close()

	task, err := st.svc.Resolve(args[0])
	if err != nil {
		return err
	}

	res, err := st.svc.CompleteWithCapture(cmd.Context(), task.ID, service.FilePhoto{Path: photo})
	if err != nil && res == nil {
		return fmt.Errorf("complete %s: %w", shortRef(task.ID), err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Completed %s %s\n", shortRef(res.Task.ID), res.Task.Title)
	if res.Spawned != nil {
		fmt.Fprintf(out, "Next occurrence due %s\n", res.Spawned.DueDate)
	}
	return err
}
