// Command tracker-cli drives the assignment tracker API from a terminal.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/noah-isme/assignment-tracker-api/internal/client"
	"github.com/noah-isme/assignment-tracker-api/internal/models"
	"github.com/noah-isme/assignment-tracker-api/internal/table"
	"github.com/noah-isme/assignment-tracker-api/internal/transfer"
	"github.com/noah-isme/assignment-tracker-api/pkg/export"
)

const usage = `usage: tracker-cli [-api URL] [-token TOKEN] <command> [args]

commands:
  login -email E -password P
  semesters
  create-semester NAME
  delete-semester SEMESTER_ID
  show SEMESTER_ID [-sort COLUMN[:desc]] [-filter COLUMN=V1,V2]...
  add SEMESTER_ID -course C -name N [-due DATE] [-status S] [-link URL]
  edit SEMESTER_ID ASSIGNMENT_ID [-course C] [-name N] [-due DATE] [-status S] [-link URL]
  duplicate SEMESTER_ID ASSIGNMENT_ID
  status SEMESTER_ID ASSIGNMENT_ID STATUS
  remove SEMESTER_ID ASSIGNMENT_ID
  import SEMESTER_ID FILE
  export SEMESTER_ID [-format csv|pdf|xlsx] [-o FILE]
`

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout io.Writer) error {
	global := flag.NewFlagSet("tracker-cli", flag.ContinueOnError)
	global.SetOutput(io.Discard)
	apiURL := global.String("api", envOr("TRACKER_API_URL", "http://localhost:8080/api/v1"), "API base URL including prefix")
	token := global.String("token", os.Getenv("TRACKER_TOKEN"), "bearer token")
	timeout := global.Duration("timeout", client.DefaultTimeout, "request timeout")
	if err := global.Parse(args); err != nil {
		return fmt.Errorf("%w\n%s", err, usage)
	}
	rest := global.Args()
	if len(rest) == 0 {
		return errors.New(usage)
	}

	api := client.New(*apiURL, client.WithToken(*token))
	ctx, cancel := context.WithTimeout(ctx, *timeout)
	defer cancel()

	cmd, cmdArgs := rest[0], rest[1:]
	switch cmd {
	case "login":
		return cmdLogin(ctx, api, cmdArgs, stdout)
	case "semesters":
		return cmdSemesters(ctx, api, stdout)
	case "create-semester":
		if len(cmdArgs) != 1 {
			return errors.New("create-semester needs a NAME")
		}
		sem, err := api.CreateSemester(ctx, cmdArgs[0])
		if err != nil {
			return err
		}
		fmt.Fprintf(stdout, "created %s (%s)\n", sem.Name, sem.ID)
		return nil
	case "delete-semester":
		if len(cmdArgs) != 1 {
			return errors.New("delete-semester needs a SEMESTER_ID")
		}
		return api.DeleteSemester(ctx, cmdArgs[0])
	case "show":
		return cmdShow(ctx, api, cmdArgs, stdout)
	case "add", "edit", "duplicate", "status", "remove", "import":
		return cmdMutate(ctx, api, cmd, cmdArgs, stdout)
	case "export":
		return cmdExport(ctx, api, cmdArgs, stdout)
	}
	return fmt.Errorf("unknown command %q\n%s", cmd, usage)
}

func cmdLogin(ctx context.Context, api *client.Client, args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("login", flag.ContinueOnError)
	email := fs.String("email", "", "account email")
	password := fs.String("password", "", "account password")
	if err := fs.Parse(args); err != nil {
		return err
	}
	res, err := api.Login(ctx, *email, *password)
	if err != nil {
		return err
	}
	fmt.Fprintln(stdout, res.AccessToken)
	return nil
}

func cmdSemesters(ctx context.Context, api *client.Client, stdout io.Writer) error {
	list, err := api.ListSemesters(ctx)
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tASSIGNMENTS\tCREATED")
	for _, s := range list {
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\n", s.ID, s.Name, s.AssignmentCount, s.CreatedAt.Format(time.RFC3339))
	}
	return w.Flush()
}

type filterFlags []string

func (f *filterFlags) String() string     { return strings.Join(*f, " ") }
func (f *filterFlags) Set(v string) error { *f = append(*f, v); return nil }

func cmdShow(ctx context.Context, api *client.Client, args []string, stdout io.Writer) error {
	if len(args) == 0 {
		return errors.New("show needs a SEMESTER_ID")
	}
	fs := flag.NewFlagSet("show", flag.ContinueOnError)
	sortFlag := fs.String("sort", "", "COLUMN or COLUMN:desc")
	var filters filterFlags
	fs.Var(&filters, "filter", "COLUMN=V1,V2 (repeatable)")
	if err := fs.Parse(args[1:]); err != nil {
		return err
	}

	ctrl := table.NewController(api, table.NewLoader(api, args[0]))
	if err := ctrl.Load(ctx); err != nil {
		return err
	}
	if err := applySort(ctrl, *sortFlag); err != nil {
		return err
	}
	for _, raw := range filters {
		column, values, err := parseFilter(raw)
		if err != nil {
			return err
		}
		ctrl.SetColumnFilter(column, values)
	}
	fmt.Fprintf(stdout, "%s\n\n", ctrl.Semester().Name)
	return printRows(stdout, ctrl.Rows())
}

func cmdMutate(ctx context.Context, api *client.Client, cmd string, args []string, stdout io.Writer) error {
	if len(args) == 0 {
		return fmt.Errorf("%s needs a SEMESTER_ID", cmd)
	}
	ctrl := table.NewController(api, table.NewLoader(api, args[0]))
	if err := ctrl.Load(ctx); err != nil {
		return err
	}
	args = args[1:]

	switch cmd {
	case "add":
		ctrl.BeginAdd()
		fields, err := parseFields(cmd, args, ctrl.Draft().Fields)
		if err != nil {
			return err
		}
		if err := ctrl.SetDraftFields(fields); err != nil {
			return err
		}
		return ctrl.Commit(ctx)
	case "edit", "duplicate":
		if len(args) == 0 {
			return fmt.Errorf("%s needs an ASSIGNMENT_ID", cmd)
		}
		target, err := findAssignment(ctrl, args[0])
		if err != nil {
			return err
		}
		if cmd == "duplicate" {
			ctrl.BeginDuplicate(target)
			return ctrl.Commit(ctx)
		}
		ctrl.BeginEdit(target)
		fields, err := parseFields(cmd, args[1:], ctrl.Draft().Fields)
		if err != nil {
			return err
		}
		if err := ctrl.SetDraftFields(fields); err != nil {
			return err
		}
		return ctrl.Commit(ctx)
	case "status":
		if len(args) != 2 {
			return errors.New("status needs ASSIGNMENT_ID and STATUS")
		}
		target, err := findAssignment(ctrl, args[0])
		if err != nil {
			return err
		}
		status, err := models.ParseStatus(args[1])
		if err != nil {
			return err
		}
		return ctrl.SetStatus(ctx, target, status)
	case "remove":
		if len(args) != 1 {
			return errors.New("remove needs an ASSIGNMENT_ID")
		}
		target, err := findAssignment(ctrl, args[0])
		if err != nil {
			return err
		}
		return ctrl.Remove(ctx, target)
	case "import":
		if len(args) != 1 {
			return errors.New("import needs a FILE")
		}
		file, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer file.Close() //nolint:errcheck
		n, err := ctrl.ImportCSV(ctx, file)
		if err != nil {
			return err
		}
		fmt.Fprintf(stdout, "imported %d assignments\n", n)
		return nil
	}
	return fmt.Errorf("unknown command %q", cmd)
}

func cmdExport(ctx context.Context, api *client.Client, args []string, stdout io.Writer) error {
	if len(args) == 0 {
		return errors.New("export needs a SEMESTER_ID")
	}
	fs := flag.NewFlagSet("export", flag.ContinueOnError)
	formatFlag := fs.String("format", "csv", "csv, pdf or xlsx")
	out := fs.String("o", "", "output file (default stdout)")
	if err := fs.Parse(args[1:]); err != nil {
		return err
	}
	format, err := export.ParseFormat(*formatFlag)
	if err != nil {
		return err
	}

	w := stdout
	if *out != "" {
		file, err := os.Create(*out)
		if err != nil {
			return err
		}
		defer file.Close() //nolint:errcheck
		w = file
	}

	if format == export.FormatCSV {
		ctrl := table.NewController(api, table.NewLoader(api, args[0]))
		if err := ctrl.Load(ctx); err != nil {
			return err
		}
		return ctrl.ExportCSV(w)
	}
	data, err := api.Export(ctx, args[0], format)
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

func applySort(ctrl *table.Controller, raw string) error {
	if raw == "" {
		return nil
	}
	name, dir, _ := strings.Cut(raw, ":")
	column, err := table.ParseColumn(name)
	if err != nil {
		return err
	}
	direction, err := table.ParseDirection(dir)
	if err != nil {
		return err
	}
	ctrl.ToggleSort(column)
	if ctrl.Sort().Direction != direction {
		ctrl.ToggleSort(column)
	}
	return nil
}

// parseFilter reads COLUMN=V1,V2. An empty value list hides every row.
func parseFilter(raw string) (table.Column, []string, error) {
	name, list, ok := strings.Cut(raw, "=")
	if !ok {
		return "", nil, fmt.Errorf("filter %q must look like COLUMN=V1,V2", raw)
	}
	column, err := table.ParseColumn(name)
	if err != nil {
		return "", nil, err
	}
	values := []string{}
	for _, v := range strings.Split(list, ",") {
		if v = strings.TrimSpace(v); v != "" {
			values = append(values, v)
		}
	}
	return column, values, nil
}

func parseFields(cmd string, args []string, base models.AssignmentFields) (models.AssignmentFields, error) {
	fs := flag.NewFlagSet(cmd, flag.ContinueOnError)
	course := fs.String("course", base.Course, "course")
	name := fs.String("name", base.Name, "assignment name")
	due := fs.String("due", "", "due date")
	status := fs.String("status", string(base.Status), "status")
	link := fs.String("link", "", "link")
	if err := fs.Parse(args); err != nil {
		return base, err
	}

	fields := base
	fields.Course = *course
	fields.Name = *name
	if *due != "" {
		parsed, err := transfer.ParseDueDate(*due)
		if err != nil {
			return base, err
		}
		fields.DueDate = parsed
	}
	parsedStatus, err := models.ParseStatus(*status)
	if err != nil {
		return base, err
	}
	fields.Status = parsedStatus
	if *link != "" {
		fields.Link = link
	}
	return fields, nil
}

func findAssignment(ctrl *table.Controller, id string) (models.Assignment, error) {
	for _, a := range ctrl.Semester().Assignments {
		if a.ID == id {
			return a, nil
		}
	}
	return models.Assignment{}, fmt.Errorf("assignment %s not found", id)
}

func printRows(w io.Writer, rows []models.Assignment) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tCOURSE\tNAME\tDUE\tSTATUS\tLINK")
	for _, a := range rows {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n", a.ID,
			table.Value(a, table.ColumnCourse),
			table.Value(a, table.ColumnName),
			table.Value(a, table.ColumnDueDate),
			table.Value(a, table.ColumnStatus),
			table.Value(a, table.ColumnLink))
	}
	return tw.Flush()
}

func envOr(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}
