// Package cli is an interactive terminal front-end over app.Controller.
package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"safesphere/internal/access"
	"safesphere/internal/app"
	"safesphere/internal/apperr"
	"safesphere/internal/auth"
	"safesphere/internal/model"
	"safesphere/internal/registry"
)

// App reads commands from in and writes results to out.
type App struct {
	ctrl *app.Controller
	in   *bufio.Reader
	out  io.Writer
}

func New(ctrl *app.Controller, in io.Reader, out io.Writer) *App {
	return &App{ctrl: ctrl, in: bufio.NewReader(in), out: out}
}

type command struct {
	area access.Area // empty means available without a session
	run  func(a *App, ctx context.Context, args []string) error
}

var commands = map[string]command{
	"signup":        {run: (*App).signup},
	"login":         {run: (*App).login},
	"logout":        {area: access.AreaMyQR, run: (*App).logout},
	"whoami":        {area: access.AreaMyQR, run: (*App).whoami},
	"areas":         {area: access.AreaMyQR, run: (*App).areas},
	"attendance":    {area: access.AreaAttendance, run: (*App).attendance},
	"incident":      {area: access.AreaIncidents, run: (*App).incident},
	"incidents":     {area: access.AreaIncidents, run: (*App).incidents},
	"sos":           {area: access.AreaIncidents, run: (*App).sos},
	"notifications": {area: access.AreaNotifications, run: (*App).notifications},
	"entry":         {area: access.AreaScan, run: (*App).entry},
	"exit":          {area: access.AreaScan, run: (*App).exit},
	"logs":          {area: access.AreaLogs, run: (*App).logs},
	"visitor":       {area: access.AreaVisitors, run: (*App).visitor},
	"visitors":      {area: access.AreaVisitors, run: (*App).visitors},
	"daily":         {area: access.AreaReports, run: (*App).daily},
	"report":        {area: access.AreaReports, run: (*App).report},
}

// Run loops until quit or EOF.
func (a *App) Run(ctx context.Context) {
	for {
		fmt.Fprint(a.out, a.prompt())
		line, err := a.in.ReadString('\n')
		fields := strings.Fields(line)
		if len(fields) > 0 {
			if fields[0] == "quit" {
				fmt.Fprintln(a.out, "Bye!")
				return
			}
			a.dispatch(ctx, fields[0], fields[1:])
		}
		if err != nil {
			return
		}
	}
}

func (a *App) prompt() string {
	if u := a.ctrl.Current(); u != nil {
		return fmt.Sprintf("safesphere [%s %s]> ", u.Name, strings.ToUpper(string(u.Role)))
	}
	return "safesphere> "
}

func (a *App) dispatch(ctx context.Context, name string, args []string) {
	if name == "help" {
		a.help()
		return
	}
	cmd, ok := commands[name]
	if !ok {
		fmt.Fprintln(a.out, "Unknown command:", name)
		return
	}
	if cmd.area != "" {
		u := a.ctrl.Current()
		if u == nil {
			fmt.Fprintln(a.out, "Please log in first.")
			return
		}
		if !access.Can(u.Role, cmd.area) {
			fmt.Fprintln(a.out, "Not permitted for your role.")
			return
		}
	}
	if err := cmd.run(a, ctx, args); err != nil {
		fmt.Fprintln(a.out, "Error:", apperr.Message(err))
	}
}

func (a *App) help() {
	var role model.Role
	u := a.ctrl.Current()
	if u != nil {
		role = u.Role
	}
	var names []string
	for _, name := range []string{"signup", "login", "logout", "whoami", "areas", "attendance", "incident", "incidents", "sos", "notifications", "entry", "exit", "logs", "visitor", "visitors", "daily", "report"} {
		cmd := commands[name]
		if cmd.area == "" || (u != nil && access.Can(role, cmd.area)) {
			names = append(names, name)
		}
	}
	fmt.Fprintln(a.out, "Commands:", strings.Join(append(names, "quit"), ", "))
}

func (a *App) signup(ctx context.Context, _ []string) error {
	var in auth.SignupInput
	var err error
	if in.Name, err = ask(a.in, a.out, "Name"); err != nil {
		return err
	}
	if in.Email, err = ask(a.in, a.out, "Email"); err != nil {
		return err
	}
	if in.Password, err = askPassword(a.out); err != nil {
		return err
	}
	if in.Role, err = ask(a.in, a.out, "Role (admin/security/student)"); err != nil {
		return err
	}
	if in.IDNumber, err = ask(a.in, a.out, "ID number"); err != nil {
		return err
	}
	user, err := a.ctrl.Signup(ctx, in)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Account created successfully! Your User ID is %s. Please login.\n", user.UserID)
	return nil
}

func (a *App) login(ctx context.Context, args []string) error {
	var id string
	if len(args) > 0 {
		id = args[0]
	} else {
		var err error
		if id, err = ask(a.in, a.out, "Email or User ID"); err != nil {
			return err
		}
	}
	pw, err := askPassword(a.out)
	if err != nil {
		return err
	}
	user, err := a.ctrl.Login(ctx, id, pw)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Login successful! Welcome, %s!\n", user.Name)
	return nil
}

func (a *App) logout(ctx context.Context, _ []string) error {
	done, err := a.ctrl.Logout(ctx, confirmer(a.in, a.out))
	if err == nil && done {
		fmt.Fprintln(a.out, "Logged out.")
	}
	return err
}

func (a *App) whoami(context.Context, []string) error {
	u := a.ctrl.Current()
	fmt.Fprintf(a.out, "%s <%s>\nRole: %s\nUser ID: %s\n", u.Name, u.Email, strings.ToUpper(string(u.Role)), u.UserID)
	return nil
}

func (a *App) areas(context.Context, []string) error {
	for _, area := range a.ctrl.Areas() {
		fmt.Fprintln(a.out, "-", area)
	}
	return nil
}

func (a *App) attendance(context.Context, []string) error {
	sum, records, err := a.ctrl.MyAttendance()
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Total days: %d  Present: %d  Attendance: %d%%\n", sum.TotalDays, sum.PresentDays, sum.Percentage)
	if len(records) == 0 {
		fmt.Fprintln(a.out, "No attendance records yet")
	}
	for _, r := range records {
		fmt.Fprintf(a.out, "%s  entry %s  exit %s\n", r.Date, orNA(r.Entry), orNA(deref(r.Exit)))
	}
	return nil
}

func (a *App) scanID(args []string) (string, error) {
	if len(args) > 0 {
		return args[0], nil
	}
	return ask(a.in, a.out, "User ID")
}

func (a *App) entry(ctx context.Context, args []string) error {
	id, err := a.scanID(args)
	if err != nil {
		return err
	}
	l, err := a.ctrl.RecordEntry(ctx, id)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Entry logged: %s (%s) at %s\n", l.UserName, l.UserID, l.Timestamp.Local().Format(time.DateTime))
	return nil
}

func (a *App) exit(ctx context.Context, args []string) error {
	id, err := a.scanID(args)
	if err != nil {
		return err
	}
	l, err := a.ctrl.RecordExit(ctx, id)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Exit logged: %s (%s) at %s\n", l.UserName, l.UserID, l.Timestamp.Local().Format(time.DateTime))
	return nil
}

func (a *App) logs(_ context.Context, args []string) error {
	var date *time.Time
	if len(args) > 0 {
		d, err := time.ParseInLocation(model.DateLayout, args[0], time.Local)
		if err != nil {
			return apperr.Validation("date must be YYYY-MM-DD")
		}
		date = &d
	}
	logs := a.ctrl.Logs(date)
	if len(logs) == 0 {
		fmt.Fprintln(a.out, "No logs found")
	}
	for _, l := range logs {
		fmt.Fprintf(a.out, "%s  %-5s  %s (%s)\n", l.Timestamp.Local().Format(time.DateTime), strings.ToUpper(string(l.Type)), l.UserName, l.UserID)
	}
	return nil
}

func (a *App) visitor(ctx context.Context, _ []string) error {
	var in registry.VisitorInput
	for _, f := range []struct {
		prompt string
		dst    *string
	}{
		{"Visitor name", &in.Name},
		{"Purpose", &in.Purpose},
		{"Phone", &in.Phone},
		{"Meeting", &in.Meeting},
		{"ID type (optional)", &in.IDType},
	} {
		v, err := ask(a.in, a.out, f.prompt)
		if err != nil {
			return err
		}
		*f.dst = v
	}
	v, err := a.ctrl.RegisterVisitor(ctx, in)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Visitor registered: %s (%s)\n", v.Name, v.ID)
	return nil
}

func (a *App) visitors(context.Context, []string) error {
	vs := a.ctrl.TodaysVisitors()
	if len(vs) == 0 {
		fmt.Fprintln(a.out, "No visitors today")
	}
	for _, v := range vs {
		fmt.Fprintf(a.out, "%s  %s  meeting %s  [%s]\n", v.Name, v.Purpose, v.Meeting, v.Status)
	}
	return nil
}

func (a *App) incident(ctx context.Context, _ []string) error {
	var in registry.IncidentInput
	var err error
	if in.Type, err = ask(a.in, a.out, "Type"); err != nil {
		return err
	}
	if in.Location, err = ask(a.in, a.out, "Location"); err != nil {
		return err
	}
	if in.Description, err = ask(a.in, a.out, "Description"); err != nil {
		return err
	}
	if _, err := a.ctrl.SubmitIncident(ctx, in); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Incident reported successfully. Authorities have been notified.")
	return nil
}

func (a *App) incidents(_ context.Context, args []string) error {
	limit := registry.DefaultIncidentLimit
	if len(args) > 0 {
		if n, err := strconv.Atoi(args[0]); err == nil {
			limit = n
		}
	}
	list := a.ctrl.RecentIncidents(limit)
	if len(list) == 0 {
		fmt.Fprintln(a.out, "No incidents reported")
	}
	for _, i := range list {
		fmt.Fprintf(a.out, "[%s] %s at %s: %s (reported by %s)\n", i.Status, i.Type, i.Location, i.Description, i.ReportedBy)
	}
	return nil
}

func (a *App) sos(ctx context.Context, _ []string) error {
	inc, err := a.ctrl.TriggerSOS(ctx, confirmer(a.in, a.out))
	if err != nil || inc == nil {
		return err
	}
	fmt.Fprintln(a.out, "SOS ALERT SENT! Campus security and emergency services have been notified.")
	return nil
}

func (a *App) notifications(context.Context, []string) error {
	ns := a.ctrl.Notifications()
	if len(ns) == 0 {
		fmt.Fprintln(a.out, "No notifications")
	}
	for _, n := range ns {
		fmt.Fprintf(a.out, "%s  %-7s  %s\n", n.Timestamp.Local().Format(time.DateTime), n.Type, n.Message)
	}
	return nil
}

func (a *App) daily(context.Context, []string) error {
	d := a.ctrl.DailyCounts()
	fmt.Fprintf(a.out, "Entries today: %d\nCurrently inside: %d\nVisitors today: %d\n", d.Entries, d.CurrentlyInside, d.VisitorsToday)
	return nil
}

func (a *App) report(context.Context, []string) error {
	s, err := a.ctrl.SummaryReport()
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Total users: %d\nTotal logs: %d\nTotal visitors: %d\nTotal incidents: %d\nGenerated on %s by %s\n",
		s.TotalUsers, s.TotalLogEntries, s.TotalVisitors, s.TotalIncidents, s.GeneratedAt.Local().Format(time.DateTime), s.GeneratedBy)
	return nil
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
