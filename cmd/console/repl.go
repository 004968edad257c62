package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"novusai.org/internal/api"
	"novusai.org/internal/config"
	"novusai.org/internal/conversation"
	"novusai.org/internal/credential"
	"novusai.org/internal/nav"
	"novusai.org/internal/session"
	"novusai.org/internal/stream"
	"novusai.org/internal/synthesis"
)

var (
	userLabel  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12")).Render("you")
	botLabel   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("14")).Render("novus")
	dimStyle   = lipgloss.NewStyle().Faint(true)
	errStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	statStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	tableStyle = lipgloss.NewStyle().PaddingLeft(2)
)

type console struct {
	cfg    *config.Config
	bus    *stream.Bus
	creds  *credential.Store
	mgr    *session.Manager
	store  *conversation.Store
	orch   *synthesis.Orchestrator
	bind   *nav.Binding
	client *api.Client
	out    io.Writer
}

func (c *console) run(ctx context.Context) error {
	fmt.Fprintln(c.out, statStyle.Render("novus-console — type /help for commands"))
	fmt.Fprintln(c.out, dimStyle.Render("backend "+c.cfg.APIBaseURL))
	if c.cfg.Verbose {
		go c.echoEvents(ctx)
	}
	c.printStatus()
	c.newChat()

	sc := bufio.NewScanner(os.Stdin)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for {
		fmt.Fprint(c.out, "> ")
		if !sc.Scan() {
			fmt.Fprintln(c.out)
			return sc.Err()
		}
		if ctx.Err() != nil {
			return nil
		}
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "/") {
			if quit := c.command(ctx, line); quit {
				return nil
			}
			continue
		}
		c.ask(ctx, line)
	}
}

func (c *console) command(ctx context.Context, line string) (quit bool) {
	fields := strings.Fields(line)
	cmd, args := fields[0], fields[1:]
	switch cmd {
	case "/help":
		c.printHelp()
	case "/quit", "/exit":
		return true
	case "/new":
		c.newChat()
	case "/open":
		if len(args) != 1 {
			c.errorf("usage: /open <conversation-id>")
			return false
		}
		if err := c.bind.Navigate(ctx, args[0]); err != nil {
			c.errorf("open: %v", err)
			return false
		}
		c.renderAll()
	case "/history":
		c.printHistory(ctx)
	case "/export":
		c.export(ctx, args)
	case "/login":
		if len(args) != 2 {
			c.errorf("usage: /login <email> <password>")
			return false
		}
		if err := login(ctx, c.mgr, args[0], args[1]); err != nil {
			c.errorf("%v", err)
			return false
		}
		c.printStatus()
	case "/signup":
		c.signup(ctx, args)
	case "/upload":
		if len(args) != 1 {
			c.errorf("usage: /upload <path>")
			return false
		}
		c.upload(ctx, args[0])
	case "/logout":
		c.mgr.Logout(ctx)
		c.newChat()
		c.printStatus()
	case "/whoami":
		c.printStatus()
	case "/pending":
		c.printPending(ctx)
	case "/approve":
		if len(args) != 1 {
			c.errorf("usage: /approve <user-id>")
			return false
		}
		c.approve(ctx, args[0])
	default:
		c.errorf("unknown command %s (try /help)", cmd)
	}
	return false
}

func (c *console) ask(ctx context.Context, text string) {
	if c.mgr.Status() != session.StatusAuthenticated {
		c.errorf("not signed in; use /login <email> <password>")
		return
	}
	if !c.orch.Send(ctx, text) {
		c.errorf("a synthesis turn is already in flight")
		return
	}
	c.renderTail(2)
}

func (c *console) printHelp() {
	fmt.Fprintln(c.out, tableStyle.Render(strings.Join([]string{
		"/new                start a fresh conversation",
		"/open <id>          load a saved conversation",
		"/history            list saved conversations",
		"/export [path]      save the active conversation as a document",
		"/login <email> <pw> sign in",
		"/signup company <company> <email> <pw> <admin-name>",
		"/signup employee <company> <email> <pw> <name>",
		"/upload <path>      upload a source document",
		"/logout             sign out (local)",
		"/whoami             show session state",
		"/pending            list accounts awaiting approval (admin)",
		"/approve <user-id>  approve a pending account (admin)",
		"/quit               exit",
	}, "\n")))
}

func (c *console) printStatus() {
	st := c.mgr.Status()
	if id, ok := c.mgr.Identity(); ok {
		fmt.Fprintln(c.out, statStyle.Render(fmt.Sprintf("%s — %s <%s> @ %s", st, id.DisplayName, id.Email, id.OrganizationName)))
		if info, ok := credential.Peek(c.creds.Get()); ok && !info.ExpiresAt.IsZero() {
			fmt.Fprintln(c.out, dimStyle.Render("credential expires "+info.ExpiresAt.Format(time.RFC3339)))
		}
		return
	}
	fmt.Fprintln(c.out, statStyle.Render(st.String()))
}

func (c *console) printHistory(ctx context.Context) {
	if err := c.orch.RefreshSummaries(ctx); err != nil {
		c.errorf("history: %v", err)
		return
	}
	list := c.store.Summaries()
	if len(list) == 0 {
		fmt.Fprintln(c.out, dimStyle.Render("no saved conversations"))
		return
	}
	for _, s := range list {
		fmt.Fprintf(c.out, "  %s  %s  %s\n", s.ConversationID, dimStyle.Render(s.LastUpdatedAt.Format("2006-01-02 15:04")), s.LastQuestion)
	}
}

// signup registers either a company (admin is signed in right away) or an
// employee (account awaits admin approval). Multi-word names join the
// trailing arguments.
func (c *console) signup(ctx context.Context, args []string) {
	if len(args) < 5 {
		c.errorf("usage: /signup company|employee <company> <email> <password> <name>")
		return
	}
	kind, company, email, password := args[0], args[1], args[2], args[3]
	name := strings.Join(args[4:], " ")

	switch kind {
	case "company":
		token, err := c.client.SignupCompany(ctx, api.CompanySignup{
			CompanyName: company, Email: email, Password: password, AdminName: name,
		})
		if err != nil {
			c.errorf("signup: %v", err)
			return
		}
		c.creds.Set(token)
		c.mgr.Refresh(ctx)
		c.printStatus()
	case "employee":
		msg, err := c.client.SignupEmployee(ctx, api.EmployeeSignup{
			CompanyName: company, Email: email, Password: password, Name: name,
		})
		if err != nil {
			c.errorf("signup: %v", err)
			return
		}
		if msg == "" {
			msg = "account created; awaiting admin approval"
		}
		fmt.Fprintln(c.out, statStyle.Render(msg))
	default:
		c.errorf("unknown signup kind %q", kind)
	}
}

func (c *console) upload(ctx context.Context, path string) {
	f, err := os.Open(path)
	if err != nil {
		c.errorf("upload: %v", err)
		return
	}
	defer f.Close()

	doc, err := c.client.UploadDocument(ctx, filepath.Base(path), f)
	if err != nil {
		c.errorf("upload: %v", err)
		return
	}
	fmt.Fprintln(c.out, statStyle.Render(fmt.Sprintf("uploaded %s -> %s", doc.Filename, doc.Path)))
}

func (c *console) printPending(ctx context.Context) {
	list, err := c.client.ListPendingUsers(ctx)
	if err != nil {
		c.errorf("pending: %v", err)
		return
	}
	if len(list) == 0 {
		fmt.Fprintln(c.out, dimStyle.Render("no accounts awaiting approval"))
		return
	}
	for _, u := range list {
		fmt.Fprintf(c.out, "  %d  %s  %s\n", u.ID, u.Email, u.Name)
	}
}

func (c *console) approve(ctx context.Context, raw string) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		c.errorf("approve: %q is not a user id", raw)
		return
	}
	if err := c.client.ApproveUser(ctx, id); err != nil {
		c.errorf("approve: %v", err)
		return
	}
	fmt.Fprintln(c.out, statStyle.Render(fmt.Sprintf("approved user %d", id)))
}

func (c *console) export(ctx context.Context, args []string) {
	id := c.store.ActiveID()
	if id == "" {
		c.errorf("no saved conversation is active")
		return
	}
	path := id + ".pdf"
	if len(args) > 0 {
		path = args[0]
	}
	data, err := c.client.ExportConversationDocument(ctx, id)
	if err != nil {
		c.errorf("export: %v", err)
		return
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		c.errorf("export: %v", err)
		return
	}
	fmt.Fprintln(c.out, statStyle.Render("wrote "+path))
}

// echoEvents mirrors core state-change events to the terminal while verbose
// mode is on.
func (c *console) echoEvents(ctx context.Context) {
	for evt := range c.bus.Subscribe(ctx) {
		line := fmt.Sprintf("event %s", evt.Kind)
		if evt.ConversationID != "" {
			line += " " + evt.ConversationID
		}
		if evt.Detail != "" {
			line += " " + evt.Detail
		}
		fmt.Fprintln(c.out, dimStyle.Render(line))
	}
}

// newChat resets the conversation and waits out the exit-transition window
// so the welcome line is present before rendering.
func (c *console) newChat() {
	c.bind.NewChat()
	for c.bind.Resetting() {
		time.Sleep(10 * time.Millisecond)
	}
	c.renderTail(1)
}

// renderTail prints the last n messages of the active conversation.
func (c *console) renderTail(n int) {
	msgs := c.store.Messages()
	if len(msgs) > n {
		msgs = msgs[len(msgs)-n:]
	}
	c.render(msgs)
}

func (c *console) renderAll() {
	if id := c.store.ActiveID(); id != "" {
		fmt.Fprintln(c.out, dimStyle.Render("conversation "+id))
	}
	c.render(c.store.Messages())
}

func (c *console) render(msgs []conversation.Message) {
	for _, m := range msgs {
		label := botLabel
		if m.Role == conversation.RoleUser {
			label = userLabel
		}
		fmt.Fprintf(c.out, "%s  %s\n", label, m.Content)
		if m.Visualization != nil {
			c.renderVisualization(m.Visualization)
		}
	}
}

func (c *console) renderVisualization(v *conversation.Visualization) {
	var b strings.Builder
	fmt.Fprintf(&b, "%s — %s", v.Drug, strings.Join(v.Condition, ", "))
	if v.Market != nil {
		fmt.Fprintf(&b, "\nmarket: $%.1fB now, $%.1fB by 2030", v.Market.CurrentUSDBn, v.Market.Forecast2030USDBn)
	}
	if v.Clinical != nil {
		fmt.Fprintf(&b, "\ntrials: %.0f total across %d phases", v.Clinical.TotalTrials, len(v.Clinical.Phases))
	}
	fmt.Fprintln(c.out, tableStyle.Render(dimStyle.Render(b.String())))
}

func (c *console) errorf(format string, args ...any) {
	fmt.Fprintln(c.out, errStyle.Render(fmt.Sprintf(format, args...)))
}
