package main

import (
	"fmt"
	"log"
	"mime"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/adrianferrergutierrez/frontend-asw/config"
	"github.com/adrianferrergutierrez/frontend-asw/internal/api"
	"github.com/adrianferrergutierrez/frontend-asw/internal/collection"
	"github.com/adrianferrergutierrez/frontend-asw/internal/models"
	"github.com/adrianferrergutierrez/frontend-asw/internal/session"
)

// env bundles everything a command needs once the config is loaded.
type env struct {
	client  *api.Client
	store   *session.SQLiteStore
	issues  *collection.Collection
	cleanup func()
}

func setup(c *cli.Context) (*env, error) {
	cfg, err := config.LoadConfig(c.String("config"))
	if err != nil {
		return nil, err
	}

	store, err := session.Open(cfg.SessionDBPath)
	if err != nil {
		return nil, err
	}

	opts := []api.Option{api.WithUploadTimeout(cfg.UploadTimeout())}
	if c.Bool("quiet") {
		opts = append(opts, api.WithLogger(func(string, ...any) {}))
	}
	client := api.NewClient(cfg.BaseURL, cfg.APIKey, opts...)

	return &env{
		client:  client,
		store:   store,
		issues:  collection.New(client, store),
		cleanup: func() { _ = store.Close() },
	}, nil
}

func main() {
	app := &cli.App{
		Name:  "tracker",
		Usage: "Command line client for the issue tracker API.",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "config",
				Value: "config.json",
				Usage: "Path to the configuration file.",
			},
			&cli.BoolFlag{
				Name:  "quiet",
				Usage: "Suppress request/response logging.",
			},
		},
		Commands: []*cli.Command{
			{
				Name:  "init",
				Usage: "Create a default configuration file.",
				Action: func(c *cli.Context) error {
					path := c.String("config")
					if err := config.CreateDefaultConfig(path); err != nil {
						return err
					}
					log.Printf("Created default configuration at %s", path)
					return nil
				},
			},
			issuesCommand(),
			commentsCommand(),
			attachmentsCommand(),
			refCommand(),
			usersCommand(),
			sessionCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "\nError: %s\n", err.Error())
		os.Exit(2)
	}
}

func issuesCommand() *cli.Command {
	return &cli.Command{
		Name:  "issues",
		Usage: "List and mutate issues.",
		Subcommands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List issues, sorted server-side and filtered locally.",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "sort", Value: string(api.SortByModified), Usage: "Sort field: type, severity, priority, issue, status, modified, assign_to."},
					&cli.StringFlag{Name: "direction", Value: string(api.Descending), Usage: "Sort direction: asc or desc."},
					&cli.StringFlag{Name: "text", Usage: "Substring to match in subject or content."},
					&cli.Int64Flag{Name: "type", Usage: "Filter by issue type id."},
					&cli.Int64Flag{Name: "severity", Usage: "Filter by severity id."},
					&cli.Int64Flag{Name: "priority", Usage: "Filter by priority id."},
					&cli.Int64Flag{Name: "status", Usage: "Filter by status id."},
					&cli.Int64Flag{Name: "creator", Usage: "Filter by creator user id."},
					&cli.Int64Flag{Name: "assignee", Usage: "Filter by assignee user id."},
					&cli.BoolFlag{Name: "unassigned", Usage: "Only issues with no assignee."},
				},
				Action: func(c *cli.Context) error {
					e, err := setup(c)
					if err != nil {
						return err
					}
					defer e.cleanup()

					if err := e.issues.SetSort(c.Context, api.SortField(c.String("sort")), api.SortDirection(c.String("direction"))); err != nil {
						return err
					}
					filter := collection.FilterCriteria{
						Text:        c.String("text"),
						IssueTypeID: c.Int64("type"),
						SeverityID:  c.Int64("severity"),
						PriorityID:  c.Int64("priority"),
						StatusID:    c.Int64("status"),
						CreatorID:   c.Int64("creator"),
						AssigneeID:  c.Int64("assignee"),
					}
					if c.Bool("unassigned") {
						filter.AssigneeID = collection.Unassigned
					}
					e.issues.SetFilter(filter)

					for _, issue := range e.issues.Visible() {
						assignee := "-"
						if issue.AssigneeID != nil {
							assignee = strconv.FormatInt(*issue.AssigneeID, 10)
						}
						fmt.Printf("#%-5d %-40s %-12s %-12s assignee:%s\n",
							issue.ID, truncate(issue.Subject, 40), issue.Status.Name, issue.Priority.Name, assignee)
					}
					return nil
				},
			},
			{
				Name:  "create",
				Usage: "Create an issue.",
				Flags: issueInputFlags(),
				Action: func(c *cli.Context) error {
					e, err := setup(c)
					if err != nil {
						return err
					}
					defer e.cleanup()

					in, err := issueInputFromFlags(c)
					if err != nil {
						return err
					}
					issue, err := e.issues.CreateIssue(c.Context, in)
					if err != nil {
						return err
					}
					log.Printf("Created issue #%d: %s", issue.ID, issue.Subject)
					return nil
				},
			},
			{
				Name:      "update",
				Usage:     "Update an issue.",
				ArgsUsage: "<issue-id>",
				Flags:     issueInputFlags(),
				Action: func(c *cli.Context) error {
					id, err := argInt64(c, 0, "issue-id")
					if err != nil {
						return err
					}
					e, err := setup(c)
					if err != nil {
						return err
					}
					defer e.cleanup()

					in, err := issueInputFromFlags(c)
					if err != nil {
						return err
					}
					issue, err := e.issues.UpdateIssue(c.Context, id, in)
					if err != nil {
						return err
					}
					log.Printf("Updated issue #%d", issue.ID)
					return nil
				},
			},
			{
				Name:      "delete",
				Usage:     "Delete an issue.",
				ArgsUsage: "<issue-id>",
				Action: func(c *cli.Context) error {
					id, err := argInt64(c, 0, "issue-id")
					if err != nil {
						return err
					}
					e, err := setup(c)
					if err != nil {
						return err
					}
					defer e.cleanup()

					if err := e.issues.DeleteIssue(c.Context, id); err != nil {
						return err
					}
					log.Printf("Deleted issue #%d", id)
					return nil
				},
			},
			{
				Name:      "bulk",
				Usage:     "Create one issue per subject argument.",
				ArgsUsage: "<subject> [<subject> ...]",
				Action: func(c *cli.Context) error {
					subjects := c.Args().Slice()
					if len(subjects) == 0 {
						return fmt.Errorf("at least one subject is required")
					}
					e, err := setup(c)
					if err != nil {
						return err
					}
					defer e.cleanup()

					ids, err := e.issues.CreateIssuesBulk(c.Context, subjects)
					if err != nil {
						return err
					}
					log.Printf("Created %d issues: %v", len(ids), ids)
					return nil
				},
			},
		},
	}
}

func commentsCommand() *cli.Command {
	return &cli.Command{
		Name:  "comments",
		Usage: "List and add comments on an issue.",
		Subcommands: []*cli.Command{
			{
				Name:      "list",
				ArgsUsage: "<issue-id>",
				Action: func(c *cli.Context) error {
					issueID, err := argInt64(c, 0, "issue-id")
					if err != nil {
						return err
					}
					e, err := setup(c)
					if err != nil {
						return err
					}
					defer e.cleanup()

					comments, err := e.client.ListComments(c.Context, issueID)
					if err != nil {
						return err
					}
					for _, comment := range comments {
						fmt.Printf("[%d] %s (%s): %s\n", comment.ID, comment.User.Email, comment.CreatedAt.Format("2006-01-02 15:04"), comment.Content)
					}
					return nil
				},
			},
			{
				Name:      "add",
				ArgsUsage: "<issue-id> <content>",
				Action: func(c *cli.Context) error {
					issueID, err := argInt64(c, 0, "issue-id")
					if err != nil {
						return err
					}
					content := c.Args().Get(1)
					if content == "" {
						return fmt.Errorf("comment content is required")
					}
					e, err := setup(c)
					if err != nil {
						return err
					}
					defer e.cleanup()

					user, err := requireUser(e)
					if err != nil {
						return err
					}
					comment, err := e.issues.AddComment(c.Context, issueID, models.CommentInput{Content: content, UserID: user.ID})
					if err != nil {
						return err
					}
					log.Printf("Added comment %d to issue #%d", comment.ID, issueID)
					return nil
				},
			},
			{
				Name:      "edit",
				ArgsUsage: "<issue-id> <comment-id> <content>",
				Action: func(c *cli.Context) error {
					issueID, err := argInt64(c, 0, "issue-id")
					if err != nil {
						return err
					}
					commentID, err := argInt64(c, 1, "comment-id")
					if err != nil {
						return err
					}
					content := c.Args().Get(2)
					if content == "" {
						return fmt.Errorf("comment content is required")
					}
					e, err := setup(c)
					if err != nil {
						return err
					}
					defer e.cleanup()

					if _, err := e.issues.UpdateComment(c.Context, issueID, commentID, models.CommentInput{Content: content}); err != nil {
						return err
					}
					log.Printf("Updated comment %d on issue #%d", commentID, issueID)
					return nil
				},
			},
			{
				Name:      "rm",
				ArgsUsage: "<issue-id> <comment-id>",
				Action: func(c *cli.Context) error {
					issueID, err := argInt64(c, 0, "issue-id")
					if err != nil {
						return err
					}
					commentID, err := argInt64(c, 1, "comment-id")
					if err != nil {
						return err
					}
					e, err := setup(c)
					if err != nil {
						return err
					}
					defer e.cleanup()
					return e.issues.DeleteComment(c.Context, issueID, commentID)
				},
			},
		},
	}
}

func attachmentsCommand() *cli.Command {
	return &cli.Command{
		Name:  "attachments",
		Usage: "List, upload and remove issue attachments.",
		Subcommands: []*cli.Command{
			{
				Name:      "list",
				ArgsUsage: "<issue-id>",
				Action: func(c *cli.Context) error {
					issueID, err := argInt64(c, 0, "issue-id")
					if err != nil {
						return err
					}
					e, err := setup(c)
					if err != nil {
						return err
					}
					defer e.cleanup()

					attachments, err := e.client.ListAttachments(c.Context, issueID)
					if err != nil {
						return err
					}
					for _, a := range attachments {
						fmt.Printf("[%d] %s (%s) %s\n", a.ID, a.Filename, a.ContentType, a.URL)
					}
					return nil
				},
			},
			{
				Name:      "add",
				ArgsUsage: "<issue-id> <file>",
				Action: func(c *cli.Context) error {
					issueID, err := argInt64(c, 0, "issue-id")
					if err != nil {
						return err
					}
					path := c.Args().Get(1)
					if path == "" {
						return fmt.Errorf("file path is required")
					}
					f, err := os.Open(path)
					if err != nil {
						return fmt.Errorf("failed to open %s: %w", path, err)
					}
					defer f.Close()

					e, err := setup(c)
					if err != nil {
						return err
					}
					defer e.cleanup()

					filename := filepath.Base(path)
					contentType := mime.TypeByExtension(filepath.Ext(path))
					attachment, err := e.issues.AddAttachment(c.Context, issueID, filename, contentType, f)
					if err != nil {
						return err
					}
					log.Printf("Uploaded %s as attachment %d", filename, attachment.ID)
					return nil
				},
			},
			{
				Name:      "rm",
				ArgsUsage: "<issue-id> <attachment-id>",
				Action: func(c *cli.Context) error {
					issueID, err := argInt64(c, 0, "issue-id")
					if err != nil {
						return err
					}
					attachmentID, err := argInt64(c, 1, "attachment-id")
					if err != nil {
						return err
					}
					e, err := setup(c)
					if err != nil {
						return err
					}
					defer e.cleanup()
					return e.issues.DeleteAttachment(c.Context, issueID, attachmentID)
				},
			},
		},
	}
}

func refCommand() *cli.Command {
	kindFlag := &cli.StringFlag{
		Name:     "kind",
		Required: true,
		Usage:    "Taxonomy: issue_types, severities, priorities or statuses.",
	}
	return &cli.Command{
		Name:  "ref",
		Usage: "Manage the reference taxonomies (types, severities, priorities, statuses).",
		Subcommands: []*cli.Command{
			{
				Name:  "list",
				Flags: []cli.Flag{kindFlag},
				Action: func(c *cli.Context) error {
					kind, err := refKind(c)
					if err != nil {
						return err
					}
					e, err := setup(c)
					if err != nil {
						return err
					}
					defer e.cleanup()

					entities, err := e.client.Ref(kind).List(c.Context)
					if err != nil {
						return err
					}
					for _, entity := range entities {
						closed := ""
						if kind == api.Statuses && entity.IsClosed {
							closed = " (closed)"
						}
						fmt.Printf("[%d] %s pos=%d color=%s%s\n", entity.ID, entity.Name, entity.Position, entity.Color, closed)
					}
					return nil
				},
			},
			{
				Name:      "create",
				ArgsUsage: "<name>",
				Flags: []cli.Flag{
					kindFlag,
					&cli.StringFlag{Name: "color"},
					&cli.IntFlag{Name: "position"},
					&cli.BoolFlag{Name: "closed", Usage: "Mark a status as closed."},
				},
				Action: func(c *cli.Context) error {
					kind, err := refKind(c)
					if err != nil {
						return err
					}
					name := c.Args().Get(0)
					if name == "" {
						return fmt.Errorf("name is required")
					}
					e, err := setup(c)
					if err != nil {
						return err
					}
					defer e.cleanup()

					in := models.RefEntityInput{Name: name, Color: c.String("color"), Position: c.Int("position")}
					if c.IsSet("closed") {
						closed := c.Bool("closed")
						in.IsClosed = &closed
					}
					entity, err := e.issues.CreateRefEntity(c.Context, kind, in)
					if err != nil {
						return err
					}
					log.Printf("Created %s %d (%s)", kind, entity.ID, entity.Name)
					return nil
				},
			},
			{
				Name:      "update",
				ArgsUsage: "<id> <name>",
				Flags: []cli.Flag{
					kindFlag,
					&cli.StringFlag{Name: "color"},
					&cli.IntFlag{Name: "position"},
				},
				Action: func(c *cli.Context) error {
					kind, err := refKind(c)
					if err != nil {
						return err
					}
					id, err := argInt64(c, 0, "id")
					if err != nil {
						return err
					}
					e, err := setup(c)
					if err != nil {
						return err
					}
					defer e.cleanup()

					in := models.RefEntityInput{Name: c.Args().Get(1), Color: c.String("color"), Position: c.Int("position")}
					if _, err := e.issues.UpdateRefEntity(c.Context, kind, id, in); err != nil {
						return err
					}
					log.Printf("Updated %s %d", kind, id)
					return nil
				},
			},
			{
				Name:      "delete",
				ArgsUsage: "<id>",
				Flags: []cli.Flag{
					kindFlag,
					&cli.Int64Flag{Name: "replace-with", Usage: "Entity id to reassign affected issues to."},
				},
				Action: func(c *cli.Context) error {
					kind, err := refKind(c)
					if err != nil {
						return err
					}
					id, err := argInt64(c, 0, "id")
					if err != nil {
						return err
					}
					e, err := setup(c)
					if err != nil {
						return err
					}
					defer e.cleanup()

					// Load the current taxonomy so the replacement
					// contract can be checked before the delete.
					if err := e.issues.Refresh(c.Context); err != nil {
						return err
					}
					if err := e.issues.DeleteRefEntity(c.Context, kind, id, c.Int64("replace-with")); err != nil {
						return err
					}
					log.Printf("Deleted %s %d", kind, id)
					return nil
				},
			},
		},
	}
}

func usersCommand() *cli.Command {
	return &cli.Command{
		Name:  "users",
		Usage: "List users and edit profiles.",
		Subcommands: []*cli.Command{
			{
				Name: "list",
				Action: func(c *cli.Context) error {
					e, err := setup(c)
					if err != nil {
						return err
					}
					defer e.cleanup()

					users, err := e.client.ListUsers(c.Context)
					if err != nil {
						return err
					}
					for _, user := range users {
						fmt.Printf("[%d] %s <%s> issues=%d assigned=%d watched=%d comments=%d\n",
							user.ID, user.Name, user.Email,
							user.Stats.IssuesCount, user.Stats.AssignedIssuesCount,
							user.Stats.WatchedIssuesCount, user.Stats.CommentsCount)
					}
					return nil
				},
			},
			{
				Name:      "bio",
				ArgsUsage: "<user-id> <bio>",
				Action: func(c *cli.Context) error {
					id, err := argInt64(c, 0, "user-id")
					if err != nil {
						return err
					}
					e, err := setup(c)
					if err != nil {
						return err
					}
					defer e.cleanup()

					if _, err := e.client.UpdateUserBio(c.Context, id, c.Args().Get(1)); err != nil {
						return err
					}
					log.Printf("Updated bio for user %d", id)
					return nil
				},
			},
			{
				Name:      "avatar",
				ArgsUsage: "<user-id> <file>",
				Action: func(c *cli.Context) error {
					id, err := argInt64(c, 0, "user-id")
					if err != nil {
						return err
					}
					path := c.Args().Get(1)
					f, err := os.Open(path)
					if err != nil {
						return fmt.Errorf("failed to open %s: %w", path, err)
					}
					defer f.Close()

					e, err := setup(c)
					if err != nil {
						return err
					}
					defer e.cleanup()

					contentType := mime.TypeByExtension(filepath.Ext(path))
					if _, err := e.client.UpdateUserAvatar(c.Context, id, filepath.Base(path), contentType, f); err != nil {
						return err
					}
					log.Printf("Updated avatar for user %d", id)
					return nil
				},
			},
		},
	}
}

func sessionCommand() *cli.Command {
	return &cli.Command{
		Name:  "session",
		Usage: "Manage the locally selected user.",
		Subcommands: []*cli.Command{
			{
				Name:      "use",
				ArgsUsage: "<user-id>",
				Action: func(c *cli.Context) error {
					id, err := argInt64(c, 0, "user-id")
					if err != nil {
						return err
					}
					e, err := setup(c)
					if err != nil {
						return err
					}
					defer e.cleanup()

					user, err := e.client.GetUser(c.Context, id)
					if err != nil {
						return err
					}
					if err := e.issues.SelectUser(user); err != nil {
						return err
					}
					log.Printf("Selected user %d (%s)", user.ID, user.Email)
					return nil
				},
			},
			{
				Name: "show",
				Action: func(c *cli.Context) error {
					e, err := setup(c)
					if err != nil {
						return err
					}
					defer e.cleanup()

					user, err := e.issues.CurrentUser()
					if err != nil {
						return err
					}
					if user == nil {
						fmt.Println("No user selected.")
						return nil
					}
					fmt.Printf("[%d] %s <%s>\n", user.ID, user.Name, user.Email)
					return nil
				},
			},
			{
				Name: "clear",
				Action: func(c *cli.Context) error {
					e, err := setup(c)
					if err != nil {
						return err
					}
					defer e.cleanup()
					return e.issues.ClearUser()
				},
			},
		},
	}
}

func issueInputFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "subject"},
		&cli.StringFlag{Name: "content"},
		&cli.Int64Flag{Name: "type"},
		&cli.Int64Flag{Name: "severity"},
		&cli.Int64Flag{Name: "priority"},
		&cli.Int64Flag{Name: "status"},
		&cli.Int64Flag{Name: "assignee"},
		&cli.Int64Flag{Name: "creator"},
		&cli.StringFlag{Name: "deadline", Usage: "Deadline as RFC 3339 or YYYY-MM-DD."},
		&cli.StringFlag{Name: "watchers", Usage: "Comma-separated watcher user ids."},
	}
}

func issueInputFromFlags(c *cli.Context) (models.IssueInput, error) {
	in := models.IssueInput{
		Subject:     c.String("subject"),
		Content:     c.String("content"),
		IssueTypeID: c.Int64("type"),
		SeverityID:  c.Int64("severity"),
		PriorityID:  c.Int64("priority"),
		StatusID:    c.Int64("status"),
		AssigneeID:  c.Int64("assignee"),
		UserID:      c.Int64("creator"),
	}
	if raw := c.String("deadline"); raw != "" {
		deadline, err := parseDeadline(raw)
		if err != nil {
			return models.IssueInput{}, err
		}
		in.Deadline = deadline
	}
	if watchers := c.String("watchers"); watchers != "" {
		for _, field := range strings.Split(watchers, ",") {
			if id, err := strconv.ParseInt(strings.TrimSpace(field), 10, 64); err == nil {
				in.WatcherIDs = append(in.WatcherIDs, id)
			}
		}
	}
	return in, nil
}

func parseDeadline(raw string) (*time.Time, error) {
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if deadline, err := time.Parse(layout, raw); err == nil {
			return &deadline, nil
		}
	}
	return nil, fmt.Errorf("invalid deadline %q, expected RFC 3339 or YYYY-MM-DD", raw)
}

func refKind(c *cli.Context) (api.RefKind, error) {
	kind := api.RefKind(c.String("kind"))
	if !kind.Valid() {
		return "", fmt.Errorf("unknown kind %q, expected one of %v", kind, api.RefKinds())
	}
	return kind, nil
}

func argInt64(c *cli.Context, index int, name string) (int64, error) {
	raw := c.Args().Get(index)
	if raw == "" {
		return 0, fmt.Errorf("%s argument is required", name)
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q", name, raw)
	}
	return id, nil
}

func requireUser(e *env) (*models.UserDetail, error) {
	user, err := e.issues.CurrentUser()
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, fmt.Errorf("no user selected; run 'tracker session use <user-id>' first")
	}
	return user, nil
}

func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max-3]) + "..."
}
