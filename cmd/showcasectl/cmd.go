package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"
	"golang.org/x/term"

	"github.com/csi-showcase/showcase/internal/infra/httpclient"
	"github.com/csi-showcase/showcase/internal/modules/model"
	"github.com/csi-showcase/showcase/internal/modules/service"
)

var (
	readPasswordFunc = term.ReadPassword // mockable

	errHelp = errors.New("help provided")
)

const defaultServer = "http://localhost:8080/api/v1"

type apiClient interface {
	Login(ctx context.Context, username, password string) (*service.LoginOutput, error)
	AdminListProjects(ctx context.Context, q httpclient.ProjectQuery) (*service.ListProjectsOutput, error)
	ReviewProject(ctx context.Context, id uuid.UUID, status model.ProjectStatus, comment string) (*model.ProjectReview, error)
}

type commandLine struct {
	out       io.Writer
	users     func() (service.UserService, error)
	newClient func(server, secret string) apiClient
}

func (cli *commandLine) printUsage() {
	fmt.Fprintln(cli.out, "Usage:")
	fmt.Fprintln(cli.out, "  adduser -username NAME -email EMAIL [-fullname NAME] [-role student|admin] - create an account, the password is prompted")
	fmt.Fprintln(cli.out, "  pending -login USER [-server URL] [-secret KEY]                         - list projects waiting for review")
	fmt.Fprintln(cli.out, "  review -login USER -project ID -decision approved|rejected [-comment TEXT] [-server URL] [-secret KEY]")
}

func promptPassword(out io.Writer) (string, error) {
	fmt.Fprint(out, "Enter password:")
	pwd, err := readPasswordFunc(int(syscall.Stdin))
	fmt.Fprintln(out)
	if err != nil {
		return "", err
	}
	if len(pwd) == 0 {
		return "", errHelp
	}
	return string(pwd), nil
}

type remoteFlags struct {
	server *string
	secret *string
	login  *string
}

func addRemoteFlags(fs *flag.FlagSet) remoteFlags {
	return remoteFlags{
		server: fs.String("server", defaultServer, "API base URL"),
		secret: fs.String("secret", os.Getenv("SHOWCASE_ADMIN_SECRET"), "admin secret key (default $SHOWCASE_ADMIN_SECRET)"),
		login:  fs.String("login", "", "admin username or e-mail; the password is prompted next"),
	}
}

// connect logs in as an administrator.
func (cli *commandLine) connect(ctx context.Context, f remoteFlags) (apiClient, error) {
	pwd, err := promptPassword(cli.out)
	if err != nil {
		return nil, err
	}
	c := cli.newClient(*f.server, *f.secret)
	out, err := c.Login(ctx, *f.login, pwd)
	if err != nil {
		return nil, err
	}
	if out.User == nil || !out.User.IsAdmin() {
		return nil, fmt.Errorf("%s is not an administrator", *f.login)
	}
	return c, nil
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	switch args[1] {
	case "adduser":
		fs := flag.NewFlagSet("adduser", flag.ContinueOnError)
		fs.SetOutput(cli.out)
		username := fs.String("username", "", "login name")
		email := fs.String("email", "", "e-mail address")
		fullName := fs.String("fullname", "", "display name")
		role := fs.String("role", string(model.RoleStudent), "student or admin")
		if err := fs.Parse(args[2:]); err != nil {
			return errHelp
		}
		if *username == "" || *email == "" || !model.Role(*role).Valid() {
			fs.Usage()
			return errHelp
		}
		pwd, err := promptPassword(cli.out)
		if err != nil {
			return err
		}
		return cli.addUser(ctx, service.CreateUserInput{
			Username: *username,
			Email:    *email,
			FullName: *fullName,
			Role:     model.Role(*role),
			Password: pwd,
		})

	case "pending":
		fs := flag.NewFlagSet("pending", flag.ContinueOnError)
		fs.SetOutput(cli.out)
		rf := addRemoteFlags(fs)
		if err := fs.Parse(args[2:]); err != nil {
			return errHelp
		}
		if *rf.login == "" {
			fs.Usage()
			return errHelp
		}
		c, err := cli.connect(ctx, rf)
		if err != nil {
			return err
		}
		return cli.listPending(ctx, c)

	case "review":
		fs := flag.NewFlagSet("review", flag.ContinueOnError)
		fs.SetOutput(cli.out)
		rf := addRemoteFlags(fs)
		project := fs.String("project", "", "project id")
		decision := fs.String("decision", "", "approved or rejected")
		comment := fs.String("comment", "", "review comment, required when rejecting")
		if err := fs.Parse(args[2:]); err != nil {
			return errHelp
		}
		id, err := uuid.Parse(*project)
		status := model.ProjectStatus(*decision)
		if *rf.login == "" || err != nil || (status != model.StatusApproved && status != model.StatusRejected) {
			fs.Usage()
			return errHelp
		}
		if status == model.StatusRejected && *comment == "" {
			return httpclient.ErrRejectReasonRequired
		}
		c, err := cli.connect(ctx, rf)
		if err != nil {
			return err
		}
		rv, err := c.ReviewProject(ctx, id, status, *comment)
		if err != nil {
			return err
		}
		fmt.Fprintf(cli.out, "project %s %s\n", rv.ProjectID, rv.Status)
		return nil

	default:
		cli.printUsage()
		return errHelp
	}
}

func (cli *commandLine) addUser(ctx context.Context, in service.CreateUserInput) error {
	svc, err := cli.users()
	if err != nil {
		return err
	}
	u, err := svc.Create(ctx, in)
	if err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "user %s created: %s (%s)\n", u.Username, u.ID, u.Role)
	return nil
}

func (cli *commandLine) listPending(ctx context.Context, c apiClient) error {
	tw := tabwriter.NewWriter(cli.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTYPE\tYEAR\tTITLE\tSUBMITTED")
	cursor := ""
	for {
		page, err := c.AdminListProjects(ctx, httpclient.ProjectQuery{Status: model.StatusPending, Limit: 100, Cursor: cursor})
		if err != nil {
			return err
		}
		for _, p := range page.Items {
			fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\n", p.ID, p.Type, p.Year, p.Title, p.CreatedAt.Format(time.DateOnly))
		}
		if !page.HasMore || page.NextCursor == "" {
			break
		}
		cursor = page.NextCursor
	}
	return tw.Flush()
}
