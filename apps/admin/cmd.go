package main

import (
	"database/sql"
	"flag"
	"fmt"
	"io"
	"os"
	"syscall"

	"github.com/pkg/errors"
	"golang.org/x/term"

	"github.com/teamfeed/teamfeed/core/account"
)

var (
	readPasswordFunc = term.ReadPassword // mockable

	errHelp = errors.New("help provided")
)

type commandLine struct {
	db     *sql.DB
	accSvc *account.Service
	out    io.Writer
}

func (cli *commandLine) printUsage() {
	fmt.Fprintln(cli.out, "Usage:")
	fmt.Fprintln(cli.out, "  migrate COMMAND [ARGS] - run a goose migration command (up, up-by-one, up-to, down, down-to, redo, reset, status, version, create, fix)")
	fmt.Fprintln(cli.out, "  adduser -email EMAIL [-name NAME] [-admin] - create an account or update its password")
	fmt.Fprintln(cli.out, "  resetpassword -email EMAIL - reset an account's password")
}

func (cli *commandLine) run(args []string) error {
	if cli.out == nil {
		cli.out = os.Stdout
	}
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	addUserCmd := flag.NewFlagSet("adduser", flag.ContinueOnError)
	addUserEmail := addUserCmd.String("email", "", "The account's email. The password will be prompted next.")
	addUserName := addUserCmd.String("name", "", "The account's name (defaults to the email).")
	addUserAdmin := addUserCmd.Bool("admin", false, "Give the account all the roles.")

	resetPasswordCmd := flag.NewFlagSet("resetpassword", flag.ContinueOnError)
	resetPasswordEmail := resetPasswordCmd.String("email", "", "The account's email. The password will be prompted next.")

	switch args[1] {
	case "migrate":
		if len(args) < 3 {
			cli.printUsage()
			return errHelp
		}
		return cli.migrate(args[2:])

	case "adduser":
		if err := addUserCmd.Parse(args[2:]); err != nil {
			return errHelp
		}
		if *addUserEmail == "" {
			addUserCmd.Usage()
			return errHelp
		}
		pwd, err := cli.promptPassword()
		if err != nil {
			return err
		}
		if pwd == "" {
			addUserCmd.Usage()
			return errHelp
		}
		name := *addUserName
		if name == "" {
			name = *addUserEmail
		}
		return cli.addUser(name, *addUserEmail, pwd, *addUserAdmin)

	case "resetpassword":
		if err := resetPasswordCmd.Parse(args[2:]); err != nil {
			return errHelp
		}
		if *resetPasswordEmail == "" {
			resetPasswordCmd.Usage()
			return errHelp
		}
		pwd, err := cli.promptPassword()
		if err != nil {
			return err
		}
		if pwd == "" {
			resetPasswordCmd.Usage()
			return errHelp
		}
		return cli.resetPassword(*resetPasswordEmail, pwd)

	default:
		cli.printUsage()
		return errHelp
	}
}

func (cli *commandLine) promptPassword() (string, error) {
	fmt.Fprint(cli.out, "Enter password:")
	pwd, err := readPasswordFunc(int(syscall.Stdin))
	fmt.Fprintln(cli.out)
	if err != nil {
		return "", errors.Wrap(err, "reading password")
	}
	return string(pwd), nil
}
