package main

import (
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"syscall"

	"golang.org/x/term"

	"github.com/trezcool/alama/core/billing"
	"github.com/trezcool/alama/core/school"
)

var (
	readPasswordFunc = term.ReadPassword // mockable

	errHelp = errors.New("help provided")
)

type commandLine struct {
	db         *sql.DB
	schoolSvc  *school.Service
	billingSvc *billing.Service
	out        io.Writer
}

func (cli *commandLine) printUsage() {
	cli.println("Usage:")
	cli.println("  migrate COMMAND [ARGS] - run a goose command (up, down, status, ...) against the database")
	cli.println("  addadmin -branch ID -username USERNAME - create an administrator, the password will be prompted")
	cli.println("  resetpassword -username USERNAME - reset user's password")
	cli.println("  evaluatebilling -branch ID [-month YYYY-MM] - deactivate the students who did not pay the month")
	cli.println("  period -mode school|calendar [-month YYYY-MM] - print the window of a month")
}

func (cli *commandLine) writer() io.Writer {
	if cli.out == nil {
		return os.Stdout
	}
	return cli.out
}

func (cli *commandLine) println(a ...interface{}) {
	_, _ = fmt.Fprintln(cli.writer(), a...)
}

func (cli *commandLine) printf(format string, a ...interface{}) {
	_, _ = fmt.Fprintf(cli.writer(), format, a...)
}

// readPassword prompts for a password. An empty password is a usage error.
func (cli *commandLine) readPassword(fs *flag.FlagSet) (string, error) {
	cli.printf("Enter password:")
	pwd, err := readPasswordFunc(int(syscall.Stdin))
	cli.println()
	if err != nil {
		return "", err
	}
	if len(pwd) == 0 {
		fs.Usage()
		return "", errHelp
	}
	return string(pwd), nil
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	addAdminCmd := flag.NewFlagSet("addadmin", flag.ExitOnError)
	addAdminBranch := addAdminCmd.String("branch", "", "The branch the administrator manages.")
	addAdminUname := addAdminCmd.String("username", "", "The administrator's username. The password will be prompted next.")

	resetPasswordCmd := flag.NewFlagSet("resetpassword", flag.ExitOnError)
	resetPasswordUname := resetPasswordCmd.String("username", "", "The user's username. The password will be prompted next.")

	evaluateCmd := flag.NewFlagSet("evaluatebilling", flag.ExitOnError)
	evaluateBranch := evaluateCmd.String("branch", "", "The branch to evaluate.")
	evaluateMonth := evaluateCmd.String("month", "", "The month to evaluate, YYYY-MM. Defaults to the current month.")

	periodCmd := flag.NewFlagSet("period", flag.ExitOnError)
	periodMode := periodCmd.String("mode", "school", "The month mode: school or calendar.")
	periodMonth := periodCmd.String("month", "", "The month, YYYY-MM. Defaults to the current month.")

	switch args[1] {
	case "migrate":
		if len(args) < 3 {
			cli.printUsage()
			return errHelp
		}
		return cli.migrate(args[2:])

	case "addadmin":
		if err := addAdminCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *addAdminBranch == "" || *addAdminUname == "" {
			addAdminCmd.Usage()
			return errHelp
		}
		pwd, err := cli.readPassword(addAdminCmd)
		if err != nil {
			return err
		}
		return cli.addAdmin(*addAdminBranch, *addAdminUname, pwd)

	case "resetpassword":
		if err := resetPasswordCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *resetPasswordUname == "" {
			resetPasswordCmd.Usage()
			return errHelp
		}
		pwd, err := cli.readPassword(resetPasswordCmd)
		if err != nil {
			return err
		}
		return cli.resetPassword(*resetPasswordUname, pwd)

	case "evaluatebilling":
		if err := evaluateCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *evaluateBranch == "" {
			evaluateCmd.Usage()
			return errHelp
		}
		return cli.evaluateBilling(*evaluateBranch, *evaluateMonth)

	case "period":
		if err := periodCmd.Parse(args[2:]); err != nil {
			return err
		}
		return cli.period(*periodMode, *periodMonth)

	default:
		cli.printUsage()
		return errHelp
	}
}
