package main

import (
	"context"
)

func (cli *commandLine) resetPassword(uname, pwd string) error {
	return cli.schoolSvc.ResetPassword(context.Background(), uname, pwd)
}

// addAdmin creates an administrator of the branch.
func (cli *commandLine) addAdmin(branchID, uname, pwd string) error {
	acc, err := cli.schoolSvc.AddAdmin(context.Background(), branchID, uname, pwd)
	if err != nil {
		return err
	}
	cli.printf("admin %q created\n", acc.Username)
	return nil
}
