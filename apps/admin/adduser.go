package main

import (
	"context"
	"fmt"

	"github.com/teamfeed/teamfeed/core/account"
)

// addUser updates or creates an active account.Account; admins get all the roles.
func (cli *commandLine) addUser(name, email, pwd string, isAdmin bool) error {
	var roles []string
	if isAdmin {
		roles = account.AllRoles
	}
	acc, err := cli.accSvc.UpdateOrCreate(context.Background(), name, email, pwd, roles...)
	if err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "account %s (%s) saved\n", acc.Email, acc.ID)
	return nil
}
