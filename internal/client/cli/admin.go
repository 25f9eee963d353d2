package cli

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/pd15/saocontacts/internal/server/services"
)

const timeLayout = "2006-01-02 15:04"

func (a *App) Users(ctx context.Context) error {
	list, err := a.core.Gate.List(ctx, a.current())
	if err != nil {
		return a.fail(err)
	}

	tw := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "USERNAME\tEMAIL\tVERIFIED\tADMIN\tCREATED\tLAST LOGIN")
	for _, u := range list {
		last := "never"
		if u.LastLogin != nil {
			last = u.LastLogin.Local().Format(timeLayout)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			u.Username, u.Email, yesNo(u.IsVerified), yesNo(u.IsAdmin),
			u.CreatedAt.Local().Format(timeLayout), last)
	}
	return tw.Flush()
}

func (a *App) Stats(ctx context.Context) error {
	st, err := a.core.Gate.Stats(ctx, a.current())
	if err != nil {
		return a.fail(err)
	}

	fmt.Fprintf(a.out, "Total users:       %d\n", st.Total)
	fmt.Fprintf(a.out, "Verified users:    %d\n", st.Verified)
	fmt.Fprintf(a.out, "Admins:            %d\n", st.Admins)
	fmt.Fprintf(a.out, "Active (7 days):   %d\n", st.ActiveRecent)
	return nil
}

func (a *App) Promote(ctx context.Context, email string) error {
	if err := a.core.Gate.Promote(ctx, a.current(), email); err != nil {
		return a.fail(err)
	}
	a.sessions.SetAdmin(email, true)
	a.println(services.PromotedMessage(email))
	return nil
}

func (a *App) Demote(ctx context.Context, email string) error {
	if err := a.core.Gate.Demote(ctx, a.current(), email); err != nil {
		return a.fail(err)
	}
	a.sessions.SetAdmin(email, false)
	a.println(services.DemotedMessage(email))
	return nil
}

func (a *App) Delete(ctx context.Context, email string) error {
	if err := a.core.Gate.Delete(ctx, a.current(), email); err != nil {
		return a.fail(err)
	}
	a.sessions.EndAccount(email)
	a.println(services.DeletedMessage(email))
	return nil
}

// Bootstrap seeds the first admin of an empty directory.
func (a *App) Bootstrap(ctx context.Context, email string) error {
	if err := a.core.Gate.Bootstrap(ctx, email); err != nil {
		return a.fail(err)
	}
	a.sessions.SetAdmin(email, true)
	a.println(services.PromotedMessage(email))
	return nil
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
