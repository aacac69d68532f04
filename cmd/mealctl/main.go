package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"text/tabwriter"

	"go.uber.org/zap"

	"github.com/nillzand/ehsan-meals/internal/app"
	"github.com/nillzand/ehsan-meals/internal/config"
	"github.com/nillzand/ehsan-meals/internal/domain"
	"github.com/nillzand/ehsan-meals/internal/observability"
	"github.com/nillzand/ehsan-meals/internal/ordering"
	"github.com/nillzand/ehsan-meals/internal/session"
	apperrors "github.com/nillzand/ehsan-meals/pkg/util"
)

const usage = `usage: mealctl <command> [flags]

commands:
  login     -u USER -p PASSWORD
  logout
  whoami
  schedules
  menu      -schedule ID -date YYYY-MM-DD
  order     -schedule ID -date YYYY-MM-DD -main ID [-side ID,ID]
  cancel    -id ORDER_ID
  orders
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("failed to start", zap.Error(err))
	}
	defer a.Close()

	if err := run(ctx, a, os.Args[1], os.Args[2:], os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, describe(err))
		a.Close()
		os.Exit(1)
	}
}

func run(ctx context.Context, a *app.App, cmd string, args []string, out io.Writer) error {
	switch cmd {
	case "login":
		return login(ctx, a, args, out)
	case "logout":
		a.Session.Logout(ctx)
		fmt.Fprintln(out, "logged out")
		return nil
	case "whoami":
		return whoami(ctx, a, out)
	case "schedules":
		return schedules(ctx, a, out)
	case "menu":
		return menu(ctx, a, args, out)
	case "order":
		return order(ctx, a, args, out)
	case "cancel":
		return cancel(ctx, a, args, out)
	case "orders":
		return orders(ctx, a, out)
	default:
		return fmt.Errorf("unknown command %q\n%s", cmd, usage)
	}
}

func login(ctx context.Context, a *app.App, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("login", flag.ContinueOnError)
	username := fs.String("u", "", "username")
	password := fs.String("p", os.Getenv("MEALCTL_PASSWORD"), "password")
	if err := fs.Parse(args); err != nil {
		return err
	}
	identity, err := a.Session.Login(ctx, session.Credentials{Username: *username, Password: *password})
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "logged in as %s (%s)\n", identity.Username, identity.Role)
	return nil
}

func whoami(ctx context.Context, a *app.App, out io.Writer) error {
	user, err := a.Ordering.Profile(ctx)
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "username\t%s\n", user.Username)
	fmt.Fprintf(w, "name\t%s %s\n", user.FirstName, user.LastName)
	fmt.Fprintf(w, "role\t%s\n", user.Role)
	if user.CompanyName != "" {
		fmt.Fprintf(w, "company\t%s\n", user.CompanyName)
	}
	fmt.Fprintf(w, "budget\t%s\n", user.Budget.StringFixed(2))
	return w.Flush()
}

func schedules(ctx context.Context, a *app.App, out io.Writer) error {
	list, err := a.Ordering.Schedules(ctx)
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tCOMPANY\tFROM\tTO")
	for _, s := range list {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n", s.ID, s.Name, s.CompanyName, s.StartDate, s.EndDate)
	}
	return w.Flush()
}

func menuFlags(name string) (*flag.FlagSet, *int64, *string) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	scheduleID := fs.Int64("schedule", 0, "schedule id")
	date := fs.String("date", "", "meal date, YYYY-MM-DD")
	return fs, scheduleID, date
}

func menu(ctx context.Context, a *app.App, args []string, out io.Writer) error {
	fs, scheduleID, rawDate := menuFlags("menu")
	if err := fs.Parse(args); err != nil {
		return err
	}
	date, err := domain.ParseDate(*rawDate)
	if err != nil {
		return err
	}

	view, err := a.Ordering.Menu(ctx, *scheduleID, date)
	if err != nil {
		return err
	}
	switch {
	case view.Menu == nil && view.CutoffPassed:
		fmt.Fprintf(out, "ordering for %s closed on %s\n", date, date.AddDays(-a.Ordering.Engine().LeadDays()))
		return nil
	case view.Menu == nil:
		fmt.Fprintf(out, "no menu for %s\n", date)
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "menu %d for %s\n", view.Menu.ID, date)
	fmt.Fprintln(w, "KIND\tID\tNAME\tPRICE")
	for _, item := range view.Menu.MainItems {
		fmt.Fprintf(w, "main\t%d\t%s\t%s\n", item.ID, item.Name, item.Price.StringFixed(2))
	}
	for _, item := range view.Menu.SideItems {
		fmt.Fprintf(w, "side\t%d\t%s\t%s\n", item.ID, item.Name, item.Price.StringFixed(2))
	}
	if err := w.Flush(); err != nil {
		return err
	}
	switch {
	case view.ViewOnly:
		fmt.Fprintln(out, "view only")
	case !view.OrderingOpen:
		fmt.Fprintln(out, "ordering closed")
	}
	return nil
}

func order(ctx context.Context, a *app.App, args []string, out io.Writer) error {
	fs, scheduleID, rawDate := menuFlags("order")
	mainID := fs.Int64("main", 0, "main item id")
	sides := fs.String("side", "", "comma separated side item ids")
	if err := fs.Parse(args); err != nil {
		return err
	}
	date, err := domain.ParseDate(*rawDate)
	if err != nil {
		return err
	}
	sideIDs, err := parseIDs(*sides)
	if err != nil {
		return err
	}

	view, err := a.Ordering.Menu(ctx, *scheduleID, date)
	if err != nil {
		return err
	}
	if view.Menu == nil {
		if view.CutoffPassed {
			return apperrors.NewLeadTimeViolation(a.Ordering.Engine().LeadDays())
		}
		return apperrors.NewNotFound("menu", map[string]any{"date": date.String()})
	}
	user, err := a.Ordering.Profile(ctx)
	if err != nil {
		return err
	}

	placed, err := a.Ordering.PlaceOrder(ctx, ordering.OrderRequest{
		Menu:      *view.Menu,
		Selection: domain.NewMenuSelection(*mainID, sideIDs...),
		Budget:    user.Budget,
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "order %d placed for %s, total %s\n", placed.ID, date, placed.Total.StringFixed(2))
	return nil
}

func cancel(ctx context.Context, a *app.App, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("cancel", flag.ContinueOnError)
	id := fs.Int64("id", 0, "order id")
	if err := fs.Parse(args); err != nil {
		return err
	}
	list, err := a.Ordering.Orders(ctx)
	if err != nil {
		return err
	}
	for _, o := range list {
		if o.ID == *id {
			if err := a.Ordering.CancelOrder(ctx, o); err != nil {
				return err
			}
			fmt.Fprintf(out, "order %d cancelled\n", o.ID)
			return nil
		}
	}
	return apperrors.NewNotFound("order", map[string]any{"id": *id})
}

func orders(ctx context.Context, a *app.App, out io.Writer) error {
	list, err := a.Ordering.Orders(ctx)
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tDATE\tMAIN\tSIDES\tTOTAL\tSTATUS\tCANCELLABLE")
	for _, o := range list {
		names := make([]string, 0, len(o.SideItems))
		for _, s := range o.SideItems {
			names = append(names, s.Name)
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\t%t\n",
			o.ID, o.Date, o.MainItem.Name, strings.Join(names, ", "), o.Total.StringFixed(2), o.Status, a.Ordering.Cancellable(o))
	}
	return w.Flush()
}

func parseIDs(raw string) ([]int64, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	parts := strings.Split(raw, ",")
	ids := make([]int64, 0, len(parts))
	for _, p := range parts {
		id, err := strconv.ParseInt(strings.TrimSpace(p), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid item id %q", p)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func describe(err error) string {
	switch {
	case errors.Is(err, apperrors.ErrSessionExpired):
		return "session expired, log in again"
	case errors.Is(err, apperrors.ErrNotAuthenticated):
		return "not logged in"
	}
	if de := apperrors.ToDomainError(err); de != nil && de.Code != "INTERNAL_ERROR" {
		return de.Message
	}
	return err.Error()
}
