package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"salon-booking-backend/config"
	"salon-booking-backend/logger"
	"salon-booking-backend/repository"
	"salon-booking-backend/services"
	"salon-booking-backend/utils"

	"github.com/urfave/cli/v2"
)

type handler struct {
	store repository.Store
	admin *services.AdminService
	auth  *services.AuthService
}

func newHandler(ctx context.Context) (*handler, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	log := logger.NewLogger(cfg.LogLevel)

	store, err := config.OpenStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if err := store.Migrate(ctx); err != nil {
		_ = store.Close(ctx)
		return nil, err
	}

	return &handler{
		store: store,
		admin: services.NewAdminService(store.Bookings(), cfg.Location, log),
		auth:  services.NewAuthService(store.Admins(), utils.NewTokenIssuer(cfg.JWTSecret, 0), log),
	}, nil
}

func (h *handler) Close() {
	_ = h.store.Close(context.Background())
}

// withHandler opens the store for the duration of one command.
func withHandler(fn func(c *cli.Context, h *handler) error) cli.ActionFunc {
	return func(c *cli.Context) error {
		h, err := newHandler(c.Context)
		if err != nil {
			return err
		}
		defer h.Close()
		return fn(c, h)
	}
}

func main() {
	app := &cli.App{
		Name:  "salon-admin",
		Usage: "Inspect and maintain salon bookings",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "list bookings sorted by date and time",
				Action: withHandler(func(c *cli.Context, h *handler) error {
					bookings, err := h.admin.ListSorted(c.Context)
					if err != nil {
						return err
					}

					w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
					fmt.Fprintln(w, "DATE\tTIME\tCLIENT\tSTYLE\tSTATUS\tPAYMENT\tPRICE")
					for _, b := range bookings {
						fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%.2f\n",
							b.Date, b.Time, b.ClientName, b.Style, b.Status, b.PaymentStatus, b.Price)
					}
					return w.Flush()
				}),
			},
			{
				Name:  "summary",
				Usage: "estimated hours and revenue per day",
				Action: withHandler(func(c *cli.Context, h *handler) error {
					rows, err := h.admin.DailySummary(c.Context)
					if err != nil {
						return err
					}

					w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
					fmt.Fprintln(w, "DATE\tBOOKINGS\tHOURS\tREVENUE")
					for _, r := range rows {
						fmt.Fprintf(w, "%s\t%d\t%.1f\t%.2f\n", r.Date, r.Bookings, r.EstimatedHours, r.Revenue)
					}
					return w.Flush()
				}),
			},
			{
				Name:  "fix-formats",
				Usage: "normalize booking dates to YYYY-MM-DD and times to HH:mm",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "dry-run", Usage: "print the fixes without writing them"},
				},
				Action: withHandler(func(c *cli.Context, h *handler) error {
					result, err := h.admin.NormalizeFormats(c.Context, c.Bool("dry-run"))
					if err != nil {
						return err
					}

					for _, fix := range result.Fixes {
						fmt.Printf("%s\t%s %s\n", fix.BookingID, fix.Date, fix.Time)
					}
					for _, id := range result.Invalid {
						fmt.Printf("%s\tunparseable date or time, skipped\n", id)
					}
					if result.DryRun {
						fmt.Printf("%d bookings would be updated\n", len(result.Fixes))
						return nil
					}
					fmt.Printf("%d bookings updated\n", result.Updated)
					return nil
				}),
			},
			{
				Name:  "make-admin",
				Usage: "create an admin account or promote an existing one",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "email", Required: true},
					&cli.StringFlag{Name: "name"},
					&cli.StringFlag{Name: "password", Usage: "required for new accounts", EnvVars: []string{"ADMIN_PASSWORD"}},
				},
				Action: withHandler(func(c *cli.Context, h *handler) error {
					user, created, err := h.auth.MakeAdmin(c.Context, c.String("email"), c.String("name"), c.String("password"))
					if err != nil {
						return err
					}
					if created {
						fmt.Printf("created admin %s (%s)\n", user.Email, user.ID)
					} else {
						fmt.Printf("%s is now an admin\n", user.Email)
					}
					return nil
				}),
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
