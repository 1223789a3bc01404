// Package main is a command-line client for the booking API. It quotes
// stays locally, inspects availability and drives the owner workflow.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/ocean-haven/booking/internal/calendar"
	"github.com/ocean-haven/booking/internal/client"
	"github.com/ocean-haven/booking/internal/pricing"
)

const dayLayout = "2006-01-02"

const usage = `Usage: bookingctl [flags] <command> [args]

Commands:
  quote <check-in> <check-out>          price a stay with the server's rates
  availability [<check-in> <check-out>] list busy days, or check a stay
  login <email> <password>              print a bearer token
  register <email> <password> [name]    create an account and print a token
  book <check-in> <check-out> <name> <email> <guests>
  bookings [-mine]                      list bookings
  approve <id>                          confirm a pending booking
  reject <id>                           cancel a booking
  block <from> <to> [note]              close days (inclusive)
  unblock <from> <to>                   reopen days
  stats                                 owner dashboard counters
  watch <booking-id>                    stream chat messages

Flags:
`

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "bookingctl:", err)
		os.Exit(1)
	}
}

// run parses global flags and dispatches to a command.
func run(ctx context.Context, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("bookingctl", flag.ContinueOnError)
	fs.SetOutput(out)
	server := fs.String("server", envOr("BOOKING_SERVER", "http://localhost:3005"), "API base URL")
	token := fs.String("token", os.Getenv("BOOKING_TOKEN"), "Bearer token")
	offline := fs.Bool("offline", false, "Quote with the default rates without contacting the server")
	fs.Usage = func() {
		fmt.Fprint(out, usage)
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return errors.New("missing command")
	}

	c := client.New(client.Session{BaseURL: *server, Token: *token})
	cmd, rest := fs.Arg(0), fs.Args()[1:]

	switch cmd {
	case "quote":
		return quote(ctx, c, *offline, rest, out)
	case "availability":
		return availability(ctx, c, rest, out)
	case "login":
		return login(ctx, c, rest, out)
	case "register":
		return register(ctx, c, rest, out)
	case "book":
		return book(ctx, c, rest, out)
	case "bookings":
		return bookings(ctx, c, rest, out)
	case "approve", "reject":
		return decide(ctx, c, cmd, rest, out)
	case "block":
		return block(ctx, c, rest, out)
	case "unblock":
		return unblock(ctx, c, rest, out)
	case "stats":
		return stats(ctx, c, out)
	case "watch":
		return watch(ctx, c, rest, out)
	}
	fs.Usage()
	return fmt.Errorf("unknown command %q", cmd)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func parseDay(s string) (time.Time, error) {
	t, err := time.Parse(dayLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, want YYYY-MM-DD", s)
	}
	return t, nil
}

func parseRange(args []string) (time.Time, time.Time, error) {
	if len(args) < 2 {
		return time.Time{}, time.Time{}, errors.New("need two dates")
	}
	from, err := parseDay(args[0])
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	to, err := parseDay(args[1])
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	return from, to, nil
}

func formatMoney(v int64) string {
	return fmt.Sprintf("R$ %d", v)
}

func quote(ctx context.Context, c *client.Client, offline bool, args []string, out io.Writer) error {
	in, outDay, err := parseRange(args)
	if err != nil {
		return err
	}

	calc := pricing.Default()
	if !offline {
		settings, err := c.Pricing(ctx)
		if err != nil {
			return fmt.Errorf("loading rates: %w", err)
		}
		calc = settings.Calculator()
	}

	res := calc.Compute(in, outDay)
	if res.Nights == 0 {
		return errors.New("check-out must be after check-in")
	}

	fmt.Fprintf(out, "Nights:   %d (%d weekday, %d weekend)\n", res.Nights, res.WeekdayNights, res.WeekendNights)
	fmt.Fprintf(out, "Subtotal: %s\n", formatMoney(res.Subtotal))
	if res.DiscountPercent > 0 {
		fmt.Fprintf(out, "Discount: %.0f%% (-%.2f)\n", res.DiscountPercent*100, res.DiscountAmount)
	}
	fmt.Fprintf(out, "Total:    %s\n", formatMoney(res.Total))
	return nil
}

func availability(ctx context.Context, c *client.Client, args []string, out io.Writer) error {
	events, err := c.MergedCalendar(ctx)
	if err != nil {
		return err
	}

	if len(args) >= 2 {
		in, outDay, err := parseRange(args)
		if err != nil {
			return err
		}
		if calendar.IsAvailable(events, in, outDay) {
			fmt.Fprintln(out, "available")
			return nil
		}
		fmt.Fprintln(out, "unavailable")
		return nil
	}

	byDay := calendar.SourcesByDay(events)
	days := make([]string, 0, len(byDay))
	for day := range byDay {
		days = append(days, day)
	}
	sort.Strings(days)

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	for _, day := range days {
		fmt.Fprintf(w, "%s\t%s\n", day, strings.Join(byDay[day], ", "))
	}
	return w.Flush()
}

func login(ctx context.Context, c *client.Client, args []string, out io.Writer) error {
	if len(args) < 2 {
		return errors.New("usage: login <email> <password>")
	}
	session, err := c.Login(ctx, args[0], args[1])
	if err != nil {
		return err
	}
	fmt.Fprintln(out, session.Token)
	return nil
}

func register(ctx context.Context, c *client.Client, args []string, out io.Writer) error {
	if len(args) < 2 {
		return errors.New("usage: register <email> <password> [name]")
	}
	name := ""
	if len(args) > 2 {
		name = strings.Join(args[2:], " ")
	}
	session, err := c.Register(ctx, args[0], args[1], name)
	if err != nil {
		return err
	}
	fmt.Fprintln(out, session.Token)
	return nil
}

func book(ctx context.Context, c *client.Client, args []string, out io.Writer) error {
	if len(args) < 5 {
		return errors.New("usage: book <check-in> <check-out> <name> <email> <guests>")
	}
	in, outDay, err := parseRange(args)
	if err != nil {
		return err
	}
	var guests int
	if _, err := fmt.Sscanf(args[4], "%d", &guests); err != nil {
		return fmt.Errorf("invalid guest count %q", args[4])
	}

	booking, err := c.CreateBooking(ctx, client.BookingRequest{
		CheckIn:        in,
		CheckOut:       outDay,
		GuestName:      args[2],
		GuestEmail:     args[3],
		NumberOfGuests: guests,
	}, nil)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "%s %s %s\n", booking.ID, booking.Status, formatMoney(booking.TotalPrice))
	return nil
}

func bookings(ctx context.Context, c *client.Client, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("bookings", flag.ContinueOnError)
	fs.SetOutput(out)
	mine := fs.Bool("mine", false, "Only the bookings of the logged-in account")
	if err := fs.Parse(args); err != nil {
		return err
	}

	list := c.ListBookings
	if *mine {
		list = c.MyBookings
	}
	all, err := list(ctx)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSTATUS\tCHECK-IN\tCHECK-OUT\tGUEST\tTOTAL")
	for _, b := range all {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			b.ID, b.Status, b.CheckIn.Format(dayLayout), b.CheckOut.Format(dayLayout), b.GuestName, formatMoney(b.TotalPrice))
	}
	return w.Flush()
}

func decide(ctx context.Context, c *client.Client, action string, args []string, out io.Writer) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: %s <id>", action)
	}

	transition := c.ApproveBooking
	if action == "reject" {
		transition = c.RejectBooking
	}
	booking, err := transition(ctx, args[0])
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "%s %s\n", booking.ID, booking.Status)
	return nil
}

func block(ctx context.Context, c *client.Client, args []string, out io.Writer) error {
	from, to, err := parseRange(args)
	if err != nil {
		return err
	}
	note := strings.Join(args[2:], " ")

	b, err := c.BlockRange(ctx, from, to, note)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "blocked %s through %s (%s)\n", from.Format(dayLayout), to.Format(dayLayout), b.ID)
	return nil
}

func unblock(ctx context.Context, c *client.Client, args []string, out io.Writer) error {
	from, to, err := parseRange(args)
	if err != nil {
		return err
	}

	events, err := c.MergedCalendar(ctx)
	if err != nil {
		return err
	}
	from, to = calendar.UnblockRange(events, from, to)

	deleted, err := c.UnblockRange(ctx, from, to)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "removed %d block(s)\n", deleted)
	return nil
}

func stats(ctx context.Context, c *client.Client, out io.Writer) error {
	s, err := c.DashboardStats(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Bookings:  %d (%d confirmed, %d pending)\n", s.TotalBookings, s.ConfirmedBookings, s.PendingBookings)
	fmt.Fprintf(out, "Revenue:   %s\n", formatMoney(s.TotalRevenue))
	return nil
}

func watch(ctx context.Context, c *client.Client, args []string, out io.Writer) error {
	if len(args) < 1 {
		return errors.New("usage: watch <booking-id>")
	}

	history, err := c.ListMessages(ctx, args[0])
	if err != nil {
		return err
	}
	for _, m := range history {
		printMessage(out, m.CreatedAt, m.SenderEmail, m.Message)
	}

	stream, err := c.StreamMessages(ctx, args[0])
	if err != nil {
		return err
	}
	defer stream.Close()

	for m := range stream.Messages() {
		printMessage(out, m.CreatedAt, m.SenderEmail, m.Message)
	}
	if ctx.Err() != nil {
		return nil
	}
	return stream.Err()
}

func printMessage(out io.Writer, at time.Time, sender, text string) {
	fmt.Fprintf(out, "[%s] %s: %s\n", at.Local().Format("2006-01-02 15:04"), sender, text)
}
