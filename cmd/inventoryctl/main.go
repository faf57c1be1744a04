package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"text/tabwriter"

	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"

	"inventory-keeper/internal/client"
	"inventory-keeper/internal/domain"
)

const usage = `usage: inventoryctl [flags] <command> [args]

commands:
  list              show every item
  total             show the number of items
  find <term>       search brand and model
  add               add an item from --brand --model --year --color
  update <id>       replace the fields of an item
  remove <id>       delete an item after confirmation
  export            write a snapshot to object storage

flags:
`

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	logger.SetOutput(os.Stderr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdin, os.Stdout, logger); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		logger.Fatal(err)
	}
}

type options struct {
	server   string
	username string
	password string
	token    string
	verbose  bool
	yes      bool
	item     domain.Item
}

func parseFlags(args []string, out io.Writer) (*options, []string, error) {
	opts := &options{}
	fs := pflag.NewFlagSet("inventoryctl", pflag.ContinueOnError)
	fs.SetOutput(out)
	fs.Usage = func() {
		fmt.Fprint(out, usage)
		fs.PrintDefaults()
	}

	fs.StringVarP(&opts.server, "server", "s", envOr("INVENTORY_SERVER", "http://localhost:8080"), "inventory server base URL")
	fs.StringVarP(&opts.username, "username", "u", os.Getenv("INVENTORY_USERNAME"), "account to sign in with")
	fs.StringVarP(&opts.password, "password", "p", os.Getenv("INVENTORY_PASSWORD"), "account password")
	fs.StringVar(&opts.token, "token", os.Getenv("INVENTORY_TOKEN"), "session token, used instead of username and password")
	fs.BoolVarP(&opts.verbose, "verbose", "v", false, "log debug output")
	fs.BoolVarP(&opts.yes, "yes", "y", false, "delete without asking for confirmation")
	fs.StringVar(&opts.item.Brand, "brand", "", "item brand")
	fs.StringVar(&opts.item.Model, "model", "", "item model")
	fs.StringVar(&opts.item.Year, "year", "", "item year")
	fs.StringVar(&opts.item.Color, "color", "", "item color")

	if err := fs.Parse(args); err != nil {
		return nil, nil, err
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return nil, nil, errors.New("a command is required")
	}
	return opts, fs.Args(), nil
}

func run(ctx context.Context, args []string, in io.Reader, out io.Writer, logger *logrus.Logger) error {
	opts, rest, err := parseFlags(args, out)
	if err != nil {
		return err
	}
	if opts.verbose {
		logger.SetLevel(logrus.DebugLevel)
	}

	api := client.New(opts.server, nil)
	switch {
	case opts.token != "":
		api.SetToken(opts.token)
	case opts.username != "":
		if err := api.Login(ctx, opts.username, opts.password); err != nil {
			return fmt.Errorf("sign in as %s: %w", opts.username, err)
		}
		logger.WithField("username", opts.username).Debug("signed in")
	default:
		return errors.New("either --token or --username is required")
	}

	confirm := &promptConfirmer{in: bufio.NewReader(in), out: out, assumeYes: opts.yes}
	vm := client.NewViewModel(api, confirm, logger.WithField("server", opts.server))

	command, params := rest[0], rest[1:]
	switch command {
	case "list":
		if err := vm.LoadItems(ctx); err != nil {
			return err
		}
		return printItems(out, vm.Inventory)

	case "total":
		total, err := api.Total(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, total)
		return nil

	case "find":
		if len(params) != 1 {
			return errors.New("find takes exactly one search term")
		}
		items, err := api.Find(ctx, params[0])
		if err != nil {
			return err
		}
		return printItems(out, items)

	case "add":
		vm.Brand, vm.Model, vm.Year, vm.Color = opts.item.Brand, opts.item.Model, opts.item.Year, opts.item.Color
		if err := vm.AddItem(ctx); err != nil {
			return err
		}
		return printItems(out, vm.Inventory)

	case "update":
		id, err := parseID(params)
		if err != nil {
			return err
		}
		item := opts.item
		item.ID = id
		matched, err := api.Update(ctx, item)
		if err != nil {
			return err
		}
		if !matched {
			fmt.Fprintf(out, "no item %d in your inventory\n", id)
			return nil
		}
		fmt.Fprintf(out, "updated item %d\n", id)
		return nil

	case "remove":
		id, err := parseID(params)
		if err != nil {
			return err
		}
		if err := vm.LoadItems(ctx); err != nil {
			return err
		}
		if err := vm.ConfirmDeleteItem(id); err != nil {
			return fmt.Errorf("item %d: %w", id, err)
		}
		if !confirm.confirmed {
			fmt.Fprintln(out, "cancelled")
			return nil
		}
		if err := vm.DeleteItem(ctx, vm.SelectedItemID); err != nil {
			return err
		}
		fmt.Fprintf(out, "deleted %s\n", vm.SelectedItem)
		return printItems(out, vm.Inventory)

	case "export":
		export, err := api.Export(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "exported %d items to %s\n", export.Total, export.Location)
		return nil

	default:
		return fmt.Errorf("unknown command %q", command)
	}
}

// promptConfirmer asks on the terminal before an item is deleted.
type promptConfirmer struct {
	in        *bufio.Reader
	out       io.Writer
	assumeYes bool
	confirmed bool
}

func (p *promptConfirmer) ConfirmDelete(label string, id int64) {
	if p.assumeYes {
		p.confirmed = true
		return
	}
	fmt.Fprintf(p.out, "Delete %s (#%d)? [y/N] ", label, id)
	answer, _ := p.in.ReadString('\n')
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		p.confirmed = true
	default:
		p.confirmed = false
	}
}

func printItems(out io.Writer, items []domain.Item) error {
	if len(items) == 0 {
		fmt.Fprintln(out, "no items")
		return nil
	}
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tYEAR\tBRAND\tMODEL\tCOLOR")
	for _, item := range items {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n", item.ID, item.Year, item.Brand, item.Model, item.Color)
	}
	return tw.Flush()
}

func parseID(params []string) (int64, error) {
	if len(params) != 1 {
		return 0, errors.New("an item id is required")
	}
	id, err := strconv.ParseInt(params[0], 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid item id %q", params[0])
	}
	return id, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
