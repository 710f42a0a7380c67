// Package console is the interactive prompt the mock server runs on stdin
// so prices can be poked during a manual test session.
package console

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"quotestub/internal/mockquote"
)

// ErrQuit is returned by Run when the user asks to stop the server.
var ErrQuit = errors.New("console: quit requested")

const prompt = "mock> "

const helpText = `commands:
  show                 print served prices
  set <SYMBOL> <price> change a price (BTC, USDT)
  usdt on|off          publish or hide the USDT quote
  help                 this text
  quit | exit          stop the server
`

type Console struct {
	in    io.Reader
	out   io.Writer
	state *mockquote.State
	log   *zap.Logger
}

func New(in io.Reader, out io.Writer, state *mockquote.State, log *zap.Logger) *Console {
	return &Console{in: in, out: out, state: state, log: log}
}

// Run reads commands until EOF, quit, or ctx is done. EOF returns nil so
// a server started without a terminal keeps serving.
func (c *Console) Run(ctx context.Context) error {
	sc := bufio.NewScanner(c.in)
	fmt.Fprint(c.out, prompt)
	for sc.Scan() {
		if ctx.Err() != nil {
			return nil
		}
		if err := c.exec(sc.Text()); err != nil {
			if errors.Is(err, ErrQuit) {
				return err
			}
			fmt.Fprintf(c.out, "error: %v\n", err)
		}
		fmt.Fprint(c.out, prompt)
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("reading console: %w", err)
	}
	fmt.Fprintln(c.out)
	return nil
}

func (c *Console) exec(line string) error {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil
	}
	switch strings.ToLower(fields[0]) {
	case "show", "prices":
		c.show()
	case "set":
		if len(fields) != 3 {
			return errors.New("usage: set <SYMBOL> <price>")
		}
		price, err := strconv.ParseFloat(fields[2], 64)
		if err != nil {
			return fmt.Errorf("bad price %q", fields[2])
		}
		sym := strings.ToUpper(fields[1])
		if err := c.state.SetPrice(sym, price); err != nil {
			return err
		}
		c.log.Info("price changed from console", zap.String("symbol", sym), zap.Float64("price", price))
		fmt.Fprintf(c.out, "%s = %s\n", sym, formatPrice(price))
	case "usdt":
		if len(fields) != 2 {
			return errors.New("usage: usdt on|off")
		}
		switch strings.ToLower(fields[1]) {
		case "on":
			c.state.SetIncludeUSDT(true)
		case "off":
			c.state.SetIncludeUSDT(false)
		default:
			return errors.New("usage: usdt on|off")
		}
		c.show()
	case "help", "?":
		fmt.Fprint(c.out, helpText)
	case "quit", "exit":
		return ErrQuit
	default:
		return fmt.Errorf("unknown command %q (try help)", fields[0])
	}
	return nil
}

func (c *Console) show() {
	snap := c.state.Snapshot()
	fmt.Fprintf(c.out, "BTC  %s\n", formatPrice(snap.BTC))
	usdt := "hidden"
	if snap.IncludeUSDT {
		usdt = "published"
	}
	fmt.Fprintf(c.out, "USDT %s (%s)\n", formatPrice(snap.USDT), usdt)
}

func formatPrice(p float64) string { return strconv.FormatFloat(p, 'f', -1, 64) }
