package cfddns

import (
	"fmt"
	"io"
	"log"
	"strings"
	"unicode/utf8"

	"github.com/fatih/color"
)

const bannerWidth = 60

// Console writes the human readable progress log:
// section banners and status lines timestamped in UTC and prefixed with an icon.
type Console struct {
	w      io.Writer
	logger *log.Logger
}

func NewConsole(w io.Writer) *Console {
	return &Console{w: w, logger: log.New(w, "", log.LstdFlags|log.LUTC)}
}

// Section prints a banner that starts a new phase of the program.
func (c *Console) Section(msg string) {
	fmt.Fprintln(c.w, color.New(color.Bold).Sprint(banner(msg, bannerWidth, '=')))
}

// Step prints a banner for a single step within a pass.
func (c *Console) Step(msg string) {
	fmt.Fprintln(c.w, banner(msg, bannerWidth, '-'))
}

func (c *Console) OK(format string, args ...any) {
	c.logger.Printf("✅ %s", color.GreenString(format, args...))
}

func (c *Console) Fail(format string, args ...any) {
	c.logger.Printf("❌ %s", color.RedString(format, args...))
}

func (c *Console) Info(format string, args ...any) {
	c.logger.Printf("ℹ️ %s", color.CyanString(format, args...))
}

// banner centers msg in a line of width runes filled with fill.
// Messages too long to fit are printed with a single fill rune on each side.
func banner(msg string, width int, fill rune) string {
	msg = " " + msg + " "
	n := width - utf8.RuneCountInString(msg)
	if n < 2 {
		n = 2
	}
	left := n / 2
	return strings.Repeat(string(fill), left) + msg + strings.Repeat(string(fill), n-left)
}
