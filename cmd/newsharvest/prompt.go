package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/pevans/newsharvest/sources"
)

// prompter reads answers from a line-oriented input.
type prompter struct {
	in  *bufio.Scanner
	out io.Writer
}

func newPrompter(in io.Reader, out io.Writer) *prompter {
	return &prompter{in: bufio.NewScanner(in), out: out}
}

// ask prints question and returns the next non-empty line, trimmed.
func (p *prompter) ask(question string) (string, error) {
	for {
		fmt.Fprint(p.out, question)
		if !p.in.Scan() {
			if err := p.in.Err(); err != nil {
				return "", err
			}
			return "", errors.New("no input")
		}
		if answer := strings.TrimSpace(p.in.Text()); answer != "" {
			return answer, nil
		}
	}
}

func joinNames(names []string) string {
	const limit = 12
	if len(names) > limit {
		return strings.Join(names[:limit], ", ") + ", ..."
	}
	return strings.Join(names, ", ")
}

// printSites writes the site table.
func printSites(out io.Writer, registry *sources.Registry) {
	t := table.NewWriter()
	t.SetOutputMirror(out)
	t.SetStyle(table.StyleLight)

	t.AppendHeader(table.Row{"Site", "Start", "Page Delay", "Date Delay", "Sections"})
	for _, name := range registry.Names() {
		site, _ := registry.Site(name)
		t.AppendRow(table.Row{
			site.Name,
			site.StartDate.Format("2006-01-02"),
			site.Pacing.PageDelay,
			site.Pacing.DateDelay,
			joinNames(site.Sections),
		})
	}

	t.Render()
}
