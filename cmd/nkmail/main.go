// Command nkmail reads newsgroups through the news mailbox driver.
package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"nkmail/lib/utils/xdialer"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

// errExit signals non-zero exit after command already reported error.
var errExit = errors.New("exit")

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	root := newRootCmd(stdin, stdout, stderr, nil)
	if args == nil {
		args = []string{}
	}
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)
	if err := root.Execute(); err != nil {
		if err != errExit {
			fmt.Fprintf(stderr, "nkmail: %v\n", err)
		}
		return 1
	}
	return 0
}

// globalFlags are shared by every subcommand.
type globalFlags struct {
	config   string
	debug    bool
	logLevel string
	user     string
	server   string
}

// newRootCmd builds command tree. Non-nil dialer replaces configured one.
func newRootCmd(stdin io.Reader, stdout, stderr io.Writer, dialer xdialer.Dialer) *cobra.Command {
	gf := &globalFlags{}
	root := &cobra.Command{
		Use:           "nkmail",
		Short:         "Read, search and post news articles",
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	pf := root.PersistentFlags()
	pf.StringVarP(&gf.config, "config", "c", "~/.config/nkmail.toml", "configuration file")
	pf.BoolVar(&gf.debug, "debug", false, "log protocol traffic")
	pf.StringVar(&gf.logLevel, "log-level", "", "log level (overrides config)")
	pf.StringVarP(&gf.server, "server", "s", "", "news server for bare group names")
	pf.StringVarP(&gf.user, "user", "u", "", "news server user (overrides config)")
	root.CompletionOptions.DisableDefaultCmd = true

	mk := func() (*app, error) { return newApp(gf, stdin, stdout, stderr, dialer) }
	root.AddCommand(
		newOpenCmd(mk),
		newStatusCmd(mk),
		newListCmd(mk, false),
		newListCmd(mk, true),
		newSubscribeCmd(mk, true),
		newSubscribeCmd(mk, false),
		newSearchCmd(mk),
		newSortCmd(mk),
		newThreadCmd(mk),
		newFetchCmd(mk),
		newPostCmd(mk),
		newCopyCmd(mk),
	)
	return root
}
