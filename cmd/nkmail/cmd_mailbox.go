package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"nkmail/lib/mailstream"
	"nkmail/lib/utils/logx"
)

type appMaker func() (*app, error)

// withApp runs fn with fresh app, closing it afterwards.
func withApp(mk appMaker, fn func(a *app) error) error {
	a, err := mk()
	if err != nil {
		return err
	}
	defer a.Close()
	if err = fn(a); err != nil {
		a.log.LogPrintf(logx.ERROR, "%v", err)
		return errExit
	}
	return nil
}

// withStream runs fn on opened mailbox.
func withStream(mk appMaker, name string, fn func(a *app, s *mailstream.Stream) error) error {
	return withApp(mk, func(a *app) error {
		s, err := a.open(a.mailbox(name))
		if err != nil {
			return err
		}
		defer s.Close()
		return fn(a, s)
	})
}

func newOpenCmd(mk appMaker) *cobra.Command {
	var (
		over bool
		seq  string
		uid  bool
	)
	cmd := &cobra.Command{
		Use:   "open GROUP",
		Short: "Open newsgroup and show its state",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			return withStream(mk, args[0], func(a *app, s *mailstream.Stream) error {
				a.printf("%s: %d messages, %d recent\n", s.Name, s.Exists(), s.Recent)
				if !over || s.Exists() == 0 {
					return nil
				}
				return a.drv.Overview(s, seq, uid, func(s *mailstream.Stream, uid uint64, ov *mailstream.Overview) {
					if ov == nil {
						a.printf("%d\t(no overview)\n", uid)
						return
					}
					a.printf("%d\t%s\t%s\t%s\t%d\n", uid,
						mailstream.DecodeHeaderText(ov.Subject), ov.FromText, ov.Date, ov.Octets)
				})
			})
		},
	}
	f := cmd.Flags()
	f.BoolVarP(&over, "overview", "o", false, "print overview of messages")
	f.StringVar(&seq, "seq", "1:*", "messages to show overview of")
	f.BoolVar(&uid, "uid", false, "sequence holds article numbers")
	return cmd
}

func newStatusCmd(mk appMaker) *cobra.Command {
	var parallel int
	cmd := &cobra.Command{
		Use:   "status GROUP...",
		Short: "Show newsgroup counters without opening it",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			return withApp(mk, func(a *app) error {
				var eg errgroup.Group
				if parallel > 0 {
					eg.SetLimit(parallel)
				}
				for _, name := range args {
					mbx := a.mailbox(name)
					eg.Go(func() error {
						st, err := a.reg.Status(nil, mbx, mailstream.StatusAll)
						if err != nil {
							return fmt.Errorf("%s: %w", mbx, err)
						}
						a.printf("%s: messages %d recent %d unseen %d uidnext %d uidvalidity %d\n",
							mbx, st.Messages, st.Recent, st.Unseen, st.UIDNext, st.UIDValidity)
						return nil
					})
				}
				return eg.Wait()
			})
		},
	}
	cmd.Flags().IntVarP(&parallel, "parallel", "p", 4, "servers queried at once, 0 for no limit")
	return cmd
}

func newListCmd(mk appMaker, subscribed bool) *cobra.Command {
	use, short := "list [REF] PATTERN", "List newsgroups matching pattern"
	if subscribed {
		use, short = "lsub [REF] PATTERN", "List subscribed newsgroups matching pattern"
	}
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(_ *cobra.Command, args []string) error {
			return withApp(mk, func(a *app) error {
				ref, pat := a.root(), args[0]
				if len(args) == 2 {
					ref, pat = args[0], args[1]
				}
				s := mailstream.NewStream(&printer{a: a})
				if subscribed {
					return a.drv.LSub(s, ref, pat)
				}
				return a.drv.List(s, ref, pat)
			})
		},
	}
}

func newSubscribeCmd(mk appMaker, on bool) *cobra.Command {
	use, short := "subscribe GROUP...", "Subscribe to newsgroups"
	if !on {
		use, short = "unsubscribe GROUP...", "Unsubscribe from newsgroups"
	}
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.MinimumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			return withApp(mk, func(a *app) error {
				for _, name := range args {
					var err error
					if on {
						err = a.reg.Subscribe(nil, a.mailbox(name))
					} else {
						err = a.reg.Unsubscribe(nil, a.mailbox(name))
					}
					if err != nil {
						return err
					}
				}
				return nil
			})
		},
	}
}
