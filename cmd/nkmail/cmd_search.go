package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"nkmail/lib/mailstream"
)

type searchFlags struct {
	charset  string
	seq      string
	uidSeq   string
	from     []string
	subject  []string
	body     []string
	text     []string
	to       []string
	header   []string
	since    string
	before   string
	unseen   bool
	overview bool
	uid      bool
}

func addSearchFlags(f *pflag.FlagSet, sf *searchFlags) {
	f.StringVar(&sf.charset, "charset", "", "charset of search strings")
	f.StringVar(&sf.seq, "seq", "", "limit to message sequence")
	f.StringVar(&sf.uidSeq, "uid-seq", "", "limit to article numbers")
	f.StringArrayVar(&sf.from, "from", nil, "From contains text")
	f.StringArrayVar(&sf.subject, "subject", nil, "Subject contains text")
	f.StringArrayVar(&sf.body, "body", nil, "body contains text")
	f.StringArrayVar(&sf.text, "text", nil, "header or body contains text")
	f.StringArrayVar(&sf.to, "to", nil, "To contains text")
	f.StringArrayVar(&sf.header, "header", nil, "FIELD:TEXT, field contains text")
	f.StringVar(&sf.since, "since", "", "sent on or after date (2006-01-02)")
	f.StringVar(&sf.before, "before", "", "sent before date (2006-01-02)")
	f.BoolVar(&sf.unseen, "unseen", false, "only unread messages")
	f.BoolVar(&sf.overview, "overview", true, "use overview data where possible")
	f.BoolVar(&sf.uid, "uid", false, "print article numbers")
}

func parseDay(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse("2006-01-02", s)
}

// program builds search program, nil when no criteria given.
func (sf *searchFlags) program() (*mailstream.SearchProgram, error) {
	p := &mailstream.SearchProgram{
		MsgNo:   sf.seq,
		UID:     sf.uidSeq,
		From:    sf.from,
		Subject: sf.subject,
		Body:    sf.body,
		Text:    sf.text,
		To:      sf.to,
	}
	for _, h := range sf.header {
		i := strings.IndexByte(h, ':')
		if i <= 0 {
			return nil, fmt.Errorf("bad header criterion %q", h)
		}
		p.Header = append(p.Header, mailstream.SearchHeader{
			Field: h[:i],
			Text:  strings.TrimSpace(h[i+1:]),
		})
	}
	var err error
	if p.SentSince, err = parseDay(sf.since); err != nil {
		return nil, err
	}
	if p.SentBefore, err = parseDay(sf.before); err != nil {
		return nil, err
	}
	if sf.unseen {
		p.FlagsClear = mailstream.FlagSeen | mailstream.FlagDeleted
	}
	return p, nil
}

func printNums(a *app, l []uint64) {
	s := make([]string, len(l))
	for i, n := range l {
		s[i] = fmt.Sprint(n)
	}
	a.printf("%s\n", strings.Join(s, " "))
}

func newSearchCmd(mk appMaker) *cobra.Command {
	sf := &searchFlags{}
	cmd := &cobra.Command{
		Use:   "search GROUP",
		Short: "Search newsgroup",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			pgm, err := sf.program()
			if err != nil {
				return err
			}
			return withStream(mk, args[0], func(a *app, s *mailstream.Stream) error {
				r, err := s.Search(sf.charset, pgm, mailstream.SearchOptions{
					UID:      sf.uid,
					Overview: sf.overview,
					Silent:   true,
				})
				if err != nil {
					return err
				}
				printNums(a, r)
				return nil
			})
		},
	}
	addSearchFlags(cmd.Flags(), sf)
	return cmd
}

// parseSortKeys reads comma separated keys, "-" prefix reverses key.
func parseSortKeys(s string) ([]mailstream.SortProgram, error) {
	var r []mailstream.SortProgram
	for _, k := range strings.Split(s, ",") {
		k = strings.TrimSpace(k)
		if k == "" {
			continue
		}
		rev := strings.HasPrefix(k, "-")
		key, err := mailstream.ParseSortKey(strings.TrimPrefix(k, "-"))
		if err != nil {
			return nil, err
		}
		r = append(r, mailstream.SortProgram{Key: key, Reverse: rev})
	}
	if len(r) == 0 {
		return nil, fmt.Errorf("no sort keys")
	}
	return r, nil
}

func newSortCmd(mk appMaker) *cobra.Command {
	sf := &searchFlags{}
	var keys string
	cmd := &cobra.Command{
		Use:   "sort GROUP",
		Short: "Sort newsgroup messages",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			pgm, err := sf.program()
			if err != nil {
				return err
			}
			sp, err := parseSortKeys(keys)
			if err != nil {
				return err
			}
			return withStream(mk, args[0], func(a *app, s *mailstream.Stream) error {
				r, err := s.Sort(sf.charset, pgm, sp, mailstream.SortOptions{UID: sf.uid})
				if err != nil {
					return err
				}
				printNums(a, r)
				return nil
			})
		},
	}
	addSearchFlags(cmd.Flags(), sf)
	cmd.Flags().StringVarP(&keys, "keys", "k", "date", "sort keys: arrival,date,from,subject,size,to,cc; -key reverses")
	return cmd
}

// formatThreads prints threads in IMAP THREAD response syntax.
func formatThreads(b *strings.Builder, l []*mailstream.ThreadNode) {
	for _, n := range l {
		b.WriteByte('(')
		formatThread(b, n)
		b.WriteByte(')')
	}
}

func formatThread(b *strings.Builder, n *mailstream.ThreadNode) {
	for {
		if n.Num != 0 {
			fmt.Fprint(b, n.Num)
		}
		switch len(n.Children) {
		case 0:
			return
		case 1:
			if n.Num != 0 {
				b.WriteByte(' ')
			}
			n = n.Children[0]
			continue
		}
		if n.Num != 0 {
			b.WriteByte(' ')
		}
		formatThreads(b, n.Children)
		return
	}
}

func newThreadCmd(mk appMaker) *cobra.Command {
	sf := &searchFlags{}
	var alg string
	cmd := &cobra.Command{
		Use:   "thread GROUP",
		Short: "Thread newsgroup messages",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			pgm, err := sf.program()
			if err != nil {
				return err
			}
			return withStream(mk, args[0], func(a *app, s *mailstream.Stream) error {
				t, err := s.Thread(alg, sf.charset, pgm, mailstream.SortOptions{UID: sf.uid})
				if err != nil {
					return err
				}
				var b strings.Builder
				formatThreads(&b, t)
				a.printf("%s\n", b.String())
				return nil
			})
		},
	}
	addSearchFlags(cmd.Flags(), sf)
	cmd.Flags().StringVarP(&alg, "algorithm", "a", mailstream.ThreadReferences, "REFERENCES or ORDEREDSUBJECT")
	return cmd
}
