package main

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"nkmail/lib/mailstream"
	"nkmail/lib/utils/yenc"
)

func newFetchCmd(mk appMaker) *cobra.Command {
	var (
		uid     bool
		headers bool
		peek    bool
	)
	cmd := &cobra.Command{
		Use:   "fetch GROUP SEQ",
		Short: "Print articles",
		Args:  cobra.ExactArgs(2),
		RunE: func(_ *cobra.Command, args []string) error {
			return withStream(mk, args[0], func(a *app, s *mailstream.Stream) error {
				if err := s.Mark(args[1], uid); err != nil {
					return err
				}
				for _, e := range s.Selected() {
					h, err := a.drv.Header(s, e.MsgNo)
					if err != nil {
						return fmt.Errorf("article %d: %w", e.UID, err)
					}
					a.printf("%s", h)
					if headers {
						continue
					}
					b, err := a.drv.Text(s, e.MsgNo, peek)
					if err != nil {
						return fmt.Errorf("article %d: %w", e.UID, err)
					}
					a.printf("%s", b)
				}
				if headers || peek {
					return nil
				}
				// news read state is kept as deleted flag
				return s.SetFlags(args[1], uid, mailstream.FlagDeleted, true)
			})
		},
	}
	f := cmd.Flags()
	f.BoolVar(&uid, "uid", false, "sequence holds article numbers")
	f.BoolVarP(&headers, "headers", "H", false, "print headers only")
	f.BoolVar(&peek, "peek", false, "do not mark articles read")
	return cmd
}

// attach appends yEnc encoded file to article body.
func attach(msg io.Reader, name string) (io.Reader, error) {
	raw, err := io.ReadAll(msg)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(name)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	st, err := f.Stat()
	if err != nil {
		return nil, err
	}
	b := bytes.NewBuffer(raw)
	if len(raw) != 0 && raw[len(raw)-1] != '\n' {
		b.WriteByte('\n')
	}
	if err = yenc.EncodeFile(b, filepath.Base(name), st.Size(), f); err != nil {
		return nil, err
	}
	return b, nil
}

func newPostCmd(mk appMaker) *cobra.Command {
	var binary string
	cmd := &cobra.Command{
		Use:   "post GROUP [FILE]",
		Short: "Post article read from file or standard input",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(_ *cobra.Command, args []string) error {
			return withApp(mk, func(a *app) error {
				var r io.Reader = a.stdin
				if len(args) == 2 && args[1] != "-" {
					f, err := os.Open(args[1])
					if err != nil {
						return err
					}
					defer f.Close()
					r = f
				}
				if binary != "" {
					var err error
					if r, err = attach(r, binary); err != nil {
						return err
					}
				}
				s, err := a.reg.Open(nil, a.mailbox(args[0]), mailstream.OpenOptions{
					Notifier: &printer{a: a},
					Debug:    a.cfg.NNTP.Debug,
					HalfOpen: true,
				})
				if err != nil {
					return err
				}
				defer s.Close()
				return a.drv.Post(s, r)
			})
		},
	}
	cmd.Flags().StringVar(&binary, "yenc", "", "attach yEnc encoded `FILE` to body")
	return cmd
}

func newCopyCmd(mk appMaker) *cobra.Command {
	var uid bool
	cmd := &cobra.Command{
		Use:   "copy GROUP SEQ MAILBOX",
		Short: "Copy articles into local spool mailbox",
		Args:  cobra.ExactArgs(3),
		RunE: func(_ *cobra.Command, args []string) error {
			return withStream(mk, args[0], func(a *app, s *mailstream.Stream) error {
				if err := s.Driver.Copy(s, args[1], uid, args[2]); err != nil {
					return err
				}
				if a.spool != nil {
					a.printf("copied to %s\n", a.spool.Root())
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&uid, "uid", false, "sequence holds article numbers")
	return cmd
}
