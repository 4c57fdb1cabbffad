package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/spf13/cobra"

	"github.com/and161185/taskdex/internal/api"
	"github.com/and161185/taskdex/internal/model"
	"github.com/and161185/taskdex/internal/service"
)

type globals struct {
	addr       string
	caPath     string
	skipVerify bool
	plaintext  bool
	timeout    time.Duration
	asJSON     bool

	dial dialer
	now  func() time.Time
}

// session runs fn against a connected client. Authenticated sessions load
// the stored token first.
func (g *globals) session(cmd *cobra.Command, auth bool, fn func(ctx context.Context, cl *api.Client) error) error {
	var bearer string
	if auth {
		tok, err := loadToken(g.now())
		if err != nil {
			return err
		}
		bearer = tok
	}
	ctx, cancel := context.WithTimeout(cmd.Context(), g.timeout)
	defer cancel()
	cl, closer, err := g.dial(ctx, bearer)
	if err != nil {
		return err
	}
	defer closer.Close()
	return fn(ctx, cl)
}

func (g *globals) emit(w io.Writer, v any, human func()) {
	if g.asJSON {
		printJSON(w, v)
		return
	}
	human()
}

func newRootCmd(dial dialer) *cobra.Command {
	g := &globals{dial: dial, now: time.Now}
	if g.dial == nil {
		g.dial = grpcDialer(g)
	}

	root := &cobra.Command{
		Use:           "tdx",
		Short:         "Taskdex client: tasks, XP and collectible rewards",
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       fmt.Sprintf("%s (%s)", version, buildDate),
	}
	pf := root.PersistentFlags()
	pf.StringVar(&g.addr, "addr", "localhost:8443", "server addr")
	pf.StringVar(&g.caPath, "cacert", "", "CA cert (PEM)")
	pf.BoolVar(&g.skipVerify, "insecure", false, "skip cert verify (dev)")
	pf.BoolVar(&g.plaintext, "plaintext", false, "connect without TLS (dev)")
	pf.DurationVar(&g.timeout, "timeout", 30*time.Second, "per-command deadline")
	pf.BoolVar(&g.asJSON, "json", false, "print JSON")

	root.AddCommand(
		newSignUpCmd(g),
		newSignInCmd(g),
		newSignOutCmd(),
		newTaskCmd(g),
		newStatsCmd(g),
		newOffersCmd(g),
		newRedeemCmd(g),
		newCollectionCmd(g),
	)
	return root
}

func credentialFlags(cmd *cobra.Command, user, pass *string) {
	cmd.Flags().StringVarP(user, "username", "u", "", "username")
	cmd.Flags().StringVarP(pass, "password", "p", "", "password")
	_ = cmd.MarkFlagRequired("username")
	_ = cmd.MarkFlagRequired("password")
}

func newSignUpCmd(g *globals) *cobra.Command {
	var user, pass string
	cmd := &cobra.Command{
		Use:   "signup",
		Short: "Create an account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return g.session(cmd, false, func(ctx context.Context, cl *api.Client) error {
				id, err := cl.SignUp(ctx, user, pass)
				if err != nil {
					return err
				}
				g.emit(cmd.OutOrStdout(), map[string]string{"user_id": id.String()}, func() {
					fmt.Fprintln(cmd.OutOrStdout(), id)
				})
				return nil
			})
		},
	}
	credentialFlags(cmd, &user, &pass)
	return cmd
}

func newSignInCmd(g *globals) *cobra.Command {
	var user, pass string
	cmd := &cobra.Command{
		Use:   "signin",
		Short: "Sign in and store the access token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return g.session(cmd, false, func(ctx context.Context, cl *api.Client) error {
				tok, err := cl.SignIn(ctx, user, pass)
				if err != nil {
					return err
				}
				if tok.ExpiresAt.IsZero() {
					tok.ExpiresAt = g.now().Add(15 * time.Minute)
				}
				if err := saveToken(tokenFile{AccessToken: tok.AccessToken, ExpiresAt: tok.ExpiresAt, Username: user}); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "ok")
				return nil
			})
		},
	}
	credentialFlags(cmd, &user, &pass)
	return cmd
}

func newSignOutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "signout",
		Short: "Forget the stored access token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := os.Remove(tokenPath()); err != nil && !errors.Is(err, os.ErrNotExist) {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "ok")
			return nil
		},
	}
}

// ---- tasks ----

func newTaskCmd(g *globals) *cobra.Command {
	cmd := &cobra.Command{Use: "task", Short: "Manage tasks"}
	cmd.AddCommand(newTaskAddCmd(g), newTaskListCmd(g), newTaskToggleCmd(g), newTaskRemoveCmd(g))
	return cmd
}

func newTaskAddCmd(g *globals) *cobra.Command {
	var priority string
	cmd := &cobra.Command{
		Use:   "add <title>",
		Short: "Add a task",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := model.ParsePriority(priority)
			if err != nil {
				return err
			}
			title := strings.Join(args, " ")
			return g.session(cmd, true, func(ctx context.Context, cl *api.Client) error {
				t, err := cl.AddTask(ctx, title, p)
				if err != nil {
					return err
				}
				g.emit(cmd.OutOrStdout(), t, func() { printTask(cmd.OutOrStdout(), t) })
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&priority, "priority", "P", "medium", "priority (low|medium|high)")
	return cmd
}

func newTaskListCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:     "ls",
		Aliases: []string{"list"},
		Short:   "List tasks",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return g.session(cmd, true, func(ctx context.Context, cl *api.Client) error {
				ts, err := cl.ListTasks(ctx)
				if err != nil {
					return err
				}
				g.emit(cmd.OutOrStdout(), ts, func() {
					if len(ts) == 0 {
						fmt.Fprintln(cmd.OutOrStdout(), "no tasks")
					}
					for _, t := range ts {
						printTask(cmd.OutOrStdout(), t)
					}
				})
				return nil
			})
		},
	}
}

func taskIDArg(args []string) (uuid.UUID, error) {
	id, err := uuid.FromString(args[0])
	if err != nil {
		return uuid.Nil, fmt.Errorf("bad task id %q", args[0])
	}
	return id, nil
}

func newTaskToggleCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "toggle <id>",
		Short: "Complete or reopen a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := taskIDArg(args)
			if err != nil {
				return err
			}
			return g.session(cmd, true, func(ctx context.Context, cl *api.Client) error {
				res, err := cl.ToggleTask(ctx, id)
				if err != nil {
					return err
				}
				g.emit(cmd.OutOrStdout(), res, func() { printToggle(cmd.OutOrStdout(), res) })
				return nil
			})
		},
	}
}

func newTaskRemoveCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:     "rm <id>",
		Aliases: []string{"delete"},
		Short:   "Delete a task",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := taskIDArg(args)
			if err != nil {
				return err
			}
			return g.session(cmd, true, func(ctx context.Context, cl *api.Client) error {
				if err := cl.DeleteTask(ctx, id); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "deleted")
				return nil
			})
		},
	}
}

// ---- progression and rewards ----

func newStatsCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show level, XP and streak",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return g.session(cmd, true, func(ctx context.Context, cl *api.Client) error {
				p, err := cl.Stats(ctx)
				if err != nil {
					return err
				}
				g.emit(cmd.OutOrStdout(), p, func() {
					w := cmd.OutOrStdout()
					fmt.Fprintf(w, "level %d  xp %d/%d  (%d to next)\n", p.Stats.Level, p.Stats.CurrentXP, p.XPPerLevel, p.XPToNext)
					fmt.Fprintf(w, "total %d  streak %d\n", p.Stats.TotalXP, p.Stats.Streak)
				})
				return nil
			})
		},
	}
}

func newOffersCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "offers",
		Short: "List containers and whether you can open them",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return g.session(cmd, true, func(ctx context.Context, cl *api.Client) error {
				offers, err := cl.Offers(ctx)
				if err != nil {
					return err
				}
				g.emit(cmd.OutOrStdout(), offers, func() {
					for _, o := range offers {
						mark := "✓"
						if !o.Eligibility.OK() {
							mark = "✗ " + o.Eligibility.Reason()
						}
						fmt.Fprintf(cmd.OutOrStdout(), "%-7s %-12s %4d XP  lvl %-2d  %s\n",
							o.Type.Kind, o.Type.Name, o.Eligibility.Cost, o.Type.MinLevel, mark)
					}
				})
				return nil
			})
		},
	}
}

func newRedeemCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "redeem <kind>",
		Short: "Open a container (poke|great|master)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return g.session(cmd, true, func(ctx context.Context, cl *api.Client) error {
				out, err := cl.Redeem(ctx, args[0])
				if err != nil {
					return err
				}
				g.emit(cmd.OutOrStdout(), out, func() { printRedeem(cmd.OutOrStdout(), out) })
				return nil
			})
		},
	}
}

func newCollectionCmd(g *globals) *cobra.Command {
	var summary bool
	cmd := &cobra.Command{
		Use:   "collection",
		Short: "List collected items",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return g.session(cmd, true, func(ctx context.Context, cl *api.Client) error {
				w := cmd.OutOrStdout()
				if summary {
					sum, err := cl.Summary(ctx)
					if err != nil {
						return err
					}
					g.emit(w, sum, func() {
						fmt.Fprintf(w, "%d items, %d distinct\n", sum.Total, sum.Distinct)
						for _, r := range model.Rarities() {
							fmt.Fprintf(w, "  %-9s %d\n", r, sum.ByRarity[r])
						}
					})
					return nil
				}
				items, err := cl.Collection(ctx)
				if err != nil {
					return err
				}
				g.emit(w, items, func() {
					if len(items) == 0 {
						fmt.Fprintln(w, "collection is empty")
					}
					for _, it := range items {
						fmt.Fprintf(w, "#%-5d %-20s %-9s %s\n", it.ExternalID, it.Name, it.Rarity, it.AcquiredAt.Local().Format(time.DateTime))
					}
				})
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&summary, "summary", false, "show counts per rarity")
	return cmd
}

// ---- output ----

func printTask(w io.Writer, t model.Task) {
	box := "[ ]"
	if t.Completed {
		box = "[x]"
	}
	fmt.Fprintf(w, "%s %s  %-6s +%d XP  %s\n", box, t.ID, t.Priority, t.XPReward, t.Title)
}

func printToggle(w io.Writer, res service.ToggleResult) {
	printTask(w, res.Task)
	if res.Gain == nil {
		return
	}
	fmt.Fprintf(w, "+%d XP", res.Gain.XP)
	if res.Gain.LeveledUp {
		fmt.Fprintf(w, "  level up! %d → %d", res.Gain.LevelBefore, res.Gain.LevelAfter)
	}
	fmt.Fprintf(w, "  streak %d\n", res.Gain.Stats.Streak)
}

func printRedeem(w io.Writer, out service.RedeemOutcome) {
	if out.Rejected {
		fmt.Fprintf(w, "cannot open: %s\n", out.Reason)
		return
	}
	if out.Item != nil {
		fmt.Fprintf(w, "%s! #%d %s\n", strings.ToUpper(string(out.Item.Rarity)), out.Item.ExternalID, out.Item.Name)
	}
	fmt.Fprintf(w, "-%d XP, %d left\n", out.Eligibility.Cost, out.Stats.CurrentXP)
}
