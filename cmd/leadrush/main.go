package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	cl "leadrush/internal/cli"
	"leadrush/internal/config"
	"leadrush/internal/game"
	"leadrush/internal/store"
	"leadrush/internal/syncq"
	"leadrush/internal/tui"
)

type env struct {
	cfg     config.CLIConfig
	apiBase string
}

func main() {
	config.LoadDotEnv()
	e := &env{cfg: config.LoadCLIFromEnv()}
	e.apiBase = e.cfg.APIBaseURL

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	root := &cobra.Command{
		Use:          "leadrush",
		Short:        "Leadrush sales-pipeline clicker",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&e.apiBase, "api", e.apiBase, "API base URL")

	root.AddCommand(
		newStatusCmd(e),
		newBuildingsCmd(e),
		newUpgradesCmd(e),
		newPowerupsCmd(e),
		newBuyCmd(e),
		newClickCmd(e),
		newToggleCmd(e),
		newBoostCmd(e),
		newSaveCmd(e),
		newLoadCmd(e),
		newResetCmd(e),
		newPauseCmd(e),
		newResumeCmd(e),
		newSyncCmd(e),
		newPlayCmd(e),
		newSimCmd(e),
	)

	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func (e *env) client() *cl.Client {
	return cl.NewClient(strings.TrimRight(strings.TrimSpace(e.apiBase), "/"))
}

func (e *env) queue() *syncq.Queue {
	return syncq.New(e.cfg.SaveDir)
}

func requestCtx(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return context.WithTimeout(cmd.Context(), 30*time.Second)
}

// mutate sends one write to the API. When the API is unreachable the write is
// queued with its idempotency key so `leadrush sync` can deliver it later.
func (e *env) mutate(cmd *cobra.Command, method, path string, body map[string]any, send func(ctx context.Context, idem string) error) (bool, error) {
	ctx, cancel := requestCtx(cmd)
	defer cancel()
	idem := uuid.NewString()
	err := send(ctx, idem)
	if err == nil {
		return true, nil
	}
	return false, queueOnNetworkError(e.queue(), err, syncq.Command{
		Method:         method,
		Path:           path,
		Body:           body,
		IdempotencyKey: idem,
	})
}

func queueOnNetworkError(q *syncq.Queue, err error, c syncq.Command) error {
	if err == nil {
		return nil
	}
	if !cl.IsNetworkError(err) {
		return err
	}
	if qerr := q.Push(c); qerr != nil {
		return fmt.Errorf("request failed and could not be queued: %w", err)
	}
	printWarn(fmt.Sprintf("API unreachable; queued %s %s. Run `leadrush sync` once it is back.", c.Method, c.Path))
	return nil
}

func newStatusCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show resources, rates and active boosts",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := requestCtx(cmd)
			defer cancel()
			snap, err := e.client().State(ctx)
			if err != nil {
				return err
			}
			renderStatus(snap)
			return nil
		},
	}
}

func newBuildingsCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "buildings",
		Short: "List buildings with counts and next costs",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := requestCtx(cmd)
			defer cancel()
			list, err := e.client().Buildings(ctx)
			if err != nil {
				return err
			}
			renderBuildings(list)
			return nil
		},
	}
}

func newUpgradesCmd(e *env) *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "upgrades",
		Short: "List upgrades",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := requestCtx(cmd)
			defer cancel()
			list, err := e.client().Upgrades(ctx)
			if err != nil {
				return err
			}
			renderUpgrades(list, all)
			return nil
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "include purchased upgrades")
	return cmd
}

func newPowerupsCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "powerups",
		Short: "List power-ups, active boosts and spawned tokens",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := requestCtx(cmd)
			defer cancel()
			list, pending, err := e.client().Powerups(ctx)
			if err != nil {
				return err
			}
			renderPowerups(list, pending)
			return nil
		},
	}
}

func newBuyCmd(e *env) *cobra.Command {
	root := &cobra.Command{
		Use:   "buy",
		Short: "Buy buildings and upgrades",
	}

	var bulk bool
	building := &cobra.Command{
		Use:   "building ID",
		Short: "Buy one building (or ten with --bulk)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := args[0]
			var res game.BuyResult
			ok, err := e.mutate(cmd, http.MethodPost, "/v1/buildings/"+url.PathEscape(id)+"/buy", map[string]any{"bulk": bulk},
				func(ctx context.Context, idem string) error {
					var err error
					res, err = e.client().BuyBuilding(ctx, id, bulk, idem)
					return err
				})
			if err != nil || !ok {
				return err
			}
			printSuccess(fmt.Sprintf("Bought %d x %s (now %d) for %s.", res.Quantity, id, res.Count, costString(res.Spent)))
			return nil
		},
	}
	building.Flags().BoolVar(&bulk, "bulk", false, fmt.Sprintf("buy %d at once, all or nothing", game.BulkBuyQuantity))

	upgrade := &cobra.Command{
		Use:   "upgrade ID",
		Short: "Buy an upgrade",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := args[0]
			ok, err := e.mutate(cmd, http.MethodPost, "/v1/upgrades/"+url.PathEscape(id)+"/buy", nil,
				func(ctx context.Context, idem string) error {
					return e.client().BuyUpgrade(ctx, id, idem)
				})
			if err != nil || !ok {
				return err
			}
			printSuccess("Upgrade purchased: " + id)
			return nil
		},
	}

	root.AddCommand(building, upgrade)
	return root
}

func newClickCmd(e *env) *cobra.Command {
	var n int
	cmd := &cobra.Command{
		Use:       "click leads|opportunities",
		Short:     "Generate leads or opportunities by hand",
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{"leads", "opportunities"},
		RunE: func(cmd *cobra.Command, args []string) error {
			if n < 1 || n > 50 {
				return fmt.Errorf("-n must be within 1..50")
			}
			resource := args[0]
			var res game.ClickResult
			ok, err := e.mutate(cmd, http.MethodPost, "/v1/click/"+resource, map[string]any{"count": n},
				func(ctx context.Context, idem string) error {
					var err error
					res, err = e.client().Click(ctx, resource, n, idem)
					return err
				})
			if err != nil || !ok {
				return err
			}
			printSuccess(fmt.Sprintf("+%s %s (total %s)", tui.FormatNumber(res.Gained), resource, tui.FormatNumber(res.Total)))
			return nil
		},
	}
	cmd.Flags().IntVarP(&n, "count", "n", 1, "number of clicks (1-50)")
	return cmd
}

func newToggleCmd(e *env) *cobra.Command {
	root := &cobra.Command{
		Use:   "toggle",
		Short: "Flip acquisition or the flexible workflow",
	}
	root.AddCommand(
		&cobra.Command{
			Use:   "acquisition",
			Short: "Pause or resume customer acquisition",
			RunE: func(cmd *cobra.Command, args []string) error {
				var paused bool
				ok, err := e.mutate(cmd, http.MethodPost, "/v1/acquisition/toggle", nil, func(ctx context.Context, idem string) error {
					var err error
					paused, err = e.client().ToggleAcquisition(ctx, idem)
					return err
				})
				if err != nil || !ok {
					return err
				}
				if paused {
					printWarn("Customer acquisition paused.")
				} else {
					printSuccess("Customer acquisition running.")
				}
				return nil
			},
		},
		&cobra.Command{
			Use:   "workflow",
			Short: "Turn the flexible workflow on or off",
			RunE: func(cmd *cobra.Command, args []string) error {
				var active bool
				ok, err := e.mutate(cmd, http.MethodPost, "/v1/workflow/toggle", nil, func(ctx context.Context, idem string) error {
					var err error
					active, err = e.client().ToggleWorkflow(ctx, idem)
					return err
				})
				if err != nil || !ok {
					return err
				}
				if active {
					printSuccess("Flexible workflow on.")
				} else {
					printInfo("Flexible workflow off.")
				}
				return nil
			},
		},
	)
	return root
}

func newBoostCmd(e *env) *cobra.Command {
	var claim bool
	cmd := &cobra.Command{
		Use:   "boost ID",
		Short: "Activate a power-up (use --claim to grab a spawned one)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := args[0]
			action := "trigger"
			if claim {
				action = "click"
			}
			var b game.ActiveBoost
			ok, err := e.mutate(cmd, http.MethodPost, "/v1/powerups/"+url.PathEscape(id)+"/"+action, nil,
				func(ctx context.Context, idem string) error {
					var err error
					if claim {
						b, err = e.client().ClickPowerup(ctx, id, idem)
					} else {
						b, err = e.client().TriggerPowerup(ctx, id, idem)
					}
					return err
				})
			if err != nil || !ok {
				return err
			}
			left := time.Until(time.UnixMilli(b.EndTime)).Round(time.Second)
			printSuccess(fmt.Sprintf("%s active: x%g for %s", b.Name, b.Magnitude, left))
			return nil
		},
	}
	cmd.Flags().BoolVar(&claim, "claim", false, "claim a spawned power-up instead of triggering directly")
	return cmd
}

func newSaveCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "save",
		Short: "Persist the server's game now",
		RunE: func(cmd *cobra.Command, args []string) error {
			ok, err := e.mutate(cmd, http.MethodPost, "/v1/save", nil, func(ctx context.Context, idem string) error {
				return e.client().Save(ctx, idem)
			})
			if err != nil || !ok {
				return err
			}
			printSuccess("Game saved.")
			return nil
		},
	}
}

func newLoadCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "load",
		Short: "Reload the server's game from its save",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := requestCtx(cmd)
			defer cancel()
			res, err := e.client().Load(ctx, uuid.NewString())
			if err != nil {
				return err
			}
			renderLoadResult(res)
			return nil
		},
	}
}

func newResetCmd(e *env) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Delete the save and start over",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				answer, err := promptChoice("This wipes all progress. Continue?", []string{"yes", "no"}, "no")
				if err != nil {
					return err
				}
				if answer != "yes" {
					printInfo("Reset cancelled.")
					return nil
				}
			}
			ctx, cancel := requestCtx(cmd)
			defer cancel()
			if err := e.client().Reset(ctx, uuid.NewString()); err != nil {
				return err
			}
			printSuccess("Game reset.")
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip the confirmation prompt")
	return cmd
}

func newPauseCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "pause",
		Short: "Pause the server's game loop",
		RunE: func(cmd *cobra.Command, args []string) error {
			ok, err := e.mutate(cmd, http.MethodPost, "/v1/game/pause", nil, func(ctx context.Context, idem string) error {
				return e.client().Pause(ctx, idem)
			})
			if err != nil || !ok {
				return err
			}
			printWarn("Game paused.")
			return nil
		},
	}
}

func newResumeCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "resume",
		Short: "Resume the server's game loop",
		RunE: func(cmd *cobra.Command, args []string) error {
			ok, err := e.mutate(cmd, http.MethodPost, "/v1/game/resume", nil, func(ctx context.Context, idem string) error {
				return e.client().Resume(ctx, idem)
			})
			if err != nil || !ok {
				return err
			}
			printSuccess("Game resumed.")
			return nil
		},
	}
}

func newSyncCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Replay writes queued while the API was unreachable",
		RunE: func(cmd *cobra.Command, args []string) error {
			q := e.queue()
			pending, err := q.Load()
			if err != nil {
				return err
			}
			if len(pending) == 0 {
				printInfo("Sync queue is empty.")
				return nil
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 60*time.Second)
			defer cancel()
			client := e.client()

			dropped := 0
			sent, err := q.Drain(func(c syncq.Command) error {
				_, err := client.Do(ctx, c.Method, c.Path, c.Body, c.IdempotencyKey)
				if err != nil && !cl.IsNetworkError(err) {
					// The API answered; retrying the same write cannot succeed.
					printError(fmt.Sprintf("Dropped %s %s: %v", c.Method, c.Path, err))
					dropped++
					return nil
				}
				return err
			})
			if err != nil {
				printError(fmt.Sprintf("Sync stopped: %v", err))
			}
			remaining, _ := q.Load()
			printSuccess(fmt.Sprintf("Sync complete: replayed=%d dropped=%d remaining=%d", sent-dropped, dropped, len(remaining)))
			return nil
		},
	}
}

func newPlayCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "play",
		Short: "Play locally in the terminal (saves to LEADRUSH_SAVE_DIR)",
		RunE: func(cmd *cobra.Command, args []string) error {
			fs, err := store.NewFileStore(e.cfg.SaveDir)
			if err != nil {
				return err
			}
			// The terminal belongs to the UI, so logs go to a file next to the save.
			logFile, err := os.OpenFile(filepath.Join(e.cfg.SaveDir, "leadrush.log"), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
			if err != nil {
				return err
			}
			defer logFile.Close()
			logger := slog.New(slog.NewTextHandler(logFile, &slog.HandlerOptions{Level: e.cfg.LogLevel}))

			g := game.NewGame(game.DefaultCatalog(), logger, game.WithTickInterval(e.cfg.TickEvery))
			res, err := g.Load(cmd.Context(), fs)
			if err != nil {
				return err
			}
			if res.Corrupt {
				printWarn("Save file was unreadable; starting a new game.")
			}

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()
			done := make(chan struct{})
			go func() {
				defer close(done)
				_ = g.Run(ctx, game.Drivers{
					SpawnEvery:    game.DefaultSpawnInterval,
					AutosaveEvery: 30 * time.Second,
					Store:         fs,
				})
			}()

			uiErr := tui.Run(ctx, tui.New(g, fs, logger))
			cancel()
			<-done
			if uiErr != nil {
				return uiErr
			}
			printSuccess("Progress saved to " + fs.Dir)
			return nil
		},
	}
}

func newSimCmd(e *env) *cobra.Command {
	var (
		duration time.Duration
		autobuy  bool
		fromSave bool
	)
	cmd := &cobra.Command{
		Use:   "sim",
		Short: "Fast-forward a local game headlessly and print a summary",
		RunE: func(cmd *cobra.Command, args []string) error {
			if duration <= 0 {
				return fmt.Errorf("--duration must be > 0")
			}
			logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: e.cfg.LogLevel}))
			opts := simOptions{Duration: duration, Step: e.cfg.TickEvery, AutoBuy: autobuy}
			if fromSave {
				fs, err := store.NewFileStore(e.cfg.SaveDir)
				if err != nil {
					return err
				}
				opts.Store = fs
			}
			sum, err := simulate(cmd.Context(), logger, opts)
			if err != nil {
				return err
			}
			renderSimSummary(sum)
			return nil
		},
	}
	cmd.Flags().DurationVar(&duration, "duration", time.Hour, "simulated play time")
	cmd.Flags().BoolVar(&autobuy, "autobuy", true, "buy the cheapest affordable building every simulated second")
	cmd.Flags().BoolVar(&fromSave, "from-save", false, "start from the local save instead of a new game (the save is not modified)")
	return cmd
}
