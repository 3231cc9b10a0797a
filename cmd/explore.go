// -- cmd/explore.go --
package cmd

import (
	"context"
	"errors"
	"math/rand"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/codealphago/ai2thor/internal/config"
	"github.com/codealphago/ai2thor/internal/controller"
	"github.com/codealphago/ai2thor/internal/explore"
	"github.com/codealphago/ai2thor/internal/nav"
	"github.com/codealphago/ai2thor/internal/observability"
	"github.com/codealphago/ai2thor/internal/scene"
	"github.com/codealphago/ai2thor/internal/store"
	"github.com/codealphago/ai2thor/internal/survey"
	"github.com/codealphago/ai2thor/internal/transport"
)

var (
	exploreScene   string
	exploreSeedRun string
	exploreSurvey  bool
)

var exploreCmd = &cobra.Command{
	Use:   "explore",
	Short: "Map the reachable grid of a scene and survey object visibility.",
	Long: `Starts the engine-facing endpoint, waits for the simulation engine to
connect, then runs breadth-first reachability discovery followed by the
visibility survey. Results are persisted to the configured SQLite database.

The engine process itself is launched externally; point it at the endpoint
address and client token this command logs at startup.`,
	RunE: runExplore,
}

func init() {
	exploreCmd.Flags().StringVar(&exploreScene, "scene", "", "scene to explore (defaults to exploration.scene)")
	exploreCmd.Flags().StringVar(&exploreSeedRun, "seed-run", "", "seed the frontier from a stored run's grid instead of the spawn pose")
	exploreCmd.Flags().BoolVar(&exploreSurvey, "survey", true, "run the visibility survey after exploration")
	rootCmd.AddCommand(exploreCmd)
}

func runExplore(cmd *cobra.Command, args []string) error {
	log := observability.GetLogger()
	cfg := appCfg

	sceneName := exploreScene
	if sceneName == "" {
		sceneName = cfg.Exploration.Scene
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := store.Open(ctx, cfg.Store.Path, log)
	if err != nil {
		return err
	}
	defer st.Close()

	ctrl := controller.New(log, controller.WithRateLimit(cfg.Engine.ActionsPerSecond))
	srv := transport.NewServer(cfg.Engine, ctrl, log)
	// Bind before the goroutines fork so the planner can log the endpoint.
	if err := srv.Listen(); err != nil {
		return err
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gctx := errgroup.WithContext(runCtx)
	g.Go(func() error {
		return srv.Start(gctx)
	})
	g.Go(func() error {
		// The planner owns the run end to end; once it returns, the engine
		// endpoint has nothing left to serve.
		defer cancel()
		return runPlanner(gctx, runParams{cfg: cfg, scene: sceneName, seedRun: exploreSeedRun, survey: exploreSurvey}, ctrl, srv, st, log)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// runParams bundles the per-run parameters so runPlanner stays a single
// sequential narrative.
type runParams struct {
	cfg     *config.Config
	scene   string
	seedRun string
	survey  bool
}

func runPlanner(ctx context.Context, run runParams, ctrl *controller.Controller, srv *transport.Server, st *store.Store, log *zap.Logger) error {
	cfg := run.cfg

	log.Info("Waiting for engine to connect.",
		zap.String("endpoint", srv.Addr()),
		zap.String("client_token", srv.Token()))
	if _, err := ctrl.AwaitLaunch(ctx); err != nil {
		return err
	}

	explorer := explore.New(ctrl, cfg.Exploration.GridSize, cfg.Exploration.HeightCeiling, log)

	if run.seedRun != "" {
		grid, err := st.LoadGrid(ctx, run.seedRun)
		if err != nil {
			return err
		}
		setup := func(ctx context.Context, session explore.Session) error {
			if cfg.Exploration.Randomize {
				var seed *uint32
				if cfg.Exploration.RandomSeed != 0 {
					s := cfg.Exploration.RandomSeed
					seed = &s
				}
				action := scene.RandomInitializeAction(session.LastEvent(), nil, scene.RandomizeOptions{
					Seed:              seed,
					UniqueObjectTypes: true,
				})
				ev, err := session.Step(ctx, action)
				if err != nil {
					return err
				}
				if !ev.Metadata.LastActionSuccess {
					log.Warn("Layout randomization failed; continuing with the default layout.",
						zap.String("error", ev.Metadata.ErrorMessage))
				}
			}
			rng := rand.New(rand.NewSource(int64(cfg.Exploration.RandomSeed)))
			targets, err := scene.InitializeTargets(ctx, session, rng)
			if err != nil {
				return err
			}
			log.Info("Scene targets initialized.",
				zap.Strings("targets", targets.TargetObjects),
				zap.Strings("open_receptacles", targets.OpenReceptacles))
			return nil
		}
		if err := explorer.StartSearch(ctx, run.scene, grid, setup); err != nil {
			return err
		}
	} else {
		if err := explorer.SearchAllClosed(ctx, run.scene); err != nil {
			return err
		}
	}

	gridPoints := explorer.GridPoints()
	if explorer.HasIslands() {
		log.Warn("Discovered grid is disconnected; paths across islands are impossible.")
	}
	graph := nav.Build(gridPoints, cfg.Exploration.GridSize)
	log.Info("Reachability graph built.",
		zap.Int("nodes", graph.Len()),
		zap.Bool("connected", graph.Connected()))

	rec := &store.RunRecord{
		ID:         uuid.New().String(),
		Scene:      run.scene,
		GridSize:   cfg.Exploration.GridSize,
		GridPoints: gridPoints,
	}

	if run.survey {
		surveyor := survey.New(ctrl, log)
		pivots, receptacles, err := surveyor.FindVisibleReceptacles(ctx, gridPoints)
		if err != nil {
			return err
		}
		sightings, err := surveyor.FindVisibleObjects(ctx, gridPoints)
		if err != nil {
			return err
		}
		rec.PivotAnchors = pivots
		rec.ReceptacleAnchors = receptacles
		rec.Sightings = sightings
	}

	if err := st.SaveRun(ctx, rec); err != nil {
		return err
	}
	log.Info("Exploration run complete.", zap.String("run_id", rec.ID))
	return nil
}
