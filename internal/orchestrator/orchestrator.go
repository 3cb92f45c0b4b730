// Package orchestrator drives one end-to-end generation pass: it walks the
// ledger's image and video queues in ascending scene order, rotating through
// the account pool and invoking the generation collaborator for each job.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/voxreel/voxreel/internal/ledger"
	"github.com/voxreel/voxreel/internal/pool"
)

// Generator is the external generation collaborator. flowslab.Client
// implements it; tests supply a fake.
type Generator interface {
	Login(ctx context.Context, acct *pool.Account) error
	GenerateImage(ctx context.Context, prompt string, refImages []string, outputPath string) error
	GenerateVideo(ctx context.Context, prompt, sourceImage, outputPath string) error
}

// Paths resolves artifact output locations per scene. project.Project
// implements it.
type Paths interface {
	ImagePath(sceneID int) string
	VideoPath(sceneID int) string
}

// Config holds the collaborators for one pass.
type Config struct {
	Accounts  *pool.Pool[*pool.Account]
	Ledger    *ledger.Ledger
	Generator Generator
	Paths     Paths

	// RefImages are character reference images uploaded with every image
	// generation for visual consistency.
	RefImages []string

	// OnlyImage / OnlyVideo restrict the pass to a single stage.
	OnlyImage bool
	OnlyVideo bool

	Logger *slog.Logger
}

// Report summarizes one pass.
type Report struct {
	Processed int `json:"processed" yaml:"processed"`
	Succeeded int `json:"succeeded" yaml:"succeeded"`
	Errored   int `json:"errored" yaml:"errored"`

	// Exhausted is set when the pass stopped because no usable account
	// remained while jobs were still queued. Not an error: the jobs stay
	// pending for the next run.
	Exhausted bool `json:"exhausted" yaml:"exhausted"`
}

// Orchestrator owns the account pool and the ledger for the duration of a
// pass. Nothing else mutates them while Run is in flight.
type Orchestrator struct {
	accounts  *pool.Pool[*pool.Account]
	ledger    *ledger.Ledger
	gen       Generator
	paths     Paths
	refImages []string
	onlyImage bool
	onlyVideo bool
	logger    *slog.Logger
}

// New validates cfg and builds an Orchestrator.
func New(cfg Config) (*Orchestrator, error) {
	if cfg.Accounts == nil {
		return nil, fmt.Errorf("orchestrator: account pool is required")
	}
	if cfg.Ledger == nil {
		return nil, fmt.Errorf("orchestrator: ledger is required")
	}
	if cfg.Generator == nil {
		return nil, fmt.Errorf("orchestrator: generator is required")
	}
	if cfg.Paths == nil {
		return nil, fmt.Errorf("orchestrator: paths is required")
	}
	if cfg.OnlyImage && cfg.OnlyVideo {
		return nil, fmt.Errorf("orchestrator: only-image and only-video are mutually exclusive")
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Orchestrator{
		accounts:  cfg.Accounts,
		ledger:    cfg.Ledger,
		gen:       cfg.Generator,
		paths:     cfg.Paths,
		refImages: cfg.RefImages,
		onlyImage: cfg.OnlyImage,
		onlyVideo: cfg.OnlyVideo,
		logger:    cfg.Logger,
	}, nil
}

// Run executes one pass. Individual job failures are recorded in the ledger
// and counted; they never abort the pass. Running out of usable accounts
// ends the pass with Exhausted set. Only persistence failures and context
// cancellation return a non-nil error.
func (o *Orchestrator) Run(ctx context.Context) (Report, error) {
	var rep Report

	// Per-pass memory of jobs already tried, so an errored job is not
	// retried within the same pass.
	attempted := map[ledger.Stage]map[int]bool{
		ledger.StageImage: {},
		ledger.StageVideo: {},
	}

	for {
		if err := ctx.Err(); err != nil {
			return rep, err
		}
		if _, _, ok := o.nextJob(attempted); !ok {
			break
		}

		acct, ok := o.accounts.Next()
		if !ok {
			o.logger.Warn("no more usable accounts, stopping pass",
				"processed", rep.Processed)
			rep.Exhausted = true
			break
		}

		if err := o.gen.Login(ctx, acct); err != nil {
			o.logger.Error("account login failed", "account", acct.ID, "err", err)
			o.accounts.MarkAuth(acct.ID, false)
			continue
		}
		o.accounts.MarkAuth(acct.ID, true)

		// Drain jobs through this account while it stays under quota and
		// under the error budget.
		for o.accounts.Usable(acct.PoolState()) {
			if err := ctx.Err(); err != nil {
				return rep, err
			}
			sc, stage, ok := o.nextJob(attempted)
			if !ok {
				return rep, nil
			}
			attempted[stage][sc.ID] = true

			if err := o.processJob(ctx, acct, sc.ID, stage, &rep); err != nil {
				return rep, err
			}
		}
	}

	return rep, nil
}

// nextJob returns the lowest-id unattempted job, images before videos. A
// video job qualifies only once its scene's image stage is done, so an image
// completed earlier in this same pass immediately feeds the video queue.
func (o *Orchestrator) nextJob(attempted map[ledger.Stage]map[int]bool) (ledger.Scene, ledger.Stage, bool) {
	if !o.onlyVideo {
		for _, sc := range o.ledger.PendingForStage(ledger.StageImage) {
			if attempted[ledger.StageImage][sc.ID] {
				continue
			}
			if sc.ImagePrompt == "" {
				o.logger.Warn("scene has no image prompt, skipping", "scene", sc.ID)
				attempted[ledger.StageImage][sc.ID] = true
				continue
			}
			return sc, ledger.StageImage, true
		}
	}
	if !o.onlyImage {
		for _, sc := range o.ledger.PendingForStage(ledger.StageVideo) {
			if attempted[ledger.StageVideo][sc.ID] {
				continue
			}
			if sc.Image.Status != ledger.StatusDone {
				continue
			}
			if sc.VideoPrompt == "" {
				o.logger.Warn("scene has no video prompt, skipping", "scene", sc.ID)
				attempted[ledger.StageVideo][sc.ID] = true
				continue
			}
			return sc, ledger.StageVideo, true
		}
	}
	return ledger.Scene{}, "", false
}

// processJob runs one generation attempt. The returned error is fatal to the
// pass (persistence failure); generation failures are absorbed into the
// report and the ledger.
func (o *Orchestrator) processJob(ctx context.Context, acct *pool.Account, sceneID int, stage ledger.Stage, rep *Report) error {
	if err := o.ledger.BeginAttempt(sceneID, stage); err != nil {
		var invalid *ledger.InvalidTransitionError
		var missing *ledger.NotFoundError
		if errors.As(err, &invalid) || errors.As(err, &missing) {
			o.logger.Error("skipping job in invalid state",
				"scene", sceneID, "stage", stage, "err", err)
			return nil
		}
		return fmt.Errorf("begin attempt scene %d %s: %w", sceneID, stage, err)
	}

	// Re-read after BeginAttempt: an image completed earlier in this pass
	// must be visible as the video stage's source artifact.
	sc, err := o.ledger.Scene(sceneID)
	if err != nil {
		return err
	}

	var artifact string
	var genErr error
	switch stage {
	case ledger.StageImage:
		artifact = o.paths.ImagePath(sceneID)
		genErr = o.gen.GenerateImage(ctx, sc.ImagePrompt, o.refImages, artifact)
	case ledger.StageVideo:
		artifact = o.paths.VideoPath(sceneID)
		genErr = o.gen.GenerateVideo(ctx, sc.VideoPrompt, sc.Image.Artifact, artifact)
	default:
		return fmt.Errorf("unknown stage %q", stage)
	}

	rep.Processed++
	if genErr != nil {
		o.logger.Error("generation failed",
			"scene", sceneID, "stage", stage, "account", acct.ID, "err", genErr)
		if err := o.ledger.Fail(sceneID, stage); err != nil {
			return fmt.Errorf("record failure scene %d %s: %w", sceneID, stage, err)
		}
		o.accounts.MarkError(acct.ID, genErr.Error())
		rep.Errored++
		return nil
	}

	if err := o.ledger.Complete(sceneID, stage, artifact); err != nil {
		return fmt.Errorf("record completion scene %d %s: %w", sceneID, stage, err)
	}
	o.accounts.MarkUsed(acct.ID, 1)
	rep.Succeeded++
	o.logger.Info("job done",
		"scene", sceneID, "stage", stage, "account", acct.ID, "artifact", artifact)
	return nil
}
