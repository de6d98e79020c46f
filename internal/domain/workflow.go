package domain

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"slices"
	"sort"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"zest.dev/pkg/zest/internal/adapter"
	"zest.dev/pkg/zest/internal/controller"
	m "zest.dev/pkg/zest/internal/model"
	"zest.dev/pkg/zest/pkg"
)

// RunArgs contains the arguments for running the registered suites.
type RunArgs struct {
	Selection m.Selection
	// Seed is used when SeedSet is true, otherwise a random seed is drawn.
	Seed    uint64
	SeedSet bool
	Shuffle bool
	// Parallel bounds how many root suites run at once.
	Parallel int
	// Output is the result directory; empty disables persistence.
	Output  m.Path
	TmpRoot m.Path
}

// ListArgs contains the arguments for previewing the selection.
type ListArgs struct {
	Selection m.Selection
	Seed      uint64
	SeedSet   bool
	Shuffle   bool
	Output    m.Path
}

// ViewArgs contains the arguments for showing stored results.
type ViewArgs struct {
	Output     m.Path
	FailedOnly bool
}

// Workflow drives the engine over the registered root suites.
type Workflow interface {
	Run(ctx context.Context, args RunArgs) (m.Counts, error)
	List(ctx context.Context, args ListArgs) error
	View(ctx context.Context, args ViewArgs) error
}

type workflow struct {
	adapter.ResultStore
	controller.UI
	Engine

	registry *Registry
}

// NewWorkflow creates a new Workflow instance with the provided dependencies.
func NewWorkflow(
	fsAdapter adapter.FSAdapter,
	resultStore adapter.ResultStore,
	ui controller.UI,
	registry *Registry,
) Workflow {
	return &workflow{
		ResultStore: resultStore,
		UI:          ui,
		Engine:      NewEngine(fsAdapter, ui),
		registry:    registry,
	}
}

func (w *workflow) Run(ctx context.Context, args RunArgs) (m.Counts, error) {
	selection, err := w.resolveSelection(args.Output, args.Selection)
	if err != nil {
		return m.Counts{}, err
	}

	seed := resolveSeed(args.Seed, args.SeedSet)
	roots := w.registry.Roots()

	parallel := args.Parallel
	if parallel < 1 {
		parallel = 1
	}

	if err := w.Start(ctx, controller.WithRunMode()); err != nil {
		slog.Error("Failed to start workflow UI", "error", err)
		return m.Counts{}, err
	}
	defer w.Close(ctx)

	w.DisplayRunInfo(ctx, controller.RunInfo{
		Seed:     seed,
		Shuffled: args.Shuffle,
		Roots:    len(roots),
		Parallel: parallel,
	})

	journal, err := pkg.OpenJournal[m.Run]("")
	if err != nil {
		return m.Counts{}, fmt.Errorf("create run journal: %w", err)
	}

	defer func() {
		if err := journal.Discard(); err != nil {
			slog.Warn("Failed to remove run journal", "path", journal.Path(), "error", err)
		}
	}()

	started := time.Now()

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(parallel)

	for _, root := range roots {
		group.Go(func() error {
			run := w.runRoot(groupCtx, root, seed, args, selection)
			if run.Root == nil {
				return nil
			}

			if err := journal.Append(run); err != nil {
				return fmt.Errorf("journal %s: %w", root.Name, err)
			}

			return nil
		})
	}

	if err := group.Wait(); err != nil {
		slog.Error("Failed to run root suites", "error", err)
		return m.Counts{}, err
	}

	runs, err := w.collect(journal, roots)
	if err != nil {
		return m.Counts{}, err
	}

	var counts m.Counts

	for _, run := range runs {
		counts = counts.Add(m.Tally(run.Root))

		if args.Output == "" {
			continue
		}

		if err := w.Save(args.Output, run); err != nil {
			return counts, fmt.Errorf("save results of %s: %w", run.Root.Name, err)
		}
	}

	w.DisplayResults(ctx, runs)
	w.DisplaySummary(ctx, counts, time.Since(started))

	slog.Info("run finished", "seed", seed, "pass", counts.Pass, "fail", counts.Fail,
		"error", counts.Error, "skipped", counts.Skipped)

	return counts, nil
}

// runRoot builds and executes one root suite with its own context.
func (w *workflow) runRoot(ctx context.Context, root Root, seed uint64, args RunArgs, selection m.Selection) m.Run {
	ic := NewInvocationContext(
		WithSeed(seed),
		WithShuffle(args.Shuffle),
		WithSelection(selection),
		WithTmpRoot(args.TmpRoot),
	)

	started := time.Now()
	tree := w.Discover(ic, root)
	result := w.Execute(ctx, ic, tree)

	return m.Run{
		ID:       uuid.NewString(),
		Seed:     seed,
		Shuffled: args.Shuffle,
		Started:  started,
		Root:     result,
	}
}

// collect reads the journal back in registration order and seals every
// result.
func (w *workflow) collect(journal pkg.Journal[m.Run], roots []Root) ([]m.Run, error) {
	position := make(map[string]int, len(roots))
	for i, root := range roots {
		position[root.Name] = i
	}

	runs := make([]m.Run, 0, journal.Len())

	err := journal.Replay(func(_ int, run m.Run) error {
		run.Root.Seal()
		runs = append(runs, run)

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("read run journal: %w", err)
	}

	sort.SliceStable(runs, func(i, j int) bool {
		return position[runs[i].Root.Name] < position[runs[j].Root.Name]
	})

	return runs, nil
}

func (w *workflow) List(ctx context.Context, args ListArgs) error {
	selection, err := w.resolveSelection(args.Output, args.Selection)
	if err != nil {
		return err
	}

	seed := resolveSeed(args.Seed, args.SeedSet)

	if err := w.Start(ctx, controller.WithPreviewMode()); err != nil {
		slog.Error("Failed to start workflow UI", "error", err)
		return err
	}
	defer w.Close(ctx)

	var plan []controller.PlannedTest

	for _, root := range w.registry.Roots() {
		ic := NewInvocationContext(WithSeed(seed), WithShuffle(args.Shuffle), WithSelection(selection))
		tree := w.Discover(ic, root)

		if tree.BuildErr != nil {
			slog.Warn("suite failed to build", "root", root.Name, "error", tree.BuildErr)
		}

		for _, leaf := range w.Plan(ic, tree) {
			plan = append(plan, plannedTest(leaf, selection))
		}
	}

	if err := w.DisplayPreview(ctx, plan); err != nil {
		slog.Error("Failed to display preview", "error", err)
		return fmt.Errorf("display: %w", err)
	}

	w.Wait(ctx)

	return nil
}

func plannedTest(leaf *TestNode, selection m.Selection) controller.PlannedTest {
	planned := controller.PlannedTest{
		FullName: leaf.FullName(),
		Groups:   leaf.EffectiveGroups(),
	}

	for cur := leaf; cur != nil; cur = cur.Parent {
		if cur.Skip && !selection.Bypass(cur.FullName()) {
			planned.Skip = true
			planned.SkipReason = cur.SkipReason

			break
		}
	}

	return planned
}

func (w *workflow) View(ctx context.Context, args ViewArgs) error {
	runs, err := w.LoadAll(args.Output)
	if err != nil {
		slog.Error("Failed to load results", "path", args.Output, "error", err)
		return fmt.Errorf("load results: %w", err)
	}

	if args.FailedOnly {
		runs = slices.DeleteFunc(runs, func(run m.Run) bool {
			return !run.Root.AnyFailed()
		})
	}

	if err := w.Start(ctx, controller.WithViewMode()); err != nil {
		slog.Error("Failed to start workflow UI", "error", err)
		return err
	}
	defer w.Close(ctx)

	if err := w.DisplayStored(ctx, runs); err != nil {
		slog.Error("Failed to display results", "error", err)
		return fmt.Errorf("display: %w", err)
	}

	w.Wait(ctx)

	return nil
}

// resolveSelection expands AllowFailed into the failed leaves of the stored
// results.
func (w *workflow) resolveSelection(output m.Path, selection m.Selection) (m.Selection, error) {
	if !slices.Contains(selection.Allow, m.AllowFailed) {
		return selection, nil
	}

	runs, err := w.LoadAll(output)
	if err != nil {
		slog.Error("Failed to load previous results", "path", output, "error", err)
		return selection, fmt.Errorf("load previous results: %w", err)
	}

	allow := slices.DeleteFunc(slices.Clone(selection.Allow), func(name string) bool {
		return name == m.AllowFailed
	})

	var failed []string
	for _, run := range runs {
		failed = append(failed, run.FailedNames()...)
	}

	if len(failed) == 0 && len(allow) == 0 {
		slog.Info("no failed tests in previous results", "path", output)
		// Keep the marker so that nothing is allowed.
		allow = []string{m.AllowFailed}
	}

	selection.Allow = append(allow, failed...)

	return selection, nil
}

func resolveSeed(seed uint64, set bool) uint64 {
	if set {
		return seed
	}

	return rand.Uint64()
}
