package pipeline

import (
	"context"
	"slices"

	"github.com/google/uuid"

	"github.com/TheoremOne-Talent/skills-extractor/internal/domain"
	"github.com/TheoremOne-Talent/skills-extractor/internal/logger"
	"github.com/TheoremOne-Talent/skills-extractor/internal/taxonomy"
)

// State is everything the driver has accumulated: the raw skill pool in
// first-seen order and the raw entities seen so far.
type State struct {
	Skills   []string
	Entities []domain.Entity
}

// Published is what one step makes visible.
type Published struct {
	Index int
	Name  string
	// Skills is the row's canonical skills as of this step, joined for
	// display. Later steps may re-cluster and disagree with it.
	Skills    string
	Clustered bool
	Taxonomy  []string
	// Table is every entity seen so far, mapped with this step's pass.
	Table []domain.Entity

	pass Pass
}

// Result is the terminal state of a run.
type Result struct {
	RunID    string
	State    State
	Taxonomy []string
	Entities []domain.Entity
	Pass     Pass
}

// Collect builds the terminal result from the final state and the output
// of the step that produced it.
func Collect(runID string, st State, last Published) Result {
	return Result{
		RunID:    runID,
		State:    st,
		Taxonomy: last.Taxonomy,
		Entities: last.Table,
		Pass:     last.pass,
	}
}

// Driver re-canonicalizes the whole accumulated pool after every row.
type Driver struct {
	extractor domain.Extractor
	canon     *Canonicalizer
	log       *logger.Logger
}

func NewDriver(extractor domain.Extractor, canon *Canonicalizer, log *logger.Logger) *Driver {
	if log == nil {
		log = logger.NewDiscard()
	}
	return &Driver{extractor: extractor, canon: canon, log: log}
}

// Step extracts the row's skills, re-clusters the grown pool and remaps
// every entity. On error the input state is returned unchanged.
func (d *Driver) Step(ctx context.Context, st State, row domain.SkillSetRow) (State, Published, error) {
	next, pass, err := d.advance(ctx, st, row)
	if err != nil {
		return st, Published{}, err
	}
	table, unmapped := pass.Map.ApplyAll(next.Entities)
	if unmapped > 0 {
		d.log.Debug("row %d: %d skills outside the clustered pool", len(st.Entities), unmapped)
	}
	current := table[len(table)-1]
	return next, Published{
		Index:     len(st.Entities),
		Name:      current.Name,
		Skills:    taxonomy.Join(current.Skills),
		Clustered: pass.Clustered,
		Taxonomy:  pass.Taxonomy,
		Table:     table,
		pass:      pass,
	}, nil
}

func (d *Driver) advance(ctx context.Context, st State, row domain.SkillSetRow) (State, Pass, error) {
	if err := ctx.Err(); err != nil {
		return st, Pass{}, err
	}
	raw := clean(d.extractor.Extract(ctx, row.SkillSet))
	next := State{
		Skills:   Distinct(st.Skills, raw),
		Entities: append(slices.Clone(st.Entities), domain.Entity{Name: row.Name, Skills: raw}),
	}
	pass, err := d.canon.Canonicalize(ctx, next.Skills)
	if err != nil {
		return st, Pass{}, err
	}
	return next, pass, nil
}

// Run folds Step over rows and returns the final pass. onStep, when set,
// sees every published row in order.
func (d *Driver) Run(ctx context.Context, rows []domain.SkillSetRow, onStep func(Published)) (Result, error) {
	res := Result{RunID: uuid.NewString()}
	log := d.log.With("[run " + res.RunID[:8] + "]")
	log.Info("processing %d rows", len(rows))

	st := State{}
	var last Published
	for _, row := range rows {
		next, pub, err := d.Step(ctx, st, row)
		if err != nil {
			log.Error("row %d (%s): %v", len(st.Entities), row.Name, err)
			return res, err
		}
		st, last = next, pub
		if onStep != nil {
			onStep(pub)
		}
	}

	res = Collect(res.RunID, st, last)
	log.Info("%d skills canonicalized into %d", len(st.Skills), len(res.Taxonomy))
	return res, nil
}
