// Package validation implements the priority-ordered rule chain that
// decides whether a choice is a legal transition from the current node.
package validation

import (
	"fmt"
	"sort"

	"github.com/arborlabs/arbor/pkg/domain"
)

// Rule is a single validation step. Rules run in ascending priority order
// and the first failure short-circuits the remaining chain for that choice.
type Rule interface {
	Name() string
	Priority() int
	Check(choice *domain.Choice, vctx *domain.ValidationContext) *domain.RuleFailure
}

// Gate is the condition-expression check AND'ed with the rule chain during
// filtering. It is independent of the structured requirements: a choice is
// visible only if both mechanisms pass.
type Gate func(choice *domain.Choice) (bool, error)

// Pipeline holds the rule registry. The built-in rules occupy priorities
// 10-50; callers may register additional rules at arbitrary priorities or
// remove rules by name.
type Pipeline struct {
	rules []Rule
}

// NewPipeline creates a pipeline with the built-in rule chain installed.
func NewPipeline() *Pipeline {
	p := &Pipeline{}
	p.Register(existenceRule{})
	p.Register(flagRequirementsRule{})
	p.Register(enabledRule{})
	p.Register(timeWindowRule{})
	p.Register(inventoryRule{})
	return p
}

// Register adds a rule, keeping the chain sorted by priority. Registration
// order breaks ties.
func (p *Pipeline) Register(rule Rule) {
	p.rules = append(p.rules, rule)
	sort.SliceStable(p.rules, func(i, j int) bool {
		return p.rules[i].Priority() < p.rules[j].Priority()
	})
}

// Remove deletes the first rule with the given name. It reports whether a
// rule was removed.
func (p *Pipeline) Remove(name string) bool {
	for i, rule := range p.rules {
		if rule.Name() == name {
			p.rules = append(p.rules[:i], p.rules[i+1:]...)
			return true
		}
	}
	return false
}

// Rules returns the names of the registered rules in execution order.
func (p *Pipeline) Rules() []string {
	names := make([]string, len(p.rules))
	for i, rule := range p.rules {
		names[i] = rule.Name()
	}
	return names
}

// ValidateOne runs the chain against a single choice, stopping at the
// first failing rule.
func (p *Pipeline) ValidateOne(choice *domain.Choice, vctx *domain.ValidationContext) domain.ValidationResult {
	for _, rule := range p.rules {
		if failure := rule.Check(choice, vctx); failure != nil {
			return domain.ValidationResult{
				Valid:            false,
				Reason:           fmt.Sprintf("%s: %s", rule.Name(), failure.Reason),
				FailedConditions: failure.Conditions,
				Alternatives:     p.alternatives(choice, vctx),
			}
		}
	}
	return domain.ValidationResult{Valid: true}
}

// Filter returns the choices that pass both the rule chain and the
// condition gate. Per-choice failures, including gate errors from
// malformed expressions, are absorbed: the choice is excluded and the pass
// as a whole always succeeds.
func (p *Pipeline) Filter(choices []domain.Choice, vctx *domain.ValidationContext, gate Gate) []domain.Choice {
	visible := make([]domain.Choice, 0, len(choices))
	for i := range choices {
		choice := &choices[i]
		if result := p.ValidateOne(choice, vctx); !result.Valid {
			continue
		}
		if gate != nil {
			ok, err := gate(choice)
			if err != nil || !ok {
				continue
			}
		}
		visible = append(visible, *choice)
	}
	return visible
}

// alternatives lists the other enabled choices on the node.
func (p *Pipeline) alternatives(failed *domain.Choice, vctx *domain.ValidationContext) []string {
	if vctx.Node == nil {
		return nil
	}
	var alts []string
	for i := range vctx.Node.Choices {
		c := &vctx.Node.Choices[i]
		if c.Text == failed.Text && c.Target == failed.Target {
			continue
		}
		if c.IsEnabled() {
			alts = append(alts, c.Text)
		}
	}
	return alts
}
