package pricing

import (
	"errors"
	"fmt"
	"os"

	"anoa.com/coinexchange/internal/entity"
	"gopkg.in/yaml.v3"
)

const (
	RoundFloor  = "floor"
	RoundHalfUp = "half_up"

	bpsDenominator = 10000
)

// Table is the admin-configurable price and point table handed to the services at
// construction.
type Table struct {
	Costs             map[entity.ActionKind]int64 `yaml:"costs"`
	Points            map[entity.ActionKind]int64 `yaml:"points"`
	EvidenceThreshold int64                       `yaml:"evidence_threshold"`
	PrimaryShareBps   int64                       `yaml:"primary_share_bps"`
	SecondaryShareBps int64                       `yaml:"secondary_share_bps"`
	Rounding          string                      `yaml:"rounding"`
	DefaultBalance    int64                       `yaml:"default_balance"`
	CommentMinWords   int                         `yaml:"comment_min_words"`
	// Packages maps a purchasable coin amount to its price in cents.
	Packages map[int64]int64 `yaml:"packages"`
}

func Default() *Table {
	costs := map[entity.ActionKind]int64{
		entity.ActionLike:       1,
		entity.ActionFollow:     5,
		entity.ActionComment:    6,
		entity.ActionStoryShare: 10,
		entity.ActionReelView:   5,
		entity.ActionSave:       5,
		entity.ActionDMSend:     1,
	}
	points := make(map[entity.ActionKind]int64, len(costs))
	for k, v := range costs {
		points[k] = v
	}

	return &Table{
		Costs:             costs,
		Points:            points,
		EvidenceThreshold: 5,
		PrimaryShareBps:   2500,
		SecondaryShareBps: 1250,
		Rounding:          RoundFloor,
		DefaultBalance:    10,
		CommentMinWords:   6,
		Packages: map[int64]int64{
			100:  500,
			250:  1000,
			500:  1800,
			1000: 3000,
		},
	}
}

// Load overlays the YAML file at path on the defaults. An empty path returns the defaults.
func Load(path string) (*Table, error) {
	t := Default()
	if path == "" {
		return t, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read pricing file: %w", err)
	}

	var o overlay
	if err := yaml.Unmarshal(raw, &o); err != nil {
		return nil, fmt.Errorf("parse pricing file: %w", err)
	}
	t.merge(&o)

	if err := t.Validate(); err != nil {
		return nil, err
	}
	return t, nil
}

// overlay is the pricing file shape. Scalars are pointers so an explicit zero is
// applied (and validated) instead of being mistaken for an absent key.
type overlay struct {
	Costs             map[entity.ActionKind]int64 `yaml:"costs"`
	Points            map[entity.ActionKind]int64 `yaml:"points"`
	EvidenceThreshold *int64                      `yaml:"evidence_threshold"`
	PrimaryShareBps   *int64                      `yaml:"primary_share_bps"`
	SecondaryShareBps *int64                      `yaml:"secondary_share_bps"`
	Rounding          *string                     `yaml:"rounding"`
	DefaultBalance    *int64                      `yaml:"default_balance"`
	CommentMinWords   *int                        `yaml:"comment_min_words"`
	Packages          map[int64]int64             `yaml:"packages"`
}

func (t *Table) merge(o *overlay) {
	for k, v := range o.Costs {
		t.Costs[k] = v
	}
	for k, v := range o.Points {
		t.Points[k] = v
	}
	if o.EvidenceThreshold != nil {
		t.EvidenceThreshold = *o.EvidenceThreshold
	}
	if o.PrimaryShareBps != nil {
		t.PrimaryShareBps = *o.PrimaryShareBps
	}
	if o.SecondaryShareBps != nil {
		t.SecondaryShareBps = *o.SecondaryShareBps
	}
	if o.Rounding != nil {
		t.Rounding = *o.Rounding
	}
	if o.DefaultBalance != nil {
		t.DefaultBalance = *o.DefaultBalance
	}
	if o.CommentMinWords != nil {
		t.CommentMinWords = *o.CommentMinWords
	}
	if o.Packages != nil {
		t.Packages = o.Packages
	}
}

func (t *Table) Validate() error {
	var errs []error
	for _, k := range entity.ActionKinds {
		if c, ok := t.Costs[k]; !ok || c <= 0 {
			errs = append(errs, fmt.Errorf("cost for %s must be positive", k))
		}
		if p, ok := t.Points[k]; !ok || p < 0 {
			errs = append(errs, fmt.Errorf("points for %s must be set and non-negative", k))
		}
	}
	for k := range t.Costs {
		if _, ok := entity.ParseActionKind(string(k)); !ok {
			errs = append(errs, fmt.Errorf("unknown action kind %q", k))
		}
	}
	if t.EvidenceThreshold <= 0 {
		errs = append(errs, errors.New("evidence_threshold must be positive"))
	}
	if t.PrimaryShareBps < 0 || t.PrimaryShareBps > bpsDenominator {
		errs = append(errs, errors.New("primary_share_bps must be within 0..10000"))
	}
	if t.SecondaryShareBps < 0 || t.SecondaryShareBps > bpsDenominator {
		errs = append(errs, errors.New("secondary_share_bps must be within 0..10000"))
	}
	if t.Rounding != RoundFloor && t.Rounding != RoundHalfUp {
		errs = append(errs, fmt.Errorf("unsupported rounding %q", t.Rounding))
	}
	if t.DefaultBalance < 0 {
		errs = append(errs, errors.New("default_balance must not be negative"))
	}
	if t.CommentMinWords < 0 {
		errs = append(errs, errors.New("comment_min_words must not be negative"))
	}
	for coins, price := range t.Packages {
		if coins <= 0 || price <= 0 {
			errs = append(errs, fmt.Errorf("invalid package %d=%d", coins, price))
		}
	}
	return errors.Join(errs...)
}

func (t *Table) Cost(kind entity.ActionKind) int64 {
	return t.Costs[kind]
}

func (t *Table) PointsFor(kind entity.ActionKind) int64 {
	return t.Points[kind]
}

func (t *Table) RequiresEvidence(cost int64) bool {
	return cost >= t.EvidenceThreshold
}

// Earning is the performer's share of cost for the acting slot, computed in integer
// basis points and rounded by the table's rounding mode.
func (t *Table) Earning(cost int64, slot entity.ProfileSlot) int64 {
	bps := t.PrimaryShareBps
	if slot.IsSecondary() {
		bps = t.SecondaryShareBps
	}

	scaled := cost * bps
	if t.Rounding == RoundHalfUp {
		return (scaled + bpsDenominator/2) / bpsDenominator
	}
	return scaled / bpsDenominator
}

func (t *Table) PackagePrice(coins int64) (int64, bool) {
	price, ok := t.Packages[coins]
	return price, ok
}
