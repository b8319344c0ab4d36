package rules

import (
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"

	"cauciones-alerts/internal/caucion"
)

var (
	// ErrRulesNotFound indicates the rule file does not exist.
	ErrRulesNotFound = errors.New("alert rules file not found")
	// ErrRulesMalformed indicates the rule file could not be parsed or failed validation.
	ErrRulesMalformed = errors.New("alert rules file malformed")
)

// EqualityTolerance is the absolute difference, in percentage points, under which
// two rates compare equal.
var EqualityTolerance = decimal.RequireFromString("0.01")

// Comparison is the operator applied as `current <op> target`.
type Comparison string

const (
	GreaterOrEqual Comparison = ">="
	LessOrEqual    Comparison = "<="
	Greater        Comparison = ">"
	Less           Comparison = "<"
	Equal          Comparison = "=="
)

// ParseComparison validates an operator; empty input defaults to >=.
func ParseComparison(v string) (Comparison, error) {
	switch c := Comparison(strings.TrimSpace(v)); c {
	case "":
		return GreaterOrEqual, nil
	case GreaterOrEqual, LessOrEqual, Greater, Less, Equal:
		return c, nil
	default:
		return "", fmt.Errorf("unknown comparison %q", v)
	}
}

// Holds reports whether current compares to target. Equality is tolerant, the rest are exact.
func (c Comparison) Holds(current, target decimal.Decimal) bool {
	switch c {
	case GreaterOrEqual:
		return current.GreaterThanOrEqual(target)
	case LessOrEqual:
		return current.LessThanOrEqual(target)
	case Greater:
		return current.GreaterThan(target)
	case Less:
		return current.LessThan(target)
	case Equal:
		return current.Sub(target).Abs().LessThan(EqualityTolerance)
	default:
		return false
	}
}

// Verb describes the crossing in alert text.
func (c Comparison) Verb() string {
	if c == GreaterOrEqual || c == Equal || c == Greater {
		return "reached"
	}
	return "dropped to"
}

// Rule is one configured alert.
type Rule struct {
	Tenor       int
	Side        caucion.Side
	TargetRate  decimal.Decimal
	Comparison  Comparison
	Enabled     bool
	Description string
}

// String renders the rule for logs.
func (r Rule) String() string {
	return fmt.Sprintf("%dd %s %s %s%%", r.Tenor, r.Side, r.Comparison, r.TargetRate.StringFixed(2))
}

// Source yields the rule list for a run.
type Source interface {
	Load() ([]Rule, error)
}

// File loads rules from a JSON or YAML file with a top-level "alerts" list.
type File struct {
	Path string
}

// Load implements Source.
func (f File) Load() ([]Rule, error) {
	return LoadFile(f.Path)
}

// record mirrors one entry in the file. The legacy keys (days, type, condition)
// are accepted next to the current ones.
type record struct {
	Tenor       *float64 `mapstructure:"tenor"`
	Days        *float64 `mapstructure:"days"`
	Side        string   `mapstructure:"side"`
	Type        string   `mapstructure:"type"`
	TargetRate  *float64 `mapstructure:"target_rate"`
	Comparison  string   `mapstructure:"comparison"`
	Condition   string   `mapstructure:"condition"`
	Enabled     *bool    `mapstructure:"enabled"`
	Description string   `mapstructure:"description"`
}

// LoadFile reads and validates the rule file at path.
func LoadFile(path string) ([]Rule, error) {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrRulesNotFound, path)
		}
		return nil, fmt.Errorf("stat alert rules: %w", err)
	}

	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRulesMalformed, err)
	}

	var records []record
	if err := v.UnmarshalKey("alerts", &records); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRulesMalformed, err)
	}

	rules := make([]Rule, 0, len(records))
	for i, rec := range records {
		rule, err := rec.toRule()
		if err != nil {
			return nil, fmt.Errorf("%w: alerts[%d]: %v", ErrRulesMalformed, i, err)
		}
		rules = append(rules, rule)
	}
	return rules, nil
}

func (r record) toRule() (Rule, error) {
	days := r.Tenor
	if days == nil {
		days = r.Days
	}
	tenor, err := wholeDays(days)
	if err != nil {
		return Rule{}, err
	}

	sideName := r.Side
	if sideName == "" {
		sideName = r.Type
	}
	side, err := caucion.ParseSide(sideName)
	if err != nil {
		return Rule{}, err
	}

	if r.TargetRate == nil {
		return Rule{}, errors.New("target_rate is required")
	}
	if *r.TargetRate < 0 {
		return Rule{}, errors.New("target_rate cannot be negative")
	}

	op := r.Comparison
	if op == "" {
		op = r.Condition
	}
	comparison, err := ParseComparison(op)
	if err != nil {
		return Rule{}, err
	}

	enabled := true
	if r.Enabled != nil {
		enabled = *r.Enabled
	}

	return Rule{
		Tenor:       tenor,
		Side:        side,
		TargetRate:  decimal.NewFromFloat(*r.TargetRate),
		Comparison:  comparison,
		Enabled:     enabled,
		Description: strings.TrimSpace(r.Description),
	}, nil
}

// wholeDays accepts only positive integral tenors.
func wholeDays(v *float64) (int, error) {
	if v == nil || *v <= 0 {
		return 0, errors.New("tenor must be a positive number of days")
	}
	if *v != math.Trunc(*v) || *v > math.MaxInt32 {
		return 0, fmt.Errorf("tenor must be a whole number of days, got %v", *v)
	}
	return int(*v), nil
}
